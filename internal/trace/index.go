package trace

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicatePath    = errors.New("trace: duplicate node path")
	ErrNoOwningContract = errors.New("no owning contract found")
)

// Index maps every node path of one transaction tree to its node. It is built
// once per transaction and only read afterwards.
type Index struct {
	root  *Call
	nodes map[string]Node
}

func BuildIndex(root *Call) (*Index, error) {
	if root == nil {
		return nil, errors.New("trace: nil entrypoint")
	}
	idx := &Index{root: root, nodes: make(map[string]Node)}
	if err := idx.add(root); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) add(node Node) error {
	path := node.NodePath()
	if _, dup := idx.nodes[path]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicatePath, path)
	}
	idx.nodes[path] = node
	if call, ok := node.(*Call); ok {
		for _, child := range call.Children {
			if err := idx.add(child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (idx *Index) Root() *Call { return idx.root }

func (idx *Index) Len() int { return len(idx.nodes) }

func (idx *Index) Lookup(path string) (Node, bool) {
	node, ok := idx.nodes[path]
	return node, ok
}

// ResponsibleContract walks up from node to the nearest enclosing frame that
// is not a delegatecall, i.e. the contract whose identity the code runs as.
// The returned frames run outer to inner and end with node's direct caller.
func (idx *Index) ResponsibleContract(node Node) (*Call, []*Call, error) {
	var frames []*Call
	parents := strings.Split(node.NodePath(), ".")
	for len(parents) > 0 {
		parents = parents[:len(parents)-1]
		parent, ok := idx.nodes[strings.Join(parents, ".")]
		if !ok {
			continue
		}
		call, ok := parent.(*Call)
		if !ok {
			continue
		}
		frames = append(frames, call)
		if call.Kind != KindDelegateCall {
			reverse(frames)
			return call, frames, nil
		}
	}
	return nil, nil, fmt.Errorf("%w for %q", ErrNoOwningContract, node.NodePath())
}

func reverse(frames []*Call) {
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
}
