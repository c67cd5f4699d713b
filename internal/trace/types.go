package trace

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

type CallKind string

const (
	KindCall         CallKind = "call"
	KindCallCode     CallKind = "callcode"
	KindStaticCall   CallKind = "staticcall"
	KindDelegateCall CallKind = "delegatecall"
	KindCreate       CallKind = "create"
	KindCreate2      CallKind = "create2"
	KindSelfDestruct CallKind = "selfdestruct"
)

// Node is one entry of the execution tree. Paths are dot separated child
// indices, and a parent's path is always a strict prefix of its children's.
type Node interface {
	NodePath() string
}

type Call struct {
	Path         string
	Kind         CallKind
	Gas          uint64
	GasUsed      uint64
	IsPrecompile bool
	From         common.Address
	To           common.Address
	Input        hexutil.Bytes
	Output       hexutil.Bytes
	Value        *big.Int
	Status       int
	CodeHash     common.Hash
	Children     []Node
}

type Log struct {
	Path   string
	Topics []common.Hash
	Data   hexutil.Bytes
}

type StorageRead struct {
	Path  string
	Slot  common.Hash
	Value common.Hash
}

type StorageWrite struct {
	Path     string
	Slot     common.Hash
	OldValue common.Hash
	NewValue common.Hash
}

func (c *Call) NodePath() string         { return c.Path }
func (l *Log) NodePath() string          { return l.Path }
func (s *StorageRead) NodePath() string  { return s.Path }
func (s *StorageWrite) NodePath() string { return s.Path }

// Reverted reports whether the frame failed; nothing below it took effect.
func (c *Call) Reverted() bool { return c.Status == 0 }

// FirstTopic returns the event signature topic, if any.
func (l *Log) FirstTopic() (common.Hash, bool) {
	if len(l.Topics) == 0 {
		return common.Hash{}, false
	}
	return l.Topics[0], true
}

// Response is the payload returned by the tracing service for one transaction.
type Response struct {
	Chain      string                            `json:"chain"`
	TxHash     string                            `json:"txhash"`
	Preimages  map[string]string                 `json:"preimages"`
	Addresses  map[string]map[string]AddressInfo `json:"addresses"`
	Entrypoint *Call                             `json:"entrypoint"`
}

// AddressInfo holds the ABI fragments known for one (address, codehash) pair.
type AddressInfo struct {
	Label     string                     `json:"label"`
	Functions map[string]json.RawMessage `json:"functions"`
	Events    map[string]json.RawMessage `json:"events"`
	Errors    map[string]json.RawMessage `json:"errors"`
}

type rawNode struct {
	Type string `json:"type"`
	Path string `json:"path"`

	// call
	Variant      CallKind          `json:"variant"`
	Gas          json.RawMessage   `json:"gas"`
	GasUsed      json.RawMessage   `json:"gasUsed"`
	IsPrecompile bool              `json:"isPrecompile"`
	From         string            `json:"from"`
	To           string            `json:"to"`
	Input        string            `json:"input"`
	Output       string            `json:"output"`
	Value        json.RawMessage   `json:"value"`
	Status       int               `json:"status"`
	CodeHash     string            `json:"codehash"`
	Children     []json.RawMessage `json:"children"`

	// log
	Topics []string `json:"topics"`
	Data   string   `json:"data"`

	// sload / sstore
	Slot     string `json:"slot"`
	OldValue string `json:"oldValue"`
	NewValue string `json:"newValue"`
}

// UnmarshalJSON decodes a call frame together with its subtree.
func (c *Call) UnmarshalJSON(data []byte) error {
	node, err := decodeNode(data)
	if err != nil {
		return err
	}
	call, ok := node.(*Call)
	if !ok {
		return fmt.Errorf("trace: expected call node, got %T", node)
	}
	*c = *call
	return nil
}

func decodeNode(data []byte) (Node, error) {
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	switch raw.Type {
	case "call":
		return raw.call()
	case "log":
		topics := make([]common.Hash, 0, len(raw.Topics))
		for _, t := range raw.Topics {
			topics = append(topics, common.HexToHash(t))
		}
		return &Log{Path: raw.Path, Topics: topics, Data: decodeHex(raw.Data)}, nil
	case "sload":
		return &StorageRead{
			Path:  raw.Path,
			Slot:  common.HexToHash(raw.Slot),
			Value: common.HexToHash(rawString(raw.Value)),
		}, nil
	case "sstore":
		return &StorageWrite{
			Path:     raw.Path,
			Slot:     common.HexToHash(raw.Slot),
			OldValue: common.HexToHash(raw.OldValue),
			NewValue: common.HexToHash(raw.NewValue),
		}, nil
	default:
		return nil, fmt.Errorf("trace: unknown node type %q at path %q", raw.Type, raw.Path)
	}
}

func (raw rawNode) call() (*Call, error) {
	value := big.NewInt(0)
	if s := rawString(raw.Value); s != "" {
		parsed := parseQuantity(s)
		if parsed == nil {
			return nil, fmt.Errorf("trace: invalid value %q at path %q", s, raw.Path)
		}
		if parsed.Sign() < 0 {
			return nil, fmt.Errorf("trace: negative value at path %q", raw.Path)
		}
		value = parsed
	}
	call := &Call{
		Path:         raw.Path,
		Kind:         raw.Variant,
		Gas:          quantityUint64(rawString(raw.Gas)),
		GasUsed:      quantityUint64(rawString(raw.GasUsed)),
		IsPrecompile: raw.IsPrecompile,
		From:         common.HexToAddress(raw.From),
		To:           common.HexToAddress(raw.To),
		Input:        decodeHex(raw.Input),
		Output:       decodeHex(raw.Output),
		Value:        value,
		Status:       raw.Status,
		CodeHash:     common.HexToHash(raw.CodeHash),
		Children:     make([]Node, 0, len(raw.Children)),
	}
	for _, childRaw := range raw.Children {
		child, err := decodeNode(childRaw)
		if err != nil {
			return nil, err
		}
		call.Children = append(call.Children, child)
	}
	return call, nil
}

// rawString accepts either a JSON string or a bare JSON number.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

func decodeHex(s string) hexutil.Bytes {
	s = strings.TrimSpace(s)
	if s == "" || s == "0x" {
		return nil
	}
	return common.FromHex(s)
}

// parseQuantity reads a hex or decimal quantity. Non-negative values must
// fit in one EVM word.
func parseQuantity(v string) *big.Int {
	num := parseBigQuantity(v)
	if num == nil || num.Sign() < 0 {
		return num
	}
	if _, overflow := uint256.FromBig(num); overflow {
		return nil
	}
	return num
}

func parseBigQuantity(v string) *big.Int {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		value := v[2:]
		if value == "" {
			return big.NewInt(0)
		}
		num, ok := new(big.Int).SetString(value, 16)
		if !ok {
			return nil
		}
		return num
	}
	if num, ok := new(big.Int).SetString(v, 10); ok {
		return num
	}
	return nil
}

func quantityUint64(v string) uint64 {
	num := parseQuantity(v)
	if num == nil || !num.IsUint64() {
		return 0
	}
	return num.Uint64()
}
