package balance

import (
	"io"

	"github.com/0xPexy/sentra-profit/internal/trace"
	"github.com/sirupsen/logrus"
)

// Issue records a log whose contribution was skipped.
type Issue struct {
	Path string
	Err  error
}

type Result struct {
	Deltas Deltas
	// Assets lists every asset observed during the walk, including ones whose
	// deltas later netted to zero, so prices can be requested for all of them.
	Assets []Asset
	Issues []Issue
}

// Computer walks one transaction tree and accumulates balance deltas. It
// keeps no state between calls to Compute.
type Computer struct {
	index       *trace.Index
	interpreter *Interpreter
	tokens      *TokenMetadata
	logger      logrus.FieldLogger
}

func NewComputer(index *trace.Index, registry *trace.Registry, tokens *TokenMetadata, logger logrus.FieldLogger) *Computer {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Computer{
		index:       index,
		interpreter: NewInterpreter(registry),
		tokens:      tokens,
		logger:      logger,
	}
}

func (c *Computer) Compute() *Result {
	acc := &accumulator{
		deltas: make(Deltas),
		assets: make(map[Asset]struct{}),
		tokens: c.tokens,
	}
	var issues []Issue
	c.visit(c.index.Root(), acc, &issues)
	acc.deltas.prune()

	assets := make([]Asset, 0, len(acc.assets))
	for asset := range acc.assets {
		assets = append(assets, asset)
	}
	sortAssets(assets)
	return &Result{Deltas: acc.deltas, Assets: assets, Issues: issues}
}

func (c *Computer) visit(node *trace.Call, acc *accumulator, issues *[]Issue) {
	// reverted frames undo everything beneath them
	if node.Reverted() {
		return
	}
	if node.Value != nil && node.Value.Sign() != 0 {
		acc.add(Change{Address: node.From, Asset: Native, Amount: neg(node.Value)})
		acc.add(Change{Address: node.To, Asset: Native, Amount: node.Value})
	}
	for _, child := range node.Children {
		lg, ok := child.(*trace.Log)
		if !ok || !Recognized(lg) {
			continue
		}
		if err := c.applyLog(lg, node, acc); err != nil {
			c.logger.WithField("path", lg.Path).Warnf("failed to process value change: %v", err)
			*issues = append(*issues, Issue{Path: lg.Path, Err: err})
		}
	}
	for _, child := range node.Children {
		if call, ok := child.(*trace.Call); ok {
			c.visit(call, acc, issues)
		}
	}
}

func (c *Computer) applyLog(lg *trace.Log, emitter *trace.Call, acc *accumulator) error {
	owner, _, err := c.index.ResponsibleContract(lg)
	if err != nil {
		return err
	}
	ev, err := c.interpreter.Interpret(lg, emitter, owner)
	if err != nil {
		return err
	}
	if ev == nil {
		return nil
	}
	for _, change := range ev.Changes(TokenAsset(owner.To)) {
		acc.add(change)
	}
	return nil
}

type accumulator struct {
	deltas Deltas
	assets map[Asset]struct{}
	tokens *TokenMetadata
}

func (a *accumulator) add(change Change) {
	a.assets[change.Asset] = struct{}{}
	amount := change.Amount
	if a.tokens.IsNFT(change.Asset) {
		amount = unitAmount(amount)
	}
	a.deltas.add(change.Address, change.Asset, amount)
}
