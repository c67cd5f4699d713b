package pipeline

import (
	"github.com/0xPexy/sentra-profit/internal/valuation"
)

type Config struct {
	Chain        valuation.Chain
	NativeSymbol string
	PriceKind    valuation.PriceKind
	AllowList    *valuation.AllowList
	// StrictTraces fails a transaction when a transfer log has no owning
	// contract.
	StrictTraces     bool
	ScoreWorkerCount int
	WriteWorkerCount int
	OutputDir        string
}

func (c Config) scoreWorkerCount() int {
	if c.ScoreWorkerCount <= 0 {
		return 4
	}
	return c.ScoreWorkerCount
}

func (c Config) writeWorkerCount() int {
	if c.WriteWorkerCount <= 0 {
		return 1
	}
	return c.WriteWorkerCount
}

// ParsePriceKind maps "current" to valuation.Current and anything else to
// valuation.Historical.
func ParsePriceKind(s string) valuation.PriceKind {
	if s == "current" {
		return valuation.Current
	}
	return valuation.Historical
}
