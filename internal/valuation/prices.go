package valuation

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/0xPexy/sentra-profit/internal/balance"
)

const (
	// PriceDecimals is the fixed-point scale of every stored price.
	PriceDecimals = 4
	// ValueDecimals is the scale of normalized values: amounts are lifted to
	// 18 decimals, then multiplied by a PriceDecimals price.
	ValueDecimals = 18 + PriceDecimals

	nativePlaceholder = "0x0000000000000000000000000000000000000000"
)

type PriceKind int

const (
	Historical PriceKind = iota
	Current
)

// Chain is the read-only chain information the normalizer needs.
type Chain struct {
	ID                 string
	ChainID            uint64
	NativeTokenAddress string
	PriceNamespace     string
}

// FeedID maps an asset to its chain-qualified price-feed key.
func FeedID(chain Chain, asset balance.Asset) string {
	native := strings.ToLower(chain.NativeTokenAddress)
	if asset.IsNative() || string(asset) == native {
		if chain.ID == "ethereum" || native == "" {
			return chain.PriceNamespace + ":" + nativePlaceholder
		}
		return chain.PriceNamespace + ":" + native
	}
	return chain.PriceNamespace + ":" + strings.ToLower(string(asset))
}

type PriceInfo struct {
	Decimals   uint8    `json:"decimals"`
	Current    *big.Int `json:"currentPrice"`
	Historical *big.Int `json:"historicalPrice"`
}

func (p PriceInfo) price(kind PriceKind) *big.Int {
	if kind == Current {
		return p.Current
	}
	return p.Historical
}

// PriceMetadata is pre-fetched by the caller. Entries that are absent or
// still pending are unknown, never zero.
type PriceMetadata struct {
	Status map[string]balance.FetchStatus `json:"status"`
	Prices map[string]PriceInfo           `json:"prices"`
}

func NewPriceMetadata() *PriceMetadata {
	return &PriceMetadata{
		Status: make(map[string]balance.FetchStatus),
		Prices: make(map[string]PriceInfo),
	}
}

func (m *PriceMetadata) MarkPending(id string) {
	if _, ok := m.Status[id]; !ok {
		m.Status[id] = balance.StatusPending
	}
}

func (m *PriceMetadata) Set(id string, info PriceInfo) {
	m.Status[id] = balance.StatusFetched
	m.Prices[id] = info
}

func (m *PriceMetadata) Known(id string) bool {
	if m == nil {
		return false
	}
	_, ok := m.Status[id]
	return ok
}

func (m *PriceMetadata) Lookup(id string) (PriceInfo, bool) {
	if m == nil || m.Status[id] != balance.StatusFetched {
		return PriceInfo{}, false
	}
	info, ok := m.Prices[id]
	return info, ok
}

// ValueOf converts amount of the asset behind id into a ValueDecimals
// fixed-point value. ok is false when the price is unknown.
func (m *PriceMetadata) ValueOf(id string, amount *big.Int, kind PriceKind) (*big.Int, bool) {
	info, ok := m.Lookup(id)
	if !ok {
		return nil, false
	}
	price := info.price(kind)
	if price == nil {
		return nil, false
	}
	value := scaleTo18(amount, info.Decimals)
	return value.Mul(value, price), true
}

func scaleTo18(amount *big.Int, decimals uint8) *big.Int {
	out := new(big.Int).Set(amount)
	switch {
	case decimals < 18:
		out.Mul(out, pow10(18-int(decimals)))
	case decimals > 18:
		out.Quo(out, pow10(int(decimals)-18))
	}
	return out
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// ParsePrice truncates a decimal price into the PriceDecimals fixed point.
func ParsePrice(price float64) (*big.Int, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("invalid price %v", price)
	}
	f := new(big.Float).SetFloat64(price)
	f.Mul(f, new(big.Float).SetInt(pow10(PriceDecimals)))
	out, _ := f.Int(nil)
	return out, nil
}
