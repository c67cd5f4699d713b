package valuation

import (
	"math/big"

	"github.com/0xPexy/sentra-profit/internal/balance"
	"github.com/ethereum/go-ethereum/common"
)

// AddressValue is the common-currency change of one address. When
// HasMissingPrices is set, Total only covers the priced components and must
// not be treated as final.
type AddressValue struct {
	HasMissingPrices bool
	Total            *big.Int
	// PerAsset holds nil for assets without a known price.
	PerAsset map[balance.Asset]*big.Int
}

func (v *AddressValue) Complete() bool { return !v.HasMissingPrices }

// Values maps every address of a delta map to its normalized value change.
type Values map[common.Address]*AddressValue

// FeedIDs lists the price-feed ids needed to value the given assets.
func FeedIDs(chain Chain, assets []balance.Asset) []string {
	seen := make(map[string]struct{}, len(assets))
	out := make([]string, 0, len(assets))
	for _, asset := range assets {
		id := FeedID(chain, asset)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func Normalize(deltas balance.Deltas, chain Chain, prices *PriceMetadata, kind PriceKind) Values {
	out := make(Values, len(deltas))
	for addr, perAsset := range deltas {
		info := &AddressValue{
			Total:    new(big.Int),
			PerAsset: make(map[balance.Asset]*big.Int, len(perAsset)),
		}
		for asset, delta := range perAsset {
			value, ok := prices.ValueOf(FeedID(chain, asset), delta, kind)
			if !ok {
				info.HasMissingPrices = true
				info.PerAsset[asset] = nil
				continue
			}
			info.PerAsset[asset] = value
			info.Total.Add(info.Total, value)
		}
		out[addr] = info
	}
	return out
}
