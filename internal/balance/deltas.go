package balance

import (
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Asset identifies what a delta is denominated in: the chain's base currency
// or a token contract, always lowercase.
type Asset string

const Native Asset = "native_token"

func TokenAsset(addr common.Address) Asset {
	return Asset(strings.ToLower(addr.Hex()))
}

func ParseAsset(s string) Asset {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == string(Native) {
		return Native
	}
	return Asset(s)
}

func (a Asset) IsNative() bool { return a == Native }

// Address returns the token contract of a non-native asset.
func (a Asset) Address() (common.Address, bool) {
	if a.IsNative() || !common.IsHexAddress(string(a)) {
		return common.Address{}, false
	}
	return common.HexToAddress(string(a)), true
}

// Deltas is the signed per-asset balance change of every touched address.
type Deltas map[common.Address]map[Asset]*big.Int

func (d Deltas) add(addr common.Address, asset Asset, amount *big.Int) {
	perAsset, ok := d[addr]
	if !ok {
		perAsset = make(map[Asset]*big.Int)
		d[addr] = perAsset
	}
	if cur, ok := perAsset[asset]; ok {
		cur.Add(cur, amount)
		return
	}
	perAsset[asset] = new(big.Int).Set(amount)
}

// prune drops entries that net to zero and addresses left without entries.
func (d Deltas) prune() {
	for addr, perAsset := range d {
		for asset, delta := range perAsset {
			if delta.Sign() == 0 {
				delete(perAsset, asset)
			}
		}
		if len(perAsset) == 0 {
			delete(d, addr)
		}
	}
}

func (d Deltas) Get(addr common.Address, asset Asset) *big.Int {
	perAsset, ok := d[addr]
	if !ok {
		return nil
	}
	return perAsset[asset]
}

// Sum totals one asset across every address.
func (d Deltas) Sum(asset Asset) *big.Int {
	total := new(big.Int)
	for _, perAsset := range d {
		if delta, ok := perAsset[asset]; ok {
			total.Add(total, delta)
		}
	}
	return total
}

func (d Deltas) Addresses() []common.Address {
	out := make([]common.Address, 0, len(d))
	for addr := range d {
		out = append(out, addr)
	}
	sortAddresses(out)
	return out
}

// AssetsOf lists the assets held in addr's deltas in sorted order.
func (d Deltas) AssetsOf(addr common.Address) []Asset {
	out := make([]Asset, 0, len(d[addr]))
	for asset := range d[addr] {
		out = append(out, asset)
	}
	sortAssets(out)
	return out
}

func sortAddresses(addrs []common.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Cmp(addrs[j]) < 0
	})
}

func sortAssets(assets []Asset) {
	sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })
}

func neg(x *big.Int) *big.Int { return new(big.Int).Neg(x) }
