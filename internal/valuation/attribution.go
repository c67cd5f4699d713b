package valuation

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Predicate decides whether an address's value change counts toward a
// transaction's attributed total.
type Predicate func(addr common.Address) bool

// AllowList is a fixed set of relevant addresses, such as known arbitrage
// executors. Addresses are compared byte-wise, so casing never matters.
type AllowList struct {
	set map[common.Address]struct{}
}

func NewAllowList(addrs ...common.Address) *AllowList {
	a := &AllowList{set: make(map[common.Address]struct{}, len(addrs))}
	for _, addr := range addrs {
		a.set[addr] = struct{}{}
	}
	return a
}

// ParseAllowList accepts hex addresses in any casing and skips invalid ones.
func ParseAllowList(raw []string) (*AllowList, []string) {
	var invalid []string
	addrs := make([]common.Address, 0, len(raw))
	for _, s := range raw {
		if !common.IsHexAddress(s) {
			invalid = append(invalid, s)
			continue
		}
		addrs = append(addrs, common.HexToAddress(s))
	}
	return NewAllowList(addrs...), invalid
}

func (a *AllowList) Contains(addr common.Address) bool {
	if a == nil {
		return false
	}
	_, ok := a.set[addr]
	return ok
}

func (a *AllowList) Len() int {
	if a == nil {
		return 0
	}
	return len(a.set)
}

// Policy counts allow-listed addresses and the transaction's initiator.
func (a *AllowList) Policy(initiator common.Address) Predicate {
	return func(addr common.Address) bool {
		return addr == initiator || a.Contains(addr)
	}
}

type Attribution struct {
	Total *big.Int
	// Complete is false when a counted address had unpriced components.
	Complete     bool
	Contributors []common.Address
}

func Aggregate(values Values, include Predicate) Attribution {
	out := Attribution{Total: new(big.Int), Complete: true}
	for addr, info := range values {
		if !include(addr) {
			continue
		}
		out.Contributors = append(out.Contributors, addr)
		out.Total.Add(out.Total, info.Total)
		if info.HasMissingPrices {
			out.Complete = false
		}
	}
	sort.Slice(out.Contributors, func(i, j int) bool {
		return out.Contributors[i].Cmp(out.Contributors[j]) < 0
	})
	return out
}
