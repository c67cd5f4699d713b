package pipeline

import (
	"strings"

	"github.com/0xPexy/sentra-profit/internal/store"
	"github.com/0xPexy/sentra-profit/internal/valuation"
	"github.com/ethereum/go-ethereum/common"
)

// Record flattens a score into its persisted form.
func (s *Score) Record() *store.ScoredTransaction {
	counted := make(map[common.Address]struct{}, len(s.Attribution.Contributors))
	for _, addr := range s.Attribution.Contributors {
		counted[addr] = struct{}{}
	}

	profitUSD := valuation.FormatUSD(s.Attribution.Total)
	if !s.Attribution.Complete {
		profitUSD = valuation.Loading
	}

	row := &store.ScoredTransaction{
		ChainID:     s.Chain.ChainID,
		TxHash:      s.Job.TxHash.Hex(),
		Group:       s.Job.Group,
		Receiver:    addressString(s.Job.Receiver),
		Invocation:  addressString(s.Job.Invocation),
		Initiator:   addressString(s.Initiator),
		BlockNumber: s.BlockNumber,
		BlockTime:   s.BlockTime,
		Status:      store.StatusScored,
		ProfitValue: s.Attribution.Total.String(),
		ProfitUSD:   profitUSD,
		Complete:    s.Attribution.Complete,
		IssueCount:  len(s.Issues),
	}

	for _, addr := range s.Deltas.Addresses() {
		_, isCounted := counted[addr]
		perAsset := s.Deltas[addr]
		for _, asset := range s.Deltas.AssetsOf(addr) {
			change := store.AddressChange{
				Address: strings.ToLower(addr.Hex()),
				Asset:   string(asset),
				Amount:  perAsset[asset].String(),
				Counted: isCounted,
			}
			if info, ok := s.Tokens.Lookup(asset); ok {
				change.Symbol = info.Symbol
			}
			if v := s.Values[addr]; v != nil {
				if value := v.PerAsset[asset]; value != nil {
					str := value.String()
					change.Value = &str
				}
			}
			row.Changes = append(row.Changes, change)
		}
	}
	return row
}

func failedRecord(chainID uint64, job Job, err error) *store.ScoredTransaction {
	return &store.ScoredTransaction{
		ChainID:    chainID,
		TxHash:     job.TxHash.Hex(),
		Group:      job.Group,
		Receiver:   addressString(job.Receiver),
		Invocation: addressString(job.Invocation),
		Status:     store.StatusFailed,
		Error:      err.Error(),
	}
}

func addressString(addr common.Address) string {
	if addr == (common.Address{}) {
		return ""
	}
	return strings.ToLower(addr.Hex())
}
