package service

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/0xPexy/sentra-profit/internal/store"
	"github.com/0xPexy/sentra-profit/internal/valuation"
)

type Reader struct {
	repo *store.Repository
}

func NewReader(repo *store.Repository) *Reader {
	return &Reader{repo: repo}
}

type ListParams struct {
	ChainID uint64
	Group   string
	Status  string
	Cursor  uint
	Limit   int
}

type TransactionItem struct {
	ID          uint      `json:"id"`
	TxHash      string    `json:"txHash"`
	Group       string    `json:"group,omitempty"`
	Status      string    `json:"status"`
	Initiator   string    `json:"initiator,omitempty"`
	Receiver    string    `json:"receiver,omitempty"`
	Invocation  string    `json:"invocation,omitempty"`
	BlockNumber uint64    `json:"blockNumber,omitempty"`
	BlockTime   time.Time `json:"blockTime"`
	ProfitUSD   string    `json:"profitUsd,omitempty"`
	Complete    bool      `json:"complete"`
	IssueCount  int       `json:"issueCount"`
	Error       string    `json:"error,omitempty"`
}

type ListResult struct {
	Items      []TransactionItem `json:"items"`
	Limit      int               `json:"limit"`
	HasNext    bool              `json:"hasNext"`
	NextCursor uint              `json:"nextCursor,omitempty"`
}

func (r *Reader) ListTransactions(ctx context.Context, params ListParams) (*ListResult, error) {
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.repo.ListScoredTransactions(ctx, store.ListParams{
		ChainID: params.ChainID,
		Group:   params.Group,
		Status:  params.Status,
		Cursor:  params.Cursor,
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	items := make([]TransactionItem, 0, len(rows))
	for i := range rows {
		items = append(items, itemFromRow(&rows[i]))
	}
	result := &ListResult{Items: items, Limit: limit}
	if len(rows) == limit {
		result.HasNext = true
		result.NextCursor = rows[len(rows)-1].ID
	}
	return result, nil
}

type ChangeItem struct {
	Address  string `json:"address"`
	Label    string `json:"label,omitempty"`
	Asset    string `json:"asset"`
	Symbol   string `json:"symbol,omitempty"`
	Amount   string `json:"amount"`
	ValueUSD string `json:"valueUsd"`
	Counted  bool   `json:"counted"`
}

type TransactionDetail struct {
	TransactionItem
	Changes []ChangeItem `json:"changes"`
}

// GetTransaction returns nil when the transaction was never scored.
func (r *Reader) GetTransaction(ctx context.Context, chainID uint64, txHash string) (*TransactionDetail, error) {
	row, err := r.repo.GetScoredTransaction(ctx, chainID, txHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return DetailFromRow(row), nil
}

func DetailFromRow(row *store.ScoredTransaction) *TransactionDetail {
	detail := &TransactionDetail{
		TransactionItem: itemFromRow(row),
		Changes:         make([]ChangeItem, 0, len(row.Changes)),
	}
	for _, change := range row.Changes {
		detail.Changes = append(detail.Changes, ChangeItem{
			Address:  change.Address,
			Asset:    change.Asset,
			Symbol:   change.Symbol,
			Amount:   change.Amount,
			ValueUSD: formatStored(change.Value),
			Counted:  change.Counted,
		})
	}
	return detail
}

// WithLabel attaches a human-readable name to every change of addr.
func (d *TransactionDetail) WithLabel(addr, label string) {
	addr = strings.ToLower(addr)
	for i := range d.Changes {
		if d.Changes[i].Address == addr {
			d.Changes[i].Label = label
		}
	}
}

type GroupSummary struct {
	Group        string `json:"group"`
	Transactions int64  `json:"transactions"`
	Scored       int64  `json:"scored"`
	Failed       int64  `json:"failed"`
	Incomplete   int64  `json:"incomplete"`
	ProfitUSD    string `json:"profitUsd"`
}

// GroupSummary returns nil for an unknown group. The profit only covers
// complete transactions' priced totals and is rendered as loading when any
// scored transaction was incomplete.
func (r *Reader) GroupSummary(ctx context.Context, chainID uint64, group string) (*GroupSummary, error) {
	row, err := r.repo.GroupSummary(ctx, chainID, group)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	profit := valuation.FormatUSD(row.ProfitValue)
	if row.Incomplete > 0 {
		profit = valuation.Loading
	}
	return &GroupSummary{
		Group:        row.Group,
		Transactions: row.Transactions,
		Scored:       row.Scored,
		Failed:       row.Failed,
		Incomplete:   row.Incomplete,
		ProfitUSD:    profit,
	}, nil
}

func itemFromRow(row *store.ScoredTransaction) TransactionItem {
	item := TransactionItem{
		ID:          row.ID,
		TxHash:      row.TxHash,
		Group:       row.Group,
		Status:      row.Status,
		Initiator:   row.Initiator,
		Receiver:    row.Receiver,
		Invocation:  row.Invocation,
		BlockNumber: row.BlockNumber,
		BlockTime:   row.BlockTime,
		Complete:    row.Complete,
		IssueCount:  row.IssueCount,
		Error:       row.Error,
	}
	if row.Status == store.StatusScored {
		item.ProfitUSD = row.ProfitUSD
	}
	return item
}

func formatStored(value *string) string {
	if value == nil {
		return valuation.Loading
	}
	v, ok := new(big.Int).SetString(*value, 10)
	if !ok {
		return valuation.Loading
	}
	return valuation.FormatUSD(v)
}
