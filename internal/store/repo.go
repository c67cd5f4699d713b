package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("store: not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *DB) *Repository { return &Repository{db: db.DB} }

// UpsertScoredTransaction stores tx keyed by (chain, hash) and replaces its
// address changes.
func (r *Repository) UpsertScoredTransaction(ctx context.Context, tx *ScoredTransaction) error {
	tx.TxHash = NormalizeTxHash(tx.TxHash)
	tx.Receiver = NormalizeAddress(tx.Receiver)
	tx.Invocation = NormalizeAddress(tx.Invocation)
	tx.Initiator = NormalizeAddress(tx.Initiator)
	changes := tx.Changes
	defer func() { tx.Changes = changes }()

	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var existing ScoredTransaction
		err := db.Where("chain_id = ? AND tx_hash = ?", tx.ChainID, tx.TxHash).First(&existing).Error
		switch {
		case err == nil:
			tx.ID = existing.ID
			tx.CreatedAt = existing.CreatedAt
			if err := db.Omit("Changes").Save(tx).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			tx.ID = 0
			if err := db.Omit("Changes").Create(tx).Error; err != nil {
				return err
			}
		default:
			return err
		}

		if err := db.Where("transaction_id = ?", tx.ID).Delete(&AddressChange{}).Error; err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		for i := range changes {
			changes[i].ID = 0
			changes[i].TransactionID = tx.ID
			changes[i].Address = NormalizeAddress(changes[i].Address)
		}
		return db.Create(&changes).Error
	})
}

func (r *Repository) GetScoredTransaction(ctx context.Context, chainID uint64, txHash string) (*ScoredTransaction, error) {
	var tx ScoredTransaction
	err := r.db.WithContext(ctx).
		Preload("Changes", func(db *gorm.DB) *gorm.DB {
			return db.Order("address ASC, asset ASC")
		}).
		Where("chain_id = ? AND tx_hash = ?", chainID, NormalizeTxHash(txHash)).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

type ListParams struct {
	ChainID uint64
	Group   string
	Status  string
	// Cursor is the id of the last row of the previous page.
	Cursor uint
	Limit  int
}

// ListScoredTransactions pages newest first without address changes.
func (r *Repository) ListScoredTransactions(ctx context.Context, params ListParams) ([]ScoredTransaction, error) {
	query := r.db.WithContext(ctx).Where("chain_id = ?", params.ChainID)
	if params.Group != "" {
		query = query.Where("batch_group = ?", params.Group)
	}
	if params.Status != "" {
		query = query.Where("status = ?", strings.ToLower(params.Status))
	}
	if params.Cursor > 0 {
		query = query.Where("id < ?", params.Cursor)
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var rows []ScoredTransaction
	err := query.Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

type GroupSummary struct {
	Group        string
	Transactions int64
	Scored       int64
	Failed       int64
	Incomplete   int64
	// ProfitValue sums the profit of scored rows, 22 implied decimals.
	ProfitValue *big.Int
}

func (r *Repository) GroupSummary(ctx context.Context, chainID uint64, group string) (*GroupSummary, error) {
	var rows []ScoredTransaction
	err := r.db.WithContext(ctx).
		Select("status", "complete", "profit_value").
		Where("chain_id = ? AND batch_group = ?", chainID, group).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	out := &GroupSummary{Group: group, ProfitValue: new(big.Int)}
	for _, row := range rows {
		out.Transactions++
		if row.Status == StatusFailed {
			out.Failed++
			continue
		}
		out.Scored++
		if !row.Complete {
			out.Incomplete++
		}
		if row.ProfitValue == "" {
			continue
		}
		v, ok := new(big.Int).SetString(row.ProfitValue, 10)
		if !ok {
			return nil, fmt.Errorf("store: invalid profit value %q", row.ProfitValue)
		}
		out.ProfitValue.Add(out.ProfitValue, v)
	}
	return out, nil
}
