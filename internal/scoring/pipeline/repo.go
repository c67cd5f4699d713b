package pipeline

import (
	"context"

	"github.com/0xPexy/sentra-profit/internal/store"
)

type Repo interface {
	UpsertScoredTransaction(ctx context.Context, tx *store.ScoredTransaction) error
}

type EventSink interface {
	PublishScoredTransaction(tx *store.ScoredTransaction)
}

// StoreAdapter persists rows and forwards them to an optional live sink.
type StoreAdapter struct {
	repo *store.Repository
	sink EventSink
}

func NewStoreAdapter(repo *store.Repository, sink EventSink) *StoreAdapter {
	return &StoreAdapter{repo: repo, sink: sink}
}

func (a *StoreAdapter) UpsertScoredTransaction(ctx context.Context, tx *store.ScoredTransaction) error {
	if err := a.repo.UpsertScoredTransaction(ctx, tx); err != nil {
		return err
	}
	if a.sink != nil {
		clone := *tx
		clone.Changes = append([]store.AddressChange(nil), tx.Changes...)
		a.sink.PublishScoredTransaction(&clone)
	}
	return nil
}
