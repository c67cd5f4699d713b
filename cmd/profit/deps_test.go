package main

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/0xPexy/sentra-profit/internal/config"
	"github.com/0xPexy/sentra-profit/internal/store"
	"github.com/sirupsen/logrus"
)

func TestOpenRepositoryCloses(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := config.Config{Database: config.DatabaseConfig{SQLiteDSN: filepath.Join(t.TempDir(), "profit.db")}}

	repo, closeDB, err := openRepository(cfg, logger)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	ctx := context.Background()
	if _, err := repo.GetScoredTransaction(ctx, 1, "0xabc"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found on an open database, got %v", err)
	}

	closeDB()
	_, err = repo.GetScoredTransaction(ctx, 1, "0xabc")
	if err == nil || errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected an error from a closed database, got %v", err)
	}
}
