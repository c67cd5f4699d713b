package main

import (
	"context"
	"fmt"

	"github.com/0xPexy/sentra-profit/internal/config"
	"github.com/0xPexy/sentra-profit/internal/scoring/pipeline"
	"github.com/0xPexy/sentra-profit/internal/store"
	"github.com/sirupsen/logrus"
)

// openRepository returns a close func the caller must defer.
func openRepository(cfg config.Config, logger logrus.FieldLogger) (*store.Repository, func(), error) {
	db, err := store.OpenSQLite(cfg.Database.SQLiteDSN, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Warnf("close database: %v", err)
		}
	}
	if err := store.AutoMigrate(db); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	return store.NewRepository(db), closeDB, nil
}

func pipelineConfig(cfg config.Config) pipeline.Config {
	return pipeline.Config{
		Chain:            cfg.Chain.Network.Valuation(),
		NativeSymbol:     cfg.Chain.Network.NativeSymbol,
		PriceKind:        pipeline.ParsePriceKind(cfg.Sources.PriceKind),
		AllowList:        cfg.Attribution.AllowList(),
		StrictTraces:     cfg.Batch.StrictTraces,
		ScoreWorkerCount: cfg.Batch.ScoreWorkers,
		WriteWorkerCount: cfg.Batch.WriteWorkers,
		OutputDir:        cfg.Batch.OutputDir,
	}
}

// newScorer dials the chain RPC; callers close the returned client.
func newScorer(ctx context.Context, pcfg pipeline.Config, cfg config.Config, logger logrus.FieldLogger) (*pipeline.Scorer, *pipeline.EthClient, error) {
	eth, err := pipeline.DialEthClient(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect chain rpc: %w", err)
	}
	traces := pipeline.NewTraceClient(cfg.Sources.TraceAPIURL, cfg.Sources.HTTPTimeout, cfg.Sources.TraceRateLimit)
	prices := pipeline.NewDefiLlamaClient(cfg.Sources.PriceAPIURL, cfg.Sources.HTTPTimeout, cfg.Sources.PriceRateLimit, logger)
	tokens := pipeline.NewTokenClient(eth, logger)
	return pipeline.NewScorer(pcfg, traces, prices, tokens, eth, logger), eth, nil
}
