package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/0xPexy/sentra-profit/internal/balance"
	"github.com/0xPexy/sentra-profit/internal/trace"
	"github.com/0xPexy/sentra-profit/internal/valuation"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Job is one transaction to score. Receiver and Invocation are carried
// through from the input file for reporting only.
type Job struct {
	Group      string
	TxHash     common.Hash
	Receiver   common.Address
	Invocation common.Address
}

// Score is the full breakdown of one scored transaction.
type Score struct {
	Job         Job
	Chain       valuation.Chain
	Initiator   common.Address
	BlockNumber uint64
	BlockTime   time.Time
	Deltas      balance.Deltas
	Tokens      *balance.TokenMetadata
	Prices      *valuation.PriceMetadata
	Values      valuation.Values
	Attribution valuation.Attribution
	Issues      []balance.Issue
	Labels      map[common.Address]string
}

type TransactionScorer interface {
	Score(ctx context.Context, job Job) (*Score, error)
}

type Scorer struct {
	cfg    Config
	traces TraceSource
	prices PriceSource
	tokens TokenSource
	chain  ChainClient
	logger logrus.FieldLogger
}

func NewScorer(cfg Config, traces TraceSource, prices PriceSource, tokens TokenSource, chain ChainClient, logger logrus.FieldLogger) *Scorer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Scorer{
		cfg:    cfg,
		traces: traces,
		prices: prices,
		tokens: tokens,
		chain:  chain,
		logger: logger.WithField("module", "scorer"),
	}
}

func (s *Scorer) Score(ctx context.Context, job Job) (*Score, error) {
	log := s.logger.WithField("tx", job.TxHash.Hex())

	resp, err := s.traces.FetchTrace(ctx, s.cfg.Chain.ID, job.TxHash)
	if err != nil {
		return nil, err
	}
	index, err := trace.BuildIndex(resp.Entrypoint)
	if err != nil {
		return nil, fmt.Errorf("index trace: %w", err)
	}
	registry := trace.NewRegistry(resp.Addresses, log)

	tokens := balance.NewTokenMetadata()
	decimals := uint8(18)
	tokens.Set(balance.Native, balance.TokenInfo{Symbol: s.cfg.NativeSymbol, Decimals: &decimals})

	result := balance.NewComputer(index, registry, tokens, log).Compute()
	if s.cfg.StrictTraces {
		for _, issue := range result.Issues {
			if errors.Is(issue.Err, trace.ErrNoOwningContract) {
				return nil, fmt.Errorf("log %s: %w", issue.Path, issue.Err)
			}
		}
	}

	if s.tokens != nil {
		s.tokens.FetchTokens(ctx, tokens, result.Assets)
		if tokens.HasNFT() {
			result = balance.NewComputer(index, registry, tokens, log).Compute()
		}
	}

	info, err := s.chain.TransactionInfo(ctx, job.TxHash)
	if err != nil {
		return nil, err
	}

	prices := valuation.NewPriceMetadata()
	ids := valuation.FeedIDs(s.cfg.Chain, result.Assets)
	if s.prices != nil && len(ids) > 0 {
		if err := s.prices.FetchPrices(ctx, prices, ids, info.BlockTime); err != nil {
			log.Warnf("price fetch failed, values stay incomplete: %v", err)
		}
	}

	values := valuation.Normalize(result.Deltas, s.cfg.Chain, prices, s.cfg.PriceKind)
	attribution := valuation.Aggregate(values, s.cfg.AllowList.Policy(info.Initiator))
	if len(result.Issues) > 0 {
		log.Warnf("scored with %d skipped logs", len(result.Issues))
	}

	return &Score{
		Job:         job,
		Chain:       s.cfg.Chain,
		Initiator:   info.Initiator,
		BlockNumber: info.BlockNumber,
		BlockTime:   info.BlockTime,
		Deltas:      result.Deltas,
		Tokens:      tokens,
		Prices:      prices,
		Values:      values,
		Attribution: attribution,
		Issues:      result.Issues,
		Labels:      registry.Labels(),
	}, nil
}
