package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/0xPexy/sentra-profit/internal/balance"
	"github.com/0xPexy/sentra-profit/internal/config"
	"github.com/0xPexy/sentra-profit/internal/scoring/pipeline"
	scoresvc "github.com/0xPexy/sentra-profit/internal/scoring/service"
	"github.com/0xPexy/sentra-profit/internal/store"
	"github.com/0xPexy/sentra-profit/internal/valuation"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const testHash = "0x5e1e4ddb7c6ca6b6fd0d1b2bc24c9b46bc2d66b0b0cdbf7d2dfdd9c4a5a0f0e1"

var (
	searcher = common.HexToAddress("0xe9eb4a51414de92c4dbe5a46f6259cb4f456d7f9")
	pool     = common.HexToAddress("0xa566b84cc8e917a553c854a8503a0d3afbc93e88")
)

type stubScorer struct {
	err   error
	calls int
}

func (s *stubScorer) Score(ctx context.Context, job pipeline.Job) (*pipeline.Score, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	value, _ := new(big.Int).SetString("123456789000000000000000", 10)
	return &pipeline.Score{
		Job:       job,
		Chain:     valuation.Chain{ID: "ethereum", ChainID: 1, PriceNamespace: "ethereum"},
		Initiator: searcher,
		Deltas: balance.Deltas{
			searcher: {balance.Native: big.NewInt(1)},
			pool:     {balance.Native: big.NewInt(-1)},
		},
		Values: valuation.Values{
			searcher: {Total: value, PerAsset: map[balance.Asset]*big.Int{balance.Native: value}},
			pool:     {Total: new(big.Int).Neg(value), PerAsset: map[balance.Asset]*big.Int{balance.Native: new(big.Int).Neg(value)}},
		},
		Attribution: valuation.Attribution{Total: value, Complete: true, Contributors: []common.Address{searcher}},
		Labels:      map[common.Address]string{pool: "UniswapV2Pair"},
	}, nil
}

type recordingSink struct {
	rows []*store.ScoredTransaction
}

func (s *recordingSink) PublishScoredTransaction(tx *store.ScoredTransaction) {
	s.rows = append(s.rows, tx)
}

func newTestDeps(t *testing.T, scorer pipeline.TransactionScorer) (Deps, *store.Repository, *recordingSink) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := store.OpenSQLite("file:"+t.Name()+"?mode=memory&cache=shared", nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := store.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := store.NewRepository(db)
	sink := &recordingSink{}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return Deps{
		Reader: scoresvc.NewReader(repo),
		Scorer: scorer,
		Repo:   pipeline.NewStoreAdapter(repo, sink),
		Logger: logger,
	}, repo, sink
}

func testConfig(onDemand bool) config.Config {
	network, _ := config.ChainByID(1)
	return config.Config{
		Server: config.ServerConfig{OnDemand: onDemand},
		Chain:  config.ChainConfig{Network: network},
	}
}

func doRequest(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestScoreTransactionPersistsAndPublishes(t *testing.T) {
	scorer := &stubScorer{}
	deps, _, sink := newTestDeps(t, scorer)
	router := NewRouter(testConfig(true), deps)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/txs/"+testHash+"/score?group=unique_a")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var detail scoresvc.TransactionDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if detail.ProfitUSD != "12.3456" || !detail.Complete || detail.Group != "unique_a" {
		t.Fatalf("unexpected detail: %+v", detail.TransactionItem)
	}
	if len(detail.Changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(detail.Changes))
	}
	labelled := false
	for _, change := range detail.Changes {
		if change.Label == "UniswapV2Pair" {
			labelled = true
		}
	}
	if !labelled {
		t.Fatalf("expected the pool change to carry its label")
	}
	if len(sink.rows) != 1 {
		t.Fatalf("expected one published row, got %d", len(sink.rows))
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/txs/"+testHash)
	if rec.Code != http.StatusOK {
		t.Fatalf("stored detail: status %d", rec.Code)
	}
	rec = doRequest(t, router, http.MethodGet, "/api/v1/groups/unique_a/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: status %d", rec.Code)
	}
	var summary scoresvc.GroupSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Scored != 1 || summary.ProfitUSD != "12.3456" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestScoreTransactionErrors(t *testing.T) {
	scorer := &stubScorer{err: errors.New("trace unavailable")}
	deps, _, sink := newTestDeps(t, scorer)
	router := NewRouter(testConfig(true), deps)

	if rec := doRequest(t, router, http.MethodPost, "/api/v1/txs/0x1234/score"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a short hash, got %d", rec.Code)
	}
	if rec := doRequest(t, router, http.MethodPost, "/api/v1/txs/"+testHash+"/score"); rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 when scoring fails, got %d", rec.Code)
	}
	if len(sink.rows) != 0 {
		t.Fatalf("failed scoring must not publish")
	}

	disabled := NewRouter(testConfig(false), deps)
	if rec := doRequest(t, disabled, http.MethodPost, "/api/v1/txs/"+testHash+"/score"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected the route to be absent, got %d", rec.Code)
	}
	if scorer.calls != 1 {
		t.Fatalf("expected one scoring attempt, got %d", scorer.calls)
	}
}

func TestListTransactionsValidatesQuery(t *testing.T) {
	deps, repo, _ := newTestDeps(t, nil)
	ctx := context.Background()
	for _, hash := range []string{"0xaaa", "0xbbb", "0xccc"} {
		row := &store.ScoredTransaction{ChainID: 1, TxHash: hash, Group: "g", Status: store.StatusScored, ProfitValue: "0", Complete: true}
		if err := repo.UpsertScoredTransaction(ctx, row); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	handler := newScoreHandler(testConfig(false), deps)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/txs?limit=2&group=g", nil)
	handler.ListTransactions(c)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	var result scoresvc.ListResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Items) != 2 || !result.HasNext || result.NextCursor == 0 {
		t.Fatalf("unexpected page: %+v", result)
	}

	for _, query := range []string{"?status=pending", "?limit=-1", "?cursor=abc", "?chain_id=x"} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/txs"+query, nil)
		handler.ListTransactions(c)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", query, w.Code)
		}
	}
}

func TestTransactionDetailNotFound(t *testing.T) {
	deps, _, _ := newTestDeps(t, nil)
	router := NewRouter(testConfig(false), deps)
	if rec := doRequest(t, router, http.MethodGet, "/api/v1/txs/"+testHash); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := doRequest(t, router, http.MethodGet, "/api/v1/groups/missing/summary"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown group, got %d", rec.Code)
	}
}

func TestLookupChain(t *testing.T) {
	deps, _, _ := newTestDeps(t, nil)
	router := NewRouter(testConfig(false), deps)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/chain?chain=polygon")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var chain ChainResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &chain); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if chain.ChainID != 137 || chain.Active {
		t.Fatalf("unexpected chain: %+v", chain)
	}
	rec = doRequest(t, router, http.MethodGet, "/api/v1/chain")
	if err := json.Unmarshal(rec.Body.Bytes(), &chain); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if chain.ChainID != 1 || !chain.Active {
		t.Fatalf("expected the active chain, got %+v", chain)
	}
	if rec := doRequest(t, router, http.MethodGet, "/api/v1/chain?chain=solana"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
