package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/0xPexy/sentra-profit/internal/balance"
	"github.com/0xPexy/sentra-profit/internal/store"
	"github.com/0xPexy/sentra-profit/internal/valuation"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type mockRepo struct {
	mu   sync.Mutex
	rows map[string]*store.ScoredTransaction
	err  error
}

func newMockRepo() *mockRepo {
	return &mockRepo{rows: make(map[string]*store.ScoredTransaction)}
}

func (m *mockRepo) UpsertScoredTransaction(ctx context.Context, tx *store.ScoredTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	clone := *tx
	m.rows[strings.ToLower(tx.TxHash)] = &clone
	return nil
}

func (m *mockRepo) row(hash common.Hash) *store.ScoredTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[strings.ToLower(hash.Hex())]
}

type stubScorer struct {
	scores map[common.Hash]*Score
}

func (s *stubScorer) Score(ctx context.Context, job Job) (*Score, error) {
	score, ok := s.scores[job.TxHash]
	if !ok {
		return nil, ErrTraceUnavailable
	}
	score.Job = job
	return score, nil
}

func fixedScore(total string, complete bool) *Score {
	v, _ := new(big.Int).SetString(total, 10)
	return &Score{
		Chain:       ethereumChain,
		Deltas:      balance.Deltas{},
		Attribution: valuation.Attribution{Total: v, Complete: complete},
	}
}

func TestRunnerPersistsScoredAndFailedRows(t *testing.T) {
	okHash := common.HexToHash("0x01")
	partialHash := common.HexToHash("0x02")
	failHash := common.HexToHash("0x03")
	otherHash := common.HexToHash("0x04")

	scorer := &stubScorer{scores: map[common.Hash]*Score{
		okHash:      fixedScore("123456789000000000000000", true),
		partialHash: fixedScore("5", false),
		otherHash:   fixedScore("0", true),
	}}
	repo := newMockRepo()
	outDir := t.TempDir()
	cfg := Config{Chain: ethereumChain, ScoreWorkerCount: 2, WriteWorkerCount: 1, OutputDir: outDir}
	runner := NewRunner(cfg, scorer, repo, discardLogger())

	jobs := []Job{
		{Group: "unique_a", TxHash: okHash},
		{Group: "unique_a", TxHash: partialHash},
		{Group: "unique_a", TxHash: failHash},
		{Group: "BancorArbitrage", TxHash: otherHash},
	}
	summary, err := runner.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Total != 4 || summary.Scored != 3 || summary.Failed != 1 || summary.Incomplete != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	failed := repo.row(failHash)
	if failed == nil || failed.Status != store.StatusFailed || !strings.Contains(failed.Error, "trace unavailable") {
		t.Fatalf("failed transaction should be persisted with its error: %+v", failed)
	}
	scored := repo.row(okHash)
	if scored == nil || scored.ProfitUSD != "12.3456" || scored.Group != "unique_a" {
		t.Fatalf("unexpected scored row: %+v", scored)
	}

	body, err := os.ReadFile(filepath.Join(outDir, "unique_a.json"))
	if err != nil {
		t.Fatalf("read profit file: %v", err)
	}
	var profits map[string]*json.Number
	if err := json.Unmarshal(body, &profits); err != nil {
		t.Fatalf("decode profit file: %v", err)
	}
	if len(profits) != 2 {
		t.Fatalf("failed transactions should be left out: %v", profits)
	}
	if p := profits[okHash.Hex()]; p == nil || p.String() != "12.3456" {
		t.Fatalf("unexpected profit: %v", p)
	}
	if p, ok := profits[partialHash.Hex()]; !ok || p != nil {
		t.Fatalf("incomplete profit should be null")
	}
	if _, err := os.Stat(filepath.Join(outDir, "BancorArbitrage.json")); err != nil {
		t.Fatalf("expected a file per group: %v", err)
	}
}

func TestRunnerStopsOnWriteError(t *testing.T) {
	hash := common.HexToHash("0x01")
	scorer := &stubScorer{scores: map[common.Hash]*Score{hash: fixedScore("1", true)}}
	repo := newMockRepo()
	repo.err = errors.New("disk full")
	runner := NewRunner(Config{Chain: ethereumChain}, scorer, repo, discardLogger())

	if _, err := runner.Run(context.Background(), []Job{{Group: "g", TxHash: hash}}); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestGroupFileName(t *testing.T) {
	if got := groupFileName("../etc/passwd"); got != ".._etc_passwd.json" {
		t.Fatalf("unexpected file name: %s", got)
	}
	if got := groupFileName(""); got != "_.json" {
		t.Fatalf("unexpected file name: %s", got)
	}
}

func TestLoadJobsFiltersGroups(t *testing.T) {
	input := `[
		{
			"unique_flash": [
				{"txhash": "0x70438b8950da5c757b4c4cee11330c31619d3158c4e1b64eb7ee16fd4ba0f720", "receiver_address": "0x5afec0de001999766fb883860cae06f5932e6f32", "invocation_address": "0x5AFEC0DE001999766FB883860CAE06F5932E6F32"}
			],
			"skipped": [
				{"txhash": "0x2ec96abe5b14d8dcd0c98b447776505013a45eafc065d4a68e81d92d5689f7b4"}
			]
		},
		{
			"BancorArbitrage_v2": [
				{"txhash": "0x2ec96abe5b14d8dcd0c98b447776505013a45eafc065d4a68e81d92d5689f7b4"}
			]
		}
	]`
	jobs, err := LoadJobs(strings.NewReader(input), []string{"unique", "BancorArbitrage"})
	if err != nil {
		t.Fatalf("load jobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].Group != "unique_flash" || jobs[0].TxHash != sampleTx || jobs[0].Receiver != executor {
		t.Fatalf("unexpected first job: %+v", jobs[0])
	}

	all, err := LoadJobs(strings.NewReader(input), nil)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected every group without prefixes, got %d (%v)", len(all), err)
	}
}

func TestLoadJobsRejectsBadHash(t *testing.T) {
	_, err := LoadJobs(strings.NewReader(`[{"g": [{"txhash": "0x1234"}]}]`), nil)
	if err == nil || !strings.Contains(err.Error(), "group g entry 0") {
		t.Fatalf("expected hash error with position, got %v", err)
	}
}
