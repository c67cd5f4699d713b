package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/0xPexy/sentra-profit/internal/store"
	"github.com/0xPexy/sentra-profit/internal/valuation"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Summary struct {
	Total      int `json:"total"`
	Scored     int `json:"scored"`
	Failed     int `json:"failed"`
	Incomplete int `json:"incomplete"`
}

// Runner scores a batch of jobs with a pool of score workers feeding a pool
// of write workers. A transaction that fails to score is stored as a failed
// row and the batch continues; a failed write stops the batch.
type Runner struct {
	cfg    Config
	scorer TransactionScorer
	repo   Repo
	logger logrus.FieldLogger

	mu      sync.Mutex
	summary Summary
	profits map[string]map[string]*json.Number
}

func NewRunner(cfg Config, scorer TransactionScorer, repo Repo, logger logrus.FieldLogger) *Runner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{
		cfg:    cfg,
		scorer: scorer,
		repo:   repo,
		logger: logger.WithField("module", "runner"),
	}
}

func (r *Runner) Run(ctx context.Context, jobs []Job) (Summary, error) {
	r.reset(jobs)
	r.logger.Infof("batch starting: chain=%s jobs=%d workers=%d", r.cfg.Chain.ID, len(jobs), r.cfg.scoreWorkerCount())

	g, ctx := errgroup.WithContext(ctx)
	jobCh := make(chan Job, r.cfg.scoreWorkerCount()*4)
	writeCh := make(chan writeRequest, r.cfg.writeWorkerCount()*16)

	g.Go(func() error {
		defer close(jobCh)
		for _, job := range jobs {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case jobCh <- job:
			}
		}
		return nil
	})

	var scoreWG sync.WaitGroup
	for n := 0; n < r.cfg.scoreWorkerCount(); n++ {
		scoreWG.Add(1)
		g.Go(func() error {
			defer scoreWG.Done()
			return r.runScoreWorker(ctx, jobCh, writeCh)
		})
	}

	g.Go(func() error {
		scoreWG.Wait()
		close(writeCh)
		return nil
	})

	for n := 0; n < r.cfg.writeWorkerCount(); n++ {
		g.Go(func() error {
			return r.runWriteWorker(ctx, writeCh)
		})
	}

	err := g.Wait()
	summary := r.snapshot()
	if err != nil {
		r.logger.Errorf("batch stopped with error: %v", err)
		return summary, err
	}
	if r.cfg.OutputDir != "" {
		if err := r.writeProfits(); err != nil {
			return summary, err
		}
	}
	r.logger.Infof("batch finished: scored=%d failed=%d incomplete=%d", summary.Scored, summary.Failed, summary.Incomplete)
	return summary, nil
}

func (r *Runner) runScoreWorker(ctx context.Context, in <-chan Job, out chan<- writeRequest) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-in:
			if !ok {
				return nil
			}
			rec, err := r.scoreOne(ctx, job)
			if err != nil {
				return err
			}
			req := writeRequest{
				name: "tx " + rec.TxHash,
				apply: func(ctx context.Context, repo Repo) error {
					return repo.UpsertScoredTransaction(ctx, rec)
				},
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- req:
			}
		}
	}
}

// scoreOne only returns an error when the batch itself was cancelled.
func (r *Runner) scoreOne(ctx context.Context, job Job) (*store.ScoredTransaction, error) {
	start := time.Now()
	score, err := r.scorer.Score(ctx, job)
	scoreDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.WithFields(logrus.Fields{"tx": job.TxHash.Hex(), "group": job.Group}).Errorf("scoring failed: %v", err)
		scoredTransactions.WithLabelValues(store.StatusFailed).Inc()
		r.note(job, nil)
		return failedRecord(r.cfg.Chain.ChainID, job, err), nil
	}
	scoredTransactions.WithLabelValues(store.StatusScored).Inc()
	skippedLogs.Add(float64(len(score.Issues)))
	r.note(job, score)
	return score.Record(), nil
}

func (r *Runner) runWriteWorker(ctx context.Context, in <-chan writeRequest) error {
	for req := range in {
		if req.apply == nil {
			continue
		}
		callCtx := ctx
		if err := callCtx.Err(); err != nil {
			callCtx = context.Background()
		}
		if err := req.apply(callCtx, r.repo); err != nil {
			r.logger.Errorf("database write error (%s): %v", req.name, err)
			return err
		}
		r.logger.Debugf("persisted %s", req.name)
	}
	return ctx.Err()
}

type writeRequest struct {
	name  string
	apply func(context.Context, Repo) error
}

func (r *Runner) reset(jobs []Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary = Summary{Total: len(jobs)}
	r.profits = make(map[string]map[string]*json.Number)
	for _, job := range jobs {
		if _, ok := r.profits[job.Group]; !ok {
			r.profits[job.Group] = make(map[string]*json.Number)
		}
	}
}

// note records the outcome of one job. Incomplete profits are kept as null
// and failed transactions are left out of the profit files.
func (r *Runner) note(job Job, score *Score) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if score == nil {
		r.summary.Failed++
		return
	}
	r.summary.Scored++
	var profit *json.Number
	if score.Attribution.Complete {
		n := json.Number(valuation.FormatUSD(score.Attribution.Total))
		profit = &n
	} else {
		r.summary.Incomplete++
	}
	r.profits[job.Group][job.TxHash.Hex()] = profit
}

func (r *Runner) snapshot() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

func (r *Runner) writeProfits() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for group, profits := range r.profits {
		body, err := json.MarshalIndent(profits, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", group, err)
		}
		path := filepath.Join(r.cfg.OutputDir, groupFileName(group))
		if err := os.WriteFile(path, body, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		r.logger.Infof("wrote %d profits to %s", len(profits), path)
	}
	return nil
}

func groupFileName(group string) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == 0 {
			return '_'
		}
		return r
	}, group)
	if name == "" || name == "." || name == ".." {
		name = "_"
	}
	return name + ".json"
}
