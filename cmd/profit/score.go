package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xPexy/sentra-profit/internal/config"
	"github.com/0xPexy/sentra-profit/internal/scoring/pipeline"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a batch of transactions",
	Long:  "Scores every transaction of a grouped input file, stores the results and optionally dumps per-group profits",
	RunE:  runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("input", "i", "", "Path to the grouped transaction file (required)")
	scoreCmd.Flags().StringSlice("group-prefix", nil, "Only score groups starting with this prefix (repeatable)")
	scoreCmd.Flags().StringP("output", "o", "", "Directory for per-group profit dumps")
	scoreCmd.Flags().Bool("strict", false, "Fail a transaction when a transfer log has no owning contract")
	scoreCmd.Flags().IntP("concurrency", "j", 0, "Number of concurrent scoring workers")

	scoreCmd.MarkFlagRequired("input")
}

func runScore(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	cfg := config.Load()

	inputPath, _ := cmd.Flags().GetString("input")
	if cmd.Flags().Changed("group-prefix") {
		cfg.Batch.GroupPrefix, _ = cmd.Flags().GetStringSlice("group-prefix")
	}
	if cmd.Flags().Changed("output") {
		cfg.Batch.OutputDir, _ = cmd.Flags().GetString("output")
	}
	if cmd.Flags().Changed("strict") {
		cfg.Batch.StrictTraces, _ = cmd.Flags().GetBool("strict")
	}
	if cmd.Flags().Changed("concurrency") {
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if concurrency < 1 {
			return fmt.Errorf("concurrency must be at least 1")
		}
		cfg.Batch.ScoreWorkers = concurrency
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	jobs, err := pipeline.LoadJobs(f, cfg.Batch.GroupPrefix)
	f.Close()
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		logger.Warnf("no transactions matched in %s", inputPath)
		return nil
	}

	repo, closeDB, err := openRepository(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pcfg := pipelineConfig(cfg)
	scorer, eth, err := newScorer(ctx, pcfg, cfg, logger)
	if err != nil {
		return err
	}
	defer eth.Close()

	runner := pipeline.NewRunner(pcfg, scorer, pipeline.NewStoreAdapter(repo, nil), logger)
	summary, err := runner.Run(ctx, jobs)
	logger.WithFields(logrus.Fields{
		"total":      summary.Total,
		"scored":     summary.Scored,
		"failed":     summary.Failed,
		"incomplete": summary.Incomplete,
	}).Info("batch finished")
	return err
}
