package main

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/0xPexy/sentra-profit/internal/balance"
	"github.com/0xPexy/sentra-profit/internal/config"
	"github.com/0xPexy/sentra-profit/internal/scoring/pipeline"
	"github.com/0xPexy/sentra-profit/internal/valuation"
	"github.com/spf13/cobra"
)

var txCmd = &cobra.Command{
	Use:   "tx HASH",
	Short: "Score a single transaction and print its breakdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runTx,
}

func init() {
	rootCmd.AddCommand(txCmd)

	txCmd.Flags().String("group", "", "Group to file the result under when saving")
	txCmd.Flags().Bool("save", false, "Store the result in the database")
}

func runTx(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	hash, err := pipeline.ParseTxHash(args[0])
	if err != nil {
		return err
	}
	cfg := config.Load()
	group, _ := cmd.Flags().GetString("group")
	save, _ := cmd.Flags().GetBool("save")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scorer, eth, err := newScorer(ctx, pipelineConfig(cfg), cfg, logger)
	if err != nil {
		return err
	}
	defer eth.Close()

	score, err := scorer.Score(ctx, pipeline.Job{Group: group, TxHash: hash})
	if err != nil {
		return err
	}
	if save {
		repo, closeDB, err := openRepository(cfg, logger)
		if err != nil {
			return err
		}
		defer closeDB()
		if err := repo.UpsertScoredTransaction(ctx, score.Record()); err != nil {
			return fmt.Errorf("save score: %w", err)
		}
	}
	return printScore(cmd.OutOrStdout(), score)
}

func printScore(out io.Writer, score *pipeline.Score) error {
	fmt.Fprintf(out, "tx:        %s\n", score.Job.TxHash.Hex())
	fmt.Fprintf(out, "chain:     %s\n", score.Chain.ID)
	fmt.Fprintf(out, "initiator: %s\n", score.Initiator.Hex())
	fmt.Fprintf(out, "block:     %d (%s)\n\n", score.BlockNumber, score.BlockTime.UTC().Format("2006-01-02 15:04:05"))

	counted := make(map[string]bool, len(score.Attribution.Contributors))
	for _, addr := range score.Attribution.Contributors {
		counted[addr.Hex()] = true
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tLABEL\tASSET\tAMOUNT\tUSD\tCOUNTED")
	for _, addr := range score.Deltas.Addresses() {
		label := score.Labels[addr]
		perAsset := score.Deltas[addr]
		values := score.Values[addr]
		for _, asset := range score.Deltas.AssetsOf(addr) {
			usd := valuation.Loading
			if values != nil {
				if v := values.PerAsset[asset]; v != nil {
					usd = valuation.FormatUSD(v)
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%v\n",
				addr.Hex(), label, assetName(score, asset), amountString(score, asset, perAsset[asset]), usd, counted[addr.Hex()])
		}
		fmt.Fprintf(w, "\t\t\t\t%s\t\n", valuation.FormatValue(values))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	total := valuation.FormatUSD(score.Attribution.Total)
	if !score.Attribution.Complete {
		total = valuation.Loading
	}
	fmt.Fprintf(out, "\nprofit: %s USD\n", total)
	for _, issue := range score.Issues {
		fmt.Fprintf(out, "skipped log %s: %v\n", issue.Path, issue.Err)
	}
	return nil
}

func assetName(score *pipeline.Score, asset balance.Asset) string {
	if info, ok := score.Tokens.Lookup(asset); ok && info.Symbol != "" {
		return info.Symbol
	}
	return string(asset)
}

func amountString(score *pipeline.Score, asset balance.Asset, amount *big.Int) string {
	info, ok := score.Tokens.Lookup(asset)
	if !ok || info.Decimals == nil || info.IsNFT {
		return amount.String()
	}
	return valuation.FormatUnits(amount, int(*info.Decimals))
}
