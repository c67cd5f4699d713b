package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/0xPexy/sentra-profit/internal/config"
	"github.com/0xPexy/sentra-profit/internal/scoring/pipeline"
	scoresvc "github.com/0xPexy/sentra-profit/internal/scoring/service"
	"github.com/0xPexy/sentra-profit/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scoring results API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address, overrides HTTP_ADDR")
	serveCmd.Flags().Bool("on-demand", true, "Allow scoring transactions through the API")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	cfg := config.Load()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.HTTPAddr = addr
	}
	if cmd.Flags().Changed("on-demand") {
		cfg.Server.OnDemand, _ = cmd.Flags().GetBool("on-demand")
	}

	repo, closeDB, err := openRepository(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := server.NewEventHub(logger)
	deps := server.Deps{
		Reader: scoresvc.NewReader(repo),
		Repo:   pipeline.NewStoreAdapter(repo, hub),
		Hub:    hub,
		Logger: logger,
	}
	if cfg.Server.OnDemand {
		scorer, eth, err := newScorer(ctx, pipelineConfig(cfg), cfg, logger)
		if err != nil {
			return err
		}
		defer eth.Close()
		deps.Scorer = scorer
	}

	if !logger.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.NewHTTP(cfg.Server.HTTPAddr, server.NewRouter(cfg, deps))
	go hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s (chain=%s on-demand=%v)", cfg.Server.HTTPAddr, cfg.Chain.Network.ID, cfg.Server.OnDemand)
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdown)
}
