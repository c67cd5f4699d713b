package server

import (
	"time"

	"github.com/0xPexy/sentra-profit/internal/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(cfg config.Config, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	chainH := newChainHandler(cfg)
	scoreH := newScoreHandler(cfg, deps)
	api := r.Group("/api/v1")
	{
		api.GET("/chain", chainH.LookupChain)
		api.GET("/chains", chainH.ListChains)

		api.GET("/txs", scoreH.ListTransactions)
		api.GET("/txs/:txHash", scoreH.TransactionDetail)
		if cfg.Server.OnDemand {
			api.POST("/txs/:txHash/score", scoreH.ScoreTransaction)
		}
		api.GET("/groups/:group/summary", scoreH.GroupSummary)
		if deps.Hub != nil {
			api.GET("/events", scoreH.StreamEvents)
		}
	}

	return r
}
