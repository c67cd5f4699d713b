package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/0xPexy/sentra-profit/internal/config"
	"github.com/0xPexy/sentra-profit/internal/scoring/pipeline"
	scoresvc "github.com/0xPexy/sentra-profit/internal/scoring/service"
	"github.com/0xPexy/sentra-profit/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type scoreHandler struct {
	cfg    config.Config
	reader *scoresvc.Reader
	scorer pipeline.TransactionScorer
	repo   pipeline.Repo
	hub    *EventHub
	logger logrus.FieldLogger
}

// Deps bundles what the scoring routes need. Scorer may be nil, which
// disables on-demand scoring.
type Deps struct {
	Reader *scoresvc.Reader
	Scorer pipeline.TransactionScorer
	Repo   pipeline.Repo
	Hub    *EventHub
	Logger logrus.FieldLogger
}

func newScoreHandler(cfg config.Config, deps Deps) *scoreHandler {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &scoreHandler{
		cfg:    cfg,
		reader: deps.Reader,
		scorer: deps.Scorer,
		repo:   deps.Repo,
		hub:    deps.Hub,
		logger: logger.WithField("module", "http"),
	}
}

// ListTransactions godoc
// @Summary List scored transactions
// @Tags Transactions
// @Produce json
// @Param chain_id query uint64 false "Chain ID override"
// @Param group query string false "Batch group"
// @Param status query string false "scored or failed"
// @Param limit query int false "Page size (1-100)"
// @Param cursor query uint false "Return rows older than this id"
// @Success 200 {object} scoresvc.ListResult
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/txs [get]
func (h *scoreHandler) ListTransactions(c *gin.Context) {
	chainID, ok := h.chainID(c)
	if !ok {
		return
	}
	status := strings.ToLower(strings.TrimSpace(c.Query("status")))
	if status != "" && status != store.StatusScored && status != store.StatusFailed {
		writeAPIError(c, http.StatusBadRequest, "invalid status")
		return
	}
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil || val < 0 {
			writeAPIError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = val
	}
	var cursor uint
	if raw := strings.TrimSpace(c.Query("cursor")); raw != "" {
		val, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			writeAPIError(c, http.StatusBadRequest, "invalid cursor")
			return
		}
		cursor = uint(val)
	}
	result, err := h.reader.ListTransactions(c.Request.Context(), scoresvc.ListParams{
		ChainID: chainID,
		Group:   strings.TrimSpace(c.Query("group")),
		Status:  status,
		Cursor:  cursor,
		Limit:   limit,
	})
	if err != nil {
		writeAPIError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

// TransactionDetail godoc
// @Summary Get a scored transaction with its per-address changes
// @Tags Transactions
// @Produce json
// @Param txHash path string true "Transaction hash"
// @Param chain_id query uint64 false "Chain ID override"
// @Success 200 {object} scoresvc.TransactionDetail
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/txs/{txHash} [get]
func (h *scoreHandler) TransactionDetail(c *gin.Context) {
	hash, err := pipeline.ParseTxHash(c.Param("txHash"))
	if err != nil {
		writeAPIError(c, http.StatusBadRequest, "invalid transaction hash")
		return
	}
	chainID, ok := h.chainID(c)
	if !ok {
		return
	}
	detail, err := h.reader.GetTransaction(c.Request.Context(), chainID, hash.Hex())
	if err != nil {
		writeAPIError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if detail == nil {
		writeAPIError(c, http.StatusNotFound, "transaction not scored")
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ScoreTransaction godoc
// @Summary Score a transaction now and store the result
// @Tags Transactions
// @Produce json
// @Param txHash path string true "Transaction hash"
// @Param group query string false "Batch group to file the result under"
// @Success 200 {object} scoresvc.TransactionDetail
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/txs/{txHash}/score [post]
func (h *scoreHandler) ScoreTransaction(c *gin.Context) {
	if h.scorer == nil || h.repo == nil {
		writeAPIError(c, http.StatusServiceUnavailable, "on-demand scoring disabled")
		return
	}
	hash, err := pipeline.ParseTxHash(c.Param("txHash"))
	if err != nil {
		writeAPIError(c, http.StatusBadRequest, "invalid transaction hash")
		return
	}
	job := pipeline.Job{Group: strings.TrimSpace(c.Query("group")), TxHash: hash}
	score, err := h.scorer.Score(c.Request.Context(), job)
	if err != nil {
		h.logger.WithField("tx", hash.Hex()).Warnf("score: %v", err)
		writeAPIError(c, http.StatusBadGateway, err.Error())
		return
	}
	row := score.Record()
	if err := h.repo.UpsertScoredTransaction(c.Request.Context(), row); err != nil {
		writeAPIError(c, http.StatusInternalServerError, err.Error())
		return
	}
	detail := scoresvc.DetailFromRow(row)
	for addr, label := range score.Labels {
		detail.WithLabel(addr.Hex(), label)
	}
	c.JSON(http.StatusOK, detail)
}

// GroupSummary godoc
// @Summary Summarize a batch group
// @Tags Groups
// @Produce json
// @Param group path string true "Batch group"
// @Param chain_id query uint64 false "Chain ID override"
// @Success 200 {object} scoresvc.GroupSummary
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/groups/{group}/summary [get]
func (h *scoreHandler) GroupSummary(c *gin.Context) {
	chainID, ok := h.chainID(c)
	if !ok {
		return
	}
	summary, err := h.reader.GroupSummary(c.Request.Context(), chainID, c.Param("group"))
	if err != nil {
		writeAPIError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if summary == nil {
		writeAPIError(c, http.StatusNotFound, "group not found")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// StreamEvents godoc
// @Summary Stream newly scored transactions
// @Tags Events
// @Produce json
// @Router /api/v1/events [get]
func (h *scoreHandler) StreamEvents(c *gin.Context) {
	h.hub.ServeWS(c)
}

func (h *scoreHandler) chainID(c *gin.Context) (uint64, bool) {
	chainID := h.cfg.Chain.Network.ChainID
	if raw := strings.TrimSpace(c.Query("chain_id")); raw != "" {
		val, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeAPIError(c, http.StatusBadRequest, "invalid chain_id")
			return 0, false
		}
		chainID = val
	}
	if chainID == 0 {
		writeAPIError(c, http.StatusBadRequest, "chain id required")
		return 0, false
	}
	return chainID, true
}
