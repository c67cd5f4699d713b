package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/0xPexy/sentra-profit/internal/config"
	"github.com/gin-gonic/gin"
)

type chainHandler struct {
	cfg config.Config
}

type ChainResponse struct {
	ChainID            uint64 `json:"chainId"`
	ID                 string `json:"id"`
	DisplayName        string `json:"displayName"`
	NativeTokenAddress string `json:"nativeTokenAddress"`
	NativeSymbol       string `json:"nativeSymbol"`
	ExplorerURL        string `json:"explorerUrl"`
	Active             bool   `json:"active"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func newChainHandler(cfg config.Config) *chainHandler {
	return &chainHandler{cfg: cfg}
}

// LookupChain godoc
// @Summary Lookup a supported chain
// @Description Resolves a chain by numeric id or name. Without a query the active chain is returned.
// @Tags Chains
// @Produce json
// @Param chain query string false "Chain id or name, e.g. 137 or polygon"
// @Success 200 {object} ChainResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/chain [get]
func (h *chainHandler) LookupChain(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("chain"))
	if raw == "" {
		c.JSON(http.StatusOK, h.response(h.cfg.Chain.Network))
		return
	}
	var (
		network config.Network
		ok      bool
	)
	if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
		network, ok = config.ChainByID(id)
	} else {
		network, ok = config.ChainByName(raw)
	}
	if !ok {
		writeAPIError(c, http.StatusNotFound, "unsupported chain")
		return
	}
	c.JSON(http.StatusOK, h.response(network))
}

// ListChains godoc
// @Summary List supported chains
// @Tags Chains
// @Produce json
// @Success 200 {array} ChainResponse
// @Router /api/v1/chains [get]
func (h *chainHandler) ListChains(c *gin.Context) {
	out := make([]ChainResponse, 0, len(config.SupportedChains))
	for _, network := range config.SupportedChains {
		out = append(out, h.response(network))
	}
	c.JSON(http.StatusOK, out)
}

func (h *chainHandler) response(n config.Network) ChainResponse {
	return ChainResponse{
		ChainID:            n.ChainID,
		ID:                 n.ID,
		DisplayName:        n.DisplayName,
		NativeTokenAddress: n.NativeTokenAddress,
		NativeSymbol:       n.NativeSymbol,
		ExplorerURL:        n.ExplorerURL,
		Active:             n.ChainID == h.cfg.Chain.Network.ChainID,
	}
}

func writeAPIError(c *gin.Context, status int, msg string) {
	c.JSON(status, ErrorResponse{Error: msg})
}
