package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/0xPexy/sentra-profit/internal/trace"
	"github.com/ethereum/go-ethereum/common"
)

var ErrTraceUnavailable = errors.New("trace unavailable")

type TraceSource interface {
	FetchTrace(ctx context.Context, chain string, txHash common.Hash) (*trace.Response, error)
}

// TraceClient fetches replayed call trees from the tracing service.
type TraceClient struct {
	http httpSource
}

func NewTraceClient(baseURL string, timeout time.Duration, perSecond int) *TraceClient {
	return &TraceClient{http: newHTTPSource(strings.TrimRight(baseURL, "/"), timeout, perSecond)}
}

type traceEnvelope struct {
	OK     bool            `json:"ok"`
	Result *trace.Response `json:"result"`
	Error  json.RawMessage `json:"error"`
}

func (c *TraceClient) FetchTrace(ctx context.Context, chain string, txHash common.Hash) (*trace.Response, error) {
	var env traceEnvelope
	path := fmt.Sprintf("/api/v1/trace/%s/%s", chain, txHash.Hex())
	if err := c.http.getJSON(ctx, path, &env); err != nil {
		return nil, fmt.Errorf("fetch trace %s: %w", txHash.Hex(), err)
	}
	if !env.OK {
		return nil, fmt.Errorf("%w: %s", ErrTraceUnavailable, errorMessage(env.Error))
	}
	if env.Result == nil || env.Result.Entrypoint == nil {
		return nil, fmt.Errorf("%w: empty result", ErrTraceUnavailable)
	}
	return env.Result, nil
}

func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "unknown error"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
