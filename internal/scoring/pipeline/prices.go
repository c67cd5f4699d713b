package pipeline

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/0xPexy/sentra-profit/internal/valuation"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const priceBatchSize = 50

type PriceSource interface {
	// FetchPrices fills meta for ids it does not know yet. when is the
	// timestamp of the historical quote.
	FetchPrices(ctx context.Context, meta *valuation.PriceMetadata, ids []string, when time.Time) error
}

// DefiLlamaClient reads current and historical quotes from the coins API.
type DefiLlamaClient struct {
	http   httpSource
	logger logrus.FieldLogger
}

func NewDefiLlamaClient(baseURL string, timeout time.Duration, perSecond int, logger logrus.FieldLogger) *DefiLlamaClient {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DefiLlamaClient{
		http:   newHTTPSource(strings.TrimRight(baseURL, "/"), timeout, perSecond),
		logger: logger.WithField("module", "prices"),
	}
}

type llamaCoin struct {
	Decimals *int    `json:"decimals"`
	Price    float64 `json:"price"`
	Symbol   string  `json:"symbol"`
}

func (c llamaCoin) decimals(def uint8) uint8 {
	if c.Decimals == nil || *c.Decimals < 0 || *c.Decimals > 255 {
		return def
	}
	return uint8(*c.Decimals)
}

type llamaResponse struct {
	Coins map[string]llamaCoin `json:"coins"`
}

func (c *DefiLlamaClient) FetchPrices(ctx context.Context, meta *valuation.PriceMetadata, ids []string, when time.Time) error {
	var missing []string
	for _, id := range ids {
		if !meta.Known(id) {
			meta.MarkPending(id)
			missing = append(missing, id)
		}
	}
	for start := 0; start < len(missing); start += priceBatchSize {
		end := min(start+priceBatchSize, len(missing))
		if err := c.fetchBatch(ctx, meta, missing[start:end], when); err != nil {
			return err
		}
	}
	return nil
}

func (c *DefiLlamaClient) fetchBatch(ctx context.Context, meta *valuation.PriceMetadata, ids []string, when time.Time) error {
	joined := strings.Join(ids, ",")
	var current, historical llamaResponse

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.http.getJSON(gctx, "/prices/current/"+joined, &current)
	})
	g.Go(func() error {
		return c.http.getJSON(gctx, fmt.Sprintf("/prices/historical/%d/%s", when.Unix(), joined), &historical)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("fetch prices: %w", err)
	}

	for _, id := range ids {
		info := valuation.PriceInfo{Decimals: 18}
		if coin, ok := current.Coins[id]; ok {
			info.Decimals = coin.decimals(info.Decimals)
			info.Current = c.parse(id, coin.Price)
		}
		if coin, ok := historical.Coins[id]; ok {
			info.Decimals = coin.decimals(info.Decimals)
			info.Historical = c.parse(id, coin.Price)
		}
		meta.Set(id, info)
	}
	return nil
}

func (c *DefiLlamaClient) parse(id string, price float64) *big.Int {
	v, err := valuation.ParsePrice(price)
	if err != nil {
		c.logger.Warnf("ignoring price for %s: %v", id, err)
		return nil
	}
	return v
}
