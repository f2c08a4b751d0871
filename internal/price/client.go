package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"walletScope/internal/ratelimit"
)

// FallbackUSD is used when the price API is unreachable. Loss-in-USD
// figures are advisory, so a stale estimate beats a failed run.
const FallbackUSD = 30.0

// Client resolves the native token's historical USD price. Lookups are
// cached per UTC day and never fail; the fallback covers API outages.
type Client struct {
	httpClient *http.Client
	baseURL    string
	coinID     string
	limiter    ratelimit.Limiter
	logger     *zap.Logger

	mu    sync.Mutex
	cache map[string]float64
}

func NewClient(baseURL, coinID string, limiter ratelimit.Limiter, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.coingecko.com"
	}
	if coinID == "" {
		coinID = "avalanche-2"
	}
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		coinID:     coinID,
		limiter:    limiter,
		logger:     logger,
		cache:      make(map[string]float64),
	}
}

// NewClientWithHTTP creates a client with a custom HTTP client, for tests.
func NewClientWithHTTP(httpClient *http.Client, baseURL, coinID string, limiter ratelimit.Limiter, logger *zap.Logger) *Client {
	c := NewClient(baseURL, coinID, limiter, logger)
	c.httpClient = httpClient
	return c
}

type historyResponse struct {
	MarketData struct {
		CurrentPrice struct {
			USD float64 `json:"usd"`
		} `json:"current_price"`
	} `json:"market_data"`
}

// Price returns the USD price on the day of the given unix timestamp.
func (c *Client) Price(ctx context.Context, timestamp uint64) float64 {
	day := time.Unix(int64(timestamp), 0).UTC().Format("02-01-2006")

	c.mu.Lock()
	cached, ok := c.cache[day]
	c.mu.Unlock()
	if ok {
		return cached
	}

	price, err := c.fetch(ctx, day)
	if err != nil {
		c.logger.Warn("price lookup failed, using fallback",
			zap.String("day", day),
			zap.Float64("fallback", FallbackUSD),
			zap.Error(err))
		return FallbackUSD
	}

	c.mu.Lock()
	c.cache[day] = price
	c.mu.Unlock()
	return price
}

func (c *Client) fetch(ctx context.Context, day string) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v3/coins/%s/history?date=%s", c.baseURL, c.coinID, day)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var history historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return 0, fmt.Errorf("decoding response: %w", err)
	}
	if history.MarketData.CurrentPrice.USD <= 0 {
		return 0, fmt.Errorf("no usd price for %s", day)
	}
	return history.MarketData.CurrentPrice.USD, nil
}
