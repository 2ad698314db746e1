package farequote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
	"navigator.metromap.org/internal/logging"
	"navigator.metromap.org/internal/network"
	"navigator.metromap.org/quotedb"
)

// ErrNoTickets means the schedule service answered but listed no prices.
var ErrNoTickets = errors.New("no ticket prices in schedule response")

const (
	DefaultBaseURL = "https://api.rasp.yandex.net/v3.0/search/"
	dateLayout     = "2006-01-02"
)

// Config configures the schedule-service client.
type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	CacheTTL          time.Duration
}

// Client looks up the cheapest ticket between two stations identified by
// their schedule-system (ESP) codes. Answers are cached in memory and, when a
// store is configured, on disk.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	memory     *cache.Cache
	store      *quotedb.Client
	cacheTTL   time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewClient(cfg Config, store *quotedb.Client, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 6 * time.Hour
	}
	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		memory:     cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		store:      store,
		cacheTTL:   cfg.CacheTTL,
		logger:     logger.With(slog.String("component", "fare_quote_client")),
		now:        time.Now,
	}
}

func cacheKey(fromCode, toCode string, date time.Time) string {
	return strings.Join([]string{fromCode, toCode, date.Format(dateLayout)}, ":")
}

// LowestPrice implements the tariff engine's quote service.
func (c *Client) LowestPrice(ctx context.Context, fromCode, toCode string, date time.Time) (network.Amount, error) {
	key := cacheKey(fromCode, toCode, date)
	if cached, ok := c.memory.Get(key); ok {
		return cached.(network.Amount), nil
	}

	if price, ok := c.fromStore(ctx, fromCode, toCode, date); ok {
		c.memory.Set(key, price, cache.DefaultExpiration)
		return price, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("fare quote rate limit: %w", err)
	}

	price, err := c.fetch(ctx, fromCode, toCode, date)
	if err != nil {
		return 0, err
	}

	c.memory.Set(key, price, cache.DefaultExpiration)
	if c.store != nil {
		err := c.store.SaveQuote(ctx, quotedb.Quote{
			FromCode:  fromCode,
			ToCode:    toCode,
			Date:      date,
			Price:     int64(price),
			FetchedAt: c.now(),
		})
		if err != nil {
			logging.LogError(c.logger, "failed to persist fare quote", err, slog.String("key", key))
		}
	}

	return price, nil
}

func (c *Client) fromStore(ctx context.Context, fromCode, toCode string, date time.Time) (network.Amount, bool) {
	if c.store == nil {
		return 0, false
	}
	q, err := c.store.LookupQuote(ctx, fromCode, toCode, date)
	if err != nil {
		if !errors.Is(err, quotedb.ErrNotFound) {
			logging.LogError(c.logger, "failed to read cached fare quote", err)
		}
		return 0, false
	}
	if c.now().Sub(q.FetchedAt) > c.cacheTTL {
		return 0, false
	}
	return network.Amount(q.Price), true
}

type searchResponse struct {
	Segments []struct {
		TicketsInfo *struct {
			Places []struct {
				Currency string `json:"currency"`
				Price    *struct {
					Whole int64 `json:"whole"`
					Cents int64 `json:"cents"`
				} `json:"price"`
			} `json:"places"`
		} `json:"tickets_info"`
	} `json:"segments"`
}

func (c *Client) fetch(ctx context.Context, fromCode, toCode string, date time.Time) (network.Amount, error) {
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("format", "json")
	params.Set("from", fromCode)
	params.Set("to", toCode)
	params.Set("date", date.Format(dateLayout))
	params.Set("system", "esr")
	params.Set("transport_types", "suburban")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch fare quote: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, c.logger, "fare_quote_body")

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fare quote request returned status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode fare quote: %w", err)
	}

	lowest, found := network.Amount(0), false
	for _, seg := range body.Segments {
		if seg.TicketsInfo == nil {
			continue
		}
		for _, place := range seg.TicketsInfo.Places {
			if place.Price == nil {
				continue
			}
			price := network.Amount(place.Price.Whole*100 + place.Price.Cents)
			if !found || price < lowest {
				lowest, found = price, true
			}
		}
	}
	if !found {
		return 0, fmt.Errorf("%w: %s to %s", ErrNoTickets, fromCode, toCode)
	}

	logging.LogOperation(c.logger, "fare_quote_fetched",
		slog.String("from", fromCode),
		slog.String("to", toCode),
		slog.Int64("price", int64(lowest)),
		slog.Duration("duration", time.Since(start)))

	return lowest, nil
}

// Cleanup drops persisted quotes older than maxAge.
func (c *Client) Cleanup(ctx context.Context, maxAge time.Duration) {
	if c.store == nil {
		return
	}
	removed, err := c.store.DeleteOlderThan(ctx, c.now().Add(-maxAge))
	if err != nil {
		logging.LogError(c.logger, "failed to clean fare quote cache", err)
		return
	}
	if removed > 0 {
		logging.LogOperation(c.logger, "fare_quote_cache_cleaned", slog.Int64("removed", removed))
	}
	c.memory.DeleteExpired()
}

// RunCleanup prunes the persistent cache every interval until ctx is done.
func (c *Client) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Cleanup(ctx, maxAge)
		case <-ctx.Done():
			logging.LogOperation(c.logger, "stopping_fare_quote_cleanup")
			return
		}
	}
}
