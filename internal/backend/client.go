package backend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trading-journal/internal/config"
	"trading-journal/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	restPath   = "/rest/v1"
	maxRetries = 3
)

// Client talks to the hosted data backend's REST interface, which owns the
// trades table.
type Client struct {
	client  *resty.Client
	table   string
	logger  *zap.Logger
	limiter *rate.Limiter
	backoff time.Duration
}

// NewClient creates a new hosted backend client.
func NewClient(cfg *config.Backend, logger *zap.Logger) *Client {
	base := strings.TrimRight(cfg.URL, "/") + restPath

	client := resty.New().
		SetBaseURL(base).
		SetHeader("apikey", cfg.APIKey).
		SetHeader("Accept", "application/json").
		SetAuthToken(cfg.APIKey)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateLimitBurst
	if burst < 1 {
		burst = 1
	}

	table := cfg.Table
	if table == "" {
		table = "trades"
	}

	return &Client{
		client:  client,
		table:   table,
		logger:  logger.Named("backend"),
		limiter: rate.NewLimiter(limit, burst),
		backoff: time.Second,
	}
}

// Name identifies the client as a trade source.
func (c *Client) Name() string {
	return config.SourceRemote
}

// Ping checks that the backend answers and the table is readable.
func (c *Client) Ping(ctx context.Context) error {
	req := c.client.R().
		SetQueryParam("select", "id").
		SetQueryParam("limit", "1")

	if _, err := c.doRequest(ctx, http.MethodGet, c.tablePath(), req); err != nil {
		return fmt.Errorf("failed to reach backend: %w", err)
	}
	return nil
}

// ListTrades fetches every trade, newest open date first. It is a single
// full fetch; there is no paging or incremental sync.
func (c *Client) ListTrades(ctx context.Context) ([]models.Trade, error) {
	var trades []models.Trade

	req := c.client.R().
		SetQueryParam("select", "*").
		SetQueryParam("order", "open_date.desc").
		SetResult(&trades)

	if _, err := c.doRequest(ctx, http.MethodGet, c.tablePath(), req); err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	c.logger.Debug("Fetched trades", zap.Int("count", len(trades)))
	return trades, nil
}

// InsertTrade stores a new trade and returns the row the backend saved.
func (c *Client) InsertTrade(ctx context.Context, trade models.Trade) (models.Trade, error) {
	var rows []models.Trade

	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", "return=representation").
		SetBody([]models.Trade{trade}).
		SetResult(&rows)

	if _, err := c.doRequest(ctx, http.MethodPost, c.tablePath(), req); err != nil {
		c.logger.Error("Failed to insert trade", zap.String("pair", trade.Pair), zap.Error(err))
		return models.Trade{}, fmt.Errorf("failed to insert trade: %w", err)
	}
	if len(rows) == 0 {
		return models.Trade{}, errors.New("failed to insert trade: backend returned no row")
	}

	c.logger.Info("Trade inserted", zap.String("id", rows[0].ID.String()), zap.String("pair", rows[0].Pair))
	return rows[0], nil
}

// DeleteTrade removes a trade by id. It returns models.ErrTradeNotFound when
// nothing matched.
func (c *Client) DeleteTrade(ctx context.Context, id models.ID) error {
	var rows []models.Trade

	req := c.client.R().
		SetHeader("Prefer", "return=representation").
		SetQueryParam("id", "eq."+id.String()).
		SetResult(&rows)

	if _, err := c.doRequest(ctx, http.MethodDelete, c.tablePath(), req); err != nil {
		return fmt.Errorf("failed to delete trade %s: %w", id, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("failed to delete trade %s: %w", id, models.ErrTradeNotFound)
	}

	c.logger.Info("Trade deleted", zap.String("id", id.String()))
	return nil
}

func (c *Client) tablePath() string {
	return "/" + c.table
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	req.SetContext(ctx)

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		// Network errors and throttling/server errors are retried; other
		// statuses are final.
		var retryAfter time.Duration
		if err == nil {
			statusCode := resp.StatusCode()
			switch {
			case statusCode == http.StatusTooManyRequests || statusCode == 418:
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			case statusCode >= 500:
			default:
				return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
			}
			err = fmt.Errorf("request failed with status %s", resp.Status())
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if i == maxRetries-1 {
			break
		}

		// Exponential backoff: 1s, 2s, 4s
		if retryAfter == 0 {
			retryAfter = time.Duration(math.Pow(2, float64(i))) * c.backoff
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
