package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"trading-journal/internal/config"
	"trading-journal/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// setupTestServer creates a new test server and a Client configured to use it.
func setupTestServer(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)

	client := resty.New().
		SetBaseURL(server.URL + restPath).
		SetHeader("apikey", "test_key").
		SetAuthToken("test_key")

	c := &Client{
		client:  client,
		table:   "trades",
		logger:  zap.NewNop(), // Use a no-op logger for tests
		limiter: rate.NewLimiter(rate.Inf, 1), // Allow all requests in tests
		backoff: time.Millisecond,
	}

	return c, server
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestListTrades(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/rest/v1/trades", r.URL.Path)
			assert.Equal(t, "*", r.URL.Query().Get("select"))
			assert.Equal(t, "open_date.desc", r.URL.Query().Get("order"))
			assert.Equal(t, "test_key", r.Header.Get("apikey"))
			assert.Equal(t, "Bearer test_key", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, `[
				{"id": 2, "pair": "EUR/USD", "result": "Loss", "rr": -1, "open_date": "2024-01-10T09:00:00+00:00"},
				{"id": 1, "pair": "XAU/USD", "result": "Win", "rr": "1.5", "open_date": "2024-01-05T09:00:00+00:00"}
			]`)
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		trades, err := c.ListTrades(context.Background())

		require.NoError(t, err)
		require.Len(t, trades, 2)
		assert.Equal(t, models.ID("2"), trades[0].ID)
		assert.Equal(t, -1.0, trades[0].RRValue())
		assert.Equal(t, 1.5, trades[1].RRValue())
	})

	t.Run("Empty table", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `[]`)
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		trades, err := c.ListTrades(context.Background())

		require.NoError(t, err)
		assert.NotNil(t, trades)
		assert.Empty(t, trades)
	})

	t.Run("Client error is not retried", func(t *testing.T) {
		var calls atomic.Int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			writeJSON(w, http.StatusUnauthorized, `{"message": "Invalid API key"}`)
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		trades, err := c.ListTrades(context.Background())

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list trades")
		assert.Contains(t, err.Error(), "401")
		assert.Nil(t, trades)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("Server error is retried", func(t *testing.T) {
		var calls atomic.Int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				writeJSON(w, http.StatusServiceUnavailable, `{"message": "busy"}`)
				return
			}
			writeJSON(w, http.StatusOK, `[{"id": 1, "pair": "EUR/USD", "result": "Win", "rr": 2}]`)
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		trades, err := c.ListTrades(context.Background())

		require.NoError(t, err)
		assert.Len(t, trades, 1)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("Gives up after max retries", func(t *testing.T) {
		var calls atomic.Int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			writeJSON(w, http.StatusInternalServerError, `{}`)
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		_, err := c.ListTrades(context.Background())

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "after 3 attempts")
		assert.Equal(t, int32(maxRetries), calls.Load())
	})
}

func TestInsertTrade(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var rows []map[string]any
		require.NoError(t, json.Unmarshal(body, &rows))
		require.Len(t, rows, 1)
		assert.NotContains(t, rows[0], "id")
		assert.Equal(t, "GBP/USD", rows[0]["pair"])
		assert.Equal(t, 2.5, rows[0]["rr"])

		writeJSON(w, http.StatusCreated, `[{"id": 99, "pair": "GBP/USD", "result": "Win", "rr": 2.5}]`)
	})

	c, server := setupTestServer(handler)
	defer server.Close()

	saved, err := c.InsertTrade(context.Background(), models.Trade{Pair: "GBP/USD", Result: models.ResultWin, RR: "2.5"})

	require.NoError(t, err)
	assert.Equal(t, models.ID("99"), saved.ID)
}

func TestDeleteTrade(t *testing.T) {
	t.Run("Deleted", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "eq.42", r.URL.Query().Get("id"))
			writeJSON(w, http.StatusOK, `[{"id": 42}]`)
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		assert.NoError(t, c.DeleteTrade(context.Background(), "42"))
	})

	t.Run("Not found", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `[]`)
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		err := c.DeleteTrade(context.Background(), "42")
		assert.True(t, errors.Is(err, models.ErrTradeNotFound))
	})
}

func TestPing(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, `[]`)
	})

	c, server := setupTestServer(handler)
	defer server.Close()

	assert.NoError(t, c.Ping(context.Background()))
}

func TestNewClient(t *testing.T) {
	cfg := &config.Backend{URL: "https://example.test/", APIKey: "k", RateLimit: 0}
	c := NewClient(cfg, zap.NewNop())

	assert.NotNil(t, c)
	assert.Equal(t, "trades", c.table)
	assert.Equal(t, "https://example.test/rest/v1", c.client.BaseURL)
	assert.Equal(t, rate.Inf, c.limiter.Limit())
	assert.Equal(t, config.SourceRemote, c.Name())
}
