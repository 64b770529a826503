// Package market fetches candle data from the Bybit v5 public REST API.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/whph710/Final-Trade-Bot-sub000/config"
)

// klineResponse is the Bybit v5 envelope for GET /v5/market/kline. Rows in
// result.list are [startTime, open, high, low, close, volume, turnover],
// newest first.
type klineResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List [][]string `json:"list"`
	} `json:"result"`
}

// instrumentsResponse is the envelope for GET /v5/market/instruments-info.
type instrumentsResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			Symbol string `json:"symbol"`
			Status string `json:"status"`
		} `json:"list"`
	} `json:"result"`
}

type Client struct {
	baseURL    string
	category   string
	maxRetries int
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewClient(cfg config.MarketConfig, logger zerolog.Logger) *Client {
	def := config.Default().MarketConfig
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Category == "" {
		cfg.Category = def.Category
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = def.TimeoutSeconds
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		category:   cfg.Category,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		logger:     logger.With().Str("component", "market").Logger(),
	}
}

// FetchKlines fetches up to limit closed candles for a symbol. Rows come back
// oldest first in the [timestamp, open, high, low, close, volume, ...] layout
// the normalizer expects; the still-forming last candle is dropped.
func (c *Client) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([][]string, error) {
	params := url.Values{}
	params.Set("category", c.category)
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/v5/market/kline?%s", c.baseURL, params.Encode())

	var out klineResponse
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, fmt.Errorf("fetching klines for %s: %w", symbol, err)
	}
	if out.RetCode != 0 {
		return nil, fmt.Errorf("bybit error for %s: retCode=%d %s", symbol, out.RetCode, out.RetMsg)
	}

	rows := out.Result.List
	if len(rows) > 1 {
		if ts(rows[0]) > ts(rows[len(rows)-1]) {
			reverse(rows)
		}
		// Last row is the candle still in progress.
		rows = rows[:len(rows)-1]
	}

	c.logger.Debug().
		Str("symbol", symbol).
		Str("interval", interval).
		Int("candles", len(rows)).
		Msg("Fetched klines")
	return rows, nil
}

// ListSymbols returns all actively trading linear USDT perpetual symbols.
func (c *Client) ListSymbols(ctx context.Context) ([]string, error) {
	params := url.Values{}
	params.Set("category", c.category)

	endpoint := fmt.Sprintf("%s/v5/market/instruments-info?%s", c.baseURL, params.Encode())

	var out instrumentsResponse
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, fmt.Errorf("listing symbols: %w", err)
	}
	if out.RetCode != 0 {
		return nil, fmt.Errorf("bybit error listing symbols: retCode=%d %s", out.RetCode, out.RetMsg)
	}

	symbols := make([]string, 0, len(out.Result.List))
	for _, item := range out.Result.List {
		if item.Status != "Trading" {
			continue
		}
		if !strings.HasSuffix(item.Symbol, "USDT") ||
			strings.HasPrefix(item.Symbol, "USDT") ||
			strings.Contains(item.Symbol, "-") {
			continue
		}
		symbols = append(symbols, item.Symbol)
	}

	c.logger.Info().Int("count", len(symbols)).Msg("Loaded trading symbols")
	return symbols, nil
}

// getJSON performs a GET with retries and decodes the body into v. Retries
// cover transport errors and non-200 statuses with a short linear backoff.
func (c *Client) getJSON(ctx context.Context, endpoint string, v interface{}) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading response: %w", err)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
			continue
		}

		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
		return nil
	}
	return lastErr
}

func ts(row []string) int64 {
	if len(row) == 0 {
		return 0
	}
	n, _ := strconv.ParseInt(row[0], 10, 64)
	return n
}

func reverse(rows [][]string) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
