package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/polycopy/internal/backoff"
)

const (
	defaultDataBase  = "https://data-api.polymarket.com"
	defaultGammaBase = "https://gamma-api.polymarket.com"
	defaultCLOBBase  = "https://clob.polymarket.com"

	// Rate limits conservadores (~60% de los límites documentados).
	// Data API /positions: se consulta una vez por wallet por tick.
	dataRatePerSec = 10
	// Gamma /markets: 300/10s → 18/s al 60%.
	gammaRatePerSec = 18
	// CLOB /order y misc.
	clobRatePerSec = 30
)

// Client es el HTTP client compartido de las APIs de Polymarket, con rate
// limiting por API y retries con backoff exponencial.
type Client struct {
	http         *http.Client
	dataBase     string
	gammaBase    string
	clobBase     string
	dataLimiter  *rate.Limiter
	gammaLimiter *rate.Limiter
	clobLimiter  *rate.Limiter
	retry        backoff.Policy

	maxTraders     int
	leaderboardURL string
	apiKey         string

	marketCache *marketCache
}

// Option configura el Client.
type Option func(*Client)

// WithLeaderboard configura el endpoint de discovery de traders.
func WithLeaderboard(url, apiKey string, maxTraders int) Option {
	return func(c *Client) {
		c.leaderboardURL = url
		c.apiKey = apiKey
		c.maxTraders = maxTraders
	}
}

// NewClient crea un Client con los base URLs dados.
// Los strings vacíos usan los URLs de producción.
func NewClient(dataBase, gammaBase, clobBase string, opts ...Option) *Client {
	if dataBase == "" {
		dataBase = defaultDataBase
	}
	if gammaBase == "" {
		gammaBase = defaultGammaBase
	}
	if clobBase == "" {
		clobBase = defaultCLOBBase
	}
	c := &Client{
		http:         &http.Client{Timeout: 15 * time.Second},
		dataBase:     dataBase,
		gammaBase:    gammaBase,
		clobBase:     clobBase,
		dataLimiter:  rate.NewLimiter(dataRatePerSec, 5),
		gammaLimiter: rate.NewLimiter(gammaRatePerSec, 10),
		clobLimiter:  rate.NewLimiter(clobRatePerSec, 5),
		retry:        backoff.Default(),
		maxTraders:   5,
		marketCache:  newMarketCache(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, url string, headers map[string]string, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return c.http.Do(req)
	}, out)
}

// post hace un POST JSON con rate limiting y retries.
func (c *Client) post(ctx context.Context, limiter *rate.Limiter, url string, headers map[string]string, body, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con la política de backoff compartida.
// 429 y 5xx se reintentan; 4xx restantes son errores del caller.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, fn func() (*http.Response, error), out any) error {
	for attempt := 0; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if c.retry.Exhausted(attempt) {
				return fmt.Errorf("request failed after %d retries: %w", attempt, err)
			}
			if err := c.retry.Sleep(ctx, attempt); err != nil {
				return err
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if c.retry.Exhausted(attempt) {
				return fmt.Errorf("status %d after %d retries", resp.StatusCode, attempt)
			}
			slog.Warn("polymarket API retry", "status", resp.StatusCode, "attempt", attempt+1)
			if err := c.retry.Sleep(ctx, attempt); err != nil {
				return err
			}
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if out == nil {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
}
