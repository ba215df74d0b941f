// Package futgg consulta cotações num site de price-check. É a única fonte
// externa de preços; o core só recebe o inteiro já validado.
package futgg

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/bmartins/futledger/internal/domain"
)

const (
	defaultBaseURL = "https://api.fut.gg"

	// Sem rate limit documentado; 2 req/s é mais que suficiente para um
	// bot de uso pessoal e não incomoda ninguém.
	requestsPerSec = 2

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client implementa ports.PriceSource por HTTP, com rate limiting e retries.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
}

// NewClient cria um Client. baseURL vazio usa o endpoint de produção; apiKey
// vazio manda a requisição sem autenticação.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
		limiter: rate.NewLimiter(requestsPerSec, 2),
	}
}

type priceResponse struct {
	Player   string `json:"player"`
	Platform string `json:"platform"`
	Price    int64  `json:"price"`
}

// Lookup busca o preço atual do jogador na plataforma dada.
func (c *Client) Lookup(ctx context.Context, subject string, platform domain.Platform) (int64, error) {
	q := url.Values{}
	q.Set("player", subject)
	q.Set("platform", string(platform))
	endpoint := fmt.Sprintf("%s/api/price?%s", c.baseURL, q.Encode())

	var out priceResponse
	if err := c.get(ctx, endpoint, &out); err != nil {
		return 0, fmt.Errorf("futgg.Lookup %q: %w", subject, err)
	}
	if out.Price < 0 {
		return 0, fmt.Errorf("futgg.Lookup %q: negative price %d in response", subject, out.Price)
	}
	return out.Price, nil
}

// get faz um GET com rate limiting e backoff exponencial.
func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("status %d after %d retries", resp.StatusCode, maxRetries)
			}
			slog.Warn("price site is struggling, retrying", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue

		case resp.StatusCode != http.StatusOK:
			resp.Body.Close()
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unreachable")
}

// sleep espera o backoff do attempt dado, respeitando o contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := baseRetryWait * time.Duration(1<<attempt)
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}
