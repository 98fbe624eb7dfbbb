package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/allergenai/backend/internal/domain"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// requestedFields limits the product payload to what the resolver reads
const requestedFields = "ingredients_text,additives_tags,product_name"

// Config holds the Open Food Facts client settings
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	MaxRetries    int
	RatePerMinute int
	UserAgent     string
}

// Client fetches product facts from the Open Food Facts v2 API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	maxRetries  int
	rateLimiter *rate.Limiter
	backoff     func(attempt int) time.Duration
}

// NewClient creates a new Open Food Facts API client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://world.openfoodfacts.org"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 100
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "AllergenAI/1.0"
	}

	// OFF asks for at most 100 product reads per minute per client
	limiter := rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), 10)

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:   cfg.UserAgent,
		maxRetries:  cfg.MaxRetries,
		rateLimiter: limiter,
		backoff:     exponentialBackoff,
	}
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return 500 * time.Millisecond << (attempt - 1)
}

// doRequest executes an HTTP GET request with proper headers
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}

	return resp, nil
}

func (c *Client) productURL(code string) string {
	params := url.Values{}
	params.Set("fields", requestedFields)
	return fmt.Sprintf("%s/api/v2/product/%s?%s", c.baseURL, url.PathEscape(code), params.Encode())
}

// wait sleeps for the backoff of the given attempt unless ctx ends first
func (c *Client) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(c.backoff(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Fetch retrieves the facts of one product by barcode.
// Returns domain.ErrProductNotFound when OFF does not know the code and
// domain.ErrUpstreamFailure when the API cannot be reached or answers badly.
func (c *Client) Fetch(ctx context.Context, code string) (*domain.RawProductFacts, error) {
	reqURL := c.productURL(code)
	logger := zap.L().With(zap.String("product_code", code))

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			if err := c.wait(ctx, attempt-1); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			logger.Warn("off rate limiter error", zap.Error(err))
			return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrUpstreamFailure, err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			logger.Warn("off request error", zap.Int("attempt", attempt), zap.Error(err))
			lastErr = err
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("%w: read body: %v", domain.ErrUpstreamFailure, readErr)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			logger.Debug("off product not found")
			return nil, domain.ErrProductNotFound
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			logger.Warn("off api error",
				zap.Int("attempt", attempt),
				zap.Int("status", resp.StatusCode))
			lastErr = fmt.Errorf("%w: status %d", domain.ErrUpstreamFailure, resp.StatusCode)
			continue
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrUpstreamFailure, resp.StatusCode, string(body))
		}

		var envelope ProductResponse
		if err := json.Unmarshal(body, &envelope); err != nil {
			logger.Warn("off json decode error", zap.Error(err))
			return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrUpstreamFailure, err)
		}

		facts, err := MapToRawFacts(code, &envelope)
		if err != nil {
			return nil, err
		}

		logger.Debug("off product fetched", zap.Int("additives", len(facts.AdditiveTags)))
		return facts, nil
	}

	logger.Error("off retries exhausted", zap.Error(lastErr))
	return nil, lastErr
}
