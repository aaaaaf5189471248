package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL for the Finnhub API.
	DefaultBaseURL = "https://finnhub.io/api/v1"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 15 * time.Second
)

// Client is a Finnhub API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit. Zero disables limiting.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 5)
	}
}

// NewClient creates a new Finnhub API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(1), 5),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Configured reports whether an API key is present
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return &RateLimitError{RetryAfter: time.Second}
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+path).
			Str("symbol", params.Get("symbol")).
			Msg("Finnhub API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: time.Minute}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func symbolParams(symbol string) url.Values {
	params := url.Values{}
	params.Set("symbol", symbol)
	return params
}

// GetRecommendations returns monthly recommendation trends, newest first.
func (c *Client) GetRecommendations(ctx context.Context, symbol string) ([]Recommendation, error) {
	var result []Recommendation
	if err := c.get(ctx, "/stock/recommendation", symbolParams(symbol), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetEarnings returns reported quarterly earnings surprises, newest first.
func (c *Client) GetEarnings(ctx context.Context, symbol string) ([]Earnings, error) {
	var result []Earnings
	if err := c.get(ctx, "/stock/earnings", symbolParams(symbol), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetQuote returns the live quote. Finnhub answers unknown symbols with
// an all-zero quote, which is reported as an error.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	var result Quote
	if err := c.get(ctx, "/quote", symbolParams(symbol), &result); err != nil {
		return nil, err
	}
	if result.Current == 0 && result.PreviousClose == 0 {
		return nil, &APIError{StatusCode: http.StatusNotFound, Message: "empty quote for " + symbol, Endpoint: "/quote"}
	}
	return &result, nil
}

// GetPriceTarget returns the latest analyst price target consensus.
func (c *Client) GetPriceTarget(ctx context.Context, symbol string) (*PriceTarget, error) {
	var result PriceTarget
	if err := c.get(ctx, "/stock/price-target", symbolParams(symbol), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
