// Package gdelt queries the GDELT DOC 2.0 full-text news search API
package gdelt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the DOC 2.0 endpoint
	DefaultBaseURL = "https://api.gdeltproject.org/api/v2/doc/doc"

	// DefaultTimeout is the default HTTP timeout
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRecords is the page size requested from artlist
	DefaultMaxRecords = 75

	seenDateLayout = "20060102T150405Z"
	queryLayout    = "20060102150405"
)

// APIError represents a failed GDELT request. GDELT reports query
// problems as plain text with status 200, which is surfaced here too.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GDELT error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Article is one artlist hit
type Article struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	SeenDate      string `json:"seendate"`
	Domain        string `json:"domain"`
	Language      string `json:"language"`
	SourceCountry string `json:"sourcecountry"`
}

// Published parses SeenDate, returning the zero time when malformed
func (a Article) Published() time.Time {
	t, err := time.Parse(seenDateLayout, a.SeenDate)
	if err != nil {
		return time.Time{}
	}
	return t
}

type artlistResponse struct {
	Articles []Article `json:"articles"`
}

// Client is a GDELT DOC API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets a logger
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets requests per second. Zero disables limiting.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
}

// NewClient creates a new GDELT client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(0.2), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SearchArticles runs a boolean full-text query over [start, end]
func (c *Client) SearchArticles(ctx context.Context, query string, start, end time.Time, maxRecords int) ([]Article, error) {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("mode", "ArtList")
	params.Set("format", "json")
	params.Set("sort", "DateDesc")
	params.Set("maxrecords", strconv.Itoa(maxRecords))
	params.Set("startdatetime", start.UTC().Format(queryLayout))
	params.Set("enddatetime", end.UTC().Format(queryLayout))

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("query", query).
			Str("start", start.Format("2006-01-02")).
			Str("end", end.Format("2006-01-02")).
			Msg("GDELT artlist request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: truncate(string(body), 256), Endpoint: "artlist"}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] != '{' {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: truncate(string(trimmed), 256), Endpoint: "artlist"}
	}

	var result artlistResponse
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Articles, nil
}

// Query builds an OR query over keywords, quoting multi-word phrases
func Query(keywords []string) string {
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if strings.ContainsAny(kw, " -") {
			kw = `"` + strings.ReplaceAll(kw, `"`, "") + `"`
		}
		terms = append(terms, kw)
	}
	switch len(terms) {
	case 0:
		return ""
	case 1:
		return terms[0] + " sourcelang:english"
	default:
		return "(" + strings.Join(terms, " OR ") + ") sourcelang:english"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
