package sec

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL serves the submissions index
	DefaultBaseURL = "https://data.sec.gov"

	// DefaultFilesURL serves the ticker map and the filing archives
	DefaultFilesURL = "https://www.sec.gov"

	// DefaultTimeout is the default HTTP timeout
	DefaultTimeout = 30 * time.Second

	// maxDocumentBytes caps a single filing document download
	maxDocumentBytes = 20 << 20
)

// Client is an SEC EDGAR client. EDGAR rejects requests without a
// descriptive User-Agent and allows at most 10 requests per second.
type Client struct {
	baseURL    string
	filesURL   string
	userAgent  string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter

	mu      sync.Mutex
	tickers map[string]string // ticker -> zero-padded CIK
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithBaseURL sets the submissions base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithFilesURL sets the archives base URL
func WithFilesURL(filesURL string) ClientOption {
	return func(c *Client) {
		if filesURL != "" {
			c.filesURL = strings.TrimRight(filesURL, "/")
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

// NewClient creates a new EDGAR client
func NewClient(userAgent string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		filesURL:  DefaultFilesURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(8), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) fetch(ctx context.Context, reqURL string, limit int64) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Encoding", "identity")

	if c.logger != nil {
		c.logger.Debug().Str("url", reqURL).Msg("EDGAR request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   reqURL,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, result interface{}) error {
	body, err := c.fetch(ctx, reqURL, maxDocumentBytes)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// LookupCIK resolves a ticker to its zero-padded ten digit CIK. The
// company list is downloaded once per client; a failed download is
// retried on the next call.
func (c *Client) LookupCIK(ctx context.Context, ticker string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tickers == nil {
		var rows map[string]companyTicker
		if err := c.getJSON(ctx, c.filesURL+"/files/company_tickers.json", &rows); err != nil {
			return "", err
		}
		tickers := make(map[string]string, len(rows))
		for _, row := range rows {
			tickers[strings.ToUpper(row.Ticker)] = PadCIK(row.CIK)
		}
		c.tickers = tickers

		if c.logger != nil {
			c.logger.Debug().Int("companies", len(tickers)).Msg("EDGAR company list loaded")
		}
	}

	// EDGAR lists share classes with a dash (BRK-B)
	key := strings.ReplaceAll(strings.ToUpper(ticker), ".", "-")
	cik, ok := c.tickers[key]
	if !ok {
		return "", fmt.Errorf("%s: %w", ticker, ErrUnknownTicker)
	}
	return cik, nil
}

// GetSubmissions returns the submissions index for a CIK
func (c *Client) GetSubmissions(ctx context.Context, cik string) (*Submissions, error) {
	var result Submissions
	if err := c.getJSON(ctx, fmt.Sprintf("%s/submissions/CIK%s.json", c.baseURL, cik), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DocumentURL builds the archive URL of a filing's primary document
func (c *Client) DocumentURL(cik, accessionNumber, primaryDocument string) string {
	trimmed := strings.TrimLeft(cik, "0")
	return fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s",
		c.filesURL, trimmed, strings.ReplaceAll(accessionNumber, "-", ""), primaryDocument)
}

// GetDocument downloads a filing document
func (c *Client) GetDocument(ctx context.Context, documentURL string) ([]byte, error) {
	return c.fetch(ctx, documentURL, maxDocumentBytes)
}

// PadCIK renders a CIK as the ten digit form used by the submissions API
func PadCIK(cik int64) string {
	s := strconv.FormatInt(cik, 10)
	if len(s) >= 10 {
		return s
	}
	return strings.Repeat("0", 10-len(s)) + s
}
