package finnhub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, routes map[string]string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.URL.Query().Get("token"))
		body, ok := routes[r.URL.Path]
		if !ok {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient("key", WithBaseURL(srv.URL), WithRateLimit(0))
}

func TestClient_Endpoints(t *testing.T) {
	client := newTestClient(t, map[string]string{
		"/stock/recommendation": `[{"period":"2024-01-01","strongBuy":12,"buy":24,"hold":7,"sell":1,"strongSell":0,"symbol":"AAPL"}]`,
		"/stock/earnings":       `[{"actual":2.18,"estimate":2.1,"period":"2023-12-31","quarter":1,"year":2024,"surprise":0.08,"surprisePercent":3.8,"symbol":"AAPL"}]`,
		"/quote":                `{"c":185.64,"d":-2.1,"dp":-1.12,"h":188.44,"l":183.89,"o":187.15,"pc":187.74,"t":1704229200}`,
		"/stock/price-target":   `{"symbol":"AAPL","targetHigh":250,"targetLow":158,"targetMean":199.5,"targetMedian":200}`,
	})
	ctx := context.Background()

	recs, err := client.GetRecommendations(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 24, recs[0].Buy)

	earnings, err := client.GetEarnings(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, earnings[0].Actual)
	assert.Equal(t, 2.18, *earnings[0].Actual)

	quote, err := client.GetQuote(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 185.64, quote.Current)

	target, err := client.GetPriceTarget(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 199.5, target.TargetMean)
}

func TestGetQuote_EmptyQuoteIsError(t *testing.T) {
	client := newTestClient(t, map[string]string{
		"/quote": `{"c":0,"d":null,"dp":null,"h":0,"l":0,"o":0,"pc":0,"t":0}`,
	})

	_, err := client.GetQuote(context.Background(), "ZZZZ")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
