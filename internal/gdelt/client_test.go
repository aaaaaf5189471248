package gdelt

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SearchArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "ArtList", q.Get("mode"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "20231229000000", q.Get("startdatetime"))
		assert.Equal(t, "20240105000000", q.Get("enddatetime"))
		_, _ = w.Write([]byte(`{"articles":[{"url":"https://www.reuters.com/a","title":"Apple earnings beat","seendate":"20240104T133000Z","domain":"reuters.com","language":"English","sourcecountry":"United States"}]}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRateLimit(0))
	end := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	articles, err := client.SearchArticles(context.Background(), Query([]string{"AAPL"}), end.AddDate(0, 0, -7), end, 10)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "reuters.com", articles[0].Domain)
	assert.Equal(t, time.Date(2024, 1, 4, 13, 30, 0, 0, time.UTC), articles[0].Published())
}

func TestClient_PlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Your search contained a keyword that was too short."))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRateLimit(0))
	_, err := client.SearchArticles(context.Background(), "a", time.Now().AddDate(0, 0, -7), time.Now(), 0)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Message, "too short")
}

func TestClient_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRateLimit(0))
	articles, err := client.SearchArticles(context.Background(), "AAPL", time.Now().AddDate(0, 0, -7), time.Now(), 0)
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestQuery(t *testing.T) {
	assert.Equal(t, "", Query(nil))
	assert.Equal(t, "AAPL sourcelang:english", Query([]string{"AAPL"}))
	assert.Equal(t, `(AAPL OR "Apple Inc" OR iPhone) sourcelang:english`, Query([]string{"AAPL", "Apple Inc", " iPhone "}))
}
