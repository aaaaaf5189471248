package news

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/common"
	"github.com/ternarybob/tickerlens/internal/eodhd"
	"github.com/ternarybob/tickerlens/internal/gdelt"
	"github.com/ternarybob/tickerlens/internal/interfaces"
	"github.com/ternarybob/tickerlens/internal/models"
	"github.com/ternarybob/tickerlens/internal/services/cache"
	"github.com/ternarybob/tickerlens/internal/storage/memory"
)

var baseline = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

type fakeLLM struct {
	available bool
	replies   map[string]string // keyed by a phrase of the system prompt
	err       error
	calls     int
}

func (f *fakeLLM) Available(model string) bool { return f.available }

func (f *fakeLLM) Generate(ctx context.Context, req interfaces.LLMRequest) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	for phrase, reply := range f.replies {
		if strings.Contains(req.System, phrase) {
			return reply, nil
		}
	}
	return "", errors.New("unexpected prompt")
}

type fakeSearch struct {
	hits  []gdelt.Article
	err   error
	query string
}

func (f *fakeSearch) SearchArticles(ctx context.Context, query string, start, end time.Time, maxRecords int) ([]gdelt.Article, error) {
	f.query = query
	return f.hits, f.err
}

type fakeEarnings struct {
	entries []eodhd.EarningsHistoryEntry
}

func (f *fakeEarnings) GetEarningsHistory(ctx context.Context, symbol string) ([]eodhd.EarningsHistoryEntry, error) {
	return f.entries, nil
}

func newService(llm interfaces.LLMService, search ArticleSearcher, earnings EarningsAPI) *Service {
	logger := arbor.NewLogger()
	return NewService(Config{HelperModel: "gemini-2.5-flash"}, llm, search, earnings,
		cache.NewService(memory.NewCacheStorage(), logger), logger)
}

func testHits() []gdelt.Article {
	return []gdelt.Article{
		{URL: "https://www.reuters.com/a", Title: "Apple shares slip on iPhone demand", SeenDate: "20240104T133000Z", Domain: "reuters.com", Language: "English"},
		{URL: "https://blog.example.com/b", Title: "Apple earnings preview", SeenDate: "20240103T090000Z", Domain: "blog.example.com", Language: "English"},
		{URL: "https://blog.example.com/c", Title: "My favourite gadgets", SeenDate: "20240103T090000Z", Domain: "blog.example.com", Language: "English"},
		{URL: "https://www.lemonde.fr/d", Title: "Apple stock", SeenDate: "20240102T090000Z", Domain: "lemonde.fr", Language: "French"},
		{URL: "https://www.reuters.com/a", Title: "Apple shares slip on iPhone demand", SeenDate: "20240104T133000Z", Domain: "reuters.com", Language: "English"},
	}
}

func TestFilterArticles(t *testing.T) {
	out := filterArticles(testHits(), 0)
	require.Len(t, out, 2)
	assert.Equal(t, "reuters.com", out[0].Domain)
	assert.Equal(t, "Apple earnings preview", out[1].Title)
}

func TestBundle_DegradedWithoutLLM(t *testing.T) {
	filings := []models.Filing{{Form: "10-Q", FormLabel: "Quarterly report", FilingDate: "2023-12-20", ReportDate: "2023-09-30"}}
	svc := newService(nil, &fakeSearch{err: errors.New("timeout")}, nil)

	bundle := svc.Bundle(context.Background(), common.ParseTicker("AAPL"), baseline, filings)
	require.NotNil(t, bundle)

	assert.Equal(t, []string{"AAPL"}, bundle.Keywords)
	assert.Empty(t, bundle.Articles)
	assert.Equal(t, models.SentimentNeutral, bundle.Sentiment.Label)
	assert.ElementsMatch(t, []string{"keywords", "articles", "events"}, bundle.Degraded)

	require.NotNil(t, bundle.Events.Primary)
	assert.Equal(t, models.EventFiling, bundle.Events.Primary.Type)
	assert.True(t, bundle.Events.Degraded)
}

func TestBundle_SentimentFallbackWithArticles(t *testing.T) {
	svc := newService(&fakeLLM{available: false}, &fakeSearch{hits: testHits()}, nil)

	bundle := svc.Bundle(context.Background(), common.ParseTicker("AAPL"), baseline, nil)
	assert.Len(t, bundle.Articles, 2)
	assert.Equal(t, models.SentimentNeutral, bundle.Sentiment.Label)
	assert.Equal(t, neutralSummary, bundle.Sentiment.Summary)
	assert.Contains(t, bundle.Degraded, "sentiment")

	// First chronological event is the earnings preview on the 3rd
	require.NotNil(t, bundle.Events.Primary)
	assert.Equal(t, "2024-01-03", bundle.Events.Primary.Date)
	assert.Len(t, bundle.Events.Details, 1)
}

func TestBundle_WithLLM(t *testing.T) {
	llm := &fakeLLM{available: true, replies: map[string]string{
		"search keywords": "```json\n[\"AAPL\", \"Apple Inc\", \"iPhone\"]\n```",
		"sentiment":       `{"label":"negative","score":-0.4,"summary":"Demand worries."}`,
		"market-moving":   `{"primary": 3, "reason": "Earnings release"}`,
	}}
	earnings := &fakeEarnings{entries: []eodhd.EarningsHistoryEntry{
		{Date: "2023-12-31", ReportDate: "2024-02-01"},
		{Date: "2023-09-30", ReportDate: "2023-11-02"},
	}}
	search := &fakeSearch{hits: testHits()}
	svc := newService(llm, search, earnings)

	bundle := svc.Bundle(context.Background(), common.ParseTicker("AAPL"), baseline, nil)

	assert.Equal(t, []string{"AAPL", "Apple Inc", "iPhone"}, bundle.Keywords)
	assert.Contains(t, search.query, `"Apple Inc"`)
	assert.Equal(t, models.SentimentNegative, bundle.Sentiment.Label)
	assert.Empty(t, bundle.Degraded)

	// Events: 01-03 news, 01-04 news, 02-01 earnings
	require.NotNil(t, bundle.Events.Primary)
	assert.Equal(t, models.EventEarnings, bundle.Events.Primary.Type)
	assert.Len(t, bundle.Events.Details, 2)
	assert.False(t, bundle.Events.Degraded)
}

func TestKeyEvents_OutOfRangeChoiceFallsBack(t *testing.T) {
	llm := &fakeLLM{available: true, replies: map[string]string{"market-moving": `{"primary": 9}`}}
	svc := newService(llm, nil, nil)
	articles := filterArticles(testHits(), 0)

	bundle := svc.KeyEvents(context.Background(), common.ParseTicker("AAPL"), baseline, articles, nil)
	require.NotNil(t, bundle.Primary)
	assert.Equal(t, "2024-01-03", bundle.Primary.Date)
	assert.True(t, bundle.Degraded)
}

func TestKeywords_LLMErrorFallsBack(t *testing.T) {
	svc := newService(&fakeLLM{available: true, err: errors.New("quota")}, nil, nil)

	keywords, ok := svc.Keywords(context.Background(), common.ParseTicker("NVDA"))
	assert.False(t, ok)
	assert.Equal(t, []string{"NVDA"}, keywords)
}
