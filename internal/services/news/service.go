// Package news builds the news bundle for a ticker and baseline date:
// search keywords, filtered articles, sentiment and key events. Every
// part has a fallback so a bundle is always returned.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/common"
	"github.com/ternarybob/tickerlens/internal/eodhd"
	"github.com/ternarybob/tickerlens/internal/gdelt"
	"github.com/ternarybob/tickerlens/internal/interfaces"
	"github.com/ternarybob/tickerlens/internal/models"
	"github.com/ternarybob/tickerlens/internal/services/cache"
	"github.com/ternarybob/tickerlens/internal/services/llm"
)

const (
	KeywordsTTL  = 7 * 24 * time.Hour
	ArticlesTTL  = 6 * time.Hour
	SentimentTTL = 6 * time.Hour
	EventsTTL    = 6 * time.Hour

	maxArticles = 25

	neutralSummary = "Sentiment analysis unavailable; defaulting to neutral."
)

// ArticleSearcher is the news search provider
type ArticleSearcher interface {
	SearchArticles(ctx context.Context, query string, start, end time.Time, maxRecords int) ([]gdelt.Article, error)
}

// EarningsAPI supplies reported earnings dates
type EarningsAPI interface {
	GetEarningsHistory(ctx context.Context, symbol string) ([]eodhd.EarningsHistoryEntry, error)
}

// Config holds the news aggregator settings
type Config struct {
	HelperModel  string
	MaxTokens    int
	LookbackDays int
}

// Service builds news bundles
type Service struct {
	config   Config
	llm      interfaces.LLMService
	search   ArticleSearcher
	earnings EarningsAPI
	cache    interfaces.CacheService
	logger   arbor.ILogger
}

// NewService creates a news aggregator. llmService, search and earnings
// may be nil; the matching parts then degrade.
func NewService(config Config, llmService interfaces.LLMService, search ArticleSearcher, earnings EarningsAPI,
	cacheService interfaces.CacheService, logger arbor.ILogger) *Service {

	if config.LookbackDays <= 0 {
		config.LookbackDays = 7
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 1024
	}
	return &Service{
		config:   config,
		llm:      llmService,
		search:   search,
		earnings: earnings,
		cache:    cacheService,
		logger:   logger,
	}
}

// Bundle assembles keywords, articles, sentiment and key events. Parts
// served from fallbacks are listed in Degraded.
func (s *Service) Bundle(ctx context.Context, ticker common.Ticker, date time.Time, filings []models.Filing) *models.NewsBundle {
	bundle := &models.NewsBundle{
		Ticker: ticker.Code,
		Date:   common.FormatDate(date),
	}

	keywords, ok := s.Keywords(ctx, ticker)
	if !ok {
		bundle.Degraded = append(bundle.Degraded, "keywords")
	}
	bundle.Keywords = keywords

	articles, err := s.Articles(ctx, ticker, date, keywords)
	if err != nil {
		s.logger.Warn().Str("ticker", ticker.Code).Err(err).Msg("News search failed, continuing without articles")
		bundle.Degraded = append(bundle.Degraded, "articles")
		articles = []models.Article{}
	}
	bundle.Articles = articles

	sentiment, ok := s.Sentiment(ctx, ticker, date, articles)
	if !ok {
		bundle.Degraded = append(bundle.Degraded, "sentiment")
	}
	bundle.Sentiment = sentiment

	bundle.Events = s.KeyEvents(ctx, ticker, date, articles, filings)
	if bundle.Events.Degraded {
		bundle.Degraded = append(bundle.Degraded, "events")
	}

	return bundle
}

// Keywords returns LLM-suggested search terms, or [ticker] when the
// helper model is unavailable or fails
func (s *Service) Keywords(ctx context.Context, ticker common.Ticker) ([]string, bool) {
	fallbackKeywords := []string{ticker.Code}
	if !s.llmAvailable() {
		return fallbackKeywords, false
	}

	key := models.NewFetchKey(models.KindKeywords, ticker.Code, time.Time{}, s.config.HelperModel).String()
	keywords, err := cache.Fetch(ctx, s.cache, key, KeywordsTTL, func(ctx context.Context) ([]string, error) {
		var out []string
		if err := s.ask(ctx, keywordsSystem, fmt.Sprintf("Ticker: %s", ticker.Code), &out); err != nil {
			return nil, err
		}
		return normalizeKeywords(ticker.Code, out), nil
	})
	if err != nil {
		s.logger.Warn().Str("ticker", ticker.Code).Err(err).Msg("Keyword generation failed, using ticker")
		return fallbackKeywords, false
	}
	return keywords, true
}

// Articles searches the window [date-lookback, date] and filters the hits
func (s *Service) Articles(ctx context.Context, ticker common.Ticker, date time.Time, keywords []string) ([]models.Article, error) {
	if s.search == nil {
		return nil, fmt.Errorf("news search not configured")
	}

	key := models.NewFetchKey(models.KindArticles, ticker.Code, date, "").String()
	return cache.Fetch(ctx, s.cache, key, ArticlesTTL, func(ctx context.Context) ([]models.Article, error) {
		end := common.Today(date).Add(24*time.Hour - time.Second)
		start := common.Today(date).AddDate(0, 0, -s.config.LookbackDays)

		hits, err := s.search.SearchArticles(ctx, gdelt.Query(keywords), start, end, 0)
		if err != nil {
			return nil, fmt.Errorf("gdelt: %w", err)
		}
		return filterArticles(hits, maxArticles), nil
	})
}

// Sentiment classifies the articles, or returns neutral with a placeholder
func (s *Service) Sentiment(ctx context.Context, ticker common.Ticker, date time.Time, articles []models.Article) (models.Sentiment, bool) {
	neutral := models.Sentiment{Label: models.SentimentNeutral, Summary: neutralSummary}
	if len(articles) == 0 {
		return models.Sentiment{Label: models.SentimentNeutral, Summary: "No relevant articles in the search window."}, true
	}
	if !s.llmAvailable() {
		return neutral, false
	}

	key := models.NewFetchKey(models.KindSentiment, ticker.Code, date, s.config.HelperModel).String()
	sentiment, err := cache.Fetch(ctx, s.cache, key, SentimentTTL, func(ctx context.Context) (models.Sentiment, error) {
		var lines strings.Builder
		for _, a := range articles {
			fmt.Fprintf(&lines, "- [%s] %s (%s)\n", a.Published.Format("2006-01-02"), a.Title, a.Domain)
		}

		var out models.Sentiment
		if err := s.ask(ctx, sentimentSystem, fmt.Sprintf("Ticker: %s\nHeadlines:\n%s", ticker.Code, lines.String()), &out); err != nil {
			return out, err
		}
		switch out.Label {
		case models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral, models.SentimentMixed:
		default:
			return out, fmt.Errorf("unexpected sentiment label %q", out.Label)
		}
		return out, nil
	})
	if err != nil {
		s.logger.Warn().Str("ticker", ticker.Code).Err(err).Msg("Sentiment classification failed, using neutral")
		return neutral, false
	}
	return sentiment, true
}

// KeyEvents merges articles, filings and earnings releases within one
// month either side of date and picks the primary event
func (s *Service) KeyEvents(ctx context.Context, ticker common.Ticker, date time.Time, articles []models.Article, filings []models.Filing) models.KeyEventBundle {
	key := models.NewFetchKey(models.KindEvents, ticker.Code, date, "").String()
	if cached, ok := cache.GetJSON[models.KeyEventBundle](ctx, s.cache, key, EventsTTL); ok {
		return cached
	}

	events := s.collectEvents(ctx, ticker, date, articles, filings)
	bundle := s.classify(ctx, ticker, events)
	if !bundle.Degraded {
		cache.SetJSON(ctx, s.cache, key, bundle)
	}
	return bundle
}

func (s *Service) collectEvents(ctx context.Context, ticker common.Ticker, date time.Time, articles []models.Article, filings []models.Filing) []models.Event {
	from := common.FormatDate(date.AddDate(0, -1, 0))
	to := common.FormatDate(date.AddDate(0, 1, 0))
	inWindow := func(d string) bool { return d >= from && d <= to }

	var events []models.Event

	for _, a := range articles {
		d := common.FormatDate(a.Published)
		if !inWindow(d) {
			continue
		}
		eventType := models.EventNews
		if hasTag(a.Title, regulatoryTags) {
			eventType = models.EventRegulatory
		}
		events = append(events, models.Event{Type: eventType, Date: d, Title: a.Title, Summary: a.Excerpt, Source: a.Domain})
	}

	for _, f := range filings {
		if !inWindow(f.FilingDate) {
			continue
		}
		events = append(events, models.Event{
			Type:    models.EventFiling,
			Date:    f.FilingDate,
			Title:   fmt.Sprintf("%s filed (%s)", f.Form, f.FormLabel),
			Summary: fmt.Sprintf("Period ending %s", f.ReportDate),
			Source:  "sec",
		})
	}

	if s.earnings != nil {
		entries, err := s.earnings.GetEarningsHistory(ctx, ticker.EODHDSymbol())
		if err != nil {
			s.logger.Debug().Str("ticker", ticker.Code).Err(err).Msg("Earnings history unavailable for key events")
		}
		for _, e := range entries {
			d := e.ReportDate
			if d == "" {
				d = e.Date
			}
			if !inWindow(d) {
				continue
			}
			events = append(events, models.Event{
				Type:    models.EventEarnings,
				Date:    d,
				Title:   fmt.Sprintf("Earnings for quarter ending %s", e.Date),
				Summary: earningsSummary(e),
				Source:  "eodhd",
			})
		}
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Date < events[j].Date })
	return events
}

func (s *Service) classify(ctx context.Context, ticker common.Ticker, events []models.Event) models.KeyEventBundle {
	if len(events) == 0 {
		return models.KeyEventBundle{Details: []models.Event{}, Reason: "no events in window"}
	}

	firstAsPrimary := func(reason string) models.KeyEventBundle {
		primary := events[0]
		return models.KeyEventBundle{Primary: &primary, Details: append([]models.Event{}, events[1:]...), Degraded: true, Reason: reason}
	}

	if !s.llmAvailable() {
		return firstAsPrimary("classifier unavailable; first chronological event used")
	}

	var lines strings.Builder
	for i, e := range events {
		fmt.Fprintf(&lines, "%d. [%s] %s: %s\n", i+1, e.Date, e.Type, e.Title)
	}

	var out struct {
		Primary int    `json:"primary"`
		Reason  string `json:"reason"`
	}
	if err := s.ask(ctx, eventsSystem, fmt.Sprintf("Ticker: %s\nEvents:\n%s", ticker.Code, lines.String()), &out); err != nil {
		s.logger.Warn().Str("ticker", ticker.Code).Err(err).Msg("Event classification failed, using first event")
		return firstAsPrimary("classification failed; first chronological event used")
	}
	if out.Primary < 1 || out.Primary > len(events) {
		return firstAsPrimary(fmt.Sprintf("classifier returned event %d of %d; first chronological event used", out.Primary, len(events)))
	}

	idx := out.Primary - 1
	primary := events[idx]
	details := make([]models.Event, 0, len(events)-1)
	details = append(details, events[:idx]...)
	details = append(details, events[idx+1:]...)
	return models.KeyEventBundle{Primary: &primary, Details: details, Reason: out.Reason}
}

func (s *Service) llmAvailable() bool {
	return s.llm != nil && s.llm.Available(s.config.HelperModel)
}

// ask runs a helper completion and decodes its JSON answer into out
func (s *Service) ask(ctx context.Context, system, prompt string, out any) error {
	text, err := s.llm.Generate(ctx, interfaces.LLMRequest{
		Model:      s.config.HelperModel,
		System:     system,
		Messages:   []interfaces.Message{{Role: "user", Content: prompt}},
		MaxTokens:  s.config.MaxTokens,
		JSONOutput: true,
	})
	if err != nil {
		return err
	}

	raw, err := llm.ExtractJSON(text)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func normalizeKeywords(ticker string, in []string) []string {
	out := []string{ticker}
	seen := map[string]bool{strings.ToLower(ticker): true}
	for _, kw := range in {
		kw = strings.TrimSpace(kw)
		if kw == "" || seen[strings.ToLower(kw)] {
			continue
		}
		seen[strings.ToLower(kw)] = true
		out = append(out, kw)
	}
	return out
}

func earningsSummary(e eodhd.EarningsHistoryEntry) string {
	if e.EPSActual == nil {
		return "EPS not yet reported"
	}
	if e.EPSEstimate == nil {
		return fmt.Sprintf("EPS %.2f", *e.EPSActual)
	}
	return fmt.Sprintf("EPS %.2f vs estimate %.2f", *e.EPSActual, *e.EPSEstimate)
}
