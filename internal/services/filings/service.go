// Package filings resolves a ticker's recent regulatory filings and their
// narrative excerpts.
package filings

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/common"
	"github.com/ternarybob/tickerlens/internal/interfaces"
	"github.com/ternarybob/tickerlens/internal/limiter"
	"github.com/ternarybob/tickerlens/internal/models"
	"github.com/ternarybob/tickerlens/internal/sec"
	"github.com/ternarybob/tickerlens/internal/services/cache"
)

const (
	// IndexTTL applies to the filing index of a current baseline date
	IndexTTL = 6 * time.Hour

	// ExcerptTTL applies to excerpts and historical indexes, which do not change
	ExcerptTTL = 30 * 24 * time.Hour

	// CIKTTL is how long a ticker to CIK mapping is reused
	CIKTTL = 7 * 24 * time.Hour
)

// EDGAR is the filing index and document provider
type EDGAR interface {
	LookupCIK(ctx context.Context, ticker string) (string, error)
	GetSubmissions(ctx context.Context, cik string) (*sec.Submissions, error)
	DocumentURL(cik, accessionNumber, primaryDocument string) string
	GetDocument(ctx context.Context, documentURL string) ([]byte, error)
}

// Config holds filing service settings
type Config struct {
	MaxFilings   int
	Workers      int
	ExcerptChars int
}

// Service fetches filings
type Service struct {
	config Config
	edgar  EDGAR
	cache  interfaces.CacheService
	logger arbor.ILogger
	now    func() time.Time
}

// NewService creates a filing service
func NewService(config Config, edgar EDGAR, cacheService interfaces.CacheService, logger arbor.ILogger) *Service {
	if config.MaxFilings <= 0 {
		config.MaxFilings = 4
	}
	if config.Workers <= 0 {
		config.Workers = limiter.DefaultSize
	}
	if config.ExcerptChars <= 0 {
		config.ExcerptChars = 4000
	}
	return &Service{config: config, edgar: edgar, cache: cacheService, logger: logger, now: time.Now}
}

// Fetch returns the most recent recognized filings on or before date, each
// carrying its narrative excerpt. Excerpts are fetched concurrently and
// kept in index order; an excerpt failure is recorded on its filing.
// Index failures are returned.
func (s *Service) Fetch(ctx context.Context, ticker common.Ticker, date time.Time) ([]models.Filing, error) {
	index, err := s.Index(ctx, ticker, date)
	if err != nil {
		return nil, err
	}

	outcomes := limiter.Map(ctx, index, s.config.Workers, func(ctx context.Context, i int, f models.Filing) (string, error) {
		return s.Excerpt(ctx, f)
	})

	filings := make([]models.Filing, len(index))
	for i, f := range index {
		if outcomes[i].Err != nil {
			s.logger.Warn().
				Str("ticker", ticker.Code).
				Str("accession", f.AccessionID).
				Err(outcomes[i].Err).
				Msg("Filing excerpt unavailable")
			f.ExcerptErr = outcomes[i].Err.Error()
		} else {
			f.Excerpt = outcomes[i].Value
		}
		filings[i] = f
	}
	return filings, nil
}

// Index resolves the ticker's CIK and filters its submissions to
// recognized forms filed on or before date, most recent first
func (s *Service) Index(ctx context.Context, ticker common.Ticker, date time.Time) ([]models.Filing, error) {
	ttl := ExcerptTTL
	if !common.IsHistorical(date, s.now()) {
		ttl = IndexTTL
	}

	key := models.NewFetchKey(models.KindFilingIndex, ticker.Code, date, "").String()
	return cache.Fetch(ctx, s.cache, key, ttl, func(ctx context.Context) ([]models.Filing, error) {
		cik, err := s.lookupCIK(ctx, ticker)
		if err != nil {
			return nil, err
		}

		subs, err := s.edgar.GetSubmissions(ctx, cik)
		if err != nil {
			return nil, fmt.Errorf("sec submissions: %w", err)
		}

		filings := selectFilings(subs.Filings.Recent, common.FormatDate(date), s.config.MaxFilings, func(e sec.Entry) string {
			return s.edgar.DocumentURL(cik, e.AccessionNumber, e.PrimaryDocument)
		})

		s.logger.Debug().
			Str("ticker", ticker.Code).
			Str("cik", cik).
			Int("filings", len(filings)).
			Msg("Filing index resolved")
		return filings, nil
	})
}

func (s *Service) lookupCIK(ctx context.Context, ticker common.Ticker) (string, error) {
	key := models.NewFetchKey(models.KindCIK, ticker.Code, time.Time{}, "").String()
	return cache.Fetch(ctx, s.cache, key, CIKTTL, func(ctx context.Context) (string, error) {
		cik, err := s.edgar.LookupCIK(ctx, ticker.Code)
		if err != nil {
			return "", fmt.Errorf("sec ticker lookup: %w", err)
		}
		return cik, nil
	})
}

// Excerpt returns the narrative excerpt of one filing
func (s *Service) Excerpt(ctx context.Context, f models.Filing) (string, error) {
	key := models.NewFetchKey(models.KindFilingExcerpt, f.AccessionID, time.Time{}, fmt.Sprint(s.config.ExcerptChars)).String()
	return cache.Fetch(ctx, s.cache, key, ExcerptTTL, func(ctx context.Context) (string, error) {
		doc, err := s.edgar.GetDocument(ctx, f.DocumentURL)
		if err != nil {
			return "", fmt.Errorf("sec document: %w", err)
		}
		return ExtractNarrative(doc, s.config.ExcerptChars)
	})
}

// selectFilings keeps recognized forms filed on or before day, newest
// first, at most limit
func selectFilings(recent sec.RecentFilings, day string, limit int, documentURL func(sec.Entry) string) []models.Filing {
	var out []models.Filing
	for i := 0; i < recent.Len(); i++ {
		e := recent.At(i)
		label, ok := models.FormLabels[e.Form]
		if !ok || e.FilingDate > day {
			continue
		}
		out = append(out, models.Filing{
			Form:        e.Form,
			FormLabel:   label,
			FilingDate:  e.FilingDate,
			ReportDate:  e.ReportDate,
			AccessionID: e.AccessionNumber,
			DocumentURL: documentURL(e),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].FilingDate > out[j].FilingDate })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
