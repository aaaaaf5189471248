// Package analysis orchestrates one analysis request: filings, market data
// and news are gathered, transformed by an LLM and persisted.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/common"
	"github.com/ternarybob/tickerlens/internal/interfaces"
	"github.com/ternarybob/tickerlens/internal/models"
	"golang.org/x/sync/singleflight"
)

// State is a step of the analysis state machine
type State string

const (
	StateCacheCheck      State = "CACHE_CHECK"
	StateFetchFilings    State = "FETCH_FILINGS"
	StateFetchMarketData State = "FETCH_MARKET_DATA"
	StateFetchNews       State = "FETCH_NEWS"
	StateInvokeTransform State = "INVOKE_TRANSFORM"
	StatePersist         State = "PERSIST"
	StateDone            State = "DONE"
	StateError           State = "ERROR"
)

// SchemaVersion identifies the stored result layout
const SchemaVersion = "2"

// Default result TTLs
const (
	DefaultHistoricalTTL = 30 * 24 * time.Hour
	DefaultCurrentTTL    = 6 * time.Hour
)

// ValidationError rejects a request before any fetch work
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Message
}

// FilingFetcher returns filings with excerpts; its error aborts the analysis
type FilingFetcher interface {
	Fetch(ctx context.Context, ticker common.Ticker, date time.Time) ([]models.Filing, error)
}

// MarketFetcher settles market data fields independently
type MarketFetcher interface {
	Fetch(ctx context.Context, ticker common.Ticker, date time.Time) models.MarketData
}

// NewsFetcher builds the news bundle, degrading instead of failing
type NewsFetcher interface {
	Bundle(ctx context.Context, ticker common.Ticker, date time.Time, filings []models.Filing) *models.NewsBundle
}

// Transformer turns the payload into the analysis object
type Transformer interface {
	Transform(ctx context.Context, payload Payload, model, version string) (json.RawMessage, error)
}

// Config holds orchestrator settings
type Config struct {
	DefaultModel  string
	HistoricalTTL time.Duration
	CurrentTTL    time.Duration
}

// Outcome is a finished analysis. Body is the stored JSON document; a
// cache hit returns the stored bytes unchanged.
type Outcome struct {
	Result models.AnalysisResult
	Body   []byte
	Cached bool
}

// Service runs analyses
type Service struct {
	config    Config
	filings   FilingFetcher
	market    MarketFetcher
	news      NewsFetcher
	transform Transformer
	results   interfaces.ResultStorage
	validate  *validator.Validate
	inflight  singleflight.Group
	logger    arbor.ILogger
	now       func() time.Time
}

// NewService creates an orchestrator
func NewService(config Config, filings FilingFetcher, market MarketFetcher, news NewsFetcher,
	transform Transformer, results interfaces.ResultStorage, logger arbor.ILogger) *Service {

	if config.HistoricalTTL <= 0 {
		config.HistoricalTTL = DefaultHistoricalTTL
	}
	if config.CurrentTTL <= 0 {
		config.CurrentTTL = DefaultCurrentTTL
	}
	return &Service{
		config:    config,
		filings:   filings,
		market:    market,
		news:      news,
		transform: transform,
		results:   results,
		validate:  validator.New(),
		logger:    logger,
		now:       time.Now,
	}
}

// request is a validated, normalized analyze request
type request struct {
	input  models.AnalyzeRequest
	ticker common.Ticker
	date   time.Time
	model  string
}

// Analyze runs or reuses the analysis for (ticker, date, model).
// Concurrent calls for the same triple share one execution.
func (s *Service) Analyze(ctx context.Context, in models.AnalyzeRequest) (*Outcome, error) {
	req, err := s.normalize(in)
	if err != nil {
		return nil, err
	}

	key := models.NewFetchKey(models.KindAnalysis, req.ticker.Code, req.date, req.model).String()
	v, err, shared := s.inflight.Do(key, func() (interface{}, error) {
		return s.run(context.WithoutCancel(ctx), req)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug().Str("key", key).Msg("Joined in-flight analysis")
	}
	return v.(*Outcome), nil
}

func (s *Service) normalize(in models.AnalyzeRequest) (request, error) {
	in.Ticker = strings.TrimSpace(in.Ticker)
	in.Date = strings.TrimSpace(in.Date)
	in.Model = strings.TrimSpace(in.Model)

	if err := s.validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			f := fieldErrs[0]
			return request{}, &ValidationError{Message: fmt.Sprintf("%s failed %s", strings.ToLower(f.Field()), f.Tag())}
		}
		return request{}, &ValidationError{Message: err.Error()}
	}

	ticker := common.ParseTicker(in.Ticker)
	if !ticker.Valid() {
		return request{}, &ValidationError{Message: fmt.Sprintf("ticker %q is not a valid symbol", in.Ticker)}
	}

	date, err := common.ParseBaselineDate(in.Date, s.now())
	if err != nil {
		return request{}, &ValidationError{Message: err.Error()}
	}

	model := in.Model
	if model == "" {
		model = s.config.DefaultModel
	}

	in.Ticker = ticker.Code
	in.Date = common.FormatDate(date)
	in.Model = model
	return request{input: in, ticker: ticker, date: date, model: model}, nil
}

// run walks the state machine for one request
func (s *Service) run(ctx context.Context, req request) (*Outcome, error) {
	requestID := common.NewRequestID()
	historical := common.IsHistorical(req.date, s.now())
	version := req.model + "@" + SchemaVersion
	timings := make(map[string]int64)

	logger := s.logger.WithCorrelationId(requestID)
	state := StateCacheCheck
	stageStart := time.Now()
	enter := func(next State) {
		timings[string(state)] = time.Since(stageStart).Milliseconds()
		state = next
		stageStart = time.Now()
		logger.Debug().Str("ticker", req.ticker.Code).Str("state", string(state)).Msg("Analysis state")
	}
	fail := func(err error) (*Outcome, error) {
		logger.Error().
			Str("ticker", req.ticker.Code).
			Str("date", req.input.Date).
			Str("failed_state", string(state)).
			Err(err).
			Msg("Analysis failed")
		state = StateError
		return nil, err
	}

	logger.Info().
		Str("ticker", req.ticker.Code).
		Str("date", req.input.Date).
		Str("model", req.model).
		Bool("historical", historical).
		Msg("Analysis started")

	if out := s.lookup(ctx, req, version, historical); out != nil {
		enter(StateDone)
		logger.Info().Str("ticker", req.ticker.Code).Msg("Analysis served from result store")
		return out, nil
	}

	enter(StateFetchFilings)
	filings, err := s.filings.Fetch(ctx, req.ticker, req.date)
	if err != nil {
		return fail(fmt.Errorf("filing index for %s: %w", req.ticker.Code, err))
	}

	enter(StateFetchMarketData)
	market := s.market.Fetch(ctx, req.ticker, req.date)

	enter(StateFetchNews)
	news := s.news.Bundle(ctx, req.ticker, req.date, filings)

	enter(StateInvokeTransform)
	promptVersion := PromptVersionScored
	if news == nil || len(news.Degraded) > 0 {
		promptVersion = PromptVersionProfile
	}
	payload := Payload{
		Ticker:     req.ticker.Code,
		Date:       req.input.Date,
		Historical: historical,
		Filings:    filings,
		MarketData: market,
		News:       news,
	}
	analysis, err := s.transform.Transform(ctx, payload, req.model, promptVersion)
	if err != nil {
		return fail(err)
	}

	enter(StatePersist)
	result := models.AnalysisResult{
		Input:         req.input,
		Data:          models.DataSnapshot{Filings: filings, MarketData: market},
		Analysis:      analysis,
		News:          news,
		Model:         req.model,
		SchemaVersion: promptVersion,
		Historical:    historical,
		RequestID:     requestID,
		StageTimings:  timings,
		UpdatedAt:     s.now().UTC(),
	}
	body, err := json.Marshal(result)
	if err != nil {
		return fail(fmt.Errorf("failed to encode result: %w", err))
	}
	s.persist(ctx, logger, req, version, historical, body, result.UpdatedAt)

	enter(StateDone)
	logger.Info().
		Str("ticker", req.ticker.Code).
		Str("prompt_version", promptVersion).
		Int("filings", len(filings)).
		Msg("Analysis complete")

	return &Outcome{Result: result, Body: body}, nil
}

// lookup returns a fresh stored result, or nil. Store errors are misses.
func (s *Service) lookup(ctx context.Context, req request, version string, historical bool) *Outcome {
	if s.results == nil {
		return nil
	}

	stored, err := s.results.Get(ctx, req.ticker.Code, req.input.Date, version)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			s.logger.Warn().Str("ticker", req.ticker.Code).Err(err).Msg("Result store read failed")
		}
		return nil
	}

	ttl := s.config.CurrentTTL
	if historical {
		ttl = s.config.HistoricalTTL
	}
	if s.now().Sub(stored.UpdatedAt) > ttl {
		return nil
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(stored.Data, &result); err != nil {
		s.logger.Warn().Str("ticker", req.ticker.Code).Err(err).Msg("Stored result unreadable")
		return nil
	}
	return &Outcome{Result: result, Body: stored.Data, Cached: true}
}

func (s *Service) persist(ctx context.Context, logger arbor.ILogger, req request, version string, historical bool, body []byte, updatedAt time.Time) {
	if s.results == nil {
		return
	}
	err := s.results.Upsert(ctx, &models.StoredResult{
		Ticker:     req.ticker.Code,
		Date:       req.input.Date,
		Version:    version,
		Data:       body,
		Historical: historical,
		UpdatedAt:  updatedAt,
	})
	if err != nil {
		logger.Warn().Str("ticker", req.ticker.Code).Err(err).Msg("Result store write failed")
	}
}
