package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/common"
	"github.com/ternarybob/tickerlens/internal/eodhd"
	"github.com/ternarybob/tickerlens/internal/finnhub"
	"github.com/ternarybob/tickerlens/internal/gdelt"
	"github.com/ternarybob/tickerlens/internal/handlers"
	"github.com/ternarybob/tickerlens/internal/interfaces"
	"github.com/ternarybob/tickerlens/internal/sec"
	"github.com/ternarybob/tickerlens/internal/services/analysis"
	"github.com/ternarybob/tickerlens/internal/services/batch"
	"github.com/ternarybob/tickerlens/internal/services/cache"
	"github.com/ternarybob/tickerlens/internal/services/filings"
	"github.com/ternarybob/tickerlens/internal/services/history"
	"github.com/ternarybob/tickerlens/internal/services/llm"
	"github.com/ternarybob/tickerlens/internal/services/marketdata"
	"github.com/ternarybob/tickerlens/internal/services/momentum"
	"github.com/ternarybob/tickerlens/internal/services/news"
	"github.com/ternarybob/tickerlens/internal/services/pricetarget"
	"github.com/ternarybob/tickerlens/internal/storage"
	"github.com/ternarybob/tickerlens/internal/yahoo"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	CacheStorage  interfaces.CacheStorage
	ResultStorage interfaces.ResultStorage
	CacheService  *cache.Service
	Sweeper       *cache.Sweeper

	// Source adapters
	SECClient     *sec.Client
	EODHDClient   *eodhd.Client
	FinnhubClient *finnhub.Client
	GDELTClient   *gdelt.Client
	YahooClient   *yahoo.Client

	// Pipeline services
	LLMService         *llm.Service
	PriceTargetService *pricetarget.Service
	HistoryService     *history.Service
	MomentumService    *momentum.Service
	NewsService        *news.Service
	FilingService      *filings.Service
	MarketDataService  *marketdata.Service
	AnalysisService    *analysis.Service
	BatchService       *batch.Service

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	AnalysisHandler *handlers.AnalysisHandler
	BatchHandler    *handlers.BatchHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.initStorage(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.initClients()

	app.initServices()

	app.initHandlers()

	logger.Info().
		Str("cache_backend", cfg.Cache.Backend).
		Str("results_backend", cfg.Results.Backend).
		Bool("llm_available", app.LLMService.Available("")).
		Bool("eodhd_configured", app.EODHDClient.Configured()).
		Bool("finnhub_configured", app.FinnhubClient.Configured()).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage opens the cache and result stores and schedules the sweeper
func (a *App) initStorage(ctx context.Context) error {
	cacheStorage, err := storage.NewCacheStorage(ctx, a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("cache storage: %w", err)
	}
	a.CacheStorage = cacheStorage
	a.CacheService = cache.NewService(cacheStorage, a.Logger)

	resultStorage, err := storage.NewResultStorage(ctx, a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("result storage: %w", err)
	}
	a.ResultStorage = resultStorage

	if a.Config.Cache.SweepSchedule != "" {
		maxAge := common.ParseDuration(a.Config.Cache.MaxAge, 30*24*time.Hour)
		a.Sweeper = cache.NewSweeper(cacheStorage, a.Logger, maxAge)
		if err := a.Sweeper.Start(a.Config.Cache.SweepSchedule); err != nil {
			return fmt.Errorf("cache sweeper: %w", err)
		}
	}
	return nil
}

// initClients builds the upstream adapters. Missing keys leave a client
// unconfigured; its calls fail and the fallback chains move on.
func (a *App) initClients() {
	cfg := a.Config

	a.SECClient = sec.NewClient(cfg.SEC.UserAgent,
		sec.WithBaseURL(cfg.SEC.BaseURL),
		sec.WithFilesURL(cfg.SEC.FilesURL),
		sec.WithTimeout(common.ParseDuration(cfg.SEC.Timeout, 30*time.Second)),
		sec.WithRateLimit(cfg.SEC.RateLimit),
		sec.WithLogger(a.Logger),
	)

	eodhdKey, err := common.ResolveAPIKey("eodhd_api_key", cfg.EODHD.APIKey)
	if err != nil {
		a.Logger.Warn().Msg("EODHD API key not configured, EODHD steps will be skipped")
	}
	a.EODHDClient = eodhd.NewClient(eodhdKey,
		eodhd.WithBaseURL(cfg.EODHD.BaseURL),
		eodhd.WithTimeout(common.ParseDuration(cfg.EODHD.Timeout, 15*time.Second)),
		eodhd.WithRateLimit(cfg.EODHD.RateLimit),
		eodhd.WithLogger(a.Logger),
	)

	finnhubKey, err := common.ResolveAPIKey("finnhub_api_key", cfg.Finnhub.APIKey)
	if err != nil {
		a.Logger.Warn().Msg("Finnhub API key not configured, Finnhub steps will be skipped")
	}
	a.FinnhubClient = finnhub.NewClient(finnhubKey,
		finnhub.WithBaseURL(cfg.Finnhub.BaseURL),
		finnhub.WithTimeout(common.ParseDuration(cfg.Finnhub.Timeout, 15*time.Second)),
		finnhub.WithRateLimit(cfg.Finnhub.RateLimit),
		finnhub.WithLogger(a.Logger),
	)

	a.GDELTClient = gdelt.NewClient(
		gdelt.WithBaseURL(cfg.GDELT.BaseURL),
		gdelt.WithTimeout(common.ParseDuration(cfg.GDELT.Timeout, 30*time.Second)),
		gdelt.WithRateLimit(cfg.GDELT.RateLimit),
		gdelt.WithLogger(a.Logger),
	)

	a.YahooClient = yahoo.NewClient(a.Logger, common.ParseDuration(cfg.Yahoo.Timeout, yahoo.DefaultTimeout))
}

// initServices wires the pipeline bottom-up
func (a *App) initServices() {
	cfg := a.Config

	a.LLMService = llm.NewService(&cfg.LLM, a.Logger)

	a.PriceTargetService = pricetarget.NewService(a.CacheService, a.Logger,
		pricetarget.NewFinnhubProvider(a.FinnhubClient),
		pricetarget.NewYahooProvider(a.YahooClient),
		pricetarget.NewFundamentalsProvider(a.EODHDClient),
	)
	a.HistoryService = history.NewService(a.EODHDClient, a.YahooClient, a.CacheService, a.Logger)

	a.MomentumService = momentum.NewService(a.EODHDClient, a.YahooClient, a.CacheService, momentum.DefaultSectorTable(), a.Logger)

	a.NewsService = news.NewService(news.Config{
		HelperModel:  cfg.LLM.HelperModel,
		MaxTokens:    cfg.LLM.HelperMaxTokens,
		LookbackDays: cfg.Analysis.NewsLookbackDay,
	}, a.LLMService, a.GDELTClient, a.EODHDClient, a.CacheService, a.Logger)

	a.FilingService = filings.NewService(filings.Config{
		MaxFilings:   cfg.SEC.MaxFilings,
		Workers:      cfg.Analysis.FilingWorkers,
		ExcerptChars: cfg.Analysis.ExcerptChars,
	}, a.SECClient, a.CacheService, a.Logger)

	a.MarketDataService = marketdata.NewService(marketdata.Dependencies{
		Finnhub:      a.FinnhubClient,
		RealTime:     a.EODHDClient,
		Quotes:       a.YahooClient,
		PriceTargets: a.PriceTargetService,
		Momentum:     a.MomentumService,
		History:      a.HistoryService,
	}, a.CacheService, a.Logger)

	transform := analysis.NewLLMTransform(analysis.TransformConfig{
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		TTL:         common.ParseDuration(cfg.Analysis.TransformTTL, analysis.DefaultTransformTTL),
	}, a.LLMService, a.CacheService, a.Logger)

	a.AnalysisService = analysis.NewService(analysis.Config{
		DefaultModel:  cfg.LLM.DefaultModel,
		HistoricalTTL: common.ParseDuration(cfg.Results.HistoricalTTL, analysis.DefaultHistoricalTTL),
		CurrentTTL:    common.ParseDuration(cfg.Results.CurrentTTL, analysis.DefaultCurrentTTL),
	}, a.FilingService, a.MarketDataService, a.NewsService, transform, a.ResultStorage, a.Logger)

	a.BatchService = batch.NewService(batch.Config{
		Concurrency: cfg.Batch.Concurrency,
		MaxRows:     cfg.Batch.MaxRows,
	}, a.AnalysisService, a.Logger)
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.AnalysisHandler = handlers.NewAnalysisHandler(a.AnalysisService, a.Config.Analysis.SelfTestTicker, a.Logger)
	a.BatchHandler = handlers.NewBatchHandler(a.BatchService, a.Logger)
}

// Close stops background work and releases the stores
func (a *App) Close() error {
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}

	if a.ResultStorage != nil {
		if err := a.ResultStorage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close result storage")
		}
	}

	if a.CacheStorage != nil {
		if err := a.CacheStorage.Close(); err != nil {
			return fmt.Errorf("failed to close cache storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
