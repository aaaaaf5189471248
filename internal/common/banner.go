package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and the effective runtime settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("TickerLens", GetVersion())

	logger.Info().
		Str("version", GetFullVersion()).
		Str("environment", config.Environment).
		Str("cache_backend", config.Cache.Backend).
		Str("results_backend", config.Results.Backend).
		Str("default_model", config.LLM.DefaultModel).
		Int("batch_concurrency", config.Batch.Concurrency).
		Msg("Configuration loaded")
}
