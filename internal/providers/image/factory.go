package image

import (
	"fmt"

	"colorizer/internal/infra"
	"colorizer/internal/providers/flux"
	"colorizer/internal/providers/genai"
	"colorizer/internal/telemetry"
)

// FromConfig builds the adapter selected by cfg.ImageProvider, wrapped in a
// circuit breaker unless disabled.
func FromConfig(cfg *infra.Config, metrics *telemetry.Metrics, logger *infra.Logger) (Adapter, error) {
	if logger == nil {
		logger = infra.NopLogger()
	}

	var adapter Adapter
	switch cfg.ImageProvider {
	case infra.ProviderGemini:
		client, err := genai.NewClient(genai.Options{
			APIKey:  cfg.GeminiAPIKey,
			BaseURL: cfg.GeminiBaseURL,
			Model:   cfg.GeminiModel,
			Timeout: cfg.GeminiTimeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		adapter = NewGeminiAdapter(client, GeminiProfile(cfg), logger)
	case infra.ProviderFlux:
		client, err := flux.NewClient(flux.Options{
			APIKey:       cfg.FluxAPIKey,
			BaseURL:      cfg.FluxBaseURL,
			Model:        cfg.FluxModel,
			AspectRatio:  cfg.FluxAspectRatio,
			PollInterval: cfg.FluxPollInterval,
			MaxAttempts:  cfg.FluxMaxAttempts,
			Timeout:      cfg.FluxTimeout,
			Logger:       logger,
		})
		if err != nil {
			return nil, fmt.Errorf("flux client: %w", err)
		}
		adapter = NewFluxAdapter(client, FluxProfile(cfg), metrics.RecordPoll, logger)
	default:
		return nil, fmt.Errorf("unsupported image provider %q", cfg.ImageProvider)
	}

	failures := cfg.BreakerFailures
	if failures < 0 {
		failures = 0
	}
	return WithBreaker(adapter, BreakerOptions{
		Failures:      uint32(failures),
		OpenTimeout:   cfg.BreakerOpenTimeout,
		OnStateChange: metrics.RecordBreakerTransition,
		Logger:        logger,
	}), nil
}
