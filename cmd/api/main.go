package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"colorizer/internal/colorize"
	"colorizer/internal/credits"
	"colorizer/internal/http/handlers"
	httpapi "colorizer/internal/http/httpapi"
	"colorizer/internal/infra"
	"colorizer/internal/infra/geoip"
	"colorizer/internal/middleware"
	"colorizer/internal/providers/image"
	"colorizer/internal/telemetry"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
		resolver = nil
	}
	defer resolver.Close()

	metrics := telemetry.NewMetrics()
	adapter, err := image.FromConfig(cfg, metrics, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build image provider")
	}

	store := credits.NewMemoryStore(cfg.DefaultCredits)
	svc, err := colorize.NewService(colorize.Options{
		Adapter: adapter,
		Store:   store,
		Cost:    cfg.CreditsPerImage,
		Metrics: metrics,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build colorize service")
	}

	app := handlers.NewApp(svc, store, cfg.MaxUploadBytes, &logger)

	var limiter *middleware.RateLimiter
	if cfg.RateLimitPerMin > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitPerMin)
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:        &logger,
		CORSOrigins:   cfg.CORSOrigins,
		DefaultLocale: cfg.DefaultLocale,
		CountryLookup: resolver.Lookup(),
		RateLimiter:   limiter,
		Metrics:       metrics.Handler(),
		TopUpEnabled:  cfg.TopUpEnabled,
	})
	server := infra.NewHTTPServer(cfg, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", server.Addr()).
			Str("provider", svc.Provider()).
			Int("credits_per_image", svc.Cost()).
			Msg("API listening")
		return server.Start()
	})
	if limiter != nil {
		g.Go(func() error {
			limiter.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
