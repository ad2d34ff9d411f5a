package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/efreitasn/tradecore/internal/config"
	"github.com/efreitasn/tradecore/internal/feed"
	"github.com/efreitasn/tradecore/internal/handler"
	"github.com/efreitasn/tradecore/internal/maker"
	"github.com/efreitasn/tradecore/internal/router"
	"github.com/efreitasn/tradecore/internal/service"
	"github.com/efreitasn/tradecore/internal/venue"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// A .env file is optional; real env vars win.
	_ = godotenv.Load()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Router and venues.
	sor := router.New(cfg.ConsiderLatency, cfg.ConsiderFees)
	for _, id := range cfg.SimulatedVenues {
		v := venue.NewSimulated(id, id, cfg.Symbol)
		if err := sor.AddVenue(v, router.DefaultFeeSchedule()); err != nil {
			logger.Error("failed to register venue", slog.String("venue_id", id), slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("simulated venue registered", slog.String("venue_id", id))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Live feed-backed venue, when configured.
	if cfg.FeedURL != "" {
		live := venue.NewLive(cfg.FeedVenueID, cfg.FeedVenueID, cfg.Symbol, cfg.FeedStaleAfter)
		if err := sor.AddVenue(live, router.DefaultFeeSchedule()); err != nil {
			logger.Error("failed to register feed venue", slog.String("venue_id", cfg.FeedVenueID), slog.String("error", err.Error()))
			os.Exit(1)
		}
		client := feed.NewClient(cfg.FeedURL, live, logger)
		go func() {
			if err := client.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("feed stopped", slog.String("error", err.Error()))
			}
		}()
		logger.Info("live venue registered", slog.String("venue_id", cfg.FeedVenueID), slog.String("url", cfg.FeedURL))
	}

	// Market maker.
	var mm *maker.MarketMaker
	if cfg.MakerEnabled {
		mm = maker.New(sor, maker.DefaultParams(), logger)
		mm.Initialize(cfg.MakerBaseInventory, cfg.MakerQuoteInventory)
	}

	// Service and HTTP routes.
	tradingSvc := service.NewTradingService(sor, mm, logger)
	routes := handler.NewRouter(tradingSvc, logger)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      routes,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("symbol", cfg.Symbol))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop HTTP server, cancel context (stops the feed).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
}
