// Command client runs the exchange client engine: it synchronizes instrument
// prices and the user's portfolio with the exchange and serves the local HTTP
// facade used by the UI.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/justinhartfield/weed-stock-exchange-game/internal/clients/exchange"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/config"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/events"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/market"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/portfolio"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/server"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/storage"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/syncer"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/trading"
	"github.com/justinhartfield/weed-stock-exchange-game/pkg/logger"
)

// staticToken serves the session token from configuration. Session issuance
// (login) happens outside this process.
type staticToken string

func (s staticToken) Token() (string, error) {
	return string(s), nil
}

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting exchange client engine")

	// Local cache database for warm starts. Losing it only costs a cold start,
	// so a failure here downgrades to running without a cache.
	var cache syncer.SnapshotCache
	db, err := storage.Open(cfg.CachePath)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to open cache database, running without warm start")
	} else {
		defer db.Close()
		quoteCache, err := storage.NewQuoteCache(db, log)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize quote cache, running without warm start")
		} else {
			cache = quoteCache
		}
	}

	bus := events.NewBus(log)
	registry := market.NewRegistry(log)
	ledger := portfolio.NewLedger(log)

	tokens := staticToken(cfg.SessionToken)
	apiClient := exchange.NewClient(cfg.ExchangeAPIURL, tokens, log)
	gateway := trading.NewGateway(apiClient, registry, ledger, bus, log)

	controller := syncer.NewController(syncer.Config{
		API:             apiClient,
		Registry:        registry,
		Ledger:          ledger,
		Bus:             bus,
		Cache:           cache,
		RefreshInterval: cfg.RefreshEvery,
		Log:             log,
	})

	stream := exchange.NewStreamClient(cfg.ExchangeWSURL, tokens, controller, log)
	controller.SetStream(stream)

	startCtx, startCancel := context.WithTimeout(context.Background(), time.Minute)
	if err := controller.Start(startCtx); err != nil {
		log.Error().Err(err).Msg("Synchronization controller start failed")
	}
	startCancel()

	srv := server.New(server.Config{
		Log:        log,
		Port:       cfg.Port,
		Registry:   registry,
		Ledger:     ledger,
		Controller: controller,
		Gateway:    gateway,
		API:        apiClient,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Client engine running")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	if err := controller.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing synchronization controller")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Client engine stopped")
}
