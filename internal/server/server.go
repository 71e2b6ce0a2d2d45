// Package server exposes the local HTTP facade over the synchronized market
// and portfolio state.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/justinhartfield/weed-stock-exchange-game/internal/domain"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/market"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/portfolio"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/syncer"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/trading"
)

// Config holds the facade's collaborators.
type Config struct {
	Log        zerolog.Logger
	Port       int
	Registry   *market.Registry
	Ledger     *portfolio.Ledger
	Controller *syncer.Controller
	Gateway    *trading.Gateway
	API        domain.ExchangeAPI
}

// Server is the local HTTP facade. It serves derived read models and accepts
// trade intents; all authoritative state lives behind the controller.
type Server struct {
	router     *chi.Mux
	server     *http.Server
	log        zerolog.Logger
	registry   *market.Registry
	ledger     *portfolio.Ledger
	controller *syncer.Controller
	gateway    *trading.Gateway
	api        domain.ExchangeAPI
	startTime  time.Time
}

// New creates the HTTP facade.
func New(cfg Config) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		log:        cfg.Log.With().Str("component", "server").Logger(),
		registry:   cfg.Registry,
		ledger:     cfg.Ledger,
		controller: cfg.Controller,
		gateway:    cfg.Gateway,
		api:        cfg.API,
		startTime:  time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.router,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/market", func(r chi.Router) {
			r.Get("/strains", s.handleListStrains)
			r.Get("/strains/{strainID}", s.handleStrainDetail)
			r.Get("/movers", s.handleMovers)
		})

		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/", s.handlePortfolio)
			r.Get("/performance", s.handlePerformance)
		})

		r.Route("/trades", func(r chi.Router) {
			r.Post("/", s.handleCreateTrade)
			r.Get("/history", s.handleTradeHistory)
		})

		r.Post("/sync/refresh", s.handleRefresh)
	})
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins listening. Blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
