// Package api exposes a read-only HTTP surface over the account store for
// service mode: account balances, health, and metrics.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/settleflow/settleflow/internal/ledger"
	"github.com/settleflow/settleflow/internal/storage"
	"github.com/settleflow/settleflow/internal/transaction"
	"github.com/settleflow/settleflow/pkg/config"
	"github.com/settleflow/settleflow/pkg/health"
	"github.com/settleflow/settleflow/pkg/logging"
	"github.com/settleflow/settleflow/pkg/metrics"
)

// Server represents the API server
type Server struct {
	config         *config.Config
	router         *chi.Mux
	accounts       ledger.AccountStore
	logger         *logging.Logger
	metrics        *metrics.Metrics
	healthRegistry *health.Registry
	server         *http.Server
	listener       net.Listener
}

// NewServer creates a new API server over the given account store.
func NewServer(cfg *config.Config, accounts ledger.AccountStore, logger *logging.Logger, m *metrics.Metrics, healthRegistry *health.Registry) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:         cfg,
		router:         r,
		accounts:       accounts,
		logger:         logger,
		metrics:        m,
		healthRegistry: healthRegistry,
		server: &http.Server{
			Addr:    ":" + cfg.API.Port,
			Handler: r,
		},
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogging)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.API.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.healthRegistry.Handler().ServeHTTP)
	s.router.Get("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}).ServeHTTP)

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/accounts", s.handleListAccounts)
		r.Get("/accounts/{clientID}", s.handleGetAccount)
	})
}

// Bind claims the listen address. Kept separate from Serve so a failed
// bind (e.g. port already in use) is reported synchronously instead of
// from the serving goroutine.
func (s *Server) Bind() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// Serve handles requests on the bound listener. Blocks until the server
// is shut down.
func (s *Server) Serve() error {
	s.logger.Info("api server listening", "addr", s.listener.Addr().String())
	if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// accountView is the wire form of an account, with amounts in decimal
// representation.
type accountView struct {
	ID        transaction.ClientID `json:"id"`
	Available decimal.Decimal      `json:"available"`
	Held      decimal.Decimal      `json:"held"`
	Total     decimal.Decimal      `json:"total"`
	Locked    bool                 `json:"locked"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.All(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}

	views := make([]accountView, 0, len(accounts))
	for _, acct := range accounts {
		views = append(views, accountView{
			ID:        acct.ID,
			Available: acct.Available.Decimal(),
			Held:      acct.Held.Decimal(),
			Total:     acct.Total.Decimal(),
			Locked:    acct.Locked,
		})
	}

	s.respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "clientID")
	id, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid client id")
		return
	}

	acct, err := s.accounts.Get(r.Context(), transaction.ClientID(id))
	if err != nil {
		if storage.IsNotFound(err) {
			s.respondError(w, http.StatusNotFound, "account not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, "failed to load account")
		return
	}

	s.respondJSON(w, http.StatusOK, accountView{
		ID:        acct.ID,
		Available: acct.Available.Decimal(),
		Held:      acct.Held.Decimal(),
		Total:     acct.Total.Decimal(),
		Locked:    acct.Locked,
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// requestLogging logs each request and records request metrics.
func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", elapsed.Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)

		if s.metrics != nil {
			s.metrics.RequestCount.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(ww.Status())).Inc()
			s.metrics.RequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(elapsed.Seconds())
		}
	})
}
