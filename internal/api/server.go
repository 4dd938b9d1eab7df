// Package api is a thin HTTP surface over the Advisor Orchestrator and the
// Rule Repository, grounded on the teacher's internal/server (chi router +
// middleware stack, writeJSON helper, loggingMiddleware). SPEC_FULL.md
// keeps it deliberately thin per spec.md §1: no auth, no business logic
// beyond request marshaling/unmarshaling.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/arduino-trader/internal/advisor"
	"github.com/aristath/arduino-trader/internal/domain"
	"github.com/aristath/arduino-trader/internal/reliability"
	"github.com/aristath/arduino-trader/internal/ruledb"
	"github.com/aristath/arduino-trader/internal/rulesengine/rule"
	"github.com/aristath/arduino-trader/internal/rulesengine/semtype"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Config bundles the collaborators Server wires into routes.
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	Advisor   *advisor.Advisor
	Rules     ruledb.Repository
	Health    *reliability.DatabaseHealthService
}

// Server is the HTTP surface; it owns no state beyond its collaborators.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	advisor *advisor.Advisor
	rules   ruledb.Repository
	health  *reliability.DatabaseHealthService
}

// New builds a Server with routes and middleware configured.
func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "api").Logger(),
		advisor: cfg.Advisor,
		rules:   cfg.Rules,
		health:  cfg.Health,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving HTTP until the listener fails or is closed.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Close shuts the HTTP server down.
func (s *Server) Close() error {
	return s.server.Close()
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealthz)

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/advisor/{ticker}", s.handleAdvise)
		r.Get("/rules", s.handleListRules)
		r.Get("/rules/{id}", s.handleGetRule)
		r.Put("/rules/{id}", s.handlePutRule)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// handleHealthz reports liveness plus the database health service's last
// recorded integrity pass (spec.md's ambient ops stack, carried regardless
// of the rule-engine Non-goals).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.health != nil {
		metrics, err := s.health.GetMetrics()
		if err == nil {
			body["database"] = metrics
		}
	}
	s.writeJSON(w, http.StatusOK, body)
}

// adviseRequest is the POST /v1/advisor/{ticker} request body.
type adviseRequest struct {
	RiskAppetite string   `json:"risk_appetite"`
	Goal         string   `json:"goal"`
	Horizon      string   `json:"horizon"`
	Knowledge    string   `json:"knowledge"`
	Capital      float64  `json:"capital"`
	Currency     string   `json:"currency"`
	ExcludedSectors []string `json:"excluded_sectors"`
	ExcludedTickers []string `json:"excluded_tickers"`
}

func (s *Server) handleAdvise(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	var req adviseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	profile := domain.InvestmentProfile{
		RiskAppetite: domain.RiskAppetite(req.RiskAppetite),
		Goal:         domain.Goal(req.Goal),
		Horizon:      domain.Horizon(req.Horizon),
		Knowledge:    domain.Knowledge(req.Knowledge),
		Capital:      domain.NewMoney(req.Capital, domain.Currency(req.Currency)),
		Preferences: domain.Preferences{
			ExcludedSectors: req.ExcludedSectors,
			ExcludedTickers: req.ExcludedTickers,
		},
	}

	report, err := s.advisor.Advise(r.Context(), ticker, profile, domain.Horizon(req.Horizon))
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	purpose := semtype.Type(r.URL.Query().Get("purpose"))
	status := rule.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = rule.StatusReady
	}
	if !semtype.IsPurpose(purpose) {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("purpose query param must be one of DECISION_SIGNAL, RISK_LEVEL, OPPORTUNITY_RATING"))
		return
	}

	records, err := s.rules.ListBy(purpose, status)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	record, err := s.rules.Get(id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *Server) handlePutRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var record ruledb.RuleRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid rule record: %w", err))
		return
	}
	record.RuleID = id

	if err := s.rules.Put(record); err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}
