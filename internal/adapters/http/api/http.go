// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	service "github.com/nourdesoukizz/Cozmx-fencing/internal/app"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/adapters/http/swagger"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/engine"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/types"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
)

// Default server configuration constants.
const (
	defaultMaxRequestBytes = 1 << 20
	defaultSimulateRate    = 2
	defaultSimulateBurst   = 4
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	StatsProvider

	CreateEvent(ctx context.Context, name string) (model.EventInfo, error)
	Events() []types.EventSummary
	Event(id string) (*service.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ImportSnapshot(ctx context.Context, id string, snap model.Snapshot) (*engine.View, error)
	Subscribe(id string) (<-chan types.StreamMessage, func(), error)
}

// Server wires HTTP routes for the rating API.
type Server struct {
	deps            Dependencies
	logger          logger.Logger
	maxRequestBytes int64
	simulateLimiter *rate.Limiter
	upgrader        *websocket.Upgrader
	allowedOrigins  map[string]struct{}
	anyOrigin       bool

	healthHandler *HealthHandler
	statsHandler  *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:            deps,
		maxRequestBytes: defaultMaxRequestBytes,
		simulateLimiter: rate.NewLimiter(defaultSimulateRate, defaultSimulateBurst),
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("http")
	}
	s.upgrader = s.newUpgrader()
	return s
}

// Routes returns the router serving every endpoint.
func (s *Server) Routes(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/stats", s.statsHandler.HandleStats)
	swagger.Register(ctx, r)

	r.Route("/events", func(r chi.Router) {
		r.Post("/", s.handleCreateEvent)
		r.Get("/", s.handleListEvents)

		r.Route("/{eventID}", func(r chi.Router) {
			r.Get("/", s.handleGetEvent)
			r.Delete("/", s.handleDeleteEvent)

			r.Post("/competitors", s.handleRegister)
			r.Get("/competitors", s.handleListCompetitors)
			r.Get("/competitors/{name}", s.handleCompetitor)

			r.Post("/pools", s.handleIngestPool)
			r.Post("/bouts", s.handleAddBout)
			r.Get("/bouts", s.handleListBouts)
			r.Post("/refit", s.handleRefit)

			r.Get("/standings", s.handleStandings)
			r.Get("/trajectory", s.handleTrajectory)
			r.Get("/predict", s.handlePredict)

			r.Put("/bracket", s.handleSetBracket)
			r.Get("/bracket", s.handleGetBracket)
			r.With(s.rateLimit).Post("/simulate", s.handleSimulate)
			r.Get("/simulate", s.handleLastSimulation)

			r.Get("/snapshot", s.handleExport)
			r.Put("/snapshot", s.handleImport)
			r.Get("/stream", s.handleStream)
		})
	})
	return r
}

// event resolves the {eventID} path parameter.
func (s *Server) event(r *http.Request) (*service.Event, error) {
	return s.deps.Event(chi.URLParam(r, "eventID"))
}

// pathParam returns an unescaped path parameter.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// decode reads a JSON body of at most maxRequestBytes into v.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, op string, v any) error {
	body := http.MaxBytesReader(w, r.Body, s.maxRequestBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return WrapKind(op, ErrBadRequest, fmt.Errorf("body exceeds %d bytes", tooBig.Limit))
		}
		return WrapKind(op, ErrBadRequest, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return NewKind(op, fmt.Errorf("%w: trailing data after JSON body", ErrBadRequest))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fail writes err with the status its kind maps to.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	writeJSON(w, status, types.ErrorResponse{Code: code, Message: err.Error()})
}
