package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lendingrisk/native/lending"
	"lendingrisk/observability"
	"lendingrisk/services/riskd/middleware"
	"lendingrisk/services/riskd/storage"
)

const defaultMaxBodyBytes = 1 << 20

// Config wires the HTTP surface of riskd.
type Config struct {
	Engine        *lending.Engine
	Store         storage.Store
	Logger        *slog.Logger
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	RateLimitKey  string
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
	MaxBodyBytes  int64
}

// Server evaluates capacity decisions against stored snapshots.
type Server struct {
	engine       *lending.Engine
	store        storage.Store
	logger       *slog.Logger
	metrics      *observability.RiskEngineMetrics
	maxBodyBytes int64
}

// New builds the router.
func New(cfg Config) (http.Handler, error) {
	if cfg.Engine == nil {
		return nil, errors.New("risk engine required")
	}
	if cfg.Store == nil {
		return nil, errors.New("snapshot store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	s := &Server{
		engine:       cfg.Engine,
		store:        cfg.Store,
		logger:       cfg.Logger,
		metrics:      observability.RiskMetrics(),
		maxBodyBytes: cfg.MaxBodyBytes,
	}

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))

	obs := cfg.Observability
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if obs != nil {
		r.Handle("/metrics", obs.MetricsHandler())
	}

	r.Route("/v1/epochs/{epoch}", func(sr chi.Router) {
		if cfg.RateLimiter != nil && cfg.RateLimitKey != "" {
			sr.Use(cfg.RateLimiter.Middleware(cfg.RateLimitKey))
		}
		route := func(name string, scope string, h http.HandlerFunc) http.Handler {
			var handler http.Handler = h
			if cfg.Authenticator != nil {
				handler = cfg.Authenticator.Middleware(scope)(handler)
			}
			if obs != nil {
				handler = obs.Middleware(name)(handler)
			}
			return handler
		}
		sr.Method(http.MethodPut, "/reserves", route("put_reserves", middleware.ScopeWrite, s.putReserves))
		sr.Method(http.MethodPut, "/users/{user}", route("put_user", middleware.ScopeWrite, s.putUser))
		sr.Method(http.MethodGet, "/caps", route("caps", middleware.ScopeRead, s.getCaps))
		sr.Method(http.MethodPost, "/users/{user}/decisions", route("decisions", middleware.ScopeRead, s.postDecision))
		sr.Method(http.MethodPost, "/users/{user}/projections", route("projections", middleware.ScopeRead, s.postProjection))
		sr.Method(http.MethodGet, "/users/{user}/yield", route("yield", middleware.ScopeRead, s.getYield))
	})

	return r, nil
}

func (s *Server) fail(w http.ResponseWriter, operation string, err error) {
	status, message := toStatus(err)
	switch {
	case status >= http.StatusInternalServerError:
		s.logger.Error("request failed", slog.String("operation", operation), slog.Any("error", err))
	case lending.IsPrecondition(err):
		s.metrics.RecordPrecondition(operation, preconditionReason(err))
	}
	writeJSON(w, status, errorResponse{Error: message})
}

func preconditionReason(err error) string {
	switch {
	case errors.Is(err, lending.ErrEpochMismatch):
		return "epoch_mismatch"
	case errors.Is(err, lending.ErrReserveNotFound):
		return "reserve_not_found"
	default:
		return "invalid_request"
	}
}
