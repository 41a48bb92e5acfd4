package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"spotbook/internal/config"
	"spotbook/internal/domain"
	"spotbook/internal/metrics"
	"spotbook/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ScheduleExporter renders the occupancy report and returns the saved file
// path.
type ScheduleExporter interface {
	ExportSchedule(ctx context.Context, startDate, endDate time.Time) (string, error)
}

// HTTPServer exposes the booking operations over HTTP. It is a thin
// collaborator: all lifecycle rules live in the service, the server only maps
// domain errors to statuses.
type HTTPServer struct {
	cfg      config.APIConfig
	service  domain.BookingService
	catalog  domain.ResourceCatalog
	exporter ScheduleExporter
	cache    domain.CacheRepository
	server   *http.Server
	auth     *HTTPAuth
	logger   *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, service domain.BookingService, catalog domain.ResourceCatalog, exporter ScheduleExporter, cache domain.CacheRepository, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:      cfg,
		service:  service,
		catalog:  catalog,
		exporter: exporter,
		cache:    cache,
		logger:   logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/bookings/export", srv.handleExport)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBookingByID)
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/resources/", srv.handleResourceByID)
	mux.HandleFunc("/api/v1/resources", srv.handleResources)

	handler := srv.loggingMiddleware(srv.auth.Wrap(srv.actorLimitMiddleware(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the full middleware chain, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("x-request-id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("x-request-id", requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.Method + " " + routeLabel(r.URL.Path))
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// routeLabel collapses id segments so the request counter stays at a fixed
// label cardinality.
func routeLabel(path string) string {
	switch {
	case path == "/api/v1/bookings/export":
		return path
	case strings.HasPrefix(path, "/api/v1/bookings/"):
		return "/api/v1/bookings/{id}"
	case strings.HasPrefix(path, "/api/v1/resources/"):
		return "/api/v1/resources/{id}"
	}
	return path
}

// actorLimitMiddleware throttles mutating requests per actor through the
// shared cache, so the limit holds across instances. Requests without an
// actor header pass through; the handlers reject those themselves.
func (s *HTTPServer) actorLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cache == nil || r.Method == http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		actor, err := s.actorID(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := s.cache.CheckRateLimit(r.Context(), actor,
			models.RateLimitRequests, time.Duration(models.RateLimitWindow)*time.Second)
		if err != nil {
			s.logger.Warn().Err(err).Int64("actor_id", actor).Msg("actor rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
