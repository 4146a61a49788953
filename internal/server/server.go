// Package server exposes scores, variance and rankings over a read-only JSON API.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/TechnoServe/mfiscore/internal/profile"
	"github.com/TechnoServe/mfiscore/internal/source"
)

// Options configures a Server.
type Options struct {
	Source  source.Source
	Profile *profile.Profile
	Logger  *slog.Logger

	// Cycle is used when a request does not name one.
	Cycle       string
	CORSOrigins []string
	Timeout     time.Duration
}

// Server answers API requests. Records are fetched from the source on every
// request; nothing is cached.
type Server struct {
	src     source.Source
	profile *profile.Profile
	logger  *slog.Logger
	cycle   string
	origins []string
	timeout time.Duration
}

func New(opts Options) *Server {
	s := &Server{
		src:     opts.Source,
		profile: opts.Profile,
		logger:  opts.Logger,
		cycle:   opts.Cycle,
		origins: opts.CORSOrigins,
		timeout: opts.Timeout,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.requestLogger, middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			ExposedHeaders: []string{"Content-Length"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/api", func(ar chi.Router) {
		ar.Get("/scores", s.handleScores)
		ar.Get("/scores/{companyID}", s.handleCompany)
		ar.Get("/variance", s.handleVariance)
		ar.Get("/rankings", s.handleRankings)
		ar.Get("/profile", s.handleProfile)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
