// Package fakeapi is an in-memory stand-in for the conversion service. It
// speaks the same HTTP contract, walks each job through a scripted status
// progression and produces output with a pluggable Converter.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"fileforge/internal/catalog"
	"fileforge/internal/domain"
	"fileforge/internal/infra"
	"fileforge/internal/middleware"
)

// DefaultMaxFileSize caps uploads when Options.MaxFileSize is zero.
const DefaultMaxFileSize int64 = 100 << 20

// Converter produces a job's output. A returned error fails the job with the
// error text as its message.
type Converter func(op domain.Operation, params JobParams, input []byte) ([]byte, error)

// Options configures the fake service.
type Options struct {
	Catalog catalog.Catalog
	// PollsPerStage is how many status reads a job spends pending and then
	// processing before it finishes. Zero finishes on the first read.
	PollsPerStage    int
	RateLimitPerHour int
	// RequireSession hides jobs from every session but the one that made them.
	RequireSession bool
	MaxFileSize    int64
	Convert        Converter
	Logger         *infra.Logger
	Now            func() time.Time
}

// Server holds the jobs and serves the HTTP API.
type Server struct {
	cat            catalog.Catalog
	formats        []byte
	pollsPerStage  int
	requireSession bool
	maxFileSize    int64
	convert        Converter
	logger         *infra.Logger
	now            func() time.Time
	handler        http.Handler

	mu   sync.Mutex
	jobs map[string]*record
}

// New builds a Server with defaults applied.
func New(opts Options) (*Server, error) {
	s := &Server{
		cat:            opts.Catalog,
		pollsPerStage:  opts.PollsPerStage,
		requireSession: opts.RequireSession,
		maxFileSize:    opts.MaxFileSize,
		convert:        opts.Convert,
		logger:         opts.Logger,
		now:            opts.Now,
		jobs:           make(map[string]*record),
	}
	if s.cat == nil {
		s.cat = Catalog()
	}
	if s.pollsPerStage < 0 {
		s.pollsPerStage = 0
	}
	if s.maxFileSize <= 0 {
		s.maxFileSize = DefaultMaxFileSize
	}
	if s.convert == nil {
		s.convert = Shrink(30)
	}
	if s.logger == nil {
		s.logger = infra.NopLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}

	formats := make(map[string]catalog.Entry, len(s.cat))
	for op, entry := range s.cat {
		formats[op.String()] = entry
	}
	raw, err := json.Marshal(formats)
	if err != nil {
		return nil, fmt.Errorf("fakeapi: encode formats: %w", err)
	}
	s.formats = raw
	s.handler = s.routes(opts.RateLimitPerHour)
	return s, nil
}

func (s *Server) routes(ratePerHour int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.Recoverer, middleware.Logger(s.logger))

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/formats", s.handleFormats)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(24*time.Hour), middleware.RateLimit(ratePerHour, time.Hour))
		r.Post("/api/jobs", s.handleCreateJob)
		r.Route("/api/jobs/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetJob)
			r.Delete("/", s.handleDeleteJob)
			r.Get("/download", s.handleDownload)
		})
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Job returns the service's current view of a job.
func (s *Server) Job(id string) (domain.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return rec.job.Clone(), true
}

// JobCount reports how many jobs exist.
func (s *Server) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := len(s.jobs)
	s.mu.Unlock()
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": "api", "jobs": n})
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.formats)
}
