// Package api exposes pending interrupts to reviewers over HTTP.
//
//	GET    /v1/interrupts?run_id=&tool=   pending interrupts, oldest first
//	GET    /v1/interrupts/{id}            one interrupt
//	POST   /v1/interrupts/{id}/decision   approve, edit or reject
//	DELETE /v1/interrupts/{id}            abandon
//	GET    /health
//	GET    /metrics
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/viant/hitl/service/approval"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Server routes reviewer requests to an approval service.
type Server struct {
	router    *chi.Mux
	service   approval.Service
	validator TokenValidator
	limiter   *rate.Limiter
	metrics   http.Handler
	logger    *zap.Logger
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observe(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1/interrupts", func(r chi.Router) {
		if s.validator != nil {
			r.Use(authenticate(s.validator, s.logger))
		}
		if s.limiter != nil {
			r.Use(limit(s.limiter))
		}
		r.Get("/", s.list)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.get)
			r.Delete("/", s.abandon)
			r.Post("/decision", s.decide)
		})
	})
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// New creates a server for svc.
func New(svc approval.Service, options ...Option) *Server {
	ret := &Server{router: chi.NewRouter(), service: svc, logger: zap.NewNop()}
	for _, option := range options {
		option(ret)
	}
	ret.routes()
	return ret
}
