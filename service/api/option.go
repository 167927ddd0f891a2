package api

import (
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Option customises the Server.
type Option func(*Server)

// WithValidator requires a bearer token on every /v1 route.
func WithValidator(v TokenValidator) Option {
	return func(s *Server) { s.validator = v }
}

// WithRateLimit bounds /v1 requests per second with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		if perSecond > 0 {
			if burst < 1 {
				burst = 1
			}
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the request and error logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}
