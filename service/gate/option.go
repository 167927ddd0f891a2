package gate

import (
	"time"

	"github.com/viant/hitl/metrics"
	"github.com/viant/hitl/policy"
	"github.com/viant/hitl/service/approval"
	"github.com/viant/hitl/service/checkpoint"
	"go.uber.org/zap"
)

// Option customises the gate.
type Option func(*Service)

// WithStore sets the checkpoint store.
func WithStore(store checkpoint.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithRegistry sets the policy registry; a call-scoped registry in the
// context (policy.WithRegistry) takes precedence.
func WithRegistry(registry *policy.Registry) Option {
	return func(s *Service) { s.registry = registry }
}

// WithDescriptionPrefix overrides policy.DefaultDescriptionPrefix.
func WithDescriptionPrefix(prefix string) Option {
	return func(s *Service) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRetry retries failed checkpoint writes up to attempts times in total,
// backing off from delay.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(s *Service) {
		if attempts == 0 {
			attempts = 1
		}
		s.attempts = attempts
		s.delay = delay
	}
}

// WithNotifier receives interrupt.created events.
func WithNotifier(notifier approval.Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

// WithTTL sets the decision deadline recorded on new checkpoints. Nothing
// expires implicitly; see approval.AutoExpire.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}
