package resume

import (
	"github.com/viant/hitl/metrics"
	"github.com/viant/hitl/service/approval"
	"github.com/viant/hitl/service/checkpoint"
	"github.com/viant/hitl/service/messaging"
	"go.uber.org/zap"
)

// Option customises the resume controller.
type Option func(*Service)

// WithStore sets the checkpoint store.
func WithStore(store checkpoint.Store) Option {
	return func(s *Service) { s.store = store }
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

// WithNotifier receives decision.created and interrupt.abandoned events.
func WithNotifier(notifier approval.Notifier) Option {
	return func(s *Service) {
		if notifier != nil {
			s.notifiers = append(s.notifiers, notifier)
		}
	}
}

// WithQueue publishes events on queue and exposes it through Queue.
func WithQueue(queue messaging.Queue[approval.Event]) Option {
	return func(s *Service) {
		s.queue = queue
		if queue != nil {
			s.notifiers = append(s.notifiers, &approval.QueueNotifier{Queue: queue})
		}
	}
}
