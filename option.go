package hitl

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/viant/hitl/service/approval"
	"github.com/viant/hitl/service/checkpoint"
	"github.com/viant/hitl/service/runner"
	"github.com/viant/hitl/service/tool"
	"github.com/viant/hitl/tracing"
	"go.uber.org/zap"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the Service.
type Option func(s *Service)

// WithConfig sets the configuration; DefaultConfig is used otherwise.
func WithConfig(cfg *Config) Option {
	return func(s *Service) { s.config = cfg }
}

// WithStore injects a checkpoint store instead of building one from
// Config.Store. The caller keeps ownership of an injected store.
func WithStore(store checkpoint.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithLogger sets the logger instead of building one from Config.Logging.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithExecutor sets the tools an agent run may call. Executions go through
// a per-tool circuit breaker.
func WithExecutor(executor tool.Executor) Option {
	return func(s *Service) { s.executor = executor }
}

// WithReasoner sets the reasoning collaborator. Together with WithExecutor
// it enables Start and makes Decide continue the suspended run.
func WithReasoner(reasoner runner.Reasoner) Option {
	return func(s *Service) { s.reasoner = reasoner }
}

// WithMetricsRegistry registers metrics on reg instead of a private registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(s *Service) { s.registry = reg }
}

// WithNotifier adds an approval event notifier.
func WithNotifier(notifier approval.Notifier) Option {
	return func(s *Service) { s.notifiers = append(s.notifiers, notifier) }
}

// WithRedisClient injects the client used by the redis store and notifier
// instead of dialing Config.Store.Redis.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(s *Service) { s.redis = client }
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter, e.g. OTLP. The first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
