package tool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"github.com/viant/hitl/metrics"
	"github.com/viant/hitl/tracing"
	"go.uber.org/zap"
)

// Guard wraps an Executor with a circuit breaker per tool, tracing and
// latency metrics. Once a tool keeps failing its breaker opens and calls fail
// fast with gobreaker.ErrOpenState until the breaker half-opens again.
type Guard struct {
	next     Executor
	settings gobreaker.Settings
	metrics  *metrics.Metrics
	logger   *zap.Logger
	mux      sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

var _ Executor = (*Guard)(nil)

// GuardOption customises a Guard.
type GuardOption func(*Guard)

// WithBreaker sets the breaker settings; Name and OnStateChange are managed
// by the guard.
func WithBreaker(settings gobreaker.Settings) GuardOption {
	return func(g *Guard) { g.settings = settings }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) GuardOption {
	return func(g *Guard) { g.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// DefaultBreakerSettings trips after five consecutive failures and probes
// again after thirty seconds.
func DefaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
}

// NewGuard wraps next.
func NewGuard(next Executor, options ...GuardOption) *Guard {
	ret := &Guard{
		next:     next,
		settings: DefaultBreakerSettings(),
		logger:   zap.NewNop(),
		breakers: map[string]*gobreaker.CircuitBreaker{},
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Execute runs the tool through its breaker.
func (g *Guard) Execute(ctx context.Context, name string, args map[string]interface{}) (output string, err error) {
	ctx, span := tracing.StartSpan(ctx, "hitl.tool.execute", tracing.KindInternal)
	span.WithAttributes(map[string]string{"tool": name})
	started := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				status = "rejected"
			}
		}
		g.metrics.Tool(name, status, time.Since(started).Seconds())
		tracing.EndSpan(span, err)
	}()

	result, err := g.breaker(name).Execute(func() (interface{}, error) {
		return g.next.Execute(ctx, name, args)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// State returns the breaker state of a tool.
func (g *Guard) State(name string) gobreaker.State {
	return g.breaker(name).State()
}

func (g *Guard) breaker(name string) *gobreaker.CircuitBreaker {
	g.mux.Lock()
	defer g.mux.Unlock()
	if cb, ok := g.breakers[name]; ok {
		return cb
	}
	settings := g.settings
	settings.Name = name
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		g.logger.Warn("tool breaker state changed",
			zap.String("tool", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
		g.metrics.Breaker(name, float64(to))
	}
	cb := gobreaker.NewCircuitBreaker(settings)
	g.breakers[name] = cb
	return cb
}
