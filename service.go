package hitl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/viant/hitl/internal/logging"
	"github.com/viant/hitl/metrics"
	"github.com/viant/hitl/model"
	"github.com/viant/hitl/policy"
	"github.com/viant/hitl/service/api"
	"github.com/viant/hitl/service/approval"
	"github.com/viant/hitl/service/checkpoint"
	"github.com/viant/hitl/service/checkpoint/fs"
	"github.com/viant/hitl/service/checkpoint/memory"
	"github.com/viant/hitl/service/checkpoint/postgres"
	redisstore "github.com/viant/hitl/service/checkpoint/redis"
	"github.com/viant/hitl/service/checkpoint/sqlite"
	"github.com/viant/hitl/service/gate"
	"github.com/viant/hitl/service/messaging"
	mmemory "github.com/viant/hitl/service/messaging/memory"
	"github.com/viant/hitl/service/resume"
	"github.com/viant/hitl/service/runner"
	"github.com/viant/hitl/service/tool"
	"github.com/viant/hitl/tracing"
	"go.uber.org/zap"
)

// ErrNoRunner is returned by Start and Continue when no reasoner or
// executor was configured.
var ErrNoRunner = errors.New("agent run loop is not configured")

// Service wires policies, checkpoint storage, the interrupt gate, the
// resume controller and, optionally, the agent run loop.
type Service struct {
	config    *Config
	logger    *zap.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	store     checkpoint.Store
	closers   []io.Closer
	redis     redis.UniversalClient
	notifiers approval.Notifiers
	events    *mmemory.Queue[approval.Event]
	policies  *policy.Registry
	gate      *gate.Service
	resume    *resume.Service
	executor  tool.Executor
	reasoner  runner.Reasoner
	runner    *runner.Service
}

var _ approval.Service = (*Service)(nil)

// Gate returns the interrupt gate.
func (s *Service) Gate() *gate.Service { return s.gate }

// Resume returns the resume controller.
func (s *Service) Resume() *resume.Service { return s.resume }

// Policies returns the policy registry.
func (s *Service) Policies() *policy.Registry { return s.policies }

// Store returns the checkpoint store.
func (s *Service) Store() checkpoint.Store { return s.store }

// Logger returns the service logger.
func (s *Service) Logger() *zap.Logger { return s.logger }

// Config returns the effective configuration.
func (s *Service) Config() *Config { return s.config }

// Start begins an agent run.
func (s *Service) Start(ctx context.Context, runID string) (*runner.Result, error) {
	if s.runner == nil {
		return nil, ErrNoRunner
	}
	return s.runner.Start(ctx, runID)
}

// Continue resumes a suspended run with a decision.
func (s *Service) Continue(ctx context.Context, checkpointID string, decision *model.Decision) (*runner.Result, error) {
	if s.runner == nil {
		return nil, ErrNoRunner
	}
	return s.runner.Continue(ctx, checkpointID, decision)
}

// Recover continues a run that stalled after a decision was applied.
func (s *Service) Recover(ctx context.Context, runID string) (*runner.Result, error) {
	if s.runner == nil {
		return nil, ErrNoRunner
	}
	return s.runner.Recover(ctx, runID)
}

// Decide resolves an interrupt. With a run loop configured the suspended run
// continues until it completes or suspends again; otherwise the outcome is
// returned for the caller to act on. Once the decision is applied it is
// never reported as failed: a failure of the continued run is returned in
// Outcome.RunError and the run stays recoverable.
func (s *Service) Decide(ctx context.Context, id string, decision *model.Decision) (*model.Outcome, error) {
	if s.runner == nil {
		return s.resume.Decide(ctx, id, decision)
	}
	result, err := s.runner.Continue(ctx, id, decision)
	if result == nil {
		return nil, err
	}
	outcome := result.Resumed
	outcome.RunStatus = string(result.Status)
	if err != nil {
		outcome.RunError = err.Error()
		s.logger.Warn("run failed after decision",
			zap.String("checkpoint_id", id),
			zap.String("run_id", result.RunID),
			zap.String("run_status", outcome.RunStatus),
			zap.Error(err))
	}
	return outcome, nil
}

// ListPending returns every pending interrupt, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]*approval.Interrupt, error) {
	return s.resume.ListPending(ctx)
}

// Pending returns one pending interrupt.
func (s *Service) Pending(ctx context.Context, id string) (*approval.Interrupt, error) {
	return s.resume.Pending(ctx, id)
}

// Abandon discards an interrupt without running its tool.
func (s *Service) Abandon(ctx context.Context, id string) error {
	return s.resume.Abandon(ctx, id)
}

// Queue returns the approval event feed.
func (s *Service) Queue() messaging.Queue[approval.Event] { return s.events }

// Handler returns the reviewer HTTP API.
func (s *Service) Handler() (http.Handler, error) {
	options := []api.Option{
		api.WithLogger(s.logger),
		api.WithMetricsHandler(s.metrics.Handler()),
		api.WithRateLimit(s.config.API.RateLimit, s.config.API.RateBurst),
	}
	if secret := s.config.API.JWTSecret; secret != "" {
		validator, err := api.NewHMACValidator([]byte(secret))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrConfig, err)
		}
		options = append(options, api.WithValidator(validator))
	}
	return api.New(s, options...), nil
}

// Close releases the resources the service opened itself.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	if s.logger != nil {
		_ = s.logger.Sync()
	}
	return errors.Join(errs...)
}

func (s *Service) init(ctx context.Context) error {
	cfg := s.config
	if s.logger == nil {
		logger, err := logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("%w: %v", model.ErrConfig, err)
		}
		s.logger = logger
	}
	if cfg.Tracing.Enabled {
		if err := tracing.Init(cfg.Tracing.ServiceName, "", cfg.Tracing.Output); err != nil {
			return fmt.Errorf("%w: tracing: %v", model.ErrConfig, err)
		}
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = metrics.New(s.registry)

	policies, err := cfg.Policy.Registry()
	if err != nil {
		return err
	}
	s.policies = policies
	if err = s.ensureStore(ctx); err != nil {
		return err
	}

	// consumers are optional; a full buffer evicts the oldest event
	s.events = mmemory.NewQueue[approval.Event](mmemory.Config{QueueBuffer: cfg.Events.QueueBuffer, DropOldest: true})
	external := s.notifiers
	if cfg.Events.RedisChannel != "" {
		external = append(external, approval.NewRedisNotifier(s.redisClient(), cfg.Events.RedisChannel))
	}

	if s.gate, err = gate.New(
		gate.WithStore(s.store),
		gate.WithRegistry(s.policies),
		gate.WithDescriptionPrefix(cfg.Policy.Prefix()),
		gate.WithLogger(s.logger.Named("gate")),
		gate.WithMetrics(s.metrics),
		gate.WithRetry(cfg.Gate.RetryAttempts, cfg.Gate.RetryDelay),
		gate.WithTTL(cfg.Gate.TTL),
		gate.WithNotifier(append(approval.Notifiers{&approval.QueueNotifier{Queue: s.events}}, external...)),
	); err != nil {
		return err
	}
	resumeOptions := []resume.Option{
		resume.WithStore(s.store),
		resume.WithLogger(s.logger.Named("resume")),
		resume.WithMetrics(s.metrics),
		resume.WithQueue(s.events),
	}
	if len(external) > 0 {
		resumeOptions = append(resumeOptions, resume.WithNotifier(external))
	}
	if s.resume, err = resume.New(resumeOptions...); err != nil {
		return err
	}

	if s.executor == nil || s.reasoner == nil {
		return nil
	}
	guard := tool.NewGuard(s.executor,
		tool.WithMetrics(s.metrics),
		tool.WithLogger(s.logger.Named("tool")))
	s.runner, err = runner.New(
		runner.WithGate(s.gate),
		runner.WithResume(s.resume),
		runner.WithExecutor(guard),
		runner.WithReasoner(s.reasoner),
		runner.WithMaxSteps(cfg.Runner.MaxSteps),
		runner.WithLogger(s.logger.Named("runner")),
	)
	return err
}

func (s *Service) ensureStore(ctx context.Context) error {
	if s.store != nil {
		return nil
	}
	cfg := s.config.Store
	switch cfg.Type {
	case StoreMemory:
		s.store = memory.New()
	case StoreFS:
		store, err := fs.New(cfg.URL)
		if err != nil {
			return fmt.Errorf("%w: fs store: %v", model.ErrStorage, err)
		}
		s.store = store
	case StoreSQLite, StorePostgres:
		open := sqlite.New
		if cfg.Type == StorePostgres {
			open = postgres.New
		}
		store, err := open(ctx, cfg.DSN)
		if err != nil {
			return fmt.Errorf("%w: %s store: %v", model.ErrStorage, cfg.Type, err)
		}
		s.store = store
		s.closers = append(s.closers, store)
	case StoreRedis:
		var options []redisstore.Option
		if cfg.Redis.Prefix != "" {
			options = append(options, redisstore.WithPrefix(cfg.Redis.Prefix))
		}
		s.store = redisstore.New(s.redisClient(), options...)
	default:
		return fmt.Errorf("%w: unknown store type %q", model.ErrConfig, cfg.Type)
	}
	s.logger.Info("checkpoint store ready", zap.String("type", cfg.Type))
	return nil
}

func (s *Service) redisClient() redis.UniversalClient {
	if s.redis == nil {
		cfg := s.config.Store.Redis
		s.redis = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Addr},
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		s.closers = append(s.closers, s.redis)
	}
	return s.redis
}

// New creates a service from options. Configuration errors are reported
// with model.ErrConfig and backend failures with model.ErrStorage.
func New(ctx context.Context, options ...Option) (*Service, error) {
	ret := &Service{}
	for _, option := range options {
		option(ret)
	}
	if ret.config == nil {
		ret.config = DefaultConfig()
	}
	if err := ret.config.Validate(); err != nil {
		return nil, err
	}
	if err := ret.init(ctx); err != nil {
		_ = ret.Close()
		return nil, err
	}
	return ret, nil
}
