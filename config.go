package hitl

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/viant/hitl/internal/logging"
	"github.com/viant/hitl/internal/yml"
	"github.com/viant/hitl/model"
	"github.com/viant/hitl/policy"
	"github.com/viant/hitl/service/runner"
)

// Store types.
const (
	StoreMemory   = "memory"
	StoreFS       = "fs"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// EnvPrefix prefixes environment overrides, e.g. HITL_STORE_TYPE.
const EnvPrefix = "HITL"

// Config is a serialisable representation of the service configuration. It
// can be populated from YAML, JSON or the environment (see LoadConfig).
type Config struct {
	Logging logging.Config `json:"logging" yaml:"logging" mapstructure:"logging"`
	Store   StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`
	Gate    GateConfig     `json:"gate" yaml:"gate" mapstructure:"gate"`
	Runner  RunnerConfig   `json:"runner" yaml:"runner" mapstructure:"runner"`
	API     APIConfig      `json:"api" yaml:"api" mapstructure:"api"`
	Events  EventsConfig   `json:"events" yaml:"events" mapstructure:"events"`
	Tracing TracingConfig  `json:"tracing" yaml:"tracing" mapstructure:"tracing"`
	// Policy is decoded from the raw document so tool names keep their case.
	Policy *policy.Config `json:"policy,omitempty" yaml:"policy,omitempty" mapstructure:"-"`
}

// StoreConfig selects the checkpoint backend.
type StoreConfig struct {
	Type string `json:"type" yaml:"type" mapstructure:"type"`
	// URL is the fs store base location (any afs URL).
	URL string `json:"url,omitempty" yaml:"url,omitempty" mapstructure:"url"`
	// DSN is the sqlite or postgres data source name.
	DSN   string      `json:"dsn,omitempty" yaml:"dsn,omitempty" mapstructure:"dsn"`
	Redis RedisConfig `json:"redis" yaml:"redis" mapstructure:"redis"`
}

// RedisConfig describes the Redis connection used by the redis store and
// the event notifier.
type RedisConfig struct {
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty" mapstructure:"addr"`
	Password string `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`
	DB       int    `json:"db" yaml:"db" mapstructure:"db"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty" mapstructure:"prefix"`
}

// GateConfig tunes checkpoint persistence.
type GateConfig struct {
	RetryAttempts uint          `json:"retryAttempts" yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `json:"retryDelay" yaml:"retry_delay" mapstructure:"retry_delay"`
	// TTL sets an optional decision deadline; zero means none.
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

// RunnerConfig bounds agent runs.
type RunnerConfig struct {
	MaxSteps int `json:"maxSteps" yaml:"max_steps" mapstructure:"max_steps"`
}

// APIConfig configures the reviewer HTTP API.
type APIConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
	// JWTSecret enables HS256 bearer authentication when set.
	JWTSecret string  `json:"-" yaml:"jwt_secret,omitempty" mapstructure:"jwt_secret"`
	RateLimit float64 `json:"rateLimit" yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst int     `json:"rateBurst" yaml:"rate_burst" mapstructure:"rate_burst"`
}

// EventsConfig configures the approval event feed.
type EventsConfig struct {
	QueueBuffer int `json:"queueBuffer" yaml:"queue_buffer" mapstructure:"queue_buffer"`
	// RedisChannel republishes events on Redis pub/sub when set; requires
	// store.redis.addr.
	RedisChannel string `json:"redisChannel,omitempty" yaml:"redis_channel,omitempty" mapstructure:"redis_channel"`
}

// TracingConfig enables OpenTelemetry spans.
type TracingConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	ServiceName string `json:"serviceName" yaml:"service_name" mapstructure:"service_name"`
	// Output is a trace file; empty writes to stdout.
	Output string `json:"output,omitempty" yaml:"output,omitempty" mapstructure:"output"`
}

// DefaultConfig returns the configuration used when nothing is supplied:
// an in-memory store and full review for every tool.
func DefaultConfig() *Config {
	return &Config{
		Logging: logging.Config{Level: "info", Format: "json"},
		Store:   StoreConfig{Type: StoreMemory},
		Gate:    GateConfig{RetryAttempts: 3, RetryDelay: 50 * time.Millisecond},
		Runner:  RunnerConfig{MaxSteps: runner.DefaultMaxSteps},
		API:     APIConfig{Addr: ":8080", RateLimit: 20, RateBurst: 40},
		Events:  EventsConfig{QueueBuffer: 1000},
		Tracing: TracingConfig{ServiceName: "hitl"},
		Policy:  &policy.Config{},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	switch c.Store.Type {
	case StoreMemory:
	case StoreFS:
		if c.Store.URL == "" {
			errs = append(errs, errors.New("store.url is required for the fs store"))
		}
	case StoreSQLite, StorePostgres:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for the %s store", c.Store.Type))
		}
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.type %q", c.Store.Type))
	}
	if c.Gate.RetryAttempts == 0 {
		errs = append(errs, errors.New("gate.retry_attempts must be > 0"))
	}
	if c.Runner.MaxSteps <= 0 {
		errs = append(errs, errors.New("runner.max_steps must be > 0"))
	}
	if c.Events.QueueBuffer <= 0 {
		errs = append(errs, errors.New("events.queue_buffer must be > 0"))
	}
	if c.Events.RedisChannel != "" && c.Store.Redis.Addr == "" {
		errs = append(errs, errors.New("events.redis_channel requires store.redis.addr"))
	}
	if _, err := c.Policy.Registry(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %v", model.ErrConfig, errors.Join(errs...))
}

// LoadConfig reads a YAML file (optional when path is empty) on top of
// DefaultConfig and applies HITL_* environment overrides, e.g.
// HITL_STORE_TYPE=sqlite or HITL_API_JWT_SECRET=... The file may reference
// the environment as ${env.KEY}.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	var data []byte
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", model.ErrConfig, path, err)
		}
		data = yml.ExpandEnv(data)
		if err = v.ReadConfig(strings.NewReader(string(data))); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", model.ErrConfig, path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: decode config: %v", model.ErrConfig, err)
	}
	policies, err := decodePolicy(data)
	if err != nil {
		return nil, err
	}
	cfg.Policy = policies
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodePolicy(data []byte) (*policy.Config, error) {
	root, err := yml.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfig, err)
	}
	ret := &policy.Config{}
	if node := root.Path("policy"); node != nil {
		if err = node.Decode(ret); err != nil {
			return nil, fmt.Errorf("%w: policy: %v", model.ErrConfig, err)
		}
	}
	return ret, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("store.type", cfg.Store.Type)
	v.SetDefault("store.url", cfg.Store.URL)
	v.SetDefault("store.dsn", cfg.Store.DSN)
	v.SetDefault("store.redis.addr", cfg.Store.Redis.Addr)
	v.SetDefault("store.redis.password", cfg.Store.Redis.Password)
	v.SetDefault("store.redis.db", cfg.Store.Redis.DB)
	v.SetDefault("store.redis.prefix", cfg.Store.Redis.Prefix)
	v.SetDefault("gate.retry_attempts", cfg.Gate.RetryAttempts)
	v.SetDefault("gate.retry_delay", cfg.Gate.RetryDelay)
	v.SetDefault("gate.ttl", cfg.Gate.TTL)
	v.SetDefault("runner.max_steps", cfg.Runner.MaxSteps)
	v.SetDefault("api.addr", cfg.API.Addr)
	v.SetDefault("api.jwt_secret", cfg.API.JWTSecret)
	v.SetDefault("api.rate_limit", cfg.API.RateLimit)
	v.SetDefault("api.rate_burst", cfg.API.RateBurst)
	v.SetDefault("events.queue_buffer", cfg.Events.QueueBuffer)
	v.SetDefault("events.redis_channel", cfg.Events.RedisChannel)
	v.SetDefault("tracing.enabled", cfg.Tracing.Enabled)
	v.SetDefault("tracing.service_name", cfg.Tracing.ServiceName)
	v.SetDefault("tracing.output", cfg.Tracing.Output)
}
