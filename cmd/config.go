package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"orderflow/internal/adapters/out/taskqueue"
	"orderflow/internal/core/application/engine"
	"orderflow/internal/core/domain/model/workflow"
	"orderflow/internal/jobs"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"

	RegistryDriverLocal = "local"
	RegistryDriverRedis = "redis"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is read from the environment (and an optional .env file).
type Config struct {
	HTTPPort       string `validate:"required,numeric"`
	StoreDriver    string `validate:"oneof=memory postgres"`
	RegistryDriver string `validate:"oneof=local redis"`

	DBHost     string `validate:"required_if=StoreDriver postgres"`
	DBPort     string `validate:"required_if=StoreDriver postgres"`
	DBUser     string `validate:"required_if=StoreDriver postgres"`
	DBPassword string
	DBName     string `validate:"required_if=StoreDriver postgres"`
	DBSslMode  string

	RedisAddr     string `validate:"required_if=RegistryDriver redis"`
	RedisPassword string
	RedisDB       int    `validate:"gte=0"`
	RedisChannel  string

	PipelineConfigPath string
}

func (c Config) Validate() error {
	return validate.Struct(c)
}

// DSN builds the postgres connection string.
func (c Config) DSN() string {
	sslMode := c.DBSslMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, sslMode)
}

// StageConfig tunes one pipeline stage.
type StageConfig struct {
	Timeout    time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxRetries int           `yaml:"max_retries" validate:"gte=1"`
}

type BackoffConfig struct {
	Base time.Duration `yaml:"base" validate:"gt=0"`
	Max  time.Duration `yaml:"max" validate:"gtefield=Base"`
}

type PoolConfig struct {
	Concurrency int     `yaml:"concurrency" validate:"gte=1"`
	QueueSize   int     `yaml:"queue_size" validate:"gte=0"`
	RateLimit   float64 `yaml:"rate_limit" validate:"gte=0"`
	Burst       int     `yaml:"burst" validate:"gte=0"`
}

type SimulatorConfig struct {
	Latency     map[string]time.Duration `yaml:"latency" validate:"dive,keys,oneof=validate payment restaurant_notify delivery_assignment confirmation,endkeys,gte=0"`
	FailureRate float64                  `yaml:"failure_rate" validate:"gte=0,lte=1"`
}

type JobsConfig struct {
	LauncherSchedule  string        `yaml:"launcher_schedule" validate:"required"`
	LauncherBatchSize int           `yaml:"launcher_batch_size" validate:"gte=1,lte=1000"`
	CleanupSchedule   string        `yaml:"cleanup_schedule" validate:"required"`
	Retention         time.Duration `yaml:"retention" validate:"gt=0"`
}

// PipelineConfig is the YAML file that tunes the workflow engine.
//
// Example:
//
//	defaults:
//	  timeout: 30s
//	  max_retries: 3
//	stages:
//	  payment:
//	    timeout: 1m
//	    max_retries: 5
//	backoff:
//	  base: 1s
//	  max: 1m
type PipelineConfig struct {
	Defaults       StageConfig            `yaml:"defaults"`
	Stages         map[string]StageConfig `yaml:"stages" validate:"dive,keys,oneof=validate payment restaurant_notify delivery_assignment confirmation,endkeys"`
	Backoff        BackoffConfig          `yaml:"backoff"`
	PersistTimeout time.Duration          `yaml:"persist_timeout" validate:"gt=0"`
	ClaimTTL       time.Duration          `yaml:"claim_ttl" validate:"gte=0"`
	Pool           PoolConfig             `yaml:"pool"`
	Simulator      SimulatorConfig        `yaml:"simulator"`
	Jobs           JobsConfig             `yaml:"jobs"`
}

// DefaultPipelineConfig is used when no file is configured. Fields missing
// from a file keep these values.
func DefaultPipelineConfig() PipelineConfig {
	engineDefaults := engine.DefaultConfig()
	return PipelineConfig{
		Defaults: StageConfig{Timeout: 30 * time.Second, MaxRetries: 3},
		Backoff: BackoffConfig{
			Base: engineDefaults.BackoffBase,
			Max:  engineDefaults.BackoffMax,
		},
		PersistTimeout: engineDefaults.PersistTimeout,
		Pool:           PoolConfig{Concurrency: 10, QueueSize: 100},
		Jobs: JobsConfig{
			LauncherSchedule:  "@every 5s",
			LauncherBatchSize: 50,
			CleanupSchedule:   "0 0 * * * *",
			Retention:         7 * 24 * time.Hour,
		},
	}
}

// LoadPipelineConfig reads and validates the YAML file at path. An empty
// path yields DefaultPipelineConfig.
func LoadPipelineConfig(path string) (PipelineConfig, error) {
	cfg := DefaultPipelineConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return PipelineConfig{}, fmt.Errorf("read pipeline config: %w", err)
	}
	if err = yaml.Unmarshal(raw, &cfg); err != nil {
		return PipelineConfig{}, fmt.Errorf("parse pipeline config %s: %w", path, err)
	}
	if err = cfg.Validate(); err != nil {
		return PipelineConfig{}, fmt.Errorf("invalid pipeline config %s: %w", path, err)
	}
	return cfg, nil
}

func (c PipelineConfig) Validate() error {
	return validate.Struct(c)
}

// Pipeline builds the default five-stage pipeline with the configured
// timeouts and retry limits.
func (c PipelineConfig) Pipeline(ops workflow.StageOperations) (workflow.Pipeline, error) {
	settings := make(map[string]workflow.StageSettings, len(c.Stages))
	for name, s := range c.Stages {
		settings[name] = workflow.StageSettings{Timeout: s.Timeout, MaxRetries: s.MaxRetries}
	}
	fallback := workflow.StageSettings{Timeout: c.Defaults.Timeout, MaxRetries: c.Defaults.MaxRetries}
	return workflow.NewPipeline(workflow.DefaultStages(ops, settings, fallback)...)
}

func (c PipelineConfig) EngineConfig() engine.Config {
	return engine.Config{
		BackoffBase:    c.Backoff.Base,
		BackoffMax:     c.Backoff.Max,
		PersistTimeout: c.PersistTimeout,
	}
}

func (c PipelineConfig) PoolOptions() []taskqueue.Option {
	return []taskqueue.Option{
		taskqueue.WithConcurrency(c.Pool.Concurrency),
		taskqueue.WithQueueSize(c.Pool.QueueSize),
		taskqueue.WithRateLimit(c.Pool.RateLimit, c.Pool.Burst),
	}
}

func (c PipelineConfig) JobSchedule() jobs.Config {
	return jobs.Config{
		LauncherSchedule:  c.Jobs.LauncherSchedule,
		LauncherBatchSize: c.Jobs.LauncherBatchSize,
		CleanupSchedule:   c.Jobs.CleanupSchedule,
		Retention:         c.Jobs.Retention,
	}
}
