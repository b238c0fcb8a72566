package engine

import (
	"time"

	"github.com/go-playground/validator/v10"

	"orderflow/internal/core/domain/model/workflow"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config tunes an Engine.
type Config struct {
	BackoffBase time.Duration `validate:"gt=0"`
	BackoffMax  time.Duration `validate:"gtefield=BackoffBase"`
	// PersistTimeout bounds each write to the order store. Writes are
	// detached from the caller's and the engine's cancellation.
	PersistTimeout time.Duration `validate:"gt=0"`
}

// DefaultConfig mirrors the delays used in production.
func DefaultConfig() Config {
	return Config{
		BackoffBase:    time.Second,
		BackoffMax:     time.Minute,
		PersistTimeout: 5 * time.Second,
	}
}

func (c Config) Validate() error {
	return validate.Struct(c)
}

func (c Config) backoff() workflow.BackoffPolicy {
	return workflow.BackoffPolicy{Base: c.BackoffBase, Max: c.BackoffMax}
}
