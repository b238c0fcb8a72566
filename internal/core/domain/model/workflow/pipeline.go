package workflow

import (
	"errors"
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
)

// Stage names of the default order pipeline.
const (
	StageValidate           = "validate"
	StagePayment            = "payment"
	StageRestaurantNotify   = "restaurant_notify"
	StageDeliveryAssignment = "delivery_assignment"
	StageConfirmation       = "confirmation"
)

var ErrPipelineIsNotConstructed = errors.New("Pipeline must be created via NewPipeline constructor")

// Pipeline is an immutable, validated sequence of stages whose weights sum
// to exactly 100.
type Pipeline struct {
	stages     []Stage
	cumulative []int
}

// NewPipeline validates the stages and precomputes cumulative progress.
//
// At most one stage may change the customer-visible status, and only to
// order.Confirmed, since later statuses require a completed workflow.
func NewPipeline(stages ...Stage) (Pipeline, error) {
	if len(stages) == 0 {
		return Pipeline{}, errs.NewValueIsRequiredError("pipeline stages")
	}

	var (
		problems   []error
		seen       = make(map[string]struct{}, len(stages))
		total      int
		confirming string
	)
	cumulative := make([]int, len(stages))
	for i, s := range stages {
		if err := s.Validate(); err != nil {
			problems = append(problems, err)
			continue
		}
		if _, dup := seen[s.Name]; dup {
			problems = append(problems, errs.NewValueIsInvalidErrorWithCause(
				"stage name", fmt.Errorf("%q is used more than once", s.Name)))
		}
		seen[s.Name] = struct{}{}

		switch {
		case s.Reaches == order.Unknown:
		case s.Reaches != order.Confirmed:
			problems = append(problems, errs.NewValueIsInvalidErrorWithCause(
				s.Name+" status",
				fmt.Errorf("stages may only reach %s, got %s", order.Confirmed, s.Reaches)))
		case confirming != "":
			problems = append(problems, errs.NewValueIsInvalidErrorWithCause(
				s.Name+" status",
				fmt.Errorf("%s is already reached by %q", order.Confirmed, confirming)))
		default:
			confirming = s.Name
		}

		total += s.Weight
		cumulative[i] = total
	}
	if len(problems) == 0 && total != order.MaxProgress {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause(
			"pipeline weights", fmt.Errorf("weights sum to %d, want %d", total, order.MaxProgress)))
	}
	if err := errors.Join(problems...); err != nil {
		return Pipeline{}, err
	}

	return Pipeline{
		stages:     append([]Stage(nil), stages...),
		cumulative: cumulative,
	}, nil
}

func (p Pipeline) Validate() error {
	if len(p.stages) == 0 {
		return ErrPipelineIsNotConstructed
	}
	return nil
}

// Len returns the number of stages.
func (p Pipeline) Len() int { return len(p.stages) }

// Stage returns the i-th stage. It panics when i is out of range.
func (p Pipeline) Stage(i int) Stage { return p.stages[i] }

// CumulativeWeight is the progress reached once stage i committed.
func (p Pipeline) CumulativeWeight(i int) int { return p.cumulative[i] }

// Names lists stage names in execution order.
func (p Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// StageOperations binds the five default stage names to their work.
type StageOperations struct {
	Validate           Operation
	Payment            Operation
	RestaurantNotify   Operation
	DeliveryAssignment Operation
	Confirmation       Operation
}

// StageSettings are the per-stage knobs shared by DefaultStages.
type StageSettings struct {
	Timeout    time.Duration
	MaxRetries int
}

// DefaultStages is the five-stage order pipeline with equal weights
// (cumulative 20, 40, 60, 80, 100). The confirmation stage confirms the order.
func DefaultStages(ops StageOperations, settings map[string]StageSettings, fallback StageSettings) []Stage {
	build := func(name string, op Operation, reaches order.Status) Stage {
		s, ok := settings[name]
		if !ok {
			s = fallback
		}
		return Stage{
			Name:       name,
			Weight:     20,
			Operation:  op,
			Timeout:    s.Timeout,
			MaxRetries: s.MaxRetries,
			Reaches:    reaches,
		}
	}
	return []Stage{
		build(StageValidate, ops.Validate, order.Unknown),
		build(StagePayment, ops.Payment, order.Unknown),
		build(StageRestaurantNotify, ops.RestaurantNotify, order.Unknown),
		build(StageDeliveryAssignment, ops.DeliveryAssignment, order.Unknown),
		build(StageConfirmation, ops.Confirmation, order.Confirmed),
	}
}
