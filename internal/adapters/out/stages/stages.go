// Package stages implements the five order pipeline operations against
// simulated partners. Each operation takes a configurable latency and
// returns as soon as its context is done.
package stages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"orderflow/internal/core/domain/model/workflow"
	"orderflow/internal/pkg/errs"
)

var ErrPartnerUnavailable = errors.New("partner unavailable")

// DefaultLatency is the simulated duration of each stage.
var DefaultLatency = map[string]time.Duration{
	workflow.StageValidate:           2 * time.Second,
	workflow.StagePayment:            3 * time.Second,
	workflow.StageRestaurantNotify:   2 * time.Second,
	workflow.StageDeliveryAssignment: 3 * time.Second,
	workflow.StageConfirmation:       time.Second,
}

type Simulator struct {
	logger      *slog.Logger
	latency     map[string]time.Duration
	failureRate float64
	roll        func() float64
}

type Option func(*Simulator)

// WithLatency overrides the latency of the named stages.
func WithLatency(latency map[string]time.Duration) Option {
	return func(s *Simulator) {
		for name, d := range latency {
			s.latency[name] = d
		}
	}
}

// WithFailureRate makes payment, restaurant notification and delivery
// assignment fail transiently with probability rate.
func WithFailureRate(rate float64) Option {
	return func(s *Simulator) { s.failureRate = rate }
}

func NewSimulator(logger *slog.Logger, opts ...Option) *Simulator {
	s := &Simulator{
		logger:  logger.With("component", "stage_simulator"),
		latency: make(map[string]time.Duration, len(DefaultLatency)),
		roll:    rand.Float64,
	}
	for name, d := range DefaultLatency {
		s.latency[name] = d
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Operations binds the simulator to the default pipeline.
func (s *Simulator) Operations() workflow.StageOperations {
	return workflow.StageOperations{
		Validate:           s.Validate,
		Payment:            s.ChargePayment,
		RestaurantNotify:   s.NotifyRestaurant,
		DeliveryAssignment: s.AssignDelivery,
		Confirmation:       s.SendConfirmations,
	}
}

// Validate checks the order can be fulfilled.
func (s *Simulator) Validate(ctx context.Context, in workflow.StageInput) error {
	if err := s.wait(ctx, workflow.StageValidate); err != nil {
		return err
	}
	if in.TotalAmount <= 0 {
		return errs.NewValueIsOutOfRangeError("total amount", in.TotalAmount, 1, int64(math.MaxInt64))
	}
	if strings.TrimSpace(in.DeliveryAddress) == "" {
		return errs.NewValueIsRequiredError("delivery address")
	}
	s.log(ctx, in, workflow.StageValidate)
	return nil
}

func (s *Simulator) ChargePayment(ctx context.Context, in workflow.StageInput) error {
	return s.partnerCall(ctx, in, workflow.StagePayment, "payment gateway")
}

func (s *Simulator) NotifyRestaurant(ctx context.Context, in workflow.StageInput) error {
	return s.partnerCall(ctx, in, workflow.StageRestaurantNotify, "restaurant "+in.RestaurantID.String())
}

func (s *Simulator) AssignDelivery(ctx context.Context, in workflow.StageInput) error {
	return s.partnerCall(ctx, in, workflow.StageDeliveryAssignment, "courier dispatch")
}

func (s *Simulator) SendConfirmations(ctx context.Context, in workflow.StageInput) error {
	if err := s.wait(ctx, workflow.StageConfirmation); err != nil {
		return err
	}
	s.log(ctx, in, workflow.StageConfirmation)
	return nil
}

func (s *Simulator) partnerCall(ctx context.Context, in workflow.StageInput, stage, partner string) error {
	if err := s.wait(ctx, stage); err != nil {
		return err
	}
	if s.failureRate > 0 && s.roll() < s.failureRate {
		return fmt.Errorf("%w: %s", ErrPartnerUnavailable, partner)
	}
	s.log(ctx, in, stage)
	return nil
}

func (s *Simulator) wait(ctx context.Context, stage string) error {
	d := s.latency[stage]
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Simulator) log(ctx context.Context, in workflow.StageInput, stage string) {
	s.logger.InfoContext(ctx, "stage done",
		"stage", stage,
		"order_id", in.OrderID.String(),
		"attempt", in.Attempt,
	)
}
