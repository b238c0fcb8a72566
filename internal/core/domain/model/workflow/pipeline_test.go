package workflow_test

import (
	"context"
	"testing"
	"time"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/model/workflow"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, workflow.StageInput) error { return nil }

func stage(name string, weight int) workflow.Stage {
	return workflow.Stage{Name: name, Weight: weight, Operation: noop, Timeout: time.Second, MaxRetries: 3}
}

func defaultPipeline(t *testing.T) workflow.Pipeline {
	t.Helper()
	ops := workflow.StageOperations{
		Validate:           noop,
		Payment:            noop,
		RestaurantNotify:   noop,
		DeliveryAssignment: noop,
		Confirmation:       noop,
	}
	p, err := workflow.NewPipeline(workflow.DefaultStages(ops, nil, workflow.StageSettings{Timeout: time.Second, MaxRetries: 3})...)
	require.NoError(t, err)
	return p
}

func TestDefaultStages(t *testing.T) {
	p := defaultPipeline(t)

	require.Equal(t, 5, p.Len())
	assert.Equal(t, []string{"validate", "payment", "restaurant_notify", "delivery_assignment", "confirmation"}, p.Names())
	for i, want := range []int{20, 40, 60, 80, 100} {
		assert.Equal(t, want, p.CumulativeWeight(i))
	}
	assert.Equal(t, order.Confirmed, p.Stage(4).Reaches)
	assert.Equal(t, order.Unknown, p.Stage(1).Reaches)
}

func TestDefaultStages_Settings(t *testing.T) {
	ops := workflow.StageOperations{Validate: noop, Payment: noop, RestaurantNotify: noop, DeliveryAssignment: noop, Confirmation: noop}
	settings := map[string]workflow.StageSettings{
		workflow.StagePayment: {Timeout: 30 * time.Second, MaxRetries: 5},
	}

	stages := workflow.DefaultStages(ops, settings, workflow.StageSettings{Timeout: time.Second, MaxRetries: 3})

	assert.Equal(t, 30*time.Second, stages[1].Timeout)
	assert.Equal(t, 5, stages[1].MaxRetries)
	assert.Equal(t, 3, stages[0].MaxRetries)
}

func TestNewPipeline(t *testing.T) {
	t.Run("should accept uneven weights summing to 100", func(t *testing.T) {
		p, err := workflow.NewPipeline(stage("a", 10), stage("b", 70), stage("c", 20))

		require.NoError(t, err)
		require.NoError(t, p.Validate())
		assert.Equal(t, 80, p.CumulativeWeight(1))
	})

	t.Run("should reject an empty pipeline", func(t *testing.T) {
		_, err := workflow.NewPipeline()

		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrValueIsRequired)
	})

	t.Run("should reject weights not summing to 100", func(t *testing.T) {
		_, err := workflow.NewPipeline(stage("a", 50), stage("b", 40))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "weights sum to 90, want 100")
	})

	t.Run("should reject duplicate names", func(t *testing.T) {
		_, err := workflow.NewPipeline(stage("a", 50), stage("a", 50))

		require.Error(t, err)
		assert.Contains(t, err.Error(), `"a" is used more than once`)
	})

	t.Run("should reject invalid stages", func(t *testing.T) {
		bad := stage("a", 100)
		bad.Timeout = 0
		bad.MaxRetries = 0

		_, err := workflow.NewPipeline(bad)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "a timeout")
	})

	t.Run("should reject a missing operation", func(t *testing.T) {
		bad := stage("a", 100)
		bad.Operation = nil

		_, err := workflow.NewPipeline(bad)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "a operation")
	})

	t.Run("should let an earlier stage confirm", func(t *testing.T) {
		first := stage("a", 50)
		first.Reaches = order.Confirmed

		p, err := workflow.NewPipeline(first, stage("b", 50))

		require.NoError(t, err)
		assert.Equal(t, order.Confirmed, p.Stage(0).Reaches)
	})

	t.Run("should reject two confirming stages", func(t *testing.T) {
		first := stage("a", 50)
		first.Reaches = order.Confirmed
		second := stage("b", 50)
		second.Reaches = order.Confirmed

		_, err := workflow.NewPipeline(first, second)

		require.Error(t, err)
		assert.Contains(t, err.Error(), `confirmed is already reached by "a"`)
	})

	t.Run("should reject statuses past confirmed", func(t *testing.T) {
		last := stage("a", 100)
		last.Reaches = order.Preparing

		_, err := workflow.NewPipeline(last)

		require.Error(t, err)
	})

	t.Run("zero value is not constructed", func(t *testing.T) {
		assert.ErrorIs(t, workflow.Pipeline{}.Validate(), workflow.ErrPipelineIsNotConstructed)
	})
}
