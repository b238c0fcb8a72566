package order_test

import (
	"fmt"
	"testing"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Constants(t *testing.T) {
	t.Run("should have correct enum values", func(t *testing.T) {
		assert.Equal(t, 0, int(order.Unknown))
		assert.Equal(t, 1, int(order.Pending))
		assert.Equal(t, 2, int(order.Confirmed))
		assert.Equal(t, 3, int(order.Preparing))
		assert.Equal(t, 4, int(order.Ready))
		assert.Equal(t, 5, int(order.OutForDelivery))
		assert.Equal(t, 6, int(order.Delivered))
		assert.Equal(t, 7, int(order.Cancelled))
		assert.Equal(t, 8, int(order.Failed))
	})
}

func TestStatus_StringAndParse(t *testing.T) {
	names := map[order.Status]string{
		order.Pending:        "pending",
		order.Confirmed:      "confirmed",
		order.Preparing:      "preparing",
		order.Ready:          "ready",
		order.OutForDelivery: "out_for_delivery",
		order.Delivered:      "delivered",
		order.Cancelled:      "cancelled",
		order.Failed:         "failed",
	}

	for status, name := range names {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, name, status.String())

			parsed, err := order.ParseStatus(name)
			require.NoError(t, err)
			assert.Equal(t, status, parsed)
		})
	}

	t.Run("should print unknown for invalid values", func(t *testing.T) {
		assert.Equal(t, "unknown", order.Unknown.String())
		assert.Equal(t, "unknown", order.Status(42).String())
	})

	t.Run("should reject unknown names", func(t *testing.T) {
		_, err := order.ParseStatus("shipped")

		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrValueIsInvalid)
		assert.Contains(t, err.Error(), `"shipped" is not a valid status`)
	})
}

func TestStatus_Validate(t *testing.T) {
	t.Run("should reject Unknown", func(t *testing.T) {
		err := order.Unknown.Validate()

		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("should reject out of range", func(t *testing.T) {
		require.Error(t, order.Status(-1).Validate())
		require.Error(t, order.Status(9).Validate())
	})

	t.Run("should accept every named status", func(t *testing.T) {
		for s := order.Pending; s <= order.Failed; s++ {
			require.NoError(t, s.Validate(), s.String())
		}
	})
}

func TestStatus_IsTerminal(t *testing.T) {
	terminal := map[order.Status]bool{
		order.Pending:        false,
		order.Confirmed:      false,
		order.Preparing:      false,
		order.Ready:          false,
		order.OutForDelivery: false,
		order.Delivered:      true,
		order.Cancelled:      true,
		order.Failed:         true,
	}

	for status, want := range terminal {
		assert.Equal(t, want, status.IsTerminal(), status.String())
	}
}

func TestStatus_Advance(t *testing.T) {
	path := []order.Status{
		order.Pending,
		order.Confirmed,
		order.Preparing,
		order.Ready,
		order.OutForDelivery,
		order.Delivered,
	}

	t.Run("should move one step at a time", func(t *testing.T) {
		for i := 0; i < len(path)-1; i++ {
			next, err := path[i].Advance(path[i+1])

			require.NoError(t, err)
			assert.Equal(t, path[i+1], next)
		}
	})

	t.Run("should reject skipping a step", func(t *testing.T) {
		_, err := order.Pending.Advance(order.Preparing)

		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrValueIsInvalid)
		assert.Contains(t, err.Error(), "pending cannot advance to preparing")
	})

	t.Run("should reject moving backwards", func(t *testing.T) {
		for i := 1; i < len(path)-1; i++ {
			for j := 0; j < i; j++ {
				t.Run(fmt.Sprintf("%s to %s", path[i], path[j]), func(t *testing.T) {
					_, err := path[i].Advance(path[j])
					require.Error(t, err)
				})
			}
		}
	})

	t.Run("should reject advancing from terminal statuses", func(t *testing.T) {
		for _, s := range []order.Status{order.Delivered, order.Cancelled, order.Failed} {
			_, err := s.Advance(order.Pending)
			require.Error(t, err, s.String())
		}
	})

	t.Run("should reject advancing into cancelled or failed", func(t *testing.T) {
		_, err := order.OutForDelivery.Advance(order.Cancelled)
		require.Error(t, err)

		_, err = order.Delivered.Advance(order.Failed)
		require.Error(t, err)
	})

	t.Run("should return Unknown with the error", func(t *testing.T) {
		next, err := order.Confirmed.Advance(order.Ready)

		require.Error(t, err)
		assert.Equal(t, order.Unknown, next)
	})
}

func TestStatus_CancelAndFail(t *testing.T) {
	nonTerminal := []order.Status{
		order.Pending,
		order.Confirmed,
		order.Preparing,
		order.Ready,
		order.OutForDelivery,
	}

	for _, s := range nonTerminal {
		t.Run("from "+s.String(), func(t *testing.T) {
			cancelled, err := s.Cancel()
			require.NoError(t, err)
			assert.Equal(t, order.Cancelled, cancelled)

			failed, err := s.Fail()
			require.NoError(t, err)
			assert.Equal(t, order.Failed, failed)
		})
	}

	for _, s := range []order.Status{order.Delivered, order.Cancelled, order.Failed} {
		t.Run("rejected from "+s.String(), func(t *testing.T) {
			_, err := s.Cancel()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "is not a valid status to cancel")

			_, err = s.Fail()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "is not a valid status to fail")
		})
	}

	t.Run("rejected from Unknown", func(t *testing.T) {
		next, err := order.Unknown.Cancel()
		require.Error(t, err)
		assert.Equal(t, order.Unknown, next)

		next, err = order.Unknown.Fail()
		require.Error(t, err)
		assert.Equal(t, order.Unknown, next)
		assert.False(t, order.Unknown.IsTerminal())
	})
}
