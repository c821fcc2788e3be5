package guard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joefazee/settlement/models"
)

func TestGuard_Acquire(t *testing.T) {
	t.Run("second acquisition is rejected", func(t *testing.T) {
		g := New()
		release, err := g.Acquire()
		require.NoError(t, err)
		assert.True(t, g.Locked())

		_, err = g.Acquire()
		assert.ErrorIs(t, err, models.ErrReentrancyGuardActive)

		release()
		assert.False(t, g.Locked())
	})

	t.Run("release is idempotent", func(t *testing.T) {
		g := New()
		release, err := g.Acquire()
		require.NoError(t, err)
		release()

		second, err := g.Acquire()
		require.NoError(t, err)

		release()
		assert.True(t, g.Locked(), "stale release must not clear a newer acquisition")

		second()
		assert.False(t, g.Locked())
	})
}

func TestRun(t *testing.T) {
	t.Run("releases after error", func(t *testing.T) {
		g := New()
		boom := errors.New("transfer failed")
		err := Run(g, func() error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.False(t, g.Locked())
	})

	t.Run("releases after panic", func(t *testing.T) {
		g := New()
		assert.Panics(t, func() {
			_ = Run(g, func() error { panic("boom") })
		})
		assert.False(t, g.Locked())
	})

	t.Run("nested run is rejected", func(t *testing.T) {
		g := New()
		var inner error
		err := Run(g, func() error {
			inner = Run(g, func() error { return nil })
			return nil
		})
		assert.NoError(t, err)
		assert.ErrorIs(t, inner, models.ErrReentrancyGuardActive)
		assert.False(t, g.Locked())
	})
}
