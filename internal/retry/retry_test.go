package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/example/spinbook/internal/domain/ui"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fast(attempts int) Policy {
	return Policy{MaxAttempts: attempts, Backoff: time.Millisecond}
}

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds on second attempt", func(t *testing.T) {
		var waits []int
		n, err := fast(3).Do(ctx, func(attempt int) error {
			if attempt == 1 {
				return fmt.Errorf("menu: %w", ui.ErrTimeout)
			}
			return nil
		}, func(attempt int, _ error, _ time.Duration) { waits = append(waits, attempt) })

		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []int{1}, waits)
	})

	t.Run("gives up after max attempts with last error", func(t *testing.T) {
		calls := 0
		n, err := fast(3).Do(ctx, func(attempt int) error {
			calls++
			return fmt.Errorf("attempt %d: %w", attempt, ui.ErrNotFound)
		}, nil)

		require.Error(t, err)
		assert.ErrorIs(t, err, ui.ErrNotFound)
		assert.Contains(t, err.Error(), "attempt 3")
		assert.Equal(t, 3, n)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		boom := errors.New("target closed")
		n, err := fast(5).Do(ctx, func(int) error { return boom }, nil)

		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, n)
	})

	t.Run("zero policy tries once", func(t *testing.T) {
		n, err := Policy{}.Do(ctx, func(int) error { return ui.ErrTimeout }, nil)
		assert.ErrorIs(t, err, ui.ErrTimeout)
		assert.Equal(t, 1, n)
	})

	t.Run("stops waiting when context is cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		p := Policy{MaxAttempts: 10, Backoff: time.Hour}
		n, err := p.Do(cctx, func(int) error {
			cancel()
			return ui.ErrTimeout
		}, nil)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, n)
	})

	t.Run("exponential schedule is capped", func(t *testing.T) {
		p := Policy{MaxAttempts: 4, Backoff: time.Millisecond, Multiplier: 10, MaxBackoff: 5 * time.Millisecond}
		var waits []time.Duration
		_, err := p.Do(ctx, func(int) error { return ui.ErrTimeout },
			func(_ int, _ error, d time.Duration) { waits = append(waits, d) })

		assert.ErrorIs(t, err, ui.ErrTimeout)
		assert.Equal(t, []time.Duration{time.Millisecond, 5 * time.Millisecond, 5 * time.Millisecond}, waits)
	})
}
