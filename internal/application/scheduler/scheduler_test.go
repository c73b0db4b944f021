package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/example/spinbook/internal/domain/booking"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var window = booking.Window{Day: time.Monday, Start: 12 * time.Hour, End: 13 * time.Hour, Loc: time.UTC}

// clock returns the given instants in order and repeats the last one.
func clock(ts ...time.Time) (func() time.Time, *int32) {
	var calls int32
	return func() time.Time {
		i := int(atomic.AddInt32(&calls, 1)) - 1
		if i >= len(ts) {
			i = len(ts) - 1
		}
		return ts[i]
	}, &calls
}

var (
	mondayBefore = time.Date(2026, 10, 12, 11, 59, 59, 0, time.UTC)
	mondayOpen   = time.Date(2026, 10, 12, 12, 0, 1, 0, time.UTC)
	tuesday      = time.Date(2026, 10, 13, 12, 30, 0, 0, time.UTC)
)

func TestGateOpenImmediately(t *testing.T) {
	c, _ := clock(mondayOpen)
	g := &Gate{Window: window, Interval: time.Hour, Clock: c}
	require.NoError(t, g.Wait(context.Background()))
}

func TestGateNoWait(t *testing.T) {
	c, _ := clock(tuesday)
	g := &Gate{Window: window, Interval: time.Hour, NoWait: true, Clock: c}
	err := g.Wait(context.Background())
	require.ErrorIs(t, err, booking.ErrGateNotOpen)
	assert.Contains(t, err.Error(), "2026-10-19T12:00:00Z")
}

func TestGateOpensWhilePolling(t *testing.T) {
	c, _ := clock(mondayBefore, mondayBefore, mondayOpen)
	g := &Gate{Window: window, Interval: time.Millisecond, Clock: c}
	require.NoError(t, g.Wait(context.Background()))
}

func TestGateGivesUpAfterMaxChecks(t *testing.T) {
	c, _ := clock(tuesday)
	g := &Gate{Window: window, Interval: time.Millisecond, MaxChecks: 3, Clock: c}
	err := g.Wait(context.Background())
	require.ErrorIs(t, err, booking.ErrGateNotOpen)
	assert.Contains(t, err.Error(), "after 3 checks")
}

func TestGateCancelled(t *testing.T) {
	c, _ := clock(tuesday)
	g := &Gate{Window: window, Interval: time.Hour, Clock: c}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	err := g.Wait(ctx)
	assert.ErrorIs(t, err, booking.ErrGateNotOpen)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
