// Package scheduler polls the booking window until it opens.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/spinbook/internal/domain/booking"
)

// Gate checks the window immediately and then on every tick, so a run
// triggered slightly early still fires as soon as the window opens.
type Gate struct {
	Window   booking.Window
	Interval time.Duration
	// MaxChecks bounds how many times the window is checked. Zero means
	// poll until the context is done.
	MaxChecks int
	// NoWait makes a closed window fail on the first check.
	NoWait bool

	Clock func() time.Time
	Log   *zap.Logger
}

func (g *Gate) now() time.Time {
	if g.Clock == nil {
		return time.Now()
	}
	return g.Clock()
}

func (g *Gate) logger() *zap.Logger {
	if g.Log == nil {
		return zap.NewNop()
	}
	return g.Log.Named("gate")
}

// Wait returns nil once the window is open. Otherwise it returns an error
// wrapping booking.ErrGateNotOpen.
func (g *Gate) Wait(ctx context.Context) error {
	log := g.logger()
	checks := 0

	check := func() bool {
		checks++
		now := g.now()
		if g.Window.IsOpen(now) {
			log.Info("Booking window open.", zap.Time("now", now), zap.Int("checks", checks))
			return true
		}
		if checks == 1 {
			log.Info("Booking window closed, waiting.",
				zap.String("window", g.Window.String()),
				zap.Time("next_open", g.Window.NextOpen(now)))
		}
		return false
	}
	closed := func() error {
		return fmt.Errorf("%w: %s, next opening %s after %d checks", booking.ErrGateNotOpen,
			g.Window, g.Window.NextOpen(g.now()).Format(time.RFC3339), checks)
	}

	if check() {
		return nil
	}
	if g.NoWait || (g.MaxChecks > 0 && checks >= g.MaxChecks) {
		return closed()
	}

	interval := g.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", booking.ErrGateNotOpen, ctx.Err())
		case <-t.C:
			if check() {
				return nil
			}
			if g.MaxChecks > 0 && checks >= g.MaxChecks {
				return closed()
			}
		}
	}
}
