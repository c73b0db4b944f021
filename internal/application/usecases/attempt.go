package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/spinbook/internal/domain/booking"
	"github.com/example/spinbook/internal/domain/ui"
)

// Gate blocks until the booking window opens or reports ErrGateNotOpen.
type Gate interface {
	Wait(ctx context.Context) error
}

// Launcher starts a fresh browser tab.
type Launcher func(ctx context.Context) (ui.Driver, error)

const recordTimeout = 10 * time.Second

// Attempt is one end-to-end run: gate, login, book, record.
type Attempt struct {
	Gate     Gate
	Launch   Launcher
	Auth     *SessionController
	Booker   *Orchestrator
	Reporter booking.Reporter
	Request  booking.Request
	Creds    booking.Credentials

	// Prelaunch starts the browser before waiting on the gate so the first
	// click after opening is not delayed by browser start-up.
	Prelaunch bool

	Clock func() time.Time
	NewID func() string
	Log   *zap.Logger
}

func (a *Attempt) now() time.Time {
	if a.Clock == nil {
		return time.Now()
	}
	return a.Clock()
}

func (a *Attempt) logger() *zap.Logger {
	if a.Log == nil {
		return zap.NewNop()
	}
	return a.Log
}

// Run executes the attempt and always records exactly one AttemptRecord.
func (a *Attempt) Run(ctx context.Context) booking.Outcome {
	log := a.logger()
	started := a.now()
	outcome := a.run(ctx)

	rec := booking.AttemptRecord{
		ID:        a.newID(),
		Timestamp: started,
		Location:  a.Request.Location,
		Session:   a.Request.Session.Label(),
		Seat:      outcome.Seat,
		Outcome:   outcome.Kind,
		Step:      outcome.Step,
		Detail:    outcome.Detail,
		Duration:  a.now().Sub(started),
	}
	if rec.Seat == "" && len(a.Request.Seats) > 0 {
		rec.Seat = a.Request.Seats[0]
	}

	log.Info("Attempt finished.",
		zap.String("id", rec.ID),
		zap.String("outcome", string(outcome.Kind)),
		zap.String("step", outcome.Step),
		zap.String("seat", outcome.Seat),
		zap.Duration("duration", rec.Duration))

	if a.Reporter != nil {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		if err := a.Reporter.Record(rctx, rec); err != nil {
			log.Error("Failed to record attempt.", zap.String("id", rec.ID), zap.Error(err))
		}
	}
	return outcome
}

func (a *Attempt) newID() string {
	if a.NewID != nil {
		return a.NewID()
	}
	return uuid.NewString()
}

func (a *Attempt) run(ctx context.Context) booking.Outcome {
	if a.Launch == nil || a.Auth == nil || a.Booker == nil {
		return booking.Classify(errors.New("attempt is missing a launcher, session controller or orchestrator"))
	}

	if !a.Prelaunch {
		if err := a.waitGate(ctx); err != nil {
			return booking.Classify(err)
		}
	}

	gated := !a.Prelaunch
	raw, err := a.Launch(ctx)
	if err != nil && a.Prelaunch {
		// A failed early start must not hide a closed window: wait for it,
		// then try once more.
		a.logger().Warn("Browser prelaunch failed, retrying once the window opens.", zap.Error(err))
		if gerr := a.waitGate(ctx); gerr != nil {
			return booking.Classify(gerr)
		}
		gated = true
		raw, err = a.Launch(ctx)
	}
	if err != nil {
		return booking.Classify(fmt.Errorf("%w: launch browser: %w", booking.ErrDriverFatal, err))
	}
	drv := closeOnce(raw)
	defer func() {
		if err := drv.Close(); err != nil {
			a.logger().Warn("Failed to close browser.", zap.Error(err))
		}
	}()

	if !gated {
		if err := a.waitGate(ctx); err != nil {
			return booking.Classify(err)
		}
	}

	sess, err := a.Auth.Authenticate(ctx, drv, a.Creds)
	if err != nil {
		return booking.Classify(err)
	}
	return a.Booker.Execute(ctx, sess, a.Request)
}

func (a *Attempt) waitGate(ctx context.Context) error {
	if a.Gate == nil {
		return nil
	}
	return a.Gate.Wait(ctx)
}
