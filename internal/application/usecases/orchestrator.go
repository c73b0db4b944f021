package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/spinbook/internal/domain/booking"
	"github.com/example/spinbook/internal/domain/ui"
	"github.com/example/spinbook/internal/retry"
)

const seatPollInterval = 100 * time.Millisecond

const (
	StepLocation = "location"
	StepSession  = "session"
	StepSeat     = "seat"
)

// Orchestrator drives the post-login steps: pick the location, pick the
// session, pick a seat. Steps run strictly in order and the first failure
// ends the run.
type Orchestrator struct {
	Site     Site
	Timeouts Timeouts
	Retry    retry.Policy
	Log      *zap.Logger
}

func (o *Orchestrator) logger() *zap.Logger {
	if o.Log == nil {
		return zap.NewNop()
	}
	return o.Log.Named("booking")
}

// Execute runs the booking steps on an authenticated session.
func (o *Orchestrator) Execute(ctx context.Context, sess *Session, req booking.Request) booking.Outcome {
	log := o.logger()
	steps := []struct {
		name string
		run  func(context.Context, ui.Driver, booking.Request) (string, error)
	}{
		{StepLocation, o.selectLocation},
		{StepSession, o.selectSession},
		{StepSeat, o.selectSeat},
	}

	var seat string
	for _, s := range steps {
		started := time.Now()
		out, err := s.run(ctx, sess.Driver, req)
		if err != nil {
			outcome := booking.Classify(err)
			log.Warn("Booking step failed.",
				zap.String("step", s.name),
				zap.String("outcome", string(outcome.Kind)),
				zap.Error(err))
			return outcome
		}
		log.Info("Booking step done.", zap.String("step", s.name), zap.Duration("took", time.Since(started)))
		if s.name == StepSeat {
			seat = out
		}
	}
	return booking.Outcome{Kind: booking.OutcomeSuccess, Seat: seat, Detail: "booked " + seat}
}

// attempt runs op under the retry policy and converts exhaustion into a StepError.
func (o *Orchestrator) attempt(ctx context.Context, step string, sel ui.Selector, op func(ctx context.Context) error) error {
	log := o.logger()
	n, err := o.Retry.Do(ctx, func(int) error { return op(ctx) }, func(attempt int, err error, wait time.Duration) {
		log.Debug("Retrying.",
			zap.String("step", step),
			zap.String("selector", sel.String()),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
	if err == nil {
		return nil
	}
	return &booking.StepError{Step: step, Selector: sel.String(), Attempts: n, Err: err}
}

func (o *Orchestrator) waitFor(ctx context.Context, drv ui.Driver, step string, sel ui.Selector) (ui.Element, error) {
	var el ui.Element
	err := o.attempt(ctx, step, sel, func(ctx context.Context) error {
		var err error
		el, err = drv.WaitVisible(ctx, sel, o.Timeouts.withDefaults().Element)
		return err
	})
	return el, err
}

func (o *Orchestrator) reveal() ui.RevealStrategy {
	if o.Site.MenuReveal == nil {
		return ui.RevealHover
	}
	return o.Site.MenuReveal
}

func (o *Orchestrator) selectLocation(ctx context.Context, drv ui.Driver, req booking.Request) (string, error) {
	menu, err := o.waitFor(ctx, drv, StepLocation, o.Site.BookMenu)
	if err != nil {
		return "", err
	}
	item := o.Site.LocationItem.With(req.Location)
	reveal := o.reveal()
	t := o.Timeouts.withDefaults()
	// The dropdown can collapse between retries, so each attempt reveals it again.
	err = o.attempt(ctx, StepLocation, item, func(ctx context.Context) error {
		if err := reveal.Reveal(ctx, menu); err != nil {
			return fmt.Errorf("%s reveal: %w", reveal.Name(), err)
		}
		el, err := drv.WaitVisible(ctx, item, t.Element)
		if err != nil {
			return err
		}
		return el.Click(ctx)
	})
	return req.Location, err
}

// SessionSelector resolves the element that opens the requested session.
func (o *Orchestrator) SessionSelector(target booking.SessionTarget) (ui.Selector, error) {
	if target.Selector != "" {
		return ui.ParseSelector(target.Selector)
	}
	var b strings.Builder
	for _, part := range []string{target.Location, target.Instructor, target.Time, target.Duration} {
		if part == "" {
			continue
		}
		if b.Len() == 0 {
			fmt.Fprintf(&b, "//*[normalize-space(text())=%s]", ui.XPathLiteral(part))
			continue
		}
		fmt.Fprintf(&b, "/following-sibling::*[normalize-space(text())=%s][1]", ui.XPathLiteral(part))
	}
	if b.Len() > 0 {
		return ui.Selector{Kind: ui.XPath, Value: b.String()}, nil
	}
	if target.ID == "" {
		return ui.Selector{}, errors.New("session target is empty")
	}
	return o.Site.SessionItem.With(target.ID), nil
}

func (o *Orchestrator) selectSession(ctx context.Context, drv ui.Driver, req booking.Request) (string, error) {
	sel, err := o.SessionSelector(req.Session)
	if err != nil {
		return "", &booking.StepError{Step: StepSession, Err: err}
	}
	t := o.Timeouts.withDefaults()
	err = o.attempt(ctx, StepSession, sel, func(ctx context.Context) error {
		el, err := drv.WaitVisible(ctx, sel, t.Element)
		if err != nil {
			return err
		}
		return el.Click(ctx)
	})
	return req.Session.Label(), err
}

func (o *Orchestrator) selectSeat(ctx context.Context, drv ui.Driver, req booking.Request) (string, error) {
	log := o.logger()
	t := o.Timeouts.withDefaults()

	if err := o.awaitSeats(ctx, drv, req.Seats); err != nil {
		return "", err
	}

	// The map has rendered: a seat missing now is not offered for this class.
	elements := map[string]ui.Element{}
	check := func(seat string) (bool, error) {
		sel := o.Site.SeatItem.With(seat)
		el, err := drv.Find(ctx, sel)
		if err != nil {
			if ui.Transient(err) {
				log.Warn("Seat not found on the page.", zap.String("seat", seat))
				return false, nil
			}
			return false, err
		}
		free, reason, err := o.seatFree(ctx, el)
		if err != nil {
			return false, &booking.StepError{Step: StepSeat, Selector: sel.String(), Err: err}
		}
		if !free {
			log.Info("Seat already booked.", zap.String("seat", seat), zap.String("reason", reason))
			return false, nil
		}
		elements[seat] = el
		return true, nil
	}

	seat, _, err := booking.ChooseSeat(req.Seats, check)
	if err != nil {
		return "", err
	}

	sel := o.Site.SeatItem.With(seat)
	if err := elements[seat].Click(ctx); err != nil {
		return "", &booking.StepError{Step: StepSeat, Selector: sel.String(), Attempts: 1, Err: err}
	}
	log.Info("Seat selected.", zap.String("seat", seat))

	if !o.Site.Confirm.IsZero() {
		err := o.attempt(ctx, StepSeat, o.Site.Confirm, func(ctx context.Context) error {
			el, err := drv.WaitVisible(ctx, o.Site.Confirm, t.Element)
			if err != nil {
				return err
			}
			return el.Click(ctx)
		})
		if err != nil {
			return "", err
		}
	}

	if o.Site.Success.IsZero() {
		return seat, nil
	}
	if _, err := drv.WaitVisible(ctx, o.Site.Success, t.Outcome); err != nil {
		if !ui.Transient(err) {
			return "", &booking.StepError{Step: StepSeat, Selector: o.Site.Success.String(), Err: err}
		}
		if !o.Site.NoSeries.IsZero() {
			if _, nerr := drv.Find(ctx, o.Site.NoSeries); nerr == nil {
				return "", &booking.StepError{Step: StepSeat, Selector: o.Site.NoSeries.String(), Err: errors.New("no applicable series in account")}
			}
		}
		return "", &booking.StepError{Step: StepSeat, Selector: o.Site.Success.String(), Err: fmt.Errorf("unknown outcome after seat selection: %w", err)}
	}
	return seat, nil
}

// awaitSeats waits for the seat map, or when none is configured for any seat
// of the list, so a missing first choice costs one lookup rather than a
// full element timeout.
func (o *Orchestrator) awaitSeats(ctx context.Context, drv ui.Driver, seats []string) error {
	if !o.Site.SeatMap.IsZero() {
		_, err := o.waitFor(ctx, drv, StepSeat, o.Site.SeatMap)
		return err
	}
	if len(seats) == 0 {
		return &booking.StepError{Step: StepSeat, Err: errors.New("no seats requested")}
	}
	sels := make([]ui.Selector, len(seats))
	for i, seat := range seats {
		sels[i] = o.Site.SeatItem.With(seat)
	}
	t := o.Timeouts.withDefaults()
	err := o.attempt(ctx, StepSeat, sels[0], func(ctx context.Context) error {
		return anyRendered(ctx, drv, sels, t.Element)
	})
	var stepErr *booking.StepError
	if errors.As(err, &stepErr) && ui.Transient(stepErr.Err) {
		stepErr.Err = fmt.Errorf("no seat from the priority list was rendered: %w", stepErr.Err)
	}
	return err
}

// anyRendered polls sels together until one is in the DOM or timeout passes.
func anyRendered(ctx context.Context, drv ui.Driver, sels []ui.Selector, timeout time.Duration) error {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(seatPollInterval)
	defer ticker.Stop()
	for {
		for _, sel := range sels {
			_, err := drv.Find(wctx, sel)
			if err == nil {
				return nil
			}
			if wctx.Err() != nil {
				break
			}
			if !ui.Transient(err) {
				return err
			}
		}
		select {
		case <-wctx.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			return fmt.Errorf("%d seats after %s: %w", len(sels), timeout, ui.ErrTimeout)
		case <-ticker.C:
		}
	}
}

// seatFree inspects the rendered seat for the markers the site uses to show
// it is taken.
func (o *Orchestrator) seatFree(ctx context.Context, el ui.Element) (bool, string, error) {
	if _, ok, err := el.Attribute(ctx, "disabled"); err != nil {
		return false, "", err
	} else if ok {
		return false, "disabled", nil
	}
	if v, ok, err := el.Attribute(ctx, "aria-disabled"); err != nil {
		return false, "", err
	} else if ok && strings.EqualFold(v, "true") {
		return false, "aria-disabled", nil
	}
	if len(o.Site.UnavailableClasses) > 0 {
		class, _, err := el.Attribute(ctx, "class")
		if err != nil {
			return false, "", err
		}
		for _, c := range strings.Fields(class) {
			for _, u := range o.Site.UnavailableClasses {
				if c == u {
					return false, "class " + c, nil
				}
			}
		}
	}
	if o.Site.UnavailableColor != "" {
		color, err := el.Style(ctx, "color")
		if err != nil {
			return false, "", err
		}
		if normalizeColor(color) == normalizeColor(o.Site.UnavailableColor) {
			return false, "color " + color, nil
		}
	}
	return true, "", nil
}

// normalizeColor makes "RGB(204, 0, 0)" and "rgb(204,0,0)" compare equal.
func normalizeColor(c string) string {
	return strings.ToLower(strings.Join(strings.Fields(c), ""))
}
