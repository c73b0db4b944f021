package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/spinbook/internal/domain/booking"
	"github.com/example/spinbook/internal/domain/ui"
)

// Session is an authenticated browser tab. It is owned by the run that
// created it and threaded explicitly through the booking steps.
type Session struct {
	Driver          ui.Driver
	Email           string
	AuthenticatedAt time.Time
}

// SessionController performs the login conversation.
type SessionController struct {
	Site     Site
	Timeouts Timeouts
	Log      *zap.Logger
}

func (c *SessionController) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log.Named("session")
}

// Authenticate logs in on drv. Every failure is terminal for the run: retrying
// a rejected login risks locking the account.
func (c *SessionController) Authenticate(ctx context.Context, drv ui.Driver, creds booking.Credentials) (*Session, error) {
	log := c.logger()
	t := c.Timeouts.withDefaults()

	log.Info("Opening login page.", zap.String("url", c.Site.LoginURL))
	if err := drv.Navigate(ctx, c.Site.LoginURL); err != nil {
		return nil, authErr(booking.AuthElementNotFound, fmt.Errorf("navigate to login: %w", err))
	}

	fields := []struct {
		name  string
		sel   ui.Selector
		value string
	}{
		{"email", c.Site.Email, creds.Email},
		{"password", c.Site.Password, creds.Secret},
	}
	for _, f := range fields {
		el, err := drv.WaitVisible(ctx, f.sel, t.Element)
		if err != nil {
			return nil, authErr(booking.AuthElementNotFound, fmt.Errorf("%s field %s: %w", f.name, f.sel, err))
		}
		if err := el.Type(ctx, f.value); err != nil {
			return nil, authErr(booking.AuthElementNotFound, fmt.Errorf("fill %s field: %w", f.name, err))
		}
	}

	submit, err := drv.WaitVisible(ctx, c.Site.Submit, t.Element)
	if err != nil {
		return nil, authErr(booking.AuthElementNotFound, fmt.Errorf("submit button %s: %w", c.Site.Submit, err))
	}
	if err := submit.Click(ctx); err != nil {
		return nil, authErr(booking.AuthElementNotFound, fmt.Errorf("click submit: %w", err))
	}

	if err := c.awaitLogin(ctx, drv, t.Login); err != nil {
		if errors.Is(err, errRejected) {
			log.Warn("Login rejected by the site.")
		}
		return nil, err
	}

	log.Info("Login successful.")
	return &Session{Driver: drv, Email: creds.Email, AuthenticatedAt: time.Now()}, nil
}

// loginPoll bounds each landmark wait so the rejection message is checked
// while the login is still pending.
const loginPoll = 250 * time.Millisecond

var errRejected = errors.New("site rejected the credentials")

// awaitLogin waits for the landmark and watches for the rejection message
// at the same time, so a wrong password fails as soon as the site says so.
func (c *SessionController) awaitLogin(ctx context.Context, drv ui.Driver, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(loginPoll)
	defer ticker.Stop()
	for {
		wait := min(loginPoll, time.Until(deadline))
		_, err := drv.WaitVisible(ctx, c.Site.Landmark, max(wait, time.Millisecond))
		if err == nil {
			return nil
		}
		if !ui.Transient(err) {
			return authErr(booking.AuthTimeout, err)
		}
		if !c.Site.Rejection.IsZero() {
			if _, rerr := drv.Find(ctx, c.Site.Rejection); rerr == nil {
				return authErr(booking.AuthRejected, errRejected)
			} else if !ui.Transient(rerr) {
				return authErr(booking.AuthTimeout, rerr)
			}
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return authErr(booking.AuthTimeout, fmt.Errorf("landmark %s not visible after %s: %w", c.Site.Landmark, timeout, err))
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return authErr(booking.AuthTimeout, ctx.Err())
		case <-ticker.C:
		case <-timer.C:
		}
		timer.Stop()
	}
}

func authErr(kind booking.AuthErrorKind, err error) error {
	return &booking.AuthError{Kind: kind, Err: err}
}

// onceDriver makes Close idempotent so every exit path can defer it.
type onceDriver struct {
	ui.Driver
	once sync.Once
	err  error
}

func closeOnce(d ui.Driver) *onceDriver { return &onceDriver{Driver: d} }

func (d *onceDriver) Close() error {
	d.once.Do(func() { d.err = d.Driver.Close() })
	return d.err
}
