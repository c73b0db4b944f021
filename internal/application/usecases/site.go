package usecases

import (
	"time"

	"github.com/example/spinbook/internal/domain/ui"
)

// Site describes the studio's markup: where to log in and how to find each
// control. Everything here is expected to drift as the site changes, so none
// of it is hard-coded in the pipeline.
type Site struct {
	LoginURL string

	Email     ui.Selector
	Password  ui.Selector
	Submit    ui.Selector
	Landmark  ui.Selector // proves login succeeded
	Rejection ui.Selector // optional explicit login error

	BookMenu     ui.Selector
	MenuReveal   ui.RevealStrategy
	LocationItem ui.TextTemplate
	SessionItem  ui.TextTemplate
	SeatItem     ui.TextTemplate
	SeatMap      ui.Selector // optional container awaited before seats are checked
	Confirm      ui.Selector // optional
	Success      ui.Selector // optional
	NoSeries     ui.Selector // optional "no applicable series" message

	UnavailableClasses []string
	// UnavailableColor is the computed "color" of a taken seat, compared
	// exactly after case and whitespace are normalised.
	UnavailableColor   string
}

type Timeouts struct {
	Element time.Duration
	Login   time.Duration
	Outcome time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Element <= 0 {
		t.Element = 10 * time.Second
	}
	if t.Login <= 0 {
		t.Login = 10 * time.Second
	}
	if t.Outcome <= 0 {
		t.Outcome = 10 * time.Second
	}
	return t
}
