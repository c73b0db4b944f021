package booking

import (
	"context"
	"errors"
	"time"
)

type OutcomeKind string

const (
	OutcomeSuccess         OutcomeKind = "success"
	OutcomeNotYetOpen      OutcomeKind = "not_yet_open"
	OutcomeAuthFailed      OutcomeKind = "auth_failed"
	OutcomeStepFailed      OutcomeKind = "step_failed"
	OutcomeSeatUnavailable OutcomeKind = "seat_unavailable"
	OutcomeDriverFatal     OutcomeKind = "driver_fatal"
)

// Process exit codes, distinct per outcome so cron logs are self-explanatory.
const (
	ExitSuccess         = 0
	ExitUsage           = 1
	ExitNotYetOpen      = 2
	ExitAuthFailed      = 3
	ExitStepFailed      = 4
	ExitSeatUnavailable = 5
	ExitDriverFatal     = 6
)

// Outcome is the definitive result of one run.
type Outcome struct {
	Kind   OutcomeKind
	Step   string // set for StepFailed
	Seat   string // booked seat on Success
	Detail string
}

func (o Outcome) ExitCode() int {
	switch o.Kind {
	case OutcomeSuccess:
		return ExitSuccess
	case OutcomeNotYetOpen:
		return ExitNotYetOpen
	case OutcomeAuthFailed:
		return ExitAuthFailed
	case OutcomeStepFailed:
		return ExitStepFailed
	case OutcomeSeatUnavailable:
		return ExitSeatUnavailable
	case OutcomeDriverFatal:
		return ExitDriverFatal
	}
	return ExitUsage
}

// Classify turns a pipeline error into an Outcome. A nil error is not a
// success on its own: callers build Success outcomes themselves.
func Classify(err error) Outcome {
	var (
		authErr *AuthError
		stepErr *StepError
	)
	switch {
	case errors.Is(err, ErrDriverFatal):
		o := Outcome{Kind: OutcomeDriverFatal, Detail: err.Error()}
		if errors.As(err, &stepErr) {
			o.Step = stepErr.Step
		}
		return o
	case errors.Is(err, ErrGateNotOpen):
		return Outcome{Kind: OutcomeNotYetOpen, Detail: err.Error()}
	case errors.As(err, &authErr):
		return Outcome{Kind: OutcomeAuthFailed, Detail: err.Error()}
	case errors.Is(err, ErrSeatUnavailable):
		return Outcome{Kind: OutcomeSeatUnavailable, Step: "seat", Detail: err.Error()}
	case errors.As(err, &stepErr):
		return Outcome{Kind: OutcomeStepFailed, Step: stepErr.Step, Detail: err.Error()}
	case err != nil:
		return Outcome{Kind: OutcomeStepFailed, Detail: err.Error()}
	}
	return Outcome{Kind: OutcomeSuccess}
}

// AttemptRecord is the write-once log entry of a run.
type AttemptRecord struct {
	ID        string        `json:"id" yaml:"id"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	Location  string        `json:"location" yaml:"location"`
	Session   string        `json:"session" yaml:"session"`
	Seat      string        `json:"seat" yaml:"seat"`
	Outcome   OutcomeKind   `json:"outcome" yaml:"outcome"`
	Step      string        `json:"step,omitempty" yaml:"step,omitempty"`
	Detail    string        `json:"detail" yaml:"detail"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration"`
}

// Reporter persists attempt records.
type Reporter interface {
	Record(ctx context.Context, rec AttemptRecord) error
}
