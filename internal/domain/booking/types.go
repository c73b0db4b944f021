package booking

import (
	"errors"
	"fmt"
	"strings"
)

// Request is everything one run needs to know about the class it is booking.
// It is loaded once at start and never mutated.
type Request struct {
	Window   Window
	Location string
	Session  SessionTarget

	// Seats in strict priority order: earlier entries win.
	Seats []string
}

// SessionTarget identifies one timetable entry. Selector wins over the
// sibling chain (Location/Instructor/Time/Duration), which wins over ID.
type SessionTarget struct {
	ID         string
	Location   string
	Instructor string
	Time       string
	Duration   string
	Selector   string
}

// Label is the human-readable name used in logs and attempt records.
func (s SessionTarget) Label() string {
	if s.ID != "" {
		return s.ID
	}
	var parts []string
	for _, p := range []string{s.Location, s.Instructor, s.Time, s.Duration} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " / ")
	}
	return s.Selector
}

func (s SessionTarget) hasChain() bool {
	return s.Location != "" || s.Instructor != "" || s.Time != "" || s.Duration != ""
}

func (r Request) Validate() error {
	if err := r.Window.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Location) == "" {
		return errors.New("location required")
	}
	if r.Session.ID == "" && r.Session.Selector == "" && !r.Session.hasChain() {
		return errors.New("session requires an id, a selector or location/instructor/time/duration")
	}
	if len(r.Seats) == 0 {
		return errors.New("at least one seat required")
	}
	for i, s := range r.Seats {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("seat %d is empty", i)
		}
	}
	return nil
}

// Credentials authenticate against the studio site. They live in memory
// only and must never be logged.
type Credentials struct {
	Email  string
	Secret string
}

func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Email: %q, Secret: [redacted]}", c.Email)
}

func (c Credentials) GoString() string { return c.String() }
