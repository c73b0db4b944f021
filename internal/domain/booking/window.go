package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Window is the weekly slot during which booking attempts make sense.
// The interval is [Start, End): a tick landing exactly on End is already closed,
// so two adjacent polling ticks can never both fire at the boundary.
type Window struct {
	Day   time.Weekday
	Start time.Duration // offset from local midnight
	End   time.Duration
	Loc   *time.Location
}

func (w Window) location() *time.Location {
	if w.Loc == nil {
		return time.Local
	}
	return w.Loc
}

func (w Window) Validate() error {
	if w.Start < 0 || w.End > 24*time.Hour {
		return errors.New("window bounds must be within one day")
	}
	if w.End <= w.Start {
		return fmt.Errorf("window end %s must be after start %s", FormatClock(w.End), FormatClock(w.Start))
	}
	return nil
}

// IsOpen reports whether now falls inside the window. It has no side effects.
func (w Window) IsOpen(now time.Time) bool {
	local := now.In(w.location())
	if local.Weekday() != w.Day {
		return false
	}
	tod := sinceMidnight(local)
	return tod >= w.Start && tod < w.End
}

// NextOpen returns the next instant at or after now when the window opens.
// If the window is already open it returns now.
func (w Window) NextOpen(now time.Time) time.Time {
	if w.IsOpen(now) {
		return now
	}
	local := now.In(w.location())
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, w.location())
	for i := 0; i <= 7; i++ {
		day := midnight.AddDate(0, 0, i)
		if day.Weekday() != w.Day {
			continue
		}
		open := day.Add(w.Start)
		if !open.Before(now) {
			return open
		}
	}
	// unreachable for a validated window; keep a sane answer anyway
	return midnight.AddDate(0, 0, 7).Add(w.Start)
}

func (w Window) String() string {
	return fmt.Sprintf("%s %s-%s %s", w.Day, FormatClock(w.Start), FormatClock(w.End), w.location())
}

func sinceMidnight(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(t.Nanosecond())
}

// ParseWeekday accepts full or three-letter English day names, any case.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}

// ParseClock parses HH:MM or HH:MM:SS into an offset from midnight.
// "24:00" is accepted as the end of the day.
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "24:00" || s == "24:00:00" {
		return 24 * time.Hour, nil
	}
	layout := "15:04"
	if strings.Count(s, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q (want HH:MM or HH:MM:SS)", s)
	}
	return sinceMidnight(t), nil
}

func FormatClock(d time.Duration) string {
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}
