// Package ui is the port between the booking logic and a browser automation
// driver. Adapters live under internal/infrastructure.
package ui

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means the descriptor matched nothing in the current DOM.
	ErrNotFound = errors.New("element not found")
	// ErrTimeout means the element did not become visible in time.
	ErrTimeout = errors.New("timed out waiting for element")
	// ErrDriverFatal means the browser itself is gone: crashed, closed or unreachable.
	ErrDriverFatal = errors.New("browser driver failure")
)

// Transient reports whether err is worth retrying: the site renders
// asynchronously, so a miss now can be a hit a moment later.
func Transient(err error) bool {
	if errors.Is(err, ErrDriverFatal) {
		return false
	}
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrTimeout)
}

// Driver is one browser tab. Implementations are not safe for concurrent use;
// a run owns its driver exclusively.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	// Find returns the first element matching sel without waiting.
	Find(ctx context.Context, sel Selector) (Element, error)
	// WaitVisible blocks until sel matches a visible element or timeout elapses.
	WaitVisible(ctx context.Context, sel Selector, timeout time.Duration) (Element, error)
	Close() error
}

// Element is a handle to a node located by a Driver.
type Element interface {
	Hover(ctx context.Context) error
	Click(ctx context.Context) error
	ScrollIntoView(ctx context.Context) error
	Text(ctx context.Context) (string, error)
	Type(ctx context.Context, text string) error
	// Attribute returns the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	// Style returns the computed value of a CSS property.
	Style(ctx context.Context, property string) (string, error)
}
