package ui

import (
	"context"
	"fmt"
	"strings"
)

// RevealStrategy makes a hidden control interactable. Revealing is a separate
// capability from clicking: a hover-triggered dropdown hides its links until
// the parent menu is activated, and clicking the parent may navigate away.
type RevealStrategy interface {
	Reveal(ctx context.Context, parent Element) error
	Name() string
}

type directReveal struct{}

func (directReveal) Reveal(ctx context.Context, parent Element) error { return parent.Click(ctx) }
func (directReveal) Name() string                                     { return "direct" }

type hoverReveal struct{}

func (hoverReveal) Reveal(ctx context.Context, parent Element) error { return parent.Hover(ctx) }
func (hoverReveal) Name() string                                     { return "hover" }

type scrollReveal struct{}

func (scrollReveal) Reveal(ctx context.Context, parent Element) error {
	return parent.ScrollIntoView(ctx)
}
func (scrollReveal) Name() string { return "scroll" }

var (
	RevealDirect RevealStrategy = directReveal{}
	RevealHover  RevealStrategy = hoverReveal{}
	RevealScroll RevealStrategy = scrollReveal{}
)

func ParseReveal(s string) (RevealStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hover":
		return RevealHover, nil
	case "direct", "click":
		return RevealDirect, nil
	case "scroll", "scroll-into-view":
		return RevealScroll, nil
	}
	return nil, fmt.Errorf("unknown reveal strategy %q (want direct, hover or scroll)", s)
}
