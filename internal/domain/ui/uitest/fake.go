// Package uitest provides an in-memory ui.Driver for exercising the booking
// pipeline without a browser.
package uitest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/spinbook/internal/domain/ui"
)

// Node is a fake DOM element keyed by the exact selector that finds it.
type Node struct {
	Text    string
	Visible bool
	Attrs   map[string]string
	Styles  map[string]string

	// OnHover and OnClick mutate the page, e.g. to reveal a dropdown.
	OnHover func(p *Page)
	OnClick func(p *Page)

	Hovers   int
	Clicks   int
	Scrolls  int
	Typed    string
	ClickErr error
}

// Page is a fake browser tab implementing ui.Driver.
type Page struct {
	mu    sync.Mutex
	nodes map[string]*Node
	// misses makes the next N lookups of a selector fail with ErrTimeout.
	misses map[string]int

	NavigateErr error
	// FatalErr is returned by every call once set, simulating a crashed browser.
	FatalErr error

	Visited    []string
	Lookups    map[string]int
	CloseCalls int
	// Trace records every interaction in order, e.g. "click xpath=//a".
	Trace []string
}

var _ ui.Driver = (*Page)(nil)

func NewPage() *Page {
	return &Page{
		nodes:   map[string]*Node{},
		misses:  map[string]int{},
		Lookups: map[string]int{},
	}
}

// Add registers a node under sel and returns it for further tweaking.
func (p *Page) Add(sel ui.Selector, n *Node) *Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nodes[sel.String()] = n
	return n
}

func (p *Page) Node(sel ui.Selector) *Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nodes[sel.String()]
}

// Show toggles visibility; meant for OnHover/OnClick hooks.
func (p *Page) Show(sel ui.Selector) {
	if n := p.nodes[sel.String()]; n != nil {
		n.Visible = true
	}
}

// FailNext makes the next n lookups of sel time out before it resolves.
func (p *Page) FailNext(sel ui.Selector, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.misses[sel.String()] = n
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FatalErr != nil {
		return p.FatalErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.Visited = append(p.Visited, url)
	p.Trace = append(p.Trace, "navigate "+url)
	return p.NavigateErr
}

func (p *Page) Find(ctx context.Context, sel ui.Selector) (ui.Element, error) {
	return p.lookup(ctx, sel, false)
}

func (p *Page) WaitVisible(ctx context.Context, sel ui.Selector, _ time.Duration) (ui.Element, error) {
	return p.lookup(ctx, sel, true)
}

func (p *Page) lookup(ctx context.Context, sel ui.Selector, visible bool) (ui.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FatalErr != nil {
		return nil, p.FatalErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := sel.String()
	p.Lookups[key]++
	if p.misses[key] > 0 {
		p.misses[key]--
		return nil, fmt.Errorf("%s: %w", key, ui.ErrTimeout)
	}
	n, ok := p.nodes[key]
	if !ok {
		if visible {
			return nil, fmt.Errorf("%s: %w", key, ui.ErrTimeout)
		}
		return nil, fmt.Errorf("%s: %w", key, ui.ErrNotFound)
	}
	if visible && !n.Visible {
		return nil, fmt.Errorf("%s not visible: %w", key, ui.ErrTimeout)
	}
	return &element{page: p, key: key, node: n}, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CloseCalls++
	p.Trace = append(p.Trace, "close")
	return nil
}

type element struct {
	page *Page
	key  string
	node *Node
}

func (e *element) do(verb string, fn func()) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if e.page.FatalErr != nil {
		return e.page.FatalErr
	}
	e.page.Trace = append(e.page.Trace, verb+" "+e.key)
	if fn != nil {
		fn()
	}
	return nil
}

func (e *element) Hover(context.Context) error {
	return e.do("hover", func() {
		e.node.Hovers++
		if e.node.OnHover != nil {
			e.node.OnHover(e.page)
		}
	})
}

func (e *element) Click(context.Context) error {
	if e.node.ClickErr != nil {
		return e.node.ClickErr
	}
	return e.do("click", func() {
		e.node.Clicks++
		if e.node.OnClick != nil {
			e.node.OnClick(e.page)
		}
	})
}

func (e *element) ScrollIntoView(context.Context) error {
	return e.do("scroll", func() {
		e.node.Scrolls++
		e.node.Visible = true
	})
}

func (e *element) Text(context.Context) (string, error) {
	var s string
	err := e.do("text", func() { s = e.node.Text })
	return s, err
}

func (e *element) Type(_ context.Context, text string) error {
	return e.do("type", func() { e.node.Typed += text })
}

func (e *element) Attribute(_ context.Context, name string) (string, bool, error) {
	var (
		v  string
		ok bool
	)
	err := e.do("attr", func() { v, ok = e.node.Attrs[name] })
	return v, ok, err
}

func (e *element) Style(_ context.Context, property string) (string, error) {
	var v string
	err := e.do("style", func() { v = e.node.Styles[property] })
	return v, err
}
