// Package cdpdriver implements ui.Driver on top of chromedp.
package cdpdriver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/css"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/example/spinbook/internal/domain/ui"
)

const (
	// actionTimeout bounds every call that does not carry its own timeout.
	actionTimeout   = 10 * time.Second
	launchTimeout   = 30 * time.Second
	navigateTimeout = 30 * time.Second
	pollInterval    = 100 * time.Millisecond
)

type Options struct {
	Headless bool
	ExecPath string
	// Args are extra Chrome flags, "name" or "name=value", leading dashes optional.
	Args []string
	Log  *zap.Logger
}

// Driver is a single Chrome tab.
type Driver struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	log         *zap.Logger
}

var _ ui.Driver = (*Driver)(nil)

func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	o := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if !opts.Headless {
		o = append(o, chromedp.Flag("headless", false))
	}
	if runtime.GOOS == "linux" {
		o = append(o, chromedp.NoSandbox)
	}
	if opts.ExecPath != "" {
		o = append(o, chromedp.ExecPath(opts.ExecPath))
	}
	for name, value := range parseFlags(opts.Args) {
		o = append(o, chromedp.Flag(name, value))
	}
	return o
}

// parseFlags turns "--name=value" into name/value and bare "--name" into a
// boolean flag.
func parseFlags(args []string) map[string]any {
	flags := make(map[string]any, len(args))
	for _, arg := range args {
		arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
		if arg == "" {
			continue
		}
		if k, v, ok := strings.Cut(arg, "="); ok {
			flags[k] = v
			continue
		}
		flags[arg] = true
	}
	return flags
}

// Launch starts Chrome and opens a blank tab. The browser outlives ctx and
// is torn down by Close.
func Launch(ctx context.Context, opts Options) (*Driver, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("chromedp")

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocatorOptions(opts)...)
	tab, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(log.Sugar().Debugf),
		chromedp.WithErrorf(log.Sugar().Debugf),
	)
	d := &Driver{tab: tab, cancelTab: cancelTab, cancelAlloc: cancelAlloc, log: log}

	started := time.Now()
	if err := d.start(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("%w: start chrome: %w", ui.ErrDriverFatal, err)
	}
	log.Info("Browser started.", zap.Bool("headless", opts.Headless), zap.Duration("took", time.Since(started)))
	return d, nil
}

// start allocates the browser. The first Run must get the tab context itself:
// chromedp ties the browser process to it, so a derived context would kill
// Chrome when released.
func (d *Driver) start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() { errc <- chromedp.Run(d.tab) }()

	timer := time.NewTimer(launchTimeout)
	defer timer.Stop()
	select {
	case err := <-errc:
		return err
	case <-timer.C:
		return fmt.Errorf("no devtools connection after %s: %w", launchTimeout, context.DeadlineExceeded)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func bounded(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return actionTimeout
	}
	return timeout
}

// exec runs actions on the tab, bounded by both ctx and timeout. A zero
// timeout means actionTimeout.
func (d *Driver) exec(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(d.tab, bounded(timeout))
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	return d.classify(ctx, err)
}

func (d *Driver) classify(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case d.tab.Err() != nil:
		return fmt.Errorf("%w: %w", ui.ErrDriverFatal, err)
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ui.ErrTimeout, err)
	}
	return err
}

func by(sel ui.Selector) chromedp.QueryOption {
	if sel.Kind == ui.XPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.log.Debug("Navigating.", zap.String("url", url))
	return d.exec(ctx, navigateTimeout, chromedp.Navigate(url))
}

func (d *Driver) Find(ctx context.Context, sel ui.Selector) (ui.Element, error) {
	var nodes []*cdp.Node
	if err := d.exec(ctx, actionTimeout, chromedp.Nodes(sel.Value, &nodes, by(sel), chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%s: %w", sel, ui.ErrNotFound)
	}
	return &element{d: d, node: nodes[0]}, nil
}

// WaitVisible returns the first matching node that has a layout box. Other
// matches, e.g. a hidden copy of the same text, do not hold it up.
func (d *Driver) WaitVisible(ctx context.Context, sel ui.Selector, timeout time.Duration) (ui.Element, error) {
	var found *cdp.Node
	err := d.exec(ctx, timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			var nodes []*cdp.Node
			if err := chromedp.Nodes(sel.Value, &nodes, by(sel), chromedp.AtLeast(0)).Do(ctx); err != nil {
				return err
			}
			if found = firstVisible(nodes, func(n *cdp.Node) bool { return hasBox(ctx, n) }); found != nil {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sel, err)
	}
	return &element{d: d, node: found}, nil
}

func firstVisible(nodes []*cdp.Node, visible func(*cdp.Node) bool) *cdp.Node {
	for _, n := range nodes {
		if visible(n) {
			return n
		}
	}
	return nil
}

// hasBox reports whether n is rendered with a non-empty box. display:none
// and detached nodes have no box model.
func hasBox(ctx context.Context, n *cdp.Node) bool {
	box, err := dom.GetBoxModel().WithNodeID(n.NodeID).Do(ctx)
	return err == nil && box != nil && box.Width > 0 && box.Height > 0
}

// Close shuts the tab and the browser process.
func (d *Driver) Close() error {
	err := chromedp.Cancel(d.tab)
	d.cancelTab()
	d.cancelAlloc()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close chrome: %w", err)
	}
	return nil
}

type element struct {
	d    *Driver
	node *cdp.Node
}

func (e *element) ids() []cdp.NodeID { return []cdp.NodeID{e.node.NodeID} }

func (e *element) Hover(ctx context.Context) error {
	return e.d.exec(ctx, actionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithNodeID(e.node.NodeID).Do(ctx); err != nil {
			return err
		}
		box, err := dom.GetBoxModel().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		if box == nil || len(box.Content) < 8 {
			return fmt.Errorf("element %s has no box model: %w", e.node.NodeName, ui.ErrNotFound)
		}
		q := box.Content
		x := (q[0] + q[2] + q[4] + q[6]) / 4
		y := (q[1] + q[3] + q[5] + q[7]) / 4
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
}

func (e *element) Click(ctx context.Context) error {
	return e.d.exec(ctx, actionTimeout, chromedp.MouseClickNode(e.node))
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	return e.d.exec(ctx, actionTimeout, dom.ScrollIntoViewIfNeeded().WithNodeID(e.node.NodeID))
}

func (e *element) Text(ctx context.Context) (string, error) {
	var s string
	err := e.d.exec(ctx, actionTimeout, chromedp.Text(e.ids(), &s, chromedp.ByNodeID))
	return strings.TrimSpace(s), err
}

func (e *element) Type(ctx context.Context, text string) error {
	return e.d.exec(ctx, actionTimeout, chromedp.SendKeys(e.ids(), text, chromedp.ByNodeID))
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var (
		v  string
		ok bool
	)
	err := e.d.exec(ctx, actionTimeout, chromedp.AttributeValue(e.ids(), name, &v, &ok, chromedp.ByNodeID))
	return v, ok, err
}

func (e *element) Style(ctx context.Context, property string) (string, error) {
	var styles []*css.ComputedStyleProperty
	if err := e.d.exec(ctx, actionTimeout, chromedp.ComputedStyle(e.ids(), &styles, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	for _, s := range styles {
		if s.Name == property {
			return s.Value, nil
		}
	}
	return "", nil
}
