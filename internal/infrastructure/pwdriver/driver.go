// Package pwdriver implements ui.Driver on top of playwright-go.
package pwdriver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/example/spinbook/internal/domain/ui"
)

const actionTimeout = 10 * time.Second

type Options struct {
	Headless bool
	ExecPath string
	Args     []string
	// Install fetches the driver and Chromium before launching.
	Install bool
	Log     *zap.Logger
}

// Driver is a single Chromium page driven through playwright. playwright-go
// calls are not context-aware, so ctx is checked before each call and
// every wait carries an explicit timeout.
type Driver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	log     *zap.Logger
}

var _ ui.Driver = (*Driver)(nil)

func Launch(ctx context.Context, opts Options) (*Driver, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("playwright")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if opts.Install {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("%w: install playwright: %w", ui.ErrDriverFatal, err)
		}
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: start playwright: %w", ui.ErrDriverFatal, err)
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     append([]string{"--disable-blink-features=AutomationControlled"}, opts.Args...),
	}
	if opts.ExecPath != "" {
		launch.ExecutablePath = playwright.String(opts.ExecPath)
	}
	browser, err := pw.Chromium.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("%w: launch chromium: %w", ui.ErrDriverFatal, err)
	}
	page, err := browser.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("%w: open page: %w", ui.ErrDriverFatal, err)
	}
	page.SetDefaultTimeout(ms(actionTimeout))

	log.Info("Browser started.", zap.Bool("headless", opts.Headless), zap.String("version", browser.Version()))
	return &Driver{pw: pw, browser: browser, page: page, log: log}, nil
}

func ms(d time.Duration) float64 { return float64(d / time.Millisecond) }

// locator maps a selector onto playwright's engine prefixes.
func locatorString(sel ui.Selector) string {
	if sel.Kind == ui.XPath {
		return "xpath=" + sel.Value
	}
	return "css=" + sel.Value
}

// visibleLocatorString narrows the match to visible nodes so a hidden copy
// earlier in the document is not the one waited on.
func visibleLocatorString(sel ui.Selector) string {
	return locatorString(sel) + " >> visible=true"
}

func (d *Driver) classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, playwright.ErrTimeout):
		return fmt.Errorf("%w: %w", ui.ErrTimeout, err)
	case errors.Is(err, playwright.ErrTargetClosed) || !d.browser.IsConnected():
		return fmt.Errorf("%w: %w", ui.ErrDriverFatal, err)
	}
	return err
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.log.Debug("Navigating.", zap.String("url", url))
	_, err := d.page.Goto(url, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateDomcontentloaded})
	return d.classify(err)
}

func (d *Driver) Find(ctx context.Context, sel ui.Selector) (ui.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc := d.page.Locator(locatorString(sel)).First()
	n, err := loc.Count()
	if err != nil {
		return nil, d.classify(err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%s: %w", sel, ui.ErrNotFound)
	}
	return &element{d: d, loc: loc}, nil
}

func (d *Driver) WaitVisible(ctx context.Context, sel ui.Selector, timeout time.Duration) (ui.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}
	loc := d.page.Locator(visibleLocatorString(sel)).First()
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(ms(timeout)),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sel, d.classify(err))
	}
	return &element{d: d, loc: loc}, nil
}

func (d *Driver) Close() error {
	var errs []error
	if err := d.browser.Close(); err != nil && !errors.Is(err, playwright.ErrTargetClosed) {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	if err := d.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop playwright: %w", err))
	}
	return errors.Join(errs...)
}

type element struct {
	d   *Driver
	loc playwright.Locator
}

func (e *element) call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.d.classify(fn())
}

func (e *element) Hover(ctx context.Context) error {
	return e.call(ctx, func() error { return e.loc.Hover() })
}

func (e *element) Click(ctx context.Context) error {
	return e.call(ctx, func() error { return e.loc.Click() })
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	return e.call(ctx, func() error { return e.loc.ScrollIntoViewIfNeeded() })
}

func (e *element) Text(ctx context.Context) (string, error) {
	var s string
	err := e.call(ctx, func() error {
		var err error
		s, err = e.loc.InnerText()
		return err
	})
	return s, err
}

func (e *element) Type(ctx context.Context, text string) error {
	return e.call(ctx, func() error { return e.loc.Fill(text) })
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var v any
	err := e.call(ctx, func() error {
		var err error
		v, err = e.loc.Evaluate(`(el, name) => el.getAttribute(name)`, name)
		return err
	})
	if err != nil || v == nil {
		return "", false, err
	}
	s, _ := v.(string)
	return s, true, nil
}

func (e *element) Style(ctx context.Context, property string) (string, error) {
	var v any
	err := e.call(ctx, func() error {
		var err error
		v, err = e.loc.Evaluate(`(el, prop) => getComputedStyle(el).getPropertyValue(prop)`, property)
		return err
	})
	s, _ := v.(string)
	return s, err
}
