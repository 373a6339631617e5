// Package rodnav implements navigator.Engine on top of a headless chrome
// controlled with go-rod. Pages are opened through go-rod/stealth so the portal
// sees an ordinary browser.
package rodnav

import (
	"context"
	"errors"
	"fmt"
	"sigeduc-scraper/lib/navigator"
	"sigeduc-scraper/lib/telemetry"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

const report_engine_start = "engine.start"

type Options struct {
	// RemoteUrl is the websocket url of an already running chrome, empty
	// launches a local one.
	RemoteUrl string
	Headless  bool
	// NavigationTimeout bounds Goto. Default: 30s.
	NavigationTimeout time.Duration
}

type Engine struct {
	opts     Options
	tel      telemetry.API
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

var _ navigator.Engine = (*Engine)(nil)

func NewEngine(ctx context.Context, opts Options, tel telemetry.API) (*Engine, error) {
	tel = telemetry.NewScopedAPI("rodnav", tel)
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = time.Second * 30
	}

	e := &Engine{opts: opts, tel: tel}

	controlUrl := opts.RemoteUrl
	if controlUrl == "" {
		l := launcher.New().
			Context(ctx).
			Headless(opts.Headless).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			tel.ReportBroken(report_engine_start, fmt.Errorf("launch: %w", err))
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		e.launcher = l
		controlUrl = u
	}

	browser := rod.New().ControlURL(controlUrl)
	if err := browser.Connect(); err != nil {
		e.Close()
		tel.ReportBroken(report_engine_start, fmt.Errorf("connect: %w", err), controlUrl)
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	e.browser = browser

	page, err := stealth.Page(browser)
	if err != nil {
		e.Close()
		tel.ReportBroken(report_engine_start, fmt.Errorf("open page: %w", err))
		return nil, fmt.Errorf("open page: %w", err)
	}
	e.page = page

	return e, nil
}

func (e *Engine) Goto(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, e.opts.NavigationTimeout)
	defer cancel()

	if err := e.page.Context(navCtx).Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, navigator.Timeout(err))
	}
	if err := e.page.Context(navCtx).WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, navigator.Timeout(err))
	}
	return nil
}

func (e *Engine) WaitSettled(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	page := e.page.Context(waitCtx)
	if err := page.WaitLoad(); err != nil {
		return navigator.Timeout(err)
	}
	return navigator.Timeout(page.WaitIdle(timeout))
}

func (e *Engine) Locate(ctx context.Context, selector string, timeout time.Duration) (navigator.Element, error) {
	el, err := e.page.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		var notFound *rod.ElementNotFoundError
		if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s: %w", navigator.ErrNotFound, selector, navigator.Timeout(err))
		}
		return nil, err
	}
	// drop the timeout so later actions on the element are not bound by it
	return element{el: el.CancelTimeout()}, nil
}

func (e *Engine) LocateAll(ctx context.Context, selector string) ([]navigator.Element, error) {
	els, err := e.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	return wrap(els), nil
}

func (e *Engine) Location(ctx context.Context) (string, error) {
	info, err := e.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (e *Engine) Snapshot(ctx context.Context) (navigator.Snapshot, error) {
	page := e.page.Context(ctx)

	info, err := page.Info()
	if err != nil {
		return navigator.Snapshot{}, err
	}
	contents, err := page.HTML()
	if err != nil {
		return navigator.Snapshot{}, err
	}
	screenshot, err := page.Screenshot(true, nil)
	if err != nil {
		e.tel.ReportWarning("engine.snapshot", fmt.Errorf("screenshot: %w", err))
		screenshot = nil
	}

	return navigator.Snapshot{
		Url:        info.URL,
		Html:       contents,
		Screenshot: screenshot,
	}, nil
}

func (e *Engine) Close() error {
	var errs []error
	if e.page != nil {
		errs = append(errs, e.page.Close())
		e.page = nil
	}
	if e.browser != nil {
		errs = append(errs, e.browser.Close())
		e.browser = nil
	}
	if e.launcher != nil {
		e.launcher.Cleanup()
		e.launcher = nil
	}
	return errors.Join(errs...)
}
