package crawler

import (
	"context"
	"fmt"
	"sigeduc-scraper/lib/htmlutil"
	"sigeduc-scraper/lib/navigator"
	"strings"

	"go.opentelemetry.io/otel/codes"
)

const (
	report_crawler_login      = "login"
	report_crawler_diagnostic = "diagnostic"
)

// capture snapshots the current page and returns the path of the html file,
// or an empty string when no snapshot could be written.
func (c *Crawler) capture(ctx context.Context, label string) string {
	captured, err := c.rc.Diagnostics.Capture(ctx, c.rc.Nav, label)
	if err != nil {
		c.tel.ReportWarning(report_crawler_diagnostic, err, label)
		return ""
	}
	return captured.HtmlPath
}

func elementText(el navigator.Element) string {
	text, err := el.Text()
	if err != nil {
		return ""
	}
	return htmlutil.NormalizeText(text)
}

func (c *Crawler) locateSubmit(ctx context.Context) (navigator.Element, error) {
	selectors := c.opts.Selectors
	if selectors.SubmitText == "" {
		return c.rc.Nav.Locate(ctx, selectors.Submit, c.opts.Timeouts.Element)
	}

	// wait for the first candidate so LocateAll sees a loaded form
	_, err := c.rc.Nav.Locate(ctx, selectors.Submit, c.opts.Timeouts.Element)
	if err != nil {
		return nil, err
	}
	candidates, err := c.rc.Nav.LocateAll(ctx, selectors.Submit)
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(htmlutil.NormalizeText(selectors.SubmitText))
	for _, candidate := range candidates {
		if strings.Contains(strings.ToLower(elementText(candidate)), want) {
			return candidate, nil
		}
		value, ok, _ := candidate.Attribute("value")
		if ok && strings.Contains(strings.ToLower(htmlutil.NormalizeText(value)), want) {
			return candidate, nil
		}
	}
	return nil, fmt.Errorf("%w: no '%s' control with text '%s'", navigator.ErrNotFound, selectors.Submit, selectors.SubmitText)
}

func (c *Crawler) login(ctx context.Context, credentials Credentials) error {
	nav := c.rc.Nav
	selectors := c.opts.Selectors

	err := nav.Goto(ctx, c.opts.LoginUrl)
	if err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	loginLocation, err := nav.Location(ctx)
	if err != nil {
		return err
	}

	username, err := nav.Locate(ctx, selectors.Username, c.opts.Timeouts.Element)
	if err != nil {
		return fmt.Errorf("username field: %w", err)
	}
	password, err := nav.Locate(ctx, selectors.Password, c.opts.Timeouts.Element)
	if err != nil {
		return fmt.Errorf("password field: %w", err)
	}
	submit, err := c.locateSubmit(ctx)
	if err != nil {
		return fmt.Errorf("submit control: %w", err)
	}

	err = username.Fill(ctx, credentials.Username)
	if err != nil {
		return fmt.Errorf("fill username: %w", err)
	}
	err = password.Fill(ctx, credentials.Password)
	if err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	err = submit.Click(ctx)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	err = nav.WaitSettled(ctx, c.opts.Timeouts.Settle)
	if err != nil {
		return fmt.Errorf("wait for login: %w", err)
	}

	location, err := nav.Location(ctx)
	if err != nil {
		return err
	}
	if sameLocation(location, loginLocation) {
		return fmt.Errorf("still on the login page after submitting")
	}
	return nil
}

func sameLocation(a, b string) bool {
	return strings.TrimRight(a, "/") == strings.TrimRight(b, "/")
}

// Authenticate logs into the portal, it succeeds when submitting the login
// form leads away from the login page. A failure captures a diagnostic and is
// returned wrapped in ErrAuthentication.
func (c *Crawler) Authenticate(ctx context.Context, credentials Credentials) (bool, error) {
	ctx, span := tracer.Start(ctx, "Authenticate")
	defer span.End()

	err := c.login(ctx, credentials)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrAuthentication, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "authentication failed")
		diagnostic := c.capture(ctx, "login")
		c.tel.ReportBroken(report_crawler_login, err, diagnostic)
		return false, err
	}
	c.tel.ReportDebug("authenticated", credentials.Username)
	return true, nil
}
