// Package httpnav implements navigator.Engine without a browser: pages are
// fetched with a cookie-aware resty client and parsed with goquery. Anchors are
// followed by their href and submit controls post their enclosing form, which
// is enough for portals that render server side.
package httpnav

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http/cookiejar"
	"net/url"
	"sigeduc-scraper/lib/assert"
	"sigeduc-scraper/lib/htmlutil"
	"sigeduc-scraper/lib/navigator"
	"sigeduc-scraper/lib/telemetry"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_engine_goto   = "engine.goto"
	report_engine_submit = "engine.submit"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	// BaseUrl is the portal origin, redirects away from its host are refused.
	BaseUrl string
	// RequestTimeout bounds every single request. Default: 30s.
	RequestTimeout time.Duration
	// RequestsPerSecond limits the request rate, 0 disables the limiter.
	RequestsPerSecond float64
	UserAgent         string
	// BypassCloudflare wraps the transport with cloudflare-bp.
	BypassCloudflare bool
}

type page struct {
	url *url.URL
	doc *goquery.Document
}

// Engine is a navigator.Engine backed by plain http requests.
type Engine struct {
	http *resty.Client
	base *url.URL
	tel  telemetry.API
	page *page
}

var _ navigator.Engine = (*Engine)(nil)

func NewEngine(opts Options, tel telemetry.API) (*Engine, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.BaseUrl)

	tel = telemetry.NewScopedAPI("httpnav", tel)

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = time.Second * 30
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	if opts.BypassCloudflare {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(opts.RequestTimeout)

	if opts.RequestsPerSecond > 0 {
		// max burst >= 1 just means that no requests will be dropped
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(client, "httpnav", tel)

	return &Engine{
		http: client,
		base: baseUrl,
		tel:  tel,
	}, nil
}

// classify maps transport level timeouts onto navigator.ErrTimeout.
func classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() && !errors.Is(err, navigator.ErrTimeout) {
		return errors.Join(navigator.ErrTimeout, err)
	}
	return navigator.Timeout(err)
}

func (e *Engine) currentBase() *url.URL {
	if e.page != nil {
		return e.page.url
	}
	return e.base
}

// load makes the response the current page. Error responses are loaded too,
// the way a browser shows the error page, before ErrStatus is returned.
func (e *Engine) load(res *resty.Response) error {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return fmt.Errorf("parse %s: %w", res.Request.URL, err)
	}

	location, err := url.Parse(res.Request.URL)
	if err != nil {
		return err
	}
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		// the last request of a redirect chain
		location = res.RawResponse.Request.URL
	}

	e.page = &page{url: location, doc: doc}
	if res.StatusCode() >= 400 {
		return fmt.Errorf("%w: %s %s", navigator.ErrStatus, res.Request.URL, res.Status())
	}
	return nil
}

func (e *Engine) Goto(ctx context.Context, link string) error {
	target, err := htmlutil.ResolveHref(e.currentBase(), link)
	if err != nil {
		return err
	}

	res, err := e.http.R().
		SetContext(ctx).
		Get(target)
	if err != nil {
		e.tel.ReportBroken(report_engine_goto, fmt.Errorf("fetch: %w", err), target)
		return classify(err)
	}
	return e.load(res)
}

// WaitSettled returns immediately, a fetched document has no pending resources.
func (e *Engine) WaitSettled(ctx context.Context, timeout time.Duration) error {
	return navigator.Timeout(ctx.Err())
}

func (e *Engine) Locate(ctx context.Context, selector string, timeout time.Duration) (navigator.Element, error) {
	if e.page == nil {
		return nil, fmt.Errorf("%w: no page loaded", navigator.ErrNotFound)
	}
	sel := e.page.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", navigator.ErrNotFound, selector)
	}
	return element{engine: e, sel: sel}, nil
}

func (e *Engine) LocateAll(ctx context.Context, selector string) ([]navigator.Element, error) {
	if e.page == nil {
		return nil, nil
	}
	return wrap(e, e.page.doc.Find(selector)), nil
}

func (e *Engine) Location(ctx context.Context) (string, error) {
	if e.page == nil {
		return "", fmt.Errorf("%w: no page loaded", navigator.ErrNotFound)
	}
	return e.page.url.String(), nil
}

func (e *Engine) Snapshot(ctx context.Context) (navigator.Snapshot, error) {
	if e.page == nil {
		return navigator.Snapshot{}, nil
	}
	contents, err := e.page.doc.Html()
	if err != nil {
		return navigator.Snapshot{}, err
	}
	return navigator.Snapshot{
		Url:  e.page.url.String(),
		Html: contents,
	}, nil
}

func (e *Engine) Close() error {
	e.http.GetClient().CloseIdleConnections()
	e.page = nil
	return nil
}

func (e *Engine) submit(ctx context.Context, form, submitter *goquery.Selection) error {
	values := formValues(form, submitter)

	target, err := htmlutil.ResolveHref(e.currentBase(), form.AttrOr("action", ""))
	if err != nil {
		// an empty action posts back to the current page
		target = e.currentBase().String()
	}

	req := e.http.R().SetContext(ctx)

	var res *resty.Response
	switch formMethod(form) {
	case "POST":
		res, err = req.SetFormDataFromValues(values).Post(target)
	default:
		link, parseErr := url.Parse(target)
		if parseErr != nil {
			return parseErr
		}
		link.RawQuery = values.Encode()
		res, err = req.Get(link.String())
	}
	if err != nil {
		e.tel.ReportBroken(report_engine_submit, fmt.Errorf("submit: %w", err), target)
		return classify(err)
	}
	return e.load(res)
}
