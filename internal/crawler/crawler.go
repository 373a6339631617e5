// Package crawler drives an authenticated portal session through the unit
// list, every unit's detail page and the optional member and announcement
// pages, persisting what it extracts along the way.
package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"sigeduc-scraper/lib/assert"
	"sigeduc-scraper/lib/htmlutil"
	"sigeduc-scraper/lib/telemetry"
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("internal/crawler")

var (
	// ErrAuthentication is terminal, nothing behind the login page can be
	// crawled without a session.
	ErrAuthentication = errors.New("authentication failed")
	// ErrUnexpectedPageState is returned when an element a page must have
	// (a table, an anchor) is absent.
	ErrUnexpectedPageState = errors.New("unexpected page state")
	// ErrLookupMiss is recorded when a unit has no persisted row.
	ErrLookupMiss = errors.New("unit not found in store")
	// ErrAlreadyRun is returned by Run on a crawler that already ran.
	ErrAlreadyRun = errors.New("crawler already ran")
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Selectors struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Submit   string `json:"submit"`
	// SubmitText picks the submit control among the matches of Submit.
	SubmitText string `json:"submit_text"`

	UnitTable string `json:"unit_table"`
	// UnitTableCaption picks the unit table among the matches of UnitTable by
	// its caption or header text, empty takes the first match.
	UnitTableCaption string `json:"unit_table_caption"`
	UnitNamePrefix   string `json:"unit_name_prefix"`
	// UnitActivation matches the anchors that open a unit's detail page.
	UnitActivation string `json:"unit_activation"`

	SummaryTable string `json:"summary_table"`

	MemberTable string `json:"member_table"`

	AnnouncementContainer string `json:"announcement_container"`
	AnnouncementItem      string `json:"announcement_item"`
	AnnouncementTitle     string `json:"announcement_title"`
	AnnouncementDate      string `json:"announcement_date"`
	AnnouncementBody      string `json:"announcement_body"`
	AnnouncementLink      string `json:"announcement_link"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Username:   "#username",
		Password:   "#password",
		Submit:     "button",
		SubmitText: "Entrar no Sistema",

		UnitTable:      "table.subFormulario",
		UnitNamePrefix: "Lotação: ",
		UnitActivation: "table.subFormulario td a",

		SummaryTable: "table",

		MemberTable: "#tabelaAlunos",

		AnnouncementContainer: "#containerComunicados",
		AnnouncementItem:      ".card-comunicado",
		AnnouncementTitle:     ".titulo-noticia",
		AnnouncementDate:      ".data-publicacao",
		AnnouncementBody:      ".conteudo-resumido",
		AnnouncementLink:      "a[href]",
	}
}

type Timeouts struct {
	// Element bounds every wait for an element to appear.
	Element time.Duration
	// Settle bounds every wait for a page to finish loading after a click.
	Settle time.Duration
}

type Options struct {
	BaseUrl  string
	LoginUrl string
	ListUrl  string
	// MembersUrl and AnnouncementsUrl are optional, their stages are skipped
	// when empty.
	MembersUrl       string
	AnnouncementsUrl string

	Credentials Credentials
	Selectors   Selectors
	Timeouts    Timeouts
}

type Crawler struct {
	rc    RunContext
	opts  Options
	base  *url.URL
	tel   telemetry.API
	state State
	trail []State
}

func New(rc RunContext, opts Options) (*Crawler, error) {
	assert.NotNil(rc.Nav)
	assert.NotNil(rc.Tel)
	assert.NotEmptyStr(opts.BaseUrl)

	base, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url '%s' must be absolute", opts.BaseUrl)
	}
	if opts.Timeouts.Element <= 0 {
		opts.Timeouts.Element = time.Second * 20
	}
	if opts.Timeouts.Settle <= 0 {
		opts.Timeouts.Settle = time.Second * 20
	}

	return &Crawler{
		rc:    rc,
		opts:  opts,
		base:  base,
		tel:   telemetry.NewScopedAPI("crawler", rc.Tel),
		state: STATE_LOGGED_OUT,
		trail: []State{STATE_LOGGED_OUT},
	}, nil
}

// resolve turns a link from the page at pageUrl into an absolute url,
// root relative links always point at the portal origin.
func (c *Crawler) resolve(pageUrl, href string) (string, error) {
	base := c.base
	if pageUrl != "" {
		parsed, err := url.Parse(pageUrl)
		if err == nil && parsed.Host != "" {
			base = parsed
		}
	}
	if len(href) > 0 && href[0] == '/' && (len(href) == 1 || href[1] != '/') {
		base = c.base
	}
	return htmlutil.ResolveHref(base, href)
}
