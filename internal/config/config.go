// Package config holds the settings of a crawl, read from config.json5 (and
// its config.local.json5 override) in the working directory or any parent.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"sigeduc-scraper/internal/crawler"
	"sigeduc-scraper/internal/db"
	"sigeduc-scraper/internal/report"
	"sigeduc-scraper/lib/configutil"
	"time"
)

const (
	ENGINE_HTTP = "http"
	ENGINE_ROD  = "rod"
)

type Portal struct {
	BaseUrl  string `json:"base_url"`
	LoginUrl string `json:"login_url"`
	ListUrl  string `json:"list_url"`
	// optional stages, empty skips them
	MembersUrl       string `json:"members_url"`
	AnnouncementsUrl string `json:"announcements_url"`
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Browser struct {
	// Engine is either "http" or "rod".
	Engine string `json:"engine"`
	// ShowWindow runs chrome with a visible window (rod only).
	ShowWindow bool `json:"show_window"`
	// RemoteUrl connects to a running chrome instead of launching one (rod only).
	RemoteUrl string `json:"remote_url"`
	UserAgent string `json:"user_agent"`
	// RequestsPerSecond limits the request rate (http only), 0 is unlimited.
	RequestsPerSecond float64 `json:"requests_per_second"`
	BypassCloudflare  bool    `json:"bypass_cloudflare"`
}

// Timeouts are in seconds.
type Timeouts struct {
	Navigation int `json:"navigation"`
	Element    int `json:"element"`
	Settle     int `json:"settle"`
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (t Timeouts) NavigationTimeout() time.Duration {
	return seconds(t.Navigation)
}

type Diagnostics struct {
	Dir string `json:"dir"`
}

type Config struct {
	Portal      Portal            `json:"portal"`
	Credentials Credentials       `json:"credentials"`
	Selectors   crawler.Selectors `json:"selectors"`
	Database    db.Options        `json:"database"`
	Browser     Browser           `json:"browser"`
	Timeouts    Timeouts          `json:"timeouts"`
	Diagnostics Diagnostics       `json:"diagnostics"`
	Report      report.SmtpConfig `json:"report"`
}

func Defaults() Config {
	return Config{
		Portal: Portal{
			LoginUrl: "/app/public/autenticacao.jsf",
			ListUrl:  "/app/vinculos.jsf",
		},
		Selectors: crawler.DefaultSelectors(),
		Database: db.Options{
			Driver: db.DRIVER_SQLITE,
			File:   "<dev_state>/sigeduc.db",
		},
		Browser: Browser{
			Engine: ENGINE_HTTP,
		},
		Timeouts: Timeouts{
			Navigation: 30,
			Element:    20,
			Settle:     20,
		},
		Diagnostics: Diagnostics{
			Dir: "<dev_state>/diagnostics",
		},
		Report: report.SmtpConfig{
			Port: 587,
		},
	}
}

// Load finds config.json5 (or the file at path when set) and fills unset
// fields with Defaults.
func Load(path string) (Config, error) {
	var cfg Config
	var err error
	if path == "" {
		cfg, err = configutil.ReadRecursively[Config]("config.json5")
	} else {
		cfg, err = configutil.ReadConfig[Config](path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	err = configutil.ApplyDefaults(&cfg, Defaults())
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read is Load followed by Validate.
func Read(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func absolute(field, value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s: '%s' is not an absolute url", field, value)
	}
	return nil
}

// Validate reports every missing or malformed field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Portal.BaseUrl == "" {
		errs = append(errs, errors.New("portal.base_url is required"))
	} else if err := absolute("portal.base_url", c.Portal.BaseUrl); err != nil {
		errs = append(errs, err)
	}
	if c.Portal.LoginUrl == "" {
		errs = append(errs, errors.New("portal.login_url is required"))
	}
	if c.Portal.ListUrl == "" {
		errs = append(errs, errors.New("portal.list_url is required"))
	}
	if c.Credentials.Username == "" || c.Credentials.Password == "" {
		errs = append(errs, errors.New("credentials.username and credentials.password are required"))
	}
	switch c.Browser.Engine {
	case ENGINE_HTTP, ENGINE_ROD:
	default:
		errs = append(errs, fmt.Errorf("browser.engine: unknown engine '%s'", c.Browser.Engine))
	}
	switch c.Database.Driver {
	case db.DRIVER_SQLITE, db.DRIVER_LIBSQL, db.DRIVER_POSTGRES:
	default:
		errs = append(errs, fmt.Errorf("database.driver: unknown driver '%s'", c.Database.Driver))
	}
	if c.Report.Enabled() && c.Report.EmailAddress == "" {
		errs = append(errs, errors.New("report.email_address is required to send reports"))
	}
	return errors.Join(errs...)
}

// CrawlerOptions turns the portal section into crawler options. Relative
// portal paths are resolved against the base url.
func (c Config) CrawlerOptions() crawler.Options {
	resolve := func(path string) string {
		if path == "" {
			return ""
		}
		base, err := url.Parse(c.Portal.BaseUrl)
		if err != nil {
			return path
		}
		ref, err := url.Parse(path)
		if err != nil {
			return path
		}
		return base.ResolveReference(ref).String()
	}

	return crawler.Options{
		BaseUrl:          c.Portal.BaseUrl,
		LoginUrl:         resolve(c.Portal.LoginUrl),
		ListUrl:          resolve(c.Portal.ListUrl),
		MembersUrl:       resolve(c.Portal.MembersUrl),
		AnnouncementsUrl: resolve(c.Portal.AnnouncementsUrl),
		Credentials: crawler.Credentials{
			Username: c.Credentials.Username,
			Password: c.Credentials.Password,
		},
		Selectors: c.Selectors,
		Timeouts: crawler.Timeouts{
			Element: seconds(c.Timeouts.Element),
			Settle:  seconds(c.Timeouts.Settle),
		},
	}
}
