package crawler

import (
	"errors"
	"sigeduc-scraper/internal/store"
	"sigeduc-scraper/lib/diagnostics"
	"sigeduc-scraper/lib/navigator"
	"sigeduc-scraper/lib/telemetry"
)

// RunContext holds the handles a single run operates on. Nothing else in the
// package keeps global state.
type RunContext struct {
	RunId       string
	Nav         navigator.Engine
	Store       store.Store
	Diagnostics *diagnostics.Recorder
	Tel         telemetry.API
}

// Close releases the navigation session and the database.
func (rc RunContext) Close() error {
	var errs []error
	if rc.Nav != nil {
		errs = append(errs, rc.Nav.Close())
	}
	errs = append(errs, rc.Store.Close())
	return errors.Join(errs...)
}
