// Package navigator describes the capabilities the crawler needs from a browser
// (or browser-like) session. Extractors only depend on these interfaces, the
// concrete engines live in the httpnav and rodnav subpackages.
package navigator

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout is returned when a navigation or element wait exceeds its bound.
	ErrTimeout = errors.New("navigator: timed out")
	// ErrNotFound is returned when a selector matches nothing on the current page.
	ErrNotFound = errors.New("navigator: element not found")
	// ErrUnsupported is returned when an engine cannot perform an action on an element.
	ErrUnsupported = errors.New("navigator: unsupported action")
	// ErrStatus is returned when the portal answers a navigation with an error status.
	ErrStatus = errors.New("navigator: unexpected response status")
)

// Engine is a single page session, all calls operate on the page the engine
// is currently positioned on.
type Engine interface {
	// Goto navigates to url and waits for the document to load.
	Goto(ctx context.Context, url string) error
	// WaitSettled waits for the page to stop loading resources, bounded by timeout.
	WaitSettled(ctx context.Context, timeout time.Duration) error
	// Locate waits up to timeout for selector to match and returns the first match.
	Locate(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	// LocateAll returns every current match of selector without waiting.
	LocateAll(ctx context.Context, selector string) ([]Element, error)
	// Location returns the url of the current page.
	Location(ctx context.Context) (string, error)
	// Snapshot captures the current page state for offline inspection.
	Snapshot(ctx context.Context) (Snapshot, error)
	Close() error
}

// Element is a handle to a node of the current page, it is invalidated by the
// next navigation.
type Element interface {
	Text() (string, error)
	// Attribute returns the value of attribute name and whether it was present.
	Attribute(name string) (string, bool, error)
	// HTML returns the inner html of the element.
	HTML() (string, error)
	// Find returns the descendants of the element that match selector.
	Find(selector string) ([]Element, error)
	Click(ctx context.Context) error
	Fill(ctx context.Context, value string) error
}

// Snapshot is the state of a page at some point in time.
type Snapshot struct {
	Url        string
	Html       string
	Screenshot []byte
}

// Timeout wraps err with ErrTimeout when it was caused by an exceeded deadline.
func Timeout(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		return errors.Join(ErrTimeout, err)
	}
	return err
}
