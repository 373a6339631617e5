// Package diagnostics writes snapshots of the current page to disk so failed
// extractions can be inspected after the run.
package diagnostics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	devenv "sigeduc-scraper/dev/env"
	"sigeduc-scraper/lib/assert"
	"sigeduc-scraper/lib/navigator"
	"sigeduc-scraper/lib/telemetry"
	"strings"
	"sync/atomic"
	"unicode"
)

const report_diagnostics_capture = "capture"

// Capture is the set of files written for a single snapshot.
type Capture struct {
	Label      string
	Url        string
	HtmlPath   string
	Screenshot string
}

// Recorder writes files named <run id>-<seq>-<label>.html (and .png when the
// engine provides a screenshot) into a single directory. A nil *Recorder
// discards every capture.
type Recorder struct {
	directory string
	runId     string
	seq       atomic.Uint64
	tel       telemetry.API
}

func NewRecorder(dir, runId string, tel telemetry.API) (*Recorder, error) {
	assert.NotEmptyStr(runId)
	assert.NotNil(tel)

	dir, err := devenv.ResolvePath(dir)
	if err != nil {
		return nil, err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return nil, fmt.Errorf("create diagnostics dir: %w", err)
	}

	return &Recorder{
		directory: dir,
		runId:     runId,
		tel:       telemetry.NewScopedAPI("diagnostics", tel),
	}, nil
}

func (r *Recorder) Directory() string {
	if r == nil {
		return ""
	}
	return r.directory
}

func sanitizeLabel(label string) string {
	var out strings.Builder
	dash := false
	for _, c := range strings.ToLower(label) {
		if c < unicode.MaxASCII && (unicode.IsLetter(c) || unicode.IsDigit(c)) {
			out.WriteRune(c)
			dash = false
			continue
		}
		if !dash && out.Len() > 0 {
			out.WriteRune('-')
			dash = true
		}
	}
	result := strings.TrimSuffix(out.String(), "-")
	if result == "" {
		return "page"
	}
	return result
}

// Capture snapshots the page nav is positioned on. Failures are reported and
// returned but they never affect the page itself.
func (r *Recorder) Capture(ctx context.Context, nav navigator.Engine, label string) (Capture, error) {
	if r == nil {
		return Capture{}, nil
	}

	seq := r.seq.Add(1)
	name := fmt.Sprintf("%s-%03d-%s", r.runId, seq, sanitizeLabel(label))

	snapshot, err := nav.Snapshot(ctx)
	if err != nil {
		r.tel.ReportWarning(report_diagnostics_capture, fmt.Errorf("snapshot: %w", err), label)
		return Capture{}, err
	}

	capture := Capture{
		Label:    label,
		Url:      snapshot.Url,
		HtmlPath: filepath.Join(r.directory, name+".html"),
	}
	contents := fmt.Sprintf("<!-- %s -->\n%s", snapshot.Url, snapshot.Html)
	err = os.WriteFile(capture.HtmlPath, []byte(contents), 0600)
	if err != nil {
		r.tel.ReportWarning(report_diagnostics_capture, fmt.Errorf("write html: %w", err), capture.HtmlPath)
		return Capture{}, err
	}

	if len(snapshot.Screenshot) > 0 {
		path := filepath.Join(r.directory, name+".png")
		err = os.WriteFile(path, snapshot.Screenshot, 0600)
		if err != nil {
			r.tel.ReportWarning(report_diagnostics_capture, fmt.Errorf("write screenshot: %w", err), path)
		} else {
			capture.Screenshot = path
		}
	}

	r.tel.ReportDebug("captured diagnostic", "label", label, "path", capture.HtmlPath)
	return capture, nil
}
