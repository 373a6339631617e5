// Package report renders crawl results for humans, either on the terminal or
// as the body of a notification e-mail.
package report

import (
	"database/sql"
	"fmt"
	"io"
	"sigeduc-scraper/internal/crawler"
	"sigeduc-scraper/internal/db"
	"sigeduc-scraper/internal/store"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	// footers carry counts in prose, keep them as written
	t.Style().Format.Footer = text.FormatDefault
	t.SetOutputMirror(w)
	return t
}

func count(value sql.NullInt64) any {
	if !value.Valid {
		return "-"
	}
	return value.Int64
}

func stageRow(name string, result *crawler.StageResult) table.Row {
	if result == nil {
		return table.Row{name, "-", "-", "-", "-", "not configured"}
	}
	errText := ""
	if result.Err != nil {
		errText = result.Err.Error()
	}
	return table.Row{
		name,
		result.Found,
		result.Persisted.Saved,
		result.Persisted.Ignored,
		result.Persisted.Failed,
		errText,
	}
}

// WriteRun writes an overview of the run followed by the units that did not
// finish successfully.
func WriteRun(w io.Writer, r crawler.Report) {
	fmt.Fprintf(
		w, "run %s finished in state %s after %s\n",
		r.RunId, r.State, r.Duration().Round(time.Millisecond),
	)
	fmt.Fprintf(
		w, "units: %d ok, %d skipped, %d failed\n",
		r.Count(crawler.ITEM_OK), r.Count(crawler.ITEM_SKIPPED), r.Count(crawler.ITEM_FAILED),
	)

	stages := newTable(w)
	stages.AppendHeader(table.Row{"Stage", "Found", "Saved", "Ignored", "Failed", "Error"})
	list := r.List
	stages.AppendRows([]table.Row{
		stageRow("units", &list),
		stageRow("members", r.Members),
		stageRow("announcements", r.Announcements),
	})
	stages.Render()

	var unsuccessful []crawler.ItemResult
	for _, item := range r.Items {
		if item.Status != crawler.ITEM_OK {
			unsuccessful = append(unsuccessful, item)
		}
	}
	if len(unsuccessful) == 0 {
		return
	}

	items := newTable(w)
	items.AppendHeader(table.Row{"Unit", "Status", "Stage", "Error", "Diagnostic"})
	for _, item := range unsuccessful {
		errText := ""
		if item.Err != nil {
			errText = item.Err.Error()
		}
		items.AppendRow(table.Row{item.Unit, item.Status, item.Stage, errText, item.Diagnostic})
	}
	items.Render()
}

// RunText renders WriteRun into a string.
func RunText(r crawler.Report) string {
	var out strings.Builder
	WriteRun(&out, r)
	return out.String()
}

func WriteUnits(w io.Writer, units []db.Unit) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Id", "Name", "Detail link", "Extracted at"})
	for _, unit := range units {
		t.AppendRow(table.Row{
			unit.ID,
			unit.Name,
			unit.DetailLink,
			time.Unix(unit.ExtractedAt, 0).Format(time.DateTime),
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d units", len(units)), "", ""})
	t.Render()
}

func WriteSummaries(w io.Writer, summaries []db.ListUnitSummariesRow) {
	t := newTable(w)
	t.AppendHeader(table.Row{
		"Unit",
		"Estudantes",
		"Servidores",
		"Turmas",
		"Novatos",
		"Não alocados",
		"Extracted at",
	})
	for _, s := range summaries {
		t.AppendRow(table.Row{
			s.Name,
			count(s.TotalEstudantes),
			count(s.TotalServidores),
			count(s.TotalTurmas),
			count(s.TotalEstudantesNovatos),
			count(s.EstudantesNaoAlocados),
			time.Unix(s.ExtractedAt, 0).Format(time.DateTime),
		})
	}
	t.Render()
}

// StageTotals sums the batch results of every stage of the run.
func StageTotals(r crawler.Report) store.BatchResult {
	total := r.List.Persisted
	for _, stage := range []*crawler.StageResult{r.Members, r.Announcements} {
		if stage == nil {
			continue
		}
		total.Saved += stage.Persisted.Saved
		total.Ignored += stage.Persisted.Ignored
		total.Failed += stage.Persisted.Failed
	}
	return total
}
