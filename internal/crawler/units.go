package crawler

import (
	"context"
	"fmt"
	"sigeduc-scraper/internal/db"
	"sigeduc-scraper/lib/htmlutil"
	"sigeduc-scraper/lib/navigator"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const report_crawler_unit_row = "units.row"

const (
	minUnitCells = 4
	unitLinkCell = 3
)

// locateTable waits for selector and returns its first match, or when caption
// is set, the first match whose caption or header cells contain caption.
func (c *Crawler) locateTable(ctx context.Context, selector, caption string) (navigator.Element, error) {
	first, err := c.rc.Nav.Locate(ctx, selector, c.opts.Timeouts.Element)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedPageState, err)
	}
	if caption == "" {
		return first, nil
	}

	want := strings.ToLower(htmlutil.NormalizeText(caption))
	tables, err := c.rc.Nav.LocateAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	for _, table := range tables {
		headings, err := table.Find("caption, th")
		if err != nil {
			return nil, err
		}
		for _, heading := range headings {
			if strings.Contains(strings.ToLower(elementText(heading)), want) {
				return table, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no '%s' captioned '%s'", ErrUnexpectedPageState, selector, caption)
}

// isHeaderRow reports rows made of header cells, the portal does not always
// put them in a thead.
func isHeaderRow(row navigator.Element) (bool, error) {
	headers, err := row.Find("th")
	if err != nil {
		return false, err
	}
	return len(headers) > 0, nil
}

func (c *Crawler) unitName(text string) string {
	name := htmlutil.NormalizeText(text)
	prefix := htmlutil.NormalizeText(c.opts.Selectors.UnitNamePrefix)
	if prefix != "" {
		name = strings.TrimPrefix(name, prefix)
	}
	return strings.TrimSpace(name)
}

// parseUnitRow returns false for rows that carry no unit (headers, layout
// rows) and an error for rows that should carry one but are malformed.
func (c *Crawler) parseUnitRow(row navigator.Element, pageUrl string) (db.Unit, bool, error) {
	header, err := isHeaderRow(row)
	if err != nil {
		return db.Unit{}, false, err
	}
	if header {
		return db.Unit{}, false, nil
	}

	cells, err := row.Find("td")
	if err != nil {
		return db.Unit{}, false, err
	}
	if len(cells) < minUnitCells {
		return db.Unit{}, false, nil
	}

	anchors, err := cells[unitLinkCell].Find("a")
	if err != nil {
		return db.Unit{}, false, err
	}
	if len(anchors) == 0 {
		return db.Unit{}, false, fmt.Errorf("no link in cell %d", unitLinkCell)
	}
	anchor := anchors[0]

	text, err := anchor.Text()
	if err != nil {
		return db.Unit{}, false, err
	}
	name := c.unitName(text)
	if name == "" {
		return db.Unit{}, false, fmt.Errorf("empty unit name in link text '%s'", text)
	}

	href, ok, err := anchor.Attribute("href")
	if err != nil {
		return db.Unit{}, false, err
	}
	if !ok {
		return db.Unit{}, false, fmt.Errorf("link of '%s' has no href", name)
	}
	link, err := c.resolve(pageUrl, href)
	if err != nil {
		return db.Unit{}, false, fmt.Errorf("link of '%s': %w", name, err)
	}

	return db.Unit{Name: name, DetailLink: link}, true, nil
}

// ExtractUnits reads every unit listed on the page at listUrl. Malformed rows
// are reported and skipped, a page without the unit table is an
// ErrUnexpectedPageState.
func (c *Crawler) ExtractUnits(ctx context.Context, listUrl string) ([]db.Unit, error) {
	ctx, span := tracer.Start(ctx, "ExtractUnits")
	defer span.End()

	nav := c.rc.Nav
	err := nav.Goto(ctx, listUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to open unit list")
		return nil, fmt.Errorf("open unit list: %w", err)
	}
	pageUrl, err := nav.Location(ctx)
	if err != nil {
		return nil, err
	}

	table, err := c.locateTable(ctx, c.opts.Selectors.UnitTable, c.opts.Selectors.UnitTableCaption)
	if err != nil {
		span.SetStatus(codes.Error, "failed to find unit table")
		return nil, fmt.Errorf("unit table: %w", err)
	}
	rows, err := table.Find("tbody > tr")
	if err != nil {
		return nil, err
	}

	var units []db.Unit
	for i, row := range rows {
		unit, ok, err := c.parseUnitRow(row, pageUrl)
		if err != nil {
			c.tel.ReportWarning(report_crawler_unit_row, err, i)
			continue
		}
		if !ok {
			continue
		}
		units = append(units, unit)
	}

	span.SetAttributes(attribute.Int("units", len(units)))
	c.tel.ReportCount("units.found", int64(len(units)))
	return units, nil
}
