package crawler

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sigeduc-scraper/internal/db"
	"sigeduc-scraper/lib/htmlutil"
	"sigeduc-scraper/lib/navigator"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/text/encoding/charmap"
)

const (
	report_crawler_summary_lookup = "summary.lookup"
	report_crawler_summary_value  = "summary.value"
)

type counter int

const (
	COUNTER_TOTAL_ESTUDANTES counter = iota
	COUNTER_TOTAL_SERVIDORES
	COUNTER_TOTAL_TURMAS
	COUNTER_TOTAL_ESTUDANTES_NOVATOS
	COUNTER_ESTUDANTES_NAO_ALOCADOS
)

func (c counter) set(summary *db.UnitSummary, value sql.NullInt64) {
	switch c {
	case COUNTER_TOTAL_ESTUDANTES:
		summary.TotalEstudantes = value
	case COUNTER_TOTAL_SERVIDORES:
		summary.TotalServidores = value
	case COUNTER_TOTAL_TURMAS:
		summary.TotalTurmas = value
	case COUNTER_TOTAL_ESTUDANTES_NOVATOS:
		summary.TotalEstudantesNovatos = value
	case COUNTER_ESTUDANTES_NAO_ALOCADOS:
		summary.EstudantesNaoAlocados = value
	}
}

var summaryLabels = map[string]counter{
	"Total de Estudantes":               COUNTER_TOTAL_ESTUDANTES,
	"Total de Servidores":               COUNTER_TOTAL_SERVIDORES,
	"Total de Turmas":                   COUNTER_TOTAL_TURMAS,
	"Total de Estudantes Novatos":       COUNTER_TOTAL_ESTUDANTES_NOVATOS,
	"Estudantes NÃO alocados em Turmas": COUNTER_ESTUDANTES_NAO_ALOCADOS,
}

// renderings the portal has been seen to emit that the derived variants do
// not cover
var summaryLabelAliases = map[string]counter{
	"Estudantes NÃ£O alocados em Turmas": COUNTER_ESTUDANTES_NAO_ALOCADOS,
	"Estudantes Nao alocados em Turmas":  COUNTER_ESTUDANTES_NAO_ALOCADOS,
	"Total de Alunos":                    COUNTER_TOTAL_ESTUDANTES,
}

// labels written as utf-8 but read back as a single byte charset
var mojibakeCharsets = []*charmap.Charmap{
	charmap.Windows1252,
	charmap.ISO8859_1,
}

func labelKey(label string) string {
	label = htmlutil.NormalizeText(label)
	label = strings.TrimSpace(strings.TrimSuffix(label, ":"))
	return strings.ToLower(label)
}

func mojibake(label string, charset *charmap.Charmap) (string, bool) {
	decoded, err := charset.NewDecoder().String(label)
	if err != nil || decoded == label {
		return "", false
	}
	return decoded, true
}

// repairMojibake reverses mojibake, it returns false when label does not
// look like utf-8 read back as charset.
func repairMojibake(label string, charset *charmap.Charmap) (string, bool) {
	encoded, err := charset.NewEncoder().String(label)
	if err != nil || encoded == label || !utf8.ValidString(encoded) {
		return "", false
	}
	return encoded, true
}

func buildLabelIndex() map[string]counter {
	index := map[string]counter{}
	for label, field := range summaryLabels {
		index[labelKey(label)] = field
		for _, charset := range mojibakeCharsets {
			if variant, ok := mojibake(label, charset); ok {
				index[labelKey(variant)] = field
			}
		}
	}
	for label, field := range summaryLabelAliases {
		index[labelKey(label)] = field
	}
	return index
}

var labelIndex = buildLabelIndex()

// matchLabel maps a summary label in any of its known renderings to the
// counter it fills.
func matchLabel(label string) (counter, bool) {
	field, ok := labelIndex[labelKey(label)]
	if ok {
		return field, true
	}
	for _, charset := range mojibakeCharsets {
		repaired, ok := repairMojibake(htmlutil.NormalizeText(label), charset)
		if !ok {
			continue
		}
		field, ok = labelIndex[labelKey(repaired)]
		if ok {
			return field, true
		}
	}
	return 0, false
}

var (
	plainCount   = regexp.MustCompile(`^\d+$`)
	groupedCount = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
)

// parseCount accepts plain digits and pt-BR thousands groups ("1.234").
func parseCount(value string) (int64, error) {
	value = htmlutil.NormalizeText(value)
	value = strings.ReplaceAll(value, " ", "")
	switch {
	case plainCount.MatchString(value):
	case groupedCount.MatchString(value):
		value = strings.ReplaceAll(value, ".", "")
	default:
		return 0, fmt.Errorf("'%s' is not a count", value)
	}
	return strconv.ParseInt(value, 10, 64)
}

// locateSummaryTable finds the table holding an emphasized known label. When
// layout tables are nested, the innermost match wins.
func (c *Crawler) locateSummaryTable(ctx context.Context) (navigator.Element, error) {
	selector := c.opts.Selectors.SummaryTable
	_, err := c.rc.Nav.Locate(ctx, selector, c.opts.Timeouts.Element)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedPageState, err)
	}
	tables, err := c.rc.Nav.LocateAll(ctx, selector)
	if err != nil {
		return nil, err
	}

	var best navigator.Element
	bestNested := -1
	for _, table := range tables {
		emphasized, err := table.Find("td b, td strong")
		if err != nil {
			return nil, err
		}
		known := false
		for _, el := range emphasized {
			if _, ok := matchLabel(elementText(el)); ok {
				known = true
				break
			}
		}
		if !known {
			continue
		}
		nested, err := table.Find("table")
		if err != nil {
			return nil, err
		}
		if best == nil || len(nested) < bestNested {
			best = table
			bestNested = len(nested)
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: no table with a known summary label", ErrUnexpectedPageState)
	}
	return best, nil
}

// ExtractSummary reads the summary of unitName from the detail page the
// engine is currently on. It returns nil without an error when the unit is
// not in the store.
func (c *Crawler) ExtractSummary(ctx context.Context, unitName string) (*db.UnitSummary, error) {
	ctx, span := tracer.Start(ctx, "ExtractSummary")
	defer span.End()
	span.SetAttributes(attribute.String("unit", unitName))

	unit, ok, err := c.rc.Store.UnitByName(ctx, unitName)
	if err != nil {
		span.SetStatus(codes.Error, "failed to look up unit")
		return nil, fmt.Errorf("look up unit: %w", err)
	}
	if !ok {
		c.tel.ReportWarning(report_crawler_summary_lookup, ErrLookupMiss, unitName)
		return nil, nil
	}

	table, err := c.locateSummaryTable(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "failed to find summary table")
		return nil, err
	}
	rows, err := table.Find("tr")
	if err != nil {
		return nil, err
	}

	summary := &db.UnitSummary{UnitID: unit.ID}
	for _, row := range rows {
		cells, err := row.Find("td")
		if err != nil {
			return nil, err
		}
		if len(cells) < 2 {
			continue
		}

		label := elementText(cells[0])
		field, ok := matchLabel(label)
		if !ok {
			c.tel.ReportDebug("ignored summary label", unitName, label)
			continue
		}

		value := elementText(cells[len(cells)-1])
		count, err := parseCount(value)
		if err != nil {
			c.tel.ReportWarning(report_crawler_summary_value, err, unitName, label)
			field.set(summary, sql.NullInt64{})
			continue
		}
		field.set(summary, sql.NullInt64{Int64: count, Valid: true})
	}

	return summary, nil
}
