package crawler

import (
	"context"
	"sigeduc-scraper/internal/db"
	"sigeduc-scraper/lib/telemetry"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchLabel(t *testing.T) {
	cases := []struct {
		label    string
		expected counter
		ok       bool
	}{
		{"Total de Estudantes", COUNTER_TOTAL_ESTUDANTES, true},
		{"  total de estudantes: ", COUNTER_TOTAL_ESTUDANTES, true},
		{"Total de Alunos", COUNTER_TOTAL_ESTUDANTES, true},
		{"Total de Servidores", COUNTER_TOTAL_SERVIDORES, true},
		{"TOTAL DE TURMAS", COUNTER_TOTAL_TURMAS, true},
		{"Total de Estudantes Novatos", COUNTER_TOTAL_ESTUDANTES_NOVATOS, true},
		{"Estudantes NÃO alocados em Turmas", COUNTER_ESTUDANTES_NAO_ALOCADOS, true},
		{"Estudantes NÃ£O alocados em Turmas", COUNTER_ESTUDANTES_NAO_ALOCADOS, true},
		{"Estudantes NÃƒO alocados em Turmas", COUNTER_ESTUDANTES_NAO_ALOCADOS, true},
		{"Estudantes Nao alocados em Turmas", COUNTER_ESTUDANTES_NAO_ALOCADOS, true},
		{"Capacidade", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		field, ok := matchLabel(c.label)
		require.Equal(t, c.ok, ok, c.label)
		if c.ok {
			require.Equal(t, c.expected, field, c.label)
		}
	}
}

func TestParseCount(t *testing.T) {
	valid := map[string]int64{
		"0":          0,
		"45":         45,
		" 1.234 ":    1234,
		"12.345.678": 12345678,
		"1234":       1234,
	}
	for value, expected := range valid {
		count, err := parseCount(value)
		require.NoError(t, err, value)
		require.Equal(t, expected, count, value)
	}

	for _, value := range []string{"", "-", "sem dados", "1,5", "12.34", "1.2345", "-3"} {
		_, err := parseCount(value)
		require.Error(t, err, value)
	}
}

func TestExtractSummaryLookupMiss(t *testing.T) {
	h := newHarness(t)
	h.portal.units = []portalUnit{{name: "Escola A"}}
	ctx := context.Background()

	crawler, tel := h.newCrawler(h.options())
	_, err := crawler.Authenticate(ctx, crawler.opts.Credentials)
	require.NoError(t, err)
	require.NoError(t, crawler.rc.Nav.Goto(ctx, h.portal.url("/app/escola.jsf?nome=Escola+A")))

	summary, err := crawler.ExtractSummary(ctx, "Escola A")
	require.NoError(t, err)
	require.Nil(t, summary)
	require.Len(t, tel.Find(telemetry.REPORT_WARNING, report_crawler_summary_lookup), 1)

	count, err := h.store().CountSummaries(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestExtractSummary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	saved := h.store().SaveUnits(ctx, []db.Unit{{Name: "Escola A", DetailLink: h.portal.url("/a")}})
	require.Equal(t, 1, saved.Saved)
	unit, ok, err := h.store().UnitByName(ctx, "Escola A")
	require.NoError(t, err)
	require.True(t, ok)

	h.portal.summary = [][2]string{
		{"Total de Estudantes", "2.000"},
		{"Total de Servidores", "n/d"},
		{"Turno", "Manhã"},
	}

	crawler, tel := h.newCrawler(h.options())
	_, err = crawler.Authenticate(ctx, crawler.opts.Credentials)
	require.NoError(t, err)
	require.NoError(t, crawler.rc.Nav.Goto(ctx, h.portal.url("/app/escola.jsf?nome=Escola+A")))

	summary, err := crawler.ExtractSummary(ctx, "Escola A")
	require.NoError(t, err)
	require.NotNil(t, summary)
	require.Equal(t, unit.ID, summary.UnitID)
	require.EqualValues(t, 2000, summary.TotalEstudantes.Int64)
	require.True(t, summary.TotalEstudantes.Valid)
	require.False(t, summary.TotalServidores.Valid)
	require.False(t, summary.TotalTurmas.Valid)
	require.Len(t, tel.Find(telemetry.REPORT_WARNING, report_crawler_summary_value), 1)
}

func TestExtractSummaryWithoutTable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.store().SaveUnits(ctx, []db.Unit{{Name: "Escola A", DetailLink: h.portal.url("/a")}})

	crawler, _ := h.newCrawler(h.options())
	_, err := crawler.Authenticate(ctx, crawler.opts.Credentials)
	require.NoError(t, err)
	// the landing page has no table at all
	_, err = crawler.ExtractSummary(ctx, "Escola A")
	require.ErrorIs(t, err, ErrUnexpectedPageState)
}
