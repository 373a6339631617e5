package crawler

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sigeduc-scraper/internal/db"
	"sigeduc-scraper/internal/store"
	"sigeduc-scraper/lib/diagnostics"
	"sigeduc-scraper/lib/navigator"
	"sigeduc-scraper/lib/navigator/httpnav"
	"sigeduc-scraper/lib/telemetry"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type clock struct {
	current time.Time
}

func (c *clock) now() time.Time {
	return c.current
}

// harness holds what outlives a single run: the database, the portal and the
// diagnostics directory.
type harness struct {
	t        *testing.T
	portal   *portal
	database *sql.DB
	diagDir  string
	clock    *clock
	runs     int
}

func newHarness(t *testing.T) *harness {
	database, dialect, err := db.Open(db.Options{Driver: db.DRIVER_SQLITE, File: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		database.Close()
	})
	require.NoError(t, db.Migrate(context.Background(), database, dialect))

	return &harness{
		t:        t,
		portal:   newPortal(t),
		database: database,
		diagDir:  t.TempDir(),
		clock:    &clock{current: time.Unix(1_700_000_000, 0)},
	}
}

func (h *harness) options() Options {
	return Options{
		BaseUrl:  h.portal.server.URL,
		LoginUrl: h.portal.url("/app/public/autenticacao.jsf"),
		ListUrl:  h.portal.url("/app/vinculos.jsf"),
		Credentials: Credentials{
			Username: portalUser,
			Password: portalPassword,
		},
		Selectors: DefaultSelectors(),
		Timeouts: Timeouts{
			Element: time.Second,
			Settle:  time.Second,
		},
	}
}

// newCrawler starts a fresh session against the portal, each call is a new
// run sharing the database of the harness.
func (h *harness) newCrawler(opts Options) (*Crawler, *telemetry.Recorder) {
	h.runs++
	tel := telemetry.NewRecorder()

	engine, err := httpnav.NewEngine(httpnav.Options{
		BaseUrl:        h.portal.server.URL,
		RequestTimeout: time.Second * 5,
	}, tel)
	require.NoError(h.t, err)
	h.t.Cleanup(func() {
		engine.Close()
	})

	runId := filepath.Base(h.t.Name()) + string(rune('0'+h.runs))
	recorder, err := diagnostics.NewRecorder(h.diagDir, runId, tel)
	require.NoError(h.t, err)

	crawler, err := New(RunContext{
		RunId:       runId,
		Nav:         engine,
		Store:       store.NewStore(h.database, tel).WithClock(h.clock.now),
		Diagnostics: recorder,
		Tel:         tel,
	}, opts)
	require.NoError(h.t, err)
	return crawler, tel
}

func (h *harness) diagnostics() []string {
	entries, err := os.ReadDir(h.diagDir)
	require.NoError(h.t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func (h *harness) store() store.Store {
	return store.NewStore(h.database, telemetry.NewRecorder())
}

func TestExtractUnits(t *testing.T) {
	h := newHarness(t)
	h.portal.units = []portalUnit{
		{name: "Unit A", href: "/a"},
		{name: "Unit B", href: "http://portal/b"},
		{name: "Unit C", href: "detalhe.jsf?id=3"},
	}

	crawler, tel := h.newCrawler(h.options())
	ctx := context.Background()
	ok, err := crawler.Authenticate(ctx, crawler.opts.Credentials)
	require.NoError(t, err)
	require.True(t, ok)

	units, err := crawler.ExtractUnits(ctx, crawler.opts.ListUrl)
	require.NoError(t, err)

	expected := []db.Unit{
		{Name: "Unit A", DetailLink: h.portal.url("/a")},
		{Name: "Unit B", DetailLink: "http://portal/b"},
		{Name: "Unit C", DetailLink: h.portal.url("/app/detalhe.jsf?id=3")},
	}
	if diff := cmp.Diff(expected, units); diff != "" {
		t.Fatalf("units differ (-expected +got):\n%s", diff)
	}

	// the row without a link is reported, header and short rows are not
	require.Len(t, tel.Find(telemetry.REPORT_WARNING, report_crawler_unit_row), 1)
}

func TestExtractUnitsByCaption(t *testing.T) {
	h := newHarness(t)
	h.portal.units = []portalUnit{{name: "Unit A"}}
	ctx := context.Background()

	opts := h.options()
	opts.Selectors.UnitTableCaption = "vínculos"
	crawler, _ := h.newCrawler(opts)
	_, err := crawler.Authenticate(ctx, opts.Credentials)
	require.NoError(t, err)
	units, err := crawler.ExtractUnits(ctx, opts.ListUrl)
	require.NoError(t, err)
	require.Len(t, units, 1)

	opts.Selectors.UnitTableCaption = "Turmas"
	crawler, _ = h.newCrawler(opts)
	_, err = crawler.Authenticate(ctx, opts.Credentials)
	require.NoError(t, err)
	_, err = crawler.ExtractUnits(ctx, opts.ListUrl)
	require.ErrorIs(t, err, ErrUnexpectedPageState)
}

func TestRun(t *testing.T) {
	h := newHarness(t)
	h.portal.units = []portalUnit{
		{name: "Escola A"},
		{name: "Escola B"},
		{name: "Escola C"},
		{name: "Escola D"},
	}
	h.portal.broken["Escola C"] = true

	crawler, tel := h.newCrawler(h.options())
	report, err := crawler.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, STATE_DONE, report.State)
	require.Equal(t, StageResult{Found: 4, Persisted: store.BatchResult{Saved: 4}}, report.List)
	require.Len(t, report.Items, 4)
	require.Equal(t, 3, report.Count(ITEM_OK))
	require.Equal(t, 1, report.Count(ITEM_FAILED))
	require.Nil(t, report.Members)
	require.Nil(t, report.Announcements)

	failed := report.Items[2]
	require.Equal(t, "Escola C", failed.Unit)
	require.Equal(t, ITEM_FAILED, failed.Status)
	require.Equal(t, STATE_ITEM_NAVIGATE, failed.Stage)
	require.ErrorIs(t, failed.Err, navigator.ErrStatus)
	require.FileExists(t, failed.Diagnostic)
	contents, err := os.ReadFile(failed.Diagnostic)
	require.NoError(t, err)
	require.Contains(t, string(contents), "nome=Escola+C")

	// exactly one diagnostic and one log entry for the failed unit
	require.Len(t, h.diagnostics(), 1)
	itemReports := tel.Find(telemetry.REPORT_BROKEN, report_crawler_item)
	require.Len(t, itemReports, 1)
	require.Equal(t, "Escola C", itemReports[0].Params[1])

	s := h.store()
	summaries, err := s.Summaries(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	for _, summary := range summaries {
		require.NotEqual(t, "Escola C", summary.Name)
		require.Equal(t, sql.NullInt64{Int64: 1234, Valid: true}, summary.TotalEstudantes)
		require.Equal(t, sql.NullInt64{Int64: 45, Valid: true}, summary.TotalServidores)
		require.Equal(t, sql.NullInt64{Int64: 30, Valid: true}, summary.TotalTurmas)
		require.Equal(t, sql.NullInt64{Int64: 12, Valid: true}, summary.TotalEstudantesNovatos)
		require.Equal(t, sql.NullInt64{Int64: 3, Valid: true}, summary.EstudantesNaoAlocados)
	}
}

func TestRunTrail(t *testing.T) {
	h := newHarness(t)
	h.portal.units = []portalUnit{{name: "Escola A"}}
	h.portal.members = [][]string{{"Ana", "1", "111"}}

	opts := h.options()
	opts.MembersUrl = h.portal.url("/app/alunos.jsf")
	crawler, _ := h.newCrawler(opts)
	report, err := crawler.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, []State{
		STATE_LOGGED_OUT,
		STATE_AUTHENTICATING,
		STATE_AUTHENTICATED,
		STATE_LISTING,
		STATE_ITEM_NAVIGATE,
		STATE_ITEM_EXTRACT,
		STATE_ITEM_PERSIST,
		STATE_MEMBERS,
		STATE_DONE,
	}, report.Trail)
	require.Equal(t, STATE_DONE, crawler.State())
	require.Panics(t, func() {
		crawler.transition(STATE_LISTING)
	})
}

func TestRunIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.portal.units = []portalUnit{{name: "Escola A"}, {name: "Escola B"}}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		crawler, _ := h.newCrawler(h.options())
		report, err := crawler.Run(ctx)
		require.NoError(t, err)
		require.Equal(t, STATE_DONE, report.State)
		if i > 0 {
			require.Equal(t, store.BatchResult{Ignored: 2}, report.List.Persisted)
		}
	}

	units, err := h.store().Units(ctx)
	require.NoError(t, err)
	require.Len(t, units, 2)
	count, err := h.store().CountSummaries(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestRunOverwritesSummaries(t *testing.T) {
	h := newHarness(t)
	h.portal.units = []portalUnit{{name: "Escola A"}, {name: "Escola B"}}
	ctx := context.Background()

	crawler, _ := h.newCrawler(h.options())
	_, err := crawler.Run(ctx)
	require.NoError(t, err)

	h.clock.current = h.clock.current.Add(time.Hour * 24)
	h.portal.set(func(p *portal) {
		p.summary = [][2]string{
			{"Total de Estudantes", "1.500"},
			{"Total de Turmas", "sem dados"},
		}
	})

	crawler, _ = h.newCrawler(h.options())
	report, err := crawler.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, report.Count(ITEM_OK))

	summaries, err := h.store().Summaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	for _, summary := range summaries {
		require.Equal(t, sql.NullInt64{Int64: 1500, Valid: true}, summary.TotalEstudantes)
		require.False(t, summary.TotalServidores.Valid)
		require.False(t, summary.TotalTurmas.Valid)
		require.False(t, summary.TotalEstudantesNovatos.Valid)
		require.False(t, summary.EstudantesNaoAlocados.Valid)
		require.Equal(t, h.clock.current.Unix(), summary.ExtractedAt)
	}
}

func TestRunAuthenticationFailure(t *testing.T) {
	h := newHarness(t)
	h.portal.units = []portalUnit{{name: "Escola A"}}

	opts := h.options()
	opts.Credentials.Password = "wrong"
	crawler, tel := h.newCrawler(opts)
	report, err := crawler.Run(context.Background())
	require.ErrorIs(t, err, ErrAuthentication)
	require.Equal(t, STATE_FAILED, report.State)
	require.Empty(t, report.Items)

	require.Len(t, tel.Find(telemetry.REPORT_BROKEN, report_crawler_login), 1)
	diags := h.diagnostics()
	require.Len(t, diags, 1)
	require.Contains(t, diags[0], "login")

	units, err := h.store().Units(context.Background())
	require.NoError(t, err)
	require.Empty(t, units)
}

func TestAuthenticationMissingField(t *testing.T) {
	h := newHarness(t)
	opts := h.options()
	opts.Selectors.Username = "#login-field"
	crawler, _ := h.newCrawler(opts)

	ok, err := crawler.Authenticate(context.Background(), opts.Credentials)
	require.False(t, ok)
	require.ErrorIs(t, err, ErrAuthentication)
	require.ErrorIs(t, err, navigator.ErrNotFound)
}

func TestRunWithoutUnitTable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// units persisted by an earlier run are still refreshed
	seed := h.store().SaveUnits(ctx, []db.Unit{{Name: "Escola A", DetailLink: h.portal.url("/x")}})
	require.Equal(t, 1, seed.Saved)
	h.portal.noUnitTable = true

	crawler, tel := h.newCrawler(h.options())
	report, err := crawler.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, STATE_DONE, report.State)
	require.ErrorIs(t, report.List.Err, ErrUnexpectedPageState)
	require.Len(t, tel.Find(telemetry.REPORT_BROKEN, report_crawler_list), 1)

	require.Len(t, report.Items, 1)
	require.Equal(t, ITEM_FAILED, report.Items[0].Status)
	require.ErrorIs(t, report.Items[0].Err, ErrUnexpectedPageState)
	require.Len(t, h.diagnostics(), 2)
}

func TestRunActivationPunctuation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.store().SaveUnits(ctx, []db.Unit{
		{Name: "Escola Municipal Santa Rita", DetailLink: h.portal.url("/old")},
		{Name: "Escola Fechada", DetailLink: h.portal.url("/closed")},
	})
	h.portal.units = []portalUnit{{name: "Escola Municipal Santa Rita."}}

	crawler, tel := h.newCrawler(h.options())
	report, err := crawler.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Items, 3)

	statuses := map[string]ItemStatus{}
	for _, item := range report.Items {
		statuses[item.Unit] = item.Status
	}
	require.Equal(t, map[string]ItemStatus{
		"Escola Municipal Santa Rita":  ITEM_OK,
		"Escola Fechada":               ITEM_FAILED,
		"Escola Municipal Santa Rita.": ITEM_OK,
	}, statuses)
	require.Len(t, tel.Find(telemetry.REPORT_WARNING, report_crawler_activation), 1)
}

func TestRunVanishedUnitKeepsSummary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := "Escola Estadual Professora Maria das Dores I"
	second := "Escola Estadual Professora Maria das Dores II"
	h.portal.units = []portalUnit{{name: first}, {name: second}}

	crawler, _ := h.newCrawler(h.options())
	report, err := crawler.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, report.Count(ITEM_OK))

	unit, ok, err := h.store().UnitByName(ctx, first)
	require.NoError(t, err)
	require.True(t, ok)
	before, ok, err := h.store().SummaryForUnit(ctx, unit.ID)
	require.NoError(t, err)
	require.True(t, ok)

	h.portal.units = []portalUnit{{name: second}}
	h.clock.current = h.clock.current.Add(time.Hour)

	crawler, tel := h.newCrawler(h.options())
	report, err = crawler.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Items, 2)

	for _, item := range report.Items {
		if item.Unit == first {
			require.Equal(t, ITEM_FAILED, item.Status)
			require.Equal(t, STATE_ITEM_NAVIGATE, item.Stage)
			require.ErrorIs(t, item.Err, ErrUnexpectedPageState)
			require.Contains(t, item.Err.Error(), second)
			require.NotEmpty(t, item.Diagnostic)
		} else {
			require.Equal(t, ITEM_OK, item.Status)
		}
	}
	require.Empty(t, tel.Find(telemetry.REPORT_WARNING, report_crawler_activation))

	after, ok, err := h.store().SummaryForUnit(ctx, unit.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, before, after)
}

func TestRunTwice(t *testing.T) {
	h := newHarness(t)
	h.portal.units = []portalUnit{{name: "Escola A"}}

	crawler, _ := h.newCrawler(h.options())
	report, err := crawler.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, STATE_DONE, report.State)

	report, err = crawler.Run(context.Background())
	require.ErrorIs(t, err, ErrAlreadyRun)
	require.Equal(t, STATE_DONE, report.State)
	require.Empty(t, report.Items)
}

func TestRunCancelled(t *testing.T) {
	h := newHarness(t)
	h.portal.units = []portalUnit{{name: "Escola A"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	crawler, _ := h.newCrawler(h.options())
	report, err := crawler.Run(ctx)
	require.Error(t, err)
	require.Equal(t, STATE_FAILED, report.State)
}

func TestRunMembersAndAnnouncements(t *testing.T) {
	h := newHarness(t)
	h.portal.units = []portalUnit{{name: "Escola A"}}
	h.portal.members = [][]string{
		{"Ana Souza", "2024001", "123.456.789-00", "01/03/2010"},
		{"Bruno Lima", "2024002", "987.654.321-00", "31/02/2011"},
		{"", "2024003", "000"},
		{"Carla", "2024004"},
	}
	h.portal.announcements = []portalAnnouncement{
		{
			title: "Matrículas abertas",
			date:  "10/01/2025",
			body:  "<p>Período de <strong>matrícula</strong> aberto.</p>",
			href:  "/app/comunicado.jsf?id=1",
		},
		{title: "", date: "11/01/2025", body: "sem título", href: "/x"},
		{title: "Reunião", date: "amanhã", body: "Pais e mestres", href: "https://outro.site/r"},
	}

	opts := h.options()
	opts.MembersUrl = h.portal.url("/app/alunos.jsf")
	opts.AnnouncementsUrl = h.portal.url("/app/comunicados.jsf")
	crawler, tel := h.newCrawler(opts)
	report, err := crawler.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, &StageResult{Found: 2, Persisted: store.BatchResult{Saved: 2}}, report.Members)
	require.Equal(t, &StageResult{Found: 2, Persisted: store.BatchResult{Saved: 2}}, report.Announcements)
	require.Len(t, tel.Find(telemetry.REPORT_WARNING, report_crawler_member_row), 1)
	require.Len(t, tel.Find(telemetry.REPORT_WARNING, report_crawler_member_date), 1)
	require.Len(t, tel.Find(telemetry.REPORT_WARNING, report_crawler_announcement_item), 1)
	require.Len(t, tel.Find(telemetry.REPORT_WARNING, report_crawler_announcement_date), 1)

	ctx := context.Background()
	members, err := h.store().Members(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2)
	require.Equal(t, "Ana Souza", members[0].Name)
	require.Equal(t, sql.NullString{String: "2010-03-01", Valid: true}, members[0].BirthDate)
	require.Equal(t, "123.456.789-00", members[0].NationalID)
	require.False(t, members[1].BirthDate.Valid)

	announcements, err := h.store().Announcements(ctx)
	require.NoError(t, err)
	require.Len(t, announcements, 2)
	require.Equal(t, "Matrículas abertas", announcements[0].Title)
	require.Equal(t, sql.NullString{String: "2025-01-10", Valid: true}, announcements[0].PublishDate)
	require.Equal(t, "Período de **matrícula** aberto.", announcements[0].Body)
	require.Equal(t, h.portal.url("/app/comunicado.jsf?id=1"), announcements[0].SourceUrl)
	require.Equal(t, "Reunião", announcements[1].Title)
	require.False(t, announcements[1].PublishDate.Valid)
	require.Equal(t, "https://outro.site/r", announcements[1].SourceUrl)
}

func TestRunStageFailureIsIsolated(t *testing.T) {
	h := newHarness(t)
	h.portal.units = []portalUnit{{name: "Escola A"}}

	opts := h.options()
	opts.MembersUrl = h.portal.url("/app/nao-existe.jsf")
	crawler, tel := h.newCrawler(opts)
	report, err := crawler.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, STATE_DONE, report.State)
	require.NotNil(t, report.Members)
	require.True(t, errors.Is(report.Members.Err, navigator.ErrStatus))
	require.Len(t, tel.Find(telemetry.REPORT_BROKEN, report_crawler_members), 1)
	require.Equal(t, 1, report.Count(ITEM_OK))
}
