package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sigeduc-scraper/internal/crawler"
	"sigeduc-scraper/internal/report"
	"sigeduc-scraper/lib/diagnostics"
	"sigeduc-scraper/lib/telemetry"
	"time"

	"github.com/mazen160/go-random"
	"github.com/spf13/cobra"
)

var (
	crawlEngine string
	crawlNoMail bool
)

func init() {
	crawlCmd.Flags().StringVar(&crawlEngine, "engine", "", "Override browser.engine from the config (http or rod).")
	crawlCmd.Flags().BoolVar(&crawlNoMail, "no-mail", false, "Do not e-mail the run report even when report.server is set.")
	rootCmd.AddCommand(crawlCmd)
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [--engine http|rod] [--no-mail]",
	Short: "Logs into the portal, refreshes the unit list and extracts every unit's summary.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if crawlEngine != "" {
			cfg.Browser.Engine = crawlEngine
		}
		err = cfg.Validate()
		if err != nil {
			return err
		}

		runId, err := random.String(8)
		if err != nil {
			return fmt.Errorf("generate run id: %w", err)
		}
		tel := telemetry.SlogAPI{}
		slog.Info("starting crawl", "run", runId, "engine", cfg.Browser.Engine, "portal", cfg.Portal.BaseUrl)

		telemetry.InstrumentPerfStats(ctx, time.Second*15)

		recorder, err := diagnostics.NewRecorder(cfg.Diagnostics.Dir, runId, tel)
		if err != nil {
			return err
		}
		s, err := openStore(ctx, cfg, tel)
		if err != nil {
			return err
		}
		engine, err := newEngine(ctx, cfg, tel)
		if err != nil {
			s.Close()
			return err
		}

		rc := crawler.RunContext{
			RunId:       runId,
			Nav:         engine,
			Store:       s,
			Diagnostics: recorder,
			Tel:         tel,
		}
		defer func() {
			if err := rc.Close(); err != nil {
				slog.Warn("failed to release run resources", "err", err)
			}
		}()

		c, err := crawler.New(rc, cfg.CrawlerOptions())
		if err != nil {
			return err
		}
		result, runErr := c.Run(ctx)

		report.WriteRun(os.Stdout, result)
		slog.Info("diagnostics written", "dir", recorder.Directory())

		if cfg.Report.Enabled() && !crawlNoMail {
			err := report.Mail(ctx, cfg.Report, result)
			if err != nil {
				slog.Error("failed to mail report", "err", err)
			}
		}

		if runErr != nil {
			return runErr
		}
		if result.Count(crawler.ITEM_FAILED) > 0 {
			return errors.New("some units failed, see the report above")
		}
		return nil
	},
}
