package commands

import (
	"os"
	"sigeduc-scraper/internal/report"
	"sigeduc-scraper/lib/telemetry"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(unitsCmd)
	rootCmd.AddCommand(summariesCmd)
}

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "Lists the units stored by previous crawls.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		s, err := openStore(cmd.Context(), cfg, telemetry.SlogAPI{})
		if err != nil {
			return err
		}
		defer s.Close()

		units, err := s.Units(cmd.Context())
		if err != nil {
			return err
		}
		report.WriteUnits(os.Stdout, units)
		return nil
	},
}

var summariesCmd = &cobra.Command{
	Use:   "summaries",
	Short: "Lists the latest summary of every unit.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		s, err := openStore(cmd.Context(), cfg, telemetry.SlogAPI{})
		if err != nil {
			return err
		}
		defer s.Close()

		summaries, err := s.Summaries(cmd.Context())
		if err != nil {
			return err
		}
		report.WriteSummaries(os.Stdout, summaries)
		return nil
	},
}
