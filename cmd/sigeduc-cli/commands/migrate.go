package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Creates the database tables if they do not exist yet.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		database, err := openDatabase(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		slog.Info("database is up to date", "driver", cfg.Database.Driver)
		return database.Close()
	},
}
