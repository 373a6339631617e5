package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sigeduc-scraper/cmd/sigeduc-cli/commands"
	"sigeduc-scraper/lib/osutil"
	"sigeduc-scraper/lib/telemetry"
)

func main() {
	ctx, stop := osutil.SignalContext(context.Background())

	tel, err := telemetry.SetupFromEnv(ctx, "sigeduc-cli")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to setup telemetry", "err", err)
	}

	code := commands.ExecuteContext(ctx)
	stop()
	if err := tel.Shutdown(context.Background()); err != nil {
		slog.Warn("failed to flush telemetry", "err", err)
	}
	os.Exit(code)
}
