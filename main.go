package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rangelog/rangelog/cmd"
	"github.com/rangelog/rangelog/internal/clone"
	"github.com/rangelog/rangelog/internal/conf"
	"github.com/rangelog/rangelog/internal/images"
	"github.com/rangelog/rangelog/internal/logging"
	"github.com/rangelog/rangelog/internal/telemetry"
)

// Version information, set via ldflags at build time
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}
	settings.Version = version
	settings.BuildDate = buildDate

	if settings.Sentry.Enabled {
		if err := telemetry.InitSentry(settings); err != nil {
			slog.Warn("telemetry initialization failed", "error", err)
		}
	}

	if err := clone.InitializeLogger(""); err != nil {
		slog.Warn("clone logger initialization failed", "error", err)
	}

	exitCode := 0
	if err := cmd.RootCommand(settings).Execute(); err != nil {
		exitCode = 1
	}

	_ = clone.CloseLogger()
	_ = images.CloseLogger()
	if telemetry.Enabled() {
		telemetry.Flush(2 * time.Second)
	}
	os.Exit(exitCode)
}
