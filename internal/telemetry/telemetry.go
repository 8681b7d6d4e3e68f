// Package telemetry provides privacy-compliant error tracking.
// Reporting is strictly opt-in: nothing leaves the process unless
// sentry.enabled is set in the configuration.
package telemetry

import (
	"fmt"
	"log"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/rangelog/rangelog/internal/conf"
	"github.com/rangelog/rangelog/internal/errors"
)

var sentryInitialized atomic.Bool

// InitSentry initializes the Sentry SDK with privacy-compliant settings and
// attaches the error package's reporting hook. A disabled config is not an
// error, telemetry simply stays off.
func InitSentry(settings *conf.Settings) error {
	if !settings.Sentry.Enabled {
		log.Println("Sentry telemetry is disabled (opt-in required)")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:        settings.Sentry.DSN,
		SampleRate: 1.0,
		Debug:      false,

		// Privacy-compliant settings
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "", // prevent hostname leakage

		Release: fmt.Sprintf("rangelog@%s", settings.Version),

		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("app", "rangelog")
		scope.SetTag("node_name", ScrubMessage(settings.Main.Name))
	})

	sentryInitialized.Store(true)

	// Route enhanced errors through Sentry from here on
	errors.SetPrivacyScrubber(ScrubMessage)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))

	log.Println("Sentry telemetry initialized")
	return nil
}

// Enabled reports whether Sentry was successfully initialized.
func Enabled() bool {
	return sentryInitialized.Load()
}

// applyPrivacyFilters strips identifying data from an outgoing event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	// Clear user data and server name
	event.User = sentry.User{}
	event.ServerName = ""

	// Remove sensitive contexts
	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	// Remove extra fields except allowed ones
	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	// Remove sensitive tags
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}

// CaptureMessage sends a scrubbed informational message when telemetry is on.
func CaptureMessage(message string, level sentry.Level, component string) {
	if !sentryInitialized.Load() {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		scope.SetTag("component", component)
		sentry.CaptureMessage(ScrubMessage(message))
	})
}

// Flush waits for buffered events to be delivered, bounded by timeout.
// Call during shutdown.
func Flush(timeout time.Duration) {
	if !sentryInitialized.Load() {
		return
	}
	sentry.Flush(timeout)
}

var (
	urlQueryRegex = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	userPathRegex = regexp.MustCompile(`/(home|Users)/[^/\s]+`)
	credRegex     = regexp.MustCompile(`(?i)(password|secret|token|api[_-]?key|access[_-]?key|dsn)[=:]\S+`)
	emailRegex    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
)

// ScrubMessage anonymizes strings before they leave the process: URL query
// strings, home directory paths, credential pairs and email addresses.
func ScrubMessage(message string) string {
	scrubbed := urlQueryRegex.ReplaceAllString(message, "$1?[REDACTED]")
	scrubbed = credRegex.ReplaceAllString(scrubbed, "$1=[REDACTED]")
	scrubbed = userPathRegex.ReplaceAllString(scrubbed, "/$1/[USER]")
	scrubbed = emailRegex.ReplaceAllString(scrubbed, "[EMAIL]")
	return scrubbed
}
