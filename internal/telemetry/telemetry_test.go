package telemetry

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangelog/rangelog/internal/conf"
)

func TestInitSentryDisabledIsNoop(t *testing.T) {
	settings := &conf.Settings{}
	settings.Sentry.Enabled = false

	require.NoError(t, InitSentry(settings))
	assert.False(t, Enabled())
}

func TestApplyPrivacyFilters(t *testing.T) {
	t.Parallel()

	event := sentry.NewEvent()
	event.User = sentry.User{ID: "42", Username: "alice", IPAddress: "10.0.0.5"}
	event.ServerName = "alice-desktop"
	event.Contexts["device"] = sentry.Context{"name": "alice-desktop"}
	event.Contexts["os"] = sentry.Context{"name": "linux"}
	event.Contexts["trace"] = sentry.Context{"trace_id": "abc"}
	event.Extra["component"] = "clone"
	event.Extra["username"] = "alice"
	event.Tags = map[string]string{"hostname": "alice-desktop", "category": "database"}

	filtered := applyPrivacyFilters(event)

	assert.True(t, filtered.User.IsEmpty())
	assert.Empty(t, filtered.ServerName)
	assert.NotContains(t, filtered.Contexts, "device")
	assert.NotContains(t, filtered.Contexts, "os")
	assert.Contains(t, filtered.Contexts, "trace")
	assert.Contains(t, filtered.Extra, "component")
	assert.NotContains(t, filtered.Extra, "username")
	assert.NotContains(t, filtered.Tags, "hostname")
	assert.Contains(t, filtered.Tags, "category")
}

func TestScrubMessage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		deny []string
	}{
		{
			name: "url query",
			in:   "fetch https://api.example.com/v1?token=abc123 failed",
			deny: []string{"abc123"},
		},
		{
			name: "home path",
			in:   "open /home/alice/rangelog.db: permission denied",
			deny: []string{"alice"},
		},
		{
			name: "credentials",
			in:   "mysql auth password=supersecret rejected",
			deny: []string{"supersecret"},
		},
		{
			name: "email",
			in:   "notify alice@example.com about completed clone",
			deny: []string{"alice@example.com"},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out := ScrubMessage(tc.in)
			for _, denied := range tc.deny {
				assert.NotContains(t, out, denied)
			}
		})
	}
}
