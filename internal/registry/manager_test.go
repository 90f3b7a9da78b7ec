package registry_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parkfeeds/parques-reunidos/internal/fileutils"
	"github.com/parkfeeds/parques-reunidos/internal/registry"
	"github.com/parkfeeds/parques-reunidos/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const otherPark = `
[[park]]
id = "other"
name = "Other Park"
destination_slug = "other"
park_slug = "otherpark"
culture = "es"
timezone = "Europe/Madrid"
calendar_url = "https://other.example.com/hours"
stay_establishment = "xYz1"
`

func TestManagerLoad(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		content string
		noFile  bool
		apiKey  string

		wantIDs    []string
		wantAPIKey string
		wantErr    bool
	}{
		"Built-in parks without file": {noFile: true, wantIDs: []string{"bobbejaanland", "movieparkgermany"}},
		"Parks from file":             {content: otherPark, wantIDs: []string{"bobbejaanland", "movieparkgermany", "other"}},
		"Manager API key fills parks": {content: otherPark, apiKey: "cli", wantIDs: []string{"bobbejaanland", "movieparkgermany", "other"}, wantAPIKey: "cli"},
		"File API key wins":           {content: "api_key = \"file\"\n" + otherPark, apiKey: "cli", wantIDs: []string{"bobbejaanland", "movieparkgermany", "other"}, wantAPIKey: "file"},

		"Error keeps built-in parks": {content: "[[park]\n", wantIDs: []string{"bobbejaanland", "movieparkgermany"}, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := ""
			if !tc.noFile {
				path = writeRegistry(t, tc.content)
			}

			l := testutils.NewMockHandler(slog.LevelError)
			m := registry.NewManager(path, registry.WithAPIKey(tc.apiKey), registry.WithLogger(slog.New(&l)))
			err := m.Load()
			if tc.wantErr {
				require.Error(t, err, "Load should return an error")
			} else {
				require.NoError(t, err, "Load should not return an error")
			}

			require.Equal(t, tc.wantIDs, m.Registry().IDs(), "Served park ids should match")
			for _, id := range tc.wantIDs {
				p, err := m.Park(id)
				require.NoError(t, err, "Park %s should be served", id)
				assert.Equal(t, tc.wantAPIKey, p.APIKey, "API key of park %s should match", id)
			}
		})
	}
}

func TestManagerLoadKeepsPreviousOnError(t *testing.T) {
	t.Parallel()

	path := writeRegistry(t, otherPark)
	l := testutils.NewMockHandler(slog.LevelError)
	m := registry.NewManager(path, registry.WithLogger(slog.New(&l)))
	require.NoError(t, m.Load(), "Setup: initial Load should not return an error")

	require.NoError(t, os.WriteFile(path, []byte("not toml ["), 0600), "Setup: could not break registry file")
	require.Error(t, m.Load(), "Load should fail on a broken file")

	_, err := m.Park("other")
	require.NoError(t, err, "Previous registry should still be served")
}

func TestWatchMissingDirectory(t *testing.T) {
	t.Parallel()

	m := registry.NewManager(filepath.Join(t.TempDir(), "missing", "parks.toml"))
	_, _, err := m.Watch(t.Context())
	require.Error(t, err, "Watch should fail when the directory does not exist")
}

func TestWatchWithoutFile(t *testing.T) {
	t.Parallel()

	m := registry.NewManager("")
	_, _, err := m.Watch(t.Context())
	require.Error(t, err, "Watch should fail without a registry file")
}

func TestWatchReloadsOnChange(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		initial string
		updated string

		wantIDs    []string
		wantChange bool
	}{
		"Reloads added park": {
			updated:    otherPark,
			wantIDs:    []string{"bobbejaanland", "movieparkgermany", "other"},
			wantChange: true,
		},
		"Reloads removed park": {
			initial:    otherPark,
			updated:    "",
			wantIDs:    []string{"bobbejaanland", "movieparkgermany"},
			wantChange: true,
		},
		"Broken file keeps previous parks": {
			initial: otherPark,
			updated: "[[park]\n",
			wantIDs: []string{"bobbejaanland", "movieparkgermany", "other"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := writeRegistry(t, tc.initial)
			l := testutils.NewMockHandler(slog.LevelDebug)
			m := registry.NewManager(path, registry.WithLogger(slog.New(&l)))

			changes, errs, err := m.Watch(t.Context())
			require.NoError(t, err, "Watch should not return an error")

			require.NoError(t, fileutils.AtomicWrite(path, []byte(tc.updated)), "Setup: could not update registry file")

			select {
			case <-changes:
				require.True(t, tc.wantChange, "No change should be reported")
			case err := <-errs:
				require.Fail(t, "Unexpected watcher error", err)
			case <-time.After(time.Second):
				require.False(t, tc.wantChange, "Change should be reported")
			}

			require.Equal(t, tc.wantIDs, m.Registry().IDs(), "Served park ids should match")
			if !tc.wantChange {
				require.NotEmpty(t, l.Messages(slog.LevelWarn), "Reload error should be logged")
			}
		})
	}
}

func TestWatchStopsWithContext(t *testing.T) {
	t.Parallel()

	path := writeRegistry(t, "")
	l := testutils.NewMockHandler(slog.LevelDebug)
	m := registry.NewManager(path, registry.WithLogger(slog.New(&l)))

	ctx, cancel := context.WithCancel(t.Context())
	changes, _, err := m.Watch(ctx)
	require.NoError(t, err, "Watch should not return an error")

	cancel()
	select {
	case _, ok := <-changes:
		require.False(t, ok, "Changes channel should be closed")
	case <-time.After(time.Second):
		require.Fail(t, "Watcher did not stop")
	}
	require.Contains(t, l.Messages(slog.LevelInfo), "Park registry watcher stopped", "Stop should be logged")
}
