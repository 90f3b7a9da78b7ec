package commands_test

import (
	"testing"

	"github.com/parkfeeds/parques-reunidos/cmd/parques/commands"
	"github.com/parkfeeds/parques-reunidos/internal/testutils"
	"github.com/stretchr/testify/require"
)

func TestFlags(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cmd  []string
		flag testutils.FlagCase
	}{
		"Verbose":      {flag: testutils.FlagCase{Name: "verbose", Shorthand: "v", Default: "0", Persistent: true}},
		"Config":       {flag: testutils.FlagCase{Name: "config", Persistent: true}},
		"Registry":     {flag: testutils.FlagCase{Name: "registry", Persistent: true}},
		"API key":      {flag: testutils.FlagCase{Name: "api-key", Persistent: true}},
		"JSON logs":    {flag: testutils.FlagCase{Name: "json-logs", Default: "false", Persistent: true}},
		"Format":       {flag: testutils.FlagCase{Name: "format", Shorthand: "o", Default: "json", Persistent: true}},
		"Timeout":      {flag: testutils.FlagCase{Name: "timeout", Default: "1m0s", Persistent: true}},
		"Parks export": {cmd: []string{"parks"}, flag: testutils.FlagCase{Name: "export"}},
		"Entity kind":  {cmd: []string{"entities"}, flag: testutils.FlagCase{Name: "kind", Default: "all"}},
		"Snapshot out": {cmd: []string{"snapshot"}, flag: testutils.FlagCase{Name: "out", Dirname: true}},
		"Interval":     {cmd: []string{"poll"}, flag: testutils.FlagCase{Name: "interval", Default: "1m0s"}},
		"Count":        {cmd: []string{"poll"}, flag: testutils.FlagCase{Name: "count", Default: "0"}},
		"Metrics addr": {cmd: []string{"poll"}, flag: testutils.FlagCase{Name: "metrics-addr"}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			a, err := commands.New()
			require.NoError(t, err, "Setup: New should not return an error")
			root := a.RootCmd()

			cmd := &root
			if tc.cmd != nil {
				cmd, _, err = root.Find(tc.cmd)
				require.NoError(t, err, "Setup: command %v should exist", tc.cmd)
			}
			testutils.AssertFlag(t, cmd, tc.flag)
		})
	}
}
