package commands_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/parkfeeds/parques-reunidos/internal/models"
	"github.com/parkfeeds/parques-reunidos/internal/testutils"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type pollLine struct {
	Park  string              `json:"park"`
	Live  []models.LiveStatus `json:"live"`
	Error string              `json:"error"`
}

func pollLines(t *testing.T, out *bytes.Buffer) []pollLine {
	t.Helper()

	var lines []pollLine
	s := bufio.NewScanner(out)
	for s.Scan() {
		var l pollLine
		require.NoError(t, json.Unmarshal(s.Bytes(), &l), "Each poll line should be JSON")
		lines = append(lines, l)
	}
	require.NoError(t, s.Err(), "Poll output should be readable")
	return lines
}

func TestPoll(t *testing.T) {
	tests := map[string]struct {
		status      int
		withMetrics bool

		wantErrors bool
	}{
		"Polls live statuses":         {},
		"Polls with metrics endpoint": {withMetrics: true},
		"Failed builds keep polling":  {status: http.StatusBadGateway, wantErrors: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			v := newVendor(t, tc.status)
			args := []string{"poll", "testpark", "--registry", registryFor(t, v), "--interval", "10ms", "--count", "3"}
			if tc.withMetrics {
				args = append(args, "--metrics-addr", fmt.Sprintf("127.0.0.1:%d", testutils.GetFreePort(t, "127.0.0.1")))
			}

			a, out := newApp(t, args...)
			require.NoError(t, a.Run(), "Run should not return an error")

			lines := pollLines(t, out)
			require.Len(t, lines, 3, "Every build should be printed")
			for _, l := range lines {
				require.Equal(t, "testpark", l.Park, "Poll line park should match")
				if tc.wantErrors {
					require.NotEmpty(t, l.Error, "Failed build should be reported")
					require.Empty(t, l.Live, "Failed build should have no statuses")
					continue
				}
				require.Empty(t, l.Error, "Build should not fail")
				require.Len(t, l.Live, 2, "Live statuses should be built")
			}

			n, err := testutil.GatherAndCount(a.Gatherer(), "parques_builds_total")
			require.NoError(t, err, "Metrics should be gathered")
			require.Equal(t, 1, n, "Builds should be recorded under a single result")
		})
	}
}

func TestPollStopsOnQuit(t *testing.T) {
	v := newVendor(t, 0)
	a, _ := newApp(t, "poll", "testpark", "--registry", registryFor(t, v), "--interval", "10ms")

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run()
	}()

	time.Sleep(100 * time.Millisecond)
	a.Quit()

	select {
	case err := <-errCh:
		require.NoError(t, err, "Run should return without error once quit")
	case <-time.After(5 * time.Second):
		require.Fail(t, "Poll did not stop on quit")
	}
}

func TestPollErrors(t *testing.T) {
	tests := map[string]struct {
		args []string
	}{
		"Error on zero interval":        {args: []string{"--interval", "0"}},
		"Error on negative count":       {args: []string{"--count", "-1"}},
		"Error on invalid metrics addr": {args: []string{"--count", "1", "--metrics-addr", "127.0.0.1:-1"}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			v := newVendor(t, 0)
			a, _ := newApp(t, append([]string{"poll", "testpark", "--registry", registryFor(t, v)}, tc.args...)...)
			require.Error(t, a.Run(), "Run should return an error")
		})
	}
}
