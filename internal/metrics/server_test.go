package metrics_test

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/parkfeeds/parques-reunidos/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestListenAndServe(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		addr string

		wantErr bool
	}{
		"Free port on loopback": {addr: "127.0.0.1:0"},

		"Error on invalid port": {addr: "127.0.0.1:-1", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			reg := prometheus.NewRegistry()
			metrics.New(reg).Park("movieparkgermany").Builds.WithLabelValues("live", metrics.ResultOK).Inc()
			server := metrics.NewServer(newConfig(tc.addr), reg)

			errCh := listenAndServeAsync(t, server)
			defer server.Close()

			select {
			case err := <-errCh:
				if tc.wantErr {
					require.Error(t, err, "Expected ListenAndServe to fail")
					require.Empty(t, server.Addr(), "Addr should be empty if ListenAndServe fails")
					return
				}
				require.Failf(t, "ListenAndServe returned unexpectedly", "Got possible error: %v", err)
			case <-time.After(500 * time.Millisecond):
				require.False(t, tc.wantErr, "Expected ListenAndServe to return an error but it did not")
			}

			require.NotEmpty(t, server.Addr(), "Addr should be set after ListenAndServe")

			statusCode, body, err := scrape(t, server)
			require.NoError(t, err, "Expected to successfully scrape the metrics endpoint")
			require.Equal(t, http.StatusOK, statusCode, "Expected metrics endpoint to return 200 OK")
			require.Contains(t, body, `parques_builds_total{operation="live",park="movieparkgermany",result="ok"} 1`, "Registered metrics should be exposed")
		})
	}
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	server := metrics.NewServer(newConfig("127.0.0.1:0"), prometheus.NewRegistry())

	errCh := listenAndServeAsync(t, server)
	defer server.Close()

	select {
	case err := <-errCh:
		require.Failf(t, "ListenAndServe returned unexpectedly", "Got possible error: %v", err)
	case <-time.After(500 * time.Millisecond):
	}

	statusCode, _, err := scrape(t, server)
	require.NoError(t, err, "Expected to successfully scrape the metrics endpoint")
	require.Equal(t, http.StatusOK, statusCode, "Expected metrics endpoint to return 200 OK")

	require.NoError(t, server.Shutdown(t.Context()), "Expected Shutdown to succeed")

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, http.ErrServerClosed, "Expected ListenAndServe to return ErrServerClosed after shutdown")
	case <-time.After(time.Second):
		require.Fail(t, "Expected ListenAndServe to return after shutdown")
	}

	_, _, err = scrape(t, server)
	require.Error(t, err, "Expected error when scraping after shutdown")
}

func TestClose(t *testing.T) {
	t.Parallel()

	server := metrics.NewServer(newConfig("127.0.0.1:0"), prometheus.NewRegistry())
	require.Empty(t, server.Addr(), "Addr should be empty before ListenAndServe")

	errCh := listenAndServeAsync(t, server)
	defer server.Close()

	select {
	case err := <-errCh:
		require.Failf(t, "ListenAndServe returned unexpectedly", "Got possible error: %v", err)
	case <-time.After(500 * time.Millisecond):
	}

	require.NoError(t, server.Close(), "Expected Close to succeed")

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, http.ErrServerClosed, "Expected ListenAndServe to return ErrServerClosed after close")
	case <-time.After(time.Second):
		require.Fail(t, "Expected ListenAndServe to return after close")
	}
}

func newConfig(addr string) metrics.Config {
	return metrics.Config{
		Addr:         addr,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

func listenAndServeAsync(t *testing.T, server *metrics.Server) chan error {
	t.Helper()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		errCh <- server.ListenAndServe()
	}()
	return errCh
}

func scrape(t *testing.T, server *metrics.Server) (int, string, error) {
	t.Helper()

	resp, err := http.Get("http://" + server.Addr() + "/metrics")
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, string(body), nil
}
