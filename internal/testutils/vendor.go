package testutils

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/parkfeeds/parques-reunidos/internal/registry"
	"github.com/stretchr/testify/require"
)

// Paths served by the fake vendor.
const (
	AttractionsPath = "/api/v1/service/attraction"
	RestaurantsPath = "/api/v1/service/restaurant"
	CalendarPath    = "/openinghours"
)

// Credentials expected by the fake vendor.
const (
	VendorAPIKey        = "test-key"
	VendorEstablishment = "tEst"
)

// VendorPayloads are the bodies served by a fake vendor.
type VendorPayloads struct {
	// Attractions are served in order, one per request, the last one repeated.
	// The vendor serves the catalog and the live feed from the same endpoint.
	Attractions []string
	Restaurants string
	Calendar    string
	// Status, when set, is answered to every request instead of the payloads.
	Status int
}

// Vendor is a fake park vendor serving its API and a calendar page.
type Vendor struct {
	*httptest.Server

	payloads VendorPayloads
	hits     map[string]int
	mu       sync.Mutex
}

// NewVendor starts a fake vendor which is closed with the test.
func NewVendor(t *testing.T, payloads VendorPayloads) *Vendor {
	t.Helper()

	v := &Vendor{
		payloads: payloads,
		hits:     make(map[string]int),
	}
	v.Server = httptest.NewServer(http.HandlerFunc(v.serve))
	t.Cleanup(v.Close)
	return v
}

func (v *Vendor) serve(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.hits[r.URL.Path]++
	if v.payloads.Status != 0 {
		w.WriteHeader(v.payloads.Status)
		return
	}

	if strings.HasPrefix(r.URL.Path, "/api/") &&
		(r.Header.Get("Authorization") != "Bearer "+VendorAPIKey || r.Header.Get("Stay-Establishment") != VendorEstablishment) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch r.URL.Path {
	case AttractionsPath:
		i := min(v.hits[r.URL.Path], len(v.payloads.Attractions)) - 1
		if i < 0 {
			_, _ = w.Write([]byte("[]"))
			return
		}
		_, _ = w.Write([]byte(v.payloads.Attractions[i]))
	case RestaurantsPath:
		_, _ = w.Write([]byte(v.payloads.Restaurants))
	case CalendarPath:
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(v.payloads.Calendar))
	default:
		http.NotFound(w, r)
	}
}

// Hits returns the number of requests received on path.
func (v *Vendor) Hits(path string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hits[path]
}

// Park returns a valid park record pointing at the fake vendor.
func (v *Vendor) Park() registry.Park {
	return registry.Park{
		ID:                "testpark",
		Name:              "Test Park",
		DestinationSlug:   "testdestination",
		ParkSlug:          "testpark",
		Culture:           "de",
		FallbackCulture:   "en",
		Timezone:          "Europe/Berlin",
		Latitude:          51.5973,
		Longitude:         6.8647,
		CalendarURL:       v.URL + CalendarPath,
		StayEstablishment: VendorEstablishment,
		BaseURL:           v.URL,
		APIKey:            VendorAPIKey,
	}
}

// RegistryFile returns the content of a registry file declaring the fake vendor park.
func (v *Vendor) RegistryFile() string {
	p := v.Park()
	return fmt.Sprintf(`api_key = %q

[[park]]
id = %q
name = %q
destination_slug = %q
park_slug = %q
culture = %q
fallback_culture = %q
timezone = %q
latitude = %v
longitude = %v
calendar_url = %q
stay_establishment = %q
base_url = %q
`, p.APIKey, p.ID, p.Name, p.DestinationSlug, p.ParkSlug, p.Culture, p.FallbackCulture, p.Timezone,
		p.Latitude, p.Longitude, p.CalendarURL, p.StayEstablishment, p.BaseURL)
}

// CalendarPage renders a calendar page the way the park websites do, with the JSON
// attributes HTML escaped. An empty days or labels omits the attribute.
func CalendarPage(year int, days, labels string) string {
	var b strings.Builder
	b.WriteString("<html><body><form>")
	if days != "" {
		fmt.Fprintf(&b, `<input type="hidden" id="data-hour-%d" value="%s">`, year, strings.ReplaceAll(days, `"`, "&#34;"))
	}
	if labels != "" {
		fmt.Fprintf(&b, `<input type="hidden" id="data-hour-labels" value="%s">`, strings.ReplaceAll(labels, `"`, "&#34;"))
	}
	b.WriteString("</form></body></html>")
	return b.String()
}

// GetFreePort returns a free TCP port on host.
func GetFreePort(t *testing.T, host string) int {
	t.Helper()

	ln, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	require.NoError(t, err, "Setup: failed to listen on tcp")
	defer ln.Close()
	addr, ok := ln.Addr().(*net.TCPAddr)
	require.True(t, ok, "Setup: expected TCPAddr")
	return addr.Port
}
