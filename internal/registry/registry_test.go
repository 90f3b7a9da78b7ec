package registry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parkfeeds/parques-reunidos/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "parks.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600), "Setup: could not write registry file")
	return path
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	r := registry.Defaults()
	require.Equal(t, []string{"bobbejaanland", "movieparkgermany"}, r.IDs(), "Built-in parks should be registered")

	mpg, err := r.Park("movieparkgermany")
	require.NoError(t, err, "Park should be found")
	assert.Equal(t, "movieparkgermanypark", mpg.ParkSlug, "Park slug should match")
	assert.Equal(t, "Europe/Berlin", mpg.Timezone, "Timezone should match")
	assert.Equal(t, "mBv6", mpg.StayEstablishment, "Establishment should match")
	assert.Equal(t, registry.DefaultBaseURL, mpg.BaseURL, "Base URL should default to the vendor host")

	bbl, err := r.Park("bobbejaanland")
	require.NoError(t, err, "Park should be found")
	assert.Equal(t, "nl", bbl.Culture, "Culture should match")
	assert.Equal(t, "mGvE", bbl.StayEstablishment, "Establishment should match")

	for _, p := range r.Parks() {
		require.ErrorIs(t, p.Validate(), registry.ErrInvalidPark, "Built-in park %s lacks its API key", p.ID)
		p.APIKey = "secret"
		require.NoError(t, p.Validate(), "Built-in park %s should be valid with an API key", p.ID)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		content string

		wantIDs   []string
		wantParks map[string]func(*testing.T, registry.Park)
		wantErr   bool
	}{
		"Empty file keeps built-in parks": {
			wantIDs: []string{"bobbejaanland", "movieparkgermany"},
		},
		"Top level API key applies to every park": {
			content: `api_key = "k"`,
			wantIDs: []string{"bobbejaanland", "movieparkgermany"},
			wantParks: map[string]func(*testing.T, registry.Park){
				"bobbejaanland":    func(t *testing.T, p registry.Park) { t.Helper(); assert.Equal(t, "k", p.APIKey) },
				"movieparkgermany": func(t *testing.T, p registry.Park) { t.Helper(); assert.Equal(t, "k", p.APIKey) },
			},
		},
		"Park fields override built-in ones": {
			content: `
api_key = "shared"
base_url = "https://staging.example.com"

[[park]]
id = "movieparkgermany"
api_key = "own"
culture = "en"
`,
			wantIDs: []string{"bobbejaanland", "movieparkgermany"},
			wantParks: map[string]func(*testing.T, registry.Park){
				"movieparkgermany": func(t *testing.T, p registry.Park) {
					t.Helper()
					assert.Equal(t, "own", p.APIKey, "Park API key should win")
					assert.Equal(t, "en", p.Culture, "Culture should be overridden")
					assert.Equal(t, "Europe/Berlin", p.Timezone, "Unset fields should be kept")
					assert.Equal(t, "https://staging.example.com", p.BaseURL, "Top level base URL should apply")
				},
				"bobbejaanland": func(t *testing.T, p registry.Park) {
					t.Helper()
					assert.Equal(t, "shared", p.APIKey, "Top level API key should apply")
				},
			},
		},
		"New park is added with defaults": {
			content: `
[[park]]
id = "other"
name = "Other Park"
destination_slug = "other"
park_slug = "otherpark"
culture = "es"
timezone = "Europe/Madrid"
calendar_url = "https://other.example.com/hours"
stay_establishment = "xYz1"
api_key = "k"
`,
			wantIDs: []string{"bobbejaanland", "movieparkgermany", "other"},
			wantParks: map[string]func(*testing.T, registry.Park){
				"other": func(t *testing.T, p registry.Park) {
					t.Helper()
					assert.Equal(t, registry.DefaultBaseURL, p.BaseURL, "Base URL should default")
					assert.Equal(t, registry.DefaultFallbackCulture, p.FallbackCulture, "Fallback culture should default")
					assert.NoError(t, p.Validate(), "New park should be valid")
				},
			},
		},

		"Error on park without id":  {content: "[[park]]\nname = \"x\"\n", wantErr: true},
		"Error on unknown key":      {content: "apikey = \"x\"\n", wantErr: true},
		"Error on invalid TOML":     {content: "[[park]\n", wantErr: true},
		"Error on mistyped field":   {content: "[[park]]\nid = \"x\"\nlatitude = \"north\"\n", wantErr: true},
		"Error on list of keys":     {content: "api_key = [\"a\"]\n", wantErr: true},
		"Error on top level tables": {content: "[park]\nid = \"x\"\n", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r, err := registry.Load(writeRegistry(t, tc.content))
			if tc.wantErr {
				require.Error(t, err, "Load should return an error")
				return
			}
			require.NoError(t, err, "Load should not return an error")
			require.Equal(t, tc.wantIDs, r.IDs(), "Park ids should match")

			for id, check := range tc.wantParks {
				p, err := r.Park(id)
				require.NoError(t, err, "Park %s should be registered", id)
				check(t, p)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := registry.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err, "Load should fail on a missing file")
}

func TestParkUnknown(t *testing.T) {
	t.Parallel()

	_, err := registry.Defaults().Park("disneyland")
	require.ErrorIs(t, err, registry.ErrUnknownPark, "Unknown park should be an error")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() registry.Park {
		p, err := registry.Defaults().WithAPIKey("secret").Park("bobbejaanland")
		require.NoError(t, err, "Setup: park should exist")
		return p
	}

	tests := map[string]struct {
		mutate func(*registry.Park)

		wantErr bool
	}{
		"Valid park":                    {mutate: func(*registry.Park) {}},
		"Empty fallback culture":        {mutate: func(p *registry.Park) { p.FallbackCulture = "" }},
		"Region qualified culture":      {mutate: func(p *registry.Park) { p.Culture = "nl-BE" }},
		"Error on missing API key":      {mutate: func(p *registry.Park) { p.APIKey = "" }, wantErr: true},
		"Error on missing base URL":     {mutate: func(p *registry.Park) { p.BaseURL = "" }, wantErr: true},
		"Error on invalid base URL":     {mutate: func(p *registry.Park) { p.BaseURL = "not a url" }, wantErr: true},
		"Error on no establishment":     {mutate: func(p *registry.Park) { p.StayEstablishment = "" }, wantErr: true},
		"Error on missing calendar URL": {mutate: func(p *registry.Park) { p.CalendarURL = "" }, wantErr: true},
		"Error on invalid timezone":     {mutate: func(p *registry.Park) { p.Timezone = "Europe/Atlantis" }, wantErr: true},
		"Error on local timezone":       {mutate: func(p *registry.Park) { p.Timezone = "Local" }, wantErr: true},
		"Error on invalid culture":      {mutate: func(p *registry.Park) { p.Culture = "not a culture" }, wantErr: true},
		"Error on missing park slug":    {mutate: func(p *registry.Park) { p.ParkSlug = "" }, wantErr: true},
		"Error on park slug clash":      {mutate: func(p *registry.Park) { p.ParkSlug = p.DestinationSlug }, wantErr: true},
		"Error on invalid latitude":     {mutate: func(p *registry.Park) { p.Latitude = 123 }, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			p := valid()
			tc.mutate(&p)

			err := p.Validate()
			if tc.wantErr {
				require.ErrorIs(t, err, registry.ErrInvalidPark, "Validate should return an error")
				return
			}
			require.NoError(t, err, "Validate should not return an error")
		})
	}
}

func TestWithAPIKey(t *testing.T) {
	t.Parallel()

	base, err := registry.Merge(registry.File{Parks: []registry.Park{{ID: "movieparkgermany", APIKey: "own"}}})
	require.NoError(t, err, "Setup: Merge should not return an error")

	r := base.WithAPIKey("fallback")
	mpg, err := r.Park("movieparkgermany")
	require.NoError(t, err, "Park should be found")
	bbl, err := r.Park("bobbejaanland")
	require.NoError(t, err, "Park should be found")

	assert.Equal(t, "own", mpg.APIKey, "Park API key should be kept")
	assert.Equal(t, "fallback", bbl.APIKey, "Missing API key should be filled")

	orig, err := base.Park("bobbejaanland")
	require.NoError(t, err, "Park should be found")
	assert.Empty(t, orig.APIKey, "Original registry should not be modified")
}

func TestSave(t *testing.T) {
	t.Parallel()

	r := registry.Defaults().WithAPIKey("secret")
	path := filepath.Join(t.TempDir(), "parks.toml")
	require.NoError(t, r.Save(path), "Save should not return an error")

	data, err := os.ReadFile(path)
	require.NoError(t, err, "Setup: could not read saved file")
	require.NotContains(t, string(data), "secret", "API keys should not be saved")

	loaded, err := registry.Load(path)
	require.NoError(t, err, "Saved registry should load")
	require.Equal(t, registry.Defaults().Parks(), loaded.Parks(), "Saved registry should load to the same parks")

	require.Error(t, r.Save(filepath.Join(t.TempDir(), "missing", "parks.toml")), "Save should fail in a missing directory")
}
