package registry

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/parkfeeds/parques-reunidos/internal/fileutils"
	"github.com/ubuntu/decorate"
)

// ErrUnknownPark is returned when looking up a park which is not in the registry.
var ErrUnknownPark = errors.New("unknown park")

// File is the on disk layout of a registry file.
//
// Top level APIKey and BaseURL apply to every park which does not set its own.
type File struct {
	APIKey  string `toml:"api_key,omitempty"`
	BaseURL string `toml:"base_url,omitempty"`
	Parks   []Park `toml:"park"`
}

// Registry is an immutable set of parks indexed by id.
type Registry struct {
	parks map[string]Park
}

// Defaults returns the registry of built-in parks.
func Defaults() Registry {
	r := Registry{parks: make(map[string]Park, len(builtins))}
	for _, p := range builtins {
		r.parks[p.ID] = p
	}
	return r
}

// Merge returns the built-in parks overlaid with the content of f.
// Parks of f sharing an id with a built-in park override its non empty fields.
func Merge(f File) (Registry, error) {
	r := Defaults()

	for i, p := range f.Parks {
		if p.ID == "" {
			return Registry{}, fmt.Errorf("park #%d has no id", i+1)
		}
		if existing, ok := r.parks[p.ID]; ok {
			p = existing.overlay(p)
		}
		r.parks[p.ID] = p
	}

	for id, p := range r.parks {
		if p.APIKey == "" {
			p.APIKey = f.APIKey
		}
		if f.BaseURL != "" && (p.BaseURL == "" || p.BaseURL == DefaultBaseURL) {
			p.BaseURL = f.BaseURL
		}
		if p.BaseURL == "" {
			p.BaseURL = DefaultBaseURL
		}
		if p.FallbackCulture == "" {
			p.FallbackCulture = DefaultFallbackCulture
		}
		r.parks[id] = p
	}

	return r, nil
}

// Load reads a registry file and merges it over the built-in parks.
func Load(path string) (r Registry, err error) {
	defer decorate.OnError(&err, "could not load park registry %q", path)

	var f File
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return Registry{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Registry{}, fmt.Errorf("unknown keys %v", undecoded)
	}

	return Merge(f)
}

// Park returns the park registered under id.
func (r Registry) Park(id string) (Park, error) {
	p, ok := r.parks[id]
	if !ok {
		return Park{}, fmt.Errorf("%w %q, known parks are %v", ErrUnknownPark, id, r.IDs())
	}
	return p, nil
}

// IDs returns the registered park ids, sorted.
func (r Registry) IDs() []string {
	return slices.Sorted(maps.Keys(r.parks))
}

// Parks returns the registered parks, sorted by id.
func (r Registry) Parks() []Park {
	parks := make([]Park, 0, len(r.parks))
	for _, id := range r.IDs() {
		parks = append(parks, r.parks[id])
	}
	return parks
}

// WithAPIKey returns a copy of r where parks without API key use key.
func (r Registry) WithAPIKey(key string) Registry {
	if key == "" {
		return r
	}

	c := Registry{parks: maps.Clone(r.parks)}
	for id, p := range c.parks {
		if p.APIKey == "" {
			p.APIKey = key
			c.parks[id] = p
		}
	}
	return c
}

// Save writes the registry to path as a registry file. API keys are not written.
func (r Registry) Save(path string) (err error) {
	defer decorate.OnError(&err, "could not save park registry to %q", path)

	f := File{Parks: r.Parks()}
	for i := range f.Parks {
		f.Parks[i].APIKey = ""
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return err
	}
	return fileutils.AtomicWrite(path, buf.Bytes())
}
