package plugin

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/fyrsmithlabs/errsift/internal/schema"
)

// ManifestVersion is the only manifest schema version this loader
// understands. Unknown versions are rejected rather than guessed at.
const ManifestVersion = 1

// Manifest is the declarative half of a plugin: identity, selection
// metadata and regression samples. The behavioral half lives in the
// WASM module.
type Manifest struct {
	ManifestVersion int    `koanf:"manifest_version"`
	Name            string `koanf:"name"`
	Version         string `koanf:"version"`
	Priority        int    `koanf:"priority"`

	Hints   ManifestHints    `koanf:"hints"`
	Samples []ManifestSample `koanf:"samples"`
}

// ManifestHints mirrors schema.Hints in manifest form.
type ManifestHints struct {
	Required  []string `koanf:"required"`
	AnyOf     []string `koanf:"any_of"`
	Forbidden []string `koanf:"forbidden"`
}

// ManifestSample is a declared regression fixture for the plugin.
type ManifestSample struct {
	Name          string `koanf:"name"`
	Input         string `koanf:"input"`
	Command       string `koanf:"command"`
	MinConfidence int    `koanf:"min_confidence"`
	WantTotal     int    `koanf:"want_total"`
}

// ValidationError describes a single rejected manifest field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid plugin manifest: %s: %s", e.Field, e.Reason)
}

// ParseManifest decodes a YAML manifest and validates it. Parsing and
// validation are all-or-nothing: a manifest that fails any check is
// rejected whole.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse plugin manifest: %w", err)
	}
	if err := k.Unmarshal("", &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to decode plugin manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Validate checks the manifest against the extractor contract the
// registry will later enforce, so a bad plugin is rejected before any
// WASM is compiled.
func (m Manifest) Validate() error {
	if m.ManifestVersion != ManifestVersion {
		return &ValidationError{
			Field:  "manifest_version",
			Reason: fmt.Sprintf("unsupported version %d, want %d", m.ManifestVersion, ManifestVersion),
		}
	}
	if m.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if m.Priority < 0 {
		return &ValidationError{Field: "priority", Reason: "must not be negative"}
	}
	if len(m.Samples) == 0 {
		return &ValidationError{Field: "samples", Reason: "at least one sample is required"}
	}
	for i, s := range m.Samples {
		if s.Input == "" {
			return &ValidationError{
				Field:  fmt.Sprintf("samples[%d].input", i),
				Reason: "must not be empty",
			}
		}
	}
	for i, h := range m.Hints.Required {
		if h == "" {
			return &ValidationError{
				Field:  fmt.Sprintf("hints.required[%d]", i),
				Reason: "must not be empty",
			}
		}
	}
	return nil
}

// hints converts the manifest prefilter to the runtime form.
func (m Manifest) hints() schema.Hints {
	return schema.Hints{
		Required:  m.Hints.Required,
		AnyOf:     m.Hints.AnyOf,
		Forbidden: m.Hints.Forbidden,
	}
}

// samples converts the declared fixtures to the runtime form.
func (m Manifest) samples() []schema.Sample {
	out := make([]schema.Sample, 0, len(m.Samples))
	for _, s := range m.Samples {
		out = append(out, schema.Sample{
			Name:          s.Name,
			Input:         s.Input,
			Command:       s.Command,
			MinConfidence: s.MinConfidence,
			WantTotal:     s.WantTotal,
		})
	}
	return out
}
