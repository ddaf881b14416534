package extractors

import (
	"github.com/fyrsmithlabs/errsift/internal/schema"
)

// Extractor is the capability contract every format module satisfies.
// Built-in extractors implement it natively; external plugins are adapted
// to it by the plugin loader.
type Extractor interface {
	// Name identifies the extractor (e.g. "eslint").
	Name() string

	// Priority breaks confidence ties during selection; higher wins.
	Priority() int

	// Hints returns the substring prefilter for this format. The hints
	// must never produce a false negative relative to Detect: any input
	// scoring at or above schema.ConfidencePossible must pass them.
	Hints() schema.Hints

	// Samples returns the extractor's regression fixtures.
	Samples() []schema.Sample

	// Detect scores how certain the extractor is that output matches
	// its format. Total and deterministic; never panics.
	Detect(output string) schema.DetectionResult

	// Extract parses output into the canonical result. The command is
	// context only and is never executed. On unrecognized input the
	// extractor returns a valid zero-error result rather than failing.
	Extract(output, command string) schema.ExtractionResult
}

// BuiltIn returns all built-in extractors in registration order. The
// generic fallback is last and carries the lowest priority.
func BuiltIn() []Extractor {
	return []Extractor{
		NewTypeScript(),
		NewESLint(),
		NewMaven(),
		NewJUnitXML(),
		NewJest(),
		NewMocha(),
		NewPytest(),
		NewGoTest(),
		NewGeneric(),
	}
}
