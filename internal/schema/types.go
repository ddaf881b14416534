package schema

// MaxErrorsInArray caps how many formatted errors a result carries.
// TotalErrors always reflects the pre-truncation count.
const MaxErrorsInArray = 10

// Confidence thresholds shared by detectors and the selector.
const (
	// ConfidenceHigh marks a high-confidence format match.
	ConfidenceHigh = 70

	// ConfidencePossible is the floor below which the selector
	// falls back to the generic extractor.
	ConfidencePossible = 40

	// ConfidenceMax caps additive detector scores.
	ConfidenceMax = 100
)

// Severity values used in FormattedError.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// FormattedError is one structured diagnostic extracted from raw output.
type FormattedError struct {
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Severity string `json:"severity,omitempty"`
	Message  string `json:"message"`
	Code     string `json:"code,omitempty"`
	Context  string `json:"context,omitempty"`
}

// DetectionResult reports how certain a detector is that input matches
// its format. Confidence is additive across structural markers, never
// negative, capped at ConfidenceMax. Patterns lists the markers that
// fired, in the order they were scored.
type DetectionResult struct {
	Confidence int      `json:"confidence"`
	Patterns   []string `json:"patterns"`
	Reason     string   `json:"reason"`
}

// ResultMetadata carries detection provenance and quality signals.
type ResultMetadata struct {
	// Detection is the winning detector's result, if selection ran.
	Detection *DetectionInfo `json:"detection,omitempty"`

	// Confidence mirrors the winning detection confidence (0-100).
	Confidence int `json:"confidence"`

	// Completeness is the fraction of non-blank input lines the
	// extractor consumed, 0..1.
	Completeness float64 `json:"completeness"`

	// Issues lists non-fatal problems encountered during extraction.
	Issues []string `json:"issues,omitempty"`
}

// DetectionInfo is a DetectionResult annotated with the extractor name.
type DetectionInfo struct {
	DetectionResult
	Extractor string `json:"extractor"`
}

// ExtractionResult is the canonical output of every extractor.
type ExtractionResult struct {
	Errors       []FormattedError `json:"errors"`
	TotalErrors  int              `json:"totalErrors"`
	Summary      string           `json:"summary"`
	Guidance     string           `json:"guidance"`
	ErrorSummary string           `json:"errorSummary,omitempty"`
	Metadata     *ResultMetadata  `json:"metadata,omitempty"`
}

// Sample pairs known raw tool output with the expected detection and
// extraction outcome. Samples double as regression fixtures and as
// documentation of each supported format; they are never consulted at
// runtime.
type Sample struct {
	Name    string
	Input   string
	Command string
	// WantTool is the extractor expected to win auto-detection for
	// this input.
	WantTool      string
	MinConfidence int
	WantTotal     int
	// WantErrors spot-checks a prefix of the extracted errors.
	WantErrors []FormattedError
}

// Hints is the cheap prefilter contract for an extractor: all Required
// substrings must be present, at least one AnyOf entry must be present,
// and none of Forbidden may be present. Substring containment only.
type Hints struct {
	Required  []string
	AnyOf     []string
	Forbidden []string
}
