package schema

import (
	"fmt"
	"strings"
)

// PassesHints reports whether output clears the prefilter. It
// short-circuits on the first failing Required or Forbidden check and
// does no regex work, so it is safe to run across the whole registry
// before any detector.
func PassesHints(output string, h Hints) bool {
	for _, s := range h.Required {
		if !strings.Contains(output, s) {
			return false
		}
	}
	for _, s := range h.Forbidden {
		if strings.Contains(output, s) {
			return false
		}
	}
	if len(h.AnyOf) == 0 {
		return true
	}
	for _, s := range h.AnyOf {
		if strings.Contains(output, s) {
			return true
		}
	}
	return false
}

// Key identifies a diagnostic location for deduplication.
type Key struct {
	File   string
	Line   int
	Column int
}

// KeyOf returns the dedup key for an error.
func KeyOf(e FormattedError) Key {
	return Key{File: e.File, Line: e.Line, Column: e.Column}
}

// Prefer decides which of two duplicate errors at the same location
// survives. Extractors pass their format's tie-break; the default keeps
// the first match.
type Prefer func(kept, candidate FormattedError) bool

// Dedup collapses errors sharing a (file, line, column) key. Entries
// without a location (line and column both zero) are never collapsed:
// they are not "at" any position, and distinct failures in one file
// would otherwise merge. Order of first appearance is preserved. When
// prefer returns true for a later duplicate, its message, code and
// severity replace the kept entry's.
func Dedup(errs []FormattedError, prefer Prefer) []FormattedError {
	if len(errs) == 0 {
		return errs
	}
	out := make([]FormattedError, 0, len(errs))
	index := make(map[Key]int, len(errs))
	for _, e := range errs {
		if e.Line == 0 && e.Column == 0 {
			out = append(out, e)
			continue
		}
		k := KeyOf(e)
		if i, ok := index[k]; ok {
			if prefer != nil && prefer(out[i], e) {
				out[i] = e
			}
			continue
		}
		index[k] = len(out)
		out = append(out, e)
	}
	return out
}

// Finalize applies the canonical post-processing every extractor shares:
// dedup, truncation to MaxErrorsInArray, summary counts and the compact
// errorSummary rendering. TotalErrors reflects the post-dedup,
// pre-truncation count.
func Finalize(errs []FormattedError, guidance string, prefer Prefer) ExtractionResult {
	deduped := Dedup(errs, prefer)
	total := len(deduped)

	truncated := deduped
	if len(truncated) > MaxErrorsInArray {
		truncated = truncated[:MaxErrorsInArray]
	}

	return ExtractionResult{
		Errors:       truncated,
		TotalErrors:  total,
		Summary:      Summarize(deduped),
		Guidance:     guidance,
		ErrorSummary: RenderErrors(truncated),
	}
}

// Summarize renders the "N errors, M warnings" headline.
func Summarize(errs []FormattedError) string {
	var errors, warnings int
	for _, e := range errs {
		if e.Severity == SeverityWarning {
			warnings++
		} else {
			errors++
		}
	}
	return fmt.Sprintf("Found %d errors and %d warnings", errors, warnings)
}

// RenderErrors produces the newline-joined compact rendering of already
// truncated errors, suitable for direct display.
func RenderErrors(errs []FormattedError) string {
	if len(errs) == 0 {
		return ""
	}
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		var b strings.Builder
		if e.File != "" {
			b.WriteString(e.File)
			if e.Line > 0 {
				fmt.Fprintf(&b, ":%d", e.Line)
				if e.Column > 0 {
					fmt.Fprintf(&b, ":%d", e.Column)
				}
			}
			b.WriteString(" - ")
		}
		b.WriteString(e.Message)
		if e.Code != "" {
			fmt.Fprintf(&b, " [%s]", e.Code)
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// NotMyFormat is the valid zero-error result an extractor returns when
// invoked directly on input it does not recognize.
func NotMyFormat(tool string) ExtractionResult {
	return ExtractionResult{
		Errors:      []FormattedError{},
		TotalErrors: 0,
		Summary:     fmt.Sprintf("Input does not appear to be %s output", tool),
		Guidance:    "Run auto-detection to find a matching format",
	}
}

// Completeness computes the fraction of non-blank lines in output that
// matched counts as consumed. Returns 0 when output has no content.
func Completeness(output string, consumed int) float64 {
	var nonBlank int
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) != "" {
			nonBlank++
		}
	}
	if nonBlank == 0 {
		return 0
	}
	if consumed > nonBlank {
		consumed = nonBlank
	}
	return float64(consumed) / float64(nonBlank)
}
