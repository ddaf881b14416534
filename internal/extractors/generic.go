package extractors

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/errsift/internal/schema"
)

// Generic is the guaranteed fallback: a conservative headline scanner
// that works on any text. Its detector never rejects (confidence may be
// zero) and its extract routine always returns a valid result, so the
// selector can rely on it when nothing else matches.
type Generic struct {
	headline    *regexp.Regexp
	fileLineCol *regexp.Regexp
	fileLine    *regexp.Regexp
}

// NewGeneric creates the fallback extractor.
func NewGeneric() *Generic {
	return &Generic{
		headline:    regexp.MustCompile(`(?i)^\s*(error|fatal|panic)\s*[:\s]\s*(.+)$`),
		fileLineCol: regexp.MustCompile(`^([\w./\\-]+):(\d+):(\d+):?\s+(.+)$`),
		fileLine:    regexp.MustCompile(`^([\w./\\-]+):(\d+):?\s+(.+)$`),
	}
}

func (g *Generic) Name() string  { return "generic" }
func (g *Generic) Priority() int { return 0 }

// Hints returns an empty filter: the fallback is always a candidate.
func (g *Generic) Hints() schema.Hints { return schema.Hints{} }

func (g *Generic) Detect(output string) schema.DetectionResult {
	var s score
	var headline, located bool
	for _, line := range splitLines(output) {
		switch {
		case !headline && g.headline.MatchString(line):
			headline = true
			s.add(10, "error headline")
		case !located && (g.fileLineCol.MatchString(line) || g.fileLine.MatchString(line)):
			located = true
			s.add(5, "file:line location")
		}
	}
	r := s.result("generic")
	if r.Confidence == 0 {
		r.Reason = "fallback extractor, no structural markers required"
	}
	return r
}

func (g *Generic) Extract(output, command string) schema.ExtractionResult {
	var errs []schema.FormattedError
	var consumed int

	for _, line := range splitLines(output) {
		if m := g.headline.FindStringSubmatch(line); m != nil {
			consumed++
			errs = append(errs, schema.FormattedError{
				Severity: schema.SeverityError,
				Message:  strings.TrimSpace(m[2]),
				Code:     strings.ToLower(m[1]),
			})
			continue
		}
		if m := g.fileLineCol.FindStringSubmatch(line); m != nil {
			consumed++
			errs = append(errs, schema.FormattedError{
				File:     m[1],
				Line:     atoi(m[2]),
				Column:   atoi(m[3]),
				Severity: schema.SeverityError,
				Message:  strings.TrimSpace(m[4]),
			})
			continue
		}
		if m := g.fileLine.FindStringSubmatch(line); m != nil {
			consumed++
			errs = append(errs, schema.FormattedError{
				File:     m[1],
				Line:     atoi(m[2]),
				Severity: schema.SeverityError,
				Message:  strings.TrimSpace(m[3]),
			})
		}
	}

	if len(errs) == 0 {
		return schema.ExtractionResult{
			Errors:      []schema.FormattedError{},
			TotalErrors: 0,
			Summary:     "No recognizable errors found in output",
			Guidance:    "Review the raw output manually; no known error layout matched",
		}
	}

	result := schema.Finalize(errs, "Review each reported line; the output did not match a known tool format", nil)
	result.Metadata = &schema.ResultMetadata{
		Completeness: schema.Completeness(output, consumed),
	}
	return result
}

func (g *Generic) Samples() []schema.Sample {
	return []schema.Sample{
		{
			Name: "bare error headlines",
			Input: "Error: something went wrong\n" +
				"fatal: repository not found\n",
			WantTool:      "generic",
			MinConfidence: 0,
			WantTotal:     2,
			WantErrors: []schema.FormattedError{
				{Severity: "error", Message: "something went wrong", Code: "error"},
				{Severity: "error", Message: "repository not found", Code: "fatal"},
			},
		},
		{
			Name:          "arbitrary text",
			Input:         "asdkjhaskjdh\n",
			WantTool:      "generic",
			MinConfidence: 0,
			WantTotal:     0,
		},
	}
}
