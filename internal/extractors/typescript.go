package extractors

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/errsift/internal/schema"
)

// TypeScript extracts tsc compiler diagnostics. Two layouts are in the
// wild: the classic parenthesized form emitted by plain tsc,
//
//	src/app.ts(10,5): error TS2304: Cannot find name 'foo'.
//
// and the pretty form (tsc --pretty, also used by ts-loader),
//
//	src/app.ts:10:5 - error TS2304: Cannot find name 'foo'.
type TypeScript struct {
	paren   *regexp.Regexp
	pretty  *regexp.Regexp
	summary *regexp.Regexp
}

// NewTypeScript creates the tsc diagnostics extractor.
func NewTypeScript() *TypeScript {
	return &TypeScript{
		paren:   regexp.MustCompile(`^(.+?\.(?:ts|tsx|mts|cts|js|jsx))\((\d+),(\d+)\): (error|warning) (TS\d+): (.+)$`),
		pretty:  regexp.MustCompile(`^(.+?\.(?:ts|tsx|mts|cts|js|jsx)):(\d+):(\d+) - (error|warning) (TS\d+): (.+)$`),
		summary: regexp.MustCompile(`^Found (\d+) errors?`),
	}
}

func (t *TypeScript) Name() string  { return "typescript" }
func (t *TypeScript) Priority() int { return 90 }

func (t *TypeScript) Hints() schema.Hints {
	return schema.Hints{
		AnyOf: []string{"error TS", "warning TS"},
	}
}

func (t *TypeScript) Detect(output string) schema.DetectionResult {
	var s score
	var paren, pretty, summary bool
	var diags int
	for _, line := range splitLines(output) {
		switch {
		case t.paren.MatchString(line):
			diags++
			if !paren {
				paren = true
				s.add(45, "tsc parenthesized diagnostic")
			}
		case t.pretty.MatchString(line):
			diags++
			if !pretty {
				pretty = true
				s.add(45, "tsc pretty diagnostic")
			}
		case !summary && t.summary.MatchString(line):
			summary = true
			s.add(10, "tsc error count summary")
		}
	}
	if diags >= 2 {
		s.add(20, "multiple tsc diagnostics")
	}
	return s.result("tsc")
}

func (t *TypeScript) Extract(output, command string) schema.ExtractionResult {
	var errs []schema.FormattedError
	var consumed int

	for _, line := range splitLines(output) {
		m := t.paren.FindStringSubmatch(line)
		if m == nil {
			m = t.pretty.FindStringSubmatch(line)
		}
		if m == nil {
			if t.summary.MatchString(line) {
				consumed++
			}
			continue
		}
		consumed++
		errs = append(errs, schema.FormattedError{
			File:     m[1],
			Line:     atoi(m[2]),
			Column:   atoi(m[3]),
			Severity: m[4],
			Message:  m[6],
			Code:     m[5],
		})
	}

	if len(errs) == 0 {
		return schema.NotMyFormat("tsc")
	}

	result := schema.Finalize(errs, tsGuidance(errs), nil)
	result.Metadata = &schema.ResultMetadata{
		Completeness: schema.Completeness(output, consumed),
	}
	return result
}

// tsGuidance maps observed TS diagnostic codes to remediation hints.
func tsGuidance(errs []schema.FormattedError) string {
	var hints []string
	seen := map[string]bool{}
	add := func(h string) {
		if !seen[h] {
			seen[h] = true
			hints = append(hints, h)
		}
	}
	for _, e := range errs {
		switch e.Code {
		case "TS2304", "TS2552", "TS2551":
			add("Fix unresolved names: check imports and spelling")
		case "TS2322", "TS2345", "TS2339":
			add("Fix type mismatches: align declared and actual types")
		case "TS6133", "TS6196":
			add("Remove unused bindings or prefix them with underscore")
		case "TS2307":
			add("Install missing modules or fix module resolution paths")
		}
	}
	if len(hints) == 0 {
		return "Fix the reported compiler diagnostics starting with the first error"
	}
	return strings.Join(hints, "; ")
}

func (t *TypeScript) Samples() []schema.Sample {
	return []schema.Sample{
		{
			Name: "paren layout",
			Input: "src/app.ts(10,5): error TS2304: Cannot find name 'foo'.\n" +
				"src/util.ts(3,1): warning TS6133: 'x' is declared but its value is never read.\n" +
				"Found 1 error.\n",
			Command:       "tsc --noEmit",
			WantTool:      "typescript",
			MinConfidence: schema.ConfidenceHigh,
			WantTotal:     2,
			WantErrors: []schema.FormattedError{
				{File: "src/app.ts", Line: 10, Column: 5, Severity: "error", Message: "Cannot find name 'foo'.", Code: "TS2304"},
			},
		},
		{
			Name: "pretty layout",
			Input: "src/index.tsx:42:13 - error TS2322: Type 'string' is not assignable to type 'number'.\n\n" +
				"42     const n: number = name;\n" +
				"Found 1 error in src/index.tsx:42\n",
			Command:       "tsc --pretty",
			WantTool:      "typescript",
			MinConfidence: schema.ConfidencePossible,
			WantTotal:     1,
			WantErrors: []schema.FormattedError{
				{File: "src/index.tsx", Line: 42, Column: 13, Severity: "error", Message: "Type 'string' is not assignable to type 'number'.", Code: "TS2322"},
			},
		},
	}
}
