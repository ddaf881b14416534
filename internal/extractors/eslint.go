package extractors

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/errsift/internal/schema"
)

// ESLint extracts lint violations in two layouts: the compact formatter,
//
//	src/index.ts:10:5: error Unexpected console statement no-console
//
// and the default stylish formatter, where a bare file-path line sets
// parsing context for the indented violation lines that follow:
//
//	src/index.ts
//	  10:5  error  Unexpected console statement  no-console
//
// When the same location is reported by both a base rule and a
// plugin-scoped rule, the plugin rule's message wins the dedup: scoped
// rules (those containing a slash) are the stricter, more specific
// engine.
type ESLint struct {
	compact *regexp.Regexp
	stylish *regexp.Regexp
	header  *regexp.Regexp
	problem *regexp.Regexp
	rule    *regexp.Regexp
}

// NewESLint creates the eslint violations extractor.
func NewESLint() *ESLint {
	return &ESLint{
		compact: regexp.MustCompile(`^(.+?):(\d+):(\d+): (error|warning) (.+)$`),
		stylish: regexp.MustCompile(`^\s+(\d+):(\d+)\s+(error|warning)\s+(.+?)(?:\s{2,}(\S+))?$`),
		header:  regexp.MustCompile(`^\S+\.(?:js|jsx|ts|tsx|mjs|cjs|vue)$`),
		problem: regexp.MustCompile(`(\d+) problems? \((\d+) errors?, (\d+) warnings?\)`),
		rule:    regexp.MustCompile(`^@?[a-z][a-z0-9-]*(?:/[a-z0-9-]+)*$`),
	}
}

func (e *ESLint) Name() string  { return "eslint" }
func (e *ESLint) Priority() int { return 85 }

func (e *ESLint) Hints() schema.Hints {
	return schema.Hints{
		AnyOf:     []string{" error ", " warning ", ": error", ": warning"},
		Forbidden: []string{"error TS"},
	}
}

func (e *ESLint) Detect(output string) schema.DetectionResult {
	var s score
	var compact, stylish, problem bool
	for _, line := range splitLines(output) {
		switch {
		case !compact && e.compact.MatchString(line):
			compact = true
			s.add(45, "compact file:line:col violation")
		case !stylish && e.stylish.MatchString(line):
			stylish = true
			s.add(35, "stylish indented violation")
		case !problem && e.problem.MatchString(line):
			problem = true
			s.add(25, "problem count summary")
		}
	}
	return s.result("eslint")
}

func (e *ESLint) Extract(output, command string) schema.ExtractionResult {
	var errs []schema.FormattedError
	var consumed int
	var currentFile string

	for _, line := range splitLines(output) {
		if m := e.compact.FindStringSubmatch(line); m != nil {
			consumed++
			msg, rule := e.splitRule(m[5])
			errs = append(errs, schema.FormattedError{
				File:     m[1],
				Line:     atoi(m[2]),
				Column:   atoi(m[3]),
				Severity: m[4],
				Message:  msg,
				Code:     rule,
			})
			continue
		}
		if e.header.MatchString(line) {
			currentFile = line
			consumed++
			continue
		}
		if m := e.stylish.FindStringSubmatch(line); m != nil && currentFile != "" {
			consumed++
			errs = append(errs, schema.FormattedError{
				File:     currentFile,
				Line:     atoi(m[1]),
				Column:   atoi(m[2]),
				Severity: m[3],
				Message:  strings.TrimSpace(m[4]),
				Code:     m[5],
			})
			continue
		}
		if e.problem.MatchString(line) {
			consumed++
		}
	}

	if len(errs) == 0 {
		return schema.NotMyFormat("eslint")
	}

	result := schema.Finalize(errs, eslintGuidance(errs), preferScopedRule)
	result.Metadata = &schema.ResultMetadata{
		Completeness: schema.Completeness(output, consumed),
	}
	return result
}

// splitRule separates the trailing rule name from a compact-format
// message. The last whitespace-separated token is treated as the rule
// only when it looks like a rule id and enough message remains.
func (e *ESLint) splitRule(rest string) (message, rule string) {
	rest = strings.TrimSpace(rest)
	idx := strings.LastIndexByte(rest, ' ')
	if idx <= 0 {
		return rest, ""
	}
	last := rest[idx+1:]
	if !e.rule.MatchString(last) || !strings.ContainsAny(last, "-/") {
		return rest, ""
	}
	return strings.TrimSpace(rest[:idx]), last
}

// preferScopedRule keeps the plugin-scoped rule's report over a base
// rule's at the same location.
func preferScopedRule(kept, candidate schema.FormattedError) bool {
	return strings.Contains(candidate.Code, "/") && !strings.Contains(kept.Code, "/")
}

// eslintGuidance maps observed rule ids to remediation hints.
func eslintGuidance(errs []schema.FormattedError) string {
	var hints []string
	seen := map[string]bool{}
	add := func(h string) {
		if !seen[h] {
			seen[h] = true
			hints = append(hints, h)
		}
	}
	for _, e := range errs {
		rule := e.Code
		if i := strings.LastIndexByte(rule, '/'); i >= 0 {
			rule = rule[i+1:]
		}
		switch rule {
		case "no-console":
			add("Replace console statements with a proper logger or remove them")
		case "no-unused-vars":
			add("Remove unused bindings")
		case "no-undef":
			add("Declare or import undefined identifiers")
		case "semi", "quotes", "indent":
			add("Run eslint --fix to resolve formatting violations")
		}
	}
	if len(hints) == 0 {
		return "Fix the reported lint violations; many rules support eslint --fix"
	}
	return strings.Join(hints, "; ")
}

func (e *ESLint) Samples() []schema.Sample {
	return []schema.Sample{
		{
			Name:          "compact layout",
			Input:         "src/index.ts:10:5: error Unexpected console statement no-console\n",
			Command:       "eslint --format compact src/",
			WantTool:      "eslint",
			MinConfidence: schema.ConfidencePossible,
			WantTotal:     1,
			WantErrors: []schema.FormattedError{
				{File: "src/index.ts", Line: 10, Column: 5, Severity: "error", Message: "Unexpected console statement", Code: "no-console"},
			},
		},
		{
			Name: "stylish layout",
			Input: "src/index.ts\n" +
				"  10:5   error    Unexpected console statement  no-console\n" +
				"  12:1   warning  'x' is defined but never used  no-unused-vars\n" +
				"\n" +
				"2 problems (1 error, 1 warning)\n",
			Command:       "eslint src/",
			WantTool:      "eslint",
			MinConfidence: schema.ConfidencePossible,
			WantTotal:     2,
			WantErrors: []schema.FormattedError{
				{File: "src/index.ts", Line: 10, Column: 5, Severity: "error", Message: "Unexpected console statement", Code: "no-console"},
				{File: "src/index.ts", Line: 12, Column: 1, Severity: "warning", Message: "'x' is defined but never used", Code: "no-unused-vars"},
			},
		},
		{
			Name: "scoped rule wins dedup",
			Input: "src/a.ts:3:1: error 'y' is assigned a value but never used no-unused-vars\n" +
				"src/a.ts:3:1: error 'y' is assigned a value but never used @typescript-eslint/no-unused-vars\n",
			Command:       "eslint --format compact src/",
			WantTool:      "eslint",
			MinConfidence: schema.ConfidencePossible,
			WantTotal:     1,
			WantErrors: []schema.FormattedError{
				{File: "src/a.ts", Line: 3, Column: 1, Severity: "error", Message: "'y' is assigned a value but never used", Code: "@typescript-eslint/no-unused-vars"},
			},
		},
	}
}
