package extractors

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/errsift/internal/schema"
)

// Maven extracts diagnostics from Maven build logs, including plugin
// output such as checkstyle. Two location layouts coexist, often for
// the same finding:
//
//	[ERROR] /src/main/java/Foo.java:[10,5] Missing Javadoc.
//	[WARN] /src/main/java/Foo.java:10:5: Missing Javadoc. [JavadocVariable]
//
// Duplicates at the same (file, line, column) collapse to one error and
// the report carrying a bracketed rule name wins: the checkstyle direct
// form is the stricter engine.
type Maven struct {
	bracket *regexp.Regexp
	colon   *regexp.Regexp
	tagged  *regexp.Regexp
	failure *regexp.Regexp
}

// NewMaven creates the Maven build log extractor.
func NewMaven() *Maven {
	return &Maven{
		bracket: regexp.MustCompile(`^\[(ERROR|WARNING|WARN)\]\s+(.+?):\[(\d+),(\d+)\]\s+(.+)$`),
		colon:   regexp.MustCompile(`^\[(ERROR|WARNING|WARN)\]\s+(.+?):(\d+):(\d+):\s+(.+?)(?:\s+\[(\w+)\])?$`),
		tagged:  regexp.MustCompile(`^\[(ERROR|WARNING|WARN|INFO)\]`),
		failure: regexp.MustCompile(`BUILD FAILURE`),
	}
}

func (m *Maven) Name() string  { return "maven" }
func (m *Maven) Priority() int { return 75 }

func (m *Maven) Hints() schema.Hints {
	return schema.Hints{
		AnyOf: []string{"[ERROR]", "[WARNING]", "[WARN]"},
	}
}

func (m *Maven) Detect(output string) schema.DetectionResult {
	var s score
	var bracket, colon, tagged, failure bool
	for _, line := range splitLines(output) {
		switch {
		case !bracket && m.bracket.MatchString(line):
			bracket = true
			s.add(35, "bracketed [line,col] location")
		case !colon && m.colon.MatchString(line):
			colon = true
			s.add(35, "colon line:col location")
		case !tagged && m.tagged.MatchString(line):
			tagged = true
			s.add(20, "severity tag")
		case !failure && m.failure.MatchString(line):
			failure = true
			s.add(10, "BUILD FAILURE banner")
		}
	}
	return s.result("maven")
}

func (m *Maven) Extract(output, command string) schema.ExtractionResult {
	var errs []schema.FormattedError
	var consumed int

	for _, line := range splitLines(output) {
		if b := m.bracket.FindStringSubmatch(line); b != nil {
			consumed++
			errs = append(errs, schema.FormattedError{
				File:     b[2],
				Line:     atoi(b[3]),
				Column:   atoi(b[4]),
				Severity: mavenSeverity(b[1]),
				Message:  strings.TrimSpace(b[5]),
			})
			continue
		}
		if c := m.colon.FindStringSubmatch(line); c != nil {
			consumed++
			errs = append(errs, schema.FormattedError{
				File:     c[2],
				Line:     atoi(c[3]),
				Column:   atoi(c[4]),
				Severity: mavenSeverity(c[1]),
				Message:  strings.TrimSpace(c[5]),
				Code:     c[6],
			})
			continue
		}
		if m.failure.MatchString(line) {
			consumed++
		}
	}

	if len(errs) == 0 {
		return schema.NotMyFormat("maven")
	}

	result := schema.Finalize(errs, mavenGuidance(errs), preferRuleTagged)
	result.Metadata = &schema.ResultMetadata{
		Completeness: schema.Completeness(output, consumed),
	}
	return result
}

func mavenSeverity(tag string) string {
	if tag == "ERROR" {
		return schema.SeverityError
	}
	return schema.SeverityWarning
}

// preferRuleTagged keeps the checkstyle-direct report (with a bracketed
// rule name) over the aggregate form at the same location.
func preferRuleTagged(kept, candidate schema.FormattedError) bool {
	return candidate.Code != "" && kept.Code == ""
}

func mavenGuidance(errs []schema.FormattedError) string {
	var hints []string
	seen := map[string]bool{}
	add := func(h string) {
		if !seen[h] {
			seen[h] = true
			hints = append(hints, h)
		}
	}
	for _, e := range errs {
		switch {
		case strings.HasPrefix(e.Code, "Javadoc"):
			add("Add the missing Javadoc comments")
		case strings.Contains(e.Message, "cannot find symbol"):
			add("Fix unresolved symbols: check imports and dependency versions")
		case strings.Contains(e.Message, "package") && strings.Contains(e.Message, "does not exist"):
			add("Add the missing dependency to pom.xml")
		}
	}
	if len(hints) == 0 {
		return "Fix the reported build diagnostics starting with the first [ERROR] entry"
	}
	return strings.Join(hints, "; ")
}

func (m *Maven) Samples() []schema.Sample {
	return []schema.Sample{
		{
			Name: "compiler errors",
			Input: "[INFO] Compiling 12 source files\n" +
				"[ERROR] /work/src/main/java/com/example/App.java:[15,9] cannot find symbol\n" +
				"[ERROR] /work/src/main/java/com/example/App.java:[22,1] ';' expected\n" +
				"[INFO] BUILD FAILURE\n",
			Command:       "mvn compile",
			WantTool:      "maven",
			MinConfidence: schema.ConfidencePossible,
			WantTotal:     2,
			WantErrors: []schema.FormattedError{
				{File: "/work/src/main/java/com/example/App.java", Line: 15, Column: 9, Severity: "error", Message: "cannot find symbol"},
			},
		},
		{
			Name: "checkstyle dual layout dedup",
			Input: "[WARN] /work/src/main/java/com/example/Foo.java:10:5: Missing Javadoc. [JavadocVariable]\n" +
				"[WARNING] /work/src/main/java/com/example/Foo.java:[10,5] Missing Javadoc.\n",
			Command:       "mvn checkstyle:check",
			WantTool:      "maven",
			MinConfidence: schema.ConfidenceHigh,
			WantTotal:     1,
			WantErrors: []schema.FormattedError{
				{File: "/work/src/main/java/com/example/Foo.java", Line: 10, Column: 5, Severity: "warning", Message: "Missing Javadoc.", Code: "JavadocVariable"},
			},
		},
	}
}
