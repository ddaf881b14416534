package extractors

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/errsift/internal/schema"
)

// TestSamples runs every extractor against its own declared fixtures:
// detection confidence, hint soundness, truncation invariants and the
// expected error prefix.
func TestSamples(t *testing.T) {
	for _, ext := range BuiltIn() {
		for _, sample := range ext.Samples() {
			t.Run(ext.Name()+"/"+sample.Name, func(t *testing.T) {
				det := ext.Detect(sample.Input)
				assert.GreaterOrEqual(t, det.Confidence, sample.MinConfidence,
					"detection confidence below sample minimum")
				assert.LessOrEqual(t, det.Confidence, schema.ConfidenceMax)

				// Hint soundness: any input the detector scores at or
				// above the possible threshold must pass the prefilter.
				if det.Confidence >= schema.ConfidencePossible {
					assert.True(t, schema.PassesHints(sample.Input, ext.Hints()),
						"hints reject input the detector accepts")
				}

				result := ext.Extract(sample.Input, sample.Command)
				assert.Equal(t, sample.WantTotal, result.TotalErrors)
				assert.LessOrEqual(t, len(result.Errors), schema.MaxErrorsInArray)
				assert.GreaterOrEqual(t, result.TotalErrors, len(result.Errors))
				assert.NotEmpty(t, result.Summary)

				require.LessOrEqual(t, len(sample.WantErrors), len(result.Errors))
				for i, want := range sample.WantErrors {
					got := result.Errors[i]
					got.Context = trimContextForCompare(got.Context, want.Context)
					assert.Equal(t, want, got, "error %d mismatch", i)
				}
			})
		}
	}
}

// trimContextForCompare lets samples omit context without failing the
// comparison when the extractor captured one.
func trimContextForCompare(got, want string) string {
	if want == "" {
		return ""
	}
	return got
}

// TestDeterminism verifies repeated detect/extract calls on identical
// input produce identical output.
func TestDeterminism(t *testing.T) {
	for _, ext := range BuiltIn() {
		for _, sample := range ext.Samples() {
			first := ext.Detect(sample.Input)
			second := ext.Detect(sample.Input)
			if !reflect.DeepEqual(first, second) {
				t.Errorf("%s: detect not deterministic on %q", ext.Name(), sample.Name)
			}

			r1 := ext.Extract(sample.Input, sample.Command)
			r2 := ext.Extract(sample.Input, sample.Command)
			if !reflect.DeepEqual(r1, r2) {
				t.Errorf("%s: extract not deterministic on %q", ext.Name(), sample.Name)
			}
		}
	}
}

// TestDetectTotalOnGarbage verifies detect never panics and extract
// returns a valid zero-error result on foreign input.
func TestDetectTotalOnGarbage(t *testing.T) {
	garbage := []string{
		"",
		"asdkjhaskjdh",
		"\x00\x01\x02",
		"error",
		"[",
	}
	for _, ext := range BuiltIn() {
		for _, input := range garbage {
			det := ext.Detect(input)
			assert.GreaterOrEqual(t, det.Confidence, 0)
			assert.LessOrEqual(t, det.Confidence, schema.ConfidenceMax)

			result := ext.Extract(input, "")
			assert.NotNil(t, result.Errors, "%s on %q", ext.Name(), input)
			assert.GreaterOrEqual(t, result.TotalErrors, len(result.Errors))
			assert.NotEmpty(t, result.Summary)
		}
	}
}

func TestTypeScript_Truncation(t *testing.T) {
	ext := NewTypeScript()

	var input string
	for i := 1; i <= 20; i++ {
		input += fmt.Sprintf("src/app.ts(%d,1): error TS2304: Cannot find name 'x%d'.\n", i, i)
	}

	result := ext.Extract(input, "tsc")
	assert.Equal(t, 20, result.TotalErrors)
	assert.Len(t, result.Errors, schema.MaxErrorsInArray)
	assert.NotEmpty(t, result.ErrorSummary)
}

func TestTypeScript_MultiDiagnosticConfidence(t *testing.T) {
	ext := NewTypeScript()

	single := "src/app.ts(10,5): error TS2304: Cannot find name 'foo'.\n"
	multi := single +
		"src/util.ts(3,1): warning TS6133: 'x' is declared but its value is never read.\n"

	assert.GreaterOrEqual(t, ext.Detect(single).Confidence, schema.ConfidencePossible)
	assert.GreaterOrEqual(t, ext.Detect(multi).Confidence, schema.ConfidenceHigh,
		"canonical multi-error tsc output must clear the high threshold")
}

func TestJUnitXML_ForeignXMLIsNotMyFormat(t *testing.T) {
	ext := NewJUnitXML()

	for _, input := range []string{
		`<foo/>`,
		`<?xml version="1.0"?><report><testcase name="x"/></report>`,
	} {
		result := ext.Extract(input, "")
		assert.Equal(t, 0, result.TotalErrors)
		assert.Contains(t, result.Summary, "does not appear to be", "input %q", input)
	}
}

func TestESLint_ConcreteScenario(t *testing.T) {
	ext := NewESLint()
	input := "src/index.ts:10:5: error Unexpected console statement no-console\n"

	result := ext.Extract(input, "eslint src/")
	require.Len(t, result.Errors, 1)

	got := result.Errors[0]
	assert.Equal(t, "src/index.ts", got.File)
	assert.Equal(t, 10, got.Line)
	assert.Equal(t, 5, got.Column)
	assert.Equal(t, schema.SeverityError, got.Severity)
	assert.Equal(t, "no-console", got.Code)

	assert.Contains(t, result.Summary, "1")
	assert.Contains(t, result.Summary, "0")
	assert.Contains(t, result.Guidance, "console")
}

func TestMaven_DualLayoutDedup(t *testing.T) {
	ext := NewMaven()
	input := "[WARN] /work/src/main/java/com/example/Foo.java:10:5: Missing Javadoc. [JavadocVariable]\n" +
		"[WARNING] /work/src/main/java/com/example/Foo.java:[10,5] Missing Javadoc.\n"

	result := ext.Extract(input, "mvn checkstyle:check")
	assert.Equal(t, 1, result.TotalErrors)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "JavadocVariable", result.Errors[0].Code,
		"rule-tagged report should win the dedup")
}

func TestMaven_DedupPrefersRuleRegardlessOfOrder(t *testing.T) {
	ext := NewMaven()
	input := "[WARNING] /work/Foo.java:[10,5] Missing Javadoc.\n" +
		"[WARN] /work/Foo.java:10:5: Missing Javadoc. [JavadocVariable]\n"

	result := ext.Extract(input, "")
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "JavadocVariable", result.Errors[0].Code)
}

func TestExtract_NotMyFormat(t *testing.T) {
	foreign := "=================================== FAILURES ===================================\n"

	for _, ext := range BuiltIn() {
		if ext.Name() == "pytest" || ext.Name() == "generic" {
			continue
		}
		result := ext.Extract("completely unrelated text", "")
		assert.Equal(t, 0, result.TotalErrors, ext.Name())
		assert.Empty(t, result.Errors, ext.Name())
		assert.NotEmpty(t, result.Summary, ext.Name())
	}

	// pytest gets its own foreign input that is not pytest output.
	result := NewTypeScript().Extract(foreign, "")
	assert.Equal(t, 0, result.TotalErrors)
}

func TestGoTest_PanicBeatsAssertionsInGuidance(t *testing.T) {
	ext := NewGoTest()
	input := "--- FAIL: TestX (0.00s)\n" +
		"    x_test.go:5: got 1, want 2\n" +
		"panic: test timed out after 10m0s\n" +
		"FAIL\texample.com/x\t600.01s\n"

	result := ext.Extract(input, "go test ./...")
	assert.Equal(t, 2, result.TotalErrors)
	assert.Contains(t, result.Guidance, "timeout")
}

func TestJest_FrameDepthBounded(t *testing.T) {
	ext := NewJest()
	input := "FAIL src/a.test.js\n" +
		"  ● deep failure\n" +
		"    Error: boom\n" +
		"      at one (node_modules/a/index.js:1:1)\n" +
		"      at two (node_modules/b/index.js:2:2)\n" +
		"      at three (node_modules/c/index.js:3:3)\n" +
		"      at four (src/real.js:44:4)\n"

	result := ext.Extract(input, "")
	require.Len(t, result.Errors, 1)
	// Only the first three frames are considered; the source frame at
	// depth four is beyond the bound, so the suite path stands in.
	assert.Equal(t, "src/a.test.js", result.Errors[0].File)
	assert.Equal(t, 0, result.Errors[0].Line)
}

func TestHints_ShortCircuit(t *testing.T) {
	tests := []struct {
		name   string
		output string
		hints  schema.Hints
		want   bool
	}{
		{"required missing", "abc", schema.Hints{Required: []string{"xyz"}}, false},
		{"forbidden present", "error TS2304", schema.Hints{AnyOf: []string{"error"}, Forbidden: []string{"error TS"}}, false},
		{"anyof empty passes", "anything", schema.Hints{}, true},
		{"anyof matched", "FAIL pkg", schema.Hints{AnyOf: []string{"FAIL", "●"}}, true},
		{"anyof unmatched", "ok pkg", schema.Hints{AnyOf: []string{"FAIL", "●"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, schema.PassesHints(tt.output, tt.hints))
		})
	}
}
