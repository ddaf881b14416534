package schema

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassesHints(t *testing.T) {
	tests := []struct {
		name   string
		output string
		hints  Hints
		want   bool
	}{
		{
			name:   "empty hints always pass",
			output: "anything",
			hints:  Hints{},
			want:   true,
		},
		{
			name:   "required present",
			output: "error TS2304: nope",
			hints:  Hints{Required: []string{"error TS"}},
			want:   true,
		},
		{
			name:   "required missing",
			output: "all good",
			hints:  Hints{Required: []string{"error TS"}},
			want:   false,
		},
		{
			name:   "all required must be present",
			output: "has alpha only",
			hints:  Hints{Required: []string{"alpha", "beta"}},
			want:   false,
		},
		{
			name:   "any_of needs one match",
			output: "FAIL\tpkg",
			hints:  Hints{AnyOf: []string{"--- FAIL", "FAIL\t"}},
			want:   true,
		},
		{
			name:   "any_of with no match",
			output: "ok\tpkg",
			hints:  Hints{AnyOf: []string{"--- FAIL", "panic:"}},
			want:   false,
		},
		{
			name:   "forbidden rejects",
			output: "src/a.ts:1:1: error TS2304: x",
			hints:  Hints{AnyOf: []string{": error"}, Forbidden: []string{"error TS"}},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PassesHints(tt.output, tt.hints))
		})
	}
}

func TestDedup_SameLocationCollapses(t *testing.T) {
	errs := []FormattedError{
		{File: "a.ts", Line: 10, Column: 5, Message: "first"},
		{File: "a.ts", Line: 10, Column: 5, Message: "second"},
		{File: "a.ts", Line: 11, Column: 5, Message: "third"},
	}

	out := Dedup(errs, nil)

	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Message, "default keeps the first match")
	assert.Equal(t, "third", out[1].Message)
}

func TestDedup_PreferReplacesKept(t *testing.T) {
	errs := []FormattedError{
		{File: "a.ts", Line: 10, Column: 5, Message: "generic", Code: ""},
		{File: "a.ts", Line: 10, Column: 5, Message: "tagged", Code: "rule"},
	}

	out := Dedup(errs, func(kept, candidate FormattedError) bool {
		return candidate.Code != "" && kept.Code == ""
	})

	require.Len(t, out, 1)
	assert.Equal(t, "tagged", out[0].Message)
	assert.Equal(t, "rule", out[0].Code)
}

func TestDedup_LocationlessEntriesNeverCollapse(t *testing.T) {
	errs := []FormattedError{
		{File: "tests/test_auth.py", Message: "test_login failed"},
		{File: "tests/test_auth.py", Message: "test_logout failed"},
	}

	out := Dedup(errs, nil)

	assert.Len(t, out, 2)
}

func TestFinalize_TruncatesButCountsAll(t *testing.T) {
	var errs []FormattedError
	for i := 0; i < 23; i++ {
		errs = append(errs, FormattedError{
			File:     "big.ts",
			Line:     i + 1,
			Column:   1,
			Severity: SeverityError,
			Message:  fmt.Sprintf("error %d", i+1),
		})
	}

	result := Finalize(errs, "fix it", nil)

	assert.Len(t, result.Errors, MaxErrorsInArray)
	assert.Equal(t, 23, result.TotalErrors)
	assert.Equal(t, "Found 23 errors and 0 warnings", result.Summary)
	assert.Equal(t, "fix it", result.Guidance)
	assert.NotEmpty(t, result.ErrorSummary)
}

func TestFinalize_TotalReflectsPostDedupCount(t *testing.T) {
	errs := []FormattedError{
		{File: "a.ts", Line: 1, Column: 1, Severity: SeverityError, Message: "dup"},
		{File: "a.ts", Line: 1, Column: 1, Severity: SeverityError, Message: "dup again"},
		{File: "a.ts", Line: 2, Column: 1, Severity: SeverityWarning, Message: "warn"},
	}

	result := Finalize(errs, "", nil)

	assert.Equal(t, 2, result.TotalErrors)
	assert.Equal(t, "Found 1 errors and 1 warnings", result.Summary)
}

func TestSummarize_CountsBySeverity(t *testing.T) {
	errs := []FormattedError{
		{Severity: SeverityError},
		{Severity: SeverityWarning},
		{Severity: SeverityWarning},
		{Severity: ""},
	}

	assert.Equal(t, "Found 2 errors and 2 warnings", Summarize(errs))
}

func TestRenderErrors(t *testing.T) {
	errs := []FormattedError{
		{File: "a.ts", Line: 10, Column: 5, Message: "bad type", Code: "TS2322"},
		{File: "b.ts", Line: 3, Message: "no column"},
		{Message: "no location at all"},
	}

	got := RenderErrors(errs)

	assert.Contains(t, got, "a.ts:10:5 - bad type [TS2322]")
	assert.Contains(t, got, "b.ts:3 - no column")
	assert.Contains(t, got, "no location at all")
	assert.Empty(t, RenderErrors(nil))
}

func TestNotMyFormat(t *testing.T) {
	result := NotMyFormat("tsc")

	assert.NotNil(t, result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 0, result.TotalErrors)
	assert.Contains(t, result.Summary, "tsc")
	assert.NotEmpty(t, result.Guidance)
}

func TestCompleteness(t *testing.T) {
	assert.Equal(t, 0.0, Completeness("", 0))
	assert.Equal(t, 0.0, Completeness("\n\n  \n", 3))
	assert.Equal(t, 0.5, Completeness("a\nb\n", 1))
	assert.Equal(t, 1.0, Completeness("a\nb\n", 5), "consumed is clamped to the line count")
}
