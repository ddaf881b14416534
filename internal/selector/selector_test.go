package selector

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/errsift/internal/extractors"
	"github.com/fyrsmithlabs/errsift/internal/registry"
	"github.com/fyrsmithlabs/errsift/internal/sandbox"
	"github.com/fyrsmithlabs/errsift/internal/schema"
)

// stubExtractor lets tests script detection and extraction behavior.
type stubExtractor struct {
	name       string
	priority   int
	hints      schema.Hints
	confidence int
	extract    func(output, command string) schema.ExtractionResult
}

func (s *stubExtractor) Name() string        { return s.name }
func (s *stubExtractor) Priority() int       { return s.priority }
func (s *stubExtractor) Hints() schema.Hints { return s.hints }
func (s *stubExtractor) Samples() []schema.Sample {
	return []schema.Sample{{Name: "basic", Input: "x"}}
}

func (s *stubExtractor) Detect(output string) schema.DetectionResult {
	return schema.DetectionResult{
		Confidence: s.confidence,
		Patterns:   []string{},
		Reason:     "scripted",
	}
}

func (s *stubExtractor) Extract(output, command string) schema.ExtractionResult {
	if s.extract != nil {
		return s.extract(output, command)
	}
	return schema.ExtractionResult{
		Errors: []schema.FormattedError{
			{File: "stub.go", Line: 1, Severity: "error", Message: "from " + s.name},
		},
		TotalErrors: 1,
		Summary:     "Found 1 errors and 0 warnings",
	}
}

// newService builds a selector over the given extra extractors plus the
// generic fallback.
func newService(t *testing.T, extras ...registry.Entry) *Service {
	t.Helper()
	reg := registry.New()
	for _, e := range extras {
		require.NoError(t, reg.Register(e.Extractor, e.Trust))
	}
	require.NoError(t, reg.Register(extractors.NewGeneric(), registry.TrustFull))
	reg.Freeze()

	svc, err := New(reg, sandbox.New(sandbox.DefaultConfig(), nil), nil)
	require.NoError(t, err)
	return svc
}

func defaultService(t *testing.T) *Service {
	t.Helper()
	reg := registry.Default()
	reg.Freeze()
	svc, err := New(reg, sandbox.New(sandbox.DefaultConfig(), nil), nil)
	require.NoError(t, err)
	return svc
}

func TestNew_RequiresGenericFallback(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(extractors.NewESLint(), registry.TrustFull))

	_, err := New(reg, sandbox.New(sandbox.DefaultConfig(), nil), nil)
	assert.ErrorIs(t, err, ErrNoFallback)
}

func TestAutoDetect_GarbageFallsBackToGeneric(t *testing.T) {
	svc := defaultService(t)

	result := svc.AutoDetectAndExtract(context.Background(), "asdkjhaskjdh", "")

	require.NotNil(t, result.Metadata)
	require.NotNil(t, result.Metadata.Detection)
	assert.Equal(t, GenericName, result.Metadata.Detection.Extractor)
	assert.NotNil(t, result.Errors)
	assert.NotEmpty(t, result.Summary)
}

func TestAutoDetect_SelectsTypeScript(t *testing.T) {
	svc := defaultService(t)
	output := "src/app.ts(10,5): error TS2345: Argument of type 'string' is not assignable.\n"

	result := svc.AutoDetectAndExtract(context.Background(), output, "tsc --noEmit")

	require.NotNil(t, result.Metadata)
	require.NotNil(t, result.Metadata.Detection)
	assert.Equal(t, "typescript", result.Metadata.Detection.Extractor)
	assert.GreaterOrEqual(t, result.Metadata.Confidence, schema.ConfidencePossible)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "src/app.ts", result.Errors[0].File)
	assert.Equal(t, 10, result.Errors[0].Line)
}

func TestAutoDetect_Deterministic(t *testing.T) {
	svc := defaultService(t)
	inputs := []string{
		"asdkjhaskjdh",
		"src/app.ts(10,5): error TS2345: bad argument\n",
		"src/index.ts:10:5: error Unexpected console statement no-console\n",
		"",
	}

	for _, input := range inputs {
		first := svc.AutoDetectAndExtract(context.Background(), input, "")
		for i := 0; i < 3; i++ {
			again := svc.AutoDetectAndExtract(context.Background(), input, "")
			if !reflect.DeepEqual(first, again) {
				t.Fatalf("selection not deterministic for %q:\nfirst: %+v\nagain: %+v", input, first, again)
			}
		}
	}
}

func TestAutoDetect_ConfidenceFloorFallsBack(t *testing.T) {
	low := &stubExtractor{
		name:       "lowball",
		priority:   95,
		confidence: schema.ConfidencePossible - 1,
	}
	svc := newService(t, registry.Entry{Extractor: low, Trust: registry.TrustFull})

	result := svc.AutoDetectAndExtract(context.Background(), "whatever output", "")

	require.NotNil(t, result.Metadata.Detection)
	assert.Equal(t, GenericName, result.Metadata.Detection.Extractor)
}

func TestAutoDetect_ConfidenceTieBrokenByPriority(t *testing.T) {
	high := &stubExtractor{name: "highprio", priority: 90, confidence: 80}
	low := &stubExtractor{name: "lowprio", priority: 50, confidence: 80}
	svc := newService(t,
		registry.Entry{Extractor: low, Trust: registry.TrustFull},
		registry.Entry{Extractor: high, Trust: registry.TrustFull},
	)

	result := svc.AutoDetectAndExtract(context.Background(), "whatever output", "")

	assert.Equal(t, "highprio", result.Metadata.Detection.Extractor)
}

func TestAutoDetect_HigherConfidenceBeatsPriority(t *testing.T) {
	confident := &stubExtractor{name: "confident", priority: 10, confidence: 95}
	prioritized := &stubExtractor{name: "prioritized", priority: 90, confidence: 60}
	svc := newService(t,
		registry.Entry{Extractor: confident, Trust: registry.TrustFull},
		registry.Entry{Extractor: prioritized, Trust: registry.TrustFull},
	)

	result := svc.AutoDetectAndExtract(context.Background(), "whatever output", "")

	assert.Equal(t, "confident", result.Metadata.Detection.Extractor)
}

func TestAutoDetect_HintsExcludeCandidate(t *testing.T) {
	gated := &stubExtractor{
		name:       "gated",
		priority:   95,
		confidence: 100,
		hints:      schema.Hints{Required: []string{"MAGIC TOKEN"}},
	}
	svc := newService(t, registry.Entry{Extractor: gated, Trust: registry.TrustFull})

	result := svc.AutoDetectAndExtract(context.Background(), "output without the token", "")

	assert.Equal(t, GenericName, result.Metadata.Detection.Extractor)
}

func TestAutoDetect_PanickingWinnerFallsBackToGeneric(t *testing.T) {
	angry := &stubExtractor{
		name:       "angry",
		priority:   95,
		confidence: 100,
		extract: func(_, _ string) schema.ExtractionResult {
			panic("unexpected input shape")
		},
	}
	svc := newService(t, registry.Entry{Extractor: angry, Trust: registry.TrustFull})

	var result schema.ExtractionResult
	require.NotPanics(t, func() {
		result = svc.AutoDetectAndExtract(context.Background(), "error: something broke", "")
	})

	assert.NotNil(t, result.Errors)
	assert.NotEmpty(t, result.Summary)
}

func TestAutoDetect_PanickingDetectorLosesSelection(t *testing.T) {
	exploding := &stubExtractor{name: "exploding", priority: 95, confidence: 100}
	svc := newService(t, registry.Entry{
		Extractor: &panickyDetector{stubExtractor: exploding},
		Trust:     registry.TrustFull,
	})

	var result schema.ExtractionResult
	require.NotPanics(t, func() {
		result = svc.AutoDetectAndExtract(context.Background(), "some output", "")
	})

	assert.Equal(t, GenericName, result.Metadata.Detection.Extractor)
}

// panickyDetector panics in Detect instead of Extract.
type panickyDetector struct {
	*stubExtractor
}

func (p *panickyDetector) Detect(output string) schema.DetectionResult {
	panic("detector bug")
}

func TestAutoDetect_SandboxTierContained(t *testing.T) {
	hostile := &stubExtractor{
		name:       "hostile",
		priority:   95,
		confidence: 100,
		extract: func(_, _ string) schema.ExtractionResult {
			panic("hostile plugin")
		},
	}
	svc := newService(t, registry.Entry{Extractor: hostile, Trust: registry.TrustSandbox})

	result := svc.AutoDetectAndExtract(context.Background(), "some output", "")

	assert.Equal(t, "Sandbox execution failed", result.Summary)
	require.NotNil(t, result.Metadata)
	require.Len(t, result.Metadata.Issues, 1)
	assert.True(t, strings.Contains(result.Metadata.Issues[0], "hostile plugin"))
	assert.Equal(t, 0, result.Metadata.Confidence,
		"a contained failure must keep zero confidence, not the detection score")
}

func TestAutoDetect_SandboxTimeoutReportsZeroConfidence(t *testing.T) {
	hanging := &stubExtractor{
		name:       "hanging",
		priority:   95,
		confidence: 88,
		extract: func(_, _ string) schema.ExtractionResult {
			time.Sleep(500 * time.Millisecond)
			return schema.ExtractionResult{}
		},
	}

	reg := registry.New()
	require.NoError(t, reg.Register(hanging, registry.TrustSandbox))
	require.NoError(t, reg.Register(extractors.NewGeneric(), registry.TrustFull))
	reg.Freeze()

	sb := sandbox.New(sandbox.Config{Timeout: 100 * time.Millisecond}, nil)
	svc, err := New(reg, sb, nil)
	require.NoError(t, err)

	result := svc.AutoDetectAndExtract(context.Background(), "some output", "")

	assert.Equal(t, "Sandbox execution failed", result.Summary)
	require.NotNil(t, result.Metadata)
	assert.Equal(t, 0, result.Metadata.Confidence)
	require.Len(t, result.Metadata.Issues, 1)
	assert.Contains(t, result.Metadata.Issues[0], "timed out")
	require.NotNil(t, result.Metadata.Detection)
	assert.Equal(t, "hanging", result.Metadata.Detection.Extractor)
}

func TestExtractWith_Forced(t *testing.T) {
	svc := defaultService(t)
	output := "src/app.ts(10,5): error TS2345: bad argument\n"

	result, err := svc.ExtractWith(context.Background(), "generic", output, "")

	require.NoError(t, err)
	require.NotNil(t, result.Metadata.Detection)
	assert.Equal(t, GenericName, result.Metadata.Detection.Extractor)
}

func TestExtractWith_Unknown(t *testing.T) {
	svc := defaultService(t)

	_, err := svc.ExtractWith(context.Background(), "nonexistent", "output", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent")
}

// TestAutoDetect_SamplesPickDeclaredTool feeds every built-in sample
// through full selection and checks the declared tool wins. Samples the
// owning detector scores below the floor must land on generic instead.
func TestAutoDetect_SamplesPickDeclaredTool(t *testing.T) {
	svc := defaultService(t)

	for _, ext := range extractors.BuiltIn() {
		for _, sample := range ext.Samples() {
			t.Run(ext.Name()+"/"+sample.Name, func(t *testing.T) {
				want := sample.WantTool
				if ext.Detect(sample.Input).Confidence < schema.ConfidencePossible {
					want = GenericName
				}

				result := svc.AutoDetectAndExtract(context.Background(), sample.Input, sample.Command)

				require.NotNil(t, result.Metadata)
				require.NotNil(t, result.Metadata.Detection)
				assert.Equal(t, want, result.Metadata.Detection.Extractor)
			})
		}
	}
}

func TestAutoDetect_EmptyInput(t *testing.T) {
	svc := defaultService(t)

	result := svc.AutoDetectAndExtract(context.Background(), "", "")

	assert.NotNil(t, result.Errors)
	assert.Equal(t, 0, result.TotalErrors)
	assert.NotEmpty(t, result.Summary)
}
