// Package selector orchestrates format detection and extraction:
// hint prefilter over the registry, per-candidate confidence scoring,
// deterministic winner selection and trust-wrapped extraction with a
// guaranteed generic fallback.
package selector

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/errsift/internal/registry"
	"github.com/fyrsmithlabs/errsift/internal/sandbox"
	"github.com/fyrsmithlabs/errsift/internal/schema"
)

const instrumentationName = "github.com/fyrsmithlabs/errsift/internal/selector"

// GenericName is the registry name of the pinned fallback extractor.
const GenericName = "generic"

// ErrNoFallback indicates a registry without the generic extractor,
// which violates the fallback guarantee and is a construction bug.
var ErrNoFallback = errors.New("registry has no generic fallback extractor")

// Service selects and runs the best extractor for a blob of output.
type Service struct {
	registry *registry.Registry
	sandbox  *sandbox.Sandbox
	logger   *zap.Logger

	tracer        trace.Tracer
	meter         metric.Meter
	selectCounter metric.Int64Counter
	fallbackCount metric.Int64Counter
}

// New creates a selector over the given registry. The sandbox is
// required; the logger may be nil.
func New(reg *registry.Registry, sb *sandbox.Sandbox, logger *zap.Logger) (*Service, error) {
	if reg == nil {
		return nil, errors.New("registry is required")
	}
	if sb == nil {
		return nil, errors.New("sandbox is required")
	}
	if _, ok := reg.Lookup(GenericName); !ok {
		return nil, ErrNoFallback
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		registry: reg,
		sandbox:  sb,
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
		meter:    otel.Meter(instrumentationName),
	}
	s.initMetrics()
	return s, nil
}

func (s *Service) initMetrics() {
	var err error

	s.selectCounter, err = s.meter.Int64Counter(
		"errsift.selector.selections_total",
		metric.WithDescription("Total number of auto-detect selections"),
		metric.WithUnit("{selection}"),
	)
	if err != nil {
		s.logger.Warn("failed to create selection counter", zap.Error(err))
	}

	s.fallbackCount, err = s.meter.Int64Counter(
		"errsift.selector.fallbacks_total",
		metric.WithDescription("Total number of generic fallback selections"),
		metric.WithUnit("{selection}"),
	)
	if err != nil {
		s.logger.Warn("failed to create fallback counter", zap.Error(err))
	}
}

// candidate pairs a registry entry with its detection result.
type candidate struct {
	entry     registry.Entry
	detection schema.DetectionResult
}

// AutoDetectAndExtract finds the best-matching extractor for output and
// runs it through the trust wrapper. It always returns a valid result:
// when no candidate clears the confidence floor, or the winner fails,
// the generic fallback extracts instead. Selection is stable: identical
// input yields the identical winner and identical result.
func (s *Service) AutoDetectAndExtract(ctx context.Context, output, command string) schema.ExtractionResult {
	ctx, span := s.tracer.Start(ctx, "selector.auto_detect_and_extract")
	defer span.End()

	winner := s.selectWinner(ctx, output)

	span.SetAttributes(
		attribute.String("extractor", winner.entry.Extractor.Name()),
		attribute.Int("confidence", winner.detection.Confidence),
	)
	if s.selectCounter != nil {
		s.selectCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("extractor", winner.entry.Extractor.Name()),
		))
	}

	result := s.runExtract(ctx, winner, output, command)
	annotate(&result, winner)
	return result
}

// ExtractWith bypasses detection and runs the named extractor through
// the trust wrapper. The detection metadata records the extractor's own
// confidence for the input. Unknown names are an error; this is the one
// selection path that can fail instead of falling back.
func (s *Service) ExtractWith(ctx context.Context, name, output, command string) (schema.ExtractionResult, error) {
	ctx, span := s.tracer.Start(ctx, "selector.extract_with")
	defer span.End()

	entry, ok := s.registry.Lookup(name)
	if !ok {
		return schema.ExtractionResult{}, fmt.Errorf("unknown extractor %q", name)
	}
	winner := candidate{entry: entry, detection: s.detect(entry, output)}

	span.SetAttributes(attribute.String("extractor", name))
	if s.selectCounter != nil {
		s.selectCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("extractor", name),
		))
	}

	result := s.runExtract(ctx, winner, output, command)
	annotate(&result, winner)
	return result, nil
}

// selectWinner runs the prefilter and detectors and picks the winner by
// (confidence desc, priority desc, registration order asc). Entries are
// already priority-sorted, so the first strictly-higher confidence
// wins and ties keep the earlier entry.
func (s *Service) selectWinner(ctx context.Context, output string) candidate {
	_, span := s.tracer.Start(ctx, "selector.detect")
	defer span.End()

	entries := s.registry.Entries()

	var considered int
	best := candidate{detection: schema.DetectionResult{Confidence: -1}}
	for _, entry := range entries {
		if entry.Extractor.Name() == GenericName {
			continue
		}
		if !schema.PassesHints(output, entry.Extractor.Hints()) {
			continue
		}
		considered++

		det := s.detect(entry, output)
		if det.Confidence > best.detection.Confidence {
			best = candidate{entry: entry, detection: det}
		}
	}
	span.SetAttributes(attribute.Int("candidates", considered))

	if best.detection.Confidence < schema.ConfidencePossible {
		if s.fallbackCount != nil {
			s.fallbackCount.Add(ctx, 1)
		}
		return s.genericCandidate(output)
	}
	return best
}

// detect runs one candidate's detector. Detectors are contractually
// total, but an untrusted plugin's panic must not take down selection.
func (s *Service) detect(entry registry.Entry, output string) (det schema.DetectionResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("detector panicked",
				zap.String("extractor", entry.Extractor.Name()),
				zap.Any("panic", r),
			)
			det = schema.DetectionResult{Confidence: 0, Patterns: []string{}, Reason: fmt.Sprintf("detector panicked: %v", r)}
		}
	}()
	return entry.Extractor.Detect(output)
}

// genericCandidate builds the fallback candidate. New verified the
// generic extractor is registered.
func (s *Service) genericCandidate(output string) candidate {
	entry, _ := s.registry.Lookup(GenericName)
	return candidate{entry: entry, detection: entry.Extractor.Detect(output)}
}

// runExtract invokes the winner through the trust wrapper. A trusted
// extractor that panics on malformed input is recovered here and the
// generic fallback extracts instead: extraction failures are never
// fatal to the surrounding pipeline.
func (s *Service) runExtract(ctx context.Context, winner candidate, output, command string) schema.ExtractionResult {
	if winner.entry.Trust == registry.TrustSandbox {
		return s.sandbox.Run(ctx, winner.entry.Extractor, output, command)
	}

	result, ok := s.tryExtract(winner, output, command)
	if ok {
		return result
	}
	if winner.entry.Extractor.Name() == GenericName {
		// The fallback itself must never fail; return an empty but
		// valid result if it somehow does.
		return schema.ExtractionResult{
			Errors:      []schema.FormattedError{},
			TotalErrors: 0,
			Summary:     "No recognizable errors found in output",
			Guidance:    "Review the raw output manually",
		}
	}
	fallback := s.genericCandidate(output)
	result, _ = s.tryExtract(fallback, output, command)
	return result
}

// tryExtract calls Extract with panic containment.
func (s *Service) tryExtract(c candidate, output, command string) (result schema.ExtractionResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("extractor panicked",
				zap.String("extractor", c.entry.Extractor.Name()),
				zap.Any("panic", r),
			)
			ok = false
		}
	}()
	return c.entry.Extractor.Extract(output, command), true
}

// annotate attaches the winning detection to the result metadata. A
// result carrying issues is a contained failure whose confidence is
// already zero and stays zero.
func annotate(result *schema.ExtractionResult, winner candidate) {
	if result.Metadata == nil {
		result.Metadata = &schema.ResultMetadata{}
	}
	result.Metadata.Detection = &schema.DetectionInfo{
		DetectionResult: winner.detection,
		Extractor:       winner.entry.Extractor.Name(),
	}
	if len(result.Metadata.Issues) > 0 {
		return
	}
	confidence := winner.detection.Confidence
	if confidence < 0 {
		confidence = 0
	}
	result.Metadata.Confidence = confidence
}
