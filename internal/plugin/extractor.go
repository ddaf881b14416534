package plugin

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/errsift/internal/extractors"
	"github.com/fyrsmithlabs/errsift/internal/registry"
	"github.com/fyrsmithlabs/errsift/internal/sandbox"
	"github.com/fyrsmithlabs/errsift/internal/schema"
)

// Loaded is a plugin adapted to the extractor contract, ready to
// register. Trust is always the sandbox tier.
type Loaded struct {
	Extractor extractors.Extractor
	Trust     registry.Trust
	Manifest  Manifest
}

// Load builds a sandbox-tier extractor from manifest and WASM module
// bytes. The WASM module is not executed here; the first guest run
// happens on Detect or Extract. The logger may be nil.
func Load(manifestData, code []byte, sb *sandbox.Sandbox, logger *zap.Logger) (Loaded, error) {
	if sb == nil {
		return Loaded{}, fmt.Errorf("sandbox is required to load plugins")
	}
	if len(code) == 0 {
		return Loaded{}, &ValidationError{Field: "module", Reason: "WASM module must not be empty"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m, err := ParseManifest(manifestData)
	if err != nil {
		return Loaded{}, err
	}

	return Loaded{
		Extractor: &wasmExtractor{
			manifest: m,
			code:     code,
			sandbox:  sb,
			logger:   logger.With(zap.String("plugin", m.Name)),
		},
		Trust:    registry.TrustSandbox,
		Manifest: m,
	}, nil
}

// wasmExtractor bridges a WASM guest to the extractor contract. Every
// call instantiates a fresh guest, so no state survives between calls
// and a misbehaving guest degrades to a deterministic failure instead
// of propagating an error.
type wasmExtractor struct {
	manifest Manifest
	code     []byte
	sandbox  *sandbox.Sandbox
	logger   *zap.Logger
}

func (w *wasmExtractor) Name() string             { return w.manifest.Name }
func (w *wasmExtractor) Priority() int            { return w.manifest.Priority }
func (w *wasmExtractor) Hints() schema.Hints      { return w.manifest.hints() }
func (w *wasmExtractor) Samples() []schema.Sample { return w.manifest.samples() }

// Detect runs the guest's detector. Any guest failure scores zero:
// a broken plugin can lose selection but cannot break it.
func (w *wasmExtractor) Detect(output string) schema.DetectionResult {
	raw, outcome, err := w.sandbox.RunWASM(context.Background(), w.code, sandbox.GuestRequest{
		Op:     sandbox.OpDetect,
		Output: output,
	})
	if err != nil {
		w.logger.Warn("plugin detect failed",
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
		return schema.DetectionResult{
			Confidence: 0,
			Patterns:   []string{},
			Reason:     fmt.Sprintf("plugin failed: %s", outcome),
		}
	}

	var det schema.DetectionResult
	if err := json.Unmarshal(raw, &det); err != nil {
		w.logger.Warn("plugin detect returned malformed JSON", zap.Error(err))
		return schema.DetectionResult{
			Confidence: 0,
			Patterns:   []string{},
			Reason:     "plugin returned malformed detection result",
		}
	}
	if det.Confidence < 0 {
		det.Confidence = 0
	}
	if det.Confidence > schema.ConfidenceMax {
		det.Confidence = schema.ConfidenceMax
	}
	return det
}

// Extract runs the guest's extractor. Guest failures surface as the
// sandbox's deterministic failure result; a malformed or over-limit
// response is clamped to the canonical bounds.
func (w *wasmExtractor) Extract(output, command string) schema.ExtractionResult {
	raw, outcome, err := w.sandbox.RunWASM(context.Background(), w.code, sandbox.GuestRequest{
		Op:      sandbox.OpExtract,
		Output:  output,
		Command: command,
	})
	if err != nil {
		w.logger.Warn("plugin extract failed",
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
		return sandbox.FailureResult(fmt.Sprintf("plugin %q failed: %s", w.manifest.Name, outcome))
	}

	var result schema.ExtractionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		w.logger.Warn("plugin extract returned malformed JSON", zap.Error(err))
		return sandbox.FailureResult(fmt.Sprintf("plugin %q returned malformed result", w.manifest.Name))
	}
	return clampResult(result)
}

// clampResult forces an untrusted result into the canonical invariants:
// a non-nil bounded error array, a consistent total and a non-empty
// summary. The guest's claims are not trusted.
func clampResult(r schema.ExtractionResult) schema.ExtractionResult {
	if r.Errors == nil {
		r.Errors = []schema.FormattedError{}
	}
	if len(r.Errors) > schema.MaxErrorsInArray {
		r.Errors = r.Errors[:schema.MaxErrorsInArray]
	}
	if r.TotalErrors < len(r.Errors) {
		r.TotalErrors = len(r.Errors)
	}
	if r.Summary == "" {
		r.Summary = fmt.Sprintf("Found %d errors and 0 warnings", r.TotalErrors)
	}
	return r
}
