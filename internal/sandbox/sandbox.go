package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/errsift/internal/extractors"
	"github.com/fyrsmithlabs/errsift/internal/schema"
)

const instrumentationName = "github.com/fyrsmithlabs/errsift/internal/sandbox"

// Outcome is the terminal state of one sandboxed call.
type Outcome string

const (
	OutcomeCompleted        Outcome = "completed"
	OutcomeTimedOut         Outcome = "timed_out"
	OutcomeResourceExceeded Outcome = "resource_exceeded"
	OutcomeThrew            Outcome = "threw"
)

// Config bounds one sandboxed call. Consumed per call, never retained.
type Config struct {
	// MemoryLimitMB caps guest linear memory (default: 64).
	MemoryLimitMB int

	// Timeout is the hard deadline for the call (default: 5s).
	Timeout time.Duration
}

// DefaultConfig returns the standard sandbox bounds.
func DefaultConfig() Config {
	return Config{
		MemoryLimitMB: 64,
		Timeout:       5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MemoryLimitMB <= 0 {
		c.MemoryLimitMB = d.MemoryLimitMB
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}

// FailureResult is the deterministic result returned for any contained
// sandbox failure. It never varies with the failure mode beyond the
// single issue entry.
func FailureResult(issue string) schema.ExtractionResult {
	return schema.ExtractionResult{
		Errors:      []schema.FormattedError{},
		TotalErrors: 0,
		Summary:     "Sandbox execution failed",
		Guidance:    "The plugin could not be executed safely; fix or replace the plugin",
		Metadata: &schema.ResultMetadata{
			Confidence: 0,
			Issues:     []string{issue},
		},
	}
}

// Sandbox executes extractors under their trust tier.
type Sandbox struct {
	config Config
	logger *zap.Logger

	tracer        trace.Tracer
	meter         metric.Meter
	runCounter    metric.Int64Counter
	failedCounter metric.Int64Counter
}

// New creates a sandbox with the given per-call bounds.
func New(cfg Config, logger *zap.Logger) *Sandbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sandbox{
		config: cfg.withDefaults(),
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	s.initMetrics()
	return s
}

func (s *Sandbox) initMetrics() {
	var err error

	s.runCounter, err = s.meter.Int64Counter(
		"errsift.sandbox.runs_total",
		metric.WithDescription("Total number of sandboxed extractor runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		s.logger.Warn("failed to create run counter", zap.Error(err))
	}

	s.failedCounter, err = s.meter.Int64Counter(
		"errsift.sandbox.failures_total",
		metric.WithDescription("Total number of contained sandbox failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		s.logger.Warn("failed to create failure counter", zap.Error(err))
	}
}

// Config returns the per-call bounds in effect.
func (s *Sandbox) Config() Config { return s.config }

// Run executes a sandbox-tier extractor's Extract under isolation. It
// never returns an error or panics: every failure mode is contained
// and mapped to FailureResult.
func (s *Sandbox) Run(ctx context.Context, ext extractors.Extractor, output, command string) schema.ExtractionResult {
	ctx, span := s.tracer.Start(ctx, "sandbox.run")
	defer span.End()

	execID := uuid.New().String()
	span.SetAttributes(
		attribute.String("extractor", ext.Name()),
		attribute.String("execution_id", execID),
	)

	result, outcome := s.runIsolated(ctx, ext, output, command)

	span.SetAttributes(attribute.String("outcome", string(outcome)))
	if s.runCounter != nil {
		s.runCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("extractor", ext.Name()),
			attribute.String("outcome", string(outcome)),
		))
	}
	if outcome != OutcomeCompleted {
		if s.failedCounter != nil {
			s.failedCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("outcome", string(outcome)),
			))
		}
		s.logger.Warn("sandboxed extractor failed",
			zap.String("extractor", ext.Name()),
			zap.String("execution_id", execID),
			zap.String("outcome", string(outcome)),
		)
	}
	return result
}

// runIsolated executes the extractor on its own goroutine, bounded by
// the sandbox timeout, with panics contained.
func (s *Sandbox) runIsolated(ctx context.Context, ext extractors.Extractor, output, command string) (schema.ExtractionResult, Outcome) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	type response struct {
		result schema.ExtractionResult
		panicV any
	}
	done := make(chan response, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- response{panicV: r}
			}
		}()
		done <- response{result: ext.Extract(output, command)}
	}()

	select {
	case resp := <-done:
		if resp.panicV != nil {
			return FailureResult(fmt.Sprintf("plugin panicked: %v", resp.panicV)), OutcomeThrew
		}
		return resp.result, OutcomeCompleted
	case <-ctx.Done():
		// The goroutine is abandoned, never joined: there is no
		// cooperative cancellation signal exposed to the plugin.
		return FailureResult(fmt.Sprintf("plugin timed out after %s", s.config.Timeout)), OutcomeTimedOut
	}
}
