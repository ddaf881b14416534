// Package schema defines the canonical result types shared by every
// extractor: FormattedError, DetectionResult and ExtractionResult, plus
// the hint prefilter contract and the sample fixture type.
//
// The package enforces the two invariants all extractors must satisfy:
//   - len(ExtractionResult.Errors) <= MaxErrorsInArray
//   - ExtractionResult.TotalErrors >= len(ExtractionResult.Errors)
//
// Finalize applies deduplication, truncation and rendering in one place so
// individual extractors only have to produce raw matches.
//
// All types are value types created fresh per call; nothing in this package
// holds state between calls.
package schema
