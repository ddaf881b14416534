// Package extractors implements format-specific extraction of structured
// errors from raw build, lint and test tool output.
//
// Each supported tool-output family lives in its own file and implements
// the Extractor interface: a cheap hint set for prefiltering, an additive
// confidence detector over structural markers, and an extract routine that
// produces the canonical schema.ExtractionResult.
//
// Two parsing shapes recur:
//   - Line-pattern extractors (typescript, eslint, maven) regex-match each
//     line against one or more known layouts and ignore everything else.
//   - Block extractors (jest, mocha, pytest, gotest) run an explicit
//     finite-state machine over lines: a failure header enters collection
//     mode, an assertion or exception line sets the message, indented
//     stack frames are collected up to maxStackFrames, and a blank line or
//     the next header ends the block.
//
// The generic extractor is the guaranteed fallback: its detector never
// rejects and its extract routine never fails.
//
// Every extractor declares regression samples next to its implementation;
// the shared tests in extractors_test.go validate detection confidence,
// hint soundness and expected errors for all of them.
package extractors
