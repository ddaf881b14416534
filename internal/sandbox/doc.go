// Package sandbox is the trust wrapper around extractor execution.
//
// Extractors registered at full trust run directly in-process with zero
// overhead; their panics propagate to the caller's own recovery layer.
// Sandbox-tier extractors run inside an isolated, resource-bounded
// execution context and can never surface a failure to the caller:
// timeouts, resource exhaustion and thrown errors all map to one
// deterministic zero-confidence result whose metadata carries exactly
// one issue describing the underlying failure.
//
// Each call moves through Executing into one terminal outcome:
// Completed, TimedOut, ResourceExceeded or Threw. One isolated context
// is created per call and torn down unconditionally afterwards, so
// concurrent sandboxed calls share no heap and no globals.
//
// Two isolation mechanisms exist:
//   - WASM guests (external plugins) are instantiated per call with
//     wazero under a hard memory page limit and a context deadline that
//     forcefully closes the runtime on expiry. No filesystem is
//     preopened, no environment is passed, and WASI exposes no network
//     or process surface, so capability denial falls out of the
//     runtime configuration rather than policy code.
//   - Native extractors at sandbox trust run on a recover-wrapped
//     goroutine bounded by the same deadline. Go cannot kill a
//     goroutine, so a timed-out native call is abandoned rather than
//     terminated; the WASM path is the one offered to third parties.
package sandbox
