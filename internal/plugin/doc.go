// Package plugin loads external extractors from a YAML manifest plus a
// WASM guest module and adapts them to the extractor contract. Loaded
// plugins are always registered at the sandbox trust tier; the loader
// never grants full trust.
package plugin
