// Package registry maintains the ordered catalog of extractors.
//
// The registry is built once at process start and is read-only
// thereafter: entries are strictly sorted by descending priority with
// the generic fallback pinned at the lowest, and lookup-by-name returns
// the first match so a newer, higher-priority version of a format can
// shadow an older one without removing it. The only mutation path is
// Register, which validates the full extractor contract and either
// registers the extractor completely or not at all.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/fyrsmithlabs/errsift/internal/extractors"
)

// Trust tiers for registered extractors.
type Trust string

const (
	// TrustFull runs the extractor directly in-process.
	TrustFull Trust = "full"

	// TrustSandbox runs the extractor inside the isolated,
	// resource-bounded execution context.
	TrustSandbox Trust = "sandbox"
)

// ErrFrozen is returned when registration is attempted after Freeze.
var ErrFrozen = errors.New("registry is frozen")

// ValidationError reports a plugin that fails the extractor contract.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid extractor: field %q: %s", e.Field, e.Reason)
}

// Entry pairs an extractor with its trust tier. Entries are owned by
// the registry and immutable after registration.
type Entry struct {
	Extractor extractors.Extractor
	Trust     Trust

	// order is the registration sequence number, the final selection
	// tie-break.
	order int
}

// Order returns the registration sequence number.
func (e Entry) Order() int { return e.order }

// Registry is the ordered, immutable-after-init extractor catalog.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	frozen  bool
	nextOrd int
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{}
}

// Default builds the registry of built-in extractors, all at full
// trust. The caller freezes it once plugin loading is complete.
func Default() *Registry {
	r := New()
	for _, ext := range extractors.BuiltIn() {
		// Built-ins satisfy the contract by construction.
		r.mustRegister(ext, TrustFull)
	}
	return r
}

// Register validates ext against the extractor contract and adds it at
// the given trust tier. Validation failures are *ValidationError and
// leave the registry untouched: registration is all-or-nothing.
func (r *Registry) Register(ext extractors.Extractor, trust Trust) error {
	if err := Validate(ext); err != nil {
		return err
	}
	if trust != TrustFull && trust != TrustSandbox {
		return &ValidationError{Field: "trust", Reason: fmt.Sprintf("unknown trust tier %q", trust)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrFrozen
	}
	r.insert(Entry{Extractor: ext, Trust: trust, order: r.nextOrd})
	r.nextOrd++
	return nil
}

func (r *Registry) mustRegister(ext extractors.Extractor, trust Trust) {
	if err := r.Register(ext, trust); err != nil {
		panic(fmt.Sprintf("built-in extractor failed contract validation: %v", err))
	}
}

// insert keeps entries sorted by descending priority, preserving
// registration order among equal priorities.
func (r *Registry) insert(e Entry) {
	i := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].Extractor.Priority() < e.Extractor.Priority()
	})
	r.entries = append(r.entries, Entry{})
	copy(r.entries[i+1:], r.entries[i:])
	r.entries[i] = e
}

// Freeze blocks any further registration. Called once initialization
// (including plugin loading) is complete.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Entries returns the catalog in priority order. The returned slice is
// a copy; the entries themselves are shared and immutable.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Lookup returns the first entry whose extractor has the given name.
// With duplicate names the highest-priority one wins, which lets a
// stricter version of a format shadow an older registration.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Extractor.Name() == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Len returns the number of registered extractors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Validate checks an extractor against the capability contract,
// reporting the first missing or invalid field.
func Validate(ext extractors.Extractor) error {
	if ext == nil {
		return &ValidationError{Field: "extractor", Reason: "must not be nil"}
	}
	if ext.Name() == "" {
		return &ValidationError{Field: "metadata.name", Reason: "must not be empty"}
	}
	if ext.Priority() < 0 {
		return &ValidationError{Field: "priority", Reason: "must not be negative"}
	}
	if len(ext.Samples()) == 0 {
		return &ValidationError{Field: "samples", Reason: "at least one sample is required"}
	}
	for i, s := range ext.Samples() {
		if s.Input == "" {
			return &ValidationError{Field: "samples", Reason: fmt.Sprintf("sample %d has empty input", i)}
		}
	}
	for _, req := range ext.Hints().Required {
		if req == "" {
			return &ValidationError{Field: "hints.required", Reason: "empty substring"}
		}
	}
	return nil
}
