// Package validator names the external collaborator the worker dispatcher
// drives: the actual plugin test battery is explicitly out of scope
// (spec.md §1), so this package only defines the interface and a small
// in-memory Result type the dispatcher sums failure counts from.
package validator

import "context"

// Locator identifies the plugin to validate: exactly one of FileOrID or
// Descriptor is expected to be set, mirroring envelope.PluginRef.
type Locator struct {
	FileOrID   string
	Descriptor []byte
}

// Result is one test-case outcome from a validation run; NumFailures is
// summed across the returned slice to produce the result event's
// numFailures property.
type Result struct {
	Name        string
	NumFailures int
}

// Validator is the external plugin test battery. Implementations must
// not panic across this boundary (§7); the dispatcher recovers and folds
// a panic into a synthetic nonzero-failure Result regardless, as a
// second line of defense.
type Validator interface {
	Validate(ctx context.Context, locator Locator, strictness int, logSink func(string)) ([]Result, error)
}

// Identifier is an optional capability a Validator may implement to name
// a descriptor-only locator before validation runs, so the worker can
// emit a meaningful started/result fileOrID for plugins with no fileOrID
// of their own.
type Identifier interface {
	Identify(descriptor []byte) (string, error)
}

// Sum adds up the failure counts of results.
func Sum(results []Result) int {
	total := 0
	for _, r := range results {
		total += r.NumFailures
	}
	return total
}
