// Package fake provides scriptable validator.Validator implementations
// for the dispatcher tests: happy path, multi-plugin batch, descriptor
// path, and a validator that panics or returns an error. It has no way to
// kill the worker process or to delay the worker's handshake.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/pluginhost/validatorctl/internal/validator"
)

// Behavior scripts one locator's outcome.
type Behavior struct {
	Logs        []string
	Results     []validator.Result
	Panic       bool
	PanicReason string
	Err         error
}

// Registry is a locator -> Behavior lookup, keyed by FileOrID (or by the
// raw descriptor bytes as a string, for the descriptor path scenario).
// Grounded on the teacher's seeds.Registry resolve-by-key shape,
// generalized here to scripted test behaviors instead of live seeds.
type Registry struct {
	mu    sync.Mutex
	byKey map[string]Behavior
	calls []string
}

func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]Behavior)}
}

func (r *Registry) Register(key string, b Behavior) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[key] = b
}

func (r *Registry) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// Validate implements validator.Validator by key lookup: FileOrID if
// present, else the raw descriptor bytes as a string key.
func (r *Registry) Validate(ctx context.Context, loc validator.Locator, strictness int, logSink func(string)) ([]validator.Result, error) {
	key := loc.FileOrID
	if key == "" {
		key = string(loc.Descriptor)
	}

	r.mu.Lock()
	b, ok := r.byKey[key]
	r.calls = append(r.calls, key)
	r.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("fake: no behavior registered for %q", key)
	}
	if b.Err != nil {
		return nil, b.Err
	}
	if b.Panic {
		panic(b.PanicReason)
	}
	for _, line := range b.Logs {
		logSink(line)
	}
	return b.Results, nil
}

// Identify implements validator.Identifier by treating the raw
// descriptor bytes as the identifier directly — the descriptor path
// scenario registers a behavior under the descriptor's own bytes as key.
func (r *Registry) Identify(descriptor []byte) (string, error) {
	return string(descriptor), nil
}
