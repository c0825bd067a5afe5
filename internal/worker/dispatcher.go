// Package worker is the child-side half of the harness: it receives
// PLUGINS batches over the transport, serialises them through the
// external Validator, and emits the started/log/result/complete event
// sequence. Grounded on the teacher's pipeline fetch -> execute -> emit
// shape (internal/ghost/pipeline.go), generalized from one command to an
// ordered batch of children.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pluginhost/validatorctl/internal/config"
	"github.com/pluginhost/validatorctl/internal/envelope"
	"github.com/pluginhost/validatorctl/internal/logging"
	"github.com/pluginhost/validatorctl/internal/validator"
)

// State is the dispatcher's lifecycle phase (§4.4).
type State int

const (
	Initialising State = iota
	Idle
	Busy
)

func (s State) String() string {
	switch s {
	case Initialising:
		return "initialising"
	case Idle:
		return "idle"
	case Busy:
		return "busy"
	default:
		return "unknown"
	}
}

// Dispatcher is the worker's single-threaded batch processor. It is not
// a generic FSM: state is a plain field behind a mutex with explicit
// transition methods, matching how the teacher models lifecycle phases
// elsewhere (e.g. ghost.Server's Appear/Seed/Radiate) without reaching
// for an FSM library.
type Dispatcher struct {
	conn      sender
	validator validator.Validator

	mu    sync.Mutex
	state State

	connected atomic.Bool
	queue     *RequestQueue
	flusher   *LogFlusher
}

// New builds a Dispatcher in the Initialising state.
func New(conn sender, v validator.Validator) *Dispatcher {
	d := &Dispatcher{
		conn:      conn,
		validator: v,
		state:     Initialising,
		queue:     NewRequestQueue(),
	}
	d.flusher = NewLogFlusher(conn, &d.connected, config.DefaultLogFlushInterval)
	return d
}

func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Dispatcher) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// Enqueue appends req to the request queue; called by the transport
// reader, which does no validation work itself.
func (d *Dispatcher) Enqueue(req envelope.PluginsRequest) {
	d.queue.Push(req)
}

// Handshake emits connected and transitions Initialising -> Idle. Must
// be the dispatcher's first outbound action (invariant 3).
func (d *Dispatcher) Handshake() error {
	if err := d.conn.Send(envelope.EncodeMessageEvent(envelope.Connected())); err != nil {
		return fmt.Errorf("worker: handshake send failed: %w", err)
	}
	d.connected.Store(true)
	d.setState(Idle)
	go d.flusher.Run()
	return nil
}

// Run drives the drain loop until the queue is closed. Intended to run
// in its own goroutine as the dispatcher thread (§5).
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		batch, ok := d.queue.Drain()
		if !ok {
			return
		}
		d.setState(Busy)
		for _, req := range batch {
			d.processBatch(ctx, req)
		}
		d.setState(Idle)
	}
}

// Stop closes the request queue and stops the log-flusher with its
// shutdown grace.
func (d *Dispatcher) Stop() {
	d.queue.Close()
	d.flusher.Stop()
}

func (d *Dispatcher) processBatch(ctx context.Context, req envelope.PluginsRequest) {
	// §4.4 step 1: default only when strictnessLevel was absent from the
	// wire; an explicit, opaque value (including 0) is never overridden.
	strictness := config.DefaultStrictnessLevel
	if req.Strictness != nil {
		strictness = *req.Strictness
	}

	for _, child := range req.Plugins {
		loc, ok := resolveLocator(child)
		if !ok {
			// Empty-descriptor child: skip silently rather than emit a
			// result with a synthetic id (§9 open question, decided).
			logging.Warnf("worker: dropping PLUGIN child with no usable locator")
			continue
		}

		fileOrID := loc.FileOrID
		if fileOrID == "" {
			fileOrID = identify(d.validator, loc.Descriptor)
		}

		if err := d.conn.Send(envelope.EncodeMessageEvent(envelope.Started(fileOrID))); err != nil {
			logging.Warnf("worker: send started failed: %v", err)
		}

		numFailures := d.invokeValidator(ctx, loc, fileOrID, strictness)

		// Flush this plugin's buffered log lines now, so none of them
		// reaches the wire after its result.
		d.flusher.flush()

		if err := d.conn.Send(envelope.EncodeMessageEvent(envelope.Result(fileOrID, numFailures))); err != nil {
			logging.Warnf("worker: send result failed: %v", err)
		}
	}

	if err := d.conn.Send(envelope.EncodeMessageEvent(envelope.Complete())); err != nil {
		logging.Warnf("worker: send complete failed: %v", err)
	}
}

// invokeValidator calls the Validator synchronously and recovers any
// panic into a synthetic nonzero-failure result: nothing the Validator
// does may throw across the process boundary (§7).
func (d *Dispatcher) invokeValidator(ctx context.Context, loc resolvedLocator, fileOrID string, strictness int) (numFailures int) {
	defer func() {
		if r := recover(); r != nil {
			logging.Errf("worker: validator panicked for %q: %v", fileOrID, r)
			numFailures = 1
		}
	}()

	results, err := d.validator.Validate(ctx, loc.toValidatorLocator(), strictness, d.flusher.Push)
	if err != nil {
		logging.Errf("worker: validator error for %q: %v", fileOrID, err)
		return 1
	}
	return validator.Sum(results)
}
