package worker

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pluginhost/validatorctl/internal/config"
	"github.com/pluginhost/validatorctl/internal/envelope"
)

// sender is the narrow send capability the log-flusher needs; satisfied
// by *transport.Conn.
type sender interface {
	Send(envelope.Envelope) error
}

// LogFlusher coalesces high-frequency log callbacks from the Validator
// into periodic MESSAGE/log envelopes, decoupling pipe writes from the
// cost of per-line framing (§4.5). Holds a borrowed, non-owning handle
// to the connection it flushes through; the dispatcher outlives it
// (§9 "cyclic/back references").
type LogFlusher struct {
	conn      sender
	connected *atomic.Bool
	interval  time.Duration

	mu     sync.Mutex
	buffer []string

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewLogFlusher builds a flusher that writes through conn once
// connected reports true. connected is shared with (and set by) the
// owning Dispatcher.
func NewLogFlusher(conn sender, connected *atomic.Bool, interval time.Duration) *LogFlusher {
	if interval <= 0 {
		interval = config.DefaultLogFlushInterval
	}
	return &LogFlusher{
		conn:      conn,
		connected: connected,
		interval:  interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Push appends line under a lock. A no-op before the worker is marked
// connected, dropping pre-handshake noise.
func (f *LogFlusher) Push(line string) {
	if !f.connected.Load() {
		return
	}
	f.mu.Lock()
	f.buffer = append(f.buffer, line)
	f.mu.Unlock()
}

// Run ticks every interval (and once more on Stop) flushing the buffer.
// Intended to run in its own goroutine.
func (f *LogFlusher) Run() {
	defer close(f.doneCh)
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			f.flush()
		case <-f.stopCh:
			f.flush()
			return
		}
	}
}

// Stop requests shutdown and waits up to a 2s grace for the final
// flush to complete (§4.5, §5).
func (f *LogFlusher) Stop() {
	close(f.stopCh)
	select {
	case <-f.doneCh:
	case <-time.After(config.DefaultShutdownGrace):
	}
}

func (f *LogFlusher) flush() {
	f.mu.Lock()
	lines := f.buffer
	f.buffer = nil
	f.mu.Unlock()

	if len(lines) == 0 {
		return
	}
	_ = f.conn.Send(envelope.EncodeMessageEvent(envelope.Log(strings.Join(lines, "\n"))))
}
