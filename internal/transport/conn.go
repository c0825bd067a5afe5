package transport

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/pluginhost/validatorctl/internal/envelope"
	"github.com/pluginhost/validatorctl/internal/logging"
)

// Conn is one end of a framed duplex pipe. It owns a reader goroutine
// that decodes inbound frames into envelopes and delivers them on a
// channel, and serializes outbound writes behind a mutex so that
// concurrent senders (e.g. the worker's dispatcher and its log-flusher)
// never interleave frames on the wire.
type Conn struct {
	rwc    io.ReadWriteCloser
	limits Limits

	writeMu sync.Mutex
	nextID  atomic.Uint64

	recvCh chan envelope.Envelope
	lostCh chan struct{}
	lost   sync.Once

	closeOnce sync.Once
}

// New wraps rwc and starts the reader goroutine immediately.
func New(rwc io.ReadWriteCloser) *Conn {
	c := &Conn{
		rwc:    rwc,
		limits: DefaultLimits(),
		recvCh: make(chan envelope.Envelope, 32),
		lostCh: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Send encodes and writes env as a single frame. A failure here is
// logged, not returned to unrelated callers as connection loss — the
// reader goroutine is authoritative on detecting loss (§4.1, §7 "send
// failure on pipe: logged; not propagated").
func (c *Conn) Send(env envelope.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	f := Frame{
		Header: Header{
			MessageID:   c.nextID.Add(1),
			MessageType: env.MessageType,
		},
		Payload: env.Encode(),
	}
	if err := WriteFrame(c.rwc, f, c.limits); err != nil {
		logging.Warnf("transport: send failed: %v", err)
		return err
	}
	return nil
}

// Recv returns the channel of successfully decoded inbound envelopes.
func (c *Conn) Recv() <-chan envelope.Envelope {
	return c.recvCh
}

// ConnectionLost fires exactly once, the first time the reader goroutine
// fails to read a frame from the pipe. A failed Send does not fire it.
func (c *Conn) ConnectionLost() <-chan struct{} {
	return c.lostCh
}

// Close closes the underlying pipe. Idempotent.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.rwc.Close()
	})
	return err
}

func (c *Conn) readLoop() {
	defer close(c.recvCh)
	for {
		f, err := ReadFrame(c.rwc, c.limits)
		if err != nil {
			c.markLost()
			return
		}
		env, err := envelope.Decode(f.Header.MessageType, f.Payload)
		if err != nil {
			// Malformed envelope: logged and dropped, not a connection
			// loss (§7).
			logging.Warnf("transport: dropping malformed envelope: %v", err)
			continue
		}
		c.recvCh <- env
	}
}

func (c *Conn) markLost() {
	c.lost.Do(func() {
		close(c.lostCh)
	})
}
