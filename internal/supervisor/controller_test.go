package supervisor

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pluginhost/validatorctl/internal/config"
	"github.com/pluginhost/validatorctl/internal/envelope"
	"github.com/pluginhost/validatorctl/internal/transport"
)

type recordingListener struct {
	mu     sync.Mutex
	events []string
}

func (l *recordingListener) record(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, s)
}

func (l *recordingListener) ValidationStarted(fileOrID string) {
	l.record("started:" + fileOrID)
}
func (l *recordingListener) LogMessage(text string) { l.record("log:" + text) }
func (l *recordingListener) ItemComplete(fileOrID string, numFailures int) {
	l.record("result:" + fileOrID)
}
func (l *recordingListener) AllItemsComplete() { l.record("complete") }
func (l *recordingListener) ConnectionLost()   { l.record("lost") }

func (l *recordingListener) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	copy(out, l.events)
	return out
}

// newTestController builds a Controller wired directly to one end of an
// in-memory pipe, bypassing Launch's os/exec spawn so the demux loop can
// be exercised without a real worker binary.
func newTestController(t *testing.T) (*Controller, *transport.Conn) {
	t.Helper()
	workerSide, supervisorSide := net.Pipe()
	t.Cleanup(func() { workerSide.Close() })

	c := New(config.DefaultRunConfig())
	conn := transport.New(supervisorSide)
	c.conn = conn

	connectedCh := make(chan struct{})
	go c.demux(conn, connectedCh)
	t.Cleanup(func() { close(c.done) })

	workerConn := transport.New(workerSide)
	t.Cleanup(func() { workerConn.Close() })

	return c, workerConn
}

func TestDemuxHappyPath(t *testing.T) {
	c, worker := newTestController(t)
	l := &recordingListener{}
	c.AddListener(l)

	_ = worker.Send(envelope.EncodeMessageEvent(envelope.Connected()))
	_ = worker.Send(envelope.EncodeMessageEvent(envelope.Started("plug-A")))
	_ = worker.Send(envelope.EncodeMessageEvent(envelope.Log("line1\nline2")))
	_ = worker.Send(envelope.EncodeMessageEvent(envelope.Result("plug-A", 3)))
	_ = worker.Send(envelope.EncodeMessageEvent(envelope.Complete()))

	deadline := time.After(2 * time.Second)
	for {
		snap := l.snapshot()
		if len(snap) >= 4 {
			want := []string{"started:plug-A", "log:line1\nline2", "result:plug-A", "complete"}
			for i, w := range want {
				if snap[i] != w {
					t.Fatalf("event %d: got %q want %q (all: %v)", i, snap[i], w, snap)
				}
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for events, got %v", snap)
		case <-time.After(10 * time.Millisecond):
		}
	}

	// demux must return right after EventComplete rather than keep
	// selecting on the conn it just scheduled for teardown: a clean
	// batch must never also produce a connection_lost event.
	time.Sleep(50 * time.Millisecond)
	if snap := l.snapshot(); len(snap) != 4 {
		t.Fatalf("expected exactly 4 events after complete, got %v", snap)
	}
}

func TestDemuxConnectionLost(t *testing.T) {
	c, worker := newTestController(t)
	l := &recordingListener{}
	c.AddListener(l)

	worker.Close()

	deadline := time.After(2 * time.Second)
	for {
		snap := l.snapshot()
		for _, e := range snap {
			if e == "lost" {
				if c.IsConnected() {
					t.Fatal("expected connected=false after connection loss")
				}
				return
			}
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for connection lost, got %v", snap)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
