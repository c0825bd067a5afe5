// Package supervisor is the parent-side controller: it launches the
// worker executable, demultiplexes inbound events to registered
// listeners, and tears the worker handle down asynchronously on
// completion or connection loss. Grounded on the teacher's
// Service.serve event-loop / channel-fan-in structure and its managed
// child-process lifecycle, adapted here from an in-process goroutine
// child to a real OS child process.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pluginhost/validatorctl/internal/config"
	"github.com/pluginhost/validatorctl/internal/envelope"
	"github.com/pluginhost/validatorctl/internal/logging"
	"github.com/pluginhost/validatorctl/internal/transport"
)

// WorkerMarker is the shared command-line token that tells a relaunched
// copy of this executable to enter worker mode instead of supervisor
// mode (§6). It carries no semantic content beyond recognition.
const WorkerMarker = "validatorUID"

// ProductName and ProductVersion identify this harness in the one-line
// launch banner §4.3 step 3 requires on a successful handshake.
const (
	ProductName    = "validatorctl"
	ProductVersion = "0.1.0"
)

var (
	// ErrLaunchTimeout is returned verbatim as the JUCE original's
	// failure string class for a launch handshake that never completes.
	ErrLaunchTimeout = errors.New("slave took too long to launch")
	ErrAlreadyLaunching = errors.New("supervisor: launch already in progress")
)

// Descriptor is a serialized plugin descriptor blob, opaque to the
// transport and base64-encoded before it rides the wire (§3).
type Descriptor []byte

// Controller is the parent-side half of one supervisor/worker pair. It
// owns the worker process handle and the transport connection; a zero
// value is not usable, use New.
type Controller struct {
	cfg config.RunConfig

	mu        sync.Mutex
	cmd       *exec.Cmd
	conn      *transport.Conn
	connected atomic.Bool

	listeners listenerSet

	teardown  chan func()
	closeOnce sync.Once
	done      chan struct{}
}

// New constructs a Controller. Validate/ValidateDescriptors launch a
// worker on demand; Launch may also be called explicitly beforehand.
func New(cfg config.RunConfig) *Controller {
	c := &Controller{
		cfg:      cfg,
		teardown: make(chan func(), 4),
		done:     make(chan struct{}),
	}
	go c.teardownLoop()
	return c
}

// AddListener registers l to receive events. Safe to call at any time.
func (c *Controller) AddListener(l Listener) {
	c.listeners.add(l)
}

// IsConnected reports whether a worker handshake has completed and no
// loss has since been observed.
func (c *Controller) IsConnected() bool {
	return c.connected.Load()
}

// Launch spawns a fresh worker and blocks until its connected event
// arrives or the launch timeout (default 5s, §4.3 step 2) elapses.
func (c *Controller) Launch(ctx context.Context) error {
	c.mu.Lock()
	if c.cmd != nil {
		c.mu.Unlock()
		return ErrAlreadyLaunching
	}

	cmd := exec.Command(os.Args[0], WorkerMarker)
	cmd.SysProcAttr = sysProcAttr()
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("supervisor: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("supervisor: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("supervisor: spawn: %w", err)
	}

	conn := transport.New(&stdioConn{r: stdout, w: stdin})
	c.cmd = cmd
	c.conn = conn
	c.mu.Unlock()

	connectedCh := make(chan struct{})
	go c.demux(conn, connectedCh)

	timeout := c.cfg.LaunchTimeout()
	if timeout <= 0 {
		timeout = config.DefaultLaunchTimeout
	}
	launchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-connectedCh:
		c.connected.Store(true)
		banner := fmt.Sprintf("%s %s (%s/%s) worker connected pid=%d",
			ProductName, ProductVersion, runtime.GOOS, runtime.GOARCH, cmd.Process.Pid)
		logging.Infof("%s", banner)
		c.listeners.logMessage(banner)
		return nil
	case <-launchCtx.Done():
		c.scheduleTeardown()
		return ErrLaunchTimeout
	}
}

// Validate sends a PLUGINS batch built from plain locator strings,
// launching a worker first if none is connected. strictness <= 0 omits
// strictnessLevel from the wire entirely, letting the worker apply its
// own default (§4.4 step 1) rather than sending an explicit 0.
func (c *Controller) Validate(ctx context.Context, locators []string, strictness int) error {
	refs := make([]envelope.PluginRef, len(locators))
	for i, l := range locators {
		refs[i] = envelope.PluginRef{FileOrID: l}
	}
	return c.validate(ctx, refs, strictness)
}

// ValidateDescriptors sends a PLUGINS batch built from serialized
// descriptor blobs, each base64-encoded before transmission (§3).
func (c *Controller) ValidateDescriptors(ctx context.Context, descs []Descriptor, strictness int) error {
	refs := make([]envelope.PluginRef, len(descs))
	for i, d := range descs {
		refs[i] = envelope.PluginRef{PluginDescriptor: []byte(d)}
	}
	return c.validate(ctx, refs, strictness)
}

func (c *Controller) validate(ctx context.Context, refs []envelope.PluginRef, strictness int) error {
	if !c.connected.Load() {
		if err := c.Launch(ctx); err != nil {
			return err
		}
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("supervisor: not connected")
	}
	req := envelope.PluginsRequest{Plugins: refs}
	if strictness > 0 {
		req.Strictness = envelope.StrictnessLevel(strictness)
	}
	return conn.Send(envelope.EncodePluginsRequest(req))
}

// demux reads the transport's envelope channel and dispatches by
// MESSAGE.type exactly per §4.3. connection_lost schedules async
// teardown and returns immediately. complete does the same and also
// returns immediately: it must stop selecting on conn.ConnectionLost()
// before the scheduled releaseWorker closes that same conn, or the
// resulting read error would fire ConnectionLost a second time right
// after a clean batch — a transport-layer side effect of our own
// teardown, not an actual loss (§4.3/§8 treat "complete" and
// "connection lost mid-stream" as mutually exclusive outcomes).
func (c *Controller) demux(conn *transport.Conn, connectedCh chan struct{}) {
	var connectedSignaled bool
	for {
		select {
		case env, ok := <-conn.Recv():
			if !ok {
				continue
			}
			ev, err := envelope.DecodeMessageEvent(env)
			if err != nil {
				logging.Warnf("supervisor: dropping undecodable MESSAGE: %v", err)
				continue
			}
			switch ev.Type {
			case envelope.EventConnected:
				if !connectedSignaled {
					connectedSignaled = true
					close(connectedCh)
				}
			case envelope.EventStarted:
				c.listeners.validationStarted(ev.FileOrID)
			case envelope.EventLog:
				c.listeners.logMessage(ev.Text)
			case envelope.EventResult:
				c.listeners.itemComplete(ev.FileOrID, ev.NumFailures)
			case envelope.EventComplete:
				c.listeners.allItemsComplete()
				c.scheduleTeardown()
				return
			}
		case <-conn.ConnectionLost():
			c.connected.Store(false)
			c.listeners.connectionLost()
			c.scheduleTeardown()
			return
		case <-c.done:
			return
		}
	}
}

// scheduleTeardown posts the worker-handle release onto the dedicated
// control goroutine, never running it inline on the transport/demux
// goroutine (§9 "coroutine/async patterns").
func (c *Controller) scheduleTeardown() {
	select {
	case c.teardown <- c.releaseWorker:
	default:
		// Teardown already queued; at most one release is ever needed.
	}
}

func (c *Controller) teardownLoop() {
	for {
		select {
		case fn := <-c.teardown:
			fn()
		case <-c.done:
			return
		}
	}
}

func (c *Controller) releaseWorker() {
	c.mu.Lock()
	cmd := c.cmd
	conn := c.conn
	c.cmd = nil
	c.conn = nil
	c.mu.Unlock()

	c.connected.Store(false)
	if conn != nil {
		// Closing the pipe is itself the signal that makes a well-behaved
		// worker self-terminate (§4.6); this Wait below reaps it.
		_ = conn.Close()
	}
	if cmd == nil || cmd.Process == nil {
		return
	}

	waited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(config.DefaultShutdownGrace):
		// Worker did not exit promptly after its pipe closed; finish the
		// job the pipe-close signal started.
		_ = killWorker(cmd.Process.Pid)
		<-waited
	}
}

// Close tears the controller down permanently; a Controller is not
// reusable after Close.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.releaseWorker()
		close(c.done)
	})
	return nil
}
