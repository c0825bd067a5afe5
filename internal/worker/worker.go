package worker

import (
	"context"
	"os"

	"github.com/pluginhost/validatorctl/internal/envelope"
	"github.com/pluginhost/validatorctl/internal/logging"
	"github.com/pluginhost/validatorctl/internal/transport"
	"github.com/pluginhost/validatorctl/internal/validator"
	"github.com/pluginhost/validatorctl/internal/worker/containment"
)

// Run attaches to stdin/stdout as the framed pipe, performs the
// handshake, and drives the dispatcher until the pipe closes. It never
// returns normally in production use — the worker process is meant to
// live exactly as long as its connection to the supervisor (§4.6) — but
// returns an error for initialisation failures so cmd/validatorctl can
// exit cleanly (§4.4: "Initialisation failure -> the worker exits
// without attaching").
func Run(ctx context.Context, v validator.Validator) error {
	containment.Install()

	conn := transport.New(&stdStream{})
	d := New(conn, v)

	go func() {
		<-conn.ConnectionLost()
		containment.TerminateOnPipeClose()
	}()

	go func() {
		for req := range conn.Recv() {
			pr, err := envelope.DecodePluginsRequest(req)
			if err != nil {
				logging.Warnf("worker: dropping undecodable PLUGINS envelope: %v", err)
				continue
			}
			d.Enqueue(pr)
		}
		d.Stop()
	}()

	if err := d.Handshake(); err != nil {
		return err
	}
	d.Run(ctx)
	return nil
}

// stdStream adapts the process's own stdin/stdout into the
// io.ReadWriteCloser the transport expects, for the real worker subprocess
// (as opposed to the in-process pipe pair used by supervisor tests).
type stdStream struct{}

func (stdStream) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdStream) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdStream) Close() error {
	_ = os.Stdin.Close()
	return os.Stdout.Close()
}
