package supervisor

import "io"

// stdioConn joins a child process's stdin writer and stdout reader into
// the single io.ReadWriteCloser the transport layer expects. Closing it
// closes both halves; the process itself is reaped separately by Wait.
type stdioConn struct {
	r io.ReadCloser
	w io.WriteCloser
}

func (c *stdioConn) Read(p []byte) (int, error)  { return c.r.Read(p) }
func (c *stdioConn) Write(p []byte) (int, error) { return c.w.Write(p) }

func (c *stdioConn) Close() error {
	werr := c.w.Close()
	rerr := c.r.Close()
	if werr != nil {
		return werr
	}
	return rerr
}
