package stream

import (
	"bytes"
	"net"
	"sync"
	"time"
)

// Conn adapts a net.Conn, such as a TCP or unix socket, to Stream.
type Conn struct {
	conn net.Conn
	// wmu is shared by all clones, so that flushed messages never interleave.
	wmu     *sync.Mutex
	pending bytes.Buffer
}

// NewConn wraps conn.
func NewConn(conn net.Conn) *Conn {
	return &Conn{conn: conn, wmu: new(sync.Mutex)}
}

// Read implements io.Reader. Reads are not buffered, so that no clone
// consumes bytes meant for another.
func (c *Conn) Read(p []byte) (int, error) {
	return c.conn.Read(p)
}

// Write implements io.Writer, buffering p until the next Flush.
func (c *Conn) Write(p []byte) (int, error) {
	return c.pending.Write(p)
}

// Flush implements Stream.
func (c *Conn) Flush() error {
	if c.pending.Len() == 0 {
		return nil
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := c.pending.WriteTo(c.conn)
	c.pending.Reset()
	return err
}

// Clone implements Stream.
func (c *Conn) Clone() (Stream, error) {
	return &Conn{conn: c.conn, wmu: c.wmu}, nil
}

// SetDeadline sets the read and write deadlines of the underlying connection.
func (c *Conn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// Close closes the underlying connection, for all clones.
func (c *Conn) Close() error {
	return c.conn.Close()
}
