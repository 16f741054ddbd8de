// Package stream defines the duplex byte stream both parties of a signing run talk over.
//
// Messages are strictly positional: there is no framing, and each side knows
// from the protocol step how many bytes to read. Writes are buffered per handle
// and only reach the peer on Flush, which is atomic with respect to the other
// clones of the same stream.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Stream is a duplex connection to the other party.
type Stream interface {
	io.Reader
	io.Writer
	// Flush sends everything written since the last Flush, as one message.
	Flush() error
	// Clone returns an independent handle to the same connection.
	Clone() (Stream, error)
}

// Error is returned when the underlying connection fails.
type Error struct {
	// Op describes what was being read or written.
	Op  string
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("stream: %s: %v", e.Op, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *Error) Unwrap() error {
	return e.Err
}

// ReadFull fills buf from s.
func ReadFull(s Stream, op string, buf []byte) error {
	if _, err := io.ReadFull(s, buf); err != nil {
		return &Error{Op: "read " + op, Err: err}
	}
	return nil
}

// WriteFlush writes all chunks to s as a single message.
func WriteFlush(s Stream, op string, chunks ...[]byte) error {
	for _, chunk := range chunks {
		if _, err := s.Write(chunk); err != nil {
			return &Error{Op: "write " + op, Err: err}
		}
	}
	if err := s.Flush(); err != nil {
		return &Error{Op: "flush " + op, Err: err}
	}
	return nil
}

// IsTransport returns true if err was caused by the connection.
func IsTransport(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// aLongTimeAgo is a deadline in the past, which makes pending operations fail immediately.
var aLongTimeAgo = time.Unix(1, 0)

// Watch ties blocking operations on s to ctx.
//
// If s supports deadlines, the deadline of ctx is applied to it. When ctx is done,
// pending reads and writes are interrupted, either by moving the deadline to the
// past or, for streams without deadlines, by closing s.
// The returned function must be called once s is no longer used under ctx.
func Watch(ctx context.Context, s Stream) (release func()) {
	d, hasDeadline := s.(deadliner)
	if deadline, ok := ctx.Deadline(); ok && hasDeadline {
		_ = d.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		if hasDeadline {
			_ = d.SetDeadline(aLongTimeAgo)
			return
		}
		if c, ok := s.(io.Closer); ok {
			_ = c.Close()
		}
	})
	return func() {
		stop()
		if hasDeadline && ctx.Err() == nil {
			_ = d.SetDeadline(time.Time{})
		}
	}
}
