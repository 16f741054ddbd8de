package stream

import (
	"bytes"
	"io"
	"sync"
)

// queue is one direction of a pipe. Writers never block.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    bytes.Buffer
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *queue) read(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.buf.Len() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.buf.Len() == 0 {
		return 0, io.EOF
	}
	return q.buf.Read(p)
}

func (q *queue) write(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0, io.ErrClosedPipe
	}
	n, err := q.buf.Write(p)
	q.cond.Broadcast()
	return n, err
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// pipeEnd is one end of a Pipe.
type pipeEnd struct {
	in, out *queue
	wmu     *sync.Mutex
	pending bytes.Buffer
}

// Pipe returns two connected in-memory streams.
//
// Unlike net.Pipe, flushed messages are queued, so both parties may write
// before reading, as they would over a socket.
func Pipe() (Stream, Stream) {
	ab, ba := newQueue(), newQueue()
	a := &pipeEnd{in: ba, out: ab, wmu: new(sync.Mutex)}
	b := &pipeEnd{in: ab, out: ba, wmu: new(sync.Mutex)}
	return a, b
}

func (p *pipeEnd) Read(b []byte) (int, error) {
	return p.in.read(b)
}

func (p *pipeEnd) Write(b []byte) (int, error) {
	return p.pending.Write(b)
}

func (p *pipeEnd) Flush() error {
	if p.pending.Len() == 0 {
		return nil
	}
	p.wmu.Lock()
	defer p.wmu.Unlock()
	_, err := p.out.write(p.pending.Bytes())
	p.pending.Reset()
	return err
}

func (p *pipeEnd) Clone() (Stream, error) {
	return &pipeEnd{in: p.in, out: p.out, wmu: p.wmu}, nil
}

// Close closes both directions. Pending reads on either end fail once drained.
func (p *pipeEnd) Close() error {
	p.in.close()
	p.out.close()
	return nil
}
