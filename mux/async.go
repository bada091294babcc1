package mux

import (
	"io"
	"sync"
)

// AsyncWriter queues outbound payloads and frames them to the channel
// from a single flush worker, so callers never block on the remote
// window. Each write resolves through its future once the payload has
// been handed to the transport.
type AsyncWriter struct {
	ch  *channel
	ext bool

	mu       sync.Mutex
	idle     *sync.Cond
	queue    []asyncWrite
	flushing bool
	aborted  bool
}

type asyncWrite struct {
	data []byte
	fut  *WriteFuture
}

func newAsyncWriter(ch *channel, ext bool) *AsyncWriter {
	w := &AsyncWriter{ch: ch, ext: ext}
	w.idle = sync.NewCond(&w.mu)
	return w
}

// Write queues p for framing and returns immediately. The payload is
// copied, so the caller may reuse p. The future resolves with the byte
// count framed, or with the first framing error.
func (w *AsyncWriter) Write(p []byte) *WriteFuture {
	fut := newWriteFuture()

	w.mu.Lock()
	if w.aborted {
		w.mu.Unlock()
		fut.complete(0, ErrChannelClosed)
		return fut
	}
	data := make([]byte, len(p))
	copy(data, p)
	w.queue = append(w.queue, asyncWrite{data: data, fut: fut})
	if !w.flushing {
		w.flushing = true
		go w.flush()
	}
	w.mu.Unlock()

	return fut
}

// flush frames queued payloads in order until the queue drains, then
// exits. The next Write starts a fresh worker.
func (w *AsyncWriter) flush() {
	for {
		w.mu.Lock()
		if len(w.queue) == 0 || w.aborted {
			w.flushing = false
			w.idle.Broadcast()
			w.mu.Unlock()
			return
		}
		item := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		var n int
		var err error
		if w.ext {
			n, err = w.ch.WriteExtendedData(item.data)
		} else {
			n, err = w.ch.WriteData(item.data)
		}
		item.fut.complete(n, err)
	}
}

// drain blocks until every queued write has been framed. Used by the
// graceful close path before EOF is sent.
func (w *AsyncWriter) drain() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.flushing || (len(w.queue) > 0 && !w.aborted) {
		w.idle.Wait()
	}
}

// abort fails every queued write and rejects new ones. Writes already
// being framed still resolve through their own futures.
func (w *AsyncWriter) abort() {
	w.mu.Lock()
	w.aborted = true
	queued := w.queue
	w.queue = nil
	w.idle.Broadcast()
	w.mu.Unlock()

	for _, item := range queued {
		item.fut.complete(0, ErrChannelClosed)
	}
}

// AsyncReader hands inbound payloads to read futures. Reads issued
// before data arrives wait in order; data arriving before a read is
// backlogged. The local window is replenished only as futures resolve,
// so a slow consumer exerts backpressure on the peer.
type AsyncReader struct {
	mu       sync.Mutex
	backlog  []byte
	waiters  []*ReadFuture
	atEOF    bool
	consumed func(n uint32)
}

// newAsyncReader builds a reader that reports consumed byte counts
// through the given callback.
func newAsyncReader(consumed func(n uint32)) *AsyncReader {
	return &AsyncReader{consumed: consumed}
}

// Read registers p to receive inbound bytes and returns immediately.
// The future resolves with at least one byte, or with io.EOF once the
// stream has ended and the backlog is drained.
func (r *AsyncReader) Read(p []byte) *ReadFuture {
	fut := newReadFuture(p)

	r.mu.Lock()
	if len(r.backlog) > 0 {
		n := copy(p, r.backlog)
		r.backlog = r.backlog[n:]
		r.mu.Unlock()
		r.resolve(fut, n, nil)
		return fut
	}
	if r.atEOF {
		r.mu.Unlock()
		fut.complete(0, io.EOF)
		return fut
	}
	r.waiters = append(r.waiters, fut)
	r.mu.Unlock()
	return fut
}

// deliver distributes an inbound payload to waiting futures in FIFO
// order, backlogging whatever is left over.
func (r *AsyncReader) deliver(data []byte) {
	type resolution struct {
		fut *ReadFuture
		n   int
	}
	var resolved []resolution

	r.mu.Lock()
	for len(data) > 0 && len(r.waiters) > 0 {
		fut := r.waiters[0]
		r.waiters = r.waiters[1:]
		n := copy(fut.buf, data)
		data = data[n:]
		resolved = append(resolved, resolution{fut, n})
	}
	if len(data) > 0 {
		r.backlog = append(r.backlog, data...)
	}
	r.mu.Unlock()

	for _, res := range resolved {
		r.resolve(res.fut, res.n, nil)
	}
}

// eof marks the end of the stream. Waiting futures resolve with io.EOF;
// a backlog still drains through later reads first.
func (r *AsyncReader) eof() {
	r.mu.Lock()
	if r.atEOF {
		r.mu.Unlock()
		return
	}
	r.atEOF = true
	waiters := r.waiters
	r.waiters = nil
	r.mu.Unlock()

	for _, fut := range waiters {
		fut.complete(0, io.EOF)
	}
}

func (r *AsyncReader) resolve(fut *ReadFuture, n int, err error) {
	if n > 0 && r.consumed != nil {
		r.consumed(uint32(n))
	}
	fut.complete(n, err)
}
