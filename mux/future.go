package mux

import (
	"context"
	"sync"
)

// closeFuture is the single-assignment signal that a channel is fully
// closed. All observers see the same terminal state; set is idempotent.
type closeFuture struct {
	once sync.Once
	done chan struct{}
}

func newCloseFuture() *closeFuture {
	return &closeFuture{done: make(chan struct{})}
}

func (f *closeFuture) set() {
	f.once.Do(func() { close(f.done) })
}

func (f *closeFuture) isSet() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *closeFuture) Done() <-chan struct{} {
	return f.done
}

// A WriteFuture resolves once an asynchronous write has been handed to
// the transport, or has failed.
type WriteFuture struct {
	done chan struct{}
	n    int
	err  error
}

func newWriteFuture() *WriteFuture {
	return &WriteFuture{done: make(chan struct{})}
}

// complete must be called exactly once.
func (f *WriteFuture) complete(n int, err error) {
	f.n, f.err = n, err
	close(f.done)
}

// Done returns a channel closed when the write has resolved.
func (f *WriteFuture) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the write resolves and returns the byte count
// written and any error.
func (f *WriteFuture) Result() (int, error) {
	<-f.done
	return f.n, f.err
}

// Await is like Result but gives up when ctx is done. The write itself
// is not cancelled; it may still complete later.
func (f *WriteFuture) Await(ctx context.Context) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-f.done:
		return f.n, f.err
	}
}

// A ReadFuture resolves once inbound payload has been copied into the
// caller's buffer, or the stream has ended.
type ReadFuture struct {
	done chan struct{}
	buf  []byte
	n    int
	err  error
}

func newReadFuture(buf []byte) *ReadFuture {
	return &ReadFuture{done: make(chan struct{}), buf: buf}
}

func (f *ReadFuture) complete(n int, err error) {
	f.n, f.err = n, err
	close(f.done)
}

// Done returns a channel closed when the read has resolved.
func (f *ReadFuture) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the read resolves and returns the byte count
// copied into the caller's buffer and any error.
func (f *ReadFuture) Result() (int, error) {
	<-f.done
	return f.n, f.err
}

// Await is like Result but gives up when ctx is done.
func (f *ReadFuture) Await(ctx context.Context) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-f.done:
		return f.n, f.err
	}
}
