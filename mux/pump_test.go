package mux

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sshwire/chanmux/wire"
)

// A pumped input source is framed to the peer; end of input sends EOF
// without closing the channel.
func TestPumpInput(t *testing.T) {
	sess, peer := newTestSession(t, DefaultConfig())
	ch := openSessionChannel(t, sess, peer, 1<<20, 1024,
		WithInput(strings.NewReader("hello world")))

	peer.expectData(t, "hello world")

	msg, err := peer.dec.Decode()
	fatal(err, t)
	if _, ok := msg.(*wire.EOFMessage); !ok {
		t.Fatalf("expected eof after input drained, got %s", msg)
	}

	// input exhaustion is a half close, the peer can still send
	select {
	case <-ch.Done():
		t.Fatal("channel closed on input eof")
	default:
	}
	fatal(peer.enc.Encode(wire.DataMessage{
		ChannelID: ch.ID(),
		Length:    5,
		Data:      []byte("reply"),
	}), t)
	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := ch.Stdout().Read(buf)
		got <- string(buf[:n])
	}()
	msg, err = peer.dec.Decode()
	fatal(err, t)
	if _, ok := msg.(*wire.WindowAdjustMessage); !ok {
		t.Fatalf("expected window adjust, got %s", msg)
	}
	if s := <-got; s != "reply" {
		t.Fatalf("expected reply, got %q", s)
	}
}

// A failing input source closes the channel.
func TestPumpInputError(t *testing.T) {
	sess, peer := newTestSession(t, DefaultConfig())
	boom := errors.New("disk on fire")
	ch := openSessionChannel(t, sess, peer, 1<<20, 1024,
		WithInput(&failingReader{err: boom}))

	msg, err := peer.dec.Decode()
	fatal(err, t)
	if _, ok := msg.(*wire.EOFMessage); !ok {
		t.Fatalf("expected eof from close, got %s", msg)
	}
	msg, err = peer.dec.Decode()
	fatal(err, t)
	if _, ok := msg.(*wire.CloseMessage); !ok {
		t.Fatalf("expected close, got %s", msg)
	}
	select {
	case <-ch.Done():
	case <-time.After(time.Second):
		t.Fatal("channel not closed after input failure")
	}
}

type failingReader struct {
	err error
}

func (r *failingReader) Read(p []byte) (int, error) {
	return 0, r.err
}

// Empty pump reads still count as session activity for the idle timer.
func TestPumpEmptyReadsResetIdleTimer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IdleTimeout = 200 * time.Millisecond
	sess, peer := newTestSession(t, cfg)
	openSessionChannel(t, sess, peer, 1<<20, 1024, WithInput(&trickleReader{}))

	// the pump spends ~400ms on empty reads before signalling eof; each
	// read must have reset the 200ms idle timer along the way
	msg, err := peer.dec.Decode()
	fatal(err, t)
	if _, ok := msg.(*wire.EOFMessage); !ok {
		t.Fatalf("expected eof, got %s", msg)
	}

	done := make(chan error, 1)
	go func() { done <- sess.Wait() }()
	select {
	case err := <-done:
		t.Fatalf("session died during pumped reads: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

// trickleReader yields a run of empty reads before ending.
type trickleReader struct {
	reads int
}

func (r *trickleReader) Read(p []byte) (int, error) {
	r.reads++
	if r.reads > 8 {
		return 0, io.EOF
	}
	time.Sleep(50 * time.Millisecond)
	return 0, nil
}

// A lent executor runs the pump and survives channel teardown.
func TestPumpBorrowedExecutor(t *testing.T) {
	sess, peer := newTestSession(t, DefaultConfig())
	exec := &recordingExecutor{}
	ch := openSessionChannel(t, sess, peer, 1<<20, 1024,
		WithInput(strings.NewReader("hi")),
		WithExecutor(exec))

	peer.expectData(t, "hi")
	msg, err := peer.dec.Decode()
	fatal(err, t)
	if _, ok := msg.(*wire.EOFMessage); !ok {
		t.Fatalf("expected eof, got %s", msg)
	}

	go ch.Close()
	msg, err = peer.dec.Decode()
	fatal(err, t)
	if _, ok := msg.(*wire.CloseMessage); !ok {
		t.Fatalf("expected close, got %s", msg)
	}
	<-ch.Done()

	if exec.shutdowns.Load() != 0 {
		t.Fatal("borrowed executor must not be shut down by the channel")
	}
	if exec.tasks.Load() != 1 {
		t.Fatalf("expected one pump task, got %d", exec.tasks.Load())
	}
}

type recordingExecutor struct {
	tasks     atomic.Int32
	shutdowns atomic.Int32
}

func (e *recordingExecutor) Go(task func()) {
	e.tasks.Add(1)
	go task()
}

func (e *recordingExecutor) Shutdown() {
	e.shutdowns.Add(1)
}

func TestBoundedReadChunks(t *testing.T) {
	// a buffered source with bytes available is drained up to the buffer
	src := bufio.NewReader(bytes.NewReader(bytes.Repeat([]byte("a"), 10)))
	src.Peek(10) // force the data into the bufio buffer
	buf := make([]byte, 10)
	n, err := boundedRead(src, buf, 4)
	fatal(err, t)
	if n != 10 {
		t.Fatalf("expected 10 bytes from buffered source, got %d", n)
	}
}

func TestBoundedReadEarlyReturn(t *testing.T) {
	// an unbuffered source returns after one read, it never waits to
	// fill the chunk
	src := iotest{data: []byte("abc")}
	buf := make([]byte, 10)
	n, err := boundedRead(&src, buf, 8)
	fatal(err, t)
	if n != 3 {
		t.Fatalf("expected early return with 3 bytes, got %d", n)
	}
	if src.reads != 1 {
		t.Fatalf("expected a single read, got %d", src.reads)
	}
}

func TestBoundedReadEOF(t *testing.T) {
	src := bytes.NewReader([]byte("tail"))
	buf := make([]byte, 10)

	// data plus eof in one read is reported as data first
	n, err := boundedRead(src, buf, 10)
	fatal(err, t)
	if n != 4 {
		t.Fatalf("expected 4 bytes, got %d", n)
	}
	if _, err := boundedRead(src, buf, 10); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

type iotest struct {
	data  []byte
	reads int
}

func (r *iotest) Read(p []byte) (int, error) {
	r.reads++
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestSingleWorker(t *testing.T) {
	w := newSingleWorker()
	done := make(chan struct{})
	w.Go(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
	w.Shutdown()
	w.Shutdown() // idempotent
	// tasks after shutdown are dropped, not deadlocked
	w.Go(func() { t.Error("task ran after shutdown") })
	time.Sleep(10 * time.Millisecond)
}
