package mux

import (
	"errors"
	"io"
	"testing"
	"time"
)

func TestWindowConsume(t *testing.T) {
	w := NewWindow(100)
	fatal(w.Consume(60), t)
	if got := w.Available(); got != 40 {
		t.Fatalf("expected 40 available, got %d", got)
	}

	// over-consumption leaves the budget untouched
	if err := w.Consume(41); !errors.Is(err, ErrInsufficientWindow) {
		t.Fatalf("expected ErrInsufficientWindow, got %v", err)
	}
	if got := w.Available(); got != 40 {
		t.Fatalf("expected 40 available after failed consume, got %d", got)
	}

	fatal(w.Consume(40), t)
	if got := w.Available(); got != 0 {
		t.Fatalf("expected empty window, got %d", got)
	}
}

func TestWindowAdjust(t *testing.T) {
	w := NewWindow(0)
	if !w.Adjust(10) {
		t.Fatal("adjust rejected")
	}
	fatal(w.Consume(5), t)
	if !w.Adjust(5) {
		t.Fatal("adjust rejected")
	}
	if got := w.Available(); got != 10 {
		t.Fatalf("expected 10 available, got %d", got)
	}
	if w.Capacity() != 0 {
		t.Fatalf("expected capacity 0, got %d", w.Capacity())
	}
}

func TestWindowAdjustOverflow(t *testing.T) {
	w := NewWindow(10)
	if w.Adjust(^uint32(0)) {
		t.Fatal("expected overflowing adjust to be rejected")
	}
	if got := w.Available(); got != 10 {
		t.Fatalf("expected budget unchanged, got %d", got)
	}
}

// consume-then-adjust by the same amount always restores the budget
func TestWindowRoundTrip(t *testing.T) {
	w := NewWindow(1 << 20)
	for _, n := range []uint32{1, 100, 32 * 1024, 1 << 20} {
		fatal(w.Consume(n), t)
		if !w.Adjust(n) {
			t.Fatalf("adjust(%d) rejected", n)
		}
		if got := w.Available(); got != 1<<20 {
			t.Fatalf("expected full budget after round trip of %d, got %d", n, got)
		}
	}
}

func TestBufferReadWrite(t *testing.T) {
	b := newBuffer()
	b.write([]byte("hello "))
	b.write([]byte("world"))
	b.eof()

	buf := make([]byte, 32)
	n, err := b.Read(buf)
	fatal(err, t)
	if string(buf[:n]) != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", buf[:n])
	}
	if _, err := b.Read(buf); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestBufferBlockingRead(t *testing.T) {
	b := newBuffer()
	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 8)
		n, _ := b.Read(buf)
		got <- string(buf[:n])
	}()
	time.Sleep(10 * time.Millisecond)
	b.write([]byte("late"))
	select {
	case s := <-got:
		if s != "late" {
			t.Fatalf("expected %q, got %q", "late", s)
		}
	case <-time.After(time.Second):
		t.Fatal("read did not unblock")
	}
}
