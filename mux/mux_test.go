package mux

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sshwire/chanmux/wire"
)

func fatal(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

// testPeer drives the raw wire side of a session under test.
type testPeer struct {
	enc *wire.Encoder
	dec *wire.Decoder
}

func newTestSession(t *testing.T, cfg Config) (*Session, *testPeer) {
	t.Helper()
	a, b := net.Pipe()
	sess := NewWith(a, cfg, zerolog.Nop())
	t.Cleanup(func() {
		sess.Close()
		b.Close()
	})
	return sess, &testPeer{enc: wire.NewEncoder(b), dec: wire.NewDecoder(b)}
}

// confirmOpen consumes the channel open message and confirms it with the
// given send budget and packet size. It returns the opener's channel id.
func (p *testPeer) confirmOpen(t *testing.T, window, maxPacket uint32) uint32 {
	t.Helper()
	msg, err := p.dec.Decode()
	fatal(err, t)
	open, ok := msg.(*wire.OpenMessage)
	if !ok {
		t.Fatalf("expected open message, got %s", msg)
	}
	fatal(p.enc.Encode(wire.OpenConfirmMessage{
		ChannelID:     open.SenderID,
		SenderID:      99,
		WindowSize:    window,
		MaxPacketSize: maxPacket,
	}), t)
	return open.SenderID
}

func (p *testPeer) expectData(t *testing.T, want string) {
	t.Helper()
	msg, err := p.dec.Decode()
	fatal(err, t)
	data, ok := msg.(*wire.DataMessage)
	if !ok {
		t.Fatalf("expected data message, got %s", msg)
	}
	if string(data.Data) != want {
		t.Fatalf("expected data %q, got %q", want, data.Data)
	}
}

func openChannel(t *testing.T, sess *Session, peer *testPeer, window, maxPacket uint32) Channel {
	t.Helper()
	opened := make(chan Channel, 1)
	errs := make(chan error, 1)
	go func() {
		ch, err := sess.Open(context.Background(), "data")
		if err != nil {
			errs <- err
			return
		}
		opened <- ch
	}()
	peer.confirmOpen(t, window, maxPacket)
	select {
	case ch := <-opened:
		return ch
	case err := <-errs:
		t.Fatal(err)
	case <-time.After(time.Second):
		t.Fatal("open did not complete")
	}
	return nil
}

func openSessionChannel(t *testing.T, sess *Session, peer *testPeer, window, maxPacket uint32, opts ...SessionChannelOption) *SessionChannel {
	t.Helper()
	ch := sess.NewSessionChannel(opts...)
	errs := make(chan error, 1)
	go func() {
		errs <- ch.Open(context.Background())
	}()
	peer.confirmOpen(t, window, maxPacket)
	select {
	case err := <-errs:
		fatal(err, t)
	case <-time.After(time.Second):
		t.Fatal("open did not complete")
	}
	return ch
}
