package mux

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sshwire/chanmux/wire"
)

// nopChannel is the smallest implementation of the channel contract the
// session loop accepts: every data path is a no-op.
type nopChannel struct {
	done chan struct{}
}

func newNopChannel() *nopChannel {
	return &nopChannel{done: make(chan struct{})}
}

func (c *nopChannel) ID() uint32   { return 0 }
func (c *nopChannel) Type() string { return "nop" }

func (c *nopChannel) Open(ctx context.Context) error { return nil }
func (c *nopChannel) OpenInbound(remoteID, remoteWindow, remoteMaxPacket uint32, extraData []byte) error {
	return nil
}
func (c *nopChannel) HandleOpenConfirm(msg *wire.OpenConfirmMessage) error   { return nil }
func (c *nopChannel) HandleOpenFailure(msg *wire.OpenFailureMessage) error   { return nil }
func (c *nopChannel) HandleWindowAdjust(msg *wire.WindowAdjustMessage) error { return nil }
func (c *nopChannel) HandleMessage(msg wire.Message) error                   { return nil }

func (c *nopChannel) Read(p []byte) (int, error)              { return 0, io.EOF }
func (c *nopChannel) Write(p []byte) (int, error)             { return len(p), nil }
func (c *nopChannel) WriteData(p []byte) (int, error)         { return len(p), nil }
func (c *nopChannel) WriteExtendedData(p []byte) (int, error) { return len(p), nil }

func (c *nopChannel) CloseWrite() error { return nil }
func (c *nopChannel) Close() error      { return nil }
func (c *nopChannel) Abort() error      { return nil }

func (c *nopChannel) Done() <-chan struct{} { return c.done }

var _ Channel = (*nopChannel)(nil)

// The session loop only needs the Channel contract; a do-nothing stub
// can flow through the inbound accept path.
func TestNopChannelAccepted(t *testing.T) {
	sess, peer := newTestSession(t, DefaultConfig())
	nop := newNopChannel()
	sess.HandleChannelType("nop", func(s *Session, _ string) Channel { return nop })

	fatal(peer.enc.Encode(wire.OpenMessage{
		ChannelType:   "nop",
		SenderID:      5,
		WindowSize:    10,
		MaxPacketSize: 100,
	}), t)

	accepted := make(chan Channel, 1)
	go func() {
		ch, err := sess.Accept()
		if err != nil {
			t.Error(err)
			return
		}
		accepted <- ch
	}()

	select {
	case ch := <-accepted:
		if ch != Channel(nop) {
			t.Fatal("expected the stub channel back from Accept")
		}
	case <-time.After(time.Second):
		t.Fatal("accept did not return")
	}
}
