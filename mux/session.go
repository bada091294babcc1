package mux

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sshwire/chanmux/wire"
)

// A ChannelFactory builds a channel for an inbound open of its
// registered type. The returned channel must be created through the
// session so it is registered in the channel table.
type ChannelFactory func(s *Session, chanType string) Channel

// Session multiplexes channels over a single transport. The transport
// only needs to move bytes; framing, windows and channel lifecycles all
// live here.
type Session struct {
	t   io.ReadWriteCloser
	cfg Config
	log zerolog.Logger

	enc *wire.Encoder
	dec *wire.Decoder

	chans chanList

	factMu    sync.Mutex
	factories map[string]ChannelFactory

	inbox chan Channel

	errCond *sync.Cond
	err     error
	closeCh chan bool

	idleMu    sync.Mutex
	idleTimer *time.Timer
}

// New returns a session over the given transport with default config and
// no logging.
func New(t io.ReadWriteCloser) *Session {
	return NewWith(t, DefaultConfig(), zerolog.Nop())
}

// NewWith returns a session over the given transport using cfg and log.
func NewWith(t io.ReadWriteCloser, cfg Config, log zerolog.Logger) *Session {
	if t == nil {
		return nil
	}
	s := &Session{
		t:         t,
		cfg:       cfg.sanitize(),
		log:       log,
		enc:       wire.NewEncoder(t),
		dec:       wire.NewDecoder(t),
		factories: make(map[string]ChannelFactory),
		inbox:     make(chan Channel),
		errCond:   sync.NewCond(new(sync.Mutex)),
		closeCh:   make(chan bool, 1),
	}
	s.chans.offset = 1
	if s.cfg.IdleTimeout > 0 {
		s.idleTimer = time.AfterFunc(s.cfg.IdleTimeout, s.idleExpired)
	}
	go s.loop()
	return s
}

// newChan builds an unregistered generic channel bound to this session.
func (s *Session) newChan(chanType string) *channel {
	ch := &channel{
		chanType:           chanType,
		session:            s,
		maxIncomingPayload: s.cfg.MaxPacketSize,
		msg:                make(chan wire.Message, 1),
		remoteWin:          NewWindow(0),
		localWin:           NewWindow(s.cfg.WindowSize),
		pending:            newBuffer(),
		extPending:         newBuffer(),
		closed:             newCloseFuture(),
		requests:           make(map[string]RequestHandler),
	}
	ch.winCond = sync.NewCond(&ch.winMu)
	return ch
}

// register assigns ch a local id and stores it in the channel table.
// The table holds the concrete channel so shadowed methods are reached
// through the interface.
func (s *Session) register(ch Channel, base *channel) {
	base.localId = s.chans.add(ch)
	base.log = s.log.With().
		Uint32("channel", base.localId).
		Str("type", base.chanType).
		Logger()
}

// NewChannel builds and registers a raw channel of the given type
// without opening it. Most callers want a typed constructor such as
// NewSessionChannel instead.
func (s *Session) NewChannel(chanType string) Channel {
	base := s.newChan(chanType)
	s.register(base, base)
	return base
}

// Open establishes a raw channel of the given type with the other end.
func (s *Session) Open(ctx context.Context, chanType string) (Channel, error) {
	ch := s.NewChannel(chanType)
	if err := ch.Open(ctx); err != nil {
		return nil, err
	}
	return ch, nil
}

// HandleChannelType registers a factory for inbound channels of the
// given type. The name "*" catches opens for otherwise unregistered
// types; without it those opens are refused.
func (s *Session) HandleChannelType(name string, f ChannelFactory) {
	s.factMu.Lock()
	defer s.factMu.Unlock()
	s.factories[name] = f
}

// Accept waits for and returns the next inbound channel.
func (s *Session) Accept() (Channel, error) {
	select {
	case ch := <-s.inbox:
		return ch, nil
	case <-s.closeCh:
		return nil, io.EOF
	}
}

// Close closes the underlying transport, which shuts the session down.
func (s *Session) Close() error {
	s.stopIdleTimer()
	return s.t.Close()
}

// Wait blocks until the session has shut down, and returns the error
// causing the shutdown.
func (s *Session) Wait() error {
	s.errCond.L.Lock()
	defer s.errCond.L.Unlock()
	for s.err == nil {
		s.errCond.Wait()
	}
	return s.err
}

// ResetIdleTimeout marks the session as live. Inbound packets and pump
// iterations call it; when the idle timeout elapses without activity,
// the transport is torn down.
func (s *Session) ResetIdleTimeout() {
	if s.cfg.IdleTimeout <= 0 {
		return
	}
	s.idleMu.Lock()
	if s.idleTimer != nil {
		s.idleTimer.Reset(s.cfg.IdleTimeout)
	}
	s.idleMu.Unlock()
}

func (s *Session) idleExpired() {
	s.log.Warn().Dur("timeout", s.cfg.IdleTimeout).Msg("session idle timeout, closing transport")
	s.t.Close()
}

func (s *Session) stopIdleTimer() {
	s.idleMu.Lock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	s.idleMu.Unlock()
}

// loop runs the connection machine. It will process packets until an
// error is encountered. To synchronize on loop exit, use Wait.
func (s *Session) loop() {
	var err error
	for err == nil {
		err = s.onePacket()
	}
	if err != io.EOF {
		s.log.Debug().Err(err).Msg("session loop exited")
	}

	for _, ch := range s.chans.dropAll() {
		ch.Abort()
	}

	s.t.Close()
	s.stopIdleTimer()
	s.closeCh <- true

	s.errCond.L.Lock()
	s.err = err
	s.errCond.Broadcast()
	s.errCond.L.Unlock()
}

// onePacket reads and processes one packet.
func (s *Session) onePacket() error {
	msg, err := s.dec.Decode()
	if err != nil {
		return err
	}

	s.ResetIdleTimeout()

	if om, ok := msg.(*wire.OpenMessage); ok {
		return s.handleOpen(om)
	}

	id, ok := msg.Channel()
	if !ok {
		return fmt.Errorf("chanmux: message without channel id: %v", msg)
	}
	ch := s.chans.getChan(id)
	if ch == nil {
		return fmt.Errorf("chanmux: unknown channel %d", id)
	}
	return ch.HandleMessage(msg)
}

func (s *Session) handleOpen(m *wire.OpenMessage) error {
	s.factMu.Lock()
	f := s.factories[m.ChannelType]
	if f == nil {
		f = s.factories["*"]
	}
	s.factMu.Unlock()

	if f == nil {
		s.log.Debug().Str("type", m.ChannelType).Msg("refusing open for unknown channel type")
		return s.enc.Encode(wire.OpenFailureMessage{
			ChannelID: m.SenderID,
			Reason:    wire.OpenUnknownChannelType,
			Message:   "unknown channel type",
			Language:  "en",
		})
	}

	ch := f(s, m.ChannelType)

	// Complete the responder-side open before publishing the channel, so
	// an acceptor never sees it with the remote budget still unset.
	if err := ch.OpenInbound(m.SenderID, m.WindowSize, m.MaxPacketSize, m.ExtraData); err != nil {
		s.chans.remove(ch.ID())
		s.log.Debug().Err(err).Str("type", m.ChannelType).Msg("refusing inbound open")
		return s.enc.Encode(wire.OpenFailureMessage{
			ChannelID: m.SenderID,
			Reason:    wire.OpenConnectFailed,
			Message:   "open failed",
			Language:  "en",
		})
	}

	t := time.NewTimer(s.cfg.AcceptTimeout)
	defer t.Stop()
	select {
	case s.inbox <- ch:
		return nil
	case <-t.C:
		// already confirmed, so refusal is a normal close handshake
		s.log.Debug().Str("type", m.ChannelType).Msg("inbound open not accepted in time")
		return ch.Close()
	}
}
