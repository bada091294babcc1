package mux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sshwire/chanmux/wire"
)

type channelDirection uint8

const (
	channelInbound channelDirection = iota
	channelOutbound
)

// channelState is monotonic: a channel never moves backwards.
type channelState uint8

const (
	stateCreated channelState = iota
	stateOpening
	stateOpen
	stateClosing
	stateClosed
)

func min(a uint32, b int) uint32 {
	if a < uint32(b) {
		return a
	}
	return uint32(b)
}

// Channel is one multiplexed stream over the session's transport. The
// session loop requires every channel type to satisfy this contract; a
// minimal implementation may no-op all data paths.
type Channel interface {
	io.ReadWriteCloser

	// ID returns the unique identifier of this channel within the session.
	ID() uint32

	// Type returns the channel type name sent in the open message.
	Type() string

	// Open performs the initiator side of channel establishment. It must
	// be called exactly once per channel instance.
	Open(ctx context.Context) error

	// OpenInbound performs the responder side: it records the peer's id,
	// window and packet size and confirms the open.
	OpenInbound(remoteID, remoteWindow, remoteMaxPacket uint32, extraData []byte) error

	// HandleOpenConfirm applies the peer's confirmation of a local open.
	HandleOpenConfirm(msg *wire.OpenConfirmMessage) error

	// HandleOpenFailure applies the peer's refusal of a local open.
	HandleOpenFailure(msg *wire.OpenFailureMessage) error

	// WriteData frames payload against the remote window.
	WriteData(p []byte) (int, error)

	// WriteExtendedData frames payload as the error stream.
	WriteExtendedData(p []byte) (int, error)

	// HandleWindowAdjust grows the remote window by the peer's grant.
	HandleWindowAdjust(msg *wire.WindowAdjustMessage) error

	// HandleMessage dispatches a channel-addressed message from the
	// session loop.
	HandleMessage(msg wire.Message) error

	// CloseWrite signals the end of sending data.
	// The other side may still send data.
	CloseWrite() error

	// Abort closes immediately, skipping the flush and EOF of Close.
	Abort() error

	// Done is closed once the channel is fully closed.
	Done() <-chan struct{}
}

// channel is the generic implementation behind every channel type.
// Concrete types embed it and layer behavior through the hooks below.
type channel struct {
	// R/O after creation
	chanType  string
	localId   uint32
	session   *Session
	direction channelDirection
	log       zerolog.Logger

	// remoteId and maxRemotePayload are set once, by the open
	// confirmation (outbound) or the open message (inbound).
	remoteId         uint32
	maxRemotePayload uint32

	// maxIncomingPayload is the largest data payload we accept.
	maxIncomingPayload uint32

	// Pending open confirmation or failure.
	msg chan wire.Message

	stateMu sync.Mutex
	state   channelState

	// thread-safe data
	remoteWin  *Window
	localWin   *Window
	pending    *buffer
	extPending *buffer

	// winMu serializes writers waiting for remote window budget.
	// Adjustments broadcast while holding it, so wakeups cannot be lost.
	winMu   sync.Mutex
	winCond *sync.Cond

	// writeMu serializes control writes to the session transport and
	// protects sentEOF and sentClose.
	writeMu   sync.Mutex
	sentEOF   bool
	sentClose bool

	closed       *closeFuture
	teardownOnce sync.Once

	reqMu    sync.Mutex
	requests map[string]RequestHandler

	// Hooks for concrete channel types. All are optional and must be
	// fixed before open.
	onData    func(p []byte) error // inbound payload after window accounting
	onExtData func(p []byte) error // inbound error-stream payload
	onEOF     func()               // peer sent EOF
	onFlush   func()               // graceful close: let in-flight writes finish
	onClose   func() error         // inner teardown, composed with the generic one
}

func (ch *channel) ID() uint32 {
	return ch.localId
}

func (ch *channel) Type() string {
	return ch.chanType
}

// Done is closed once the channel is fully closed, whatever path led
// there.
func (ch *channel) Done() <-chan struct{} {
	return ch.closed.Done()
}

func (ch *channel) getState() channelState {
	ch.stateMu.Lock()
	defer ch.stateMu.Unlock()
	return ch.state
}

// transition advances from exactly one state to a later one.
func (ch *channel) transition(from, to channelState) bool {
	ch.stateMu.Lock()
	defer ch.stateMu.Unlock()
	if ch.state != from {
		return false
	}
	ch.state = to
	return true
}

// advance moves to a later state unless the channel is already at or
// past it.
func (ch *channel) advance(to channelState) bool {
	ch.stateMu.Lock()
	defer ch.stateMu.Unlock()
	if ch.state >= to {
		return false
	}
	ch.state = to
	return true
}

func (ch *channel) isClosing() bool {
	return ch.getState() >= stateClosing
}

// Open sends the channel open message and blocks until the peer confirms
// or refuses it, or ctx expires.
func (ch *channel) Open(ctx context.Context) error {
	if !ch.transition(stateCreated, stateOpening) {
		return fmt.Errorf("chanmux: channel %d opened twice", ch.localId)
	}
	ch.direction = channelOutbound

	if err := ch.session.enc.Encode(wire.OpenMessage{
		ChannelType:   ch.chanType,
		SenderID:      ch.localId,
		WindowSize:    ch.localWin.Available(),
		MaxPacketSize: ch.maxIncomingPayload,
	}); err != nil {
		ch.session.chans.remove(ch.localId)
		ch.advance(stateClosing)
		ch.teardown()
		return err
	}

	select {
	case <-ctx.Done():
		ch.session.chans.remove(ch.localId)
		ch.advance(stateClosing)
		ch.teardown()
		return ctx.Err()
	case <-ch.closed.Done():
		// session died before the open got a response
		return net.ErrClosed
	case m := <-ch.msg:
		switch m := m.(type) {
		case *wire.OpenConfirmMessage:
			return nil
		case *wire.OpenFailureMessage:
			return fmt.Errorf("chanmux: channel open failed: %s (reason %d)", m.Message, m.Reason)
		default:
			return fmt.Errorf("chanmux: unexpected response to channel open: %v", m)
		}
	}
}

// OpenInbound confirms a peer-initiated open, recording the remote
// identity and send budget.
func (ch *channel) OpenInbound(remoteID, remoteWindow, remoteMaxPacket uint32, extraData []byte) error {
	if !ch.transition(stateCreated, stateOpening) {
		return fmt.Errorf("chanmux: channel %d opened twice", ch.localId)
	}
	ch.direction = channelInbound
	if remoteMaxPacket < minPacketLength || remoteMaxPacket > maxPacketLength {
		return fmt.Errorf("%w: invalid max packet size %d from peer", ErrProtocol, remoteMaxPacket)
	}

	ch.remoteId = remoteID
	ch.maxRemotePayload = remoteMaxPacket
	ch.grantWindow(remoteWindow)

	if err := ch.session.enc.Encode(wire.OpenConfirmMessage{
		ChannelID:     remoteID,
		SenderID:      ch.localId,
		WindowSize:    ch.localWin.Available(),
		MaxPacketSize: ch.maxIncomingPayload,
	}); err != nil {
		return err
	}
	ch.transition(stateOpening, stateOpen)
	return nil
}

// responseMessageReceived is called when a success or failure message is
// received on a channel to check that such a message is reasonable for
// the given channel.
func (ch *channel) responseMessageReceived() error {
	if ch.direction == channelInbound {
		return errors.New("chanmux: channel response message received on inbound channel")
	}
	return nil
}

func (ch *channel) HandleOpenConfirm(m *wire.OpenConfirmMessage) error {
	if err := ch.responseMessageReceived(); err != nil {
		return err
	}
	if m.MaxPacketSize < minPacketLength || m.MaxPacketSize > maxPacketLength {
		return fmt.Errorf("%w: invalid max packet size %d from peer", ErrProtocol, m.MaxPacketSize)
	}
	ch.remoteId = m.SenderID
	ch.maxRemotePayload = m.MaxPacketSize
	ch.grantWindow(m.WindowSize)
	ch.transition(stateOpening, stateOpen)
	ch.deliverOpenResult(m)
	return nil
}

func (ch *channel) HandleOpenFailure(m *wire.OpenFailureMessage) error {
	if err := ch.responseMessageReceived(); err != nil {
		return err
	}
	ch.session.chans.remove(ch.localId)
	ch.advance(stateClosing)
	ch.deliverOpenResult(m)
	ch.teardown()
	return nil
}

func (ch *channel) deliverOpenResult(m wire.Message) {
	select {
	case ch.msg <- m:
	case <-ch.closed.Done():
	}
}

// grantWindow applies a send budget granted by an open message or
// confirmation.
func (ch *channel) grantWindow(n uint32) {
	ch.winMu.Lock()
	ch.remoteWin.Adjust(n)
	ch.winCond.Broadcast()
	ch.winMu.Unlock()
}

// WriteData writes len(p) bytes to the channel as data messages.
func (ch *channel) WriteData(p []byte) (int, error) {
	return ch.writeFrames(p, false)
}

// WriteExtendedData writes len(p) bytes to the channel as error-stream
// messages.
func (ch *channel) WriteExtendedData(p []byte) (int, error) {
	return ch.writeFrames(p, true)
}

// Write implements io.Writer over the data stream.
func (ch *channel) Write(p []byte) (int, error) {
	return ch.WriteData(p)
}

// writeFrames chunks data against the peer's maximum payload size,
// consuming remote window per chunk and blocking while the budget is
// empty.
func (ch *channel) writeFrames(data []byte, ext bool) (n int, err error) {
	for len(data) > 0 {
		space := min(ch.maxRemotePayload, len(data))
		if space, err = ch.reserveWindow(space); err != nil {
			return n, err
		}

		toSend := data[:space]

		var msg wire.Message
		if ext {
			msg = wire.ExtendedDataMessage{
				ChannelID: ch.remoteId,
				DataType:  wire.ExtendedDataStderr,
				Length:    uint32(len(toSend)),
				Data:      toSend,
			}
		} else {
			msg = wire.DataMessage{
				ChannelID: ch.remoteId,
				Length:    uint32(len(toSend)),
				Data:      toSend,
			}
		}
		if err = ch.writeDataMsg(msg); err != nil {
			return n, err
		}

		n += len(toSend)
		data = data[len(toSend):]
	}

	return n, nil
}

// reserveWindow blocks until up to want bytes of remote window are
// available and consumes them. It fails once the channel is fully
// closed.
func (ch *channel) reserveWindow(want uint32) (uint32, error) {
	ch.winMu.Lock()
	defer ch.winMu.Unlock()
	for {
		if ch.closed.isSet() {
			return 0, ErrChannelClosed
		}
		if avail := ch.remoteWin.Available(); avail > 0 {
			n := want
			if avail < n {
				n = avail
			}
			if err := ch.remoteWin.Consume(n); err == nil {
				return n, nil
			}
			// lost a race with another writer, try again
			continue
		}
		ch.winCond.Wait()
	}
}

// writeDataMsg sends a data or extended data message. Unlike control
// messages, data is still accepted while the channel is closing so the
// asynchronous flush can finish, but never after EOF has been sent.
func (ch *channel) writeDataMsg(msg wire.Message) error {
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	if ch.sentEOF || ch.sentClose {
		return ErrChannelClosed
	}
	return ch.session.enc.Encode(msg)
}

// send writes a control message. If the message is a channel close, it
// updates sentClose. This method takes the lock ch.writeMu.
func (ch *channel) send(msg wire.Message) error {
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()

	if ch.sentClose {
		return ErrChannelClosed
	}

	if _, ok := msg.(wire.CloseMessage); ok {
		ch.sentClose = true
	}

	return ch.session.enc.Encode(msg)
}

// CloseWrite signals the end of sending data. It is a no-op if EOF was
// already sent.
func (ch *channel) CloseWrite() error {
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	if ch.sentEOF || ch.sentClose {
		return nil
	}
	ch.sentEOF = true
	return ch.session.enc.Encode(wire.EOFMessage{ChannelID: ch.remoteId})
}

// Close performs a graceful close: in-flight writes are flushed, EOF is
// sent, then local resources are released. It is idempotent; concurrent
// callers converge on the same terminal state, observable via Done.
func (ch *channel) Close() error {
	return ch.closeChannel(false)
}

// Abort skips the flush and EOF and tears down immediately.
func (ch *channel) Abort() error {
	return ch.closeChannel(true)
}

func (ch *channel) closeChannel(immediate bool) error {
	if !ch.advance(stateClosing) {
		// second close is a no-op
		return nil
	}

	if !immediate {
		if ch.onFlush != nil {
			ch.onFlush()
		}
		if err := ch.CloseWrite(); err != nil {
			ch.log.Debug().Err(err).Msg("sending eof during close")
		}
	}

	if err := ch.send(wire.CloseMessage{ChannelID: ch.remoteId}); err != nil && !errors.Is(err, ErrChannelClosed) {
		ch.log.Debug().Err(err).Msg("sending close message")
	}

	ch.teardown()
	return nil
}

// teardown releases local resources exactly once. It never fails from
// the caller's perspective: shutdown errors are logged and swallowed,
// and a misbehaving close hook cannot keep the channel out of its
// terminal state.
func (ch *channel) teardown() {
	ch.teardownOnce.Do(func() {
		if ch.onClose != nil {
			ch.runCloseHook()
		}
		ch.destroy()
		ch.stateMu.Lock()
		ch.state = stateClosed
		ch.stateMu.Unlock()
		ch.closed.set()
	})
}

// runCloseHook isolates hook failures from the rest of teardown.
func (ch *channel) runCloseHook() {
	defer func() {
		if r := recover(); r != nil {
			ch.log.Warn().Interface("panic", r).Msg("panic releasing channel resources")
		}
	}()
	if err := ch.onClose(); err != nil {
		ch.log.Warn().Err(err).Msg("failed to release channel resources")
	}
}

func (ch *channel) destroy() {
	ch.pending.eof()
	ch.extPending.eof()
	ch.writeMu.Lock()
	// This is not necessary for a normal channel teardown, but if
	// there was another error, it is.
	ch.sentClose = true
	ch.writeMu.Unlock()
	// Unblock writers.
	ch.winMu.Lock()
	ch.winCond.Broadcast()
	ch.winMu.Unlock()
}

// HandleWindowAdjust grows the remote window and wakes blocked writers.
func (ch *channel) HandleWindowAdjust(m *wire.WindowAdjustMessage) error {
	ch.winMu.Lock()
	ok := ch.remoteWin.Adjust(m.AdditionalBytes)
	if ok {
		ch.winCond.Broadcast()
	}
	ch.winMu.Unlock()
	if !ok {
		return fmt.Errorf("%w: invalid window update for %d bytes", ErrProtocol, m.AdditionalBytes)
	}
	return nil
}

// sendWindowAdjust replenishes the local window after the consumer has
// freed n buffered bytes.
func (ch *channel) sendWindowAdjust(n uint32) error {
	ch.localWin.Adjust(n)
	return ch.send(wire.WindowAdjustMessage{
		ChannelID:       ch.remoteId,
		AdditionalBytes: n,
	})
}

// Read reads up to len(p) bytes of inbound data, replenishing the local
// window for whatever it consumed.
func (ch *channel) Read(p []byte) (n int, err error) {
	return ch.readBuffered(ch.pending, p)
}

// readExtended is Read for the error stream.
func (ch *channel) readExtended(p []byte) (n int, err error) {
	return ch.readBuffered(ch.extPending, p)
}

func (ch *channel) readBuffered(b *buffer, p []byte) (n int, err error) {
	n, err = b.Read(p)

	if n > 0 {
		werr := ch.sendWindowAdjust(uint32(n))
		// The adjust can fail if the channel is already down; defer
		// forwarding that to the caller until the buffer is drained.
		if err == nil && werr != nil && !errors.Is(werr, ErrChannelClosed) {
			err = werr
		}
	}
	return n, err
}

func (ch *channel) handleData(m *wire.DataMessage) error {
	return ch.acceptData(m.Data, m.Length, false)
}

func (ch *channel) handleExtendedData(m *wire.ExtendedDataMessage) error {
	if m.DataType != wire.ExtendedDataStderr {
		return fmt.Errorf("%w: unsupported extended data type %d", ErrProtocol, m.DataType)
	}
	return ch.acceptData(m.Data, m.Length, true)
}

// acceptData performs local window accounting and hands the payload to
// the registered sink.
func (ch *channel) acceptData(data []byte, length uint32, ext bool) error {
	if length > ch.maxIncomingPayload {
		return fmt.Errorf("%w: incoming packet exceeds maximum payload size", ErrProtocol)
	}
	if length != uint32(len(data)) {
		return fmt.Errorf("%w: wrong packet length", ErrProtocol)
	}
	if err := ch.localWin.Consume(length); err != nil {
		return fmt.Errorf("%w: remote side wrote %d bytes past the local window", ErrProtocol, length)
	}

	if ext {
		if ch.onExtData != nil {
			return ch.onExtData(data)
		}
		ch.extPending.write(data)
		return nil
	}
	if ch.onData != nil {
		return ch.onData(data)
	}
	ch.pending.write(data)
	return nil
}

func (ch *channel) handleEOF() {
	if ch.onEOF != nil {
		ch.onEOF()
		return
	}
	ch.pending.eof()
	ch.extPending.eof()
}

func (ch *channel) handleClose() {
	// reply so the peer can release its side, then release ours
	if err := ch.send(wire.CloseMessage{ChannelID: ch.remoteId}); err != nil && !errors.Is(err, ErrChannelClosed) {
		ch.log.Debug().Err(err).Msg("replying to close message")
	}
	ch.session.chans.remove(ch.localId)
	ch.advance(stateClosing)
	ch.teardown()
}

// HandleMessage dispatches one channel-addressed message.
func (ch *channel) HandleMessage(msg wire.Message) error {
	switch m := msg.(type) {
	case *wire.DataMessage:
		return ch.handleData(m)

	case *wire.ExtendedDataMessage:
		return ch.handleExtendedData(m)

	case *wire.EOFMessage:
		ch.handleEOF()
		return nil

	case *wire.CloseMessage:
		ch.handleClose()
		return nil

	case *wire.WindowAdjustMessage:
		return ch.HandleWindowAdjust(m)

	case *wire.OpenConfirmMessage:
		return ch.HandleOpenConfirm(m)

	case *wire.OpenFailureMessage:
		return ch.HandleOpenFailure(m)

	case *wire.RequestMessage:
		return ch.handleRequest(m)

	case *wire.SuccessMessage, *wire.FailureMessage:
		// We only issue requests with want-reply false, so replies are
		// unexpected but harmless.
		ch.log.Debug().Str("reply", msg.String()).Msg("ignoring unexpected request reply")
		return nil

	default:
		return fmt.Errorf("chanmux: invalid channel message %v", msg)
	}
}
