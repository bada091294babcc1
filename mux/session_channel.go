package mux

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/sshwire/chanmux/wire"
)

// Streaming selects how a session channel moves bytes once open. The
// mode is fixed for the channel's lifetime.
type Streaming uint8

const (
	// StreamingSync exposes blocking piped streams. A caller-supplied
	// input source is pumped to the remote side by a dedicated worker.
	StreamingSync Streaming = iota

	// StreamingAsync exposes future-returning read and write primitives
	// directly over the channel. No pump worker exists in this mode.
	StreamingAsync
)

type envEntry struct {
	key, value string
}

// SessionChannel is the client side of a "session" channel: the channel
// type commands and shells run over. It layers streaming, environment
// propagation and request handling on the generic channel.
type SessionChannel struct {
	*channel

	streaming   Streaming
	redirectErr bool
	in          io.Reader

	envMu sync.Mutex
	env   []envEntry

	execMu   sync.Mutex
	pumpExec executorHandle

	asyncIn  *AsyncWriter
	asyncOut *AsyncReader
	asyncErr *AsyncReader
}

// A SessionChannelOption configures a session channel before it opens.
type SessionChannelOption func(*SessionChannel)

// WithStreaming fixes the streaming mode.
func WithStreaming(mode Streaming) SessionChannelOption {
	return func(c *SessionChannel) { c.streaming = mode }
}

// WithInput supplies the blocking input source pumped to the remote
// side. Only meaningful in synchronous mode; without it no pump worker
// starts and the caller writes through Stdin directly.
func WithInput(r io.Reader) SessionChannelOption {
	return func(c *SessionChannel) { c.in = r }
}

// WithRedirectErrorStream merges the error stream into the output
// stream, so Stdout (or AsyncStdout) carries both.
func WithRedirectErrorStream(redirect bool) SessionChannelOption {
	return func(c *SessionChannel) { c.redirectErr = redirect }
}

// WithExecutor lends the channel an executor for its pump worker. A
// lent executor is never shut down by the channel; without one the
// channel creates and owns a single worker.
func WithExecutor(e Executor) SessionChannelOption {
	return func(c *SessionChannel) {
		c.pumpExec = executorHandle{exec: e, owned: false}
	}
}

// NewSessionChannel builds and registers a session channel. It does not
// open it; use Open, or hand the constructor to HandleChannelType for
// inbound opens.
func (s *Session) NewSessionChannel(opts ...SessionChannelOption) *SessionChannel {
	c := &SessionChannel{channel: s.newChan("session")}
	for _, opt := range opts {
		opt(c)
	}

	c.RegisterRequestHandler("xon-xoff", c.handleXonXoff)
	c.onClose = c.releaseResources

	switch {
	case c.streaming == StreamingAsync:
		c.asyncIn = newAsyncWriter(c.channel, false)
		c.asyncOut = newAsyncReader(c.replenish)
		if c.redirectErr {
			c.asyncErr = c.asyncOut
		} else {
			c.asyncErr = newAsyncReader(c.replenish)
		}
		c.onData = func(p []byte) error { c.asyncOut.deliver(p); return nil }
		c.onExtData = func(p []byte) error { c.asyncErr.deliver(p); return nil }
		c.onEOF = func() {
			c.asyncOut.eof()
			c.asyncErr.eof()
		}
		c.onFlush = c.asyncIn.drain

	case c.redirectErr:
		// sync mode with merged streams: error payloads land in the
		// ordinary read buffer
		c.onExtData = func(p []byte) error { c.pending.write(p); return nil }
	}

	s.register(c, c.channel)
	return c
}

// OpenSession opens a session channel and waits for the peer to confirm
// it.
func (s *Session) OpenSession(ctx context.Context, opts ...SessionChannelOption) (*SessionChannel, error) {
	ch := s.NewSessionChannel(opts...)
	if err := ch.Open(ctx); err != nil {
		return nil, err
	}
	return ch, nil
}

// Open establishes the channel, propagates the recorded environment and
// starts the input pump when one is configured.
func (c *SessionChannel) Open(ctx context.Context) error {
	if err := c.channel.Open(ctx); err != nil {
		return err
	}
	return c.postOpen()
}

// OpenInbound confirms a peer-initiated open and then behaves like Open.
func (c *SessionChannel) OpenInbound(remoteID, remoteWindow, remoteMaxPacket uint32, extraData []byte) error {
	if err := c.channel.OpenInbound(remoteID, remoteWindow, remoteMaxPacket, extraData); err != nil {
		return err
	}
	return c.postOpen()
}

func (c *SessionChannel) postOpen() error {
	if err := c.sendEnv(); err != nil {
		return err
	}
	if c.streaming == StreamingSync && c.in != nil {
		c.startPump()
	}
	return nil
}

// Stdin returns the blocking writer framing bytes to the remote side.
// Closing it sends EOF.
func (c *SessionChannel) Stdin() io.WriteCloser {
	return stdinWriter{c.channel}
}

// Stdout returns the blocking reader over inbound data. With the error
// stream redirected it carries both streams.
func (c *SessionChannel) Stdout() io.Reader {
	return c.channel
}

// Stderr returns the blocking reader over the inbound error stream.
// With the error stream redirected it is the same stream as Stdout.
func (c *SessionChannel) Stderr() io.Reader {
	if c.redirectErr {
		return c.channel
	}
	return stderrReader{c.channel}
}

// AsyncStdin returns the future-based writer, or nil outside async mode.
func (c *SessionChannel) AsyncStdin() *AsyncWriter {
	return c.asyncIn
}

// AsyncStdout returns the future-based reader over inbound data, or nil
// outside async mode.
func (c *SessionChannel) AsyncStdout() *AsyncReader {
	return c.asyncOut
}

// AsyncStderr returns the future-based reader over the error stream, or
// nil outside async mode. With the error stream redirected it is
// AsyncStdout.
func (c *SessionChannel) AsyncStderr() *AsyncReader {
	return c.asyncErr
}

// SetEnv records an environment variable for propagation when the
// channel opens. Later values replace earlier ones for the same key;
// first-set order is preserved on the wire. Variables set after open
// are not sent.
func (c *SessionChannel) SetEnv(key, value string) {
	c.envMu.Lock()
	defer c.envMu.Unlock()
	for i := range c.env {
		if c.env[i].key == key {
			c.env[i].value = value
			return
		}
	}
	c.env = append(c.env, envEntry{key, value})
}

// UnsetEnv removes a recorded variable so it is never sent.
func (c *SessionChannel) UnsetEnv(key string) {
	c.envMu.Lock()
	defer c.envMu.Unlock()
	for i := range c.env {
		if c.env[i].key == key {
			c.env = append(c.env[:i], c.env[i+1:]...)
			return
		}
	}
}

// sendEnv issues one env request per recorded variable, in order. The
// requests carry want-reply false: peers that drop them do so silently.
func (c *SessionChannel) sendEnv() error {
	c.envMu.Lock()
	entries := make([]envEntry, len(c.env))
	copy(entries, c.env)
	c.envMu.Unlock()

	if len(entries) == 0 {
		return nil
	}
	c.log.Debug().Int("count", len(entries)).Msg("propagating environment")
	for _, e := range entries {
		err := c.send(wire.RequestMessage{
			ChannelID: c.remoteId,
			Request:   "env",
			WantReply: false,
			Payload:   wire.EnvPayload(e.key, e.value),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// handleXonXoff acknowledges the peer's client flow control
// announcement. The flag is logged but does not change local behavior;
// window accounting already governs the data path.
func (c *SessionChannel) handleXonXoff(wantReply bool, payload []byte) (RequestResult, error) {
	clientCanDo, err := wire.DecodeXonXoffPayload(payload)
	if err != nil {
		return RequestFailure, err
	}
	c.log.Debug().Bool("client-can-do", clientCanDo).Msg("peer announced xon-xoff")
	return RequestSuccess, nil
}

// replenish grows the local window for bytes handed off to resolved
// read futures.
func (c *SessionChannel) replenish(n uint32) {
	if err := c.sendWindowAdjust(n); err != nil && !errors.Is(err, ErrChannelClosed) {
		c.log.Debug().Err(err).Msg("window adjust failed")
	}
}

// releaseResources reclaims the pump worker and fails outstanding
// futures. Runs once, from the generic teardown.
func (c *SessionChannel) releaseResources() error {
	c.execMu.Lock()
	h := c.pumpExec
	c.pumpExec = executorHandle{}
	c.execMu.Unlock()
	h.shutdown()

	if c.asyncIn != nil {
		c.asyncIn.abort()
	}
	if c.asyncOut != nil {
		c.asyncOut.eof()
	}
	if c.asyncErr != nil {
		c.asyncErr.eof()
	}
	return nil
}
