package mux

import (
	"errors"

	"github.com/sshwire/chanmux/wire"
)

// RequestResult tells the dispatcher how to reply to a channel request.
type RequestResult uint8

const (
	// RequestUnsupported means no handler recognized the request.
	RequestUnsupported RequestResult = iota
	// RequestSuccess acknowledges the request.
	RequestSuccess
	// RequestFailure refuses the request.
	RequestFailure
)

// RequestHandler handles one inbound channel request. The payload is the
// request's type-specific body.
type RequestHandler func(wantReply bool, payload []byte) (RequestResult, error)

// RegisterRequestHandler installs h for requests named name, replacing
// any previous handler for that name. Unmatched requests fall through to
// a generic not-implemented reply.
func (ch *channel) RegisterRequestHandler(name string, h RequestHandler) {
	ch.reqMu.Lock()
	defer ch.reqMu.Unlock()
	ch.requests[name] = h
}

func (ch *channel) handleRequest(m *wire.RequestMessage) error {
	ch.reqMu.Lock()
	h := ch.requests[m.Request]
	ch.reqMu.Unlock()

	res := RequestUnsupported
	if h != nil {
		var err error
		res, err = h(m.WantReply, m.Payload)
		if err != nil {
			ch.log.Debug().Err(err).Str("request", m.Request).Msg("request handler failed")
			res = RequestFailure
		}
	} else {
		ch.log.Debug().Str("request", m.Request).Msg("unhandled channel request")
	}

	if !m.WantReply {
		return nil
	}
	var reply wire.Message
	if res == RequestSuccess {
		reply = wire.SuccessMessage{ChannelID: ch.remoteId}
	} else {
		reply = wire.FailureMessage{ChannelID: ch.remoteId}
	}
	if err := ch.send(reply); err != nil {
		// the request crossed our close on the wire; the peer did
		// nothing wrong and the rest of the session must not suffer
		if errors.Is(err, ErrChannelClosed) {
			ch.log.Debug().Str("request", m.Request).Msg("dropping request reply after close")
			return nil
		}
		return err
	}
	return nil
}
