package mux

import "errors"

var (
	// ErrChannelClosed is returned by operations attempted after a channel
	// has entered teardown.
	ErrChannelClosed = errors.New("chanmux: channel closed")

	// ErrProtocol indicates the peer violated the window or framing
	// contract. It is always wrapped with detail.
	ErrProtocol = errors.New("chanmux: protocol violation")

	// ErrInsufficientWindow is an internal bookkeeping signal from Window.
	// Data-path callers block or suspend instead of surfacing it.
	ErrInsufficientWindow = errors.New("chanmux: insufficient window")
)
