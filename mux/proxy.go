package mux

import (
	"context"
	"errors"
	"io"
)

// ProxySessions accepts channels on src and forwards each one to a
// fresh channel of the same type on dst, splicing the two together. It
// returns once src stops producing channels.
//
// src must have a factory registered for the forwarded types; the "*"
// wildcard makes the proxy type-agnostic.
func ProxySessions(ctx context.Context, src, dst *Session) error {
	for {
		ch, err := src.Accept()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		go func(ch Channel) {
			dch, err := dst.Open(ctx, ch.Type())
			if err != nil {
				ch.Close()
				return
			}
			spliceChannels(dch, ch)
		}(ch)
	}
}

// spliceChannels copies both directions, signalling EOF as each
// direction drains, then closes both channels.
func spliceChannels(a, b Channel) {
	done := make(chan struct{})
	go func() {
		io.Copy(a, b)
		a.CloseWrite()
		close(done)
	}()
	io.Copy(b, a)
	b.CloseWrite()
	<-done
	a.Close()
	b.Close()
}
