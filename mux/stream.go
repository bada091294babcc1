package mux

import "io"

// stdinWriter frames caller bytes straight through the channel write
// path. Closing it sends EOF without closing the channel.
type stdinWriter struct {
	ch *channel
}

func (w stdinWriter) Write(p []byte) (int, error) {
	return w.ch.WriteData(p)
}

func (w stdinWriter) Close() error {
	return w.ch.CloseWrite()
}

// stderrReader reads the inbound error stream, replenishing the local
// window the same way the data-stream reader does.
type stderrReader struct {
	ch *channel
}

func (r stderrReader) Read(p []byte) (int, error) {
	return r.ch.readExtended(p)
}

var _ io.WriteCloser = stdinWriter{}
var _ io.Reader = stderrReader{}
