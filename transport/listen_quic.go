package transport

import (
	"context"
	"crypto/tls"
	"io"

	"github.com/quic-go/quic-go"

	"github.com/sshwire/chanmux/mux"
)

// QUICListener accepts QUIC connections and wraps each one's first
// bidirectional stream as a mux session.
type QUICListener struct {
	l        *quic.Listener
	accepted chan *mux.Session
	closer   chan bool
	errs     chan error
}

// Accept waits for and returns the next connected session to the listener.
func (l *QUICListener) Accept() (*mux.Session, error) {
	select {
	case <-l.closer:
		return nil, io.EOF
	case err := <-l.errs:
		return nil, err
	case sess := <-l.accepted:
		return sess, nil
	}
}

// Close closes the listener.
// Any blocked Accept operations will be unblocked and return errors.
func (l *QUICListener) Close() error {
	if l.closer != nil {
		l.closer <- true
	}
	return l.l.Close()
}

// ListenQUIC serves mux sessions over QUIC at the given UDP address.
// tlsConf must carry a certificate; the chanmux protocol is negotiated
// when the caller did not set NextProtos.
func ListenQUIC(addr string, tlsConf *tls.Config) (*QUICListener, error) {
	if len(tlsConf.NextProtos) == 0 {
		tlsConf = tlsConf.Clone()
		tlsConf.NextProtos = []string{quicProto}
	}
	l, err := quic.ListenAddr(addr, tlsConf, nil)
	if err != nil {
		return nil, err
	}
	ql := &QUICListener{
		l:        l,
		accepted: make(chan *mux.Session),
		closer:   make(chan bool, 1),
		errs:     make(chan error, 1),
	}
	go func() {
		for {
			conn, err := l.Accept(context.Background())
			if err != nil {
				ql.errs <- err
				return
			}
			go func(conn quic.Connection) {
				stream, err := conn.AcceptStream(context.Background())
				if err != nil {
					conn.CloseWithError(0, "no stream")
					return
				}
				ql.accepted <- newSession(&quicDuplex{Stream: stream, conn: conn})
			}(conn)
		}
	}()
	return ql, nil
}
