package transport

import (
	"context"
	"crypto/tls"

	"github.com/quic-go/quic-go"

	"github.com/sshwire/chanmux/mux"
)

const quicProto = "chanmux"

// quicDuplex runs the session over one bidirectional QUIC stream and
// ties the connection's lifetime to it.
type quicDuplex struct {
	quic.Stream
	conn quic.Connection
}

func (d *quicDuplex) Close() error {
	err := d.Stream.Close()
	d.conn.CloseWithError(0, "session closed")
	return err
}

// DialQUIC establishes a mux session over a QUIC connection, using a
// single bidirectional stream as the transport. A nil tlsConf gets a
// default config with the chanmux protocol negotiated; it will not
// verify the server certificate.
func DialQUIC(ctx context.Context, addr string, tlsConf *tls.Config) (*mux.Session, error) {
	if tlsConf == nil {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	if len(tlsConf.NextProtos) == 0 {
		tlsConf.NextProtos = []string{quicProto}
	}
	conn, err := quic.DialAddr(ctx, addr, tlsConf, nil)
	if err != nil {
		return nil, err
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(0, "no stream")
		return nil, err
	}
	return newSession(&quicDuplex{Stream: stream, conn: conn}), nil
}
