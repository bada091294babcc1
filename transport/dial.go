package transport

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/sshwire/chanmux/mux"
)

var (
	// SessionConfig applies to every session this package creates. It is
	// loaded from the environment at init so window sizes and timeouts
	// can be tuned per deployment without code changes.
	SessionConfig mux.Config

	// SessionLogger applies to every session this package creates.
	SessionLogger = zerolog.Nop()
)

func init() {
	cfg, err := mux.ConfigFromEnv()
	if err != nil {
		cfg = mux.DefaultConfig()
	}
	SessionConfig = cfg
}

func newSession(t io.ReadWriteCloser) *mux.Session {
	return mux.NewWith(t, SessionConfig, SessionLogger)
}

// A Dialer connects to an address and establishes a mux session.
type Dialer func(addr string) (*mux.Session, error)

// Dialers is a map of transport strings to Dialers
// and includes all builtin transports.
var Dialers map[string]Dialer

func init() {
	Dialers = map[string]Dialer{
		"tcp":  DialTCP,
		"unix": DialUnix,
		"ws":   DialWS,
		"quic": func(addr string) (*mux.Session, error) {
			return DialQUIC(context.Background(), addr, nil)
		},
		"stdio": func(_ string) (*mux.Session, error) {
			return DialStdio()
		},
	}
}

// Dial connects to a remote address using a registered transport.
// Available transports are "tcp", "unix", "ws", "quic", and "stdio". In
// the case of "stdio", the addr can be left an empty string.
func Dial(transport, addr string) (*mux.Session, error) {
	d, ok := Dialers[transport]
	if !ok {
		return nil, fmt.Errorf("transport '%s' not available in Dialers", transport)
	}
	return d(addr)
}
