package main

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/sshwire/chanmux/mux"
	"github.com/sshwire/chanmux/transport"
)

var logger zerolog.Logger

func main() {
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
	if os.Getenv("CHANMUX_DEBUG") == "" {
		logger = logger.Level(zerolog.InfoLevel)
	}
	transport.SessionLogger = logger

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch cmd := os.Args[1]; cmd {
	case "exec":
		err = runExec(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "proxy":
		err = runProxy(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("command failed")
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: chanmux <command> [args]

Commands:
  exec   open a session channel on a remote endpoint and wire it to stdio
  serve  run an echo endpoint that accepts session channels
  proxy  forward channels between a listener and an upstream endpoint

Endpoints are given as scheme://address with schemes tcp, unix, ws and
quic, or "-" for stdio.`)
}

// dial connects to a scheme://address endpoint, with "-" as shorthand
// for stdio.
func dial(addr string) (*mux.Session, error) {
	if addr == "-" {
		return transport.Dial("stdio", "")
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "unix" {
		return transport.Dial("unix", u.Path)
	}
	return transport.Dial(u.Scheme, u.Host)
}

// listen serves a scheme://address endpoint.
func listen(addr string) (transport.Listener, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "tcp":
		return transport.ListenTCP(u.Host)
	case "unix":
		return transport.ListenUnix(u.Path)
	case "ws":
		return transport.ListenWS(u.Host)
	case "quic":
		return transport.ListenQUIC(u.Host, generateTLSConfig())
	default:
		return nil, fmt.Errorf("cannot listen on scheme %q", u.Scheme)
	}
}
