package transport

import (
	"net"

	"github.com/sshwire/chanmux/mux"
)

func dialNet(proto, addr string) (*mux.Session, error) {
	conn, err := net.Dial(proto, addr)
	if err != nil {
		return nil, err
	}
	return newSession(conn), nil
}

// DialTCP establishes a mux session over a TCP connection.
func DialTCP(addr string) (*mux.Session, error) {
	return dialNet("tcp", addr)
}

// DialUnix establishes a mux session over a Unix domain socket.
func DialUnix(addr string) (*mux.Session, error) {
	return dialNet("unix", addr)
}
