package transport

import (
	"io"
	"os"

	"github.com/sshwire/chanmux/mux"
)

// ioduplex glues a separate writer and reader into the single duplex
// stream a session runs over.
type ioduplex struct {
	io.WriteCloser
	io.ReadCloser
}

func (d *ioduplex) Close() error {
	werr := d.WriteCloser.Close()
	rerr := d.ReadCloser.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// DialIO establishes a mux session using a WriteCloser and ReadCloser.
func DialIO(out io.WriteCloser, in io.ReadCloser) (*mux.Session, error) {
	return newSession(&ioduplex{out, in}), nil
}

// DialStdio establishes a mux session using Stdout and Stdin.
func DialStdio() (*mux.Session, error) {
	return DialIO(os.Stdout, os.Stdin)
}
