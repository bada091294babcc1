package wire

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
)

// decodable is implemented by messages with variable-length fields that
// cannot be read with a single binary.Read.
type decodable interface {
	decode(r io.Reader) error
}

// Decoder decodes messages given an io.Reader
type Decoder struct {
	r io.Reader
	sync.Mutex
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

func (dec *Decoder) Decode() (Message, error) {
	dec.Lock()
	defer dec.Unlock()

	var msgNum [1]byte
	_, err := io.ReadFull(dec.r, msgNum[:])
	if err != nil {
		var syscallErr *os.SyscallError
		if errors.As(err, &syscallErr) && syscallErr.Err == syscall.ECONNRESET {
			return nil, io.EOF
		}
		return nil, err
	}

	msg, err := messageFrom(msgNum)
	if err != nil {
		return nil, err
	}

	if err := msg.(decodable).decode(dec.r); err != nil {
		return nil, err
	}

	if Debug != nil {
		fmt.Fprintln(Debug, ">>DEC", msg)
	}

	return msg, nil
}

func messageFrom(num [1]byte) (Message, error) {
	switch num[0] {
	case msgChannelOpen:
		return new(OpenMessage), nil
	case msgChannelOpenConfirm:
		return new(OpenConfirmMessage), nil
	case msgChannelOpenFailure:
		return new(OpenFailureMessage), nil
	case msgChannelWindowAdjust:
		return new(WindowAdjustMessage), nil
	case msgChannelData:
		return new(DataMessage), nil
	case msgChannelExtendedData:
		return new(ExtendedDataMessage), nil
	case msgChannelEOF:
		return new(EOFMessage), nil
	case msgChannelClose:
		return new(CloseMessage), nil
	case msgChannelRequest:
		return new(RequestMessage), nil
	case msgChannelSuccess:
		return new(SuccessMessage), nil
	case msgChannelFailure:
		return new(FailureMessage), nil
	default:
		return nil, fmt.Errorf("chanmux: unexpected message type %d", num[0])
	}
}
