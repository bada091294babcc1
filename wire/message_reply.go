package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

type SuccessMessage struct {
	ChannelID uint32
}

func (msg SuccessMessage) String() string {
	return fmt.Sprintf("{SuccessMessage ChannelID:%d}", msg.ChannelID)
}

func (msg SuccessMessage) Channel() (uint32, bool) {
	return msg.ChannelID, true
}

func (msg SuccessMessage) Bytes() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(msgChannelSuccess)
	binary.Write(buf, binary.BigEndian, msg)
	return buf.Bytes()
}

func (msg *SuccessMessage) decode(r io.Reader) error {
	return binary.Read(r, binary.BigEndian, msg)
}

type FailureMessage struct {
	ChannelID uint32
}

func (msg FailureMessage) String() string {
	return fmt.Sprintf("{FailureMessage ChannelID:%d}", msg.ChannelID)
}

func (msg FailureMessage) Channel() (uint32, bool) {
	return msg.ChannelID, true
}

func (msg FailureMessage) Bytes() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(msgChannelFailure)
	binary.Write(buf, binary.BigEndian, msg)
	return buf.Bytes()
}

func (msg *FailureMessage) decode(r io.Reader) error {
	return binary.Read(r, binary.BigEndian, msg)
}
