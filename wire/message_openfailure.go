package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

type OpenFailureMessage struct {
	ChannelID uint32
	Reason    uint32
	Message   string
	Language  string
}

func (msg OpenFailureMessage) String() string {
	return fmt.Sprintf("{OpenFailureMessage ChannelID:%d Reason:%d Message:%q}",
		msg.ChannelID, msg.Reason, msg.Message)
}

func (msg OpenFailureMessage) Channel() (uint32, bool) {
	return msg.ChannelID, true
}

func (msg OpenFailureMessage) Bytes() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(msgChannelOpenFailure)
	binary.Write(buf, binary.BigEndian, msg.ChannelID)
	binary.Write(buf, binary.BigEndian, msg.Reason)
	putString(buf, msg.Message)
	putString(buf, msg.Language)
	return buf.Bytes()
}

func (msg *OpenFailureMessage) decode(r io.Reader) (err error) {
	if msg.ChannelID, err = readUint32(r); err != nil {
		return err
	}
	if msg.Reason, err = readUint32(r); err != nil {
		return err
	}
	if msg.Message, err = readString(r); err != nil {
		return err
	}
	msg.Language, err = readString(r)
	return err
}
