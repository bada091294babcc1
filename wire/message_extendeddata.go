package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

type ExtendedDataMessage struct {
	ChannelID uint32
	DataType  uint32
	Length    uint32
	Data      []byte
}

func (msg ExtendedDataMessage) String() string {
	return fmt.Sprintf("{ExtendedDataMessage ChannelID:%d DataType:%d Length:%d Data: ... }",
		msg.ChannelID, msg.DataType, msg.Length)
}

func (msg ExtendedDataMessage) Channel() (uint32, bool) {
	return msg.ChannelID, true
}

func (msg ExtendedDataMessage) Bytes() []byte {
	packet := make([]byte, 13)
	packet[0] = msgChannelExtendedData
	binary.BigEndian.PutUint32(packet[1:5], msg.ChannelID)
	binary.BigEndian.PutUint32(packet[5:9], msg.DataType)
	binary.BigEndian.PutUint32(packet[9:13], msg.Length)
	return append(packet, msg.Data...)
}

func (msg *ExtendedDataMessage) decode(r io.Reader) (err error) {
	if msg.ChannelID, err = readUint32(r); err != nil {
		return err
	}
	if msg.DataType, err = readUint32(r); err != nil {
		return err
	}
	if msg.Length, err = readUint32(r); err != nil {
		return err
	}
	if msg.Length > maxFieldLength {
		return fmt.Errorf("chanmux: extended data message of %d bytes exceeds maximum", msg.Length)
	}
	msg.Data = make([]byte, msg.Length)
	_, err = io.ReadFull(r, msg.Data)
	return err
}
