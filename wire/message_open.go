package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

type OpenMessage struct {
	ChannelType   string
	SenderID      uint32
	WindowSize    uint32
	MaxPacketSize uint32
	ExtraData     []byte
}

func (msg OpenMessage) String() string {
	return fmt.Sprintf("{OpenMessage ChannelType:%q SenderID:%d WindowSize:%d MaxPacketSize:%d}",
		msg.ChannelType, msg.SenderID, msg.WindowSize, msg.MaxPacketSize)
}

func (msg OpenMessage) Channel() (uint32, bool) {
	return 0, false
}

func (msg OpenMessage) Bytes() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(msgChannelOpen)
	putString(buf, msg.ChannelType)
	binary.Write(buf, binary.BigEndian, msg.SenderID)
	binary.Write(buf, binary.BigEndian, msg.WindowSize)
	binary.Write(buf, binary.BigEndian, msg.MaxPacketSize)
	putBytes(buf, msg.ExtraData)
	return buf.Bytes()
}

func (msg *OpenMessage) decode(r io.Reader) (err error) {
	if msg.ChannelType, err = readString(r); err != nil {
		return err
	}
	if msg.SenderID, err = readUint32(r); err != nil {
		return err
	}
	if msg.WindowSize, err = readUint32(r); err != nil {
		return err
	}
	if msg.MaxPacketSize, err = readUint32(r); err != nil {
		return err
	}
	msg.ExtraData, err = readBytes(r)
	return err
}
