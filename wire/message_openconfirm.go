package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

type OpenConfirmMessage struct {
	ChannelID     uint32
	SenderID      uint32
	WindowSize    uint32
	MaxPacketSize uint32
	ExtraData     []byte
}

func (msg OpenConfirmMessage) String() string {
	return fmt.Sprintf("{OpenConfirmMessage ChannelID:%d SenderID:%d WindowSize:%d MaxPacketSize:%d}",
		msg.ChannelID, msg.SenderID, msg.WindowSize, msg.MaxPacketSize)
}

func (msg OpenConfirmMessage) Channel() (uint32, bool) {
	return msg.ChannelID, true
}

func (msg OpenConfirmMessage) Bytes() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(msgChannelOpenConfirm)
	binary.Write(buf, binary.BigEndian, msg.ChannelID)
	binary.Write(buf, binary.BigEndian, msg.SenderID)
	binary.Write(buf, binary.BigEndian, msg.WindowSize)
	binary.Write(buf, binary.BigEndian, msg.MaxPacketSize)
	putBytes(buf, msg.ExtraData)
	return buf.Bytes()
}

func (msg *OpenConfirmMessage) decode(r io.Reader) (err error) {
	if msg.ChannelID, err = readUint32(r); err != nil {
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
