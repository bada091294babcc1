package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

type RequestMessage struct {
	ChannelID uint32
	Request   string
	WantReply bool
	Payload   []byte
}

func (msg RequestMessage) String() string {
	return fmt.Sprintf("{RequestMessage ChannelID:%d Request:%q WantReply:%v}",
		msg.ChannelID, msg.Request, msg.WantReply)
}

func (msg RequestMessage) Channel() (uint32, bool) {
	return msg.ChannelID, true
}

func (msg RequestMessage) Bytes() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(msgChannelRequest)
	binary.Write(buf, binary.BigEndian, msg.ChannelID)
	putString(buf, msg.Request)
	putBool(buf, msg.WantReply)
	putBytes(buf, msg.Payload)
	return buf.Bytes()
}

func (msg *RequestMessage) decode(r io.Reader) (err error) {
	if msg.ChannelID, err = readUint32(r); err != nil {
		return err
	}
	if msg.Request, err = readString(r); err != nil {
		return err
	}
	if msg.WantReply, err = readBool(r); err != nil {
		return err
	}
	msg.Payload, err = readBytes(r)
	return err
}

// EnvPayload encodes the type-specific payload of an "env" channel request:
// a key and its stringified value.
func EnvPayload(key, value string) []byte {
	buf := new(bytes.Buffer)
	putString(buf, key)
	putString(buf, value)
	return buf.Bytes()
}

// DecodeEnvPayload decodes the payload of an "env" channel request.
func DecodeEnvPayload(payload []byte) (key, value string, err error) {
	r := bytes.NewReader(payload)
	if key, err = readString(r); err != nil {
		return "", "", err
	}
	if value, err = readString(r); err != nil {
		return "", "", err
	}
	return key, value, nil
}

// XonXoffPayload encodes the payload of an "xon-xoff" flow control
// request per RFC4254 section 6.8.
func XonXoffPayload(clientCanDo bool) []byte {
	buf := new(bytes.Buffer)
	putBool(buf, clientCanDo)
	return buf.Bytes()
}

// DecodeXonXoffPayload decodes the payload of an "xon-xoff" request.
func DecodeXonXoffPayload(payload []byte) (bool, error) {
	return readBool(bytes.NewReader(payload))
}
