package wire

import (
	"bytes"
	"reflect"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		in Message
		id uint32
		ok bool
	}{
		{
			in: OpenMessage{
				ChannelType:   "session",
				SenderID:      10,
				WindowSize:    1024,
				MaxPacketSize: 1 << 15,
				ExtraData:     []byte{},
			},
			id: 0,
			ok: false,
		},
		{
			in: OpenConfirmMessage{
				ChannelID:     20,
				SenderID:      10,
				WindowSize:    1024,
				MaxPacketSize: 1 << 15,
				ExtraData:     []byte{},
			},
			id: 20,
			ok: true,
		},
		{
			in: OpenFailureMessage{
				ChannelID: 20,
				Reason:    OpenUnknownChannelType,
				Message:   "unknown channel type",
				Language:  "en",
			},
			id: 20,
			ok: true,
		},
		{
			in: WindowAdjustMessage{
				ChannelID:       20,
				AdditionalBytes: 1024,
			},
			id: 20,
			ok: true,
		},
		{
			in: DataMessage{
				ChannelID: 10,
				Length:    5,
				Data:      []byte("Hello"),
			},
			id: 10,
			ok: true,
		},
		{
			in: ExtendedDataMessage{
				ChannelID: 10,
				DataType:  ExtendedDataStderr,
				Length:    4,
				Data:      []byte("oops"),
			},
			id: 10,
			ok: true,
		},
		{
			in: EOFMessage{
				ChannelID: 10,
			},
			id: 10,
			ok: true,
		},
		{
			in: CloseMessage{
				ChannelID: 10,
			},
			id: 10,
			ok: true,
		},
		{
			in: RequestMessage{
				ChannelID: 30,
				Request:   "env",
				WantReply: false,
				Payload:   EnvPayload("LANG", "en_US"),
			},
			id: 30,
			ok: true,
		},
		{
			in: SuccessMessage{
				ChannelID: 30,
			},
			id: 30,
			ok: true,
		},
		{
			in: FailureMessage{
				ChannelID: 30,
			},
			id: 30,
			ok: true,
		},
	}
	for _, test := range tests {
		var buf bytes.Buffer
		enc := NewEncoder(&buf)
		if err := enc.Encode(test.in); err != nil {
			t.Fatal(err)
		}
		dec := NewDecoder(&buf)
		m, err := dec.Decode()
		if err != nil {
			t.Fatal(err)
		}
		id, ok := m.Channel()
		if id != test.id {
			t.Fatal("id not equal")
		}
		if ok != test.ok {
			t.Fatal("ok not equal")
		}
		if m.String() == "" {
			t.Fatal("empty string representation")
		}
		got := reflect.ValueOf(m).Elem().Interface()
		if !reflect.DeepEqual(got, test.in) {
			t.Fatalf("decoded %#v, want %#v", got, test.in)
		}
	}
}

func TestRequestPayloads(t *testing.T) {
	key, value, err := DecodeEnvPayload(EnvPayload("LANG", "en_US"))
	if err != nil {
		t.Fatal(err)
	}
	if key != "LANG" || value != "en_US" {
		t.Fatalf("unexpected env payload round trip: %q=%q", key, value)
	}

	for _, canDo := range []bool{true, false} {
		got, err := DecodeXonXoffPayload(XonXoffPayload(canDo))
		if err != nil {
			t.Fatal(err)
		}
		if got != canDo {
			t.Fatalf("unexpected xon-xoff round trip: %v", got)
		}
	}
}

func TestDecodeUnknownMessage(t *testing.T) {
	dec := NewDecoder(bytes.NewReader([]byte{42}))
	if _, err := dec.Decode(); err == nil {
		t.Fatal("expected error for unknown message number")
	}
}
