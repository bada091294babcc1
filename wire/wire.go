// Package wire implements encoding and decoding of RFC4254-compatible
// channel-layer message frames.
package wire

import "io"

var (
	// Debug can be set to get message frames as they're encoded and decoded
	Debug io.Writer
)

// Channel-layer message numbers per RFC4254 section 9.
const (
	msgChannelOpen         = 90
	msgChannelOpenConfirm  = 91
	msgChannelOpenFailure  = 92
	msgChannelWindowAdjust = 93
	msgChannelData         = 94
	msgChannelExtendedData = 95
	msgChannelEOF          = 96
	msgChannelClose        = 97
	msgChannelRequest      = 98
	msgChannelSuccess      = 99
	msgChannelFailure      = 100
)

// ExtendedDataStderr is the extended data type code for error output,
// per RFC4254 section 5.2.
const ExtendedDataStderr uint32 = 1

// Channel open failure reason codes per RFC4254 section 5.1.
const (
	OpenProhibited uint32 = iota + 1
	OpenConnectFailed
	OpenUnknownChannelType
	OpenResourceShortage
)

type Message interface {
	Channel() (uint32, bool)
	String() string
	Bytes() []byte
}
