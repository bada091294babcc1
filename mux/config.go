package mux

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Packet size bounds a peer may advertise. Values outside this range are
// treated as a protocol violation.
const (
	minPacketLength = 9
	maxPacketLength = 1 << 31
)

// Config carries the session's channel accounting knobs. Fields can be
// populated from the environment with ConfigFromEnv.
type Config struct {
	// WindowSize is the local receive window advertised on channel open.
	WindowSize uint32 `envconfig:"WINDOW_SIZE" default:"2097152"`

	// MaxPacketSize is the largest payload accepted per data message.
	MaxPacketSize uint32 `envconfig:"MAX_PACKET_SIZE" default:"32768"`

	// PumpChunkSize bounds a single read from a pumped input source.
	PumpChunkSize int `envconfig:"PUMP_CHUNK_SIZE" default:"8192"`

	// AcceptTimeout bounds how long an inbound channel open waits to be
	// accepted before it is refused.
	AcceptTimeout time.Duration `envconfig:"ACCEPT_TIMEOUT" default:"30s"`

	// IdleTimeout tears down the transport when no activity is observed
	// for this long. Zero disables the idle timer.
	IdleTimeout time.Duration `envconfig:"IDLE_TIMEOUT" default:"0"`
}

// DefaultConfig returns the config used when none is supplied.
func DefaultConfig() Config {
	return Config{
		WindowSize:    2 * 1024 * 1024,
		MaxPacketSize: 32 * 1024,
		PumpChunkSize: 8 * 1024,
		AcceptTimeout: 30 * time.Second,
	}
}

// ConfigFromEnv populates a Config from CHANMUX_* environment variables,
// falling back to the defaults above.
func ConfigFromEnv() (Config, error) {
	var c Config
	err := envconfig.Process("chanmux", &c)
	return c, err
}

// sanitize clamps out-of-range knobs to usable values.
func (c Config) sanitize() Config {
	if c.WindowSize == 0 {
		c.WindowSize = DefaultConfig().WindowSize
	}
	if c.MaxPacketSize < minPacketLength || c.MaxPacketSize > maxPacketLength {
		c.MaxPacketSize = DefaultConfig().MaxPacketSize
	}
	if c.PumpChunkSize <= 0 {
		c.PumpChunkSize = DefaultConfig().PumpChunkSize
	}
	if c.AcceptTimeout <= 0 {
		c.AcceptTimeout = DefaultConfig().AcceptTimeout
	}
	return c
}
