package mux

import (
	"testing"
	"time"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("CHANMUX_WINDOW_SIZE", "4096")
	t.Setenv("CHANMUX_MAX_PACKET_SIZE", "1024")
	t.Setenv("CHANMUX_IDLE_TIMEOUT", "90s")

	cfg, err := ConfigFromEnv()
	fatal(err, t)
	if cfg.WindowSize != 4096 {
		t.Fatalf("expected window size 4096, got %d", cfg.WindowSize)
	}
	if cfg.MaxPacketSize != 1024 {
		t.Fatalf("expected max packet size 1024, got %d", cfg.MaxPacketSize)
	}
	if cfg.IdleTimeout != 90*time.Second {
		t.Fatalf("expected idle timeout 90s, got %s", cfg.IdleTimeout)
	}
	// unset knobs fall back to defaults
	if cfg.AcceptTimeout != 30*time.Second {
		t.Fatalf("expected default accept timeout, got %s", cfg.AcceptTimeout)
	}
	if cfg.PumpChunkSize != 8*1024 {
		t.Fatalf("expected default pump chunk size, got %d", cfg.PumpChunkSize)
	}
}

func TestConfigSanitize(t *testing.T) {
	var zero Config
	cfg := zero.sanitize()
	def := DefaultConfig()
	if cfg.WindowSize != def.WindowSize ||
		cfg.MaxPacketSize != def.MaxPacketSize ||
		cfg.PumpChunkSize != def.PumpChunkSize ||
		cfg.AcceptTimeout != def.AcceptTimeout {
		t.Fatalf("expected zero config to sanitize to defaults, got %+v", cfg)
	}
	if cfg.IdleTimeout != 0 {
		t.Fatal("idle timeout must stay disabled by default")
	}
}

func TestIdleTimeoutTearsDownSession(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IdleTimeout = 50 * time.Millisecond
	sess, _ := newTestSession(t, cfg)

	done := make(chan error, 1)
	go func() { done <- sess.Wait() }()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error from idle teardown")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("idle session was not torn down")
	}
}
