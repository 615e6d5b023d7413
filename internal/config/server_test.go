package config

import (
	"testing"
	"time"
)

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.TokenTTL != time.Hour {
		t.Fatalf("TokenTTL = %v, want 1h", cfg.TokenTTL)
	}
	if cfg.SessionTimeout != 10*time.Minute {
		t.Fatalf("SessionTimeout = %v, want 10m", cfg.SessionTimeout)
	}
	if cfg.RoomCapacity != 2 {
		t.Fatalf("RoomCapacity = %d, want 2", cfg.RoomCapacity)
	}
	if cfg.SettleAttempts != 5 {
		t.Fatalf("SettleAttempts = %d, want 5", cfg.SettleAttempts)
	}
}

func TestLoadServerRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadServer()
	if err == nil {
		t.Fatal("LoadServer() expected error, got nil")
	}
}

func TestLoadServerParseTypes(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("CHAIN_ID", "11155111")
	t.Setenv("DUEL_TARGET_WINS", "3")
	t.Setenv("SETTLE_BACKOFF", "500ms")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Fatalf("TokenTTL = %v, want 30m", cfg.TokenTTL)
	}
	if cfg.ChainID != 11155111 {
		t.Fatalf("ChainID = %d, want 11155111", cfg.ChainID)
	}
	if cfg.DuelTargetWins != 3 {
		t.Fatalf("DuelTargetWins = %d, want 3", cfg.DuelTargetWins)
	}
	if cfg.SettleBackoff != 500*time.Millisecond {
		t.Fatalf("SettleBackoff = %v, want 500ms", cfg.SettleBackoff)
	}
}
