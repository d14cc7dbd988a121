package config

import (
	"os"
	"testing"
	"time"

	"markov-chatter/internal/copypasta"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("MODERATOR_IDS", "1:2")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.ContextWindowLength != 3 || cfg.MaxMessageLength != 500 || cfg.AutonomousDelay != 5*time.Minute {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.ModeratorIDs) != 2 || cfg.ModeratorIDs[1] != 2 {
		t.Fatalf("moderator ids not parsed: %v", cfg.ModeratorIDs)
	}

	cp, err := cfg.Copypasta()
	if err != nil {
		t.Fatalf("copypasta config: %v", err)
	}
	if _, ok := cp.Weight.(copypasta.TokenCountWeight); !ok {
		t.Fatalf("default weight should be token count, got %T", cp.Weight)
	}
	if s := Schedule(cp); s.DelayCount != 20 || s.ReplyCooldown != 30*time.Second {
		t.Fatalf("unexpected schedule: %+v", s)
	}
}

func TestParseRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	_ = os.Unsetenv("TELEGRAM_BOT_TOKEN")
	if _, err := Parse(); err == nil {
		t.Fatalf("want error without TELEGRAM_BOT_TOKEN")
	}
}

func TestParseClampsMaxLength(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("MAX_MESSAGE_LENGTH", "100000")
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.MaxMessageLength != PlatformMaxMessageLength {
		t.Fatalf("want clamp to %d, got %d", PlatformMaxMessageLength, cfg.MaxMessageLength)
	}
}

func TestUnknownWeightFunction(t *testing.T) {
	cfg := &Config{WeightFunction: "cubic"}
	if _, err := cfg.Copypasta(); err == nil {
		t.Fatalf("want error for unknown weight function")
	}
}
