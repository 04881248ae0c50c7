package command

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/airswap/airswap-bot/internal/config"
)

func TestParse(t *testing.T) {
	cases := []struct {
		text string
		want Command
	}{
		{"status", Command{Kind: KindStatus}},
		{"  MUTE ", Command{Kind: KindMute}},
		{"unmute", Command{Kind: KindUnmute}},
		{"stats", Command{Kind: KindStats}},
		{"250000", Command{Kind: KindSetMin, Value: 250000}},
		{"1,000", Command{Kind: KindSetMin, Value: 1000}},
		{"min 5", Command{Kind: KindSetMin, Value: 5}},
		{"max 0", Command{Kind: KindSetMax, Value: 0}},
	}
	for _, tc := range cases {
		got, err := Parse(tc.text)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.text, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %+v want %+v", tc.text, got, tc.want)
		}
	}
}

func TestParseRejects(t *testing.T) {
	for _, text := range []string{"", "hello", "max", "max -1"} {
		if _, err := Parse(text); err == nil {
			t.Fatalf("%q: expected error", text)
		}
	}
	if _, err := Parse("launch"); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestExecuteUpdatesStore(t *testing.T) {
	store := config.NewMemoryStore(nil)
	exec := NewExecutor(store, func() string { return "1 swap" }, zap.NewNop())

	steps := []struct {
		text  string
		reply string
	}{
		{"mute", "ok"},
		{"42000", "ok"},
		{"max 900000", "ok"},
		{"status", `{"BIG_SWAP_MAX_VALUE":900000,"BIG_SWAP_MIN_VALUE":42000,"PUBLISHING":false}`},
		{"unmute", "ok"},
		{"stats", "1 swap"},
	}
	for _, step := range steps {
		reply, err := exec.Run(step.text)
		if err != nil {
			t.Fatalf("%q: %v", step.text, err)
		}
		if reply != step.reply {
			t.Fatalf("%q: got %q want %q", step.text, reply, step.reply)
		}
	}
	if !store.Bool(config.KeyPublishing) {
		t.Fatalf("expected publishing re-enabled")
	}
	if store.Float(config.KeyBigSwapMinValue) != 42000 {
		t.Fatalf("unexpected min %v", store.Float(config.KeyBigSwapMinValue))
	}
}
