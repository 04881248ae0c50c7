package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenStoreWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if !store.Bool(KeyPublishing) {
		t.Fatalf("publishing should default to true")
	}
	if got := store.Duration(KeyKeepAliveIntervalMS); got != 7500*time.Millisecond {
		t.Fatalf("keepalive mismatch: %s", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read store file: %v", err)
	}
	var onDisk map[string]any
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("parse store file: %v", err)
	}
	if onDisk[KeyBigSwapMinValue] != float64(100000) {
		t.Fatalf("min value not persisted: %v", onDisk[KeyBigSwapMinValue])
	}
}

func TestStoreSetFlushesSynchronously(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	if err := store.Set(KeyPublishing, false); err != nil {
		t.Fatalf("set publishing: %v", err)
	}
	if err := store.Set(KeyBigSwapMinValue, "2500"); err != nil {
		t.Fatalf("set min value: %v", err)
	}

	reopened, err := OpenStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	if reopened.Bool(KeyPublishing) {
		t.Fatalf("publishing should be false after reopen")
	}
	if reopened.Float(KeyBigSwapMinValue) != 2500 {
		t.Fatalf("min value mismatch: %v", reopened.Float(KeyBigSwapMinValue))
	}
}

func TestStoreRejectsUnknownKeysAndBadValues(t *testing.T) {
	store := NewMemoryStore(nil)
	if err := store.Set("NOT_A_KEY", 1); err == nil {
		t.Fatalf("expected unknown key error")
	}
	if err := store.Set(KeyPublishing, "maybe"); err == nil {
		t.Fatalf("expected bool parse error")
	}
	if err := store.Set(KeyBigSwapMaxValue, []int{1}); err == nil {
		t.Fatalf("expected type error")
	}
}

func TestStoreEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if _, err := OpenStore(path); err != nil {
		t.Fatalf("open store: %v", err)
	}

	t.Setenv(KeyBigSwapMinValue, "42")
	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	if store.Float(KeyBigSwapMinValue) != 42 {
		t.Fatalf("env override ignored: %v", store.Float(KeyBigSwapMinValue))
	}
}

func TestParseChainIDsDedupes(t *testing.T) {
	ids, err := parseChainIDs([]string{"1", "137", "1"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 137 {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if _, err := parseChainIDs([]string{"mainnet"}); err == nil {
		t.Fatalf("expected error for non-numeric id")
	}
}

func TestStoreOverrideIsNotPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Override(KeyInfuraProjectID, "secret"); err != nil {
		t.Fatalf("override: %v", err)
	}
	if store.String(KeyInfuraProjectID) != "secret" {
		t.Fatalf("override not visible")
	}
	if err := store.Set(KeyPublishing, false); err != nil {
		t.Fatalf("set publishing: %v", err)
	}

	reopened, err := OpenStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	if got := reopened.String(KeyInfuraProjectID); got != "" && os.Getenv(KeyInfuraProjectID) == "" {
		t.Fatalf("override leaked to disk: %q", got)
	}
	if err := store.Override("NOPE", 1); err == nil {
		t.Fatalf("expected unknown key error")
	}
}
