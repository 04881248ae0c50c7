package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Runtime keys recognized by the store.
const (
	KeyPublishing             = "PUBLISHING"
	KeyBigSwapMinValue        = "BIG_SWAP_MIN_VALUE"
	KeyBigSwapMaxValue        = "BIG_SWAP_MAX_VALUE"
	KeyReconnectDelayMS       = "RECONNECT_DELAY_MS"
	KeyMinRestartIntervalMS   = "MIN_RESTART_INTERVAL_MS"
	KeyKeepAliveIntervalMS    = "WEBSOCKET_KEEPALIVE_INTERVAL_MS"
	KeyPongTimeoutMS          = "WEBSOCKET_PONG_TIMEOUT_MS"
	KeyProtocolFeeRate        = "PROTOCOL_FEE_RATE"
	KeyInfuraProjectID        = "INFURA_PROJECT_ID"
	defaultBigSwapMinValue    = 100000
	defaultBigSwapMaxValue    = 100000000
	defaultReconnectDelayMS   = 5000
	defaultMinRestartInterval = 30000
	defaultKeepAliveMS        = 7500
	defaultPongTimeoutMS      = 15000
	defaultProtocolFeeRate    = 0.0005
)

type valueKind int

const (
	kindBool valueKind = iota
	kindNumber
	kindString
)

var knownKeys = map[string]valueKind{
	KeyPublishing:           kindBool,
	KeyBigSwapMinValue:      kindNumber,
	KeyBigSwapMaxValue:      kindNumber,
	KeyReconnectDelayMS:     kindNumber,
	KeyMinRestartIntervalMS: kindNumber,
	KeyKeepAliveIntervalMS:  kindNumber,
	KeyPongTimeoutMS:        kindNumber,
	KeyProtocolFeeRate:      kindNumber,
	KeyInfuraProjectID:      kindString,
}

// Defaults returns the values written when no store file exists yet.
func Defaults() map[string]any {
	return map[string]any{
		KeyPublishing:           true,
		KeyBigSwapMinValue:      float64(defaultBigSwapMinValue),
		KeyBigSwapMaxValue:      float64(defaultBigSwapMaxValue),
		KeyReconnectDelayMS:     float64(defaultReconnectDelayMS),
		KeyMinRestartIntervalMS: float64(defaultMinRestartInterval),
		KeyKeepAliveIntervalMS:  float64(defaultKeepAliveMS),
		KeyPongTimeoutMS:        float64(defaultPongTimeoutMS),
		KeyProtocolFeeRate:      defaultProtocolFeeRate,
	}
}

// Reader is the read side of the runtime store. Values may change between reads.
type Reader interface {
	Bool(key string) bool
	Float(key string) float64
	Duration(key string) time.Duration
	String(key string) string
}

// Store is a flat key/value map persisted as a JSON object.
// Set writes through to disk before returning.
type Store struct {
	path string

	mu        sync.RWMutex
	values    map[string]any
	persisted map[string]any
}

// OpenStore loads the store at path, creating it with Defaults when missing.
// Environment variables named after a key override file values without being persisted.
func OpenStore(path string) (*Store, error) {
	s := &Store{path: path, values: Defaults(), persisted: map[string]any{}}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		s.persisted = Defaults()
		if err := s.flushLocked(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("read config store: %w", err)
	default:
		if err := json.Unmarshal(data, &s.persisted); err != nil {
			return nil, fmt.Errorf("parse config store: %w", err)
		}
	}

	for key, value := range s.persisted {
		if _, ok := knownKeys[key]; !ok {
			continue
		}
		normalized, err := normalize(key, value)
		if err != nil {
			return nil, err
		}
		s.values[key] = normalized
	}

	for key := range knownKeys {
		raw, ok := os.LookupEnv(key)
		if !ok || raw == "" {
			continue
		}
		normalized, err := normalize(key, raw)
		if err != nil {
			return nil, fmt.Errorf("env %s: %w", key, err)
		}
		s.values[key] = normalized
	}

	return s, nil
}

// NewMemoryStore builds a store that is never flushed, seeded with Defaults and overrides.
func NewMemoryStore(overrides map[string]any) *Store {
	s := &Store{values: Defaults(), persisted: map[string]any{}}
	for k, v := range overrides {
		if normalized, err := normalize(k, v); err == nil {
			s.values[k] = normalized
		}
	}
	return s
}

// Get returns the raw value for key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	v, ok := s.values[key]
	s.mu.RUnlock()
	return v, ok
}

// Set validates and stores value, then flushes the persisted object to disk.
func (s *Store) Set(key string, value any) error {
	normalized, err := normalize(key, value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = normalized
	if s.path == "" {
		return nil
	}
	s.persisted[key] = normalized
	return s.flushLocked()
}

// Override sets value for this process only. It is never flushed.
func (s *Store) Override(key string, value any) error {
	normalized, err := normalize(key, value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.values[key] = normalized
	s.mu.Unlock()
	return nil
}

// Bool returns a boolean key, false when unset.
func (s *Store) Bool(key string) bool {
	v, _ := s.Get(key)
	b, _ := v.(bool)
	return b
}

// Float returns a numeric key, 0 when unset.
func (s *Store) Float(key string) float64 {
	v, _ := s.Get(key)
	f, _ := v.(float64)
	return f
}

// Duration interprets a numeric key as milliseconds.
func (s *Store) Duration(key string) time.Duration {
	return time.Duration(s.Float(key) * float64(time.Millisecond))
}

// String returns a string key, "" when unset.
func (s *Store) String(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// Snapshot copies the current values without credentials.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		if k == KeyInfuraProjectID {
			continue
		}
		out[k] = v
	}
	return out
}

// Keys lists the recognized keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) flushLocked() error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(s.persisted, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config store: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write config store tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename config store: %w", err)
	}
	return nil
}

func normalize(key string, value any) (any, error) {
	kind, ok := knownKeys[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key %q", key)
	}

	switch kind {
	case kindBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("%s: expected bool, got %q", key, v)
			}
			return b, nil
		}
	case kindNumber:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case uint64:
			return float64(v), nil
		case json.Number:
			return v.Float64()
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: expected number, got %q", key, v)
			}
			return f, nil
		}
	case kindString:
		if v, ok := value.(string); ok {
			return v, nil
		}
		return fmt.Sprintf("%v", value), nil
	}
	return nil, fmt.Errorf("%s: unsupported value type %T", key, value)
}
