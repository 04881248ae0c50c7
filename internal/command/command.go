package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/airswap/airswap-bot/internal/config"
)

// ErrUnknownCommand is returned for text that names no command.
var ErrUnknownCommand = errors.New("unknown command")

// Kind enumerates the operator commands.
type Kind int

const (
	KindStatus Kind = iota
	KindMute
	KindUnmute
	KindSetMin
	KindSetMax
	KindStats
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindMute:
		return "mute"
	case KindUnmute:
		return "unmute"
	case KindSetMin:
		return "min"
	case KindSetMax:
		return "max"
	case KindStats:
		return "stats"
	default:
		return "unknown"
	}
}

// Command is a parsed operator instruction. Value is set for KindSetMin and KindSetMax.
type Command struct {
	Kind  Kind
	Value float64
}

// Parse reads one instruction. A bare number sets the minimum swap value.
func Parse(text string) (Command, error) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return Command{}, ErrUnknownCommand
	}

	switch fields[0] {
	case "status":
		return Command{Kind: KindStatus}, nil
	case "mute":
		return Command{Kind: KindMute}, nil
	case "unmute":
		return Command{Kind: KindUnmute}, nil
	case "stats":
		return Command{Kind: KindStats}, nil
	case "min", "max":
		if len(fields) < 2 {
			return Command{}, fmt.Errorf("%s: value required", fields[0])
		}
		v, err := parseValue(fields[1])
		if err != nil {
			return Command{}, fmt.Errorf("%s: %w", fields[0], err)
		}
		kind := KindSetMin
		if fields[0] == "max" {
			kind = KindSetMax
		}
		return Command{Kind: kind, Value: v}, nil
	}

	v, err := parseValue(fields[0])
	if err != nil {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}
	return Command{Kind: KindSetMin, Value: v}, nil
}

func parseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value %v", v)
	}
	return v, nil
}

// Store is the writable runtime config.
type Store interface {
	config.Reader
	Set(key string, value any) error
}

// Executor applies commands to the runtime store.
type Executor struct {
	store  Store
	stats  func() string
	logger *zap.Logger
}

// NewExecutor builds an executor. stats renders the stats reply and may be nil.
func NewExecutor(store Store, stats func() string, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{store: store, stats: stats, logger: logger}
}

// Run parses and executes text, returning the reply.
func (e *Executor) Run(text string) (string, error) {
	cmd, err := Parse(text)
	if err != nil {
		return "", err
	}
	return e.Execute(cmd)
}

// Execute applies cmd and returns the reply for the operator.
func (e *Executor) Execute(cmd Command) (string, error) {
	e.logger.Info("command", zap.Stringer("kind", cmd.Kind), zap.Float64("value", cmd.Value))

	switch cmd.Kind {
	case KindStatus:
		return e.status()
	case KindMute:
		return e.set(config.KeyPublishing, false)
	case KindUnmute:
		return e.set(config.KeyPublishing, true)
	case KindSetMin:
		return e.set(config.KeyBigSwapMinValue, cmd.Value)
	case KindSetMax:
		return e.set(config.KeyBigSwapMaxValue, cmd.Value)
	case KindStats:
		if e.stats == nil {
			return "stats unavailable", nil
		}
		return e.stats(), nil
	default:
		return "", ErrUnknownCommand
	}
}

func (e *Executor) status() (string, error) {
	out, err := json.Marshal(map[string]any{
		config.KeyPublishing:      e.store.Bool(config.KeyPublishing),
		config.KeyBigSwapMinValue: e.store.Float(config.KeyBigSwapMinValue),
		config.KeyBigSwapMaxValue: e.store.Float(config.KeyBigSwapMaxValue),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (e *Executor) set(key string, value any) (string, error) {
	if err := e.store.Set(key, value); err != nil {
		return "", fmt.Errorf("set %s: %w", key, err)
	}
	e.logger.Info("config updated", zap.String("key", key), zap.Any("value", value))
	return "ok", nil
}
