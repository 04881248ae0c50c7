package channel

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/airswap/airswap-bot/internal/model"
)

// JSONLRecord is one line of the archive file.
type JSONLRecord struct {
	Kind        string    `json:"kind"`
	PublishedAt time.Time `json:"published_at"`
	Event       any       `json:"event"`
}

// JSONL appends published events to a JSON lines file.
type JSONL struct {
	path string

	mu   sync.Mutex
	file *os.File
}

func NewJSONL(path string) *JSONL {
	return &JSONL{path: path}
}

func (s *JSONL) Name() string { return "jsonl" }

// Init creates the parent directory and opens the file for appending.
func (s *JSONL) Init(context.Context) error {
	if s.path == "" {
		return fmt.Errorf("jsonl path is required")
	}
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}

	s.mu.Lock()
	s.file = file
	s.mu.Unlock()
	return nil
}

func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *JSONL) PublishEvent(_ context.Context, event model.DomainEvent) error {
	return s.write(JSONLRecord{Kind: event.ContractName, PublishedAt: time.Now().UTC(), Event: event})
}

func (s *JSONL) PublishSwap(_ context.Context, swap model.SwapEvent) error {
	return s.write(JSONLRecord{Kind: model.KindSwapERC20, PublishedAt: time.Now().UTC(), Event: swap})
}

func (s *JSONL) write(record JSONLRecord) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return fmt.Errorf("jsonl channel closed")
	}

	writer := bufio.NewWriter(s.file)
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
