package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"retroswap/internal/model"
)

const (
	kindSwap     = "swap"
	kindPosition = "position"
)

type journalLine struct {
	Kind   string          `json:"kind"`
	Record json.RawMessage `json:"record"`
}

// JsonlStore is a MemoryStore backed by an append-only JSONL journal that
// is replayed on open.
type JsonlStore struct {
	mem  *MemoryStore
	path string
	mu   sync.Mutex
	file *os.File
}

// OpenJsonlStore replays path, creating it if needed. Unreadable lines are
// logged and skipped.
func OpenJsonlStore(path string, logger *zap.Logger) (*JsonlStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	mem := NewMemoryStore()
	if err := replay(path, mem, logger); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	return &JsonlStore{mem: mem, path: path, file: file}, nil
}

func replay(path string, mem *MemoryStore, logger *zap.Logger) error {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var line journalLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			logger.Warn("skip unreadable history line", zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		switch line.Kind {
		case kindSwap:
			var rec model.SwapRecord
			if err := json.Unmarshal(line.Record, &rec); err != nil {
				logger.Warn("skip unreadable swap record", zap.Int("line", lineNo), zap.Error(err))
				continue
			}
			mem.putSwap(rec)
		case kindPosition:
			var rec model.PositionRecord
			if err := json.Unmarshal(line.Record, &rec); err != nil {
				logger.Warn("skip unreadable position record", zap.Int("line", lineNo), zap.Error(err))
				continue
			}
			mem.putPosition(rec)
		default:
			logger.Warn("skip unknown history kind", zap.Int("line", lineNo), zap.String("kind", line.Kind))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read history file: %w", err)
	}
	return nil
}

func (s *JsonlStore) CreateSwap(ctx context.Context, rec model.SwapRecord) (model.SwapRecord, error) {
	if err := rec.Validate(); err != nil {
		return model.SwapRecord{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	rec.ID = newID()
	rec.CreatedAt = s.mem.now()
	if err := s.append(kindSwap, rec); err != nil {
		return model.SwapRecord{}, err
	}
	s.mem.putSwap(rec)
	return rec, nil
}

func (s *JsonlStore) SwapsByUser(ctx context.Context, user string) ([]model.SwapRecord, error) {
	return s.mem.SwapsByUser(ctx, user)
}

func (s *JsonlStore) CreatePosition(ctx context.Context, rec model.PositionRecord) (model.PositionRecord, error) {
	if err := rec.Validate(); err != nil {
		return model.PositionRecord{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	rec.ID = newID()
	rec.CreatedAt = s.mem.now()
	if err := s.append(kindPosition, rec); err != nil {
		return model.PositionRecord{}, err
	}
	s.mem.putPosition(rec)
	return rec, nil
}

func (s *JsonlStore) PositionsByUser(ctx context.Context, user string) ([]model.PositionRecord, error) {
	return s.mem.PositionsByUser(ctx, user)
}

// Close closes the journal file.
func (s *JsonlStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *JsonlStore) append(kind string, record interface{}) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", kind, err)
	}
	line, err := json.Marshal(journalLine{Kind: kind, Record: payload})
	if err != nil {
		return fmt.Errorf("marshal journal line: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return fmt.Errorf("history file is closed")
	}
	writer := bufio.NewWriter(s.file)
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write %s record: %w", kind, err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush history: %w", err)
	}
	return nil
}
