package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"retroswap/internal/model"
)

// MemoryStore keeps history in process memory, in insertion order.
type MemoryStore struct {
	mu        sync.RWMutex
	swaps     []model.SwapRecord
	positions []model.PositionRecord
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: stampNow}
}

func (s *MemoryStore) CreateSwap(_ context.Context, rec model.SwapRecord) (model.SwapRecord, error) {
	if err := rec.Validate(); err != nil {
		return model.SwapRecord{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	rec.ID = newID()
	rec.CreatedAt = s.now()
	s.putSwap(rec)
	return rec, nil
}

func (s *MemoryStore) SwapsByUser(_ context.Context, user string) ([]model.SwapRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.SwapRecord, 0)
	for _, rec := range s.swaps {
		if sameUser(rec.UserAddress, user) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreatePosition(_ context.Context, rec model.PositionRecord) (model.PositionRecord, error) {
	if err := rec.Validate(); err != nil {
		return model.PositionRecord{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	rec.ID = newID()
	rec.CreatedAt = s.now()
	s.putPosition(rec)
	return rec, nil
}

func (s *MemoryStore) PositionsByUser(_ context.Context, user string) ([]model.PositionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.PositionRecord, 0)
	for _, rec := range s.positions {
		if sameUser(rec.UserAddress, user) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) putSwap(rec model.SwapRecord) {
	s.mu.Lock()
	s.swaps = append(s.swaps, rec)
	s.mu.Unlock()
}

func (s *MemoryStore) putPosition(rec model.PositionRecord) {
	s.mu.Lock()
	s.positions = append(s.positions, rec)
	s.mu.Unlock()
}
