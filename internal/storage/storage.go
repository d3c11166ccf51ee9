package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"retroswap/internal/model"
)

// ErrInvalidRecord wraps validation failures of incoming records.
var ErrInvalidRecord = errors.New("invalid record")

// HistoryStore records swaps and liquidity positions per user address.
// User addresses match case-insensitively.
type HistoryStore interface {
	CreateSwap(ctx context.Context, rec model.SwapRecord) (model.SwapRecord, error)
	SwapsByUser(ctx context.Context, user string) ([]model.SwapRecord, error)
	CreatePosition(ctx context.Context, rec model.PositionRecord) (model.PositionRecord, error)
	PositionsByUser(ctx context.Context, user string) ([]model.PositionRecord, error)
	Close() error
}

func newID() string {
	return uuid.NewString()
}

func sameUser(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func stampNow() time.Time {
	return time.Now().UTC()
}
