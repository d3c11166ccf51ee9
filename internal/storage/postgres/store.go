package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"retroswap/internal/model"
	"retroswap/internal/storage"
)

//go:embed schema.sql
var schema string

// Store provides Postgres persistence for swap and position history.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to dsn and applies the schema.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the history tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) CreateSwap(ctx context.Context, rec model.SwapRecord) (model.SwapRecord, error) {
	if err := rec.Validate(); err != nil {
		return model.SwapRecord{}, fmt.Errorf("%w: %v", storage.ErrInvalidRecord, err)
	}
	rec.ID = uuid.NewString()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO swap_transactions (
			id, user_address, token_in, token_out, amount_in, amount_out, tx_hash
		) VALUES ($1, $2, $3, $4, $5::text::numeric, $6::text::numeric, $7)
		RETURNING created_at
	`,
		rec.ID,
		rec.UserAddress,
		rec.TokenIn,
		rec.TokenOut,
		rec.AmountIn,
		rec.AmountOut,
		rec.TxHash,
	)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		return model.SwapRecord{}, fmt.Errorf("insert swap: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func (s *Store) SwapsByUser(ctx context.Context, user string) ([]model.SwapRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_address, token_in, token_out, amount_in::text, amount_out::text, tx_hash, created_at
		FROM swap_transactions
		WHERE lower(user_address) = lower($1)
		ORDER BY created_at, id
	`, user)
	if err != nil {
		return nil, fmt.Errorf("query swaps: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.SwapRecord, error) {
		var rec model.SwapRecord
		var created time.Time
		err := row.Scan(&rec.ID, &rec.UserAddress, &rec.TokenIn, &rec.TokenOut, &rec.AmountIn, &rec.AmountOut, &rec.TxHash, &created)
		rec.CreatedAt = created.UTC()
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan swaps: %w", err)
	}
	return out, nil
}

func (s *Store) CreatePosition(ctx context.Context, rec model.PositionRecord) (model.PositionRecord, error) {
	if err := rec.Validate(); err != nil {
		return model.PositionRecord{}, fmt.Errorf("%w: %v", storage.ErrInvalidRecord, err)
	}
	rec.ID = uuid.NewString()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO liquidity_positions (
			id, user_address, token_id, token_0, token_1, fee, liquidity, tx_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7::text::numeric, $8)
		RETURNING created_at
	`,
		rec.ID,
		rec.UserAddress,
		rec.TokenID,
		rec.Token0,
		rec.Token1,
		rec.Fee,
		rec.Liquidity,
		rec.TxHash,
	)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		return model.PositionRecord{}, fmt.Errorf("insert position: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func (s *Store) PositionsByUser(ctx context.Context, user string) ([]model.PositionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_address, token_id, token_0, token_1, fee, liquidity::text, tx_hash, created_at
		FROM liquidity_positions
		WHERE lower(user_address) = lower($1)
		ORDER BY created_at, id
	`, user)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.PositionRecord, error) {
		var rec model.PositionRecord
		var created time.Time
		err := row.Scan(&rec.ID, &rec.UserAddress, &rec.TokenID, &rec.Token0, &rec.Token1, &rec.Fee, &rec.Liquidity, &rec.TxHash, &created)
		rec.CreatedAt = created.UTC()
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan positions: %w", err)
	}
	return out, nil
}

var _ storage.HistoryStore = (*Store)(nil)
