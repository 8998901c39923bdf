// Package pgstore persists businesses and orders in Postgres. A business is
// one JSONB document guarded by row locks; orders are rows keyed by business
// and order id.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shopsim/internal/game"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed schema.sql
var schema string

var ErrTxConflict = errors.New("transaction conflict, retry")

const maxAttempts = 4

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	db  DB
	log *slog.Logger
}

var _ game.Store = (*Store)(nil)

func New(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, log: logger}
}

// Migrate creates the schema when it is missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) LoadBusiness(ctx context.Context, businessID string) (*game.BusinessState, error) {
	return s.loadOne(ctx, `SELECT state FROM shop.businesses WHERE id = $1`, businessID)
}

func (s *Store) LoadBusinessByOwner(ctx context.Context, ownerID string) (*game.BusinessState, error) {
	return s.loadOne(ctx, `SELECT state FROM shop.businesses WHERE owner_id = $1`, ownerID)
}

func (s *Store) loadOne(ctx context.Context, query, key string) (*game.BusinessState, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, query, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", game.ErrBusinessNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	var b game.BusinessState
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decode business %s: %w", key, err)
	}
	return &b, nil
}

func (s *Store) ListBusinessIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM shop.businesses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) LoadActiveOrders(ctx context.Context, businessID string) ([]game.Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT body
		FROM shop.orders
		WHERE business_id = $1 AND status IN ('pending', 'accepted', 'in_progress')
		ORDER BY created_at, id
	`, businessID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (game.Order, error) {
		var raw []byte
		if err := row.Scan(&raw); err != nil {
			return game.Order{}, err
		}
		var o game.Order
		err := json.Unmarshal(raw, &o)
		return o, err
	})
}

// SaveNewOrders inserts in one batch. An id already stored is left as is.
func (s *Store) SaveNewOrders(ctx context.Context, businessID string, orders []game.Order) error {
	if len(orders) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, o := range orders {
		o.BusinessID = businessID
		body, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("encode order %s: %w", o.ID, err)
		}
		batch.Queue(`
			INSERT INTO shop.orders (business_id, id, status, body, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (business_id, id) DO NOTHING
		`, businessID, o.ID, string(o.Status), body, o.CreatedAt)
	}
	res := s.db.SendBatch(ctx, batch)
	defer res.Close()
	for range orders {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("insert orders: %w", err)
		}
	}
	return res.Close()
}

// UpdateOrderStatus locks the row and drops updates that would move the order
// backwards.
func (s *Store) UpdateOrderStatus(ctx context.Context, businessID, orderID string, update game.OrderUpdate) error {
	return s.withRetry(ctx, func(tx pgx.Tx) error {
		var raw []byte
		err := tx.QueryRow(ctx, `
			SELECT body
			FROM shop.orders
			WHERE business_id = $1 AND id = $2
			FOR UPDATE
		`, businessID, orderID).Scan(&raw)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", game.ErrOrderNotFound, orderID)
		}
		if err != nil {
			return err
		}
		var o game.Order
		if err := json.Unmarshal(raw, &o); err != nil {
			return fmt.Errorf("decode order %s: %w", orderID, err)
		}
		if !game.CanAdvance(o.Status, update.Status) {
			s.log.Debug("stale order update dropped", "order_id", orderID, "stored", o.Status, "update", update.Status)
			return nil
		}
		o.ApplyUpdate(update)
		body, err := json.Marshal(o)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE shop.orders
			SET status = $1, body = $2, updated_at = now()
			WHERE business_id = $3 AND id = $4
		`, string(o.Status), body, businessID, orderID)
		return err
	})
}

func (s *Store) ApplyBusinessDelta(ctx context.Context, businessID string, delta game.BusinessDelta) error {
	return s.mutateBusiness(ctx, businessID, func(b *game.BusinessState) bool {
		return game.ApplyDelta(b, delta)
	})
}

func (s *Store) SaveMarketState(ctx context.Context, businessID string, market game.MarketState) error {
	return s.mutateBusiness(ctx, businessID, func(b *game.BusinessState) bool {
		b.Market = market.Clone()
		return true
	})
}

// mutateBusiness reads the document FOR UPDATE, lets fn change it and writes
// it back when fn reports a change.
func (s *Store) mutateBusiness(ctx context.Context, businessID string, fn func(*game.BusinessState) bool) error {
	return s.withRetry(ctx, func(tx pgx.Tx) error {
		var raw []byte
		err := tx.QueryRow(ctx, `
			SELECT state
			FROM shop.businesses
			WHERE id = $1
			FOR UPDATE
		`, businessID).Scan(&raw)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", game.ErrBusinessNotFound, businessID)
		}
		if err != nil {
			return err
		}
		var b game.BusinessState
		if err := json.Unmarshal(raw, &b); err != nil {
			return fmt.Errorf("decode business %s: %w", businessID, err)
		}
		if !fn(&b) {
			return nil
		}
		body, err := json.Marshal(b)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE shop.businesses
			SET state = $1, last_delta_seq = $2, updated_at = now()
			WHERE id = $3
		`, body, b.LastDeltaSeq, businessID)
		return err
	})
}

func (s *Store) CreateBusiness(ctx context.Context, state game.BusinessState) (string, error) {
	if state.ID == "" {
		state.ID = uuid.NewString()
	}
	body, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO shop.businesses (id, owner_id, type_id, name, state, last_delta_seq, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, state.ID, state.OwnerID, state.TypeID, state.Name, body, state.LastDeltaSeq, state.CreatedAt)
	if isUniqueViolation(err) {
		return "", fmt.Errorf("%w: %s", game.ErrOwnerHasBusiness, state.OwnerID)
	}
	if err != nil {
		return "", err
	}
	return state.ID, nil
}

// DeleteBusiness removes the row; orders go with it through the cascade and
// the owner's unique slot frees up.
func (s *Store) DeleteBusiness(ctx context.Context, businessID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM shop.businesses WHERE id = $1`, businessID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", game.ErrBusinessNotFound, businessID)
	}
	return nil
}

// withRetry runs fn in a serializable transaction, retrying serialization
// failures with a doubling backoff.
func (s *Store) withRetry(ctx context.Context, fn func(pgx.Tx) error) error {
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := s.inTx(ctx, fn)
		if err == nil || !isSerializationError(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			break
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}
	return ErrTxConflict
}

func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
