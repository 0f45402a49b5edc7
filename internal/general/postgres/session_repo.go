package postgres

import (
	"context"
	"fmt"
	"strings"

	"order-notifier/internal/domain/session"
	"order-notifier/internal/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// SessionRepo persists device session keys in the kv_store table.
type SessionRepo struct {
	pool *pgxpool.Pool
}

// NewSessionRepo constructs a new SessionRepo.
func NewSessionRepo(pool *pgxpool.Pool) ports.SessionRepository {
	return &SessionRepo{pool: pool}
}

// db returns the active transaction when there is one, the pool otherwise.
func (repo *SessionRepo) db(ctx context.Context) querier {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return repo.pool
}

// Snapshot reads all poll keys of a namespace in a single query.
func (repo *SessionRepo) Snapshot(ctx context.Context, namespace string) (session.Snapshot, error) {
	if strings.TrimSpace(namespace) == "" {
		return session.Snapshot{}, session.ErrNamespaceEmpty
	}

	rows, err := repo.db(ctx).Query(ctx, `
		SELECT key, value
		FROM kv_store
		WHERE namespace = $1
		AND key = ANY($2)
	`, namespace, session.SnapshotKeys)
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("query session snapshot: %w", err)
	}

	values := make(map[string]string, len(session.SnapshotKeys))
	var key, value string
	_, err = pgx.ForEachRow(rows, []any{&key, &value}, func() error {
		values[key] = value
		return nil
	})
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("scan session snapshot: %w", err)
	}

	return session.NewSnapshot(values), nil
}

// SaveMarker upserts the last notified order id. A single statement, so an
// interrupted poll leaves either the old or the new id.
func (repo *SessionRepo) SaveMarker(ctx context.Context, namespace string, marker session.Marker) error {
	if strings.TrimSpace(namespace) == "" {
		return session.ErrNamespaceEmpty
	}
	if !marker.Set() {
		return fmt.Errorf("save marker: empty order id")
	}

	_, err := repo.db(ctx).Exec(ctx, upsertSQL, namespace, session.KeyLastNotified, marker.OrderID)
	if err != nil {
		return fmt.Errorf("save marker: %w", err)
	}
	return nil
}

// SetValues upserts several keys of a namespace inside the current transaction.
func (repo *SessionRepo) SetValues(ctx context.Context, namespace string, values map[string]string) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(namespace) == "" {
		return session.ErrNamespaceEmpty
	}

	batch := &pgx.Batch{}
	for k, v := range values {
		batch.Queue(upsertSQL, namespace, k, v)
	}
	if batch.Len() == 0 {
		return nil
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("set session values: %w", err)
	}
	return nil
}

// DeleteKeys removes keys of a namespace inside the current transaction.
func (repo *SessionRepo) DeleteKeys(ctx context.Context, namespace string, keys ...string) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM kv_store
		WHERE namespace = $1
		AND key = ANY($2)
	`, namespace, keys)
	if err != nil {
		return fmt.Errorf("delete session keys: %w", err)
	}
	return nil
}

const upsertSQL = `
	INSERT INTO kv_store (namespace, key, value, updated_at)
	VALUES ($1, $2, $3, now())
	ON CONFLICT (namespace, key)
	DO UPDATE SET value = EXCLUDED.value, updated_at = now()
`
