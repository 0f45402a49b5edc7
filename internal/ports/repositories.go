package ports

import (
	"context"

	"order-notifier/internal/domain/order"
	"order-notifier/internal/domain/session"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SessionRepository reads and writes the per-device key/value session state.
type SessionRepository interface {
	// Snapshot loads every key the detector needs in one round trip.
	Snapshot(ctx context.Context, namespace string) (session.Snapshot, error)
	// SaveMarker replaces the last notified order id atomically.
	SaveMarker(ctx context.Context, namespace string, marker session.Marker) error
	// SetValues upserts several keys; must be called within UnitOfWork.WithinTx.
	SetValues(ctx context.Context, namespace string, values map[string]string) error
	// DeleteKeys removes keys; must be called within UnitOfWork.WithinTx.
	DeleteKeys(ctx context.Context, namespace string, keys ...string) error
}

// OrderSource fetches pending orders from the delivery backend.
type OrderSource interface {
	FetchRecentPending(ctx context.Context, creds session.BackendCredentials, companyID string, limit int) ([]order.Summary, error)
}
