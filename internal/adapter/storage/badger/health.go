package badger

import (
	"context"
	"errors"
)

// HealthCheck implements ports.HealthChecker for the snapshot store.
type HealthCheck struct {
	store *SnapshotStore
}

func NewHealthCheck(store *SnapshotStore) *HealthCheck {
	return &HealthCheck{store: store}
}

// Ping reports whether the DB is still open.
func (h *HealthCheck) Ping(_ context.Context) error {
	if h.store.db.IsClosed() {
		return errors.New("badger: closed")
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "badger"
}
