package repository

import (
	"context"

	"helplink/internal/models"
)

// SnapshotSource produces a fresh read of the HelpLink tables.
type SnapshotSource interface {
	Name() string
	Load(ctx context.Context) (*models.Snapshot, error)
}
