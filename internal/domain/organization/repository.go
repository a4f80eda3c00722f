package organization

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the operations for persisting and retrieving organizations.
type Repository interface {
	// Upsert creates the organization keyed by name, or returns the existing one.
	// created reports whether a new row was inserted.
	Upsert(ctx context.Context, name string) (org *Organization, created bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	GetByTokenDigest(ctx context.Context, digest string) (*Organization, error)
	SetTokenDigest(ctx context.Context, id uuid.UUID, digest string) error
}
