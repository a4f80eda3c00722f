package organization

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Organization owns payment instructions and authenticates with a bearer token.
// Only the SHA-256 digest of the token is stored.
type Organization struct {
	ID          uuid.UUID
	Name        string // natural key
	TokenDigest sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
