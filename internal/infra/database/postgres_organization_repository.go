package database

import (
	"context"
	"database/sql"
	"fmt"

	"payment_batch_service/internal/domain/organization"

	"github.com/google/uuid"
)

// Custom errors
var ErrOrganizationNotFound = fmt.Errorf("organization not found")

type PostgresOrganizationRepository struct {
	db *sql.DB
}

func NewPostgresOrganizationRepository(db *sql.DB) *PostgresOrganizationRepository {
	return &PostgresOrganizationRepository{db: db}
}

// Upsert inserts the organization keyed by its name, leaving an existing row untouched.
func (r *PostgresOrganizationRepository) Upsert(ctx context.Context, name string) (*organization.Organization, bool, error) {
	query := `INSERT INTO organizations (id, name)
               VALUES ($1, $2)
               ON CONFLICT (name) DO NOTHING
               RETURNING id, name, token_digest, created_at, updated_at`
	org, err := scanOrganization(r.db.QueryRowContext(ctx, query, uuid.New(), name))
	if err == nil {
		return org, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("error upserting organization: %w", err)
	}

	query = `SELECT id, name, token_digest, created_at, updated_at FROM organizations WHERE name = $1`
	org, err = scanOrganization(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		return nil, false, fmt.Errorf("error loading existing organization: %w", err)
	}
	return org, false, nil
}

func (r *PostgresOrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*organization.Organization, error) {
	query := `SELECT id, name, token_digest, created_at, updated_at FROM organizations WHERE id = $1`
	org, err := scanOrganization(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("error getting organization by ID: %w", err)
	}
	return org, nil
}

func (r *PostgresOrganizationRepository) GetByTokenDigest(ctx context.Context, digest string) (*organization.Organization, error) {
	query := `SELECT id, name, token_digest, created_at, updated_at FROM organizations WHERE token_digest = $1`
	org, err := scanOrganization(r.db.QueryRowContext(ctx, query, digest))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("error getting organization by token digest: %w", err)
	}
	return org, nil
}

func (r *PostgresOrganizationRepository) SetTokenDigest(ctx context.Context, id uuid.UUID, digest string) error {
	query := `UPDATE organizations SET token_digest = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, digest, id)
	if err != nil {
		return fmt.Errorf("error setting organization token digest: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrOrganizationNotFound
	}
	return nil
}

func scanOrganization(row rowScanner) (*organization.Organization, error) {
	org := organization.Organization{}
	if err := row.Scan(&org.ID, &org.Name, &org.TokenDigest, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return nil, err
	}
	return &org, nil
}
