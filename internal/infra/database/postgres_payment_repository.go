// internal/infra/database/postgres_payment_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"payment_batch_service/internal/domain/payment"

	"github.com/google/uuid"
	"github.com/lib/pq" // For pq.Array and error codes
)

// Custom errors specific to payment repository
var ErrUnknownOrganization = fmt.Errorf("payment owner organization does not exist")
var ErrConstraintViolation = fmt.Errorf("payment instruction violates a storage constraint")
var ErrPaymentNotFound = fmt.Errorf("payment instruction not found")

const (
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqNotNullViolation    = "23502"
)

const instructionColumns = `id, organization_id, employee_id, amount_minor_units, currency,
               routing_code, account_number, pay_date, status, exported_file_id, created_at`

type PostgresPaymentRepository struct {
	db *sql.DB
}

func NewPostgresPaymentRepository(db *sql.DB) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{db: db}
}

// BulkInsert writes every instruction with one INSERT ... SELECT FROM unnest,
// so the batch is persisted entirely or not at all.
func (r *PostgresPaymentRepository) BulkInsert(ctx context.Context, orgID uuid.UUID, instructions []payment.NewInstruction) ([]int64, error) {
	if len(instructions) == 0 {
		return nil, fmt.Errorf("bulk insert requires at least one instruction")
	}

	employeeIDs := make([]string, len(instructions))
	amounts := make([]int64, len(instructions))
	currencies := make([]string, len(instructions))
	routingCodes := make([]string, len(instructions))
	accountNumbers := make([]string, len(instructions))
	payDates := make([]string, len(instructions))
	for i, in := range instructions {
		employeeIDs[i] = in.EmployeeID
		amounts[i] = in.AmountMinorUnits
		currencies[i] = in.Currency
		routingCodes[i] = in.RoutingCode
		accountNumbers[i] = in.AccountNumber
		payDates[i] = in.PayDate.Format(payment.DateLayout)
	}

	query := `INSERT INTO payment_instructions
                   (organization_id, employee_id, amount_minor_units, currency, routing_code, account_number, pay_date, status)
               SELECT $1::uuid, t.employee_id, t.amount, t.currency, t.routing_code, t.account_number, t.pay_date, $8::varchar
               FROM unnest($2::text[], $3::bigint[], $4::text[], $5::text[], $6::text[], $7::date[])
                    WITH ORDINALITY AS t(employee_id, amount, currency, routing_code, account_number, pay_date, ord)
               ORDER BY t.ord
               RETURNING id`
	rows, err := r.db.QueryContext(ctx, query,
		orgID,
		pq.Array(employeeIDs),
		pq.Array(amounts),
		pq.Array(currencies),
		pq.Array(routingCodes),
		pq.Array(accountNumbers),
		pq.Array(payDates),
		payment.StatusPending,
	)
	if err != nil {
		return nil, classifyInsertError(err)
	}
	defer rows.Close()

	ids := make([]int64, 0, len(instructions))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning inserted payment id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		// Constraint violations on later rows surface while iterating.
		return nil, classifyInsertError(err)
	}
	if len(ids) != len(instructions) {
		return nil, fmt.Errorf("bulk insert returned %d ids for %d instructions", len(ids), len(instructions))
	}
	return ids, nil
}

func classifyInsertError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqForeignKeyViolation:
			return fmt.Errorf("%w: %w", ErrUnknownOrganization, err)
		case pqCheckViolation, pqNotNullViolation:
			return fmt.Errorf("%w (%s): %w", ErrConstraintViolation, pqErr.Constraint, err)
		}
	}
	return fmt.Errorf("error bulk inserting payment instructions: %w", err)
}

// RunInExportTx runs fn in a READ COMMITTED transaction. Row locks taken by
// the due-payment cursor keep concurrent export runs from exporting the same row.
func (r *PostgresPaymentRepository) RunInExportTx(ctx context.Context, fn func(tx payment.ExportTx) error) error {
	txn, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin export transaction: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	if err := fn(&postgresExportTx{tx: txn}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit export transaction: %w", err)
	}
	return nil
}

// GetByID is used by operators and tests to inspect a single instruction.
func (r *PostgresPaymentRepository) GetByID(ctx context.Context, id int64) (*payment.Instruction, error) {
	query := `SELECT ` + instructionColumns + ` FROM payment_instructions WHERE id = $1`
	in, err := scanInstruction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("error getting payment instruction by ID: %w", err)
	}
	return in, nil
}

// ListByExportFile returns the instructions linked to an export file in insertion order.
func (r *PostgresPaymentRepository) ListByExportFile(ctx context.Context, exportFileID int64) ([]*payment.Instruction, error) {
	query := `SELECT ` + instructionColumns + `
               FROM payment_instructions
               WHERE exported_file_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, exportFileID)
	if err != nil {
		return nil, fmt.Errorf("error querying payment instructions by export file: %w", err)
	}
	defer rows.Close()
	return scanInstructions(rows)
}

// ListExportFiles returns all export files, oldest first.
func (r *PostgresPaymentRepository) ListExportFiles(ctx context.Context) ([]*payment.ExportFile, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, file_path, exported_at, created_at FROM export_files ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error querying export files: %w", err)
	}
	defer rows.Close()

	files := make([]*payment.ExportFile, 0)
	for rows.Next() {
		f := payment.ExportFile{}
		if err := rows.Scan(&f.ID, &f.FilePath, &f.ExportedAt, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning export file row: %w", err)
		}
		files = append(files, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating export file rows: %w", err)
	}
	return files, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstruction(row rowScanner) (*payment.Instruction, error) {
	in := payment.Instruction{}
	err := row.Scan(
		&in.ID, &in.OrganizationID, &in.EmployeeID, &in.AmountMinorUnits, &in.Currency,
		&in.RoutingCode, &in.AccountNumber, &in.PayDate, &in.Status, &in.ExportedFileID, &in.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	in.PayDate = in.PayDate.UTC()
	return &in, nil
}

// Helper to scan multiple rows
func scanInstructions(rows *sql.Rows) ([]*payment.Instruction, error) {
	instructions := make([]*payment.Instruction, 0)
	for rows.Next() {
		in, err := scanInstruction(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning payment instruction row: %w", err)
		}
		instructions = append(instructions, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment instruction rows: %w", err)
	}
	return instructions, nil
}

// --- Export transaction ---

type postgresExportTx struct {
	tx      *sql.Tx
	cursors int
}

func (t *postgresExportTx) SelectDueUnexported(ctx context.Context, asOf time.Time, batchSize int) (payment.DueCursor, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	t.cursors++
	name := fmt.Sprintf("due_payments_%d", t.cursors)

	// The cut-off date is formatted locally, so it is safe to inline.
	query := fmt.Sprintf(`DECLARE %s NO SCROLL CURSOR FOR
               SELECT %s
               FROM payment_instructions
               WHERE status = '%s' AND pay_date <= DATE '%s'
               ORDER BY id
               FOR UPDATE`, name, instructionColumns, payment.StatusPending, asOf.Format(payment.DateLayout))
	if _, err := t.tx.ExecContext(ctx, query); err != nil {
		return nil, fmt.Errorf("error declaring due payments cursor: %w", err)
	}
	return &postgresDueCursor{tx: t.tx, name: name, batchSize: batchSize}, nil
}

func (t *postgresExportTx) CreateExportFile(ctx context.Context, filePath string, exportedAt time.Time) (*payment.ExportFile, error) {
	query := `INSERT INTO export_files (file_path, exported_at)
               VALUES ($1, $2)
               RETURNING id, created_at`
	f := &payment.ExportFile{FilePath: filePath, ExportedAt: exportedAt}
	if err := t.tx.QueryRowContext(ctx, query, filePath, exportedAt).Scan(&f.ID, &f.CreatedAt); err != nil {
		return nil, fmt.Errorf("error creating export file record: %w", err)
	}
	return f, nil
}

func (t *postgresExportTx) MarkExported(ctx context.Context, ids []int64, exportFileID int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `UPDATE payment_instructions
               SET status = $1, exported_file_id = $2
               WHERE id = ANY($3::bigint[]) AND status = $4`
	res, err := t.tx.ExecContext(ctx, query, payment.StatusExported, exportFileID, pq.Array(ids), payment.StatusPending)
	if err != nil {
		return 0, fmt.Errorf("error marking payment instructions exported: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading marked row count: %w", err)
	}
	return n, nil
}

type postgresDueCursor struct {
	tx        *sql.Tx
	name      string
	batchSize int
	done      bool
}

func (c *postgresDueCursor) Next(ctx context.Context) ([]*payment.Instruction, error) {
	if c.done {
		return nil, nil
	}
	rows, err := c.tx.QueryContext(ctx, fmt.Sprintf(`FETCH FORWARD %d FROM %s`, c.batchSize, c.name))
	if err != nil {
		return nil, fmt.Errorf("error fetching due payments: %w", err)
	}
	defer rows.Close()

	batch, err := scanInstructions(rows)
	if err != nil {
		return nil, err
	}
	if len(batch) < c.batchSize {
		c.done = true
	}
	return batch, nil
}

func (c *postgresDueCursor) Close(ctx context.Context) error {
	// The cursor also disappears with its transaction; an explicit CLOSE frees it earlier.
	if _, err := c.tx.ExecContext(ctx, `CLOSE `+c.name); err != nil {
		return fmt.Errorf("error closing due payments cursor: %w", err)
	}
	return nil
}
