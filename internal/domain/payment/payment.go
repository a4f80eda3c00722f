// internal/domain/payment/payment.go
package payment

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status is the export state of a payment instruction.
type Status string

const (
	StatusPending  Status = "pending"
	StatusExported Status = "exported"
)

// DateLayout is the calendar date format used on intake and in export files.
const DateLayout = "2006-01-02"

// Instruction is a persisted payment instruction.
// Corresponds to the 'payment_instructions' table.
type Instruction struct {
	ID               int64 // BIGSERIAL, reflects insertion order
	OrganizationID   uuid.UUID
	EmployeeID       string
	AmountMinorUnits int64
	Currency         string
	RoutingCode      string // BSB
	AccountNumber    string
	PayDate          time.Time     // date only
	Status           Status        // pending until exported
	ExportedFileID   sql.NullInt64 // set iff Status == StatusExported
	CreatedAt        time.Time
}

// NewInstruction is a validated instruction ready to be persisted.
type NewInstruction struct {
	EmployeeID       string
	AmountMinorUnits int64
	Currency         string
	RoutingCode      string
	AccountNumber    string
	PayDate          time.Time
}

// ExportFile records one export run's artifact.
// Corresponds to the 'export_files' table.
type ExportFile struct {
	ID         int64
	FilePath   string
	ExportedAt time.Time
	CreatedAt  time.Time
}
