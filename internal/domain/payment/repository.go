// internal/domain/payment/repository.go
package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence operations used by intake and export.
type Repository interface {
	// BulkInsert persists all instructions as pending rows owned by orgID in a
	// single atomic statement. It returns the assigned ids in input order.
	BulkInsert(ctx context.Context, orgID uuid.UUID, instructions []NewInstruction) ([]int64, error)

	// RunInExportTx runs fn inside one storage transaction. The transaction is
	// committed when fn returns nil and rolled back otherwise.
	RunInExportTx(ctx context.Context, fn func(tx ExportTx) error) error
}

// ExportTx exposes the operations an export run composes inside one transaction.
type ExportTx interface {
	// SelectDueUnexported opens a locking cursor over pending instructions with
	// pay_date <= asOf, ordered by insertion. Each call re-queries.
	SelectDueUnexported(ctx context.Context, asOf time.Time, batchSize int) (DueCursor, error)
	CreateExportFile(ctx context.Context, filePath string, exportedAt time.Time) (*ExportFile, error)
	MarkExported(ctx context.Context, ids []int64, exportFileID int64) (int64, error)
}

// DueCursor yields due instructions in batches. Next returns an empty slice
// once the cursor is exhausted. It is not restartable.
type DueCursor interface {
	Next(ctx context.Context) ([]*Instruction, error)
	Close(ctx context.Context) error
}
