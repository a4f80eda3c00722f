package app

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"payment_batch_service/internal/domain/organization"
	"payment_batch_service/internal/domain/payment"
	idb "payment_batch_service/internal/infra/database"

	"github.com/google/uuid"
)

// fakeRepository is an in-memory payment.Repository. Export transactions are
// serialized and only applied when fn succeeds.
type fakeRepository struct {
	exportMu sync.Mutex // held for a whole export transaction

	mu         sync.Mutex
	nextID     int64
	rows       []*payment.Instruction
	files      []*payment.ExportFile
	nextFileID int64

	insertErr   error
	markErr     error
	commitErr   error
	afterSelect func() // runs once the due snapshot has been taken

	closedCursors int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{}
}

func (r *fakeRepository) BulkInsert(_ context.Context, orgID uuid.UUID, instructions []payment.NewInstruction) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	ids := make([]int64, 0, len(instructions))
	for _, in := range instructions {
		r.nextID++
		r.rows = append(r.rows, &payment.Instruction{
			ID:               r.nextID,
			OrganizationID:   orgID,
			EmployeeID:       in.EmployeeID,
			AmountMinorUnits: in.AmountMinorUnits,
			Currency:         in.Currency,
			RoutingCode:      in.RoutingCode,
			AccountNumber:    in.AccountNumber,
			PayDate:          in.PayDate,
			Status:           payment.StatusPending,
			CreatedAt:        time.Now(),
		})
		ids = append(ids, r.nextID)
	}
	return ids, nil
}

func (r *fakeRepository) RunInExportTx(ctx context.Context, fn func(tx payment.ExportTx) error) error {
	r.exportMu.Lock()
	defer r.exportMu.Unlock()

	tx := &fakeExportTx{repo: r, marks: make(map[int64]int64)}
	if err := fn(tx); err != nil {
		return err
	}
	if r.commitErr != nil {
		return r.commitErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, tx.files...)
	if len(tx.files) > 0 {
		r.nextFileID = tx.files[len(tx.files)-1].ID
	}
	for _, row := range r.rows {
		if fileID, ok := tx.marks[row.ID]; ok {
			row.Status = payment.StatusExported
			row.ExportedFileID = sql.NullInt64{Int64: fileID, Valid: true}
		}
	}
	return nil
}

func (r *fakeRepository) snapshot() []payment.Instruction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]payment.Instruction, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, *row)
	}
	return out
}

func (r *fakeRepository) exportFiles() []payment.ExportFile {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]payment.ExportFile, 0, len(r.files))
	for _, f := range r.files {
		out = append(out, *f)
	}
	return out
}

type fakeExportTx struct {
	repo  *fakeRepository
	files []*payment.ExportFile
	marks map[int64]int64
}

func (t *fakeExportTx) SelectDueUnexported(_ context.Context, asOf time.Time, batchSize int) (payment.DueCursor, error) {
	t.repo.mu.Lock()
	var due []*payment.Instruction
	for _, row := range t.repo.rows {
		if row.Status == payment.StatusPending && !row.PayDate.After(asOf) {
			if _, marked := t.marks[row.ID]; !marked {
				cp := *row
				due = append(due, &cp)
			}
		}
	}
	t.repo.mu.Unlock()
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })

	if hook := t.repo.afterSelect; hook != nil {
		t.repo.afterSelect = nil
		hook()
	}
	return &fakeCursor{repo: t.repo, rows: due, batchSize: batchSize}, nil
}

func (t *fakeExportTx) CreateExportFile(_ context.Context, filePath string, exportedAt time.Time) (*payment.ExportFile, error) {
	f := &payment.ExportFile{
		ID:         t.repo.nextFileID + int64(len(t.files)) + 1,
		FilePath:   filePath,
		ExportedAt: exportedAt,
		CreatedAt:  exportedAt,
	}
	t.files = append(t.files, f)
	return f, nil
}

func (t *fakeExportTx) MarkExported(_ context.Context, ids []int64, exportFileID int64) (int64, error) {
	if t.repo.markErr != nil {
		return 0, t.repo.markErr
	}
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	pending := make(map[int64]bool)
	for _, row := range t.repo.rows {
		if row.Status == payment.StatusPending {
			pending[row.ID] = true
		}
	}
	var n int64
	for _, id := range ids {
		if _, already := t.marks[id]; pending[id] && !already {
			t.marks[id] = exportFileID
			n++
		}
	}
	return n, nil
}

type fakeCursor struct {
	repo      *fakeRepository
	rows      []*payment.Instruction
	batchSize int
	closed    bool
}

func (c *fakeCursor) Next(context.Context) ([]*payment.Instruction, error) {
	if c.closed {
		return nil, errors.New("cursor closed")
	}
	n := min(c.batchSize, len(c.rows))
	batch := c.rows[:n]
	c.rows = c.rows[n:]
	return batch, nil
}

func (c *fakeCursor) Close(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.closed = true
	c.repo.mu.Lock()
	c.repo.closedCursors++
	c.repo.mu.Unlock()
	return nil
}

// fakeOrgRepository is an in-memory organization.Repository.
type fakeOrgRepository struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*organization.Organization
	getErr error
}

func newFakeOrgRepository() *fakeOrgRepository {
	return &fakeOrgRepository{byID: make(map[uuid.UUID]*organization.Organization)}
}

func (r *fakeOrgRepository) Upsert(_ context.Context, name string) (*organization.Organization, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, org := range r.byID {
		if org.Name == name {
			cp := *org
			return &cp, false, nil
		}
	}
	org := &organization.Organization{ID: uuid.New(), Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	r.byID[org.ID] = org
	cp := *org
	return &cp, true, nil
}

func (r *fakeOrgRepository) GetByID(_ context.Context, id uuid.UUID) (*organization.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	org, ok := r.byID[id]
	if !ok {
		return nil, idb.ErrOrganizationNotFound
	}
	cp := *org
	return &cp, nil
}

func (r *fakeOrgRepository) GetByTokenDigest(_ context.Context, digest string) (*organization.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, org := range r.byID {
		if org.TokenDigest.Valid && org.TokenDigest.String == digest {
			cp := *org
			return &cp, nil
		}
	}
	return nil, idb.ErrOrganizationNotFound
}

func (r *fakeOrgRepository) SetTokenDigest(_ context.Context, id uuid.UUID, digest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	org, ok := r.byID[id]
	if !ok {
		return idb.ErrOrganizationNotFound
	}
	org.TokenDigest = sql.NullString{String: digest, Valid: true}
	return nil
}

// recordingNotifier captures operator alerts.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}
