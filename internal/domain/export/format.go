package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"payment_batch_service/internal/domain/payment"
)

// Header is the first row of every export file.
var Header = []string{"ORGANIZATION_ID", "EMPLOYEE_ID", "BSB", "ACCOUNT", "AMOUNT_CENTS", "CURRENCY", "PAY_DATE"}

// FileName returns the export file name for a run on the given date. Runs after
// the first on the same day get a numeric suffix starting at 2.
func FileName(day string, attempt int) string {
	if attempt <= 1 {
		return fmt.Sprintf("%s_payments.csv", day)
	}
	return fmt.Sprintf("%s_payments_%d.csv", day, attempt)
}

// Writer serializes instructions as comma separated rows.
type Writer struct {
	csv *csv.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

func (w *Writer) WriteHeader() error {
	return w.csv.Write(Header)
}

func (w *Writer) Write(in *payment.Instruction) error {
	return w.csv.Write(Row(in))
}

// Flush writes buffered rows and reports any write error seen so far.
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}

// Row renders one instruction in column order. Amounts stay integers.
func Row(in *payment.Instruction) []string {
	return []string{
		in.OrganizationID.String(),
		in.EmployeeID,
		in.RoutingCode,
		in.AccountNumber,
		strconv.FormatInt(in.AmountMinorUnits, 10),
		in.Currency,
		in.PayDate.Format(payment.DateLayout),
	}
}
