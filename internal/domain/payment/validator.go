package payment

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Validator checks raw batches against the intake rules. It performs no I/O;
// the result depends only on the payload and the reference clock.
type Validator struct {
	currencies  map[string]struct{}
	currencyMsg string
	loc         *time.Location
	now         func() time.Time
}

// NewValidator builds a Validator accepting the given currency codes. Today is
// evaluated in loc using now.
func NewValidator(currencies []string, loc *time.Location, now func() time.Time) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	set := make(map[string]struct{}, len(currencies))
	for _, c := range currencies {
		set[c] = struct{}{}
	}
	return &Validator{
		currencies:  set,
		currencyMsg: "must be one of: " + strings.Join(currencies, ", "),
		loc:         loc,
		now:         now,
	}
}

// Today returns the current business date as a UTC midnight value.
func (v *Validator) Today() time.Time {
	return DateOf(v.now(), v.loc)
}

// DateOf truncates t to its calendar date in loc, expressed as UTC midnight so
// it compares equal to dates parsed with DateLayout.
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Validate returns the normalized batch, or a *ValidationErrors describing
// every violation found.
func (v *Validator) Validate(raw RawBatch) (*ValidBatch, error) {
	errs := newValidationErrors()
	today := v.Today()

	var owner uuid.UUID
	ownerID := strings.TrimSpace(raw.OwnerID)
	if raw.ownerNotString {
		errs.addBatch(FieldOwnerID, "must be a string")
	} else if ownerID == "" {
		errs.addBatch(FieldOwnerID, "must be filled")
	} else if parsed, err := uuid.Parse(ownerID); err != nil {
		errs.addBatch(FieldOwnerID, "must be a valid UUID")
	} else {
		owner = parsed
	}

	if raw.paymentsNotArray {
		errs.addBatch(FieldPayments, "must be an array")
	} else if len(raw.Payments) == 0 {
		errs.addBatch(FieldPayments, "must contain at least one payment")
	}

	instructions := make([]NewInstruction, 0, len(raw.Payments))
	for i, rec := range raw.Payments {
		instructions = append(instructions, v.validateRecord(i, rec, today, errs))
	}

	if !errs.Empty() {
		return nil, errs
	}
	return &ValidBatch{OwnerID: owner, Instructions: instructions}, nil
}

func (v *Validator) validateRecord(i int, rec RawInstruction, today time.Time, errs *ValidationErrors) NewInstruction {
	out := NewInstruction{
		EmployeeID:    strings.TrimSpace(rec.EmployeeID),
		Currency:      rec.Currency,
		RoutingCode:   rec.RoutingCode,
		AccountNumber: rec.AccountNumber,
	}

	if rec.notObject {
		errs.addRecord(i, FieldPayment, "must be an object")
		return out
	}
	for _, field := range []string{FieldEmployeeID, FieldCurrency, FieldRoutingCode, FieldAccountNumber, FieldPayDate} {
		if rec.notString[field] {
			errs.addRecord(i, field, "must be a string")
		}
	}

	if out.EmployeeID == "" && !rec.notString[FieldEmployeeID] {
		errs.addRecord(i, FieldEmployeeID, "must be filled")
	}

	amount, msg := parseAmount(rec.AmountMinorUnits)
	if msg != "" {
		errs.addRecord(i, FieldAmountMinorUnits, msg)
	}
	out.AmountMinorUnits = amount

	switch _, ok := v.currencies[rec.Currency]; {
	case rec.notString[FieldCurrency]:
	case rec.Currency == "":
		errs.addRecord(i, FieldCurrency, "is missing")
	case !ok:
		errs.addRecord(i, FieldCurrency, v.currencyMsg)
	}

	if !rec.notString[FieldRoutingCode] && !digitsBetween(rec.RoutingCode, 6, 6) {
		errs.addRecord(i, FieldRoutingCode, "must be 6 digits")
	}
	if !rec.notString[FieldAccountNumber] && !digitsBetween(rec.AccountNumber, 6, 9) {
		errs.addRecord(i, FieldAccountNumber, "must be 6-9 digits")
	}

	switch payDate, err := time.Parse(DateLayout, strings.TrimSpace(rec.PayDate)); {
	case rec.notString[FieldPayDate]:
	case strings.TrimSpace(rec.PayDate) == "":
		errs.addRecord(i, FieldPayDate, "is missing")
	case err != nil:
		errs.addRecord(i, FieldPayDate, "must be a date (YYYY-MM-DD)")
	case payDate.Before(today):
		errs.addRecord(i, FieldPayDate, "can't be in the past")
	default:
		out.PayDate = payDate
	}

	return out
}

func parseAmount(raw []byte) (int64, string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, "is missing"
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	switch {
	case errors.Is(err, strconv.ErrRange) && raw[0] == '-':
		return 0, "must be greater than 0"
	case errors.Is(err, strconv.ErrRange):
		return 0, fmt.Sprintf("must be at most %d", int64(math.MaxInt64))
	case err != nil:
		return 0, "must be an integer"
	}
	if n <= 0 {
		return 0, "must be greater than 0"
	}
	return n, ""
}

// digitsBetween reports whether s consists of min..max ASCII digits.
func digitsBetween(s string, min, max int) bool {
	if len(s) < min || len(s) > max {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
