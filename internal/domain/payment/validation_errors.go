package payment

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Batch-level field names used in ValidationErrors.
const (
	FieldOwnerID  = "ownerID"
	FieldPayments = "payments"
)

// Record-level field names used in ValidationErrors.
const (
	FieldEmployeeID       = "employeeID"
	FieldAmountMinorUnits = "amountMinorUnits"
	FieldCurrency         = "currency"
	FieldRoutingCode      = "routingCode"
	FieldAccountNumber    = "accountNumber"
	FieldPayDate          = "payDate"
	// FieldPayment addresses a record whose JSON value is not an object.
	FieldPayment = "payment"
)

// FieldKey addresses one field of one record in a batch.
type FieldKey struct {
	Index int
	Field string
}

// ValidationErrors collects every rule violation found in a batch.
type ValidationErrors struct {
	Batch   map[string][]string
	Records map[FieldKey][]string
}

func newValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Batch:   make(map[string][]string),
		Records: make(map[FieldKey][]string),
	}
}

func (e *ValidationErrors) addBatch(field, msg string) {
	e.Batch[field] = append(e.Batch[field], msg)
}

func (e *ValidationErrors) addRecord(index int, field, msg string) {
	key := FieldKey{Index: index, Field: field}
	e.Records[key] = append(e.Records[key], msg)
}

// Empty reports whether no violation was recorded.
func (e *ValidationErrors) Empty() bool {
	return e == nil || (len(e.Batch) == 0 && len(e.Records) == 0)
}

// For returns the messages recorded for one record field.
func (e *ValidationErrors) For(index int, field string) []string {
	if e == nil {
		return nil
	}
	return e.Records[FieldKey{Index: index, Field: field}]
}

// Error lists violations in a stable order: batch fields first, then records
// by index and field name.
func (e *ValidationErrors) Error() string {
	var parts []string

	batchFields := make([]string, 0, len(e.Batch))
	for f := range e.Batch {
		batchFields = append(batchFields, f)
	}
	sort.Strings(batchFields)
	for _, f := range batchFields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(e.Batch[f], ", ")))
	}

	keys := make([]FieldKey, 0, len(e.Records))
	for k := range e.Records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Index != keys[j].Index {
			return keys[i].Index < keys[j].Index
		}
		return keys[i].Field < keys[j].Field
	})
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("payments[%d].%s: %s", k.Index, k.Field, strings.Join(e.Records[k], ", ")))
	}

	return "invalid payment batch: " + strings.Join(parts, "; ")
}

// MarshalJSON renders the errors as
// {"ownerID": [...], "payments": {"0": {"amountMinorUnits": [...]}}}.
func (e *ValidationErrors) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Batch)+1)
	for f, msgs := range e.Batch {
		out[f] = msgs
	}
	if len(e.Records) > 0 {
		records := make(map[string]map[string][]string)
		for k, msgs := range e.Records {
			idx := strconv.Itoa(k.Index)
			if records[idx] == nil {
				records[idx] = make(map[string][]string)
			}
			records[idx][k.Field] = msgs
		}
		out[FieldPayments] = records
	}
	return json.Marshal(out)
}
