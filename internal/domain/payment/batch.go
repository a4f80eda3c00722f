package payment

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
)

// RawBatch is an untrusted intake payload. Fields holding the wrong JSON type
// decode without error and are reported by Validate.
type RawBatch struct {
	OwnerID  string           `json:"ownerID"`
	Payments []RawInstruction `json:"payments"`

	ownerNotString   bool
	paymentsNotArray bool
}

// RawInstruction is one untrusted record of a RawBatch. The amount is kept
// as raw JSON so non-integer values can be reported instead of failing decode.
type RawInstruction struct {
	EmployeeID       string          `json:"employeeID"`
	AmountMinorUnits json.RawMessage `json:"amountMinorUnits"`
	Currency         string          `json:"currency"`
	RoutingCode      string          `json:"routingCode"`
	AccountNumber    string          `json:"accountNumber"`
	PayDate          string          `json:"payDate"`

	notObject bool
	notString map[string]bool
}

type rawBatchJSON struct {
	OwnerID  json.RawMessage `json:"ownerID"`
	Payments json.RawMessage `json:"payments"`
}

type rawInstructionJSON struct {
	EmployeeID       json.RawMessage `json:"employeeID"`
	AmountMinorUnits json.RawMessage `json:"amountMinorUnits"`
	Currency         json.RawMessage `json:"currency"`
	RoutingCode      json.RawMessage `json:"routingCode"`
	AccountNumber    json.RawMessage `json:"accountNumber"`
	PayDate          json.RawMessage `json:"payDate"`
}

// UnmarshalJSON fails only when the payload is not a JSON object.
func (b *RawBatch) UnmarshalJSON(data []byte) error {
	var aux rawBatchJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*b = RawBatch{}

	var ok bool
	if b.OwnerID, ok = decodeString(aux.OwnerID); !ok {
		b.ownerNotString = true
	}

	payments := bytes.TrimSpace(aux.Payments)
	switch {
	case isNull(payments):
	case payments[0] == '[':
		if err := json.Unmarshal(payments, &b.Payments); err != nil {
			return err
		}
	default:
		b.paymentsNotArray = true
	}
	return nil
}

// UnmarshalJSON never fails on type mismatches; they are recorded for Validate.
func (r *RawInstruction) UnmarshalJSON(data []byte) error {
	*r = RawInstruction{}
	var aux rawInstructionJSON
	if isNull(bytes.TrimSpace(data)) || json.Unmarshal(data, &aux) != nil {
		r.notObject = true
		return nil
	}

	r.AmountMinorUnits = aux.AmountMinorUnits
	for field, dst := range map[string]struct {
		raw json.RawMessage
		out *string
	}{
		FieldEmployeeID:    {aux.EmployeeID, &r.EmployeeID},
		FieldCurrency:      {aux.Currency, &r.Currency},
		FieldRoutingCode:   {aux.RoutingCode, &r.RoutingCode},
		FieldAccountNumber: {aux.AccountNumber, &r.AccountNumber},
		FieldPayDate:       {aux.PayDate, &r.PayDate},
	} {
		v, ok := decodeString(dst.raw)
		if !ok {
			if r.notString == nil {
				r.notString = make(map[string]bool)
			}
			r.notString[field] = true
			continue
		}
		*dst.out = v
	}
	return nil
}

// decodeString treats absent and null values as the empty string.
func decodeString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return "", true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isNull(raw []byte) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// ValidBatch is the normalized result of a successful validation.
type ValidBatch struct {
	OwnerID      uuid.UUID
	Instructions []NewInstruction
}
