package app

import (
	"encoding/json"
	"fmt"
	"time"

	"payment_batch_service/internal/domain/payment"

	"github.com/google/uuid"

	_ "time/tzdata"
)

var (
	sydney, _ = time.LoadLocation("Australia/Sydney")
	// 2026-10-15 09:00 in Sydney.
	fixedNow = time.Date(2026, 10, 14, 22, 0, 0, 0, time.UTC)
	today    = time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
)

func clock() time.Time { return fixedNow }

func rawInstruction(employee string, amount int64, payDate string) payment.RawInstruction {
	return payment.RawInstruction{
		EmployeeID:       employee,
		AmountMinorUnits: json.RawMessage(fmt.Sprint(amount)),
		Currency:         "AUD",
		RoutingCode:      "062000",
		AccountNumber:    "12345678",
		PayDate:          payDate,
	}
}

func rawBatch(owner uuid.UUID, payments ...payment.RawInstruction) payment.RawBatch {
	return payment.RawBatch{OwnerID: owner.String(), Payments: payments}
}

func newInstruction(employee string, amount int64, payDate time.Time) payment.NewInstruction {
	return payment.NewInstruction{
		EmployeeID:       employee,
		AmountMinorUnits: amount,
		Currency:         "AUD",
		RoutingCode:      "062000",
		AccountNumber:    "12345678",
		PayDate:          payDate,
	}
}
