package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusActive || to == StatusCancelled
	case StatusActive:
		return to == StatusCompleted || to == StatusCancelled
	case StatusCompleted:
		// a reversal can reopen a loan that a voided entry had paid off
		return to == StatusActive
	case StatusCancelled:
		return false
	}
	return false
}

// Loan is an employee loan repaid through payroll. RemainingBalance is the
// projection of Principal and the loan's transactions.
type Loan struct {
	ID                string
	CompanyID         string
	EmployeeID        string
	Kind              string
	Principal         decimal.Decimal
	InstallmentAmount decimal.Decimal
	StartDate         time.Time
	Status            Status
	RemainingBalance  decimal.Decimal
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PlannedDeduction is the installment due in a period ending on periodEnd:
// min(installment, remaining) for active loans already started.
func (l Loan) PlannedDeduction(periodEnd time.Time) decimal.Decimal {
	if l.Status != StatusActive || l.StartDate.After(periodEnd) || !l.RemainingBalance.IsPositive() {
		return decimal.Zero
	}
	return decimal.Min(l.InstallmentAmount, l.RemainingBalance)
}

type TransactionKind string

const (
	TxPayrollDeduction TransactionKind = "payroll_deduction"
	TxPayment          TransactionKind = "payment"
	TxReversal         TransactionKind = "reversal"
)

// Transaction is an append-only ledger line. Amount is always positive; Kind
// decides the sign.
type Transaction struct {
	ID             string
	LoanID         string
	CompanyID      string
	Kind           TransactionKind
	Amount         decimal.Decimal
	EntryID        *string
	ReversesID     *string
	IdempotencyKey string
	Actor          string
	Remarks        string
	OccurredAt     time.Time
}

// Signed is the transaction's effect on the remaining balance.
func (t Transaction) Signed() decimal.Decimal {
	if t.Kind == TxReversal {
		return t.Amount
	}
	return t.Amount.Neg()
}

// Balance folds transactions onto the principal.
func Balance(principal decimal.Decimal, txs []Transaction) decimal.Decimal {
	b := principal
	for _, t := range txs {
		b = b.Add(t.Signed())
	}
	return b
}

type AdjustmentKind string

const (
	AdjustmentAllowance AdjustmentKind = "allowance"
	AdjustmentDeduction AdjustmentKind = "deduction"
)

func (k AdjustmentKind) Valid() bool {
	return k == AdjustmentAllowance || k == AdjustmentDeduction
}

// Adjustment is an allowance or deduction outside the time-based pay. A
// recurring adjustment applies to every period it overlaps; a one-time
// adjustment to the period containing EffectiveFrom. Completed marks a
// recurring adjustment that was ended; it still applies up to EffectiveTo.
type Adjustment struct {
	ID            string
	CompanyID     string
	EmployeeID    string
	Kind          AdjustmentKind
	Code          string
	Name          string
	Amount        decimal.Decimal
	Taxable       bool
	Recurring     bool
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AppliesTo reports whether the adjustment belongs in the period [from, to].
func (a Adjustment) AppliesTo(from, to time.Time) bool {
	if a.Status != StatusActive && a.Status != StatusCompleted {
		return false
	}
	if !a.Recurring {
		return !a.EffectiveFrom.Before(from) && !a.EffectiveFrom.After(to)
	}
	if a.EffectiveFrom.After(to) {
		return false
	}
	return a.EffectiveTo == nil || !a.EffectiveTo.Before(from)
}
