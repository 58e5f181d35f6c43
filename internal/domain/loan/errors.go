package loan

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrLoanNotFound            = errors.New("loan not found")
	ErrAdjustmentNotFound      = errors.New("adjustment not found")
	ErrInvalidLoanTransition   = errors.New("loan status transition not allowed")
	ErrInvalidAdjustmentChange = errors.New("adjustment status transition not allowed")
	ErrLoanNotActive           = errors.New("loan is not active")
	ErrPaymentExceedsBalance   = errors.New("payment exceeds remaining balance")
	ErrDeductionExceedsBalance = errors.New("payroll deduction exceeds remaining balance")
	ErrDeductionMismatch       = errors.New("payroll deduction already booked with a different amount")
	ErrDuplicateTransaction    = errors.New("loan transaction already recorded")
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrConcurrentModification  = errors.New("loan was modified concurrently")
)

// BalanceError reports a rejected movement against the balance it hit.
type BalanceError struct {
	LoanID    string
	Balance   decimal.Decimal
	Requested decimal.Decimal
	Err       error
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("loan %s: requested %s against balance %s: %v",
		e.LoanID, e.Requested.StringFixed(2), e.Balance.StringFixed(2), e.Err)
}

func (e *BalanceError) Unwrap() error {
	return e.Err
}
