package loan

import (
	"context"
	"time"
)

type LoanRepository interface {
	Create(ctx context.Context, loan Loan) (Loan, error)
	GetByID(ctx context.Context, id string, companyID string) (Loan, error)
	ListByEmployees(ctx context.Context, companyID string, employeeIDs []string, status *Status) ([]Loan, error)
	// UpdateStatus fails with ErrConcurrentModification unless the stored
	// version matches loan.Version-1.
	UpdateStatus(ctx context.Context, loan Loan) error
	ListTransactions(ctx context.Context, loanID string, companyID string) ([]Transaction, error)
	ListTransactionsByEntry(ctx context.Context, entryID string, companyID string) ([]Transaction, error)
	// AppendTransaction stores tx and the loan projection it produced in one
	// unit. A reused idempotency key yields ErrDuplicateTransaction.
	AppendTransaction(ctx context.Context, tx Transaction, loan Loan) error
}

type AdjustmentRepository interface {
	Create(ctx context.Context, adj Adjustment) (Adjustment, error)
	GetByID(ctx context.Context, id string, companyID string) (Adjustment, error)
	Update(ctx context.Context, adj Adjustment) error
	// ListApplicable returns active and completed adjustments overlapping [from, to].
	ListApplicable(ctx context.Context, companyID string, employeeIDs []string, from, to time.Time) ([]Adjustment, error)
}
