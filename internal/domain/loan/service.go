package loan

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type LoanService interface {
	CreateLoan(ctx context.Context, req CreateLoanRequest) (Loan, error)
	ActivateLoan(ctx context.Context, req LoanActionRequest) (Loan, error)
	CancelLoan(ctx context.Context, req LoanActionRequest) (Loan, error)
	GetLoan(ctx context.Context, companyID, id string) (Loan, []Transaction, error)
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (Loan, error)

	// Payroll hooks
	ActiveLoans(ctx context.Context, companyID string, employeeIDs []string) ([]Loan, error)
	ApplyPayrollDeduction(ctx context.Context, req PayrollDeduction) (Transaction, error)
	ReverseEntryDeductions(ctx context.Context, companyID, entryID, actor string) ([]Transaction, error)

	CreateAdjustment(ctx context.Context, req CreateAdjustmentRequest) (Adjustment, error)
	ActivateAdjustment(ctx context.Context, req AdjustmentActionRequest) (Adjustment, error)
	CancelAdjustment(ctx context.Context, req AdjustmentActionRequest) (Adjustment, error)
	EndAdjustment(ctx context.Context, req AdjustmentActionRequest) (Adjustment, error)
	ActiveAdjustments(ctx context.Context, companyID string, employeeIDs []string, from, to time.Time) ([]Adjustment, error)
}

// PayrollDeduction is one approved entry's installment for one loan.
type PayrollDeduction struct {
	CompanyID string
	LoanID    string
	EntryID   string
	Amount    decimal.Decimal
	Actor     string
}
