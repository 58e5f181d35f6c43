package loan

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type CreateLoanRequest struct {
	CompanyID         string          `json:"-"`
	EmployeeID        string          `json:"employee_id"`
	Kind              string          `json:"kind"`
	Principal         decimal.Decimal `json:"principal"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	StartDate         string          `json:"start_date"`
}

func (r *CreateLoanRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}
	if validator.IsEmpty(r.Kind) {
		errs.Add("kind", "kind is required")
	}
	if !r.Principal.IsPositive() {
		errs.Add("principal", ErrInvalidAmount.Error())
	}
	if !r.InstallmentAmount.IsPositive() {
		errs.Add("installment_amount", ErrInvalidAmount.Error())
	} else if r.InstallmentAmount.GreaterThan(r.Principal) {
		errs.Add("installment_amount", "installment_amount must not exceed principal")
	}
	if _, ok := validator.IsValidDate(r.StartDate); !ok {
		errs.Add("start_date", "start_date must be YYYY-MM-DD")
	}

	return errs.Err()
}

type LoanActionRequest struct {
	CompanyID string `json:"-"`
	LoanID    string `json:"-"`
	Actor     string `json:"-"`
}

type RecordPaymentRequest struct {
	CompanyID      string          `json:"-"`
	LoanID         string          `json:"-"`
	Actor          string          `json:"-"`
	Amount         decimal.Decimal `json:"amount"`
	Remarks        string          `json:"remarks"`
	IdempotencyKey string          `json:"idempotency_key"`
}

func (r *RecordPaymentRequest) Validate() error {
	var errs validator.ValidationErrors

	if !r.Amount.IsPositive() {
		errs.Add("amount", ErrInvalidAmount.Error())
	}
	if validator.IsEmpty(r.IdempotencyKey) {
		errs.Add("idempotency_key", "idempotency_key is required")
	}

	return errs.Err()
}

type CreateAdjustmentRequest struct {
	CompanyID     string          `json:"-"`
	EmployeeID    string          `json:"employee_id"`
	Kind          string          `json:"kind"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"`
	Taxable       bool            `json:"taxable"`
	Recurring     bool            `json:"recurring"`
	EffectiveFrom string          `json:"effective_from"`
	EffectiveTo   *string         `json:"effective_to,omitempty"`
}

func (r *CreateAdjustmentRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}
	if !AdjustmentKind(r.Kind).Valid() {
		errs.Add("kind", "kind must be 'allowance' or 'deduction'")
	}
	if validator.IsEmpty(r.Code) {
		errs.Add("code", "code is required")
	}
	if !r.Amount.IsPositive() {
		errs.Add("amount", ErrInvalidAmount.Error())
	}
	from, ok := validator.IsValidDate(r.EffectiveFrom)
	if !ok {
		errs.Add("effective_from", "effective_from must be YYYY-MM-DD")
	}
	if r.EffectiveTo != nil {
		to, okTo := validator.IsValidDate(*r.EffectiveTo)
		switch {
		case !okTo:
			errs.Add("effective_to", "effective_to must be YYYY-MM-DD")
		case !r.Recurring:
			errs.Add("effective_to", "only recurring adjustments have an end date")
		case ok && to.Before(from):
			errs.Add("effective_to", "effective_to must not precede effective_from")
		}
	}

	return errs.Err()
}

func (r *CreateAdjustmentRequest) ToEntity() Adjustment {
	from, _ := validator.IsValidDate(r.EffectiveFrom)
	adj := Adjustment{
		CompanyID:     r.CompanyID,
		EmployeeID:    r.EmployeeID,
		Kind:          AdjustmentKind(r.Kind),
		Code:          r.Code,
		Name:          r.Name,
		Amount:        r.Amount,
		Taxable:       r.Taxable,
		Recurring:     r.Recurring,
		EffectiveFrom: from,
		Status:        StatusPending,
	}
	if r.EffectiveTo != nil {
		to, _ := validator.IsValidDate(*r.EffectiveTo)
		adj.EffectiveTo = &to
	}
	return adj
}

type AdjustmentActionRequest struct {
	CompanyID    string  `json:"-"`
	AdjustmentID string  `json:"-"`
	Actor        string  `json:"-"`
	EndDate      *string `json:"end_date,omitempty"`
}

type LoanResponse struct {
	ID                string                `json:"id"`
	EmployeeID        string                `json:"employee_id"`
	Kind              string                `json:"kind"`
	Principal         decimal.Decimal       `json:"principal"`
	InstallmentAmount decimal.Decimal       `json:"installment_amount"`
	RemainingBalance  decimal.Decimal       `json:"remaining_balance"`
	StartDate         string                `json:"start_date"`
	Status            string                `json:"status"`
	Transactions      []TransactionResponse `json:"transactions,omitempty"`
}

type TransactionResponse struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	EntryID    *string         `json:"entry_id,omitempty"`
	Remarks    string          `json:"remarks,omitempty"`
	OccurredAt string          `json:"occurred_at"`
}

func NewLoanResponse(l Loan, txs []Transaction) LoanResponse {
	resp := LoanResponse{
		ID:                l.ID,
		EmployeeID:        l.EmployeeID,
		Kind:              l.Kind,
		Principal:         l.Principal,
		InstallmentAmount: l.InstallmentAmount,
		RemainingBalance:  l.RemainingBalance,
		StartDate:         l.StartDate.Format(time.DateOnly),
		Status:            string(l.Status),
	}
	for _, t := range txs {
		resp.Transactions = append(resp.Transactions, TransactionResponse{
			ID:         t.ID,
			Kind:       string(t.Kind),
			Amount:     t.Amount,
			EntryID:    t.EntryID,
			Remarks:    t.Remarks,
			OccurredAt: t.OccurredAt.Format(time.RFC3339),
		})
	}
	return resp
}

type AdjustmentResponse struct {
	ID            string          `json:"id"`
	EmployeeID    string          `json:"employee_id"`
	Kind          string          `json:"kind"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"`
	Taxable       bool            `json:"taxable"`
	Recurring     bool            `json:"recurring"`
	EffectiveFrom string          `json:"effective_from"`
	EffectiveTo   *string         `json:"effective_to,omitempty"`
	Status        string          `json:"status"`
}

func NewAdjustmentResponse(a Adjustment) AdjustmentResponse {
	var to *string
	if a.EffectiveTo != nil {
		s := a.EffectiveTo.Format(time.DateOnly)
		to = &s
	}
	return AdjustmentResponse{
		ID:            a.ID,
		EmployeeID:    a.EmployeeID,
		Kind:          string(a.Kind),
		Code:          a.Code,
		Name:          a.Name,
		Amount:        a.Amount,
		Taxable:       a.Taxable,
		Recurring:     a.Recurring,
		EffectiveFrom: a.EffectiveFrom.Format(time.DateOnly),
		EffectiveTo:   to,
		Status:        string(a.Status),
	}
}
