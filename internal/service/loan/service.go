package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/google/uuid"
)

type loanServiceImpl struct {
	loanRepo       loan.LoanRepository
	adjustmentRepo loan.AdjustmentRepository
	employeeRepo   employee.EmployeeRepository
	clock          clock.Clock
	loanLocks      *lock.KeyedMutex
}

func NewLoanService(
	loanRepo loan.LoanRepository,
	adjustmentRepo loan.AdjustmentRepository,
	employeeRepo employee.EmployeeRepository,
	clk clock.Clock,
) loan.LoanService {
	if clk == nil {
		clk = clock.System()
	}
	return &loanServiceImpl{
		loanRepo:       loanRepo,
		adjustmentRepo: adjustmentRepo,
		employeeRepo:   employeeRepo,
		clock:          clk,
		loanLocks:      lock.NewKeyedMutex(),
	}
}

func (s *loanServiceImpl) CreateLoan(ctx context.Context, req loan.CreateLoanRequest) (loan.Loan, error) {
	if err := req.Validate(); err != nil {
		return loan.Loan{}, err
	}
	if _, err := s.employeeRepo.GetByID(ctx, req.EmployeeID, req.CompanyID); err != nil {
		return loan.Loan{}, err
	}

	start, _ := validator.IsValidDate(req.StartDate)
	now := s.clock.Now()
	created, err := s.loanRepo.Create(ctx, loan.Loan{
		CompanyID:         req.CompanyID,
		EmployeeID:        req.EmployeeID,
		Kind:              req.Kind,
		Principal:         req.Principal.Round(2),
		InstallmentAmount: req.InstallmentAmount.Round(2),
		StartDate:         start,
		Status:            loan.StatusPending,
		RemainingBalance:  req.Principal.Round(2),
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return loan.Loan{}, fmt.Errorf("failed to create loan: %w", err)
	}

	slog.Info("loan created", "loan_id", created.ID, "employee_id", created.EmployeeID, "principal", created.Principal.StringFixed(2))
	return created, nil
}

func (s *loanServiceImpl) ActivateLoan(ctx context.Context, req loan.LoanActionRequest) (loan.Loan, error) {
	return s.transition(ctx, req, loan.StatusActive)
}

func (s *loanServiceImpl) CancelLoan(ctx context.Context, req loan.LoanActionRequest) (loan.Loan, error) {
	return s.transition(ctx, req, loan.StatusCancelled)
}

func (s *loanServiceImpl) transition(ctx context.Context, req loan.LoanActionRequest, to loan.Status) (loan.Loan, error) {
	unlock := s.loanLocks.Lock(req.LoanID)
	defer unlock()

	l, err := s.loanRepo.GetByID(ctx, req.LoanID, req.CompanyID)
	if err != nil {
		return loan.Loan{}, err
	}
	if !l.Status.CanTransition(to) {
		return loan.Loan{}, fmt.Errorf("%w: %s to %s", loan.ErrInvalidLoanTransition, l.Status, to)
	}

	from := l.Status
	l.Status = to
	l.Version++
	l.UpdatedAt = s.clock.Now()
	if err := s.loanRepo.UpdateStatus(ctx, l); err != nil {
		return loan.Loan{}, err
	}

	slog.Info("loan status changed", "loan_id", l.ID, "from", from, "to", to, "actor", req.Actor)
	return l, nil
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, companyID, id string) (loan.Loan, []loan.Transaction, error) {
	l, err := s.loanRepo.GetByID(ctx, id, companyID)
	if err != nil {
		return loan.Loan{}, nil, err
	}
	txs, err := s.loanRepo.ListTransactions(ctx, id, companyID)
	if err != nil {
		return loan.Loan{}, nil, fmt.Errorf("failed to list loan transactions: %w", err)
	}
	return l, txs, nil
}

// RecordPayment books a repayment made outside payroll. Replaying the same
// idempotency key returns the loan unchanged.
func (s *loanServiceImpl) RecordPayment(ctx context.Context, req loan.RecordPaymentRequest) (loan.Loan, error) {
	if err := req.Validate(); err != nil {
		return loan.Loan{}, err
	}
	unlock := s.loanLocks.Lock(req.LoanID)
	defer unlock()

	l, txs, err := s.GetLoan(ctx, req.CompanyID, req.LoanID)
	if err != nil {
		return loan.Loan{}, err
	}
	key := "payment:" + req.LoanID + ":" + req.IdempotencyKey
	for _, t := range txs {
		if t.IdempotencyKey == key {
			return l, nil
		}
	}
	if l.Status != loan.StatusActive {
		return loan.Loan{}, fmt.Errorf("%w: status %s", loan.ErrLoanNotActive, l.Status)
	}
	amount := req.Amount.Round(2)
	if amount.GreaterThan(l.RemainingBalance) {
		return loan.Loan{}, &loan.BalanceError{LoanID: l.ID, Balance: l.RemainingBalance, Requested: amount, Err: loan.ErrPaymentExceedsBalance}
	}

	tx := loan.Transaction{
		LoanID:         l.ID,
		CompanyID:      l.CompanyID,
		Kind:           loan.TxPayment,
		Amount:         amount,
		IdempotencyKey: key,
		Actor:          req.Actor,
		Remarks:        req.Remarks,
	}
	next, err := s.append(ctx, l, tx)
	if err != nil {
		return loan.Loan{}, err
	}
	return next, nil
}

func (s *loanServiceImpl) ActiveLoans(ctx context.Context, companyID string, employeeIDs []string) ([]loan.Loan, error) {
	active := loan.StatusActive
	return s.loanRepo.ListByEmployees(ctx, companyID, employeeIDs, &active)
}

// ApplyPayrollDeduction books the installment of an approved entry. It is
// idempotent per (entry, loan): a live deduction of the same amount is
// returned as is, one of another amount is rejected with
// ErrDeductionMismatch until it is reversed. A deduction larger than the
// balance is rejected.
func (s *loanServiceImpl) ApplyPayrollDeduction(ctx context.Context, req loan.PayrollDeduction) (loan.Transaction, error) {
	amount := req.Amount.Round(2)
	if !amount.IsPositive() {
		return loan.Transaction{}, loan.ErrInvalidAmount
	}
	unlock := s.loanLocks.Lock(req.LoanID)
	defer unlock()

	l, txs, err := s.GetLoan(ctx, req.CompanyID, req.LoanID)
	if err != nil {
		return loan.Transaction{}, err
	}

	reversed := reversedIDs(txs)
	attempts := 0
	for _, t := range txs {
		if t.Kind != loan.TxPayrollDeduction || t.EntryID == nil || *t.EntryID != req.EntryID {
			continue
		}
		if !reversed[t.ID] {
			if !t.Amount.Equal(amount) {
				return loan.Transaction{}, fmt.Errorf("%w: booked %s, requested %s", loan.ErrDeductionMismatch, t.Amount.StringFixed(2), amount.StringFixed(2))
			}
			return t, nil
		}
		attempts++
	}

	if l.Status != loan.StatusActive {
		return loan.Transaction{}, fmt.Errorf("%w: status %s", loan.ErrLoanNotActive, l.Status)
	}
	if amount.GreaterThan(l.RemainingBalance) {
		return loan.Transaction{}, &loan.BalanceError{LoanID: l.ID, Balance: l.RemainingBalance, Requested: amount, Err: loan.ErrDeductionExceedsBalance}
	}

	entryID := req.EntryID
	tx := loan.Transaction{
		ID:             newID(),
		LoanID:         l.ID,
		CompanyID:      l.CompanyID,
		Kind:           loan.TxPayrollDeduction,
		Amount:         amount,
		EntryID:        &entryID,
		IdempotencyKey: fmt.Sprintf("deduction:%s:%s:%d", req.EntryID, l.ID, attempts+1),
		Actor:          req.Actor,
	}
	if _, err := s.append(ctx, l, tx); err != nil {
		return loan.Transaction{}, err
	}
	return tx, nil
}

// ReverseEntryDeductions undoes every live deduction booked for a voided
// entry. A completed loan becomes active again.
func (s *loanServiceImpl) ReverseEntryDeductions(ctx context.Context, companyID, entryID, actor string) ([]loan.Transaction, error) {
	booked, err := s.loanRepo.ListTransactionsByEntry(ctx, entryID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entry deductions: %w", err)
	}

	var out []loan.Transaction
	for _, d := range booked {
		if d.Kind != loan.TxPayrollDeduction {
			continue
		}
		tx, err := s.reverse(ctx, companyID, d, actor)
		if err != nil {
			return out, err
		}
		if tx != nil {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (s *loanServiceImpl) reverse(ctx context.Context, companyID string, d loan.Transaction, actor string) (*loan.Transaction, error) {
	unlock := s.loanLocks.Lock(d.LoanID)
	defer unlock()

	l, txs, err := s.GetLoan(ctx, companyID, d.LoanID)
	if err != nil {
		return nil, err
	}
	if reversedIDs(txs)[d.ID] {
		return nil, nil
	}

	if l.Status == loan.StatusCompleted {
		l.Status = loan.StatusActive
	}
	reversesID := d.ID
	tx := loan.Transaction{
		ID:             newID(),
		LoanID:         l.ID,
		CompanyID:      l.CompanyID,
		Kind:           loan.TxReversal,
		Amount:         d.Amount,
		EntryID:        d.EntryID,
		ReversesID:     &reversesID,
		IdempotencyKey: "reversal:" + d.ID,
		Actor:          actor,
		Remarks:        "payroll deduction reversed",
	}
	if _, err := s.append(ctx, l, tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// append applies tx to the balance, completes a loan paid down to zero and
// stores both.
func (s *loanServiceImpl) append(ctx context.Context, l loan.Loan, tx loan.Transaction) (loan.Loan, error) {
	now := s.clock.Now()
	tx.OccurredAt = now

	l.RemainingBalance = l.RemainingBalance.Add(tx.Signed()).Round(2)
	if l.RemainingBalance.IsZero() && l.Status == loan.StatusActive {
		l.Status = loan.StatusCompleted
	}
	l.Version++
	l.UpdatedAt = now

	if err := s.loanRepo.AppendTransaction(ctx, tx, l); err != nil {
		if errors.Is(err, loan.ErrDuplicateTransaction) {
			return loan.Loan{}, fmt.Errorf("%w: %s", err, tx.IdempotencyKey)
		}
		return loan.Loan{}, fmt.Errorf("failed to append loan transaction: %w", err)
	}

	slog.Info("loan transaction recorded",
		"loan_id", l.ID,
		"kind", tx.Kind,
		"amount", tx.Amount.StringFixed(2),
		"balance", l.RemainingBalance.StringFixed(2),
		"status", l.Status,
	)
	return l, nil
}

func reversedIDs(txs []loan.Transaction) map[string]bool {
	out := make(map[string]bool)
	for _, t := range txs {
		if t.Kind == loan.TxReversal && t.ReversesID != nil {
			out[*t.ReversesID] = true
		}
	}
	return out
}

func (s *loanServiceImpl) CreateAdjustment(ctx context.Context, req loan.CreateAdjustmentRequest) (loan.Adjustment, error) {
	if err := req.Validate(); err != nil {
		return loan.Adjustment{}, err
	}
	if _, err := s.employeeRepo.GetByID(ctx, req.EmployeeID, req.CompanyID); err != nil {
		return loan.Adjustment{}, err
	}

	adj := req.ToEntity()
	adj.Amount = adj.Amount.Round(2)
	adj.CreatedAt = s.clock.Now()
	adj.UpdatedAt = adj.CreatedAt
	return s.adjustmentRepo.Create(ctx, adj)
}

func (s *loanServiceImpl) ActivateAdjustment(ctx context.Context, req loan.AdjustmentActionRequest) (loan.Adjustment, error) {
	return s.updateAdjustment(ctx, req, loan.StatusActive)
}

func (s *loanServiceImpl) CancelAdjustment(ctx context.Context, req loan.AdjustmentActionRequest) (loan.Adjustment, error) {
	return s.updateAdjustment(ctx, req, loan.StatusCancelled)
}

// EndAdjustment stops a recurring adjustment after EndDate, today when
// omitted. Periods up to the end date still pick it up.
func (s *loanServiceImpl) EndAdjustment(ctx context.Context, req loan.AdjustmentActionRequest) (loan.Adjustment, error) {
	return s.updateAdjustment(ctx, req, loan.StatusCompleted)
}

func (s *loanServiceImpl) updateAdjustment(ctx context.Context, req loan.AdjustmentActionRequest, to loan.Status) (loan.Adjustment, error) {
	adj, err := s.adjustmentRepo.GetByID(ctx, req.AdjustmentID, req.CompanyID)
	if err != nil {
		return loan.Adjustment{}, err
	}
	if !adj.Status.CanTransition(to) {
		return loan.Adjustment{}, fmt.Errorf("%w: %s to %s", loan.ErrInvalidAdjustmentChange, adj.Status, to)
	}

	now := s.clock.Now()
	if to == loan.StatusCompleted {
		if !adj.Recurring {
			return loan.Adjustment{}, fmt.Errorf("%w: only recurring adjustments can be ended", loan.ErrInvalidAdjustmentChange)
		}
		end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if req.EndDate != nil {
			d, ok := validator.IsValidDate(*req.EndDate)
			if !ok {
				var errs validator.ValidationErrors
				errs.Add("end_date", "end_date must be YYYY-MM-DD")
				return loan.Adjustment{}, errs
			}
			end = d
		}
		if end.Before(adj.EffectiveFrom) {
			return loan.Adjustment{}, fmt.Errorf("%w: end date precedes effective date", loan.ErrInvalidAdjustmentChange)
		}
		adj.EffectiveTo = &end
	}

	adj.Status = to
	adj.UpdatedAt = now
	if err := s.adjustmentRepo.Update(ctx, adj); err != nil {
		return loan.Adjustment{}, err
	}
	slog.Info("adjustment status changed", "adjustment_id", adj.ID, "status", to, "actor", req.Actor)
	return adj, nil
}

func (s *loanServiceImpl) ActiveAdjustments(ctx context.Context, companyID string, employeeIDs []string, from, to time.Time) ([]loan.Adjustment, error) {
	return s.adjustmentRepo.ListApplicable(ctx, companyID, employeeIDs, from, to)
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
