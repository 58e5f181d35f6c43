package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/loan"
)

// LoanRepository is an append-only transaction log with a balance projection
// per loan, in the shape of a ledger store.
type LoanRepository struct {
	mu           sync.RWMutex
	loans        map[string]loan.Loan
	transactions map[string][]loan.Transaction // by loan
	idempotency  map[string]bool
}

func NewLoanRepository() *LoanRepository {
	return &LoanRepository{
		loans:        make(map[string]loan.Loan),
		transactions: make(map[string][]loan.Transaction),
		idempotency:  make(map[string]bool),
	}
}

func (r *LoanRepository) Create(_ context.Context, l loan.Loan) (loan.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.ID == "" {
		l.ID = newID()
	}
	r.loans[l.ID] = l
	return l, nil
}

func (r *LoanRepository) GetByID(_ context.Context, id string, companyID string) (loan.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.loans[id]
	if !ok || l.CompanyID != companyID {
		return loan.Loan{}, loan.ErrLoanNotFound
	}
	return l, nil
}

func (r *LoanRepository) ListByEmployees(_ context.Context, companyID string, employeeIDs []string, status *loan.Status) ([]loan.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []loan.Loan
	for _, l := range r.loans {
		if l.CompanyID != companyID || (status != nil && l.Status != *status) {
			continue
		}
		if len(employeeIDs) > 0 && !contains(employeeIDs, l.EmployeeID) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *LoanRepository) UpdateStatus(_ context.Context, l loan.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.loans[l.ID]
	if !ok || current.CompanyID != l.CompanyID {
		return loan.ErrLoanNotFound
	}
	if current.Version != l.Version-1 {
		return loan.ErrConcurrentModification
	}
	r.loans[l.ID] = l
	return nil
}

func (r *LoanRepository) ListTransactions(_ context.Context, loanID string, companyID string) ([]loan.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []loan.Transaction
	for _, t := range r.transactions[loanID] {
		if t.CompanyID == companyID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *LoanRepository) ListTransactionsByEntry(_ context.Context, entryID string, companyID string) ([]loan.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []loan.Transaction
	for _, id := range sortedKeys(r.transactions) {
		for _, t := range r.transactions[id] {
			if t.CompanyID == companyID && t.EntryID != nil && *t.EntryID == entryID {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (r *LoanRepository) AppendTransaction(_ context.Context, tx loan.Transaction, l loan.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx.IdempotencyKey != "" && r.idempotency[tx.IdempotencyKey] {
		return loan.ErrDuplicateTransaction
	}
	current, ok := r.loans[l.ID]
	if !ok {
		return loan.ErrLoanNotFound
	}
	if current.Version != l.Version-1 {
		return loan.ErrConcurrentModification
	}
	if tx.ID == "" {
		tx.ID = newID()
	}
	r.transactions[l.ID] = append(r.transactions[l.ID], tx)
	if tx.IdempotencyKey != "" {
		r.idempotency[tx.IdempotencyKey] = true
	}
	r.loans[l.ID] = l
	return nil
}

type AdjustmentRepository struct {
	mu          sync.RWMutex
	adjustments map[string]loan.Adjustment
}

func NewAdjustmentRepository() *AdjustmentRepository {
	return &AdjustmentRepository{adjustments: make(map[string]loan.Adjustment)}
}

func (r *AdjustmentRepository) Create(_ context.Context, a loan.Adjustment) (loan.Adjustment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		a.ID = newID()
	}
	r.adjustments[a.ID] = a
	return a, nil
}

func (r *AdjustmentRepository) GetByID(_ context.Context, id string, companyID string) (loan.Adjustment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adjustments[id]
	if !ok || a.CompanyID != companyID {
		return loan.Adjustment{}, loan.ErrAdjustmentNotFound
	}
	return a, nil
}

func (r *AdjustmentRepository) Update(_ context.Context, a loan.Adjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.adjustments[a.ID]; !ok || current.CompanyID != a.CompanyID {
		return loan.ErrAdjustmentNotFound
	}
	r.adjustments[a.ID] = a
	return nil
}

func (r *AdjustmentRepository) ListApplicable(_ context.Context, companyID string, employeeIDs []string, from, to time.Time) ([]loan.Adjustment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []loan.Adjustment
	for _, a := range r.adjustments {
		if a.CompanyID != companyID || !a.AppliesTo(from, to) {
			continue
		}
		if len(employeeIDs) > 0 && !contains(employeeIDs, a.EmployeeID) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
