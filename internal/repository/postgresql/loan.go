package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type loanRepositoryImpl struct {
	db *database.DB
}

func NewLoanRepository(db *database.DB) loan.LoanRepository {
	return &loanRepositoryImpl{db: db}
}

const loanColumns = `
	id, company_id, employee_id, kind, principal, installment_amount, start_date,
	status, remaining_balance, version, created_at, updated_at
`

func scanLoan(row pgx.Row) (loan.Loan, error) {
	var l loan.Loan
	err := row.Scan(
		&l.ID, &l.CompanyID, &l.EmployeeID, &l.Kind, &l.Principal, &l.InstallmentAmount, &l.StartDate,
		&l.Status, &l.RemainingBalance, &l.Version, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

const transactionColumns = `
	id, loan_id, company_id, kind, amount, entry_id, reverses_id,
	idempotency_key, actor, remarks, occurred_at
`

func scanTransaction(row pgx.Row) (loan.Transaction, error) {
	var t loan.Transaction
	err := row.Scan(
		&t.ID, &t.LoanID, &t.CompanyID, &t.Kind, &t.Amount, &t.EntryID, &t.ReversesID,
		&t.IdempotencyKey, &t.Actor, &t.Remarks, &t.OccurredAt,
	)
	return t, err
}

// Create implements loan.LoanRepository.
func (r *loanRepositoryImpl) Create(ctx context.Context, l loan.Loan) (loan.Loan, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO loans (
			company_id, employee_id, kind, principal, installment_amount, start_date,
			status, remaining_balance, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING ` + loanColumns

	created, err := scanLoan(q.QueryRow(ctx, query,
		l.CompanyID, l.EmployeeID, l.Kind, l.Principal, l.InstallmentAmount, l.StartDate,
		l.Status, l.RemainingBalance, l.Version, l.CreatedAt,
	))
	if err != nil {
		return loan.Loan{}, fmt.Errorf("failed to create loan: %w", err)
	}
	return created, nil
}

// GetByID implements loan.LoanRepository.
func (r *loanRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (loan.Loan, error) {
	q := GetQuerier(ctx, r.db)

	l, err := scanLoan(q.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1 AND company_id = $2`, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return loan.Loan{}, loan.ErrLoanNotFound
		}
		return loan.Loan{}, fmt.Errorf("failed to get loan: %w", err)
	}
	return l, nil
}

// ListByEmployees implements loan.LoanRepository. No employee IDs lists the
// whole company.
func (r *loanRepositoryImpl) ListByEmployees(ctx context.Context, companyID string, employeeIDs []string, status *loan.Status) ([]loan.Loan, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE company_id = $1
		  AND (cardinality($2::uuid[]) = 0 OR employee_id = ANY($2::uuid[]))
		  AND ($3::text IS NULL OR status = $3)
		ORDER BY id
	`
	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}
	if employeeIDs == nil {
		employeeIDs = []string{}
	}

	rows, err := q.Query(ctx, query, companyID, employeeIDs, statusArg)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	var loans []loan.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

// UpdateStatus implements loan.LoanRepository.
func (r *loanRepositoryImpl) UpdateStatus(ctx context.Context, l loan.Loan) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE loans SET status = $3, remaining_balance = $4, version = $5, updated_at = $6
		WHERE id = $1 AND company_id = $2 AND version = $5 - 1
	`, l.ID, l.CompanyID, l.Status, l.RemainingBalance, l.Version, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, l.ID, l.CompanyID); err != nil {
			return err
		}
		return loan.ErrConcurrentModification
	}
	return nil
}

// ListTransactions implements loan.LoanRepository.
func (r *loanRepositoryImpl) ListTransactions(ctx context.Context, loanID string, companyID string) ([]loan.Transaction, error) {
	return r.listTransactions(ctx, `
		SELECT `+transactionColumns+`
		FROM loan_transactions
		WHERE loan_id = $1 AND company_id = $2
		ORDER BY occurred_at, id
	`, loanID, companyID)
}

// ListTransactionsByEntry implements loan.LoanRepository.
func (r *loanRepositoryImpl) ListTransactionsByEntry(ctx context.Context, entryID string, companyID string) ([]loan.Transaction, error) {
	return r.listTransactions(ctx, `
		SELECT `+transactionColumns+`
		FROM loan_transactions
		WHERE entry_id = $1 AND company_id = $2
		ORDER BY loan_id, occurred_at, id
	`, entryID, companyID)
}

func (r *loanRepositoryImpl) listTransactions(ctx context.Context, query string, args ...any) ([]loan.Transaction, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list loan transactions: %w", err)
	}
	defer rows.Close()

	var txs []loan.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// AppendTransaction implements loan.LoanRepository. The loan row is locked
// for the duration so the ledger line and the balance move together.
func (r *loanRepositoryImpl) AppendTransaction(ctx context.Context, tx loan.Transaction, l loan.Loan) error {
	if tx.ID == "" {
		tx.ID = uuid.Must(uuid.NewV7()).String()
	}

	return WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		var version int
		err := q.QueryRow(ctx, `SELECT version FROM loans WHERE id = $1 AND company_id = $2 FOR UPDATE`, l.ID, l.CompanyID).Scan(&version)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return loan.ErrLoanNotFound
			}
			return fmt.Errorf("failed to lock loan: %w", err)
		}

		_, err = q.Exec(ctx, `
			INSERT INTO loan_transactions (`+transactionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, tx.ID, tx.LoanID, tx.CompanyID, tx.Kind, tx.Amount, tx.EntryID, tx.ReversesID,
			tx.IdempotencyKey, tx.Actor, tx.Remarks, tx.OccurredAt)
		if err != nil {
			if isUniqueViolation(err, "uk_loan_transactions_idempotency") {
				return loan.ErrDuplicateTransaction
			}
			return fmt.Errorf("failed to insert loan transaction: %w", err)
		}

		if version != l.Version-1 {
			return loan.ErrConcurrentModification
		}
		_, err = q.Exec(ctx, `
			UPDATE loans SET status = $2, remaining_balance = $3, version = $4, updated_at = $5
			WHERE id = $1
		`, l.ID, l.Status, l.RemainingBalance, l.Version, l.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update loan balance: %w", err)
		}
		return nil
	})
}

type adjustmentRepositoryImpl struct {
	db *database.DB
}

func NewAdjustmentRepository(db *database.DB) loan.AdjustmentRepository {
	return &adjustmentRepositoryImpl{db: db}
}

const adjustmentColumns = `
	id, company_id, employee_id, kind, code, name, amount, taxable, recurring,
	effective_from, effective_to, status, created_at, updated_at
`

func scanAdjustment(row pgx.Row) (loan.Adjustment, error) {
	var a loan.Adjustment
	err := row.Scan(
		&a.ID, &a.CompanyID, &a.EmployeeID, &a.Kind, &a.Code, &a.Name, &a.Amount, &a.Taxable, &a.Recurring,
		&a.EffectiveFrom, &a.EffectiveTo, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

// Create implements loan.AdjustmentRepository.
func (r *adjustmentRepositoryImpl) Create(ctx context.Context, a loan.Adjustment) (loan.Adjustment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_adjustments (
			company_id, employee_id, kind, code, name, amount, taxable, recurring,
			effective_from, effective_to, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		RETURNING ` + adjustmentColumns

	created, err := scanAdjustment(q.QueryRow(ctx, query,
		a.CompanyID, a.EmployeeID, a.Kind, a.Code, a.Name, a.Amount, a.Taxable, a.Recurring,
		a.EffectiveFrom, a.EffectiveTo, a.Status, a.CreatedAt,
	))
	if err != nil {
		return loan.Adjustment{}, fmt.Errorf("failed to create adjustment: %w", err)
	}
	return created, nil
}

// GetByID implements loan.AdjustmentRepository.
func (r *adjustmentRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (loan.Adjustment, error) {
	q := GetQuerier(ctx, r.db)

	a, err := scanAdjustment(q.QueryRow(ctx, `SELECT `+adjustmentColumns+` FROM payroll_adjustments WHERE id = $1 AND company_id = $2`, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return loan.Adjustment{}, loan.ErrAdjustmentNotFound
		}
		return loan.Adjustment{}, fmt.Errorf("failed to get adjustment: %w", err)
	}
	return a, nil
}

// Update implements loan.AdjustmentRepository.
func (r *adjustmentRepositoryImpl) Update(ctx context.Context, a loan.Adjustment) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE payroll_adjustments SET
			code = $3, name = $4, amount = $5, taxable = $6, recurring = $7,
			effective_from = $8, effective_to = $9, status = $10, updated_at = $11
		WHERE id = $1 AND company_id = $2
	`, a.ID, a.CompanyID, a.Code, a.Name, a.Amount, a.Taxable, a.Recurring,
		a.EffectiveFrom, a.EffectiveTo, a.Status, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update adjustment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return loan.ErrAdjustmentNotFound
	}
	return nil
}

// ListApplicable implements loan.AdjustmentRepository.
func (r *adjustmentRepositoryImpl) ListApplicable(ctx context.Context, companyID string, employeeIDs []string, from, to time.Time) ([]loan.Adjustment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + adjustmentColumns + `
		FROM payroll_adjustments
		WHERE company_id = $1
		  AND (cardinality($2::uuid[]) = 0 OR employee_id = ANY($2::uuid[]))
		  AND status IN ('active', 'completed')
		  AND (
			(NOT recurring AND effective_from BETWEEN $3::date AND $4::date)
			OR (recurring AND effective_from <= $4::date AND (effective_to IS NULL OR effective_to >= $3::date))
		  )
		ORDER BY id
	`
	if employeeIDs == nil {
		employeeIDs = []string{}
	}

	rows, err := q.Query(ctx, query, companyID, employeeIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list adjustments: %w", err)
	}
	defer rows.Close()

	var adjustments []loan.Adjustment
	for rows.Next() {
		a, err := scanAdjustment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan adjustment: %w", err)
		}
		adjustments = append(adjustments, a)
	}
	return adjustments, rows.Err()
}
