package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

// ========== PERIODS ==========

type periodRepositoryImpl struct {
	db *database.DB
}

func NewPeriodRepository(db *database.DB) payroll.PeriodRepository {
	return &periodRepositoryImpl{db: db}
}

const periodColumns = `id, company_id, cycle_type, start_date, end_date, pay_date, corrects_period_id, status, created_at, updated_at`

func scanPeriod(row pgx.Row) (payroll.Period, error) {
	var p payroll.Period
	err := row.Scan(&p.ID, &p.CompanyID, &p.CycleType, &p.StartDate, &p.EndDate, &p.PayDate, &p.CorrectsPeriodID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *periodRepositoryImpl) Create(ctx context.Context, period payroll.Period) (payroll.Period, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_periods (company_id, cycle_type, start_date, end_date, pay_date, corrects_period_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING ` + periodColumns

	p, err := scanPeriod(q.QueryRow(ctx, query,
		period.CompanyID, period.CycleType, period.StartDate, period.EndDate, period.PayDate,
		period.CorrectsPeriodID, period.Status, period.CreatedAt,
	))
	if err != nil {
		return payroll.Period{}, fmt.Errorf("failed to create payroll period: %w", err)
	}
	return p, nil
}

func (r *periodRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (payroll.Period, error) {
	q := GetQuerier(ctx, r.db)

	p, err := scanPeriod(q.QueryRow(ctx, `SELECT `+periodColumns+` FROM payroll_periods WHERE id = $1 AND company_id = $2`, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Period{}, payroll.ErrPeriodNotFound
		}
		return payroll.Period{}, fmt.Errorf("failed to get payroll period: %w", err)
	}
	return p, nil
}

func (r *periodRepositoryImpl) List(ctx context.Context, companyID string, filter payroll.PeriodFilter) ([]payroll.Period, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := "company_id = $1"
	args := []any{companyID}
	if filter.Status != nil {
		where += " AND status = $2"
		args = append(args, *filter.Status)
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM payroll_periods WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll periods: %w", err)
	}

	query, args := paginate(`SELECT `+periodColumns+` FROM payroll_periods WHERE `+where+` ORDER BY start_date DESC, id`, args, filter.Page, filter.Limit)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll periods: %w", err)
	}
	defer rows.Close()

	var periods []payroll.Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payroll period: %w", err)
		}
		periods = append(periods, p)
	}
	return periods, total, rows.Err()
}

func (r *periodRepositoryImpl) UpdateStatus(ctx context.Context, id string, companyID string, from, to payroll.PeriodStatus, at time.Time) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE payroll_periods SET status = $4, updated_at = $5
		WHERE id = $1 AND company_id = $2 AND status = $3
	`, id, companyID, from, to, at)
	if err != nil {
		return fmt.Errorf("failed to update payroll period status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		current, err := r.GetByID(ctx, id, companyID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: period is %s, expected %s", payroll.ErrInvalidPeriodTransition, current.Status, from)
	}
	return nil
}

// ========== ENTRIES ==========

type entryRepositoryImpl struct {
	db *database.DB
}

func NewEntryRepository(db *database.DB) payroll.EntryRepository {
	return &entryRepositoryImpl{db: db}
}

const entryColumns = `
	id, period_id, employee_id, company_id, pay_basis, daily_rate, hourly_rate,
	basic_pay, overtime_pay, night_differential_pay, holiday_pay, rest_day_pay,
	absence_deduction, tardiness_deduction, allowances,
	contributions, withholding_tax, loan_deductions, other_deductions,
	gross_pay, taxable_income, total_deductions, net_pay,
	attendance, status, checksum, void_reason, computed_at,
	reviewed_by, approved_by, approved_at, updated_at
`

func scanEntry(row pgx.Row) (payroll.Entry, error) {
	var (
		e                                                            payroll.Entry
		allowances, contributions, loanDeductions, other, attendance []byte
	)
	err := row.Scan(
		&e.ID, &e.PeriodID, &e.EmployeeID, &e.CompanyID, &e.PayBasis, &e.DailyRate, &e.HourlyRate,
		&e.BasicPay, &e.OvertimePay, &e.NightDifferentialPay, &e.HolidayPay, &e.RestDayPay,
		&e.AbsenceDeduction, &e.TardinessDeduction, &allowances,
		&contributions, &e.WithholdingTax, &loanDeductions, &other,
		&e.GrossPay, &e.TaxableIncome, &e.TotalDeductions, &e.NetPay,
		&attendance, &e.Status, &e.Checksum, &e.VoidReason, &e.ComputedAt,
		&e.ReviewedBy, &e.ApprovedBy, &e.ApprovedAt, &e.UpdatedAt,
	)
	if err != nil {
		return payroll.Entry{}, err
	}
	for _, part := range []struct {
		raw []byte
		dst any
	}{
		{allowances, &e.Allowances},
		{contributions, &e.Contributions},
		{loanDeductions, &e.LoanDeductions},
		{other, &e.OtherDeductions},
		{attendance, &e.Attendance},
	} {
		if err := json.Unmarshal(part.raw, part.dst); err != nil {
			return payroll.Entry{}, fmt.Errorf("failed to decode payroll entry %s: %w", e.ID, err)
		}
	}
	return e, nil
}

func jsonArray[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func (r *entryRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (payroll.Entry, error) {
	q := GetQuerier(ctx, r.db)

	e, err := scanEntry(q.QueryRow(ctx, `SELECT `+entryColumns+` FROM payroll_entries WHERE id = $1 AND company_id = $2`, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Entry{}, payroll.ErrEntryNotFound
		}
		return payroll.Entry{}, fmt.Errorf("failed to get payroll entry: %w", err)
	}
	return e, nil
}

func (r *entryRepositoryImpl) GetByPeriodEmployee(ctx context.Context, periodID, employeeID, companyID string) (payroll.Entry, error) {
	return r.GetByID(ctx, payroll.EntryID(periodID, employeeID), companyID)
}

func (r *entryRepositoryImpl) ListByPeriod(ctx context.Context, periodID, companyID string, filter payroll.EntryFilter) ([]payroll.Entry, int64, error) {
	q := GetQuerier(ctx, r.db)

	whereClauses := []string{"period_id = $1", "company_id = $2"}
	args := []any{periodID, companyID}
	argIdx := 3

	if filter.Status != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.EmployeeID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("employee_id = $%d", argIdx))
		args = append(args, *filter.EmployeeID)
	}
	where := strings.Join(whereClauses, " AND ")

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM payroll_entries WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll entries: %w", err)
	}

	query, args := paginate(`SELECT `+entryColumns+` FROM payroll_entries WHERE `+where+` ORDER BY employee_id`, args, filter.Page, filter.Limit)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll entries: %w", err)
	}
	defer rows.Close()

	var entries []payroll.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payroll entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (r *entryRepositoryImpl) Save(ctx context.Context, e payroll.Entry) error {
	q := GetQuerier(ctx, r.db)

	allowances, err := jsonArray(e.Allowances)
	if err != nil {
		return fmt.Errorf("failed to encode allowances: %w", err)
	}
	contributions, err := jsonArray(e.Contributions)
	if err != nil {
		return fmt.Errorf("failed to encode contributions: %w", err)
	}
	loanDeductions, err := jsonArray(e.LoanDeductions)
	if err != nil {
		return fmt.Errorf("failed to encode loan deductions: %w", err)
	}
	other, err := jsonArray(e.OtherDeductions)
	if err != nil {
		return fmt.Errorf("failed to encode deductions: %w", err)
	}
	attendance, err := json.Marshal(e.Attendance)
	if err != nil {
		return fmt.Errorf("failed to encode attendance: %w", err)
	}

	query := `
		INSERT INTO payroll_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
				$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32)
		ON CONFLICT (id) DO UPDATE SET
			pay_basis = EXCLUDED.pay_basis,
			daily_rate = EXCLUDED.daily_rate,
			hourly_rate = EXCLUDED.hourly_rate,
			basic_pay = EXCLUDED.basic_pay,
			overtime_pay = EXCLUDED.overtime_pay,
			night_differential_pay = EXCLUDED.night_differential_pay,
			holiday_pay = EXCLUDED.holiday_pay,
			rest_day_pay = EXCLUDED.rest_day_pay,
			absence_deduction = EXCLUDED.absence_deduction,
			tardiness_deduction = EXCLUDED.tardiness_deduction,
			allowances = EXCLUDED.allowances,
			contributions = EXCLUDED.contributions,
			withholding_tax = EXCLUDED.withholding_tax,
			loan_deductions = EXCLUDED.loan_deductions,
			other_deductions = EXCLUDED.other_deductions,
			gross_pay = EXCLUDED.gross_pay,
			taxable_income = EXCLUDED.taxable_income,
			total_deductions = EXCLUDED.total_deductions,
			net_pay = EXCLUDED.net_pay,
			attendance = EXCLUDED.attendance,
			status = EXCLUDED.status,
			checksum = EXCLUDED.checksum,
			void_reason = EXCLUDED.void_reason,
			computed_at = EXCLUDED.computed_at,
			reviewed_by = EXCLUDED.reviewed_by,
			approved_by = EXCLUDED.approved_by,
			approved_at = EXCLUDED.approved_at,
			updated_at = EXCLUDED.updated_at
		WHERE payroll_entries.status IN ('draft', 'reviewed', 'voided')
	`

	tag, err := q.Exec(ctx, query,
		e.ID, e.PeriodID, e.EmployeeID, e.CompanyID, e.PayBasis, e.DailyRate, e.HourlyRate,
		e.BasicPay, e.OvertimePay, e.NightDifferentialPay, e.HolidayPay, e.RestDayPay,
		e.AbsenceDeduction, e.TardinessDeduction, allowances,
		contributions, e.WithholdingTax, loanDeductions, other,
		e.GrossPay, e.TaxableIncome, e.TotalDeductions, e.NetPay,
		attendance, e.Status, e.Checksum, e.VoidReason, e.ComputedAt,
		e.ReviewedBy, e.ApprovedBy, e.ApprovedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save payroll entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrCannotRecomputeApprovedEntry
	}
	return nil
}

func (r *entryRepositoryImpl) UpdateStatus(ctx context.Context, e payroll.Entry, from payroll.EntryStatus) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE payroll_entries SET
			status = $4, void_reason = $5, reviewed_by = $6, approved_by = $7, approved_at = $8, updated_at = $9
		WHERE id = $1 AND company_id = $2 AND status = $3
	`, e.ID, e.CompanyID, from, e.Status, e.VoidReason, e.ReviewedBy, e.ApprovedBy, e.ApprovedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update payroll entry status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, e.ID, e.CompanyID); err != nil {
			return err
		}
		return payroll.ErrInvalidEntryTransition
	}
	return nil
}

func (r *entryRepositoryImpl) YearToDate(ctx context.Context, companyID, employeeID string, year int, payDate time.Time) (payroll.YearToDate, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COALESCE(SUM(e.taxable_income), 0), COALESCE(SUM(e.withholding_tax), 0), COUNT(*)
		FROM payroll_entries e
		JOIN payroll_periods p ON p.id = e.period_id
		WHERE e.company_id = $1 AND e.employee_id = $2
		  AND e.status IN ('approved', 'paid')
		  AND EXTRACT(YEAR FROM p.pay_date) = $3
		  AND p.pay_date < $4::date
	`

	var ytd payroll.YearToDate
	if err := q.QueryRow(ctx, query, companyID, employeeID, year, payDate).Scan(&ytd.Taxable, &ytd.Withheld, &ytd.Periods); err != nil {
		return payroll.YearToDate{}, fmt.Errorf("failed to sum year-to-date totals: %w", err)
	}
	return ytd, nil
}

// ========== TAX SETTINGS ==========

type taxSettingsRepositoryImpl struct {
	db *database.DB
}

func NewTaxSettingsRepository(db *database.DB) payroll.TaxSettingsRepository {
	return &taxSettingsRepositoryImpl{db: db}
}

func (r *taxSettingsRepositoryImpl) Get(ctx context.Context, companyID string) (payroll.TaxSettings, error) {
	q := GetQuerier(ctx, r.db)

	var s payroll.TaxSettings
	err := q.QueryRow(ctx, `SELECT company_id, method, updated_at FROM payroll_tax_settings WHERE company_id = $1`, companyID).
		Scan(&s.CompanyID, &s.Method, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.TaxSettings{}, payroll.ErrTaxSettingsNotFound
		}
		return payroll.TaxSettings{}, fmt.Errorf("failed to get tax settings: %w", err)
	}
	return s, nil
}

func (r *taxSettingsRepositoryImpl) Upsert(ctx context.Context, settings payroll.TaxSettings) (payroll.TaxSettings, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_tax_settings (company_id, method, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (company_id) DO UPDATE SET
			method = EXCLUDED.method,
			updated_at = EXCLUDED.updated_at
		RETURNING company_id, method, updated_at
	`

	var s payroll.TaxSettings
	if err := q.QueryRow(ctx, query, settings.CompanyID, settings.Method, settings.UpdatedAt).Scan(&s.CompanyID, &s.Method, &s.UpdatedAt); err != nil {
		return payroll.TaxSettings{}, fmt.Errorf("failed to upsert tax settings: %w", err)
	}
	return s, nil
}
