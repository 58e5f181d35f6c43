package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/contribution"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/lock"
	"github.com/shopspring/decimal"
)

type Options struct {
	Workers          int
	LockTTL          time.Duration
	WorkDaysPerYear  int
	DefaultTaxMethod contribution.TaxMethod
	Clock            clock.Clock
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 8
	}
	if o.LockTTL <= 0 {
		o.LockTTL = 10 * time.Minute
	}
	if o.WorkDaysPerYear <= 0 {
		o.WorkDaysPerYear = 261
	}
	if !o.DefaultTaxMethod.Valid() {
		o.DefaultTaxMethod = contribution.TaxMethodBracket
	}
	if o.Clock == nil {
		o.Clock = clock.System()
	}
	return o
}

type PayrollServiceImpl struct {
	periodRepo      payroll.PeriodRepository
	entryRepo       payroll.EntryRepository
	taxRepo         payroll.TaxSettingsRepository
	employeeRepo    employee.EmployeeRepository
	dtrRepo         attendance.DtrRepository
	scheduleService schedule.ScheduleService
	tableService    contribution.TableService
	loanService     loan.LoanService
	locker          lock.Locker
	opts            Options
}

func NewPayrollService(
	periodRepo payroll.PeriodRepository,
	entryRepo payroll.EntryRepository,
	taxRepo payroll.TaxSettingsRepository,
	employeeRepo employee.EmployeeRepository,
	dtrRepo attendance.DtrRepository,
	scheduleService schedule.ScheduleService,
	tableService contribution.TableService,
	loanService loan.LoanService,
	locker lock.Locker,
	opts Options,
) payroll.PayrollService {
	return &PayrollServiceImpl{
		periodRepo:      periodRepo,
		entryRepo:       entryRepo,
		taxRepo:         taxRepo,
		employeeRepo:    employeeRepo,
		dtrRepo:         dtrRepo,
		scheduleService: scheduleService,
		tableService:    tableService,
		loanService:     loanService,
		locker:          locker,
		opts:            opts.withDefaults(),
	}
}

// ========== PERIODS ==========

func (s *PayrollServiceImpl) CreatePeriod(ctx context.Context, req payroll.CreatePeriodRequest) (payroll.Period, error) {
	if err := req.Validate(); err != nil {
		return payroll.Period{}, err
	}

	period := req.ToEntity()
	if period.Supplemental() {
		corrected, err := s.periodRepo.GetByID(ctx, *req.CorrectsPeriodID, req.CompanyID)
		if err != nil {
			return payroll.Period{}, err
		}
		if corrected.Status != payroll.PeriodStatusPaid && corrected.Status != payroll.PeriodStatusClosed {
			return payroll.Period{}, fmt.Errorf("%w: period %s is %s", payroll.ErrSupplementalRequiresPaidPeriod, corrected.ID, corrected.Status)
		}
	}

	now := s.opts.Clock.Now()
	period.CreatedAt = now
	period.UpdatedAt = now
	created, err := s.periodRepo.Create(ctx, period)
	if err != nil {
		return payroll.Period{}, fmt.Errorf("failed to create payroll period: %w", err)
	}

	slog.Info("payroll period created",
		"period_id", created.ID,
		"company_id", created.CompanyID,
		"cycle_type", created.CycleType,
		"start_date", created.StartDate.Format(time.DateOnly),
		"end_date", created.EndDate.Format(time.DateOnly),
	)
	return created, nil
}

func (s *PayrollServiceImpl) GetPeriod(ctx context.Context, companyID, id string) (payroll.Period, error) {
	return s.periodRepo.GetByID(ctx, id, companyID)
}

func (s *PayrollServiceImpl) ListPeriods(ctx context.Context, companyID string, filter payroll.PeriodFilter) ([]payroll.Period, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	return s.periodRepo.List(ctx, companyID, filter)
}

func (s *PayrollServiceImpl) OpenPeriod(ctx context.Context, req payroll.PeriodActionRequest) (payroll.Period, error) {
	return s.transition(ctx, req, payroll.PeriodStatusOpen)
}

// ApprovePeriod approves every draft and reviewed entry, booking its loan
// deductions, then approves the period. A failing entry leaves the period
// computed so the run can be retried. It holds the period lock, so it never
// interleaves with a recompute.
func (s *PayrollServiceImpl) ApprovePeriod(ctx context.Context, req payroll.PeriodActionRequest) (payroll.Period, error) {
	unlock, err := s.lockPeriod(ctx, req.PeriodID)
	if err != nil {
		return payroll.Period{}, err
	}
	defer unlock()

	period, err := s.periodRepo.GetByID(ctx, req.PeriodID, req.CompanyID)
	if err != nil {
		return payroll.Period{}, err
	}
	if !period.Status.CanTransition(payroll.PeriodStatusApproved) {
		return payroll.Period{}, fmt.Errorf("%w: %s to %s", payroll.ErrInvalidPeriodTransition, period.Status, payroll.PeriodStatusApproved)
	}

	entries, _, err := s.entryRepo.ListByPeriod(ctx, period.ID, period.CompanyID, payroll.EntryFilter{})
	if err != nil {
		return payroll.Period{}, fmt.Errorf("failed to list payroll entries: %w", err)
	}
	approved := 0
	for _, e := range entries {
		if !e.Editable() {
			continue
		}
		if _, err := s.approveEntry(ctx, e, req.Actor); err != nil {
			return payroll.Period{}, &payroll.EmployeeError{EmployeeID: e.EmployeeID, PeriodID: period.ID, Err: err}
		}
		approved++
	}

	next, err := s.transition(ctx, req, payroll.PeriodStatusApproved)
	if err != nil {
		return payroll.Period{}, err
	}
	slog.Info("payroll period approved", "period_id", period.ID, "entries_approved", approved, "actor", req.Actor)
	return next, nil
}

// MarkPaid moves the period and all its approved entries to paid.
func (s *PayrollServiceImpl) MarkPaid(ctx context.Context, req payroll.PeriodActionRequest) (payroll.Period, error) {
	period, err := s.periodRepo.GetByID(ctx, req.PeriodID, req.CompanyID)
	if err != nil {
		return payroll.Period{}, err
	}
	if !period.Status.CanTransition(payroll.PeriodStatusPaid) {
		return payroll.Period{}, fmt.Errorf("%w: %s to %s", payroll.ErrInvalidPeriodTransition, period.Status, payroll.PeriodStatusPaid)
	}

	status := payroll.EntryStatusApproved
	entries, _, err := s.entryRepo.ListByPeriod(ctx, period.ID, period.CompanyID, payroll.EntryFilter{Status: &status})
	if err != nil {
		return payroll.Period{}, fmt.Errorf("failed to list payroll entries: %w", err)
	}
	now := s.opts.Clock.Now()
	for _, e := range entries {
		e.Status = payroll.EntryStatusPaid
		e.UpdatedAt = now
		if err := s.entryRepo.UpdateStatus(ctx, e, payroll.EntryStatusApproved); err != nil {
			return payroll.Period{}, fmt.Errorf("failed to mark entry %s paid: %w", e.ID, err)
		}
	}

	return s.transition(ctx, req, payroll.PeriodStatusPaid)
}

func (s *PayrollServiceImpl) ClosePeriod(ctx context.Context, req payroll.PeriodActionRequest) (payroll.Period, error) {
	return s.transition(ctx, req, payroll.PeriodStatusClosed)
}

func (s *PayrollServiceImpl) transition(ctx context.Context, req payroll.PeriodActionRequest, to payroll.PeriodStatus) (payroll.Period, error) {
	period, err := s.periodRepo.GetByID(ctx, req.PeriodID, req.CompanyID)
	if err != nil {
		return payroll.Period{}, err
	}
	if !period.Status.CanTransition(to) {
		return payroll.Period{}, fmt.Errorf("%w: %s to %s", payroll.ErrInvalidPeriodTransition, period.Status, to)
	}

	now := s.opts.Clock.Now()
	if err := s.periodRepo.UpdateStatus(ctx, period.ID, period.CompanyID, period.Status, to, now); err != nil {
		return payroll.Period{}, err
	}

	slog.Info("payroll period status changed", "period_id", period.ID, "from", period.Status, "to", to, "actor", req.Actor)
	period.Status = to
	period.UpdatedAt = now
	return period, nil
}

// Summary totals the period's live entries. Voided entries are counted by
// status only.
func (s *PayrollServiceImpl) Summary(ctx context.Context, companyID, periodID string) (payroll.SummaryResponse, error) {
	period, err := s.periodRepo.GetByID(ctx, periodID, companyID)
	if err != nil {
		return payroll.SummaryResponse{}, err
	}
	entries, _, err := s.entryRepo.ListByPeriod(ctx, periodID, companyID, payroll.EntryFilter{})
	if err != nil {
		return payroll.SummaryResponse{}, fmt.Errorf("failed to list payroll entries: %w", err)
	}

	sum := payroll.SummaryResponse{
		PeriodID:            period.ID,
		Status:              string(period.Status),
		TotalGrossPay:       decimal.Zero,
		TotalDeductions:     decimal.Zero,
		TotalNetPay:         decimal.Zero,
		TotalWithholdingTax: decimal.Zero,
		TotalEmployeeShare:  decimal.Zero,
		TotalEmployerShare:  decimal.Zero,
		TotalLoanDeductions: decimal.Zero,
		CountByStatus:       make(map[string]int),
	}
	for _, e := range entries {
		sum.CountByStatus[string(e.Status)]++
		if e.Status == payroll.EntryStatusVoided {
			continue
		}
		sum.TotalEmployees++
		sum.TotalGrossPay = sum.TotalGrossPay.Add(e.GrossPay)
		sum.TotalDeductions = sum.TotalDeductions.Add(e.TotalDeductions)
		sum.TotalNetPay = sum.TotalNetPay.Add(e.NetPay)
		sum.TotalWithholdingTax = sum.TotalWithholdingTax.Add(e.WithholdingTax)
		for _, c := range e.Contributions {
			sum.TotalEmployeeShare = sum.TotalEmployeeShare.Add(c.EmployeeShare)
			sum.TotalEmployerShare = sum.TotalEmployerShare.Add(c.EmployerShare)
		}
		for _, l := range e.LoanDeductions {
			sum.TotalLoanDeductions = sum.TotalLoanDeductions.Add(l.Amount)
		}
	}
	return sum, nil
}

// ========== ENTRIES ==========

func (s *PayrollServiceImpl) GetEntry(ctx context.Context, companyID, id string) (payroll.Entry, error) {
	return s.entryRepo.GetByID(ctx, id, companyID)
}

func (s *PayrollServiceImpl) ListEntries(ctx context.Context, companyID, periodID string, filter payroll.EntryFilter) ([]payroll.Entry, int64, error) {
	if _, err := s.periodRepo.GetByID(ctx, periodID, companyID); err != nil {
		return nil, 0, err
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	return s.entryRepo.ListByPeriod(ctx, periodID, companyID, filter)
}

func (s *PayrollServiceImpl) ReviewEntry(ctx context.Context, req payroll.EntryActionRequest) (payroll.Entry, error) {
	e, err := s.entryRepo.GetByID(ctx, req.EntryID, req.CompanyID)
	if err != nil {
		return payroll.Entry{}, err
	}
	if e.Status != payroll.EntryStatusDraft {
		return payroll.Entry{}, fmt.Errorf("%w: %s to %s", payroll.ErrInvalidEntryTransition, e.Status, payroll.EntryStatusReviewed)
	}

	actor := req.Actor
	e.Status = payroll.EntryStatusReviewed
	e.ReviewedBy = &actor
	e.UpdatedAt = s.opts.Clock.Now()
	if err := s.entryRepo.UpdateStatus(ctx, e, payroll.EntryStatusDraft); err != nil {
		return payroll.Entry{}, err
	}
	return e, nil
}

// ApproveEntry approves one entry of a computed period and books its loan
// installments.
func (s *PayrollServiceImpl) ApproveEntry(ctx context.Context, req payroll.EntryActionRequest) (payroll.Entry, error) {
	e, err := s.lockEntry(ctx, req)
	if err != nil {
		return payroll.Entry{}, err
	}
	defer e.unlock()

	period, err := s.periodRepo.GetByID(ctx, e.PeriodID, e.CompanyID)
	if err != nil {
		return payroll.Entry{}, err
	}
	if period.Status != payroll.PeriodStatusComputed {
		return payroll.Entry{}, fmt.Errorf("%w: period is %s", payroll.ErrInvalidEntryTransition, period.Status)
	}
	return s.approveEntry(ctx, e.Entry, req.Actor)
}

type lockedEntry struct {
	payroll.Entry
	unlock func()
}

// lockEntry takes the lock of the entry's period and reloads the entry
// under it.
func (s *PayrollServiceImpl) lockEntry(ctx context.Context, req payroll.EntryActionRequest) (lockedEntry, error) {
	e, err := s.entryRepo.GetByID(ctx, req.EntryID, req.CompanyID)
	if err != nil {
		return lockedEntry{}, err
	}
	unlock, err := s.lockPeriod(ctx, e.PeriodID)
	if err != nil {
		return lockedEntry{}, err
	}
	if e, err = s.entryRepo.GetByID(ctx, req.EntryID, req.CompanyID); err != nil {
		unlock()
		return lockedEntry{}, err
	}
	return lockedEntry{Entry: e, unlock: unlock}, nil
}

func (s *PayrollServiceImpl) approveEntry(ctx context.Context, e payroll.Entry, actor string) (payroll.Entry, error) {
	if !e.Editable() {
		return payroll.Entry{}, fmt.Errorf("%w: %s to %s", payroll.ErrInvalidEntryTransition, e.Status, payroll.EntryStatusApproved)
	}

	for _, l := range e.LoanDeductions {
		if _, err := s.loanService.ApplyPayrollDeduction(ctx, loan.PayrollDeduction{
			CompanyID: e.CompanyID,
			LoanID:    l.LoanID,
			EntryID:   e.ID,
			Amount:    l.Amount,
			Actor:     actor,
		}); err != nil {
			s.rollbackDeductions(ctx, e, actor)
			return payroll.Entry{}, fmt.Errorf("failed to apply loan deduction: %w", err)
		}
	}

	from := e.Status
	now := s.opts.Clock.Now()
	e.Status = payroll.EntryStatusApproved
	e.ApprovedBy = &actor
	e.ApprovedAt = &now
	e.UpdatedAt = now
	if err := s.entryRepo.UpdateStatus(ctx, e, from); err != nil {
		s.rollbackDeductions(ctx, e, actor)
		return payroll.Entry{}, err
	}

	slog.Info("payroll entry approved",
		"entry_id", e.ID,
		"employee_id", e.EmployeeID,
		"net_pay", e.NetPay.StringFixed(2),
		"actor", actor,
	)
	return e, nil
}

// rollbackDeductions reverses whatever part of an entry's installments was
// booked before its approval failed, so the entry stays editable with the
// ledger untouched.
func (s *PayrollServiceImpl) rollbackDeductions(ctx context.Context, e payroll.Entry, actor string) {
	if len(e.LoanDeductions) == 0 {
		return
	}
	reversals, err := s.loanService.ReverseEntryDeductions(context.WithoutCancel(ctx), e.CompanyID, e.ID, actor)
	if err != nil {
		slog.Error("failed to roll back loan deductions",
			"entry_id", e.ID,
			"employee_id", e.EmployeeID,
			"error", err,
		)
		return
	}
	if len(reversals) > 0 {
		slog.Warn("loan deductions rolled back", "entry_id", e.ID, "reversals", len(reversals))
	}
}

// VoidEntry voids an approved entry and reverses its loan deductions. The
// employee can then be recomputed with Force.
func (s *PayrollServiceImpl) VoidEntry(ctx context.Context, req payroll.EntryActionRequest) (payroll.Entry, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return payroll.Entry{}, payroll.ErrVoidReasonRequired
	}

	locked, err := s.lockEntry(ctx, req)
	if err != nil {
		return payroll.Entry{}, err
	}
	defer locked.unlock()

	e := locked.Entry
	switch e.Status {
	case payroll.EntryStatusApproved:
	case payroll.EntryStatusPaid:
		return payroll.Entry{}, payroll.ErrEntryImmutable
	default:
		return payroll.Entry{}, fmt.Errorf("%w: %s to %s", payroll.ErrInvalidEntryTransition, e.Status, payroll.EntryStatusVoided)
	}

	reversals, err := s.loanService.ReverseEntryDeductions(ctx, e.CompanyID, e.ID, req.Actor)
	if err != nil {
		return payroll.Entry{}, fmt.Errorf("failed to reverse loan deductions: %w", err)
	}

	e.Status = payroll.EntryStatusVoided
	e.VoidReason = &reason
	e.UpdatedAt = s.opts.Clock.Now()
	if err := s.entryRepo.UpdateStatus(ctx, e, payroll.EntryStatusApproved); err != nil {
		return payroll.Entry{}, err
	}

	slog.Warn("payroll entry voided",
		"entry_id", e.ID,
		"employee_id", e.EmployeeID,
		"loan_reversals", len(reversals),
		"reason", reason,
		"actor", req.Actor,
	)
	return e, nil
}

// ========== SETTINGS ==========

// GetTaxSettings falls back to the configured default method for tenants
// that never chose one.
func (s *PayrollServiceImpl) GetTaxSettings(ctx context.Context, companyID string) (payroll.TaxSettings, error) {
	settings, err := s.taxRepo.Get(ctx, companyID)
	if errors.Is(err, payroll.ErrTaxSettingsNotFound) {
		return payroll.TaxSettings{CompanyID: companyID, Method: s.opts.DefaultTaxMethod}, nil
	}
	if err != nil {
		return payroll.TaxSettings{}, fmt.Errorf("failed to get tax settings: %w", err)
	}
	return settings, nil
}

func (s *PayrollServiceImpl) UpdateTaxSettings(ctx context.Context, req payroll.UpdateTaxSettingsRequest) (payroll.TaxSettings, error) {
	if err := req.Validate(); err != nil {
		return payroll.TaxSettings{}, err
	}
	return s.taxRepo.Upsert(ctx, payroll.TaxSettings{
		CompanyID: req.CompanyID,
		Method:    contribution.TaxMethod(req.Method),
		UpdatedAt: s.opts.Clock.Now(),
	})
}
