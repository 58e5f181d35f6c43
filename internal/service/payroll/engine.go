package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/contribution"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/lock"
	"golang.org/x/sync/errgroup"
)

func periodLockKey(periodID string) string {
	return "payroll:period:" + periodID
}

// lockPeriod serializes computation, approval and voiding of one period.
// The returned func releases the lock even after ctx is cancelled.
func (s *PayrollServiceImpl) lockPeriod(ctx context.Context, periodID string) (func(), error) {
	release, err := s.locker.TryAcquire(ctx, periodLockKey(periodID), s.opts.LockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLockHeld) {
			return nil, payroll.ErrComputationInProgress
		}
		return nil, fmt.Errorf("failed to acquire period lock: %w", err)
	}
	return func() {
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			slog.Error("failed to release period lock", "period_id", periodID, "error", rerr)
		}
	}, nil
}

// Compute runs the first computation of an open period.
func (s *PayrollServiceImpl) Compute(ctx context.Context, req payroll.ComputeRequest) (payroll.RunResult, error) {
	return s.run(ctx, req, payroll.PeriodStatusOpen)
}

// Recompute reruns a computed period, or an open one whose first run was
// rolled back. Draft and reviewed entries are replaced; voided ones only
// with Force.
func (s *PayrollServiceImpl) Recompute(ctx context.Context, req payroll.ComputeRequest) (payroll.RunResult, error) {
	return s.run(ctx, req, payroll.PeriodStatusComputed, payroll.PeriodStatusOpen)
}

// runInputs is the per-run snapshot every worker reads from.
type runInputs struct {
	period      payroll.Period
	book        *schedule.PlanBook
	tables      contribution.Resolver
	taxMethod   contribution.TaxMethod
	loans       map[string][]loan.Loan
	adjustments map[string][]loan.Adjustment
	force       bool
}

func (s *PayrollServiceImpl) run(ctx context.Context, req payroll.ComputeRequest, allowed ...payroll.PeriodStatus) (res payroll.RunResult, err error) {
	if err := req.Validate(); err != nil {
		return payroll.RunResult{}, err
	}

	unlock, err := s.lockPeriod(ctx, req.PeriodID)
	if err != nil {
		return payroll.RunResult{}, err
	}
	defer unlock()

	period, err := s.periodRepo.GetByID(ctx, req.PeriodID, req.CompanyID)
	if err != nil {
		return payroll.RunResult{}, err
	}
	from := period.Status
	if !statusIn(from, allowed) {
		return payroll.RunResult{}, fmt.Errorf("%w: cannot compute a %s period", payroll.ErrInvalidPeriodTransition, from)
	}
	if err := s.periodRepo.UpdateStatus(ctx, period.ID, period.CompanyID, from, payroll.PeriodStatusComputing, s.opts.Clock.Now()); err != nil {
		return payroll.RunResult{}, err
	}
	defer func() {
		to := payroll.PeriodStatusComputed
		if err != nil {
			to = from
		}
		if uerr := s.periodRepo.UpdateStatus(context.WithoutCancel(ctx), period.ID, period.CompanyID, payroll.PeriodStatusComputing, to, s.opts.Clock.Now()); uerr != nil && err == nil {
			err = fmt.Errorf("failed to finish period computation: %w", uerr)
		}
	}()

	started := s.opts.Clock.Now()
	employees, in, err := s.loadRun(ctx, period, req)
	if err != nil {
		return payroll.RunResult{}, err
	}

	var (
		mu       sync.Mutex
		entries  []payroll.Entry
		failures []*payroll.EmployeeError
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for _, emp := range employees {
		emp := emp
		g.Go(func() error {
			entry, err := s.computeEmployee(gctx, in, emp)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				var empErr *payroll.EmployeeError
				if !errors.As(err, &empErr) {
					empErr = &payroll.EmployeeError{EmployeeID: emp.ID, PeriodID: period.ID, Err: err}
				}
				failures = append(failures, empErr)
				logFailure(empErr)
				return nil
			}
			entries = append(entries, entry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return payroll.RunResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return payroll.RunResult{}, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].EmployeeID < entries[j].EmployeeID })
	sort.Slice(failures, func(i, j int) bool { return failures[i].EmployeeID < failures[j].EmployeeID })

	slog.Info("payroll computation finished",
		"period_id", period.ID,
		"company_id", period.CompanyID,
		"employees", len(employees),
		"computed", len(entries),
		"failed", len(failures),
		"duration", s.opts.Clock.Now().Sub(started).String(),
		"actor", req.Actor,
	)
	return payroll.RunResult{PeriodID: period.ID, Entries: entries, Failures: failures}, nil
}

func statusIn(s payroll.PeriodStatus, allowed []payroll.PeriodStatus) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

// logFailure reports configuration problems at error level; they need an
// administrator, not a data fix.
func logFailure(e *payroll.EmployeeError) {
	var bracketErr *contribution.BracketError
	if errors.As(e.Err, &bracketErr) {
		slog.Error("contribution table misconfigured",
			"employee_id", e.EmployeeID,
			"period_id", e.PeriodID,
			"table_type", bracketErr.TableType,
			"compensation", bracketErr.Compensation.StringFixed(2),
			"error", e.Err,
		)
		return
	}
	slog.Warn("payroll entry not computed", "employee_id", e.EmployeeID, "period_id", e.PeriodID, "error", e.Err)
}

// loadRun reads everything shared by the workers once.
func (s *PayrollServiceImpl) loadRun(ctx context.Context, period payroll.Period, req payroll.ComputeRequest) ([]employee.Employee, runInputs, error) {
	in := runInputs{period: period, force: req.Force}

	var (
		employees []employee.Employee
		err       error
	)
	if len(req.EmployeeIDs) > 0 {
		employees, err = s.employeeRepo.ListByIDs(ctx, period.CompanyID, req.EmployeeIDs)
	} else {
		employees, err = s.employeeRepo.ListActiveBetween(ctx, period.CompanyID, period.StartDate, period.EndDate)
	}
	if err != nil {
		return nil, runInputs{}, fmt.Errorf("failed to load employees: %w", err)
	}
	ids := make([]string, 0, len(employees))
	for _, e := range employees {
		ids = append(ids, e.ID)
	}

	settings, err := s.GetTaxSettings(ctx, period.CompanyID)
	if err != nil {
		return nil, runInputs{}, err
	}
	in.taxMethod = settings.Method

	if in.tables, err = s.tableService.Resolver(ctx, period.CompanyID); err != nil {
		return nil, runInputs{}, fmt.Errorf("failed to load contribution tables: %w", err)
	}

	if !period.Supplemental() {
		if in.book, err = s.scheduleService.Preload(ctx, period.CompanyID, period.StartDate, period.EndDate); err != nil {
			return nil, runInputs{}, fmt.Errorf("failed to load schedules: %w", err)
		}
		loans, err := s.loanService.ActiveLoans(ctx, period.CompanyID, ids)
		if err != nil {
			return nil, runInputs{}, fmt.Errorf("failed to load loans: %w", err)
		}
		in.loans = make(map[string][]loan.Loan)
		for _, l := range loans {
			in.loans[l.EmployeeID] = append(in.loans[l.EmployeeID], l)
		}
	}

	adjustments, err := s.loanService.ActiveAdjustments(ctx, period.CompanyID, ids, period.StartDate, period.EndDate)
	if err != nil {
		return nil, runInputs{}, fmt.Errorf("failed to load adjustments: %w", err)
	}
	in.adjustments = make(map[string][]loan.Adjustment)
	for _, a := range adjustments {
		in.adjustments[a.EmployeeID] = append(in.adjustments[a.EmployeeID], a)
	}

	return employees, in, nil
}

// computeEmployee builds and stores one entry. Every error it returns is the
// employee's own and never stops the batch.
func (s *PayrollServiceImpl) computeEmployee(ctx context.Context, in runInputs, emp employee.Employee) (payroll.Entry, error) {
	p := in.period
	fail := func(err error, dates ...time.Time) error {
		return &payroll.EmployeeError{EmployeeID: emp.ID, PeriodID: p.ID, Dates: dates, Err: err}
	}

	existing, err := s.entryRepo.GetByPeriodEmployee(ctx, p.ID, emp.ID, p.CompanyID)
	hasExisting := err == nil
	if err != nil && !errors.Is(err, payroll.ErrEntryNotFound) {
		return payroll.Entry{}, fail(err)
	}
	if hasExisting && !existing.Status.Replaceable(in.force) {
		return payroll.Entry{}, fail(payroll.ErrCannotRecomputeApprovedEntry)
	}

	input := entryInput{
		Period:          p,
		Employee:        emp,
		Adjustments:     in.adjustments[emp.ID],
		Loans:           in.loans[emp.ID],
		Tables:          in.tables,
		TaxMethod:       in.taxMethod,
		WorkDaysPerYear: s.opts.WorkDaysPerYear,
	}

	if !p.Supplemental() {
		days, err := s.payDays(ctx, in, emp)
		if err != nil {
			return payroll.Entry{}, err
		}
		input.Days = days
	}

	if input.YearToDate, err = s.entryRepo.YearToDate(ctx, p.CompanyID, emp.ID, p.PayDate.Year(), p.PayDate); err != nil {
		return payroll.Entry{}, fail(fmt.Errorf("failed to load year-to-date totals: %w", err))
	}

	entry, err := computeEntry(input)
	if err != nil {
		return payroll.Entry{}, fail(err)
	}

	if hasExisting && existing.Status != payroll.EntryStatusVoided && existing.Checksum == entry.Checksum {
		return existing, nil
	}

	now := s.opts.Clock.Now()
	entry.ComputedAt = now
	entry.UpdatedAt = now
	if err := s.entryRepo.Save(ctx, entry); err != nil {
		return payroll.Entry{}, fail(fmt.Errorf("failed to save payroll entry: %w", err))
	}
	return entry, nil
}

// payDays pairs every payable date with its finalized record and pay rules.
// Missing and flagged records block the employee and name the dates.
func (s *PayrollServiceImpl) payDays(ctx context.Context, in runInputs, emp employee.Employee) ([]payDay, error) {
	p := in.period
	fail := func(err error, dates ...time.Time) error {
		return &payroll.EmployeeError{EmployeeID: emp.ID, PeriodID: p.ID, Dates: dates, Err: err}
	}

	records, err := s.dtrRepo.ListByEmployeeBetween(ctx, p.CompanyID, emp.ID, p.StartDate, p.EndDate)
	if err != nil {
		return nil, fail(fmt.Errorf("failed to load daily time records: %w", err))
	}
	byDate := make(map[string]attendance.DailyTimeRecord, len(records))
	var flagged []time.Time
	for _, r := range records {
		byDate[r.Date.Format(time.DateOnly)] = r
		if r.NeedsReview {
			flagged = append(flagged, r.Date)
		}
	}
	if len(flagged) > 0 {
		sort.Slice(flagged, func(i, j int) bool { return flagged[i].Before(flagged[j]) })
		return nil, fail(payroll.ErrUnresolvedDtrBlocking, flagged...)
	}

	var (
		missing []time.Time
		days    []payDay
	)
	for _, d := range payableDates(emp, p) {
		rec, ok := byDate[d.Format(time.DateOnly)]
		if !ok {
			missing = append(missing, d)
			continue
		}
		plan, err := in.book.PlanFor(emp.ID, d)
		if err != nil {
			return nil, fail(err, d)
		}
		days = append(days, payDay{
			Record:            rec,
			Overtime:          plan.Schedule.Overtime,
			NightDifferential: plan.Schedule.NightDifferential,
		})
	}
	if len(missing) > 0 {
		return nil, fail(payroll.ErrMissingDtr, missing...)
	}
	return days, nil
}
