package payroll

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/contribution"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-engine/internal/repository/memory"
	contributionservice "github.com/cmlabs-hris/payroll-engine/internal/service/contribution"
	loanservice "github.com/cmlabs-hris/payroll-engine/internal/service/loan"
	scheduleservice "github.com/cmlabs-hris/payroll-engine/internal/service/schedule"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const companyID = "company-1"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

type fixture struct {
	svc     payroll.PayrollService
	loans   loan.LoanService
	tables  contribution.TableService
	dtrs    *memory.DtrRepository
	entries *memory.EntryRepository
	locker  *lock.MemoryLocker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	clk := clock.NewFixed(time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC))

	hired := date("2024-01-01")
	employees := memory.NewEmployeeRepository(
		employee.Employee{ID: "emp-1", CompanyID: companyID, WorkScheduleID: "ws-office", HireDate: hired, PayBasis: employee.PayBasisMonthly, BaseSalary: dp("26100")},
		employee.Employee{ID: "emp-2", CompanyID: companyID, WorkScheduleID: "ws-office", HireDate: hired, PayBasis: employee.PayBasisDaily, DailyRate: dp("1000")},
	)

	schedules := memory.NewWorkScheduleRepository()
	_, err := schedules.SaveVersion(ctx, schedule.WorkSchedule{
		ID:        "ws-office",
		CompanyID: companyID,
		Type:      schedule.ScheduleTypeFixed,
		Timezone:  "Asia/Manila",
		Time: schedule.TimeConfiguration{
			WorkDays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
			Start:    schedule.MustClockTime("08:00"),
			End:      schedule.MustClockTime("17:00"),
		},
		Overtime: schedule.OvertimeRules{
			RegularMultiplier:        d("1.25"),
			RestDayMultiplier:        d("1.30"),
			HolidayMultiplier:        d("2.00"),
			SpecialHolidayMultiplier: d("1.30"),
		},
	})
	require.NoError(t, err)

	f := &fixture{
		dtrs:   memory.NewDtrRepository(),
		locker: lock.NewMemoryLocker(),
	}
	periods := memory.NewPeriodRepository()
	f.entries = memory.NewEntryRepository(periods)
	f.tables = contributionservice.NewTableService(memory.NewContributionRepository())
	f.loans = loanservice.NewLoanService(memory.NewLoanRepository(), memory.NewAdjustmentRepository(), employees, clk)
	f.svc = NewPayrollService(
		periods,
		f.entries,
		memory.NewTaxSettingsRepository(),
		employees,
		f.dtrs,
		scheduleservice.NewScheduleService(schedules, memory.NewAssignmentRepository(), employees),
		f.tables,
		f.loans,
		f.locker,
		Options{Workers: 2, WorkDaysPerYear: 261, Clock: clk},
	)
	return f
}

func flatTable(tt contribution.TableType, employeeShare, employerShare string) contribution.UpsertVersionRequest {
	return contribution.UpsertVersionRequest{
		CompanyID:     companyID,
		TableType:     string(tt),
		EffectiveDate: "2025-01-01",
		Rows: []contribution.RowInput{{
			MinCompensation: d("0"),
			EmployeeShare:   contribution.ShareInput{Fixed: d(employeeShare)},
			EmployerShare:   contribution.ShareInput{Fixed: d(employerShare)},
		}},
	}
}

// withTables installs monthly SSS 500/1000, PhilHealth 250/250, Pag-IBIG
// 100/100 and an annual tax of 15% over 250,000.
func (f *fixture) withTables(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, req := range []contribution.UpsertVersionRequest{
		flatTable(contribution.TableSSS, "500", "1000"),
		flatTable(contribution.TablePhilHealth, "250", "250"),
		flatTable(contribution.TablePagIBIG, "100", "100"),
		{
			CompanyID:     companyID,
			TableType:     string(contribution.TableWithholdingTax),
			EffectiveDate: "2025-01-01",
			Rows: []contribution.RowInput{
				{MinCompensation: d("0"), MaxCompensation: dp("250000")},
				{
					MinCompensation: d("250000.01"),
					EmployeeShare:   contribution.ShareInput{Rate: d("0.15"), ExcessOver: d("250000")},
				},
			},
		},
	} {
		_, err := f.tables.UpsertVersion(ctx, req)
		require.NoError(t, err)
	}
}

// seed stores one classified record per date: weekends as rest days,
// weekdays as a full 480-minute day. edit may change any of them.
func (f *fixture) seed(t *testing.T, employeeID, from, to string, edit func(rec *attendance.DailyTimeRecord)) {
	t.Helper()
	for day := date(from); !day.After(date(to)); day = day.AddDate(0, 0, 1) {
		rec := attendance.DailyTimeRecord{
			ID:              attendance.RecordID(employeeID, day),
			EmployeeID:      employeeID,
			CompanyID:       companyID,
			Date:            day,
			ScheduleID:      "ws-office",
			ScheduleVersion: 1,
			Status:          attendance.DtrStatusPresent,
			Version:         1,
		}
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			rec.Status = attendance.DtrStatusRestDay
		} else {
			rec.TotalWorkMinutes = 480
		}
		if edit != nil {
			edit(&rec)
		}
		snapshot := rec
		require.NoError(t, f.dtrs.Append(context.Background(), attendance.DtrEvent{
			RecordID:  rec.ID,
			CompanyID: companyID,
			Sequence:  1,
			Type:      attendance.EventClassified,
			Snapshot:  &snapshot,
		}, rec))
	}
}

func (f *fixture) openPeriod(t *testing.T, start, end, pay string) payroll.Period {
	t.Helper()
	ctx := context.Background()
	p, err := f.svc.CreatePeriod(ctx, payroll.CreatePeriodRequest{
		CompanyID: companyID,
		CycleType: string(payroll.CycleSemiMonthly),
		StartDate: start,
		EndDate:   end,
		PayDate:   pay,
	})
	require.NoError(t, err)
	p, err = f.svc.OpenPeriod(ctx, payroll.PeriodActionRequest{CompanyID: companyID, PeriodID: p.ID, Actor: "hr-1"})
	require.NoError(t, err)
	return p
}

func (f *fixture) compute(t *testing.T, p payroll.Period) payroll.RunResult {
	t.Helper()
	res, err := f.svc.Compute(context.Background(), payroll.ComputeRequest{CompanyID: companyID, PeriodID: p.ID, Actor: "hr-1"})
	require.NoError(t, err)
	return res
}

func (f *fixture) recompute(t *testing.T, p payroll.Period, force bool) payroll.RunResult {
	t.Helper()
	res, err := f.svc.Recompute(context.Background(), payroll.ComputeRequest{CompanyID: companyID, PeriodID: p.ID, Actor: "hr-1", Force: force})
	require.NoError(t, err)
	return res
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2), msgAndArgs...)
}

func TestCompute(t *testing.T) {
	f := newFixture(t)
	f.withTables(t)
	f.seed(t, "emp-1", "2025-06-01", "2025-06-15", func(rec *attendance.DailyTimeRecord) {
		switch rec.Date.Day() {
		case 2:
			rec.TotalWorkMinutes = 600
			rec.OvertimeMinutes = 120
			rec.OvertimeApproved = true
		case 3:
			rec.TotalWorkMinutes = 450
			rec.LateMinutes = 30
		case 4:
			rec.Status = attendance.DtrStatusAbsent
			rec.TotalWorkMinutes = 0
		case 5:
			rec.TotalWorkMinutes = 540
			rec.OvertimeMinutes = 60
		}
	})
	f.seed(t, "emp-2", "2025-06-01", "2025-06-15", nil)
	p := f.openPeriod(t, "2025-06-01", "2025-06-15", "2025-06-15")

	res := f.compute(t, p)
	require.Empty(t, res.Failures)
	require.Len(t, res.Entries, 2)

	monthly := res.Entries[0]
	assert.Equal(t, "emp-1", monthly.EmployeeID)
	assert.Equal(t, payroll.EntryStatusDraft, monthly.Status)
	assertMoney(t, "1200.00", monthly.DailyRate)
	assertMoney(t, "13050.00", monthly.BasicPay)
	assertMoney(t, "375.00", monthly.OvertimePay)
	assertMoney(t, "75.00", monthly.TardinessDeduction)
	assertMoney(t, "1200.00", monthly.AbsenceDeduction)
	assertMoney(t, "12150.00", monthly.GrossPay)
	assertMoney(t, "425.00", monthly.EmployeeContributions())
	assertMoney(t, "11725.00", monthly.TaxableIncome)
	assertMoney(t, "196.25", monthly.WithholdingTax)
	assertMoney(t, "11528.75", monthly.NetPay)
	assert.Equal(t, 120, monthly.Attendance.OvertimeMinutes)
	assert.Equal(t, 60, monthly.Attendance.UnapprovedOvertimeMinutes)
	assert.Equal(t, 30, monthly.Attendance.LateMinutes)
	assert.Equal(t, 1, monthly.Attendance.DaysAbsent)
	assert.Equal(t, 9, monthly.Attendance.DaysWorked)

	require.Len(t, monthly.Contributions, 3)
	sss := monthly.Contributions[2]
	assert.Equal(t, contribution.TableSSS, sss.TableType)
	assertMoney(t, "24300.00", sss.Basis)
	assertMoney(t, "250.00", sss.EmployeeShare)
	assertMoney(t, "500.00", sss.EmployerShare)

	daily := res.Entries[1]
	assert.Equal(t, "emp-2", daily.EmployeeID)
	assertMoney(t, "10000.00", daily.BasicPay)
	assertMoney(t, "0.00", daily.AbsenceDeduction)
	assertMoney(t, "0.00", daily.WithholdingTax)
	assertMoney(t, "9575.00", daily.NetPay)

	for _, e := range res.Entries {
		assert.True(t, e.NetPay.Equal(e.GrossPay.Sub(e.TotalDeductions)), "net = gross - deductions for %s", e.EmployeeID)
		assert.Equal(t, e.ComputeChecksum(), e.Checksum)
	}

	period, err := f.svc.GetPeriod(context.Background(), companyID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PeriodStatusComputed, period.Status)
}

func TestRecompute_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.withTables(t)
	f.seed(t, "emp-1", "2025-06-01", "2025-06-15", nil)
	f.seed(t, "emp-2", "2025-06-01", "2025-06-15", nil)
	p := f.openPeriod(t, "2025-06-01", "2025-06-15", "2025-06-15")

	first := f.compute(t, p)
	second := f.recompute(t, p, false)
	require.Len(t, second.Entries, len(first.Entries))
	for i := range first.Entries {
		assert.Equal(t, first.Entries[i].ID, second.Entries[i].ID)
		assert.Equal(t, first.Entries[i].Checksum, second.Entries[i].Checksum)
		assert.Equal(t, first.Entries[i].ComputedAt, second.Entries[i].ComputedAt)
	}

	t.Run("compute is rejected once computed", func(t *testing.T) {
		_, err := f.svc.Compute(context.Background(), payroll.ComputeRequest{CompanyID: companyID, PeriodID: p.ID})
		assert.ErrorIs(t, err, payroll.ErrInvalidPeriodTransition)
	})
}

func TestCompute_BlockedEmployees(t *testing.T) {
	f := newFixture(t)
	f.withTables(t)
	f.seed(t, "emp-1", "2025-06-01", "2025-06-15", func(rec *attendance.DailyTimeRecord) {
		if rec.Date.Day() == 5 {
			rec.NeedsReview = true
			rec.ReviewReason = attendance.ReasonMissingTimeOut
		}
	})
	f.seed(t, "emp-2", "2025-06-01", "2025-06-05", nil)
	f.seed(t, "emp-2", "2025-06-07", "2025-06-15", nil)
	p := f.openPeriod(t, "2025-06-01", "2025-06-15", "2025-06-15")

	res := f.compute(t, p)
	assert.Empty(t, res.Entries)
	require.Len(t, res.Failures, 2)

	assert.Equal(t, "emp-1", res.Failures[0].EmployeeID)
	assert.ErrorIs(t, res.Failures[0], payroll.ErrUnresolvedDtrBlocking)
	assert.Equal(t, []time.Time{date("2025-06-05")}, res.Failures[0].Dates)

	assert.Equal(t, "emp-2", res.Failures[1].EmployeeID)
	assert.ErrorIs(t, res.Failures[1], payroll.ErrMissingDtr)
	assert.Equal(t, []time.Time{date("2025-06-06")}, res.Failures[1].Dates)

	period, err := f.svc.GetPeriod(context.Background(), companyID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PeriodStatusComputed, period.Status)
}

func TestCompute_MissingTablesAreReportedPerEmployee(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "emp-1", "2025-06-01", "2025-06-15", nil)
	f.seed(t, "emp-2", "2025-06-01", "2025-06-15", nil)
	p := f.openPeriod(t, "2025-06-01", "2025-06-15", "2025-06-15")

	res := f.compute(t, p)
	assert.Empty(t, res.Entries)
	require.Len(t, res.Failures, 2)
	for _, fail := range res.Failures {
		assert.ErrorIs(t, fail, contribution.ErrNoApplicableTableVersion)
		var bracketErr *contribution.BracketError
		assert.ErrorAs(t, fail, &bracketErr)
	}
}

func TestCompute_LockContention(t *testing.T) {
	f := newFixture(t)
	f.withTables(t)
	p := f.openPeriod(t, "2025-06-01", "2025-06-15", "2025-06-15")
	ctx := context.Background()

	release, err := f.locker.TryAcquire(ctx, periodLockKey(p.ID), time.Minute)
	require.NoError(t, err)

	_, err = f.svc.Compute(ctx, payroll.ComputeRequest{CompanyID: companyID, PeriodID: p.ID})
	assert.ErrorIs(t, err, payroll.ErrComputationInProgress)

	period, err := f.svc.GetPeriod(ctx, companyID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PeriodStatusOpen, period.Status)

	require.NoError(t, release(ctx))
	f.seed(t, "emp-1", "2025-06-01", "2025-06-15", nil)
	f.seed(t, "emp-2", "2025-06-01", "2025-06-15", nil)
	res := f.compute(t, p)
	assert.Len(t, res.Entries, 2)
}

func TestCompute_LoanDeductionsThroughApproval(t *testing.T) {
	f := newFixture(t)
	f.withTables(t)
	ctx := context.Background()

	l, err := f.loans.CreateLoan(ctx, loan.CreateLoanRequest{
		CompanyID:         companyID,
		EmployeeID:        "emp-1",
		Kind:              "salary",
		Principal:         d("1500"),
		InstallmentAmount: d("1000"),
		StartDate:         "2025-06-01",
	})
	require.NoError(t, err)
	_, err = f.loans.ActivateLoan(ctx, loan.LoanActionRequest{CompanyID: companyID, LoanID: l.ID})
	require.NoError(t, err)

	f.seed(t, "emp-1", "2025-06-01", "2025-06-30", nil)
	f.seed(t, "emp-2", "2025-06-01", "2025-06-30", nil)

	first := f.openPeriod(t, "2025-06-01", "2025-06-15", "2025-06-15")
	res := f.compute(t, first)
	entry := res.Entries[0]
	require.Len(t, entry.LoanDeductions, 1)
	assertMoney(t, "1000.00", entry.LoanDeductions[0].Amount)
	assertMoney(t, "12293.75", entry.NetPay.Add(entry.LoanDeductions[0].Amount))

	l, _, err = f.loans.GetLoan(ctx, companyID, l.ID)
	require.NoError(t, err)
	assertMoney(t, "1500.00", l.RemainingBalance, "computing does not touch the ledger")

	_, err = f.svc.ApproveEntry(ctx, payroll.EntryActionRequest{CompanyID: companyID, EntryID: entry.ID, Actor: "hr-1"})
	require.NoError(t, err)
	l, _, err = f.loans.GetLoan(ctx, companyID, l.ID)
	require.NoError(t, err)
	assertMoney(t, "500.00", l.RemainingBalance)

	second := f.openPeriod(t, "2025-06-16", "2025-06-30", "2025-06-30")
	res = f.compute(t, second)
	require.Len(t, res.Entries[0].LoanDeductions, 1)
	assertMoney(t, "500.00", res.Entries[0].LoanDeductions[0].Amount)

	_, err = f.svc.ApprovePeriod(ctx, payroll.PeriodActionRequest{CompanyID: companyID, PeriodID: second.ID, Actor: "hr-1"})
	require.NoError(t, err)
	l, _, err = f.loans.GetLoan(ctx, companyID, l.ID)
	require.NoError(t, err)
	assert.True(t, l.RemainingBalance.IsZero())
	assert.Equal(t, loan.StatusCompleted, l.Status)
}

func TestApproveEntry_RollsBackBookedDeductionsOnFailure(t *testing.T) {
	f := newFixture(t)
	f.withTables(t)
	ctx := context.Background()

	for _, principal := range []string{"1500", "1000"} {
		l, err := f.loans.CreateLoan(ctx, loan.CreateLoanRequest{
			CompanyID:         companyID,
			EmployeeID:        "emp-1",
			Kind:              "salary",
			Principal:         d(principal),
			InstallmentAmount: d("1000"),
			StartDate:         "2025-06-01",
		})
		require.NoError(t, err)
		_, err = f.loans.ActivateLoan(ctx, loan.LoanActionRequest{CompanyID: companyID, LoanID: l.ID})
		require.NoError(t, err)
	}

	f.seed(t, "emp-1", "2025-06-01", "2025-06-15", nil)
	f.seed(t, "emp-2", "2025-06-01", "2025-06-15", nil)
	p := f.openPeriod(t, "2025-06-01", "2025-06-15", "2025-06-15")
	entry := f.compute(t, p).Entries[0]
	require.Len(t, entry.LoanDeductions, 2)
	booked, cancelled := entry.LoanDeductions[0].LoanID, entry.LoanDeductions[1].LoanID

	// the second installment fails after the first one was booked
	_, err := f.loans.CancelLoan(ctx, loan.LoanActionRequest{CompanyID: companyID, LoanID: cancelled})
	require.NoError(t, err)

	_, err = f.svc.ApproveEntry(ctx, payroll.EntryActionRequest{CompanyID: companyID, EntryID: entry.ID, Actor: "hr-1"})
	assert.ErrorIs(t, err, loan.ErrLoanNotActive)

	stored, err := f.svc.GetEntry(ctx, companyID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.EntryStatusDraft, stored.Status)

	before, txs, err := f.loans.GetLoan(ctx, companyID, booked)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, loan.TxPayrollDeduction, txs[0].Kind)
	assert.Equal(t, loan.TxReversal, txs[1].Kind)
	assertMoney(t, before.Principal.StringFixed(2), before.RemainingBalance, "ledger is back where it started")

	t.Run("recompute drops the cancelled loan and approval books the rest", func(t *testing.T) {
		res := f.recompute(t, p, false)
		require.Len(t, res.Entries, 2)
		e := res.Entries[0]
		require.Len(t, e.LoanDeductions, 1)
		assert.Equal(t, booked, e.LoanDeductions[0].LoanID)
		assertMoney(t, "1000.00", e.LoanDeductions[0].Amount, "planned from the restored balance")

		_, err := f.svc.ApproveEntry(ctx, payroll.EntryActionRequest{CompanyID: companyID, EntryID: e.ID, Actor: "hr-1"})
		require.NoError(t, err)

		l, txs, err := f.loans.GetLoan(ctx, companyID, booked)
		require.NoError(t, err)
		assert.Len(t, txs, 3)
		assertMoney(t, l.Principal.Sub(e.LoanDeductions[0].Amount).StringFixed(2), l.RemainingBalance)
	})
}

func TestApproval_HoldsPeriodLock(t *testing.T) {
	f := newFixture(t)
	f.withTables(t)
	ctx := context.Background()
	f.seed(t, "emp-1", "2025-06-01", "2025-06-15", nil)
	f.seed(t, "emp-2", "2025-06-01", "2025-06-15", nil)
	p := f.openPeriod(t, "2025-06-01", "2025-06-15", "2025-06-15")
	res := f.compute(t, p)

	approved, err := f.svc.ApproveEntry(ctx, payroll.EntryActionRequest{CompanyID: companyID, EntryID: res.Entries[0].ID, Actor: "hr-1"})
	require.NoError(t, err)

	release, err := f.locker.TryAcquire(ctx, periodLockKey(p.ID), time.Minute)
	require.NoError(t, err)

	_, err = f.svc.ApproveEntry(ctx, payroll.EntryActionRequest{CompanyID: companyID, EntryID: res.Entries[1].ID, Actor: "hr-1"})
	assert.ErrorIs(t, err, payroll.ErrComputationInProgress)
	_, err = f.svc.ApprovePeriod(ctx, payroll.PeriodActionRequest{CompanyID: companyID, PeriodID: p.ID, Actor: "hr-1"})
	assert.ErrorIs(t, err, payroll.ErrComputationInProgress)
	_, err = f.svc.VoidEntry(ctx, payroll.EntryActionRequest{CompanyID: companyID, EntryID: approved.ID, Reason: "wrong rate", Actor: "hr-1"})
	assert.ErrorIs(t, err, payroll.ErrComputationInProgress)

	stored, err := f.svc.GetEntry(ctx, companyID, res.Entries[1].ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.EntryStatusDraft, stored.Status)

	require.NoError(t, release(ctx))
	_, err = f.svc.ApprovePeriod(ctx, payroll.PeriodActionRequest{CompanyID: companyID, PeriodID: p.ID, Actor: "hr-1"})
	require.NoError(t, err)

	t.Run("approved entries are never overwritten by a save", func(t *testing.T) {
		stale := res.Entries[1]
		stale.NetPay = d("1")
		err := f.entries.Save(ctx, stale)
		assert.ErrorIs(t, err, payroll.ErrCannotRecomputeApprovedEntry)

		stored, err := f.svc.GetEntry(ctx, companyID, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, payroll.EntryStatusApproved, stored.Status)
		assert.False(t, stored.NetPay.Equal(d("1")))
	})
}

func TestRecompute_ApprovedEntriesNeedVoidAndForce(t *testing.T) {
	f := newFixture(t)
	f.withTables(t)
	ctx := context.Background()
	f.seed(t, "emp-1", "2025-06-01", "2025-06-15", nil)
	f.seed(t, "emp-2", "2025-06-01", "2025-06-15", nil)
	p := f.openPeriod(t, "2025-06-01", "2025-06-15", "2025-06-15")

	res := f.compute(t, p)
	approved, err := f.svc.ApproveEntry(ctx, payroll.EntryActionRequest{CompanyID: companyID, EntryID: res.Entries[0].ID, Actor: "hr-1"})
	require.NoError(t, err)

	res = f.recompute(t, p, false)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "emp-1", res.Failures[0].EmployeeID)
	assert.ErrorIs(t, res.Failures[0], payroll.ErrCannotRecomputeApprovedEntry)
	assert.Len(t, res.Entries, 1)

	_, err = f.svc.VoidEntry(ctx, payroll.EntryActionRequest{CompanyID: companyID, EntryID: approved.ID})
	assert.ErrorIs(t, err, payroll.ErrVoidReasonRequired)
	voided, err := f.svc.VoidEntry(ctx, payroll.EntryActionRequest{CompanyID: companyID, EntryID: approved.ID, Reason: "wrong rate", Actor: "hr-1"})
	require.NoError(t, err)
	assert.Equal(t, payroll.EntryStatusVoided, voided.Status)

	res = f.recompute(t, p, false)
	require.Len(t, res.Failures, 1, "voided entries need force")

	res = f.recompute(t, p, true)
	assert.Empty(t, res.Failures)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, payroll.EntryStatusDraft, res.Entries[0].Status)
	assert.Equal(t, approved.ID, res.Entries[0].ID)
}

func TestPeriodLifecycle(t *testing.T) {
	f := newFixture(t)
	f.withTables(t)
	ctx := context.Background()
	f.seed(t, "emp-1", "2025-06-01", "2025-06-15", nil)
	f.seed(t, "emp-2", "2025-06-01", "2025-06-15", nil)
	p := f.openPeriod(t, "2025-06-01", "2025-06-15", "2025-06-15")
	act := payroll.PeriodActionRequest{CompanyID: companyID, PeriodID: p.ID, Actor: "hr-1"}

	_, err := f.svc.ApprovePeriod(ctx, act)
	assert.ErrorIs(t, err, payroll.ErrInvalidPeriodTransition)

	res := f.compute(t, p)
	_, err = f.svc.ReviewEntry(ctx, payroll.EntryActionRequest{CompanyID: companyID, EntryID: res.Entries[1].ID, Actor: "hr-2"})
	require.NoError(t, err)

	_, err = f.svc.ApprovePeriod(ctx, act)
	require.NoError(t, err)

	sum, err := f.svc.Summary(ctx, companyID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalEmployees)
	assert.Equal(t, map[string]int{"approved": 2}, sum.CountByStatus)
	assertMoney(t, "21868.75", sum.TotalNetPay)
	assertMoney(t, "1350.00", sum.TotalEmployerShare)

	t.Run("supplemental requires a paid period", func(t *testing.T) {
		_, err := f.svc.CreatePeriod(ctx, payroll.CreatePeriodRequest{
			CompanyID:        companyID,
			CycleType:        string(payroll.CycleSupplemental),
			StartDate:        "2025-06-01",
			EndDate:          "2025-06-15",
			PayDate:          "2025-06-25",
			CorrectsPeriodID: &p.ID,
		})
		assert.ErrorIs(t, err, payroll.ErrSupplementalRequiresPaidPeriod)
	})

	_, err = f.svc.MarkPaid(ctx, act)
	require.NoError(t, err)
	entries, _, err := f.svc.ListEntries(ctx, companyID, p.ID, payroll.EntryFilter{})
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, payroll.EntryStatusPaid, e.Status)
	}
	_, err = f.svc.VoidEntry(ctx, payroll.EntryActionRequest{CompanyID: companyID, EntryID: entries[0].ID, Reason: "late correction"})
	assert.ErrorIs(t, err, payroll.ErrEntryImmutable)

	closed, err := f.svc.ClosePeriod(ctx, act)
	require.NoError(t, err)
	assert.Equal(t, payroll.PeriodStatusClosed, closed.Status)

	t.Run("supplemental period pays adjustments only", func(t *testing.T) {
		adj, err := f.loans.CreateAdjustment(ctx, loan.CreateAdjustmentRequest{
			CompanyID:     companyID,
			EmployeeID:    "emp-1",
			Kind:          string(loan.AdjustmentAllowance),
			Code:          "BACKPAY",
			Name:          "Rate correction",
			Amount:        d("5000"),
			EffectiveFrom: "2025-06-20",
		})
		require.NoError(t, err)
		_, err = f.loans.ActivateAdjustment(ctx, loan.AdjustmentActionRequest{CompanyID: companyID, AdjustmentID: adj.ID})
		require.NoError(t, err)

		supp, err := f.svc.CreatePeriod(ctx, payroll.CreatePeriodRequest{
			CompanyID:        companyID,
			CycleType:        string(payroll.CycleSupplemental),
			StartDate:        "2025-06-16",
			EndDate:          "2025-06-25",
			PayDate:          "2025-06-25",
			CorrectsPeriodID: &p.ID,
		})
		require.NoError(t, err)
		_, err = f.svc.OpenPeriod(ctx, payroll.PeriodActionRequest{CompanyID: companyID, PeriodID: supp.ID})
		require.NoError(t, err)

		res, err := f.svc.Compute(ctx, payroll.ComputeRequest{CompanyID: companyID, PeriodID: supp.ID, EmployeeIDs: []string{"emp-1"}})
		require.NoError(t, err)
		require.Len(t, res.Entries, 1)
		e := res.Entries[0]
		assert.Empty(t, e.Contributions)
		assertMoney(t, "0.00", e.BasicPay)
		assertMoney(t, "5000.00", e.GrossPay)
		assertMoney(t, "0.00", e.WithholdingTax)
		assertMoney(t, "5000.00", e.NetPay)
	})
}

func TestTaxSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.svc.GetTaxSettings(ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, contribution.TaxMethodBracket, s.Method)

	_, err = f.svc.UpdateTaxSettings(ctx, payroll.UpdateTaxSettingsRequest{CompanyID: companyID, Method: "flat"})
	assert.Error(t, err)

	_, err = f.svc.UpdateTaxSettings(ctx, payroll.UpdateTaxSettingsRequest{CompanyID: companyID, Method: string(contribution.TaxMethodCumulativeAverage)})
	require.NoError(t, err)
	s, err = f.svc.GetTaxSettings(ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, contribution.TaxMethodCumulativeAverage, s.Method)
}
