package postgresql_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/contribution"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/repository/postgresql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestContributionRepository_ReplaceVersion(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewContributionRepository(setup.DB)
	companyID := uuid.NewString()

	upper := decimal.NewFromInt(4250)
	version := contribution.TableVersion{
		TableType:     contribution.TableSSS,
		EffectiveDate: date(2025, time.January, 1),
		Rows: []contribution.Row{
			{MinCompensation: decimal.Zero, MaxCompensation: &upper, EmployeeShare: contribution.Share{Fixed: decimal.NewFromInt(180)}},
			{MinCompensation: decimal.NewFromInt(4250), EmployeeShare: contribution.Share{Fixed: decimal.NewFromInt(1000)}},
		},
	}
	require.NoError(t, repo.ReplaceVersion(ctx, companyID, version))

	version.Rows = version.Rows[1:]
	require.NoError(t, repo.ReplaceVersion(ctx, companyID, version))

	rows, err := repo.ListRows(ctx, companyID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].EmployeeShare.Fixed.Equal(decimal.NewFromInt(1000)))
	assert.Nil(t, rows[0].MaxCompensation)

	t.Run("duplicate bracket", func(t *testing.T) {
		dup := version
		dup.Rows = []contribution.Row{version.Rows[0], version.Rows[0]}
		err := repo.ReplaceVersion(ctx, companyID, dup)
		assert.ErrorIs(t, err, contribution.ErrInvalidTable)

		rows, err := repo.ListRows(ctx, companyID)
		require.NoError(t, err)
		assert.Len(t, rows, 1, "failed replace must roll back")
	})
}

func TestPayrollRepositories(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	periods := postgresql.NewPeriodRepository(setup.DB)
	entries := postgresql.NewEntryRepository(setup.DB)
	companyID := uuid.NewString()
	employeeID := setup.CreateEmployee(t, companyID, "26100")
	now := time.Date(2025, time.June, 20, 9, 0, 0, 0, time.UTC)

	period, err := periods.Create(ctx, payroll.Period{
		CompanyID: companyID,
		CycleType: payroll.CycleSemiMonthly,
		StartDate: date(2025, time.June, 1),
		EndDate:   date(2025, time.June, 15),
		PayDate:   date(2025, time.June, 20),
		Status:    payroll.PeriodStatusDraft,
		CreatedAt: now,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, period.ID)

	t.Run("period transitions check the stored status", func(t *testing.T) {
		err := periods.UpdateStatus(ctx, period.ID, companyID, payroll.PeriodStatusOpen, payroll.PeriodStatusComputing, now)
		assert.ErrorIs(t, err, payroll.ErrInvalidPeriodTransition)

		require.NoError(t, periods.UpdateStatus(ctx, period.ID, companyID, payroll.PeriodStatusDraft, payroll.PeriodStatusOpen, now))
		got, err := periods.GetByID(ctx, period.ID, companyID)
		require.NoError(t, err)
		assert.Equal(t, payroll.PeriodStatusOpen, got.Status)

		_, err = periods.GetByID(ctx, period.ID, uuid.NewString())
		assert.ErrorIs(t, err, payroll.ErrPeriodNotFound)
	})

	entry := payroll.Entry{
		ID:         payroll.EntryID(period.ID, employeeID),
		PeriodID:   period.ID,
		EmployeeID: employeeID,
		CompanyID:  companyID,
		PayBasis:   employee.PayBasisMonthly,
		DailyRate:  decimal.NewFromInt(1200),
		HourlyRate: decimal.NewFromInt(150),
		BasicPay:   decimal.NewFromInt(13050),
		Allowances: []payroll.Line{{Code: "RICE", Name: "Rice", Amount: decimal.NewFromInt(500)}},
		Contributions: []payroll.ContributionLine{
			{TableType: contribution.TableSSS, Basis: decimal.NewFromInt(26100), EmployeeShare: decimal.NewFromInt(500), EmployerShare: decimal.NewFromInt(1000)},
		},
		GrossPay:      decimal.NewFromInt(13550),
		TaxableIncome: decimal.NewFromInt(13050),
		NetPay:        decimal.NewFromInt(13050),
		Attendance:    payroll.Attendance{DaysWorked: 11},
		Status:        payroll.EntryStatusDraft,
		Checksum:      strings.Repeat("a", 64),
		ComputedAt:    now,
		UpdatedAt:     now,
	}
	require.NoError(t, entries.Save(ctx, entry))

	entry.NetPay = decimal.NewFromInt(12900)
	entry.Checksum = strings.Repeat("b", 64)
	require.NoError(t, entries.Save(ctx, entry))

	got, err := entries.GetByPeriodEmployee(ctx, period.ID, employeeID, companyID)
	require.NoError(t, err)
	assert.True(t, got.NetPay.Equal(decimal.NewFromInt(12900)))
	assert.Equal(t, strings.Repeat("b", 64), got.Checksum)
	require.Len(t, got.Allowances, 1)
	assert.Equal(t, "RICE", got.Allowances[0].Code)
	require.Len(t, got.Contributions, 1)
	assert.Equal(t, contribution.TableSSS, got.Contributions[0].TableType)
	assert.Equal(t, 11, got.Attendance.DaysWorked)
	assert.Empty(t, got.LoanDeductions)

	list, total, err := entries.ListByPeriod(ctx, period.ID, companyID, payroll.EntryFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)

	t.Run("entry status changes and year to date", func(t *testing.T) {
		approver := "payroll-admin"
		approved := got
		approved.Status = payroll.EntryStatusApproved
		approved.ApprovedBy = &approver
		approved.ApprovedAt = &now
		approved.UpdatedAt = now

		err := entries.UpdateStatus(ctx, approved, payroll.EntryStatusReviewed)
		assert.ErrorIs(t, err, payroll.ErrInvalidEntryTransition)
		require.NoError(t, entries.UpdateStatus(ctx, approved, payroll.EntryStatusDraft))

		ytd, err := entries.YearToDate(ctx, companyID, employeeID, 2025, date(2025, time.July, 5))
		require.NoError(t, err)
		assert.Equal(t, 1, ytd.Periods)
		assert.True(t, ytd.Taxable.Equal(decimal.NewFromInt(13050)))

		ytd, err = entries.YearToDate(ctx, companyID, employeeID, 2025, date(2025, time.June, 20))
		require.NoError(t, err)
		assert.Zero(t, ytd.Periods, "pay date itself is excluded")
	})
}

func TestTaxSettingsRepository(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewTaxSettingsRepository(setup.DB)
	companyID := uuid.NewString()

	_, err := repo.Get(ctx, companyID)
	assert.ErrorIs(t, err, payroll.ErrTaxSettingsNotFound)

	at := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	_, err = repo.Upsert(ctx, payroll.TaxSettings{CompanyID: companyID, Method: contribution.TaxMethodBracket, UpdatedAt: at})
	require.NoError(t, err)
	saved, err := repo.Upsert(ctx, payroll.TaxSettings{CompanyID: companyID, Method: contribution.TaxMethodCumulativeAverage, UpdatedAt: at})
	require.NoError(t, err)
	assert.Equal(t, contribution.TaxMethodCumulativeAverage, saved.Method)

	got, err := repo.Get(ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, contribution.TaxMethodCumulativeAverage, got.Method)
}
