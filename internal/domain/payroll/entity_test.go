package payroll

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/contribution"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPeriodStatus_Transitions(t *testing.T) {
	forward := []PeriodStatus{
		PeriodStatusDraft, PeriodStatusOpen, PeriodStatusComputing, PeriodStatusComputed,
		PeriodStatusApproved, PeriodStatusPaid, PeriodStatusClosed,
	}
	for i := 0; i+1 < len(forward); i++ {
		assert.True(t, forward[i].CanTransition(forward[i+1]), "%s -> %s", forward[i], forward[i+1])
	}

	assert.True(t, PeriodStatusComputed.CanTransition(PeriodStatusComputing), "recompute edge")
	assert.True(t, PeriodStatusComputing.CanTransition(PeriodStatusOpen), "rollback edge")

	assert.False(t, PeriodStatusApproved.CanTransition(PeriodStatusComputing))
	assert.False(t, PeriodStatusPaid.CanTransition(PeriodStatusApproved))
	assert.False(t, PeriodStatusOpen.CanTransition(PeriodStatusApproved), "no skipping")
	assert.False(t, PeriodStatusClosed.CanTransition(PeriodStatusOpen))
}

func TestPeriod_Index(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	semi := func(start, end, pay time.Time) Period {
		return Period{CycleType: CycleSemiMonthly, StartDate: start, EndDate: end, PayDate: pay}
	}

	assert.Equal(t, 5, semi(day(2025, 3, 1), day(2025, 3, 15), day(2025, 3, 15)).Index())
	assert.Equal(t, 6, semi(day(2025, 3, 16), day(2025, 3, 31), day(2025, 3, 31)).Index())
	assert.Equal(t, 3, Period{CycleType: CycleMonthly, StartDate: day(2025, 3, 1), EndDate: day(2025, 3, 31), PayDate: day(2025, 3, 31)}.Index())

	t.Run("pay date lagging into the next half", func(t *testing.T) {
		first := semi(day(2025, 1, 1), day(2025, 1, 15), day(2025, 1, 20))
		second := semi(day(2025, 1, 16), day(2025, 1, 31), day(2025, 2, 5))
		assert.Equal(t, 1, first.Index())
		assert.Equal(t, 2, second.Index())

		monthly := Period{CycleType: CycleMonthly, StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 31), PayDate: day(2025, 2, 5)}
		assert.Equal(t, 1, monthly.Index())
	})

	t.Run("december period paid in january", func(t *testing.T) {
		p := semi(day(2024, 12, 16), day(2024, 12, 31), day(2025, 1, 5))
		assert.Equal(t, 1, p.Index())
	})

	assert.Equal(t, 24, CycleSemiMonthly.PeriodsPerYear())
	assert.Equal(t, 1, CycleSupplemental.PeriodsPerYear())
}

func TestEntryStatus_Replaceable(t *testing.T) {
	assert.True(t, EntryStatusDraft.Replaceable(false))
	assert.True(t, EntryStatusReviewed.Replaceable(false))
	assert.False(t, EntryStatusApproved.Replaceable(true))
	assert.False(t, EntryStatusPaid.Replaceable(true))
	assert.False(t, EntryStatusVoided.Replaceable(false))
	assert.True(t, EntryStatusVoided.Replaceable(true))
}

func TestEntryID_Stable(t *testing.T) {
	assert.Equal(t, EntryID("p1", "e1"), EntryID("p1", "e1"))
	assert.NotEqual(t, EntryID("p1", "e1"), EntryID("p1", "e2"))
}

func sampleEntry() Entry {
	return Entry{
		ID:                   EntryID("p1", "e1"),
		PeriodID:             "p1",
		EmployeeID:           "e1",
		BasicPay:             d("15000.00"),
		OvertimePay:          d("431.03"),
		NightDifferentialPay: d("12.50"),
		TardinessDeduction:   d("14.37"),
		Allowances: []Line{
			{Code: "rice", Name: "Rice subsidy", Amount: d("1000.00")},
			{Code: "comm", Name: "Commission", Amount: d("500.00"), Taxable: true},
		},
		Contributions: []ContributionLine{
			{TableType: contribution.TableSSS, EmployeeShare: d("675.00"), EmployerShare: d("1430.00")},
			{TableType: contribution.TablePagIBIG, EmployeeShare: d("100.00"), EmployerShare: d("100.00")},
		},
		WithholdingTax:  d("321.45"),
		LoanDeductions:  []LoanLine{{LoanID: "l1", Amount: d("1000.00")}},
		OtherDeductions: []Line{{Code: "uniform", Amount: d("250.00")}},
	}
}

func TestEntry_TotalKeepsNetExact(t *testing.T) {
	e := sampleEntry()
	e.Total()

	assert.Equal(t, "16929.16", e.GrossPay.StringFixed(2))
	// 16929.16 - 1000 non-taxable - 775 contributions
	assert.Equal(t, "15154.16", e.TaxableIncome.StringFixed(2))
	assert.Equal(t, "2346.45", e.TotalDeductions.StringFixed(2))
	assert.True(t, e.NetPay.Equal(e.GrossPay.Sub(e.TotalDeductions)))
	assert.Equal(t, "comm", e.Allowances[0].Code, "lines are sorted")
	assert.Equal(t, contribution.TablePagIBIG, e.Contributions[0].TableType)
}

func TestEntry_ChecksumIgnoresMetadata(t *testing.T) {
	a := sampleEntry()
	a.Total()

	b := sampleEntry()
	b.Allowances[0], b.Allowances[1] = b.Allowances[1], b.Allowances[0]
	b.Status = EntryStatusApproved
	b.ComputedAt = time.Now()
	b.Total()

	require.NotEmpty(t, a.Checksum)
	assert.Equal(t, a.Checksum, b.Checksum)

	b.WithholdingTax = d("321.46")
	b.Total()
	assert.NotEqual(t, a.Checksum, b.Checksum)
}
