package employee

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRates_Monthly(t *testing.T) {
	salary := decimal.NewFromInt(26100)
	e := Employee{PayBasis: PayBasisMonthly, BaseSalary: &salary}

	r, err := e.Rates(261)
	require.NoError(t, err)
	assert.True(t, r.Daily.Equal(decimal.NewFromInt(1200)), r.Daily.String())
	assert.True(t, r.Hourly.Equal(decimal.NewFromInt(150)), r.Hourly.String())
	assert.True(t, r.Minute.Equal(decimal.RequireFromString("2.5")), r.Minute.String())
}

func TestRates_Daily(t *testing.T) {
	daily := decimal.NewFromInt(800)
	e := Employee{PayBasis: PayBasisDaily, DailyRate: &daily}

	r, err := e.Rates(261)
	require.NoError(t, err)
	assert.True(t, r.Daily.Equal(daily))
	assert.True(t, r.Hourly.Equal(decimal.NewFromInt(100)))
}

func TestRates_MissingCompensation(t *testing.T) {
	_, err := Employee{PayBasis: PayBasisMonthly}.Rates(261)
	assert.ErrorIs(t, err, ErrMissingCompensation)

	zero := decimal.Zero
	_, err = Employee{PayBasis: PayBasisDaily, DailyRate: &zero}.Rates(261)
	assert.ErrorIs(t, err, ErrMissingCompensation)

	_, err = Employee{PayBasis: "hourly"}.Rates(261)
	assert.ErrorIs(t, err, ErrInvalidPayBasis)
}

func TestActiveDuring(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	resigned := time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC)

	assert.True(t, Employee{HireDate: from.AddDate(-1, 0, 0)}.ActiveDuring(from, to))
	assert.False(t, Employee{HireDate: to.AddDate(0, 0, 1)}.ActiveDuring(from, to))
	assert.False(t, Employee{HireDate: from.AddDate(-1, 0, 0), ResignationDate: &resigned}.ActiveDuring(from, to))
}
