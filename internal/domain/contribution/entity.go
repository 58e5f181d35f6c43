package contribution

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type TableType string

const (
	TableSSS            TableType = "sss"
	TablePhilHealth     TableType = "philhealth"
	TablePagIBIG        TableType = "pagibig"
	TableWithholdingTax TableType = "withholding_tax"
)

var TableTypeValues = []string{
	string(TableSSS),
	string(TablePhilHealth),
	string(TablePagIBIG),
	string(TableWithholdingTax),
}

func (t TableType) Valid() bool {
	switch t {
	case TableSSS, TablePhilHealth, TablePagIBIG, TableWithholdingTax:
		return true
	}
	return false
}

// GovernmentTables are the contributions deducted every regular period.
var GovernmentTables = []TableType{TableSSS, TablePhilHealth, TablePagIBIG}

// Share is Fixed + Rate × (compensation − ExcessOver). A zero Rate makes it a flat amount.
type Share struct {
	Fixed      decimal.Decimal `json:"fixed"`
	Rate       decimal.Decimal `json:"rate"`
	ExcessOver decimal.Decimal `json:"excess_over"`
}

func (s Share) Amount(compensation decimal.Decimal) decimal.Decimal {
	if s.Rate.IsZero() {
		return s.Fixed
	}
	return s.Fixed.Add(s.Rate.Mul(compensation.Sub(s.ExcessOver)))
}

// Row is one bracket. A nil MaxCompensation marks the open-ended top bracket.
type Row struct {
	ID              string
	CompanyID       string
	TableType       TableType
	EffectiveDate   time.Time
	MinCompensation decimal.Decimal
	MaxCompensation *decimal.Decimal
	EmployeeShare   Share
	EmployerShare   Share
}

func (r Row) Matches(compensation decimal.Decimal) bool {
	if compensation.LessThan(r.MinCompensation) {
		return false
	}
	return r.MaxCompensation == nil || compensation.LessThanOrEqual(*r.MaxCompensation)
}

// TableVersion is the full bracket set of one table type from EffectiveDate on.
type TableVersion struct {
	TableType     TableType
	EffectiveDate time.Time
	Rows          []Row
}

// Amounts is a resolved contribution, already rounded to centavos.
type Amounts struct {
	TableType     TableType
	EffectiveDate time.Time
	RowID         string
	Compensation  decimal.Decimal
	EmployeeShare decimal.Decimal
	EmployerShare decimal.Decimal
}

type TaxMethod string

const (
	TaxMethodBracket           TaxMethod = "bracket"
	TaxMethodCumulativeAverage TaxMethod = "cumulative_average"
)

func (m TaxMethod) Valid() bool {
	switch m {
	case TaxMethodBracket, TaxMethodCumulativeAverage:
		return true
	}
	return false
}

// TaxInput describes one period's withholding. PeriodIndex is 1-based within
// the tax year; YTD fields exclude the current period.
type TaxInput struct {
	Method         TaxMethod
	PeriodTaxable  decimal.Decimal
	PeriodsPerYear int
	PeriodIndex    int
	YTDTaxable     decimal.Decimal
	YTDWithheld    decimal.Decimal
	AsOf           time.Time
}

func sortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].MinCompensation.LessThan(rows[j].MinCompensation)
	})
}
