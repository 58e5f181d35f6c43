package contribution

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var centavo = decimal.RequireFromString("0.01")

// Validate checks that the brackets start at zero, are contiguous and
// non-overlapping, and end with an open-ended row. Adjacent rows may share a
// boundary (it belongs to the lower row) or be one centavo apart.
func (v TableVersion) Validate() error {
	if !v.TableType.Valid() {
		return &TableError{TableType: v.TableType, EffectiveDate: v.EffectiveDate, Row: -1, Reason: "unknown table type"}
	}
	if len(v.Rows) == 0 {
		return &TableError{TableType: v.TableType, EffectiveDate: v.EffectiveDate, Row: -1, Reason: "no rows"}
	}

	rows := append([]Row(nil), v.Rows...)
	sortRows(rows)

	if !rows[0].MinCompensation.IsZero() {
		return &TableError{TableType: v.TableType, EffectiveDate: v.EffectiveDate, Row: 0, Reason: "first bracket must start at 0"}
	}
	for i, r := range rows {
		if r.MaxCompensation != nil && r.MaxCompensation.LessThan(r.MinCompensation) {
			return &TableError{TableType: v.TableType, EffectiveDate: v.EffectiveDate, Row: i, Reason: "max is below min"}
		}
		if i == len(rows)-1 {
			if r.MaxCompensation != nil {
				return &TableError{TableType: v.TableType, EffectiveDate: v.EffectiveDate, Row: i, Reason: "top bracket must be open-ended"}
			}
			break
		}
		if r.MaxCompensation == nil {
			return &TableError{TableType: v.TableType, EffectiveDate: v.EffectiveDate, Row: i, Reason: "only the top bracket may be open-ended"}
		}
		next := rows[i+1].MinCompensation
		switch {
		case next.LessThan(*r.MaxCompensation):
			return &TableError{TableType: v.TableType, EffectiveDate: v.EffectiveDate, Row: i + 1, Reason: "overlaps previous bracket"}
		case next.GreaterThan(r.MaxCompensation.Add(centavo)):
			return &TableError{TableType: v.TableType, EffectiveDate: v.EffectiveDate, Row: i + 1, Reason: "gap after previous bracket"}
		}
	}
	return nil
}

// Resolver answers bracket lookups against an immutable, preloaded set of
// table versions.
type Resolver struct {
	versions map[TableType][]TableVersion
}

// NewResolver groups rows into versions by (table type, effective date).
func NewResolver(rows []Row) Resolver {
	grouped := make(map[TableType]map[string]*TableVersion)
	for _, r := range rows {
		byDate, ok := grouped[r.TableType]
		if !ok {
			byDate = make(map[string]*TableVersion)
			grouped[r.TableType] = byDate
		}
		key := r.EffectiveDate.Format(time.DateOnly)
		v, ok := byDate[key]
		if !ok {
			v = &TableVersion{TableType: r.TableType, EffectiveDate: r.EffectiveDate}
			byDate[key] = v
		}
		v.Rows = append(v.Rows, r)
	}

	rs := Resolver{versions: make(map[TableType][]TableVersion)}
	for tt, byDate := range grouped {
		list := make([]TableVersion, 0, len(byDate))
		for _, v := range byDate {
			sortRows(v.Rows)
			list = append(list, *v)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].EffectiveDate.Before(list[j].EffectiveDate) })
		rs.versions[tt] = list
	}
	return rs
}

// Version returns the latest version effective on or before asOf.
func (rs Resolver) Version(tableType TableType, asOf time.Time) (TableVersion, bool) {
	list := rs.versions[tableType]
	day := civil(asOf)
	for i := len(list) - 1; i >= 0; i-- {
		if !civil(list[i].EffectiveDate).After(day) {
			return list[i], true
		}
	}
	return TableVersion{}, false
}

// Resolve finds the bracket for compensation in the version effective on asOf.
func (rs Resolver) Resolve(tableType TableType, compensation decimal.Decimal, asOf time.Time) (Amounts, error) {
	compensation = compensation.Round(2)

	v, ok := rs.Version(tableType, asOf)
	if !ok {
		return Amounts{}, &BracketError{TableType: tableType, Compensation: compensation, AsOf: asOf, Err: ErrNoApplicableTableVersion}
	}

	lookup := compensation
	if lookup.IsNegative() {
		lookup = decimal.Zero
	}
	for _, r := range v.Rows {
		if !r.Matches(lookup) {
			continue
		}
		return Amounts{
			TableType:     tableType,
			EffectiveDate: v.EffectiveDate,
			RowID:         r.ID,
			Compensation:  compensation,
			EmployeeShare: nonNegative(r.EmployeeShare.Amount(lookup)).Round(2),
			EmployerShare: nonNegative(r.EmployerShare.Amount(lookup)).Round(2),
		}, nil
	}
	return Amounts{}, &BracketError{TableType: tableType, Compensation: compensation, AsOf: asOf, Err: ErrNoMatchingBracket}
}

// WithholdingTax computes one period's tax from the annual tax table.
//
// bracket annualizes the period's taxable income and spreads the annual tax
// evenly. cumulative_average projects year-to-date taxable income to a full
// year, prorates the annual tax to the periods elapsed and subtracts what was
// already withheld.
func (rs Resolver) WithholdingTax(in TaxInput) (decimal.Decimal, error) {
	if in.PeriodsPerYear <= 0 {
		in.PeriodsPerYear = 1
	}
	perYear := decimal.NewFromInt(int64(in.PeriodsPerYear))

	switch in.Method {
	case TaxMethodBracket:
		annual, err := rs.Resolve(TableWithholdingTax, in.PeriodTaxable.Mul(perYear), in.AsOf)
		if err != nil {
			return decimal.Zero, err
		}
		return annual.EmployeeShare.Div(perYear).Round(2), nil

	case TaxMethodCumulativeAverage:
		index := in.PeriodIndex
		if index <= 0 {
			index = 1
		}
		elapsed := decimal.NewFromInt(int64(index))
		cumulative := in.YTDTaxable.Add(in.PeriodTaxable)
		projected := cumulative.Div(elapsed).Mul(perYear)

		annual, err := rs.Resolve(TableWithholdingTax, projected, in.AsOf)
		if err != nil {
			return decimal.Zero, err
		}
		due := annual.EmployeeShare.Mul(elapsed).Div(perYear).Sub(in.YTDWithheld)
		return nonNegative(due).Round(2), nil
	}
	return decimal.Zero, ErrInvalidTaxMethod
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
