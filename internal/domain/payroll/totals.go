package payroll

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// Round2 rounds half away from zero to centavos.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Total sorts the breakdown, fills GrossPay, TaxableIncome, TotalDeductions
// and NetPay from the already rounded lines, then stamps the checksum.
//
// Taxable income is gross minus non-taxable allowances minus employee
// contributions.
func (e *Entry) Total() {
	sort.SliceStable(e.Allowances, func(i, j int) bool { return lineKey(e.Allowances[i]) < lineKey(e.Allowances[j]) })
	sort.SliceStable(e.OtherDeductions, func(i, j int) bool {
		return lineKey(e.OtherDeductions[i]) < lineKey(e.OtherDeductions[j])
	})
	sort.SliceStable(e.Contributions, func(i, j int) bool { return e.Contributions[i].TableType < e.Contributions[j].TableType })
	sort.SliceStable(e.LoanDeductions, func(i, j int) bool { return e.LoanDeductions[i].LoanID < e.LoanDeductions[j].LoanID })

	gross := e.BasicPay.
		Add(e.OvertimePay).
		Add(e.NightDifferentialPay).
		Add(e.HolidayPay).
		Add(e.RestDayPay).
		Sub(e.AbsenceDeduction).
		Sub(e.TardinessDeduction)
	nonTaxable := decimal.Zero
	for _, a := range e.Allowances {
		gross = gross.Add(a.Amount)
		if !a.Taxable {
			nonTaxable = nonTaxable.Add(a.Amount)
		}
	}
	e.GrossPay = gross

	taxable := gross.Sub(nonTaxable).Sub(e.EmployeeContributions())
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}
	e.TaxableIncome = taxable

	deductions := e.EmployeeContributions().Add(e.WithholdingTax)
	for _, l := range e.LoanDeductions {
		deductions = deductions.Add(l.Amount)
	}
	for _, d := range e.OtherDeductions {
		deductions = deductions.Add(d.Amount)
	}
	e.TotalDeductions = deductions
	e.NetPay = gross.Sub(deductions)

	e.Checksum = e.ComputeChecksum()
}

func lineKey(l Line) string {
	return l.Code + "|" + l.Name + "|" + l.SourceID
}

type canonicalEntry struct {
	ID                   string             `json:"id"`
	PeriodID             string             `json:"period_id"`
	EmployeeID           string             `json:"employee_id"`
	BasicPay             string             `json:"basic_pay"`
	OvertimePay          string             `json:"overtime_pay"`
	NightDifferentialPay string             `json:"night_differential_pay"`
	HolidayPay           string             `json:"holiday_pay"`
	RestDayPay           string             `json:"rest_day_pay"`
	AbsenceDeduction     string             `json:"absence_deduction"`
	TardinessDeduction   string             `json:"tardiness_deduction"`
	Allowances           []canonicalLine    `json:"allowances"`
	Contributions        []canonicalContrib `json:"contributions"`
	WithholdingTax       string             `json:"withholding_tax"`
	LoanDeductions       []canonicalLine    `json:"loan_deductions"`
	OtherDeductions      []canonicalLine    `json:"other_deductions"`
	GrossPay             string             `json:"gross_pay"`
	TaxableIncome        string             `json:"taxable_income"`
	TotalDeductions      string             `json:"total_deductions"`
	NetPay               string             `json:"net_pay"`
	Attendance           Attendance         `json:"attendance"`
}

type canonicalLine struct {
	Key    string `json:"key"`
	Amount string `json:"amount"`
}

type canonicalContrib struct {
	TableType string `json:"table_type"`
	Basis     string `json:"basis"`
	Employee  string `json:"employee"`
	Employer  string `json:"employer"`
}

// ComputeChecksum hashes the monetary breakdown. Metadata (status, actors,
// timestamps) is excluded so identical inputs give identical checksums.
func (e Entry) ComputeChecksum() string {
	fx := func(d decimal.Decimal) string { return d.StringFixed(2) }

	c := canonicalEntry{
		ID:                   e.ID,
		PeriodID:             e.PeriodID,
		EmployeeID:           e.EmployeeID,
		BasicPay:             fx(e.BasicPay),
		OvertimePay:          fx(e.OvertimePay),
		NightDifferentialPay: fx(e.NightDifferentialPay),
		HolidayPay:           fx(e.HolidayPay),
		RestDayPay:           fx(e.RestDayPay),
		AbsenceDeduction:     fx(e.AbsenceDeduction),
		TardinessDeduction:   fx(e.TardinessDeduction),
		WithholdingTax:       fx(e.WithholdingTax),
		GrossPay:             fx(e.GrossPay),
		TaxableIncome:        fx(e.TaxableIncome),
		TotalDeductions:      fx(e.TotalDeductions),
		NetPay:               fx(e.NetPay),
		Attendance:           e.Attendance,
		Allowances:           []canonicalLine{},
		Contributions:        []canonicalContrib{},
		LoanDeductions:       []canonicalLine{},
		OtherDeductions:      []canonicalLine{},
	}
	for _, a := range e.Allowances {
		c.Allowances = append(c.Allowances, canonicalLine{Key: lineKey(a), Amount: fx(a.Amount)})
	}
	for _, con := range e.Contributions {
		c.Contributions = append(c.Contributions, canonicalContrib{
			TableType: string(con.TableType),
			Basis:     fx(con.Basis),
			Employee:  fx(con.EmployeeShare),
			Employer:  fx(con.EmployerShare),
		})
	}
	for _, l := range e.LoanDeductions {
		c.LoanDeductions = append(c.LoanDeductions, canonicalLine{Key: l.LoanID + "|" + l.Kind, Amount: fx(l.Amount)})
	}
	for _, d := range e.OtherDeductions {
		c.OtherDeductions = append(c.OtherDeductions, canonicalLine{Key: lineKey(d), Amount: fx(d.Amount)})
	}

	b, _ := json.Marshal(c)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
