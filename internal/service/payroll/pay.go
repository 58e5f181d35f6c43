package payroll

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/calendar"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/contribution"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/schedule"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// payDay is one finalized record with the pay rules of the schedule it was
// classified under.
type payDay struct {
	Record            attendance.DailyTimeRecord
	Overtime          schedule.OvertimeRules
	NightDifferential schedule.NightDifferential
}

// entryInput carries everything one entry depends on. computeEntry reads
// nothing else, so equal inputs give equal entries.
type entryInput struct {
	Period          payroll.Period
	Employee        employee.Employee
	Days            []payDay
	Adjustments     []loan.Adjustment
	Loans           []loan.Loan
	Tables          contribution.Resolver
	TaxMethod       contribution.TaxMethod
	YearToDate      payroll.YearToDate
	WorkDaysPerYear int
}

func computeEntry(in entryInput) (payroll.Entry, error) {
	p := in.Period
	e := payroll.Entry{
		ID:         payroll.EntryID(p.ID, in.Employee.ID),
		PeriodID:   p.ID,
		EmployeeID: in.Employee.ID,
		CompanyID:  p.CompanyID,
		PayBasis:   in.Employee.PayBasis,
		Status:     payroll.EntryStatusDraft,
	}

	if !p.Supplemental() {
		rates, err := in.Employee.Rates(in.WorkDaysPerYear)
		if err != nil {
			return payroll.Entry{}, err
		}
		e.DailyRate = rates.Daily
		e.HourlyRate = rates.Hourly
		timePay(&e, in, rates)
	}

	for _, adj := range in.Adjustments {
		line := payroll.Line{
			Code:     adj.Code,
			Name:     adj.Name,
			Amount:   payroll.Round2(adj.Amount),
			Taxable:  adj.Taxable,
			SourceID: adj.ID,
		}
		if adj.Kind == loan.AdjustmentAllowance {
			e.Allowances = append(e.Allowances, line)
		} else {
			e.OtherDeductions = append(e.OtherDeductions, line)
		}
	}

	if !p.Supplemental() {
		for _, l := range in.Loans {
			amount := payroll.Round2(l.PlannedDeduction(p.EndDate))
			if amount.IsPositive() {
				e.LoanDeductions = append(e.LoanDeductions, payroll.LoanLine{LoanID: l.ID, Kind: l.Kind, Amount: amount})
			}
		}
	}

	e.Total()

	if !p.Supplemental() {
		contributions, err := governmentContributions(in.Tables, e.GrossPay, p)
		if err != nil {
			return payroll.Entry{}, err
		}
		e.Contributions = contributions
		e.Total()
	}

	tax, err := in.Tables.WithholdingTax(contribution.TaxInput{
		Method:         in.TaxMethod,
		PeriodTaxable:  e.TaxableIncome,
		PeriodsPerYear: p.CycleType.PeriodsPerYear(),
		PeriodIndex:    p.Index(),
		YTDTaxable:     in.YearToDate.Taxable,
		YTDWithheld:    in.YearToDate.Withheld,
		AsOf:           p.PayDate,
	})
	if err != nil {
		return payroll.Entry{}, err
	}
	e.WithholdingTax = payroll.Round2(tax)
	e.Total()

	return e, nil
}

// timePay turns the period's minutes into pay lines.
//
// Monthly-paid employees get the period share of the monthly rate, prorated
// by calendar days employed, less absences and tardiness. Daily-paid
// employees get the daily rate for every paid day. Both get premiums on top
// for rest days, holidays, overtime and night work.
func timePay(e *payroll.Entry, in entryInput, r employee.Rates) {
	var (
		att                                      payroll.Attendance
		basic, overtime, night, holiday, restDay decimal.Decimal
		absentDays, paidDays, tardyMinutes       int
	)
	minute := func(n int, mult decimal.Decimal) decimal.Decimal {
		return r.Minute.Mul(decimal.NewFromInt(int64(n))).Mul(mult)
	}

	for _, d := range in.Days {
		rec := d.Record
		rules := d.Overtime
		regular := rec.RegularMinutes()
		payableOT := rec.PayableOvertimeMinutes()

		att.RegularMinutes += regular
		att.OvertimeMinutes += payableOT
		att.UnapprovedOvertimeMinutes += rec.OvertimeMinutes - payableOT
		if rec.TotalWorkMinutes > 0 {
			att.DaysWorked++
		}

		dayMult := one
		switch {
		case rec.HolidayType != nil && *rec.HolidayType == calendar.HolidayTypeRegular:
			dayMult = orOne(rules.HolidayMultiplier)
			att.HolidayMinutes += regular
			holiday = holiday.Add(minute(regular, dayMult.Sub(one)))
			paidDays++
		case rec.HolidayType != nil:
			dayMult = orOne(rules.SpecialHolidayMultiplier)
			att.HolidayMinutes += regular
			holiday = holiday.Add(minute(regular, dayMult.Sub(one)))
			if regular > 0 {
				paidDays++
			}
		case rec.Status == attendance.DtrStatusRestDay:
			dayMult = orOne(rules.RestDayMultiplier)
			att.RestDayMinutes += regular
			restDay = restDay.Add(minute(regular, dayMult))
		case rec.Status == attendance.DtrStatusOnLeave:
			if rec.LeavePaid {
				att.DaysPaidLeave++
				paidDays++
			} else {
				att.DaysAbsent++
				absentDays++
			}
		case rec.Status == attendance.DtrStatusAbsent:
			att.DaysAbsent++
			absentDays++
		default:
			paidDays++
			att.LateMinutes += rec.LateMinutes
			att.UndertimeMinutes += rec.UndertimeMinutes
			tardyMinutes += rec.LateMinutes + rec.UndertimeMinutes
		}

		otMult := dayMult.Add(orOne(rules.RegularMultiplier).Sub(one))
		overtime = overtime.Add(minute(payableOT, otMult))

		nd := d.NightDifferential
		if nd.Enabled && rec.NightDifferentialMinutes > 0 {
			ndOT := rec.NightDifferentialOvertimeMinutes
			ndRegular := rec.NightDifferentialMinutes - ndOT
			if payableOT == 0 {
				ndOT = 0
			}
			premium := orOne(nd.RateMultiplier).Sub(one)
			if nd.Combinable {
				night = night.Add(minute(ndRegular, premium.Mul(dayMult))).Add(minute(ndOT, premium.Mul(otMult)))
			} else {
				night = night.Add(minute(ndRegular+ndOT, premium))
			}
			att.NightDifferentialMinutes += ndRegular + ndOT
		}
	}

	switch e.PayBasis {
	case employee.PayBasisDaily:
		basic = r.Daily.Mul(decimal.NewFromInt(int64(paidDays)))
	default:
		perPeriod := r.Monthly.Mul(decimal.NewFromInt(12)).Div(decimal.NewFromInt(int64(in.Period.CycleType.PeriodsPerYear())))
		basic = perPeriod.Mul(employedShare(in.Employee, in.Period))
		e.AbsenceDeduction = payroll.Round2(r.Daily.Mul(decimal.NewFromInt(int64(absentDays))))
	}
	e.TardinessDeduction = payroll.Round2(r.Minute.Mul(decimal.NewFromInt(int64(tardyMinutes))))

	e.BasicPay = payroll.Round2(basic)
	e.OvertimePay = payroll.Round2(overtime)
	e.NightDifferentialPay = payroll.Round2(night)
	e.HolidayPay = payroll.Round2(holiday)
	e.RestDayPay = payroll.Round2(restDay)
	e.Attendance = att
}

// employedShare is the fraction of the period's calendar days the employee
// was employed.
func employedShare(emp employee.Employee, p payroll.Period) decimal.Decimal {
	days := p.Days()
	if len(days) == 0 {
		return decimal.Zero
	}
	employed := 0
	for _, d := range days {
		if emp.ActiveDuring(d, d) {
			employed++
		}
	}
	if employed == len(days) {
		return one
	}
	return decimal.NewFromInt(int64(employed)).Div(decimal.NewFromInt(int64(len(days))))
}

// governmentContributions resolves each mandatory table on the monthly
// equivalent of the period's gross, then takes the period's share.
func governmentContributions(tables contribution.Resolver, gross decimal.Decimal, p payroll.Period) ([]payroll.ContributionLine, error) {
	perYear := decimal.NewFromInt(int64(p.CycleType.PeriodsPerYear()))
	twelve := decimal.NewFromInt(12)
	monthly := payroll.Round2(gross.Mul(perYear).Div(twelve))

	lines := make([]payroll.ContributionLine, 0, len(contribution.GovernmentTables))
	for _, tt := range contribution.GovernmentTables {
		amounts, err := tables.Resolve(tt, monthly, p.EndDate)
		if err != nil {
			return nil, err
		}
		lines = append(lines, payroll.ContributionLine{
			TableType:     tt,
			Basis:         monthly,
			EmployeeShare: payroll.Round2(amounts.EmployeeShare.Mul(twelve).Div(perYear)),
			EmployerShare: payroll.Round2(amounts.EmployerShare.Mul(twelve).Div(perYear)),
		})
	}
	return lines, nil
}

func orOne(m decimal.Decimal) decimal.Decimal {
	if !m.IsPositive() {
		return one
	}
	return m
}

// payableDates lists the period dates the employee was employed on.
func payableDates(emp employee.Employee, p payroll.Period) []time.Time {
	var out []time.Time
	for _, d := range p.Days() {
		if emp.ActiveDuring(d, d) {
			out = append(out, d)
		}
	}
	return out
}
