package schedule

import (
	"time"

	"github.com/shopspring/decimal"
)

// WorkSchedule is immutable per version. Edits create Version+1.
type WorkSchedule struct {
	ID                 string
	CompanyID          string
	Name               string
	Version            int
	Type               ScheduleType
	Timezone           string
	GracePeriodMinutes int
	Time               TimeConfiguration
	Overtime           OvertimeRules
	NightDifferential  NightDifferential
	Shifts             []Shift
	CreatedAt          time.Time
}

type ScheduleType string

const (
	ScheduleTypeFixed      ScheduleType = "fixed"
	ScheduleTypeFlexible   ScheduleType = "flexible"
	ScheduleTypeShifting   ScheduleType = "shifting"
	ScheduleTypeCompressed ScheduleType = "compressed"
)

var ScheduleTypeValues = []string{
	string(ScheduleTypeFixed),
	string(ScheduleTypeFlexible),
	string(ScheduleTypeShifting),
	string(ScheduleTypeCompressed),
}

func (t ScheduleType) Valid() bool {
	switch t {
	case ScheduleTypeFixed, ScheduleTypeFlexible, ScheduleTypeShifting, ScheduleTypeCompressed:
		return true
	}
	return false
}

type TimeConfiguration struct {
	WorkDays             []time.Weekday
	Start                ClockTime
	End                  ClockTime
	CoreStart            ClockTime // flexible only
	CoreEnd              ClockTime // flexible only
	BreakStart           *ClockTime
	BreakMinutes         int
	RequiredDailyMinutes int
	HalfDayMinutes       int
}

type OvertimeRules struct {
	DailyThresholdMinutes    int
	WeeklyThresholdMinutes   int
	RegularMultiplier        decimal.Decimal
	RestDayMultiplier        decimal.Decimal
	HolidayMultiplier        decimal.Decimal
	SpecialHolidayMultiplier decimal.Decimal
}

// NightDifferential.RateMultiplier is the full night rate (1.10 = 10% premium).
// Combinable makes the premium scale with the day and overtime multipliers
// instead of being added on the base rate.
type NightDifferential struct {
	Enabled        bool
	WindowStart    ClockTime
	WindowEnd      ClockTime
	RateMultiplier decimal.Decimal
	Combinable     bool
}

type Shift struct {
	ID           string
	Name         string
	Start        ClockTime
	End          ClockTime
	BreakStart   *ClockTime
	BreakMinutes int
}

// EmployeeScheduleAssignment pins an employee to a schedule for a date range.
// Shifting schedules pick the shift either from ShiftID or from Rotation,
// which cycles daily from StartDate; an empty rotation slot is a rest day.
type EmployeeScheduleAssignment struct {
	ID             string
	EmployeeID     string
	WorkScheduleID string
	StartDate      time.Time
	EndDate        *time.Time
	ShiftID        *string
	Rotation       []string
	CreatedAt      time.Time
}

// Covers reports whether the assignment is in force on date.
func (a EmployeeScheduleAssignment) Covers(date time.Time) bool {
	d := CivilDate(date, time.UTC)
	if d.Before(CivilDate(a.StartDate, time.UTC)) {
		return false
	}
	return a.EndDate == nil || !d.After(CivilDate(*a.EndDate, time.UTC))
}

// Overlaps reports whether two assignments share at least one date.
func (a EmployeeScheduleAssignment) Overlaps(b EmployeeScheduleAssignment) bool {
	if a.EmployeeID != b.EmployeeID {
		return false
	}
	return a.Covers(b.StartDate) || b.Covers(a.StartDate)
}

func (ws WorkSchedule) Location() (*time.Location, error) {
	if ws.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(ws.Timezone)
}

func (ws WorkSchedule) IsWorkDay(day time.Weekday) bool {
	for _, d := range ws.Time.WorkDays {
		if d == day {
			return true
		}
	}
	return false
}

func (ws WorkSchedule) shift(id string) (Shift, bool) {
	for _, s := range ws.Shifts {
		if s.ID == id {
			return s, true
		}
	}
	return Shift{}, false
}

// VersionKey identifies one immutable schedule version.
func VersionKey(id string, version int) string {
	return id + "@" + itoa(version)
}
