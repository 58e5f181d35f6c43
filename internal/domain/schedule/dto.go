package schedule

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type SaveScheduleRequest struct {
	CompanyID            string                   `json:"-"`
	ID                   string                   `json:"id,omitempty"`
	Name                 string                   `json:"name"`
	Type                 string                   `json:"type"`
	Timezone             string                   `json:"timezone"`
	GracePeriodMinutes   int                      `json:"grace_period_minutes"`
	WorkDays             []string                 `json:"work_days"`
	Start                ClockTime                `json:"start"`
	End                  ClockTime                `json:"end"`
	CoreStart            ClockTime                `json:"core_start"`
	CoreEnd              ClockTime                `json:"core_end"`
	BreakStart           *ClockTime               `json:"break_start,omitempty"`
	BreakMinutes         int                      `json:"break_minutes"`
	RequiredDailyMinutes int                      `json:"required_daily_minutes"`
	HalfDayMinutes       int                      `json:"half_day_minutes"`
	Overtime             OvertimeRulesRequest     `json:"overtime"`
	NightDifferential    NightDifferentialRequest `json:"night_differential"`
	Shifts               []ShiftRequest           `json:"shifts,omitempty"`
}

type OvertimeRulesRequest struct {
	DailyThresholdMinutes    int             `json:"daily_threshold_minutes"`
	WeeklyThresholdMinutes   int             `json:"weekly_threshold_minutes"`
	RegularMultiplier        decimal.Decimal `json:"regular_multiplier"`
	RestDayMultiplier        decimal.Decimal `json:"rest_day_multiplier"`
	HolidayMultiplier        decimal.Decimal `json:"holiday_multiplier"`
	SpecialHolidayMultiplier decimal.Decimal `json:"special_holiday_multiplier"`
}

type NightDifferentialRequest struct {
	Enabled        bool            `json:"enabled"`
	WindowStart    ClockTime       `json:"window_start"`
	WindowEnd      ClockTime       `json:"window_end"`
	RateMultiplier decimal.Decimal `json:"rate_multiplier"`
	Combinable     bool            `json:"combinable"`
}

type ShiftRequest struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Start        ClockTime  `json:"start"`
	End          ClockTime  `json:"end"`
	BreakStart   *ClockTime `json:"break_start,omitempty"`
	BreakMinutes int        `json:"break_minutes"`
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
}

func (r *SaveScheduleRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Name) {
		errs.Add("name", "name is required")
	}
	if !ScheduleType(r.Type).Valid() {
		errs.Add("type", "type must be one of: "+strings.Join(ScheduleTypeValues, ", "))
	}
	if r.Timezone != "" {
		if _, err := time.LoadLocation(r.Timezone); err != nil {
			errs.Add("timezone", "timezone is not a valid IANA zone")
		}
	}
	if r.GracePeriodMinutes < 0 {
		errs.Add("grace_period_minutes", "grace_period_minutes must be a non-negative number")
	}
	for _, d := range r.WorkDays {
		if _, ok := weekdays[strings.ToLower(d)]; !ok {
			errs.Add("work_days", "unknown weekday "+d)
			break
		}
	}
	if r.BreakMinutes < 0 {
		errs.Add("break_minutes", "break_minutes must be a non-negative number")
	}

	switch ScheduleType(r.Type) {
	case ScheduleTypeFixed, ScheduleTypeCompressed:
		if len(r.WorkDays) == 0 {
			errs.Add("work_days", "work_days is required")
		}
		if r.Start == r.End {
			errs.Add("end", "end must differ from start")
		}
	case ScheduleTypeFlexible:
		if r.CoreStart == r.CoreEnd {
			errs.Add("core_end", "core hours must not be empty")
		}
		if r.RequiredDailyMinutes <= 0 {
			errs.Add("required_daily_minutes", "flexible schedules need required_daily_minutes")
		}
	case ScheduleTypeShifting:
		if len(r.Shifts) == 0 {
			errs.Add("shifts", "shifting schedules need at least one shift")
		}
		seen := make(map[string]bool)
		for _, s := range r.Shifts {
			if validator.IsEmpty(s.ID) || seen[s.ID] {
				errs.Add("shifts", "shift ids must be unique and non-empty")
				break
			}
			seen[s.ID] = true
		}
	}

	if r.Overtime.RegularMultiplier.LessThan(decimal.NewFromInt(1)) {
		errs.Add("overtime.regular_multiplier", "must be at least 1")
	}
	if r.NightDifferential.Enabled && r.NightDifferential.RateMultiplier.LessThan(decimal.NewFromInt(1)) {
		errs.Add("night_differential.rate_multiplier", "must be at least 1")
	}

	return errs.Err()
}

// ToEntity converts a validated request.
func (r *SaveScheduleRequest) ToEntity() WorkSchedule {
	days := make([]time.Weekday, 0, len(r.WorkDays))
	for _, d := range r.WorkDays {
		days = append(days, weekdays[strings.ToLower(d)])
	}
	shifts := make([]Shift, 0, len(r.Shifts))
	for _, s := range r.Shifts {
		shifts = append(shifts, Shift(s))
	}
	return WorkSchedule{
		ID:                 r.ID,
		CompanyID:          r.CompanyID,
		Name:               r.Name,
		Type:               ScheduleType(r.Type),
		Timezone:           r.Timezone,
		GracePeriodMinutes: r.GracePeriodMinutes,
		Time: TimeConfiguration{
			WorkDays:             days,
			Start:                r.Start,
			End:                  r.End,
			CoreStart:            r.CoreStart,
			CoreEnd:              r.CoreEnd,
			BreakStart:           r.BreakStart,
			BreakMinutes:         r.BreakMinutes,
			RequiredDailyMinutes: r.RequiredDailyMinutes,
			HalfDayMinutes:       r.HalfDayMinutes,
		},
		Overtime:          OvertimeRules(r.Overtime),
		NightDifferential: NightDifferential(r.NightDifferential),
		Shifts:            shifts,
	}
}

type AssignScheduleRequest struct {
	CompanyID      string   `json:"-"`
	EmployeeID     string   `json:"employee_id"`
	WorkScheduleID string   `json:"work_schedule_id"`
	StartDate      string   `json:"start_date"`
	EndDate        *string  `json:"end_date,omitempty"`
	ShiftID        *string  `json:"shift_id,omitempty"`
	Rotation       []string `json:"rotation,omitempty"`
}

func (r *AssignScheduleRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}
	if validator.IsEmpty(r.WorkScheduleID) {
		errs.Add("work_schedule_id", "work_schedule_id is required")
	}
	start, ok := validator.IsValidDate(r.StartDate)
	if !ok {
		errs.Add("start_date", "start_date must be YYYY-MM-DD")
	}
	if r.EndDate != nil {
		end, ok := validator.IsValidDate(*r.EndDate)
		if !ok {
			errs.Add("end_date", "end_date must be YYYY-MM-DD")
		} else if end.Before(start) {
			errs.Add("end_date", "end_date must not precede start_date")
		}
	}
	if r.ShiftID != nil && len(r.Rotation) > 0 {
		errs.Add("rotation", "use either shift_id or rotation")
	}

	return errs.Err()
}

// ToEntity converts a validated request.
func (r *AssignScheduleRequest) ToEntity() EmployeeScheduleAssignment {
	start, _ := validator.IsValidDate(r.StartDate)
	a := EmployeeScheduleAssignment{
		EmployeeID:     r.EmployeeID,
		WorkScheduleID: r.WorkScheduleID,
		StartDate:      start,
		ShiftID:        r.ShiftID,
		Rotation:       r.Rotation,
	}
	if r.EndDate != nil {
		end, _ := validator.IsValidDate(*r.EndDate)
		a.EndDate = &end
	}
	return a
}

type ScheduleResponse struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Version            int       `json:"version"`
	Type               string    `json:"type"`
	Timezone           string    `json:"timezone"`
	GracePeriodMinutes int       `json:"grace_period_minutes"`
	WorkDays           []string  `json:"work_days"`
	Start              ClockTime `json:"start"`
	End                ClockTime `json:"end"`
	BreakMinutes       int       `json:"break_minutes"`
	Shifts             int       `json:"shifts"`
}

func NewScheduleResponse(ws WorkSchedule) ScheduleResponse {
	days := make([]string, 0, len(ws.Time.WorkDays))
	for _, d := range ws.Time.WorkDays {
		days = append(days, strings.ToLower(d.String()))
	}
	return ScheduleResponse{
		ID:                 ws.ID,
		Name:               ws.Name,
		Version:            ws.Version,
		Type:               string(ws.Type),
		Timezone:           ws.Timezone,
		GracePeriodMinutes: ws.GracePeriodMinutes,
		WorkDays:           days,
		Start:              ws.Time.Start,
		End:                ws.Time.End,
		BreakMinutes:       ws.Time.BreakMinutes,
		Shifts:             len(ws.Shifts),
	}
}

type AssignmentResponse struct {
	ID             string   `json:"id"`
	EmployeeID     string   `json:"employee_id"`
	WorkScheduleID string   `json:"work_schedule_id"`
	StartDate      string   `json:"start_date"`
	EndDate        *string  `json:"end_date,omitempty"`
	ShiftID        *string  `json:"shift_id,omitempty"`
	Rotation       []string `json:"rotation,omitempty"`
}

func NewAssignmentResponse(a EmployeeScheduleAssignment) AssignmentResponse {
	resp := AssignmentResponse{
		ID:             a.ID,
		EmployeeID:     a.EmployeeID,
		WorkScheduleID: a.WorkScheduleID,
		StartDate:      a.StartDate.Format(time.DateOnly),
		ShiftID:        a.ShiftID,
		Rotation:       a.Rotation,
	}
	if a.EndDate != nil {
		end := a.EndDate.Format(time.DateOnly)
		resp.EndDate = &end
	}
	return resp
}

type WindowResponse struct {
	Date                     string `json:"date"`
	Start                    string `json:"start"`
	End                      string `json:"end"`
	RestDay                  bool   `json:"rest_day"`
	Flexible                 bool   `json:"flexible"`
	ShiftID                  string `json:"shift_id,omitempty"`
	BreakMinutes             int    `json:"break_minutes"`
	RequiredMinutes          int    `json:"required_minutes"`
	GraceMinutes             int    `json:"grace_minutes"`
	OvertimeThresholdMinutes int    `json:"overtime_threshold_minutes"`
}

func NewWindowResponse(w Window) WindowResponse {
	return WindowResponse{
		Date:                     w.Date.Format(time.DateOnly),
		Start:                    w.Start.Format(time.RFC3339),
		End:                      w.End.Format(time.RFC3339),
		RestDay:                  w.RestDay,
		Flexible:                 w.Flexible,
		ShiftID:                  w.ShiftID,
		BreakMinutes:             w.BreakMinutes,
		RequiredMinutes:          w.RequiredMinutes,
		GraceMinutes:             w.GraceMinutes,
		OvertimeThresholdMinutes: w.OvertimeThresholdMinutes,
	}
}
