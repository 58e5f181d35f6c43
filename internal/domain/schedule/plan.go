package schedule

import (
	"fmt"
	"sort"
	"time"
)

// Window is the expected working window of one calendar date.
type Window struct {
	Date                     time.Time
	Start                    time.Time
	End                      time.Time
	RestDay                  bool
	Flexible                 bool
	ShiftID                  string
	BreakStart               *time.Time
	BreakMinutes             int
	RequiredMinutes          int
	HalfDayMinutes           int
	GraceMinutes             int
	OvertimeThresholdMinutes int
}

// BreakWindow returns the fixed break slot, if the schedule defines one.
func (w Window) BreakWindow() (Interval, bool) {
	if w.BreakStart == nil || w.BreakMinutes <= 0 {
		return Interval{}, false
	}
	return Interval{Start: *w.BreakStart, End: w.BreakStart.Add(time.Duration(w.BreakMinutes) * time.Minute)}, true
}

// Plan binds a schedule version to the assignment in force. It has no side
// effects and is safe for concurrent use.
type Plan struct {
	Schedule   WorkSchedule
	Assignment *EmployeeScheduleAssignment
	loc        *time.Location
}

func NewPlan(ws WorkSchedule, assignment *EmployeeScheduleAssignment) (Plan, error) {
	loc, err := ws.Location()
	if err != nil {
		return Plan{}, fmt.Errorf("schedule %s timezone %q: %w", ws.ID, ws.Timezone, err)
	}
	return Plan{Schedule: ws, Assignment: assignment, loc: loc}, nil
}

func (p Plan) Location() *time.Location {
	if p.loc == nil {
		return time.UTC
	}
	return p.loc
}

// ExpectedWindow resolves the working window for the calendar date of date.
// Flexible schedules return their core hours; shifting schedules return the
// shift assigned for that date. Windows ending at or before their start run
// into the next day.
func (p Plan) ExpectedWindow(date time.Time) (Window, error) {
	loc := p.Location()
	day := CivilDate(date, loc)
	cfg := p.Schedule.Time

	w := Window{
		Date:         day,
		GraceMinutes: p.Schedule.GracePeriodMinutes,
	}

	start, end := cfg.Start, cfg.End
	breakStart, breakMinutes := cfg.BreakStart, cfg.BreakMinutes

	switch p.Schedule.Type {
	case ScheduleTypeFixed, ScheduleTypeCompressed:
		w.RestDay = !p.Schedule.IsWorkDay(day.Weekday())
	case ScheduleTypeFlexible:
		start, end = cfg.CoreStart, cfg.CoreEnd
		w.Flexible = true
		w.RestDay = !p.Schedule.IsWorkDay(day.Weekday())
	case ScheduleTypeShifting:
		shift, rest, err := p.shiftFor(day)
		if err != nil {
			return Window{}, err
		}
		w.RestDay = rest
		if !rest {
			start, end = shift.Start, shift.End
			breakStart, breakMinutes = shift.BreakStart, shift.BreakMinutes
			w.ShiftID = shift.ID
		}
	default:
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidScheduleType, p.Schedule.Type)
	}

	w.Start = start.On(day, loc)
	w.End = end.On(day, loc)
	if !w.End.After(w.Start) {
		w.End = end.On(day.AddDate(0, 0, 1), loc)
	}

	w.BreakMinutes = breakMinutes
	if breakStart != nil {
		bs := breakStart.On(day, loc)
		if bs.Before(w.Start) {
			bs = breakStart.On(day.AddDate(0, 0, 1), loc)
		}
		w.BreakStart = &bs
	}

	w.RequiredMinutes = int(w.End.Sub(w.Start)/time.Minute) - breakMinutes
	if cfg.RequiredDailyMinutes > 0 && p.Schedule.Type != ScheduleTypeShifting {
		w.RequiredMinutes = cfg.RequiredDailyMinutes
	}
	w.HalfDayMinutes = cfg.HalfDayMinutes
	if w.HalfDayMinutes <= 0 {
		w.HalfDayMinutes = w.RequiredMinutes / 2
	}
	w.OvertimeThresholdMinutes = p.threshold(w.RequiredMinutes)

	return w, nil
}

// OvertimeThresholdMinutes is the number of worked minutes after which
// overtime starts on date.
func (p Plan) OvertimeThresholdMinutes(date time.Time) int {
	w, err := p.ExpectedWindow(date)
	if err != nil {
		return p.threshold(p.Schedule.Time.RequiredDailyMinutes)
	}
	return w.OvertimeThresholdMinutes
}

// AttributionWindow is the 24h range whose punches belong to date. It opens
// four hours before the expected start, so an overnight shift keeps the
// morning punches of the next calendar day.
func (p Plan) AttributionWindow(date time.Time) (Interval, error) {
	w, err := p.ExpectedWindow(date)
	if err != nil {
		return Interval{}, err
	}
	from := w.Start.Add(-4 * time.Hour)
	return Interval{Start: from, End: from.Add(24 * time.Hour)}, nil
}

func (p Plan) threshold(required int) int {
	rules := p.Schedule.Overtime
	t := rules.DailyThresholdMinutes
	if t <= 0 {
		t = required
	}
	if p.Schedule.Type == ScheduleTypeCompressed && rules.WeeklyThresholdMinutes > 0 && len(p.Schedule.Time.WorkDays) > 0 {
		if perDay := rules.WeeklyThresholdMinutes / len(p.Schedule.Time.WorkDays); perDay > t {
			t = perDay
		}
	}
	return t
}

func (p Plan) shiftFor(day time.Time) (Shift, bool, error) {
	ws := p.Schedule
	a := p.Assignment

	switch {
	case a != nil && len(a.Rotation) > 0:
		offset := DaysBetween(a.StartDate, day)
		if offset < 0 {
			return Shift{}, false, fmt.Errorf("%w: %s precedes rotation start", ErrShiftNotResolved, day.Format(time.DateOnly))
		}
		id := a.Rotation[offset%len(a.Rotation)]
		if id == "" {
			return Shift{}, true, nil
		}
		s, ok := ws.shift(id)
		if !ok {
			return Shift{}, false, fmt.Errorf("%w: unknown shift %q", ErrShiftNotResolved, id)
		}
		return s, false, nil
	case a != nil && a.ShiftID != nil:
		s, ok := ws.shift(*a.ShiftID)
		if !ok {
			return Shift{}, false, fmt.Errorf("%w: unknown shift %q", ErrShiftNotResolved, *a.ShiftID)
		}
		return s, len(ws.Time.WorkDays) > 0 && !ws.IsWorkDay(day.Weekday()), nil
	case len(ws.Shifts) == 1:
		return ws.Shifts[0], len(ws.Time.WorkDays) > 0 && !ws.IsWorkDay(day.Weekday()), nil
	}
	return Shift{}, false, fmt.Errorf("%w: %s", ErrShiftNotResolved, day.Format(time.DateOnly))
}

// ActiveAssignment returns the assignment covering date, nil if none.
func ActiveAssignment(assignments []EmployeeScheduleAssignment, date time.Time) (*EmployeeScheduleAssignment, error) {
	var found *EmployeeScheduleAssignment
	for i := range assignments {
		a := assignments[i]
		if !a.Covers(date) {
			continue
		}
		if found != nil {
			return nil, &OverlapError{EmployeeID: a.EmployeeID, ExistingID: found.ID, From: a.StartDate}
		}
		found = &a
	}
	return found, nil
}

// ValidateAssignments rejects any pair of overlapping assignments.
func ValidateAssignments(assignments []EmployeeScheduleAssignment) error {
	sorted := make([]EmployeeScheduleAssignment, len(assignments))
	copy(sorted, assignments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartDate.Before(sorted[j].StartDate) })

	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[i].Overlaps(sorted[j]) {
				return &OverlapError{EmployeeID: sorted[j].EmployeeID, ExistingID: sorted[i].ID, From: sorted[j].StartDate}
			}
		}
	}
	return nil
}

// PlanBook is a per-run snapshot of schedules and assignments.
type PlanBook struct {
	schedules   map[string]WorkSchedule
	locations   map[string]*time.Location
	assignments map[string][]EmployeeScheduleAssignment
	defaults    map[string]string
}

// NewPlanBook keeps the latest version of each schedule.
func NewPlanBook(schedules []WorkSchedule, assignments []EmployeeScheduleAssignment, defaults map[string]string) (*PlanBook, error) {
	b := &PlanBook{
		schedules:   make(map[string]WorkSchedule),
		locations:   make(map[string]*time.Location),
		assignments: make(map[string][]EmployeeScheduleAssignment),
		defaults:    defaults,
	}
	for _, ws := range schedules {
		if cur, ok := b.schedules[ws.ID]; ok && cur.Version >= ws.Version {
			continue
		}
		loc, err := ws.Location()
		if err != nil {
			return nil, fmt.Errorf("schedule %s timezone %q: %w", ws.ID, ws.Timezone, err)
		}
		b.schedules[ws.ID] = ws
		b.locations[ws.ID] = loc
	}
	for _, a := range assignments {
		b.assignments[a.EmployeeID] = append(b.assignments[a.EmployeeID], a)
	}
	return b, nil
}

// PlanFor resolves the plan for an employee on date: an assignment covering
// the date wins, otherwise the employee's default schedule applies.
func (b *PlanBook) PlanFor(employeeID string, date time.Time) (Plan, error) {
	assignment, err := ActiveAssignment(b.assignments[employeeID], date)
	if err != nil {
		return Plan{}, err
	}

	scheduleID := b.defaults[employeeID]
	if assignment != nil {
		scheduleID = assignment.WorkScheduleID
	}
	if scheduleID == "" {
		return Plan{}, fmt.Errorf("%w: employee %s on %s", ErrNoScheduleForEmployee, employeeID, date.Format(time.DateOnly))
	}

	ws, ok := b.schedules[scheduleID]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrWorkScheduleNotFound, scheduleID)
	}
	return Plan{Schedule: ws, Assignment: assignment, loc: b.locations[scheduleID]}, nil
}
