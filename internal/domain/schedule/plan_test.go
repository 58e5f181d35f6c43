package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var weekdaysMonFri = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

func ptrClock(s string) *ClockTime {
	c := MustClockTime(s)
	return &c
}

func fixedSchedule() WorkSchedule {
	return WorkSchedule{
		ID:       "ws-fixed",
		Type:     ScheduleTypeFixed,
		Timezone: "Asia/Manila",
		Time: TimeConfiguration{
			WorkDays:     weekdaysMonFri,
			Start:        MustClockTime("08:00"),
			End:          MustClockTime("17:00"),
			BreakStart:   ptrClock("12:00"),
			BreakMinutes: 60,
		},
		Overtime: OvertimeRules{DailyThresholdMinutes: 480},
	}
}

func TestParseClockTime(t *testing.T) {
	c, err := ParseClockTime("22:30")
	require.NoError(t, err)
	assert.Equal(t, ClockTime(22*60+30), c)
	assert.Equal(t, "22:30", c.String())

	_, err = ParseClockTime("25:00")
	assert.ErrorIs(t, err, ErrInvalidClockTime)
}

func TestClockTime_JSON(t *testing.T) {
	var c ClockTime
	require.NoError(t, c.UnmarshalJSON([]byte(`"06:15"`)))
	assert.Equal(t, MustClockTime("06:15"), c)

	b, err := c.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"06:15"`, string(b))
}

func TestExpectedWindow_Fixed(t *testing.T) {
	plan, err := NewPlan(fixedSchedule(), nil)
	require.NoError(t, err)
	loc := plan.Location()

	// 2025-03-03 is a Monday
	w, err := plan.ExpectedWindow(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.False(t, w.RestDay)
	assert.Equal(t, time.Date(2025, 3, 3, 8, 0, 0, 0, loc), w.Start)
	assert.Equal(t, time.Date(2025, 3, 3, 17, 0, 0, 0, loc), w.End)
	assert.Equal(t, 480, w.RequiredMinutes)
	assert.Equal(t, 240, w.HalfDayMinutes)
	assert.Equal(t, 480, w.OvertimeThresholdMinutes)
	require.NotNil(t, w.BreakStart)
	assert.Equal(t, time.Date(2025, 3, 3, 12, 0, 0, 0, loc), *w.BreakStart)

	sat, err := plan.ExpectedWindow(time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, sat.RestDay)
}

func TestExpectedWindow_Flexible(t *testing.T) {
	ws := WorkSchedule{
		ID:   "ws-flex",
		Type: ScheduleTypeFlexible,
		Time: TimeConfiguration{
			WorkDays:             weekdaysMonFri,
			CoreStart:            MustClockTime("10:00"),
			CoreEnd:              MustClockTime("15:00"),
			BreakMinutes:         60,
			RequiredDailyMinutes: 480,
		},
	}
	plan, err := NewPlan(ws, nil)
	require.NoError(t, err)

	w, err := plan.ExpectedWindow(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, w.Flexible)
	assert.Equal(t, 10, w.Start.Hour())
	assert.Equal(t, 15, w.End.Hour())
	assert.Equal(t, 480, w.RequiredMinutes)
	assert.Nil(t, w.BreakStart)
}

func TestExpectedWindow_ShiftingRotation(t *testing.T) {
	ws := WorkSchedule{
		ID:   "ws-shift",
		Type: ScheduleTypeShifting,
		Shifts: []Shift{
			{ID: "day", Start: MustClockTime("06:00"), End: MustClockTime("14:00"), BreakMinutes: 30},
			{ID: "night", Start: MustClockTime("22:00"), End: MustClockTime("06:00"), BreakStart: ptrClock("02:00"), BreakMinutes: 60},
		},
		NightDifferential: NightDifferential{Enabled: true, WindowStart: MustClockTime("22:00"), WindowEnd: MustClockTime("06:00")},
	}
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	a := &EmployeeScheduleAssignment{EmployeeID: "e1", WorkScheduleID: ws.ID, StartDate: start, Rotation: []string{"day", "night", ""}}
	plan, err := NewPlan(ws, a)
	require.NoError(t, err)

	day, err := plan.ExpectedWindow(start)
	require.NoError(t, err)
	assert.Equal(t, "day", day.ShiftID)
	assert.Equal(t, 450, day.RequiredMinutes)

	night, err := plan.ExpectedWindow(start.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, "night", night.ShiftID)
	assert.Equal(t, time.Date(2025, 3, 2, 22, 0, 0, 0, time.UTC), night.Start)
	assert.Equal(t, time.Date(2025, 3, 3, 6, 0, 0, 0, time.UTC), night.End)
	require.NotNil(t, night.BreakStart)
	assert.Equal(t, time.Date(2025, 3, 3, 2, 0, 0, 0, time.UTC), *night.BreakStart)
	assert.Equal(t, 420, night.RequiredMinutes)

	rest, err := plan.ExpectedWindow(start.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.True(t, rest.RestDay)

	// the cycle repeats
	again, err := plan.ExpectedWindow(start.AddDate(0, 0, 4))
	require.NoError(t, err)
	assert.Equal(t, "night", again.ShiftID)

	_, err = plan.ExpectedWindow(start.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrShiftNotResolved)
}

func TestOvertimeThreshold_Compressed(t *testing.T) {
	ws := WorkSchedule{
		Type: ScheduleTypeCompressed,
		Time: TimeConfiguration{
			WorkDays:     []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday},
			Start:        MustClockTime("07:00"),
			End:          MustClockTime("18:00"),
			BreakMinutes: 60,
		},
		Overtime: OvertimeRules{DailyThresholdMinutes: 480, WeeklyThresholdMinutes: 2400},
	}
	plan, err := NewPlan(ws, nil)
	require.NoError(t, err)

	assert.Equal(t, 600, plan.OvertimeThresholdMinutes(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)))
}

func TestAttributionWindow_Overnight(t *testing.T) {
	ws := WorkSchedule{
		Type:   ScheduleTypeShifting,
		Shifts: []Shift{{ID: "night", Start: MustClockTime("22:00"), End: MustClockTime("06:00")}},
	}
	plan, err := NewPlan(ws, nil)
	require.NoError(t, err)

	win, err := plan.AttributionWindow(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 3, 18, 0, 0, 0, time.UTC), win.Start)
	assert.Equal(t, time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC), win.End)
}

func TestValidateAssignments(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC) }
	end := d(10)

	ok := []EmployeeScheduleAssignment{
		{ID: "a", EmployeeID: "e1", StartDate: d(1), EndDate: &end},
		{ID: "b", EmployeeID: "e1", StartDate: d(11)},
	}
	assert.NoError(t, ValidateAssignments(ok))

	bad := append(ok, EmployeeScheduleAssignment{ID: "c", EmployeeID: "e1", StartDate: d(10)})
	err := ValidateAssignments(bad)
	require.ErrorIs(t, err, ErrOverlappingScheduleAssignment)

	var overlap *OverlapError
	require.True(t, errors.As(err, &overlap))
	assert.Equal(t, "e1", overlap.EmployeeID)
}

func TestPlanBook_AssignmentBeatsDefault(t *testing.T) {
	fixed := fixedSchedule()
	night := WorkSchedule{ID: "ws-night", Type: ScheduleTypeShifting, Version: 1, Shifts: []Shift{{ID: "n", Start: MustClockTime("22:00"), End: MustClockTime("06:00")}}}
	newer := night
	newer.Version = 2
	newer.Name = "night v2"

	end := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	book, err := NewPlanBook(
		[]WorkSchedule{fixed, newer, night},
		[]EmployeeScheduleAssignment{{ID: "a1", EmployeeID: "e1", WorkScheduleID: "ws-night", StartDate: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), EndDate: &end}},
		map[string]string{"e1": "ws-fixed"},
	)
	require.NoError(t, err)

	p, err := book.PlanFor("e1", time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "ws-night", p.Schedule.ID)
	assert.Equal(t, 2, p.Schedule.Version)

	p, err = book.PlanFor("e1", time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "ws-fixed", p.Schedule.ID)

	_, err = book.PlanFor("e2", end)
	assert.ErrorIs(t, err, ErrNoScheduleForEmployee)
}

func TestNightDifferentialWindows(t *testing.T) {
	nd := NightDifferential{Enabled: true, WindowStart: MustClockTime("22:00"), WindowEnd: MustClockTime("06:00")}
	from := time.Date(2025, 3, 3, 20, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 4, 7, 0, 0, 0, time.UTC)

	windows := nd.Windows(from, to)
	require.Len(t, windows, 1)
	assert.Equal(t, 480, OverlapMinutes([]Interval{{Start: from, End: to}}, windows[0]))

	assert.Nil(t, NightDifferential{}.Windows(from, to))
}
