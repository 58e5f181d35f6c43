package attendance

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/calendar"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/leave"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var manila = mustLocation("Asia/Manila")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

var weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

func officeSchedule() schedule.WorkSchedule {
	br := schedule.MustClockTime("12:00")
	return schedule.WorkSchedule{
		ID:       "ws-office",
		Version:  1,
		Type:     schedule.ScheduleTypeFixed,
		Timezone: "Asia/Manila",
		Time: schedule.TimeConfiguration{
			WorkDays:     weekdays,
			Start:        schedule.MustClockTime("08:00"),
			End:          schedule.MustClockTime("17:00"),
			BreakStart:   &br,
			BreakMinutes: 60,
		},
		Overtime: schedule.OvertimeRules{DailyThresholdMinutes: 480},
	}
}

func windowFor(t *testing.T, ws schedule.WorkSchedule, date time.Time) schedule.Window {
	t.Helper()
	plan, err := schedule.NewPlan(ws, nil)
	require.NoError(t, err)
	w, err := plan.ExpectedWindow(date)
	require.NoError(t, err)
	return w
}

func at(day time.Time, hhmm string) time.Time {
	c := schedule.MustClockTime(hhmm)
	return c.On(day, manila)
}

func punch(ts time.Time, kind attendance.PunchKind) attendance.Punch {
	return attendance.Punch{EmployeeID: "emp-1", CompanyID: "company-1", Time: ts, Kind: kind}
}

// 2025-06-02 is a Monday.
var monday = time.Date(2025, 6, 2, 0, 0, 0, 0, manila)

func classifyOffice(t *testing.T, day time.Time, punches ...attendance.Punch) attendance.DailyTimeRecord {
	t.Helper()
	return Classify(ClassifyInput{
		EmployeeID:  "emp-1",
		CompanyID:   "company-1",
		ScheduleID:  "ws-office",
		Window:      windowFor(t, officeSchedule(), day),
		Punches:     punches,
		DedupWindow: 2 * time.Minute,
	})
}

func TestClassify_LateAndOvertime(t *testing.T) {
	rec := classifyOffice(t, monday,
		punch(at(monday, "08:05"), attendance.PunchIn),
		punch(at(monday, "19:00"), attendance.PunchOut),
	)

	assert.Equal(t, attendance.DtrStatusPresent, rec.Status)
	assert.False(t, rec.NeedsReview)
	assert.Equal(t, 595, rec.TotalWorkMinutes)
	assert.Equal(t, 5, rec.LateMinutes)
	assert.Equal(t, 0, rec.UndertimeMinutes)
	assert.Equal(t, 120, rec.OvertimeMinutes)
	assert.False(t, rec.OvertimeApproved)
	assert.Equal(t, attendance.RecordID("emp-1", monday), rec.ID)
	assert.Equal(t, "2025-06-02", rec.Date.Format(time.DateOnly))
}

func TestClassify_NoPunches(t *testing.T) {
	saturday := monday.AddDate(0, 0, 5)
	holiday := &calendar.Holiday{Date: monday, Type: calendar.HolidayTypeRegular}
	onLeave := &leave.LeaveDay{EmployeeID: "emp-1", Date: monday, Paid: true}

	cases := []struct {
		name    string
		day     time.Time
		holiday *calendar.Holiday
		leave   *leave.LeaveDay
		want    attendance.DtrStatus
	}{
		{"absent", monday, nil, nil, attendance.DtrStatusAbsent},
		{"holiday beats leave", monday, holiday, onLeave, attendance.DtrStatusHoliday},
		{"rest day", saturday, nil, nil, attendance.DtrStatusRestDay},
		{"leave", monday, nil, onLeave, attendance.DtrStatusOnLeave},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := Classify(ClassifyInput{
				EmployeeID: "emp-1",
				Window:     windowFor(t, officeSchedule(), tc.day),
				Holiday:    tc.holiday,
				Leave:      tc.leave,
			})
			assert.Equal(t, tc.want, rec.Status)
			assert.Zero(t, rec.TotalWorkMinutes)
			assert.False(t, rec.NeedsReview)
		})
	}
}

func TestClassify_FlagsUnpairedPunches(t *testing.T) {
	t.Run("odd count", func(t *testing.T) {
		rec := classifyOffice(t, monday, punch(at(monday, "08:00"), attendance.PunchIn))
		assert.True(t, rec.NeedsReview)
		assert.Equal(t, attendance.ReasonMissingTimeOut, rec.ReviewReason)
		require.NotNil(t, rec.FirstIn)
		assert.Nil(t, rec.LastOut)
		assert.Zero(t, rec.TotalWorkMinutes)
		assert.Zero(t, rec.LateMinutes)
	})

	t.Run("odd count starting with out", func(t *testing.T) {
		rec := classifyOffice(t, monday,
			punch(at(monday, "07:55"), attendance.PunchOut),
			punch(at(monday, "08:00"), attendance.PunchIn),
			punch(at(monday, "17:00"), attendance.PunchOut),
		)
		assert.True(t, rec.NeedsReview)
		assert.Equal(t, attendance.ReasonMissingTimeOut, rec.ReviewReason)
		assert.Zero(t, rec.TotalWorkMinutes)
	})

	t.Run("starts with out", func(t *testing.T) {
		rec := classifyOffice(t, monday,
			punch(at(monday, "08:00"), attendance.PunchOut),
			punch(at(monday, "17:00"), attendance.PunchIn),
		)
		assert.True(t, rec.NeedsReview)
		assert.Equal(t, attendance.ReasonMissingTimeIn, rec.ReviewReason)
	})

	t.Run("two ins", func(t *testing.T) {
		rec := classifyOffice(t, monday,
			punch(at(monday, "08:00"), attendance.PunchIn),
			punch(at(monday, "12:00"), attendance.PunchIn),
			punch(at(monday, "13:00"), attendance.PunchOut),
			punch(at(monday, "17:00"), attendance.PunchOut),
		)
		assert.True(t, rec.NeedsReview)
		assert.Equal(t, attendance.ReasonUnmatchedPairs, rec.ReviewReason)
	})
}

func TestClassify_MergesDuplicatePunches(t *testing.T) {
	rec := classifyOffice(t, monday,
		punch(at(monday, "08:00"), attendance.PunchIn),
		punch(at(monday, "08:01"), attendance.PunchIn),
		punch(at(monday, "17:00"), attendance.PunchOut),
		punch(at(monday, "17:01"), attendance.PunchOut),
	)

	require.Len(t, rec.Punches, 2)
	assert.False(t, rec.NeedsReview)
	assert.True(t, rec.FirstIn.Equal(at(monday, "08:00")))
	assert.True(t, rec.LastOut.Equal(at(monday, "17:01")))
	assert.Equal(t, 481, rec.TotalWorkMinutes)
	assert.Equal(t, 1, rec.OvertimeMinutes)
}

func TestClassify_UnknownPunchesAlternate(t *testing.T) {
	rec := classifyOffice(t, monday,
		punch(at(monday, "17:00"), attendance.PunchUnknown),
		punch(at(monday, "08:00"), attendance.PunchUnknown),
	)

	assert.False(t, rec.NeedsReview)
	assert.Equal(t, attendance.PunchIn, rec.Punches[0].Kind)
	assert.Equal(t, attendance.PunchOut, rec.Punches[1].Kind)
	assert.Equal(t, 480, rec.TotalWorkMinutes)
	assert.Zero(t, rec.OvertimeMinutes)
}

func TestClassify_GraceAndUndertime(t *testing.T) {
	ws := officeSchedule()
	ws.GracePeriodMinutes = 10
	w := windowFor(t, ws, monday)

	within := Classify(ClassifyInput{EmployeeID: "emp-1", Window: w, Punches: []attendance.Punch{
		punch(at(monday, "08:08"), attendance.PunchIn),
		punch(at(monday, "17:00"), attendance.PunchOut),
	}})
	assert.Zero(t, within.LateMinutes)

	late := Classify(ClassifyInput{EmployeeID: "emp-1", Window: w, Punches: []attendance.Punch{
		punch(at(monday, "08:15"), attendance.PunchIn),
		punch(at(monday, "16:00"), attendance.PunchOut),
	}})
	assert.Equal(t, 15, late.LateMinutes)
	assert.Equal(t, 60, late.UndertimeMinutes)
	assert.Equal(t, 405, late.TotalWorkMinutes)
}

func TestClassify_SplitLunchIsNotDeductedTwice(t *testing.T) {
	rec := classifyOffice(t, monday,
		punch(at(monday, "08:00"), attendance.PunchIn),
		punch(at(monday, "12:00"), attendance.PunchOut),
		punch(at(monday, "13:00"), attendance.PunchIn),
		punch(at(monday, "17:00"), attendance.PunchOut),
	)

	assert.Equal(t, 480, rec.TotalWorkMinutes)
	assert.Zero(t, rec.UndertimeMinutes)
	assert.Zero(t, rec.OvertimeMinutes)
}

func TestClassify_FlexibleAnchorsOnFirstIn(t *testing.T) {
	ws := schedule.WorkSchedule{
		ID:       "ws-flex",
		Type:     schedule.ScheduleTypeFlexible,
		Timezone: "Asia/Manila",
		Time: schedule.TimeConfiguration{
			WorkDays:             weekdays,
			CoreStart:            schedule.MustClockTime("10:00"),
			CoreEnd:              schedule.MustClockTime("15:00"),
			BreakMinutes:         60,
			RequiredDailyMinutes: 480,
		},
	}
	w := windowFor(t, ws, monday)

	rec := Classify(ClassifyInput{EmployeeID: "emp-1", Window: w, Punches: []attendance.Punch{
		punch(at(monday, "07:00"), attendance.PunchIn),
		punch(at(monday, "17:00"), attendance.PunchOut),
	}})
	assert.Equal(t, 540, rec.TotalWorkMinutes)
	assert.Zero(t, rec.LateMinutes)
	assert.Equal(t, 60, rec.OvertimeMinutes)

	short := Classify(ClassifyInput{EmployeeID: "emp-1", Window: w, Punches: []attendance.Punch{
		punch(at(monday, "09:30"), attendance.PunchIn),
		punch(at(monday, "16:30"), attendance.PunchOut),
	}})
	assert.Equal(t, 360, short.TotalWorkMinutes)
	assert.Equal(t, 120, short.UndertimeMinutes)
}

func TestClassify_NightDifferentialAcrossMidnight(t *testing.T) {
	ws := schedule.WorkSchedule{
		ID:       "ws-mid",
		Type:     schedule.ScheduleTypeFixed,
		Timezone: "Asia/Manila",
		Time: schedule.TimeConfiguration{
			WorkDays: weekdays,
			Start:    schedule.MustClockTime("14:00"),
			End:      schedule.MustClockTime("22:00"),
		},
	}
	nd := schedule.NightDifferential{
		Enabled:     true,
		WindowStart: schedule.MustClockTime("22:00"),
		WindowEnd:   schedule.MustClockTime("06:00"),
	}

	rec := Classify(ClassifyInput{
		EmployeeID:        "emp-1",
		Window:            windowFor(t, ws, monday),
		NightDifferential: nd,
		Punches: []attendance.Punch{
			punch(at(monday, "14:00"), attendance.PunchIn),
			punch(at(monday.AddDate(0, 0, 1), "01:00"), attendance.PunchOut),
		},
	})

	assert.Equal(t, 660, rec.TotalWorkMinutes)
	assert.Equal(t, 180, rec.OvertimeMinutes)
	assert.Equal(t, 180, rec.NightDifferentialMinutes)
	assert.Equal(t, 180, rec.NightDifferentialOvertimeMinutes)
}

func TestClassify_RestDayWork(t *testing.T) {
	saturday := monday.AddDate(0, 0, 5)
	rec := classifyOffice(t, saturday,
		punch(at(saturday, "09:00"), attendance.PunchIn),
		punch(at(saturday, "15:00"), attendance.PunchOut),
	)

	assert.Equal(t, attendance.DtrStatusRestDay, rec.Status)
	assert.Equal(t, 300, rec.TotalWorkMinutes)
	assert.Zero(t, rec.LateMinutes)
	assert.Zero(t, rec.UndertimeMinutes)
	assert.Zero(t, rec.OvertimeMinutes)
}
