package attendance

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/calendar"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/leave"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/schedule"
)

// ClassifyInput is everything Classify needs for one employee-day.
type ClassifyInput struct {
	EmployeeID        string
	CompanyID         string
	ScheduleID        string
	ScheduleVersion   int
	Window            schedule.Window
	NightDifferential schedule.NightDifferential
	Punches           []attendance.Punch
	Holiday           *calendar.Holiday
	Leave             *leave.LeaveDay
	DedupWindow       time.Duration
}

// Classify turns the punches of one day into a daily time record. It does
// no I/O; the returned record has no version yet.
func Classify(in ClassifyInput) attendance.DailyTimeRecord {
	w := in.Window
	day := schedule.CivilDate(w.Date, time.UTC)

	rec := attendance.DailyTimeRecord{
		ID:              attendance.RecordID(in.EmployeeID, day),
		EmployeeID:      in.EmployeeID,
		CompanyID:       in.CompanyID,
		Date:            day,
		ScheduleID:      in.ScheduleID,
		ScheduleVersion: in.ScheduleVersion,
	}
	if in.Holiday != nil {
		rec.HolidayType = attendance.HolidayTypePtr(in.Holiday.Type)
	}
	if in.Leave != nil {
		rec.LeavePaid = in.Leave.Paid
	}

	punches := NormalizePunches(in.Punches, in.DedupWindow)
	rec.Punches = punches

	switch {
	case in.Holiday != nil:
		rec.Status = attendance.DtrStatusHoliday
	case w.RestDay:
		rec.Status = attendance.DtrStatusRestDay
	case len(punches) == 0 && in.Leave != nil:
		rec.Status = attendance.DtrStatusOnLeave
	case len(punches) == 0:
		rec.Status = attendance.DtrStatusAbsent
	default:
		rec.Status = attendance.DtrStatusPresent
	}
	if len(punches) == 0 {
		return rec
	}

	workDay := in.Holiday == nil && !w.RestDay
	m, reason := Measure(punches, w, in.NightDifferential, workDay)
	if reason != "" {
		rec.NeedsReview = true
		rec.ReviewReason = reason
	}
	rec.FirstIn = m.FirstIn
	rec.LastOut = m.LastOut
	rec.TotalWorkMinutes = m.TotalWorkMinutes
	rec.LateMinutes = m.LateMinutes
	rec.UndertimeMinutes = m.UndertimeMinutes
	rec.OvertimeMinutes = m.OvertimeMinutes
	rec.NightDifferentialMinutes = m.NightDifferentialMinutes
	rec.NightDifferentialOvertimeMinutes = m.NightDifferentialOvertimeMinutes
	return rec
}

// NormalizePunches sorts punches, merges same-kind neighbours closer than
// window and gives unknown punches an alternating in/out kind.
func NormalizePunches(punches []attendance.Punch, window time.Duration) []attendance.Punch {
	if len(punches) == 0 {
		return nil
	}
	sorted := append([]attendance.Punch(nil), punches...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	out := dedupe(sorted, window)
	next := attendance.PunchIn
	for i := range out {
		if out[i].Kind == attendance.PunchUnknown {
			out[i].Kind = next
		}
		if out[i].Kind == attendance.PunchIn {
			next = attendance.PunchOut
		} else {
			next = attendance.PunchIn
		}
	}
	return dedupe(out, window)
}

// An in keeps the earliest of a burst, an out keeps the latest.
func dedupe(sorted []attendance.Punch, window time.Duration) []attendance.Punch {
	out := make([]attendance.Punch, 0, len(sorted))
	for _, p := range sorted {
		if n := len(out); n > 0 {
			last := out[n-1]
			if last.Kind == p.Kind && p.Time.Sub(last.Time) <= window {
				if p.Kind == attendance.PunchOut {
					out[n-1] = p
				}
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// Measure pairs normalized punches and computes the minute totals against w.
// A non-empty reason means the punches cannot be paired; the minutes then
// carry only FirstIn and LastOut.
func Measure(punches []attendance.Punch, w schedule.Window, nd schedule.NightDifferential, workDay bool) (attendance.Minutes, string) {
	var m attendance.Minutes
	for i := range punches {
		t := punches[i].Time
		if punches[i].Kind == attendance.PunchIn && m.FirstIn == nil {
			m.FirstIn = &t
		}
		if punches[i].Kind == attendance.PunchOut {
			m.LastOut = &t
		}
	}

	intervals, reason := pair(punches)
	if reason != "" {
		return m, reason
	}

	firstIn, lastOut := *m.FirstIn, *m.LastOut
	raw := 0
	for _, in := range intervals {
		raw += in.Minutes()
	}

	// breakSpan pushes the overtime start past the break even when the
	// employee punched out for it and nothing was deducted.
	deducted, breakSpan := 0, 0
	if bw, ok := w.BreakWindow(); ok {
		if !firstIn.After(bw.Start) && !lastOut.Before(bw.End) {
			deducted = schedule.OverlapMinutes(intervals, bw)
			breakSpan = bw.Minutes()
			intervals = carve(intervals, bw)
		}
	} else if w.BreakMinutes > 0 && raw > w.HalfDayMinutes {
		deducted = min(w.BreakMinutes, raw)
		breakSpan = deducted
	}
	m.TotalWorkMinutes = raw - deducted

	if workDay {
		if grace := w.Start.Add(time.Duration(w.GraceMinutes) * time.Minute); firstIn.After(grace) {
			m.LateMinutes = minutesBetween(w.Start, firstIn)
		}
		if m.TotalWorkMinutes < w.RequiredMinutes {
			if w.Flexible {
				m.UndertimeMinutes = w.RequiredMinutes - m.TotalWorkMinutes
			} else if lastOut.Before(w.End) {
				m.UndertimeMinutes = minutesBetween(lastOut, w.End)
			}
		}
	}

	anchor := w.Start
	if w.Flexible || !workDay {
		anchor = firstIn
	}
	otStart := anchor.Add(time.Duration(w.OvertimeThresholdMinutes+breakSpan) * time.Minute)
	overtime := schedule.Interval{Start: otStart, End: lastOut}
	m.OvertimeMinutes = min(schedule.OverlapMinutes(intervals, overtime), m.TotalWorkMinutes)

	loc := w.Start.Location()
	for _, win := range nd.Windows(firstIn.In(loc), lastOut.In(loc)) {
		m.NightDifferentialMinutes += schedule.OverlapMinutes(intervals, win)
		m.NightDifferentialOvertimeMinutes += schedule.OverlapMinutes(intervals, win.Intersect(overtime))
	}
	return m, ""
}

// pair splits punches into in/out intervals. Any odd count is a missing
// time-out whatever the first punch is.
func pair(punches []attendance.Punch) ([]schedule.Interval, string) {
	if len(punches)%2 == 1 {
		return nil, attendance.ReasonMissingTimeOut
	}
	if punches[0].Kind == attendance.PunchOut {
		return nil, attendance.ReasonMissingTimeIn
	}
	intervals := make([]schedule.Interval, 0, len(punches)/2)
	for i := 0; i < len(punches); i += 2 {
		in, out := punches[i], punches[i+1]
		if in.Kind != attendance.PunchIn || out.Kind != attendance.PunchOut {
			return nil, attendance.ReasonUnmatchedPairs
		}
		intervals = append(intervals, schedule.Interval{Start: in.Time, End: out.Time})
	}
	return intervals, ""
}

// carve removes cut from every interval.
func carve(intervals []schedule.Interval, cut schedule.Interval) []schedule.Interval {
	out := make([]schedule.Interval, 0, len(intervals)+1)
	for _, in := range intervals {
		if in.Intersect(cut).Minutes() == 0 {
			out = append(out, in)
			continue
		}
		if in.Start.Before(cut.Start) {
			out = append(out, schedule.Interval{Start: in.Start, End: cut.Start})
		}
		if in.End.After(cut.End) {
			out = append(out, schedule.Interval{Start: cut.End, End: in.End})
		}
	}
	return out
}

func minutesBetween(a, b time.Time) int {
	return int(b.Sub(a) / time.Minute)
}
