package schedule

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Minutes() int {
	if !i.End.After(i.Start) {
		return 0
	}
	return int(i.End.Sub(i.Start) / time.Minute)
}

func (i Interval) Intersect(o Interval) Interval {
	start := i.Start
	if o.Start.After(start) {
		start = o.Start
	}
	end := i.End
	if o.End.Before(end) {
		end = o.End
	}
	if !end.After(start) {
		return Interval{}
	}
	return Interval{Start: start, End: end}
}

// OverlapMinutes sums the minutes of each interval that fall inside window.
func OverlapMinutes(intervals []Interval, window Interval) int {
	total := 0
	for _, in := range intervals {
		total += in.Intersect(window).Minutes()
	}
	return total
}

// Windows returns the night windows that can intersect [from, to).
func (nd NightDifferential) Windows(from, to time.Time) []Interval {
	if !nd.Enabled {
		return nil
	}
	loc := from.Location()
	var out []Interval
	day := CivilDate(from, loc).AddDate(0, 0, -1)
	last := CivilDate(to, loc)
	for !day.After(last) {
		start := nd.WindowStart.On(day, loc)
		end := nd.WindowEnd.On(day, loc)
		if !end.After(start) {
			end = nd.WindowEnd.On(day.AddDate(0, 0, 1), loc)
		}
		w := Interval{Start: start, End: end}
		if w.End.After(from) && w.Start.Before(to) {
			out = append(out, w)
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}
