package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/calendar"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/leave"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"golang.org/x/sync/errgroup"
)

// Options tunes classification. Zero values fall back to defaults.
type Options struct {
	Workers     int
	DedupWindow time.Duration
	Clock       clock.Clock
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 8
	}
	if o.DedupWindow <= 0 {
		o.DedupWindow = 2 * time.Minute
	}
	if o.Clock == nil {
		o.Clock = clock.System()
	}
	return o
}

type AttendanceServiceImpl struct {
	punchRepo       attendance.PunchRepository
	dtrRepo         attendance.DtrRepository
	employeeRepo    employee.EmployeeRepository
	holidayRepo     calendar.HolidayRepository
	leaveRepo       leave.LeaveRepository
	scheduleService schedule.ScheduleService
	opts            Options
}

func NewAttendanceService(
	punchRepo attendance.PunchRepository,
	dtrRepo attendance.DtrRepository,
	employeeRepo employee.EmployeeRepository,
	holidayRepo calendar.HolidayRepository,
	leaveRepo leave.LeaveRepository,
	scheduleService schedule.ScheduleService,
	opts Options,
) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		punchRepo:       punchRepo,
		dtrRepo:         dtrRepo,
		employeeRepo:    employeeRepo,
		holidayRepo:     holidayRepo,
		leaveRepo:       leaveRepo,
		scheduleService: scheduleService,
		opts:            opts.withDefaults(),
	}
}

// RecordPunches stores raw punches. Punches already stored for the same
// employee, time and kind are ignored, so imports can be replayed.
func (a *AttendanceServiceImpl) RecordPunches(ctx context.Context, req attendance.RecordPunchesRequest) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	punches := req.ToPunches()

	var ids []string
	seen := make(map[string]bool)
	for _, p := range punches {
		if !seen[p.EmployeeID] {
			seen[p.EmployeeID] = true
			ids = append(ids, p.EmployeeID)
		}
	}
	employees, err := a.employeeRepo.ListByIDs(ctx, req.CompanyID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to load employees: %w", err)
	}
	if len(employees) != len(ids) {
		found := make(map[string]bool, len(employees))
		for _, e := range employees {
			found[e.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return 0, fmt.Errorf("%w: %s", employee.ErrEmployeeNotFound, id)
			}
		}
	}

	created, err := a.punchRepo.CreateBatch(ctx, punches)
	if err != nil {
		return 0, fmt.Errorf("failed to store punches: %w", err)
	}
	slog.Info("punches recorded", "company_id", req.CompanyID, "received", len(punches), "created", created)
	return created, nil
}

// dayInputs resolves everything a classification needs besides punches.
type dayInputs struct {
	planFor  func(employeeID string, date time.Time) (schedule.Plan, error)
	calendar calendar.Calendar
	leaves   map[string]leave.LeaveDay
}

func leaveKey(employeeID string, date time.Time) string {
	return employeeID + "|" + date.Format(time.DateOnly)
}

func (a *AttendanceServiceImpl) loadDayInputs(ctx context.Context, companyID string, employeeIDs []string, from, to time.Time) (dayInputs, error) {
	holidays, err := a.holidayRepo.ListBetween(ctx, companyID, from, to)
	if err != nil {
		return dayInputs{}, fmt.Errorf("failed to load holidays: %w", err)
	}
	days, err := a.leaveRepo.ListApprovedDays(ctx, companyID, employeeIDs, from, to)
	if err != nil {
		return dayInputs{}, fmt.Errorf("failed to load approved leave: %w", err)
	}
	leaves := make(map[string]leave.LeaveDay, len(days))
	for _, d := range days {
		leaves[leaveKey(d.EmployeeID, d.Date)] = d
	}
	return dayInputs{calendar: calendar.New(holidays), leaves: leaves}, nil
}

// ClassifyDay classifies one employee-day. A record that was already
// reviewed is returned unchanged with ErrRecordFinalized.
func (a *AttendanceServiceImpl) ClassifyDay(ctx context.Context, companyID, employeeID string, date time.Time, actor string) (attendance.DailyTimeRecord, error) {
	day := schedule.CivilDate(date, time.UTC)
	emp, err := a.employeeRepo.GetByID(ctx, employeeID, companyID)
	if err != nil {
		return attendance.DailyTimeRecord{}, err
	}
	if !emp.ActiveDuring(day, day) {
		return attendance.DailyTimeRecord{}, fmt.Errorf("%w: %s on %s", employee.ErrEmployeeInactive, employeeID, day.Format(time.DateOnly))
	}

	in, err := a.loadDayInputs(ctx, companyID, []string{employeeID}, day, day)
	if err != nil {
		return attendance.DailyTimeRecord{}, err
	}
	in.planFor = func(employeeID string, date time.Time) (schedule.Plan, error) {
		return a.scheduleService.ResolvePlan(ctx, companyID, employeeID, date)
	}

	var rec attendance.DailyTimeRecord
	var dayErr error
	err = a.classifyEmployee(ctx, in, emp, day, day, actor, func(r attendance.DailyTimeRecord, _ outcome, err error) {
		rec, dayErr = r, err
	})
	if err != nil {
		return attendance.DailyTimeRecord{}, err
	}
	return rec, dayErr
}

// ClassifyRange classifies every day of [From, To] for the requested
// employees, or every employee active in the range. Employees run in
// parallel; one employee's failures never stop the others.
func (a *AttendanceServiceImpl) ClassifyRange(ctx context.Context, req attendance.ClassifyRangeRequest) (attendance.ClassifyRangeResult, error) {
	if err := req.Validate(); err != nil {
		return attendance.ClassifyRangeResult{}, err
	}
	from, _ := validator.IsValidDate(req.From)
	to, _ := validator.IsValidDate(req.To)

	var employees []employee.Employee
	var err error
	if len(req.EmployeeIDs) > 0 {
		employees, err = a.employeeRepo.ListByIDs(ctx, req.CompanyID, req.EmployeeIDs)
	} else {
		employees, err = a.employeeRepo.ListActiveBetween(ctx, req.CompanyID, from, to)
	}
	if err != nil {
		return attendance.ClassifyRangeResult{}, fmt.Errorf("failed to load employees: %w", err)
	}

	ids := make([]string, 0, len(employees))
	for _, e := range employees {
		ids = append(ids, e.ID)
	}
	in, err := a.loadDayInputs(ctx, req.CompanyID, ids, from, to)
	if err != nil {
		return attendance.ClassifyRangeResult{}, err
	}
	book, err := a.scheduleService.Preload(ctx, req.CompanyID, from, to)
	if err != nil {
		return attendance.ClassifyRangeResult{}, err
	}
	in.planFor = book.PlanFor

	var (
		mu     sync.Mutex
		result attendance.ClassifyRangeResult
	)
	record := func(r attendance.DailyTimeRecord, o outcome, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case errors.Is(err, attendance.ErrRecordFinalized), o == outcomeUnchanged:
			result.Skipped++
		case err != nil:
			f := attendance.ClassificationFailure{EmployeeID: r.EmployeeID, Error: err.Error()}
			if !r.Date.IsZero() {
				f.Date = r.Date.Format(time.DateOnly)
			}
			result.Failures = append(result.Failures, f)
		default:
			result.Classified++
			if r.NeedsReview {
				result.Flagged++
			}
		}
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for _, emp := range employees {
		emp := emp
		g.Go(func() error {
			if err := a.classifyEmployee(gCtx, in, emp, from, to, req.Actor, record); err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				record(attendance.DailyTimeRecord{EmployeeID: emp.ID}, outcomeFailed, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return attendance.ClassifyRangeResult{}, err
	}

	slog.Info("classification run finished",
		"company_id", req.CompanyID,
		"from", req.From,
		"to", req.To,
		"employees", len(employees),
		"classified", result.Classified,
		"flagged", result.Flagged,
		"skipped", result.Skipped,
		"failures", len(result.Failures),
	)
	return result, nil
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeAppended
	outcomeUnchanged
	outcomeFinalized
)

// classifyEmployee walks the days of one employee in order. Punches taken
// by one day's attribution window are not offered to the next, so an
// overnight shift keeps its morning punches. The returned error is set only
// when the punches could not be loaded at all.
func (a *AttendanceServiceImpl) classifyEmployee(
	ctx context.Context,
	in dayInputs,
	emp employee.Employee,
	from, to time.Time,
	actor string,
	report func(attendance.DailyTimeRecord, outcome, error),
) error {
	punches, err := a.punchRepo.ListByEmployeeBetween(ctx, emp.CompanyID, emp.ID, from.AddDate(0, 0, -2), to.AddDate(0, 0, 3))
	if err != nil {
		return fmt.Errorf("failed to load punches: %w", err)
	}

	consumed := make(map[int64]bool)
	prev, err := a.dtrRepo.GetByEmployeeDate(ctx, emp.CompanyID, emp.ID, from.AddDate(0, 0, -1))
	switch {
	case err == nil:
		for _, p := range prev.Punches {
			consumed[p.Time.UnixNano()] = true
		}
	case !errors.Is(err, attendance.ErrRecordNotFound):
		return err
	}

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !emp.ActiveDuring(day, day) {
			continue
		}
		stub := attendance.DailyTimeRecord{ID: attendance.RecordID(emp.ID, day), EmployeeID: emp.ID, CompanyID: emp.CompanyID, Date: day}

		plan, err := in.planFor(emp.ID, day)
		if err != nil {
			report(stub, outcomeFailed, attendance.WrapRecordError(stub, err))
			continue
		}
		window, err := plan.ExpectedWindow(day)
		if err != nil {
			report(stub, outcomeFailed, attendance.WrapRecordError(stub, err))
			continue
		}
		attribution, err := plan.AttributionWindow(day)
		if err != nil {
			report(stub, outcomeFailed, attendance.WrapRecordError(stub, err))
			continue
		}

		var dayPunches []attendance.Punch
		for _, p := range punches {
			key := p.Time.UnixNano()
			if consumed[key] || p.Time.Before(attribution.Start) || !p.Time.Before(attribution.End) {
				continue
			}
			consumed[key] = true
			dayPunches = append(dayPunches, p)
		}

		ci := ClassifyInput{
			EmployeeID:        emp.ID,
			CompanyID:         emp.CompanyID,
			ScheduleID:        plan.Schedule.ID,
			ScheduleVersion:   plan.Schedule.Version,
			Window:            window,
			NightDifferential: plan.Schedule.NightDifferential,
			Punches:           dayPunches,
			DedupWindow:       a.opts.DedupWindow,
		}
		if h, ok := in.calendar.HolidayOn(day); ok {
			ci.Holiday = &h
		}
		if l, ok := in.leaves[leaveKey(emp.ID, day)]; ok {
			ci.Leave = &l
		}

		rec, o, err := a.store(ctx, Classify(ci), actor)
		report(rec, o, err)
	}
	return nil
}

// store appends a classified event unless the record was already reviewed
// or the outcome did not change.
func (a *AttendanceServiceImpl) store(ctx context.Context, rec attendance.DailyTimeRecord, actor string) (attendance.DailyTimeRecord, outcome, error) {
	existing, err := a.dtrRepo.GetByID(ctx, rec.ID, rec.CompanyID)
	switch {
	case errors.Is(err, attendance.ErrRecordNotFound):
		existing = attendance.DailyTimeRecord{}
	case err != nil:
		return rec, outcomeFailed, attendance.WrapRecordError(rec, err)
	default:
		events, err := a.dtrRepo.ListEvents(ctx, rec.ID, rec.CompanyID)
		if err != nil {
			return rec, outcomeFailed, attendance.WrapRecordError(rec, err)
		}
		for _, e := range events {
			if e.Type != attendance.EventClassified {
				return existing, outcomeFinalized, attendance.WrapRecordError(existing, attendance.ErrRecordFinalized)
			}
		}
		if sameClassification(existing, rec) {
			return existing, outcomeUnchanged, nil
		}
	}

	next, err := appendEvent(ctx, a.dtrRepo, a.opts.Clock, existing, attendance.DtrEvent{
		RecordID:  rec.ID,
		CompanyID: rec.CompanyID,
		Type:      attendance.EventClassified,
		Actor:     actor,
		Snapshot:  &rec,
	})
	if err != nil {
		return rec, outcomeFailed, attendance.WrapRecordError(rec, err)
	}
	if next.NeedsReview {
		slog.Warn("daily time record flagged for review", "record_id", next.ID, "employee_id", next.EmployeeID, "date", next.Date.Format(time.DateOnly), "reason", next.ReviewReason)
	}
	return next, outcomeAppended, nil
}

func sameClassification(a, b attendance.DailyTimeRecord) bool {
	if a.Status != b.Status || a.NeedsReview != b.NeedsReview || a.ReviewReason != b.ReviewReason ||
		a.ScheduleID != b.ScheduleID || a.ScheduleVersion != b.ScheduleVersion ||
		!sameMinutes(a.Minutes(), b.Minutes()) ||
		a.LeavePaid != b.LeavePaid || (a.HolidayType == nil) != (b.HolidayType == nil) ||
		len(a.Punches) != len(b.Punches) {
		return false
	}
	if a.HolidayType != nil && *a.HolidayType != *b.HolidayType {
		return false
	}
	for i := range a.Punches {
		if !a.Punches[i].Time.Equal(b.Punches[i].Time) || a.Punches[i].Kind != b.Punches[i].Kind {
			return false
		}
	}
	return true
}

func sameMinutes(a, b attendance.Minutes) bool {
	if !sameTime(a.FirstIn, b.FirstIn) || !sameTime(a.LastOut, b.LastOut) {
		return false
	}
	a.FirstIn, a.LastOut, b.FirstIn, b.LastOut = nil, nil, nil, nil
	return a == b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (a *AttendanceServiceImpl) GetRecord(ctx context.Context, companyID, id string) (attendance.DailyTimeRecord, error) {
	return a.dtrRepo.GetByID(ctx, id, companyID)
}

func (a *AttendanceServiceImpl) ListRecords(ctx context.Context, companyID string, filter attendance.DtrFilter) ([]attendance.DailyTimeRecord, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	return a.dtrRepo.List(ctx, companyID, filter)
}

// History returns the record's events, oldest first.
func (a *AttendanceServiceImpl) History(ctx context.Context, companyID, id string) ([]attendance.DtrEvent, error) {
	events, err := a.dtrRepo.ListEvents(ctx, id, companyID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, attendance.ErrRecordNotFound
	}
	return events, nil
}
