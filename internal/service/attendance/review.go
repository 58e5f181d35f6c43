package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
)

type ReviewServiceImpl struct {
	dtrRepo         attendance.DtrRepository
	scheduleService schedule.ScheduleService
	opts            Options
}

func NewReviewService(dtrRepo attendance.DtrRepository, scheduleService schedule.ScheduleService, opts Options) attendance.ReviewService {
	return &ReviewServiceImpl{
		dtrRepo:         dtrRepo,
		scheduleService: scheduleService,
		opts:            opts.withDefaults(),
	}
}

// Resolve clears the review flag of a record with one of the review actions.
func (r *ReviewServiceImpl) Resolve(ctx context.Context, req attendance.ResolveRequest) (attendance.DailyTimeRecord, error) {
	if err := req.Validate(); err != nil {
		return attendance.DailyTimeRecord{}, err
	}

	rec, err := r.dtrRepo.GetByID(ctx, req.RecordID, req.CompanyID)
	if err != nil {
		return attendance.DailyTimeRecord{}, err
	}
	if !rec.NeedsReview {
		return attendance.DailyTimeRecord{}, attendance.WrapRecordError(rec, attendance.ErrRecordNotFlagged)
	}

	action := attendance.ReviewAction(req.Action)
	eventType, _ := action.EventType()
	ev := attendance.DtrEvent{
		RecordID:  rec.ID,
		CompanyID: rec.CompanyID,
		Type:      eventType,
		Actor:     req.Actor,
		Remarks:   strings.TrimSpace(req.Remarks),
	}

	switch action {
	case attendance.ActionMarkHalfDay:
		plan, err := r.scheduleService.ResolvePlan(ctx, rec.CompanyID, rec.EmployeeID, rec.Date)
		if err != nil {
			return attendance.DailyTimeRecord{}, attendance.WrapRecordError(rec, err)
		}
		w, err := plan.ExpectedWindow(rec.Date)
		if err != nil {
			return attendance.DailyTimeRecord{}, attendance.WrapRecordError(rec, err)
		}
		ev.Minutes = &attendance.Minutes{
			FirstIn:          rec.FirstIn,
			LastOut:          rec.LastOut,
			TotalWorkMinutes: w.HalfDayMinutes,
			UndertimeMinutes: max(w.RequiredMinutes-w.HalfDayMinutes, 0),
		}

	case attendance.ActionManualTimeOut:
		out, _ := validator.IsValidDateTime(*req.ManualTimeOut)
		if rec.FirstIn == nil || !out.After(*rec.FirstIn) {
			return attendance.DailyTimeRecord{}, attendance.WrapRecordError(rec, attendance.ErrManualTimeOutBeforeFirstIn)
		}
		plan, err := r.scheduleService.ResolvePlan(ctx, rec.CompanyID, rec.EmployeeID, rec.Date)
		if err != nil {
			return attendance.DailyTimeRecord{}, attendance.WrapRecordError(rec, err)
		}
		w, err := plan.ExpectedWindow(rec.Date)
		if err != nil {
			return attendance.DailyTimeRecord{}, attendance.WrapRecordError(rec, err)
		}

		manual := attendance.Punch{
			EmployeeID: rec.EmployeeID,
			CompanyID:  rec.CompanyID,
			Time:       out,
			Kind:       attendance.PunchOut,
			Source:     "manual",
		}
		punches := NormalizePunches(append(append([]attendance.Punch(nil), rec.Punches...), manual), r.opts.DedupWindow)
		workDay := rec.HolidayType == nil && rec.Status != attendance.DtrStatusRestDay
		m, reason := Measure(punches, w, plan.Schedule.NightDifferential, workDay)
		if reason != "" {
			return attendance.DailyTimeRecord{}, attendance.WrapRecordError(rec, fmt.Errorf("%w: %s", attendance.ErrInvalidReviewAction, reason))
		}
		ev.Minutes = &m
		ev.ManualTimeOut = &manual
	}

	next, err := appendEvent(ctx, r.dtrRepo, r.opts.Clock, rec, ev)
	if err != nil {
		return attendance.DailyTimeRecord{}, attendance.WrapRecordError(rec, err)
	}

	slog.Info("daily time record resolved",
		"record_id", next.ID,
		"employee_id", next.EmployeeID,
		"action", req.Action,
		"actor", req.Actor,
	)
	return next, nil
}

func (r *ReviewServiceImpl) ApproveOvertime(ctx context.Context, req attendance.OvertimeDecisionRequest) (attendance.DailyTimeRecord, error) {
	return r.decideOvertime(ctx, req, attendance.EventOvertimeApproved)
}

func (r *ReviewServiceImpl) DenyOvertime(ctx context.Context, req attendance.OvertimeDecisionRequest) (attendance.DailyTimeRecord, error) {
	return r.decideOvertime(ctx, req, attendance.EventOvertimeDenied)
}

// A later decision replaces an earlier one; approved and denied never hold
// together.
func (r *ReviewServiceImpl) decideOvertime(ctx context.Context, req attendance.OvertimeDecisionRequest, eventType attendance.EventType) (attendance.DailyTimeRecord, error) {
	rec, err := r.dtrRepo.GetByID(ctx, req.RecordID, req.CompanyID)
	if err != nil {
		return attendance.DailyTimeRecord{}, err
	}

	next, err := appendEvent(ctx, r.dtrRepo, r.opts.Clock, rec, attendance.DtrEvent{
		RecordID:  rec.ID,
		CompanyID: rec.CompanyID,
		Type:      eventType,
		Actor:     req.Actor,
		Remarks:   strings.TrimSpace(req.Remarks),
	})
	if err != nil {
		return attendance.DailyTimeRecord{}, attendance.WrapRecordError(rec, err)
	}

	slog.Info("overtime decision recorded",
		"record_id", next.ID,
		"employee_id", next.EmployeeID,
		"decision", string(eventType),
		"overtime_minutes", next.OvertimeMinutes,
		"actor", req.Actor,
	)
	return next, nil
}

// appendEvent folds ev into rec and stores both. The repository rejects the
// write when another event landed first.
func appendEvent(ctx context.Context, repo attendance.DtrRepository, clk clock.Clock, rec attendance.DailyTimeRecord, ev attendance.DtrEvent) (attendance.DailyTimeRecord, error) {
	ev.Sequence = rec.Version + 1
	ev.OccurredAt = clk.Now()

	next, err := rec.Apply(ev)
	if err != nil {
		return attendance.DailyTimeRecord{}, err
	}
	if err := repo.Append(ctx, ev, next); err != nil {
		return attendance.DailyTimeRecord{}, err
	}
	return next, nil
}
