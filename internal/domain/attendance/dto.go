package attendance

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/calendar"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
)

type PunchInput struct {
	EmployeeID string `json:"employee_id"`
	Time       string `json:"time"`
	Kind       string `json:"kind"`
	Source     string `json:"source"`
}

type RecordPunchesRequest struct {
	CompanyID string       `json:"-"`
	Punches   []PunchInput `json:"punches"`
}

func (r *RecordPunchesRequest) Validate() error {
	var errs validator.ValidationErrors

	if len(r.Punches) == 0 {
		errs.Add("punches", "at least one punch is required")
	}
	for _, p := range r.Punches {
		if validator.IsEmpty(p.EmployeeID) {
			errs.Add("punches.employee_id", "employee_id is required")
			break
		}
		if _, ok := validator.IsValidDateTime(p.Time); !ok {
			errs.Add("punches.time", "time must be RFC3339 with an offset")
			break
		}
		if p.Kind != "" && !PunchKind(p.Kind).Valid() {
			errs.Add("punches.kind", "kind must be in, out or unknown")
			break
		}
	}

	return errs.Err()
}

// ToPunches converts a validated request.
func (r *RecordPunchesRequest) ToPunches() []Punch {
	out := make([]Punch, 0, len(r.Punches))
	for _, p := range r.Punches {
		t, _ := validator.IsValidDateTime(p.Time)
		kind := PunchKind(p.Kind)
		if kind == "" {
			kind = PunchUnknown
		}
		out = append(out, Punch{EmployeeID: p.EmployeeID, CompanyID: r.CompanyID, Time: t, Kind: kind, Source: p.Source})
	}
	return out
}

type ClassifyRangeRequest struct {
	CompanyID   string   `json:"-"`
	Actor       string   `json:"-"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	EmployeeIDs []string `json:"employee_ids,omitempty"`
}

func (r *ClassifyRangeRequest) Validate() error {
	var errs validator.ValidationErrors

	from, okFrom := validator.IsValidDate(r.From)
	if !okFrom {
		errs.Add("from", "from must be YYYY-MM-DD")
	}
	to, okTo := validator.IsValidDate(r.To)
	if !okTo {
		errs.Add("to", "to must be YYYY-MM-DD")
	}
	if okFrom && okTo {
		if to.Before(from) {
			errs.Add("to", "to must not precede from")
		} else if to.Sub(from) > 62*24*time.Hour {
			errs.Add("to", "range must not exceed 62 days")
		}
	}

	return errs.Err()
}

type ClassificationFailure struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date,omitempty"`
	Error      string `json:"error"`
}

type ClassifyRangeResult struct {
	Classified int                     `json:"classified"`
	Flagged    int                     `json:"flagged"`
	Skipped    int                     `json:"skipped"`
	Failures   []ClassificationFailure `json:"failures,omitempty"`
}

type DtrFilter struct {
	EmployeeID  *string
	From        *time.Time
	To          *time.Time
	NeedsReview *bool
	Status      *DtrStatus
	Page        int
	Limit       int
}

type ReviewAction string

const (
	ActionNoChange      ReviewAction = "no_change"
	ActionMarkAbsent    ReviewAction = "mark_absent"
	ActionMarkHalfDay   ReviewAction = "mark_half_day"
	ActionManualTimeOut ReviewAction = "manual_time_out"
)

// EventType maps the action to the event it appends.
func (a ReviewAction) EventType() (EventType, bool) {
	switch a {
	case ActionNoChange:
		return EventReviewNoChange, true
	case ActionMarkAbsent:
		return EventReviewMarkAbsent, true
	case ActionMarkHalfDay:
		return EventReviewMarkHalfDay, true
	case ActionManualTimeOut:
		return EventReviewManualTimeOut, true
	}
	return "", false
}

type ResolveRequest struct {
	CompanyID     string  `json:"-"`
	RecordID      string  `json:"-"`
	Actor         string  `json:"-"`
	Action        string  `json:"action"`
	Remarks       string  `json:"remarks"`
	ManualTimeOut *string `json:"manual_time_out,omitempty"`
}

func (r *ResolveRequest) Validate() error {
	var errs validator.ValidationErrors

	if _, ok := ReviewAction(r.Action).EventType(); !ok {
		errs.Add("action", "action must be one of: no_change, mark_absent, mark_half_day, manual_time_out")
	}
	if validator.IsEmpty(r.Remarks) {
		errs.Add("remarks", ErrRemarksRequired.Error())
	}
	if ReviewAction(r.Action) == ActionManualTimeOut {
		if r.ManualTimeOut == nil {
			errs.Add("manual_time_out", ErrManualTimeOutRequired.Error())
		} else if _, ok := validator.IsValidDateTime(*r.ManualTimeOut); !ok {
			errs.Add("manual_time_out", "manual_time_out must be RFC3339 with an offset")
		}
	}

	return errs.Err()
}

type OvertimeDecisionRequest struct {
	CompanyID string `json:"-"`
	RecordID  string `json:"-"`
	Actor     string `json:"-"`
	Remarks   string `json:"remarks"`
}

type PunchResponse struct {
	Time   string `json:"time"`
	Kind   string `json:"kind"`
	Source string `json:"source,omitempty"`
}

type DtrResponse struct {
	ID                               string          `json:"id"`
	EmployeeID                       string          `json:"employee_id"`
	Date                             string          `json:"date"`
	ScheduleID                       string          `json:"schedule_id,omitempty"`
	ScheduleVersion                  int             `json:"schedule_version,omitempty"`
	FirstIn                          *string         `json:"first_in,omitempty"`
	LastOut                          *string         `json:"last_out,omitempty"`
	Punches                          []PunchResponse `json:"punches"`
	TotalWorkMinutes                 int             `json:"total_work_minutes"`
	LateMinutes                      int             `json:"late_minutes"`
	UndertimeMinutes                 int             `json:"undertime_minutes"`
	OvertimeMinutes                  int             `json:"overtime_minutes"`
	OvertimeApproved                 bool            `json:"overtime_approved"`
	OvertimeDenied                   bool            `json:"overtime_denied"`
	NightDifferentialMinutes         int             `json:"night_differential_minutes"`
	NightDifferentialOvertimeMinutes int             `json:"night_differential_overtime_minutes"`
	Status                           string          `json:"status"`
	HolidayType                      *string         `json:"holiday_type,omitempty"`
	NeedsReview                      bool            `json:"needs_review"`
	ReviewReason                     string          `json:"review_reason,omitempty"`
	Remarks                          string          `json:"remarks,omitempty"`
	Version                          int             `json:"version"`
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func NewDtrResponse(r DailyTimeRecord) DtrResponse {
	punches := make([]PunchResponse, 0, len(r.Punches))
	for _, p := range r.Punches {
		punches = append(punches, PunchResponse{Time: p.Time.Format(time.RFC3339), Kind: string(p.Kind), Source: p.Source})
	}
	var holiday *string
	if r.HolidayType != nil {
		h := string(*r.HolidayType)
		holiday = &h
	}
	return DtrResponse{
		ID:                               r.ID,
		EmployeeID:                       r.EmployeeID,
		Date:                             r.Date.Format(time.DateOnly),
		ScheduleID:                       r.ScheduleID,
		ScheduleVersion:                  r.ScheduleVersion,
		FirstIn:                          formatTime(r.FirstIn),
		LastOut:                          formatTime(r.LastOut),
		Punches:                          punches,
		TotalWorkMinutes:                 r.TotalWorkMinutes,
		LateMinutes:                      r.LateMinutes,
		UndertimeMinutes:                 r.UndertimeMinutes,
		OvertimeMinutes:                  r.OvertimeMinutes,
		OvertimeApproved:                 r.OvertimeApproved,
		OvertimeDenied:                   r.OvertimeDenied,
		NightDifferentialMinutes:         r.NightDifferentialMinutes,
		NightDifferentialOvertimeMinutes: r.NightDifferentialOvertimeMinutes,
		Status:                           string(r.Status),
		HolidayType:                      holiday,
		NeedsReview:                      r.NeedsReview,
		ReviewReason:                     r.ReviewReason,
		Remarks:                          strings.Join(r.Remarks, "\n"),
		Version:                          r.Version,
	}
}

type DtrEventResponse struct {
	Sequence   int    `json:"sequence"`
	Type       string `json:"type"`
	Actor      string `json:"actor,omitempty"`
	Remarks    string `json:"remarks,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

func NewDtrEventResponse(e DtrEvent) DtrEventResponse {
	return DtrEventResponse{
		Sequence:   e.Sequence,
		Type:       string(e.Type),
		Actor:      e.Actor,
		Remarks:    e.Remarks,
		OccurredAt: e.OccurredAt.Format(time.RFC3339),
	}
}

// HolidayTypePtr returns a pointer to t.
func HolidayTypePtr(t calendar.HolidayType) *calendar.HolidayType {
	return &t
}
