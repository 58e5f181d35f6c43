package attendance

import (
	"fmt"
	"time"
)

type EventType string

const (
	EventClassified          EventType = "classified"
	EventReviewNoChange      EventType = "review_no_change"
	EventReviewMarkAbsent    EventType = "review_mark_absent"
	EventReviewMarkHalfDay   EventType = "review_mark_half_day"
	EventReviewManualTimeOut EventType = "review_manual_time_out"
	EventOvertimeApproved    EventType = "overtime_approved"
	EventOvertimeDenied      EventType = "overtime_denied"
)

func (t EventType) IsReview() bool {
	switch t {
	case EventReviewNoChange, EventReviewMarkAbsent, EventReviewMarkHalfDay, EventReviewManualTimeOut:
		return true
	}
	return false
}

// DtrEvent is an append-only entry in a record's history. Snapshot is set on
// classified events; Minutes on half-day and manual time-out resolutions.
type DtrEvent struct {
	ID            string
	RecordID      string
	CompanyID     string
	Sequence      int
	Type          EventType
	Actor         string
	Remarks       string
	Snapshot      *DailyTimeRecord
	Minutes       *Minutes
	ManualTimeOut *Punch
	OccurredAt    time.Time
}

// Apply folds one event into the record and returns the new projection.
func (r DailyTimeRecord) Apply(e DtrEvent) (DailyTimeRecord, error) {
	if e.Sequence != r.Version+1 {
		return r, fmt.Errorf("%w: record %s at version %d, event sequence %d", ErrEventOutOfOrder, r.ID, r.Version, e.Sequence)
	}

	next := r
	switch e.Type {
	case EventClassified:
		if e.Snapshot == nil {
			return r, fmt.Errorf("%w: classified event without snapshot", ErrInvalidEvent)
		}
		next = *e.Snapshot
		next.Remarks = append([]string(nil), r.Remarks...)

	case EventReviewNoChange, EventReviewMarkAbsent, EventReviewMarkHalfDay, EventReviewManualTimeOut:
		if !r.NeedsReview {
			return r, ErrRecordNotFlagged
		}
		if e.Remarks == "" {
			return r, ErrRemarksRequired
		}
		switch e.Type {
		case EventReviewMarkAbsent:
			next.setMinutes(Minutes{})
			next.Status = DtrStatusAbsent
			next.OvertimeApproved = false
			next.OvertimeDenied = false
		case EventReviewMarkHalfDay:
			if e.Minutes == nil {
				return r, fmt.Errorf("%w: half-day resolution without minutes", ErrInvalidEvent)
			}
			next.setMinutes(*e.Minutes)
		case EventReviewManualTimeOut:
			if e.Minutes == nil || e.ManualTimeOut == nil {
				return r, ErrManualTimeOutRequired
			}
			next.Punches = append(append([]Punch(nil), r.Punches...), *e.ManualTimeOut)
			next.setMinutes(*e.Minutes)
		}
		next.NeedsReview = false

	case EventOvertimeApproved, EventOvertimeDenied:
		if r.OvertimeMinutes <= 0 {
			return r, ErrNoOvertimeToAct
		}
		next.OvertimeApproved = e.Type == EventOvertimeApproved
		next.OvertimeDenied = e.Type == EventOvertimeDenied

	default:
		return r, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}

	if e.Remarks != "" {
		next.Remarks = append(append([]string(nil), next.Remarks...), e.Remarks)
	}
	next.Version = e.Sequence
	next.UpdatedAt = e.OccurredAt
	return next, nil
}

// Replay rebuilds a record from its full history.
func Replay(events []DtrEvent) (DailyTimeRecord, error) {
	var r DailyTimeRecord
	for _, e := range events {
		var err error
		if r, err = r.Apply(e); err != nil {
			return DailyTimeRecord{}, err
		}
	}
	if r.Version == 0 {
		return DailyTimeRecord{}, ErrRecordNotFound
	}
	return r, nil
}
