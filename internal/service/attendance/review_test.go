package attendance

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flaggedRecord(t *testing.T, f *fixture) attendance.DailyTimeRecord {
	t.Helper()
	f.record(t, "emp-1", punch(at(monday, "08:00"), attendance.PunchIn))
	f.classify(t, "2025-06-02", "2025-06-02")
	rec := f.get(t, "emp-1", mondayUTC)
	require.True(t, rec.NeedsReview)
	return rec
}

func strPtr(s string) *string { return &s }

func TestResolve_ManualTimeOut(t *testing.T) {
	f := newFixture(t)
	rec := flaggedRecord(t, f)

	got, err := f.review.Resolve(context.Background(), attendance.ResolveRequest{
		CompanyID:     companyID,
		RecordID:      rec.ID,
		Actor:         "hr-1",
		Action:        string(attendance.ActionManualTimeOut),
		Remarks:       "left at 18:00 per supervisor",
		ManualTimeOut: strPtr("2025-06-02T18:00:00+08:00"),
	})
	require.NoError(t, err)

	assert.False(t, got.NeedsReview)
	assert.Equal(t, 540, got.TotalWorkMinutes)
	assert.Equal(t, 60, got.OvertimeMinutes)
	assert.False(t, got.OvertimeApproved)
	assert.Len(t, got.Punches, 2)
	assert.Equal(t, "manual", got.Punches[1].Source)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, []string{"left at 18:00 per supervisor"}, got.Remarks)

	stored := f.get(t, "emp-1", mondayUTC)
	assert.Equal(t, got.TotalWorkMinutes, stored.TotalWorkMinutes)
}

func TestResolve_Rejections(t *testing.T) {
	f := newFixture(t)
	rec := flaggedRecord(t, f)
	ctx := context.Background()

	t.Run("time-out before first in", func(t *testing.T) {
		_, err := f.review.Resolve(ctx, attendance.ResolveRequest{
			CompanyID:     companyID,
			RecordID:      rec.ID,
			Action:        string(attendance.ActionManualTimeOut),
			Remarks:       "typo",
			ManualTimeOut: strPtr("2025-06-02T07:00:00+08:00"),
		})
		assert.ErrorIs(t, err, attendance.ErrManualTimeOutBeforeFirstIn)
	})

	t.Run("remarks required", func(t *testing.T) {
		_, err := f.review.Resolve(ctx, attendance.ResolveRequest{
			CompanyID: companyID,
			RecordID:  rec.ID,
			Action:    string(attendance.ActionNoChange),
			Remarks:   "  ",
		})
		assert.Error(t, err)
	})

	t.Run("unflagged record", func(t *testing.T) {
		_, err := f.review.Resolve(ctx, attendance.ResolveRequest{
			CompanyID: companyID,
			RecordID:  rec.ID,
			Action:    string(attendance.ActionNoChange),
			Remarks:   "ok",
		})
		require.NoError(t, err)

		_, err = f.review.Resolve(ctx, attendance.ResolveRequest{
			CompanyID: companyID,
			RecordID:  rec.ID,
			Action:    string(attendance.ActionMarkAbsent),
			Remarks:   "second look",
		})
		assert.ErrorIs(t, err, attendance.ErrRecordNotFlagged)
	})
}

func TestResolve_MarkHalfDay(t *testing.T) {
	f := newFixture(t)
	rec := flaggedRecord(t, f)

	got, err := f.review.Resolve(context.Background(), attendance.ResolveRequest{
		CompanyID: companyID,
		RecordID:  rec.ID,
		Actor:     "hr-1",
		Action:    string(attendance.ActionMarkHalfDay),
		Remarks:   "approved half day",
	})
	require.NoError(t, err)

	assert.Equal(t, 240, got.TotalWorkMinutes)
	assert.Equal(t, 240, got.UndertimeMinutes)
	assert.Zero(t, got.OvertimeMinutes)
	assert.False(t, got.NeedsReview)
	assert.Equal(t, attendance.DtrStatusPresent, got.Status)
}

func TestOvertimeDecisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.record(t, "emp-1", punch(at(monday, "08:00"), attendance.PunchIn), punch(at(monday, "19:00"), attendance.PunchOut))
	f.record(t, "emp-2", punch(at(monday, "08:00"), attendance.PunchIn), punch(at(monday, "17:00"), attendance.PunchOut))
	f.classify(t, "2025-06-02", "2025-06-02")
	rec := f.get(t, "emp-1", mondayUTC)
	require.Equal(t, 120, rec.OvertimeMinutes)

	approved, err := f.review.ApproveOvertime(ctx, attendance.OvertimeDecisionRequest{CompanyID: companyID, RecordID: rec.ID, Actor: "lead-1"})
	require.NoError(t, err)
	assert.True(t, approved.OvertimeApproved)
	assert.Equal(t, 120, approved.PayableOvertimeMinutes())

	denied, err := f.review.DenyOvertime(ctx, attendance.OvertimeDecisionRequest{CompanyID: companyID, RecordID: rec.ID, Actor: "lead-1", Remarks: "not pre-approved"})
	require.NoError(t, err)
	assert.False(t, denied.OvertimeApproved)
	assert.True(t, denied.OvertimeDenied)
	assert.Zero(t, denied.PayableOvertimeMinutes())

	regular := f.get(t, "emp-2", mondayUTC)
	_, err = f.review.ApproveOvertime(ctx, attendance.OvertimeDecisionRequest{CompanyID: companyID, RecordID: regular.ID})
	assert.ErrorIs(t, err, attendance.ErrNoOvertimeToAct)
}

func TestAppendEvent_StaleVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.record(t, "emp-1", punch(at(monday, "08:00"), attendance.PunchIn), punch(at(monday, "19:00"), attendance.PunchOut))
	f.classify(t, "2025-06-02", "2025-06-02")
	stale := f.get(t, "emp-1", mondayUTC)

	_, err := f.review.ApproveOvertime(ctx, attendance.OvertimeDecisionRequest{CompanyID: companyID, RecordID: stale.ID})
	require.NoError(t, err)

	_, err = appendEvent(ctx, f.dtrs, f.clock, stale, attendance.DtrEvent{
		RecordID:  stale.ID,
		CompanyID: companyID,
		Type:      attendance.EventOvertimeDenied,
	})
	assert.ErrorIs(t, err, attendance.ErrConcurrentModification)
}
