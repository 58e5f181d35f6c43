package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)

func classified(snapshot DailyTimeRecord) DtrEvent {
	return DtrEvent{Sequence: 1, Type: EventClassified, Snapshot: &snapshot, OccurredAt: at}
}

func flaggedRecord() DailyTimeRecord {
	in := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	return DailyTimeRecord{
		ID:           "r1",
		EmployeeID:   "e1",
		Date:         time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		FirstIn:      &in,
		Punches:      []Punch{{Time: in, Kind: PunchIn}},
		Status:       DtrStatusPresent,
		NeedsReview:  true,
		ReviewReason: ReasonMissingTimeOut,
	}
}

func TestReplay_NoChangeClearsFlagOnly(t *testing.T) {
	r, err := Replay([]DtrEvent{
		classified(flaggedRecord()),
		{Sequence: 2, Type: EventReviewNoChange, Remarks: "forgot to punch out, verified", OccurredAt: at},
	})
	require.NoError(t, err)

	assert.False(t, r.NeedsReview)
	assert.Equal(t, 0, r.TotalWorkMinutes)
	assert.Equal(t, []string{"forgot to punch out, verified"}, r.Remarks)
	assert.Equal(t, 2, r.Version)
}

func TestApply_MarkAbsentZeroesMinutes(t *testing.T) {
	rec := flaggedRecord()
	rec.TotalWorkMinutes = 300
	rec.OvertimeMinutes = 30
	rec.NightDifferentialMinutes = 60

	r, err := Replay([]DtrEvent{
		classified(rec),
		{Sequence: 2, Type: EventReviewMarkAbsent, Remarks: "did not report", OccurredAt: at},
	})
	require.NoError(t, err)

	assert.Equal(t, DtrStatusAbsent, r.Status)
	assert.Equal(t, 0, r.TotalWorkMinutes)
	assert.Equal(t, 0, r.OvertimeMinutes)
	assert.Nil(t, r.FirstIn)
}

func TestApply_ReviewGuards(t *testing.T) {
	rec := flaggedRecord()
	rec.NeedsReview = false
	r, err := Replay([]DtrEvent{classified(rec)})
	require.NoError(t, err)

	_, err = r.Apply(DtrEvent{Sequence: 2, Type: EventReviewNoChange, Remarks: "x"})
	assert.ErrorIs(t, err, ErrRecordNotFlagged)

	_, err = r.Apply(DtrEvent{Sequence: 2, Type: EventOvertimeApproved})
	assert.ErrorIs(t, err, ErrNoOvertimeToAct)

	_, err = r.Apply(DtrEvent{Sequence: 5, Type: EventOvertimeApproved})
	assert.ErrorIs(t, err, ErrEventOutOfOrder)

	flagged, err := Replay([]DtrEvent{classified(flaggedRecord())})
	require.NoError(t, err)
	_, err = flagged.Apply(DtrEvent{Sequence: 2, Type: EventReviewNoChange})
	assert.ErrorIs(t, err, ErrRemarksRequired)
}

func TestApply_OvertimeDecisionsAreExclusive(t *testing.T) {
	rec := flaggedRecord()
	rec.NeedsReview = false
	rec.OvertimeMinutes = 120

	r, err := Replay([]DtrEvent{
		classified(rec),
		{Sequence: 2, Type: EventOvertimeDenied, OccurredAt: at},
		{Sequence: 3, Type: EventOvertimeApproved, Remarks: "approved by ops", OccurredAt: at},
	})
	require.NoError(t, err)

	assert.True(t, r.OvertimeApproved)
	assert.False(t, r.OvertimeDenied)
	assert.Equal(t, 120, r.PayableOvertimeMinutes())
}

func TestApply_ManualTimeOutAppendsPunch(t *testing.T) {
	out := time.Date(2025, 3, 3, 17, 0, 0, 0, time.UTC)
	r, err := Replay([]DtrEvent{
		classified(flaggedRecord()),
		{
			Sequence:      2,
			Type:          EventReviewManualTimeOut,
			Remarks:       "badge reader offline",
			Minutes:       &Minutes{LastOut: &out, TotalWorkMinutes: 480},
			ManualTimeOut: &Punch{Time: out, Kind: PunchOut, Source: "manual"},
			OccurredAt:    at,
		},
	})
	require.NoError(t, err)

	assert.Len(t, r.Punches, 2)
	assert.Equal(t, 480, r.TotalWorkMinutes)
	assert.False(t, r.NeedsReview)
}

func TestReplay_Empty(t *testing.T) {
	_, err := Replay(nil)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecordID_Stable(t *testing.T) {
	d := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, RecordID("e1", d), RecordID("e1", d))
	assert.NotEqual(t, RecordID("e1", d), RecordID("e2", d))
	assert.NotEqual(t, RecordID("e1", d), RecordID("e1", d.AddDate(0, 0, 1)))
}
