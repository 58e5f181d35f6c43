package attendance

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/calendar"
	"github.com/google/uuid"
)

type PunchKind string

const (
	PunchIn      PunchKind = "in"
	PunchOut     PunchKind = "out"
	PunchUnknown PunchKind = "unknown"
)

func (k PunchKind) Valid() bool {
	switch k {
	case PunchIn, PunchOut, PunchUnknown:
		return true
	}
	return false
}

// Punch is one raw clock event as captured by a device or the web app.
type Punch struct {
	ID         string
	EmployeeID string
	CompanyID  string
	Time       time.Time
	Kind       PunchKind
	Source     string
}

type DtrStatus string

const (
	DtrStatusPresent DtrStatus = "present"
	DtrStatusAbsent  DtrStatus = "absent"
	DtrStatusOnLeave DtrStatus = "on_leave"
	DtrStatusHoliday DtrStatus = "holiday"
	DtrStatusRestDay DtrStatus = "rest_day"
)

func (s DtrStatus) Valid() bool {
	switch s {
	case DtrStatusPresent, DtrStatusAbsent, DtrStatusOnLeave, DtrStatusHoliday, DtrStatusRestDay:
		return true
	}
	return false
}

const (
	ReasonMissingTimeOut = "Missing time-out"
	ReasonMissingTimeIn  = "Missing time-in"
	ReasonUnmatchedPairs = "Unmatched punch sequence"
)

// DailyTimeRecord is the classified outcome of one employee-day. The stored
// row is a projection of its events; Version equals the last event sequence.
type DailyTimeRecord struct {
	ID                               string
	EmployeeID                       string
	CompanyID                        string
	Date                             time.Time
	ScheduleID                       string
	ScheduleVersion                  int
	FirstIn                          *time.Time
	LastOut                          *time.Time
	Punches                          []Punch
	TotalWorkMinutes                 int
	LateMinutes                      int
	UndertimeMinutes                 int
	OvertimeMinutes                  int
	OvertimeApproved                 bool
	OvertimeDenied                   bool
	NightDifferentialMinutes         int
	NightDifferentialOvertimeMinutes int
	Status                           DtrStatus
	HolidayType                      *calendar.HolidayType
	LeavePaid                        bool
	NeedsReview                      bool
	ReviewReason                     string
	Remarks                          []string
	Version                          int
	UpdatedAt                        time.Time
}

// PayableOvertimeMinutes is zero until overtime is approved.
func (r DailyTimeRecord) PayableOvertimeMinutes() int {
	if r.OvertimeApproved && !r.OvertimeDenied {
		return r.OvertimeMinutes
	}
	return 0
}

// RegularMinutes is worked time outside the overtime portion.
func (r DailyTimeRecord) RegularMinutes() int {
	m := r.TotalWorkMinutes - r.OvertimeMinutes
	if m < 0 {
		return 0
	}
	return m
}

var recordNamespace = uuid.MustParse("5b0a4c2e-8f51-4d0e-9a57-3c2f1c6d9e01")

// RecordID is stable for an (employee, date) pair.
func RecordID(employeeID string, date time.Time) string {
	return uuid.NewSHA1(recordNamespace, []byte(employeeID+"|"+date.Format(time.DateOnly))).String()
}

// Minutes holds the computed minute totals of a record.
type Minutes struct {
	FirstIn                          *time.Time `json:"first_in,omitempty"`
	LastOut                          *time.Time `json:"last_out,omitempty"`
	TotalWorkMinutes                 int        `json:"total_work_minutes"`
	LateMinutes                      int        `json:"late_minutes"`
	UndertimeMinutes                 int        `json:"undertime_minutes"`
	OvertimeMinutes                  int        `json:"overtime_minutes"`
	NightDifferentialMinutes         int        `json:"night_differential_minutes"`
	NightDifferentialOvertimeMinutes int        `json:"night_differential_overtime_minutes"`
}

func (r DailyTimeRecord) Minutes() Minutes {
	return Minutes{
		FirstIn:                          r.FirstIn,
		LastOut:                          r.LastOut,
		TotalWorkMinutes:                 r.TotalWorkMinutes,
		LateMinutes:                      r.LateMinutes,
		UndertimeMinutes:                 r.UndertimeMinutes,
		OvertimeMinutes:                  r.OvertimeMinutes,
		NightDifferentialMinutes:         r.NightDifferentialMinutes,
		NightDifferentialOvertimeMinutes: r.NightDifferentialOvertimeMinutes,
	}
}

func (r *DailyTimeRecord) setMinutes(m Minutes) {
	r.FirstIn = m.FirstIn
	r.LastOut = m.LastOut
	r.TotalWorkMinutes = m.TotalWorkMinutes
	r.LateMinutes = m.LateMinutes
	r.UndertimeMinutes = m.UndertimeMinutes
	r.OvertimeMinutes = m.OvertimeMinutes
	r.NightDifferentialMinutes = m.NightDifferentialMinutes
	r.NightDifferentialOvertimeMinutes = m.NightDifferentialOvertimeMinutes
}
