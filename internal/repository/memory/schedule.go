package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/schedule"
)

type WorkScheduleRepository struct {
	mu       sync.RWMutex
	versions map[string][]schedule.WorkSchedule
	now      func() time.Time
}

func NewWorkScheduleRepository() *WorkScheduleRepository {
	return &WorkScheduleRepository{versions: make(map[string][]schedule.WorkSchedule), now: time.Now}
}

func (r *WorkScheduleRepository) SaveVersion(_ context.Context, ws schedule.WorkSchedule) (schedule.WorkSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ws.ID == "" {
		ws.ID = newID()
	}
	ws.Version = len(r.versions[ws.ID]) + 1
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = r.now()
	}
	r.versions[ws.ID] = append(r.versions[ws.ID], ws)
	return ws, nil
}

func (r *WorkScheduleRepository) GetByID(_ context.Context, id string, companyID string) (schedule.WorkSchedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vs := r.versions[id]
	if len(vs) == 0 || vs[len(vs)-1].CompanyID != companyID {
		return schedule.WorkSchedule{}, schedule.ErrWorkScheduleNotFound
	}
	return vs[len(vs)-1], nil
}

func (r *WorkScheduleRepository) GetVersion(_ context.Context, id string, version int, companyID string) (schedule.WorkSchedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vs := r.versions[id]
	if version < 1 || version > len(vs) || vs[version-1].CompanyID != companyID {
		return schedule.WorkSchedule{}, schedule.ErrWorkScheduleNotFound
	}
	return vs[version-1], nil
}

func (r *WorkScheduleRepository) ListVersionsByCompany(_ context.Context, companyID string) ([]schedule.WorkSchedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []schedule.WorkSchedule
	for _, id := range sortedKeys(r.versions) {
		for _, ws := range r.versions[id] {
			if ws.CompanyID == companyID {
				out = append(out, ws)
			}
		}
	}
	return out, nil
}

type AssignmentRepository struct {
	mu          sync.RWMutex
	assignments []assignmentRow
}

type assignmentRow struct {
	companyID string
	schedule.EmployeeScheduleAssignment
}

func NewAssignmentRepository() *AssignmentRepository {
	return &AssignmentRepository{}
}

// Create rejects overlaps the way the exclusion constraint does in Postgres.
func (r *AssignmentRepository) Create(_ context.Context, a schedule.EmployeeScheduleAssignment, companyID string) (schedule.EmployeeScheduleAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.assignments {
		if row.companyID == companyID && row.EmployeeID == a.EmployeeID && row.Overlaps(a) {
			return schedule.EmployeeScheduleAssignment{}, &schedule.OverlapError{EmployeeID: a.EmployeeID, ExistingID: row.ID, From: a.StartDate}
		}
	}
	if a.ID == "" {
		a.ID = newID()
	}
	r.assignments = append(r.assignments, assignmentRow{companyID: companyID, EmployeeScheduleAssignment: a})
	return a, nil
}

func (r *AssignmentRepository) ListByEmployee(_ context.Context, employeeID string, companyID string) ([]schedule.EmployeeScheduleAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []schedule.EmployeeScheduleAssignment
	for _, row := range r.assignments {
		if row.companyID == companyID && row.EmployeeID == employeeID {
			out = append(out, row.EmployeeScheduleAssignment)
		}
	}
	return out, nil
}

func (r *AssignmentRepository) ListByCompanyBetween(_ context.Context, companyID string, from, to time.Time) ([]schedule.EmployeeScheduleAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []schedule.EmployeeScheduleAssignment
	for _, row := range r.assignments {
		probe := schedule.EmployeeScheduleAssignment{EmployeeID: row.EmployeeID, StartDate: from, EndDate: &to}
		if row.companyID == companyID && row.Overlaps(probe) {
			out = append(out, row.EmployeeScheduleAssignment)
		}
	}
	return out, nil
}
