package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/schedule"
)

type scheduleServiceImpl struct {
	workScheduleRepo           schedule.WorkScheduleRepository
	employeeScheduleAssignRepo schedule.EmployeeScheduleAssignmentRepository
	employeeRepo               employee.EmployeeRepository
}

func NewScheduleService(
	workScheduleRepo schedule.WorkScheduleRepository,
	employeeScheduleAssignRepo schedule.EmployeeScheduleAssignmentRepository,
	employeeRepo employee.EmployeeRepository,
) schedule.ScheduleService {
	return &scheduleServiceImpl{
		workScheduleRepo:           workScheduleRepo,
		employeeScheduleAssignRepo: employeeScheduleAssignRepo,
		employeeRepo:               employeeRepo,
	}
}

// SaveSchedule stores a new version; earlier versions stay readable so old
// records keep pointing at the rules they were classified with.
func (s *scheduleServiceImpl) SaveSchedule(ctx context.Context, req schedule.SaveScheduleRequest) (schedule.WorkSchedule, error) {
	if err := req.Validate(); err != nil {
		return schedule.WorkSchedule{}, err
	}

	ws := req.ToEntity()
	if ws.ID != "" {
		if _, err := s.workScheduleRepo.GetByID(ctx, ws.ID, req.CompanyID); err != nil {
			return schedule.WorkSchedule{}, err
		}
	}
	if _, err := schedule.NewPlan(ws, nil); err != nil {
		return schedule.WorkSchedule{}, err
	}

	saved, err := s.workScheduleRepo.SaveVersion(ctx, ws)
	if err != nil {
		return schedule.WorkSchedule{}, fmt.Errorf("failed to save work schedule: %w", err)
	}
	slog.Info("work schedule saved", "schedule_id", saved.ID, "version", saved.Version, "company_id", saved.CompanyID)
	return saved, nil
}

func (s *scheduleServiceImpl) GetSchedule(ctx context.Context, companyID, id string) (schedule.WorkSchedule, error) {
	return s.workScheduleRepo.GetByID(ctx, id, companyID)
}

func (s *scheduleServiceImpl) AssignSchedule(ctx context.Context, req schedule.AssignScheduleRequest) (schedule.EmployeeScheduleAssignment, error) {
	if err := req.Validate(); err != nil {
		return schedule.EmployeeScheduleAssignment{}, err
	}

	if _, err := s.employeeRepo.GetByID(ctx, req.EmployeeID, req.CompanyID); err != nil {
		return schedule.EmployeeScheduleAssignment{}, err
	}
	ws, err := s.workScheduleRepo.GetByID(ctx, req.WorkScheduleID, req.CompanyID)
	if err != nil {
		return schedule.EmployeeScheduleAssignment{}, err
	}

	assignment := req.ToEntity()

	// The shift reference has to resolve before anyone is classified with it.
	if ws.Type == schedule.ScheduleTypeShifting {
		plan, err := schedule.NewPlan(ws, &assignment)
		if err != nil {
			return schedule.EmployeeScheduleAssignment{}, err
		}
		slots := max(len(assignment.Rotation), 1)
		for i := 0; i < slots; i++ {
			if _, err := plan.ExpectedWindow(assignment.StartDate.AddDate(0, 0, i)); err != nil {
				return schedule.EmployeeScheduleAssignment{}, err
			}
		}
	}

	existing, err := s.employeeScheduleAssignRepo.ListByEmployee(ctx, req.EmployeeID, req.CompanyID)
	if err != nil {
		return schedule.EmployeeScheduleAssignment{}, fmt.Errorf("failed to list schedule assignments: %w", err)
	}
	if err := schedule.ValidateAssignments(append(existing, assignment)); err != nil {
		return schedule.EmployeeScheduleAssignment{}, err
	}

	created, err := s.employeeScheduleAssignRepo.Create(ctx, assignment, req.CompanyID)
	if err != nil {
		var overlap *schedule.OverlapError
		if errors.As(err, &overlap) {
			return schedule.EmployeeScheduleAssignment{}, err
		}
		return schedule.EmployeeScheduleAssignment{}, fmt.Errorf("failed to create employee schedule assignment: %w", err)
	}
	return created, nil
}

func (s *scheduleServiceImpl) ListAssignments(ctx context.Context, companyID, employeeID string) ([]schedule.EmployeeScheduleAssignment, error) {
	return s.employeeScheduleAssignRepo.ListByEmployee(ctx, employeeID, companyID)
}

func (s *scheduleServiceImpl) Preload(ctx context.Context, companyID string, from, to time.Time) (*schedule.PlanBook, error) {
	schedules, err := s.workScheduleRepo.ListVersionsByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load work schedules: %w", err)
	}
	assignments, err := s.employeeScheduleAssignRepo.ListByCompanyBetween(ctx, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule assignments: %w", err)
	}
	employees, err := s.employeeRepo.ListActiveBetween(ctx, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load employees: %w", err)
	}

	defaults := make(map[string]string, len(employees))
	for _, e := range employees {
		if e.WorkScheduleID != "" {
			defaults[e.ID] = e.WorkScheduleID
		}
	}
	return schedule.NewPlanBook(schedules, assignments, defaults)
}

// ResolvePlan applies the priority rule: an assignment covering the date
// wins over the employee's default schedule.
func (s *scheduleServiceImpl) ResolvePlan(ctx context.Context, companyID, employeeID string, date time.Time) (schedule.Plan, error) {
	emp, err := s.employeeRepo.GetByID(ctx, employeeID, companyID)
	if err != nil {
		return schedule.Plan{}, err
	}
	assignments, err := s.employeeScheduleAssignRepo.ListByEmployee(ctx, employeeID, companyID)
	if err != nil {
		return schedule.Plan{}, fmt.Errorf("failed to list schedule assignments: %w", err)
	}
	active, err := schedule.ActiveAssignment(assignments, date)
	if err != nil {
		return schedule.Plan{}, err
	}

	scheduleID := emp.WorkScheduleID
	if active != nil {
		scheduleID = active.WorkScheduleID
	}
	if scheduleID == "" {
		return schedule.Plan{}, fmt.Errorf("%w: employee %s on %s", schedule.ErrNoScheduleForEmployee, employeeID, date.Format(time.DateOnly))
	}

	ws, err := s.workScheduleRepo.GetByID(ctx, scheduleID, companyID)
	if err != nil {
		return schedule.Plan{}, err
	}
	return schedule.NewPlan(ws, active)
}

func (s *scheduleServiceImpl) ExpectedWindow(ctx context.Context, companyID, employeeID string, date time.Time) (schedule.Window, error) {
	plan, err := s.ResolvePlan(ctx, companyID, employeeID, date)
	if err != nil {
		return schedule.Window{}, err
	}
	return plan.ExpectedWindow(date)
}
