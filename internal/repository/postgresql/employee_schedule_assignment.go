package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeScheduleAssignmentRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeScheduleAssignmentRepository(db *database.DB) schedule.EmployeeScheduleAssignmentRepository {
	return &employeeScheduleAssignmentRepositoryImpl{db: db}
}

const assignmentColumns = `id, employee_id, work_schedule_id, start_date, end_date, shift_id, rotation, created_at`

func scanAssignment(row pgx.Row) (schedule.EmployeeScheduleAssignment, error) {
	var a schedule.EmployeeScheduleAssignment
	err := row.Scan(&a.ID, &a.EmployeeID, &a.WorkScheduleID, &a.StartDate, &a.EndDate, &a.ShiftID, &a.Rotation, &a.CreatedAt)
	return a, err
}

// Create implements schedule.EmployeeScheduleAssignmentRepository. Overlaps
// are rejected by the exclusion constraint and reported with the assignment
// already holding the dates.
func (r *employeeScheduleAssignmentRepositoryImpl) Create(ctx context.Context, assignment schedule.EmployeeScheduleAssignment, companyID string) (schedule.EmployeeScheduleAssignment, error) {
	q := GetQuerier(ctx, r.db)

	rotation := assignment.Rotation
	if rotation == nil {
		rotation = []string{}
	}

	query := `
		INSERT INTO employee_schedule_assignments (company_id, employee_id, work_schedule_id, start_date, end_date, shift_id, rotation)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + assignmentColumns

	created, err := scanAssignment(q.QueryRow(ctx, query,
		companyID, assignment.EmployeeID, assignment.WorkScheduleID,
		assignment.StartDate, assignment.EndDate, assignment.ShiftID, rotation,
	))
	if err != nil {
		if isExclusionViolation(err) {
			return schedule.EmployeeScheduleAssignment{}, r.overlapError(ctx, assignment, companyID)
		}
		return schedule.EmployeeScheduleAssignment{}, fmt.Errorf("failed to create schedule assignment: %w", err)
	}
	return created, nil
}

func (r *employeeScheduleAssignmentRepositoryImpl) overlapError(ctx context.Context, a schedule.EmployeeScheduleAssignment, companyID string) error {
	q := GetQuerier(ctx, r.db)

	overlap := &schedule.OverlapError{EmployeeID: a.EmployeeID, From: a.StartDate}
	err := q.QueryRow(ctx, `
		SELECT id FROM employee_schedule_assignments
		WHERE company_id = $1 AND employee_id = $2
		  AND daterange(start_date, end_date, '[]') && daterange($3::date, $4::date, '[]')
		ORDER BY start_date
		LIMIT 1
	`, companyID, a.EmployeeID, a.StartDate, a.EndDate).Scan(&overlap.ExistingID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to find overlapping assignment: %w", err)
	}
	return overlap
}

// ListByEmployee implements schedule.EmployeeScheduleAssignmentRepository.
func (r *employeeScheduleAssignmentRepositoryImpl) ListByEmployee(ctx context.Context, employeeID string, companyID string) ([]schedule.EmployeeScheduleAssignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM employee_schedule_assignments
		WHERE employee_id = $1 AND company_id = $2
		ORDER BY start_date
	`
	return r.list(ctx, query, employeeID, companyID)
}

// ListByCompanyBetween implements schedule.EmployeeScheduleAssignmentRepository.
func (r *employeeScheduleAssignmentRepositoryImpl) ListByCompanyBetween(ctx context.Context, companyID string, from, to time.Time) ([]schedule.EmployeeScheduleAssignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM employee_schedule_assignments
		WHERE company_id = $1
		  AND daterange(start_date, end_date, '[]') && daterange($2::date, $3::date, '[]')
		ORDER BY employee_id, start_date
	`
	return r.list(ctx, query, companyID, from, to)
}

func (r *employeeScheduleAssignmentRepositoryImpl) list(ctx context.Context, query string, args ...any) ([]schedule.EmployeeScheduleAssignment, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule assignments: %w", err)
	}
	defer rows.Close()

	var assignments []schedule.EmployeeScheduleAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
