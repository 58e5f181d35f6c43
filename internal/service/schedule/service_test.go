package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/payroll-engine/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const companyID = "company-1"

func strPtr(s string) *string { return &s }

func newService(t *testing.T) (schedule.ScheduleService, *memory.EmployeeRepository) {
	t.Helper()
	employees := memory.NewEmployeeRepository(employee.Employee{
		ID: "emp-1", CompanyID: companyID, HireDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	svc := NewScheduleService(memory.NewWorkScheduleRepository(), memory.NewAssignmentRepository(), employees)
	return svc, employees
}

func fixedRequest() schedule.SaveScheduleRequest {
	br := schedule.MustClockTime("12:00")
	return schedule.SaveScheduleRequest{
		CompanyID:    companyID,
		Name:         "Office",
		Type:         string(schedule.ScheduleTypeFixed),
		Timezone:     "Asia/Manila",
		WorkDays:     []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
		Start:        schedule.MustClockTime("08:00"),
		End:          schedule.MustClockTime("17:00"),
		BreakStart:   &br,
		BreakMinutes: 60,
		Overtime:     schedule.OvertimeRulesRequest{DailyThresholdMinutes: 480, RegularMultiplier: decimal.RequireFromString("1.25")},
	}
}

func shiftingRequest() schedule.SaveScheduleRequest {
	return schedule.SaveScheduleRequest{
		CompanyID: companyID,
		Name:      "Plant",
		Type:      string(schedule.ScheduleTypeShifting),
		Overtime:  schedule.OvertimeRulesRequest{RegularMultiplier: decimal.NewFromInt(1)},
		Shifts: []schedule.ShiftRequest{
			{ID: "day", Start: schedule.MustClockTime("06:00"), End: schedule.MustClockTime("14:00")},
			{ID: "night", Start: schedule.MustClockTime("22:00"), End: schedule.MustClockTime("06:00")},
		},
	}
}

func TestSaveSchedule_Versions(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, err := svc.SaveSchedule(ctx, fixedRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)

	req := fixedRequest()
	req.ID = first.ID
	req.GracePeriodMinutes = 10
	second, err := svc.SaveSchedule(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Version)

	got, err := svc.GetSchedule(ctx, companyID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.GracePeriodMinutes)
}

func TestAssignSchedule_RejectsOverlap(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	ws, err := svc.SaveSchedule(ctx, fixedRequest())
	require.NoError(t, err)

	_, err = svc.AssignSchedule(ctx, schedule.AssignScheduleRequest{
		CompanyID: companyID, EmployeeID: "emp-1", WorkScheduleID: ws.ID,
		StartDate: "2025-01-01", EndDate: strPtr("2025-06-30"),
	})
	require.NoError(t, err)

	_, err = svc.AssignSchedule(ctx, schedule.AssignScheduleRequest{
		CompanyID: companyID, EmployeeID: "emp-1", WorkScheduleID: ws.ID, StartDate: "2025-06-01",
	})
	require.ErrorIs(t, err, schedule.ErrOverlappingScheduleAssignment)

	var overlap *schedule.OverlapError
	require.ErrorAs(t, err, &overlap)
	assert.Equal(t, "emp-1", overlap.EmployeeID)

	_, err = svc.AssignSchedule(ctx, schedule.AssignScheduleRequest{
		CompanyID: companyID, EmployeeID: "emp-1", WorkScheduleID: ws.ID, StartDate: "2025-07-01",
	})
	assert.NoError(t, err)
}

func TestAssignSchedule_UnknownShift(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	ws, err := svc.SaveSchedule(ctx, shiftingRequest())
	require.NoError(t, err)

	_, err = svc.AssignSchedule(ctx, schedule.AssignScheduleRequest{
		CompanyID: companyID, EmployeeID: "emp-1", WorkScheduleID: ws.ID,
		StartDate: "2025-01-01", Rotation: []string{"day", "swing"},
	})
	require.ErrorIs(t, err, schedule.ErrShiftNotResolved)

	_, err = svc.AssignSchedule(ctx, schedule.AssignScheduleRequest{
		CompanyID: companyID, EmployeeID: "emp-1", WorkScheduleID: ws.ID,
		StartDate: "2026-01-01", ShiftID: strPtr("swing"),
	})
	assert.ErrorIs(t, err, schedule.ErrShiftNotResolved)
}

func TestResolvePlan_AssignmentBeatsDefault(t *testing.T) {
	svc, employees := newService(t)
	ctx := context.Background()

	office, err := svc.SaveSchedule(ctx, fixedRequest())
	require.NoError(t, err)
	plant, err := svc.SaveSchedule(ctx, shiftingRequest())
	require.NoError(t, err)

	employees.Put(employee.Employee{ID: "emp-1", CompanyID: companyID, WorkScheduleID: office.ID, HireDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})

	_, err = svc.AssignSchedule(ctx, schedule.AssignScheduleRequest{
		CompanyID: companyID, EmployeeID: "emp-1", WorkScheduleID: plant.ID,
		StartDate: "2025-03-01", EndDate: strPtr("2025-03-31"), ShiftID: strPtr("night"),
	})
	require.NoError(t, err)

	w, err := svc.ExpectedWindow(ctx, companyID, "emp-1", time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 8, w.Start.Hour())

	w, err = svc.ExpectedWindow(ctx, companyID, "emp-1", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "night", w.ShiftID)
	assert.Equal(t, 22, w.Start.Hour())
	assert.Equal(t, 11, w.End.Day(), "overnight shift ends the next day")

	book, err := svc.Preload(ctx, companyID, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	plan, err := book.PlanFor("emp-1", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, plant.ID, plan.Schedule.ID)
}

func TestResolvePlan_NoSchedule(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.ResolvePlan(context.Background(), companyID, "emp-1", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, schedule.ErrNoScheduleForEmployee)
}
