package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/clock"
)

// SystemActor is recorded on DTR events created by background jobs.
const SystemActor = "system:classifier"

// ClassificationJobs classifies recent days for every tenant so DTRs exist
// before anyone opens a pay period.
type ClassificationJobs struct {
	employeeRepo      employee.EmployeeRepository
	attendanceService attendance.AttendanceService
	clock             clock.Clock
	lookbackDays      int
}

func NewClassificationJobs(
	employeeRepo employee.EmployeeRepository,
	attendanceService attendance.AttendanceService,
	clk clock.Clock,
	lookbackDays int,
) *ClassificationJobs {
	if lookbackDays <= 0 {
		lookbackDays = 1
	}
	return &ClassificationJobs{
		employeeRepo:      employeeRepo,
		attendanceService: attendanceService,
		clock:             clk,
		lookbackDays:      lookbackDays,
	}
}

func (j *ClassificationJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob("classify_recent_days", interval, j.ClassifyRecentDays)
}

// ClassifyRecentDays classifies the last lookbackDays days ending yesterday.
// Records that were already reviewed are left alone by the service, so
// repeated runs only refresh fresh classifications.
func (j *ClassificationJobs) ClassifyRecentDays(ctx context.Context) error {
	companyIDs, err := j.employeeRepo.ListCompanyIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list companies: %w", err)
	}

	today := j.clock.Now().UTC()
	to := today.AddDate(0, 0, -1).Format(time.DateOnly)
	from := today.AddDate(0, 0, -j.lookbackDays).Format(time.DateOnly)

	var classified, flagged, failed int
	for _, companyID := range companyIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result, err := j.attendanceService.ClassifyRange(ctx, attendance.ClassifyRangeRequest{
			CompanyID: companyID,
			Actor:     SystemActor,
			From:      from,
			To:        to,
		})
		if err != nil {
			slog.Error("Cron: Failed to classify company", "company_id", companyID, "error", err)
			failed++
			continue
		}
		for _, f := range result.Failures {
			slog.Warn("Cron: Classification failure",
				"company_id", companyID,
				"employee_id", f.EmployeeID,
				"date", f.Date,
				"error", f.Error)
		}
		classified += result.Classified
		flagged += result.Flagged
	}

	slog.Info("Cron: Classified recent days",
		"from", from,
		"to", to,
		"companies", len(companyIDs),
		"classified", classified,
		"flagged", flagged,
		"failed_companies", failed)
	return nil
}
