package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/config"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/contribution"
	appHTTP "github.com/cmlabs-hris/payroll-engine/internal/handler/http"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-engine/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/payroll-engine/internal/service/attendance"
	contributionService "github.com/cmlabs-hris/payroll-engine/internal/service/contribution"
	loanService "github.com/cmlabs-hris/payroll-engine/internal/service/loan"
	payrollService "github.com/cmlabs-hris/payroll-engine/internal/service/payroll"
	scheduleService "github.com/cmlabs-hris/payroll-engine/internal/service/schedule"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel()})).With(
		slog.String("app", "payroll-engine"),
		slog.String("env", cfg.App.Env),
	))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dsn := cfg.DatabaseURL()
	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(dsn); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	db, err := database.NewPostgreSQLDB(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	var locker lock.Locker = lock.NewMemoryLocker()
	if cfg.Redis.Addr != "" {
		rdb, err := lock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb)
		slog.Info("period locks backed by redis", "addr", cfg.Redis.Addr)
	}

	clk := clock.System()

	employeeRepo := postgresql.NewEmployeeRepository(db)
	punchRepo := postgresql.NewPunchRepository(db)
	dtrRepo := postgresql.NewDtrRepository(db)
	holidayRepo := postgresql.NewHolidayRepository(db)
	leaveRepo := postgresql.NewLeaveRepository(db)
	workScheduleRepo := postgresql.NewWorkScheduleRepository(db)
	assignmentRepo := postgresql.NewEmployeeScheduleAssignmentRepository(db)
	contributionRepo := postgresql.NewContributionRepository(db)
	loanRepo := postgresql.NewLoanRepository(db)
	adjustmentRepo := postgresql.NewAdjustmentRepository(db)
	periodRepo := postgresql.NewPeriodRepository(db)
	entryRepo := postgresql.NewEntryRepository(db)
	taxSettingsRepo := postgresql.NewTaxSettingsRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	scheduleSvc := scheduleService.NewScheduleService(workScheduleRepo, assignmentRepo, employeeRepo)
	attendanceOpts := attendanceService.Options{
		Workers:     cfg.Payroll.Workers,
		DedupWindow: cfg.Payroll.PunchDedupWindow,
		Clock:       clk,
	}
	attendanceSvc := attendanceService.NewAttendanceService(punchRepo, dtrRepo, employeeRepo, holidayRepo, leaveRepo, scheduleSvc, attendanceOpts)
	reviewSvc := attendanceService.NewReviewService(dtrRepo, scheduleSvc, attendanceOpts)
	tableSvc := contributionService.NewTableService(contributionRepo)
	loanSvc := loanService.NewLoanService(loanRepo, adjustmentRepo, employeeRepo, clk)
	payrollSvc := payrollService.NewPayrollService(
		periodRepo,
		entryRepo,
		taxSettingsRepo,
		employeeRepo,
		dtrRepo,
		scheduleSvc,
		tableSvc,
		loanSvc,
		locker,
		payrollService.Options{
			Workers:          cfg.Payroll.Workers,
			LockTTL:          cfg.Payroll.LockTTL,
			WorkDaysPerYear:  cfg.Payroll.WorkDaysPerYear,
			DefaultTaxMethod: contribution.TaxMethod(cfg.Payroll.DefaultTaxMethod),
			Clock:            clk,
		},
	)

	if cfg.Cron.Enabled {
		scheduler := cron.NewScheduler()
		cron.NewClassificationJobs(employeeRepo, attendanceSvc, clk, cfg.Cron.LookbackDays).
			RegisterJobs(scheduler, cfg.Cron.ClassificationInterval)
		scheduler.Start()
		defer scheduler.Stop()
	}

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{
			Env:      cfg.App.Env,
			Version:  version,
			LogLevel: cfg.LogLevel(),
		},
		JWTService,
		appHTTP.Handlers{
			Attendance:   appHTTP.NewAttendanceHandler(attendanceSvc, reviewSvc),
			Payroll:      appHTTP.NewPayrollHandler(payrollSvc),
			Loan:         appHTTP.NewLoanHandler(loanSvc),
			Contribution: appHTTP.NewContributionHandler(tableSvc),
			Schedule:     appHTTP.NewScheduleHandler(scheduleSvc),
		},
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
