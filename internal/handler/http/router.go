package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type Handlers struct {
	Attendance   AttendanceHandler
	Payroll      PayrollHandler
	Loan         LoanHandler
	Contribution ContributionHandler
	Schedule     ScheduleHandler
}

type RouterOptions struct {
	Env            string
	Version        string
	AllowedOrigins []string
	LogLevel       slog.Level
}

func NewRouter(opts RouterOptions, JWTService jwt.Service, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(opts.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       opts.LogLevel,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "payroll-engine"),
		slog.String("version", opts.Version),
		slog.String("env", opts.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
		r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

		// Read models are open to every member of the company
		r.Get("/dtrs", h.Attendance.List)
		r.Get("/dtrs/flagged", h.Attendance.ListFlagged)
		r.Get("/dtrs/{id}", h.Attendance.Get)
		r.Get("/dtrs/{id}/history", h.Attendance.History)
		r.Get("/payroll/entries/{id}", h.Payroll.GetEntry)
		r.Get("/loans/{id}", h.Loan.GetLoan)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireManager)

			r.Route("/attendance", func(r chi.Router) {
				r.Post("/punches", h.Attendance.RecordPunches)
				r.Post("/classify", h.Attendance.Classify)
			})

			r.Post("/dtrs/{id}/resolve", h.Attendance.Resolve)
			r.Post("/dtrs/{id}/overtime/approve", h.Attendance.ApproveOvertime)
			r.Post("/dtrs/{id}/overtime/deny", h.Attendance.DenyOvertime)

			r.Get("/payroll/settings", h.Payroll.GetTaxSettings)
			r.Put("/payroll/settings", h.Payroll.UpdateTaxSettings)

			r.Route("/payroll/periods", func(r chi.Router) {
				r.Get("/", h.Payroll.ListPeriods)
				r.Post("/", h.Payroll.CreatePeriod)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Payroll.GetPeriod)
					r.Get("/summary", h.Payroll.Summary)
					r.Get("/entries", h.Payroll.ListEntries)
					r.Post("/open", h.Payroll.OpenPeriod)
					r.Post("/compute", h.Payroll.Compute)
					r.Post("/recompute", h.Payroll.Recompute)
					r.Post("/approve", h.Payroll.ApprovePeriod)
					r.Post("/pay", h.Payroll.MarkPaid)
					r.Post("/close", h.Payroll.ClosePeriod)
				})
			})

			r.Post("/payroll/entries/{id}/review", h.Payroll.ReviewEntry)
			r.Post("/payroll/entries/{id}/approve", h.Payroll.ApproveEntry)
			r.Post("/payroll/entries/{id}/void", h.Payroll.VoidEntry)

			r.Post("/loans", h.Loan.CreateLoan)
			r.Post("/loans/{id}/activate", h.Loan.ActivateLoan)
			r.Post("/loans/{id}/cancel", h.Loan.CancelLoan)
			r.Post("/loans/{id}/payments", h.Loan.RecordPayment)

			r.Route("/adjustments", func(r chi.Router) {
				r.Post("/", h.Loan.CreateAdjustment)
				r.Post("/{id}/activate", h.Loan.ActivateAdjustment)
				r.Post("/{id}/cancel", h.Loan.CancelAdjustment)
				r.Post("/{id}/end", h.Loan.EndAdjustment)
			})

			r.Route("/contributions", func(r chi.Router) {
				r.Put("/versions", h.Contribution.UpsertVersion)
				r.Get("/resolve", h.Contribution.Resolve)
			})

			r.Route("/schedules", func(r chi.Router) {
				r.Post("/", h.Schedule.CreateWorkSchedule)
				r.Get("/{id}", h.Schedule.GetWorkSchedule)
				r.Put("/{id}", h.Schedule.UpdateWorkSchedule)
				r.Post("/assignments", h.Schedule.CreateEmployeeScheduleAssignment)
			})

			r.Route("/employees/{employeeId}", func(r chi.Router) {
				r.Get("/schedule-assignments", h.Schedule.ListEmployeeScheduleAssignments)
				r.Get("/expected-window", h.Schedule.GetExpectedWindow)
			})
		})
	})
	return r
}
