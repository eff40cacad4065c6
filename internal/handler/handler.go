package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/aggregation"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/finance"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/ledger"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/lock"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/notify"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/payroll"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/repository"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/shift"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/utils"
)

// 后台人员，可以管理排班、账目和工资
var staffRoles = []domain.Role{domain.RoleAdmin, domain.RoleManager}

type Handler struct {
	validate      *utils.Validator
	config        *config.Config
	location      *time.Location
	repository    *repository.Repository
	mailPublisher *notify.MailPublisher
	redisClient   *redis.Client

	shifts      *shift.Service
	ledger      *ledger.Service
	aggregation *aggregation.Service
	payroll     *payroll.Service
	finance     *finance.Service

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, mailPublisher *notify.MailPublisher, rdb *redis.Client, events shift.Publisher) (*Handler, error) {
	validate, err := utils.NewValidator()
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	locker := lock.NewRedisLocker(rdb, time.Duration(cfg.Redis.LockTTL)*time.Second, time.Duration(cfg.Redis.LockWait)*time.Second)
	formula := payroll.NewFormula(cfg)

	return &Handler{
		validate:      validate,
		config:        cfg,
		location:      loc,
		repository:    repo,
		mailPublisher: mailPublisher,
		redisClient:   rdb,

		shifts:      shift.NewService(repo, locker, events, validate),
		ledger:      ledger.NewService(repo, validate),
		aggregation: aggregation.NewService(repo, loc),
		payroll:     payroll.NewService(repo, locker, mailPublisher, validate, formula, loc),
		finance:     finance.NewService(repo, formula, domain.RateFromFloat(cfg.Finance.ProjectionUplift), loc),

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)
	h.Mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.config.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
			r.Route("/update-email", func(r chi.Router) {
				r.Post("/require", h.RequireUpdateEmail)
				r.Post("/confirm", h.ConfirmUpdateEmail)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(h.RequiredRole(staffRoles))
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/", h.CreateUser)
			r.Get("/", h.GetAllUserInfo)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUserInfo)
				r.With(h.preventOperateInitialAdmin).With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Patch("/", h.UpdateUser)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Patch("/password", h.UpdateUserPassword)
			})
		})

		r.Route("/drivers", func(r chi.Router) {
			r.Use(h.RequiredRole(staffRoles))
			r.Get("/", h.ListDrivers)
		})

		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", h.ListVehicles)
			r.With(h.RequiredRole(staffRoles)).Post("/", h.CreateVehicle)
		})

		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.ListMyShifts)
			r.Post("/clock-in", h.ClockIn)
			r.Post("/clock-out", h.ClockOut)
			r.Post("/pause", h.PauseShift)
			r.Post("/resume", h.ResumeShift)
			r.Post("/telemetry", h.RecordTelemetry)
			r.With(h.RequiredRole(staffRoles)).Post("/assignments", h.CreateShiftAssignment)
			r.Get("/{id}/events", h.ListShiftEvents)
		})

		r.Route("/revenue", func(r chi.Router) {
			r.Post("/", h.CreateRevenue)
			r.With(h.RequiredRole(staffRoles)).Get("/grouped", h.GroupRevenue)
			r.With(h.RequiredRole(staffRoles)).Patch("/{id}/reconciled", h.ReconcileRevenue)
		})

		r.Route("/expenses", func(r chi.Router) {
			r.Post("/", h.CreateExpense)
			r.With(h.RequiredRole(staffRoles)).Get("/grouped", h.GroupExpenses)
		})

		r.Route("/payroll", func(r chi.Router) {
			r.Use(h.RequiredRole(staffRoles))
			r.Get("/drivers/{id}", h.CalculateDriverPayroll)
			r.Get("/drivers/{id}/export", h.ExportDriverPayroll)
			r.Post("/records", h.CreatePayrollRecord)
			r.Get("/records", h.ListPayrollRecords)
		})

		r.Route("/finance", func(r chi.Router) {
			r.Use(h.RequiredRole(staffRoles))
			r.Get("/details", h.GetFinanceDetails)
			r.Get("/trend", h.GetFinanceTrend)
			r.Get("/trend/export", h.ExportFinanceTrend)
		})
	})
}
