package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
)

// Check pings one dependency for /health.
type Check func(ctx context.Context) error

type Handler struct {
	checks map[string]Check
}

func NewHandler(checks map[string]Check) *Handler { return &Handler{checks: checks} }

func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "ok", http.StatusOK
	deps := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			deps[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	body := map[string]any{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	}
	if len(deps) > 0 {
		body["dependencies"] = deps
	}
	return c.JSON(code, body)
}

// Routes bundles what RegisterRoutes mounts. Idempotency and Metrics are optional.
type Routes struct {
	Health      *Handler
	Loans       *LoanHandler
	Approvals   *ApprovalHandler
	Servicing   *ServicingHandler
	Metrics     http.Handler
	Idempotency echo.MiddlewareFunc
}

func RegisterRoutes(e *echo.Echo, r Routes) {
	e.GET("/health", r.Health.Health)
	if r.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(r.Metrics))
	}

	var mw []echo.MiddlewareFunc
	if r.Idempotency != nil {
		mw = append(mw, r.Idempotency)
	}

	apps := e.Group("/applications", mw...)
	apps.POST("", r.Loans.CreateApplication)
	apps.GET("/:application_id", r.Loans.GetApplication)
	apps.PUT("/:application_id", r.Loans.UpdateApplication)
	apps.POST("/:application_id/submit", r.Loans.SubmitApplication)
	apps.GET("/:application_id/decisions", r.Loans.ListDecisions)
	apps.GET("/:application_id/schedule", r.Loans.Schedule)
	apps.POST("/:application_id/decisions", r.Approvals.Decide)
	apps.POST("/:application_id/disbursement-request", r.Servicing.RequestDisbursement)
	apps.POST("/:application_id/disburse", r.Servicing.Disburse)
	apps.POST("/:application_id/repayments", r.Servicing.RecordRepayment)
	apps.GET("/:application_id/repayments", r.Servicing.ListRepayments)
	apps.POST("/:application_id/default", r.Servicing.MarkDefaulted)

	e.GET("/queues/:role", r.Approvals.Queue)
	e.GET("/members/:member_id/applications", r.Loans.ListByMember)
	e.GET("/stats", r.Servicing.Stats)
}
