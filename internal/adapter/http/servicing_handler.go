package http

import (
	"net/http"
	"strings"
	"time"

	"sacco-workflow/internal/domain/workflow"
	"sacco-workflow/internal/usecase/engine"
	"sacco-workflow/pkg/id"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// ServicingHandler serves disbursement, repayment and portfolio endpoints.
// The engine decides which roles may service a loan.
type ServicingHandler struct {
	uc *engine.Usecase
}

func NewServicingHandler(uc *engine.Usecase) *ServicingHandler {
	return &ServicingHandler{uc: uc}
}

type repaymentReq struct {
	Amount    decimal.Decimal `json:"amount"    validate:"required,gt=0,dec2"`
	PaidOn    string          `json:"paid_on"   validate:"required,datetime=2006-01-02"`
	Reference string          `json:"reference" validate:"max=64"`
	Version   int64           `json:"version"   validate:"required,gt=0"`
}

type repaymentResp struct {
	Reference   string                 `json:"reference"`
	Application *engine.ApplicationDTO `json:"application"`
}

type defaultReq struct {
	Remarks string `json:"remarks" validate:"required,max=1000"`
	Version int64  `json:"version" validate:"required,gt=0"`
}

func (h *ServicingHandler) RequestDisbursement(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return badActor(c)
	}
	dto, err := h.uc.RequestDisbursement(c.Request().Context(), c.Param("application_id"), actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ServicingHandler) Disburse(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return badActor(c)
	}
	var req versionReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Disburse(c.Request().Context(), engine.DisburseInput{
		ApplicationID:   c.Param("application_id"),
		Actor:           actor,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ServicingHandler) RecordRepayment(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return badActor(c)
	}
	var req repaymentReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	paidOn, _ := time.Parse(time.DateOnly, req.PaidOn)
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = id.NewID32()
	}

	dto, err := h.uc.RecordRepayment(c.Request().Context(), engine.RepaymentInput{
		ApplicationID:   c.Param("application_id"),
		Actor:           actor,
		Amount:          req.Amount,
		PaidOn:          paidOn,
		Reference:       reference,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		if dto != nil {
			// recorded but not yet posted; a retry with this reference re-posts
			return c.JSON(statusFor(err), ErrorResponse{
				Error:     err.Error(),
				Reason:    "ledger_post_pending",
				Reference: reference,
			})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, repaymentResp{Reference: reference, Application: dto})
}

// ListRepayments shows the repayment history; members see only their own.
func (h *ServicingHandler) ListRepayments(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return badActor(c)
	}
	ctx := c.Request().Context()
	applicationID := c.Param("application_id")
	if actor.Role == workflow.RoleMember {
		app, err := h.uc.GetApplication(ctx, applicationID)
		if err != nil {
			return writeError(c, err)
		}
		if app.MemberID != actor.ID {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
		}
	}
	out, err := h.uc.ListRepayments(ctx, applicationID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"repayments": out})
}

func (h *ServicingHandler) MarkDefaulted(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return badActor(c)
	}
	var req defaultReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	dto, err := h.uc.MarkDefaulted(c.Request().Context(), engine.DefaultInput{
		ApplicationID:   c.Param("application_id"),
		Actor:           actor,
		Remarks:         req.Remarks,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ServicingHandler) Stats(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return badActor(c)
	}
	if !actor.Role.Staff() {
		return forbidden(c, "stats are for staff")
	}
	out, err := h.uc.Stats(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
