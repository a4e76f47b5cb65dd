package http

import (
	"net/http"

	"sacco-workflow/internal/domain/workflow"
	"sacco-workflow/internal/usecase/engine"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// LoanHandler serves the member-facing application endpoints.
type LoanHandler struct{ uc *engine.Usecase }

func NewLoanHandler(uc *engine.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

type createApplicationReq struct {
	ProductCode string          `json:"product_code" validate:"required,max=32"`
	Principal   decimal.Decimal `json:"principal"    validate:"required,gt=0,dec2"`
	TermMonths  int             `json:"term_months"  validate:"required,gt=0,lte=600"`
	Purpose     string          `json:"purpose"      validate:"required,max=500"`
}

type updateApplicationReq struct {
	ProductCode *string          `json:"product_code" validate:"omitempty,max=32"`
	Principal   *decimal.Decimal `json:"principal"    validate:"omitempty,gt=0,dec2"`
	TermMonths  *int             `json:"term_months"  validate:"omitempty,gt=0,lte=600"`
	Purpose     *string          `json:"purpose"      validate:"omitempty,max=500"`
	Version     int64            `json:"version"      validate:"required,gt=0"`
}

type versionReq struct {
	Version int64 `json:"version" validate:"required,gt=0"`
}

func (h *LoanHandler) CreateApplication(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return badActor(c)
	}
	if actor.Role != workflow.RoleMember {
		return forbidden(c, "only members apply for loans")
	}
	var req createApplicationReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	dto, err := h.uc.CreateDraft(c.Request().Context(), engine.CreateDraftInput{
		MemberID:    actor.ID,
		ProductCode: req.ProductCode,
		Principal:   req.Principal,
		TermMonths:  req.TermMonths,
		Purpose:     req.Purpose,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) GetApplication(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return badActor(c)
	}
	dto, err := h.uc.GetApplication(c.Request().Context(), c.Param("application_id"))
	if err != nil {
		return writeError(c, err)
	}
	if actor.Role == workflow.RoleMember && dto.MemberID != actor.ID {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) UpdateApplication(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return badActor(c)
	}
	var req updateApplicationReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	dto, err := h.uc.UpdateDraft(c.Request().Context(), engine.UpdateDraftInput{
		ApplicationID:   c.Param("application_id"),
		ActorID:         actor.ID,
		ProductCode:     req.ProductCode,
		Principal:       req.Principal,
		TermMonths:      req.TermMonths,
		Purpose:         req.Purpose,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) SubmitApplication(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return badActor(c)
	}
	var req versionReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Submit(c.Request().Context(), engine.SubmitInput{
		ApplicationID:   c.Param("application_id"),
		ActorID:         actor.ID,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) ListDecisions(c echo.Context) error {
	if _, err := actorFrom(c); err != nil {
		return badActor(c)
	}
	out, err := h.uc.ListDecisions(c.Request().Context(), c.Param("application_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"decisions": out})
}

func (h *LoanHandler) Schedule(c echo.Context) error {
	if _, err := actorFrom(c); err != nil {
		return badActor(c)
	}
	out, err := h.uc.Schedule(c.Request().Context(), c.Param("application_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *LoanHandler) ListByMember(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return badActor(c)
	}
	memberID := c.Param("member_id")
	if actor.Role == workflow.RoleMember && actor.ID != memberID {
		return forbidden(c, "members may only list their own applications")
	}
	out, err := h.uc.ListByMember(c.Request().Context(), memberID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"applications": out})
}
