package http

import (
	"net/http"

	"sacco-workflow/internal/domain/approval"
	"sacco-workflow/internal/domain/workflow"
	"sacco-workflow/internal/usecase/engine"

	"github.com/labstack/echo/v4"
)

// ApprovalHandler serves stage decisions and the per-role queues.
type ApprovalHandler struct{ uc *engine.Usecase }

func NewApprovalHandler(uc *engine.Usecase) *ApprovalHandler { return &ApprovalHandler{uc: uc} }

type decisionReq struct {
	Outcome string `json:"outcome" validate:"required,oneof=approve reject return"`
	Remarks string `json:"remarks" validate:"max=1000"`
	Version int64  `json:"version" validate:"required,gt=0"`
}

func (h *ApprovalHandler) Decide(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return badActor(c)
	}
	var req decisionReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Decide(c.Request().Context(), engine.DecideInput{
		ApplicationID:   c.Param("application_id"),
		Decider:         actor,
		Outcome:         approval.Outcome(req.Outcome),
		Remarks:         req.Remarks,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// Queue lists what the role has to decide. Staff see their own role's
// queue; system admins may look at any.
func (h *ApprovalHandler) Queue(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return badActor(c)
	}
	role := workflow.Role(c.Param("role"))
	if actor.Role != role && actor.Role != workflow.RoleSystemAdmin {
		return forbidden(c, "queue belongs to another role")
	}
	out, err := h.uc.ListPendingForRole(c.Request().Context(), role)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"role": role, "applications": out})
}
