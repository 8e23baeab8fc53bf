package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	aierrors "github.com/hrygo/focuspilot/plugin/ai/errors"
)

type ValidateRequest struct {
	Text string `json:"text" validate:"required"`
}

type PlanGoalRequest struct {
	Goal string `json:"goal" validate:"required"`
}

// ValidateText runs the validation pipeline without acting on the text.
// POST /api/v1/validate
func (s *APIV1Service) ValidateText(c echo.Context) error {
	var req ValidateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel, _ := requestContext(c)
	defer cancel()

	return c.JSON(http.StatusOK, s.Assistant.Validator.Validate(ctx, req.Text))
}

// PlanGoal turns a goal into a plan.
// POST /api/v1/goals
func (s *APIV1Service) PlanGoal(c echo.Context) error {
	var req PlanGoalRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel, userID := requestContext(c)
	defer cancel()

	plan, err := s.Assistant.Planner.PlanGoal(ctx, userID, req.Goal)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, plan)
}

// GetSession returns the caller's short-term context.
// GET /api/v1/session
func (s *APIV1Service) GetSession(c echo.Context) error {
	ctx, cancel, userID := requestContext(c)
	defer cancel()

	sess, err := s.Assistant.Sessions.GetOrCreateSession(ctx, userID)
	if err != nil {
		return aierrors.CollaboratorFailed("session", err)
	}
	return c.JSON(http.StatusOK, sess)
}

// ClearSession drops the caller's short-term context.
// DELETE /api/v1/session
func (s *APIV1Service) ClearSession(c echo.Context) error {
	ctx, cancel, userID := requestContext(c)
	defer cancel()

	if err := s.Assistant.Sessions.ClearSession(ctx, userID); err != nil {
		return aierrors.CollaboratorFailed("session", err)
	}
	return c.NoContent(http.StatusNoContent)
}
