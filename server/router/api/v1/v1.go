package v1

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/hrygo/focuspilot/internal/profile"
	"github.com/hrygo/focuspilot/plugin/ai/timeout"
	"github.com/hrygo/focuspilot/server/assistant"
	"github.com/hrygo/focuspilot/server/auth"
	"github.com/hrygo/focuspilot/server/middleware"
)

type APIV1Service struct {
	Profile   *profile.Profile
	Assistant *assistant.Service
	Auth      *auth.Authenticator

	rateLimiter *middleware.RateLimiter
}

func NewAPIV1Service(profile *profile.Profile, svc *assistant.Service) *APIV1Service {
	return &APIV1Service{
		Profile:     profile,
		Assistant:   svc,
		Auth:        auth.NewAuthenticator(profile.AuthSecret, profile.IsDev()),
		rateLimiter: middleware.NewRateLimiter(),
	}
}

// RequestValidator adapts go-playground/validator to echo.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *RequestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

// RegisterRoutes registers the API routes with the given Echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = HTTPErrorHandler

	g := e.Group("/api/v1", s.Auth.Middleware(), s.rateLimiter.Middleware(userKey))

	g.POST("/validate", s.ValidateText)
	g.POST("/goals", s.PlanGoal)

	g.POST("/rag/documents", s.AddDocuments)
	g.PUT("/rag/documents/:id", s.UpsertDocument)
	g.POST("/rag/retrieve", s.RetrieveDocuments)
	g.POST("/rag/generate", s.GenerateAnswer)

	g.POST("/activities", s.TrackActivity)
	g.GET("/activities", s.ListActivities)
	g.GET("/reports/daily", s.GetDailyReport)
	g.GET("/schedule", s.GetSchedule)

	g.GET("/session", s.GetSession)
	g.DELETE("/session", s.ClearSession)
}

// userKey keys rate limiting by authenticated user.
func userKey(c echo.Context) string {
	id, _ := auth.UserIDFromContext(c.Request().Context())
	return id
}

// bind decodes and validates the request body into req.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.Validate(req)
}

// requestContext returns the request's context bounded by RequestTimeout
// and the authenticated user id.
func requestContext(c echo.Context) (context.Context, context.CancelFunc, string) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), timeout.RequestTimeout)
	userID, _ := auth.UserIDFromContext(ctx)
	return ctx, cancel, userID
}
