package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/focuspilot/plugin/ai/activity"
	aierrors "github.com/hrygo/focuspilot/plugin/ai/errors"
	"github.com/hrygo/focuspilot/server/timezone"
)

const dateLayout = "2006-01-02"

type TrackActivityRequest struct {
	Activity    string `json:"activity" validate:"required"`
	PlannedTask string `json:"plannedTask"`
}

type TrackActivityResponse struct {
	Activity *activity.HourlyActivity `json:"activity"`
	Feedback string                   `json:"feedback"`
}

type ListActivitiesResponse struct {
	Date       string                    `json:"date"`
	Activities []activity.HourlyActivity `json:"activities"`
}

// TrackActivity records the caller's hourly check-in.
// POST /api/v1/activities
func (s *APIV1Service) TrackActivity(c echo.Context) error {
	var req TrackActivityRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel, userID := requestContext(c)
	defer cancel()

	act, feedback, err := s.Assistant.Tracker.ProcessHourlyActivity(ctx, userID, req.Activity, req.PlannedTask)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, TrackActivityResponse{Activity: act, Feedback: feedback})
}

// ListActivities returns the caller's check-ins for ?date= (default today).
// GET /api/v1/activities
func (s *APIV1Service) ListActivities(c echo.Context) error {
	date, err := s.parseDate(c.QueryParam("date"))
	if err != nil {
		return err
	}
	ctx, cancel, userID := requestContext(c)
	defer cancel()

	acts := s.Assistant.Tracker.ActivityLog(ctx, userID, date)
	if acts == nil {
		acts = []activity.HourlyActivity{}
	}
	return c.JSON(http.StatusOK, ListActivitiesResponse{Date: date.In(s.Assistant.Location).Format(dateLayout), Activities: acts})
}

// GetDailyReport returns the report for ?date= (default today).
// GET /api/v1/reports/daily
func (s *APIV1Service) GetDailyReport(c echo.Context) error {
	date, err := s.parseDate(c.QueryParam("date"))
	if err != nil {
		return err
	}
	ctx, cancel, userID := requestContext(c)
	defer cancel()

	report, err := s.Assistant.Tracker.GenerateDailyReport(ctx, userID, date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// GetSchedule returns the caller's adaptive schedule.
// GET /api/v1/schedule
func (s *APIV1Service) GetSchedule(c echo.Context) error {
	ctx, cancel, userID := requestContext(c)
	defer cancel()

	schedule, err := s.Assistant.Tracker.GetAdaptiveSchedule(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, schedule)
}

// parseDate parses YYYY-MM-DD as a calendar day in the assistant's
// timezone. Empty means today.
func (s *APIV1Service) parseDate(v string) (time.Time, error) {
	if v == "" {
		return timezone.StartOfDay(s.Assistant.Now(), s.Assistant.Location), nil
	}
	d, err := timezone.ParseDate(v, s.Assistant.Location)
	if err != nil {
		return time.Time{}, aierrors.InvalidArgument("date must be YYYY-MM-DD")
	}
	return d, nil
}
