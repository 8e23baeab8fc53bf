package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/hrygo/focuspilot/plugin/ai"
	"github.com/hrygo/focuspilot/plugin/ai/cache"
	aierrors "github.com/hrygo/focuspilot/plugin/ai/errors"
	"github.com/hrygo/focuspilot/plugin/ai/safety"
	"github.com/hrygo/focuspilot/plugin/ai/session"
	"github.com/hrygo/focuspilot/plugin/ai/timeout"
)

const (
	ClassificationTTL = 5 * time.Minute
	ActivityLogTTL    = 24 * time.Hour
	ReportTTL         = 12 * time.Hour
	FallbackReportTTL = 5 * time.Minute

	recentContextEntries = 3
	summaryLength        = 80
	dateLayout           = "2006-01-02"
)

// Validator screens raw text before classification.
type Validator interface {
	Validate(ctx context.Context, raw string) safety.ValidationResult
}

// Config configures a Tracker.
type Config struct {
	Truncation TruncationStrategy
	// Location decides the hour and calendar day of a check-in (default: time.Local).
	Location *time.Location
	Now      func() time.Time
}

// Tracker runs the check-in flow:
// RAW_TEXT -> VALIDATED -> CLASSIFIED -> STORED -> SCHEDULE_UPDATED.
type Tracker struct {
	loader    *cache.Loader
	validator Validator
	sessions  session.SessionService
	generator ai.Generator
	schedules ScheduleStore

	truncation TruncationStrategy
	loc        *time.Location
	now        func() time.Time

	logMu      sync.Mutex
	scheduleMu sync.Mutex
}

// NewTracker creates a tracker. A nil schedules uses an in-memory store.
func NewTracker(loader *cache.Loader, validator Validator, sessions session.SessionService, generator ai.Generator, schedules ScheduleStore, cfg Config) *Tracker {
	if schedules == nil {
		schedules = NewMemoryScheduleStore()
	}
	if cfg.Truncation == "" {
		cfg.Truncation = TruncateRecency
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Tracker{
		loader:     loader,
		validator:  validator,
		sessions:   sessions,
		generator:  generator,
		schedules:  schedules,
		truncation: cfg.Truncation,
		loc:        cfg.Location,
		now:        cfg.Now,
	}
}

func activityLogKey(userID, day string) string {
	return cache.NamespaceActivities + userID + "_" + day
}

// reportKey includes the number of logged check-ins. The day log only
// grows, so a report built from an older log can never answer for a
// newer one, even if its load finishes after the check-in landed.
func reportKey(userID, day string, entries int) string {
	return fmt.Sprintf("%s%s_%s_%d", cache.NamespaceReport, userID, day, entries)
}

// ProcessHourlyActivity validates, classifies and stores one check-in and
// returns it with the classifier's feedback.
func (t *Tracker) ProcessHourlyActivity(ctx context.Context, userID, activityText, plannedTask string) (*HourlyActivity, string, error) {
	if userID == "" {
		return nil, "", aierrors.InvalidArgument("user id is required")
	}

	res := t.validator.Validate(ctx, activityText)
	if !res.IsValid {
		return nil, "", aierrors.ValidationFailed(res.Violations)
	}
	planned := safety.Normalize(plannedTask)

	cls := t.classify(ctx, userID, activityText, res.SanitizedText, planned)

	now := t.now().In(t.loc)
	act := HourlyActivity{
		Hour:              now.Hour(),
		ActivityText:      res.SanitizedText,
		Timestamp:         now,
		PlannedTask:       planned,
		ProductivityScore: cls.ProductivityScore,
		AlignmentScore:    cls.AlignmentScore,
		Category:          cls.Category,
	}

	if err := t.appendLog(ctx, userID, now.Format(dateLayout), act); err != nil {
		return nil, "", err
	}

	summary := fmt.Sprintf("%s (%s)", ai.Truncate(res.SanitizedText, summaryLength), act.Category)
	if _, err := t.sessions.AppendContext(ctx, userID, summary, nil); err != nil {
		slog.Warn("failed to update session context", "user_id", userID, "error", err)
	}

	if _, err := t.UpdateAdaptiveSchedule(ctx, userID, []HourlyActivity{act}); err != nil {
		slog.Warn("failed to update adaptive schedule", "user_id", userID, "error", err)
	}

	return &act, cls.Feedback, nil
}

// ActivityLog returns the user's check-ins for day.
func (t *Tracker) ActivityLog(ctx context.Context, userID string, day time.Time) []HourlyActivity {
	var log []HourlyActivity
	cache.GetJSON(ctx, t.loader.Store(), activityLogKey(userID, day.In(t.loc).Format(dateLayout)), &log)
	return log
}

func (t *Tracker) appendLog(ctx context.Context, userID, day string, act HourlyActivity) error {
	t.logMu.Lock()
	defer t.logMu.Unlock()

	store := t.loader.Store()
	key := activityLogKey(userID, day)

	var log []HourlyActivity
	cache.GetJSON(ctx, store, key, &log)
	log = append(log, act)

	if err := cache.SetJSON(ctx, store, key, log, ActivityLogTTL); err != nil {
		return fmt.Errorf("failed to store activity log %s: %w", key, err)
	}
	if err := store.Delete(ctx, reportKey(userID, day, len(log)-1)); err != nil {
		slog.Warn("failed to invalidate daily report", "user_id", userID, "day", day, "error", err)
	}
	return nil
}

func (t *Tracker) classify(ctx context.Context, userID, rawText, sanitized, planned string) Classification {
	key := cache.Key(cache.NamespaceClassify, userID, rawText)
	cls, _, _ := cache.Load(ctx, t.loader, key, func(ctx context.Context) (Classification, time.Duration, error) {
		recent := t.sessions.RecentContext(ctx, userID, recentContextEntries)
		reply, err := t.generator.Generate(ctx, classificationPrompt(sanitized, planned, recent), nil)
		if err != nil {
			slog.Warn("activity classification failed, using fallback", "user_id", userID, "error", err)
			return fallbackClassification(), 0, nil
		}
		c, err := parseClassification(reply)
		if err != nil {
			slog.Warn("activity classification unparseable, using fallback",
				"user_id", userID,
				"error", err,
				"reply", ai.Truncate(reply, timeout.MaxTruncateLength))
			return fallbackClassification(), 0, nil
		}
		return c, ClassificationTTL, nil
	})
	return cls
}

func classificationPrompt(activity, planned string, recent []string) string {
	var b strings.Builder
	b.WriteString("Classify how the user spent the last hour.\n\n")
	fmt.Fprintf(&b, "Activity: %s\n", activity)
	if planned != "" {
		fmt.Fprintf(&b, "Planned task: %s\n", planned)
	} else {
		b.WriteString("Planned task: none\n")
	}
	if len(recent) > 0 {
		b.WriteString("Recent context:\n")
		for _, r := range recent {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	b.WriteString(`
Return ONLY a JSON object:
{"category": "productive" | "neutral" | "time_waste", "productivityScore": 0-100, "alignmentScore": 0-100, "feedback": "<one encouraging sentence>"}
alignmentScore measures how well the activity matches the planned task (50 when there is no plan).`)
	return b.String()
}

func clampScore(v float64) int {
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

func parseClassification(reply string) (Classification, error) {
	var raw struct {
		Category          string  `json:"category"`
		ProductivityScore float64 `json:"productivityScore"`
		AlignmentScore    float64 `json:"alignmentScore"`
		Feedback          string  `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(ai.ExtractJSON(reply)), &raw); err != nil {
		return Classification{}, aierrors.MalformedResponse("classifier", err)
	}
	if raw.Category == "" {
		return Classification{}, aierrors.MalformedResponse("classifier", fmt.Errorf("missing category"))
	}
	return Classification{
		Category:          ParseCategory(raw.Category),
		ProductivityScore: clampScore(raw.ProductivityScore),
		AlignmentScore:    clampScore(raw.AlignmentScore),
		Feedback:          strings.TrimSpace(raw.Feedback),
	}, nil
}

func fallbackClassification() Classification {
	return Classification{
		Category:          CategoryNeutral,
		ProductivityScore: 50,
		AlignmentScore:    50,
		Feedback:          "Activity logged. Keep checking in to see your patterns.",
	}
}
