// Package goal turns a free-text goal into an actionable plan.
package goal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/hrygo/focuspilot/plugin/ai"
	"github.com/hrygo/focuspilot/plugin/ai/cache"
	aierrors "github.com/hrygo/focuspilot/plugin/ai/errors"
	"github.com/hrygo/focuspilot/plugin/ai/safety"
	"github.com/hrygo/focuspilot/plugin/ai/session"
	"github.com/hrygo/focuspilot/plugin/ai/timeout"
)

const (
	PlanTTL = 30 * time.Minute

	recentContextEntries = 3
	maxTasks             = 10
	defaultTaskMinutes   = 30
)

// Priority of a planned task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func parsePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// Task is one step of a plan.
type Task struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	DurationMinutes int      `json:"durationMinutes"`
	Priority        Priority `json:"priority"`
}

// GoalPlan is the planner's answer. Fallback marks a locally built plan
// returned when the model was unavailable.
type GoalPlan struct {
	Goal     string `json:"goal"`
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Tasks    []Task `json:"tasks"`
	Fallback bool   `json:"fallback"`
}

// Validator screens raw goal text.
type Validator interface {
	Validate(ctx context.Context, raw string) safety.ValidationResult
}

// Planner is the goal planning entry point.
type Planner struct {
	loader    *cache.Loader
	validator Validator
	sessions  session.SessionService
	generator ai.Generator
}

// NewPlanner creates a planner.
func NewPlanner(loader *cache.Loader, validator Validator, sessions session.SessionService, generator ai.Generator) *Planner {
	return &Planner{
		loader:    loader,
		validator: validator,
		sessions:  sessions,
		generator: generator,
	}
}

// PlanGoal validates goalText and returns a plan for it. Only validation
// and argument problems are reported as errors; model failures degrade to
// a fallback plan.
func (p *Planner) PlanGoal(ctx context.Context, userID, goalText string) (*GoalPlan, error) {
	if userID == "" {
		return nil, aierrors.InvalidArgument("user id is required")
	}

	res := p.validator.Validate(ctx, goalText)
	if !res.IsValid {
		return nil, aierrors.ValidationFailed(res.Violations)
	}
	goal := res.SanitizedText

	key := cache.Key(cache.NamespaceGoals, userID, goal)
	plan, hit, err := cache.Load(ctx, p.loader, key, func(ctx context.Context) (GoalPlan, time.Duration, error) {
		sess, err := p.sessions.GetOrCreateSession(ctx, userID)
		if err != nil {
			slog.Warn("failed to load session for goal planning", "user_id", userID, "error", err)
			sess = &session.UserSession{UserID: userID}
		}
		recent := sess.ContextWindow
		if len(recent) > recentContextEntries {
			recent = recent[len(recent)-recentContextEntries:]
		}

		reply, err := p.generator.Generate(ctx, planPrompt(goal, recent, sess.Preferences), nil)
		if err != nil {
			slog.Warn("goal planning failed, using fallback", "user_id", userID, "error", err)
			return fallbackPlan(goal), 0, nil
		}
		plan, err := parsePlan(goal, reply)
		if err != nil {
			slog.Warn("goal plan unparseable, using fallback",
				"user_id", userID,
				"error", err,
				"reply", ai.Truncate(reply, timeout.MaxTruncateLength))
			return fallbackPlan(goal), 0, nil
		}
		return plan, PlanTTL, nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := p.sessions.AppendContext(ctx, userID, "goal: "+goal, nil); err != nil {
		slog.Warn("failed to update session context", "user_id", userID, "error", err)
	}
	slog.Debug("goal planned", "user_id", userID, "cached", hit, "fallback", plan.Fallback, "tasks", len(plan.Tasks))
	return &plan, nil
}

func planPrompt(goal string, recent []string, prefs map[string]any) string {
	var b strings.Builder
	b.WriteString("Break the user's goal into a short, realistic plan.\n\n")
	fmt.Fprintf(&b, "Goal: %s\n", goal)
	if len(recent) > 0 {
		b.WriteString("Recent context:\n")
		for _, r := range recent {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	if len(prefs) > 0 {
		b.WriteString("Preferences:\n")
		for _, k := range slices.Sorted(maps.Keys(prefs)) {
			fmt.Fprintf(&b, "- %s: %v\n", k, prefs[k])
		}
	}
	fmt.Fprintf(&b, `
Return ONLY a JSON object with at most %d tasks:
{"title": "<short title>", "summary": "<one or two sentences>", "tasks": [{"title": "...", "description": "...", "durationMinutes": <int>, "priority": "high" | "medium" | "low"}]}`, maxTasks)
	return b.String()
}

func parsePlan(goal, reply string) (GoalPlan, error) {
	var raw struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
		Tasks   []struct {
			Title           string  `json:"title"`
			Description     string  `json:"description"`
			DurationMinutes float64 `json:"durationMinutes"`
			Priority        string  `json:"priority"`
		} `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(ai.ExtractJSON(reply)), &raw); err != nil {
		return GoalPlan{}, aierrors.MalformedResponse("goal plan", err)
	}

	plan := GoalPlan{
		Goal:    goal,
		Title:   strings.TrimSpace(raw.Title),
		Summary: strings.TrimSpace(raw.Summary),
		Tasks:   make([]Task, 0, len(raw.Tasks)),
	}
	for _, t := range raw.Tasks {
		title := strings.TrimSpace(t.Title)
		if title == "" {
			continue
		}
		minutes := int(t.DurationMinutes)
		if minutes <= 0 {
			minutes = defaultTaskMinutes
		}
		plan.Tasks = append(plan.Tasks, Task{
			Title:           title,
			Description:     strings.TrimSpace(t.Description),
			DurationMinutes: minutes,
			Priority:        parsePriority(t.Priority),
		})
		if len(plan.Tasks) == maxTasks {
			break
		}
	}
	if len(plan.Tasks) == 0 {
		return GoalPlan{}, aierrors.MalformedResponse("goal plan", fmt.Errorf("no tasks"))
	}
	if plan.Title == "" {
		plan.Title = ai.Truncate(goal, 60)
	}
	return plan, nil
}

func fallbackPlan(goal string) GoalPlan {
	return GoalPlan{
		Goal:    goal,
		Title:   ai.Truncate(goal, 60),
		Summary: "A detailed plan is not available right now. Start with one focused session.",
		Tasks: []Task{{
			Title:           "Take the first step",
			Description:     "Spend a focused session on: " + goal,
			DurationMinutes: defaultTaskMinutes,
			Priority:        PriorityHigh,
		}},
		Fallback: true,
	}
}
