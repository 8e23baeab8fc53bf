package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/hrygo/focuspilot/plugin/ai"
	"github.com/hrygo/focuspilot/plugin/ai/cache"
	aierrors "github.com/hrygo/focuspilot/plugin/ai/errors"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Aggregate computes the counts, productivity percentage and mean
// alignment of a day's activities. Each activity is one hour slot.
func Aggregate(userID, day string, activities []HourlyActivity) DailyReport {
	r := DailyReport{UserID: userID, Date: day, TotalHours: len(activities)}
	if len(activities) == 0 {
		return r
	}

	alignment := 0
	for _, a := range activities {
		switch a.Category {
		case CategoryProductive:
			r.ProductiveHours++
		case CategoryTimeWaste:
			r.WastedHours++
		default:
			r.NeutralHours++
		}
		alignment += a.AlignmentScore
	}
	r.ProductivityPercentage = round2(float64(r.ProductiveHours) / float64(r.TotalHours) * 100)
	r.AlignmentScore = round2(float64(alignment) / float64(r.TotalHours))
	return r
}

// GenerateDailyReport summarizes the user's check-ins for date. Insights
// come from one generation call over the aggregated counts only.
func (t *Tracker) GenerateDailyReport(ctx context.Context, userID string, date time.Time) (*DailyReport, error) {
	if userID == "" {
		return nil, aierrors.InvalidArgument("user id is required")
	}
	day := date.In(t.loc).Format(dateLayout)

	var log []HourlyActivity
	cache.GetJSON(ctx, t.loader.Store(), activityLogKey(userID, day), &log)

	report, _, err := cache.Load(ctx, t.loader, reportKey(userID, day, len(log)), func(ctx context.Context) (DailyReport, time.Duration, error) {
		r := Aggregate(userID, day, log)
		r.GeneratedAt = t.now()
		if r.TotalHours == 0 {
			r.Insights = []string{"No activity tracked for this day yet."}
			r.Suggestions = []string{"Start tracking your hourly activities to get a personalized report."}
			return r, 0, nil
		}

		insights, suggestions, err := t.narrate(ctx, r)
		if err != nil {
			slog.Warn("daily report narration failed, using fallback", "user_id", userID, "day", day, "error", err)
			r.Insights, r.Suggestions = fallbackNarration(r)
			return r, FallbackReportTTL, nil
		}
		r.Insights, r.Suggestions = insights, suggestions
		return r, ReportTTL, nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func reportPrompt(r DailyReport) string {
	return fmt.Sprintf(`Write a short daily productivity review from these aggregated numbers.

Tracked hours: %d
Productive hours: %d
Neutral hours: %d
Wasted hours: %d
Productivity: %.2f%%
Average alignment with plan: %.2f/100

Return ONLY a JSON object:
{"insights": ["<2-3 observations>"], "suggestions": ["<2-3 concrete actions for tomorrow>"]}`,
		r.TotalHours, r.ProductiveHours, r.NeutralHours, r.WastedHours, r.ProductivityPercentage, r.AlignmentScore)
}

func (t *Tracker) narrate(ctx context.Context, r DailyReport) ([]string, []string, error) {
	reply, err := t.generator.Generate(ctx, reportPrompt(r), nil)
	if err != nil {
		return nil, nil, err
	}

	var parsed struct {
		Insights    []string `json:"insights"`
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(ai.ExtractJSON(reply)), &parsed); err != nil {
		return nil, nil, aierrors.MalformedResponse("report", err)
	}
	insights, suggestions := compact(parsed.Insights), compact(parsed.Suggestions)
	if len(insights) == 0 && len(suggestions) == 0 {
		return nil, nil, aierrors.MalformedResponse("report", fmt.Errorf("no insights or suggestions"))
	}
	return insights, suggestions, nil
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func fallbackNarration(r DailyReport) ([]string, []string) {
	insights := []string{
		fmt.Sprintf("You were productive for %d of %d tracked hours (%.2f%%).", r.ProductiveHours, r.TotalHours, r.ProductivityPercentage),
	}
	if r.WastedHours > 0 {
		insights = append(insights, fmt.Sprintf("%d hour(s) went to time wasters.", r.WastedHours))
	}

	var suggestions []string
	switch {
	case r.ProductivityPercentage >= 70:
		suggestions = append(suggestions, "Keep the same rhythm tomorrow and protect your best hours.")
	case r.ProductivityPercentage >= 40:
		suggestions = append(suggestions, "Schedule your hardest task in your most productive hour.")
	default:
		suggestions = append(suggestions, "Start tomorrow with one small, clearly defined task.")
	}
	if r.AlignmentScore < 50 {
		suggestions = append(suggestions, "Plan fewer tasks so your hours match your plan more closely.")
	}
	return insights, suggestions
}
