package activity

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/hrygo/focuspilot/plugin/ai"
)

const (
	MaxPatternHours   = 10
	MaxTimeWasters    = 5
	maxTrackedWasters = 50
	maxWasterLength   = 60
)

// TruncationStrategy decides which observations survive when a rolling
// pattern list exceeds its bound.
type TruncationStrategy string

const (
	// TruncateRecency keeps the most recently observed elements.
	TruncateRecency TruncationStrategy = "recency"
	// TruncateFrequency keeps the most frequently observed elements;
	// recency breaks ties.
	TruncateFrequency TruncationStrategy = "frequency"
)

// ParseTruncationStrategy parses a configured strategy name.
func ParseTruncationStrategy(s string) (TruncationStrategy, error) {
	switch TruncationStrategy(s) {
	case "", TruncateRecency:
		return TruncateRecency, nil
	case TruncateFrequency:
		return TruncateFrequency, nil
	}
	return "", fmt.Errorf("unknown truncation strategy %q", s)
}

type segment struct {
	start, end int // inclusive hours
	taskTypes  []string
}

var (
	morning   = segment{6, 11, []string{"deep work", "complex problem solving", "strategic planning"}}
	afternoon = segment{12, 17, []string{"meetings", "collaboration", "routine tasks"}}
	evening   = segment{18, 22, []string{"learning", "review and reflection", "planning tomorrow"}}
)

func (s segment) contains(hours []int) bool {
	for _, h := range hours {
		if h >= s.start && h <= s.end {
			return true
		}
	}
	return false
}

// observe moves v to the end of list, appending it if absent.
func observe[T comparable](list []T, v T) []T {
	if i := slices.Index(list, v); i >= 0 {
		list = slices.Delete(list, i, i+1)
	}
	return append(list, v)
}

// truncate bounds list to limit elements. list is ordered oldest first;
// the result keeps that order.
func truncate[T comparable](list []T, limit int, strategy TruncationStrategy, counts map[T]int) []T {
	if len(list) <= limit {
		return list
	}
	if strategy != TruncateFrequency {
		return slices.Clone(list[len(list)-limit:])
	}

	idx := make([]int, len(list))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ca, cb := counts[list[idx[a]]], counts[list[idx[b]]]
		if ca != cb {
			return ca > cb
		}
		return idx[a] > idx[b]
	})
	keep := idx[:limit]
	sort.Ints(keep)

	out := make([]T, 0, limit)
	for _, i := range keep {
		out = append(out, list[i])
	}
	return out
}

func wasterLabel(text string) string {
	return ai.Truncate(strings.ToLower(strings.TrimSpace(text)), maxWasterLength)
}

// pruneCounts drops the least observed entries not present in keep once
// counts exceeds limit.
func pruneCounts(counts map[string]int, keep []string, limit int) {
	if len(counts) <= limit {
		return
	}
	type kv struct {
		k string
		v int
	}
	var candidates []kv
	for k, v := range counts {
		if !slices.Contains(keep, k) {
			candidates = append(candidates, kv{k, v})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].v != candidates[j].v {
			return candidates[i].v < candidates[j].v
		}
		return candidates[i].k < candidates[j].k
	})
	for _, c := range candidates {
		if len(counts) <= limit {
			return
		}
		delete(counts, c.k)
	}
}

// Merge folds activities into s using set union then truncation, and
// recomputes adaptations. Segments without a productive hour keep their
// previous adaptation.
func Merge(s *AdaptiveSchedule, activities []HourlyActivity, strategy TruncationStrategy, now time.Time) {
	obs := &s.Observations
	if obs.ProductiveHours == nil {
		obs.ProductiveHours = map[int]int{}
	}
	if obs.WastedHours == nil {
		obs.WastedHours = map[int]int{}
	}
	if obs.TimeWasters == nil {
		obs.TimeWasters = map[string]int{}
	}

	p := &s.Patterns
	for _, a := range activities {
		if a.Hour < 0 || a.Hour > 23 {
			continue
		}
		switch a.Category {
		case CategoryProductive:
			p.MostProductiveHours = observe(p.MostProductiveHours, a.Hour)
			obs.ProductiveHours[a.Hour]++
		case CategoryTimeWaste:
			p.LeastProductiveHours = observe(p.LeastProductiveHours, a.Hour)
			obs.WastedHours[a.Hour]++
			if label := wasterLabel(a.ActivityText); label != "" {
				p.CommonTimeWasters = observe(p.CommonTimeWasters, label)
				obs.TimeWasters[label]++
			}
		}
	}

	p.MostProductiveHours = truncate(p.MostProductiveHours, MaxPatternHours, strategy, obs.ProductiveHours)
	p.LeastProductiveHours = truncate(p.LeastProductiveHours, MaxPatternHours, strategy, obs.WastedHours)
	p.CommonTimeWasters = truncate(p.CommonTimeWasters, MaxTimeWasters, strategy, obs.TimeWasters)
	pruneCounts(obs.TimeWasters, p.CommonTimeWasters, maxTrackedWasters)

	a := &s.Adaptations
	if morning.contains(p.MostProductiveHours) {
		a.PreferredMorning = slices.Clone(morning.taskTypes)
	}
	if afternoon.contains(p.MostProductiveHours) {
		a.PreferredAfternoon = slices.Clone(afternoon.taskTypes)
	}
	if evening.contains(p.MostProductiveHours) {
		a.PreferredEvening = slices.Clone(evening.taskTypes)
	}
	if len(p.LeastProductiveHours) > 0 {
		hours := slices.Clone(p.LeastProductiveHours)
		slices.Sort(hours)
		a.AvoidSlots = make([]string, 0, len(hours))
		for _, h := range hours {
			a.AvoidSlots = append(a.AvoidSlots, fmt.Sprintf("%02d:00-%02d:00", h, (h+1)%24))
		}
	}

	s.LastUpdated = now
}

// UpdateAdaptiveSchedule merges activities into the user's stored schedule.
func (t *Tracker) UpdateAdaptiveSchedule(ctx context.Context, userID string, activities []HourlyActivity) (*AdaptiveSchedule, error) {
	t.scheduleMu.Lock()
	defer t.scheduleMu.Unlock()

	s, err := t.schedules.GetSchedule(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule for %s: %w", userID, err)
	}
	if s == nil {
		s = NewAdaptiveSchedule(userID)
	}

	Merge(s, activities, t.truncation, t.now())

	if err := t.schedules.SaveSchedule(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to save schedule for %s: %w", userID, err)
	}
	slog.Debug("adaptive schedule updated",
		"user_id", userID,
		"productive_hours", s.Patterns.MostProductiveHours,
		"time_wasters", len(s.Patterns.CommonTimeWasters))
	return s, nil
}

// GetAdaptiveSchedule returns the user's schedule, or an empty one.
func (t *Tracker) GetAdaptiveSchedule(ctx context.Context, userID string) (*AdaptiveSchedule, error) {
	s, err := t.schedules.GetSchedule(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return NewAdaptiveSchedule(userID), nil
	}
	return s, nil
}
