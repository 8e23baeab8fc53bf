// Package activity classifies hourly check-ins, builds daily reports and
// maintains each user's adaptive schedule.
package activity

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// Category is the productivity class of one hour.
type Category string

const (
	CategoryProductive Category = "productive"
	CategoryNeutral    Category = "neutral"
	CategoryTimeWaste  Category = "time_waste"
)

// ParseCategory maps free-form model output onto a Category, defaulting to neutral.
func ParseCategory(s string) Category {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	switch s {
	case "productive":
		return CategoryProductive
	case "time_waste", "timewaste", "time_wasting", "wasted", "unproductive":
		return CategoryTimeWaste
	default:
		return CategoryNeutral
	}
}

// HourlyActivity is one check-in. Never mutated after creation.
type HourlyActivity struct {
	Hour              int       `json:"hour"`
	ActivityText      string    `json:"activityText"`
	Timestamp         time.Time `json:"timestamp"`
	PlannedTask       string    `json:"plannedTask,omitempty"`
	ProductivityScore int       `json:"productivityScore"`
	AlignmentScore    int       `json:"alignmentScore"`
	Category          Category  `json:"category"`
}

// Classification is the classifier's verdict on one activity.
type Classification struct {
	Category          Category `json:"category"`
	ProductivityScore int      `json:"productivityScore"`
	AlignmentScore    int      `json:"alignmentScore"`
	Feedback          string   `json:"feedback"`
}

// DailyReport aggregates one user's day.
type DailyReport struct {
	UserID                 string    `json:"userId"`
	Date                   string    `json:"date"`
	TotalHours             int       `json:"totalHours"`
	ProductiveHours        int       `json:"productiveHours"`
	NeutralHours           int       `json:"neutralHours"`
	WastedHours            int       `json:"wastedHours"`
	ProductivityPercentage float64   `json:"productivityPercentage"`
	AlignmentScore         float64   `json:"alignmentScore"`
	Insights               []string  `json:"insights"`
	Suggestions            []string  `json:"suggestions"`
	GeneratedAt            time.Time `json:"generatedAt"`
}

// Patterns are the rolling observations, most recent last.
type Patterns struct {
	MostProductiveHours  []int    `json:"mostProductiveHours"`
	LeastProductiveHours []int    `json:"leastProductiveHours"`
	CommonTimeWasters    []string `json:"commonTimeWasters"`
}

// Adaptations are suggestions derived from Patterns.
type Adaptations struct {
	PreferredMorning   []string `json:"preferredMorning"`
	PreferredAfternoon []string `json:"preferredAfternoon"`
	PreferredEvening   []string `json:"preferredEvening"`
	AvoidSlots         []string `json:"avoidSlots"`
}

// Observations count how often each hour and time waster was seen.
type Observations struct {
	ProductiveHours map[int]int    `json:"productiveHours"`
	WastedHours     map[int]int    `json:"wastedHours"`
	TimeWasters     map[string]int `json:"timeWasters"`
}

// AdaptiveSchedule is the per-user rolling model of productive time.
type AdaptiveSchedule struct {
	UserID       string       `json:"userId"`
	Patterns     Patterns     `json:"patterns"`
	Adaptations  Adaptations  `json:"adaptations"`
	Observations Observations `json:"observations"`
	LastUpdated  time.Time    `json:"lastUpdated"`
}

// NewAdaptiveSchedule returns an empty schedule for userID.
func NewAdaptiveSchedule(userID string) *AdaptiveSchedule {
	return &AdaptiveSchedule{
		UserID: userID,
		Patterns: Patterns{
			MostProductiveHours:  []int{},
			LeastProductiveHours: []int{},
			CommonTimeWasters:    []string{},
		},
		Adaptations: Adaptations{
			PreferredMorning:   []string{},
			PreferredAfternoon: []string{},
			PreferredEvening:   []string{},
			AvoidSlots:         []string{},
		},
		Observations: Observations{
			ProductiveHours: map[int]int{},
			WastedHours:     map[int]int{},
			TimeWasters:     map[string]int{},
		},
	}
}

// Clone returns a deep copy.
func (s *AdaptiveSchedule) Clone() *AdaptiveSchedule {
	c := *s
	c.Patterns = Patterns{
		MostProductiveHours:  slices.Clone(s.Patterns.MostProductiveHours),
		LeastProductiveHours: slices.Clone(s.Patterns.LeastProductiveHours),
		CommonTimeWasters:    slices.Clone(s.Patterns.CommonTimeWasters),
	}
	c.Adaptations = Adaptations{
		PreferredMorning:   slices.Clone(s.Adaptations.PreferredMorning),
		PreferredAfternoon: slices.Clone(s.Adaptations.PreferredAfternoon),
		PreferredEvening:   slices.Clone(s.Adaptations.PreferredEvening),
		AvoidSlots:         slices.Clone(s.Adaptations.AvoidSlots),
	}
	c.Observations = Observations{
		ProductiveHours: maps.Clone(s.Observations.ProductiveHours),
		WastedHours:     maps.Clone(s.Observations.WastedHours),
		TimeWasters:     maps.Clone(s.Observations.TimeWasters),
	}
	return &c
}
