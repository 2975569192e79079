package models

import (
	"strings"
	"time"
)

// MealPlanStatus is the lifecycle status of a meal plan generation job.
type MealPlanStatus string

const (
	StatusPending   MealPlanStatus = "pending"
	StatusCompleted MealPlanStatus = "completed"
	StatusError     MealPlanStatus = "error"
)

// IsTerminal reports whether no further transition is expected.
//
// Statuses the client does not recognize (the backend also emits "generating") are non-terminal.
func (s MealPlanStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

func (s MealPlanStatus) String() string {
	return string(s)
}

// timeLayouts covers RFC 3339 and the naive ISO timestamps written by the backend.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	DateLayout,
}

// ParseTimestamp parses a backend timestamp, returning the zero time when value is empty or unparseable.
func ParseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// NutritionalInfo holds per-meal macro estimates.
type NutritionalInfo struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// MealItem is a single meal within a day.
type MealItem struct {
	Type            string          `json:"type"`
	Name            string          `json:"name"`
	Ingredients     []string        `json:"ingredients"`
	Recipe          string          `json:"recipe"`
	NutritionalInfo NutritionalInfo `json:"nutritionalInfo"`
}

// MealDay groups the meals of one plan day. Day is 1-indexed.
type MealDay struct {
	Day   int        `json:"day"`
	Meals []MealItem `json:"meals"`
}

// MealPlanContent is the generated payload attached to a completed plan.
type MealPlanContent struct {
	Days []MealDay `json:"days"`
}

// MealCount returns the number of meals across all days.
func (c *MealPlanContent) MealCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, d := range c.Days {
		n += len(d.Meals)
	}
	return n
}

// MealPlan is a meal plan generation job as returned by the backend.
type MealPlan struct {
	ID                  string           `json:"_id"`
	UserID              string           `json:"userId,omitempty"`
	StartDate           string           `json:"startDate"`
	EndDate             string           `json:"endDate"`
	MealType            []string         `json:"mealType"`
	DietaryPreferences  []string         `json:"dietaryPreferences,omitempty"`
	CuisineTypes        []string         `json:"cuisineTypes,omitempty"`
	ComplexityLevels    []string         `json:"complexityLevels,omitempty"`
	DietaryRestrictions []string         `json:"dietaryRestrictions,omitempty"`
	Status              MealPlanStatus   `json:"status"`
	CreatedAt           string           `json:"createdAt,omitempty"`
	CompletedAt         string           `json:"completedAt,omitempty"`
	Plan                *MealPlanContent `json:"mealPlan,omitempty"`
	Error               string           `json:"error,omitempty"`
}

// IsTerminal reports whether the plan has reached completed or error.
func (m MealPlan) IsTerminal() bool {
	return m.Status.IsTerminal()
}

// Created returns the parsed creation timestamp.
func (m MealPlan) Created() time.Time {
	return ParseTimestamp(m.CreatedAt)
}

// Title returns a short human label, e.g. "2025-03-01 → 2025-03-07".
func (m MealPlan) Title() string {
	switch {
	case m.StartDate == "" && m.EndDate == "":
		return m.ID
	case m.StartDate == m.EndDate || m.EndDate == "":
		return m.StartDate
	default:
		return m.StartDate + " → " + m.EndDate
	}
}

// Chat is an "Ask Genie" conversation thread.
type Chat struct {
	ID        string        `json:"_id"`
	UserID    string        `json:"userId,omitempty"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt string        `json:"createdAt,omitempty"`
	UpdatedAt string        `json:"updatedAt,omitempty"`
}

// LastMessage returns the most recent message, if any.
func (c Chat) LastMessage() (ChatMessage, bool) {
	if len(c.Messages) == 0 {
		return ChatMessage{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// ChatMessage is a single message in a [Chat].
type ChatMessage struct {
	ID        string `json:"_id,omitempty"`
	Content   string `json:"content"`
	IsUser    bool   `json:"isUser"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Author returns "You" for user messages and "Genie" otherwise.
func (m ChatMessage) Author() string {
	if m.IsUser {
		return "You"
	}
	return "Genie"
}
