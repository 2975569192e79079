package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/genie/internal/models"
)

// EventType selects how an inbound message is handled.
type EventType string

const (
	EventMealPlanCompleted EventType = "meal_plan_completed"
	EventMealPlanError     EventType = "meal_plan_error"
	EventConnectionStatus  EventType = "connection_status"
)

var errMissingType = errors.New("message has no type")

// Event is a message pushed by the backend. Types other than the constants above pass through opaquely.
type Event struct {
	Type       EventType               `json:"type"`
	MealPlanID string                  `json:"meal_plan_id,omitempty"`
	MealPlan   *models.MealPlanContent `json:"meal_plan,omitempty"`
	Record     *models.MealPlan        `json:"meal_plan_data,omitempty"`
	Error      string                  `json:"error,omitempty"`
	Status     string                  `json:"status,omitempty"`

	Raw        json.RawMessage `json:"-"`
	ReceivedAt time.Time       `json:"-"`
}

// ParseEvent decodes a text frame. Messages that are not JSON objects with a type are rejected.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("malformed message: %w", err)
	}
	if ev.Type == "" {
		return Event{}, errMissingType
	}
	ev.Raw = append(json.RawMessage(nil), data...)
	ev.ReceivedAt = time.Now()
	return ev, nil
}

// PlanID returns the job id carried by the event, falling back to the embedded record.
func (e Event) PlanID() string {
	if e.MealPlanID != "" {
		return e.MealPlanID
	}
	if e.Record != nil {
		return e.Record.ID
	}
	return ""
}

// IsJobEvent reports whether the event is a meal plan completion or failure for a known id.
func (e Event) IsJobEvent() bool {
	return (e.Type == EventMealPlanCompleted || e.Type == EventMealPlanError) && e.PlanID() != ""
}

// TerminalStatus maps the event type to the job status it carries.
func (e Event) TerminalStatus() (models.MealPlanStatus, bool) {
	switch e.Type {
	case EventMealPlanCompleted:
		return models.StatusCompleted, true
	case EventMealPlanError:
		return models.StatusError, true
	default:
		return "", false
	}
}

// EventHandler receives recognized job events on the manager's loop. Implementations must not block.
type EventHandler interface {
	ApplyEvent(Event)
}

// EventHandlerFunc adapts a function to [EventHandler].
type EventHandlerFunc func(Event)

func (f EventHandlerFunc) ApplyEvent(e Event) { f(e) }

// Update is delivered to subscribers on every state change and every decoded event.
type Update struct {
	State State
	Event *Event
}
