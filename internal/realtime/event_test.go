package realtime

import (
	"testing"

	"github.com/desertthunder/genie/internal/models"
)

func TestParseEvent(t *testing.T) {
	t.Run("meal plan completed", func(t *testing.T) {
		ev, err := ParseEvent([]byte(`{"type":"meal_plan_completed","meal_plan_id":"p1","meal_plan":{"days":[{"day":1,"meals":[]}]}}`))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !ev.IsJobEvent() {
			t.Error("expected job event")
		}
		if status, _ := ev.TerminalStatus(); status != models.StatusCompleted {
			t.Errorf("expected completed, got %s", status)
		}
		if ev.MealPlan == nil || len(ev.MealPlan.Days) != 1 {
			t.Errorf("expected plan payload, got %+v", ev.MealPlan)
		}
		if len(ev.Raw) == 0 || ev.ReceivedAt.IsZero() {
			t.Error("expected raw bytes and receive time to be recorded")
		}
	})

	t.Run("meal plan error", func(t *testing.T) {
		ev, err := ParseEvent([]byte(`{"type":"meal_plan_error","meal_plan_id":"p2","error":"LLM quota exceeded"}`))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ev.Error != "LLM quota exceeded" {
			t.Errorf("expected error string verbatim, got %q", ev.Error)
		}
		if status, _ := ev.TerminalStatus(); status != models.StatusError {
			t.Errorf("expected error status, got %s", status)
		}
	})

	t.Run("legacy record payload", func(t *testing.T) {
		ev, err := ParseEvent([]byte(`{"type":"meal_plan_completed","meal_plan_data":{"_id":"p3","status":"completed"}}`))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ev.PlanID() != "p3" {
			t.Errorf("expected id from record, got %q", ev.PlanID())
		}
	})

	t.Run("opaque types", func(t *testing.T) {
		ev, err := ParseEvent([]byte(`{"type":"connection_status","status":"connected"}`))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ev.IsJobEvent() {
			t.Error("expected connection status not to be a job event")
		}
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		for _, raw := range []string{"not json", `["array"]`, `{"meal_plan_id":"p1"}`, ""} {
			if _, err := ParseEvent([]byte(raw)); err == nil {
				t.Errorf("expected error for %q", raw)
			}
		}
	})
}

func TestChannelURL(t *testing.T) {
	got := ChannelURL("ws://localhost:8000/api/v1/ws/", "user 1", "a+b/c=")
	want := "ws://localhost:8000/api/v1/ws/user%201?token=a%2Bb%2Fc%3D"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
