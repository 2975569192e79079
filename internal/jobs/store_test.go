package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/desertthunder/genie/internal/models"
	"github.com/desertthunder/genie/internal/realtime"
)

type memPersister struct {
	mu    sync.Mutex
	saved []models.MealPlan
	err   error
}

func (p *memPersister) Save(ctx context.Context, plan models.MealPlan) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, plan)
	return p.err
}

func completedEvent(id string) realtime.Event {
	return realtime.Event{
		Type:       realtime.EventMealPlanCompleted,
		MealPlanID: id,
		MealPlan:   &models.MealPlanContent{Days: []models.MealDay{{Day: 1, Meals: []models.MealItem{{Name: "Oats"}}}}},
	}
}

func TestStore(t *testing.T) {
	t.Run("event propagates to pending record only", func(t *testing.T) {
		s := NewStore()
		s.InsertOptimistic(models.MealPlan{ID: "x", StartDate: "2025-03-01"})
		s.InsertOptimistic(models.MealPlan{ID: "y"})

		s.ApplyEvent(completedEvent("x"))

		x, _ := s.Get("x")
		if x.Status != models.StatusCompleted {
			t.Fatalf("expected x completed, got %s", x.Status)
		}
		if x.Plan.MealCount() != 1 {
			t.Errorf("expected event payload attached, got %+v", x.Plan)
		}
		if x.StartDate != "2025-03-01" {
			t.Errorf("expected optimistic fields kept, got %q", x.StartDate)
		}
		if y, _ := s.Get("y"); y.Status != models.StatusPending {
			t.Errorf("expected y untouched, got %s", y.Status)
		}
	})

	t.Run("stale fetch does not revert terminal", func(t *testing.T) {
		s := NewStore()
		s.InsertOptimistic(models.MealPlan{ID: "x"})
		s.ApplyEvent(completedEvent("x"))

		changed := s.UpsertFromFetch([]models.MealPlan{{ID: "x", Status: models.StatusPending}})
		if changed != 0 {
			t.Errorf("expected no change, got %d", changed)
		}
		if x, _ := s.Get("x"); x.Status != models.StatusCompleted {
			t.Errorf("expected completed to stick, got %s", x.Status)
		}

		s.InsertOptimistic(models.MealPlan{ID: "x"})
		if x, _ := s.Get("x"); x.Status != models.StatusCompleted {
			t.Errorf("expected optimistic insert not to revert, got %s", x.Status)
		}
	})

	t.Run("lost event recovered by fetch", func(t *testing.T) {
		s := NewStore()
		s.InsertOptimistic(models.MealPlan{ID: "x"})

		s.UpsertFromFetch([]models.MealPlan{{ID: "x", Status: models.StatusCompleted, Plan: &models.MealPlanContent{}}})

		if x, _ := s.Get("x"); x.Status != models.StatusCompleted {
			t.Errorf("expected fetch to supply terminal state, got %s", x.Status)
		}
	})

	t.Run("unknown id event inserts terminal record", func(t *testing.T) {
		s := NewStore()
		s.ApplyEvent(realtime.Event{Type: realtime.EventMealPlanError, MealPlanID: "y", Error: "LLM timeout"})

		y, ok := s.Get("y")
		if !ok {
			t.Fatal("expected record for y")
		}
		if y.Status != models.StatusError || y.Error != "LLM timeout" {
			t.Errorf("expected error record with message, got %+v", y)
		}
		if s.Len() != 1 {
			t.Errorf("expected 1 record, got %d", s.Len())
		}
	})

	t.Run("legacy record payload", func(t *testing.T) {
		s := NewStore()
		s.ApplyEvent(realtime.Event{
			Type:   realtime.EventMealPlanCompleted,
			Record: &models.MealPlan{ID: "z", StartDate: "2025-04-01", Plan: &models.MealPlanContent{}},
		})
		z, ok := s.Get("z")
		if !ok || z.StartDate != "2025-04-01" || z.Plan == nil {
			t.Errorf("expected record from meal_plan_data, got %+v", z)
		}
	})

	t.Run("ignores non-job events", func(t *testing.T) {
		s := NewStore()
		s.ApplyEvent(realtime.Event{Type: realtime.EventConnectionStatus, Status: "connected"})
		if s.Len() != 0 {
			t.Errorf("expected empty store, got %d", s.Len())
		}
	})

	t.Run("List orders newest first", func(t *testing.T) {
		s := NewStore()
		s.UpsertFromFetch([]models.MealPlan{
			{ID: "a", Status: models.StatusPending, CreatedAt: "2025-03-01T08:00:00"},
			{ID: "c", Status: models.StatusPending, CreatedAt: "2025-03-03T08:00:00"},
			{ID: "b", Status: models.StatusPending, CreatedAt: "2025-03-02T08:00:00"},
		})

		got := s.List()
		if got[0].ID != "c" || got[1].ID != "b" || got[2].ID != "a" {
			t.Errorf("expected [c b a], got [%s %s %s]", got[0].ID, got[1].ID, got[2].ID)
		}
	})

	t.Run("notifications on first terminal transition", func(t *testing.T) {
		s := NewStore()
		changes, cancel := s.Subscribe(8)
		defer cancel()

		s.InsertOptimistic(models.MealPlan{ID: "x"})
		s.ApplyEvent(realtime.Event{Type: realtime.EventMealPlanError, MealPlanID: "x", Error: "Upstream model refused"})
		s.ApplyEvent(realtime.Event{Type: realtime.EventMealPlanError, MealPlanID: "x", Error: "Upstream model refused"})

		first := <-changes
		if first.Source != SourceOptimistic || first.Notification != nil {
			t.Errorf("expected optimistic change without notification, got %+v", first)
		}

		second := <-changes
		if second.Notification == nil || !second.Notification.Failed {
			t.Fatalf("expected failure notification, got %+v", second.Notification)
		}
		if second.Notification.Message != "Upstream model refused" {
			t.Errorf("expected verbatim error, got %q", second.Notification.Message)
		}
		if second.Previous == nil || second.Previous.Status != models.StatusPending {
			t.Errorf("expected previous pending record, got %+v", second.Previous)
		}

		select {
		case c := <-changes:
			t.Errorf("expected duplicate event to be a no-op, got %+v", c)
		default:
		}
	})

	t.Run("persistence errors are not surfaced", func(t *testing.T) {
		p := &memPersister{err: errors.New("disk full")}
		s := NewStore(WithPersister(p))

		s.InsertOptimistic(models.MealPlan{ID: "x"})
		s.ApplyEvent(completedEvent("x"))

		if len(p.saved) != 2 {
			t.Errorf("expected 2 saves, got %d", len(p.saved))
		}
		if x, _ := s.Get("x"); x.Status != models.StatusCompleted {
			t.Errorf("expected store to be updated despite persistence error, got %s", x.Status)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		s := NewStore()
		s.InsertOptimistic(models.MealPlan{ID: "x"})
		s.Clear()
		if s.Len() != 0 {
			t.Errorf("expected empty store, got %d", s.Len())
		}
	})
}
