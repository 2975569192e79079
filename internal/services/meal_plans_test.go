package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/genie/internal/models"
	"github.com/desertthunder/genie/internal/shared"
	tu "github.com/desertthunder/genie/internal/testing"
)

func newMealPlanServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /meal-plans", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.MealPlan{
			{ID: "p1", Status: models.StatusPending, StartDate: "2025-03-01", EndDate: "2025-03-02"},
			{ID: "p2", Status: models.StatusCompleted, Plan: &models.MealPlanContent{Days: []models.MealDay{{Day: 1}}}},
		})
	})
	mux.HandleFunc("GET /meal-plans/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "p1" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail": "Meal plan not found"}`))
			return
		}
		json.NewEncoder(w).Encode(models.MealPlan{ID: "p1", Status: models.StatusPending})
	})
	mux.HandleFunc("POST /meal-plans", func(w http.ResponseWriter, r *http.Request) {
		var req models.MealPlanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"_id":       "new-1",
			"userId":    "u1",
			"startDate": req.StartDate,
			"endDate":   req.EndDate,
			"mealType":  req.MealType,
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestMealPlanService(t *testing.T) {
	server := newMealPlanServer(t)
	api := NewAPIService(server.URL, nil, WithTokenProvider(tu.NewStaticTokens("u1", "tok")))
	svc := NewMealPlanService(api)
	ctx := context.Background()

	t.Run("List", func(t *testing.T) {
		plans, err := svc.List(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(plans) != 2 {
			t.Fatalf("expected 2 plans, got %d", len(plans))
		}
		if !plans[1].IsTerminal() {
			t.Error("expected second plan to be terminal")
		}
	})

	t.Run("Get", func(t *testing.T) {
		plan, err := svc.Get(ctx, "p1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if plan.ID != "p1" {
			t.Errorf("expected p1, got %s", plan.ID)
		}
	})

	t.Run("Get Not Found", func(t *testing.T) {
		_, err := svc.Get(ctx, "missing")
		if !errors.Is(err, shared.ErrMealPlanNotFound) {
			t.Errorf("expected ErrMealPlanNotFound, got %v", err)
		}
	})

	t.Run("Get Without ID", func(t *testing.T) {
		if _, err := svc.Get(ctx, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Create", func(t *testing.T) {
		plan, err := svc.Create(ctx, models.MealPlanRequest{
			StartDate: "2025-03-01",
			EndDate:   "2025-03-03",
			MealType:  []string{"Dinner"},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if plan.ID != "new-1" {
			t.Errorf("expected id new-1, got %s", plan.ID)
		}
		if plan.Status != models.StatusPending {
			t.Errorf("expected missing status to default to pending, got %s", plan.Status)
		}
	})

	t.Run("Create Invalid Request", func(t *testing.T) {
		_, err := svc.Create(ctx, models.MealPlanRequest{StartDate: "2025-03-01"})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
