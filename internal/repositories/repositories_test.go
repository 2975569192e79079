package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/genie/internal/models"
	"github.com/desertthunder/genie/internal/services"
	"github.com/desertthunder/genie/internal/shared"
	"golang.org/x/oauth2"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(ctx, db, "meal_plans")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(ctx, db, "missing"); err == nil {
		t.Error("expected error for table without a sequence")
	}
}

func TestMealPlanRepository(t *testing.T) {
	ctx := context.Background()

	pending := models.MealPlan{
		ID:        "plan-1",
		UserID:    "u1",
		Status:    models.StatusPending,
		StartDate: "2025-03-01",
		EndDate:   "2025-03-03",
		MealType:  "fullDay",
		CreatedAt: "2025-03-01T08:00:00",
	}

	t.Run("Save and Get", func(t *testing.T) {
		repo := NewMealPlanRepository(setupTestDB(t))

		if err := repo.Save(ctx, pending); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		got, err := repo.Get(ctx, "plan-1")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if got.Status != models.StatusPending || got.MealType != "fullDay" {
			t.Errorf("unexpected record: %+v", got)
		}
	})

	t.Run("Save replaces existing", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewMealPlanRepository(db)

		if err := repo.Save(ctx, pending); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		done := pending
		done.Status = models.StatusCompleted
		done.Plan = &models.MealPlanContent{Days: []models.MealDay{{Day: 1, Meals: []models.MealItem{{Name: "Soup"}}}}}
		if err := repo.Save(ctx, done); err != nil {
			t.Fatalf("failed to save update: %v", err)
		}

		got, err := repo.Get(ctx, "plan-1")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if got.Status != models.StatusCompleted || got.Plan.MealCount() != 1 {
			t.Errorf("expected completed plan with one meal, got %+v", got)
		}

		var rows, sequence int
		if err := db.QueryRow("SELECT COUNT(*), MAX(sequence) FROM meal_plans").Scan(&rows, &sequence); err != nil {
			t.Fatalf("failed to count rows: %v", err)
		}
		if rows != 1 || sequence != 1 {
			t.Errorf("expected a single row with sequence 1, got %d rows, sequence %d", rows, sequence)
		}
	})

	t.Run("Save requires id", func(t *testing.T) {
		repo := NewMealPlanRepository(setupTestDB(t))
		if err := repo.Save(ctx, models.MealPlan{}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		repo := NewMealPlanRepository(setupTestDB(t))
		if _, err := repo.Get(ctx, "nope"); !errors.Is(err, shared.ErrMealPlanNotFound) {
			t.Errorf("expected ErrMealPlanNotFound, got %v", err)
		}
	})

	t.Run("List filters and orders", func(t *testing.T) {
		repo := NewMealPlanRepository(setupTestDB(t))

		plans := []models.MealPlan{
			pending,
			{ID: "plan-2", UserID: "u1", Status: models.StatusCompleted, CreatedAt: "2025-03-02T08:00:00"},
			{ID: "plan-3", UserID: "u2", Status: models.StatusError, Error: "timeout", CreatedAt: "2025-03-03T08:00:00"},
		}
		for _, p := range plans {
			if err := repo.Save(ctx, p); err != nil {
				t.Fatalf("failed to save %s: %v", p.ID, err)
			}
		}

		all, err := repo.List(ctx, ListCriteria{})
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(all) != 3 || all[0].ID != "plan-3" || all[2].ID != "plan-1" {
			t.Errorf("expected newest first, got %v", ids(all))
		}

		failed, err := repo.List(ctx, ListCriteria{Status: models.StatusError})
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(failed) != 1 || failed[0].Error != "timeout" {
			t.Errorf("expected only the failed plan, got %v", ids(failed))
		}

		mine, err := repo.List(ctx, ListCriteria{UserID: "u1"})
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(mine) != 2 {
			t.Errorf("expected 2 plans for u1, got %d", len(mine))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewMealPlanRepository(setupTestDB(t))
		if err := repo.Save(ctx, pending); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		if err := repo.Delete(ctx, "plan-1"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, err := repo.Get(ctx, "plan-1"); !errors.Is(err, shared.ErrMealPlanNotFound) {
			t.Errorf("expected deleted plan to be hidden, got %v", err)
		}
		if err := repo.Delete(ctx, "plan-1"); !errors.Is(err, shared.ErrMealPlanNotFound) {
			t.Errorf("expected second delete to fail, got %v", err)
		}

		if err := repo.Save(ctx, pending); err != nil {
			t.Fatalf("failed to re-save: %v", err)
		}
		if _, err := repo.Get(ctx, "plan-1"); err != nil {
			t.Errorf("expected re-saved plan to be visible, got %v", err)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	expiry := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	token := services.WithIDToken(&oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       expiry,
	}, "id-token")

	t.Run("Current without session", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		if _, err := repo.Current(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Save and Current", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		saved, err := repo.Save(ctx, "u1", token)
		if err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if saved.ID == "" {
			t.Error("expected generated id")
		}

		got, err := repo.Current(ctx)
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if got.PrincipalID != "u1" {
			t.Errorf("expected principal u1, got %s", got.PrincipalID)
		}
		if got.Token.RefreshToken != "refresh" {
			t.Errorf("expected refresh token, got %q", got.Token.RefreshToken)
		}
		if services.IDToken(got.Token) != "id-token" {
			t.Errorf("expected id token to round trip, got %q", services.IDToken(got.Token))
		}
		if !got.Token.Expiry.Equal(expiry) {
			t.Errorf("expected expiry %v, got %v", expiry, got.Token.Expiry)
		}
	})

	t.Run("Save same principal updates in place", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		first, err := repo.Save(ctx, "u1", token)
		if err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		second, err := repo.Save(ctx, "u1", &oauth2.Token{AccessToken: "rotated"})
		if err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if first.ID != second.ID {
			t.Errorf("expected same session id, got %s and %s", first.ID, second.ID)
		}

		got, _ := repo.Current(ctx)
		if got.Token.AccessToken != "rotated" {
			t.Errorf("expected rotated token, got %s", got.Token.AccessToken)
		}
	})

	t.Run("Save other principal replaces", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		if _, err := repo.Save(ctx, "u1", token); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if _, err := repo.Save(ctx, "u2", &oauth2.Token{AccessToken: "other"}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		got, _ := repo.Current(ctx)
		if got.PrincipalID != "u2" {
			t.Errorf("expected u2, got %s", got.PrincipalID)
		}
	})

	t.Run("Save validates", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		if _, err := repo.Save(ctx, "", token); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if _, err := repo.Save(ctx, "u1", &oauth2.Token{}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		if _, err := repo.Save(ctx, "u1", token); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		if err := repo.Delete(ctx); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, err := repo.Current(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated after delete, got %v", err)
		}
		if err := repo.Delete(ctx); err != nil {
			t.Errorf("expected idempotent delete, got %v", err)
		}
	})
}

func ids(plans []models.MealPlan) []string {
	out := make([]string, len(plans))
	for i, p := range plans {
		out[i] = p.ID
	}
	return out
}
