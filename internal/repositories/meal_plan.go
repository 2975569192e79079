package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/genie/internal/models"
	"github.com/desertthunder/genie/internal/shared"
)

// MealPlanRepository caches meal plans locally so `plans list --offline` and the TUI
// have something to show before the first fetch completes.
type MealPlanRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewMealPlanRepository creates a new MealPlanRepository with the given database connection
func NewMealPlanRepository(db *sql.DB) *MealPlanRepository {
	return &MealPlanRepository{db: db, now: time.Now}
}

// Save inserts or replaces the cached copy of plan.
//
// The sequence is assigned on first insert and kept on later saves.
func (r *MealPlanRepository) Save(ctx context.Context, plan models.MealPlan) error {
	if plan.ID == "" {
		return fmt.Errorf("%w: meal plan id is required", shared.ErrInvalidInput)
	}

	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to encode meal plan: %w", err)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM meal_plans WHERE id = ?)", plan.ID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check meal plan: %w", err)
	}

	if exists {
		_, err = r.db.ExecContext(ctx, `
			UPDATE meal_plans
			SET user_id = ?, status = ?, start_date = ?, end_date = ?, payload = ?,
				error_message = ?, created_at = ?, completed_at = ?, cached_at = ?, deleted_at = NULL
			WHERE id = ?
		`,
			plan.UserID, string(plan.Status), plan.StartDate, plan.EndDate, string(payload),
			nullString(plan.Error), plan.CreatedAt, nullString(plan.CompletedAt), r.now(),
			plan.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update meal plan: %w", err)
		}
		return nil
	}

	sequence, err := NextSequence(ctx, r.db, "meal_plans")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO meal_plans (
			id, sequence, user_id, status, start_date, end_date, payload,
			error_message, created_at, completed_at, cached_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		plan.ID, sequence, plan.UserID, string(plan.Status), plan.StartDate, plan.EndDate, string(payload),
		nullString(plan.Error), plan.CreatedAt, nullString(plan.CompletedAt), r.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert meal plan: %w", err)
	}

	return nil
}

// Get retrieves a cached meal plan by backend id, excluding deleted rows.
func (r *MealPlanRepository) Get(ctx context.Context, id string) (*models.MealPlan, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		"SELECT payload FROM meal_plans WHERE id = ? AND deleted_at IS NULL", id,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrMealPlanNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meal plan: %w", err)
	}

	return decodePlan(payload)
}

// ListCriteria filters [MealPlanRepository.List]. Zero values match everything.
type ListCriteria struct {
	Status models.MealPlanStatus
	UserID string
}

// List returns cached meal plans newest first.
func (r *MealPlanRepository) List(ctx context.Context, criteria ListCriteria) ([]models.MealPlan, error) {
	query := "SELECT payload FROM meal_plans WHERE deleted_at IS NULL"
	args := []any{}

	if criteria.Status != "" {
		query += " AND status = ?"
		args = append(args, string(criteria.Status))
	}
	if criteria.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, criteria.UserID)
	}

	query += " ORDER BY created_at DESC, sequence DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query meal plans: %w", err)
	}
	defer rows.Close()

	var plans []models.MealPlan
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan meal plan: %w", err)
		}
		plan, err := decodePlan(payload)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return plans, nil
}

// Delete soft-deletes a cached meal plan.
func (r *MealPlanRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE meal_plans SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", r.now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete meal plan: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrMealPlanNotFound, id)
	}

	return nil
}

func decodePlan(payload string) (*models.MealPlan, error) {
	var plan models.MealPlan
	if err := json.Unmarshal([]byte(payload), &plan); err != nil {
		return nil, fmt.Errorf("failed to decode cached meal plan: %w", err)
	}
	return &plan, nil
}
