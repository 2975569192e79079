package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/desertthunder/genie/internal/models"
	"github.com/desertthunder/genie/internal/shared"
)

const mealPlansPath = "/meal-plans"

// MealPlanService lists, fetches and creates meal plans.
type MealPlanService struct {
	api *APIService
}

func NewMealPlanService(api *APIService) *MealPlanService {
	return &MealPlanService{api: api}
}

// List returns every meal plan of the signed-in principal.
func (s *MealPlanService) List(ctx context.Context) ([]models.MealPlan, error) {
	var plans []models.MealPlan
	if err := s.api.getJSON(ctx, mealPlansPath, &plans); err != nil {
		return nil, fmt.Errorf("failed to list meal plans: %w", err)
	}
	return plans, nil
}

// Get returns a single meal plan, wrapping [shared.ErrMealPlanNotFound] on 404.
func (s *MealPlanService) Get(ctx context.Context, id string) (*models.MealPlan, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: meal plan id", shared.ErrMissingArgument)
	}

	var plan models.MealPlan
	if err := s.api.getJSON(ctx, mealPlansPath+"/"+url.PathEscape(id), &plan); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", shared.ErrMealPlanNotFound, id)
		}
		return nil, fmt.Errorf("failed to get meal plan %s: %w", id, err)
	}
	return &plan, nil
}

// Create submits a generation request. The returned record is provisional (status pending).
func (s *MealPlanService) Create(ctx context.Context, req models.MealPlanRequest) (*models.MealPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	var plan models.MealPlan
	if err := s.api.postJSON(ctx, mealPlansPath, req, &plan); err != nil {
		return nil, fmt.Errorf("failed to create meal plan: %w", err)
	}
	if plan.ID == "" {
		return nil, fmt.Errorf("%w: backend returned a meal plan without an id", shared.ErrAPIRequest)
	}
	if plan.Status == "" {
		plan.Status = models.StatusPending
	}
	return &plan, nil
}
