package models

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// DateLayout is the wire format of plan start and end dates.
const DateLayout = "2006-01-02"

var (
	ErrMissingDates    = errors.New("start and end dates are required")
	ErrInvalidDate     = errors.New("dates must use the YYYY-MM-DD format")
	ErrDateOrder       = errors.New("end date is before start date")
	ErrMissingMealType = errors.New("at least one meal type is required")
	ErrUnknownOption   = errors.New("unknown option")
)

// Option is a selectable value with a display label.
type Option struct {
	ID    string
	Label string
}

// MealTypeOptions lists the meal types a plan may include.
var MealTypeOptions = []Option{
	{ID: "Breakfast", Label: "Breakfast"},
	{ID: "Lunch", Label: "Lunch"},
	{ID: "Dinner", Label: "Dinner"},
	{ID: "Snack", Label: "Snack"},
}

// DietaryOptions lists dietary preferences and restrictions.
var DietaryOptions = []Option{
	{ID: "nut-free", Label: "Nut Free"},
	{ID: "gluten-free", Label: "Gluten Free"},
	{ID: "dairy-free", Label: "Dairy Free"},
	{ID: "shellfish-free", Label: "Shellfish Free"},
	{ID: "egg-free", Label: "Egg Free"},
	{ID: "soy-free", Label: "Soy Free"},
	{ID: "vegan", Label: "Vegan"},
	{ID: "vegetarian", Label: "Vegetarian"},
	{ID: "pescatarian", Label: "Pescatarian"},
	{ID: "keto", Label: "Keto"},
	{ID: "lactose", Label: "Lactose"},
	{ID: "fodmap", Label: "FODMAP"},
	{ID: "low-carb", Label: "Low Carb"},
	{ID: "high-protein", Label: "High Protein"},
	{ID: "low-fat", Label: "Low Fat"},
}

// CuisineOptions lists the supported cuisines.
var CuisineOptions = []Option{
	{ID: "nigerian", Label: "Nigerian"},
	{ID: "ethiopian", Label: "Ethiopian"},
	{ID: "moroccan", Label: "Moroccan"},
	{ID: "lebanese", Label: "Lebanese"},
	{ID: "turkish", Label: "Turkish"},
	{ID: "persian", Label: "Persian"},
	{ID: "italian", Label: "Italian"},
	{ID: "french", Label: "French"},
	{ID: "spanish", Label: "Spanish"},
	{ID: "greek", Label: "Greek"},
	{ID: "north-american", Label: "North American"},
	{ID: "south-american", Label: "South American"},
	{ID: "caribbean", Label: "Caribbean"},
	{ID: "chinese", Label: "Chinese"},
	{ID: "indian", Label: "Indian"},
	{ID: "japanese", Label: "Japanese"},
	{ID: "thai", Label: "Thai"},
	{ID: "vietnamese", Label: "Vietnamese"},
	{ID: "fusion", Label: "Fusion"},
	{ID: "plant-based", Label: "Plant-Based"},
	{ID: "gluten-free", Label: "Gluten-Free"},
}

// ComplexityOptions lists recipe complexity levels.
var ComplexityOptions = []Option{
	{ID: "simple", Label: "Simple"},
	{ID: "moderate", Label: "Moderate"},
	{ID: "complex", Label: "Complex"},
	{ID: "gourmet", Label: "Gourmet"},
}

// OptionIDs returns the ids of opts in order.
func OptionIDs(opts []Option) []string {
	ids := make([]string, len(opts))
	for i, o := range opts {
		ids[i] = o.ID
	}
	return ids
}

// MealPlanRequest is the body of a meal plan creation request.
type MealPlanRequest struct {
	StartDate           string   `json:"startDate"`
	EndDate             string   `json:"endDate"`
	MealType            []string `json:"mealType"`
	DietaryPreferences  []string `json:"dietaryPreferences"`
	CuisineTypes        []string `json:"cuisineTypes"`
	ComplexityLevels    []string `json:"complexityLevels"`
	DietaryRestrictions []string `json:"dietaryRestrictions"`
}

// Validate checks dates and selections against the option catalogs.
func (r MealPlanRequest) Validate() error {
	if r.StartDate == "" || r.EndDate == "" {
		return ErrMissingDates
	}

	start, err := time.Parse(DateLayout, r.StartDate)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, r.StartDate)
	}
	end, err := time.Parse(DateLayout, r.EndDate)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, r.EndDate)
	}
	if end.Before(start) {
		return ErrDateOrder
	}

	if len(r.MealType) == 0 {
		return ErrMissingMealType
	}

	checks := []struct {
		field  string
		values []string
		opts   []Option
	}{
		{"meal type", r.MealType, MealTypeOptions},
		{"dietary preference", r.DietaryPreferences, DietaryOptions},
		{"dietary restriction", r.DietaryRestrictions, DietaryOptions},
		{"cuisine", r.CuisineTypes, CuisineOptions},
		{"complexity", r.ComplexityLevels, ComplexityOptions},
	}
	for _, c := range checks {
		ids := OptionIDs(c.opts)
		for _, v := range c.values {
			if !slices.Contains(ids, v) {
				return fmt.Errorf("%w: %s %q", ErrUnknownOption, c.field, v)
			}
		}
	}
	return nil
}

// Days returns the inclusive number of days covered, or 0 when the dates are invalid.
func (r MealPlanRequest) Days() int {
	start, err1 := time.Parse(DateLayout, r.StartDate)
	end, err2 := time.Parse(DateLayout, r.EndDate)
	if err1 != nil || err2 != nil || end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// Pending builds the provisional record shown before the backend responds.
func (r MealPlanRequest) Pending(id string) MealPlan {
	return MealPlan{
		ID:                  id,
		StartDate:           r.StartDate,
		EndDate:             r.EndDate,
		MealType:            r.MealType,
		DietaryPreferences:  r.DietaryPreferences,
		CuisineTypes:        r.CuisineTypes,
		ComplexityLevels:    r.ComplexityLevels,
		DietaryRestrictions: r.DietaryRestrictions,
		Status:              StatusPending,
		CreatedAt:           time.Now().Format(time.RFC3339),
	}
}
