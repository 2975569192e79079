package jobs

import "github.com/desertthunder/genie/internal/models"

// Merge resolves an incoming record against the existing one for the same id.
//
//   - no existing record, or a non-terminal one: incoming wins
//   - terminal existing, non-terminal incoming: existing is kept
//   - terminal existing, same terminal incoming: incoming refines display fields; payload,
//     error and completion time are kept when incoming omits them
//   - terminal existing, different terminal incoming: existing is kept
func Merge(existing *models.MealPlan, incoming models.MealPlan) models.MealPlan {
	if existing == nil || !existing.IsTerminal() {
		return incoming
	}
	if incoming.Status != existing.Status {
		return *existing
	}

	resolved := incoming
	if resolved.Plan == nil {
		resolved.Plan = existing.Plan
	}
	if resolved.Error == "" {
		resolved.Error = existing.Error
	}
	if resolved.CompletedAt == "" {
		resolved.CompletedAt = existing.CompletedAt
	}
	if resolved.CreatedAt == "" {
		resolved.CreatedAt = existing.CreatedAt
	}
	if resolved.UserID == "" {
		resolved.UserID = existing.UserID
	}
	if resolved.StartDate == "" && resolved.EndDate == "" {
		resolved.StartDate, resolved.EndDate = existing.StartDate, existing.EndDate
	}
	if len(resolved.MealType) == 0 {
		resolved.MealType = existing.MealType
	}
	return resolved
}
