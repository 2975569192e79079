package tasks

import (
	"fmt"

	"github.com/desertthunder/genie/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	SubmitRequest Phase = iota
	AwaitResult
	Completed
	Failed
	Refetch
	ExportPlan
)

func (p Phase) String() string {
	switch p {
	case SubmitRequest:
		return "submit_request"
	case AwaitResult:
		return "await_result"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Refetch:
		return "refetch"
	case ExportPlan:
		return "export_plan"
	default:
		return ""
	}
}

func submitUpdate(req models.MealPlanRequest) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SubmitRequest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Requesting a %d-day meal plan (%s to %s)...", req.Days(), req.StartDate, req.EndDate),
	}
}

func awaitUpdate(plan models.MealPlan) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AwaitResult,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Generating meal plan %s...", plan.ID),
		Data:    plan,
	}
}

func completedUpdate(plan models.MealPlan) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Completed,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Meal plan %s is ready (%d meals)", plan.Title(), plan.Plan.MealCount()),
		Data:    plan,
	}
}

func failedUpdate(plan models.MealPlan) ProgressUpdate {
	msg := plan.Error
	if msg == "" {
		msg = "unknown error"
	}
	return ProgressUpdate{
		Phase:   Failed,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Meal plan %s failed: %s", plan.Title(), msg),
		Data:    plan,
	}
}

func refetchUpdate(changed int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Refetch,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Refreshed meal plans (%d changed)", changed),
		Data:    changed,
	}
}

func exportingPlanUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlan,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, title),
	}
}

func exportCompletedUpdate(step, total int, title string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlan,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, title, filesCount),
	}
}

func exportFailedUpdate(step, total int, title string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlan,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, title, err),
	}
}
