package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/genie/internal/formatter"
	"github.com/desertthunder/genie/internal/models"
	"github.com/desertthunder/genie/internal/repositories"
	"github.com/desertthunder/genie/internal/services"
	"github.com/desertthunder/genie/internal/shared"
	"github.com/desertthunder/genie/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlansList lists meal plans from the backend, or from the local cache with --offline.
func (r *Runner) PlansList(ctx context.Context, cmd *cli.Command) error {
	status := models.MealPlanStatus(strings.ToLower(cmd.String("status")))
	limit := cmd.Int("limit")

	var plans []models.MealPlan
	if cmd.Bool("offline") {
		cached, err := r.cachedPlans(ctx, status)
		if err != nil {
			return err
		}
		plans = cached
	} else {
		if _, err := r.authenticate(ctx); err != nil {
			return err
		}
		r.logger.Info("listing meal plans")
		if _, err := r.engine.Refresh(ctx, nil); err != nil {
			return err
		}
		r.saveSession(ctx)
		plans = filterStatus(r.store.List(), status)
	}

	if limit > 0 && limit < len(plans) {
		plans = plans[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(plans, cmd.Bool("pretty"))
	}

	if len(plans) == 0 {
		return r.writePlain("No meal plans yet. Create one with 'genie plans create --start YYYY-MM-DD'\n")
	}

	r.writePlain("Found %d meal plans:\n\n", len(plans))
	for i, p := range plans {
		r.writePlain("%d. %s [%s]\n", i+1, p.Title(), p.Status)
		r.writePlain("   ID: %s\n", p.ID)
		if len(p.MealType) > 0 {
			r.writePlain("   Meals: %s\n", strings.Join(p.MealType, ", "))
		}
		if p.Plan != nil {
			r.writePlain("   Items: %d\n", p.Plan.MealCount())
		}
		if p.Error != "" {
			r.writePlain("   Error: %s\n", p.Error)
		}
		r.writePlain("\n")
	}
	return nil
}

// PlansGet shows a single meal plan.
func (r *Runner) PlansGet(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: meal plan id", shared.ErrMissingArgument)
	}

	plan, err := r.fetchPlan(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(plan, cmd.Bool("pretty"))
	}

	text, err := formatter.ExportToText(*plan)
	if err != nil {
		return err
	}
	_, err = r.output.Write(text)
	return err
}

// PlansCreate submits a meal plan request, optionally waiting for the backend to finish generating it.
func (r *Runner) PlansCreate(ctx context.Context, cmd *cli.Command) error {
	req := requestFromFlags(cmd)

	session, err := r.authenticate(ctx)
	if err != nil {
		return err
	}

	var plan *models.MealPlan
	if cmd.Bool("wait") {
		_, stop := r.startRealtime(ctx, session, true)
		defer stop()

		progressCh, printed := r.drainProgress("→")
		plan, err = r.engine.Create(ctx, req, progressCh)
		close(progressCh)
		<-printed
	} else {
		plan, err = r.engine.Submit(ctx, req)
	}
	r.saveSession(ctx)

	if err != nil && !errors.Is(err, shared.ErrGenerationFailed) {
		return err
	}

	if cmd.Bool("json") {
		if jsonErr := r.writeJSON(plan, cmd.Bool("pretty")); jsonErr != nil {
			return jsonErr
		}
		return err
	}

	if err != nil {
		r.writePlain("✗ Meal plan %s failed: %s\n", plan.Title(), plan.Error)
		return err
	}

	switch {
	case plan.IsTerminal():
		r.writePlain("✓ Meal plan %s is ready (%s)\n", plan.Title(), plan.ID)
		if text, err := formatter.ExportToText(*plan); err == nil {
			r.writePlain("\n%s", text)
		}
	default:
		r.writePlain("✓ Meal plan requested: %s\n", plan.ID)
		r.writePlain("Follow it with: genie plans watch %s\n", plan.ID)
	}
	return nil
}

// PlansWatch waits for a pending meal plan to reach a terminal status.
func (r *Runner) PlansWatch(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: meal plan id", shared.ErrMissingArgument)
	}

	session, err := r.authenticate(ctx)
	if err != nil {
		return err
	}

	_, stop := r.startRealtime(ctx, session, true)
	defer stop()

	progressCh, printed := r.drainProgress("→")
	plan, err := r.engine.Wait(ctx, id, progressCh)
	close(progressCh)
	<-printed
	r.saveSession(ctx)

	if err != nil {
		return err
	}

	return r.writePlain("✓ Meal plan %s is %s\n", plan.Title(), plan.Status)
}

// PlansExport exports one or more meal plans to files.
func (r *Runner) PlansExport(ctx context.Context, cmd *cli.Command) error {
	format := strings.ToLower(cmd.String("format"))
	if !slices.Contains(formatter.Formats, format) {
		return fmt.Errorf("%w: --format must be one of %s", shared.ErrInvalidFlag, strings.Join(formatter.Formats, ", "))
	}

	if _, err := r.authenticate(ctx); err != nil {
		return err
	}

	ids := cmd.StringArgs("ids")
	if cmd.Bool("all") {
		if _, err := r.engine.Refresh(ctx, nil); err != nil {
			return err
		}
		ids = ids[:0]
		for _, p := range r.store.List() {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: pass meal plan ids or --all", shared.ErrMissingArgument)
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progressCh {
			switch update.Phase {
			case tasks.ExportPlan:
				r.writePlain("📦 [%d/%d] %s\n", update.Step, update.Total, update.Message)
			default:
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	result, err := r.engine.ExportPlans(ctx, progressCh, ids, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  r.config.Backend.RequestsPerSecond,
	})
	close(progressCh)
	<-printed
	r.saveSession(ctx)

	if err != nil {
		return err
	}

	r.writePlainln("")
	r.writePlainHeader("Export Summary")
	r.writePlain("Total: %d\n", result.TotalPlans)
	r.writePlain("Successful: %d\n", result.SuccessfulExports)
	r.writePlain("Failed: %d\n", result.FailedExports)
	r.writePlain("Output: %s\n", result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)

	for _, res := range result.Results {
		if !res.Success {
			r.writePlain("  ✗ %s: %v\n", res.PlanID, res.Error)
		}
	}
	return nil
}

// fetchPlan reads a plan from the backend and records it in the store, falling back to the cache when offline.
func (r *Runner) fetchPlan(ctx context.Context, id string) (*models.MealPlan, error) {
	if _, err := r.authenticate(ctx); err != nil {
		return r.cachedPlan(ctx, id, err)
	}

	plan, err := r.plans.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrMealPlanNotFound) || services.IsNotFound(err) {
			return nil, err
		}
		return r.cachedPlan(ctx, id, err)
	}

	r.store.UpsertFromFetch([]models.MealPlan{*plan})
	r.saveSession(ctx)
	if stored, ok := r.store.Get(id); ok {
		return &stored, nil
	}
	return plan, nil
}

// cachedPlan returns the cached copy of id, or cause when there is none.
func (r *Runner) cachedPlan(ctx context.Context, id string, cause error) (*models.MealPlan, error) {
	if r.mealPlans == nil {
		return nil, cause
	}
	plan, err := r.mealPlans.Get(ctx, id)
	if err != nil {
		return nil, cause
	}
	r.logger.Warn("backend unavailable, showing cached plan", "id", id, "error", cause)
	return plan, nil
}

func (r *Runner) cachedPlans(ctx context.Context, status models.MealPlanStatus) ([]models.MealPlan, error) {
	if err := r.requireDB(); err != nil {
		return nil, err
	}
	return r.mealPlans.List(ctx, repositories.ListCriteria{Status: status})
}

func filterStatus(plans []models.MealPlan, status models.MealPlanStatus) []models.MealPlan {
	if status == "" {
		return plans
	}
	filtered := make([]models.MealPlan, 0, len(plans))
	for _, p := range plans {
		if p.Status == status {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func requestFromFlags(cmd *cli.Command) models.MealPlanRequest {
	start := cmd.String("start")
	end := cmd.String("end")
	if end == "" {
		end = start
	}
	return models.MealPlanRequest{
		StartDate:           start,
		EndDate:             end,
		MealType:            cmd.StringSlice("meal"),
		DietaryPreferences:  cmd.StringSlice("diet"),
		DietaryRestrictions: cmd.StringSlice("restriction"),
		CuisineTypes:        cmd.StringSlice("cuisine"),
		ComplexityLevels:    cmd.StringSlice("complexity"),
	}
}
