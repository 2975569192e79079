package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/genie/internal/formatter"
	"github.com/desertthunder/genie/internal/models"
	"golang.org/x/time/rate"
)

// BulkExportOpts contains configuration for bulk meal plan exports.
type BulkExportOpts struct {
	Format     string  // Export format: json, csv, markdown, txt, xlsx
	OutputDir  string  // Base output directory (default: meal_plans_export_{epoch})
	NumWorkers int     // Concurrent workers (default: 4)
	RateLimit  float64 // Fetches per second for plans missing from the store (default: 5)
}

// PlanExportJob is a fetched plan waiting to be written.
type PlanExportJob struct {
	Plan models.MealPlan
}

// PlanExportResult is the outcome of exporting a single plan.
type PlanExportResult struct {
	PlanID  string
	Title   string
	Status  models.MealPlanStatus
	Files   []string
	Success bool
	Error   error
}

// BulkExportResult summarizes an [PlanEngine.ExportPlans] run.
type BulkExportResult struct {
	TotalPlans        int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []PlanExportResult
}

// ExportPlans exports the plans with the given ids concurrently and writes an export_manifest.json.
//
// Terminal plans already in the store are used as-is; others are fetched at the configured rate.
// Per-plan failures are recorded in the result and do not abort the run.
func (e *PlanEngine) ExportPlans(ctx context.Context, prog chan<- ProgressUpdate, ids []string, opts BulkExportOpts) (*BulkExportResult, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("meal_plans_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalPlans:      len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlanExportResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	queue := make(chan PlanExportJob, len(ids))
	results := make(chan PlanExportResult, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, queue, results, opts)
	}

	go func() {
		defer close(queue)
		for i, id := range ids {
			if ctx.Err() != nil {
				return
			}

			plan, err := e.planForExport(ctx, limiter, id)
			if err != nil {
				results <- PlanExportResult{
					PlanID: id,
					Title:  fmt.Sprintf("Unknown (%s)", id),
					Error:  fmt.Errorf("failed to fetch meal plan: %w", err),
				}
				continue
			}

			queue <- PlanExportJob{Plan: *plan}
			e.sendProgress(prog, exportingPlanUpdate(i+1, len(ids), plan.Title()))
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.Title, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(ids), res.Title, res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(manifestFor(result, opts.Format), manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

func (e *PlanEngine) planForExport(ctx context.Context, limiter *rate.Limiter, id string) (*models.MealPlan, error) {
	if plan, ok := e.store.Get(id); ok && plan.IsTerminal() {
		return &plan, nil
	}

	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}

	plan, err := e.plans.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	e.store.UpsertFromFetch([]models.MealPlan{*plan})

	merged, _ := e.store.Get(id)
	return &merged, nil
}

// exportWorker writes plans from the queue until it is drained or ctx is done.
func (e *PlanEngine) exportWorker(ctx context.Context, wg *sync.WaitGroup, queue <-chan PlanExportJob, results chan<- PlanExportResult, opts BulkExportOpts) {
	defer wg.Done()

	for job := range queue {
		if ctx.Err() != nil {
			return
		}
		results <- exportSinglePlan(job, opts)
	}
}

func exportSinglePlan(j PlanExportJob, opts BulkExportOpts) PlanExportResult {
	result := PlanExportResult{
		PlanID: j.Plan.ID,
		Title:  j.Plan.Title(),
		Status: j.Plan.Status,
		Files:  []string{},
	}

	path, err := formatter.WritePlan(j.Plan, opts.Format, opts.OutputDir)
	if err != nil {
		result.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		return result
	}

	result.Files = append(result.Files, path)
	result.Success = true
	return result
}

func manifestFor(r *BulkExportResult, format string) formatter.Manifest {
	m := formatter.Manifest{
		ExportedAt: time.Now().UTC(),
		Format:     format,
		Total:      r.TotalPlans,
		Successful: r.SuccessfulExports,
		Failed:     r.FailedExports,
		Plans:      make([]formatter.ManifestEntry, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		entry := formatter.ManifestEntry{
			PlanID:  res.PlanID,
			Title:   res.Title,
			Status:  res.Status.String(),
			Success: res.Success,
			Files:   res.Files,
		}
		if res.Error != nil {
			entry.Error = res.Error.Error()
		}
		m.Plans = append(m.Plans, entry)
	}
	return m
}
