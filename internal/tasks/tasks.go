package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/genie/internal/jobs"
	"github.com/desertthunder/genie/internal/models"
	"github.com/desertthunder/genie/internal/realtime"
	"github.com/desertthunder/genie/internal/shared"
)

// DefaultPollInterval is how often [PlanEngine.Wait] re-fetches a plan that has not reached a terminal state.
const DefaultPollInterval = 15 * time.Second

// PlanClient is the subset of the meal plan REST client the engine needs.
type PlanClient interface {
	List(ctx context.Context) ([]models.MealPlan, error)
	Get(ctx context.Context, id string) (*models.MealPlan, error)
	Create(ctx context.Context, req models.MealPlanRequest) (*models.MealPlan, error)
}

// PlanEngine ties the REST client to the job store.
type PlanEngine struct {
	plans        PlanClient
	store        *jobs.Store
	logger       *log.Logger
	pollInterval time.Duration
}

// EngineOption configures a [PlanEngine].
type EngineOption func(*PlanEngine)

// WithPollInterval sets the fallback polling interval. Zero disables polling.
func WithPollInterval(d time.Duration) EngineOption {
	return func(e *PlanEngine) { e.pollInterval = d }
}

// WithLogger sets the engine's logger.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *PlanEngine) { e.logger = l }
}

// NewPlanEngine creates a new PlanEngine over plans and store.
func NewPlanEngine(plans PlanClient, store *jobs.Store, opts ...EngineOption) *PlanEngine {
	e := &PlanEngine{
		plans:        plans,
		store:        store,
		logger:       log.Default(),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = shared.WithLogger(e.logger, "component", "tasks")
	return e
}

// sendProgress sends a progress update through the channel without blocking.
func (e *PlanEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Create submits req and waits until the resulting plan is terminal.
//
// A failed generation returns the plan together with an error wrapping [shared.ErrGenerationFailed].
func (e *PlanEngine) Create(ctx context.Context, req models.MealPlanRequest, progress chan<- ProgressUpdate) (*models.MealPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	changes, cancel := e.store.Subscribe(16)
	defer cancel()

	e.sendProgress(progress, submitUpdate(req))

	created, err := e.plans.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	e.store.InsertOptimistic(*created)
	e.logger.Info("meal plan submitted", "id", created.ID, "days", req.Days())
	e.sendProgress(progress, awaitUpdate(*created))

	return e.await(ctx, created.ID, changes, progress)
}

// Submit posts req and inserts the pending record without waiting.
func (e *PlanEngine) Submit(ctx context.Context, req models.MealPlanRequest) (*models.MealPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	created, err := e.plans.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	e.store.InsertOptimistic(*created)

	plan, _ := e.store.Get(created.ID)
	return &plan, nil
}

// Wait blocks until the plan with id is terminal. Unknown ids are fetched first.
func (e *PlanEngine) Wait(ctx context.Context, id string, progress chan<- ProgressUpdate) (*models.MealPlan, error) {
	changes, cancel := e.store.Subscribe(16)
	defer cancel()

	plan, ok := e.store.Get(id)
	if !ok {
		if err := e.fetchOne(ctx, id); err != nil {
			return nil, err
		}
		plan, _ = e.store.Get(id)
	}
	if !plan.IsTerminal() {
		e.sendProgress(progress, awaitUpdate(plan))
	}
	return e.await(ctx, id, changes, progress)
}

func (e *PlanEngine) await(ctx context.Context, id string, changes <-chan jobs.Change, progress chan<- ProgressUpdate) (*models.MealPlan, error) {
	var tick <-chan time.Time
	if e.pollInterval > 0 {
		ticker := time.NewTicker(e.pollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if plan, ok := e.store.Get(id); ok && plan.IsTerminal() {
			return e.finish(plan, progress)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case _, ok := <-changes:
			if !ok {
				changes = nil
			}
		case <-tick:
			if err := e.fetchOne(ctx, id); err != nil {
				e.logger.Warn("poll failed", "id", id, "error", err)
			}
		}
	}
}

func (e *PlanEngine) finish(plan models.MealPlan, progress chan<- ProgressUpdate) (*models.MealPlan, error) {
	if plan.Status == models.StatusError {
		e.sendProgress(progress, failedUpdate(plan))
		return &plan, fmt.Errorf("%w: %s", shared.ErrGenerationFailed, plan.Error)
	}
	e.sendProgress(progress, completedUpdate(plan))
	return &plan, nil
}

func (e *PlanEngine) fetchOne(ctx context.Context, id string) error {
	plan, err := e.plans.Get(ctx, id)
	if err != nil {
		return err
	}
	e.store.UpsertFromFetch([]models.MealPlan{*plan})
	return nil
}

// Refresh fetches the full plan list and reconciles it into the store.
func (e *PlanEngine) Refresh(ctx context.Context, progress chan<- ProgressUpdate) (int, error) {
	plans, err := e.plans.List(ctx)
	if err != nil {
		return 0, err
	}
	changed := e.store.UpsertFromFetch(plans)
	e.sendProgress(progress, refetchUpdate(changed))
	return changed, nil
}

// Recover re-fetches the plan list on every transition into [realtime.Connected] after the first.
//
// Refetches run on their own goroutine so updates keep draining; reconnects during a refetch
// coalesce into one more. It returns when ctx is done or updates is closed, after any pending
// refetch has finished.
func (e *PlanEngine) Recover(ctx context.Context, updates <-chan realtime.Update) error {
	pending := make(chan struct{}, 1)
	worker := make(chan struct{})
	go func() {
		defer close(worker)
		for range pending {
			e.refetch(ctx)
		}
	}()
	defer func() {
		close(pending)
		<-worker
	}()

	seenConnected := false
	prev := realtime.Disconnected

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if u.Event != nil {
				continue
			}

			if u.State == realtime.Connected && prev != realtime.Connected {
				if seenConnected {
					select {
					case pending <- struct{}{}:
					default:
						e.logger.Debug("refetch already pending")
					}
				}
				seenConnected = true
			}
			prev = u.State
		}
	}
}

func (e *PlanEngine) refetch(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	changed, err := e.Refresh(ctx, nil)
	if err != nil {
		e.logger.Warn("refetch after reconnect failed", "error", err)
		return
	}
	e.logger.Info("refetched after reconnect", "changed", changed)
}
