package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/genie/internal/shared"
	"github.com/urfave/cli/v3"
)

// CacheSync fetches every meal plan so `plans list --offline` works without the backend.
//
// Plans are written to the cache by the job store as they are merged.
func (r *Runner) CacheSync(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireDB(); err != nil {
		return err
	}
	if _, err := r.authenticate(ctx); err != nil {
		return err
	}

	r.logger.Info("syncing meal plan cache")

	changed, err := r.engine.Refresh(ctx, nil)
	if err != nil {
		return err
	}
	r.saveSession(ctx)

	r.writePlain("✓ Cached %d meal plans\n", r.store.Len())
	return r.writePlain("  Updated: %d\n", changed)
}

// CacheForget removes a meal plan from the local cache. The backend copy is untouched.
func (r *Runner) CacheForget(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: meal plan id", shared.ErrMissingArgument)
	}
	if err := r.requireDB(); err != nil {
		return err
	}

	if err := r.mealPlans.Delete(ctx, id); err != nil {
		return err
	}

	r.logger.Info("removed cached meal plan", "id", id)
	return r.writePlain("✓ Removed %s from the cache\n", id)
}
