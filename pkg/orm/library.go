package orm

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mizuchilabs/vegaorm/pkg/errors"
	"github.com/mizuchilabs/vegaorm/pkg/schema"
)

const defaultPlanConcurrency = 4

// SyncOptions configures how model plans are applied
type SyncOptions struct {
	DryRun          bool // plan only
	SkipDestructive bool // leave tables whose plan may lose data untouched
}

// PlanModels plans every model concurrently. Plans are returned in model
// order. Models the dialect cannot reconcile keep their actions in the plan
// and are reported together in the returned error.
func (d *Database) PlanModels(ctx context.Context, models []*schema.Model) ([]Plan, error) {
	plans := make([]Plan, len(models))
	unsupported := make([]error, len(models))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.planConcurrency())
	for i, m := range models {
		g.Go(func() error {
			plan, err := d.Plan(gctx, m)
			plans[i] = plan
			if errors.IsType(err, errors.ErrTypeFeatureNotImplemented) {
				unsupported[i] = errors.Wrapf(err, errors.ErrTypeFeatureNotImplemented, "table %s", plan.Table)
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return plans, errors.Join(unsupported...)
}

// PlanFiles plans every model declared in the model files of dir
func (d *Database) PlanFiles(ctx context.Context, dir string) ([]Plan, error) {
	models, err := schema.ReadFiles(dir)
	if err != nil {
		return nil, err
	}
	return d.PlanModels(ctx, models)
}

// SyncModels plans every model and applies the plans in model order. It
// returns the plans that were applied.
func (d *Database) SyncModels(ctx context.Context, models []*schema.Model, opts SyncOptions) ([]Plan, error) {
	plans, err := d.PlanModels(ctx, models)
	if err != nil {
		return nil, err
	}
	if opts.DryRun {
		return nil, nil
	}
	return d.ApplyPlans(ctx, plans, opts)
}

// ApplyPlans applies non-empty plans in order and returns the plans that
// were applied. Destructive plans are skipped with SkipDestructive.
func (d *Database) ApplyPlans(ctx context.Context, plans []Plan, opts SyncOptions) ([]Plan, error) {
	var applied []Plan
	for _, plan := range plans {
		if plan.Empty() {
			continue
		}
		if opts.SkipDestructive && plan.Destructive() {
			d.logger.Warn("skipping destructive changes", "table", plan.Table, "actions", len(plan.Actions))
			continue
		}
		if err := d.Apply(ctx, plan); err != nil {
			return applied, err
		}
		applied = append(applied, plan)
	}
	return applied, nil
}

// SyncFiles reconciles every model declared in the model files of dir
func (d *Database) SyncFiles(ctx context.Context, dir string, opts SyncOptions) ([]Plan, error) {
	models, err := schema.ReadFiles(dir)
	if err != nil {
		return nil, err
	}
	return d.SyncModels(ctx, models, opts)
}

// planConcurrency keeps concurrent planning within the lease cap so that
// planning never exhausts the pool
func (d *Database) planConcurrency() int {
	if capped, ok := d.provider.(interface{ Cap() int }); ok {
		return max(capped.Cap(), 1)
	}
	return defaultPlanConcurrency
}
