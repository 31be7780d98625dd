package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultWaitBeforeDelete = 5 * time.Second
	DefaultConcurrency      = 1
)

// Options control how a plan is executed.
type Options struct {
	// DryRun reports every action without calling a mutating store operation
	DryRun bool
	// DeleteOrphaned enables the delete phase
	DeleteOrphaned bool
	// WaitBeforeDelete is the pause between the update and delete phases,
	// only taken when an update was actually written
	WaitBeforeDelete time.Duration
	// Concurrency is the number of items processed in parallel within one phase
	Concurrency int
	// ContinueOnError keeps going after a failed item instead of aborting the run
	ContinueOnError bool
	// Sleep is the delay used before deleting. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// ActionType is the kind of a reported action.
type ActionType string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
	ActionSkip   ActionType = "skip"
	ActionDelete ActionType = "delete"
)

// Action is one reported step of an execution.
type Action struct {
	Type ActionType
	// Name is the remote key for updates and deletes, the remote relative name for creates
	Name      string
	LocalPath string
	Size      int64
	Reason    string
	DryRun    bool
}

// Result summarises an execution.
type Result struct {
	Actions       []Action
	Created       int
	Updated       int
	Skipped       int
	Deleted       int
	BytesUploaded int64
	// Waited is true if the pause before the delete phase was taken
	Waited   bool
	Errors   []error
	Duration time.Duration

	mu sync.Mutex
}

func (r *Result) record(a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Actions = append(r.Actions, a)
	switch a.Type {
	case ActionCreate:
		r.Created++
		if !a.DryRun {
			r.BytesUploaded += a.Size
		}
	case ActionUpdate:
		r.Updated++
		if !a.DryRun {
			r.BytesUploaded += a.Size
		}
	case ActionSkip:
		r.Skipped++
	case ActionDelete:
		r.Deleted++
	}
}

func (r *Result) addError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, err)
}

// Err joins all collected item errors.
func (r *Result) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.Errors...)
}

// Executor applies a plan through a Store in three strictly ordered phases:
// create, update, delete.
type Executor struct {
	store    Store
	detector *Detector
	opts     Options
}

func NewExecutor(store Store, detector *Detector, opts Options) *Executor {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if detector == nil {
		detector = NewDetector(store, false)
	}
	return &Executor{
		store:    store,
		detector: detector,
		opts:     opts,
	}
}

// Execute runs the plan. By default the first failed item aborts the run; with
// ContinueOnError every item is attempted and the joined errors are returned.
func (e *Executor) Execute(ctx context.Context, plan *Plan) (*Result, error) {
	start := time.Now()
	res := &Result{}
	defer func() {
		res.Duration = time.Since(start)
	}()

	if err := e.createPhase(ctx, plan.Create, res); err != nil {
		return res, fmt.Errorf("create: %w", err)
	}

	wrote, err := e.updatePhase(ctx, plan.Update, res)
	if err != nil {
		return res, fmt.Errorf("update: %w", err)
	}

	if !e.opts.DeleteOrphaned {
		if len(plan.Delete) > 0 {
			slog.Debug("delete orphaned disabled", "orphans", len(plan.Delete))
		}
		return res, res.Err()
	}

	if len(plan.Delete) == 0 {
		slog.Debug("nothing to delete")
		return res, res.Err()
	}

	if ShouldWaitBeforeDelete(e.opts, len(plan.Delete), wrote) {
		slog.Info("wait before deleting files", "wait", e.opts.WaitBeforeDelete)
		if err := e.opts.Sleep(ctx, e.opts.WaitBeforeDelete); err != nil {
			return res, fmt.Errorf("wait before delete: %w", err)
		}
		res.Waited = true
	}

	if err := e.deletePhase(ctx, plan.Delete, res); err != nil {
		return res, fmt.Errorf("delete: %w", err)
	}

	return res, res.Err()
}

// ShouldWaitBeforeDelete reports whether the pause before the delete phase applies:
// deletes are enabled and pending, this is not a dry run, and an update was written.
func ShouldWaitBeforeDelete(opts Options, orphans int, updateWritten bool) bool {
	return opts.DeleteOrphaned && orphans > 0 && !opts.DryRun && updateWritten
}

func (e *Executor) createPhase(ctx context.Context, actions []*CreateAction, res *Result) error {
	return e.runPhase(ctx, len(actions), res, func(ctx context.Context, i int) error {
		a := actions[i]
		slog.Info("create", "name", a.Local.RelPath, "path", a.Local.Path, "cachePolicy", a.Meta.CachePolicy, "dryrun", e.opts.DryRun)
		if !e.opts.DryRun {
			if err := e.store.Create(ctx, a.Local, a.Meta); err != nil {
				return fmt.Errorf("create %s: %w", a.Local.RelPath, err)
			}
		}
		res.record(Action{
			Type:      ActionCreate,
			Name:      a.Local.RelPath,
			LocalPath: a.Local.Path,
			Size:      a.Local.Size,
			Reason:    "new file",
			DryRun:    e.opts.DryRun,
		})
		return nil
	})
}

// updatePhase returns true if at least one update was written to the store.
func (e *Executor) updatePhase(ctx context.Context, actions []*UpdateAction, res *Result) (bool, error) {
	var mu sync.Mutex
	wrote := false

	err := e.runPhase(ctx, len(actions), res, func(ctx context.Context, i int) error {
		a := actions[i]
		changed, reason, err := e.detector.HasChanged(ctx, a.Remote, a.Local, a.Meta)
		if err != nil {
			return fmt.Errorf("compare %s: %w", a.Remote.Key, err)
		}
		if !changed {
			slog.Debug("skip update, file unchanged", "key", a.Remote.Key)
			res.record(Action{
				Type:      ActionSkip,
				Name:      a.Remote.Key,
				LocalPath: a.Local.Path,
				Size:      a.Local.Size,
				Reason:    "unchanged",
				DryRun:    e.opts.DryRun,
			})
			return nil
		}

		slog.Info("update", "key", a.Remote.Key, "path", a.Local.Path, "reason", reason, "dryrun", e.opts.DryRun)
		if !e.opts.DryRun {
			written, err := e.store.Update(ctx, a.Remote, a.Local, a.Meta)
			if err != nil {
				return fmt.Errorf("update %s: %w", a.Remote.Key, err)
			}
			if written {
				mu.Lock()
				wrote = true
				mu.Unlock()
			}
		}
		res.record(Action{
			Type:      ActionUpdate,
			Name:      a.Remote.Key,
			LocalPath: a.Local.Path,
			Size:      a.Local.Size,
			Reason:    reason,
			DryRun:    e.opts.DryRun,
		})
		return nil
	})

	return wrote, err
}

func (e *Executor) deletePhase(ctx context.Context, objects []*RemoteObject, res *Result) error {
	return e.runPhase(ctx, len(objects), res, func(ctx context.Context, i int) error {
		obj := objects[i]
		slog.Info("delete", "key", obj.Key, "dryrun", e.opts.DryRun)
		if !e.opts.DryRun {
			if err := e.store.Delete(ctx, obj); err != nil {
				return fmt.Errorf("delete %s: %w", obj.Key, err)
			}
		}
		res.record(Action{
			Type:   ActionDelete,
			Name:   obj.Key,
			Size:   obj.Size,
			Reason: "orphaned",
			DryRun: e.opts.DryRun,
		})
		return nil
	})
}

// runPhase runs fn for n items with at most Concurrency in flight and returns once every
// started item has finished.
func (e *Executor) runPhase(ctx context.Context, n int, res *Result, fn func(ctx context.Context, i int) error) error {
	if n == 0 {
		return nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.opts.Concurrency)

	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			// fail-fast: a previous item failed or the run was cancelled
			if err := egCtx.Err(); err != nil {
				return err
			}
			if err := fn(egCtx, i); err != nil {
				if e.opts.ContinueOnError {
					slog.Error("sync item failed", "error", err)
					res.addError(err)
					return nil
				}
				return err
			}
			return nil
		})
	}

	return eg.Wait()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
