package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/openmined/globsync/internal/reconcile"
	"github.com/openmined/globsync/internal/scanner"
)

var ErrSyncAlreadyRunning = errors.New("sync already running")

// Syncer runs one scan, list, plan and execute cycle against a store
type Syncer struct {
	scanner  *scanner.Scanner
	store    reconcile.Store
	resolver reconcile.PolicyResolver
	detector *reconcile.Detector
	opts     reconcile.Options
	muSync   sync.Mutex
}

func New(scn *scanner.Scanner, store reconcile.Store, resolver reconcile.PolicyResolver, opts reconcile.Options, compareCachePolicy bool) *Syncer {
	return &Syncer{
		scanner:  scn,
		store:    store,
		resolver: resolver,
		detector: reconcile.NewDetector(store, compareCachePolicy),
		opts:     opts,
	}
}

// Plan scans the local root and lists the store. A listing failure aborts before anything runs.
func (s *Syncer) Plan(ctx context.Context) (*reconcile.Plan, error) {
	plan, _, err := s.plan(ctx)
	return plan, err
}

// Run plans and executes a sync
func (s *Syncer) Run(ctx context.Context) (*reconcile.Result, error) {
	if !s.muSync.TryLock() {
		return nil, ErrSyncAlreadyRunning
	}
	defer s.muSync.Unlock()

	runID := uuid.New().String()
	logger := slog.With("run", runID)
	logger.Info("sync start", "root", s.scanner.Root(), "dryrun", s.opts.DryRun)

	tStart := time.Now()
	plan, timings, err := s.plan(ctx)
	if err != nil {
		return nil, err
	}

	if plan.HasChanges() {
		logger.Debug("sync plan", "creates", len(plan.Create), "updates", len(plan.Update), "deletes", len(plan.Delete))
	}

	tExec := time.Now()
	exec := reconcile.NewExecutor(s.store, s.detector, s.opts)
	result, err := exec.Execute(ctx, plan)
	tExecute := time.Since(tExec)

	if result != nil {
		logger.Info("sync done",
			"created", result.Created,
			"updated", result.Updated,
			"skipped", result.Skipped,
			"deleted", result.Deleted,
			"uploaded", humanize.Bytes(uint64(result.BytesUploaded)),
			"waited", result.Waited,
			"errors", len(result.Errors),
			"dryrun", s.opts.DryRun,
			"tsLocalState", timings.scan,
			"tsRemoteState", timings.list,
			"tsReconcile", timings.plan,
			"tsExecute", tExecute,
			"tsTotal", time.Since(tStart),
		)
	}
	if err != nil {
		return result, fmt.Errorf("sync: %w", err)
	}
	return result, nil
}

type planTimings struct {
	scan time.Duration
	list time.Duration
	plan time.Duration
}

func (s *Syncer) plan(ctx context.Context) (*reconcile.Plan, planTimings, error) {
	var ts planTimings

	tScan := time.Now()
	local, err := s.scanner.Scan(ctx)
	if err != nil {
		return nil, ts, err
	}
	ts.scan = time.Since(tScan)

	tList := time.Now()
	remote, err := s.store.List(ctx)
	if err != nil {
		return nil, ts, fmt.Errorf("remote listing failed: %w", err)
	}
	ts.list = time.Since(tList)

	tPlan := time.Now()
	plan := reconcile.BuildPlan(local, remote, s.resolver)
	ts.plan = time.Since(tPlan)

	slog.Debug("local and remote state", "local", len(local), "remote", len(remote))
	return plan, ts, nil
}
