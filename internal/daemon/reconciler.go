package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/tilewm/internal/platform"
)

// WindowLister returns the ids of every window the display still knows.
type WindowLister func() ([]platform.WindowID, error)

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically snapshots the live window list so the manager can
// drop windows whose destroy notification was lost.
type Reconciler struct {
	interval    time.Duration
	listWindows WindowLister
	post        func([]platform.WindowID)
	logger      *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
// Snapshots are handed to post; they are never applied from this goroutine.
func NewReconciler(cfg ReconcilerConfig, listWindows WindowLister, post func([]platform.WindowID)) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval:    interval,
		listWindows: listWindows,
		post:        post,
		logger:      logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Debug("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile()
		}
	}
}

// reconcile performs a single reconciliation pass.
func (r *Reconciler) reconcile() {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	live, err := r.listWindows()
	if err != nil {
		r.logger.Error("reconciler: failed to list windows", "error", err)
		return
	}
	r.post(live)
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow() {
	r.reconcile()
}
