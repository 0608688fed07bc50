package reconcile

import (
	"context"
	"log/slog"
	"sync"
)

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLocker sets the graph lock. Share it with every anim.Manager driving
// machines from this reconciler.
func WithLocker(l sync.Locker) Option {
	return func(r *Reconciler) {
		r.locker = l
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = l
	}
}

// WithPruneTransitions removes live transitions that are no longer
// configured. By default unlisted transitions are left in place.
func WithPruneTransitions(prune bool) Option {
	return func(r *Reconciler) {
		r.prune = prune
	}
}

// WithReportHook registers a callback invoked after every Update with its
// outcome and the context Update was called with. Nested resolutions pass
// their parent's context through. The hook runs outside the graph lock.
func WithReportHook(fn func(context.Context, Report, error)) Option {
	return func(r *Reconciler) {
		r.hook = fn
	}
}
