package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/animfsm/internal/anim"
	"github.com/roach88/animfsm/internal/config"
	"github.com/roach88/animfsm/internal/fsm"
	"github.com/roach88/animfsm/internal/reconcile"
)

// DefaultTickInterval is how often Run calls Tick. Managers throttle on
// their own update rate, so ticking faster than it only costs no-op calls.
const DefaultTickInterval = time.Second / 120

// HistoryRecorder persists reconcile reports. Implemented by *store.Store.
type HistoryRecorder interface {
	RecordSync(ctx context.Context, runID string, rep reconcile.Report, syncErr error) (int64, error)
}

// Runtime owns the live machine graph and the managers animating it.
//
// Thread-safety model:
//   - Sync, Bind, Tick, NewManager: safe from any goroutine
//   - Run: must be called from exactly one goroutine
type Runtime struct {
	clock        anim.Clock
	registry     *fsm.Registry
	reconciler   *reconcile.Reconciler
	runIDs       RunIDGenerator
	history      HistoryRecorder
	logger       *slog.Logger
	tickInterval time.Duration
	prune        bool

	// graph is the lock shared by the reconciler and every manager.
	graph sync.Mutex

	managersMu sync.Mutex
	managers   []*anim.Manager
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithTickInterval sets the Run loop's tick period. Non-positive values are
// ignored.
func WithTickInterval(d time.Duration) Option {
	return func(r *Runtime) {
		if d > 0 {
			r.tickInterval = d
		}
	}
}

// WithRunIDGenerator replaces the UUIDv7 run id generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(r *Runtime) {
		r.runIDs = g
	}
}

// WithHistory records every reconcile report.
func WithHistory(h HistoryRecorder) Option {
	return func(r *Runtime) {
		r.history = h
	}
}

// WithPruneTransitions removes transitions missing from config on resync.
// By default they are kept.
func WithPruneTransitions(prune bool) Option {
	return func(r *Runtime) {
		r.prune = prune
	}
}

// WithLogger sets the logger shared by the reconciler, managers and actions.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = l
	}
}

// New creates a Runtime resolving machine refs through source.
// A nil registry means NewRegistry().
func New(source config.Source, registry *fsm.Registry, clock anim.Clock, opts ...Option) *Runtime {
	r := &Runtime{
		clock:        clock,
		registry:     registry,
		runIDs:       UUIDv7Generator{},
		logger:       slog.Default(),
		tickInterval: DefaultTickInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = NewRegistry()
	}

	r.reconciler = reconcile.New(source, r.registry,
		reconcile.WithLocker(&r.graph),
		reconcile.WithLogger(r.logger),
		reconcile.WithPruneTransitions(r.prune),
		reconcile.WithReportHook(r.record),
	)
	return r
}

// Reconciler returns the runtime's reconciler.
func (r *Runtime) Reconciler() *reconcile.Reconciler {
	return r.reconciler
}

// Registry returns the action registry.
func (r *Runtime) Registry() *fsm.Registry {
	return r.registry
}

// Clock returns the runtime clock.
func (r *Runtime) Clock() anim.Clock {
	return r.clock
}

// NewManager creates a manager on the runtime clock and graph lock. Later
// options override the runtime's logger.
func (r *Runtime) NewManager(opts ...anim.ManagerOption) *anim.Manager {
	base := []anim.ManagerOption{
		anim.WithLocker(&r.graph),
		anim.WithLogger(r.logger),
	}
	m := anim.NewManager(r.clock, append(base, opts...)...)

	r.managersMu.Lock()
	r.managers = append(r.managers, m)
	r.managersMu.Unlock()
	return m
}

// Managers returns the managers in creation order.
func (r *Runtime) Managers() []*anim.Manager {
	r.managersMu.Lock()
	defer r.managersMu.Unlock()
	out := make([]*anim.Manager, len(r.managers))
	copy(out, r.managers)
	return out
}

// Sync resolves ref and synchronizes its machine, nested machines
// included, under a fresh run id.
//
// A failed nested resolution still returns the machine with every other
// step applied.
func (r *Runtime) Sync(ctx context.Context, ref string) (*fsm.Machine, error) {
	runID := r.runIDs.Generate()
	ctx = withRunID(ctx, runID)

	m, err := r.reconciler.Resolve(ctx, ref)
	if err != nil && m == nil {
		// Nothing reached Update, so the hook never saw this run.
		r.record(ctx, reconcile.Report{Ref: ref}, err)
	}
	if err != nil {
		return m, fmt.Errorf("sync %q: %w", ref, err)
	}
	return m, nil
}

// Bind syncs ref and makes its machine drive layer. The machine is not
// started.
func (r *Runtime) Bind(ctx context.Context, layer *anim.Layer, ref string) (*fsm.Machine, error) {
	m, err := r.Sync(ctx, ref)
	if m != nil {
		layer.SetMachine(m)
		r.logger.Debug("layer bound", "layer", layer.Name(), "ref", ref)
	}
	return m, err
}

// Tick updates every manager once.
func (r *Runtime) Tick() {
	for _, m := range r.Managers() {
		m.Update()
	}
}

// Run ticks the managers and serves reload requests until ctx is done.
// Each ref received on reloads is resynced by a single background worker;
// a ref whose config no longer exists is removed from the graph.
//
// Run returns ctx.Err(). A nil or closed reloads channel only disables
// reloading.
func (r *Runtime) Run(ctx context.Context, reloads <-chan string) error {
	r.logger.Info("runtime starting", "tick", r.tickInterval)

	queue := newReloadQueue()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.syncWorker(ctx, queue)
	}()
	defer func() {
		queue.Close()
		wg.Wait()
	}()

	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("runtime stopping: context cancelled")
			return ctx.Err()

		case ref, ok := <-reloads:
			if !ok {
				reloads = nil
				continue
			}
			r.logger.Debug("reload requested", "ref", ref)
			queue.Enqueue(ref)

		case <-ticker.C:
			r.Tick()
		}
	}
}

func (r *Runtime) syncWorker(ctx context.Context, queue *reloadQueue) {
	for {
		if ref, ok := queue.TryDequeue(); ok {
			r.reload(ctx, ref)
			continue
		}
		select {
		case <-ctx.Done():
			return
		case _, open := <-queue.Wait():
			if !open && queue.Len() == 0 {
				return
			}
		}
	}
}

// reload resyncs ref if it is live. Refs nothing has synced yet are
// ignored: a new file in the config directory is not a request to run it.
func (r *Runtime) reload(ctx context.Context, ref string) {
	if _, live := r.reconciler.Machine(ref); !live {
		r.logger.Debug("reload ignored: ref not live", "ref", ref)
		return
	}
	_, err := r.Sync(ctx, ref)
	switch {
	case err == nil:
	case isOwnNotFound(err, ref):
		r.reconciler.Remove(ref)
	default:
		r.logger.Error("reload failed", "ref", ref, "error", err)
	}
}

// isOwnNotFound reports whether err says ref itself, rather than one of its
// nested refs, has no config.
func isOwnNotFound(err error, ref string) bool {
	var re *fsm.RuntimeError
	if !errors.As(err, &re) {
		return false
	}
	return re.Code == fsm.ErrCodeResolveFailed && re.Ref == ref && errors.Is(re.Err, config.ErrNotFound)
}

// record is the reconciler's report hook.
func (r *Runtime) record(ctx context.Context, rep reconcile.Report, err error) {
	if r.history == nil {
		return
	}
	runID := RunID(ctx)
	if _, herr := r.history.RecordSync(context.WithoutCancel(ctx), runID, rep, err); herr != nil {
		r.logger.Warn("sync history write failed", "ref", rep.Ref, "run", runID, "error", herr)
	}
}
