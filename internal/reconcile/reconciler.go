package reconcile

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/roach88/animfsm/internal/config"
	"github.com/roach88/animfsm/internal/fsm"
)

// Reconciler owns the live machines built from configuration, keyed by ref.
//
// Thread-safety: all methods are safe for concurrent use. Graph mutation
// happens under the shared locker (see WithLocker).
type Reconciler struct {
	source   config.Source
	registry *fsm.Registry
	locker   sync.Locker
	logger   *slog.Logger
	prune    bool
	hook     func(context.Context, Report, error)

	// Guarded by locker. syncs records, per live state, the sync pass that
	// last applied its config.
	machines map[string]*fsm.Machine
	syncSeq  uint64
	syncs    map[*fsm.State]uint64

	group singleflight.Group
	waits *waitGraph
}

// New creates a Reconciler resolving machine refs through source and
// instantiating actions through registry.
func New(source config.Source, registry *fsm.Registry, opts ...Option) *Reconciler {
	r := &Reconciler{
		source:   source,
		registry: registry,
		logger:   slog.Default(),
		machines: make(map[string]*fsm.Machine),
		syncs:    make(map[*fsm.State]uint64),
		waits:    newWaitGraph(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.locker == nil {
		r.locker = &sync.Mutex{}
	}
	return r
}

// Locker returns the graph lock.
func (r *Reconciler) Locker() sync.Locker {
	return r.locker
}

// Machine returns the live machine for ref.
func (r *Reconciler) Machine(ref string) (*fsm.Machine, bool) {
	r.locker.Lock()
	defer r.locker.Unlock()
	m, ok := r.machines[ref]
	return m, ok
}

// Refs returns the refs of every live machine in sorted order.
func (r *Reconciler) Refs() []string {
	r.locker.Lock()
	defer r.locker.Unlock()
	out := make([]string, 0, len(r.machines))
	for ref := range r.machines {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}

// Remove drops the live machine for ref and detaches it from every state
// embedding it. It returns false if ref is unknown.
func (r *Reconciler) Remove(ref string) bool {
	r.locker.Lock()
	defer r.locker.Unlock()
	m, ok := r.machines[ref]
	if !ok {
		return false
	}
	m.RemoveFromParent()
	for _, id := range m.StateIDs() {
		if s, ok := m.State(id); ok {
			delete(r.syncs, s)
		}
	}
	delete(r.machines, ref)
	r.logger.Info("machine removed", "ref", ref, "machine", m.Name())
	return true
}

// Resolve fetches the config for ref and synchronizes its machine.
// Concurrent calls for the same ref share one fetch and one sync.
//
// A shared sync runs with the context of the call that started it, so its
// report reaches the report hook once, carrying that caller's context
// values. Callers that joined the flight get the machine and no report.
func (r *Reconciler) Resolve(ctx context.Context, ref string) (*fsm.Machine, error) {
	if from := callerRef(ctx); from != "" {
		ok, path := r.waits.add(from, ref)
		if !ok {
			return nil, fsm.NewCycleError(ref, path)
		}
		defer r.waits.remove(from, ref)
	}

	v, err, shared := r.group.Do(ref, func() (any, error) {
		cfg, err := r.source.GetConfig(ctx, ref)
		if err != nil {
			return nil, fsm.NewResolveError(ref, err)
		}
		return r.Update(ctx, ref, cfg)
	})
	if shared {
		r.logger.Debug("resolution coalesced", "ref", ref)
	}
	m, _ := v.(*fsm.Machine)
	return m, err
}

// Update synchronizes the live machine for ref with cfg and returns it.
//
// On error the returned machine reflects every step that succeeded: a
// failed nested resolution leaves that state's machine refs unchanged and
// everything else applied.
func (r *Reconciler) Update(ctx context.Context, ref string, cfg *config.MachineConfig) (*fsm.Machine, error) {
	rep := Report{Ref: ref}
	if h, err := config.Hash(cfg); err == nil {
		rep.Hash = h
	} else {
		r.logger.Warn("config hash failed", "ref", ref, "error", err)
	}

	r.locker.Lock()
	m, pending := r.syncGraph(ref, cfg, &rep)
	r.locker.Unlock()

	err := r.resolveNested(withCallerRef(ctx, ref), m, pending, &rep)
	if err != nil {
		r.logger.Error("nested machine resolution failed", "ref", ref, "error", err)
	} else if rep.Changed() {
		r.logger.Info("machine synced",
			"ref", ref,
			"states_added", rep.StatesAdded,
			"states_removed", rep.StatesRemoved,
			"actions_added", rep.ActionsAdded,
			"actions_removed", rep.ActionsRemoved,
		)
	}
	if r.hook != nil {
		r.hook(ctx, rep, err)
	}
	return m, err
}

// stateRefs is a state whose machine refs still need resolving, tagged
// with the sync pass that requested them.
type stateRefs struct {
	state *fsm.State
	refs  []string
	seq   uint64
}

// syncGraph runs the synchronous steps. Caller holds the locker.
func (r *Reconciler) syncGraph(ref string, cfg *config.MachineConfig, rep *Report) (*fsm.Machine, []stateRefs) {
	r.syncSeq++
	seq := r.syncSeq

	m, ok := r.machines[ref]
	if !ok {
		m = fsm.NewMachine(cfg.Name)
		r.machines[ref] = m
		rep.MachineCreated = true
	} else if m.Name() != cfg.Name {
		m.SetName(cfg.Name)
	}
	m.SetInitialState(fsm.StateID(cfg.InitialState))

	wanted := make(map[fsm.StateID]bool, len(cfg.States))
	for _, sc := range cfg.States {
		wanted[fsm.StateID(sc.ID)] = true
	}
	for _, id := range m.StateIDs() {
		if !wanted[id] {
			if s, ok := m.State(id); ok {
				delete(r.syncs, s)
			}
			m.RemoveState(id)
			rep.StatesRemoved++
		}
	}

	var pending []stateRefs
	for _, sc := range cfg.States {
		id := fsm.StateID(sc.ID)
		s, ok := m.State(id)
		if !ok {
			s = fsm.NewState(id)
			m.AddState(s)
			rep.StatesAdded++
		}
		s.Name = sc.Name
		r.syncs[s] = seq

		r.syncActions(ref, s, sc.Actions, rep)
		r.syncTransitions(s, sc.Transitions, rep)

		if len(sc.MachineRefs) == 0 {
			if n := len(s.Machines()); n > 0 {
				s.SetMachines(nil)
				rep.MachinesDetached += n
			}
			continue
		}
		pending = append(pending, stateRefs{state: s, refs: sc.MachineRefs, seq: seq})
	}
	return m, pending
}

func (r *Reconciler) syncActions(ref string, s *fsm.State, configured []config.ActionConfig, rep *Report) {
	listed := make(map[string]bool, len(configured))
	for _, ac := range configured {
		listed[ac.ID] = true
	}
	for _, a := range s.Actions() {
		if !listed[a.ID()] {
			s.RemoveAction(a.ID())
			rep.ActionsRemoved++
		}
	}

	ordered := make([]fsm.Action, 0, len(configured))
	placed := make(map[string]bool, len(configured))
	for _, ac := range configured {
		if placed[ac.ID] {
			continue
		}
		if existing, ok := s.Action(ac.ID); ok {
			if err := existing.Configure(ac.Options); err != nil {
				r.logger.Warn("action reconfigure failed, keeping previous options",
					"ref", ref, "state", s.ID(), "action", ac.ID, "error", err)
				rep.ActionsSkipped++
			} else {
				rep.ActionsUpdated++
			}
			ordered = append(ordered, existing)
			placed[ac.ID] = true
			continue
		}

		factory, ok := r.registry.ActionForType(ac.Type)
		if !ok {
			r.logger.Warn("unknown action type skipped",
				"ref", ref, "state", s.ID(), "action", ac.ID, "type", ac.Type)
			rep.ActionsSkipped++
			continue
		}
		a := factory(ac.ID)
		if err := a.Configure(ac.Options); err != nil {
			r.logger.Warn("action configure failed, skipped",
				"ref", ref, "state", s.ID(), "action", ac.ID, "error", err)
			rep.ActionsSkipped++
			continue
		}
		ordered = append(ordered, a)
		placed[ac.ID] = true
		rep.ActionsAdded++
	}
	s.SetActions(ordered)
}

func (r *Reconciler) syncTransitions(s *fsm.State, configured []config.TransitionConfig, rep *Report) {
	listed := make(map[fsm.EventID]bool, len(configured))
	for _, tc := range configured {
		ev, target := fsm.EventID(tc.ID), fsm.StateID(tc.TargetState)
		listed[ev] = true
		if cur, ok := s.Transition(ev); ok && cur == target {
			continue
		}
		s.SetTransition(ev, target)
		rep.TransitionsSet++
	}
	if !r.prune {
		return
	}
	for _, t := range s.Transitions() {
		if !listed[t.Event] {
			s.RemoveTransition(t.Event)
			rep.TransitionsPruned++
		}
	}
}

// resolveNested resolves every pending state's refs. States proceed
// independently; within a state nothing is attached unless every ref
// resolved, and nothing is attached once a later sync has reapplied the
// state.
func (r *Reconciler) resolveNested(ctx context.Context, m *fsm.Machine, pending []stateRefs, rep *Report) error {
	if len(pending) == 0 {
		return nil
	}

	var g errgroup.Group
	for _, p := range pending {
		g.Go(func() error {
			resolved := make([]*fsm.Machine, len(p.refs))
			var refs errgroup.Group
			for i, ref := range p.refs {
				refs.Go(func() error {
					child, err := r.Resolve(ctx, ref)
					if err != nil {
						if !fsm.IsCode(err, fsm.ErrCodeResolveFailed) {
							err = fsm.NewResolveError(ref, err)
						}
						return err
					}
					resolved[i] = child
					return nil
				})
			}
			if err := refs.Wait(); err != nil {
				return err
			}

			r.locker.Lock()
			defer r.locker.Unlock()
			if p.state.Owner() != m {
				// Removed while resolving.
				return nil
			}
			if r.syncs[p.state] != p.seq {
				r.logger.Debug("stale nested resolution dropped",
					"machine", m.Name(), "state", p.state.ID(), "refs", p.refs)
				return nil
			}
			rep.MachinesAttached += countNew(p.state.Machines(), resolved)
			rep.MachinesDetached += countNew(resolved, p.state.Machines())
			p.state.SetMachines(resolved)
			return nil
		})
	}
	return g.Wait()
}

// countNew returns how many machines in next are absent from prev.
func countNew(prev, next []*fsm.Machine) int {
	have := make(map[*fsm.Machine]bool, len(prev))
	for _, m := range prev {
		have[m] = true
	}
	n := 0
	for _, m := range next {
		if !have[m] {
			n++
		}
	}
	return n
}

type callerKey struct{}

// withCallerRef marks ctx as running inside the resolution of ref.
func withCallerRef(ctx context.Context, ref string) context.Context {
	return context.WithValue(ctx, callerKey{}, ref)
}

func callerRef(ctx context.Context) string {
	ref, _ := ctx.Value(callerKey{}).(string)
	return ref
}
