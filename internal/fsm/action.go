package fsm

import (
	"log/slog"
	"sort"
	"sync"
)

// Action is a configurable behavior bound to a state's lifecycle.
//
// Concrete kinds are selected by type tag through a Registry. An action keeps
// its identity (and any accumulated internal state) across reconciliation
// passes; re-configuration goes through Configure.
type Action interface {
	ID() string
	Configure(opts map[string]any) error
	OnEnter(ctx *Context)
	OnUpdate(ctx *Context)
	OnExit(ctx *Context)
}

// Env carries per-call inputs into machine lifecycle operations.
type Env struct {
	// Time is the global time in seconds for this call.
	Time float64

	// Host is the runtime object driving the machine, typically an animation
	// layer. Actions type-assert it for host-specific behavior. May be nil.
	Host any

	// Logger receives action and transition logs. Nil means slog.Default().
	Logger *slog.Logger
}

func (e Env) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Context is passed to every action lifecycle call.
type Context struct {
	Machine *Machine
	State   *State
	Time    float64
	Host    any
	Logger  *slog.Logger
}

// Send queues an event on the machine running this action. The event is
// delivered after the current lifecycle call completes.
func (c *Context) Send(event EventID) {
	if c == nil || c.Machine == nil {
		return
	}
	c.Machine.enqueue(event)
}

// Factory constructs a new, unconfigured action with the given id.
type Factory func(id string) Action

// Registry maps action type tags to factories.
//
// Thread-safety: Registry is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds a type tag to a factory, replacing any previous binding.
func (r *Registry) Register(typeTag string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[typeTag] = f
}

// ActionForType returns the factory for typeTag. Unregistered tags return
// false; callers skip them.
func (r *Registry) ActionForType(typeTag string) (Factory, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[typeTag]
	return f, ok
}

// Has reports whether typeTag is registered.
func (r *Registry) Has(typeTag string) bool {
	_, ok := r.ActionForType(typeTag)
	return ok
}

// Types returns the registered type tags in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RegisterBuiltins adds the generic action kinds: emit, log and script.
func RegisterBuiltins(r *Registry) {
	r.Register(TypeEmit, func(id string) Action { return NewEmitAction(id) })
	r.Register(TypeLog, func(id string) Action { return NewLogAction(id) })
	r.Register(TypeScript, func(id string) Action { return NewScriptAction(id) })
}
