package fsm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Built-in action type tags.
const (
	TypeEmit   = "emit"
	TypeLog    = "log"
	TypeScript = "script"
)

// EmitAction sends an event once per activation of its state, either on
// enter or after a delay measured from the enter time.
type EmitAction struct {
	id        string
	event     EventID
	delay     float64
	enteredAt float64
	sent      bool
}

// NewEmitAction creates an unconfigured emit action.
func NewEmitAction(id string) *EmitAction {
	return &EmitAction{id: id}
}

func (a *EmitAction) ID() string { return a.id }

// Configure reads "event" (required) and "delay" (seconds, default 0).
func (a *EmitAction) Configure(opts map[string]any) error {
	event, err := OptString(opts, "event", "")
	if err != nil {
		return invalidOptions(a.id, err)
	}
	if event == "" {
		return invalidOptions(a.id, fmt.Errorf("option %q is required", "event"))
	}
	delay, err := OptFloat(opts, "delay", 0)
	if err != nil {
		return invalidOptions(a.id, err)
	}
	if delay < 0 {
		return invalidOptions(a.id, fmt.Errorf("option %q must be >= 0", "delay"))
	}
	a.event = EventID(event)
	a.delay = delay
	return nil
}

func (a *EmitAction) OnEnter(ctx *Context) {
	a.enteredAt = ctx.Time
	a.sent = false
	if a.delay == 0 {
		a.sent = true
		ctx.Send(a.event)
	}
}

func (a *EmitAction) OnUpdate(ctx *Context) {
	if a.sent || ctx.Time-a.enteredAt < a.delay {
		return
	}
	a.sent = true
	ctx.Send(a.event)
}

func (a *EmitAction) OnExit(*Context) {}

// LogAction writes a structured log line when its state is entered.
type LogAction struct {
	id      string
	message string
	level   slog.Level
}

// NewLogAction creates an unconfigured log action.
func NewLogAction(id string) *LogAction {
	return &LogAction{id: id, level: slog.LevelInfo}
}

func (a *LogAction) ID() string { return a.id }

// Configure reads "message" and "level" (debug|info|warn|error).
func (a *LogAction) Configure(opts map[string]any) error {
	msg, err := OptString(opts, "message", "")
	if err != nil {
		return invalidOptions(a.id, err)
	}
	lvl, err := OptString(opts, "level", "info")
	if err != nil {
		return invalidOptions(a.id, err)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(lvl))); err != nil {
		return invalidOptions(a.id, err)
	}
	a.message = msg
	a.level = level
	return nil
}

func (a *LogAction) OnEnter(ctx *Context) {
	machine := ""
	if ctx.Machine != nil {
		machine = ctx.Machine.Name()
	}
	state := ""
	if ctx.State != nil {
		state = string(ctx.State.ID())
	}
	ctx.Logger.Log(context.Background(), a.level, a.message,
		"action", a.id,
		"machine", machine,
		"state", state,
		"time", ctx.Time,
	)
}

func (a *LogAction) OnUpdate(*Context) {}
func (a *LogAction) OnExit(*Context)   {}
