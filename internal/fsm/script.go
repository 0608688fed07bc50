package fsm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// scriptHooks are the optional lifecycle functions a script may define.
// Each is called as hook(api, vars).
var scriptHooks = []string{"on_enter", "on_update", "on_exit"}

// hookDefinition matches a hook declared with := at the start of a line.
var hookDefinition = regexp.MustCompile(`(?m)^([ \t]*)(on_enter|on_update|on_exit)([ \t]*):=`)

const scriptDispatch = `
if __phase == "enter" {
	on_enter(__api, __vars)
} else if __phase == "update" {
	on_update(__api, __vars)
} else if __phase == "exit" {
	on_exit(__api, __vars)
}
`

// ScriptAction runs a tengo script on state lifecycle events.
//
// The script may define on_enter, on_update and on_exit, each receiving an
// api map (emit, time, state, machine) and a vars map that persists for the
// lifetime of the action, including across re-configuration.
type ScriptAction struct {
	id       string
	source   string
	compiled *tengo.Compiled
	vars     *tengo.Map
}

// NewScriptAction creates an unconfigured script action.
func NewScriptAction(id string) *ScriptAction {
	return &ScriptAction{
		id:   id,
		vars: &tengo.Map{Value: map[string]tengo.Object{}},
	}
}

func (a *ScriptAction) ID() string { return a.id }

// Configure compiles the "source" option. Unchanged source is a no-op; a
// compile failure keeps the previously compiled program.
func (a *ScriptAction) Configure(opts map[string]any) error {
	src, err := OptString(opts, "source", "")
	if err != nil {
		return invalidOptions(a.id, err)
	}
	if strings.TrimSpace(src) == "" {
		return invalidOptions(a.id, fmt.Errorf("option %q is required", "source"))
	}
	if a.compiled != nil && src == a.source {
		return nil
	}

	compiled, err := compileScript(src)
	if err != nil {
		return invalidOptions(a.id, err)
	}
	a.source = src
	a.compiled = compiled
	return nil
}

// Vars exposes the persistent script variables.
func (a *ScriptAction) Vars() map[string]any {
	out := make(map[string]any, len(a.vars.Value))
	for k, v := range a.vars.Value {
		out[k] = tengo.ToInterface(v)
	}
	return out
}

func (a *ScriptAction) OnEnter(ctx *Context)  { a.run(ctx, "enter") }
func (a *ScriptAction) OnUpdate(ctx *Context) { a.run(ctx, "update") }
func (a *ScriptAction) OnExit(ctx *Context)   { a.run(ctx, "exit") }

func (a *ScriptAction) run(ctx *Context, phase string) {
	if a.compiled == nil {
		return
	}
	if err := a.runPhase(ctx, phase); err != nil {
		ctx.Logger.Warn("script action failed",
			"action", a.id,
			"phase", phase,
			"error", err,
		)
	}
}

func (a *ScriptAction) runPhase(ctx *Context, phase string) error {
	if err := a.compiled.Set("__phase", phase); err != nil {
		return err
	}
	if err := a.compiled.Set("__api", buildScriptAPI(ctx)); err != nil {
		return err
	}
	if err := a.compiled.Set("__vars", a.vars); err != nil {
		return err
	}
	return a.compiled.Run()
}

func compileScript(src string) (*tengo.Compiled, error) {
	// Every hook is pre-declared as a no-op, so the script's own
	// declarations become assignments.
	var b strings.Builder
	for _, hook := range scriptHooks {
		fmt.Fprintf(&b, "%s := func(api, vars) {}\n", hook)
	}
	src = hookDefinition.ReplaceAllString(src, "${1}${2}${3}=")
	b.WriteString(src)
	b.WriteString("\n")
	b.WriteString(scriptDispatch)

	script := tengo.NewScript([]byte(b.String()))
	_ = script.Add("__phase", "")
	_ = script.Add("__api", map[string]any{})
	_ = script.Add("__vars", map[string]any{})
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	return script.Compile()
}

func buildScriptAPI(ctx *Context) *tengo.ImmutableMap {
	values := map[string]tengo.Object{
		"time": &tengo.Float{Value: ctx.Time},
	}
	if ctx.State != nil {
		values["state"] = &tengo.String{Value: string(ctx.State.ID())}
	}
	if ctx.Machine != nil {
		values["machine"] = &tengo.String{Value: ctx.Machine.Name()}
	}
	values["emit"] = &tengo.UserFunction{Name: "emit", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return tengo.FalseValue, nil
		}
		name, ok := tengo.ToString(args[0])
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return tengo.FalseValue, nil
		}
		ctx.Send(EventID(name))
		return tengo.TrueValue, nil
	}}
	return &tengo.ImmutableMap{Value: values}
}
