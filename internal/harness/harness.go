package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/animfsm/internal/anim"
	"github.com/roach88/animfsm/internal/config"
	"github.com/roach88/animfsm/internal/engine"
	"github.com/roach88/animfsm/internal/fsm"
	"github.com/roach88/animfsm/internal/loader"
	"github.com/roach88/animfsm/internal/store"
	"github.com/roach88/animfsm/internal/testutil"
)

// Harness executes one scenario against a real engine.Runtime with a manual
// clock and sequential run ids.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	runtime  *engine.Runtime
	inline   *config.MapSource // nil when configs come from ConfigDir
	clock    *testutil.ManualClock
	manager  *anim.Manager
	pose     *anim.SkeletonPose
	layers   map[string]*anim.Layer
	lastSeq  int64
	result   *Result
}

// Run executes a scenario and returns the result.
//
// Each scenario runs on a fresh in-memory database for isolation. Errors
// are returned for scenarios that cannot run at all (bad clips, a layer
// machine that does not resolve); assertion failures go into the result.
//
// Execution flow:
//  1. Build the config source, clip library and runtime
//  2. Bind every layer to its machine ref
//  3. Execute steps, tracing each one
//  4. Check assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		scenario: scenario,
		store:    st,
		clock:    testutil.NewManualClock(0),
		pose:     anim.NewSkeletonPose(),
		layers:   make(map[string]*anim.Layer),
		result:   NewResult(),
	}

	source, clips, err := h.sources()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in scenarios
	h.runtime = engine.New(source, nil, h.clock,
		engine.WithHistory(st),
		engine.WithRunIDGenerator(testutil.NewSequenceRunIDGenerator("run")),
		engine.WithLogger(logger),
	)

	rate := anim.DefaultUpdateRate
	if scenario.UpdateRate != nil {
		rate = *scenario.UpdateRate
	}
	h.manager = h.runtime.NewManager(
		anim.WithUpdateRate(rate),
		anim.WithClips(clips),
		anim.WithPose(h.pose),
		anim.WithStrict(scenario.Strict),
	)

	ctx := context.Background()
	if err := h.bindLayers(ctx); err != nil {
		return nil, err
	}

	for i, step := range scenario.Steps {
		if err := h.execute(ctx, step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, a := range scenario.Assertions {
		if err := h.check(a); err != nil {
			h.result.AddFailure(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return h.result, nil
}

// sources returns the config source and clip library for the scenario.
func (h *Harness) sources() (config.Source, *anim.ClipLibrary, error) {
	s := h.scenario
	if s.ConfigDir != "" {
		src, err := loader.NewDirSource(s.ConfigDir)
		if err != nil {
			return nil, nil, fmt.Errorf("config_dir: %w", err)
		}
		clips, err := loader.LoadClips(s.ConfigDir)
		if err != nil {
			return nil, nil, fmt.Errorf("config_dir clips: %w", err)
		}
		return src, clips, nil
	}

	h.inline = config.NewMapSource(s.Configs)
	clips := anim.NewClipLibrary()
	for _, cfg := range s.Clips {
		clip, err := loader.BuildClip(cfg)
		if err != nil {
			return nil, nil, err
		}
		clips.Add(clip)
	}
	return h.inline, clips, nil
}

func (h *Harness) bindLayers(ctx context.Context) error {
	for i, spec := range h.scenario.Layers {
		mode, err := anim.ParseBlendMode(spec.Blend)
		if err != nil {
			return fmt.Errorf("layers[%d]: %w", i, err)
		}
		weight := 1.0
		if spec.Weight != nil {
			weight = *spec.Weight
		}

		var layer *anim.Layer
		if i == 0 {
			layer = h.manager.BaseLayer()
			layer.SetWeight(weight)
		} else {
			layer = h.manager.AddLayer(spec.Name, mode, weight)
		}
		h.layers[spec.Name] = layer

		m, err := h.runtime.Bind(ctx, layer, spec.Machine)
		if m == nil {
			return fmt.Errorf("layers[%d]: bind %q: %w", i, spec.Machine, err)
		}
		ev := TraceEvent{Op: OpBind, Layer: spec.Name, Ref: spec.Machine}
		if err != nil {
			ev.Error = err.Error()
		}
		h.trace(ctx, ev)
	}
	return nil
}

func (h *Harness) execute(ctx context.Context, step Step) error {
	op, err := step.Op()
	if err != nil {
		return err
	}

	ev := TraceEvent{Op: op}
	switch op {
	case OpSync:
		ev.Ref = *step.Sync
		if _, err := h.runtime.Sync(ctx, ev.Ref); err != nil {
			ev.Error = err.Error()
		}

	case OpStart:
		ev.Layer = *step.Start
		if err := h.layers[ev.Layer].Start(); err != nil {
			ev.Error = err.Error()
		}

	case OpSend:
		ev.Layer, ev.Event = step.Send.Layer, step.Send.Event
		fired := h.layers[ev.Layer].Send(fsm.EventID(ev.Event))
		ev.Fired = &fired

	case OpAdvance:
		h.clock.Advance(*step.Advance)

	case OpTick:
		for n := 0; n < *step.Tick; n++ {
			if err := h.tick(); err != nil {
				ev.Error = err.Error()
				h.result.AddFailure(fmt.Sprintf("tick at t=%g: %v", h.clock.Seconds(), err))
				break
			}
		}

	case OpSetConfig:
		ev.Ref = step.SetConfig.Ref
		h.inline.Set(ev.Ref, step.SetConfig.Config)

	case OpRemoveConfig:
		ev.Ref = *step.RemoveConfig
		h.inline.Delete(ev.Ref)
	}

	h.trace(ctx, ev)
	return nil
}

// tick runs one runtime tick, turning a strict-mode violation into an
// error.
func (h *Harness) tick() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if re, ok := r.(*fsm.RuntimeError); ok {
				err = re
				return
			}
			panic(r)
		}
	}()
	h.runtime.Tick()
	return nil
}

// trace stamps ev and appends it, attaching the layer states for steps that
// can move them and any sync runs recorded since the previous event.
func (h *Harness) trace(ctx context.Context, ev TraceEvent) {
	ev.Seq = len(h.result.Trace) + 1
	ev.Time = h.clock.Seconds()

	switch ev.Op {
	case OpBind, OpStart, OpSend, OpTick, OpSync:
		ev.Active = make(map[string]string, len(h.layers))
		for name, l := range h.layers {
			id := ""
			if s := l.CurrentState(); s != nil {
				id = string(s.ID())
			}
			ev.Active[name] = id
		}
	}

	runs, err := h.store.ListSyncs(ctx, "", 0)
	if err != nil {
		ev.Error = err.Error()
	}
	for _, run := range runs {
		if run.Seq <= h.lastSeq {
			continue
		}
		h.lastSeq = run.Seq
		ev.Syncs = append(ev.Syncs, SyncSummary{
			Ref:            run.Ref,
			Run:            run.RunID,
			Changed:        run.Report.Changed(),
			StatesAdded:    run.Report.StatesAdded,
			ActionsAdded:   run.Report.ActionsAdded,
			ActionsSkipped: run.Report.ActionsSkipped,
			Error:          run.Error,
		})
	}

	h.result.Trace = append(h.result.Trace, ev)
}
