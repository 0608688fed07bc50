package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/animfsm/internal/anim"
	"github.com/roach88/animfsm/internal/config"
	"github.com/roach88/animfsm/internal/engine"
	"github.com/roach88/animfsm/internal/loader"
	"github.com/roach88/animfsm/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database         string
	Machine          string
	Overlays         []string
	Duration         time.Duration
	UpdateRate       float64
	PruneTransitions bool
	NoWatch          bool

	// Clock overrides the wall clock (for testing).
	Clock anim.Clock
}

// RunSummary is printed when the runtime stops.
type RunSummary struct {
	Machine  string                `json:"machine"`
	Layers   map[string]string     `json:"layers"` // layer -> active state
	Joints   map[string][3]float64 `json:"joints"`
	Machines []string              `json:"machines"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <config-dir>",
		Short: "Run machines with hot reload",
		Long: `Bind a machine to the base animation layer and run it until interrupted.

Config files in the directory are watched: an edited file is resynced into
the running graph as a minimal diff, and a deleted file removes its machine.
With --db the directory is first imported into the database, which then
serves configs and records every sync run.

Example:
  animfsm run ./configs --machine door
  animfsm run ./configs --machine body --overlay face --db ./anim.db
  animfsm run ./configs --machine door --duration 5s --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuntime(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (optional)")
	cmd.Flags().StringVarP(&opts.Machine, "machine", "m", "", "machine ref for the base layer (required)")
	cmd.Flags().StringSliceVar(&opts.Overlays, "overlay", nil, "machine refs for additive layers above the base")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().Float64Var(&opts.UpdateRate, "update-rate", anim.DefaultUpdateRate, "seconds between animation updates (0 updates every tick)")
	cmd.Flags().BoolVar(&opts.PruneTransitions, "prune-transitions", false, "drop transitions removed from config on resync")
	cmd.Flags().BoolVar(&opts.NoWatch, "no-watch", false, "disable hot reload")
	_ = cmd.MarkFlagRequired("machine")

	return cmd
}

func runRuntime(opts *RunOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if opts.UpdateRate < 0 {
		return commandError(formatter, ErrCodeGeneric, "--update-rate must be >= 0", nil)
	}
	dirSrc, err := loader.NewDirSource(dir)
	if err != nil {
		return commandError(formatter, ErrCodeNotFound, fmt.Sprintf("config directory not found: %s", dir), err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		source config.Source = dirSrc
		clips  *anim.ClipLibrary
		st     *store.Store
	)
	if opts.Database != "" {
		logger.Info("opening database", "path", opts.Database)
		if st, err = store.Open(opts.Database); err != nil {
			return commandError(formatter, ErrCodeDatabase, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		loaded, loadErrs := LoadConfigs(dir)
		if len(loadErrs) > 0 {
			le := firstLoadError(loadErrs[0])
			return commandError(formatter, le.Code, le.Message, nil)
		}
		if _, err := importConfigs(ctx, st, loaded, false, formatter); err != nil {
			return commandError(formatter, ErrCodeDatabase, "import failed", err)
		}
		source = st
		clips, err = storedClips(ctx, st)
	} else {
		clips, err = loader.LoadClips(dir)
	}
	if err != nil {
		return commandError(formatter, ErrCodeLoadFailed, "failed to load clips", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = engine.NewWallClock()
	}
	runtimeOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithPruneTransitions(opts.PruneTransitions),
	}
	if st != nil {
		runtimeOpts = append(runtimeOpts, engine.WithHistory(st))
	}
	rt := engine.New(source, nil, clock, runtimeOpts...)

	pose := anim.NewSkeletonPose()
	mgr := rt.NewManager(
		anim.WithUpdateRate(opts.UpdateRate),
		anim.WithClips(clips),
		anim.WithPose(pose),
	)

	layers := []*anim.Layer{mgr.BaseLayer()}
	refs := []string{opts.Machine}
	for _, ref := range opts.Overlays {
		layers = append(layers, mgr.AddLayer(ref, anim.BlendAdditive, 1))
		refs = append(refs, ref)
	}
	for i, layer := range layers {
		m, err := rt.Bind(ctx, layer, refs[i])
		if m == nil {
			return commandError(formatter, ErrCodeNotFound, fmt.Sprintf("machine %q did not resolve", refs[i]), err)
		}
		if err != nil {
			logger.Warn("machine bound with errors", "ref", refs[i], "error", err)
		}
		if err := layer.Start(); err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("start %q", refs[i]), err)
		}
	}

	var reloads <-chan string
	if !opts.NoWatch {
		w, err := loader.NewWatcher(dir)
		if err != nil {
			return commandError(formatter, ErrCodeGeneric, "failed to watch config directory", err)
		}
		defer w.Close()
		reloads = forwardReloads(ctx, w, dirSrc, st, logger)
	}

	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	if !formatter.JSON() {
		fmt.Fprintf(formatter.Writer, "Running %s. Press Ctrl-C to stop.\n", opts.Machine)
	}
	if err := rt.Run(ctx, reloads); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "runtime error", err)
	}
	logger.Info("runtime stopped")

	summary := summarize(opts.Machine, rt, layers, pose)
	if formatter.JSON() {
		return formatter.Success(summary)
	}
	printSummary(formatter, summary)
	return nil
}

// forwardReloads turns watcher events into reload requests. With a store,
// the changed file is written to it first and unchanged content is not
// forwarded.
func forwardReloads(ctx context.Context, w *loader.Watcher, src *loader.DirSource, st *store.Store, logger *slog.Logger) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		errs := w.Errors
		for {
			select {
			case ref, ok := <-w.Events:
				if !ok {
					return
				}
				if st != nil {
					changed, err := syncStoredRef(ctx, st, src, ref)
					if err != nil {
						logger.Error("config import failed", "ref", ref, "error", err)
						continue
					}
					if !changed {
						continue
					}
				}
				select {
				case out <- ref:
				case <-ctx.Done():
					return
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				logger.Warn("watcher error", "error", err)
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// syncStoredRef mirrors one config file into st, deleting the stored
// config when the file is gone.
func syncStoredRef(ctx context.Context, st *store.Store, src *loader.DirSource, ref string) (bool, error) {
	cfg, err := src.GetConfig(ctx, ref)
	if errors.Is(err, config.ErrNotFound) {
		return st.DeleteConfig(ctx, ref)
	}
	if err != nil {
		return false, err
	}
	return st.PutConfig(ctx, ref, cfg)
}

func storedClips(ctx context.Context, st *store.Store) (*anim.ClipLibrary, error) {
	cfgs, err := st.Clips(ctx)
	if err != nil {
		return nil, err
	}
	lib := anim.NewClipLibrary()
	for _, cfg := range cfgs {
		clip, err := loader.BuildClip(cfg)
		if err != nil {
			return nil, err
		}
		lib.Add(clip)
	}
	return lib, nil
}

func summarize(machine string, rt *engine.Runtime, layers []*anim.Layer, pose *anim.SkeletonPose) RunSummary {
	s := RunSummary{
		Machine:  machine,
		Layers:   make(map[string]string, len(layers)),
		Joints:   make(map[string][3]float64),
		Machines: rt.Reconciler().Refs(),
	}
	for _, l := range layers {
		state := ""
		if cur := l.CurrentState(); cur != nil {
			state = string(cur.ID())
		}
		s.Layers[l.Name()] = state
	}
	for name, t := range pose.Snapshot() {
		s.Joints[name] = t.Translation
	}
	return s
}

func printSummary(f *OutputFormatter, s RunSummary) {
	w := f.Writer
	fmt.Fprintln(w, "Layers:")
	names := make([]string, 0, len(s.Layers))
	for name := range s.Layers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-12s %s\n", name, s.Layers[name])
	}
	if len(s.Joints) > 0 {
		fmt.Fprintln(w, "Joints:")
		joints := make([]string, 0, len(s.Joints))
		for name := range s.Joints {
			joints = append(joints, name)
		}
		sort.Strings(joints)
		for _, name := range joints {
			t := s.Joints[name]
			fmt.Fprintf(w, "  %-12s [%g %g %g]\n", name, t[0], t[1], t[2])
		}
	}
	fmt.Fprintf(w, "Live machines: %v\n", s.Machines)
}
