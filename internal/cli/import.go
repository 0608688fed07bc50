package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/animfsm/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
	Prune    bool // delete stored configs that are no longer in the directory
}

// ImportResult reports what an import changed.
type ImportResult struct {
	Changed   []string `json:"changed"`
	Unchanged []string `json:"unchanged"`
	Deleted   []string `json:"deleted,omitempty"`
	Clips     int      `json:"clips"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <config-dir>",
		Short: "Store a config directory in SQLite",
		Long: `Store every machine and clip config of a directory in a SQLite database.

Configs are content-hashed: re-importing an unchanged file does not bump
its revision. The database can then serve "run --db" without the files.

Example:
  animfsm import --db ./anim.db ./configs
  animfsm import --db ./anim.db ./configs --prune`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().BoolVar(&opts.Prune, "prune", false, "delete stored machines missing from the directory")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runImport(opts *ImportOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, loadErrs := LoadConfigs(dir)
	if len(loadErrs) > 0 {
		le := firstLoadError(loadErrs[0])
		return commandError(formatter, le.Code, le.Message, nil)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return commandError(formatter, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := importConfigs(ctx, st, loaded, opts.Prune, formatter)
	if err != nil {
		return commandError(formatter, ErrCodeDatabase, "import failed", err)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	w := formatter.Writer
	for _, ref := range result.Changed {
		fmt.Fprintf(w, "  + %s\n", ref)
	}
	for _, ref := range result.Deleted {
		fmt.Fprintf(w, "  - %s\n", ref)
	}
	fmt.Fprintf(w, "✓ Imported %d machine(s) (%d changed), %d clip(s)\n",
		len(result.Changed)+len(result.Unchanged), len(result.Changed), result.Clips)
	return nil
}

// importConfigs writes loaded into st. With prune, stored refs missing
// from loaded are deleted.
func importConfigs(ctx context.Context, st *store.Store, loaded *LoadResult, prune bool, formatter *OutputFormatter) (*ImportResult, error) {
	result := &ImportResult{Changed: []string{}, Unchanged: []string{}}
	for _, ref := range loaded.Refs {
		changed, err := st.PutConfig(ctx, ref, loaded.Configs[ref])
		if err != nil {
			return nil, err
		}
		if changed {
			formatter.VerboseLog("stored %s", ref)
			result.Changed = append(result.Changed, ref)
		} else {
			result.Unchanged = append(result.Unchanged, ref)
		}
	}
	for _, clip := range loaded.Clips {
		if _, err := st.PutClip(ctx, clip); err != nil {
			return nil, err
		}
		result.Clips++
	}

	if !prune {
		return result, nil
	}
	stored, err := st.Refs(ctx)
	if err != nil {
		return nil, err
	}
	for _, ref := range stored {
		if _, ok := loaded.Configs[ref]; ok {
			continue
		}
		if _, err := st.DeleteConfig(ctx, ref); err != nil {
			return nil, err
		}
		result.Deleted = append(result.Deleted, ref)
	}
	return result, nil
}
