package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/animfsm/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [ref]",
		Short: "Show recorded sync runs",
		Long: `Show the sync runs recorded by "run --db", oldest first.

Each run lists the machine ref, the config hash it applied and how many
states and actions changed. Nested machines synced by the same run share
its run id.

Examples:
  animfsm history --db ./anim.db
  animfsm history --db ./anim.db door --limit 5
  animfsm history --db ./anim.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			return runHistory(opts, ref, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "show at most this many of the newest runs (0 for all)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, ref string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return commandError(formatter, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	runs, err := st.ListSyncs(ctx, ref, opts.Limit)
	if err != nil {
		return commandError(formatter, ErrCodeDatabase, "failed to read history", err)
	}

	if formatter.JSON() {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No sync runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRUN\tREF\tHASH\tSTATES\tACTIONS\tERROR")
	for _, run := range runs {
		rep := run.Report
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t+%d -%d\t+%d -%d ~%d\t%s\n",
			run.Seq, shortID(run.RunID), run.Ref, shortHash(run.Hash),
			rep.StatesAdded, rep.StatesRemoved,
			rep.ActionsAdded, rep.ActionsRemoved, rep.ActionsSkipped,
			run.Error)
	}
	return tw.Flush()
}

// shortID keeps the random tail of a UUIDv7, which is what tells runs apart.
func shortID(id string) string {
	if len(id) > 12 {
		return id[len(id)-12:]
	}
	return id
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
