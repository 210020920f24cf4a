package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Table    string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List pipeline runs saved to a database",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Table, "table", "", "only runs saved to this table")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	s, err := openExisting(opts.Database)
	if err != nil {
		return fail(f, err)
	}
	defer s.Close()

	runs, err := s.Runs(cmd.Context(), opts.Table)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, err, nil)
	}

	if f.Format == "json" {
		return f.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(f.Writer, "no runs recorded")
		return nil
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tPIPELINE\tTABLE\tROWS\tGROUPS\tTX\tHASH")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\t%.12s\n",
			r.Seq, r.Pipeline, r.OutputTable, r.RowCount, r.GroupCount, r.TxID, r.ContentHash)
	}
	return tw.Flush()
}
