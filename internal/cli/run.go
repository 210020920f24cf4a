package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/datalib/internal/pipeline"
	"github.com/roach88/datalib/internal/render"
	"github.com/roach88/datalib/internal/txn"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	OutputDB string
	Table    string

	// IDs allows overriding the transaction ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs txn.IDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <pipeline.yaml>",
		Short: "Run a pipeline and print the result",
		Long: `Load a pipeline document, commit all of its steps in one transaction
and print the resulting collection.

If the document has an output, or --output-db is given, the result is saved
to SQLite and the run is recorded in the database's run history.

Example:
  datalib run sales.yaml
  datalib run sales.yaml --format json --output-db out.db --table report`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.OutputDB, "output-db", "", "save the result to this SQLite database")
	cmd.Flags().StringVar(&opts.Table, "table", "", "output table (default: the document's output table or its name)")

	return cmd
}

func runPipeline(opts *RunOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(f.Diagnostics(), opts.Verbose)

	p, err := pipeline.Load(path)
	if err != nil {
		return fail(f, err)
	}
	if err := applyOutputFlags(p, opts); err != nil {
		return fail(f, err)
	}
	f.VerboseLog("Loaded pipeline %s (%d steps)", p.Name, len(p.Steps))

	runner := pipeline.NewRunner(pipeline.WithLogger(logger), pipeline.WithIDGenerator(opts.IDs))
	res, err := runner.Run(cmd.Context(), p)
	if err != nil {
		return fail(f, err)
	}

	if f.Format == "json" {
		snap, err := pipeline.Snapshot(res)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeRenderFailed, err, nil)
		}
		return f.SuccessTx(res.TxID, json.RawMessage(snap))
	}

	if err := render.Text(f.Writer, res.Collection); err != nil {
		return f.Fail(ExitCommandError, ErrCodeRenderFailed, err, nil)
	}
	fmt.Fprintf(f.Writer, "\n%s: %s (tx %s)\n", p.Name, render.Summary(res.Collection), res.TxID)
	if res.Run != nil {
		fmt.Fprintf(f.Writer, "saved to %s (run %d, hash %.12s)\n", res.Run.OutputTable, res.Run.Seq, res.Run.ContentHash)
	}
	return nil
}

// applyOutputFlags lets flags override or add the document's output. The
// document is validated again since the flags can name any table.
func applyOutputFlags(p *pipeline.Pipeline, opts *RunOptions) error {
	if opts.OutputDB == "" && opts.Table == "" {
		return nil
	}
	if p.Output == nil {
		p.Output = &pipeline.Output{}
	}
	if opts.OutputDB != "" {
		p.Output.SQLite = opts.OutputDB
	}
	if opts.Table != "" {
		p.Output.Table = opts.Table
	}
	if p.Output.Table == "" {
		p.Output.Table = p.Name
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrInvalid, err)
	}
	return nil
}
