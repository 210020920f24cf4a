package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/datalib/internal/render"
	"github.com/roach88/datalib/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
	Query    string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the result of a SQLite query as a collection",
		Long: `Run a query against a SQLite database and print the rows the way run
prints a pipeline result.

Example:
  datalib show --db out.db --query "SELECT * FROM report"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Query, "query", "", "SQL query (required)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	s, err := openExisting(opts.Database)
	if err != nil {
		return fail(f, err)
	}
	defer s.Close()

	c, err := s.LoadCollection(cmd.Context(), opts.Query)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, err, nil)
	}
	f.VerboseLog("Loaded %d rows", c.Len())

	if f.Format == "json" {
		data, err := render.JSON(c)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeRenderFailed, err, nil)
		}
		return f.Success(json.RawMessage(data))
	}
	return render.Text(f.Writer, c)
}

// openExisting opens a database that must already exist; store.Open would
// create an empty one.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database %s: %w", path, err)
	}
	return store.Open(path)
}
