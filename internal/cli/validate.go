package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/datalib/internal/pipeline"
)

// ValidationResult is the JSON payload of a successful validate.
type ValidationResult struct {
	Valid bool     `json:"valid"`
	Name  string   `json:"name"`
	Steps []string `json:"steps"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <pipeline.yaml>",
		Short: "Check a pipeline document without running it",
		Long: `Parse a pipeline document, check its structure and compile every
expression and template. Column references are not resolved; that happens
when the pipeline runs.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	p, err := pipeline.Load(path)
	if err != nil {
		return fail(f, err)
	}

	kinds := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		kinds[i] = s.Kind()
		f.VerboseLog("steps[%d]: %s", i, kinds[i])
	}

	if f.Format == "json" {
		return f.Success(ValidationResult{Valid: true, Name: p.Name, Steps: kinds})
	}
	fmt.Fprintf(f.Writer, "✓ %s is valid (%d steps)\n", p.Name, len(p.Steps))
	return nil
}
