package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/datalib/internal/collection"
	"github.com/roach88/datalib/internal/store"
	"github.com/roach88/datalib/internal/txn"
)

// Result is the outcome of a successful run.
type Result struct {
	Pipeline   string
	TxID       string
	Collection *collection.Collection

	// Run is set when the pipeline has an output.
	Run *store.Run
}

// Runner executes pipelines.
type Runner struct {
	logger *slog.Logger
	ids    txn.IDGenerator
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger passed to every transaction.
// Default: slog.Default().
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithIDGenerator sets the transaction ID source.
// Default: txn.UUIDv7Generator.
func WithIDGenerator(g txn.IDGenerator) RunnerOption {
	return func(r *Runner) {
		if g != nil {
			r.ids = g
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		logger: slog.Default(),
		ids:    txn.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run loads the input, commits every step in one transaction and saves the
// result if the pipeline has an output. A commit that cannot resolve its
// dependencies returns a *txn.DependencyResolutionError.
func (r *Runner) Run(ctx context.Context, p *Pipeline) (*Result, error) {
	log := r.logger.With("pipeline", p.Name)
	txOpts := collection.WithTransactionOptions(txn.WithLogger(log), txn.WithIDGenerator(r.ids))

	c, err := r.input(ctx, p, txOpts)
	if err != nil {
		return nil, err
	}
	log.Debug("input loaded", "rows", c.Len())

	err = c.Transact(func(c *collection.Collection) error {
		for i, step := range p.Steps {
			if err := stage(c, step); err != nil {
				return fmt.Errorf("steps[%d] (%s): %w", i, step.Kind(), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", p.Name, err)
	}

	res := &Result{Pipeline: p.Name, TxID: c.Transaction().ID(), Collection: c}
	log.Info("pipeline committed", "tx", res.TxID, "steps", len(p.Steps), "rows", c.Len())

	if p.Output == nil {
		return res, nil
	}
	run, err := r.save(ctx, p, res)
	if err != nil {
		return nil, err
	}
	res.Run = &run
	log.Info("output saved", "table", run.OutputTable, "seq", run.Seq, "hash", run.ContentHash)
	return res, nil
}

func (r *Runner) input(ctx context.Context, p *Pipeline, txOpts collection.Option) (*collection.Collection, error) {
	if p.Source != nil {
		s, err := store.Open(p.Source.SQLite)
		if err != nil {
			return nil, fmt.Errorf("open source: %w", err)
		}
		defer s.Close()
		return s.LoadCollection(ctx, p.Source.Query, txOpts)
	}

	var (
		c   *collection.Collection
		err error
	)
	if p.Columns != nil {
		c, err = collection.NewNamed(p.Columns, p.Rows, txOpts)
	} else {
		c, err = collection.New(p.Rows, txOpts)
	}
	if err != nil {
		return nil, fmt.Errorf("inline rows: %w", err)
	}
	return c, nil
}

func (r *Runner) save(ctx context.Context, p *Pipeline, res *Result) (store.Run, error) {
	s, err := store.Open(p.Output.SQLite)
	if err != nil {
		return store.Run{}, fmt.Errorf("open output: %w", err)
	}
	defer s.Close()
	return s.RecordRun(ctx, p.Name, res.TxID, p.Output.Table, res.Collection)
}

func stage(c *collection.Collection, step Step) error {
	switch {
	case step.Filter != "":
		return c.Where(step.Filter)
	case step.Group != nil:
		return c.Group(groupFor(c, *step.Group))
	case step.Calculated != nil:
		return c.AddCalculatedColumn(step.Calculated.Name, step.Calculated.Expr)
	case step.Formatted != nil:
		return c.AddFormattedColumn(step.Formatted.Name, step.Formatted.Format)
	default:
		return fmt.Errorf("empty step")
	}
}

// groupFor prefers a column name over an index, so a named column called
// "2" groups by name.
func groupFor(c *collection.Collection, k GroupKey) txn.Group {
	if k.Index < 0 {
		return txn.ByName(k.Name)
	}
	name := k.String()
	for _, n := range c.Names() {
		if n == name {
			return txn.ByName(name)
		}
	}
	return txn.ByIndex(k.Index)
}
