package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/datalib/internal/expr"
	"github.com/roach88/datalib/internal/store"
)

var (
	// ErrParse marks documents that are not valid YAML or carry unknown fields.
	ErrParse = errors.New("failed to parse YAML")

	// ErrInvalid marks documents that parse but fail Validate.
	ErrInvalid = errors.New("invalid pipeline")
)

// Pipeline is a parsed pipeline document.
type Pipeline struct {
	// Name identifies the pipeline in logs and run history.
	Name string `yaml:"name"`

	Description string `yaml:"description,omitempty"`

	// Columns makes inline rows a named collection. Omit for positional rows.
	Columns []string `yaml:"columns,omitempty"`

	// Rows holds inline data. Mutually exclusive with Source.
	Rows [][]any `yaml:"rows,omitempty"`

	// Source loads data from SQLite. The result is always named.
	Source *Source `yaml:"source,omitempty"`

	Steps []Step `yaml:"steps"`

	Output *Output `yaml:"output,omitempty"`
}

// Source is a SQLite query.
type Source struct {
	SQLite string `yaml:"sqlite"`
	Query  string `yaml:"query"`
}

// Output is the SQLite table a result is saved to.
type Output struct {
	SQLite string `yaml:"sqlite"`
	Table  string `yaml:"table"`
}

// Step is one transformation. Exactly one field is set.
type Step struct {
	// Filter is a boolean calculation; rows for which it is false are dropped.
	Filter string `yaml:"filter,omitempty"`

	// Group groups adjacent rows by a column name or index.
	Group *GroupKey `yaml:"group,omitempty"`

	Calculated *Calculated `yaml:"calculated,omitempty"`
	Formatted  *Formatted  `yaml:"formatted,omitempty"`
}

// Calculated derives a column from a calculation.
type Calculated struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
}

// Formatted derives a text column from a template.
type Formatted struct {
	Name   string `yaml:"name"`
	Format string `yaml:"format"`
}

// GroupKey is a column name or a column index.
type GroupKey struct {
	Name  string
	Index int
}

// UnmarshalYAML accepts a scalar: digits select an index, anything else a
// name.
func (k *GroupKey) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: group must be a column name or index", node.Line)
	}
	k.Name, k.Index = "", -1
	if n, err := strconv.Atoi(node.Value); err == nil && n >= 0 {
		k.Index = n
		return nil
	}
	k.Name = node.Value
	return nil
}

// MarshalYAML writes the key back as a scalar.
func (k GroupKey) MarshalYAML() (any, error) {
	if k.Index >= 0 {
		return k.Index, nil
	}
	return k.Name, nil
}

// String returns the name or the index.
func (k GroupKey) String() string {
	if k.Index >= 0 {
		return strconv.Itoa(k.Index)
	}
	return k.Name
}

// Kind names the step type.
func (s Step) Kind() string {
	switch {
	case s.Filter != "":
		return "filter"
	case s.Group != nil:
		return "group"
	case s.Calculated != nil:
		return "calculated"
	case s.Formatted != nil:
		return "formatted"
	default:
		return "empty"
	}
}

// Load reads, parses and validates a pipeline document. Unknown fields are
// rejected. Relative SQLite paths are resolved against the document's
// directory.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, err
	}
	p.resolvePaths(filepath.Dir(path))

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return p, nil
}

// Parse decodes a pipeline document without validating it.
func Parse(data []byte) (*Pipeline, error) {
	var p Pipeline
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return &p, nil
}

func (p *Pipeline) resolvePaths(base string) {
	resolve := func(path string) string {
		if path == "" || path == ":memory:" || filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(base, path)
	}
	if p.Source != nil {
		p.Source.SQLite = resolve(p.Source.SQLite)
	}
	if p.Output != nil {
		p.Output.SQLite = resolve(p.Output.SQLite)
	}
}

// Validate checks the document's structure and compiles every expression.
// Column references are not checked; they resolve when the pipeline runs.
// All problems are reported together.
func (p *Pipeline) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if p.Name == "" {
		fail("name is required")
	}

	switch {
	case p.Source != nil && p.Rows != nil:
		fail("rows and source are mutually exclusive")
	case p.Source != nil:
		if p.Source.SQLite == "" {
			fail("source: sqlite is required")
		}
		if p.Source.Query == "" {
			fail("source: query is required")
		}
		if p.Columns != nil {
			fail("columns cannot be combined with source; they come from the query")
		}
	case p.Rows == nil:
		fail("one of rows or source is required")
	}

	for i, step := range p.Steps {
		if err := validateStep(step, p.Columns != nil || p.Source != nil); err != nil {
			fail("steps[%d]: %w", i, err)
		}
	}

	if p.Output != nil {
		if p.Output.SQLite == "" {
			fail("output: sqlite is required")
		}
		if p.Output.Table == "" {
			fail("output: table is required")
		} else if err := store.CheckTable(p.Output.Table); err != nil {
			fail("output: %w", err)
		}
	}

	return errors.Join(errs...)
}

func validateStep(s Step, named bool) error {
	set := 0
	for _, ok := range []bool{s.Filter != "", s.Group != nil, s.Calculated != nil, s.Formatted != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one of filter, group, calculated or formatted is required")
	}

	switch {
	case s.Filter != "":
		if _, err := expr.Compile(s.Filter); err != nil {
			return fmt.Errorf("filter: %w", err)
		}
	case s.Group != nil:
		if s.Group.Name == "" && s.Group.Index < 0 {
			return fmt.Errorf("group: column is required")
		}
		if !named && s.Group.Index < 0 {
			return fmt.Errorf("group: positional rows group by index, got %q", s.Group.Name)
		}
	case s.Calculated != nil:
		if named && s.Calculated.Name == "" {
			return fmt.Errorf("calculated: name is required")
		}
		if _, err := expr.Compile(s.Calculated.Expr); err != nil {
			return fmt.Errorf("calculated %q: %w", s.Calculated.Name, err)
		}
	case s.Formatted != nil:
		if named && s.Formatted.Name == "" {
			return fmt.Errorf("formatted: name is required")
		}
		if _, err := expr.ParseTemplate(s.Formatted.Format); err != nil {
			return fmt.Errorf("formatted %q: %w", s.Formatted.Name, err)
		}
	}
	return nil
}
