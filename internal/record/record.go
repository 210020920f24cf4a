package record

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

// Kind distinguishes positional rows from name-keyed rows.
type Kind int

const (
	// Positional rows are addressed by column index.
	Positional Kind = iota
	// Named rows are addressed by column name.
	Named
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Positional:
		return "positional"
	case Named:
		return "named"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var (
	// ErrIndexOutOfRange is returned when a column index is not present in a row.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNoSuchField is returned when a column name is not present in a row.
	ErrNoSuchField = errors.New("no such field")
)

// Source is the read side of a row store.
type Source interface {
	Len() int
	At(i int) (View, error)
	All() iter.Seq[View]
}

// View is a read-only accessor over one row.
type View interface {
	Kind() Kind

	// Len returns the number of values in the row.
	Len() int

	// Index returns the value in column i. Named views resolve i through
	// their column order.
	Index(i int) (any, error)

	// Field returns the value of the named column. Positional views have no
	// names and always fail with ErrNoSuchField.
	Field(name string) (any, error)

	// Values returns a copy of the row in column order.
	Values() []any

	// Children returns the group members attached to this row, or nil.
	Children() Source

	Hash() uint32
	Equal(other View) bool
}

// Record is a positional row view.
type Record struct {
	values   []any
	children Source
}

// New creates a positional view over a copy of values.
func New(values []any, children Source) *Record {
	return &Record{values: cloneRow(values), children: children}
}

func (r *Record) Kind() Kind       { return Positional }
func (r *Record) Len() int         { return len(r.values) }
func (r *Record) Children() Source { return r.children }
func (r *Record) Values() []any    { return cloneRow(r.values) }

// Index returns the value in column i.
func (r *Record) Index(i int) (any, error) {
	if i < 0 || i >= len(r.values) {
		return nil, fmt.Errorf("column %d of row with %d values: %w", i, len(r.values), ErrIndexOutOfRange)
	}
	return r.values[i], nil
}

// Field always fails: positional rows are not addressable by name.
func (r *Record) Field(name string) (any, error) {
	return nil, fmt.Errorf("field %q on positional row: %w", name, ErrNoSuchField)
}

// Hash returns the structural hash of the row values in positional order.
func (r *Record) Hash() uint32 {
	var b strings.Builder
	for _, v := range r.values {
		b.WriteString(FormatCell(v))
	}
	return hashString(b.String())
}

// Equal reports whether other is a positional view with equal values in the
// same order.
func (r *Record) Equal(other View) bool {
	o, ok := other.(*Record)
	if !ok || len(o.values) != len(r.values) {
		return false
	}
	for i := range r.values {
		if !CellsEqual(r.values[i], o.values[i]) {
			return false
		}
	}
	return true
}

// String renders the row like a list literal.
func (r *Record) String() string {
	parts := make([]string, len(r.values))
	for i, v := range r.values {
		parts[i] = FormatCell(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// NamedRecord is a name-keyed row view. It remembers the column order of the
// collection it came from so that it can be turned back into a positional
// row.
type NamedRecord struct {
	names    []string
	fields   map[string]any
	children Source
}

// NewNamed zips names with values. Extra names or values are ignored, which
// only happens while a new-columns phase is half way through a row.
func NewNamed(names []string, values []any, children Source) *NamedRecord {
	n := min(len(names), len(values))
	r := &NamedRecord{
		names:    make([]string, 0, n),
		fields:   make(map[string]any, n),
		children: children,
	}
	for i := 0; i < n; i++ {
		if _, dup := r.fields[names[i]]; !dup {
			r.names = append(r.names, names[i])
		}
		r.fields[names[i]] = values[i]
	}
	return r
}

// NewNamedFromMap builds a named view from a mapping. Column order is the
// sorted key order.
func NewNamedFromMap(fields map[string]any, children Source) *NamedRecord {
	names := sortedKeys(fields)
	values := make([]any, len(names))
	for i, k := range names {
		values[i] = fields[k]
	}
	return NewNamed(names, values, children)
}

func (r *NamedRecord) Kind() Kind       { return Named }
func (r *NamedRecord) Len() int         { return len(r.names) }
func (r *NamedRecord) Children() Source { return r.children }

// Names returns the column names in collection order.
func (r *NamedRecord) Names() []string {
	return append([]string(nil), r.names...)
}

// Map returns a copy of the row as a name to value mapping.
func (r *NamedRecord) Map() map[string]any {
	m := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		m[k] = v
	}
	return m
}

// Values returns the row in collection column order.
func (r *NamedRecord) Values() []any {
	out := make([]any, len(r.names))
	for i, n := range r.names {
		out[i] = r.fields[n]
	}
	return out
}

// Index returns the value of the i-th column in collection order.
func (r *NamedRecord) Index(i int) (any, error) {
	if i < 0 || i >= len(r.names) {
		return nil, fmt.Errorf("column %d of row with %d values: %w", i, len(r.names), ErrIndexOutOfRange)
	}
	return r.fields[r.names[i]], nil
}

// Field returns the value of the named column.
func (r *NamedRecord) Field(name string) (any, error) {
	v, ok := r.fields[name]
	if !ok {
		return nil, fmt.Errorf("field %q: %w", name, ErrNoSuchField)
	}
	return v, nil
}

// Hash returns the structural hash over the sorted keys, so field order does
// not matter.
func (r *NamedRecord) Hash() uint32 {
	var b strings.Builder
	for _, k := range sortedKeys(r.fields) {
		b.WriteString(k)
		b.WriteString(FormatCell(r.fields[k]))
	}
	return hashString(b.String())
}

// Equal reports whether other is a named view with the same key set and equal
// values.
func (r *NamedRecord) Equal(other View) bool {
	o, ok := other.(*NamedRecord)
	if !ok || len(o.fields) != len(r.fields) {
		return false
	}
	for k, v := range r.fields {
		ov, ok := o.fields[k]
		if !ok || !CellsEqual(v, ov) {
			return false
		}
	}
	return true
}

// String renders the row like a mapping literal with sorted keys.
func (r *NamedRecord) String() string {
	keys := sortedKeys(r.fields)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + FormatCell(r.fields[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func cloneRow(values []any) []any {
	if values == nil {
		return nil
	}
	return append(make([]any, 0, len(values)), values...)
}
