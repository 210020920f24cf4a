package txn

import (
	"fmt"
	"slices"

	"github.com/roach88/datalib/internal/record"
)

// Commit applies the staged instructions to the store, phase by phase,
// retrying failed phases until a pass is clean or stops making progress.
//
// On success the transaction is inactive and nothing is pending. On a
// *DependencyResolutionError the transaction is also inactive and nothing is
// pending, but phases that succeeded along the way keep their mutations.
func (t *Transaction) Commit() error {
	if !t.active {
		return &Error{Code: ErrCodeNotActive, Message: "commit: transaction not active", TxID: t.id}
	}

	var previous []PhaseFailure
	offset := 0
	for attempt := 1; ; attempt++ {
		failures, earliest := t.runPhases(offset)
		if len(failures) == 0 {
			t.finish(attempt)
			return nil
		}

		if previous != nil && failuresEqual(failures, previous) {
			err := &DependencyResolutionError{TxID: t.id, Failures: failures}
			t.logger.Warn("dependency resolution failed",
				"tx", t.id,
				"attempts", attempt,
				"error", err,
			)
			t.clearPending()
			t.active = false
			return err
		}

		t.logger.Debug("retrying commit",
			"tx", t.id,
			"attempt", attempt,
			"from_phase", Phase(earliest).String(),
			"failures", len(failures),
		)
		previous = failures
		offset = earliest
	}
}

// runPhases runs every phase from offset on. Failures do not stop later
// phases. It returns the failures in phase order and the index of the first
// failing phase.
func (t *Transaction) runPhases(offset int) ([]PhaseFailure, int) {
	var failures []PhaseFailure
	earliest := -1

	for p := offset; p < numPhases; p++ {
		insts := t.pending[p]
		if len(insts) == 0 {
			continue
		}

		consumed, err := handlers[p](t, insts)
		if err != nil {
			failures = append(failures, PhaseFailure{Phase: Phase(p), Message: err.Error()})
			if earliest < 0 {
				earliest = p
			}
			t.logger.Debug("phase failed", "tx", t.id, "phase", Phase(p).String(), "error", err)
			continue
		}

		rest := insts[consumed:]
		if Phase(p) == PhaseGroup && len(rest) > 0 {
			t.logger.Warn("dropping unapplied group instructions",
				"tx", t.id,
				"count", len(rest),
				"hint", "grouping is single-level per commit; commit again to regroup",
			)
			rest = nil
		}
		t.pending[p] = slices.Clone(rest)
	}

	return failures, earliest
}

func (t *Transaction) finish(attempts int) {
	t.clearPending()
	t.active = false
	t.logger.Debug("transaction committed", "tx", t.id, "attempts", attempts, "rows", t.store.Len())
}

// commitFilter keeps the rows accepted by every filter. Survivors keep their
// relative order and their children.
func (t *Transaction) commitFilter(insts []Instruction) (int, error) {
	s := t.store
	rows := s.Rows()

	kept := make([][]any, 0, len(rows))
	children := make(map[int]Store)
	for i := range rows {
		view, err := s.At(i)
		if err != nil {
			return 0, err
		}

		keep := true
		for j, inst := range insts {
			fn := inst.(Filter)
			if fn == nil {
				return 0, fmt.Errorf("filter %d: nil predicate", j)
			}
			ok, err := fn(view)
			if err != nil {
				return 0, err
			}
			if !ok {
				keep = false
				break
			}
		}
		if !keep {
			continue
		}

		if child := s.Child(i); child != nil {
			children[len(kept)] = child
		}
		// The raw row is already in column order, named or not.
		kept = append(kept, rows[i])
	}

	s.ReplaceAll(kept)
	s.ReplaceChildren(children)
	return len(insts), nil
}

// commitGroup applies the first staged group instruction. Adjacent rows with
// equal keys form one group; input is expected to be ordered by the key.
func (t *Transaction) commitGroup(insts []Instruction) (int, error) {
	s := t.store
	g := insts[0].(Group)

	keyOf, col, err := t.groupSelector(g)
	if err != nil {
		return 0, err
	}

	rows := s.Rows()
	var (
		parents  [][]any
		members  [][]any
		current  any
		children = make(map[int]Store)
	)
	flush := func() {
		parent := make([]any, len(members[0]))
		if col >= 0 {
			parent[col] = current
		}
		children[len(parents)] = s.Factory(members)
		parents = append(parents, parent)
		members = nil
	}

	for i := range rows {
		view, err := s.At(i)
		if err != nil {
			return 0, err
		}
		key, err := keyOf(view)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", g, err)
		}
		if len(members) > 0 && !record.CellsEqual(key, current) {
			flush()
		}
		if len(members) == 0 {
			current = key
		}
		members = append(members, rows[i])
	}
	if len(members) > 0 {
		flush()
	}

	s.ReplaceAll(parents)
	s.ReplaceChildren(children)
	return 1, nil
}

// groupSelector resolves a group instruction into a key function and the
// column that receives the key in parent rows (-1 for key functions).
func (t *Transaction) groupSelector(g Group) (KeyFunc, int, error) {
	switch g.kind {
	case selectIndex:
		return func(v record.View) (any, error) { return v.Index(g.index) }, g.index, nil

	case selectName:
		if t.store.Kind() != record.Named {
			return nil, -1, fmt.Errorf("%s: positional collection has no column names", g)
		}
		col := slices.Index(t.store.Names(), g.name)
		if col < 0 {
			return nil, -1, fmt.Errorf("%s: %w", g, record.ErrNoSuchField)
		}
		return func(v record.View) (any, error) { return v.Field(g.name) }, col, nil

	default:
		if g.key == nil {
			return nil, -1, fmt.Errorf("%s: nil key function", g)
		}
		return g.key, -1, nil
	}
}

// commitNewCols appends one value per NewColumn to every row. Later columns
// see the values of earlier ones. Names are registered once, after every row
// succeeded, so a failed attempt leaves the store untouched.
func (t *Transaction) commitNewCols(insts []Instruction) (int, error) {
	s := t.store
	named := s.Kind() == record.Named

	cols := make([]NewColumn, len(insts))
	names := slices.Clone(s.Names())
	for i, inst := range insts {
		cols[i] = inst.(NewColumn)
		if cols[i].Derive == nil {
			return 0, fmt.Errorf("new column %d: nil derive function", i)
		}
		if !named {
			continue
		}
		if cols[i].Name == "" {
			return 0, fmt.Errorf("new column %d: named collection requires a column name", i)
		}
		if slices.Contains(names, cols[i].Name) {
			return 0, fmt.Errorf("new column %q: column already exists", cols[i].Name)
		}
		names = append(names, cols[i].Name)
	}

	rows := s.Rows()
	out := make([][]any, len(rows))
	for i, row := range rows {
		cur := make([]any, len(row), len(row)+len(cols))
		copy(cur, row)
		child := s.Child(i)

		for _, col := range cols {
			v, err := col.Derive(t.view(cur, names, child), s)
			if err != nil {
				if col.Name != "" {
					return 0, fmt.Errorf("new column %q: %w", col.Name, err)
				}
				return 0, err
			}
			cur = append(cur, v)
		}
		out[i] = cur
	}

	s.ReplaceAll(out)
	if named {
		for _, col := range cols {
			s.AddName(col.Name)
		}
	}
	return len(insts), nil
}

// commitReserved handles phases without default behaviour. Their
// instructions are consumed so that they do not block the commit.
func (t *Transaction) commitReserved(insts []Instruction) (int, error) {
	t.logger.Debug("phase has no default behaviour; instructions ignored",
		"tx", t.id,
		"phase", insts[0].Phase().String(),
		"count", len(insts),
	)
	return len(insts), nil
}

// view builds a row view matching the store's kind. names may be longer than
// row; the extra names belong to columns not derived yet.
func (t *Transaction) view(row []any, names []string, child Store) record.View {
	var children record.Source
	if child != nil {
		children = child
	}
	if t.store.Kind() == record.Named {
		return record.NewNamed(names, row, children)
	}
	return record.New(row, children)
}
