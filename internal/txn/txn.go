package txn

import "log/slog"

// Transaction stages instructions for a Store and commits them in phase
// order.
//
// INVARIANTS:
//   - Phases commit in the order filter, group, new_cols, aggregate, sort
//   - pending is empty whenever the transaction is inactive
//   - A Transaction is bound to one Store for its lifetime
type Transaction struct {
	store   Store
	active  bool
	id      string
	pending [numPhases][]Instruction

	ids    IDGenerator
	logger *slog.Logger
}

// Option configures a Transaction.
type Option func(*Transaction)

// WithLogger sets the logger used for commit diagnostics.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Transaction) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithIDGenerator sets the source of transaction IDs.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(t *Transaction) {
		if g != nil {
			t.ids = g
		}
	}
}

// New creates an inactive transaction bound to s.
func New(s Store, opts ...Option) *Transaction {
	t := &Transaction{
		store:  s,
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Active reports whether Begin has been called without a matching Commit or
// Rollback.
func (t *Transaction) Active() bool {
	return t.active
}

// ID returns the ID of the current or most recent transaction.
func (t *Transaction) ID() string {
	return t.id
}

// Len returns the number of staged instructions.
func (t *Transaction) Len() int {
	n := 0
	for _, insts := range t.pending {
		n += len(insts)
	}
	return n
}

// Pending returns a copy of the instructions staged for phase p.
func (t *Transaction) Pending(p Phase) []Instruction {
	return append([]Instruction(nil), t.pending[p]...)
}

// Begin starts intercepting instructions. Staged work is only applied when
// Commit is called.
func (t *Transaction) Begin() error {
	if t.active {
		return newAlreadyActiveError(t.id)
	}
	t.clearPending()
	t.id = t.ids.Generate()
	t.active = true
	t.logger.Debug("transaction begun", "tx", t.id)
	return nil
}

// Stage queues inst for the next Commit. The transaction must be active.
func (t *Transaction) Stage(inst Instruction) error {
	if !t.active {
		return newNotActiveError(inst.Phase())
	}
	p := inst.Phase()
	t.pending[p] = append(t.pending[p], inst)
	return nil
}

// Add stages inst when the transaction is active and applies it right away
// otherwise, so that ad-hoc calls outside a transaction are atomic.
func (t *Transaction) Add(inst Instruction) error {
	if t.active {
		return t.Stage(inst)
	}
	return t.Apply(inst)
}

// Apply runs a complete transaction holding only inst. A commit failure is
// returned to the caller.
func (t *Transaction) Apply(inst Instruction) error {
	if err := t.Begin(); err != nil {
		return err
	}
	if err := t.Stage(inst); err != nil {
		t.Rollback()
		return err
	}
	return t.Commit()
}

// Rollback discards staged instructions and deactivates the transaction.
// Mutations already committed are not undone.
func (t *Transaction) Rollback() {
	if t.active {
		t.logger.Debug("transaction rolled back", "tx", t.id, "discarded", t.Len())
	}
	t.clearPending()
	t.active = false
}

func (t *Transaction) clearPending() {
	for i := range t.pending {
		t.pending[i] = nil
	}
}
