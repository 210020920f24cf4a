package txn

import "fmt"

// Phase identifies one stage of the commit pipeline.
type Phase int

// Phases in commit order.
const (
	PhaseFilter Phase = iota
	PhaseGroup
	PhaseNewCols
	PhaseAggregate
	PhaseSort

	numPhases = int(PhaseSort) + 1
)

var phaseNames = [numPhases]string{
	PhaseFilter:    "filter",
	PhaseGroup:     "group",
	PhaseNewCols:   "new_cols",
	PhaseAggregate: "aggregate",
	PhaseSort:      "sort",
}

// Phases returns every phase in commit order.
func Phases() []Phase {
	return []Phase{PhaseFilter, PhaseGroup, PhaseNewCols, PhaseAggregate, PhaseSort}
}

// String implements fmt.Stringer.
func (p Phase) String() string {
	if p < 0 || int(p) >= numPhases {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// ParsePhase resolves a phase by name.
func ParsePhase(name string) (Phase, error) {
	for i, n := range phaseNames {
		if n == name {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", name)
}

// handler applies the staged instructions of one phase to the store. It
// returns how many instructions it consumed; consumed instructions are
// removed from the pending queue only when the handler succeeds.
type handler func(t *Transaction, insts []Instruction) (consumed int, err error)

// handlers is indexed by Phase and fixes the commit order.
var handlers = [numPhases]handler{
	PhaseFilter:    (*Transaction).commitFilter,
	PhaseGroup:     (*Transaction).commitGroup,
	PhaseNewCols:   (*Transaction).commitNewCols,
	PhaseAggregate: (*Transaction).commitReserved,
	PhaseSort:      (*Transaction).commitReserved,
}
