// Package txn implements the staged-commit transaction engine that applies
// deferred transformations to a row store.
//
// Instructions are staged per phase and committed in a fixed order:
//
//	filter -> group -> new_cols -> aggregate -> sort
//
// Registration order never matters. A filter may reference a column that a
// derivation staged later in the same transaction creates; the commit driver
// discovers a workable order by itself.
//
// DEPENDENCY RESOLUTION:
//
// Commit runs every phase starting at an offset. A failing phase is recorded
// as a PhaseFailure and the remaining phases still run. When anything failed
// the driver starts again at the earliest failing phase. A phase that
// succeeds consumes its instructions, so a retry never applies the same
// instruction twice. The loop ends when a pass is clean, or when two
// consecutive passes report the same failures, which means no phase can make
// further progress. The second case returns a *DependencyResolutionError;
// mutations made by phases that did succeed are kept.
//
// STATE MACHINE:
//
//	inactive --Begin--> active --Commit/Rollback--> inactive
//
// Add on an inactive transaction goes through Apply, which is Begin, Stage
// and Commit of that one instruction.
//
// The engine is single-threaded. One Transaction is bound to one Store for
// its lifetime and callers must not commit from several goroutines.
package txn
