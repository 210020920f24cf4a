// Package record provides the per-row views handed out by collections.
//
// A view is either positional (Record) or name-keyed (NamedRecord). Both
// carry an optional reference to a child row source, which is how grouped
// collections expose the members of each group.
//
// Views are snapshots: building a view copies the row, so a view stays valid
// after the collection it came from is rewritten by a commit.
//
// Equality and hashing are structural. Two views with the same content are
// equal and hash identically no matter which collection produced them, which
// lets callers compare rows across collections or place them in sets keyed
// by Hash.
package record
