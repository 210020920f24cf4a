// Package store moves collections in and out of SQLite.
//
// LoadCollection turns a query result into a named collection whose columns
// are the result columns. SaveCollection writes a collection to a table,
// replacing it; group members go to a companion "<table>_members" table keyed
// by the parent row. Every saved pipeline run is also recorded in the runs
// table together with a content hash of the rendered output.
//
// Uses github.com/mattn/go-sqlite3 (requires cgo).
package store
