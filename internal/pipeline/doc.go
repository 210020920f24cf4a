// Package pipeline runs collection transformations described in YAML.
//
// A pipeline document names its input (inline rows or a SQLite query), a
// list of steps and an optional SQLite output:
//
//	name: sales
//	source: {sqlite: data.db, query: "SELECT region, amount FROM sales"}
//	steps:
//	  - filter: "{doubled} > 10"
//	  - group: region
//	  - calculated: {name: doubled, expr: "{amount} * 2"}
//	output: {sqlite: out.db, table: sales_by_region}
//
// All steps are staged in one transaction and committed together, so the
// order of steps in the document does not matter: the filter above refers to
// a column that is only derived later and still resolves.
//
// Relative SQLite paths resolve against the directory holding the document.
package pipeline
