// Package expr turns user-facing column expressions into row functions.
//
// Two forms are supported, both using {field} placeholders. A placeholder is
// a column name ({amount}) or a column index ({0}); named rows accept both,
// positional rows only indices.
//
// Templates render text:
//
//	t, _ := expr.ParseTemplate("{region}/{product}")
//	s, _ := t.Render(row) // "east/widget"
//
// Calculations are CUE expressions evaluated against the placeholder values:
//
//	c, _ := expr.Compile("{price} * {qty}")
//	v, _ := c.Eval(row) // 30
//
// A calculation is compiled once into a CUE value of the form
//
//	r: [...]
//	out: r[0] * r[1]
//
// and every evaluation fills r with the row's placeholder values. Because
// braces introduce placeholders, CUE struct literals cannot appear inside
// an expression.
//
// Placeholders are resolved when a row is evaluated, not when the
// expression is compiled. A reference to a column that does not exist yet
// fails at evaluation time, which lets the transaction engine retry once the
// column has been derived.
package expr
