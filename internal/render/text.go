package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/roach88/datalib/internal/record"
	"github.com/roach88/datalib/internal/txn"
)

// Text writes s as an aligned table. Child rows follow their parent,
// indented one level per grouping depth.
func Text(w io.Writer, s txn.Store) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if s.Len() == 0 && len(s.Names()) == 0 {
		fmt.Fprintln(tw, "(empty)")
		return tw.Flush()
	}
	writeHeader(tw, s, 0)
	writeRows(tw, s, 0)
	return tw.Flush()
}

func writeHeader(w io.Writer, s txn.Store, depth int) {
	cols := s.Names()
	if s.Kind() == record.Positional {
		width := 0
		if rows := s.Rows(); len(rows) > 0 {
			width = len(rows[0])
		}
		cols = make([]string, width)
		for i := range cols {
			cols[i] = strconv.Itoa(i)
		}
	}
	fmt.Fprintln(w, indent(depth)+strings.Join(cols, "\t"))
}

func writeRows(w io.Writer, s txn.Store, depth int) {
	for i, row := range s.Rows() {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = record.FormatCell(v)
		}
		fmt.Fprintln(w, indent(depth)+strings.Join(cells, "\t"))

		if child := s.Child(i); child != nil {
			writeRows(w, child, depth+1)
		}
	}
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}

// Summary returns a one-line description such as "3 rows, 2 groups".
func Summary(s txn.Store) string {
	groups := 0
	for i := range s.Len() {
		if s.Child(i) != nil {
			groups++
		}
	}
	if groups == 0 {
		return fmt.Sprintf("%d rows", s.Len())
	}
	return fmt.Sprintf("%d rows, %d groups", s.Len(), groups)
}
