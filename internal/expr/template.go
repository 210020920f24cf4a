package expr

import (
	"strings"

	"github.com/roach88/datalib/internal/record"
)

// Template renders a row into text.
type Template struct {
	src  string
	segs []segment
}

// ParseTemplate parses a {field} template.
func ParseTemplate(src string) (*Template, error) {
	segs, err := scan(src)
	if err != nil {
		return nil, err
	}
	return &Template{src: src, segs: segs}, nil
}

// String returns the template source.
func (t *Template) String() string { return t.src }

// Fields lists the placeholders in order of appearance.
func (t *Template) Fields() []string {
	var out []string
	for _, s := range t.segs {
		if s.ref != nil {
			out = append(out, s.ref.String())
		}
	}
	return out
}

// Render substitutes the row's values into the template. Values are
// formatted with record.FormatCell.
func (t *Template) Render(v record.View) (string, error) {
	var b strings.Builder
	for _, s := range t.segs {
		if s.ref == nil {
			b.WriteString(s.literal)
			continue
		}
		val, err := s.ref.resolve(v)
		if err != nil {
			return "", err
		}
		b.WriteString(record.FormatCell(val))
	}
	return b.String(), nil
}
