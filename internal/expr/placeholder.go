package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/datalib/internal/record"
)

// Error reports a malformed template or expression.
type Error struct {
	Source  string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("expression %q: %s", e.Source, e.Message)
}

// ref is one {placeholder}: either a column index or a column name.
type ref struct {
	name  string
	index int
}

func parseRef(body string) ref {
	if n, err := strconv.Atoi(body); err == nil && n >= 0 {
		return ref{index: n}
	}
	return ref{name: body, index: -1}
}

func (r ref) String() string {
	if r.index >= 0 {
		return strconv.Itoa(r.index)
	}
	return r.name
}

// resolve reads the referenced value from a row.
func (r ref) resolve(v record.View) (any, error) {
	if r.index >= 0 {
		return v.Index(r.index)
	}
	return v.Field(r.name)
}

// segment is literal text or a placeholder.
type segment struct {
	literal string
	ref     *ref
}

// scan splits src into literal text and placeholders. "{{" and "}}" escape
// literal braces; "{}" takes the next automatic index.
func scan(src string) ([]segment, error) {
	var (
		segs []segment
		lit  strings.Builder
		auto int
	)
	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '{' && i+1 < len(src) && src[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(src) && src[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(src[i+1:], '}')
			if end < 0 {
				return nil, &Error{Source: src, Message: fmt.Sprintf("unclosed placeholder at offset %d", i)}
			}
			body := strings.TrimSpace(src[i+1 : i+1+end])
			if strings.ContainsAny(body, "{") {
				return nil, &Error{Source: src, Message: fmt.Sprintf("nested brace in placeholder at offset %d", i)}
			}
			var r ref
			if body == "" {
				r = ref{index: auto}
				auto++
			} else {
				r = parseRef(body)
			}
			flush()
			segs = append(segs, segment{ref: &r})
			i += end + 1
		case c == '}':
			return nil, &Error{Source: src, Message: fmt.Sprintf("single '}' at offset %d", i)}
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return segs, nil
}
