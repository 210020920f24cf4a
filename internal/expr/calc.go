package expr

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/datalib/internal/record"
)

var (
	rowPath = cue.ParsePath("r")
	outPath = cue.ParsePath("out")
)

// Calculation is a compiled CUE expression over row placeholders.
//
// A Calculation owns its CUE context and is not safe for concurrent use.
type Calculation struct {
	src   string
	refs  []ref
	value cue.Value
}

// Compile parses expression, replacing every distinct placeholder with an
// element of the row list r, and compiles the result with CUE. Syntax errors
// are reported here; missing columns only when a row is evaluated.
func Compile(expression string) (*Calculation, error) {
	segs, err := scan(expression)
	if err != nil {
		return nil, err
	}

	var (
		body  strings.Builder
		refs  []ref
		index = make(map[ref]int)
	)
	for _, s := range segs {
		if s.ref == nil {
			body.WriteString(s.literal)
			continue
		}
		k, ok := index[*s.ref]
		if !ok {
			k = len(refs)
			index[*s.ref] = k
			refs = append(refs, *s.ref)
		}
		fmt.Fprintf(&body, "r[%d]", k)
	}
	if strings.TrimSpace(body.String()) == "" {
		return nil, &Error{Source: expression, Message: "empty expression"}
	}

	ctx := cuecontext.New()
	src := "r: [...]\nout: " + body.String() + "\n"
	v := ctx.CompileString(src, cue.Filename("expression"))
	if err := v.Err(); err != nil {
		return nil, &Error{Source: expression, Message: cueMessage(err)}
	}

	return &Calculation{src: expression, refs: refs, value: v}, nil
}

// MustCompile is like Compile but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustCompile(expression string) *Calculation {
	c, err := Compile(expression)
	if err != nil {
		panic(err)
	}
	return c
}

// String returns the expression source.
func (c *Calculation) String() string { return c.src }

// Eval evaluates the expression against one row.
//
// Results map to Go values: CUE ints to int, floats to float64, strings,
// bools, null to nil; lists and structs are decoded generically.
func (c *Calculation) Eval(v record.View) (any, error) {
	args := make([]any, len(c.refs))
	for i, r := range c.refs {
		val, err := r.resolve(v)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}

	out := c.value.FillPath(rowPath, args).LookupPath(outPath)
	if err := out.Err(); err != nil {
		return nil, &Error{Source: c.src, Message: cueMessage(err)}
	}
	if !out.IsConcrete() {
		return nil, &Error{Source: c.src, Message: "result is not concrete"}
	}
	return decode(out)
}

// Predicate evaluates the expression as a boolean condition.
func (c *Calculation) Predicate(v record.View) (bool, error) {
	out, err := c.Eval(v)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, &Error{Source: c.src, Message: fmt.Sprintf("condition yielded %T, want bool", out)}
	}
	return b, nil
}

func decode(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		return v.Bool()
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, err
		}
		return int(i), nil
	case cue.FloatKind:
		return v.Float64()
	case cue.StringKind:
		return v.String()
	case cue.BytesKind:
		return v.Bytes()
	default:
		var out any
		if err := v.Decode(&out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// cueMessage flattens a CUE error list into its first message.
func cueMessage(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	return errs[0].Error()
}
