package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datalib/internal/record"
)

func namedRow(fields map[string]any) record.View {
	return record.NewNamedFromMap(fields, nil)
}

// ============================================================================
// Templates
// ============================================================================

func TestTemplate_Render(t *testing.T) {
	row := record.NewNamed([]string{"region", "product", "qty"}, []any{"east", "widget", 3}, nil)

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"names", "{region}/{product}", "east/widget"},
		{"indices", "{1}@{0}", "widget@east"},
		{"auto index", "{}-{}", "east-widget"},
		{"escaped braces", "{{{qty}}}", "{3}"},
		{"no placeholders", "plain", "plain"},
		{"spaces trimmed", "{ qty }x", "3x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := ParseTemplate(tt.src)
			require.NoError(t, err)
			got, err := tmpl.Render(row)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTemplate_FormatsCells(t *testing.T) {
	tmpl, err := ParseTemplate("{0}|{1}|{2}|{3}")
	require.NoError(t, err)

	got, err := tmpl.Render(record.New([]any{nil, true, 2.0, 2.5}, nil))
	require.NoError(t, err)
	assert.Equal(t, "None|True|2|2.5", got)
}

func TestTemplate_Fields(t *testing.T) {
	tmpl, err := ParseTemplate("{a} {1} {} {{x}}")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "1", "0"}, tmpl.Fields())
	assert.Equal(t, "{a} {1} {} {{x}}", tmpl.String())
}

func TestParseTemplate_Errors(t *testing.T) {
	for _, src := range []string{"{open", "close}", "{a{b}"} {
		t.Run(src, func(t *testing.T) {
			_, err := ParseTemplate(src)
			var exprErr *Error
			require.ErrorAs(t, err, &exprErr)
			assert.Equal(t, src, exprErr.Source)
		})
	}
}

func TestTemplate_MissingFieldFailsAtRender(t *testing.T) {
	tmpl, err := ParseTemplate("{missing}")
	require.NoError(t, err)

	_, err = tmpl.Render(namedRow(map[string]any{"a": 1}))
	assert.ErrorIs(t, err, record.ErrNoSuchField)
}

func TestTemplate_NameOnPositionalRowFails(t *testing.T) {
	tmpl, err := ParseTemplate("{a}")
	require.NoError(t, err)

	_, err = tmpl.Render(record.New([]any{1}, nil))
	assert.Error(t, err)
}

// ============================================================================
// Calculations
// ============================================================================

func TestCompile_Eval(t *testing.T) {
	row := namedRow(map[string]any{"price": 10, "qty": 3, "rate": 0.5, "name": "ab", "ok": true})

	tests := []struct {
		name string
		expr string
		want any
	}{
		{"int product", "{price} * {qty}", 30},
		{"float", "{price} * {rate}", 5.0},
		{"repeated placeholder", "{qty} + {qty}", 6},
		{"string concat", `{name} + "c"`, "abc"},
		{"comparison", "{price} > 5", true},
		{"bool logic", "{ok} && {qty} < 3", false},
		{"literal only", "1 + 2", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Compile(tt.expr)
			require.NoError(t, err)
			got, err := c.Eval(row)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_PositionalRow(t *testing.T) {
	c := MustCompile("{0} - {1}")
	got, err := c.Eval(record.New([]any{7, 2}, nil))
	require.NoError(t, err)
	assert.Equal(t, 5, got)
}

func TestCompile_NilBecomesNull(t *testing.T) {
	c := MustCompile("{a}")
	got, err := c.Eval(namedRow(map[string]any{"a": nil}))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCompile_SyntaxErrors(t *testing.T) {
	for _, src := range []string{"", "   ", "{price} *", "{unclosed"} {
		t.Run(src, func(t *testing.T) {
			_, err := Compile(src)
			var exprErr *Error
			require.ErrorAs(t, err, &exprErr)
		})
	}
}

func TestCalculation_MissingFieldFailsAtEval(t *testing.T) {
	c := MustCompile("{later} * 2")

	_, err := c.Eval(namedRow(map[string]any{"a": 1}))
	assert.ErrorIs(t, err, record.ErrNoSuchField)

	got, err := c.Eval(namedRow(map[string]any{"later": 4}))
	require.NoError(t, err)
	assert.Equal(t, 8, got)
}

func TestCalculation_TypeErrorAtEval(t *testing.T) {
	c := MustCompile("{a} - 2")

	_, err := c.Eval(namedRow(map[string]any{"a": "text"}))
	var exprErr *Error
	require.ErrorAs(t, err, &exprErr)
	assert.Equal(t, "{a} - 2", exprErr.Source)
}

func TestCalculation_ReusableAcrossRows(t *testing.T) {
	c := MustCompile("{x} + 1")
	for i := range 5 {
		got, err := c.Eval(namedRow(map[string]any{"x": i}))
		require.NoError(t, err)
		assert.Equal(t, i+1, got)
	}
}

func TestCalculation_Predicate(t *testing.T) {
	row := namedRow(map[string]any{"amount": 10})

	ok, err := MustCompile("{amount} > 5").Predicate(row)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = MustCompile("{amount} < 5").Predicate(row)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = MustCompile("{amount} + 1").Predicate(row)
	var exprErr *Error
	require.ErrorAs(t, err, &exprErr)
	assert.Contains(t, exprErr.Message, "want bool")
}

func TestMustCompile_Panics(t *testing.T) {
	assert.Panics(t, func() { MustCompile("{") })
}
