package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datalib/internal/store"
	"github.com/roach88/datalib/internal/testutil"
	"github.com/roach88/datalib/internal/txn"
)

func testRunner() (*Runner, *testutil.LogCapture) {
	capture, logger := testutil.NewLogCapture()
	return NewRunner(WithLogger(logger), WithIDGenerator(testutil.NewSequenceGenerator("tx"))), capture
}

func writePipeline(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// ============================================================================
// Golden runs
// ============================================================================

func TestRun_Golden(t *testing.T) {
	names := []string{
		"filter_positional",
		"derived_named",
		"group_by_column",
		"group_named",
		"sales_report",
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			p, err := Load(filepath.Join("testdata", "pipelines", name+".yaml"))
			require.NoError(t, err)

			runner, _ := testRunner()
			res, err := runner.Run(context.Background(), p)
			require.NoError(t, err)

			snap, err := Snapshot(res)
			require.NoError(t, err)
			g.Assert(t, name, snap)
		})
	}
}

// ============================================================================
// Load and Validate
// ============================================================================

func TestLoad_ParsesSteps(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "pipelines", "sales_report.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sales_report", p.Name)
	assert.Equal(t, []string{"region", "product", "amount"}, p.Columns)
	require.Len(t, p.Steps, 3)
	assert.Equal(t, "filter", p.Steps[0].Kind())
	assert.Equal(t, &Calculated{Name: "doubled", Expr: "{amount} * 2"}, p.Steps[1].Calculated)
	assert.Equal(t, "formatted", p.Steps[2].Kind())
	assert.Equal(t, []any{"east", "widget", 10}, p.Rows[0])
}

func TestLoad_GroupKey(t *testing.T) {
	p, err := Parse([]byte("name: x\nrows: []\nsteps:\n  - group: 2\n  - group: region\n"))
	require.NoError(t, err)

	assert.Equal(t, GroupKey{Index: 2}, *p.Steps[0].Group)
	assert.Equal(t, GroupKey{Name: "region", Index: -1}, *p.Steps[1].Group)
	assert.Equal(t, "2", p.Steps[0].Group.String())
	assert.Equal(t, "region", p.Steps[1].Group.String())
}

func TestLoad_GroupKeyMustBeScalar(t *testing.T) {
	_, err := Parse([]byte("name: x\nrows: []\nsteps:\n  - group: [a, b]\n"))
	assert.ErrorContains(t, err, "group must be a column name or index")
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writePipeline(t, t.TempDir(), "name: x\nrows: []\nstep: []\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse YAML")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read pipeline file")
}

func TestLoad_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := writePipeline(t, dir, `
name: x
source: {sqlite: in.db, query: "SELECT 1 AS one"}
output: {sqlite: /abs/out.db, table: t}
`)

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "in.db"), p.Source.SQLite)
	assert.Equal(t, "/abs/out.db", p.Output.SQLite)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{"missing name", "rows: []", []string{"name is required"}},
		{"no input", "name: x", []string{"one of rows or source is required"}},
		{"both inputs", "name: x\nrows: []\nsource: {sqlite: a.db, query: q}", []string{"mutually exclusive"}},
		{"source fields", "name: x\nsource: {}", []string{"source: sqlite is required", "source: query is required"}},
		{"columns with source", "name: x\ncolumns: [a]\nsource: {sqlite: a.db, query: q}", []string{"columns cannot be combined"}},
		{"empty step", "name: x\nrows: []\nsteps: [{}]", []string{"steps[0]: exactly one of"}},
		{"two kinds", "name: x\nrows: []\nsteps: [{filter: '1 > 0', group: 0}]", []string{"steps[0]: exactly one of"}},
		{"bad filter", "name: x\nrows: []\nsteps: [{filter: '{a'}]", []string{"steps[0]: filter"}},
		{"bad calculation", "name: x\nrows: []\nsteps: [{calculated: {name: c, expr: '1 +'}}]", []string{`calculated "c"`}},
		{"bad format", "name: x\nrows: []\nsteps: [{formatted: {name: f, format: '}'}}]", []string{`formatted "f"`}},
		{"named needs column name", "name: x\ncolumns: [a]\nrows: []\nsteps: [{calculated: {expr: '1'}}]", []string{"calculated: name is required"}},
		{"positional group by name", "name: x\nrows: []\nsteps: [{group: region}]", []string{"positional rows group by index"}},
		{"output fields", "name: x\nrows: []\noutput: {}", []string{"output: sqlite is required", "output: table is required"}},
		{"output to run history", "name: x\nrows: []\noutput: {sqlite: o.db, table: runs}", []string{`output: table "runs": reserved table name`}},
		{"output to sqlite table", "name: x\nrows: []\noutput: {sqlite: o.db, table: sqlite_stat1}", []string{"reserved table name"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse([]byte(tt.doc))
			require.NoError(t, err)

			err = p.Validate()
			require.Error(t, err)
			for _, want := range tt.want {
				assert.ErrorContains(t, err, want)
			}
		})
	}
}

func TestValidate_PositionalCalculatedNeedsNoName(t *testing.T) {
	p, err := Parse([]byte("name: x\nrows: [[1]]\nsteps: [{calculated: {expr: '{0} + 1'}}]"))
	require.NoError(t, err)
	assert.NoError(t, p.Validate())
}

// ============================================================================
// Run
// ============================================================================

func TestRun_DependencyFailure(t *testing.T) {
	p, err := Parse([]byte("name: broken\nrows: [[1]]\nsteps: [{group: 1}]"))
	require.NoError(t, err)
	require.NoError(t, p.Validate())

	runner, logs := testRunner()
	_, err = runner.Run(context.Background(), p)

	assert.True(t, txn.IsDependencyError(err))
	assert.ErrorContains(t, err, `pipeline "broken"`)
	assert.True(t, logs.Has("dependency resolution failed"))
}

func TestRun_GroupWaitsForCalculatedColumn(t *testing.T) {
	p, err := Parse([]byte(`
name: waits
rows: [[1]]
steps:
  - group: 1
  - calculated: {expr: '"test"'}
`))
	require.NoError(t, err)

	runner, _ := testRunner()
	res, err := runner.Run(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, [][]any{{nil, "test"}}, res.Collection.Rows())
	assert.Equal(t, [][]any{{1, "test"}}, res.Collection.Children(0).Rows())
}

func TestRun_NamedColumnCalledLikeAnIndex(t *testing.T) {
	p, err := Parse([]byte(`
name: digits
columns: ["0", "1"]
rows: [[x, a], [y, a]]
steps:
  - group: 1
`))
	require.NoError(t, err)

	runner, _ := testRunner()
	res, err := runner.Run(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{nil, "a"}}, res.Collection.Rows())
}

func TestRun_InlineRowsError(t *testing.T) {
	p, err := Parse([]byte("name: ragged\nrows: [[1, 2], [3]]"))
	require.NoError(t, err)

	runner, _ := testRunner()
	_, err = runner.Run(context.Background(), p)
	assert.ErrorContains(t, err, "inline rows")
}

func TestRun_SQLiteSourceAndOutput(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	src, err := store.Open(filepath.Join(dir, "in.db"))
	require.NoError(t, err)
	require.NoError(t, src.Exec(ctx, `CREATE TABLE sales (region TEXT, amount INTEGER)`))
	require.NoError(t, src.Exec(ctx, `INSERT INTO sales VALUES ('east', 10), ('east', 3), ('west', 7)`))
	require.NoError(t, src.Close())

	path := writePipeline(t, dir, `
name: from_sqlite
source: {sqlite: in.db, query: "SELECT region, amount FROM sales ORDER BY rowid"}
steps:
  - filter: "{amount} > 5"
  - calculated: {name: tax, expr: "{amount} * 0.5"}
output: {sqlite: out.db, table: taxed}
`)
	p, err := Load(path)
	require.NoError(t, err)

	runner, logs := testRunner()
	res, err := runner.Run(ctx, p)
	require.NoError(t, err)
	require.NotNil(t, res.Run)
	assert.Equal(t, "tx-1", res.TxID)
	assert.Equal(t, "taxed", res.Run.OutputTable)
	assert.Equal(t, 2, res.Run.RowCount)
	assert.True(t, logs.Has("output saved"))

	out, err := store.Open(filepath.Join(dir, "out.db"))
	require.NoError(t, err)
	defer out.Close()

	saved, err := out.LoadCollection(ctx, "SELECT region, amount, tax FROM taxed ORDER BY rowid")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"east", 10, 5.0}, {"west", 7, 3.5}}, saved.Rows())

	runs, err := out.Runs(ctx, "taxed")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "from_sqlite", runs[0].Pipeline)
	assert.Equal(t, "tx-1", runs[0].TxID)
}

func TestRun_MissingSourceTable(t *testing.T) {
	dir := t.TempDir()
	path := writePipeline(t, dir, `
name: missing
source: {sqlite: in.db, query: "SELECT * FROM nothing"}
`)
	p, err := Load(path)
	require.NoError(t, err)

	runner, _ := testRunner()
	_, err = runner.Run(context.Background(), p)
	assert.ErrorContains(t, err, "load collection")
}

func TestRun_Deterministic(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "pipelines", "sales_report.yaml"))
	require.NoError(t, err)

	var snaps [][]byte
	for range 3 {
		runner, _ := testRunner()
		res, err := runner.Run(context.Background(), p)
		require.NoError(t, err)
		snap, err := Snapshot(res)
		require.NoError(t, err)
		snaps = append(snaps, snap)
	}
	assert.Equal(t, snaps[0], snaps[1])
	assert.Equal(t, snaps[0], snaps[2])
}

func TestLoad_ErrorKinds(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(writePipeline(t, dir, "name: [unclosed"))
	assert.ErrorIs(t, err, ErrParse)

	_, err = Load(writePipeline(t, dir, "name: x"))
	assert.ErrorIs(t, err, ErrInvalid)
	assert.NotErrorIs(t, err, ErrParse)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
