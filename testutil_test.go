package xlpatch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testSheet = "Sheet1"

// testdataDir returns a scratch directory for fixture workbooks.
func testdataDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// testContext returns the context test requests run under.
func testContext(t *testing.T) context.Context {
	t.Helper()
	return context.Background()
}

// testLogger collects log records so tests can assert on skips.
type testLogger struct {
	records []slog.Record
}

func (l *testLogger) Enabled(context.Context, slog.Level) bool { return true }
func (l *testLogger) Handle(_ context.Context, r slog.Record) error {
	l.records = append(l.records, r)
	return nil
}
func (l *testLogger) WithAttrs([]slog.Attr) slog.Handler { return l }
func (l *testLogger) WithGroup(string) slog.Handler      { return l }

// messages returns the message of every record.
func (l *testLogger) messages() []string {
	out := make([]string, len(l.records))
	for i, r := range l.records {
		out[i] = r.Message
	}
	return out
}

// createGridWorkbook creates a sheet with headers A..(cols) named H1..Hn and
// rows data rows whose cell (r, c) holds "r<r>c<c>".
// Layout for cols=3, rows=2:
//
//	A1: "H1"    B1: "H2"    C1: "H3"
//	A2: "r0c0"  B2: "r0c1"  C2: "r0c2"
//	A3: "r1c0"  B3: "r1c1"  C3: "r1c2"
func createGridWorkbook(t *testing.T, cols, rows int, setup func(f *excelize.File)) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for c := range cols {
		require.NoError(t, f.SetCellValue(testSheet, CellRef{Row: 0, Col: c}.String(), fmt.Sprintf("H%d", c+1)))
		for r := range rows {
			require.NoError(t, f.SetCellValue(testSheet, CellRef{Row: r + 1, Col: c}.String(), fmt.Sprintf("r%dc%d", r, c)))
		}
	}
	if setup != nil {
		setup(f)
	}

	path := filepath.Join(testdataDir(t), "grid.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

// createTableWorkbook creates a 6-column sheet (A..F) with 9 data rows, a
// table "Sales" over A1:F10, a conditional format on D2:D5 and a merge on
// A3:A4.
func createTableWorkbook(t *testing.T) string {
	t.Helper()
	return createGridWorkbook(t, 6, 9, func(f *excelize.File) {
		require.NoError(t, f.AddTable(testSheet, &excelize.Table{
			Range:     "A1:F10",
			Name:      "Sales",
			StyleName: "TableStyleMedium2",
		}))
		addCellRule(t, f, "D2:D5")
		require.NoError(t, f.MergeCell(testSheet, "A3", "A4"))
	})
}

// addCellRule adds a "greater than 50" rule with a red font on scope.
func addCellRule(t *testing.T, f *excelize.File, scope string) {
	t.Helper()
	format, err := f.NewConditionalStyle(&excelize.Style{Font: &excelize.Font{Color: "9A0511"}})
	require.NoError(t, err)
	require.NoError(t, f.SetConditionalFormat(testSheet, scope, []excelize.ConditionalFormatOptions{
		{Type: "cell", Criteria: ">", Format: &format, Value: "50"},
	}))
}

// addFormulaRule adds a formula rule on scope.
func addFormulaRule(t *testing.T, f *excelize.File, scope, formula string) {
	t.Helper()
	format, err := f.NewConditionalStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}}})
	require.NoError(t, err)
	require.NoError(t, f.SetConditionalFormat(testSheet, scope, []excelize.ConditionalFormatOptions{
		{Type: "formula", Criteria: formula, Format: &format},
	}))
}

// openTestDocument opens path's test sheet and closes it with the test.
func openTestDocument(t *testing.T, path string) *Document {
	t.Helper()
	doc, err := OpenDocument(path, testSheet)
	require.NoError(t, err)
	t.Cleanup(func() { doc.Close() })
	return doc
}

// applyChanges runs c against path and returns the snapshot of the output.
func applyChanges(t *testing.T, path string, c ChangeSet, opts ...Option) (Result, *Snapshot) {
	t.Helper()
	out := filepath.Join(testdataDir(t), "out.xlsx")
	res := Apply(testContext(t), Request{
		InputPath:  path,
		OutputPath: out,
		Sheet:      testSheet,
		Changes:    c,
	}, opts...)
	require.True(t, res.Success, "apply failed: %s", res.Error)
	snap, err := ReadSnapshot(out, testSheet)
	require.NoError(t, err)
	return res, snap
}

func intPtr(v int) *int { return &v }
