package xlpatch

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/javajack/xlpatch/internal/ctxlog"
)

// execution is the state of one request while its plan runs.
type execution struct {
	opts    *Options
	doc     *Document
	changes ChangeSet

	shift        ColumnShift
	mapping      RowMapping
	rowStyles    []rowStyleSource
	originalRows int

	rules       []FormattingRule  // taken before each structural pass
	baseTables  []TableDefinition // as read from the source archive
	tables      []TableDefinition // current definitions
	sheetFilter *AreaRef

	evaluator ruleEvaluator
}

func (ex *execution) sheet() string {
	return ex.doc.Sheet()
}

func (ex *execution) snapshotFormatting(ctx context.Context) error {
	rules, err := ex.doc.ConditionalFormats()
	if err != nil {
		return err
	}
	ex.rules = rules
	ctxlog.FromContext(ctx).Debug("conditional formats captured", "scopes", len(rules))
	return nil
}

func (ex *execution) deleteColumns(ctx context.Context) error {
	for _, col := range ex.shift.Deleted() {
		if err := ex.doc.file.RemoveCol(ex.sheet(), ColToName(col)); err != nil {
			return fmt.Errorf("delete column %s: %w", ColToName(col), err)
		}
	}
	return nil
}

func (ex *execution) insertColumns(ctx context.Context) error {
	inserts := slices.Clone(ex.changes.InsertedColumns)
	slices.SortStableFunc(inserts, func(a, b ColumnInsert) int { return a.Position - b.Position })
	for _, ins := range inserts {
		count := max(ins.Count, 1)
		if err := ex.doc.file.InsertCols(ex.sheet(), ColToName(ins.Position), count); err != nil {
			return fmt.Errorf("insert %d columns at %s: %w", count, ColToName(ins.Position), err)
		}
		for i, h := range ins.Headers {
			if i >= count {
				break
			}
			if err := ex.doc.SetValue(CellRef{Row: 0, Col: ins.Position + i}, h); err != nil {
				return err
			}
		}
	}
	return ex.nameInsertedTableColumns()
}

// nameInsertedTableColumns writes a placeholder into the header cell of every
// inserted column that landed inside a table without header text of its own.
// excelize fills those cells with "ColumnN" while it widens the table.
func (ex *execution) nameInsertedTableColumns() error {
	var areas []AreaRef
	for _, t := range ex.tables {
		if t.NoHeaderRow {
			continue
		}
		if adjusted, ok := AdjustTableColumns(t, ex.shift, nil, ex.opts.placeholder); ok {
			areas = append(areas, adjusted.Ref)
		}
	}
	for i, ins := range ex.changes.InsertedColumns {
		pos := finalInsertPosition(ex.changes.InsertedColumns, i)
		for n := range max(ins.Count, 1) {
			col := pos + n
			for _, a := range areas {
				if col < a.First.Col || col > a.Last.Col {
					continue
				}
				if n < len(ins.Headers) && a.First.Row == 0 {
					continue
				}
				name := fmt.Sprintf(ex.placeholder(), col-a.First.Col+1)
				if err := ex.doc.SetValue(CellRef{Row: a.First.Row, Col: col}, name); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (ex *execution) placeholder() string {
	if ex.opts.placeholder == "" {
		return placeholderColumnName
	}
	return ex.opts.placeholder
}

// copyColumnFormatting runs after every insert, so positions are final.
// SourceColumn refers to the layout before the edit.
func (ex *execution) copyColumnFormatting(ctx context.Context) error {
	var skipped []string
	for i, ins := range ex.changes.InsertedColumns {
		if ins.SourceColumn == nil {
			continue
		}
		src, ok := ex.shift.Col(*ins.SourceColumn)
		if !ok {
			skipped = append(skipped, fmt.Sprintf("insert %d: source column %d was deleted", i, *ins.SourceColumn))
			continue
		}
		pos := finalInsertPosition(ex.changes.InsertedColumns, i)
		for n := range max(ins.Count, 1) {
			if err := ex.doc.CopyColumnFormatting(src, pos+n); err != nil {
				skipped = append(skipped, err.Error())
			}
		}
	}
	if len(skipped) > 0 {
		return skipf("column formatting: %v", skipped)
	}
	return nil
}

// finalInsertPosition returns where the first column of inserts[i] ends up
// once every insert has been applied in ascending position order.
func finalInsertPosition(inserts []ColumnInsert, i int) int {
	order := make([]int, len(inserts))
	for k := range order {
		order[k] = k
	}
	slices.SortStableFunc(order, func(a, b int) int { return inserts[a].Position - inserts[b].Position })
	pos := inserts[i].Position
	after := false
	for _, k := range order {
		if k == i {
			after = true
			continue
		}
		if after && inserts[k].Position <= pos {
			pos += max(inserts[k].Count, 1)
		}
	}
	return pos
}

func (ex *execution) reorderColumns(ctx context.Context) error {
	return RelocateColumns(ex.doc, ex.changes.ColumnOrder)
}

func (ex *execution) adjustColumnReferences(ctx context.Context) error {
	log := ctxlog.FromContext(ctx)

	kept, dropped := AdjustRulesForColumns(ex.rules, ex.sheet(), ex.shift)
	for _, scope := range dropped {
		log.Warn("conditional format scope removed", "skip", "cf-scope", "scope", scope)
	}
	if err := ex.doc.ReplaceConditionalFormats(kept); err != nil {
		return err
	}

	for i, t := range ex.tables {
		headers, err := ex.doc.RowText(t.Ref.First.Row)
		if err != nil {
			return err
		}
		adjusted, ok := AdjustTableColumns(t, ex.shift, headers, ex.opts.placeholder)
		if !ok {
			log.Warn("table left untouched", "skip", "table-columns", "table", t.Name)
			continue
		}
		ex.tables[i] = adjusted
	}

	if ex.sheetFilter != nil {
		if a, ok := ex.shift.Area(*ex.sheetFilter); ok {
			ex.sheetFilter = &a
			if err := ex.doc.file.AutoFilter(ex.sheet(), a.String(), nil); err != nil {
				return skipf("sheet auto-filter %s: %v", a, err)
			}
		}
	}
	return nil
}

func (ex *execution) relocateRows(ctx context.Context) error {
	report, err := RelocateRows(ctx, ex.doc, ex.mapping)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("rows relocated",
		"from", report.OriginalRows, "to", report.NewRows, "droppedMerges", len(report.DroppedMerges))
	return nil
}

// copyRowFormatting gives inserted rows the styles of the row they name.
// The source is looked up at its new position.
func (ex *execution) copyRowFormatting(ctx context.Context) error {
	_, cols, err := ex.doc.Dimensions()
	if err != nil {
		return err
	}
	rev := ex.mapping.Reverse()
	var missing []int
	for _, s := range ex.rowStyles {
		src, ok := rev[s.Source]
		if !ok {
			missing = append(missing, s.Source)
			continue
		}
		if err := ex.doc.CopyRowStyles(s.Row+1, src+1, cols); err != nil {
			return err
		}
	}
	if len(missing) > 0 {
		return skipf("row formatting sources %v were deleted", missing)
	}
	return nil
}

func (ex *execution) adjustRowReferences(ctx context.Context) error {
	log := ctxlog.FromContext(ctx)
	shift := NewRowShift(ex.mapping, ex.originalRows)

	kept, dropped := AdjustRulesForRows(ex.rules, ex.sheet(), shift)
	for _, scope := range dropped {
		log.Warn("conditional format scope removed", "skip", "cf-scope", "scope", scope)
	}
	if err := ex.doc.ReplaceConditionalFormats(kept); err != nil {
		return err
	}

	for i, t := range ex.tables {
		if adjusted, ok := AdjustTableRows(t, shift, ex.originalRows); ok {
			ex.tables[i] = adjusted
		}
	}

	if ex.sheetFilter != nil {
		if a, ok := shift.Area(*ex.sheetFilter); ok {
			ex.sheetFilter = &a
			if err := ex.doc.file.AutoFilter(ex.sheet(), a.String(), nil); err != nil {
				return skipf("sheet auto-filter %s: %v", a, err)
			}
		}
	}
	return nil
}

// writeValues writes headers, data and edited cells. Headers and data are
// compared with the current content first so untouched cells keep their
// stored representation; cells holding formulas are not overwritten by data.
func (ex *execution) writeValues(ctx context.Context) error {
	for col, h := range ex.changes.Headers {
		if err := ex.writeIfChanged(CellRef{Row: 0, Col: col}, h); err != nil {
			return err
		}
	}
	for r, row := range ex.changes.Data {
		for col, v := range row {
			if err := ex.writeIfChanged(CellRef{Row: r + 1, Col: col}, v); err != nil {
				return err
			}
		}
	}
	edits, err := ex.changes.ParsedEdits()
	if err != nil {
		return err
	}
	for _, e := range edits {
		if err := ex.doc.SetValue(CellRef{Row: e.Row + 1, Col: e.Col}, e.Value); err != nil {
			return err
		}
	}
	return nil
}

func (ex *execution) writeIfChanged(ref CellRef, v any) error {
	current, err := ex.doc.ReadCell(ref)
	if err != nil {
		return err
	}
	if current.Formula != "" || current.Value == formatValue(v) {
		return nil
	}
	return ex.doc.SetValue(ref, v)
}

// formatValue renders v the way excelize stores it.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "1"
		}
		return "0"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	}
	return fmt.Sprint(v)
}

func (ex *execution) hideColumns(ctx context.Context) error {
	return ex.doc.ApplyHiddenColumns(ex.changes.HiddenColumns)
}

func (ex *execution) hideRows(ctx context.Context) error {
	return ex.doc.ApplyHiddenRows(ex.changes.HiddenRows)
}

func (ex *execution) usedColumns() (int, error) {
	_, cols, err := ex.doc.Dimensions()
	return cols, err
}

func (ex *execution) clearRowHighlights(ctx context.Context) error {
	cols, err := ex.usedColumns()
	if err != nil {
		return err
	}
	for _, row := range ex.changes.ClearedRowHighlights {
		if err := ex.doc.FillRow(row, cols, ""); err != nil {
			return err
		}
	}
	return nil
}

func (ex *execution) highlightRows(ctx context.Context) error {
	cols, err := ex.usedColumns()
	if err != nil {
		return err
	}
	rows, err := ex.changes.parsedRowHighlights()
	if err != nil {
		return err
	}
	keys := make([]int, 0, len(rows))
	for r := range rows {
		keys = append(keys, r)
	}
	slices.Sort(keys)
	for _, r := range keys {
		if err := ex.doc.FillRow(r, cols, ResolveColor(ex.opts.palette, rows[r])); err != nil {
			return err
		}
	}
	return nil
}

func (ex *execution) highlightRules(ctx context.Context) error {
	all, err := ex.doc.file.GetRows(ex.sheet())
	if err != nil {
		return fmt.Errorf("read rows of %q: %w", ex.sheet(), err)
	}
	if len(all) < 2 {
		return nil
	}
	headers := all[0]
	cols := 0
	for _, r := range all {
		cols = max(cols, len(r))
	}
	for i, values := range all[1:] {
		for _, rule := range ex.changes.RowHighlightRules {
			matched, err := ex.evaluator.Match(rule, headers, i, values)
			if err != nil {
				return skipf("%v", err)
			}
			if matched {
				if err := ex.doc.FillRow(i, cols, ResolveColor(ex.opts.palette, rule.Color)); err != nil {
					return err
				}
				break
			}
		}
	}
	return nil
}

func (ex *execution) highlightCells(ctx context.Context) error {
	for key, color := range ex.changes.CellHighlights {
		row, col, err := parseRowColKey(key)
		if err != nil {
			return NewValidationError("cellHighlights", err)
		}
		if err := ex.doc.FillCell(CellRef{Row: row + 1, Col: col}, ResolveColor(ex.opts.palette, color)); err != nil {
			return err
		}
	}
	return nil
}

func (ex *execution) reconcileTables(ctx context.Context) error {
	if len(ex.tables) == 0 {
		return nil
	}
	for i, t := range ex.tables {
		if t.NoHeaderRow {
			continue
		}
		headers, err := ex.doc.RowText(t.Ref.First.Row)
		if err != nil {
			return err
		}
		ex.tables[i] = ReconcileTableFromHeaders(t, headers, ex.opts.placeholder)
	}
	return nil
}

// tableEdits returns the tables whose range or column names changed, keyed
// by archive entry.
func (ex *execution) tableEdits() map[string]TableDefinition {
	edits := make(map[string]TableDefinition)
	for i, t := range ex.tables {
		if i < len(ex.baseTables) && t.Equal(ex.baseTables[i]) {
			continue
		}
		edits[t.Part] = t
	}
	return edits
}
