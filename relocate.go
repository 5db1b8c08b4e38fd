package xlpatch

import (
	"context"
	"fmt"

	"github.com/javajack/xlpatch/internal/ctxlog"
)

// rowSnapshot is one fully captured source row.
type rowSnapshot struct {
	cells  []CellContent
	height float64
}

// RelocationReport summarizes a row relocation.
type RelocationReport struct {
	OriginalRows  int
	NewRows       int
	DroppedMerges []AreaRef
}

// RelocateRows rewrites the data rows of d so that new data row i holds what
// original data row mapping[i] held: value, style, hyperlink, rich text and
// row height. Formulas in moved rows follow the rows they reference.
// NewRow entries become plain empty rows. Every needed source row
// is captured before any destination row is written, because the source and
// destination ranges overlap.
func RelocateRows(ctx context.Context, d *Document, mapping RowMapping) (RelocationReport, error) {
	log := ctxlog.FromContext(ctx)

	rows, cols, err := d.Dimensions()
	if err != nil {
		return RelocationReport{}, err
	}
	originalRows := max(rows-1, 0)
	report := RelocationReport{OriginalRows: originalRows, NewRows: len(mapping)}

	// Cells inside a merge read as its anchor, so the merges are lifted
	// before anything is captured.
	merges, err := d.MergedRegions()
	if err != nil {
		return report, err
	}
	if err := d.ReplaceMerges(nil); err != nil {
		return report, err
	}

	snap := make(map[int]rowSnapshot)
	for _, src := range mapping {
		if src == NewRow {
			continue
		}
		if src < 0 || src >= originalRows {
			return report, NewValidationError("rowMapping", fmt.Errorf("source row %d outside 0..%d", src, originalRows-1))
		}
		if _, done := snap[src]; done {
			continue
		}
		if snap[src], err = d.captureRow(src+1, cols); err != nil {
			return report, err
		}
	}

	shift := NewRowShift(mapping, originalRows)
	for src, s := range snap {
		for col, c := range s.cells {
			if c.Formula != "" {
				s.cells[col].Formula = RewriteFormula(c.Formula, d.sheet, shift)
			}
		}
		snap[src] = s
	}

	if err := d.resizeDataArea(originalRows, len(mapping)); err != nil {
		return report, err
	}

	defaultHeight := d.defaultRowHeight()
	for i, src := range mapping {
		row := i + 1
		s, ok := snap[src]
		if !ok {
			s = rowSnapshot{cells: make([]CellContent, cols), height: defaultHeight}
		}
		if err := d.writeRow(row, s); err != nil {
			return report, err
		}
	}

	kept, dropped := RemapMerges(merges, shift)
	if err := d.ReplaceMerges(kept); err != nil {
		return report, err
	}
	for _, m := range dropped {
		log.Warn("merged region no longer contiguous", "skip", "merge", "range", m.String())
	}
	report.DroppedMerges = dropped
	return report, nil
}

// captureRow reads cols cells of the 0-based sheet row.
func (d *Document) captureRow(row, cols int) (rowSnapshot, error) {
	s := rowSnapshot{cells: make([]CellContent, cols)}
	for col := range cols {
		c, err := d.ReadCell(CellRef{Row: row, Col: col})
		if err != nil {
			return s, err
		}
		s.cells[col] = c
	}
	h, err := d.file.GetRowHeight(d.sheet, row+1)
	if err != nil {
		return s, fmt.Errorf("read height of row %d: %w", row+1, err)
	}
	s.height = h
	return s, nil
}

func (d *Document) writeRow(row int, s rowSnapshot) error {
	for col, c := range s.cells {
		if err := d.WriteCell(CellRef{Row: row, Col: col}, c, true); err != nil {
			return err
		}
	}
	current, err := d.file.GetRowHeight(d.sheet, row+1)
	if err == nil && current != s.height && s.height > 0 {
		if err := d.file.SetRowHeight(d.sheet, row+1, s.height); err != nil {
			return fmt.Errorf("set height of row %d: %w", row+1, err)
		}
	}
	return nil
}

// resizeDataArea removes surplus rows from the bottom of the data area, or
// appends blank rows to it, so that rows below the data move with its end.
func (d *Document) resizeDataArea(from, to int) error {
	switch {
	case to < from:
		for r := from + 1; r > to+1; r-- {
			if err := d.file.RemoveRow(d.sheet, r); err != nil {
				return fmt.Errorf("remove row %d: %w", r, err)
			}
		}
	case to > from:
		if err := d.file.InsertRows(d.sheet, from+2, to-from); err != nil {
			return fmt.Errorf("insert %d rows after row %d: %w", to-from, from+1, err)
		}
	}
	return nil
}

func (d *Document) defaultRowHeight() float64 {
	props, err := d.file.GetSheetProps(d.sheet)
	if err == nil && props.DefaultRowHeight != nil && *props.DefaultRowHeight > 0 {
		return *props.DefaultRowHeight
	}
	return 15
}

// RelocateColumns rewrites columns so that new column i holds what original
// column order[i] held. Only values and hyperlinks move; cell formatting
// and merged regions stay where they are.
func RelocateColumns(d *Document, order []int) error {
	rows, cols, err := d.Dimensions()
	if err != nil {
		return err
	}
	for _, src := range order {
		if src < 0 || src >= cols {
			return NewValidationError("columnOrder", fmt.Errorf("source column %d outside 0..%d", src, cols-1))
		}
	}

	merges, err := d.MergedRegions()
	if err != nil {
		return err
	}
	if err := d.ReplaceMerges(nil); err != nil {
		return err
	}

	snap := make([][]CellContent, rows)
	for r := range rows {
		snap[r] = make([]CellContent, len(order))
		for i, src := range order {
			c, err := d.ReadCell(CellRef{Row: r, Col: src})
			if err != nil {
				return err
			}
			snap[r][i] = c
		}
	}
	for r := range rows {
		for i := range order {
			if order[i] == i {
				continue
			}
			if err := d.WriteCell(CellRef{Row: r, Col: i}, snap[r][i], false); err != nil {
				return err
			}
		}
	}
	return d.ReplaceMerges(merges)
}

// CopyColumnFormatting copies the cell styles (data rows only, never the
// header) and the width of column src onto column dst.
func (d *Document) CopyColumnFormatting(src, dst int) error {
	rows, cols, err := d.Dimensions()
	if err != nil {
		return err
	}
	if src < 0 || src >= cols {
		return skipf("source column %d no longer exists", src)
	}
	for r := 1; r < rows; r++ {
		b, err := d.CellStyle(CellRef{Row: r, Col: src})
		if err != nil {
			return err
		}
		if err := d.ApplyStyle(CellRef{Row: r, Col: dst}, b); err != nil {
			return err
		}
	}
	width, err := d.file.GetColWidth(d.sheet, ColToName(src))
	if err != nil {
		return fmt.Errorf("read width of column %s: %w", ColToName(src), err)
	}
	if err := d.file.SetColWidth(d.sheet, ColToName(dst), ColToName(dst), width); err != nil {
		return fmt.Errorf("set width of column %s: %w", ColToName(dst), err)
	}
	return nil
}
