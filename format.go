package xlpatch

import (
	"fmt"
	"slices"
)

// ApplyHiddenColumns makes the listed columns hidden and every other used
// column visible.
func (d *Document) ApplyHiddenColumns(hidden []int) error {
	_, cols, err := d.Dimensions()
	if err != nil {
		return err
	}
	for _, h := range hidden {
		cols = max(cols, h+1)
	}
	for col := range cols {
		visible := !slices.Contains(hidden, col)
		if err := d.file.SetColVisible(d.sheet, ColToName(col), visible); err != nil {
			return fmt.Errorf("set visibility of column %s: %w", ColToName(col), err)
		}
	}
	return nil
}

// ApplyHiddenRows makes the listed data rows hidden and every other data
// row visible. The header row is never hidden.
func (d *Document) ApplyHiddenRows(hidden []int) error {
	dataRows, err := d.DataRowCount()
	if err != nil {
		return err
	}
	for row := range dataRows {
		visible := !slices.Contains(hidden, row)
		if err := d.file.SetRowVisible(d.sheet, row+2, visible); err != nil {
			return fmt.Errorf("set visibility of row %d: %w", row+2, err)
		}
	}
	return nil
}

// FillRow paints cols cells of a data row, or clears their fill when color
// is empty.
func (d *Document) FillRow(dataRow, cols int, color string) error {
	for col := range cols {
		if err := d.FillCell(CellRef{Row: dataRow + 1, Col: col}, color); err != nil {
			return err
		}
	}
	return nil
}

// CopyRowStyles copies the cell styles of one sheet row onto another.
func (d *Document) CopyRowStyles(dst, src, cols int) error {
	for col := range cols {
		b, err := d.CellStyle(CellRef{Row: src, Col: col})
		if err != nil {
			return err
		}
		if err := d.ApplyStyle(CellRef{Row: dst, Col: col}, b); err != nil {
			return err
		}
	}
	return nil
}
