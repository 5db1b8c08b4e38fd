package xlpatch

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Document is the in-memory model of one worksheet being edited, backed by
// an excelize workbook.
type Document struct {
	file  *excelize.File
	path  string
	sheet string

	highlightStyles map[highlightKey]int // (base style, color) → derived style id
}

// OpenDocument opens the workbook at path and selects sheet. A workbook the
// writer cannot parse yields a *WriterIncompatibilityError; a missing sheet
// yields a *ValidationError.
func OpenDocument(path, sheet string) (*Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &WriterIncompatibilityError{Path: path, Err: err}
	}
	d, err := NewDocument(f, sheet)
	if err != nil {
		f.Close()
		return nil, err
	}
	d.path = path
	return d, nil
}

// NewDocument wraps an already opened workbook.
func NewDocument(f *excelize.File, sheet string) (*Document, error) {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		return nil, NewValidationError("sheet", fmt.Errorf("%q: %w", sheet, ErrSheetNotFound))
	}
	return &Document{
		file:            f,
		sheet:           sheet,
		highlightStyles: make(map[highlightKey]int),
	}, nil
}

// Sheet returns the name of the edited sheet.
func (d *Document) Sheet() string {
	return d.sheet
}


// Dimensions returns the number of used rows (header included) and the
// widest used column count.
func (d *Document) Dimensions() (rows, cols int, err error) {
	all, err := d.file.GetRows(d.sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return 0, 0, fmt.Errorf("read rows of %q: %w", d.sheet, err)
	}
	for _, r := range all {
		cols = max(cols, len(r))
	}
	return len(all), cols, nil
}

// DataRowCount returns the number of rows below the header.
func (d *Document) DataRowCount() (int, error) {
	rows, _, err := d.Dimensions()
	if err != nil {
		return 0, err
	}
	return max(rows-1, 0), nil
}

// RowText returns the formatted text of a sheet row, 0-based. Rows past the
// used range read as empty.
func (d *Document) RowText(row int) ([]string, error) {
	all, err := d.file.GetRows(d.sheet)
	if err != nil {
		return nil, fmt.Errorf("read row %d of %q: %w", row+1, d.sheet, err)
	}
	if row < 0 || row >= len(all) {
		return nil, nil
	}
	return all[row], nil
}

// SetValue writes a plain value to a cell, keeping its style.
func (d *Document) SetValue(ref CellRef, value any) error {
	if err := d.file.SetCellValue(d.sheet, ref.String(), value); err != nil {
		return fmt.Errorf("set cell %s: %w", ref, err)
	}
	return nil
}

// SaveAs writes the workbook to path.
func (d *Document) SaveAs(path string) error {
	if err := d.file.SaveAs(path); err != nil {
		return fmt.Errorf("save %q: %w", path, err)
	}
	return nil
}

// Close releases the workbook.
func (d *Document) Close() error {
	return d.file.Close()
}
