package xlpatch

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// StyleBundle is a cell's complete formatting: fill, font, alignment,
// border and number format, held as the workbook's style id. ID is only
// meaningful inside the workbook the bundle was read from.
type StyleBundle struct {
	ID int
}

// CellStyle reads the formatting of a cell.
func (d *Document) CellStyle(ref CellRef) (StyleBundle, error) {
	id, err := d.file.GetCellStyle(d.sheet, ref.String())
	if err != nil {
		return StyleBundle{}, fmt.Errorf("read style of %s: %w", ref, err)
	}
	return StyleBundle{ID: id}, nil
}

// ApplyStyle sets the formatting of a cell.
func (d *Document) ApplyStyle(ref CellRef, b StyleBundle) error {
	if err := d.file.SetCellStyle(d.sheet, ref.String(), ref.String(), b.ID); err != nil {
		return fmt.Errorf("style %s: %w", ref, err)
	}
	return nil
}

type highlightKey struct {
	base  int
	color string // "" clears the fill
}

// withFill returns the id of a style equal to base except for its fill.
// Derived styles are cached per document.
func (d *Document) withFill(base int, color string) (int, error) {
	key := highlightKey{base: base, color: color}
	if id, ok := d.highlightStyles[key]; ok {
		return id, nil
	}
	st, err := d.file.GetStyle(base)
	if err != nil {
		return 0, fmt.Errorf("read style %d: %w", base, err)
	}
	derived := *st
	if color == "" {
		derived.Fill = excelize.Fill{}
	} else {
		derived.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
	}
	id, err := d.file.NewStyle(&derived)
	if err != nil {
		return 0, fmt.Errorf("create fill style %s: %w", color, err)
	}
	d.highlightStyles[key] = id
	return id, nil
}

// FillCell paints a cell with a solid color, or removes its fill when color
// is empty. Font, border, alignment and number format are kept.
func (d *Document) FillCell(ref CellRef, color string) error {
	base, err := d.file.GetCellStyle(d.sheet, ref.String())
	if err != nil {
		return fmt.Errorf("read style of %s: %w", ref, err)
	}
	id, err := d.withFill(base, strings.ToUpper(color))
	if err != nil {
		return err
	}
	return d.ApplyStyle(ref, StyleBundle{ID: id})
}
