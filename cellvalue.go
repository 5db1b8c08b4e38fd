package xlpatch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Hyperlink is a cell link. Location links point inside the workbook.
type Hyperlink struct {
	Target   string
	Location bool
}

// CellContent is everything that travels with a cell when it is relocated.
type CellContent struct {
	Value    string // raw stored value
	Type     excelize.CellType
	Formula  string
	StyleID  int
	Link     *Hyperlink
	RichText []excelize.RichTextRun
}

// IsEmpty reports whether the cell carries no value, formula or link.
func (c CellContent) IsEmpty() bool {
	return c.Value == "" && c.Formula == "" && c.Link == nil && len(c.RichText) == 0
}

// ReadCell captures a cell.
func (d *Document) ReadCell(ref CellRef) (CellContent, error) {
	cell := ref.String()
	var c CellContent
	var err error

	if c.Value, err = d.file.GetCellValue(d.sheet, cell, excelize.Options{RawCellValue: true}); err != nil {
		return c, fmt.Errorf("read %s: %w", cell, err)
	}
	if c.Type, err = d.file.GetCellType(d.sheet, cell); err != nil {
		return c, fmt.Errorf("read type of %s: %w", cell, err)
	}
	if c.Formula, err = d.file.GetCellFormula(d.sheet, cell); err != nil {
		return c, fmt.Errorf("read formula of %s: %w", cell, err)
	}
	if c.StyleID, err = d.file.GetCellStyle(d.sheet, cell); err != nil {
		return c, fmt.Errorf("read style of %s: %w", cell, err)
	}
	if c.Link, err = d.readLink(cell); err != nil {
		return c, err
	}
	if c.Type == excelize.CellTypeSharedString || c.Type == excelize.CellTypeInlineString {
		runs, err := d.file.GetCellRichText(d.sheet, cell)
		if err == nil && isRichText(runs) {
			c.RichText = runs
		}
	}
	return c, nil
}

// isRichText reports whether runs carry formatting a plain string would lose.
func isRichText(runs []excelize.RichTextRun) bool {
	return len(runs) > 1 || (len(runs) == 1 && runs[0].Font != nil)
}

func (d *Document) readLink(cell string) (*Hyperlink, error) {
	ok, target, err := d.file.GetCellHyperLink(d.sheet, cell)
	if err != nil {
		return nil, fmt.Errorf("read hyperlink of %s: %w", cell, err)
	}
	if !ok || target == "" {
		return nil, nil
	}
	return &Hyperlink{Target: target, Location: !isExternalTarget(target)}, nil
}

func isExternalTarget(target string) bool {
	t := strings.ToLower(target)
	return strings.Contains(t, "://") || strings.HasPrefix(t, "mailto:") || strings.HasPrefix(t, "file:")
}

// WriteCell writes a captured cell to ref. With withStyle false the
// destination keeps its current style.
func (d *Document) WriteCell(ref CellRef, c CellContent, withStyle bool) error {
	cell := ref.String()
	if err := d.writeValue(cell, c); err != nil {
		return fmt.Errorf("write %s: %w", cell, err)
	}
	if err := d.writeLink(cell, c.Link); err != nil {
		return err
	}
	if withStyle {
		if err := d.file.SetCellStyle(d.sheet, cell, cell, c.StyleID); err != nil {
			return fmt.Errorf("style %s: %w", cell, err)
		}
	}
	return nil
}

func (d *Document) writeValue(cell string, c CellContent) error {
	switch {
	case c.Formula != "":
		return d.file.SetCellFormula(d.sheet, cell, c.Formula)
	case len(c.RichText) > 0:
		return d.file.SetCellRichText(d.sheet, cell, c.RichText)
	case c.Value == "":
		return d.file.SetCellValue(d.sheet, cell, nil)
	}
	switch c.Type {
	case excelize.CellTypeBool:
		return d.file.SetCellBool(d.sheet, cell, c.Value == "1" || strings.EqualFold(c.Value, "true"))
	case excelize.CellTypeNumber, excelize.CellTypeDate, excelize.CellTypeUnset:
		if f, err := strconv.ParseFloat(c.Value, 64); err == nil {
			return d.file.SetCellFloat(d.sheet, cell, f, -1, 64)
		}
	}
	return d.file.SetCellStr(d.sheet, cell, c.Value)
}

func (d *Document) writeLink(cell string, link *Hyperlink) error {
	var err error
	switch {
	case link == nil:
		ok, _, _ := d.file.GetCellHyperLink(d.sheet, cell)
		if ok {
			err = d.file.SetCellHyperLink(d.sheet, cell, "", "None")
		}
	case link.Location:
		err = d.file.SetCellHyperLink(d.sheet, cell, link.Target, "Location")
	default:
		err = d.file.SetCellHyperLink(d.sheet, cell, link.Target, "External")
	}
	if err != nil {
		return fmt.Errorf("hyperlink %s: %w", cell, err)
	}
	return nil
}

