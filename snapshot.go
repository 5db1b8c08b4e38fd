package xlpatch

import (
	"fmt"
	"slices"
)

// Snapshot is the read-side view of one sheet: what a caller sees after a
// request has been applied.
type Snapshot struct {
	Sheet         string
	Headers       []string
	Data          [][]string // formatted text, rows padded to len(Headers)
	HiddenColumns []int
	HiddenRows    []int // data rows
	Merges        []string
	Scopes        []string // conditional-formatting scopes
	Tables        []TableDefinition
}

// ReadSnapshot reads the sheet of the workbook at path.
func ReadSnapshot(path, sheet string) (*Snapshot, error) {
	doc, err := OpenDocument(path, sheet)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	s := &Snapshot{Sheet: sheet}
	rows, err := doc.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows of %q: %w", sheet, err)
	}
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	if len(rows) > 0 {
		s.Headers = pad(rows[0], cols)
	}
	for i, r := range rows[min(1, len(rows)):] {
		s.Data = append(s.Data, pad(r, cols))
		visible, err := doc.file.GetRowVisible(sheet, i+2)
		if err != nil {
			return nil, fmt.Errorf("read visibility of row %d: %w", i+2, err)
		}
		if !visible {
			s.HiddenRows = append(s.HiddenRows, i)
		}
	}
	for col := range cols {
		visible, err := doc.file.GetColVisible(sheet, ColToName(col))
		if err != nil {
			return nil, fmt.Errorf("read visibility of column %s: %w", ColToName(col), err)
		}
		if !visible {
			s.HiddenColumns = append(s.HiddenColumns, col)
		}
	}

	merges, err := doc.MergedRegions()
	if err != nil {
		return nil, err
	}
	for _, m := range merges {
		s.Merges = append(s.Merges, m.String())
	}
	slices.Sort(s.Merges)

	rules, err := doc.ConditionalFormats()
	if err != nil {
		return nil, err
	}
	s.Scopes = ScopeSet(rules)

	a, err := LoadArchive(path)
	if err != nil {
		return nil, err
	}
	if s.Tables, err = ReadTables(a, sheet); err != nil {
		return nil, err
	}
	return s, nil
}

// Cell returns the text of a data cell, or "" outside the sheet.
func (s *Snapshot) Cell(row, col int) string {
	if row < 0 || row >= len(s.Data) || col < 0 || col >= len(s.Data[row]) {
		return ""
	}
	return s.Data[row][col]
}

// Column returns the data values of one column.
func (s *Snapshot) Column(col int) []string {
	out := make([]string, len(s.Data))
	for i := range s.Data {
		out[i] = s.Cell(i, col)
	}
	return out
}

func pad(row []string, n int) []string {
	out := make([]string, n)
	copy(out, row)
	return out
}
