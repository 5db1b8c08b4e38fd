package xlpatch

import (
	"fmt"
	"strconv"
	"strings"
)

// CellRef is a single cell position. Row and Col are 0-based; row 0 is the
// header row of the sheet being edited.
type CellRef struct {
	Row int
	Col int
}

// NewCellRef creates a CellRef from 0-based row and column indices.
func NewCellRef(row, col int) CellRef {
	return CellRef{Row: row, Col: col}
}

// ParseCellRef parses a cell reference like "A1" or "$B$7". A sheet prefix
// ("Sheet1!A1") is accepted and discarded.
func ParseCellRef(s string) (CellRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CellRef{}, fmt.Errorf("empty cell reference")
	}
	if idx := strings.LastIndex(s, "!"); idx >= 0 {
		s = s[idx+1:]
	}
	name := strings.ReplaceAll(s, "$", "")
	col, row, err := parseCellName(name)
	if err != nil {
		return CellRef{}, fmt.Errorf("invalid cell reference %q: %w", s, err)
	}
	return CellRef{Row: row, Col: col}, nil
}

// parseCellName parses "A1" into col=0, row=0.
func parseCellName(name string) (col, row int, err error) {
	i := 0
	for i < len(name) && isAlpha(name[i]) {
		i++
	}
	if i == 0 || i == len(name) {
		return 0, 0, fmt.Errorf("invalid cell name: %q", name)
	}

	col, err = NameToCol(name[:i])
	if err != nil {
		return 0, 0, err
	}
	rowNum, err := strconv.Atoi(name[i:])
	if err != nil || rowNum < 1 {
		return 0, 0, fmt.Errorf("invalid row number in cell name: %q", name)
	}
	return col, rowNum - 1, nil
}

func isAlpha(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// String formats the reference as "A1".
func (c CellRef) String() string {
	return ColToName(c.Col) + strconv.Itoa(c.Row+1)
}

// ColToName converts a 0-based column index to a column name.
// 0→"A", 25→"Z", 26→"AA", 702→"AAA"
func ColToName(col int) string {
	result := ""
	col++
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

// NameToCol converts a column name to a 0-based column index.
// "A"→0, "Z"→25, "AA"→26
func NameToCol(name string) (int, error) {
	name = strings.ToUpper(name)
	if name == "" {
		return 0, fmt.Errorf("empty column name")
	}
	col := 0
	for _, ch := range name {
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("invalid column name: %q", name)
		}
		col = col*26 + int(ch-'A') + 1
	}
	return col - 1, nil
}

// AreaRef is a rectangular range. First is the top-left corner and Last the
// bottom-right one; a single cell has First == Last.
type AreaRef struct {
	First CellRef
	Last  CellRef
}

// NewAreaRef creates a normalized AreaRef from two corners.
func NewAreaRef(a, b CellRef) AreaRef {
	return AreaRef{First: a, Last: b}.Normalize()
}

// ParseAreaRef parses "A1:C5" or a single cell "B2".
func ParseAreaRef(s string) (AreaRef, error) {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndex(s, "!"); idx >= 0 {
		s = s[idx+1:]
	}
	first, last, found := strings.Cut(s, ":")
	a, err := ParseCellRef(first)
	if err != nil {
		return AreaRef{}, err
	}
	if !found {
		return AreaRef{First: a, Last: a}, nil
	}
	b, err := ParseCellRef(last)
	if err != nil {
		return AreaRef{}, err
	}
	return NewAreaRef(a, b), nil
}

// Normalize swaps corners so that First is top-left and Last bottom-right.
func (a AreaRef) Normalize() AreaRef {
	if a.First.Row > a.Last.Row {
		a.First.Row, a.Last.Row = a.Last.Row, a.First.Row
	}
	if a.First.Col > a.Last.Col {
		a.First.Col, a.Last.Col = a.Last.Col, a.First.Col
	}
	return a
}

// IsCell reports whether the area covers exactly one cell.
func (a AreaRef) IsCell() bool {
	return a.First == a.Last
}

// Width returns the number of columns covered.
func (a AreaRef) Width() int {
	return a.Last.Col - a.First.Col + 1
}

// Height returns the number of rows covered.
func (a AreaRef) Height() int {
	return a.Last.Row - a.First.Row + 1
}

// Contains reports whether the cell lies inside the area.
func (a AreaRef) Contains(c CellRef) bool {
	return c.Row >= a.First.Row && c.Row <= a.Last.Row &&
		c.Col >= a.First.Col && c.Col <= a.Last.Col
}

// String formats the area as "A1:C5", or "A1" for a single cell.
func (a AreaRef) String() string {
	if a.IsCell() {
		return a.First.String()
	}
	return a.First.String() + ":" + a.Last.String()
}

// Sqref is a multi-range scope as stored in conditional formatting and data
// validation: space-separated regions such as "A1:A10 C1:C10".
type Sqref []AreaRef

// ParseSqref parses a space-separated list of ranges.
func ParseSqref(s string) (Sqref, error) {
	fields := strings.Fields(s)
	out := make(Sqref, 0, len(fields))
	for _, f := range fields {
		a, err := ParseAreaRef(f)
		if err != nil {
			return nil, fmt.Errorf("parse sqref %q: %w", s, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// String joins the regions with a single space.
func (s Sqref) String() string {
	parts := make([]string, len(s))
	for i, a := range s {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}
