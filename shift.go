package xlpatch

import (
	"slices"
	"strings"
)

// RefMapper maps coordinates of the document before an edit to coordinates
// after it. The boolean result is false when the coordinate no longer exists.
type RefMapper interface {
	Cell(c CellRef) (CellRef, bool)
	Area(a AreaRef) (AreaRef, bool)
}

// ColumnOpKind distinguishes column deletions from insertions.
type ColumnOpKind int

const (
	ColumnOpDelete ColumnOpKind = iota
	ColumnOpInsert
)

// ColumnOp is one column operation. Delete uses Index; Insert uses Position
// and Count, where Position is expressed in the layout after all deletions and
// all earlier (lower-position) insertions.
type ColumnOp struct {
	Kind     ColumnOpKind
	Index    int
	Position int
	Count    int
}

// DeleteColumn returns a delete op for the 0-based column index.
func DeleteColumn(index int) ColumnOp {
	return ColumnOp{Kind: ColumnOpDelete, Index: index}
}

// InsertColumn returns an op inserting count blank columns at position.
func InsertColumn(position, count int) ColumnOp {
	if count < 1 {
		count = 1
	}
	return ColumnOp{Kind: ColumnOpInsert, Position: position, Count: count}
}

// ColumnShift is the column-axis transform for a set of deletions and
// insertions. The zero value is the identity.
type ColumnShift struct {
	deleted []int      // ascending, unique
	inserts []ColumnOp // ascending by position
}

// NewColumnShift normalizes ops: deletions are deduplicated, insertions are
// ordered least-position first.
func NewColumnShift(ops ...ColumnOp) ColumnShift {
	var s ColumnShift
	for _, op := range ops {
		switch op.Kind {
		case ColumnOpDelete:
			if op.Index >= 0 && !slices.Contains(s.deleted, op.Index) {
				s.deleted = append(s.deleted, op.Index)
			}
		case ColumnOpInsert:
			if op.Position >= 0 && op.Count > 0 {
				s.inserts = append(s.inserts, op)
			}
		}
	}
	slices.Sort(s.deleted)
	slices.SortStableFunc(s.inserts, func(a, b ColumnOp) int { return a.Position - b.Position })
	return s
}

// IsIdentity reports whether the shift has no operations.
func (s ColumnShift) IsIdentity() bool {
	return len(s.deleted) == 0 && len(s.inserts) == 0
}

// Deleted returns the deleted column indices, highest first, which is the
// order they must be removed from a document.
func (s ColumnShift) Deleted() []int {
	out := slices.Clone(s.deleted)
	slices.Reverse(out)
	return out
}

// Inserts returns the insert ops, lowest position first.
func (s ColumnShift) Inserts() []ColumnOp {
	return slices.Clone(s.inserts)
}

// IsDeleted reports whether the original column is deleted.
func (s ColumnShift) IsDeleted(col int) bool {
	_, found := slices.BinarySearch(s.deleted, col)
	return found
}

// Col maps an original column to its new index.
func (s ColumnShift) Col(col int) (int, bool) {
	if s.IsDeleted(col) {
		return 0, false
	}
	before, _ := slices.BinarySearch(s.deleted, col)
	out := col - before
	for _, ins := range s.inserts {
		if ins.Position <= out {
			out += ins.Count
		}
	}
	return out, true
}

// Cell shifts the column of a single cell; the row is untouched.
func (s ColumnShift) Cell(c CellRef) (CellRef, bool) {
	col, ok := s.Col(c.Col)
	if !ok {
		return CellRef{}, false
	}
	return CellRef{Row: c.Row, Col: col}, true
}

// Area shifts a range. A deleted endpoint is re-anchored to the nearest
// surviving column inside the original span; the range is removed only when
// every column in it is deleted.
func (s ColumnShift) Area(a AreaRef) (AreaRef, bool) {
	a = a.Normalize()
	first, last := a.First.Col, a.Last.Col
	for first <= last && s.IsDeleted(first) {
		first++
	}
	for last >= first && s.IsDeleted(last) {
		last--
	}
	if first > last {
		return AreaRef{}, false
	}
	nf, _ := s.Col(first)
	nl, _ := s.Col(last)
	return AreaRef{
		First: CellRef{Row: a.First.Row, Col: nf},
		Last:  CellRef{Row: a.Last.Row, Col: nl},
	}, true
}

// NewColumnCount returns the column count after applying the shift to a
// sheet that had n columns.
func (s ColumnShift) NewColumnCount(n int) int {
	for _, d := range s.deleted {
		if d < n {
			n--
		}
	}
	for _, ins := range s.inserts {
		n += ins.Count
	}
	return n
}

// NewRow marks a RowMapping entry with no source row.
const NewRow = -1

// RowMapping describes the data-row layout after an edit: element i is the
// original data-row index that feeds new data row i, or NewRow. Data row i is
// sheet row i+1; the header row is never part of a mapping.
type RowMapping []int

// IsIdentity reports whether the mapping keeps every one of originalRows data
// rows in place.
func (m RowMapping) IsIdentity(originalRows int) bool {
	if len(m) != originalRows {
		return false
	}
	for i, src := range m {
		if src != i {
			return false
		}
	}
	return true
}

// Reverse builds the original → new index map. When the same source appears
// more than once, the last position wins.
func (m RowMapping) Reverse() map[int]int {
	rev := make(map[int]int, len(m))
	for i, src := range m {
		if src != NewRow {
			rev[src] = i
		}
	}
	return rev
}

// RowShift is the row-axis transform derived from a RowMapping.
type RowShift struct {
	mapping      RowMapping
	reverse      map[int]int
	originalRows int
}

// NewRowShift builds a row transform for a sheet that had originalRows data
// rows before the edit. Rows below the data area move with its end.
func NewRowShift(m RowMapping, originalRows int) RowShift {
	return RowShift{mapping: m, reverse: m.Reverse(), originalRows: originalRows}
}

// Mapping returns the underlying mapping.
func (s RowShift) Mapping() RowMapping {
	return s.mapping
}

// Row maps an original 0-based sheet row to its new sheet row.
func (s RowShift) Row(row int) (int, bool) {
	if row == 0 {
		return 0, true
	}
	data := row - 1
	if data >= s.originalRows {
		return row + len(s.mapping) - s.originalRows, true
	}
	n, ok := s.reverse[data]
	if !ok {
		return 0, false
	}
	return n + 1, true
}

// Cell shifts the row of a single cell; the column is untouched.
func (s RowShift) Cell(c CellRef) (CellRef, bool) {
	r, ok := s.Row(c.Row)
	if !ok {
		return CellRef{}, false
	}
	return CellRef{Row: r, Col: c.Col}, true
}

// Area shifts a range along the row axis. A deleted start row is re-anchored
// to the next surviving row and a deleted end row to the previous one.
func (s RowShift) Area(a AreaRef) (AreaRef, bool) {
	a = a.Normalize()
	first, last := a.First.Row, a.Last.Row
	for first <= last {
		if _, ok := s.Row(first); ok {
			break
		}
		first++
	}
	for last >= first {
		if _, ok := s.Row(last); ok {
			break
		}
		last--
	}
	if first > last {
		return AreaRef{}, false
	}
	nf, _ := s.Row(first)
	nl, _ := s.Row(last)
	return NewAreaRef(
		CellRef{Row: nf, Col: a.First.Col},
		CellRef{Row: nl, Col: a.Last.Col},
	), true
}

// ShiftSqref applies m to every region of a space-separated scope. Regions
// are processed independently; the result is false when nothing survives.
func ShiftSqref(sqref string, m RefMapper) (string, bool) {
	var out []string
	for _, part := range strings.Fields(sqref) {
		a, err := ParseAreaRef(part)
		if err != nil {
			// Whole-column/row or named scopes are kept as they are.
			out = append(out, part)
			continue
		}
		var (
			shifted AreaRef
			ok      bool
		)
		if a.IsCell() {
			var c CellRef
			c, ok = m.Cell(a.First)
			shifted = AreaRef{First: c, Last: c}
		} else {
			shifted, ok = m.Area(a)
		}
		if ok {
			out = append(out, shifted.String())
		}
	}
	if len(out) == 0 {
		return "", false
	}
	return strings.Join(out, " "), true
}
