package xlpatch

import (
	"fmt"
	"slices"
	"strings"
)

// TableColumn is one column definition of a structured table.
type TableColumn struct {
	ID   int
	Name string
}

// TableDefinition is the part of a structured table that structural edits
// change. Len(Columns) always equals Ref.Width().
type TableDefinition struct {
	Name          string
	Part          string // archive entry, e.g. "xl/tables/table1.xml"
	Ref           AreaRef
	Columns       []TableColumn
	HasAutoFilter bool
	NoHeaderRow   bool // headerRowCount="0"; column names are not on the sheet
}

// ColumnNames returns the column names in order.
func (t TableDefinition) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Equal reports whether both definitions describe the same range and
// column names.
func (t TableDefinition) Equal(o TableDefinition) bool {
	return t.Ref == o.Ref && slices.Equal(t.ColumnNames(), o.ColumnNames())
}

func (t TableDefinition) String() string {
	return fmt.Sprintf("%s %s [%s]", t.Name, t.Ref, strings.Join(t.ColumnNames(), ", "))
}

// placeholderColumnName is the default name pattern for columns without a
// header; %d is the 1-based position inside the table.
const placeholderColumnName = "Column%d"

// AdjustTableColumns applies a column shift to a table. headers holds the
// text of the table's header row after the edit, indexed by new column; it
// names inserted columns. The result is false, and def is returned untouched, when
// the table would end up with no columns.
func AdjustTableColumns(def TableDefinition, shift ColumnShift, headers []string, placeholder string) (TableDefinition, bool) {
	if shift.IsIdentity() {
		return def, false
	}
	if placeholder == "" {
		placeholder = placeholderColumnName
	}
	left := def.Ref.First.Col
	right := def.Ref.Last.Col

	cols := slices.Clone(def.Columns)
	for _, d := range shift.Deleted() {
		if d >= left && d <= right {
			idx := d - left
			if idx < len(cols) {
				cols = slices.Delete(cols, idx, idx+1)
			}
		}
	}

	// Post-deletion left edge of the table; deleted columns before the table
	// move it left.
	newLeft := left
	for _, d := range shift.Deleted() {
		if d < left {
			newLeft--
		}
	}
	end := newLeft + len(cols) // exclusive, in post-deletion coordinates
	for _, ins := range shift.Inserts() {
		switch {
		case ins.Position < newLeft:
			newLeft += ins.Count
			end += ins.Count
		case ins.Position <= end:
			at := ins.Position - newLeft
			added := make([]TableColumn, ins.Count)
			for i := range added {
				added[i] = TableColumn{Name: headerAt(headers, ins.Position+i)}
			}
			cols = slices.Insert(cols, at, added...)
			end += ins.Count
		}
	}

	if len(cols) <= 0 {
		return def, false
	}
	out := def
	out.Columns = renumber(cols, placeholder)
	out.Ref = AreaRef{
		First: CellRef{Row: def.Ref.First.Row, Col: newLeft},
		Last:  CellRef{Row: def.Ref.Last.Row, Col: newLeft + len(cols) - 1},
	}
	return out, true
}

// ReconcileTableFromHeaders re-derives column names from the table's header
// row, left to right. headers is that row of the sheet, indexed by column. It is used after a pure reorder and as the
// final pass of every request; column identity follows position.
func ReconcileTableFromHeaders(def TableDefinition, headers []string, placeholder string) TableDefinition {
	if placeholder == "" {
		placeholder = placeholderColumnName
	}
	out := def
	out.Columns = make([]TableColumn, def.Ref.Width())
	for i := range out.Columns {
		out.Columns[i] = TableColumn{Name: headerAt(headers, def.Ref.First.Col+i)}
	}
	out.Columns = renumber(out.Columns, placeholder)
	return out
}

// AdjustTableRows moves the table's bottom edge with the row shift. A table
// that ended on the last data row keeps ending on the last data row.
func AdjustTableRows(def TableDefinition, shift RowShift, originalRows int) (TableDefinition, bool) {
	newRows := len(shift.Mapping())
	out := def
	switch {
	case def.Ref.Last.Row == originalRows && newRows >= 1:
		out.Ref.Last.Row = newRows
	default:
		last, ok := shift.Row(def.Ref.Last.Row)
		if !ok {
			area, ok := shift.Area(def.Ref)
			if !ok {
				return def, false
			}
			last = area.Last.Row
		}
		out.Ref.Last.Row = last
	}
	if out.Ref.Last.Row <= out.Ref.First.Row {
		// A table needs its header plus at least one data row.
		out.Ref.Last.Row = out.Ref.First.Row + 1
	}
	return out, out.Ref != def.Ref
}

// renumber assigns dense ids 1..N and fills empty names with placeholders.
// Names are made unique within the table, as spreadsheet applications
// require.
func renumber(cols []TableColumn, placeholder string) []TableColumn {
	seen := make(map[string]int, len(cols))
	for i := range cols {
		cols[i].ID = i + 1
		if strings.TrimSpace(cols[i].Name) == "" {
			cols[i].Name = fmt.Sprintf(placeholder, i+1)
		}
		key := strings.ToLower(cols[i].Name)
		if n, dup := seen[key]; dup {
			seen[key] = n + 1
			cols[i].Name = fmt.Sprintf("%s%d", cols[i].Name, n+1)
			key = strings.ToLower(cols[i].Name)
		}
		seen[key] = 1
	}
	return cols
}

func headerAt(headers []string, col int) string {
	if col < 0 || col >= len(headers) {
		return ""
	}
	return strings.TrimSpace(headers[col])
}
