package xlpatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ColumnInsert inserts Count blank columns at Position (final layout).
// SourceColumn, when set, names a column of the layout before the insert
// whose data-row formatting and width the new columns copy.
type ColumnInsert struct {
	Position     int      `json:"position" yaml:"position"`
	Count        int      `json:"count,omitempty" yaml:"count,omitempty"`
	SourceColumn *int     `json:"sourceColumn,omitempty" yaml:"sourceColumn,omitempty"`
	Headers      []string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// RowInsert inserts Count blank data rows at Position (final layout).
// SourceRow, when set, is an original data row whose cell styles the new
// rows copy.
type RowInsert struct {
	Position  int  `json:"position" yaml:"position"`
	Count     int  `json:"count,omitempty" yaml:"count,omitempty"`
	SourceRow *int `json:"sourceRow,omitempty" yaml:"sourceRow,omitempty"`
}

// Execution paths a change set can request.
const (
	PathAuto = ""
	PathHost = "host"
)

// ChangeSet describes one edit request. Every field is optional; row and
// column indices are 0-based, data rows exclude the header.
type ChangeSet struct {
	Headers     []string       `json:"headers,omitempty" yaml:"headers,omitempty"`
	Data        [][]any        `json:"data,omitempty" yaml:"data,omitempty"`
	EditedCells map[string]any `json:"editedCells,omitempty" yaml:"editedCells,omitempty"`

	DeletedColumns  []int          `json:"deletedColumns,omitempty" yaml:"deletedColumns,omitempty"`
	InsertedColumns []ColumnInsert `json:"insertedColumns,omitempty" yaml:"insertedColumns,omitempty"`
	ColumnOrder     []int          `json:"columnOrder,omitempty" yaml:"columnOrder,omitempty"`

	DeletedRows  []int       `json:"deletedRows,omitempty" yaml:"deletedRows,omitempty"`
	InsertedRows []RowInsert `json:"insertedRows,omitempty" yaml:"insertedRows,omitempty"`
	RowOrder     []int       `json:"rowOrder,omitempty" yaml:"rowOrder,omitempty"`
	RowMapping   []*int      `json:"rowMapping,omitempty" yaml:"rowMapping,omitempty"`

	HiddenColumns []int `json:"hiddenColumns,omitempty" yaml:"hiddenColumns,omitempty"`
	HiddenRows    []int `json:"hiddenRows,omitempty" yaml:"hiddenRows,omitempty"`

	RowHighlights        map[string]string  `json:"rowHighlights,omitempty" yaml:"rowHighlights,omitempty"`
	ClearedRowHighlights []int              `json:"clearedRowHighlights,omitempty" yaml:"clearedRowHighlights,omitempty"`
	CellHighlights       map[string]string  `json:"cellHighlights,omitempty" yaml:"cellHighlights,omitempty"`
	RowHighlightRules    []RowHighlightRule `json:"rowHighlightRules,omitempty" yaml:"rowHighlightRules,omitempty"`

	// Path forces an execution path; PathHost hands the request to the
	// host application bridge.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// DecodeChangeSet decodes a change set. format is "json" or "yaml"; an empty
// format sniffs the first non-space byte.
func DecodeChangeSet(data []byte, format string) (ChangeSet, error) {
	var cs ChangeSet
	if format == "" {
		format = "yaml"
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
			format = "json"
		}
	}
	switch strings.ToLower(format) {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&cs); err != nil {
			return cs, NewValidationError("changeSet", fmt.Errorf("decode json: %w", err))
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &cs); err != nil {
			return cs, NewValidationError("changeSet", fmt.Errorf("decode yaml: %w", err))
		}
	default:
		return cs, NewValidationError("changeSet", fmt.Errorf("unknown format %q", format))
	}
	cs.normalizeValues()
	return cs, nil
}

// LoadChangeSet reads a change set from a .json, .yaml or .yml file.
func LoadChangeSet(path string) (ChangeSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ChangeSet{}, fmt.Errorf("read change set %q: %w", path, err)
	}
	return DecodeChangeSet(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

// normalizeValues turns json.Number into float64 so values are written as
// numbers.
func (c *ChangeSet) normalizeValues() {
	for _, row := range c.Data {
		for i, v := range row {
			row[i] = normalizeValue(v)
		}
	}
	for k, v := range c.EditedCells {
		c.EditedCells[k] = normalizeValue(v)
	}
}

func normalizeValue(v any) any {
	if n, ok := v.(json.Number); ok {
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	}
	return v
}

// HasColumnOps reports whether the change set deletes, inserts or reorders
// columns.
func (c ChangeSet) HasColumnOps() bool {
	return len(c.DeletedColumns) > 0 || len(c.InsertedColumns) > 0 || !isIdentityOrder(c.ColumnOrder)
}

// HasRowOps reports whether the change set carries any row operation. An
// identity mapping still counts; classification decides what it means.
func (c ChangeSet) HasRowOps() bool {
	return len(c.DeletedRows) > 0 || len(c.InsertedRows) > 0 || len(c.RowOrder) > 0 || len(c.RowMapping) > 0
}

// HasFormatting reports whether hidden state or highlights are requested.
func (c ChangeSet) HasFormatting() bool {
	return c.HiddenColumns != nil || c.HiddenRows != nil || len(c.RowHighlights) > 0 ||
		len(c.ClearedRowHighlights) > 0 || len(c.CellHighlights) > 0 || len(c.RowHighlightRules) > 0
}

// HasValueEdits reports whether cell values are supplied.
func (c ChangeSet) HasValueEdits() bool {
	return len(c.EditedCells) > 0 || len(c.Data) > 0 || len(c.Headers) > 0
}

// ColumnShift builds the column transform for the change set.
func (c ChangeSet) ColumnShift() ColumnShift {
	ops := make([]ColumnOp, 0, len(c.DeletedColumns)+len(c.InsertedColumns))
	for _, d := range c.DeletedColumns {
		ops = append(ops, DeleteColumn(d))
	}
	for _, ins := range c.InsertedColumns {
		ops = append(ops, InsertColumn(ins.Position, ins.Count))
	}
	return NewColumnShift(ops...)
}

// EditedCell is one parsed entry of ChangeSet.EditedCells.
type EditedCell struct {
	Row, Col int // data row, column
	Value    any
}

// ParsedEdits returns the edited cells ordered by row then column.
func (c ChangeSet) ParsedEdits() ([]EditedCell, error) {
	out := make([]EditedCell, 0, len(c.EditedCells))
	for key, v := range c.EditedCells {
		row, col, err := parseRowColKey(key)
		if err != nil {
			return nil, NewValidationError("editedCells", err)
		}
		out = append(out, EditedCell{Row: row, Col: col, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out, nil
}

// parseRowColKey parses "row-col" keys.
func parseRowColKey(key string) (row, col int, err error) {
	r, c, ok := strings.Cut(key, "-")
	if !ok {
		return 0, 0, fmt.Errorf("key %q is not row-col", key)
	}
	if row, err = strconv.Atoi(r); err != nil || row < 0 {
		return 0, 0, fmt.Errorf("key %q: bad row", key)
	}
	if col, err = strconv.Atoi(c); err != nil || col < 0 {
		return 0, 0, fmt.Errorf("key %q: bad column", key)
	}
	return row, col, nil
}

// parsedRowHighlights converts row keys to integers.
func (c ChangeSet) parsedRowHighlights() (map[int]string, error) {
	out := make(map[int]string, len(c.RowHighlights))
	for k, color := range c.RowHighlights {
		row, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || row < 0 {
			return nil, NewValidationError("rowHighlights", fmt.Errorf("bad row %q", k))
		}
		out[row] = color
	}
	return out, nil
}

func isIdentityOrder(order []int) bool {
	for i, v := range order {
		if v != i {
			return false
		}
	}
	return true
}
