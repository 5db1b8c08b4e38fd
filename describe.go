package xlpatch

import (
	"context"
	"fmt"
	"strings"
)

// Describe returns a human-readable summary of the plan Apply would run for
// req. Useful for checking a change set before committing to it.
func Describe(ctx context.Context, req Request, opts ...Option) (string, error) {
	p, err := NewEditor(opts...).PlanRequest(ctx, req)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Document: %s!%s\n", req.InputPath, req.Sheet)
	b.WriteString(p.Describe())
	b.WriteString(describeChanges(req.Changes))
	return b.String(), nil
}

// Describe renders the plan as an indented list of steps.
func (p Plan) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan: %s via %s (from %s)\n", p.Kind, p.Strategy, p.Source)
	if len(p.Steps) == 0 {
		b.WriteString("  (no steps)\n")
		return b.String()
	}
	for i, s := range p.Steps {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, s)
	}
	return b.String()
}

// describeChanges lists the non-empty parts of a change set.
func describeChanges(c ChangeSet) string {
	var parts []string
	add := func(format string, args ...any) { parts = append(parts, fmt.Sprintf(format, args...)) }

	if n := len(c.DeletedColumns); n > 0 {
		names := make([]string, n)
		for i, col := range c.DeletedColumns {
			names[i] = ColToName(col)
		}
		add("delete columns %s", strings.Join(names, ","))
	}
	for _, ins := range c.InsertedColumns {
		add("insert %d column(s) at %s", max(ins.Count, 1), ColToName(ins.Position))
	}
	if !isIdentityOrder(c.ColumnOrder) {
		add("reorder columns %v", c.ColumnOrder)
	}
	if len(c.DeletedRows) > 0 {
		add("delete rows %v", c.DeletedRows)
	}
	for _, ins := range c.InsertedRows {
		add("insert %d row(s) at %d", max(ins.Count, 1), ins.Position)
	}
	if len(c.RowOrder) > 0 {
		add("reorder rows %v", c.RowOrder)
	}
	if len(c.RowMapping) > 0 {
		add("row mapping of %d rows", len(c.RowMapping))
	}
	if len(c.EditedCells) > 0 {
		add("%d edited cell(s)", len(c.EditedCells))
	}
	if c.HiddenColumns != nil || c.HiddenRows != nil {
		add("hidden columns %v rows %v", c.HiddenColumns, c.HiddenRows)
	}
	if n := len(c.RowHighlights) + len(c.CellHighlights) + len(c.RowHighlightRules); n > 0 {
		add("%d highlight(s)", n)
	}
	if len(parts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Changes:\n")
	for _, p := range parts {
		fmt.Fprintf(&b, "  %s\n", p)
	}
	return b.String()
}
