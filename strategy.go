package xlpatch

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/javajack/xlpatch/internal/ctxlog"
)

// step is one named unit of a plan. A step returning an error wrapping
// ErrFormattingSkipped is logged and the plan continues.
type step struct {
	name string
	run  func(ctx context.Context) error
}

// strategy turns a classified request into a plan.
type strategy interface {
	name() string
	source(ex *execution) Source
	steps(ex *execution) []step
}

func strategyFor(k Kind, c ChangeSet) strategy {
	switch k {
	case KindColumnOnly:
		return columnStrategy{}
	case KindRowOnly:
		return rowStrategy{}
	case KindCombined:
		return combinedStrategy{}
	case KindIdentityMapping:
		if c.HasColumnOps() {
			return identityStrategy{inner: columnStrategy{}}
		}
		return identityStrategy{inner: valueStrategy{}}
	default:
		return valueStrategy{}
	}
}

// columnStrategy edits the input in place: delete, insert, reorder, then one
// reference adjustment against the final column layout.
type columnStrategy struct{}

func (columnStrategy) name() string { return "column-in-place" }
func (columnStrategy) source(*execution) Source { return SourceInput }
func (columnStrategy) steps(ex *execution) []step { return withTail(ex, columnSteps(ex)) }

// rowStrategy rebuilds the row order against the pristine original.
type rowStrategy struct{}

func (rowStrategy) name() string { return "row-rebuild" }
func (rowStrategy) source(*execution) Source { return SourceOriginal }
func (rowStrategy) steps(ex *execution) []step { return withTail(ex, rowSteps(ex)) }

// combinedStrategy runs the full row pass, then the full column pass. The
// column pass reads the table extents the row pass produced.
type combinedStrategy struct{}

func (combinedStrategy) name() string { return "rows-then-columns" }
func (combinedStrategy) source(*execution) Source { return SourceInput }
func (combinedStrategy) steps(ex *execution) []step {
	return withTail(ex, append(rowSteps(ex), columnSteps(ex)...))
}

// valueStrategy only writes values and formatting. A request that carries
// formatting but no values starts again from the original, so highlights
// from earlier requests disappear.
type valueStrategy struct{}

func (valueStrategy) name() string { return "values" }
func (valueStrategy) source(ex *execution) Source {
	if !ex.changes.HasValueEdits() && ex.changes.HasFormatting() {
		return SourceOriginal
	}
	return SourceInput
}
func (valueStrategy) steps(ex *execution) []step { return withTail(ex, nil) }

// identityStrategy ignores an identity row mapping and delegates.
type identityStrategy struct {
	inner strategy
}

func (s identityStrategy) name() string { return "identity-mapping/" + s.inner.name() }
func (s identityStrategy) source(ex *execution) Source { return s.inner.source(ex) }
func (s identityStrategy) steps(ex *execution) []step {
	return append([]step{{name: "ignore-identity-mapping", run: func(ctx context.Context) error {
		ctxlog.FromContext(ctx).Info("row mapping keeps every row in place; ignored", "rows", ex.originalRows)
		return nil
	}}}, s.inner.steps(ex)...)
}

func columnSteps(ex *execution) []step {
	var out []step
	c := ex.changes
	if len(c.DeletedColumns) > 0 || len(c.InsertedColumns) > 0 {
		out = append(out, step{"snapshot-formatting", ex.snapshotFormatting})
	}
	if len(c.DeletedColumns) > 0 {
		out = append(out, step{"delete-columns", ex.deleteColumns})
	}
	if len(c.InsertedColumns) > 0 {
		out = append(out, step{"insert-columns", ex.insertColumns})
		if slices.ContainsFunc(c.InsertedColumns, func(i ColumnInsert) bool { return i.SourceColumn != nil }) {
			out = append(out, step{"copy-column-formatting", ex.copyColumnFormatting})
		}
	}
	if !isIdentityOrder(c.ColumnOrder) {
		out = append(out, step{"reorder-columns", ex.reorderColumns})
	}
	if len(c.DeletedColumns) > 0 || len(c.InsertedColumns) > 0 {
		out = append(out, step{"adjust-column-references", ex.adjustColumnReferences})
	}
	return out
}

func rowSteps(ex *execution) []step {
	out := []step{
		{"snapshot-formatting", ex.snapshotFormatting},
		{"relocate-rows", ex.relocateRows},
	}
	if len(ex.rowStyles) > 0 {
		out = append(out, step{"copy-row-formatting", ex.copyRowFormatting})
	}
	return append(out, step{"adjust-row-references", ex.adjustRowReferences})
}

// withTail appends the value, visibility and highlight steps shared by
// every strategy, and the final table reconciliation.
func withTail(ex *execution, out []step) []step {
	c := ex.changes
	if c.HasValueEdits() {
		out = append(out, step{"write-values", ex.writeValues})
	}
	if c.HiddenColumns != nil {
		out = append(out, step{"hide-columns", ex.hideColumns})
	}
	if c.HiddenRows != nil {
		out = append(out, step{"hide-rows", ex.hideRows})
	}
	if len(c.ClearedRowHighlights) > 0 {
		out = append(out, step{"clear-row-highlights", ex.clearRowHighlights})
	}
	if len(c.RowHighlights) > 0 {
		out = append(out, step{"highlight-rows", ex.highlightRows})
	}
	if len(c.RowHighlightRules) > 0 {
		out = append(out, step{"highlight-rules", ex.highlightRules})
	}
	if len(c.CellHighlights) > 0 {
		out = append(out, step{"highlight-cells", ex.highlightCells})
	}
	return append(out, step{"reconcile-tables", ex.reconcileTables})
}

// runSteps executes a plan. Skipped refinements are logged; any other error
// stops the request.
func runSteps(ctx context.Context, steps []step) error {
	log := ctxlog.FromContext(ctx)
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Debug("running step", "step", s.name)
		if err := s.run(ctx); err != nil {
			if errors.Is(err, ErrFormattingSkipped) {
				log.Warn("refinement skipped", "step", s.name, "skip", err.Error())
				continue
			}
			return fmt.Errorf("step %s: %w", s.name, err)
		}
	}
	return nil
}
