package xlpatch

import (
	"fmt"
	"slices"
)

// rowStyleSource asks new data row Row to copy the cell styles of original
// data row Source.
type rowStyleSource struct {
	Row    int
	Source int
}

// ComposeRowMapping folds the row operations of c into one RowMapping for a
// sheet with originalRows data rows. An explicit RowMapping wins; otherwise
// deletions are applied first, then RowOrder (indices into the rows left
// after deletion), then insertions by ascending position.
func ComposeRowMapping(c ChangeSet, originalRows int) (RowMapping, []rowStyleSource, error) {
	if len(c.RowMapping) > 0 {
		m := make(RowMapping, len(c.RowMapping))
		for i, src := range c.RowMapping {
			switch {
			case src == nil:
				m[i] = NewRow
			case *src < 0 || *src >= originalRows:
				return nil, nil, NewValidationError("rowMapping", fmt.Errorf("entry %d: source row %d outside 0..%d", i, *src, originalRows-1))
			default:
				m[i] = *src
			}
		}
		return m, nil, nil
	}

	m := make(RowMapping, 0, originalRows)
	for i := range originalRows {
		if !slices.Contains(c.DeletedRows, i) {
			m = append(m, i)
		}
	}
	for _, d := range c.DeletedRows {
		if d < 0 || d >= originalRows {
			return nil, nil, NewValidationError("deletedRows", fmt.Errorf("row %d outside 0..%d", d, originalRows-1))
		}
	}

	if len(c.RowOrder) > 0 {
		if err := checkPermutation(c.RowOrder, len(m)); err != nil {
			return nil, nil, NewValidationError("rowOrder", err)
		}
		ordered := make(RowMapping, len(m))
		for i, idx := range c.RowOrder {
			ordered[i] = m[idx]
		}
		m = ordered
	}

	inserts := slices.Clone(c.InsertedRows)
	slices.SortStableFunc(inserts, func(a, b RowInsert) int { return a.Position - b.Position })
	var styles []rowStyleSource
	for _, ins := range inserts {
		count := max(ins.Count, 1)
		if ins.Position < 0 || ins.Position > len(m) {
			return nil, nil, NewValidationError("insertedRows", fmt.Errorf("position %d outside 0..%d", ins.Position, len(m)))
		}
		added := make([]int, count)
		for i := range added {
			added[i] = NewRow
		}
		m = slices.Insert(m, ins.Position, added...)
		for i := range styles {
			if styles[i].Row >= ins.Position {
				styles[i].Row += count
			}
		}
		if ins.SourceRow != nil {
			for i := range count {
				styles = append(styles, rowStyleSource{Row: ins.Position + i, Source: *ins.SourceRow})
			}
		}
	}
	return m, styles, nil
}

// checkPermutation verifies that order is a permutation of 0..n-1.
func checkPermutation(order []int, n int) error {
	if len(order) != n {
		return fmt.Errorf("has %d entries, want %d", len(order), n)
	}
	seen := make([]bool, n)
	for _, v := range order {
		if v < 0 || v >= n || seen[v] {
			return fmt.Errorf("is not a permutation of 0..%d", n-1)
		}
		seen[v] = true
	}
	return nil
}

// duplicateSources returns the original rows that appear more than once in
// m. The last occurrence wins when shifting references.
func duplicateSources(m RowMapping) []int {
	seen := make(map[int]bool, len(m))
	var dups []int
	for _, src := range m {
		if src == NewRow {
			continue
		}
		if seen[src] && !slices.Contains(dups, src) {
			dups = append(dups, src)
		}
		seen[src] = true
	}
	return dups
}
