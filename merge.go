package xlpatch

import (
	"fmt"
	"slices"
)

// RemapMerges moves merged regions through a row shift. A merge survives
// only if every row it spans still exists and the rows land on one
// contiguous run; anything else is dropped, never emitted malformed.
func RemapMerges(merges []AreaRef, shift RowShift) (kept, dropped []AreaRef) {
	for _, m := range merges {
		m = m.Normalize()
		if m.Last.Row == 0 {
			kept = append(kept, m)
			continue
		}
		rows := make([]int, 0, m.Height())
		ok := true
		for r := m.First.Row; r <= m.Last.Row; r++ {
			n, found := shift.Row(r)
			if !found {
				ok = false
				break
			}
			rows = append(rows, n)
		}
		if !ok || !contiguous(rows) {
			dropped = append(dropped, m)
			continue
		}
		kept = append(kept, AreaRef{
			First: CellRef{Row: slices.Min(rows), Col: m.First.Col},
			Last:  CellRef{Row: slices.Max(rows), Col: m.Last.Col},
		})
	}
	return kept, dropped
}

// contiguous reports whether rows, in any order, form one gap-free run
// without repeats.
func contiguous(rows []int) bool {
	s := slices.Clone(rows)
	slices.Sort(s)
	for i := 1; i < len(s); i++ {
		if s[i] != s[i-1]+1 {
			return false
		}
	}
	return true
}

// MergedRegions returns the merged ranges of the sheet.
func (d *Document) MergedRegions() ([]AreaRef, error) {
	cells, err := d.file.GetMergeCells(d.sheet)
	if err != nil {
		return nil, fmt.Errorf("read merged cells: %w", err)
	}
	out := make([]AreaRef, 0, len(cells))
	for _, c := range cells {
		a, err := ParseAreaRef(c.GetStartAxis() + ":" + c.GetEndAxis())
		if err != nil {
			return nil, fmt.Errorf("merged cell %s: %w", c.GetStartAxis(), err)
		}
		out = append(out, a)
	}
	return out, nil
}

// ReplaceMerges unmerges every region on the sheet and merges regions.
func (d *Document) ReplaceMerges(regions []AreaRef) error {
	current, err := d.MergedRegions()
	if err != nil {
		return err
	}
	for _, a := range current {
		if err := d.file.UnmergeCell(d.sheet, a.First.String(), a.Last.String()); err != nil {
			return fmt.Errorf("unmerge %s: %w", a, err)
		}
	}
	for _, a := range regions {
		if a.IsCell() {
			continue
		}
		if err := d.file.MergeCell(d.sheet, a.First.String(), a.Last.String()); err != nil {
			return fmt.Errorf("merge %s: %w", a, err)
		}
	}
	return nil
}
