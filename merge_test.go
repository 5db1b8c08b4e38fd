package xlpatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reverseMapping(n int) RowMapping {
	m := make(RowMapping, n)
	for i := range m {
		m[i] = n - 1 - i
	}
	return m
}

func TestRemapMerges_ReverseStaysContiguous(t *testing.T) {
	merges := []AreaRef{mustArea(t, "A3:A4"), mustArea(t, "B2:C4")}
	kept, dropped := RemapMerges(merges, NewRowShift(reverseMapping(10), 10))
	assert.Empty(t, dropped)
	require.Len(t, kept, 2)
	assert.Equal(t, "A9:A10", kept[0].String())
	assert.Equal(t, "B9:C11", kept[1].String())
}

func TestRemapMerges_DropsSplitRegions(t *testing.T) {
	merges := []AreaRef{mustArea(t, "A3:A4"), mustArea(t, "B5:B6")}
	// data rows 1 and 2 end up apart; 3 and 4 stay adjacent.
	m := RowMapping{1, 0, 2, 3, 4}
	kept, dropped := RemapMerges(merges, NewRowShift(m, 5))
	assert.Equal(t, []AreaRef{mustArea(t, "A3:A4")}, dropped)
	assert.Equal(t, []AreaRef{mustArea(t, "B5:B6")}, kept)
}

func TestRemapMerges_DeletedRowDropsRegion(t *testing.T) {
	merges := []AreaRef{mustArea(t, "A2:A4"), mustArea(t, "A1:C1")}
	kept, dropped := RemapMerges(merges, NewRowShift(RowMapping{0, 2}, 3))
	assert.Equal(t, []AreaRef{mustArea(t, "A2:A4")}, dropped)
	assert.Equal(t, []AreaRef{mustArea(t, "A1:C1")}, kept, "header merges are kept")
}

// Every region that survives any mapping is one contiguous rectangle.
func TestRemapMerges_ContiguityInvariant(t *testing.T) {
	merges := []AreaRef{mustArea(t, "A2:A3"), mustArea(t, "B3:B6"), mustArea(t, "C7:D8"), mustArea(t, "E2:E9")}
	mappings := []RowMapping{
		reverseMapping(8),
		{0, 1, 2, 3, 4, 5, 6, 7},
		{1, 0, 3, 2, 5, 4, 7, 6},
		{0, NewRow, 1, 2, 3, 4, 5, 6, 7},
		{7, 6, 5},
		{2, 3, 4, 5, 0, 1, 6, 7},
	}
	for _, m := range mappings {
		shift := NewRowShift(m, 8)
		kept, dropped := RemapMerges(merges, shift)
		assert.Equal(t, len(merges), len(kept)+len(dropped))
		for _, k := range kept {
			assert.LessOrEqual(t, k.First.Row, k.Last.Row)
			for r := k.First.Row; r <= k.Last.Row; r++ {
				src := m[r-1]
				assert.NotEqual(t, NewRow, src, "merge %s covers an inserted row", k)
			}
		}
	}
}

func TestDocument_ReplaceMerges(t *testing.T) {
	path := createTableWorkbook(t)
	doc := openTestDocument(t, path)

	merges, err := doc.MergedRegions()
	require.NoError(t, err)
	assert.Equal(t, []AreaRef{mustArea(t, "A3:A4")}, merges)

	require.NoError(t, doc.ReplaceMerges([]AreaRef{mustArea(t, "B5:C5"), mustArea(t, "D2")}))
	merges, err = doc.MergedRegions()
	require.NoError(t, err)
	assert.Equal(t, []AreaRef{mustArea(t, "B5:C5")}, merges)
}
