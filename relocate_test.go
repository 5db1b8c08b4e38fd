package xlpatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestRelocateRows_ScenarioD(t *testing.T) {
	var boldID int
	path := createGridWorkbook(t, 3, 10, func(f *excelize.File) {
		var err error
		boldID, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		require.NoError(t, err)
		require.NoError(t, f.SetCellStyle(testSheet, "A11", "C11", boldID))
		require.NoError(t, f.SetRowHeight(testSheet, 11, 30))
		require.NoError(t, f.SetCellHyperLink(testSheet, "B11", "https://example.com", "External"))
		require.NoError(t, f.MergeCell(testSheet, "C3", "C4"))
		require.NoError(t, f.MergeCell(testSheet, "A5", "A7"))
	})
	doc := openTestDocument(t, path)

	report, err := RelocateRows(testContext(t), doc, reverseMapping(10))
	require.NoError(t, err)
	assert.Equal(t, 10, report.OriginalRows)
	assert.Equal(t, 10, report.NewRows)
	assert.Empty(t, report.DroppedMerges)

	c, err := doc.ReadCell(CellRef{Row: 1, Col: 0})
	require.NoError(t, err)
	assert.Equal(t, "r9c0", c.Value)
	assert.Equal(t, boldID, c.StyleID)

	link, err := doc.ReadCell(CellRef{Row: 1, Col: 1})
	require.NoError(t, err)
	require.NotNil(t, link.Link)
	assert.Equal(t, "https://example.com", link.Link.Target)

	h, err := doc.file.GetRowHeight(testSheet, 2)
	require.NoError(t, err)
	assert.Equal(t, 30.0, h)

	last, err := doc.ReadCell(CellRef{Row: 10, Col: 0})
	require.NoError(t, err)
	assert.Equal(t, "r0c0", last.Value)
	assert.NotEqual(t, boldID, last.StyleID)

	merges, err := doc.MergedRegions()
	require.NoError(t, err)
	assert.ElementsMatch(t, []AreaRef{mustArea(t, "C9:C10"), mustArea(t, "A6:A8")}, merges)
}

func TestRelocateRows_DropsSplitMergeAndInsertsPlainRows(t *testing.T) {
	path := createGridWorkbook(t, 2, 4, func(f *excelize.File) {
		require.NoError(t, f.MergeCell(testSheet, "B2", "B3"))
		style, err := f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFEEEE"}}})
		require.NoError(t, err)
		require.NoError(t, f.SetCellStyle(testSheet, "A2", "B5", style))
	})
	doc := openTestDocument(t, path)

	report, err := RelocateRows(testContext(t), doc, RowMapping{0, NewRow, 1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []AreaRef{mustArea(t, "B2:B3")}, report.DroppedMerges)

	rows, _, err := doc.Dimensions()
	require.NoError(t, err)
	assert.Equal(t, 6, rows)

	blank, err := doc.ReadCell(CellRef{Row: 2, Col: 0})
	require.NoError(t, err)
	assert.True(t, blank.IsEmpty())
	assert.Zero(t, blank.StyleID, "inserted rows are plain")

	moved, err := doc.ReadCell(CellRef{Row: 5, Col: 1})
	require.NoError(t, err)
	assert.Equal(t, "r3c1", moved.Value)
	assert.NotZero(t, moved.StyleID)
}

func TestRelocateRows_DeleteShrinksSheet(t *testing.T) {
	path := createGridWorkbook(t, 3, 5, func(f *excelize.File) {
		require.NoError(t, f.SetCellFormula(testSheet, "C2", "A2&B6"))
	})
	doc := openTestDocument(t, path)

	_, err := RelocateRows(testContext(t), doc, RowMapping{4, 0})
	require.NoError(t, err)

	rows, _, err := doc.Dimensions()
	require.NoError(t, err)
	assert.Equal(t, 3, rows)

	c, err := doc.ReadCell(CellRef{Row: 1, Col: 0})
	require.NoError(t, err)
	assert.Equal(t, "r4c0", c.Value)

	f, err := doc.ReadCell(CellRef{Row: 2, Col: 2})
	require.NoError(t, err)
	assert.Equal(t, "A3&B2", f.Formula, "formulas follow the rows they reference")
}

func TestRelocateColumns_ValuesOnly(t *testing.T) {
	var redID int
	path := createGridWorkbook(t, 3, 2, func(f *excelize.File) {
		var err error
		redID, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "FF0000"}})
		require.NoError(t, err)
		require.NoError(t, f.SetCellStyle(testSheet, "A1", "A3", redID))
		require.NoError(t, f.SetCellHyperLink(testSheet, "C2", "Sheet1!A1", "Location"))
	})
	doc := openTestDocument(t, path)

	require.NoError(t, RelocateColumns(doc, []int{2, 1, 0}))

	first, err := doc.ReadCell(CellRef{Row: 1, Col: 0})
	require.NoError(t, err)
	assert.Equal(t, "r0c2", first.Value)
	assert.Equal(t, redID, first.StyleID, "styles stay with the position")
	require.NotNil(t, first.Link)
	assert.True(t, first.Link.Location)

	third, err := doc.ReadCell(CellRef{Row: 1, Col: 2})
	require.NoError(t, err)
	assert.Equal(t, "r0c0", third.Value)
	assert.Nil(t, third.Link)

	err = RelocateColumns(doc, []int{0, 5})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCopyColumnFormatting(t *testing.T) {
	path := createGridWorkbook(t, 3, 3, func(f *excelize.File) {
		style, err := f.NewStyle(&excelize.Style{NumFmt: 4})
		require.NoError(t, err)
		require.NoError(t, f.SetCellStyle(testSheet, "B2", "B4", style))
		require.NoError(t, f.SetColWidth(testSheet, "B", "B", 22))
	})
	doc := openTestDocument(t, path)

	require.NoError(t, doc.CopyColumnFormatting(1, 2))

	src, err := doc.CellStyle(CellRef{Row: 2, Col: 1})
	require.NoError(t, err)
	dst, err := doc.CellStyle(CellRef{Row: 2, Col: 2})
	require.NoError(t, err)
	assert.Equal(t, src.ID, dst.ID)

	header, err := doc.CellStyle(CellRef{Row: 0, Col: 2})
	require.NoError(t, err)
	assert.Zero(t, header.ID, "header is never restyled")

	w, err := doc.file.GetColWidth(testSheet, "C")
	require.NoError(t, err)
	assert.Equal(t, 22.0, w)

	err = doc.CopyColumnFormatting(9, 2)
	assert.ErrorIs(t, err, ErrFormattingSkipped)
}
