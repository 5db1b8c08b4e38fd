package xlpatch

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestArchive builds an archive from name/body pairs.
func newTestArchive(pairs ...string) *Archive {
	a := &Archive{entries: make(map[string][]byte)}
	for i := 0; i+1 < len(pairs); i += 2 {
		a.Set(pairs[i], []byte(pairs[i+1]))
	}
	return a
}

func TestArchive_BytesRoundTrip(t *testing.T) {
	a := newTestArchive(
		"xl/workbook.xml", "<workbook/>",
		"xl/tables/table2.xml", "<table id=\"2\"/>",
		contentTypesEntry, "<Types/>",
		"xl/tables/table1.xml", "<table id=\"1\"/>",
	)
	data, err := a.Bytes()
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 4)
	assert.Equal(t, contentTypesEntry, zr.File[0].Name, "content types come first")

	back, err := ReadArchive(data)
	require.NoError(t, err)
	assert.Equal(t, []string{contentTypesEntry, "xl/workbook.xml", "xl/tables/table2.xml", "xl/tables/table1.xml"}, back.Names())
	body, ok := back.Get("xl/tables/table1.xml")
	require.True(t, ok)
	assert.Equal(t, `<table id="1"/>`, string(body))
}

func TestArchive_ReadRejectsGarbage(t *testing.T) {
	_, err := ReadArchive([]byte("plain text"))
	assert.ErrorContains(t, err, "open archive")
}

func TestArchive_Glob(t *testing.T) {
	a := newTestArchive(
		"xl/tables/table10.xml", "",
		"xl/tables/table2.xml", "",
		"xl/tables/_rels/table2.xml.rels", "",
		"xl/slicers/slicer1.xml", "",
	)
	assert.Equal(t, []string{"xl/tables/table10.xml", "xl/tables/table2.xml"}, a.Glob("xl/tables", "*.xml"))
	assert.Equal(t, []string{"xl/slicers/slicer1.xml"}, a.Glob("xl/slicers", "*"))
	assert.Empty(t, a.Glob("xl/externalLinks", "*"))
}

func TestArchive_Same(t *testing.T) {
	a := newTestArchive("x.xml", "<a/>", "y.xml", "<b/>")
	b := newTestArchive("x.xml", "<a/>", "y.xml", "<c/>")

	assert.True(t, a.Same(b, "x.xml"))
	assert.False(t, a.Same(b, "y.xml"))
	assert.False(t, a.Same(b, "z.xml"), "missing entries are never the same")
	assert.Equal(t, a.Digest("x.xml"), b.Digest("x.xml"))
}

func TestArchive_SetKeepsOrder(t *testing.T) {
	a := newTestArchive("a", "1", "b", "2")
	a.Set("a", []byte("3"))
	a.Set("c", []byte("4"))
	assert.Equal(t, []string{"a", "b", "c"}, a.Names())
}

func TestResolveTarget(t *testing.T) {
	assert.Equal(t, "xl/tables/table1.xml", resolveTarget("xl/worksheets", "../tables/table1.xml"))
	assert.Equal(t, "xl/worksheets/sheet1.xml", resolveTarget("xl", "worksheets/sheet1.xml"))
	assert.Equal(t, "xl/worksheets/sheet2.xml", resolveTarget("xl", "/xl/worksheets/sheet2.xml"))
	assert.Equal(t, "xl/worksheets/_rels/sheet1.xml.rels", relsEntry("xl/worksheets/sheet1.xml"))
}
