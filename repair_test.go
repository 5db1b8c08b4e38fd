package xlpatch

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tableXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<table xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:xr3="http://schemas.microsoft.com/office/spreadsheetml/2016/revision3" id="1" name="Sales" displayName="Sales" ref="A1:C5" totalsRowShown="0"><autoFilter ref="A1:C5"/><tableColumns count="3"><tableColumn id="1" xr3:uid="{AAAA}" name="Region"/><tableColumn id="2" xr3:uid="{BBBB}" name="R&amp;D"/><tableColumn id="3" xr3:uid="{CCCC}" name="Total"><calculatedColumnFormula>A2*2</calculatedColumnFormula></tableColumn></tableColumns><tableStyleInfo name="TableStyleMedium2" showRowStripes="1"/><extLst><ext uri="{keep}"/></extLst></table>`

func TestPatchTableXML(t *testing.T) {
	def := TableDefinition{
		Ref:     mustArea(t, "A1:C7"),
		Columns: []TableColumn{{1, "R&D"}, {2, "Added"}, {3, "Total"}},
	}
	out, err := PatchTableXML([]byte(tableXML), def)
	require.NoError(t, err)
	s := string(out)

	assert.Contains(t, s, `displayName="Sales" ref="A1:C7"`)
	assert.Contains(t, s, `<autoFilter ref="A1:C7"/>`)
	assert.Contains(t, s, `<tableColumns count="3"><tableColumn id="1" xr3:uid="{BBBB}" name="R&amp;D"/>`)
	assert.Contains(t, s, `<tableColumn id="3" xr3:uid="{CCCC}" name="Total"><calculatedColumnFormula>A2*2</calculatedColumnFormula></tableColumn>`)
	assert.Regexp(t, regexp.MustCompile(`<tableColumn id="2" name="Added" xr3:uid="\{[0-9A-F-]{36}\}"/>`), s)
	assert.NotContains(t, s, "Region")
	assert.Contains(t, s, `<extLst><ext uri="{keep}"/></extLst>`)
	assert.True(t, strings.HasPrefix(s, "<?xml"))
}

func TestPatchTableXML_RepeatedNamesAndNoRevisionNamespace(t *testing.T) {
	orig := `<table xmlns="ns" ref="A1:B3"><tableColumns count="2"><tableColumn id="1" name="X"/><tableColumn id="2" name="X"/></tableColumns></table>`
	def := TableDefinition{
		Ref:     mustArea(t, "A1:C3"),
		Columns: []TableColumn{{1, "X"}, {2, "X"}, {3, "X"}},
	}
	out, err := PatchTableXML([]byte(orig), def)
	require.NoError(t, err)
	assert.Equal(t,
		`<table xmlns="ns" ref="A1:C3"><tableColumns count="3"><tableColumn id="1" name="X"/><tableColumn id="2" name="X"/><tableColumn id="3" name="X"/></tableColumns></table>`,
		string(out))

	_, err = PatchTableXML([]byte(`<table ref="A1:A2"/>`), def)
	assert.Error(t, err)
}

func TestRepair_SharedStrings(t *testing.T) {
	original := newTestArchive(sharedStringsEntry, `<sst count="2"><si><t>a</t></si><si><r><t>b</t></r></si></sst>`)

	same := newTestArchive(sharedStringsEntry, `<sst><si><t>a</t></si><si><t>b</t></si></sst>`)
	report := Repair(same, original, nil)
	assert.Equal(t, []string{sharedStringsEntry}, report.Copied)
	body, _ := same.Get(sharedStringsEntry)
	assert.Contains(t, string(body), "<r><t>b</t></r>", "rich runs restored")

	grown := newTestArchive(sharedStringsEntry, `<sst><si><t>a</t></si><si><t>b</t></si><si><t>c</t></si></sst>`)
	report = Repair(grown, original, nil)
	assert.Empty(t, report.Copied)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, sharedStringsEntry, report.Failures[0].Entry)
	body, _ = grown.Get(sharedStringsEntry)
	assert.Contains(t, string(body), "<t>c</t>")
}

func TestRepair_TablesAndPreservedParts(t *testing.T) {
	original := newTestArchive(
		"xl/tables/table1.xml", tableXML,
		"xl/tables/table2.xml", `<?xml version="1.0"?><table ref="E1:E2"/>`,
		"xl/slicers/slicer1.xml", `<?xml version="1.0"?><slicers/>`,
		"xl/externalLinks/externalLink1.xml", `<?xml version="1.0"?><externalLink/>`,
	)
	out := newTestArchive(
		"xl/tables/table1.xml", `<?xml version="1.0"?><table ref="A1:C5" headerRowCount="1"/>`,
		"xl/tables/table2.xml", `<?xml version="1.0"?><table ref="E1:E2"/>`,
		"xl/externalLinks/externalLink1.xml", `<?xml version="1.0"?><externalLink rewritten="1"/>`,
	)
	edits := map[string]TableDefinition{
		"xl/tables/table1.xml": {Ref: mustArea(t, "A1:B5"), Columns: []TableColumn{{1, "Region"}, {2, "Total"}}},
		"xl/tables/table9.xml": {Ref: mustArea(t, "A1:A2"), Columns: []TableColumn{{1, "X"}}},
	}

	report := Repair(out, original, edits)
	assert.Equal(t, []string{"xl/tables/table1.xml"}, report.Patched)
	assert.Equal(t, []string{"xl/externalLinks/externalLink1.xml"}, report.Copied)
	assert.Equal(t, []string{"xl/tables/table2.xml"}, report.Unchanged)

	var missing []string
	for _, f := range report.Failures {
		assert.True(t, errors.Is(f, errEntryMissing), f.Error())
		missing = append(missing, f.Entry)
	}
	assert.ElementsMatch(t, []string{"xl/slicers/slicer1.xml", "xl/tables/table9.xml"}, missing)

	body, _ := out.Get("xl/tables/table1.xml")
	assert.Contains(t, string(body), `<tableColumns count="2">`)
	assert.Contains(t, string(body), `ref="A1:B5"`)
	assert.NotContains(t, string(body), "headerRowCount")
}

func TestRepair_WriterDefects(t *testing.T) {
	out := newTestArchive(
		"xl/worksheets/sheet1.xml", `<worksheet><sheetData><row r="1"><c r="A1" t="inlineStr"/><c r="B1" t="s"><v>0</v></c></row><row r="2"></row><row r="3" ht="30" customHeight="1"></row></sheetData></worksheet>`,
		"xl/worksheets/_rels/sheet1.xml.rels", `<?xml version="1.0"?><Relationships><Relationship Id="rId1" Target="/xl/tables/table1.xml"/><Relationship Id="rId2" Target="https://example.com" TargetMode="External"/></Relationships>`,
		"_rels/.rels", `<?xml version="1.0"?><Relationships><Relationship Id="rId1" Target="/xl/workbook.xml"/></Relationships>`,
		"xl/tables/table1.xml", `<?xml version="1.0"?>`+"\n"+`<table id="1" headerRowCount="1" xmlns="ns" ref="A1:B2"/>`,
		"docProps/app.xml", `<?xml version="1.0"?><Properties/>`,
	)
	report := Repair(out, newTestArchive(), nil)
	assert.ElementsMatch(t, []string{
		"xl/worksheets/sheet1.xml",
		"xl/worksheets/_rels/sheet1.xml.rels",
		"_rels/.rels",
		"xl/tables/table1.xml",
	}, report.Fixed)

	sheet, _ := out.Get("xl/worksheets/sheet1.xml")
	assert.Equal(t, xmlPrologue+`<worksheet><sheetData><row r="1"><c r="B1" t="s"><v>0</v></c></row><row r="3" ht="30" customHeight="1"></row></sheetData></worksheet>`, string(sheet))

	rels, _ := out.Get("xl/worksheets/_rels/sheet1.xml.rels")
	assert.Contains(t, string(rels), `Target="../tables/table1.xml"`)
	assert.Contains(t, string(rels), `Target="https://example.com"`)

	root, _ := out.Get("_rels/.rels")
	assert.Contains(t, string(root), `Target="xl/workbook.xml"`)

	table, _ := out.Get("xl/tables/table1.xml")
	assert.Contains(t, string(table), `<table xmlns="ns" id="1" ref="A1:B2"/>`)
}

func TestEnsurePrologue(t *testing.T) {
	assert.Equal(t, xmlPrologue+"<a/>", string(ensurePrologue([]byte("<a/>"))))
	assert.Equal(t, xmlPrologue+"<a/>", string(ensurePrologue([]byte("\xef\xbb\xbf<a/>"))))
	with := `<?xml version="1.0"?><a/>`
	assert.Equal(t, with, string(ensurePrologue([]byte(with))))
}
