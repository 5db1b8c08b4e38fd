package xlpatch

import (
	"bytes"
	"fmt"
	"html"
	"path"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
)

// workbookEntry is the workbook part every xlsx carries.
const workbookEntry = "xl/workbook.xml"

// parsePart parses an archive entry with xmlquery.
func parsePart(a *Archive, name string) (*xmlquery.Node, error) {
	body, ok := a.Get(name)
	if !ok {
		return nil, fmt.Errorf("entry %s: %w", name, errEntryMissing)
	}
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return doc, nil
}

// localAttr returns the value of the first attribute whose local name is
// local, whatever its namespace prefix.
func localAttr(n *xmlquery.Node, local string) string {
	for _, attr := range n.Attr {
		if attr.Name.Local == local {
			return attr.Value
		}
	}
	return ""
}

// relationshipID returns the r:id style attribute of n. It is the only
// namespaced "id" attribute on sheet and tablePart elements.
func relationshipID(n *xmlquery.Node) string {
	for _, attr := range n.Attr {
		if attr.Name.Local == "id" && attr.Name.Space != "" {
			return attr.Value
		}
	}
	return ""
}

// relationshipTargets maps relationship ids of part to archive entry names.
func relationshipTargets(a *Archive, part string) (map[string]string, error) {
	rels := relsEntry(part)
	doc, err := parsePart(a, rels)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, rel := range xmlquery.Find(doc, "//*[local-name()='Relationship']") {
		if strings.EqualFold(localAttr(rel, "TargetMode"), "External") {
			continue
		}
		out[localAttr(rel, "Id")] = resolveTarget(path.Dir(part), localAttr(rel, "Target"))
	}
	return out, nil
}

// SheetPart returns the worksheet entry for the sheet named sheet.
func SheetPart(a *Archive, sheet string) (string, error) {
	doc, err := parsePart(a, workbookEntry)
	if err != nil {
		return "", err
	}
	var rid string
	for _, n := range xmlquery.Find(doc, "//*[local-name()='sheets']/*[local-name()='sheet']") {
		if localAttr(n, "name") == sheet {
			rid = relationshipID(n)
			break
		}
	}
	if rid == "" {
		return "", fmt.Errorf("%q: %w", sheet, ErrSheetNotFound)
	}
	targets, err := relationshipTargets(a, workbookEntry)
	if err != nil {
		return "", err
	}
	part, ok := targets[rid]
	if !ok {
		return "", fmt.Errorf("sheet %q relationship %s: %w", sheet, rid, errEntryMissing)
	}
	return part, nil
}

// ReadTables returns the table definitions attached to sheet, in the order
// the worksheet lists them.
func ReadTables(a *Archive, sheet string) ([]TableDefinition, error) {
	part, err := SheetPart(a, sheet)
	if err != nil {
		return nil, err
	}
	doc, err := parsePart(a, part)
	if err != nil {
		return nil, err
	}
	tableParts := xmlquery.Find(doc, "//*[local-name()='tableParts']/*[local-name()='tablePart']")
	if len(tableParts) == 0 {
		return nil, nil
	}
	targets, err := relationshipTargets(a, part)
	if err != nil {
		return nil, err
	}

	var out []TableDefinition
	for _, tp := range tableParts {
		rid := relationshipID(tp)
		entry, ok := targets[rid]
		if !ok {
			return nil, fmt.Errorf("sheet %q table relationship %s: %w", sheet, rid, ErrTableNotFound)
		}
		def, err := readTablePart(a, entry)
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, nil
}

func readTablePart(a *Archive, entry string) (TableDefinition, error) {
	doc, err := parsePart(a, entry)
	if err != nil {
		return TableDefinition{}, err
	}
	root := xmlquery.FindOne(doc, "/*[local-name()='table']")
	if root == nil {
		return TableDefinition{}, fmt.Errorf("%s: no table element", entry)
	}
	ref, err := ParseAreaRef(localAttr(root, "ref"))
	if err != nil {
		return TableDefinition{}, fmt.Errorf("%s: %w", entry, err)
	}
	def := TableDefinition{
		Name:          localAttr(root, "displayName"),
		Part:          entry,
		Ref:           ref,
		HasAutoFilter: xmlquery.FindOne(root, "*[local-name()='autoFilter']") != nil,
		NoHeaderRow:   localAttr(root, "headerRowCount") == "0",
	}
	if def.Name == "" {
		def.Name = localAttr(root, "name")
	}
	for _, col := range xmlquery.Find(root, "*[local-name()='tableColumns']/*[local-name()='tableColumn']") {
		id, _ := strconv.Atoi(localAttr(col, "id"))
		def.Columns = append(def.Columns, TableColumn{ID: id, Name: localAttr(col, "name")})
	}
	return def, nil
}

// SheetAutoFilter returns the sheet-level auto-filter range, if any.
func SheetAutoFilter(a *Archive, sheet string) (AreaRef, bool, error) {
	part, err := SheetPart(a, sheet)
	if err != nil {
		return AreaRef{}, false, err
	}
	doc, err := parsePart(a, part)
	if err != nil {
		return AreaRef{}, false, err
	}
	n := xmlquery.FindOne(doc, "/*[local-name()='worksheet']/*[local-name()='autoFilter']")
	if n == nil {
		return AreaRef{}, false, nil
	}
	ref, err := ParseAreaRef(localAttr(n, "ref"))
	if err != nil {
		return AreaRef{}, false, fmt.Errorf("sheet %q auto-filter: %w", sheet, err)
	}
	return ref, true, nil
}

// xmlAttrEscaper escapes text for use inside a double-quoted attribute.
var xmlAttrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// unescapeAttr decodes entity references in a raw attribute value.
func unescapeAttr(s string) string {
	return html.UnescapeString(s)
}
