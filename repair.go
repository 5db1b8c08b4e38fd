package xlpatch

import (
	"bytes"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// RepairReport lists what Repair did, by archive entry.
type RepairReport struct {
	Copied    []string // replaced by the original's bytes
	Patched   []string // original bytes with ref/column surgery
	Unchanged []string // already identical to the original
	Fixed     []string // writer defects corrected in place
	Failures  []*RepairFailure
}

func (r *RepairReport) fail(entry string, err error) {
	r.Failures = append(r.Failures, &RepairFailure{Entry: entry, Err: err})
}

const (
	sharedStringsEntry = "xl/sharedStrings.xml"
	xmlPrologue        = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
)

// Repair patches out, the archive produced by the writer, against original.
// edits holds the final definition of every table whose range or columns
// changed, keyed by archive entry. Missing entries are recorded as failures
// and skipped.
func Repair(out, original *Archive, edits map[string]TableDefinition) RepairReport {
	var r RepairReport

	r.restoreSharedStrings(out, original)
	for _, dir := range []string{"xl/externalLinks", "xl/externalLinks/_rels", "xl/slicerCaches", "xl/slicers"} {
		for _, name := range original.Glob(dir, "*") {
			r.copyEntry(out, original, name)
		}
	}
	for _, name := range original.Glob("xl/tables", "*.xml") {
		def, edited := edits[name]
		if !edited {
			r.copyEntry(out, original, name)
			continue
		}
		r.patchTable(out, original, name, def)
	}
	for name := range edits {
		if !original.Has(name) {
			r.fail(name, fmt.Errorf("edited table not in original: %w", errEntryMissing))
		}
	}

	r.fixWriterDefects(out)
	return r
}

// copyEntry replaces an output entry with the original's bytes.
func (r *RepairReport) copyEntry(out, original *Archive, name string) {
	if !out.Has(name) {
		r.fail(name, fmt.Errorf("not in output: %w", errEntryMissing))
		return
	}
	if out.Same(original, name) {
		r.Unchanged = append(r.Unchanged, name)
		return
	}
	body, _ := original.Get(name)
	out.Set(name, body)
	r.Copied = append(r.Copied, name)
}

var sharedItemRegex = regexp.MustCompile(`<si(?:\s[^>]*)?/?>`)

// restoreSharedStrings copies the original text pool only when the writer's
// pool has the same number of items, so cell indices stay valid.
func (r *RepairReport) restoreSharedStrings(out, original *Archive) {
	orig, ok := original.Get(sharedStringsEntry)
	if !ok {
		return
	}
	cur, ok := out.Get(sharedStringsEntry)
	if !ok {
		r.fail(sharedStringsEntry, fmt.Errorf("not in output: %w", errEntryMissing))
		return
	}
	if n, m := len(sharedItemRegex.FindAllIndex(orig, -1)), len(sharedItemRegex.FindAllIndex(cur, -1)); n != m {
		r.fail(sharedStringsEntry, fmt.Errorf("output pool has %d items, original %d; kept output pool", m, n))
		return
	}
	r.copyEntry(out, original, sharedStringsEntry)
}

var (
	tableRefRegex      = regexp.MustCompile(`(<table\b[^>]*?\s)ref="[^"]*"`)
	autoFilterRefRegex = regexp.MustCompile(`(<autoFilter\b[^>]*?\s)ref="[^"]*"`)
	tableColumnsRegex  = regexp.MustCompile(`(?s)<tableColumns\b[^>]*>.*?</tableColumns>`)
	tableColumnRegex   = regexp.MustCompile(`(?s)<tableColumn\b[^>]*?(?:/>|>.*?</tableColumn>)`)
	idAttrRegex        = regexp.MustCompile(`\bid="\d+"`)
	nameAttrRegex      = regexp.MustCompile(`\bname="([^"]*)"`)
)

// patchTable rewrites only the range and the column list of the original
// table part, keeping every other attribute and extension. Columns are
// matched by name; repeated names consume the original columns in order.
func (r *RepairReport) patchTable(out, original *Archive, name string, def TableDefinition) {
	if !out.Has(name) {
		r.fail(name, fmt.Errorf("not in output: %w", errEntryMissing))
		return
	}
	orig, _ := original.Get(name)
	patched, err := PatchTableXML(orig, def)
	if err != nil {
		r.fail(name, err)
		return
	}
	out.Set(name, patched)
	r.Patched = append(r.Patched, name)
}

// PatchTableXML applies def to the raw bytes of a table part.
func PatchTableXML(orig []byte, def TableDefinition) ([]byte, error) {
	ref := []byte(def.Ref.String())
	patched := tableRefRegex.ReplaceAll(orig, append([]byte(`${1}ref="`), append(ref, '"')...))
	patched = autoFilterRefRegex.ReplaceAll(patched, append([]byte(`${1}ref="`), append(ref, '"')...))

	block := tableColumnsRegex.Find(patched)
	if block == nil {
		return nil, fmt.Errorf("no tableColumns element")
	}

	byName := make(map[string][][]byte)
	for _, col := range tableColumnRegex.FindAll(block, -1) {
		m := nameAttrRegex.FindSubmatch(col)
		if m == nil {
			continue
		}
		key := unescapeAttr(string(m[1]))
		byName[key] = append(byName[key], col)
	}
	withUID := bytes.Contains(orig, []byte(`xmlns:xr3=`))

	var b bytes.Buffer
	fmt.Fprintf(&b, `<tableColumns count="%d">`, len(def.Columns))
	used := make(map[string]int)
	for i, col := range def.Columns {
		id := []byte(`id="` + strconv.Itoa(i+1) + `"`)
		nameAttr := []byte(`name="` + xmlAttrEscaper.Replace(col.Name) + `"`)
		if avail := byName[col.Name]; used[col.Name] < len(avail) {
			el := avail[used[col.Name]]
			used[col.Name]++
			el = idAttrRegex.ReplaceAll(el, id)
			el = nameAttrRegex.ReplaceAll(el, nameAttr)
			b.Write(el)
			continue
		}
		fmt.Fprintf(&b, `<tableColumn %s %s`, id, nameAttr)
		if withUID {
			fmt.Fprintf(&b, ` xr3:uid="{%s}"`, strings.ToUpper(uuid.New().String()))
		}
		b.WriteString(`/>`)
	}
	b.WriteString(`</tableColumns>`)

	loc := tableColumnsRegex.FindIndex(patched)
	result := make([]byte, 0, len(patched)+b.Len())
	result = append(result, patched[:loc[0]]...)
	result = append(result, b.Bytes()...)
	result = append(result, patched[loc[1]:]...)
	return result, nil
}

var (
	relationshipRegex  = regexp.MustCompile(`<Relationship\b[^>]*>`)
	targetAttrRegex    = regexp.MustCompile(`\bTarget="([^"]*)"`)
	emptyInlineRegex   = regexp.MustCompile(`<c r="[A-Z]+\d+" t="inlineStr"\s*(?:/>|>\s*</c>)`)
	emptyRowRegex      = regexp.MustCompile(`<row r="\d+"\s*(?:/>|>\s*</row>)`)
	headerRowCountAttr = regexp.MustCompile(`\sheaderRowCount="1"`)
	tableXmlnsRegex    = regexp.MustCompile(`^(<table)(\s[^>]*?)(\sxmlns="[^"]*")`)
)

// fixWriterDefects corrects known writer output problems in place: missing
// XML prologues, absolute internal relationship targets, empty inline-string
// cells, empty rows, and table roots whose default namespace is not first.
func (r *RepairReport) fixWriterDefects(out *Archive) {
	for _, name := range out.Names() {
		body, _ := out.Get(name)
		fixed := body

		if strings.HasSuffix(name, ".xml") || strings.HasSuffix(name, ".rels") {
			fixed = ensurePrologue(fixed)
		}
		if strings.HasSuffix(name, ".rels") {
			fixed = relativizeTargets(name, fixed)
		}
		if path.Dir(name) == "xl/worksheets" {
			fixed = emptyInlineRegex.ReplaceAll(fixed, nil)
			fixed = emptyRowRegex.ReplaceAll(fixed, nil)
		}
		if path.Dir(name) == "xl/tables" {
			fixed = fixTableRoot(fixed)
		}

		if !bytes.Equal(fixed, body) {
			out.Set(name, fixed)
			r.Fixed = append(r.Fixed, name)
		}
	}
}

func ensurePrologue(body []byte) []byte {
	trimmed := bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))
	if bytes.HasPrefix(bytes.TrimLeft(trimmed, " \t\r\n"), []byte("<?xml")) {
		return body
	}
	return append([]byte(xmlPrologue), trimmed...)
}

// relativizeTargets rewrites absolute internal targets ("/xl/...") relative
// to the directory of the part owning the relationships.
func relativizeTargets(relsName string, body []byte) []byte {
	owner := path.Dir(path.Dir(relsName)) // "xl/worksheets/_rels" → "xl/worksheets"
	if path.Base(path.Dir(relsName)) != "_rels" {
		return body
	}
	return relationshipRegex.ReplaceAllFunc(body, func(el []byte) []byte {
		if bytes.Contains(el, []byte(`TargetMode="External"`)) {
			return el
		}
		m := targetAttrRegex.FindSubmatch(el)
		if m == nil || !bytes.HasPrefix(m[1], []byte("/")) {
			return el
		}
		target := strings.TrimPrefix(string(m[1]), "/")
		rel := target
		if owner != "." {
			var err error
			rel, err = filepath.Rel(filepath.FromSlash(owner), filepath.FromSlash(target))
			if err != nil {
				return el
			}
			rel = filepath.ToSlash(rel)
		}
		return targetAttrRegex.ReplaceAll(el, []byte(`Target="`+rel+`"`))
	})
}

func fixTableRoot(body []byte) []byte {
	body = headerRowCountAttr.ReplaceAll(body, nil)
	start := bytes.Index(body, []byte("<table"))
	if start < 0 {
		return body
	}
	head, tail := body[:start], body[start:]
	tail = tableXmlnsRegex.ReplaceAll(tail, []byte(`$1$3$2`))
	return append(append([]byte(nil), head...), tail...)
}
