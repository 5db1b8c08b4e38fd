package xlpatch

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

const contentTypesEntry = "[Content_Types].xml"

// Archive is an in-memory copy of an xlsx container. Entry order is kept so
// a rewritten archive lists its parts the way the source did.
type Archive struct {
	names   []string
	entries map[string][]byte
}

// ReadArchive loads every entry of the zip container in data.
func ReadArchive(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	a := &Archive{entries: make(map[string][]byte, len(zr.File))}
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		body, err := readZipEntry(zf)
		if err != nil {
			return nil, err
		}
		a.Set(zf.Name, body)
	}
	return a, nil
}

// LoadArchive reads the xlsx file at path.
func LoadArchive(p string) (*Archive, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read archive %q: %w", p, err)
	}
	return ReadArchive(data)
}

func readZipEntry(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", zf.Name, err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", zf.Name, err)
	}
	return body, nil
}

// Get returns the entry body.
func (a *Archive) Get(name string) ([]byte, bool) {
	body, ok := a.entries[name]
	return body, ok
}

// Has reports whether the entry exists.
func (a *Archive) Has(name string) bool {
	_, ok := a.entries[name]
	return ok
}

// Set adds or replaces an entry.
func (a *Archive) Set(name string, body []byte) {
	if _, ok := a.entries[name]; !ok {
		a.names = append(a.names, name)
	}
	a.entries[name] = body
}

// Names returns the entry names in archive order.
func (a *Archive) Names() []string {
	return append([]string(nil), a.names...)
}

// Glob returns the entries below dir whose base name matches pattern,
// sorted by name.
func (a *Archive) Glob(dir, pattern string) []string {
	var out []string
	for _, n := range a.names {
		if path.Dir(n) != dir {
			continue
		}
		if ok, _ := path.Match(pattern, path.Base(n)); ok {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// Digest returns the BLAKE3 digest of the entry body.
func (a *Archive) Digest(name string) [32]byte {
	return blake3.Sum256(a.entries[name])
}

// Same reports whether both archives hold byte-identical copies of name.
func (a *Archive) Same(other *Archive, name string) bool {
	if !a.Has(name) || !other.Has(name) {
		return false
	}
	return a.Digest(name) == other.Digest(name)
}

// Bytes serializes the archive. The content-types part is written first, as
// some consumers sniff it.
func (a *Archive) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	names := a.Names()
	sort.SliceStable(names, func(i, j int) bool {
		return names[i] == contentTypesEntry && names[j] != contentTypesEntry
	})
	for _, n := range names {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: n, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("create entry %s: %w", n, err)
		}
		if _, err := w.Write(a.entries[n]); err != nil {
			return nil, fmt.Errorf("write entry %s: %w", n, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

// resolveTarget resolves a relationship target against the directory of the
// part owning the relationship file. Absolute targets ("/xl/...") are taken
// from the archive root.
func resolveTarget(baseDir, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Clean(path.Join(baseDir, target))
}

// relsEntry returns the relationships entry for a part:
// "xl/worksheets/sheet1.xml" → "xl/worksheets/_rels/sheet1.xml.rels".
func relsEntry(part string) string {
	return path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
}
