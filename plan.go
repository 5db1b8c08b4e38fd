package xlpatch

// Kind is the classification of a change set. Every request maps to exactly
// one Kind, and every Kind to one strategy.
type Kind int

const (
	KindNoop Kind = iota
	KindValueEdit
	KindColumnOnly
	KindRowOnly
	KindCombined
	KindIdentityMapping // a row mapping that keeps every row in place
)

func (k Kind) String() string {
	switch k {
	case KindNoop:
		return "noop"
	case KindValueEdit:
		return "value-edit"
	case KindColumnOnly:
		return "column-only"
	case KindRowOnly:
		return "row-only"
	case KindCombined:
		return "combined"
	case KindIdentityMapping:
		return "identity-mapping"
	}
	return "unknown"
}

// Classification is the result of Classify.
type Classification struct {
	Kind      Kind
	Mapping   RowMapping // nil unless rows move
	rowStyles []rowStyleSource
}

// Classify decides which strategy handles c on a sheet with originalRows
// data rows.
func Classify(c ChangeSet, originalRows int) (Classification, error) {
	var cl Classification
	rowsMove := false
	if c.HasRowOps() {
		m, styles, err := ComposeRowMapping(c, originalRows)
		if err != nil {
			return cl, err
		}
		if !m.IsIdentity(originalRows) {
			rowsMove = true
			cl.Mapping = m
			cl.rowStyles = styles
		}
	}
	colsMove := c.HasColumnOps()

	switch {
	case rowsMove && colsMove:
		cl.Kind = KindCombined
	case rowsMove:
		cl.Kind = KindRowOnly
	case c.HasRowOps():
		cl.Kind = KindIdentityMapping
	case colsMove:
		cl.Kind = KindColumnOnly
	case c.HasValueEdits() || c.HasFormatting():
		cl.Kind = KindValueEdit
	default:
		cl.Kind = KindNoop
	}
	return cl, nil
}

// Source names the document a strategy edits.
type Source int

const (
	SourceInput Source = iota
	SourceOriginal
)

func (s Source) String() string {
	if s == SourceOriginal {
		return "original"
	}
	return "input"
}

// Plan is the ordered list of steps a request will run.
type Plan struct {
	Kind     Kind
	Strategy string
	Source   Source
	Steps    []string
}
