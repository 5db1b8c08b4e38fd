package xlpatch

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/efp"
)

// refError replaces a reference whose target was removed.
const refError = "#REF!"

// cellTokenRegex matches one endpoint of a range operand, keeping the
// absolute markers in groups 1 and 3.
var cellTokenRegex = regexp.MustCompile(`^(\$?)([A-Za-z]{1,3})(\$?)(\d+)$`)

// RewriteFormula shifts every cell and range reference in formula that points
// at sheet (or carries no sheet qualifier). References to other sheets,
// defined names, whole-row/column ranges and text literals are left alone.
// Absolute markers are kept; a reference whose target was removed becomes
// #REF!. A leading "=" is preserved.
func RewriteFormula(formula, sheet string, m RefMapper) string {
	if strings.TrimSpace(formula) == "" {
		return formula
	}

	ps := efp.ExcelParser()
	tokens := ps.Parse(formula)

	var b strings.Builder
	cursor := 0
	for _, tok := range tokens {
		if tok.TValue == "" {
			continue
		}
		needle := tok.TValue
		if tok.TType == efp.TokenTypeOperand && tok.TSubType == efp.TokenSubTypeText {
			// efp unquotes text literals.
			needle = `"` + strings.ReplaceAll(tok.TValue, `"`, `""`) + `"`
		}
		idx := strings.Index(formula[cursor:], needle)
		if idx < 0 {
			continue
		}
		start := cursor + idx
		end := start + len(needle)
		if tok.TType == efp.TokenTypeOperand && tok.TSubType == efp.TokenSubTypeRange {
			b.WriteString(formula[cursor:start])
			b.WriteString(rewriteRangeOperand(tok.TValue, sheet, m))
		} else {
			b.WriteString(formula[cursor:end])
		}
		cursor = end
	}
	b.WriteString(formula[cursor:])
	return b.String()
}

// rewriteRangeOperand rewrites a single efp range operand such as "$A$1",
// "B2:C9" or "Sheet1!A1:A4".
func rewriteRangeOperand(operand, sheet string, m RefMapper) string {
	prefix, body := "", operand
	if idx := strings.LastIndex(operand, "!"); idx >= 0 {
		prefix, body = operand[:idx+1], operand[idx+1:]
		name := strings.Trim(operand[:idx], "'")
		if !strings.EqualFold(name, sheet) {
			return operand
		}
	}

	first, last, isRange := strings.Cut(body, ":")
	a, ok := parseFormulaCell(first)
	if !ok {
		return operand
	}
	if !isRange {
		c, ok := m.Cell(a.ref)
		if !ok {
			return refError
		}
		return prefix + a.format(c)
	}

	z, ok := parseFormulaCell(last)
	if !ok {
		return operand
	}
	area, ok := m.Area(AreaRef{First: a.ref, Last: z.ref})
	if !ok {
		return refError
	}
	return prefix + a.format(area.First) + ":" + z.format(area.Last)
}

// formulaCell is a parsed endpoint that remembers its absolute markers.
type formulaCell struct {
	ref            CellRef
	absCol, absRow bool
}

func parseFormulaCell(s string) (formulaCell, bool) {
	match := cellTokenRegex.FindStringSubmatch(s)
	if match == nil {
		return formulaCell{}, false
	}
	ref, err := ParseCellRef(match[2] + match[4])
	if err != nil {
		return formulaCell{}, false
	}
	return formulaCell{ref: ref, absCol: match[1] != "", absRow: match[3] != ""}, true
}

func (f formulaCell) format(c CellRef) string {
	var b strings.Builder
	if f.absCol {
		b.WriteByte('$')
	}
	b.WriteString(ColToName(c.Col))
	if f.absRow {
		b.WriteByte('$')
	}
	b.WriteString(strconv.Itoa(c.Row + 1))
	return b.String()
}
