package xlpatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteFormula_Columns(t *testing.T) {
	shift := NewColumnShift(DeleteColumn(1))
	tests := []struct {
		name, in, want string
	}{
		{"relative", "D2>50", "C2>50"},
		{"absolute markers kept", "$D$2*$E3", "$C$2*$D3"},
		{"range", "SUM(C2:E9)", "SUM(B2:D9)"},
		{"deleted cell", "B2+1", "#REF!+1"},
		{"range shrinks", "SUM(B2:D2)", "SUM(B2:C2)"},
		{"leading equals", "=A1+D1", "=A1+C1"},
		{"other sheet", "Other!D2+D2", "Other!D2+C2"},
		{"same sheet qualified", "Sheet1!D2", "Sheet1!C2"},
		{"text literal", `IF(D2="B2","x","y")`, `IF(C2="B2","x","y")`},
		{"escaped quote in text", `CONCAT("a"",D2",D2)`, `CONCAT("a"",D2",C2)`},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RewriteFormula(tt.in, testSheet, shift))
		})
	}
}

func TestRewriteFormula_Rows(t *testing.T) {
	shift := NewRowShift(RowMapping{2, 1, 0}, 3)
	assert.Equal(t, "A4+B3", RewriteFormula("A2+B3", testSheet, shift))
	assert.Equal(t, "$A$1", RewriteFormula("$A$1", testSheet, shift))
	assert.Equal(t, "SUM(C2:C4)", RewriteFormula("SUM(C2:C4)", testSheet, shift))
}

func TestRewriteFormula_NumbersAreNotReferences(t *testing.T) {
	shift := NewColumnShift(InsertColumn(0, 1))
	assert.Equal(t, "50", RewriteFormula("50", testSheet, shift))
	assert.Equal(t, "B1*1.5", RewriteFormula("A1*1.5", testSheet, shift))
}
