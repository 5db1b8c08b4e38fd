package xlpatch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlChangeSet = `
deletedColumns: [1]
insertedColumns:
  - position: 0
    count: 2
    sourceColumn: 3
    headers: [Added, Also]
rowOrder: [2, 1, 0]
hiddenRows: [1]
rowHighlights:
  "0": green
rowHighlightRules:
  - when: row.Status == "late"
    color: red
editedCells:
  "0-2": 12.5
`

func TestDecodeChangeSet_YAML(t *testing.T) {
	c, err := DecodeChangeSet([]byte(yamlChangeSet), "")
	require.NoError(t, err)

	assert.Equal(t, []int{1}, c.DeletedColumns)
	require.Len(t, c.InsertedColumns, 1)
	ins := c.InsertedColumns[0]
	assert.Equal(t, 2, ins.Count)
	require.NotNil(t, ins.SourceColumn)
	assert.Equal(t, 3, *ins.SourceColumn)
	assert.Equal(t, []string{"Added", "Also"}, ins.Headers)
	assert.Equal(t, []int{2, 1, 0}, c.RowOrder)
	assert.Equal(t, "green", c.RowHighlights["0"])
	require.Len(t, c.RowHighlightRules, 1)
	assert.Equal(t, `row.Status == "late"`, c.RowHighlightRules[0].When)
	assert.Equal(t, 12.5, c.EditedCells["0-2"])

	assert.True(t, c.HasColumnOps())
	assert.True(t, c.HasRowOps())
	assert.True(t, c.HasFormatting())
	assert.True(t, c.HasValueEdits())
}

func TestDecodeChangeSet_JSON(t *testing.T) {
	data := `{"data": [["a", 1, true, null]], "rowMapping": [2, null, 0], "editedCells": {"1-0": 3}}`
	c, err := DecodeChangeSet([]byte(data), "")
	require.NoError(t, err)

	require.Len(t, c.Data, 1)
	assert.Equal(t, []any{"a", 1.0, true, nil}, c.Data[0])
	assert.Equal(t, 3.0, c.EditedCells["1-0"])
	require.Len(t, c.RowMapping, 3)
	assert.Nil(t, c.RowMapping[1])
	assert.Equal(t, 2, *c.RowMapping[0])
}

func TestDecodeChangeSet_Errors(t *testing.T) {
	_, err := DecodeChangeSet([]byte(`{"deletedColumns": "x"}`), "json")
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = DecodeChangeSet([]byte("a: [1"), "yaml")
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = DecodeChangeSet([]byte("{}"), "toml")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestLoadChangeSet(t *testing.T) {
	path := filepath.Join(testdataDir(t), "changes.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlChangeSet), 0o644))

	c, err := LoadChangeSet(path)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, c.DeletedColumns)

	_, err = LoadChangeSet(filepath.Join(testdataDir(t), "missing.json"))
	assert.Error(t, err)
}

func TestChangeSet_Predicates(t *testing.T) {
	var c ChangeSet
	assert.False(t, c.HasColumnOps())
	assert.False(t, c.HasRowOps())
	assert.False(t, c.HasFormatting())
	assert.False(t, c.HasValueEdits())

	c.ColumnOrder = []int{0, 1, 2}
	assert.False(t, c.HasColumnOps(), "identity order is not a column op")
	c.ColumnOrder = []int{1, 0, 2}
	assert.True(t, c.HasColumnOps())

	c = ChangeSet{HiddenColumns: []int{}}
	assert.True(t, c.HasFormatting(), "an empty hidden list still resets visibility")
}

func TestChangeSet_ParsedEdits(t *testing.T) {
	c := ChangeSet{EditedCells: map[string]any{"2-1": "x", "0-3": 1.0, "0-0": nil}}
	edits, err := c.ParsedEdits()
	require.NoError(t, err)
	assert.Equal(t, []EditedCell{{0, 0, nil}, {0, 3, 1.0}, {2, 1, "x"}}, edits)

	c.EditedCells["bad"] = 1
	_, err = c.ParsedEdits()
	assert.True(t, errors.Is(err, ErrValidation))
}
