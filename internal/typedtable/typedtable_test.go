package typedtable

import (
	"bytes"
	"strings"
	"testing"

	"github.com/opencitations/ramose/internal/coerce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strKind(string) coerce.Kind { return coerce.Str }

func TestFromCSVBuildsHeaderAndRows(t *testing.T) {
	csvBody := "doi,title\n10.1,Hello\n10.2,World\n"
	table, err := FromCSV(strings.NewReader(csvBody), strKind)
	require.NoError(t, err)

	assert.Equal(t, []string{"doi", "title"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "10.1", table.Rows[0][0].Original)
	assert.Equal(t, "Hello", table.Rows[0][1].Original)
}

func TestFromCSVNormalizesCRLFLineEndings(t *testing.T) {
	csvBody := "doi,title\r\n10.1,Hello\r10.2,World\r\n"
	table, err := FromCSV(strings.NewReader(csvBody), strKind)
	require.NoError(t, err)

	assert.Equal(t, []string{"doi", "title"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "10.1", table.Rows[0][0].Original)
	assert.Equal(t, "World", table.Rows[1][1].Original)
}

func TestColumnIndex(t *testing.T) {
	table := &Table{Header: []string{"doi", "title"}}
	assert.Equal(t, 0, table.ColumnIndex("doi"))
	assert.Equal(t, 1, table.ColumnIndex("title"))
	assert.Equal(t, -1, table.ColumnIndex("missing"))
}

func TestToCSVRoundTrips(t *testing.T) {
	csvBody := "doi,title\n10.1,Hello\n"
	table, err := FromCSV(strings.NewReader(csvBody), strKind)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, table.ToCSV(&buf))
	assert.Equal(t, csvBody, buf.String())
}

func TestToObjectsUsesOriginalStrings(t *testing.T) {
	csvBody := "doi,title\n10.1,Hello\n"
	table, err := FromCSV(strings.NewReader(csvBody), strKind)
	require.NoError(t, err)

	objs := table.ToObjects()
	require.Len(t, objs, 1)
	assert.Equal(t, "10.1", objs[0]["doi"])
	assert.Equal(t, "Hello", objs[0]["title"])
}

func TestFromObjectsRebuildsTable(t *testing.T) {
	objs := []map[string]any{
		{"doi": "10.1", "title": "Hello"},
		{"doi": "10.2"},
	}
	table, err := FromObjects([]string{"doi", "title"}, objs, strKind)
	require.NoError(t, err)

	require.Len(t, table.Rows, 2)
	assert.Equal(t, "10.1", table.Rows[0][0].Original)
	assert.Equal(t, "", table.Rows[1][1].Original)
}

func TestRetypeRecomputesValueFromOriginal(t *testing.T) {
	objs := []map[string]any{{"n": "1"}}
	intKind := func(string) coerce.Kind { return coerce.Int }
	table, err := FromObjects([]string{"n"}, objs, intKind)
	require.NoError(t, err)

	table.Rows[0][0].Original = "42"
	require.NoError(t, table.Retype(intKind))
	assert.Equal(t, int64(42), table.Rows[0][0].Value.Int)
}
