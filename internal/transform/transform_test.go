package transform

import (
	"strings"
	"testing"

	"github.com/opencitations/ramose/internal/coerce"
	"github.com/opencitations/ramose/internal/typedtable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kindOf(col string) coerce.Kind {
	if col == "date" {
		return coerce.DateTime
	}
	return coerce.Str
}

func buildTable(t *testing.T, csvBody string) *typedtable.Table {
	t.Helper()
	table, err := typedtable.FromCSV(strings.NewReader(csvBody), kindOf)
	require.NoError(t, err)
	return table
}

func TestApplyExcludeDropsEmptyRows(t *testing.T) {
	table := buildTable(t, "doi,title\n10.1,Hello\n,NoID\n10.2,World\n")
	ApplyExclude(table, []string{"doi"})
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "10.1", table.Rows[0][0].Original)
	assert.Equal(t, "10.2", table.Rows[1][0].Original)
}

func TestParseFilterOperators(t *testing.T) {
	f, err := ParseFilter("date:>2016-05")
	require.NoError(t, err)
	assert.Equal(t, byte('>'), f.Op)
	assert.Equal(t, "date", f.Field)
	assert.Equal(t, "2016-05", f.Value)

	f, err = ParseFilter("title:semantics?")
	require.NoError(t, err)
	assert.Equal(t, byte(0), f.Op)
	assert.Equal(t, "semantics?", f.Value)
}

func TestApplyFiltersTypedComparison(t *testing.T) {
	table := buildTable(t, "doi,date\nA,2015-01-01\nB,2017-06-01\n")
	err := ApplyFilters(table, []Filter{{Field: "date", Op: '>', Value: "2016-05"}})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "B", table.Rows[0][0].Original)
}

func TestApplyFiltersRegex(t *testing.T) {
	table := buildTable(t, "doi,title\nA,Semantic Web\nB,Linked Data\n")
	err := ApplyFilters(table, []Filter{{Field: "title", Value: "semantic"}})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "A", table.Rows[0][0].Original)
}

func TestApplyFiltersUnknownFieldSkipped(t *testing.T) {
	table := buildTable(t, "doi,title\nA,X\nB,Y\n")
	err := ApplyFilters(table, []Filter{{Field: "nope", Value: "x"}})
	require.NoError(t, err)
	assert.Len(t, table.Rows, 2)
}

func TestApplySortSingleDescending(t *testing.T) {
	table := buildTable(t, "doi,date\nA,2015-01-01\nB,2017-06-01\nC,2016-01-01\n")
	ApplySort(table, []string{"desc(date)"})
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "B", table.Rows[0][0].Original)
	assert.Equal(t, "C", table.Rows[1][0].Original)
	assert.Equal(t, "A", table.Rows[2][0].Original)
}

func TestApplySortMultiKeyPrimaryIsLexicallySmallest(t *testing.T) {
	// "asc(date)" < "desc(doi)" lexically, so per the preserved ordering
	// rule desc(doi) (lexically larger) is applied first (least
	// significant) and asc(date) is applied last, becoming primary.
	table := buildTable(t, "doi,date\nA,2016-01-01\nB,2016-01-01\nA,2015-01-01\n")
	ApplySort(table, []string{"asc(date)", "desc(doi)"})
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "2015-01-01", table.Rows[0][1].Original)
}

func TestNegotiateFormatPrefersQueryParam(t *testing.T) {
	assert.Equal(t, "csv", NegotiateFormat("csv", "application/json"))
	assert.Equal(t, "json", NegotiateFormat("", "application/json"))
	assert.Equal(t, "csv", NegotiateFormat("", "text/csv"))
	assert.Equal(t, "json", NegotiateFormat("", ""))
}

func TestParseJSONRuleArray(t *testing.T) {
	r, err := ParseJSONRule(`array("; ",names)`)
	require.NoError(t, err)
	assert.Equal(t, "array", r.Kind)
	assert.Equal(t, "; ", r.Sep)
	assert.Equal(t, "names", r.Path)
}

func TestParseJSONRuleDict(t *testing.T) {
	r, err := ParseJSONRule(`dict(", ",name,fname,gname)`)
	require.NoError(t, err)
	assert.Equal(t, "dict", r.Kind)
	assert.Equal(t, ", ", r.Sep)
	assert.Equal(t, "name", r.Path)
	assert.Equal(t, []string{"fname", "gname"}, r.Keys)
}

func TestApplyJSONRestructureArray(t *testing.T) {
	objects := []map[string]any{{"names": "Doe, John; Doe, Jane"}}
	rules := []JSONRestructure{{Kind: "array", Path: "names", Sep: "; "}}
	out, err := ApplyJSONRestructure(objects, rules)
	require.NoError(t, err)
	assert.Equal(t, []any{"Doe, John", "Doe, Jane"}, out[0]["names"])
}

func TestApplyJSONRestructureArrayEmpty(t *testing.T) {
	objects := []map[string]any{{"names": ""}}
	rules := []JSONRestructure{{Kind: "array", Path: "names", Sep: "; "}}
	out, err := ApplyJSONRestructure(objects, rules)
	require.NoError(t, err)
	assert.Equal(t, []any{}, out[0]["names"])
}

func TestApplyJSONRestructureDict(t *testing.T) {
	objects := []map[string]any{{"name": "Doe, John"}}
	rules := []JSONRestructure{{Kind: "dict", Path: "name", Sep: ", ", Keys: []string{"fname", "gname"}}}
	out, err := ApplyJSONRestructure(objects, rules)
	require.NoError(t, err)
	m, ok := out[0]["name"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Doe", m["fname"])
	assert.Equal(t, "John", m["gname"])
}
