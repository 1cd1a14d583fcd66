package hashformat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleRecordOrdering(t *testing.T) {
	doc := "#url /api/ping\n#method get\n#sparql SELECT * WHERE { ?s ?p ?o }\n"
	recs, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, recs, 1)

	assert.Equal(t, []string{"url", "method", "sparql"}, recs[0].Keys)
	v, ok := recs[0].Get("url")
	assert.True(t, ok)
	assert.Equal(t, "/api/ping", v)
}

func TestParseMultipleRecordsSplitOnFirstField(t *testing.T) {
	doc := "#url /a\n#method get\n\n#url /b\n#method post\n"
	recs, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	u0, _ := recs[0].Get("url")
	u1, _ := recs[1].Get("url")
	assert.Equal(t, "/a", u0)
	assert.Equal(t, "/b", u1)

	m0, _ := recs[0].Get("method")
	m1, _ := recs[1].Get("method")
	assert.Equal(t, "get", m0)
	assert.Equal(t, "post", m1)
}

func TestParseMultilineContinuation(t *testing.T) {
	doc := "#url /x\n#sparql SELECT * WHERE {\n  ?s ?p ?o .\n}\n"
	recs, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, recs, 1)

	sparql, ok := recs[0].Get("sparql")
	require.True(t, ok)
	assert.Equal(t, "SELECT * WHERE {\n  ?s ?p ?o .\n}", sparql)
}

func TestParseTrailingWhitespaceStripped(t *testing.T) {
	doc := "#url /trailing   \n#method get  \n"
	recs, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, recs, 1)

	u, _ := recs[0].Get("url")
	assert.Equal(t, "/trailing", u)
}

func TestParseEmptyDocument(t *testing.T) {
	recs, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestParseRepeatedNonSeparatorFieldAccumulatesLast(t *testing.T) {
	// Only the separator field (the first one seen) opens a new record;
	// a repeated non-separator field simply overwrites within the record
	// it belongs to, matching the original's dict-assignment semantics.
	doc := "#url /x\n#method get\n#method post\n"
	recs, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, recs, 1)

	m, _ := recs[0].Get("method")
	assert.Equal(t, "post", m)
	assert.Equal(t, []string{"url", "method"}, recs[0].Keys)
}
