package routetable

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opencitations/ramose/internal/addon"
	"github.com/opencitations/ramose/internal/coerce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `#url /api/v1
#base /api/v1
#endpoint https://example.org/sparql
#method get
#title Sample API
#version 1.0.0

#url /citations/{oci}
#method get
#oci str([0-9]+-[0-9]+)
#sparql SELECT ?citing ?cited WHERE { BIND([[oci]] AS ?x) }
#field_type str(citing) str(cited)
#description Returns a citation.
#call /citations/0601-01019941205

#url /metadata/{doi}
#method get post
#doi str(.+)
#sparql SELECT ?doi ?title WHERE { BIND([[doi]] AS ?x) }
#field_type str(doi) str(title)
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.hf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesHeaderAndOperations(t *testing.T) {
	path := writeTemp(t, sampleDoc)
	conf, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1", conf.BaseURL)
	assert.Equal(t, "https://example.org/sparql", conf.EndpointURL)
	assert.Equal(t, "get", conf.SparqlHTTPMethod)
	assert.Equal(t, "Sample API", conf.Title)
	require.Len(t, conf.Routes, 2)

	first := conf.Routes[0]
	assert.Equal(t, []string{"oci"}, first.ParamNames)
	assert.Equal(t, coerce.Str, first.Operation.Params["oci"].Type)
	assert.Equal(t, "[0-9]+-[0-9]+", first.Operation.Params["oci"].Shape)
	assert.Equal(t, coerce.Str, first.Operation.FieldKind("citing"))
	assert.Equal(t, coerce.Str, first.Operation.FieldKind("nonexistent"))
}

func TestCompiledRouteMatchesAnchoredPath(t *testing.T) {
	path := writeTemp(t, sampleDoc)
	conf, err := Load(path, nil)
	require.NoError(t, err)

	route := conf.Routes[0]
	params, ok := route.Match("/api/v1/citations/0601-01019941205")
	require.True(t, ok)
	assert.Equal(t, "0601-01019941205", params["oci"])

	_, ok = route.Match("/api/v1/citations/not-matching-shape")
	assert.False(t, ok)

	_, ok = route.Match("/api/v1/citations/0601-01019941205/extra")
	assert.False(t, ok)
}

func TestBestMatchOrderingAndPrefixing(t *testing.T) {
	path := writeTemp(t, sampleDoc)
	conf, err := Load(path, nil)
	require.NoError(t, err)

	rt := &RouteTable{}
	rt.Add(conf)

	result, gotConf, route, params := rt.BestMatch("get", "/api/v1/metadata/10.1/x?format=json")
	require.Equal(t, Matched, result)
	assert.Same(t, conf, gotConf)
	assert.Equal(t, "/metadata/{doi}", route.Operation.URLTemplate)
	assert.Equal(t, "10.1/x", params["doi"])
}

func TestBestMatchNotFound(t *testing.T) {
	path := writeTemp(t, sampleDoc)
	conf, err := Load(path, nil)
	require.NoError(t, err)

	rt := &RouteTable{}
	rt.Add(conf)

	result, _, _, _ := rt.BestMatch("get", "/other/path")
	assert.Equal(t, NoMatch, result)
}

func TestBestMatchMethodMismatch(t *testing.T) {
	path := writeTemp(t, sampleDoc)
	conf, err := Load(path, nil)
	require.NoError(t, err)

	rt := &RouteTable{}
	rt.Add(conf)

	result, _, _, _ := rt.BestMatch("delete", "/api/v1/metadata/10.1/x")
	assert.Equal(t, MethodMismatch, result)
}

func TestBestMatchMethodMismatchDoesNotFallThroughToLaterOperation(t *testing.T) {
	// Two operations share the exact same URL template but declare
	// disjoint methods. A request for the second operation's method
	// must not match the first operation's pattern and keep searching;
	// it must report MethodMismatch against the first (declaration-order)
	// match and stop there, per spec.md §4.3/§4.6 stage 1.
	doc := `#url /api/v1
#base /api/v1
#endpoint https://example.org/sparql

#url /widgets/{id}
#method get
#id str(.+)
#sparql SELECT * WHERE { BIND([[id]] AS ?x) }
#field_type str(id)

#url /widgets/{id}
#method post
#id str(.+)
#sparql SELECT * WHERE { BIND([[id]] AS ?x) }
#field_type str(id)
`
	path := writeTemp(t, doc)
	conf, err := Load(path, nil)
	require.NoError(t, err)
	require.Len(t, conf.Routes, 2)

	rt := &RouteTable{}
	rt.Add(conf)

	result, _, _, _ := rt.BestMatch("post", "/api/v1/widgets/42")
	assert.Equal(t, MethodMismatch, result, "must not fall through to the second operation's matching method")
}

func TestLoadMissingRequiredHeaderField(t *testing.T) {
	doc := "#base /api/v1\n#title Incomplete\n"
	path := writeTemp(t, doc)
	_, err := Load(path, nil)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownAddon(t *testing.T) {
	doc := `#url /api/v1
#base /api/v1
#endpoint https://example.org/sparql

#url /x/{id}
#method get
#id str(.+)
#sparql SELECT * WHERE { BIND([[id]] AS ?x) }
#field_type str(id)
#preprocess missing_func
`
	path := writeTemp(t, doc)
	reg := addon.NewRegistry()
	_, err := Load(path, reg)
	assert.Error(t, err)
}

func TestLoadResolvesRegisteredAddon(t *testing.T) {
	doc := `#url /api/v1
#base /api/v1
#endpoint https://example.org/sparql

#url /x/{id}
#method get
#id str(.+)
#sparql SELECT * WHERE { BIND([[id]] AS ?x) }
#field_type str(id)
#preprocess known_func
`
	path := writeTemp(t, doc)
	reg := addon.NewRegistry()
	reg.Register("known_func", func(params map[string]string, args []string) (map[string]string, error) {
		return params, nil
	})
	conf, err := Load(path, reg)
	require.NoError(t, err)
	require.Len(t, conf.Routes, 1)
	assert.Equal(t, "known_func", conf.Routes[0].Operation.Preprocess[0].Name)
}

func TestEscapesLiteralTemplateSegments(t *testing.T) {
	doc := `#url /api/v1
#base /api/v1
#endpoint https://example.org/sparql

#url /a.b/{id}
#method get
#id str(\d+)
#sparql SELECT * WHERE { BIND([[id]] AS ?x) }
#field_type str(id)
`
	path := writeTemp(t, doc)
	conf, err := Load(path, nil)
	require.NoError(t, err)

	route := conf.Routes[0]
	// The literal dot in "a.b" must not match an arbitrary character.
	_, ok := route.Match("/api/v1/aXb/42")
	assert.False(t, ok)
	_, ok = route.Match("/api/v1/a.b/42")
	assert.True(t, ok)
}
