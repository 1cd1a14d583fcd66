package ramose

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opencitations/ramose/internal/addon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sparqlHandler(csvBody string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(csvBody))
	}
}

func getBody(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	return getBodyWithAccept(t, url, "")
}

func getBodyWithAccept(t *testing.T, url, accept string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func postBody(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(url, "text/plain", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func writeSampleConfig(t *testing.T, endpointURL string) string {
	t.Helper()
	doc := `#url /api/v1
#base /api/v1
#endpoint ` + endpointURL + `
#method get
#title Sample

#url /metadata/{doi}
#method get
#doi str(.+)
#sparql SELECT ?doi ?title WHERE { BIND([[doi]] AS ?x) }
#field_type str(doi) str(title)
#call /api/v1/metadata/10.1/x
`
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.hf")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func newTestManager(t *testing.T, csvBody string) *Manager {
	t.Helper()
	sparql := httptest.NewServer(sparqlHandler(csvBody))
	t.Cleanup(sparql.Close)

	path := writeSampleConfig(t, sparql.URL)
	mgr, err := NewManager([]string{path}, addon.NewRegistry(), 0)
	require.NoError(t, err)
	return mgr
}

func TestRouteMissReturns404WithStatusPrefix(t *testing.T) {
	mgr := newTestManager(t, "doi,title\n10.1,Hello\n")
	srv := httptest.NewServer(mgr.Handler())
	defer srv.Close()

	resp, body := getBody(t, srv.URL+"/api/v1/does-not-exist")
	assert.Equal(t, 404, resp.StatusCode)
	assert.True(t, strings.HasPrefix(body, "HTTP status code 404:"), "got %q", body)
}

func TestMethodMismatchReturns405(t *testing.T) {
	mgr := newTestManager(t, "doi,title\n10.1,Hello\n")
	srv := httptest.NewServer(mgr.Handler())
	defer srv.Close()

	resp, _ := postBody(t, srv.URL+"/api/v1/metadata/10.1/x")
	assert.Equal(t, 405, resp.StatusCode)
}

func TestHappyPathJSONOverHTTP(t *testing.T) {
	mgr := newTestManager(t, "doi,title\n10.1/x,Hello\n")
	srv := httptest.NewServer(mgr.Handler())
	defer srv.Close()

	resp, body := getBodyWithAccept(t, srv.URL+"/api/v1/metadata/10.1/x", "application/json")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, `"doi":"10.1/x"`)
}

func TestCORSHeadersSetOnEveryResponse(t *testing.T) {
	mgr := newTestManager(t, "doi,title\n10.1,Hello\n")
	srv := httptest.NewServer(mgr.Handler())
	defer srv.Close()

	resp, _ := getBody(t, srv.URL+"/api/v1/does-not-exist")
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestDescribeEndpointListsLoadedOperations(t *testing.T) {
	mgr := newTestManager(t, "doi,title\n10.1,Hello\n")
	srv := httptest.NewServer(mgr.Handler())
	defer srv.Close()

	_, body := getBody(t, srv.URL+"/ramose/describe")
	assert.Contains(t, body, "/metadata/{doi}")
	assert.Contains(t, body, "/api/v1")
}

func TestErrorFormatCSVWrapping(t *testing.T) {
	mgr := newTestManager(t, "doi,title\n10.1,Hello\n")
	srv := httptest.NewServer(mgr.Handler())
	defer srv.Close()

	resp, body := getBody(t, srv.URL+"/api/v1/does-not-exist?format=csv")
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, "error,message")
}
