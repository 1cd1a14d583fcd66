package ramose

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBunRouteMissReturns404WithStatusPrefix(t *testing.T) {
	mgr := newTestManager(t, "doi,title\n10.1,Hello\n")
	srv := httptest.NewServer(mgr.HandlerWithRouter("bunrouter"))
	defer srv.Close()

	resp, body := getBody(t, srv.URL+"/api/v1/does-not-exist")
	assert.Equal(t, 404, resp.StatusCode)
	assert.True(t, strings.HasPrefix(body, "HTTP status code 404:"), "got %q", body)
}

func TestBunHappyPathJSONOverHTTP(t *testing.T) {
	mgr := newTestManager(t, "doi,title\n10.1/x,Hello\n")
	srv := httptest.NewServer(mgr.HandlerWithRouter("bunrouter"))
	defer srv.Close()

	resp, body := getBodyWithAccept(t, srv.URL+"/api/v1/metadata/10.1/x", "application/json")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, `"doi":"10.1/x"`)
}

func TestBunCORSHeadersSetOnEveryResponse(t *testing.T) {
	mgr := newTestManager(t, "doi,title\n10.1,Hello\n")
	srv := httptest.NewServer(mgr.HandlerWithRouter("bunrouter"))
	defer srv.Close()

	resp, _ := getBody(t, srv.URL+"/api/v1/does-not-exist")
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestBunDescribeEndpointListsLoadedOperations(t *testing.T) {
	mgr := newTestManager(t, "doi,title\n10.1,Hello\n")
	srv := httptest.NewServer(mgr.HandlerWithRouter("bunrouter"))
	defer srv.Close()

	_, body := getBody(t, srv.URL+"/ramose/describe")
	assert.Contains(t, body, "/metadata/{doi}")
}

func TestHandlerWithRouterFallsBackToMux(t *testing.T) {
	mgr := newTestManager(t, "doi,title\n10.1,Hello\n")
	srv := httptest.NewServer(mgr.HandlerWithRouter("nonsense"))
	defer srv.Close()

	resp, _ := getBody(t, srv.URL+"/healthz")
	assert.Equal(t, 200, resp.StatusCode)
}
