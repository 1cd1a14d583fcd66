package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory routecache.Provider stand-in for tests,
// avoiding a dependency on a live Redis/Memcache instance.
type fakeStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{counts: make(map[string]int64)}
}

func (f *fakeStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeStore) Close() error { return nil }

func TestDistributedRateLimiterBlocksOverLimit(t *testing.T) {
	store := newFakeStore()
	dl := NewDistributedRateLimiter(store, 2, time.Minute)

	handler := dl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/x", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestDistributedRateLimiterTracksPerIP(t *testing.T) {
	store := newFakeStore()
	dl := NewDistributedRateLimiter(store, 1, time.Minute)

	handler := dl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/api/v1/x", nil)
	req1.RemoteAddr = "10.0.0.1:5555"
	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/x", nil)
	req2.RemoteAddr = "10.0.0.2:5555"

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req1)
	assert.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusOK, rec2.Code)
}
