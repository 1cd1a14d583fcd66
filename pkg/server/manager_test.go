package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/opencitations/ramose/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getFreePort(t *testing.T) int {
	t.Helper()
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	require.NoError(t, err)

	l, err := net.ListenTCP("tcp", addr)
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServerManagerLifecycle(t *testing.T) {
	logger.Init(true)
	sm := NewManager()

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	testPort := getFreePort(t)
	instance, err := sm.Add(Config{Name: "api", Host: "localhost", Port: testPort, Handler: testHandler})
	require.NoError(t, err)
	require.NotNil(t, instance)

	require.NoError(t, sm.StartAll())
	time.Sleep(100 * time.Millisecond)

	client := &http.Client{Timeout: 2 * time.Second}
	url := fmt.Sprintf("http://localhost:%d", testPort)
	resp, err := client.Get(url)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	retrieved, err := sm.Get("api")
	require.NoError(t, err)
	assert.Equal(t, instance.Addr(), retrieved.Addr())

	list := sm.List()
	require.Len(t, list, 1)

	require.NoError(t, sm.StopAll())
	time.Sleep(100 * time.Millisecond)

	_, err = client.Get(url)
	require.Error(t, err)

	require.NoError(t, sm.Remove("api"))
	_, err = sm.Get("api")
	require.Error(t, err)
}

func TestManagerErrorCases(t *testing.T) {
	logger.Init(true)
	sm := NewManager()
	testPort := getFreePort(t)

	_, err := sm.Add(Config{Name: "dup", Host: "localhost", Port: testPort, Handler: http.NewServeMux()})
	require.NoError(t, err)

	_, err = sm.Add(Config{Name: "dup", Host: "localhost", Port: getFreePort(t), Handler: http.NewServeMux()})
	require.Error(t, err)

	_, err = sm.Get("missing")
	require.Error(t, err)

	_, err = sm.Add(Config{Name: "no-handler", Host: "localhost", Port: getFreePort(t), Handler: nil})
	require.Error(t, err)
}

func TestGracefulShutdownDrainsInFlightRequests(t *testing.T) {
	logger.Init(true)
	sm := NewManager()

	var handled int
	var mu sync.Mutex

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		handled++
		mu.Unlock()
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	testPort := getFreePort(t)
	instance, err := sm.Add(Config{Name: "api", Host: "localhost", Port: testPort, Handler: handler, DrainTimeout: 2 * time.Second})
	require.NoError(t, err)
	require.NoError(t, sm.StartAll())
	time.Sleep(100 * time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get(fmt.Sprintf("http://localhost:%d", testPort))
			if err == nil {
				resp.Body.Close()
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	assert.Greater(t, instance.InFlightRequests(), int64(0))

	require.NoError(t, sm.StopAll())
	wg.Wait()

	mu.Lock()
	got := handled
	mu.Unlock()
	assert.GreaterOrEqual(t, got, 1)
	assert.Equal(t, int64(0), instance.InFlightRequests())
}

func TestHealthAndReadinessEndpoints(t *testing.T) {
	logger.Init(true)
	sm := NewManager()

	mux := http.NewServeMux()
	testPort := getFreePort(t)
	instance, err := sm.Add(Config{Name: "api", Host: "localhost", Port: testPort, Handler: mux})
	require.NoError(t, err)

	mux.HandleFunc("/health", instance.HealthCheckHandler())
	mux.HandleFunc("/ready", instance.ReadinessHandler())

	require.NoError(t, sm.StartAll())
	time.Sleep(100 * time.Millisecond)
	defer sm.StopAll()

	client := &http.Client{Timeout: 2 * time.Second}
	base := fmt.Sprintf("http://localhost:%d", testPort)

	resp, err := client.Get(base + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "healthy")

	resp, err = client.Get(base + "/ready")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "in_flight_requests")
}

func TestShutdownCallbacksExecuteOnStopAll(t *testing.T) {
	logger.Init(true)
	sm := NewManager()

	var executed bool
	var mu sync.Mutex
	sm.RegisterShutdownCallback(func(ctx context.Context) error {
		mu.Lock()
		executed = true
		mu.Unlock()
		return nil
	})

	testPort := getFreePort(t)
	_, err := sm.Add(Config{Name: "api", Host: "localhost", Port: testPort, Handler: http.NewServeMux()})
	require.NoError(t, err)
	require.NoError(t, sm.StartAll())
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, sm.StopAll())

	mu.Lock()
	got := executed
	mu.Unlock()
	assert.True(t, got)
}
