package routecache

import (
	"context"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcacheProvider implements the distributed rate-limit counter using
// Memcache's atomic Increment, grounded on the teacher's
// MemcacheProvider.
type MemcacheProvider struct {
	client *memcache.Client
}

// NewMemcacheProvider dials every server in servers.
func NewMemcacheProvider(servers ...string) *MemcacheProvider {
	return &MemcacheProvider{client: memcache.New(servers...)}
}

// Incr increments key, creating it with an initial value of 1 and the
// given expiry if it does not yet exist.
func (m *MemcacheProvider) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	newVal, err := m.client.Increment(key, 1)
	if err == memcache.ErrCacheMiss {
		if setErr := m.client.Set(&memcache.Item{
			Key:        key,
			Value:      []byte("1"),
			Expiration: int32(window.Seconds()),
		}); setErr != nil {
			return 0, setErr
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return int64(newVal), nil
}

func (m *MemcacheProvider) Close() error {
	return nil
}
