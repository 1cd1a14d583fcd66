package routecache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyBucketsByWindow(t *testing.T) {
	k1 := Key("1.2.3.4", time.Minute)
	k2 := Key("1.2.3.4", time.Minute)
	assert.Equal(t, k1, k2, "same IP and window within the same second should produce the same bucket key")

	other := Key("5.6.7.8", time.Minute)
	assert.NotEqual(t, k1, other)
}
