package coerce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceStr(t *testing.T) {
	v, err := Coerce(Str, "")
	require.NoError(t, err)
	assert.Equal(t, "", v.Str)

	v, err = Coerce(Str, "HeLLo")
	require.NoError(t, err)
	assert.Equal(t, "hello", v.Str)
}

func TestCoerceIntSentinel(t *testing.T) {
	v, err := Coerce(Int, "")
	require.NoError(t, err)
	assert.Equal(t, int64(minInt), v.Int)

	v, err = Coerce(Int, "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int)

	_, err = Coerce(Int, "not-a-number")
	assert.Error(t, err)
}

func TestCoerceFloatSentinel(t *testing.T) {
	v, err := Coerce(Float, "")
	require.NoError(t, err)
	assert.Equal(t, minFloat, v.Float)

	v, err = Coerce(Float, "3.14")
	require.NoError(t, err)
	assert.InDelta(t, 3.14, v.Float, 0.0001)
}

func TestCoerceDateTimeSentinelAndParse(t *testing.T) {
	v, err := Coerce(DateTime, "")
	require.NoError(t, err)
	assert.True(t, v.DateTime.Equal(zeroDateTime))

	v, err = Coerce(DateTime, "2016-05-01")
	require.NoError(t, err)
	assert.Equal(t, 2016, v.DateTime.Year())
	assert.Equal(t, time.May, v.DateTime.Month())

	v, err = Coerce(DateTime, "2016-05-01T10:20:30Z")
	require.NoError(t, err)
	assert.Equal(t, 10, v.DateTime.Hour())
}

func TestCoerceDurationSentinelIsFarInFuture(t *testing.T) {
	v, err := Coerce(Duration, "")
	require.NoError(t, err)
	assert.True(t, v.DateTime.After(time.Now().AddDate(1000, 0, 0)))

	v, err = Coerce(Duration, "P1D")
	require.NoError(t, err)
	assert.Equal(t, durationEpoch.AddDate(0, 0, 1), v.DateTime)

	v, err = Coerce(Duration, "PT1H30M")
	require.NoError(t, err)
	assert.Equal(t, durationEpoch.Add(90*time.Minute), v.DateTime)
}

func TestCompareCrossKindSameTag(t *testing.T) {
	a, _ := Coerce(DateTime, "2020-01-01")
	b, _ := Coerce(Duration, "P1D")
	// Both surface as Kind DateTime so they are comparable in one ordering.
	assert.Equal(t, DateTime, a.Kind)
	assert.Equal(t, DateTime, b.Kind)
	assert.Equal(t, 1, Compare(a, b))
}

func TestCompareOrdering(t *testing.T) {
	low, _ := Coerce(Int, "")
	high, _ := Coerce(Int, "5")
	assert.Equal(t, -1, Compare(low, high))
	assert.Equal(t, 1, Compare(high, low))
	assert.Equal(t, 0, Compare(high, high))
}
