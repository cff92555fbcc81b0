package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateStartsAtZero(t *testing.T) {
	var agg Aggregate
	assert.Equal(t, 0, agg.TotalReviews)
	assert.Equal(t, 0.0, agg.Average())
}

func TestApplyFollowsRunningRecurrence(t *testing.T) {
	var agg Aggregate

	agg.Apply(4)
	require.Equal(t, 1, agg.TotalReviews)
	assert.Equal(t, 4.0, agg.TotalRatings)
	assert.Equal(t, 4.0, agg.Rating)

	agg.Apply(2)
	require.Equal(t, 2, agg.TotalReviews)
	assert.Equal(t, 3.0, agg.TotalRatings)
	assert.Equal(t, 3.0, agg.Rating)

	agg.Apply(5)
	require.Equal(t, 3, agg.TotalReviews)
	assert.InDelta(t, 8.0/3.0, agg.TotalRatings, 1e-9)
	assert.Equal(t, 2.67, agg.Rating)
	assert.Equal(t, 2.67, agg.Average())
}

func TestApplySingleReview(t *testing.T) {
	for r := MinValue; r <= MaxValue; r++ {
		var agg Aggregate
		agg.Apply(r)
		assert.Equal(t, 1, agg.TotalReviews)
		assert.Equal(t, float64(r), agg.TotalRatings)
		assert.Equal(t, Round2(float64(r)), agg.Rating)
	}
}

func TestRestoreIgnoresEmptyCounters(t *testing.T) {
	agg := Restore(0, 3.5, 3.5)
	assert.Equal(t, Aggregate{}, agg)

	agg = Restore(2, 3, 3)
	assert.Equal(t, 2, agg.TotalReviews)
	assert.Equal(t, 3.0, agg.Average())
}

func TestValidate(t *testing.T) {
	cases := map[int]bool{0: false, 1: true, 3: true, 5: true, 6: false, -2: false}
	for value, ok := range cases {
		err := Validate(value)
		if ok {
			assert.NoError(t, err, "value %d", value)
		} else {
			assert.ErrorIs(t, err, ErrOutOfRange, "value %d", value)
		}
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 2.67, Round2(2.6666666))
	assert.Equal(t, 3.13, Round2(3.125))
	assert.Equal(t, 1.0, Round2(1))
}
