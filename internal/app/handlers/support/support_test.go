package support

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePage(t *testing.T) {
	l, o := NormalizePage(0, -1)
	assert.Equal(t, 20, l)
	assert.Equal(t, 0, o)
	l, _ = NormalizePage(1000, 0)
	assert.Equal(t, 100, l)
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("/listings/l-1/", "Photo.JPG")
	assert.True(t, strings.HasPrefix(key, "listings/l-1/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
}

func TestClock(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	assert.Equal(t, fixed.UTC(), Clock(func() time.Time { return fixed }))
}
