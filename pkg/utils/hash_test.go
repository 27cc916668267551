package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKey(t *testing.T) {
	a := CacheKey("client-1", "campaign spend")
	b := CacheKey("client-1", "campaign spend")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	// Both inputs participate in the key.
	assert.NotEqual(t, a, CacheKey("client-2", "campaign spend"))
	assert.NotEqual(t, a, CacheKey("client-1", "adset spend"))

	// The separator keeps (ab, c) and (a, bc) distinct.
	assert.NotEqual(t, CacheKey("ab", "c"), CacheKey("a", "bc"))
}
