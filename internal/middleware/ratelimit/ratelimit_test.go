package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowConsumesTokens(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 3, WindowDuration: time.Minute})
	defer rl.Stop()

	assert.True(t, rl.Allow("client-1"))
	assert.True(t, rl.Allow("client-1"))
	assert.True(t, rl.Allow("client-1"))
	assert.False(t, rl.Allow("client-1"))
}

func TestAllowKeysAreIndependent(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 1, WindowDuration: time.Minute})
	defer rl.Stop()

	assert.True(t, rl.Allow("client-1"))
	assert.False(t, rl.Allow("client-1"))
	assert.True(t, rl.Allow("client-2"))
}

func TestAllowRefillsOverTime(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 60, WindowDuration: 60 * time.Millisecond})
	defer rl.Stop()

	for i := 0; i < 60; i++ {
		rl.Allow("client-1")
	}
	assert.False(t, rl.Allow("client-1"))

	time.Sleep(5 * time.Millisecond)
	assert.True(t, rl.Allow("client-1"))
}
