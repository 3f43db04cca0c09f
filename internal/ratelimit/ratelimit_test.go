package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowWithinBurst(t *testing.T) {
	krl := New(1, 3)

	assert.True(t, krl.Allow("usr-1"))
	assert.True(t, krl.Allow("usr-1"))
	assert.True(t, krl.Allow("usr-1"))
	assert.False(t, krl.Allow("usr-1"))
}

func TestKeysAreIndependent(t *testing.T) {
	krl := New(1, 1)

	assert.True(t, krl.Allow("usr-1"))
	assert.False(t, krl.Allow("usr-1"))

	// A different key has its own bucket.
	assert.True(t, krl.Allow("usr-2"))
}

func TestWaitHonorsContext(t *testing.T) {
	krl := New(0.1, 1)
	require.True(t, krl.Allow("usr-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := krl.Wait(ctx, "usr-1")
	assert.Error(t, err)
}
