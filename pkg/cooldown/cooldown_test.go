package cooldown_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postpilot/engine/pkg/cooldown"
)

func TestNewGate(t *testing.T) {
	t.Parallel()

	t.Run("requires store", func(t *testing.T) {
		t.Parallel()
		_, err := cooldown.NewGate(nil, time.Minute)
		assert.ErrorIs(t, err, cooldown.ErrStoreNil)
	})

	t.Run("requires positive window", func(t *testing.T) {
		t.Parallel()
		store := cooldown.NewMemoryStore()
		defer store.Close()
		_, err := cooldown.NewGate(store, 0)
		assert.ErrorIs(t, err, cooldown.ErrInvalidWindow)
	})
}

func TestGate_Allow(t *testing.T) {
	t.Parallel()

	t.Run("first action allowed, second blocked until window elapses", func(t *testing.T) {
		t.Parallel()
		store := cooldown.NewMemoryStore()
		defer store.Close()
		gate, err := cooldown.NewGate(store, 50*time.Millisecond)
		require.NoError(t, err)

		res, err := gate.Allow(context.Background(), "user1:reddit")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Zero(t, res.RetryAfter)

		res, err = gate.Allow(context.Background(), "user1:reddit")
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Greater(t, res.RetryAfter, time.Duration(0))
		assert.LessOrEqual(t, res.RetryAfter, 50*time.Millisecond)

		require.Eventually(t, func() bool {
			res, err := gate.Allow(context.Background(), "user1:reddit")
			return err == nil && res.Allowed
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("keys cool down independently", func(t *testing.T) {
		t.Parallel()
		store := cooldown.NewMemoryStore()
		defer store.Close()
		gate, err := cooldown.NewGate(store, time.Hour)
		require.NoError(t, err)

		res, err := gate.Allow(context.Background(), "user1:reddit")
		require.NoError(t, err)
		assert.True(t, res.Allowed)

		res, err = gate.Allow(context.Background(), "user1:telegram")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "different destination must not share the cooldown")

		res, err = gate.Allow(context.Background(), "user2:reddit")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "different user must not share the cooldown")
	})

	t.Run("rejects empty key", func(t *testing.T) {
		t.Parallel()
		store := cooldown.NewMemoryStore()
		defer store.Close()
		gate, err := cooldown.NewGate(store, time.Minute)
		require.NoError(t, err)

		_, err = gate.Allow(context.Background(), "")
		assert.ErrorIs(t, err, cooldown.ErrKeyEmpty)
	})
}

func TestGate_Reset(t *testing.T) {
	t.Parallel()

	store := cooldown.NewMemoryStore()
	defer store.Close()
	gate, err := cooldown.NewGate(store, time.Hour)
	require.NoError(t, err)

	res, err := gate.Allow(context.Background(), "user1:reddit")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	require.NoError(t, gate.Reset(context.Background(), "user1:reddit"))

	res, err = gate.Allow(context.Background(), "user1:reddit")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "reset must re-allow the key immediately")
}

func TestMemoryStore_Cleanup(t *testing.T) {
	t.Parallel()

	store := cooldown.NewMemoryStore(cooldown.WithCleanupInterval(10 * time.Millisecond))
	defer store.Close()

	allowed, _, err := store.Acquire(context.Background(), "k", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, allowed)

	// After expiry and a cleanup pass, the key is acquirable again.
	require.Eventually(t, func() bool {
		allowed, _, err := store.Acquire(context.Background(), "k", time.Hour)
		return err == nil && allowed
	}, 2*time.Second, 10*time.Millisecond)
}
