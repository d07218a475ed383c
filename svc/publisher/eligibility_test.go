package publisher_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postpilot/engine/pkg/cooldown"
	"github.com/postpilot/engine/svc/publisher"
)

func newChecker(t *testing.T, window time.Duration) *publisher.CooldownChecker {
	t.Helper()
	store := cooldown.NewMemoryStore()
	t.Cleanup(store.Close)
	gate, err := cooldown.NewGate(store, window)
	require.NoError(t, err)
	checker, err := publisher.NewCooldownChecker(gate)
	require.NoError(t, err)
	return checker
}

func TestNewCooldownChecker(t *testing.T) {
	t.Parallel()

	_, err := publisher.NewCooldownChecker(nil)
	assert.ErrorIs(t, err, publisher.ErrDependencyNil)
}

func TestCooldownChecker_BlocksRepeatPosts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	checker := newChecker(t, time.Minute)

	first, err := checker.CanPost(ctx, "user1", "reddit")
	require.NoError(t, err)
	assert.True(t, first.CanPost)
	assert.Empty(t, first.Reason)

	second, err := checker.CanPost(ctx, "user1", "reddit")
	require.NoError(t, err)
	assert.False(t, second.CanPost)
	assert.Contains(t, second.Reason, "cooldown")
	assert.Contains(t, second.Reason, "reddit")
}

func TestCooldownChecker_IsolatesUsersAndDestinations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	checker := newChecker(t, time.Minute)

	first, err := checker.CanPost(ctx, "user1", "reddit")
	require.NoError(t, err)
	require.True(t, first.CanPost)

	// Another destination for the same user, and another user for the same
	// destination, are independent cooldowns.
	other, err := checker.CanPost(ctx, "user1", "telegram")
	require.NoError(t, err)
	assert.True(t, other.CanPost)

	neighbor, err := checker.CanPost(ctx, "user2", "reddit")
	require.NoError(t, err)
	assert.True(t, neighbor.CanPost)
}

func TestCooldownChecker_ReallowsAfterWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	checker := newChecker(t, 30*time.Millisecond)

	first, err := checker.CanPost(ctx, "user1", "reddit")
	require.NoError(t, err)
	require.True(t, first.CanPost)

	assert.Eventually(t, func() bool {
		res, err := checker.CanPost(ctx, "user1", "reddit")
		return err == nil && res.CanPost
	}, time.Second, 10*time.Millisecond)
}
