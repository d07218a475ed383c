package queue_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postpilot/engine/pkg/queue"
)

func TestNewHandler(t *testing.T) {
	t.Parallel()

	t.Run("decodes payload into typed handler", func(t *testing.T) {
		t.Parallel()

		var got greetPayload
		h := queue.NewHandler(func(ctx context.Context, p greetPayload) error {
			got = p
			return nil
		})

		err := h.Handle(context.Background(), json.RawMessage(`{"message":"typed"}`))
		require.NoError(t, err)
		assert.Equal(t, "typed", got.Message)
	})

	t.Run("returns decode errors", func(t *testing.T) {
		t.Parallel()

		h := queue.NewHandler(func(ctx context.Context, p greetPayload) error {
			t.Fatal("handler must not run on malformed payload")
			return nil
		})

		err := h.Handle(context.Background(), json.RawMessage(`{not json`))
		assert.Error(t, err)
	})
}

func TestNewStorage(t *testing.T) {
	t.Parallel()

	t.Run("defaults to memory driver", func(t *testing.T) {
		t.Parallel()
		storage, err := queue.NewStorage(queue.Config{}, nil)
		require.NoError(t, err)
		defer storage.Close()
		assert.IsType(t, &queue.MemoryStorage{}, storage)
	})

	t.Run("postgres driver requires a pool", func(t *testing.T) {
		t.Parallel()
		_, err := queue.NewStorage(queue.Config{Driver: queue.DriverPostgres}, nil)
		assert.ErrorIs(t, err, queue.ErrStorageNil)
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		t.Parallel()
		_, err := queue.NewStorage(queue.Config{Driver: "mongodb"}, nil)
		assert.ErrorIs(t, err, queue.ErrUnknownDriver)
	})
}
