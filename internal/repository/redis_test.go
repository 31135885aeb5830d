package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStateRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	repo := NewRedisStateRepository(client, time.Hour)
	ctx := context.Background()

	t.Run("SetAndGetState", func(t *testing.T) {
		state := &models.UserState{
			UserID:      123,
			CurrentStep: "booking",
			TempData:    map[string]interface{}{"worker_id": int64(4)},
			Wizard:      json.RawMessage(`{"step":"time","worker_id":4}`),
		}
		require.NoError(t, repo.SetState(ctx, state))

		got, err := repo.GetState(ctx, 123)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "booking", got.CurrentStep)
		assert.Equal(t, int64(4), got.GetInt64("worker_id"))
		assert.JSONEq(t, `{"step":"time","worker_id":4}`, string(got.Wizard))
		assert.Equal(t, time.Hour, s.TTL("salonbook:state:123"))
	})

	t.Run("GetNonExistentState", func(t *testing.T) {
		got, err := repo.GetState(ctx, 999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ClearState", func(t *testing.T) {
		require.NoError(t, repo.SetState(ctx, &models.UserState{UserID: 456}))
		require.NoError(t, repo.ClearState(ctx, 456))
		got, _ := repo.GetState(ctx, 456)
		assert.Nil(t, got)
	})

	t.Run("RateLimit", func(t *testing.T) {
		userID := int64(789)
		window := time.Second

		for i := 0; i < 2; i++ {
			allowed, err := repo.CheckRateLimit(ctx, userID, 2, window)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
		allowed, err := repo.CheckRateLimit(ctx, userID, 2, window)
		require.NoError(t, err)
		assert.False(t, allowed)

		s.FastForward(window + time.Millisecond)

		allowed, err = repo.CheckRateLimit(ctx, userID, 2, window)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("Unavailable", func(t *testing.T) {
		s.SetError("LOADING")
		defer s.SetError("")
		_, err := repo.GetState(ctx, 123)
		assert.Error(t, err)
	})

	t.Run("NilClient", func(t *testing.T) {
		repo := NewRedisStateRepository(nil, time.Hour)
		_, err := repo.GetState(ctx, 123)
		assert.ErrorIs(t, err, errNilClient)
	})

	t.Run("PingAndClose", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
		assert.NoError(t, Close(client))
	})
}
