package streak

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/repository/memstore"
	"roleplay_bot/internal/service"
)

func TestUserMessageBumpsStreak(t *testing.T) {
	store := memstore.New()
	p := New(service.NewStreakService(store.Streaks, nil, nil, nil, 0))
	ctx := context.Background()

	msg := &domain.Message{ServerID: 3, Author: domain.Author{ID: 7}}
	require.NoError(t, p.UserMessage(ctx, msg))
	require.NoError(t, p.UserMessage(ctx, msg))

	row, err := store.Streaks.GetOrCreate(ctx, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, row.Streak)

	msg.Author.IsBot = true
	require.NoError(t, p.UserMessage(ctx, msg))
	row, err = store.Streaks.GetOrCreate(ctx, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, row.Streak)
}
