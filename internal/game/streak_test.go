package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTierForBoundaries(t *testing.T) {
	cases := []struct {
		streak int
		emoji  string
	}{
		{0, "👻"},
		{99, "👻"},
		{100, "🥵"},
		{199, "🥵"},
		{200, "🧨"},
		{399, "🧨"},
		{400, "🔥"},
		{2000, "☄️"},
		{4000, "💫"},
		{100000, "💫"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.emoji, TierFor(StreakGroup(tc.streak)).Emoji, "streak=%d", tc.streak)
	}
}

func TestNextStreakDecay(t *testing.T) {
	now := time.Now()
	fresh := now.Add(-time.Hour)
	stale := now.Add(-25 * time.Hour)
	exactly := now.Add(-StreakExpiry)

	assert.Equal(t, 1, NextStreak(0, nil, now))
	assert.Equal(t, 8, NextStreak(7, &fresh, now))
	assert.Equal(t, 1, NextStreak(7, &stale, now))
	assert.Equal(t, 1, NextStreak(7, &exactly, now))
}

func TestStreakNickname(t *testing.T) {
	fire := TierFor(100)

	nick, ok := StreakNickname("Alice", fire, 100, 32)
	assert.True(t, ok)
	assert.Equal(t, "Alice | 🔥 100", nick)

	nick, ok = StreakNickname("Alice | 👻 3", fire, 101, 32)
	assert.True(t, ok)
	assert.Equal(t, "Alice | 🔥 101", nick)

	_, ok = StreakNickname("A very very long display name!!", fire, 100, 32)
	assert.False(t, ok)
}
