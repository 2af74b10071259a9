package game

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	StreakCost   = 4 // сообщений на одну "группу"
	StreakExpiry = 24 * time.Hour
)

type StreakTier struct {
	Emoji string
	Cost  int
}

// отсортировано по Cost
var StreakTiers = []StreakTier{
	{Emoji: "👻", Cost: 0},
	{Emoji: "🥵", Cost: 25},
	{Emoji: "🧨", Cost: 50},
	{Emoji: "🔥", Cost: 100},
	{Emoji: "☄️", Cost: 500},
	{Emoji: "💫", Cost: 1000},
}

var streakSuffixRe = regexp.MustCompile(`\| .* \d+`)

func StreakGroup(streak int) int {
	if streak < 0 {
		return 0
	}
	return streak / StreakCost
}

// TierFor последний тир, чья стоимость не больше group
func TierFor(group int) StreakTier {
	tier := StreakTiers[0]
	for _, t := range StreakTiers {
		if t.Cost > group {
			break
		}
		tier = t
	}
	return tier
}

// NextStreak сбрасывает серию после суток тишины и прибавляет единицу
func NextStreak(current int, last *time.Time, now time.Time) int {
	if last != nil && now.Sub(*last) >= StreakExpiry {
		current = 0
	}
	return current + 1
}

// StreakNickname переписывает хвост " | <emoji> <count>" в имени.
// ok=false, если результат длиннее limit символов.
func StreakNickname(current string, tier StreakTier, count, limit int) (string, bool) {
	base := strings.TrimSpace(streakSuffixRe.ReplaceAllString(current, ""))
	nick := fmt.Sprintf("%s | %s %d", base, tier.Emoji, count)
	if limit > 0 && utf8.RuneCountInString(nick) > limit {
		return "", false
	}
	return nick, true
}
