package game

import (
	"crypto/rand"
	"math"
	"math/big"
	"strings"
	"time"

	"roleplay_bot/internal/domain"
)

const (
	MaxLevel         = 100
	LevelingQuotient = 1.3735

	MinXP = 3 // опыт за одно сообщение, включительно
	MaxXP = 5

	XPCooldown = 30 * time.Minute

	progressBarLength = 10
)

// сколько опыта нужно набрать на уровне level
func RequiredExp(level int) int {
	if level < 1 {
		level = 1
	}
	return int(math.Floor(math.Pow(float64(level), LevelingQuotient)))
}

// процент заполнения текущего уровня, 0..100
func Progress(level, exp int) int {
	req := RequiredExp(level)
	p := int(math.Floor(float64(exp) / float64(req) * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func IsLevelUp(level, exp, gained int) bool {
	return level < MaxLevel && exp+gained >= RequiredExp(level)
}

// CooldownPassed true, если с последнего начисления прошло не меньше cooldown.
// Персонаж, который еще ни разу не получал опыт, кулдауна не имеет.
func CooldownPassed(last *time.Time, now time.Time, cooldown time.Duration) bool {
	if last == nil {
		return true
	}
	return now.Sub(*last) >= cooldown
}

// Gain итог начисления опыта
type Gain struct {
	Gained    int
	LeveledUp bool
	Changed   bool
}

// ApplyGain начисляет опыт персонажу по правилам кривой.
// На максимальном уровне персонаж не меняется.
func ApplyGain(c *domain.Character, gained int, now time.Time) Gain {
	if c.Level >= MaxLevel || gained <= 0 {
		return Gain{Gained: gained}
	}

	t := now
	if IsLevelUp(c.Level, c.Exp, gained) {
		c.Level++
		c.Exp = 0
		c.LastExpGainAt = &t
		return Gain{Gained: gained, LeveledUp: true, Changed: true}
	}

	c.Exp += gained
	c.LastExpGainAt = &t
	return Gain{Gained: gained, Changed: true}
}

// RollXP случайный опыт за сообщение в [MinXP, MaxXP]
func RollXP() int {
	return MinXP + secureRandInt(MaxXP-MinXP+1)
}

// полоска прогресса вида 🟩🟩⬛... 20%
func ProgressBar(level, exp int) string {
	p := Progress(level, exp)
	fill := p * progressBarLength / 100
	return strings.Repeat("🟩", fill) + strings.Repeat("⬛", progressBarLength-fill)
}

// secureRandInt возвращает число в [0, n)
func secureRandInt(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// запасной вариант - никогда не должно происходить
		return 0
	}
	return int(v.Int64())
}
