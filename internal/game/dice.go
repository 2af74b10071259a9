package game

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	maxDiceCount = 100
	maxDiceSides = 1000
	maxDiceTerms = 10
	maxConstant  = 1000000
)

var (
	ErrNotDiceExpression = errors.New("это не выражение броска")
	ErrDiceOutOfRange    = errors.New("слишком много кубиков, граней или слишком большое число")
)

// одно слагаемое: либо кубики NdM[khX|klX], либо константа
var diceTermRe = regexp.MustCompile(`^(\d*)d(\d+)(?:(kh|kl)(\d+))?$`)

// DiceTerm слагаемое выражения
type DiceTerm struct {
	Sign     int // +1 или -1
	Count    int // 0 для константы
	Sides    int
	Keep     string // "", "kh" или "kl"
	KeepN    int
	Constant int
}

// DiceExpr разобранное выражение вида 2d6+1d4-1
type DiceExpr struct {
	Terms []DiceTerm
	raw   string
}

// DieRoll результат одного слагаемого с кубиками
type DieRoll struct {
	Term    DiceTerm
	Results []int
	Kept    []int
	Total   int
}

type DiceRoll struct {
	Expr  *DiceExpr
	Rolls []DieRoll
	Total int
}

// ParseDice разбирает текст целиком; хотя бы одно слагаемое должно быть кубиком
func ParseDice(s string) (*DiceExpr, error) {
	raw := strings.ToLower(strings.Join(strings.Fields(s), ""))
	if raw == "" {
		return nil, ErrNotDiceExpression
	}

	expr := &DiceExpr{raw: raw}
	hasDice := false

	sign := 1
	start := 0
	if raw[0] == '+' || raw[0] == '-' {
		if raw[0] == '-' {
			sign = -1
		}
		start = 1
	}

	for i := start; i <= len(raw); i++ {
		if i < len(raw) && raw[i] != '+' && raw[i] != '-' {
			continue
		}
		token := raw[start:i]
		term, err := parseDiceTerm(token, sign)
		if err != nil {
			return nil, err
		}
		if term.Count > 0 {
			hasDice = true
		}
		expr.Terms = append(expr.Terms, term)
		if len(expr.Terms) > maxDiceTerms {
			return nil, ErrDiceOutOfRange
		}

		if i < len(raw) {
			sign = 1
			if raw[i] == '-' {
				sign = -1
			}
		}
		start = i + 1
	}

	if !hasDice {
		return nil, ErrNotDiceExpression
	}
	return expr, nil
}

func parseDiceTerm(token string, sign int) (DiceTerm, error) {
	if token == "" {
		return DiceTerm{}, ErrNotDiceExpression
	}

	if n, err := strconv.Atoi(token); err == nil {
		if n > maxConstant {
			return DiceTerm{}, ErrDiceOutOfRange
		}
		return DiceTerm{Sign: sign, Constant: n}, nil
	}

	m := diceTermRe.FindStringSubmatch(token)
	if m == nil {
		return DiceTerm{}, ErrNotDiceExpression
	}

	count := 1
	if m[1] != "" {
		count, _ = strconv.Atoi(m[1])
	}
	sides, _ := strconv.Atoi(m[2])
	if count < 1 || sides < 1 {
		return DiceTerm{}, ErrNotDiceExpression
	}
	if count > maxDiceCount || sides > maxDiceSides {
		return DiceTerm{}, ErrDiceOutOfRange
	}

	term := DiceTerm{Sign: sign, Count: count, Sides: sides}
	if m[3] != "" {
		keep, _ := strconv.Atoi(m[4])
		if keep < 1 || keep > count {
			return DiceTerm{}, ErrNotDiceExpression
		}
		term.Keep = m[3]
		term.KeepN = keep
	}
	return term, nil
}

// Roll бросает кубики. intn должен вернуть число в [0, n); nil значит crypto/rand
func (e *DiceExpr) Roll(intn func(n int) int) DiceRoll {
	if intn == nil {
		intn = secureRandInt
	}

	out := DiceRoll{Expr: e}
	for _, t := range e.Terms {
		if t.Count == 0 {
			out.Total += t.Sign * t.Constant
			continue
		}

		dr := DieRoll{Term: t, Results: make([]int, t.Count)}
		for i := range dr.Results {
			dr.Results[i] = intn(t.Sides) + 1
		}

		dr.Kept = keepDice(dr.Results, t.Keep, t.KeepN)
		for _, v := range dr.Kept {
			dr.Total += v
		}
		out.Total += t.Sign * dr.Total
		out.Rolls = append(out.Rolls, dr)
	}
	return out
}

func keepDice(results []int, mode string, n int) []int {
	if mode == "" {
		return append([]int(nil), results...)
	}
	sorted := append([]int(nil), results...)
	if mode == "kh" {
		sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	} else {
		sort.Ints(sorted)
	}
	return sorted[:n]
}

func (e *DiceExpr) String() string {
	return e.raw
}

// String вида "2d6 [3, 5] + 2"
func (r DiceRoll) String() string {
	var b strings.Builder
	rolls := r.Rolls
	for i, t := range r.Expr.Terms {
		switch {
		case i > 0 && t.Sign < 0:
			b.WriteString(" - ")
		case i > 0:
			b.WriteString(" + ")
		case t.Sign < 0:
			b.WriteString("-")
		}

		if t.Count == 0 {
			b.WriteString(strconv.Itoa(t.Constant))
			continue
		}

		dr := rolls[0]
		rolls = rolls[1:]
		parts := make([]string, len(dr.Results))
		for j, v := range dr.Results {
			parts[j] = strconv.Itoa(v)
		}
		fmt.Fprintf(&b, "%dd%d", t.Count, t.Sides)
		if t.Keep != "" {
			fmt.Fprintf(&b, "%s%d", t.Keep, t.KeepN)
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(parts, ", "))
	}
	return b.String()
}
