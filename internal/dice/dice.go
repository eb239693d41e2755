// Package dice parses and rolls tabletop dice formulas such as "d20", "2d6+1"
// or "3D8-2".
package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"math"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// ErrInvalidFormula indicates the formula does not match [count]d<sides>[+|-mod].
var ErrInvalidFormula = errors.New("invalid dice formula")

// ErrDiceLimit indicates the formula asks for more dice or sides than allowed.
var ErrDiceLimit = errors.New("dice formula exceeds limits")

var formulaPattern = regexp.MustCompile(`(?i)^(\d*)d(\d+)([+-]\d+)?$`)

// Formula is a parsed dice expression.
type Formula struct {
	Raw   string
	Count int
	Sides int
	Mod   int
}

// Result captures a single evaluation of a formula.
type Result struct {
	Formula string `json:"formula"`
	Rolls   []int  `json:"rolls"`
	Mod     int    `json:"mod"`
	Total   int    `json:"total"`
}

// Limits bounds the size of a roll. Zero values mean unbounded.
type Limits struct {
	MaxCount int
	MaxSides int
	// MaxModifier bounds the absolute value of the modifier.
	MaxModifier int
}

// Parse validates a formula. The count defaults to 1 and the modifier to 0.
func Parse(formula string) (Formula, error) {
	raw := strings.TrimSpace(formula)
	m := formulaPattern.FindStringSubmatch(raw)
	if m == nil {
		return Formula{}, ErrInvalidFormula
	}

	count := 1
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return Formula{}, ErrInvalidFormula
		}
		count = n
	}
	sides, err := strconv.Atoi(m[2])
	if err != nil {
		return Formula{}, ErrInvalidFormula
	}
	mod := 0
	if m[3] != "" {
		mod, err = strconv.Atoi(m[3])
		if err != nil {
			return Formula{}, ErrInvalidFormula
		}
	}
	if count <= 0 || sides <= 0 {
		return Formula{}, ErrInvalidFormula
	}
	// The largest possible total must fit in an int.
	if mod == math.MinInt || sides > (math.MaxInt-abs(mod))/count {
		return Formula{}, ErrInvalidFormula
	}

	return Formula{Raw: raw, Count: count, Sides: sides, Mod: mod}, nil
}

// Check reports whether the formula fits within the limits.
func (l Limits) Check(f Formula) error {
	if l.MaxCount > 0 && f.Count > l.MaxCount {
		return ErrDiceLimit
	}
	if l.MaxSides > 0 && f.Sides > l.MaxSides {
		return ErrDiceLimit
	}
	if l.MaxModifier > 0 && abs(f.Mod) > l.MaxModifier {
		return ErrDiceLimit
	}
	return nil
}

// Roller evaluates formulas against a shared random source. It is safe for
// concurrent use.
type Roller struct {
	limits Limits
	mu     sync.Mutex
	rng    *rand.Rand
}

// NewRoller returns a Roller seeded from crypto/rand.
func NewRoller(limits Limits) *Roller {
	return NewSeededRoller(limits, newSeed())
}

// NewSeededRoller returns a Roller whose results are reproducible for a seed.
func NewSeededRoller(limits Limits, seed int64) *Roller {
	return &Roller{limits: limits, rng: rand.New(rand.NewSource(seed))}
}

// Roll parses and evaluates the formula.
func (r *Roller) Roll(formula string) (*Result, error) {
	f, err := Parse(formula)
	if err != nil {
		return nil, err
	}
	if err := r.limits.Check(f); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return f.roll(r.rng), nil
}

var defaultRoller = NewRoller(Limits{})

// Roll evaluates the formula with an unbounded roller. It returns nil when the
// formula cannot be parsed.
func Roll(formula string) *Result {
	res, err := defaultRoller.Roll(formula)
	if err != nil {
		return nil
	}
	return res
}

func (f Formula) roll(rng *rand.Rand) *Result {
	rolls := make([]int, f.Count)
	total := 0
	for i := range rolls {
		rolls[i] = rng.Intn(f.Sides) + 1
		total += rolls[i]
	}
	return &Result{
		Formula: f.Raw,
		Rolls:   rolls,
		Mod:     f.Mod,
		Total:   total + f.Mod,
	}
}

func newSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("dice: read random seed: " + err.Error())
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
