package decode

import (
	"fmt"
	"math"
	"math/rand"
)

// A TieBreaker settles a majority vote whose candidates are split evenly. r is
// the Decoder's generator and may be nil.
type TieBreaker interface {
	Break(cands []Candidate, r *rand.Rand) bool
}

// RandomTieBreak settles ties with a fair coin.
type RandomTieBreak struct{}

// Break implements TieBreaker. It panics if r is nil.
func (RandomTieBreak) Break(_ []Candidate, r *rand.Rand) bool {
	return coin(r)
}

// ConfidenceTieBreak prefers the value backed by the candidate that needed
// the fewest indirect recoveries, and falls back to a fair coin when both
// values are equally well backed.
type ConfidenceTieBreak struct{}

// Break implements TieBreaker. It panics if it needs the coin and r is nil.
func (ConfidenceTieBreak) Break(cands []Candidate, r *rand.Rand) bool {
	best := [2]int{math.MaxInt, math.MaxInt}
	for _, c := range cands {
		i := 0
		if c.Value {
			i = 1
		}
		best[i] = min(best[i], c.Indirect)
	}
	switch {
	case best[1] < best[0]:
		return true
	case best[0] < best[1]:
		return false
	}
	return coin(r)
}

func coin(r *rand.Rand) bool {
	if r == nil {
		panic("decode: breaking a tie at random needs Decoder.Rand")
	}
	return r.Intn(2) == 1
}

// ParseTieBreaker maps "random" and "confidence" to their TieBreaker.
func ParseTieBreaker(s string) (TieBreaker, error) {
	switch s {
	case "random", "":
		return RandomTieBreak{}, nil
	case "confidence":
		return ConfidenceTieBreak{}, nil
	}
	return nil, fmt.Errorf("unknown tie breaker %q", s)
}
