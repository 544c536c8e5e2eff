package batch

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/alan-christopher/repeater/repeater"
)

// A Summary accumulates the outcomes of a batch of trials. Summaries are plain
// values: every worker fills its own, and they are combined with Merge once
// the workers are done.
type Summary struct {
	// Trials counts requested trials, Attempts every run of the protocol
	// including retries.
	Trials   int
	Attempts int
	// Successes counts trials whose last attempt produced a Bell pair.
	Successes int

	BSMFailures    int
	DecodeFailures int

	// Correct, Incorrect and Unentangled classify the Bell pairs of
	// successful trials: both observables +1, some observable -1, or some
	// observable 0 without any -1.
	Correct     int
	Incorrect   int
	Unentangled int

	Photons repeater.Stats
}

// observe records one attempt.
func (s *Summary) observe(res repeater.Result) {
	s.Attempts++
	s.Photons = s.Photons.Add(res.Stats)
	switch res.Failure {
	case repeater.FailureBSM:
		s.BSMFailures++
	case repeater.FailureDecode:
		s.DecodeFailures++
	}
	if !res.Success {
		return
	}
	s.Successes++
	switch quality(res) {
	case "correct":
		s.Correct++
	case "incorrect":
		s.Incorrect++
	default:
		s.Unentangled++
	}
}

// quality classifies the Bell pair of a successful result.
func quality(res repeater.Result) string {
	switch a, b := res.ObservableA, res.ObservableB; {
	case a == 1 && b == 1:
		return "correct"
	case a == -1 || b == -1:
		return "incorrect"
	}
	return "unentangled"
}

// Merge returns the combination of s and o.
func (s Summary) Merge(o Summary) Summary {
	return Summary{
		Trials:         s.Trials + o.Trials,
		Attempts:       s.Attempts + o.Attempts,
		Successes:      s.Successes + o.Successes,
		BSMFailures:    s.BSMFailures + o.BSMFailures,
		DecodeFailures: s.DecodeFailures + o.DecodeFailures,
		Correct:        s.Correct + o.Correct,
		Incorrect:      s.Incorrect + o.Incorrect,
		Unentangled:    s.Unentangled + o.Unentangled,
		Photons:        s.Photons.Add(o.Photons),
	}
}

// SuccessRate returns the fraction of trials that succeeded, retries
// included.
func (s Summary) SuccessRate() float64 {
	return ratio(s.Successes, s.Trials)
}

// AttemptSuccessRate returns the fraction of single attempts that succeeded:
// the success probability of one run of the protocol.
func (s Summary) AttemptSuccessRate() float64 {
	return ratio(s.Successes, s.Attempts)
}

// LossRate returns the fraction of photons lost.
func (s Summary) LossRate() float64 {
	return ratio(s.Photons.LostPhotons, s.Photons.TotalPhotons)
}

// Fidelity returns the fraction of Bell pairs that were correct.
func (s Summary) Fidelity() float64 {
	return ratio(s.Correct, s.Successes)
}

// Wilson returns the Wilson score interval of AttemptSuccessRate at the given
// two-sided confidence level, e.g. 0.95.
func (s Summary) Wilson(confidence float64) (lo, hi float64) {
	if s.Attempts == 0 {
		return 0, 1
	}
	z := distuv.UnitNormal.Quantile(1 - (1-confidence)/2)
	n := float64(s.Attempts)
	p := s.AttemptSuccessRate()
	denom := 1 + z*z/n
	center := (p + z*z/(2*n)) / denom
	half := z * math.Sqrt(p*(1-p)/n+z*z/(4*n*n)) / denom
	return math.Max(0, center-half), math.Min(1, center+half)
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
