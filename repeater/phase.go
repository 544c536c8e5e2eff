package repeater

import (
	"errors"
	"fmt"
)

// ErrPhase is returned when a trial attempts an illegal phase transition. It
// indicates a bug in the trial sequencing.
var ErrPhase = errors.New("illegal trial phase transition")

// A Phase is a step of a trial.
type Phase int

const (
	PhaseInit Phase = iota
	PhasePrepared
	PhaseLossApplied
	PhaseBSMDone
	PhaseBSMFailed
	PhaseSideEffectsPropagated
	PhaseDecoded
	PhaseDecodeFailed
	PhaseParityCorrected
	PhaseDone
)

var phaseNames = [...]string{
	PhaseInit:                  "INIT",
	PhasePrepared:              "PREPARED",
	PhaseLossApplied:           "LOSS_APPLIED",
	PhaseBSMDone:               "BSM_DONE",
	PhaseBSMFailed:             "BSM_FAILED",
	PhaseSideEffectsPropagated: "SIDE_EFFECTS_PROPAGATED",
	PhaseDecoded:               "DECODED",
	PhaseDecodeFailed:          "DECODE_FAILED",
	PhaseParityCorrected:       "PARITY_CORRECTED",
	PhaseDone:                  "DONE",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Terminal reports whether a trial in phase p is over.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseBSMFailed || p == PhaseDecodeFailed
}

// phaseSuccessors lists the legal successors of each phase.
var phaseSuccessors = map[Phase][]Phase{
	PhaseInit:                  {PhasePrepared},
	PhasePrepared:              {PhaseLossApplied},
	PhaseLossApplied:           {PhaseBSMDone, PhaseBSMFailed},
	PhaseBSMDone:               {PhaseSideEffectsPropagated},
	PhaseSideEffectsPropagated: {PhaseDecoded, PhaseDecodeFailed},
	PhaseDecoded:               {PhaseParityCorrected},
	PhaseParityCorrected:       {PhaseDone},
}

// advance moves p to to, or fails if that transition is illegal.
func (p *Phase) advance(to Phase) error {
	for _, n := range phaseSuccessors[*p] {
		if n == to {
			*p = to
			return nil
		}
	}
	return fmt.Errorf("%w: %v -> %v", ErrPhase, *p, to)
}
