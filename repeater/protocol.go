package repeater

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/alan-christopher/repeater/repeater/decode"
	"github.com/alan-christopher/repeater/repeater/photon"
)

// A Protocol runs trials of one repeater chain configuration. Its trees are
// built once and reset between trials. A Protocol is not safe for concurrent
// use; give each goroutine its own.
type Protocol struct {
	opts   ProtocolOpts
	qubits int

	alice, bob *HalfRGS
	rgss       []*RGS
	// junctions are ordered from Alice to Bob.
	junctions []junction
	decoder   decode.Decoder
}

// NewProtocol returns a new Protocol, configured in accordance with opts, or
// an error wrapping ErrConfiguration if the options are nonsensical.
func NewProtocol(opts ProtocolOpts) (*Protocol, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.TieBreak == nil {
		opts.TieBreak = decode.RandomTieBreak{}
	}
	if len(opts.ObservableA.Ops) == 0 {
		opts.ObservableA = DefaultObservableA
	}
	if len(opts.ObservableB.Ops) == 0 {
		opts.ObservableB = DefaultObservableB
	}
	if opts.NewSimulator == nil {
		opts.NewSimulator = newTableau
	}
	opts.Branching = append([]int(nil), opts.Branching...)

	p := &Protocol{
		opts: opts,
		decoder: decode.Decoder{
			Strategy: opts.Strategy,
			TieBreak: opts.TieBreak,
		},
	}
	var err error
	if p.alice, err = NewHalfRGS(opts.Arms, opts.Branching, alice); err != nil {
		return nil, err
	}
	if p.bob, err = NewHalfRGS(opts.Arms, opts.Branching, bob); err != nil {
		return nil, err
	}
	for i := 0; i < opts.Hops-1; i++ {
		g, err := NewRGS(opts.Arms, opts.Branching, anchorLeft, anchorRight)
		if err != nil {
			return nil, err
		}
		p.rgss = append(p.rgss, g)
	}

	q := firstTreeQubit
	for _, g := range p.rgss {
		q = g.AssignQubits(q)
	}
	q = p.alice.AssignQubits(q)
	p.qubits = p.bob.AssignQubits(q)

	sides := []*HalfRGS{p.alice}
	for _, g := range p.rgss {
		sides = append(sides, g.Left, g.Right)
	}
	sides = append(sides, p.bob)
	for i := 0; i < len(sides); i += 2 {
		j, err := newJunction(sides[i], sides[i+1])
		if err != nil {
			return nil, err
		}
		p.junctions = append(p.junctions, j)
	}
	return p, nil
}

// Qubits returns the number of simulator qubits a trial uses.
func (p *Protocol) Qubits() int {
	return p.qubits
}

// Opts returns the options p was built with, defaults filled in.
func (p *Protocol) Opts() ProtocolOpts {
	return p.opts
}

// halves returns every HalfRGS of the chain from Alice to Bob.
func (p *Protocol) halves() []*HalfRGS {
	r := make([]*HalfRGS, 0, 2*len(p.junctions))
	for _, j := range p.junctions {
		r = append(r, j.left, j.right)
	}
	return r
}

// RunTrial runs one trial, drawing all of its randomness from a generator
// seeded with seed. Protocol failures are reported through the Result; the
// error is reserved for verification failures and bugs.
func (p *Protocol) RunTrial(seed int64) (Result, error) {
	t := &trial{
		p:    p,
		rand: rand.New(rand.NewSource(seed)),
	}
	res, err := t.run()
	res.Phase = t.phase
	if err == nil && !t.phase.Terminal() {
		err = fmt.Errorf("%w: trial stopped in %v", ErrPhase, t.phase)
	}
	return res, err
}

// RunTrial builds a Protocol from opts and runs a single trial of it.
func RunTrial(opts ProtocolOpts, seed int64) (Result, error) {
	p, err := NewProtocol(opts)
	if err != nil {
		return Result{}, err
	}
	return p.RunTrial(seed)
}

// A trial is the bookkeeping of one run of a Protocol.
type trial struct {
	p     *Protocol
	rand  *rand.Rand
	sim   Simulator
	phase Phase
}

func (t *trial) run() (Result, error) {
	p := t.p
	halves := p.halves()
	for _, h := range halves {
		h.reset()
	}
	t.sim = p.opts.NewSimulator(p.qubits, t.rand)
	verify := !p.opts.SkipVerification

	for _, g := range p.rgss {
		if err := g.prepare(t.sim, t.rand, verify); err != nil {
			return Result{}, fmt.Errorf("preparing RGS: %w", err)
		}
	}
	for _, h := range []*HalfRGS{p.alice, p.bob} {
		if err := h.prepare(t.sim, t.rand, verify); err != nil {
			return Result{}, fmt.Errorf("preparing endpoint: %w", err)
		}
	}
	if err := t.phase.advance(PhasePrepared); err != nil {
		return Result{}, err
	}

	ch, err := photon.NewSimulatedChannel(p.opts.LossProbability, t.rand)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	var res Result
	for _, h := range halves {
		if err := h.applyLoss(ch, t.sim, t.rand); err != nil {
			return Result{}, err
		}
		res.Stats = res.Stats.Add(h.CountLost())
	}
	if err := t.phase.advance(PhaseLossApplied); err != nil {
		return res, err
	}

	res.BSMArms = make([]int, len(p.junctions))
	bsmFailed := false
	for i, j := range p.junctions {
		k, err := j.measure(t.sim)
		if err != nil {
			return res, err
		}
		res.BSMArms[i] = k
		bsmFailed = bsmFailed || k < 0
	}
	if bsmFailed {
		res.Failure = FailureBSM
		return res, t.phase.advance(PhaseBSMFailed)
	}
	if err := t.phase.advance(PhaseBSMDone); err != nil {
		return res, err
	}

	for _, h := range halves {
		h.applySideEffects()
	}
	for _, j := range p.junctions {
		if err := j.propagate(); err != nil {
			return res, err
		}
	}
	if err := t.phase.advance(PhaseSideEffectsPropagated); err != nil {
		return res, err
	}

	d := p.decoder
	d.Rand = t.rand
	decoded := true
	for _, h := range halves {
		ok, err := h.decode(d)
		if err != nil {
			return res, err
		}
		decoded = decoded && ok
	}
	if !decoded {
		res.Failure = FailureDecode
		return res, t.phase.advance(PhaseDecodeFailed)
	}
	if err := t.phase.advance(PhaseDecoded); err != nil {
		return res, err
	}

	for _, j := range p.junctions {
		c, err := j.parity()
		if err != nil {
			return res, err
		}
		res.Correction = res.Correction.Xor(c)
	}
	if res.Correction.Left {
		t.sim.Z(alice)
	}
	if res.Correction.Right {
		t.sim.Z(bob)
	}
	if err := t.phase.advance(PhaseParityCorrected); err != nil {
		return res, err
	}

	res.ObservableA = t.sim.Peek(p.opts.ObservableA)
	res.ObservableB = t.sim.Peek(p.opts.ObservableB)
	if p.opts.Snapshot {
		s, ok := t.sim.(Snapshotter)
		if !ok {
			return res, errors.New("simulator cannot snapshot its stabilizers")
		}
		for _, ps := range s.CanonicalStabilizers() {
			res.Stabilizers = append(res.Stabilizers, ps.String())
		}
	}
	res.Success = true
	return res, t.phase.advance(PhaseDone)
}
