// Package batch runs many independent trials of a repeater chain in parallel
// and reduces their outcomes.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/alan-christopher/repeater/repeater"
	"github.com/alan-christopher/repeater/repeater/tree"
)

var (
	DefaultMaxAttempts = 1
	DefaultWorkers     = runtime.GOMAXPROCS(0)
)

// An Opts packages together the arguments of Run.
type Opts struct {
	// Protocol configures the repeater chain. See repeater.ProtocolOpts.
	Protocol repeater.ProtocolOpts

	// Trials is the number of trials to run. Must be positive.
	Trials int

	// Seed determines the randomness of every trial; see TrialSeed.
	Seed int64

	// MaxAttempts bounds the runs of the protocol per trial: a failed run is
	// discarded and retried with fresh randomness until one succeeds or
	// MaxAttempts is reached. Defaults to DefaultMaxAttempts, no retries.
	MaxAttempts int

	// Workers is the number of trials run in parallel. Defaults to
	// DefaultWorkers.
	Workers int

	// RunID labels logs and records. Defaults to a random UUID.
	RunID string

	// Logger defaults to a disabled logger.
	Logger *zerolog.Logger

	// Metrics, if non-nil, is updated after every run of the protocol.
	Metrics *Metrics

	// Records, if non-nil, receives one record per run of the protocol, in no
	// particular order.
	Records *repeater.RecordWriter
}

// TrialSeed derives the seed of one attempt of one trial from the seed of a
// batch, so that every attempt draws independent randomness regardless of
// which worker runs it.
func TrialSeed(base int64, trial, attempt int) int64 {
	z := uint64(base) + uint64(trial)*0x9e3779b97f4a7c15 + uint64(attempt)*0xd1b54a32d192ed03
	z = (z ^ z>>30) * 0xbf58476d1ce4e5b9
	z = (z ^ z>>27) * 0x94d049bb133111eb
	return int64(z ^ z>>31)
}

// Run runs opts.Trials trials over opts.Workers goroutines, each with its own
// repeater.Protocol, and merges their summaries. A verification failure in any
// trial aborts the batch.
func Run(ctx context.Context, opts Opts) (Summary, error) {
	if opts.Trials < 1 {
		return Summary{}, fmt.Errorf("%w: need at least one trial, got %d", repeater.ErrConfiguration, opts.Trials)
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.MaxAttempts < 1 {
		return Summary{}, fmt.Errorf("%w: need at least one attempt per trial, got %d", repeater.ErrConfiguration, opts.MaxAttempts)
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	opts.Workers = min(opts.Workers, opts.Trials)
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	logger = logger.With().Str("run", opts.RunID).Logger()

	protocols := make([]*repeater.Protocol, opts.Workers)
	for i := range protocols {
		p, err := repeater.NewProtocol(opts.Protocol)
		if err != nil {
			return Summary{}, err
		}
		protocols[i] = p
	}
	popts := protocols[0].Opts()
	logger.Info().
		Int("hops", popts.Hops).
		Int("arms", popts.Arms).
		Ints("branching", popts.Branching).
		Float64("loss", popts.LossProbability).
		Stringer("strategy", popts.Strategy).
		Stringer("observable_a", popts.ObservableA).
		Stringer("observable_b", popts.ObservableB).
		Int("trials", opts.Trials).
		Int("workers", opts.Workers).
		Int("qubits", protocols[0].Qubits()).
		Int("qubits_per_arm", tree.QubitsPerArm(popts.Branching)).
		Msg("batch started")
	start := time.Now()

	var recordsMu sync.Mutex
	summaries := make([]Summary, opts.Workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := range protocols {
		g.Go(func() error {
			p := protocols[w]
			s := &summaries[w]
			for trial := w; trial < opts.Trials; trial += opts.Workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				s.Trials++
				for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
					seed := TrialSeed(opts.Seed, trial, attempt)
					t0 := time.Now()
					res, err := p.RunTrial(seed)
					if err != nil {
						if errors.Is(err, repeater.ErrVerification) {
							logger.Error().
								Int("trial", trial).
								Int("attempt", attempt).
								Int64("seed", seed).
								Err(err).
								Msg("stabilizer verification failed, aborting batch")
						}
						return fmt.Errorf("trial %d attempt %d (seed %d): %w", trial, attempt, seed, err)
					}
					opts.Metrics.observe(res, time.Since(t0).Seconds())
					s.observe(res)
					if opts.Records != nil {
						rec := repeater.Record{RunID: opts.RunID, Trial: int64(trial), Attempt: attempt, Seed: seed, Result: res}
						recordsMu.Lock()
						err := opts.Records.Write(&rec)
						recordsMu.Unlock()
						if err != nil {
							return fmt.Errorf("writing record: %w", err)
						}
					}
					if res.Success {
						break
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	var total Summary
	for _, s := range summaries {
		total = total.Merge(s)
	}
	lo, hi := total.Wilson(0.95)
	logger.Info().
		Int("successes", total.Successes).
		Int("attempts", total.Attempts).
		Float64("success_rate", total.SuccessRate()).
		Float64("attempt_success_lo", lo).
		Float64("attempt_success_hi", hi).
		Float64("fidelity", total.Fidelity()).
		Dur("elapsed", time.Since(start)).
		Msg("batch finished")
	return total, nil
}
