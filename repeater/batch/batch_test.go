package batch

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alan-christopher/repeater/repeater"
	"github.com/alan-christopher/repeater/repeater/stabilizer"
)

func TestRetriesMakeEveryTrialSucceed(t *testing.T) {
	s, err := Run(context.Background(), Opts{
		Protocol:    repeater.ProtocolOpts{Hops: 1, Arms: 1, Branching: []int{1}},
		Trials:      100,
		Seed:        1,
		MaxAttempts: 30,
		Workers:     4,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, s.Trials)
	assert.Equal(t, 100, s.Successes)
	assert.Equal(t, 100, s.Correct)
	assert.Zero(t, s.DecodeFailures)
	assert.Equal(t, s.Attempts-s.Successes, s.BSMFailures)
	assert.Equal(t, 1.0, s.SuccessRate())
	assert.Equal(t, 1.0, s.Fidelity())
	assert.Zero(t, s.Photons.LostPhotons)
}

func TestTotalLossNeverSucceeds(t *testing.T) {
	s, err := Run(context.Background(), Opts{
		Protocol:    repeater.ProtocolOpts{Hops: 2, Arms: 2, Branching: []int{2}, LossProbability: 1},
		Trials:      25,
		MaxAttempts: 3,
	})
	require.NoError(t, err)
	assert.Zero(t, s.Successes)
	assert.Equal(t, 75, s.Attempts)
	assert.Equal(t, 75, s.BSMFailures)
	assert.Equal(t, 1.0, s.LossRate())
	assert.Zero(t, s.SuccessRate())
}

func TestRunIsIndependentOfWorkers(t *testing.T) {
	opts := Opts{
		Protocol:    repeater.ProtocolOpts{Hops: 2, Arms: 2, Branching: []int{2, 1}, LossProbability: 0.15},
		Trials:      60,
		Seed:        99,
		MaxAttempts: 2,
	}
	var got []Summary
	for _, workers := range []int{1, 3, 8} {
		opts.Workers = workers
		s, err := Run(context.Background(), opts)
		require.NoError(t, err)
		got = append(got, s)
	}
	assert.Equal(t, got[0], got[1])
	assert.Equal(t, got[0], got[2])
}

func TestLossMonotonicity(t *testing.T) {
	prev := 1.0
	for _, loss := range []float64{0, 0.1, 0.3, 0.6} {
		s, err := Run(context.Background(), Opts{
			Protocol: repeater.ProtocolOpts{Hops: 1, Arms: 2, Branching: []int{2, 2}, LossProbability: loss},
			Trials:   400,
			Seed:     7,
		})
		require.NoError(t, err)
		rate := s.AttemptSuccessRate()
		assert.LessOrEqual(t, rate, prev+0.05, "success rate rose to %v at loss %v", rate, loss)
		assert.Equal(t, s.Successes, s.Correct, "loss %v produced bad Bell pairs", loss)
		prev = rate
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	s, err := Run(context.Background(), Opts{
		Protocol: repeater.ProtocolOpts{Hops: 1, Arms: 2, Branching: []int{2}, LossProbability: 0.2},
		Trials:   50,
		Metrics:  m,
	})
	require.NoError(t, err)

	assert.Equal(t, float64(s.Successes), testutil.ToFloat64(m.attempts.WithLabelValues("success")))
	assert.Equal(t, float64(s.BSMFailures), testutil.ToFloat64(m.attempts.WithLabelValues("bsm")))
	assert.Equal(t, float64(s.DecodeFailures), testutil.ToFloat64(m.attempts.WithLabelValues("decode")))
	assert.Equal(t, float64(s.Photons.LostPhotons), testutil.ToFloat64(m.photons.WithLabelValues("lost")))
	assert.Equal(t, float64(s.Photons.TotalPhotons-s.Photons.LostPhotons), testutil.ToFloat64(m.photons.WithLabelValues("arrived")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "registering twice should fail")
}

func TestRecordsAndLogs(t *testing.T) {
	var records, logs bytes.Buffer
	logger := zerolog.New(&logs)
	s, err := Run(context.Background(), Opts{
		Protocol:    repeater.ProtocolOpts{Hops: 1, Arms: 1, Branching: []int{1}},
		Trials:      10,
		MaxAttempts: 5,
		Workers:     2,
		RunID:       "test-run",
		Logger:      &logger,
		Records:     repeater.NewRecordWriter(&records),
	})
	require.NoError(t, err)

	r := repeater.NewRecordReader(&records)
	n, successes := 0, 0
	for {
		var rec repeater.Record
		err := r.Read(&rec)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, "test-run", rec.RunID)
		assert.Equal(t, TrialSeed(0, int(rec.Trial), rec.Attempt), rec.Seed)
		if rec.Result.Success {
			successes++
		}
		n++
	}
	assert.Equal(t, s.Attempts, n)
	assert.Equal(t, s.Successes, successes)

	out := logs.String()
	assert.Contains(t, out, `"run":"test-run"`)
	assert.Contains(t, out, "batch started")
	// Defaults filled in by the protocol are reported.
	assert.Contains(t, out, `"observable_a":"+XZ"`)
	assert.Contains(t, out, `"strategy":"majority"`)
	assert.Contains(t, out, `"qubits_per_arm":2`)
	assert.Contains(t, out, "batch finished")
}

type lyingSimulator struct {
	repeater.Simulator
}

func (lyingSimulator) Peek(stabilizer.PauliString) int {
	return 0
}

func TestVerificationAbortsBatch(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	_, err := Run(context.Background(), Opts{
		Protocol: repeater.ProtocolOpts{
			Hops:      1,
			Arms:      1,
			Branching: []int{1},
			NewSimulator: func(n int, r *rand.Rand) repeater.Simulator {
				return lyingSimulator{stabilizer.NewTableau(n, r)}
			},
		},
		Trials: 10,
		Logger: &logger,
	})
	require.ErrorIs(t, err, repeater.ErrVerification)
	assert.True(t, strings.Contains(logs.String(), "aborting batch"))
}

func TestRunRejects(t *testing.T) {
	good := repeater.ProtocolOpts{Hops: 1, Arms: 1, Branching: []int{1}}
	_, err := Run(context.Background(), Opts{Protocol: good})
	assert.ErrorIs(t, err, repeater.ErrConfiguration)
	_, err = Run(context.Background(), Opts{Protocol: good, Trials: 1, MaxAttempts: -1})
	assert.ErrorIs(t, err, repeater.ErrConfiguration)
	_, err = Run(context.Background(), Opts{Protocol: repeater.ProtocolOpts{Hops: 1, Arms: 1}, Trials: 1})
	assert.ErrorIs(t, err, repeater.ErrConfiguration)
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Opts{
		Protocol: repeater.ProtocolOpts{Hops: 1, Arms: 1, Branching: []int{1}},
		Trials:   10,
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrialSeed(t *testing.T) {
	seen := map[int64]bool{}
	for trial := 0; trial < 50; trial++ {
		for attempt := 0; attempt < 4; attempt++ {
			s := TrialSeed(3, trial, attempt)
			assert.False(t, seen[s], "trial %d attempt %d reuses a seed", trial, attempt)
			seen[s] = true
		}
	}
	assert.Equal(t, TrialSeed(3, 1, 2), TrialSeed(3, 1, 2))
	assert.NotEqual(t, TrialSeed(3, 1, 2), TrialSeed(4, 1, 2))
}
