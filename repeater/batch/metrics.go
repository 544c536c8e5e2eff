package batch

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/alan-christopher/repeater/repeater"
)

const metricsNamespace = "repeater"

// Metrics exports the progress of batches to Prometheus. A nil *Metrics
// discards everything.
type Metrics struct {
	attempts *prometheus.CounterVec
	pairs    *prometheus.CounterVec
	photons  *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates the batch metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "attempts_total",
				Help:      "Protocol runs by outcome (success, bsm, decode).",
			},
			[]string{"outcome"},
		),
		pairs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "bell_pairs_total",
				Help:      "Bell pairs of successful runs by quality (correct, incorrect, unentangled).",
			},
			[]string{"quality"},
		),
		photons: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "photons_total",
				Help:      "Photons sent, by fate (lost, arrived).",
			},
			[]string{"fate"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "attempt_duration_seconds",
				Help:      "Wall time of one protocol run.",
				Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
			},
		),
	}
	for _, c := range []prometheus.Collector{m.attempts, m.pairs, m.photons, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(res repeater.Result, seconds float64) {
	if m == nil {
		return
	}
	m.duration.Observe(seconds)
	switch {
	case res.Success:
		m.attempts.WithLabelValues("success").Inc()
	case res.Failure == repeater.FailureBSM:
		m.attempts.WithLabelValues("bsm").Inc()
	default:
		m.attempts.WithLabelValues("decode").Inc()
	}
	lost := res.Stats.LostPhotons
	m.photons.WithLabelValues("lost").Add(float64(lost))
	m.photons.WithLabelValues("arrived").Add(float64(res.Stats.TotalPhotons - lost))
	if !res.Success {
		return
	}
	m.pairs.WithLabelValues(quality(res)).Inc()
}
