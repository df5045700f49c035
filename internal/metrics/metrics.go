package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ligun0805/airdrop-claimer/internal/claimcore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Recorder mirrors batch progress into Prometheus. Metrics live in a dedicated
// registry so tests can create as many recorders as they like.
type Recorder struct {
	registry *prometheus.Registry

	outcomes    *prometheus.CounterVec
	attempts    prometheus.Histogram
	keyDuration prometheus.Histogram
	lastSuccess prometheus.Gauge
	lastTotal   prometheus.Gauge
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()

	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "claimer",
		Name:      "outcomes_total",
		Help:      "Per-key outcomes by kind.",
	}, []string{"kind"})

	attempts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "claimer",
		Name:      "submit_attempts",
		Help:      "Submission attempts used per key that reached the submit stage.",
		Buckets:   []float64{1, 2, 3, 5},
	})

	keyDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "claimer",
		Name:      "key_duration_seconds",
		Help:      "Wall time spent on one key, excluding the inter-key pause.",
		Buckets:   []float64{5, 15, 30, 60, 120, 300},
	})

	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "claimer",
		Name:      "batch_success",
		Help:      "Successful keys so far in the running batch.",
	})

	lastTotal := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "claimer",
		Name:      "batch_total",
		Help:      "Keys processed so far in the running batch.",
	})

	reg.MustRegister(outcomes, attempts, keyDuration, lastSuccess, lastTotal)

	// Pre-create every kind so dashboards see zeros instead of gaps.
	for _, k := range []claimcore.OutcomeKind{
		claimcore.OutcomeSubmitted, claimcore.OutcomeAlreadyClaimed, claimcore.OutcomeNotEligible,
		claimcore.OutcomeSkipped, claimcore.OutcomeFailed,
	} {
		outcomes.WithLabelValues(k.String())
	}

	return &Recorder{
		registry:    reg,
		outcomes:    outcomes,
		attempts:    attempts,
		keyDuration: keyDuration,
		lastSuccess: lastSuccess,
		lastTotal:   lastTotal,
	}
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) ObserveOutcome(o claimcore.Outcome, elapsed time.Duration) {
	r.outcomes.WithLabelValues(o.Kind.String()).Inc()
	if o.Attempts > 0 {
		r.attempts.Observe(float64(o.Attempts))
	}
	r.keyDuration.Observe(elapsed.Seconds())
	r.lastTotal.Inc()
	if o.Success() {
		r.lastSuccess.Inc()
	}
}

// ObserveBatch pins the batch gauges to the final summary.
func (r *Recorder) ObserveBatch(b claimcore.BatchResult) {
	r.lastSuccess.Set(float64(b.Success))
	r.lastTotal.Set(float64(b.Total))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string, log logrus.FieldLogger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("metrics listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

var _ claimcore.Recorder = (*Recorder)(nil)
