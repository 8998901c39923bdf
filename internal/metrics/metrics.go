// Package metrics exports simulation telemetry to Prometheus.
package metrics

import (
	"time"

	"shopsim/internal/game"
	"shopsim/internal/sim"

	"github.com/prometheus/client_golang/prometheus"
)

type Recorder struct {
	subticks       *prometheus.HistogramVec
	subtickErrors  *prometheus.CounterVec
	flushes        *prometheus.HistogramVec
	ordersCreated  *prometheus.CounterVec
	ordersFinished *prometheus.CounterVec
	drivers        prometheus.Gauge
}

var _ sim.Recorder = (*Recorder)(nil)

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		subticks: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shopsim",
			Name:      "subtick_duration_seconds",
			Help:      "Time spent in one sub-tick run.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}, []string{"subtick"}),
		subtickErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopsim",
			Name:      "subtick_errors_total",
			Help:      "Sub-tick runs that returned an error or panicked.",
		}, []string{"subtick"}),
		flushes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shopsim",
			Name:      "flush_duration_seconds",
			Help:      "Time spent writing one delta buffer to the store.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopsim",
			Name:      "orders_generated_total",
			Help:      "Customer orders generated.",
		}, []string{"business_type"}),
		ordersFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopsim",
			Name:      "orders_finished_total",
			Help:      "Orders that reached a terminal status.",
		}, []string{"business_type", "status"}),
		drivers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shopsim",
			Name:      "drivers_running",
			Help:      "Simulation drivers currently running.",
		}),
	}
	reg.MustRegister(r.subticks, r.subtickErrors, r.flushes, r.ordersCreated, r.ordersFinished, r.drivers)
	return r
}

func (r *Recorder) SubtickRan(subtick string, took time.Duration, err error) {
	r.subticks.WithLabelValues(subtick).Observe(took.Seconds())
	if err != nil {
		r.subtickErrors.WithLabelValues(subtick).Inc()
	}
}

func (r *Recorder) FlushFinished(took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.flushes.WithLabelValues(result).Observe(took.Seconds())
}

func (r *Recorder) OrdersGenerated(businessType string, n int) {
	if n > 0 {
		r.ordersCreated.WithLabelValues(businessType).Add(float64(n))
	}
}

func (r *Recorder) OrderFinished(businessType string, status game.OrderStatus) {
	r.ordersFinished.WithLabelValues(businessType, string(status)).Inc()
}

func (r *Recorder) DriverStarted() { r.drivers.Inc() }

func (r *Recorder) DriverStopped() { r.drivers.Dec() }
