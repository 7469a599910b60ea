// Package metrics exposes prometheus collectors for deployment runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var durationBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800}

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Recorder counts deployment outcomes and observes their duration.
type Recorder struct {
	deployments *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inFlight    prometheus.Gauge
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		deployments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bicep_deployer",
			Name:      "deployments_total",
			Help:      "Number of deployment runs by result and failing stage",
		}, []string{"result", "stage"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bicep_deployer",
			Name:      "deployment_duration_seconds",
			Help:      "Wall-clock duration of deployment runs",
			Buckets:   durationBuckets,
		}, []string{"result"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bicep_deployer",
			Name:      "deployments_in_flight",
			Help:      "Deployment runs currently executing",
		}),
	}
	for _, c := range []prometheus.Collector{r.deployments, r.duration, r.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Started marks a run as in flight.
func (r *Recorder) Started() {
	if r == nil {
		return
	}
	r.inFlight.Inc()
}

// Finished records a terminal run. stage is empty on success.
func (r *Recorder) Finished(success bool, stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.inFlight.Dec()
	result := ResultSuccess
	if !success {
		result = ResultFailure
	}
	r.deployments.With(prometheus.Labels{"result": result, "stage": stage}).Inc()
	r.duration.With(prometheus.Labels{"result": result}).Observe(d.Seconds())
}
