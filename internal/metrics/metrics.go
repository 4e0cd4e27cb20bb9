// Package metrics exposes the prometheus collectors of the brain service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	trainings          *prometheus.CounterVec
	trainingDuration   *prometheus.HistogramVec
	trainingRows       *prometheus.GaugeVec
	score              *prometheus.GaugeVec
	predictions        *prometheus.CounterVec
	predictionDuration *prometheus.HistogramVec
	cacheLookups       *prometheus.CounterVec
	observations       *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		trainings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learninghouse_trainings_total",
				Help: "Total number of training runs by brain and result kind",
			},
			[]string{"brain", "result"},
		),
		trainingDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "learninghouse_training_duration_seconds",
				Help:    "Duration of training runs",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"brain"},
		),
		trainingRows: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "learninghouse_training_data_size",
				Help: "Rows used by the last successful training run",
			},
			[]string{"brain"},
		),
		score: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "learninghouse_brain_score",
				Help: "Score of the last successful training run (accuracy or R²)",
			},
			[]string{"brain"},
		),
		predictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learninghouse_predictions_total",
				Help: "Total number of prediction requests by brain and result kind",
			},
			[]string{"brain", "result"},
		),
		predictionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "learninghouse_prediction_duration_seconds",
				Help:    "Duration of prediction requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"brain"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learninghouse_model_cache_lookups_total",
				Help: "Compiled brain cache lookups",
			},
			[]string{"hit"},
		),
		observations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learninghouse_observations_total",
				Help: "Observations appended to training data",
			},
			[]string{"brain"},
		),
	}
}

func (m *Metrics) ObserveTraining(brain, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.trainings.WithLabelValues(brain, result).Inc()
	m.trainingDuration.WithLabelValues(brain).Observe(d.Seconds())
}

func (m *Metrics) SetTrained(brain string, rows int, score float64) {
	if m == nil {
		return
	}
	m.trainingRows.WithLabelValues(brain).Set(float64(rows))
	m.score.WithLabelValues(brain).Set(score)
}

func (m *Metrics) ObservePrediction(brain, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(brain, result).Inc()
	m.predictionDuration.WithLabelValues(brain).Observe(d.Seconds())
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	label := "false"
	if hit {
		label = "true"
	}
	m.cacheLookups.WithLabelValues(label).Inc()
}

func (m *Metrics) ObservationAppended(brain string) {
	if m == nil {
		return
	}
	m.observations.WithLabelValues(brain).Inc()
}

// Forget drops the per-brain series of a deleted brain.
func (m *Metrics) Forget(brain string) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"brain": brain}
	m.trainings.DeletePartialMatch(labels)
	m.trainingDuration.DeletePartialMatch(labels)
	m.trainingRows.DeletePartialMatch(labels)
	m.score.DeletePartialMatch(labels)
	m.predictions.DeletePartialMatch(labels)
	m.predictionDuration.DeletePartialMatch(labels)
	m.observations.DeletePartialMatch(labels)
}
