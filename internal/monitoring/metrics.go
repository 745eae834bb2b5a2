package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	ProcessedTotal    prometheus.Counter
	SucceededTotal    prometheus.Counter
	FailedTotal       prometheus.Counter
	CacheHitsTotal    prometheus.Counter
	RejectionsTotal   *prometheus.CounterVec
	SourceErrorsTotal *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProcessedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_entities_processed_total",
			Help: "The total number of entities processed",
		}),
		SucceededTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_entities_succeeded_total",
			Help: "The total number of entities for which an image was acquired",
		}),
		FailedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_entities_failed_total",
			Help: "The total number of entities that ended in a failed state",
		}),
		CacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_cache_hits_total",
			Help: "The total number of entities served from the result cache",
		}),
		RejectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_candidate_rejections_total",
			Help: "Candidate image rejections by reason",
		}, []string{"reason"}), // e.g. 'too_small', 'placeholder'
		SourceErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_source_errors_total",
			Help: "Source search failures by source name",
		}, []string{"source"}),
	}
}
