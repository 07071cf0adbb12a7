package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "lectern"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg           *prom.Registry
	buildDuration prom.Histogram
	buildOutcome  *prom.CounterVec
	lastSuccess   prom.Gauge
	stageDuration *prom.HistogramVec
	pages         prom.Counter
	recordsRead   *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg, or
// on a fresh registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of complete build passes",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build passes by outcome",
		}, []string{"outcome"}),
		lastSuccess: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful build pass",
		}),
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		pages: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pages_written_total",
			Help:      "Output files written",
		}),
		recordsRead: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "records_read_total",
			Help:      "Records read from the store by collection",
		}, []string{"collection"}),
	}
	reg.MustRegister(pr.buildDuration, pr.buildOutcome, pr.lastSuccess, pr.stageDuration, pr.pages, pr.recordsRead)
	return pr
}

// Registry returns the registry holding the recorder's metrics.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.reg
}

func (p *PrometheusRecorder) ObserveBuild(d time.Duration, success bool) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
	outcome := "failed"
	if success {
		outcome = "success"
		p.lastSuccess.SetToCurrentTime()
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveStage(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddPages(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.pages.Add(float64(n))
}

func (p *PrometheusRecorder) IncRecordsRead(collection string, n int) {
	if p == nil || n < 0 {
		return
	}
	p.recordsRead.WithLabelValues(collection).Add(float64(n))
}

// WriteTextfile writes every metric of the registry to path in the text
// exposition format. The file is replaced atomically.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.reg)
}
