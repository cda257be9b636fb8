package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	registry      *prom.Registry
	stageDuration *prom.HistogramVec
	buildDuration prom.Histogram
	stageResults  *prom.CounterVec
	buildOutcome  *prom.CounterVec
	derivatives   *prom.CounterVec
	items         *prom.CounterVec
	datasets      *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "cmsbuild",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "cmsbuild",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "cmsbuild",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "cmsbuild",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.derivatives = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "cmsbuild",
			Name:      "image_derivatives_total",
			Help:      "Image derivatives by format and whether they were generated or skipped",
		}, []string{"format", "result"})
		pr.items = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "cmsbuild",
			Name:      "content_items_total",
			Help:      "Content items built per collection by outcome",
		}, []string{"collection", "result"})
		pr.datasets = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "cmsbuild",
			Name:      "reduced_datasets_total",
			Help:      "Reducer datasets written per collection",
		}, []string{"collection"})
		reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome, pr.derivatives, pr.items, pr.datasets)
	})
	return pr
}

// Registry returns the registry the recorder's collectors live in.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.registry }

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncDerivative(format string, label DerivativeLabel) {
	if p == nil || p.derivatives == nil {
		return
	}
	p.derivatives.WithLabelValues(format, string(label)).Inc()
}

func (p *PrometheusRecorder) IncItem(collection string, result ResultLabel) {
	if p == nil || p.items == nil {
		return
	}
	p.items.WithLabelValues(collection, string(result)).Inc()
}

func (p *PrometheusRecorder) IncDataset(collection string) {
	if p == nil || p.datasets == nil {
		return
	}
	p.datasets.WithLabelValues(collection).Inc()
}

// WriteTextfile dumps the recorder's registry in the text exposition format,
// suitable for the node_exporter textfile collector.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.registry)
}
