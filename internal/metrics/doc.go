// Package metrics provides the observability hooks for cmsbuild runs.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	engine := picture.NewEngine(cfg, store, cache)           // NoopRecorder
//	engine = engine.WithRecorder(metrics.NewPrometheusRecorder(reg))
//
// There is no metrics server. A build started with --metrics-file writes the
// registry in the Prometheus text format once the run ends, which is the
// shape expected by the node_exporter textfile collector.
package metrics
