// Package prometheus renders tokenguard metrics in Prometheus text exposition
// format.
//
// Counters are named tokenguard_*_total and the single histogram is
// tokenguard_verify_latency_seconds. Nothing is registered globally; callers
// mount [PrometheusExporter.Handler] themselves.
package prometheus
