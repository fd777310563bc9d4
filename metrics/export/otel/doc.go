// Package otel exposes tokenguard metrics through an OpenTelemetry Meter.
//
// [NewOTelExporter] registers one observable counter per metric and one
// observable gauge per histogram bucket. A single callback reads
// [tokenguard.Manager.MetricsSnapshot] on each collection. The caller owns
// the MeterProvider.
package otel
