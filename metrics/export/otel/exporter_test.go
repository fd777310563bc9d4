package otel

import (
	"context"
	"errors"
	"maps"
	"sync"
	"testing"

	"github.com/MrEthical07/tokenguard"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu        sync.RWMutex
	snapshot  tokenguard.MetricsSnapshot
	dropped   uint64
	byType    map[string]uint64
	report    tokenguard.SecuritySnapshot
	reportErr error
}

func (f *fakeSource) MetricsSnapshot() tokenguard.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := tokenguard.MetricsSnapshot{
		Counters:   make(map[tokenguard.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[tokenguard.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func (f *fakeSource) AuditDroppedByType() map[string]uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return maps.Clone(f.byType)
}

func (f *fakeSource) Report(context.Context) (tokenguard.SecuritySnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.report, f.reportErr
}

func newReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

// int64Value returns the single data point of the named instrument.
func int64Value(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				return data.DataPoints[0].Value
			case metricdata.Gauge[int64]:
				return data.DataPoints[0].Value
			default:
				t.Fatalf("unexpected data type %T for %s", m.Data, name)
			}
		}
	}
	t.Fatalf("metric %s not collected", name)
	return 0
}

// findMetric returns the named instrument, or false when it was not collected.
func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func float64Value(t *testing.T, rm metricdata.ResourceMetrics, name string) float64 {
	t.Helper()
	m, ok := findMetric(rm, name)
	if !ok {
		t.Fatalf("metric %s not collected", name)
	}
	gauge, ok := m.Data.(metricdata.Gauge[float64])
	if !ok || len(gauge.DataPoints) != 1 {
		t.Fatalf("unexpected data %T for %s", m.Data, name)
	}
	return gauge.DataPoints[0].Value
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	return rm
}

func TestExporterObservesSecurityReport(t *testing.T) {
	reader, provider := newReader()
	src := &fakeSource{
		report: tokenguard.SecuritySnapshot{
			ActiveTokens:           5,
			RevokedTokens:          2,
			RefreshSuccessRate:     "75.00",
			SuspiciousIncidents24h: 3,
			SecurityScore:          85,
		},
	}
	exp, err := NewOTelExporterFromSource(provider.Meter("tokenguard-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	rm := collect(t, reader)
	for name, want := range map[string]float64{
		"tokenguard_active_tokens":            5,
		"tokenguard_revoked_tokens":           2,
		"tokenguard_refresh_success_ratio":    0.75,
		"tokenguard_suspicious_incidents_24h": 3,
		"tokenguard_security_score":           85,
	} {
		if got := float64Value(t, rm, name); got != want {
			t.Fatalf("%s: expected %v, got %v", name, want, got)
		}
	}

	src.mu.Lock()
	src.reportErr = errors.New("registry down")
	src.mu.Unlock()

	rm = collect(t, reader)
	if m, ok := findMetric(rm, "tokenguard_security_score"); ok {
		if g, isGauge := m.Data.(metricdata.Gauge[float64]); isGauge && len(g.DataPoints) > 0 {
			t.Fatalf("a failed report must not be observed, got %+v", g.DataPoints)
		}
	}
}

func TestExporterObservesDropsByType(t *testing.T) {
	reader, provider := newReader()
	src := &fakeSource{
		dropped: 5,
		byType:  map[string]uint64{"verify_failure": 4, "refresh_rejected": 1},
	}
	exp, err := NewOTelExporterFromSource(provider.Meter("tokenguard-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	rm := collect(t, reader)
	m, ok := findMetric(rm, "tokenguard_audit_dropped_by_type_total")
	if !ok {
		t.Fatal("by-type drops not collected")
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", m.Data)
	}

	got := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("event_type"))
		got[v.AsString()] = dp.Value
	}
	if len(got) != 2 || got["verify_failure"] != 4 || got["refresh_rejected"] != 1 {
		t.Fatalf("unexpected by-type points %v", got)
	}
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("tokenguard-test")

	src := &fakeSource{
		snapshot: tokenguard.MetricsSnapshot{
			Counters: map[tokenguard.MetricID]uint64{
				tokenguard.MetricVerifySuccess: 3,
			},
			Histograms: map[tokenguard.MetricID][]uint64{
				tokenguard.MetricVerifyLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if got := int64Value(t, rm, "tokenguard_verify_success_total"); got != 3 {
		t.Fatalf("expected verify success 3, got %d", got)
	}
	if got := int64Value(t, rm, "tokenguard_verify_latency_seconds_bucket_le_0_025"); got != 3 {
		t.Fatalf("expected cumulative bucket 3, got %d", got)
	}
	if got := int64Value(t, rm, "tokenguard_verify_latency_seconds_count"); got != 8 {
		t.Fatalf("expected count 8, got %d", got)
	}
	if got := int64Value(t, rm, "tokenguard_audit_dropped_total"); got != 1 {
		t.Fatalf("expected audit dropped 1, got %d", got)
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newReader()
	meter := provider.Meter("tokenguard-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporter(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource for nil manager, got %v", err)
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("tokenguard-test")

	src := &fakeSource{
		snapshot: tokenguard.MetricsSnapshot{
			Counters: map[tokenguard.MetricID]uint64{
				tokenguard.MetricRefreshSuccess: 1,
			},
			Histograms: map[tokenguard.MetricID][]uint64{
				tokenguard.MetricVerifyLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[tokenguard.MetricRefreshSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
