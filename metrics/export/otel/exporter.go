package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// MetricsSource is satisfied by *tokenguard.Manager.
type MetricsSource interface {
	MetricsSnapshot() tokenguard.MetricsSnapshot
	AuditDropped() uint64
	AuditDroppedByType() map[string]uint64
	Report(ctx context.Context) (tokenguard.SecuritySnapshot, error)
}

type counterInstrument struct {
	id  tokenguard.MetricID
	ins metric.Int64ObservableCounter
}

// histogramInstruments mirror one latency histogram. Instrument names carry
// the bucket bound because observable gauges have no bucket layout.
type histogramInstruments struct {
	id      tokenguard.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

type gaugeInstrument struct {
	def internaldefs.GaugeDef
	ins metric.Float64ObservableGauge
}

// OTelExporter observes a MetricsSource on every collection: the manager
// counters, the verify latency buckets, audit drops and the security report.
// Close unregisters the callback.
type OTelExporter struct {
	source       MetricsSource
	registration metric.Registration

	counters     []counterInstrument
	histograms   []histogramInstruments
	gauges       []gaugeInstrument
	auditDropped metric.Int64ObservableCounter
	droppedType  metric.Int64ObservableCounter
}

// NewOTelExporter registers the manager's metrics on meter.
func NewOTelExporter(meter metric.Meter, m *tokenguard.Manager) (*OTelExporter, error) {
	if m == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, m)
}

func NewOTelExporterFromSource(meter metric.Meter, source MetricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, counterInstrument{id: def.ID, ins: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := histogramInstruments{id: def.ID}
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			name := def.Name + "_bucket_le_" + suffix
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
			if err != nil {
				return nil, fmt.Errorf("histogram bucket %s: %w", name, err)
			}
			h.buckets[i] = ins
			observables = append(observables, ins)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Histogram sample count."))
		if err != nil {
			return nil, fmt.Errorf("histogram count %s: %w", def.Name, err)
		}
		h.count = count
		observables = append(observables, count)
		e.histograms = append(e.histograms, h)
	}

	for _, def := range internaldefs.GaugeDefs {
		ins, err := meter.Float64ObservableGauge(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("gauge %s: %w", def.Name, err)
		}
		e.gauges = append(e.gauges, gaugeInstrument{def: def, ins: ins})
		observables = append(observables, ins)
	}

	var err error
	e.auditDropped, err = meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription("Audit events that never reached the sink."))
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	e.droppedType, err = meter.Int64ObservableCounter(internaldefs.AuditDroppedByTypeName,
		metric.WithDescription("Audit events that never reached the sink, by event type."))
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", internaldefs.AuditDroppedByTypeName, err)
	}
	observables = append(observables, e.auditDropped, e.droppedType)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

// observe reads every source once per collection. A failed report leaves the
// security gauges unobserved for that collection.
func (e *OTelExporter) observe(ctx context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		o.ObserveInt64(c.ins, int64(snapshot.Counters[c.id]))
	}
	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[h.id]))
		for i := range cumulative {
			o.ObserveInt64(h.buckets[i], int64(cumulative[i]))
		}
		o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}

	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	drops := e.source.AuditDroppedByType()
	for _, eventType := range internaldefs.SortedTypes(drops) {
		o.ObserveInt64(e.droppedType, int64(drops[eventType]),
			metric.WithAttributes(attribute.String(internaldefs.EventTypeLabel, eventType)))
	}

	report, err := e.source.Report(ctx)
	if err != nil {
		return nil
	}
	for _, g := range e.gauges {
		o.ObserveFloat64(g.ins, g.def.Value(report))
	}
	return nil
}

func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
