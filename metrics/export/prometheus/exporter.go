package prometheus

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/metrics/export/internaldefs"
)

// MetricsSource is satisfied by *tokenguard.Manager.
type MetricsSource interface {
	MetricsSnapshot() tokenguard.MetricsSnapshot
	AuditDropped() uint64
	AuditDroppedByType() map[string]uint64
	Report(ctx context.Context) (tokenguard.SecuritySnapshot, error)
}

// PrometheusExporter renders manager counters, the verify latency histogram
// and the security report in Prometheus text exposition format.
type PrometheusExporter struct {
	source MetricsSource
}

// NewPrometheusExporter reads from m.
func NewPrometheusExporter(m *tokenguard.Manager) *PrometheusExporter {
	return &PrometheusExporter{source: m}
}

func NewPrometheusExporterFromSource(source MetricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves RenderContext with the request context, so a slow registry
// scan is abandoned with the scrape.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.RenderContext(r.Context())))
	})
}

// Render is RenderContext with a background context.
func (p *PrometheusExporter) Render() string {
	return p.RenderContext(context.Background())
}

// RenderContext returns the exposition text. Counters and the histogram are
// written while metrics are enabled, security gauges whenever Report
// succeeds. With nothing to write the result is "".
func (p *PrometheusExporter) RenderContext(ctx context.Context) string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	report, reportErr := p.source.Report(ctx)

	counters := len(snapshot.Counters) > 0 || len(snapshot.Histograms) > 0 || dropped > 0
	if !counters && reportErr != nil {
		return ""
	}

	var b strings.Builder
	b.Grow(8192)

	if counters {
		for _, def := range internaldefs.CounterDefs {
			writeSample(&b, def.Name, def.Help, "counter", strconv.FormatUint(snapshot.Counters[def.ID], 10))
		}
		for _, def := range internaldefs.HistogramDefs {
			cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
			writeHistogram(&b, def.Name, def.Help, cumulative)
		}
		writeSample(&b, internaldefs.AuditDroppedName, "Audit events that never reached the sink.", "counter", strconv.FormatUint(dropped, 10))
		writeDropsByType(&b, p.source.AuditDroppedByType())
	}

	if reportErr == nil {
		for _, def := range internaldefs.GaugeDefs {
			writeSample(&b, def.Name, def.Help, "gauge", strconv.FormatFloat(def.Value(report), 'g', -1, 64))
		}
	}

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteString("\n# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeSample(b *strings.Builder, name, help, kind, value string) {
	writeHeader(b, name, help, kind)
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(value)
	b.WriteByte('\n')
}

// writeDropsByType writes one labelled sample per event type. Nothing is
// written before the first drop.
func writeDropsByType(b *strings.Builder, drops map[string]uint64) {
	if len(drops) == 0 {
		return
	}
	writeHeader(b, internaldefs.AuditDroppedByTypeName, "Audit events that never reached the sink, by event type.", "counter")
	for _, eventType := range internaldefs.SortedTypes(drops) {
		b.WriteString(internaldefs.AuditDroppedByTypeName)
		b.WriteByte('{')
		b.WriteString(internaldefs.EventTypeLabel)
		b.WriteString("=\"")
		b.WriteString(escapeLabel(eventType))
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatUint(drops[eventType], 10))
		b.WriteByte('\n')
	}
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	writeHeader(b, name, help, "histogram")

	for i, le := range internaldefs.HistogramBounds {
		b.WriteString(name)
		b.WriteString("_bucket{le=\"")
		b.WriteString(le)
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatUint(cumulative[i], 10))
		b.WriteByte('\n')
	}

	b.WriteString(name)
	b.WriteString("_count ")
	b.WriteString(strconv.FormatUint(cumulative[len(cumulative)-1], 10))
	b.WriteByte('\n')

	// snapshots carry no sum
	b.WriteString(name)
	b.WriteString("_sum 0\n")
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	return strings.ReplaceAll(help, "\n", "\\n")
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, "\\", "\\\\")
	v = strings.ReplaceAll(v, "\"", "\\\"")
	return strings.ReplaceAll(v, "\n", "\\n")
}
