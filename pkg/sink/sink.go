// Package sink declares the external collaborator the core forwards
// current aggregated values to. It is deliberately thin: the concrete
// adapter (a Prometheus registry, a time-series database client, whatever
// a caller wires up) lives outside this module entirely, the same way the
// teacher's pkg/sdk/transport.Transport interface is the only thing the
// SDK knows about its HTTP backend.
package sink

import "github.com/nicktill/gometrics/pkg/metrics"

// CounterSample is what a ReportCounter hands to a Sink on Publish.
type CounterSample struct {
	Name, Desc, SubType string
	PublishKind         metrics.PublishKind
	Value               int64
}

// GaugeSample is what a ReportGauge hands to a Sink on Publish.
type GaugeSample struct {
	Name, Desc, SubType string
	Value               int64
}

// HistogramSample is what a ReportHistogram hands to a Sink on Publish.
// Only the scalars a time-series backend would track as separate series
// are included; the full bucket breakdown is a JSON-dump-only concern.
type HistogramSample struct {
	Name, Desc, SubType string
	Average, P50, P95, P99 int64
}

// Sink is the pluggable external collaborator. A publish failure is the
// sink's concern: it is logged there and never propagates back into
// aggregation (§7 "Sink publish failure").
type Sink interface {
	PublishCounter(CounterSample) error
	PublishGauge(GaugeSample) error
	PublishHistogram(HistogramSample) error
}
