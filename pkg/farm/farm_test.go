package farm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nicktill/gometrics/pkg/metrics"
	"github.com/nicktill/gometrics/pkg/sink"
)

func TestFarmGatherJSONShape(t *testing.T) {
	f := New()

	g := NewGroup()
	cIdx := g.RegisterCounter("req_total", "requests", "", metrics.PublishAsCounter)
	gIdx := g.RegisterGauge("active", " connections", "")
	hIdx := g.RegisterHistogram("latency", " usecs", "", nil)

	f.Register(g)

	g.Counter(cIdx).Increment(42)
	g.Gauge(gIdx).Update(3)
	g.Histogram(hIdx).Observe(500)
	g.Histogram(hIdx).Observe(10000)

	body, err := f.Gather()
	require.NoError(t, err)

	var doc map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &doc))

	require.Contains(t, doc, "Counters")
	require.Contains(t, doc, "Gauges")
	require.Contains(t, doc, "Histograms percentiles (usecs) avg/50/95/99")

	require.Equal(t, float64(42), doc["Counters"]["req_totalrequests"])
	require.Equal(t, float64(3), doc["Gauges"]["active connections"])
	require.Contains(t, doc["Histograms percentiles (usecs) avg/50/95/99"], "latency usecs")
}

func TestFarmGatherIsIdempotentJSONWithNoIntervalWrites(t *testing.T) {
	f := New()
	g := NewGroup()
	cIdx := g.RegisterCounter("c", "", "", metrics.PublishAsCounter)
	f.Register(g)

	g.Counter(cIdx).Increment(10)

	first, err := f.Gather()
	require.NoError(t, err)

	second, err := f.Gather()
	require.NoError(t, err)

	require.Equal(t, first, second, "two gathers with no intervening writes must produce byte-equal JSON")
}

func TestSentinelNameStillAppearsInJSONButNotPublished(t *testing.T) {
	f := New()
	g := NewGroup()
	idx := g.RegisterCounter("none", "a hidden counter", "", metrics.PublishAsCounter)
	f.Register(g)

	g.Counter(idx).Increment(1)

	body, err := f.Gather()
	require.NoError(t, err)
	require.Contains(t, body, "none"+"a hidden counter")

	spy := &spySink{}
	require.NoError(t, f.Publish(spy))
	require.Zero(t, spy.counters, "sentinel-named descriptor must not be forwarded to the sink")
}

func TestPublishForwardsNonSentinelDescriptors(t *testing.T) {
	f := New()
	g := NewGroup()
	idx := g.RegisterCounter("visible", " counter", "", metrics.PublishAsCounter)
	f.Register(g)

	g.Counter(idx).Increment(5)
	_, err := f.Gather()
	require.NoError(t, err)

	spy := &spySink{}
	require.NoError(t, f.Publish(spy))
	require.Equal(t, 1, spy.counters)
}

type spySink struct {
	counters, gauges, histograms int
}

func (s *spySink) PublishCounter(sink.CounterSample) error     { s.counters++; return nil }
func (s *spySink) PublishGauge(sink.GaugeSample) error         { s.gauges++; return nil }
func (s *spySink) PublishHistogram(sink.HistogramSample) error { s.histograms++; return nil }
