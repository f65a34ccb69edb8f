package sink

import "log"

// LogSink is the simplest possible Sink: it writes every published sample
// to the standard logger and never returns an error, matching the "errors
// are logged to stderr, never crash your app" posture the SDK's own
// transport failures follow. It is meant for local development and for
// tests that need a Sink without standing up a real backend.
type LogSink struct {
	Logger *log.Logger
}

func (s *LogSink) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

func (s *LogSink) PublishCounter(c CounterSample) error {
	s.logger().Printf("counter %s%s [%s] = %d", c.Name, c.Desc, c.PublishKind, c.Value)
	return nil
}

func (s *LogSink) PublishGauge(g GaugeSample) error {
	s.logger().Printf("gauge %s%s = %d", g.Name, g.Desc, g.Value)
	return nil
}

func (s *LogSink) PublishHistogram(h HistogramSample) error {
	s.logger().Printf("histogram %s%s avg=%d p50=%d p95=%d p99=%d", h.Name, h.Desc, h.Average, h.P50, h.P95, h.P99)
	return nil
}
