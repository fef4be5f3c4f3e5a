// Package metrics holds the Prometheus collectors shared by the stream
// client and the development stream server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "askstream"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	framesDecoded  *prometheus.CounterVec
	malformed      prometheus.Counter
	residualBytes  prometheus.Counter
	turns          *prometheus.CounterVec
	framesSent     *prometheus.CounterVec
	streamsServed  *prometheus.CounterVec
	storageFailure *prometheus.CounterVec
}

// New creates the collectors and registers them with reg when reg is non-nil
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		framesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_decoded_total",
			Help:      "Protocol frames decoded by the client, by frame type.",
		}, []string{"type"}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_malformed_total",
			Help:      "data: lines whose payload could not be parsed.",
		}),
		residualBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "residual_bytes_dropped_total",
			Help:      "Bytes of unterminated trailing lines discarded at end of stream.",
		}),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Chat turns finished by the client, by outcome.",
		}, []string{"outcome"}),
		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Protocol frames written by the stream server, by frame type.",
		}, []string{"type"}),
		streamsServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_served_total",
			Help:      "Stream requests handled by the server, by result.",
		}, []string{"result"}),
		storageFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_storage_failures_total",
			Help:      "Continuity store operations that failed and were ignored.",
		}, []string{"op"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.framesDecoded,
			m.malformed,
			m.residualBytes,
			m.turns,
			m.framesSent,
			m.streamsServed,
			m.storageFailure,
		)
	}
	return m
}

// FrameDecoded counts a classified frame
func (m *Metrics) FrameDecoded(frameType string) {
	if m == nil {
		return
	}
	m.framesDecoded.WithLabelValues(frameType).Inc()
}

// FrameMalformed counts a dropped frame
func (m *Metrics) FrameMalformed() {
	if m == nil {
		return
	}
	m.malformed.Inc()
}

// ResidualDropped counts discarded trailing bytes
func (m *Metrics) ResidualDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.residualBytes.Add(float64(n))
}

// TurnFinished counts a finished turn
func (m *Metrics) TurnFinished(outcome string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(outcome).Inc()
}

// FrameSent counts a frame written by the server
func (m *Metrics) FrameSent(frameType string) {
	if m == nil {
		return
	}
	m.framesSent.WithLabelValues(frameType).Inc()
}

// StreamServed counts a handled stream request
func (m *Metrics) StreamServed(result string) {
	if m == nil {
		return
	}
	m.streamsServed.WithLabelValues(result).Inc()
}

// StorageFailed counts an ignored continuity store failure
func (m *Metrics) StorageFailed(op string) {
	if m == nil {
		return
	}
	m.storageFailure.WithLabelValues(op).Inc()
}
