package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.FrameDecoded("text")
	m.FrameDecoded("text")
	m.FrameDecoded("done")
	m.FrameMalformed()
	m.ResidualDropped(7)
	m.ResidualDropped(0)
	m.TurnFinished("completed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesDecoded.WithLabelValues("text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesDecoded.WithLabelValues("done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.malformed))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.residualBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turns.WithLabelValues("completed")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FrameDecoded("text")
		m.FrameMalformed()
		m.ResidualDropped(3)
		m.TurnFinished("failed")
		m.FrameSent("done")
		m.StreamServed("ok")
		m.StorageFailed("set")
	})
}

func TestMetrics_UnregisteredUsable(t *testing.T) {
	m := New(nil)
	m.StorageFailed("get")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storageFailure.WithLabelValues("get")))
}
