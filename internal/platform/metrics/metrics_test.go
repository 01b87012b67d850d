package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	// Components treat metrics as optional; every method must tolerate nil.
	assert.NotPanics(t, func() {
		m.ObserveUpload("succeeded", 1024, 0.5)
		m.IncResolution("resolved")
		m.IncPlaybackRetry()
		m.IncPlaybackStall()
		m.IncAccessDenied("private")
	})
}

func TestMetricsHandler(t *testing.T) {
	m := New()
	require.NotNil(t, m.Handler())

	m.ObserveUpload("succeeded", 1024, 0.5)
	m.IncResolution("resolved")
}
