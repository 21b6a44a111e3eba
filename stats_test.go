package cxlmemctrl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHistogramMean(t *testing.T) {
	h := newHistogram(50)
	h.add(10)
	h.add(20)
	h.add(30)

	require.InDelta(t, 20.0, h.mean(), 1e-9)
}

func TestHistogramMeanOfEmptyIsZero(t *testing.T) {
	h := newHistogram(50)
	require.Equal(t, 0.0, h.mean())
}

func TestCalculateAvgLatencyCombinesReadAndWrite(t *testing.T) {
	s := newStats()
	s.recordLatency(10, true)
	s.recordLatency(30, true)
	s.recordLatency(100, false)

	s.calculateAvgLatency()

	require.InDelta(t, 20.0, s.AvgReadLatency, 1e-9)
	require.InDelta(t, 100.0, s.AvgWriteLatency, 1e-9)
	require.InDelta(t, 140.0/3.0, s.AvgLatency, 1e-9)
}

func TestAvgBWSysZeroWhenNoElapsedTime(t *testing.T) {
	s := newStats()
	s.TotalReadBytes = 1024
	require.Equal(t, 0.0, s.AvgReadBWSys())
}
