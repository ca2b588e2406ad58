package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickLogsOncePerInterval(t *testing.T) {
	p := NewProfiler()
	p.updateInterval = time.Hour

	assert.False(t, p.Tick(Frame{CPUTime: time.Millisecond}))
	assert.Equal(t, 1, p.frameCount)

	p.lastTime = time.Now().Add(-2 * time.Hour)
	assert.True(t, p.Tick(Frame{CPUTime: time.Millisecond}))
	assert.Equal(t, 0, p.frameCount, "counters restart after logging")
	assert.Equal(t, time.Duration(0), p.frameTime)
}

func TestReportAveragesFrames(t *testing.T) {
	p := NewProfiler()
	p.updateInterval = time.Hour

	p.Tick(Frame{CPUTime: 2 * time.Millisecond, Meshes: 10, Path: "gpu"})
	p.lastTime = time.Now().Add(-2 * time.Hour)
	p.Tick(Frame{CPUTime: 6 * time.Millisecond, Meshes: 20, Path: "cpu indirect"})

	r := p.Last()
	assert.InDelta(t, 4.0, r.MeanFrameMs, 1e-9)
	assert.InDelta(t, 6.0, r.MaxFrameMs, 1e-9)
	assert.InDelta(t, 15.0, r.MeanMeshes, 1e-9)
	assert.Equal(t, "cpu indirect", r.Path, "the latest path is reported")
	assert.Contains(t, r.String(), "via cpu indirect")
}

func TestDroppedFramesResetPerIntervalButTotalKeeps(t *testing.T) {
	p := NewProfiler()
	p.Dropped()
	p.Dropped()
	assert.Equal(t, 2, p.droppedCount)

	p.lastTime = time.Now().Add(-2 * time.Second)
	assert.True(t, p.Tick(Frame{CPUTime: time.Millisecond}))
	assert.Equal(t, 2, p.Last().Dropped)
	assert.Equal(t, 0, p.droppedCount)
	assert.Equal(t, uint64(2), p.TotalDropped())
}
