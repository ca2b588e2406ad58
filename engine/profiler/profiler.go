// Package profiler logs frame pacing, draw counts and Go runtime memory once per interval.
package profiler

import (
	"fmt"
	"log"
	"runtime"
	"time"
)

// Frame is what the engine reports about one presented frame.
type Frame struct {
	// CPUTime is the wall time spent recording and submitting the frame.
	CPUTime time.Duration
	// Meshes is the number of command slots the frame generated.
	Meshes int
	// Path names the command path the frame took.
	Path string
}

// Report summarizes one interval.
type Report struct {
	FPS         float64
	MeanFrameMs float64
	MaxFrameMs  float64
	MeanMeshes  float64
	Path        string
	Dropped     int

	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
}

// String formats the report as one log line.
func (r Report) String() string {
	return fmt.Sprintf("FPS: %.2f | Frame: %.2f ms (max %.2f) | Meshes: %.0f via %s | Dropped: %d | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		r.FPS, r.MeanFrameMs, r.MaxFrameMs, r.MeanMeshes, r.Path, r.Dropped,
		r.HeapMB, r.AllocRateMB, r.GCCount, r.LastPauseUs, r.MaxPauseUs, r.SysMB)
}

// Profiler accumulates presented and dropped frames and logs a Report at a fixed interval.
// It is not safe for concurrent use; the engine calls it from the render loop only.
type Profiler struct {
	updateInterval time.Duration
	lastTime       time.Time

	frameCount   int
	droppedCount int
	frameTime    time.Duration
	maxFrameTime time.Duration
	meshes       int
	path         string

	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	totalDropped uint64
	last         Report
}

// NewProfiler creates a profiler that reports every second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
}

// Dropped records a frame that was rejected instead of presented.
// Dropped frames do not count toward FPS.
func (p *Profiler) Dropped() {
	p.droppedCount++
	p.totalDropped++
}

// TotalDropped returns the number of frames dropped since the profiler was created.
func (p *Profiler) TotalDropped() uint64 {
	return p.totalDropped
}

// Last returns the most recently logged report, zero before the first interval ends.
func (p *Profiler) Last() Report {
	return p.last
}

// Tick records one presented frame and logs a report when the interval has elapsed.
//
// Parameters:
//   - f: the frame to record
//
// Returns:
//   - bool: true if a report was logged this tick
func (p *Profiler) Tick(f Frame) bool {
	p.frameCount++
	p.frameTime += f.CPUTime
	p.maxFrameTime = max(p.maxFrameTime, f.CPUTime)
	p.meshes += f.Meshes
	p.path = f.Path

	now := time.Now()
	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	p.last = p.report(elapsed)
	log.Printf("[Profiler] %s", p.last)

	p.frameCount, p.droppedCount, p.meshes = 0, 0, 0
	p.frameTime, p.maxFrameTime = 0, 0
	p.lastTime = now
	return true
}

// report builds the report of the interval ending now and advances the memory baselines.
func (p *Profiler) report(elapsed time.Duration) Report {
	n := float64(p.frameCount)
	r := Report{
		FPS:         n / elapsed.Seconds(),
		MeanFrameMs: float64(p.frameTime.Microseconds()) / 1000 / n,
		MaxFrameMs:  float64(p.maxFrameTime.Microseconds()) / 1000,
		MeanMeshes:  float64(p.meshes) / n,
		Path:        p.path,
		Dropped:     p.droppedCount,
	}

	runtime.ReadMemStats(&p.memStats)
	const mb = 1024 * 1024
	r.HeapMB = float64(p.memStats.Alloc) / mb
	r.SysMB = float64(p.memStats.Sys) / mb
	r.AllocRateMB = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / mb / elapsed.Seconds()
	r.GCCount = p.memStats.NumGC
	r.LastPauseUs, r.MaxPauseUs = p.gcPauses()

	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return r
}

// gcPauses returns the last and the longest GC pause since the previous report, in microseconds.
// PauseNs is a ring of the most recent 256 pauses.
func (p *Profiler) gcPauses() (last, longest uint64) {
	n := p.memStats.NumGC
	if n == 0 {
		return 0, 0
	}
	ring := uint32(len(p.memStats.PauseNs))
	last = p.memStats.PauseNs[(n-1)%ring] / 1000

	start := p.lastGCCount
	if n-start > ring {
		start = n - ring
	}
	for i := start; i < n; i++ {
		longest = max(longest, p.memStats.PauseNs[i%ring]/1000)
	}
	return last, longest
}
