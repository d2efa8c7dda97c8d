package profiler

import (
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-present/common"
)

// Stats accumulates the timings recorded for one stage.
type Stats struct {
	Count int
	Last  time.Duration
	Total time.Duration
	Max   time.Duration
}

// Mean returns the average duration, or zero when nothing was recorded.
func (s Stats) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Profiler records how long presentation stages take to build and tracks event loop rate and
// memory statistics. Outputs stats to the engine logger at a configurable interval.
type Profiler struct {
	mu     sync.Mutex
	stages map[string]*Stats
	order  []string
	logger *slog.Logger
	now    func() time.Time

	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		stages:         make(map[string]*Stats),
		logger:         common.ComponentLogger("profiler"),
		now:            time.Now,
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
}

// Measure starts timing stage and returns the function that stops it:
//
//	defer p.Measure("swapchain")()
//
// A nil Profiler measures nothing, so callers need not check whether profiling is enabled.
//
// Parameters:
//   - stage: the stage name
//
// Returns:
//   - func(): stops the measurement and records it
func (p *Profiler) Measure(stage string) func() {
	if p == nil {
		return func() {}
	}
	start := p.now()
	return func() {
		p.Record(stage, p.now().Sub(start))
	}
}

// Record adds one duration to stage.
//
// Parameters:
//   - stage: the stage name
//   - d: the duration
func (p *Profiler) Record(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.mu.Lock()
	s, ok := p.stages[stage]
	if !ok {
		s = &Stats{}
		p.stages[stage] = s
		p.order = append(p.order, stage)
	}
	s.Count++
	s.Last = d
	s.Total += d
	s.Max = max(s.Max, d)
	p.mu.Unlock()

	p.logger.Debug("stage timing", "stage", stage, "duration", d)
}

// Stats returns the timings recorded for stage.
//
// Parameters:
//   - stage: the stage name
//
// Returns:
//   - Stats: the accumulated timings
//   - bool: false if the stage was never recorded
func (p *Profiler) Stats(stage string) (Stats, bool) {
	if p == nil {
		return Stats{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stages[stage]
	if !ok {
		return Stats{}, false
	}
	return *s, true
}

// Stages returns every recorded stage name in first-recorded order.
func (p *Profiler) Stages() []string {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.order)
}

// Report logs one info line per recorded stage.
func (p *Profiler) Report() {
	if p == nil {
		return
	}
	for _, stage := range p.Stages() {
		s, _ := p.Stats(stage)
		p.logger.Info("stage summary",
			"stage", stage,
			"count", s.Count,
			"last", s.Last,
			"mean", s.Mean(),
			"max", s.Max,
			"total", s.Total,
		)
	}
}

// Tick should be called once per event loop iteration to track loop rate.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: loop rate, heap usage, allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	if p == nil {
		return false
	}
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	rate := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.logger.Info("loop stats",
		"rate", rate,
		"heapMB", allocMB,
		"allocRateMBps", allocRateMB,
		"gc", gcCount,
		"lastPauseUs", lastPauseUs,
		"maxPauseUs", maxPauseUs,
		"sysMB", sysMB,
	)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
