package profiler

import (
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// Stage names one step of the per-frame animation pipeline.
type Stage string

const (
	// StageAdvance is the playback cursor advance.
	StageAdvance Stage = "advance"

	// StageSkeleton is the skeleton pose and matrix update.
	StageSkeleton Stage = "skeleton"

	// StageSkin is the palette computation and encoding.
	StageSkin Stage = "skin"

	// StageUpload is the staging of palette writes for the GPU.
	StageUpload Stage = "upload"
)

// StageStats accumulates the timings of one stage since the last report.
type StageStats struct {
	// Count is the number of recorded samples.
	Count int

	// Total is the sum of all recorded durations.
	Total time.Duration

	// Max is the longest recorded duration.
	Max time.Duration
}

// Average returns the mean recorded duration, or 0 without samples.
func (s StageStats) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Profiler tracks frame rate, per-stage timings and memory statistics.
// Outputs stats to the logger at a configurable interval. A Profiler may be shared by
// several model instances.
type Profiler struct {
	mu *sync.Mutex

	logger *slog.Logger
	now    func() time.Time

	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	stages map[Stage]*StageStats
}

// NewProfiler creates a new Profiler and applies the given options.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: variadic list of ProfilerBuilderOption functions to configure the Profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		mu:             &sync.Mutex{},
		logger:         slog.Default(),
		now:            time.Now,
		updateInterval: time.Second,
		stages:         make(map[Stage]*StageStats),
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Begin starts timing a stage and returns the function that stops it.
//
//	defer p.Begin(profiler.StageSkin)()
//
// Parameters:
//   - stage: the stage being timed
//
// Returns:
//   - func(): records the elapsed time when called
func (p *Profiler) Begin(stage Stage) func() {
	start := p.now()
	return func() {
		p.Record(stage, p.now().Sub(start))
	}
}

// Record adds one duration sample to a stage.
//
// Parameters:
//   - stage: the stage the sample belongs to
//   - d: the measured duration
func (p *Profiler) Record(stage Stage, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stages[stage]
	if !ok {
		s = &StageStats{}
		p.stages[stage] = s
	}
	s.Count++
	s.Total += d
	if d > s.Max {
		s.Max = d
	}
}

// Stats returns the accumulated timings of a stage since the last report.
//
// Parameters:
//   - stage: the stage to query
//
// Returns:
//   - StageStats: a copy of the stage statistics
func (p *Profiler) Stats(stage Stage) StageStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.stages[stage]; ok {
		return *s
	}
	return StageStats{}
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed, then clears the stage
// timings. Statistics include FPS, per-stage average and max, heap usage, allocation rate,
// GC count and pause times.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocRateMB := float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

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
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	attrs := []any{
		slog.Float64("fps", fps),
		slog.Float64("heap_mb", allocMB),
		slog.Float64("alloc_rate_mb_s", allocRateMB),
		slog.Uint64("gc", uint64(gcCount)),
		slog.Uint64("gc_last_us", lastPauseUs),
		slog.Uint64("gc_max_us", maxPauseUs),
		slog.Float64("sys_mb", sysMB),
	}
	for stage, s := range p.stages {
		attrs = append(attrs, slog.Group(string(stage),
			slog.Int("count", s.Count),
			slog.Duration("avg", s.Average()),
			slog.Duration("max", s.Max),
		))
	}
	p.logger.Info("profiler", attrs...)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.stages = make(map[Stage]*StageStats)
	return true
}
