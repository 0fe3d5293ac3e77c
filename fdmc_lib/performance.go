package fdmc

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jwaldner/fdmc/internal/logger"
)

// slowRun is the duration above which a run is counted as slow
const slowRun = 5 * time.Second

// EngineStats is the timing summary of one engine
type EngineStats struct {
	Runs     int64
	Total    time.Duration
	Slowest  time.Duration
	SlowRuns int64
}

// Average returns the mean run duration
func (s EngineStats) Average() time.Duration {
	if s.Runs == 0 {
		return 0
	}
	return time.Duration(int64(s.Total) / s.Runs)
}

// PerformanceWrapper accumulates run timings per engine
type PerformanceWrapper struct {
	mu    sync.Mutex
	stats map[string]*EngineStats
}

// NewPerformanceWrapper creates an empty recorder
func NewPerformanceWrapper() *PerformanceWrapper {
	return &PerformanceWrapper{stats: make(map[string]*EngineStats)}
}

// Record adds one run of engine
func (pw *PerformanceWrapper) Record(engine string, duration time.Duration) {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	s, ok := pw.stats[engine]
	if !ok {
		s = &EngineStats{}
		pw.stats[engine] = s
	}
	s.Runs++
	s.Total += duration
	if duration > s.Slowest {
		s.Slowest = duration
	}
	if duration > slowRun {
		s.SlowRuns++
		logger.Debug.Printf("⚠️  SLOW RUN: %s took %v", engine, duration)
	}
}

// Stats returns a snapshot of one engine's timings
func (pw *PerformanceWrapper) Stats(engine string) EngineStats {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	if s, ok := pw.stats[engine]; ok {
		return *s
	}
	return EngineStats{}
}

// GetPerformanceStats returns the formatted report of every engine
func (pw *PerformanceWrapper) GetPerformanceStats() string {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	names := make([]string, 0, len(pw.stats))
	for name := range pw.stats {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("\n📊 Pricing Engine Performance Stats\n")
	b.WriteString("==================================\n")
	for _, name := range names {
		s := pw.stats[name]
		fmt.Fprintf(&b, "%-11s runs: %d  avg: %v  total: %v  slowest: %v  slow: %d (>%v)\n",
			name, s.Runs, s.Average(), s.Total, s.Slowest, s.SlowRuns, slowRun)
	}
	return b.String()
}

// Close prints the final performance report
func (pw *PerformanceWrapper) Close() {
	pw.mu.Lock()
	empty := len(pw.stats) == 0
	pw.mu.Unlock()
	if !empty {
		logger.Info.Printf("📊 Engine Performance Report:%s", pw.GetPerformanceStats())
	}
}
