package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker writes a single updating status line for a known number of items.
type ProgressTracker struct {
	writer         io.Writer
	label          string
	unit           string
	total          int
	current        int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker reports on w every reportInterval items out of total.
// Items are counted as files being ingested; see SetLabel.
func NewProgressTracker(w io.Writer, total, reportInterval int) *ProgressTracker {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressTracker{
		writer:         w,
		label:          "Ingesting",
		unit:           "files",
		total:          total,
		reportInterval: reportInterval,
	}
}

// SetLabel changes the status line prefix and the item unit.
func (p *ProgressTracker) SetLabel(label, unit string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.label = label
	p.unit = unit
}

func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startTime = time.Now()
	p.started = true
	p.current = 0
	p.lastReported = 0
}

// Increment records delta more completed items, capped at the total.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.current = min(p.current+delta, p.total)
	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// Finish reports the total as done and ends the status line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.current = p.total
	p.report()
	fmt.Fprintln(p.writer)
	p.started = false
}

// Elapsed returns the time since Start, or zero if not started.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startTime.IsZero() {
		return 0
	}
	return time.Since(p.startTime)
}

// report must be called with p.mu held.
func (p *ProgressTracker) report() {
	pct := 100.0
	if p.total > 0 {
		pct = float64(p.current) / float64(p.total) * 100.0
	}
	rate := 0.0
	if secs := time.Since(p.startTime).Seconds(); secs > 0 {
		rate = float64(p.current) / secs
	}
	fmt.Fprintf(p.writer, "\r%s: %d/%d %s (%.1f%%) - %.1f %s/s",
		p.label, p.current, p.total, p.unit, pct, rate, p.unit)
}
