package input

import (
	"math"
	"sync"
	"time"

	"lifelog/pulse-agent/internal/models"
	"lifelog/pulse-agent/internal/platform"

	"go.uber.org/zap"
)

// speedWindow is the trailing interval over which typing speed is
// estimated.
const speedWindow = 60 * time.Second

// avgWordLength converts characters-per-minute to words-per-minute.
const avgWordLength = 5

// Aggregator folds raw input events into the counters of the current
// aggregation window. Recording is O(1) and never fails. Snapshots are
// guarded by a mutex because the status server and tray read them from
// other goroutines.
type Aggregator struct {
	mu sync.Mutex

	windowStart time.Time

	keystrokes int
	words      int

	leftClicks   int
	rightClicks  int
	middleClicks int

	pointerDistance float64
	lastX, lastY    float64
	pointerSeeded   bool

	scrollMagnitude float64

	shiftCount int
	ctrlCount  int
	altCount   int
	metaCount  int

	// keystroke timestamps retained for the speed estimate, pruned to
	// the trailing window on every append
	keyTimes []time.Time

	logger *zap.Logger
}

// NewAggregator creates an aggregator with an empty window starting now.
func NewAggregator(logger *zap.Logger) *Aggregator {
	return &Aggregator{
		windowStart: time.Now(),
		logger:      logger,
	}
}

// RecordEvent folds one raw event into the current window.
func (a *Aggregator) RecordEvent(ev platform.InputEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch ev.Type {
	case platform.EventKeyDown:
		a.keystrokes++
		if ev.WordBoundary {
			a.words++
		}
		if ev.Shift {
			a.shiftCount++
		}
		if ev.Ctrl {
			a.ctrlCount++
		}
		if ev.Alt {
			a.altCount++
		}
		if ev.Meta {
			a.metaCount++
		}
		a.appendKeyTime(ev.Timestamp)

	case platform.EventMouseDown:
		switch ev.Button {
		case platform.ButtonLeft:
			a.leftClicks++
		case platform.ButtonRight:
			a.rightClicks++
		case platform.ButtonMiddle:
			a.middleClicks++
		}

	case platform.EventMouseMove:
		if a.pointerSeeded {
			dx := ev.X - a.lastX
			dy := ev.Y - a.lastY
			a.pointerDistance += math.Hypot(dx, dy)
		}
		a.lastX, a.lastY = ev.X, ev.Y
		a.pointerSeeded = true

	case platform.EventWheel:
		a.scrollMagnitude += math.Abs(ev.Rotation)
	}
}

func (a *Aggregator) appendKeyTime(ts time.Time) {
	a.keyTimes = append(a.keyTimes, ts)

	// Drop timestamps that fell out of the trailing window so the slice
	// stays bounded regardless of window length.
	cutoff := ts.Add(-speedWindow)
	start := 0
	for start < len(a.keyTimes) && a.keyTimes[start].Before(cutoff) {
		start++
	}
	if start > 0 {
		a.keyTimes = append(a.keyTimes[:0], a.keyTimes[start:]...)
	}
}

// typingSpeedLocked computes the WPM estimate from the retained
// keystroke timestamps. Fewer than two samples yields 0.
func (a *Aggregator) typingSpeedLocked() float64 {
	if len(a.keyTimes) < 2 {
		return 0
	}

	newest := a.keyTimes[len(a.keyTimes)-1]
	cutoff := newest.Add(-speedWindow)

	var inWindow []time.Time
	for _, ts := range a.keyTimes {
		if !ts.Before(cutoff) {
			inWindow = append(inWindow, ts)
		}
	}
	if len(inWindow) < 2 {
		return 0
	}

	elapsedMs := float64(inWindow[len(inWindow)-1].Sub(inWindow[0]).Milliseconds())
	if elapsedMs <= 0 {
		return 0
	}

	cpm := float64(len(inWindow)) / elapsedMs * 60000
	return cpm / avgWordLength
}

// Snapshot returns the current window's stats without resetting. Used for
// status polling.
func (a *Aggregator) Snapshot() models.InputStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked(time.Now())
}

// SnapshotAndReset atomically closes the current window and begins a new
// one. Events recorded after the call land in the new window.
func (a *Aggregator) SnapshotAndReset() models.InputStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	stats := a.snapshotLocked(now)

	a.windowStart = now
	a.keystrokes = 0
	a.words = 0
	a.leftClicks = 0
	a.rightClicks = 0
	a.middleClicks = 0
	a.pointerDistance = 0
	a.scrollMagnitude = 0
	a.shiftCount = 0
	a.ctrlCount = 0
	a.altCount = 0
	a.metaCount = 0
	a.keyTimes = a.keyTimes[:0]
	// The pointer seed survives the reset so the next window does not
	// count a spurious jump from origin.

	return stats
}

func (a *Aggregator) snapshotLocked(now time.Time) models.InputStats {
	end := now
	if !end.After(a.windowStart) {
		end = a.windowStart.Add(time.Millisecond)
	}

	return models.InputStats{
		Keystrokes:      a.keystrokes,
		Words:           a.words,
		TypingSpeedWPM:  a.typingSpeedLocked(),
		LeftClicks:      a.leftClicks,
		RightClicks:     a.rightClicks,
		MiddleClicks:    a.middleClicks,
		PointerDistance: a.pointerDistance,
		ScrollMagnitude: a.scrollMagnitude,
		ShiftCount:      a.shiftCount,
		CtrlCount:       a.ctrlCount,
		AltCount:        a.altCount,
		MetaCount:       a.metaCount,
		PeriodStartTime: a.windowStart,
		PeriodEndTime:   end,
		DurationSeconds: end.Sub(a.windowStart).Seconds(),
	}
}
