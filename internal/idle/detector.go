package idle

import (
	"sync"
	"time"

	"lifelog/pulse-agent/internal/models"

	"go.uber.org/zap"
)

// State is the detector's two-valued state.
type State string

const (
	StateActive State = "active"
	StateIdle   State = "idle"
)

// Status is a read-only view of the detector.
type Status struct {
	IsIdle       bool
	IdleSince    time.Time
	LastActivity time.Time
	Threshold    time.Duration
}

// Detector is a two-state machine driven by the timestamp of the most
// recent input event. Transitions are the only externally observable
// change: OnIdleStart fires on Active→Idle, OnIdleEnd on Idle→Active
// with the completed period.
type Detector struct {
	mu sync.Mutex

	threshold    time.Duration
	lastActivity time.Time
	idle         bool
	idleSince    time.Time

	onIdleStart func(since time.Time)
	onIdleEnd   func(period models.IdlePeriod)

	logger *zap.Logger
}

// NewDetector creates an active detector with lastActivity set to now.
func NewDetector(threshold time.Duration, logger *zap.Logger) *Detector {
	return &Detector{
		threshold:    threshold,
		lastActivity: time.Now(),
		logger:       logger,
	}
}

// OnIdleStart registers the Active→Idle transition callback.
func (d *Detector) OnIdleStart(fn func(since time.Time)) {
	d.mu.Lock()
	d.onIdleStart = fn
	d.mu.Unlock()
}

// OnIdleEnd registers the Idle→Active transition callback.
func (d *Detector) OnIdleEnd(fn func(period models.IdlePeriod)) {
	d.mu.Lock()
	d.onIdleEnd = fn
	d.mu.Unlock()
}

// SetThreshold changes the idle threshold. The new value applies on the
// next evaluation tick, not retroactively.
func (d *Detector) SetThreshold(threshold time.Duration) {
	d.mu.Lock()
	d.threshold = threshold
	d.mu.Unlock()
}

// Touch records a qualifying input event. If the detector is idle, it
// transitions to active and emits the completed idle period.
func (d *Detector) Touch(ts time.Time) {
	d.mu.Lock()
	d.lastActivity = ts

	if !d.idle {
		d.mu.Unlock()
		return
	}

	d.idle = false
	since := d.idleSince
	d.idleSince = time.Time{}
	onIdleEnd := d.onIdleEnd
	d.mu.Unlock()

	period := models.IdlePeriod{
		StartTime:       since,
		EndTime:         ts,
		DurationSeconds: ts.Sub(since).Seconds(),
	}

	d.logger.Info("Idle ended",
		zap.Time("since", since),
		zap.Float64("duration_seconds", period.DurationSeconds),
	)

	if onIdleEnd != nil {
		onIdleEnd(period)
	}
}

// Evaluate runs one tick of the state machine. The transition to idle
// fires when now − lastActivity ≥ threshold.
func (d *Detector) Evaluate(now time.Time) {
	d.mu.Lock()
	if d.idle || now.Sub(d.lastActivity) < d.threshold {
		d.mu.Unlock()
		return
	}

	d.idle = true
	// Idle effectively began when input stopped, not when the tick
	// noticed it.
	d.idleSince = d.lastActivity
	since := d.idleSince
	onIdleStart := d.onIdleStart
	d.mu.Unlock()

	d.logger.Info("Idle started", zap.Time("since", since))

	if onIdleStart != nil {
		onIdleStart(since)
	}
}

// Status returns the current detector state.
func (d *Detector) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		IsIdle:       d.idle,
		IdleSince:    d.idleSince,
		LastActivity: d.lastActivity,
		Threshold:    d.threshold,
	}
}
