package service

import (
	"sync"
	"time"

	"lifelog/pulse-agent/internal/auth"
	"lifelog/pulse-agent/internal/config"
	"lifelog/pulse-agent/internal/idle"
	"lifelog/pulse-agent/internal/input"
	"lifelog/pulse-agent/internal/models"
	"lifelog/pulse-agent/internal/platform"
	"lifelog/pulse-agent/internal/queue"
	"lifelog/pulse-agent/internal/repository"
	"lifelog/pulse-agent/internal/session"
	"lifelog/pulse-agent/internal/syncer"

	"go.uber.org/zap"
)

// eventBuffer sizes the dispatch channel between the capture callback and
// the dispatcher goroutine. The callback runs on the platform hook thread
// and must never block; overflow drops events.
const eventBuffer = 1024

// Status is a point-in-time view of the collector for the status endpoint
// and the tray.
type Status struct {
	Paused            bool      `json:"paused"`
	Idle              bool      `json:"idle"`
	CurrentApp        string    `json:"currentApp,omitempty"`
	CurrentTitle      string    `json:"currentTitle,omitempty"`
	SessionSince      time.Time `json:"sessionSince,omitempty"`
	PendingActivities int       `json:"pendingActivities"`
	BlockedActivities int       `json:"blockedActivities"`
	Unauthenticated   bool      `json:"unauthenticated"`
	LastSync          time.Time `json:"lastSync,omitempty"`
}

// CollectorService orchestrates capture, aggregation, segmentation, and
// sync. Raw input events are serialized through a single dispatcher
// goroutine so the aggregators and the idle detector observe them in
// capture order.
type CollectorService struct {
	platform platform.Platform

	sessionInput *input.Aggregator
	windowInput  *input.Aggregator
	detector     *idle.Detector
	tracker      *session.Tracker
	engine       *syncer.Engine
	queue        *queue.ActivityQueue
	repo         *repository.ActivityLogRepository
	tokens       *auth.Store

	sessionPollInterval time.Duration
	idleCheckInterval   time.Duration
	inputWindowInterval time.Duration

	logger *zap.Logger

	events chan platform.InputEvent

	mu             sync.Mutex
	paused         bool
	started        bool
	captureHealthy bool

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewCollectorService wires the tracking components together. The two
// aggregators are separate on purpose: session attribution and the
// periodic input windows consume snapshots independently.
func NewCollectorService(
	p platform.Platform,
	sessionInput *input.Aggregator,
	windowInput *input.Aggregator,
	detector *idle.Detector,
	tracker *session.Tracker,
	engine *syncer.Engine,
	q *queue.ActivityQueue,
	repo *repository.ActivityLogRepository,
	tokens *auth.Store,
	cfg *config.Config,
	logger *zap.Logger,
) *CollectorService {
	return &CollectorService{
		platform:            p,
		sessionInput:        sessionInput,
		windowInput:         windowInput,
		detector:            detector,
		tracker:             tracker,
		engine:              engine,
		queue:               q,
		repo:                repo,
		tokens:              tokens,
		sessionPollInterval: time.Duration(cfg.Tracking.SessionPollInterval) * time.Second,
		idleCheckInterval:   time.Duration(cfg.Tracking.IdleCheckInterval) * time.Second,
		inputWindowInterval: time.Duration(cfg.Tracking.InputWindowInterval) * time.Second,
		logger:              logger,
		events:              make(chan platform.InputEvent, eventBuffer),
		stopChan:            make(chan struct{}),
	}
}

// Start begins capturing and tracking.
func (cs *CollectorService) Start() error {
	cs.mu.Lock()
	if cs.started {
		cs.mu.Unlock()
		return nil
	}
	cs.started = true
	cs.mu.Unlock()

	cs.detector.OnIdleStart(cs.onIdleStart)
	cs.detector.OnIdleEnd(cs.onIdleEnd)
	cs.tracker.OnSession(cs.onSession)

	// Session tracking degrades to best-effort when the hooks cannot be
	// installed: without input events there is nothing to aggregate and
	// no signal to drive the idle detector, so both stay off.
	if err := cs.platform.StartInputCapture(cs.onRawEvent); err != nil {
		cs.logger.Warn("Input capture unavailable, tracking windows only", zap.Error(err))
	} else {
		cs.mu.Lock()
		cs.captureHealthy = true
		cs.mu.Unlock()
	}

	cs.wg.Add(4)
	go cs.dispatchLoop()
	go cs.sessionLoop()
	go cs.idleLoop()
	go cs.inputWindowLoop()

	cs.logger.Info("Collector started",
		zap.Duration("session_poll", cs.sessionPollInterval),
		zap.Duration("idle_check", cs.idleCheckInterval),
		zap.Duration("input_window", cs.inputWindowInterval),
	)
	return nil
}

// Stop halts capture, closes the open session, and flushes the current
// input window.
func (cs *CollectorService) Stop() {
	cs.mu.Lock()
	select {
	case <-cs.stopChan:
		cs.mu.Unlock()
		return
	default:
		close(cs.stopChan)
	}
	cs.mu.Unlock()

	// Remove the hooks first so no new events arrive while draining.
	cs.platform.StopInputCapture()

	done := make(chan struct{})
	go func() {
		cs.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		cs.logger.Warn("Collector goroutines did not stop within timeout")
	}

	cs.tracker.Close(time.Now())
	cs.flushInputWindow()

	cs.logger.Info("Collector stopped")
}

// Pause suspends tracking. The open session is closed and the input
// window flushed so nothing straddles the gap; syncing keeps running.
func (cs *CollectorService) Pause() {
	cs.mu.Lock()
	if cs.paused {
		cs.mu.Unlock()
		return
	}
	cs.paused = true
	cs.mu.Unlock()

	cs.tracker.Close(time.Now())
	cs.flushInputWindow()
	cs.logger.Info("Tracking paused")
}

// Resume restarts tracking after a pause.
func (cs *CollectorService) Resume() {
	cs.mu.Lock()
	if !cs.paused {
		cs.mu.Unlock()
		return
	}
	cs.paused = false
	cs.mu.Unlock()

	// Treat the resume itself as activity so the detector does not
	// immediately fire from the pause gap.
	cs.detector.Touch(time.Now())
	cs.logger.Info("Tracking resumed")
}

// Paused reports whether tracking is suspended.
func (cs *CollectorService) Paused() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.paused
}

// Status returns the current collector status.
func (cs *CollectorService) Status() Status {
	app, title, since, open := cs.tracker.Current()
	idleStatus := cs.detector.Status()
	pending, _ := cs.queue.PendingCount()
	blocked, _ := cs.queue.BlockedCount()

	status := Status{
		Paused:            cs.Paused(),
		Idle:              idleStatus.IsIdle,
		PendingActivities: pending,
		BlockedActivities: blocked,
		Unauthenticated:   cs.engine.Unauthenticated(),
		LastSync:          cs.tokens.LastSyncTimestamp(),
	}
	if open {
		status.CurrentApp = app
		status.CurrentTitle = title
		status.SessionSince = since
	}
	return status
}

// onRawEvent runs on the platform hook thread. It only hands the event
// to the dispatcher; dropping under backpressure is preferable to
// stalling the hook chain.
func (cs *CollectorService) onRawEvent(ev platform.InputEvent) {
	select {
	case cs.events <- ev:
	default:
	}
}

func (cs *CollectorService) dispatchLoop() {
	defer cs.wg.Done()

	for {
		select {
		case ev := <-cs.events:
			if cs.Paused() {
				continue
			}
			cs.sessionInput.RecordEvent(ev)
			cs.windowInput.RecordEvent(ev)
			cs.detector.Touch(ev.Timestamp)
		case <-cs.stopChan:
			// Drain what the hooks delivered before capture stopped.
			for {
				select {
				case ev := <-cs.events:
					if cs.Paused() {
						continue
					}
					cs.sessionInput.RecordEvent(ev)
					cs.windowInput.RecordEvent(ev)
					cs.detector.Touch(ev.Timestamp)
				default:
					return
				}
			}
		}
	}
}

func (cs *CollectorService) sessionLoop() {
	defer cs.wg.Done()

	ticker := time.NewTicker(cs.sessionPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cs.pollSession()
		case <-cs.stopChan:
			return
		}
	}
}

func (cs *CollectorService) pollSession() {
	if cs.Paused() {
		return
	}
	// While idle, no session may be open; it was closed at the idle
	// transition and reopens on the first poll after activity resumes.
	if cs.detector.Status().IsIdle {
		return
	}

	win, err := cs.platform.GetActiveWindow()
	if err != nil {
		cs.logger.Debug("Failed to read active window", zap.Error(err))
		return
	}
	cs.tracker.Observe(win, time.Now())
}

func (cs *CollectorService) idleLoop() {
	defer cs.wg.Done()

	ticker := time.NewTicker(cs.idleCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !cs.Paused() && cs.captureAvailable() {
				cs.detector.Evaluate(time.Now())
			}
		case <-cs.stopChan:
			return
		}
	}
}

func (cs *CollectorService) captureAvailable() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.captureHealthy
}

func (cs *CollectorService) inputWindowLoop() {
	defer cs.wg.Done()

	ticker := time.NewTicker(cs.inputWindowInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !cs.Paused() {
				cs.flushInputWindow()
			}
		case <-cs.stopChan:
			return
		}
	}
}

// flushInputWindow closes the current input window and records it when it
// saw any activity. Empty windows are not logged or synced.
func (cs *CollectorService) flushInputWindow() {
	stats := cs.windowInput.SnapshotAndReset()
	if stats.Keystrokes == 0 && stats.TotalClicks() == 0 &&
		stats.PointerDistance == 0 && stats.ScrollMagnitude == 0 {
		return
	}

	if err := cs.repo.AppendInput(stats); err != nil {
		cs.logger.Error("Failed to log input window", zap.Error(err))
	}

	activity, err := models.NewActivity(models.ActivityInput, models.SourceDesktop, stats.PeriodEndTime, stats)
	if err != nil {
		cs.logger.Error("Failed to build input activity", zap.Error(err))
		return
	}
	if err := cs.engine.Enqueue(activity); err != nil {
		cs.logger.Error("Failed to enqueue input activity", zap.Error(err))
	}
}

// onSession handles every session the tracker emits.
func (cs *CollectorService) onSession(s models.SessionData) {
	if err := cs.repo.AppendSession(s); err != nil {
		cs.logger.Error("Failed to log session", zap.Error(err))
	}

	activity, err := models.NewActivity(models.ActivityWindowFocus, models.SourceDesktop, s.EndTime, s)
	if err != nil {
		cs.logger.Error("Failed to build session activity", zap.Error(err))
		return
	}
	if err := cs.engine.Enqueue(activity); err != nil {
		cs.logger.Error("Failed to enqueue session activity", zap.Error(err))
	}
}

// onIdleStart closes the open session at the moment input stopped, so
// the session never overlaps the idle period that follows it.
func (cs *CollectorService) onIdleStart(since time.Time) {
	cs.tracker.Close(since)

	activity, err := models.NewActivity(models.ActivityIdleStart, models.SourceDesktop, since, struct {
		Since time.Time `json:"since"`
	}{Since: since})
	if err != nil {
		cs.logger.Error("Failed to build idle start activity", zap.Error(err))
		return
	}
	if err := cs.engine.Enqueue(activity); err != nil {
		cs.logger.Error("Failed to enqueue idle start activity", zap.Error(err))
	}
}

// onIdleEnd records the completed idle period.
func (cs *CollectorService) onIdleEnd(period models.IdlePeriod) {
	if err := cs.repo.AppendIdle(period); err != nil {
		cs.logger.Error("Failed to log idle period", zap.Error(err))
	}

	activity, err := models.NewActivity(models.ActivityIdleEnd, models.SourceDesktop, period.EndTime, period)
	if err != nil {
		cs.logger.Error("Failed to build idle end activity", zap.Error(err))
		return
	}
	if err := cs.engine.Enqueue(activity); err != nil {
		cs.logger.Error("Failed to enqueue idle end activity", zap.Error(err))
	}
}
