package session

import (
	"strings"
	"sync"
	"time"

	"lifelog/pulse-agent/internal/models"
	"lifelog/pulse-agent/internal/platform"

	"go.uber.org/zap"
)

// InputSource provides the per-session input counters. The tracker
// consumes one snapshot per closed session.
type InputSource interface {
	SnapshotAndReset() models.InputStats
}

// Tracker segments continuous foreground-window occupancy into discrete
// sessions. A session closes when the window identity changes, idle
// begins, or tracking stops.
type Tracker struct {
	mu sync.Mutex

	currentApp   string
	currentTitle string
	startTime    time.Time
	open         bool

	excluded  []string
	input     InputSource
	onSession func(models.SessionData)

	logger *zap.Logger
}

// NewTracker creates a tracker with no open session.
func NewTracker(input InputSource, excludedApps []string, logger *zap.Logger) *Tracker {
	excluded := make([]string, 0, len(excludedApps))
	for _, app := range excludedApps {
		app = strings.TrimSpace(strings.ToLower(app))
		if app != "" {
			excluded = append(excluded, app)
		}
	}

	return &Tracker{
		excluded: excluded,
		input:    input,
		logger:   logger,
	}
}

// OnSession registers the callback invoked for every emitted session.
func (t *Tracker) OnSession(fn func(models.SessionData)) {
	t.mu.Lock()
	t.onSession = fn
	t.mu.Unlock()
}

// Observe processes one poll of the foreground window. A nil window
// closes any open session.
func (t *Tracker) Observe(win *platform.WindowInfo, now time.Time) {
	if win == nil {
		t.Close(now)
		return
	}

	t.mu.Lock()
	if t.open && win.Application == t.currentApp && win.Title == t.currentTitle {
		t.mu.Unlock()
		return
	}

	var closed *models.SessionData
	if t.open {
		closed = t.closeLocked(now)
	}
	t.currentApp = win.Application
	t.currentTitle = win.Title
	t.startTime = now
	t.open = true
	onSession := t.onSession
	t.mu.Unlock()

	t.logger.Debug("Session opened",
		zap.String("application", win.Application),
		zap.String("title", win.Title),
	)

	if closed != nil && onSession != nil {
		onSession(*closed)
	}
}

// Close ends the open session, if any. Used when idle begins or tracking
// pauses; the session must be emitted before the idle period starts so
// active and idle time never overlap.
func (t *Tracker) Close(end time.Time) {
	t.mu.Lock()
	var closed *models.SessionData
	if t.open {
		closed = t.closeLocked(end)
		t.open = false
		t.currentApp = ""
		t.currentTitle = ""
	}
	onSession := t.onSession
	t.mu.Unlock()

	if closed != nil && onSession != nil {
		onSession(*closed)
	}
}

// Current returns the identity of the open session, if any.
func (t *Tracker) Current() (app, title string, since time.Time, open bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentApp, t.currentTitle, t.startTime, t.open
}

// closeLocked builds the session to emit, or nil when it is dropped. The
// input snapshot for the interval is always consumed, even when the
// session is dropped or excluded, so counters never bleed into the next
// session.
func (t *Tracker) closeLocked(end time.Time) *models.SessionData {
	stats := t.input.SnapshotAndReset()

	duration := end.Sub(t.startTime).Seconds()
	if duration <= 0 {
		// Clock skew or zero-width poll tick.
		return nil
	}

	if t.isExcluded(t.currentApp) {
		t.logger.Debug("Session suppressed by exclusion list",
			zap.String("application", t.currentApp),
		)
		return nil
	}

	session := models.SessionData{
		Application:     t.currentApp,
		Title:           t.currentTitle,
		StartTime:       t.startTime,
		EndTime:         end,
		DurationSeconds: duration,
		Input:           stats,
	}

	t.logger.Debug("Session closed",
		zap.String("application", session.Application),
		zap.Float64("duration_seconds", session.DurationSeconds),
	)

	return &session
}

func (t *Tracker) isExcluded(app string) bool {
	appLower := strings.ToLower(app)
	for _, pattern := range t.excluded {
		if strings.Contains(appLower, pattern) {
			return true
		}
	}
	return false
}
