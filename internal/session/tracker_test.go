package session

import (
	"testing"
	"time"

	"lifelog/pulse-agent/internal/models"
	"lifelog/pulse-agent/internal/platform"

	"go.uber.org/zap"
)

// fakeInput counts how many snapshots were consumed and stamps each one.
type fakeInput struct {
	snapshots int
	keystroke int
}

func (f *fakeInput) SnapshotAndReset() models.InputStats {
	f.snapshots++
	stats := models.InputStats{Keystrokes: f.keystroke}
	f.keystroke = 0
	return stats
}

func window(app, title string) *platform.WindowInfo {
	return &platform.WindowInfo{Application: app, Title: title, Timestamp: time.Now()}
}

func TestWindowChangeEmitsPreviousSession(t *testing.T) {
	input := &fakeInput{}
	tr := NewTracker(input, nil, zap.NewNop())

	var emitted []models.SessionData
	tr.OnSession(func(s models.SessionData) { emitted = append(emitted, s) })

	base := time.Now()
	tr.Observe(window("code", "main.go"), base)
	input.keystroke = 42
	tr.Observe(window("firefox", "docs"), base.Add(30*time.Second))

	if len(emitted) != 1 {
		t.Fatalf("emitted %d sessions, want 1", len(emitted))
	}
	s := emitted[0]
	if s.Application != "code" || s.Title != "main.go" {
		t.Errorf("session identity = %s/%s", s.Application, s.Title)
	}
	if s.DurationSeconds != 30 {
		t.Errorf("duration = %v, want 30", s.DurationSeconds)
	}
	if s.Input.Keystrokes != 42 {
		t.Errorf("attached keystrokes = %d, want 42", s.Input.Keystrokes)
	}

	app, title, _, open := tr.Current()
	if !open || app != "firefox" || title != "docs" {
		t.Errorf("current session = %s/%s open=%v", app, title, open)
	}
}

func TestTitleChangeAloneClosesSession(t *testing.T) {
	tr := NewTracker(&fakeInput{}, nil, zap.NewNop())

	var emitted int
	tr.OnSession(func(models.SessionData) { emitted++ })

	base := time.Now()
	tr.Observe(window("firefox", "tab one"), base)
	tr.Observe(window("firefox", "tab two"), base.Add(5*time.Second))

	if emitted != 1 {
		t.Fatalf("emitted %d sessions, want 1", emitted)
	}
}

func TestSameWindowDoesNotClose(t *testing.T) {
	input := &fakeInput{}
	tr := NewTracker(input, nil, zap.NewNop())

	var emitted int
	tr.OnSession(func(models.SessionData) { emitted++ })

	base := time.Now()
	tr.Observe(window("code", "main.go"), base)
	tr.Observe(window("code", "main.go"), base.Add(10*time.Second))

	if emitted != 0 {
		t.Fatalf("emitted %d sessions, want 0", emitted)
	}
	if input.snapshots != 0 {
		t.Fatalf("snapshot consumed without a session close")
	}
}

func TestZeroDurationSessionDropped(t *testing.T) {
	tr := NewTracker(&fakeInput{}, nil, zap.NewNop())

	var emitted int
	tr.OnSession(func(models.SessionData) { emitted++ })

	base := time.Now()
	tr.Observe(window("code", "main.go"), base)
	tr.Observe(window("firefox", "docs"), base) // no elapsed time

	if emitted != 0 {
		t.Fatalf("zero-duration session was emitted")
	}
}

func TestExcludedAppDiscardsSnapshot(t *testing.T) {
	input := &fakeInput{}
	tr := NewTracker(input, []string{"KeePass"}, zap.NewNop())

	var emitted int
	tr.OnSession(func(models.SessionData) { emitted++ })

	base := time.Now()
	tr.Observe(window("keepassxc", "vault"), base)
	input.keystroke = 99
	tr.Observe(window("code", "main.go"), base.Add(time.Minute))

	if emitted != 0 {
		t.Fatal("excluded session was emitted")
	}
	// The snapshot for the excluded interval is consumed, not carried
	// into the next session.
	if input.snapshots != 1 {
		t.Fatalf("snapshots consumed = %d, want 1", input.snapshots)
	}
	if input.keystroke != 0 {
		t.Fatal("excluded interval's counters leaked into the next window")
	}
}

func TestCloseEmitsBeforeIdle(t *testing.T) {
	tr := NewTracker(&fakeInput{}, nil, zap.NewNop())

	var emitted []models.SessionData
	tr.OnSession(func(s models.SessionData) { emitted = append(emitted, s) })

	base := time.Now()
	tr.Observe(window("code", "main.go"), base)

	idleSince := base.Add(2 * time.Minute)
	tr.Close(idleSince)

	if len(emitted) != 1 {
		t.Fatalf("emitted %d sessions, want 1", len(emitted))
	}
	if !emitted[0].EndTime.Equal(idleSince) {
		t.Errorf("session end = %v, want idle start %v", emitted[0].EndTime, idleSince)
	}
	if _, _, _, open := tr.Current(); open {
		t.Fatal("session still open after Close")
	}
}
