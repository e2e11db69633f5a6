package idle

import (
	"testing"
	"time"

	"lifelog/pulse-agent/internal/models"

	"go.uber.org/zap"
)

func TestIdleFiresExactlyAtThreshold(t *testing.T) {
	d := NewDetector(300_000*time.Millisecond, zap.NewNop())

	var idleStarts int
	d.OnIdleStart(func(time.Time) { idleStarts++ })

	base := time.Now()
	d.Touch(base)

	d.Evaluate(base.Add(299_999 * time.Millisecond))
	if idleStarts != 0 {
		t.Fatal("transitioned to idle below threshold")
	}

	d.Evaluate(base.Add(300_000 * time.Millisecond))
	if idleStarts != 1 {
		t.Fatal("did not transition to idle at threshold")
	}
	if !d.Status().IsIdle {
		t.Fatal("status should report idle")
	}

	// Already idle: further ticks must not re-fire.
	d.Evaluate(base.Add(400_000 * time.Millisecond))
	if idleStarts != 1 {
		t.Fatalf("idle start fired %d times, want 1", idleStarts)
	}
}

func TestIdlePeriodUsesBufferedStart(t *testing.T) {
	d := NewDetector(5*time.Minute, zap.NewNop())

	var period models.IdlePeriod
	d.OnIdleEnd(func(p models.IdlePeriod) { period = p })

	base := time.Now()
	d.Touch(base)
	d.Evaluate(base.Add(6 * time.Minute))

	end := base.Add(10 * time.Minute)
	d.Touch(end)

	if d.Status().IsIdle {
		t.Fatal("input while idle must transition back to active")
	}
	if !period.StartTime.Equal(base) {
		t.Errorf("idle period start = %v, want last activity %v", period.StartTime, base)
	}
	if !period.EndTime.Equal(end) {
		t.Errorf("idle period end = %v, want %v", period.EndTime, end)
	}
	if period.DurationSeconds != 600 {
		t.Errorf("idle duration = %v, want 600", period.DurationSeconds)
	}
}

func TestTouchWhileActiveEmitsNothing(t *testing.T) {
	d := NewDetector(5*time.Minute, zap.NewNop())

	var idleEnds int
	d.OnIdleEnd(func(models.IdlePeriod) { idleEnds++ })

	base := time.Now()
	d.Touch(base)
	d.Touch(base.Add(time.Second))

	if idleEnds != 0 {
		t.Fatal("idle end emitted without a preceding idle start")
	}
}

func TestThresholdChangeAppliesOnNextTick(t *testing.T) {
	d := NewDetector(10*time.Minute, zap.NewNop())

	var idleStarts int
	d.OnIdleStart(func(time.Time) { idleStarts++ })

	base := time.Now()
	d.Touch(base)

	d.Evaluate(base.Add(2 * time.Minute))
	if idleStarts != 0 {
		t.Fatal("idle before any threshold reached")
	}

	d.SetThreshold(time.Minute)
	d.Evaluate(base.Add(2 * time.Minute))
	if idleStarts != 1 {
		t.Fatal("lowered threshold not applied on next tick")
	}
}
