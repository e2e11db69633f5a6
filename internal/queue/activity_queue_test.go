package queue

import (
	"testing"
	"time"

	"lifelog/pulse-agent/internal/database"
	"lifelog/pulse-agent/internal/models"

	"go.uber.org/zap"
)

func testQueue(t *testing.T) *ActivityQueue {
	t.Helper()
	db, err := database.New(":memory:", zap.NewNop())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewActivityQueue(db.DB, zap.NewNop())
}

func enqueueN(t *testing.T, q *ActivityQueue, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		activity, err := models.NewActivity(models.ActivityWindowFocus, models.SourceDesktop, time.Now(), map[string]int{"n": i})
		if err != nil {
			t.Fatalf("build activity: %v", err)
		}
		if err := q.Enqueue(activity); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
}

func TestSnapshotIsFIFOAndStable(t *testing.T) {
	q := testQueue(t)
	enqueueN(t, q, 3)

	activities, ids, err := q.SnapshotPending(100)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(activities) != 3 || len(ids) != 3 {
		t.Fatalf("snapshot size = %d/%d, want 3/3", len(activities), len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("ids not ascending: %v", ids)
		}
	}

	// An enqueue after the snapshot must not be part of it.
	enqueueN(t, q, 1)
	if err := q.Remove(ids); err != nil {
		t.Fatalf("remove: %v", err)
	}

	count, err := q.PendingCount()
	if err != nil {
		t.Fatalf("pending count: %v", err)
	}
	if count != 1 {
		t.Fatalf("pending after remove = %d, want 1 (the late enqueue)", count)
	}
}

func TestBlockedRowsExcludedFromSnapshots(t *testing.T) {
	q := testQueue(t)
	enqueueN(t, q, 2)

	_, ids, err := q.SnapshotPending(100)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := q.MarkBlocked(ids[:1]); err != nil {
		t.Fatalf("mark blocked: %v", err)
	}

	activities, _, err := q.SnapshotPending(100)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(activities) != 1 {
		t.Fatalf("snapshot size = %d, want 1", len(activities))
	}

	blocked, err := q.BlockedCount()
	if err != nil {
		t.Fatalf("blocked count: %v", err)
	}
	if blocked != 1 {
		t.Fatalf("blocked count = %d, want 1", blocked)
	}
}

func TestCleanupSparesBlockedAndFreshRows(t *testing.T) {
	q := testQueue(t)
	enqueueN(t, q, 2)

	_, ids, err := q.SnapshotPending(100)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := q.MarkBlocked(ids[:1]); err != nil {
		t.Fatalf("mark blocked: %v", err)
	}

	// Rows are fresh and below the retry cap: nothing to clean.
	if err := q.CleanupAged(time.Hour); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	pending, _ := q.PendingCount()
	blocked, _ := q.BlockedCount()
	if pending != 1 || blocked != 1 {
		t.Fatalf("counts after cleanup = %d pending, %d blocked", pending, blocked)
	}
}

func TestIncrementRetry(t *testing.T) {
	q := testQueue(t)
	enqueueN(t, q, 1)

	_, ids, err := q.SnapshotPending(100)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := q.IncrementRetry(ids); err != nil {
		t.Fatalf("increment retry: %v", err)
	}

	// The row stays pending after a transient failure.
	count, _ := q.PendingCount()
	if count != 1 {
		t.Fatalf("pending = %d, want 1", count)
	}
}
