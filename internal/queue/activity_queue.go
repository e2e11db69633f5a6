package queue

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"lifelog/pulse-agent/internal/models"

	"go.uber.org/zap"
)

// ActivityQueue is the durable, ordered pending queue of activity
// records. Rows survive process restarts; removal is always by explicit
// id so a sync snapshot never touches records enqueued after it was
// taken.
type ActivityQueue struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewActivityQueue creates a queue over the given database.
func NewActivityQueue(db *sql.DB, logger *zap.Logger) *ActivityQueue {
	return &ActivityQueue{
		db:     db,
		logger: logger,
	}
}

// Enqueue appends one activity. The row is committed before Enqueue
// returns; a non-nil error means the record was not persisted.
func (q *ActivityQueue) Enqueue(activity models.Activity) error {
	data, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("failed to marshal activity: %w", err)
	}

	_, err = q.db.Exec(`
		INSERT INTO pending_activities (activity_data, created_at, retry_count, blocked)
		VALUES (?, ?, 0, 0)
	`, string(data), time.Now())
	if err != nil {
		return fmt.Errorf("failed to enqueue activity: %w", err)
	}

	q.logger.Debug("Activity enqueued", zap.String("type", string(activity.Type)))
	return nil
}

// SnapshotPending returns up to limit unblocked activities in FIFO order
// together with their row ids. The snapshot is stable: later enqueues
// get higher ids and are not part of it.
func (q *ActivityQueue) SnapshotPending(limit int) ([]models.Activity, []int64, error) {
	rows, err := q.db.Query(`
		SELECT id, activity_data
		FROM pending_activities
		WHERE blocked = 0
		ORDER BY id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query pending activities: %w", err)
	}
	defer rows.Close()

	var activities []models.Activity
	var ids []int64

	for rows.Next() {
		var id int64
		var data string
		if err := rows.Scan(&id, &data); err != nil {
			q.logger.Error("Failed to scan row", zap.Error(err))
			continue
		}

		var activity models.Activity
		if err := json.Unmarshal([]byte(data), &activity); err != nil {
			q.logger.Error("Failed to unmarshal activity, blocking row",
				zap.Error(err),
				zap.Int64("id", id),
			)
			// Corrupted rows are quarantined, not deleted.
			q.db.Exec("UPDATE pending_activities SET blocked = 1 WHERE id = ?", id)
			continue
		}

		activities = append(activities, activity)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating pending activities: %w", err)
	}

	return activities, ids, nil
}

// Remove deletes exactly the given rows.
func (q *ActivityQueue) Remove(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query, args := inClause("DELETE FROM pending_activities WHERE id IN (", ids)
	result, err := q.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to remove activities: %w", err)
	}

	removed, _ := result.RowsAffected()
	q.logger.Debug("Activities removed from queue", zap.Int64("count", removed))
	return nil
}

// IncrementRetry bumps the retry counter for the given rows after a
// transient failure.
func (q *ActivityQueue) IncrementRetry(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query, args := inClause("UPDATE pending_activities SET retry_count = retry_count + 1, last_attempt = ? WHERE id IN (", ids)
	args = append([]interface{}{time.Now()}, args...)

	if _, err := q.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to increment retry: %w", err)
	}
	return nil
}

// MarkBlocked quarantines rows the backend rejected as malformed. They
// are excluded from future snapshots but kept for manual intervention.
func (q *ActivityQueue) MarkBlocked(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query, args := inClause("UPDATE pending_activities SET blocked = 1, last_attempt = ? WHERE id IN (", ids)
	args = append([]interface{}{time.Now()}, args...)

	if _, err := q.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to mark activities blocked: %w", err)
	}

	q.logger.Warn("Activities quarantined after backend rejection", zap.Int("count", len(ids)))
	return nil
}

// PendingCount returns the number of unblocked queued activities.
func (q *ActivityQueue) PendingCount() (int, error) {
	var count int
	err := q.db.QueryRow(`SELECT COUNT(*) FROM pending_activities WHERE blocked = 0`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending count: %w", err)
	}
	return count, nil
}

// BlockedCount returns the number of quarantined activities.
func (q *ActivityQueue) BlockedCount() (int, error) {
	var count int
	err := q.db.QueryRow(`SELECT COUNT(*) FROM pending_activities WHERE blocked = 1`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get blocked count: %w", err)
	}
	return count, nil
}

// CleanupAged removes unblocked rows that exhausted their retries and
// are older than the given age. Quarantined rows are never touched.
func (q *ActivityQueue) CleanupAged(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	result, err := q.db.Exec(`
		DELETE FROM pending_activities
		WHERE created_at < ? AND retry_count > 10 AND blocked = 0
	`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup aged activities: %w", err)
	}

	removed, _ := result.RowsAffected()
	if removed > 0 {
		q.logger.Info("Cleaned up aged activities", zap.Int64("count", removed))
	}
	return nil
}

// inClause builds "prefix ?,?,?)" with the ids as args.
func inClause(prefix string, ids []int64) (string, []interface{}) {
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return prefix + strings.Join(placeholders, ",") + ")", args
}
