package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"lifelog/pulse-agent/internal/models"
)

// ActivityLogRepository persists the append-only session, idle, and
// input-window logs the statistics aggregator reads. Rows are never
// updated or deleted.
type ActivityLogRepository struct {
	db *sql.DB
}

func NewActivityLogRepository(db *sql.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// AppendSession records one closed session.
func (r *ActivityLogRepository) AppendSession(session models.SessionData) error {
	inputData, err := json.Marshal(session.Input)
	if err != nil {
		return fmt.Errorf("failed to marshal session input: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO session_log (application, title, start_time, end_time, duration_seconds, input_data)
		VALUES (?, ?, ?, ?, ?, ?)
	`, session.Application, session.Title, session.StartTime, session.EndTime,
		session.DurationSeconds, string(inputData))
	if err != nil {
		return fmt.Errorf("failed to append session: %w", err)
	}
	return nil
}

// AppendIdle records one completed idle period.
func (r *ActivityLogRepository) AppendIdle(period models.IdlePeriod) error {
	_, err := r.db.Exec(`
		INSERT INTO idle_log (start_time, end_time, duration_seconds)
		VALUES (?, ?, ?)
	`, period.StartTime, period.EndTime, period.DurationSeconds)
	if err != nil {
		return fmt.Errorf("failed to append idle period: %w", err)
	}
	return nil
}

// AppendInput records one closed input-aggregation window.
func (r *ActivityLogRepository) AppendInput(stats models.InputStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal input stats: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO input_log (period_start, period_end, stats_data)
		VALUES (?, ?, ?)
	`, stats.PeriodStartTime, stats.PeriodEndTime, string(data))
	if err != nil {
		return fmt.Errorf("failed to append input stats: %w", err)
	}
	return nil
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.Add(24 * time.Hour)
}

// SessionsForDay returns the sessions that started within the given
// calendar date.
func (r *ActivityLogRepository) SessionsForDay(day time.Time) ([]models.SessionData, error) {
	start, end := dayBounds(day)

	rows, err := r.db.Query(`
		SELECT application, title, start_time, end_time, duration_seconds, input_data
		FROM session_log
		WHERE start_time >= ? AND start_time < ?
		ORDER BY start_time ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.SessionData
	for rows.Next() {
		var session models.SessionData
		var inputData string
		if err := rows.Scan(
			&session.Application,
			&session.Title,
			&session.StartTime,
			&session.EndTime,
			&session.DurationSeconds,
			&inputData,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if inputData != "" {
			if err := json.Unmarshal([]byte(inputData), &session.Input); err != nil {
				return nil, fmt.Errorf("failed to unmarshal session input: %w", err)
			}
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// IdlePeriodsForDay returns the idle periods that started within the
// given calendar date.
func (r *ActivityLogRepository) IdlePeriodsForDay(day time.Time) ([]models.IdlePeriod, error) {
	start, end := dayBounds(day)

	rows, err := r.db.Query(`
		SELECT start_time, end_time, duration_seconds
		FROM idle_log
		WHERE start_time >= ? AND start_time < ?
		ORDER BY start_time ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query idle periods: %w", err)
	}
	defer rows.Close()

	var periods []models.IdlePeriod
	for rows.Next() {
		var period models.IdlePeriod
		if err := rows.Scan(&period.StartTime, &period.EndTime, &period.DurationSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan idle period: %w", err)
		}
		periods = append(periods, period)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating idle periods: %w", err)
	}

	return periods, nil
}

// InputWindowsForDay returns the input windows that started within the
// given calendar date.
func (r *ActivityLogRepository) InputWindowsForDay(day time.Time) ([]models.InputStats, error) {
	start, end := dayBounds(day)

	rows, err := r.db.Query(`
		SELECT stats_data
		FROM input_log
		WHERE period_start >= ? AND period_start < ?
		ORDER BY period_start ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query input windows: %w", err)
	}
	defer rows.Close()

	var windows []models.InputStats
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan input window: %w", err)
		}
		var stats models.InputStats
		if err := json.Unmarshal([]byte(data), &stats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal input window: %w", err)
		}
		windows = append(windows, stats)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating input windows: %w", err)
	}

	return windows, nil
}
