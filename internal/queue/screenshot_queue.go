// Package queue persists screenshots whose upload failed so a background
// sweep can retry them. Activity log records never pass through here - the
// log file itself is the retry buffer for those.
package queue

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// PendingScreenshot is one queued retry item.
type PendingScreenshot struct {
	ID         int64
	FilePath   string
	UserID     string
	SessionID  string
	RetryCount int
}

// ScreenshotQueue manages the local retry queue for failed screenshot
// uploads.
type ScreenshotQueue struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewScreenshotQueue creates a new screenshot queue
func NewScreenshotQueue(db *sql.DB, logger *zap.Logger) *ScreenshotQueue {
	return &ScreenshotQueue{
		db:     db,
		logger: logger,
	}
}

// Enqueue records one screenshot for a later retry.
func (sq *ScreenshotQueue) Enqueue(filePath, userID, sessionID string) error {
	_, err := sq.db.Exec(`
		INSERT INTO pending_screenshots (file_path, user_id, session_id, created_at, retry_count)
		VALUES (?, ?, ?, ?, 0)
	`, filePath, userID, sessionID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to enqueue screenshot: %w", err)
	}

	sq.logger.Debug("Screenshot queued for retry",
		zap.String("file_path", filePath),
	)
	return nil
}

// Dequeue retrieves up to limit pending screenshots, oldest first.
func (sq *ScreenshotQueue) Dequeue(limit int) ([]PendingScreenshot, error) {
	rows, err := sq.db.Query(`
		SELECT id, file_path, user_id, session_id, retry_count
		FROM pending_screenshots
		ORDER BY created_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending screenshots: %w", err)
	}
	defer rows.Close()

	var pending []PendingScreenshot
	for rows.Next() {
		var p PendingScreenshot
		if err := rows.Scan(&p.ID, &p.FilePath, &p.UserID, &p.SessionID, &p.RetryCount); err != nil {
			sq.logger.Error("Failed to scan row", zap.Error(err))
			continue
		}
		pending = append(pending, p)
	}

	return pending, nil
}

// Remove deletes queue entries by ID.
func (sq *ScreenshotQueue) Remove(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := "DELETE FROM pending_screenshots WHERE id IN ("
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "?"
		args[i] = id
	}
	query += ")"

	result, err := sq.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to remove screenshots: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	sq.logger.Debug("Screenshots removed from queue",
		zap.Int64("count", rowsAffected),
	)

	return nil
}

// IncrementRetry bumps the retry count for the given entries.
func (sq *ScreenshotQueue) IncrementRetry(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := "UPDATE pending_screenshots SET retry_count = retry_count + 1, last_attempt = ? WHERE id IN ("
	args := make([]interface{}, len(ids)+1)
	args[0] = time.Now()
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "?"
		args[i+1] = id
	}
	query += ")"

	_, err := sq.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to increment retry: %w", err)
	}

	return nil
}

// PendingCount returns the number of screenshots awaiting retry.
func (sq *ScreenshotQueue) PendingCount() (int, error) {
	var count int
	err := sq.db.QueryRow(`SELECT COUNT(*) FROM pending_screenshots`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending count: %w", err)
	}
	return count, nil
}

// Cleanup drops entries that have exhausted their retries or whose file no
// longer exists on disk.
func (sq *ScreenshotQueue) Cleanup(maxRetries int) error {
	rows, err := sq.db.Query(`SELECT id, file_path, retry_count FROM pending_screenshots`)
	if err != nil {
		return fmt.Errorf("failed to query pending screenshots: %w", err)
	}
	defer rows.Close()

	var stale []int64
	for rows.Next() {
		var id int64
		var filePath string
		var retryCount int
		if err := rows.Scan(&id, &filePath, &retryCount); err != nil {
			continue
		}
		if retryCount > maxRetries {
			stale = append(stale, id)
			continue
		}
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			stale = append(stale, id)
		}
	}

	if len(stale) == 0 {
		return nil
	}

	if err := sq.Remove(stale); err != nil {
		return err
	}

	sq.logger.Info("Cleaned up stale screenshot queue entries",
		zap.Int("count", len(stale)),
	)
	return nil
}
