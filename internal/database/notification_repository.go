package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"watchdeck/models"
)

// ErrNotificationNotFound is returned when an operation targets a
// notification id that is not in the inbox.
var ErrNotificationNotFound = errors.New("notification not found")

const defaultNotificationLimit = 50

// NotificationRepository persists the notification inbox.
type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Insert stores a notification. Re-delivered ids (the realtime channel
// may replay events after a reconnect) are ignored.
func (r *NotificationRepository) Insert(n models.Notification) error {
	var itemID any
	if n.ItemID != 0 {
		itemID = n.ItemID
	}
	_, err := r.db.Exec(`
		INSERT OR IGNORE INTO notifications (id, type, title, message, item_id, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.Type, n.Title, n.Message, itemID, boolToInt(n.Read), n.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// List returns notifications newest first. A non-positive limit falls
// back to the default.
func (r *NotificationRepository) List(limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}

	rows, err := r.db.Query(`
		SELECT id, type, title, message, item_id, read, created_at
		FROM notifications
		ORDER BY created_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var list []models.Notification
	for rows.Next() {
		var n models.Notification
		var itemID sql.NullInt64
		var read int
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &itemID, &read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		if itemID.Valid {
			n.ItemID = itemID.Int64
		}
		n.Read = read != 0
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notification rows: %w", err)
	}
	return list, nil
}

func (r *NotificationRepository) UnreadCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM notifications WHERE read = 0").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (r *NotificationRepository) MarkRead(id string) error {
	result, err := r.db.Exec("UPDATE notifications SET read = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return requireRow(result)
}

func (r *NotificationRepository) MarkAllRead() error {
	if _, err := r.db.Exec("UPDATE notifications SET read = 1 WHERE read = 0"); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

func (r *NotificationRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM notifications WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return requireRow(result)
}

// Purge removes notifications created before the cutoff and reports how
// many were removed.
func (r *NotificationRepository) Purge(olderThan time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM notifications WHERE created_at < ?", olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge notifications: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count purged notifications: %w", err)
	}
	return removed, nil
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
