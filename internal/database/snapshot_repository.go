package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"watchdeck/models"
)

// SnapshotRepository persists the last known watchlist so the UI has
// something to show before the first server load completes.
type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// ReplaceAll swaps the stored snapshot for the given items, keeping
// their order.
func (r *SnapshotRepository) ReplaceAll(items []models.WatchlistItem) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM watchlist_snapshot"); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO watchlist_snapshot (id, media_type, payload, position, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, item := range items {
		payload, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encode snapshot item %d: %w", item.ID, err)
		}
		if _, err := stmt.Exec(item.ID, item.MediaType, string(payload), i, now); err != nil {
			return fmt.Errorf("insert snapshot item %d: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot replace: %w", err)
	}
	return nil
}

// Upsert stores a single item. New items land at the end; existing
// items keep their position.
func (r *SnapshotRepository) Upsert(item models.WatchlistItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode snapshot item %d: %w", item.ID, err)
	}

	_, err = r.db.Exec(`
		INSERT INTO watchlist_snapshot (id, media_type, payload, position, updated_at)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM watchlist_snapshot), ?)
		ON CONFLICT(id) DO UPDATE SET
			media_type = excluded.media_type,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, item.ID, item.MediaType, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert snapshot item %d: %w", item.ID, err)
	}
	return nil
}

// Delete removes a single item. Deleting an unknown id is not an error.
func (r *SnapshotRepository) Delete(id int64) error {
	if _, err := r.db.Exec("DELETE FROM watchlist_snapshot WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete snapshot item %d: %w", id, err)
	}
	return nil
}

// LoadAll returns the stored items in their snapshot order. Rows that
// no longer decode are skipped rather than failing the whole load.
func (r *SnapshotRepository) LoadAll() ([]models.WatchlistItem, error) {
	rows, err := r.db.Query("SELECT id, payload FROM watchlist_snapshot ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	var items []models.WatchlistItem
	for rows.Next() {
		var id int64
		var payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		var item models.WatchlistItem
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			logger.Warn("skipping undecodable snapshot row", "id", id, "error", err)
			continue
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return items, nil
}
