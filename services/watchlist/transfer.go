package watchlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"

	"watchdeck/models"
)

// ErrImportInvalid is returned when an uploaded payload is not a watchlist
// export.
var ErrImportInvalid = errors.New("import payload is not a watchlist export")

const exportFilePrefix = "watchdeck-export-"

// ExportJSON renders the watchlist as the portable export format: a plain
// JSON array of items. Transient catalog payloads never live on stored
// items, so the export is importable as-is.
func (s *Store) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(s.Items(), "", "  ")
}

// ExportFileName builds the date-stamped export file name.
func ExportFileName(now time.Time) string {
	return exportFilePrefix + now.Format("2006-01-02") + ".json"
}

// ExportToFile writes the export into dir and returns the full path.
func (s *Store) ExportToFile(fs afero.Fs, dir string) (string, error) {
	data, err := s.ExportJSON()
	if err != nil {
		return "", err
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, ExportFileName(time.Now()))
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// Import replaces the entire watchlist, local and remote, with the given
// export payload. Nothing changes until the server accepts the replacement;
// a rejected import leaves the previous state untouched. It returns the
// number of items stored.
func (s *Store) Import(ctx context.Context, data []byte) (int, error) {
	items, err := ParseImport(data)
	if err != nil {
		s.fail("import watchlist", err)
		return 0, err
	}
	stored, err := s.backend.Import(ctx, items)
	if err != nil {
		s.fail("import watchlist", err)
		return 0, err
	}
	s.ReplaceAll(stored)
	return len(stored), nil
}

// ParseImport checks that the payload is a JSON array of watchlist items
// and sanitizes each entry. Binary uploads are rejected up front by content
// sniffing instead of surfacing a JSON syntax error.
func ParseImport(data []byte) ([]models.WatchlistItem, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrImportInvalid)
	}
	mtype := mimetype.Detect(data)
	if !mtype.Is("application/json") && !mtype.Is("text/plain") {
		return nil, fmt.Errorf("%w: detected %s", ErrImportInvalid, mtype)
	}

	var items []models.WatchlistItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportInvalid, err)
	}

	out := make([]models.WatchlistItem, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for i, item := range items {
		if item.ID == 0 {
			return nil, fmt.Errorf("%w: item %d has no id", ErrImportInvalid, i)
		}
		if item.MediaType != "movie" && item.MediaType != "tv" {
			return nil, fmt.Errorf("%w: item %d has media type %q", ErrImportInvalid, i, item.MediaType)
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		if item.AddedAt.IsZero() {
			item.AddedAt = time.Now().UTC()
		}
		item.Tags = normalizeTags(item.Tags)
		out = append(out, item)
	}
	return out, nil
}
