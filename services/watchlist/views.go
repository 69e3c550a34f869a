package watchlist

import (
	"sort"
	"strings"

	"github.com/mozillazg/go-unidecode"

	"watchdeck/models"
)

// Buckets groups the watchlist by derived status in insertion order. A
// non-empty tag keeps only items carrying that tag.
func (s *Store) Buckets(tag string) map[models.WatchStatus][]models.WatchlistItem {
	tag = strings.TrimSpace(tag)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[models.WatchStatus][]models.WatchlistItem, 3)
	for _, status := range models.AllStatuses() {
		out[status] = []models.WatchlistItem{}
	}
	for _, item := range s.items {
		if tag != "" && !item.HasTag(tag) {
			continue
		}
		status := item.Status()
		out[status] = append(out[status], item.Clone())
	}
	return out
}

// ByStatus returns one bucket, optionally tag-filtered.
func (s *Store) ByStatus(status models.WatchStatus, tag string) []models.WatchlistItem {
	tag = strings.TrimSpace(tag)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.WatchlistItem{}
	for _, item := range s.items {
		if item.Status() != status {
			continue
		}
		if tag != "" && !item.HasTag(tag) {
			continue
		}
		out = append(out, item.Clone())
	}
	return out
}

// Tags returns every distinct tag in use, sorted.
func (s *Store) Tags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, item := range s.items {
		for _, tag := range item.Tags {
			seen[tag] = struct{}{}
		}
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// ProgressMap returns id -> watched fraction for every show.
func (s *Store) ProgressMap() map[int64]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]float64)
	for _, item := range s.items {
		if item.MediaType != "tv" {
			continue
		}
		out[item.ID] = item.Progress()
	}
	return out
}

// FilterLocal returns items whose title contains the query, compared on
// romanized lower-cased text so "Amelie" still finds "Amélie".
func (s *Store) FilterLocal(query string) []models.WatchlistItem {
	needle := normalizeTitle(query)
	if needle == "" {
		return s.Items()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.WatchlistItem{}
	for _, item := range s.items {
		if strings.Contains(normalizeTitle(item.Title), needle) {
			out = append(out, item.Clone())
		}
	}
	return out
}

func normalizeTitle(s string) string {
	return strings.ToLower(strings.TrimSpace(unidecode.Unidecode(s)))
}
