package watchlist

import (
	"sort"

	"watchdeck/models"
)

// Stats computes summary numbers over the current watchlist. Watch time
// counts a movie's runtime once it is watched and a show's per-episode
// runtime for every watched episode.
func (s *Store) Stats() models.WatchStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.WatchStats{TotalItems: len(s.items)}
	genres := make(map[string]int)
	ratingSum := 0.0
	rated := 0

	for _, item := range s.items {
		switch item.Status() {
		case models.StatusWatchlist:
			stats.WatchlistCount++
		case models.StatusWatching:
			stats.WatchingCount++
		case models.StatusWatched:
			stats.WatchedCount++
		}

		if item.MediaType == "movie" {
			if item.Watched {
				stats.TotalWatchTimeMinutes += item.Runtime
			}
		} else {
			stats.TotalWatchTimeMinutes += item.EpisodeRunTime * item.WatchedEpisodeCount()
		}

		if item.Rating > 0 {
			ratingSum += item.Rating
			rated++
		}
		for _, genre := range item.Genres {
			genres[genre]++
		}
	}

	if stats.TotalItems > 0 {
		stats.CompletionRate = float64(stats.WatchedCount) / float64(stats.TotalItems)
	}
	if rated > 0 {
		stats.AverageRating = ratingSum / float64(rated)
	}
	stats.TopGenres = topGenres(genres, 5)
	return stats
}

// topGenres returns the n most common genres, ties broken alphabetically so
// the order is stable.
func topGenres(counts map[string]int, n int) []models.GenreCount {
	out := make([]models.GenreCount, 0, len(counts))
	for genre, count := range counts {
		out = append(out, models.GenreCount{Genre: genre, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Genre < out[j].Genre
		}
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
