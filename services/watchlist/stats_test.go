package watchlist_test

import (
	"math"
	"testing"
)

func TestStatsWatchTimeAndCounts(t *testing.T) {
	backend := newFakeBackend()

	watchedMovie := mkMovie(1, "Watched Movie") // 120 min runtime
	watchedMovie.Watched = true
	unwatchedMovie := mkMovie(2, "Unwatched Movie")
	show := mkShow(3, "Show", 10) // 45 min per episode
	show.WatchedEpisodes = map[int][]int{1: {1, 2, 3}}

	store := seedLoadedStore(t, backend, watchedMovie, unwatchedMovie, show)
	stats := store.Stats()

	if stats.TotalItems != 3 {
		t.Fatalf("expected 3 total items, got %d", stats.TotalItems)
	}
	if stats.WatchedCount != 1 || stats.WatchingCount != 1 || stats.WatchlistCount != 1 {
		t.Fatalf("unexpected bucket counts: %+v", stats)
	}

	// 120 for the watched movie plus 3 episodes at 45 minutes.
	if want := 120 + 3*45; stats.TotalWatchTimeMinutes != want {
		t.Fatalf("expected %d minutes, got %d", want, stats.TotalWatchTimeMinutes)
	}

	if math.Abs(stats.CompletionRate-1.0/3.0) > 1e-9 {
		t.Fatalf("expected completion rate 1/3, got %v", stats.CompletionRate)
	}
}

func TestStatsAverageRatingSkipsUnrated(t *testing.T) {
	backend := newFakeBackend()
	a := mkMovie(1, "Rated A")
	a.Rating = 8
	b := mkMovie(2, "Rated B")
	b.Rating = 6
	c := mkMovie(3, "Unrated")

	store := seedLoadedStore(t, backend, a, b, c)
	stats := store.Stats()

	if stats.AverageRating != 7 {
		t.Fatalf("expected average 7 over rated items only, got %v", stats.AverageRating)
	}
}

func TestStatsTopGenres(t *testing.T) {
	backend := newFakeBackend()
	a := mkMovie(1, "A")
	a.Genres = []string{"Drama", "Crime"}
	b := mkMovie(2, "B")
	b.Genres = []string{"Drama"}
	c := mkMovie(3, "C")
	c.Genres = []string{"Comedy"}

	store := seedLoadedStore(t, backend, a, b, c)
	stats := store.Stats()

	if len(stats.TopGenres) != 3 {
		t.Fatalf("expected 3 genres, got %d", len(stats.TopGenres))
	}
	if stats.TopGenres[0].Genre != "Drama" || stats.TopGenres[0].Count != 2 {
		t.Fatalf("expected Drama first with count 2, got %+v", stats.TopGenres[0])
	}
	// Ties break alphabetically for a stable order.
	if stats.TopGenres[1].Genre != "Comedy" || stats.TopGenres[2].Genre != "Crime" {
		t.Fatalf("expected alphabetical tie-break, got %+v", stats.TopGenres[1:])
	}
}

func TestStatsEmptyWatchlist(t *testing.T) {
	store := seedLoadedStore(t, newFakeBackend())
	stats := store.Stats()

	if stats.TotalItems != 0 || stats.CompletionRate != 0 || stats.AverageRating != 0 {
		t.Fatalf("expected zeroed stats for empty watchlist, got %+v", stats)
	}
	if len(stats.TopGenres) != 0 {
		t.Fatalf("expected no genres, got %v", stats.TopGenres)
	}
}
