package watchlist_test

import (
	"testing"

	"watchdeck/models"
)

func TestBucketsGroupByDerivedStatus(t *testing.T) {
	backend := newFakeBackend()
	watched := mkMovie(1, "Done Movie")
	watched.Watched = true
	inProgress := mkShow(2, "Ongoing Show", 10)
	inProgress.WatchedEpisodes = map[int][]int{1: {1, 2}}
	fresh := mkShow(3, "Untouched Show", 8)
	store := seedLoadedStore(t, backend, watched, inProgress, fresh)

	buckets := store.Buckets("")
	if got := len(buckets[models.StatusWatched]); got != 1 {
		t.Fatalf("expected 1 watched item, got %d", got)
	}
	if got := len(buckets[models.StatusWatching]); got != 1 {
		t.Fatalf("expected 1 watching item, got %d", got)
	}
	if got := len(buckets[models.StatusWatchlist]); got != 1 {
		t.Fatalf("expected 1 watchlist item, got %d", got)
	}
}

func TestServerStatusWinsOverDerivation(t *testing.T) {
	backend := newFakeBackend()
	item := mkShow(2, "Show", 10)
	item.WatchedEpisodes = map[int][]int{1: {1}}
	item.WatchlistStatus = models.StatusWatched
	store := seedLoadedStore(t, backend, item)

	buckets := store.Buckets("")
	if got := len(buckets[models.StatusWatched]); got != 1 {
		t.Fatalf("expected server-provided status to win, watched bucket has %d", got)
	}
}

func TestBucketsTagFilter(t *testing.T) {
	backend := newFakeBackend()
	tagged := mkMovie(1, "Tagged")
	tagged.Tags = []string{"family"}
	other := mkMovie(2, "Other")
	store := seedLoadedStore(t, backend, tagged, other)

	buckets := store.Buckets("family")
	if got := len(buckets[models.StatusWatchlist]); got != 1 {
		t.Fatalf("expected only the tagged item, got %d", got)
	}
	if buckets[models.StatusWatchlist][0].ID != 1 {
		t.Fatal("expected the tagged item to survive the filter")
	}
}

func TestTagsAreDistinctAndSorted(t *testing.T) {
	backend := newFakeBackend()
	a := mkMovie(1, "A")
	a.Tags = []string{"zebra", "alpha"}
	b := mkMovie(2, "B")
	b.Tags = []string{"alpha"}
	store := seedLoadedStore(t, backend, a, b)

	tags := store.Tags()
	if len(tags) != 2 || tags[0] != "alpha" || tags[1] != "zebra" {
		t.Fatalf("expected [alpha zebra], got %v", tags)
	}
}

func TestProgressMapCoversShowsOnly(t *testing.T) {
	backend := newFakeBackend()
	show := mkShow(2, "Show", 10)
	show.WatchedEpisodes = map[int][]int{1: {1, 2, 3, 4, 5}}
	store := seedLoadedStore(t, backend, mkMovie(1, "Movie"), show)

	progress := store.ProgressMap()
	if _, ok := progress[1]; ok {
		t.Fatal("expected movies to be absent from the progress map")
	}
	if got := progress[2]; got != 0.5 {
		t.Fatalf("expected 0.5 progress, got %v", got)
	}
}

func TestFilterLocalIsDiacriticsInsensitive(t *testing.T) {
	backend := newFakeBackend()
	store := seedLoadedStore(t, backend, mkMovie(1, "Amélie"), mkMovie(2, "Dune"))

	matches := store.FilterLocal("amelie")
	if len(matches) != 1 || matches[0].ID != 1 {
		t.Fatalf("expected romanized match for Amélie, got %v", matches)
	}

	if got := len(store.FilterLocal("")); got != 2 {
		t.Fatalf("expected blank query to return everything, got %d", got)
	}
}
