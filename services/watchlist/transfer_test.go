package watchlist_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"watchdeck/models"
	"watchdeck/services/watchlist"
)

func TestExportFileNameIsDateStamped(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	if got := watchlist.ExportFileName(now); got != "watchdeck-export-2026-03-14.json" {
		t.Fatalf("unexpected export name %q", got)
	}
}

func TestExportToFileWritesJSONArray(t *testing.T) {
	backend := newFakeBackend()
	show := mkShow(2, "Show Two", 8)
	show.WatchedEpisodes = map[int][]int{1: {1, 2}}
	show.Tags = []string{"weekend"}
	store := seedLoadedStore(t, backend, mkMovie(1, "Movie One"), show)

	fs := afero.NewMemMapFs()
	path, err := store.ExportToFile(fs, "/exports")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.HasPrefix(path, "/exports/watchdeck-export-") {
		t.Fatalf("unexpected export path %q", path)
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var items []models.WatchlistItem
	if err := json.Unmarshal(data, &items); err != nil {
		t.Fatalf("export is not a JSON array of items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 exported items, got %d", len(items))
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	backend := newFakeBackend()
	show := mkShow(2, "Show Two", 8)
	show.WatchedEpisodes = map[int][]int{1: {1, 3}, 2: {5}}
	show.Tags = []string{"noir"}
	movie := mkMovie(1, "Movie One")
	movie.Watched = true
	store := seedLoadedStore(t, backend, movie, show)

	data, err := store.ExportJSON()
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	fresh := watchlist.NewStore(newFakeBackend(), nil)
	count, err := fresh.Import(context.Background(), data)
	if err != nil {
		t.Fatalf("import of our own export failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 imported items, got %d", count)
	}

	got, ok := fresh.Get(2)
	if !ok {
		t.Fatal("expected show to survive the round trip")
	}
	if len(got.WatchedEpisodes[1]) != 2 || got.WatchedEpisodes[2][0] != 5 {
		t.Fatalf("expected watched episodes to survive, got %v", got.WatchedEpisodes)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "noir" {
		t.Fatalf("expected tags to survive, got %v", got.Tags)
	}

	gotMovie, _ := fresh.Get(1)
	if !gotMovie.Watched {
		t.Fatal("expected movie watched flag to survive")
	}
}

func TestImportReplacesEverything(t *testing.T) {
	backend := newFakeBackend()
	store := seedLoadedStore(t, backend, mkMovie(1, "Old One"), mkMovie(2, "Old Two"))

	payload, _ := json.Marshal([]models.WatchlistItem{mkMovie(10, "New Ten"), mkShow(11, "New Eleven", 4)})
	count, err := store.Import(context.Background(), payload)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 stored items, got %d", count)
	}

	if store.Has(1) || store.Has(2) {
		t.Fatal("expected prior items to be replaced")
	}
	if !store.Has(10) || !store.Has(11) {
		t.Fatal("expected imported items to be present")
	}

	cur, _ := store.CursorFor(models.StatusWatchlist)
	if cur.HasMore {
		t.Fatal("expected cursors marked complete after a full replacement")
	}
	if store.PendingCount() != 0 {
		t.Fatal("expected pending set cleared by the replacement")
	}
}

func TestImportRejectsNonArrayPayload(t *testing.T) {
	backend := newFakeBackend()
	store := seedLoadedStore(t, backend, mkMovie(1, "Keep Me"))

	_, err := store.Import(context.Background(), []byte(`{"items": []}`))
	if !errors.Is(err, watchlist.ErrImportInvalid) {
		t.Fatalf("expected ErrImportInvalid, got %v", err)
	}
	if backend.importCalls != 0 {
		t.Fatal("expected no server call for an invalid payload")
	}
	if !store.Has(1) {
		t.Fatal("expected prior state untouched")
	}
}

func TestImportRejectsBinaryPayload(t *testing.T) {
	store := watchlist.NewStore(newFakeBackend(), nil)

	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}
	if _, err := store.Import(context.Background(), png); !errors.Is(err, watchlist.ErrImportInvalid) {
		t.Fatalf("expected ErrImportInvalid for binary payload, got %v", err)
	}
}

func TestImportRejectsUnknownMediaType(t *testing.T) {
	store := watchlist.NewStore(newFakeBackend(), nil)

	payload := []byte(`[{"id": 5, "mediaType": "podcast", "title": "Nope"}]`)
	if _, err := store.Import(context.Background(), payload); !errors.Is(err, watchlist.ErrImportInvalid) {
		t.Fatalf("expected ErrImportInvalid, got %v", err)
	}
}

func TestImportServerFailureLeavesStateUntouched(t *testing.T) {
	backend := newFakeBackend()
	store := seedLoadedStore(t, backend, mkMovie(1, "Keep Me"))
	backend.importErr = errors.New("server rejected import")

	payload, _ := json.Marshal([]models.WatchlistItem{mkMovie(10, "New")})
	if _, err := store.Import(context.Background(), payload); err == nil {
		t.Fatal("expected import to fail")
	}

	if !store.Has(1) || store.Has(10) {
		t.Fatal("expected local state untouched after server rejection")
	}
	if store.LastError() == "" {
		t.Fatal("expected error slot to record the failure")
	}
}
