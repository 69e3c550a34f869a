package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"watchdeck/models"
	"watchdeck/services/server"
)

func staticToken(tok string) func() string {
	return func() string { return tok }
}

func TestBearerTokenIsConsultedPerRequest(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(models.User{ID: "u1"})
	}))
	defer srv.Close()

	token := "first"
	client := server.NewClient(srv.URL, func() string { return token })

	if _, err := client.Me(context.Background()); err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	token = "second"
	if _, err := client.Me(context.Background()); err != nil {
		t.Fatalf("Me failed: %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(seen))
	}
	if seen[0] != "Bearer first" || seen[1] != "Bearer second" {
		t.Fatalf("expected token source to be consulted per request, got %v", seen)
	}
}

func TestNoAuthorizationHeaderWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("expected no Authorization header, got %q", auth)
		}
		json.NewEncoder(w).Encode(models.AuthResponse{Token: "fresh", User: models.User{ID: "u1"}})
	}))
	defer srv.Close()

	client := server.NewClient(srv.URL, staticToken(""))
	auth, err := client.Login(context.Background(), "me@example.com", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if auth.Token != "fresh" {
		t.Fatalf("expected decoded token, got %q", auth.Token)
	}
}

func TestLoginSendsCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["email"] != "me@example.com" || body["password"] != "secret" {
			t.Errorf("unexpected credentials %v", body)
		}
		json.NewEncoder(w).Encode(models.AuthResponse{Token: "tok"})
	}))
	defer srv.Close()

	client := server.NewClient(srv.URL, staticToken(""))
	if _, err := client.Login(context.Background(), "me@example.com", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
}

func TestFetchByStatusBuildsPathAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/watchlist/status/watching" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("limit") != "5" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(models.WatchlistPage{
			Items:      []models.WatchlistItem{{ID: 1, MediaType: "movie", Title: "Heat"}},
			TotalCount: 11,
			Page:       2,
			HasMore:    true,
		})
	}))
	defer srv.Close()

	client := server.NewClient(srv.URL, staticToken("tok"))
	page, err := client.FetchByStatus(context.Background(), models.StatusWatching, 2, 5)
	if err != nil {
		t.Fatalf("FetchByStatus failed: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Title != "Heat" {
		t.Fatalf("unexpected page items %+v", page.Items)
	}
	if !page.HasMore || page.TotalCount != 11 {
		t.Fatalf("unexpected page meta %+v", page)
	}
}

func TestFetchByStatusDefaultsPaging(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("page") != "1" || q.Get("limit") != "20" {
			t.Errorf("expected default paging, got %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(models.WatchlistPage{})
	}))
	defer srv.Close()

	client := server.NewClient(srv.URL, staticToken("tok"))
	if _, err := client.FetchByStatus(context.Background(), models.StatusWatchlist, 0, -3); err != nil {
		t.Fatalf("FetchByStatus failed: %v", err)
	}
}

func TestFetchByStatusRejectsUnknownStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("expected no request for invalid status")
	}))
	defer srv.Close()

	client := server.NewClient(srv.URL, staticToken("tok"))
	if _, err := client.FetchByStatus(context.Background(), "paused", 1, 20); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestUpsertItemReturnsServerCopy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/watchlist/42" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var item models.WatchlistItem
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			t.Errorf("decode body: %v", err)
		}
		item.Version = 7
		json.NewEncoder(w).Encode(item)
	}))
	defer srv.Close()

	client := server.NewClient(srv.URL, staticToken("tok"))
	stored, err := client.UpsertItem(context.Background(), models.WatchlistItem{ID: 42, MediaType: "movie", Title: "Alien"})
	if err != nil {
		t.Fatalf("UpsertItem failed: %v", err)
	}
	if stored.Version != 7 {
		t.Fatalf("expected server-stamped version, got %d", stored.Version)
	}
	if stored.Title != "Alien" {
		t.Fatalf("expected echoed body, got %q", stored.Title)
	}
}

func TestDeleteItem(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if r.Method != http.MethodDelete || r.URL.Path != "/watchlist/9" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := server.NewClient(srv.URL, staticToken("tok"))
	if err := client.DeleteItem(context.Background(), 9); err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}
	if !called {
		t.Fatal("expected delete request")
	}
}

func TestImportSendsItemsAndDecodesStoredList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/watchlist/import" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var items []models.WatchlistItem
		if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
			t.Errorf("decode body: %v", err)
		}
		for i := range items {
			items[i].Version = int64(i) + 100
		}
		json.NewEncoder(w).Encode(items)
	}))
	defer srv.Close()

	client := server.NewClient(srv.URL, staticToken("tok"))
	stored, err := client.Import(context.Background(), []models.WatchlistItem{
		{ID: 1, MediaType: "movie", Title: "One"},
		{ID: 2, MediaType: "tv", Title: "Two"},
	})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(stored) != 2 || stored[0].Version != 100 || stored[1].Version != 101 {
		t.Fatalf("expected stamped stored list, got %+v", stored)
	}
}

func TestRecommendationsRefreshParam(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		json.NewEncoder(w).Encode([]models.CatalogItem{{ID: 1, MediaType: "movie"}})
	}))
	defer srv.Close()

	client := server.NewClient(srv.URL, staticToken("tok"))
	if _, err := client.Recommendations(context.Background(), false); err != nil {
		t.Fatalf("Recommendations failed: %v", err)
	}
	if _, err := client.Recommendations(context.Background(), true); err != nil {
		t.Fatalf("Recommendations failed: %v", err)
	}

	if len(queries) != 2 || queries[0] != "" || queries[1] != "refresh=true" {
		t.Fatalf("unexpected queries %v", queries)
	}
}

func TestStorageStatsDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stats/storage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(models.StorageStats{ItemCount: 12, SizeBytes: 4096, LimitBytes: 1 << 20})
	}))
	defer srv.Close()

	client := server.NewClient(srv.URL, staticToken("tok"))
	stats, err := client.StorageStats(context.Background())
	if err != nil {
		t.Fatalf("StorageStats failed: %v", err)
	}
	if stats.ItemCount != 12 || stats.SizeBytes != 4096 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestServerErrorMessageSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "storage limit exceeded"})
	}))
	defer srv.Close()

	client := server.NewClient(srv.URL, staticToken("tok"))
	_, err := client.UpsertItem(context.Background(), models.WatchlistItem{ID: 1, MediaType: "movie"})
	if err == nil {
		t.Fatal("expected error from 400 response")
	}
	if !strings.Contains(err.Error(), "storage limit exceeded") {
		t.Fatalf("expected server message in error, got %v", err)
	}
}

func TestNonJSONErrorFallsBackToStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	client := server.NewClient(srv.URL, staticToken("tok"))
	_, err := client.FetchWatchlist(context.Background())
	if err == nil {
		t.Fatal("expected error from 502 response")
	}
	if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "upstream exploded") {
		t.Fatalf("expected status and body in error, got %v", err)
	}
}

func TestUnauthorizedMapsToSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "token expired"})
	}))
	defer srv.Close()

	client := server.NewClient(srv.URL, staticToken("stale"))
	_, err := client.FetchWatchlist(context.Background())
	if !errors.Is(err, server.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
