package handlers_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"watchdeck/handlers"
	"watchdeck/models"
)

func TestTransferExportAttachment(t *testing.T) {
	backend := newFakeBackend()
	store := loadedStore(t, backend, movieItem(1, "First", false), movieItem(2, "Second", true))
	h := handlers.NewTransferHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/watchlist/export", nil)
	rec := httptest.NewRecorder()
	h.Export(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	disposition := rec.Header().Get("Content-Disposition")
	if !strings.Contains(disposition, "watchdeck-export-") || !strings.Contains(disposition, ".json") {
		t.Fatalf("unexpected Content-Disposition: %q", disposition)
	}

	var items []models.WatchlistItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("export is not a JSON array: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 exported items, got %d", len(items))
	}
}

func TestTransferImportReplacesWatchlist(t *testing.T) {
	backend := newFakeBackend()
	store := loadedStore(t, backend, movieItem(1, "Old", false))
	h := handlers.NewTransferHandler(store)

	payload, _ := json.Marshal([]models.WatchlistItem{
		movieItem(20, "Imported One", false),
		movieItem(21, "Imported Two", true),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/watchlist/import", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Import(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Imported int `json:"imported"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode import response: %v", err)
	}
	if resp.Imported != 2 {
		t.Fatalf("expected 2 imported items, got %d", resp.Imported)
	}
	if store.Has(1) {
		t.Fatal("expected import to drop the previous watchlist")
	}
	if !store.Has(20) || !store.Has(21) {
		t.Fatal("expected imported items to be present")
	}
}

func TestTransferImportRejectsNonArray(t *testing.T) {
	backend := newFakeBackend()
	store := loadedStore(t, backend, movieItem(1, "Keep", false))
	h := handlers.NewTransferHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/api/watchlist/import", strings.NewReader(`{"items":[]}`))
	rec := httptest.NewRecorder()
	h.Import(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if !store.Has(1) {
		t.Fatal("expected a rejected import to leave the watchlist untouched")
	}
}

func TestTransferImportRejectsBinary(t *testing.T) {
	backend := newFakeBackend()
	store := loadedStore(t, backend, movieItem(1, "Keep", false))
	h := handlers.NewTransferHandler(store)

	body := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)
	req := httptest.NewRequest(http.MethodPost, "/api/watchlist/import", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Import(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if !store.Has(1) {
		t.Fatal("expected a rejected import to leave the watchlist untouched")
	}
}

func TestTransferImportMultipartField(t *testing.T) {
	backend := newFakeBackend()
	store := loadedStore(t, backend)
	h := handlers.NewTransferHandler(store)

	payload, _ := json.Marshal([]models.WatchlistItem{movieItem(30, "Uploaded", false)})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "watchdeck-export-2026-01-01.json")
	if err != nil {
		t.Fatalf("failed to build multipart body: %v", err)
	}
	if _, err := fw.Write(payload); err != nil {
		t.Fatalf("failed to build multipart body: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/watchlist/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Import(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !store.Has(30) {
		t.Fatal("expected the uploaded item to be imported")
	}
}
