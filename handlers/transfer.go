package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"watchdeck/services/watchlist"
)

// Import payloads are whole watchlists, but a watchlist is thousands of
// items at most.
const maxImportBytes = 10 << 20

type transferStore interface {
	ExportJSON() ([]byte, error)
	Import(ctx context.Context, data []byte) (int, error)
}

var _ transferStore = (*watchlist.Store)(nil)

type TransferHandler struct {
	Store transferStore
}

func NewTransferHandler(store transferStore) *TransferHandler {
	return &TransferHandler{Store: store}
}

// Export downloads the watchlist as a date-stamped JSON attachment.
func (h *TransferHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.Store.ExportJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+watchlist.ExportFileName(time.Now().UTC())+`"`)
	w.Write(data)
}

// Import replaces the watchlist with an uploaded export. It accepts the
// export either as the raw request body or as a multipart "file" field, so
// both fetch-with-JSON clients and plain HTML forms work.
func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := importPayload(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	count, err := h.Store.Import(r.Context(), data)
	if err != nil {
		code := upstreamStatus(err)
		if errors.Is(err, watchlist.ErrImportInvalid) {
			code = http.StatusBadRequest
		}
		http.Error(w, err.Error(), code)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"imported": count,
	})
}

func (h *TransferHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func importPayload(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, errors.New("multipart upload needs a \"file\" field")
		}
		defer file.Close()
		return io.ReadAll(io.LimitReader(file, maxImportBytes))
	}
	return io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
}
