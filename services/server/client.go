package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"watchdeck/models"
)

// ErrUnauthorized is returned when the server rejects our token.
var ErrUnauthorized = errors.New("not authenticated")

// Client is a thin typed wrapper over the watchdeck server REST API. It
// keeps no state beyond the base URL and a token source; it never retries
// and never caches. Non-2xx responses become errors carrying the server's
// own message.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      func() string
}

// NewClient creates a server API client. token is consulted on every
// request so a login that happens after construction is picked up
// automatically.
func NewClient(baseURL string, token func() string) *Client {
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// setHeaders adds the JSON content type and the bearer token when present.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
}

// apiError turns a non-2xx response into an error carrying the server's
// message. The server answers errors as {"error": "..."}; anything else
// falls back to status plus raw body.
func apiError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("%s failed: %s", op, payload.Error)
	}
	return fmt.Errorf("%s failed: %s - %s", op, resp.Status, strings.TrimSpace(string(body)))
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("server request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(method+" "+path, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Register creates an account and returns the session token plus user.
func (c *Client) Register(ctx context.Context, email, password, name string) (models.AuthResponse, error) {
	payload := map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	}
	var auth models.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", payload, &auth); err != nil {
		return models.AuthResponse{}, err
	}
	return auth, nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (models.AuthResponse, error) {
	payload := map[string]string{
		"email":    email,
		"password": password,
	}
	var auth models.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", payload, &auth); err != nil {
		return models.AuthResponse{}, err
	}
	return auth, nil
}

// Me returns the account behind the current token.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	var user models.User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// ChangePassword updates the account password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	payload := map[string]string{
		"currentPassword": current,
		"newPassword":     next,
	}
	return c.doJSON(ctx, http.MethodPut, "/auth/password", payload, nil)
}

// DeleteAccount removes the account and everything stored under it.
func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/auth/account", nil, nil)
}

// FetchWatchlist retrieves the complete watchlist in one response.
func (c *Client) FetchWatchlist(ctx context.Context) ([]models.WatchlistItem, error) {
	var items []models.WatchlistItem
	if err := c.doJSON(ctx, http.MethodGet, "/watchlist", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// FetchByStatus retrieves one page of a status bucket. Limit falls back to
// 20 when not positive, matching the server default.
func (c *Client) FetchByStatus(ctx context.Context, status models.WatchStatus, page, limit int) (models.WatchlistPage, error) {
	if !models.ValidStatus(status) {
		return models.WatchlistPage{}, fmt.Errorf("unknown status %q", status)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	path := fmt.Sprintf("/watchlist/status/%s?page=%d&limit=%d", status, page, limit)
	var result models.WatchlistPage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return models.WatchlistPage{}, err
	}
	return result, nil
}

// UpsertItem stores the item and returns the server's copy with its stamped
// version and updatedAt.
func (c *Client) UpsertItem(ctx context.Context, item models.WatchlistItem) (models.WatchlistItem, error) {
	var stored models.WatchlistItem
	path := fmt.Sprintf("/watchlist/%d", item.ID)
	if err := c.doJSON(ctx, http.MethodPut, path, item, &stored); err != nil {
		return models.WatchlistItem{}, err
	}
	return stored, nil
}

// DeleteItem removes one item.
func (c *Client) DeleteItem(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/watchlist/%d", id), nil, nil)
}

// Import replaces the account's entire watchlist with the given items and
// returns the stored list.
func (c *Client) Import(ctx context.Context, items []models.WatchlistItem) ([]models.WatchlistItem, error) {
	var stored []models.WatchlistItem
	if err := c.doJSON(ctx, http.MethodPost, "/watchlist/import", items, &stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// Recommendations returns the server-computed recommendation list. When
// refresh is set the server recomputes instead of serving its cache.
func (c *Client) Recommendations(ctx context.Context, refresh bool) ([]models.CatalogItem, error) {
	path := "/watchlist/recommendations"
	if refresh {
		path += "?refresh=true"
	}
	var items []models.CatalogItem
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// StorageStats returns the account's server-side storage usage.
func (c *Client) StorageStats(ctx context.Context) (models.StorageStats, error) {
	var stats models.StorageStats
	if err := c.doJSON(ctx, http.MethodGet, "/stats/storage", nil, &stats); err != nil {
		return models.StorageStats{}, err
	}
	return stats, nil
}
