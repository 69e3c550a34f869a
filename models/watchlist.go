package models

import "time"

// WatchStatus buckets a watchlist item by viewing progress.
type WatchStatus string

const (
	StatusWatchlist WatchStatus = "watchlist"
	StatusWatching  WatchStatus = "watching"
	StatusWatched   WatchStatus = "watched"
)

// AllStatuses lists the status buckets in display order.
func AllStatuses() []WatchStatus {
	return []WatchStatus{StatusWatchlist, StatusWatching, StatusWatched}
}

// ValidStatus reports whether s names a known status bucket.
func ValidStatus(s WatchStatus) bool {
	switch s {
	case StatusWatchlist, StatusWatching, StatusWatched:
		return true
	}
	return false
}

// WatchlistItem is a saved movie or show together with the user's viewing
// state. Identity is the catalog id. Transient catalog payloads (credits,
// videos, images, similar, recommendations) are never stored on it.
type WatchlistItem struct {
	ID               int64         `json:"id"`
	MediaType        string        `json:"mediaType"` // movie | tv
	Title            string        `json:"title"`
	Overview         string        `json:"overview,omitempty"`
	PosterURL        string        `json:"posterUrl,omitempty"`
	BackdropURL      string        `json:"backdropUrl,omitempty"`
	Year             int           `json:"year,omitempty"`
	Genres           []string      `json:"genres,omitempty"`
	Rating           float64       `json:"rating,omitempty"`
	Runtime          int           `json:"runtime,omitempty"`        // movie minutes
	EpisodeRunTime   int           `json:"episodeRunTime,omitempty"` // tv minutes per episode
	NumberOfEpisodes int           `json:"numberOfEpisodes,omitempty"`
	NumberOfSeasons  int           `json:"numberOfSeasons,omitempty"`
	Watched          bool          `json:"watched,omitempty"`         // movies
	WatchedEpisodes  map[int][]int `json:"watchedEpisodes,omitempty"` // tv: season -> sorted episode numbers
	WatchlistStatus  WatchStatus   `json:"watchlistStatus,omitempty"` // server-computed, wins over derivation
	Tags             []string      `json:"tags,omitempty"`
	AddedAt          time.Time     `json:"addedAt"`
	UpdatedAt        time.Time     `json:"updatedAt,omitempty"`
	Version          int64         `json:"version,omitempty"` // server-assigned, monotonic per item
}

// NewWatchlistItem builds a watchlist entry from a catalog item, dropping
// the transient catalog payloads.
func NewWatchlistItem(c CatalogItem) WatchlistItem {
	return WatchlistItem{
		ID:               c.ID,
		MediaType:        c.MediaType,
		Title:            c.Title,
		Overview:         c.Overview,
		PosterURL:        c.PosterURL,
		BackdropURL:      c.BackdropURL,
		Year:             c.Year,
		Genres:           append([]string(nil), c.Genres...),
		Rating:           c.Rating,
		Runtime:          c.Runtime,
		EpisodeRunTime:   c.EpisodeRunTime,
		NumberOfEpisodes: c.NumberOfEpisodes,
		NumberOfSeasons:  c.NumberOfSeasons,
		AddedAt:          time.Now().UTC(),
	}
}

// Status derives the item's bucket. A server-provided WatchlistStatus takes
// precedence over local derivation.
func (w WatchlistItem) Status() WatchStatus {
	if ValidStatus(w.WatchlistStatus) {
		return w.WatchlistStatus
	}
	if w.MediaType == "movie" {
		if w.Watched {
			return StatusWatched
		}
		return StatusWatchlist
	}
	count := w.WatchedEpisodeCount()
	if count == 0 {
		return StatusWatchlist
	}
	if w.NumberOfEpisodes > 0 && count >= w.NumberOfEpisodes {
		return StatusWatched
	}
	return StatusWatching
}

// WatchedEpisodeCount returns the total watched episodes across seasons.
func (w WatchlistItem) WatchedEpisodeCount() int {
	count := 0
	for _, eps := range w.WatchedEpisodes {
		count += len(eps)
	}
	return count
}

// Progress returns the watched fraction for shows, clamped to [0, 1].
// Movies report 1 when watched and 0 otherwise.
func (w WatchlistItem) Progress() float64 {
	if w.MediaType == "movie" {
		if w.Watched {
			return 1
		}
		return 0
	}
	if w.NumberOfEpisodes <= 0 {
		return 0
	}
	p := float64(w.WatchedEpisodeCount()) / float64(w.NumberOfEpisodes)
	if p > 1 {
		return 1
	}
	return p
}

// HasEpisode reports whether the given episode is marked watched.
func (w WatchlistItem) HasEpisode(season, episode int) bool {
	for _, e := range w.WatchedEpisodes[season] {
		if e == episode {
			return true
		}
	}
	return false
}

// HasTag reports whether the item carries the given tag.
func (w WatchlistItem) HasTag(tag string) bool {
	for _, t := range w.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, so callers can mutate maps and slices without
// aliasing store state.
func (w WatchlistItem) Clone() WatchlistItem {
	out := w
	if w.Genres != nil {
		out.Genres = append([]string(nil), w.Genres...)
	}
	if w.Tags != nil {
		out.Tags = append([]string(nil), w.Tags...)
	}
	if w.WatchedEpisodes != nil {
		out.WatchedEpisodes = make(map[int][]int, len(w.WatchedEpisodes))
		for season, eps := range w.WatchedEpisodes {
			out.WatchedEpisodes[season] = append([]int(nil), eps...)
		}
	}
	return out
}

// WatchlistPage is one page of a status bucket from the server.
type WatchlistPage struct {
	Items      []WatchlistItem `json:"items"`
	TotalCount int             `json:"totalCount"`
	Page       int             `json:"page"`
	HasMore    bool            `json:"hasMore"`
}

// WatchStats summarizes the whole watchlist.
type WatchStats struct {
	TotalItems            int          `json:"totalItems"`
	WatchlistCount        int          `json:"watchlistCount"`
	WatchingCount         int          `json:"watchingCount"`
	WatchedCount          int          `json:"watchedCount"`
	TotalWatchTimeMinutes int          `json:"totalWatchTimeMinutes"`
	CompletionRate        float64      `json:"completionRate"`
	AverageRating         float64      `json:"averageRating"`
	TopGenres             []GenreCount `json:"topGenres"`
}

// GenreCount pairs a genre with how many items carry it.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}
