package models

// Catalog structures as the rest of the app consumes them. The catalog
// service maps raw remote responses into these shapes; image paths arrive
// already resolved to full URLs.

// CatalogItem is a movie or show as returned by catalog search, trending,
// popular and detail endpoints. Detail lookups fill the appended fields
// (credits, videos, images, similar, recommendations); list endpoints leave
// them empty.
type CatalogItem struct {
	ID               int64    `json:"id"`
	MediaType        string   `json:"mediaType"` // movie | tv
	Title            string   `json:"title"`
	Overview         string   `json:"overview,omitempty"`
	PosterURL        string   `json:"posterUrl,omitempty"`
	BackdropURL      string   `json:"backdropUrl,omitempty"`
	Year             int      `json:"year,omitempty"`
	Genres           []string `json:"genres,omitempty"`
	Rating           float64  `json:"rating,omitempty"`
	Popularity       float64  `json:"popularity,omitempty"`
	Runtime          int      `json:"runtime,omitempty"`        // movie minutes
	EpisodeRunTime   int      `json:"episodeRunTime,omitempty"` // tv minutes per episode
	NumberOfEpisodes int      `json:"numberOfEpisodes,omitempty"`
	NumberOfSeasons  int      `json:"numberOfSeasons,omitempty"`
	Tagline          string   `json:"tagline,omitempty"`
	AirStatus        string   `json:"airStatus,omitempty"` // tv: Returning Series, Ended, ...

	Seasons         []SeasonSummary `json:"seasons,omitempty"`
	Credits         *Credits        `json:"credits,omitempty"`
	Videos          []Video         `json:"videos,omitempty"`
	Images          *ImageSet       `json:"images,omitempty"`
	Similar         []CatalogItem   `json:"similar,omitempty"`
	Recommendations []CatalogItem   `json:"recommendations,omitempty"`
}

// SeasonSummary is the per-season line in a show's detail response.
type SeasonSummary struct {
	SeasonNumber int    `json:"seasonNumber"`
	Name         string `json:"name"`
	EpisodeCount int    `json:"episodeCount"`
	PosterURL    string `json:"posterUrl,omitempty"`
	AirDate      string `json:"airDate,omitempty"`
}

// SeasonDetails carries the full episode list for one season.
type SeasonDetails struct {
	SeasonNumber int       `json:"seasonNumber"`
	Name         string    `json:"name"`
	Overview     string    `json:"overview,omitempty"`
	Episodes     []Episode `json:"episodes"`
}

type Episode struct {
	EpisodeNumber int    `json:"episodeNumber"`
	SeasonNumber  int    `json:"seasonNumber"`
	Name          string `json:"name"`
	Overview      string `json:"overview,omitempty"`
	AirDate       string `json:"airDate,omitempty"`
	Runtime       int    `json:"runtime,omitempty"`
	StillURL      string `json:"stillUrl,omitempty"`
}

type Credits struct {
	Cast []CastMember `json:"cast"`
}

type CastMember struct {
	Name       string `json:"name"`
	Character  string `json:"character,omitempty"`
	ProfileURL string `json:"profileUrl,omitempty"`
}

type Video struct {
	Name     string `json:"name"`
	Site     string `json:"site"` // YouTube, Vimeo
	Key      string `json:"key"`
	Type     string `json:"type"` // Trailer, Teaser, Clip
	Official bool   `json:"official,omitempty"`
}

type ImageSet struct {
	Posters   []ImageFile `json:"posters,omitempty"`
	Backdrops []ImageFile `json:"backdrops,omitempty"`
	Logos     []ImageFile `json:"logos,omitempty"`
}

type ImageFile struct {
	URL      string `json:"url"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Language string `json:"language,omitempty"`
}

// WatchProviders lists where an item can be streamed, rented or bought in
// the user's region.
type WatchProviders struct {
	Link     string          `json:"link,omitempty"`
	Flatrate []WatchProvider `json:"flatrate,omitempty"`
	Rent     []WatchProvider `json:"rent,omitempty"`
	Buy      []WatchProvider `json:"buy,omitempty"`
}

type WatchProvider struct {
	Name    string `json:"name"`
	LogoURL string `json:"logoUrl,omitempty"`
}
