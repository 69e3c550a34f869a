package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"watchdeck/models"
)

const (
	defaultBaseURL      = "https://api.themoviedb.org/3"
	defaultImageBaseURL = "https://image.tmdb.org/t/p"

	// Fixed render sizes instead of "original" keeps payloads small:
	// posters render at card width, backdrops at 1080p backgrounds.
	posterSize   = "w500"
	backdropSize = "w1280"
	logoSize     = "w500"
	profileSize  = "w185"

	detailAppend = "credits,videos,images,similar,recommendations"
)

// tmdbClient is the raw endpoint layer. It performs exactly one attempt per
// request; transient failures surface to the caller unchanged. The only
// pacing is a client-side limiter kept safely under the catalog's published
// request ceiling.
type tmdbClient struct {
	baseURL      string
	imageBaseURL string
	apiKey       string
	language     string
	region       string
	httpc        *http.Client
	limiter      *rate.Limiter
}

func newTMDBClient(cfg Config, httpc *http.Client) *tmdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	imageBase := strings.TrimRight(cfg.ImageBaseURL, "/")
	if imageBase == "" {
		imageBase = defaultImageBaseURL
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "US"
	}
	return &tmdbClient{
		baseURL:      base,
		imageBaseURL: imageBase,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		language:     normalizeLanguage(cfg.Language),
		region:       region,
		httpc:        httpc,
		limiter:      rate.NewLimiter(rate.Limit(40), 40),
	}
}

func (c *tmdbClient) isConfigured() bool {
	return c != nil && c.apiKey != ""
}

// doGET performs a single rate-limited GET and decodes the JSON body into v.
func (c *tmdbClient) doGET(ctx context.Context, endpoint string, params map[string]string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	q := req.URL.Query()
	q.Set("language", c.language)
	for key, value := range params {
		q.Set(key, value)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("catalog request failed: %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// tmdbListEntry covers movie, tv and multi-search result rows; movie and tv
// variants populate different subsets of the fields.
type tmdbListEntry struct {
	ID           int64   `json:"id"`
	MediaType    string  `json:"media_type"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
	Popularity   float64 `json:"popularity"`
	GenreIDs     []int64 `json:"genre_ids"`
}

type tmdbListResponse struct {
	Page         int             `json:"page"`
	TotalPages   int             `json:"total_pages"`
	TotalResults int             `json:"total_results"`
	Results      []tmdbListEntry `json:"results"`
}

type tmdbGenre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type tmdbCredits struct {
	Cast []struct {
		Name        string `json:"name"`
		Character   string `json:"character"`
		ProfilePath string `json:"profile_path"`
		Order       int    `json:"order"`
	} `json:"cast"`
}

type tmdbVideos struct {
	Results []struct {
		Name     string `json:"name"`
		Key      string `json:"key"`
		Site     string `json:"site"`
		Type     string `json:"type"`
		Official bool   `json:"official"`
	} `json:"results"`
}

type tmdbImageFile struct {
	FilePath string  `json:"file_path"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	ISO6391  string  `json:"iso_639_1"`
	Vote     float64 `json:"vote_average"`
}

type tmdbImages struct {
	Posters   []tmdbImageFile `json:"posters"`
	Backdrops []tmdbImageFile `json:"backdrops"`
	Logos     []tmdbImageFile `json:"logos"`
}

type tmdbDetailResponse struct {
	tmdbListEntry
	Tagline          string      `json:"tagline"`
	Status           string      `json:"status"`
	Runtime          int         `json:"runtime"`
	EpisodeRunTime   []int       `json:"episode_run_time"`
	NumberOfEpisodes int         `json:"number_of_episodes"`
	NumberOfSeasons  int         `json:"number_of_seasons"`
	Genres           []tmdbGenre `json:"genres"`
	Seasons          []struct {
		SeasonNumber int    `json:"season_number"`
		Name         string `json:"name"`
		EpisodeCount int    `json:"episode_count"`
		PosterPath   string `json:"poster_path"`
		AirDate      string `json:"air_date"`
	} `json:"seasons"`
	Credits         *tmdbCredits      `json:"credits"`
	Videos          *tmdbVideos       `json:"videos"`
	Images          *tmdbImages       `json:"images"`
	Similar         *tmdbListResponse `json:"similar"`
	Recommendations *tmdbListResponse `json:"recommendations"`
}

type tmdbSeasonResponse struct {
	SeasonNumber int    `json:"season_number"`
	Name         string `json:"name"`
	Overview     string `json:"overview"`
	Episodes     []struct {
		EpisodeNumber int    `json:"episode_number"`
		SeasonNumber  int    `json:"season_number"`
		Name          string `json:"name"`
		Overview      string `json:"overview"`
		AirDate       string `json:"air_date"`
		Runtime       int    `json:"runtime"`
		StillPath     string `json:"still_path"`
	} `json:"episodes"`
}

type tmdbProviderEntry struct {
	ProviderName string `json:"provider_name"`
	LogoPath     string `json:"logo_path"`
	Priority     int    `json:"display_priority"`
}

type tmdbProvidersResponse struct {
	Results map[string]struct {
		Link     string              `json:"link"`
		Flatrate []tmdbProviderEntry `json:"flatrate"`
		Rent     []tmdbProviderEntry `json:"rent"`
		Buy      []tmdbProviderEntry `json:"buy"`
	} `json:"results"`
}

func (c *tmdbClient) search(ctx context.Context, query string, page int) ([]models.CatalogItem, error) {
	endpoint, err := url.JoinPath(c.baseURL, "search", "multi")
	if err != nil {
		return nil, err
	}
	var payload tmdbListResponse
	params := map[string]string{
		"query":         query,
		"page":          strconv.Itoa(page),
		"include_adult": "false",
	}
	if err := c.doGET(ctx, endpoint, params, &payload); err != nil {
		return nil, err
	}
	return c.mapListEntries(payload.Results, ""), nil
}

func (c *tmdbClient) trending(ctx context.Context) ([]models.CatalogItem, error) {
	endpoint, err := url.JoinPath(c.baseURL, "trending", "all", "week")
	if err != nil {
		return nil, err
	}
	var payload tmdbListResponse
	if err := c.doGET(ctx, endpoint, nil, &payload); err != nil {
		return nil, err
	}
	return c.mapListEntries(payload.Results, ""), nil
}

func (c *tmdbClient) popular(ctx context.Context, mediaType string, page int) ([]models.CatalogItem, error) {
	endpoint, err := url.JoinPath(c.baseURL, mediaType, "popular")
	if err != nil {
		return nil, err
	}
	var payload tmdbListResponse
	if err := c.doGET(ctx, endpoint, map[string]string{"page": strconv.Itoa(page)}, &payload); err != nil {
		return nil, err
	}
	return c.mapListEntries(payload.Results, mediaType), nil
}

func (c *tmdbClient) details(ctx context.Context, mediaType string, id int64) (*models.CatalogItem, error) {
	endpoint, err := url.JoinPath(c.baseURL, mediaType, strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	params := map[string]string{
		"append_to_response":     detailAppend,
		"include_image_language": "en,null",
	}
	var payload tmdbDetailResponse
	if err := c.doGET(ctx, endpoint, params, &payload); err != nil {
		return nil, err
	}

	item := c.mapListEntry(payload.tmdbListEntry, mediaType)
	item.Tagline = payload.Tagline
	item.Runtime = payload.Runtime
	item.NumberOfEpisodes = payload.NumberOfEpisodes
	item.NumberOfSeasons = payload.NumberOfSeasons
	if mediaType == "tv" {
		item.AirStatus = payload.Status
		if len(payload.EpisodeRunTime) > 0 {
			item.EpisodeRunTime = payload.EpisodeRunTime[0]
		}
	}
	if len(payload.Genres) > 0 {
		item.Genres = make([]string, 0, len(payload.Genres))
		for _, g := range payload.Genres {
			item.Genres = append(item.Genres, g.Name)
		}
	}
	for _, s := range payload.Seasons {
		// Season 0 is the specials bucket, not part of watch progress.
		if s.SeasonNumber == 0 {
			continue
		}
		item.Seasons = append(item.Seasons, models.SeasonSummary{
			SeasonNumber: s.SeasonNumber,
			Name:         s.Name,
			EpisodeCount: s.EpisodeCount,
			PosterURL:    c.imageURL(s.PosterPath, posterSize),
			AirDate:      s.AirDate,
		})
	}
	if payload.Credits != nil {
		credits := &models.Credits{}
		for i, member := range payload.Credits.Cast {
			if i >= 20 {
				break
			}
			credits.Cast = append(credits.Cast, models.CastMember{
				Name:       member.Name,
				Character:  member.Character,
				ProfileURL: c.imageURL(member.ProfilePath, profileSize),
			})
		}
		item.Credits = credits
	}
	if payload.Videos != nil {
		for _, v := range payload.Videos.Results {
			if v.Site != "YouTube" {
				continue
			}
			item.Videos = append(item.Videos, models.Video{
				Name:     v.Name,
				Site:     v.Site,
				Key:      v.Key,
				Type:     v.Type,
				Official: v.Official,
			})
		}
	}
	if payload.Images != nil {
		item.Images = &models.ImageSet{
			Posters:   c.mapImageFiles(payload.Images.Posters, posterSize),
			Backdrops: c.mapImageFiles(payload.Images.Backdrops, backdropSize),
			Logos:     c.mapImageFiles(payload.Images.Logos, logoSize),
		}
	}
	if payload.Similar != nil {
		item.Similar = c.mapListEntries(payload.Similar.Results, mediaType)
	}
	if payload.Recommendations != nil {
		item.Recommendations = c.mapListEntries(payload.Recommendations.Results, "")
	}
	return &item, nil
}

func (c *tmdbClient) season(ctx context.Context, tvID int64, seasonNumber int) (*models.SeasonDetails, error) {
	endpoint, err := url.JoinPath(c.baseURL, "tv", strconv.FormatInt(tvID, 10), "season", strconv.Itoa(seasonNumber))
	if err != nil {
		return nil, err
	}
	var payload tmdbSeasonResponse
	if err := c.doGET(ctx, endpoint, nil, &payload); err != nil {
		return nil, err
	}

	season := &models.SeasonDetails{
		SeasonNumber: payload.SeasonNumber,
		Name:         payload.Name,
		Overview:     payload.Overview,
		Episodes:     make([]models.Episode, 0, len(payload.Episodes)),
	}
	for _, e := range payload.Episodes {
		season.Episodes = append(season.Episodes, models.Episode{
			EpisodeNumber: e.EpisodeNumber,
			SeasonNumber:  e.SeasonNumber,
			Name:          e.Name,
			Overview:      e.Overview,
			AirDate:       e.AirDate,
			Runtime:       e.Runtime,
			StillURL:      c.imageURL(e.StillPath, backdropSize),
		})
	}
	return season, nil
}

func (c *tmdbClient) watchProviders(ctx context.Context, mediaType string, id int64) (*models.WatchProviders, error) {
	endpoint, err := url.JoinPath(c.baseURL, mediaType, strconv.FormatInt(id, 10), "watch", "providers")
	if err != nil {
		return nil, err
	}
	var payload tmdbProvidersResponse
	if err := c.doGET(ctx, endpoint, nil, &payload); err != nil {
		return nil, err
	}

	region, ok := payload.Results[c.region]
	if !ok {
		return &models.WatchProviders{}, nil
	}
	return &models.WatchProviders{
		Link:     region.Link,
		Flatrate: c.mapProviders(region.Flatrate),
		Rent:     c.mapProviders(region.Rent),
		Buy:      c.mapProviders(region.Buy),
	}, nil
}

func (c *tmdbClient) images(ctx context.Context, mediaType string, id int64) (*tmdbImages, error) {
	endpoint, err := url.JoinPath(c.baseURL, mediaType, strconv.FormatInt(id, 10), "images")
	if err != nil {
		return nil, err
	}
	var payload tmdbImages
	if err := c.doGET(ctx, endpoint, map[string]string{"include_image_language": "en,null"}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// mapListEntries converts raw rows, skipping anything that is not a movie
// or show (multi search also returns people).
func (c *tmdbClient) mapListEntries(entries []tmdbListEntry, mediaType string) []models.CatalogItem {
	items := make([]models.CatalogItem, 0, len(entries))
	for _, entry := range entries {
		item := c.mapListEntry(entry, mediaType)
		if item.MediaType != "movie" && item.MediaType != "tv" {
			continue
		}
		items = append(items, item)
	}
	return items
}

func (c *tmdbClient) mapListEntry(entry tmdbListEntry, mediaType string) models.CatalogItem {
	if mediaType == "" {
		mediaType = entry.MediaType
	}
	return models.CatalogItem{
		ID:          entry.ID,
		MediaType:   mediaType,
		Title:       pickTitle(mediaType, entry.Name, entry.Title),
		Overview:    entry.Overview,
		PosterURL:   c.imageURL(entry.PosterPath, posterSize),
		BackdropURL: c.imageURL(entry.BackdropPath, backdropSize),
		Year:        parseYear(entry.ReleaseDate, entry.FirstAirDate),
		Rating:      entry.VoteAverage,
		Popularity:  entry.Popularity,
	}
}

func (c *tmdbClient) mapImageFiles(files []tmdbImageFile, size string) []models.ImageFile {
	out := make([]models.ImageFile, 0, len(files))
	for _, f := range files {
		out = append(out, models.ImageFile{
			URL:      c.imageURL(f.FilePath, size),
			Width:    f.Width,
			Height:   f.Height,
			Language: f.ISO6391,
		})
	}
	return out
}

func (c *tmdbClient) mapProviders(entries []tmdbProviderEntry) []models.WatchProvider {
	out := make([]models.WatchProvider, 0, len(entries))
	for _, p := range entries {
		out = append(out, models.WatchProvider{
			Name:    p.ProviderName,
			LogoURL: c.imageURL(p.LogoPath, logoSize),
		})
	}
	return out
}

func (c *tmdbClient) imageURL(imagePath, size string) string {
	trimmed := strings.TrimSpace(imagePath)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", c.imageBaseURL, path.Join(size, strings.TrimPrefix(trimmed, "/")))
}

func pickTitle(mediaType, seriesName, movieTitle string) string {
	if mediaType == "movie" && movieTitle != "" {
		return movieTitle
	}
	if seriesName != "" {
		return seriesName
	}
	return movieTitle
}

func parseYear(movieDate, seriesDate string) int {
	date := movieDate
	if date == "" {
		date = seriesDate
	}
	if date == "" {
		return 0
	}
	if t, err := time.Parse("2006-01-02", date); err == nil {
		return t.Year()
	}
	if len(date) >= 4 {
		if y, err := strconv.Atoi(date[:4]); err == nil {
			return y
		}
	}
	return 0
}
