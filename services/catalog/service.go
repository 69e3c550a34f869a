package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"watchdeck/models"
)

var (
	// ErrNotConfigured is returned when no catalog API key is set.
	ErrNotConfigured = errors.New("catalog api key not configured")
	// ErrUnknownMediaType is returned for media types other than movie or tv.
	ErrUnknownMediaType = errors.New("unknown media type")
)

// Config carries the catalog connection settings. Zero values fall back to
// the public TMDB endpoints, en-US and the US provider region.
type Config struct {
	BaseURL      string
	ImageBaseURL string
	APIKey       string
	Language     string
	Region       string
}

// Service exposes the remote catalog. Responses are not cached, with one
// exception: logo lookups are memoized per title until the configuration
// changes.
type Service struct {
	mu     sync.Mutex
	client *tmdbClient
	logos  map[string]string
}

// NewService creates a catalog service from the given settings.
func NewService(cfg Config) *Service {
	return &Service{
		client: newTMDBClient(cfg, nil),
		logos:  make(map[string]string),
	}
}

// UpdateConfig swaps the remote connection settings without a restart.
// The logo memo is dropped; memoized URLs may point at the old image host.
func (s *Service) UpdateConfig(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = newTMDBClient(cfg, nil)
	s.logos = make(map[string]string)
}

func (s *Service) tmdb() *tmdbClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Configured reports whether an API key is present.
func (s *Service) Configured() bool {
	return s.tmdb().isConfigured()
}

// Search runs a multi search across movies and shows. A blank query returns
// an empty result without touching the network.
func (s *Service) Search(ctx context.Context, query string, page int) ([]models.CatalogItem, error) {
	c := s.tmdb()
	if !c.isConfigured() {
		return nil, ErrNotConfigured
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.CatalogItem{}, nil
	}
	if page < 1 {
		page = 1
	}
	return c.search(ctx, query, page)
}

// Trending returns this week's trending movies and shows.
func (s *Service) Trending(ctx context.Context) ([]models.CatalogItem, error) {
	c := s.tmdb()
	if !c.isConfigured() {
		return nil, ErrNotConfigured
	}
	return c.trending(ctx)
}

// PopularMovies returns one page of popular movies.
func (s *Service) PopularMovies(ctx context.Context, page int) ([]models.CatalogItem, error) {
	c := s.tmdb()
	if !c.isConfigured() {
		return nil, ErrNotConfigured
	}
	if page < 1 {
		page = 1
	}
	return c.popular(ctx, "movie", page)
}

// PopularTV returns one page of popular shows.
func (s *Service) PopularTV(ctx context.Context, page int) ([]models.CatalogItem, error) {
	c := s.tmdb()
	if !c.isConfigured() {
		return nil, ErrNotConfigured
	}
	if page < 1 {
		page = 1
	}
	return c.popular(ctx, "tv", page)
}

// Details returns one title with credits, videos, images, similar and
// recommendations appended in a single request.
func (s *Service) Details(ctx context.Context, mediaType string, id int64) (*models.CatalogItem, error) {
	c := s.tmdb()
	if !c.isConfigured() {
		return nil, ErrNotConfigured
	}
	if err := checkMediaType(mediaType); err != nil {
		return nil, err
	}
	return c.details(ctx, mediaType, id)
}

// Season returns the episode list for one season of a show.
func (s *Service) Season(ctx context.Context, tvID int64, seasonNumber int) (*models.SeasonDetails, error) {
	c := s.tmdb()
	if !c.isConfigured() {
		return nil, ErrNotConfigured
	}
	return c.season(ctx, tvID, seasonNumber)
}

// WatchProviders returns streaming availability for the configured region.
func (s *Service) WatchProviders(ctx context.Context, mediaType string, id int64) (*models.WatchProviders, error) {
	c := s.tmdb()
	if !c.isConfigured() {
		return nil, ErrNotConfigured
	}
	if err := checkMediaType(mediaType); err != nil {
		return nil, err
	}
	return c.watchProviders(ctx, mediaType, id)
}

// LogoURL returns the best English logo for a title, or "" when it has
// none. Results (including misses) are memoized.
func (s *Service) LogoURL(ctx context.Context, mediaType string, id int64) (string, error) {
	c := s.tmdb()
	if !c.isConfigured() {
		return "", ErrNotConfigured
	}
	if err := checkMediaType(mediaType); err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s:%d", mediaType, id)
	s.mu.Lock()
	if url, ok := s.logos[key]; ok {
		s.mu.Unlock()
		return url, nil
	}
	s.mu.Unlock()

	images, err := c.images(ctx, mediaType, id)
	if err != nil {
		return "", err
	}
	url := pickLogo(images.Logos, c)

	s.mu.Lock()
	s.logos[key] = url
	s.mu.Unlock()
	return url, nil
}

// pickLogo prefers English logos by vote, then falls back to the first one.
func pickLogo(logos []tmdbImageFile, c *tmdbClient) string {
	var best *tmdbImageFile
	for i := range logos {
		f := &logos[i]
		if f.ISO6391 != "en" {
			continue
		}
		if best == nil || f.Vote > best.Vote {
			best = f
		}
	}
	if best == nil && len(logos) > 0 {
		best = &logos[0]
	}
	if best == nil {
		return ""
	}
	return c.imageURL(best.FilePath, logoSize)
}

func checkMediaType(mediaType string) error {
	if mediaType != "movie" && mediaType != "tv" {
		return fmt.Errorf("%w: %q", ErrUnknownMediaType, mediaType)
	}
	return nil
}

// normalizeLanguage canonicalizes a configured language into the
// "xx-XX" form the catalog expects. Underscore separators are accepted;
// anything unparseable falls back to en-US, and bare language codes get a
// US region appended.
func normalizeLanguage(lang string) string {
	lang = strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if lang == "" {
		return "en-US"
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return "en-US"
	}
	base, baseConf := tag.Base()
	if baseConf < language.High {
		return "en-US"
	}
	if region, regionConf := tag.Region(); regionConf >= language.High {
		return base.String() + "-" + region.String()
	}
	return base.String() + "-US"
}
