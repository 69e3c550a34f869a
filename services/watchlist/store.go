package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"watchdeck/models"
)

var (
	ErrItemNotFound  = errors.New("item not in watchlist")
	ErrNotAMovie     = errors.New("item is not a movie")
	ErrNotAShow      = errors.New("item is not a show")
	ErrInvalidItem   = errors.New("media type must be movie or tv")
	ErrUnknownStatus = errors.New("unknown status")
	ErrNotLoaded     = errors.New("watchlist not loaded")
	ErrNoEpisodes    = errors.New("episode list is empty")
)

const defaultPageSize = 20

// Backend is the slice of the server API the store persists through.
type Backend interface {
	FetchByStatus(ctx context.Context, status models.WatchStatus, page, limit int) (models.WatchlistPage, error)
	UpsertItem(ctx context.Context, item models.WatchlistItem) (models.WatchlistItem, error)
	DeleteItem(ctx context.Context, id int64) error
	Import(ctx context.Context, items []models.WatchlistItem) ([]models.WatchlistItem, error)
}

// Snapshots is the local persistence the store writes through to. It is a
// warm-start cache only; failures are logged and never surfaced.
type Snapshots interface {
	ReplaceAll(items []models.WatchlistItem) error
	Upsert(item models.WatchlistItem) error
	Delete(id int64) error
	LoadAll() ([]models.WatchlistItem, error)
}

// Cursor is the pagination state of one status bucket.
type Cursor struct {
	Page    int  `json:"page"`
	HasMore bool `json:"hasMore"`
	Loading bool `json:"loading"`
}

// Store is the single authority for watchlist state. Mutations apply
// optimistically to local state first, then persist to the server; a failed
// persist reverts the local change and records the failure. Inbound
// realtime events reconcile against the pending-operation set so our own
// echoes never clobber optimistic state.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	snap    Snapshots

	items   []models.WatchlistItem
	index   map[int64]int
	pending map[int64]time.Time
	cursors map[models.WatchStatus]*Cursor
	lastErr string
	loaded  bool

	pageSize int
}

// NewStore creates a store over the given backend. snap may be nil when no
// local snapshot database is configured.
func NewStore(backend Backend, snap Snapshots) *Store {
	return &Store{
		backend:  backend,
		snap:     snap,
		index:    make(map[int64]int),
		pending:  make(map[int64]time.Time),
		cursors:  make(map[models.WatchStatus]*Cursor),
		pageSize: defaultPageSize,
	}
}

// Hydrate fills the store from the local snapshot so a UI has data before
// the first server load. It does not mark the store loaded; pagination
// stays unavailable until Load succeeds.
func (s *Store) Hydrate() {
	if s.snap == nil {
		return
	}
	items, err := s.snap.LoadAll()
	if err != nil {
		log.Printf("[watchlist] snapshot hydrate: %v", err)
		return
	}
	if len(items) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return
	}
	s.items = s.items[:0]
	s.index = make(map[int64]int, len(items))
	for _, item := range items {
		if _, ok := s.index[item.ID]; ok {
			continue
		}
		s.appendLocked(item.Clone())
	}
	log.Printf("[watchlist] hydrated %d items from snapshot", len(s.items))
}

// Load fetches the first page of every status bucket concurrently and
// replaces local state with the merged result. On any failure the previous
// state is kept untouched.
func (s *Store) Load(ctx context.Context) error {
	var (
		pagesMu sync.Mutex
		pages   = make(map[models.WatchStatus]models.WatchlistPage, 3)
	)

	p := pool.New().WithMaxGoroutines(3).WithContext(ctx)
	for _, status := range models.AllStatuses() {
		p.Go(func(ctx context.Context) error {
			page, err := s.backend.FetchByStatus(ctx, status, 1, s.pageSize)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", status, err)
			}
			pagesMu.Lock()
			pages[status] = page
			pagesMu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		s.fail("load watchlist", err)
		return err
	}

	s.mu.Lock()
	s.items = s.items[:0]
	s.index = make(map[int64]int)
	for _, status := range models.AllStatuses() {
		page := pages[status]
		for _, item := range page.Items {
			if _, ok := s.index[item.ID]; ok {
				continue
			}
			s.appendLocked(item.Clone())
		}
		s.cursors[status] = &Cursor{Page: page.Page, HasMore: page.HasMore}
		if page.Page == 0 {
			s.cursors[status].Page = 1
		}
	}
	s.loaded = true
	total := len(s.items)
	snapshot := s.cloneItemsLocked()
	s.mu.Unlock()

	s.snapReplace(snapshot)
	log.Printf("[watchlist] loaded %d items", total)
	return nil
}

// LoadMore fetches the next page of one status bucket. It is a no-op while
// a fetch for that bucket is in flight or when the server has no more
// pages; the cursor only advances after a successful fetch.
func (s *Store) LoadMore(ctx context.Context, status models.WatchStatus) error {
	if !models.ValidStatus(status) {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}

	s.mu.Lock()
	cur, ok := s.cursors[status]
	if !ok {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	if !cur.HasMore || cur.Loading {
		s.mu.Unlock()
		return nil
	}
	cur.Loading = true
	next := cur.Page + 1
	s.mu.Unlock()

	page, err := s.backend.FetchByStatus(ctx, status, next, s.pageSize)

	s.mu.Lock()
	cur.Loading = false
	if err != nil {
		s.lastErr = fmt.Sprintf("load more %s: %v", status, err)
		s.mu.Unlock()
		log.Printf("[watchlist] load more %s: %v", status, err)
		return err
	}
	var appended []models.WatchlistItem
	for _, item := range page.Items {
		if _, exists := s.index[item.ID]; exists {
			continue
		}
		clone := item.Clone()
		s.appendLocked(clone)
		appended = append(appended, clone.Clone())
	}
	cur.Page = next
	cur.HasMore = page.HasMore
	s.mu.Unlock()

	for _, item := range appended {
		s.snapUpsert(item)
	}
	return nil
}

// ToggleMembership adds the catalog item to the watchlist or removes it
// when already present. It returns whether the item is present afterwards.
func (s *Store) ToggleMembership(ctx context.Context, c models.CatalogItem) (bool, error) {
	if c.MediaType != "movie" && c.MediaType != "tv" {
		return false, fmt.Errorf("%w: %q", ErrInvalidItem, c.MediaType)
	}

	s.mu.Lock()
	if idx, ok := s.index[c.ID]; ok {
		prior := s.items[idx].Clone()
		pos := idx
		s.pending[c.ID] = time.Now()
		s.removeLocked(idx)
		s.mu.Unlock()

		if err := s.backend.DeleteItem(ctx, c.ID); err != nil {
			s.reinsert(prior, pos)
			s.fail("remove from watchlist", err)
			return true, err
		}
		s.snapDelete(c.ID)
		return false, nil
	}

	item := models.NewWatchlistItem(c)
	s.pending[item.ID] = time.Now()
	s.appendLocked(item.Clone())
	s.mu.Unlock()

	stored, err := s.backend.UpsertItem(ctx, item)
	if err != nil {
		s.dropIfUnstamped(item.ID)
		s.fail("add to watchlist", err)
		return false, err
	}
	s.applyStamp(stored)
	s.snapUpsert(stored)
	return true, nil
}

// ToggleMovieWatched flips the watched flag of a movie.
func (s *Store) ToggleMovieWatched(ctx context.Context, id int64) error {
	s.mu.Lock()
	idx, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return ErrItemNotFound
	}
	if s.items[idx].MediaType != "movie" {
		s.mu.Unlock()
		return ErrNotAMovie
	}
	prior := s.items[idx].Clone()
	updated := prior.Clone()
	updated.Watched = !updated.Watched
	updated.WatchlistStatus = ""
	s.pending[id] = time.Now()
	s.items[idx] = updated
	send := updated.Clone()
	s.mu.Unlock()

	return s.persistUpdate(ctx, "toggle watched", prior, send)
}

// ToggleEpisodeWatched toggles a single episode of a show. The season's
// episode list stays sorted and duplicate-free.
func (s *Store) ToggleEpisodeWatched(ctx context.Context, id int64, season, episode int) error {
	s.mu.Lock()
	idx, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return ErrItemNotFound
	}
	if s.items[idx].MediaType != "tv" {
		s.mu.Unlock()
		return ErrNotAShow
	}
	prior := s.items[idx].Clone()
	updated := prior.Clone()
	if updated.WatchedEpisodes == nil {
		updated.WatchedEpisodes = make(map[int][]int)
	}
	updated.WatchedEpisodes[season] = toggleEpisode(updated.WatchedEpisodes[season], episode)
	if len(updated.WatchedEpisodes[season]) == 0 {
		delete(updated.WatchedEpisodes, season)
	}
	updated.WatchlistStatus = ""
	s.pending[id] = time.Now()
	s.items[idx] = updated
	send := updated.Clone()
	s.mu.Unlock()

	return s.persistUpdate(ctx, "toggle episode", prior, send)
}

// ToggleSeasonWatched sets or clears a whole season in one step: when every
// given episode is already watched the season is cleared, otherwise the
// season's watched set becomes exactly the given episodes.
func (s *Store) ToggleSeasonWatched(ctx context.Context, id int64, season int, episodes []int) error {
	episodes = normalizeEpisodes(episodes)
	if len(episodes) == 0 {
		return ErrNoEpisodes
	}

	s.mu.Lock()
	idx, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return ErrItemNotFound
	}
	if s.items[idx].MediaType != "tv" {
		s.mu.Unlock()
		return ErrNotAShow
	}
	prior := s.items[idx].Clone()
	updated := prior.Clone()
	if updated.WatchedEpisodes == nil {
		updated.WatchedEpisodes = make(map[int][]int)
	}
	if containsAll(updated.WatchedEpisodes[season], episodes) {
		delete(updated.WatchedEpisodes, season)
	} else {
		updated.WatchedEpisodes[season] = episodes
	}
	updated.WatchlistStatus = ""
	s.pending[id] = time.Now()
	s.items[idx] = updated
	send := updated.Clone()
	s.mu.Unlock()

	return s.persistUpdate(ctx, "toggle season", prior, send)
}

// UpdateTags replaces the item's tags wholesale. Tags are trimmed, deduped
// and kept in the order given.
func (s *Store) UpdateTags(ctx context.Context, id int64, tags []string) error {
	s.mu.Lock()
	idx, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return ErrItemNotFound
	}
	prior := s.items[idx].Clone()
	updated := prior.Clone()
	updated.Tags = normalizeTags(tags)
	s.pending[id] = time.Now()
	s.items[idx] = updated
	send := updated.Clone()
	s.mu.Unlock()

	return s.persistUpdate(ctx, "update tags", prior, send)
}

// SyncItem applies an inbound watchlist:update event. Events for pending
// ids are our own echoes: the pending flag clears and only server stamps
// (version, updatedAt, status) are taken, never the item body. External
// events apply only when their version is newer than what we hold.
func (s *Store) SyncItem(item models.WatchlistItem) {
	s.mu.Lock()
	if _, ok := s.pending[item.ID]; ok {
		delete(s.pending, item.ID)
		s.stampLocked(item)
		snapshot, exists := s.cloneItemLocked(item.ID)
		s.mu.Unlock()
		if exists {
			s.snapUpsert(snapshot)
		}
		return
	}

	if idx, ok := s.index[item.ID]; ok {
		if item.Version != 0 && item.Version <= s.items[idx].Version {
			s.mu.Unlock()
			return
		}
		s.items[idx] = item.Clone()
	} else {
		s.appendLocked(item.Clone())
	}
	s.mu.Unlock()
	s.snapUpsert(item)
}

// RemoveItem applies an inbound watchlist:delete event. A pending id means
// this is the echo of our own removal; the entry is already gone locally.
func (s *Store) RemoveItem(id int64) {
	s.mu.Lock()
	if _, ok := s.pending[id]; ok {
		delete(s.pending, id)
		s.mu.Unlock()
		s.snapDelete(id)
		return
	}
	idx, ok := s.index[id]
	if ok {
		s.removeLocked(idx)
	}
	s.mu.Unlock()
	if ok {
		s.snapDelete(id)
	}
}

// ReplaceAll swaps in a complete new watchlist. Both import and the
// watchlist:sync event funnel through here. Pending flags from before the
// replacement are meaningless and get dropped; every bucket's cursor is
// marked complete because the list is now whole.
func (s *Store) ReplaceAll(items []models.WatchlistItem) {
	s.mu.Lock()
	s.items = s.items[:0]
	s.index = make(map[int64]int, len(items))
	for _, item := range items {
		if _, ok := s.index[item.ID]; ok {
			continue
		}
		s.appendLocked(item.Clone())
	}
	s.pending = make(map[int64]time.Time)
	for _, status := range models.AllStatuses() {
		s.cursors[status] = &Cursor{Page: 1, HasMore: false}
	}
	s.loaded = true
	snapshot := s.cloneItemsLocked()
	s.mu.Unlock()

	s.snapReplace(snapshot)
}

// Items returns a copy of the full list in insertion order.
func (s *Store) Items() []models.WatchlistItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneItemsLocked()
}

// Get returns one item by id.
func (s *Store) Get(id int64) (models.WatchlistItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneItemLocked(id)
}

// Has reports membership.
func (s *Store) Has(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// Pending reports whether an optimistic operation on the id is awaiting its
// realtime echo.
func (s *Store) Pending(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pending[id]
	return ok
}

// PendingCount returns the size of the pending-operation set.
func (s *Store) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

// CursorFor returns the pagination state of one bucket.
func (s *Store) CursorFor(status models.WatchStatus) (Cursor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.cursors[status]
	if !ok {
		return Cursor{}, false
	}
	return *cur, true
}

// Loaded reports whether an initial server load has completed.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// LastError returns the most recent persistence failure, "" when none.
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// ClearError resets the error slot.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""
}

// persistUpdate sends the optimistic item to the server, reverting the
// local entry and recording the failure when the call does not go through.
func (s *Store) persistUpdate(ctx context.Context, op string, prior, updated models.WatchlistItem) error {
	stored, err := s.backend.UpsertItem(ctx, updated)
	if err != nil {
		s.revert(prior)
		s.fail(op, err)
		return err
	}
	s.applyStamp(stored)
	s.snapUpsert(stored)
	return nil
}

// revert restores the captured prior state unless newer server state
// arrived for the item in the meantime.
func (s *Store) revert(prior models.WatchlistItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.index[prior.ID]
	if !ok {
		return
	}
	if s.items[idx].Version != prior.Version {
		return
	}
	s.items[idx] = prior
}

// reinsert puts a removed item back at (or near) its old position after a
// failed delete.
func (s *Store) reinsert(prior models.WatchlistItem, pos int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[prior.ID]; ok {
		return
	}
	if pos > len(s.items) {
		pos = len(s.items)
	}
	s.items = append(s.items, models.WatchlistItem{})
	copy(s.items[pos+1:], s.items[pos:])
	s.items[pos] = prior
	s.reindexLocked(pos)
}

// dropIfUnstamped removes an optimistically added item after a failed add,
// unless the server stamped it through another path in the meantime.
func (s *Store) dropIfUnstamped(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.index[id]
	if !ok {
		return
	}
	if s.items[idx].Version != 0 {
		return
	}
	s.removeLocked(idx)
}

// applyStamp copies server-assigned fields from a stored item onto the
// local entry without touching the optimistic body.
func (s *Store) applyStamp(stored models.WatchlistItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stampLocked(stored)
}

func (s *Store) stampLocked(stored models.WatchlistItem) {
	idx, ok := s.index[stored.ID]
	if !ok {
		return
	}
	if stored.Version != 0 && stored.Version <= s.items[idx].Version {
		return
	}
	item := s.items[idx]
	item.Version = stored.Version
	item.UpdatedAt = stored.UpdatedAt
	item.WatchlistStatus = stored.WatchlistStatus
	s.items[idx] = item
}

func (s *Store) appendLocked(item models.WatchlistItem) {
	s.index[item.ID] = len(s.items)
	s.items = append(s.items, item)
}

func (s *Store) removeLocked(idx int) {
	delete(s.index, s.items[idx].ID)
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.reindexLocked(idx)
}

func (s *Store) reindexLocked(from int) {
	for i := from; i < len(s.items); i++ {
		s.index[s.items[i].ID] = i
	}
}

func (s *Store) cloneItemsLocked() []models.WatchlistItem {
	out := make([]models.WatchlistItem, len(s.items))
	for i, item := range s.items {
		out[i] = item.Clone()
	}
	return out
}

func (s *Store) cloneItemLocked(id int64) (models.WatchlistItem, bool) {
	idx, ok := s.index[id]
	if !ok {
		return models.WatchlistItem{}, false
	}
	return s.items[idx].Clone(), true
}

func (s *Store) fail(op string, err error) {
	msg := fmt.Sprintf("%s: %v", op, err)
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
	log.Printf("[watchlist] %s", msg)
}

func (s *Store) snapUpsert(item models.WatchlistItem) {
	if s.snap == nil {
		return
	}
	if err := s.snap.Upsert(item); err != nil {
		log.Printf("[watchlist] snapshot upsert: %v", err)
	}
}

func (s *Store) snapDelete(id int64) {
	if s.snap == nil {
		return
	}
	if err := s.snap.Delete(id); err != nil {
		log.Printf("[watchlist] snapshot delete: %v", err)
	}
}

func (s *Store) snapReplace(items []models.WatchlistItem) {
	if s.snap == nil {
		return
	}
	if err := s.snap.ReplaceAll(items); err != nil {
		log.Printf("[watchlist] snapshot replace: %v", err)
	}
}

// toggleEpisode flips one episode in a season's watched list, keeping the
// list sorted.
func toggleEpisode(eps []int, episode int) []int {
	for i, e := range eps {
		if e == episode {
			return append(append([]int(nil), eps[:i]...), eps[i+1:]...)
		}
	}
	out := append(append([]int(nil), eps...), episode)
	sort.Ints(out)
	return out
}

// containsAll reports whether every wanted episode is in eps.
func containsAll(eps, wanted []int) bool {
	if len(eps) < len(wanted) {
		return false
	}
	have := make(map[int]struct{}, len(eps))
	for _, e := range eps {
		have[e] = struct{}{}
	}
	for _, w := range wanted {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}

func normalizeEpisodes(episodes []int) []int {
	seen := make(map[int]struct{}, len(episodes))
	out := make([]int, 0, len(episodes))
	for _, e := range episodes {
		if e < 1 {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	sort.Ints(out)
	return out
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
