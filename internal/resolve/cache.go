package resolve

import (
	"context"
	"sync"

	"golang.org/x/oauth2"

	"github.com/sydlexius/songproof/internal/song"
)

// LinkResult is a cached or freshly resolved platform link for one song.
type LinkResult struct {
	ID             string        `json:"id,omitempty"`
	URL            string        `json:"url"`
	Platform       song.Platform `json:"platform"`
	Tier           Tier          `json:"tier"`
	IsManualSearch bool          `json:"is_manual_search,omitempty"`
}

type cacheKey struct {
	songID   string
	platform song.Platform
}

// LinkCache memoizes resolved platform links per (song, platform) for the
// lifetime of a session. Constructed once and passed by reference; there is
// no hidden package-level state. No TTL: entries live until Clear.
type LinkCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]LinkResult
}

// NewLinkCache creates an empty link cache.
func NewLinkCache() *LinkCache {
	return &LinkCache{
		entries: make(map[cacheKey]LinkResult),
	}
}

// Get returns the cached link for a (song, platform) pair, if present.
func (c *LinkCache) Get(songID string, platform song.Platform) (LinkResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.entries[cacheKey{songID, platform}]
	return res, ok
}

// put stores a confirmed link. Manual-search results are never stored: a
// "couldn't find it" placeholder must not mask a future successful match.
func (c *LinkCache) put(songID string, platform song.Platform, res LinkResult) {
	if res.IsManualSearch || res.Tier == TierFailed {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{songID, platform}] = res
}

// Clear wipes the in-memory cache. Persisted platform IDs on songs are
// untouched.
func (c *LinkCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]LinkResult)
}

// Len returns the number of cached entries.
func (c *LinkCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CachedLink returns a platform link for a song, consulting the in-memory
// cache, then the song's own persisted platform IDs, and only then the
// network. The returned song carries any newly confirmed platform ref; on a
// manual-search outcome the song is returned unchanged and nothing is cached.
func (r *Resolver) CachedLink(ctx context.Context, cache *LinkCache, s song.Song, platform song.Platform, token *oauth2.Token) (LinkResult, song.Song, error) {
	if res, ok := cache.Get(s.ID, platform); ok {
		return res, s, nil
	}

	// The song's persisted platform IDs act as a durable cache.
	if ref, ok := s.PlatformRef(platform); ok && ref.ID != "" {
		res := LinkResult{
			ID:       ref.ID,
			URL:      ref.URL,
			Platform: platform,
			Tier:     TierDirect,
		}
		cache.put(s.ID, platform, res)
		return res, s, nil
	}

	resolved, err := r.ResolveForPlatform(ctx, s, platform, token)
	if err != nil {
		return LinkResult{}, s, err
	}

	if resolved.Tier == TierFailed {
		return LinkResult{
			URL:            ManualSearchURL(platform, s),
			Platform:       platform,
			Tier:           TierFailed,
			IsManualSearch: true,
		}, s, nil
	}

	res := LinkResult{
		ID:       resolved.PlatformID,
		URL:      resolved.PlatformURL,
		Platform: platform,
		Tier:     resolved.Tier,
	}
	cache.put(s.ID, platform, res)

	updated := s.Clone()
	updated.SetPlatformRef(platform, song.PlatformRef{ID: resolved.PlatformID, URL: resolved.PlatformURL})
	return res, updated, nil
}
