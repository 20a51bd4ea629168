package feedcache

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/clip-board/domain"
)

// DefaultMaxEntries bounds the number of parameter keys kept in memory
const DefaultMaxEntries = 32

type entry struct {
	params domain.QueryParams
	pages  []domain.Page
	ids    map[int64]struct{}
	gen    uint64
}

// Cache is an in-memory paginated feed cache, least-recently-used by parameter key.
// Every operation holds the lock for its full read-modify-write.
type Cache struct {
	mu      sync.Mutex
	entries *simplelru.LRU[string, *entry]
	nextGen uint64
}

var _ domain.FeedCache = (*Cache)(nil)

// New creates a cache holding at most maxEntries parameter keys.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	entries, err := simplelru.NewLRU[string, *entry](maxEntries, func(key string, _ *entry) {
		logrus.Debugf("feed cache entry evicted: %s", key)
	})
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &Cache{entries: entries}
}

func (c *Cache) GetEntry(params domain.QueryParams) (domain.FeedEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(params.Key())
	if !ok {
		return domain.FeedEntry{}, false
	}
	pages := make([]domain.Page, len(e.pages))
	copy(pages, e.pages)
	return domain.FeedEntry{
		Params:     e.params,
		Pages:      pages,
		Generation: e.gen,
	}, true
}

func (c *Cache) AppendPage(params domain.QueryParams, page domain.Page) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := params.Key()
	e, ok := c.entries.Get(key)

	var existing map[int64]struct{}
	if ok {
		existing = e.ids
	}
	incoming := make(map[int64]struct{}, len(page.Posts))
	for _, p := range page.Posts {
		_, dupExisting := existing[p.ID]
		_, dupPage := incoming[p.ID]
		if dupExisting || dupPage {
			logrus.Warnf("feed cache: page for %s duplicates post %d, ignored", key, p.ID)
			return false
		}
		incoming[p.ID] = struct{}{}
	}

	if !ok {
		c.nextGen++
		e = &entry{
			params: params,
			ids:    make(map[int64]struct{}, len(page.Posts)),
			gen:    c.nextGen,
		}
		c.entries.Add(key, e)
	}

	posts := make([]domain.Post, len(page.Posts))
	for i := range page.Posts {
		posts[i] = page.Posts[i].Clone()
	}
	e.pages = append(e.pages, domain.Page{Posts: posts, NextCursor: page.NextCursor})
	for id := range incoming {
		e.ids[id] = struct{}{}
	}
	return true
}

func (c *Cache) FindItem(params domain.QueryParams, postID int64) (domain.Post, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Peek(params.Key())
	if !ok {
		return domain.Post{}, false
	}
	if _, ok := e.ids[postID]; !ok {
		return domain.Post{}, false
	}
	for _, page := range e.pages {
		for _, p := range page.Posts {
			if p.ID == postID {
				return p.Clone(), true
			}
		}
	}
	return domain.Post{}, false
}

func (c *Cache) PatchItem(params domain.QueryParams, postID int64, fn domain.PostMutator) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Peek(params.Key())
	if !ok || !e.patch(postID, fn) {
		return 0, false
	}
	return e.gen, true
}

// PatchItemAt is a no-op returning false once the entry for params was recreated or dropped.
func (c *Cache) PatchItemAt(params domain.QueryParams, gen uint64, postID int64, fn domain.PostMutator) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Peek(params.Key())
	if !ok || e.gen != gen {
		return false
	}
	return e.patch(postID, fn)
}

func (e *entry) patch(postID int64, fn domain.PostMutator) bool {
	if _, ok := e.ids[postID]; !ok {
		return false
	}
	for i, page := range e.pages {
		for j, p := range page.Posts {
			if p.ID != postID {
				continue
			}
			next := fn(p.Clone())
			// the identifier is the locator, a mutator may not move the post
			next.ID = p.ID

			// copy on write so snapshots handed out earlier stay untouched
			posts := make([]domain.Post, len(page.Posts))
			copy(posts, page.Posts)
			posts[j] = next
			e.pages[i].Posts = posts
			return true
		}
	}
	return false
}

// RemoveItem drops postID from every cached entry and returns how many entries changed.
func (c *Cache) RemoveItem(postID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := 0
	for _, key := range c.entries.Keys() {
		e, ok := c.entries.Peek(key)
		if !ok {
			continue
		}
		if _, ok := e.ids[postID]; !ok {
			continue
		}
		for i, page := range e.pages {
			posts := make([]domain.Post, 0, len(page.Posts))
			for _, p := range page.Posts {
				if p.ID != postID {
					posts = append(posts, p)
				}
			}
			if len(posts) != len(page.Posts) {
				e.pages[i].Posts = posts
			}
		}
		delete(e.ids, postID)
		changed++
	}
	return changed
}

func (c *Cache) Invalidate(params *domain.QueryParams) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if params == nil {
		c.entries.Purge()
		return
	}
	c.entries.Remove(params.Key())
}

func (c *Cache) Generation(params domain.QueryParams) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Peek(params.Key())
	if !ok {
		return 0
	}
	return e.gen
}

// Len returns the number of cached parameter keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}
