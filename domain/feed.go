package domain

import "context"

// FeedEntry is the ordered sequence of pages fetched for one QueryParams key.
type FeedEntry struct {
	Params     QueryParams
	Pages      []Page
	Generation uint64 // changes every time the entry is recreated
}

// Posts concatenates the items of every page in fetch order.
func (e FeedEntry) Posts() []Post {
	n := 0
	for _, p := range e.Pages {
		n += len(p.Posts)
	}
	res := make([]Post, 0, n)
	for _, p := range e.Pages {
		res = append(res, p.Posts...)
	}
	return res
}

// NextCursor returns the cursor of the last page, empty when exhausted.
func (e FeedEntry) NextCursor() string {
	if len(e.Pages) == 0 {
		return ""
	}
	return e.Pages[len(e.Pages)-1].NextCursor
}

// HasNext reports whether another page can be fetched.
func (e FeedEntry) HasNext() bool {
	return e.NextCursor() != ""
}

// PostMutator produces the replacement for a cached post.
type PostMutator func(Post) Post

// FeedCache holds fetched pages partitioned by QueryParams.
type FeedCache interface {
	// GetEntry returns a snapshot of the entry for params.
	GetEntry(params QueryParams) (FeedEntry, bool)

	// AppendPage appends page to the entry for params, creating it if absent.
	// It is a no-op returning false if the page would duplicate an identifier.
	AppendPage(params QueryParams, page Page) bool

	// FindItem returns the cached post with postID in the entry for params.
	FindItem(params QueryParams, postID int64) (Post, bool)

	// PatchItem replaces the post with postID by fn(copy of post) and returns the
	// generation of the entry it patched. ok is false when the post is not cached.
	PatchItem(params QueryParams, postID int64, fn PostMutator) (gen uint64, ok bool)

	// PatchItemAt patches like PatchItem, but only while the entry still has generation gen.
	PatchItemAt(params QueryParams, gen uint64, postID int64, fn PostMutator) bool

	// RemoveItem drops the post with postID from every entry.
	RemoveItem(postID int64) int

	// Invalidate discards the entry for params, or every entry when params is nil.
	Invalidate(params *QueryParams)

	// Generation returns the stamp of the entry for params, 0 when absent.
	Generation(params QueryParams) uint64
}

// PostClient is the remote resource client for posts.
type PostClient interface {
	Fetch(ctx context.Context, params QueryParams) (Page, error)
	FetchNext(ctx context.Context, params QueryParams, cursor string) (Page, error)
	Mutate(ctx context.Context, id int64, patch PostPatch) (Post, error)
	Delete(ctx context.Context, id int64) error
}
