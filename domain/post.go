package domain

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Post is representing a clip posted to the board
type Post struct {
	ID          int64      `json:"id"`          // Stable identifier
	Title       string     `json:"title"`       // Post title
	Content     string     `json:"content"`     // Body content
	Link        string     `json:"link"`        // External link to the clip
	User        User       `json:"user"`        // Owner information
	IsModerated bool       `json:"isModerated"` // Approved by a moderator
	Categories  []Category `json:"categories"`  // Ordered set of tags
	Likes       int64      `json:"likes"`       // Number of likes
	Liked       bool       `json:"liked"`       // Liked by the current viewer
	Saved       bool       `json:"saved"`       // Saved by the current viewer
	CreatedAt   time.Time  `json:"createdAt"`   // Creation timestamp
}

// Clone returns a structural copy that shares no mutable state with p.
func (p Post) Clone() Post {
	p.Categories = slices.Clone(p.Categories)
	return p
}

// PostPatch is a partial update of a post. Nil fields are left untouched.
type PostPatch struct {
	Liked       *bool      `json:"liked,omitempty"`
	Saved       *bool      `json:"saved,omitempty"`
	Categories  []Category `json:"categories"` // nil leaves them untouched, empty clears them
	IsModerated *bool      `json:"isModerated,omitempty"`
}

// IsEmpty reports whether the patch carries no field at all.
func (p PostPatch) IsEmpty() bool {
	return p.Liked == nil && p.Saved == nil && p.Categories == nil && p.IsModerated == nil
}

// QueryParams describes one feed view. It is the partition key of the feed cache.
type QueryParams struct {
	TitleQuery string
	AuthorID   int64
	Liked      bool
	Saved      bool
	Categories []Category
	Limit      int64
}

// Key returns a canonical string for the params. Category order does not matter.
func (q QueryParams) Key() string {
	cats := make([]string, len(q.Categories))
	for i, c := range q.Categories {
		cats[i] = string(c)
	}
	slices.Sort(cats)
	cats = slices.Compact(cats)

	var b strings.Builder
	b.WriteString("title=")
	b.WriteString(strconv.Quote(q.TitleQuery))
	b.WriteString("&author=")
	b.WriteString(strconv.FormatInt(q.AuthorID, 10))
	b.WriteString("&liked=")
	b.WriteString(strconv.FormatBool(q.Liked))
	b.WriteString("&saved=")
	b.WriteString(strconv.FormatBool(q.Saved))
	b.WriteString("&categories=")
	b.WriteString(strings.Join(cats, ","))
	b.WriteString("&limit=")
	b.WriteString(strconv.FormatInt(q.Limit, 10))
	return b.String()
}

// Page is one fetched slice of a feed. NextCursor is empty when no further data exists.
type Page struct {
	Posts      []Post `json:"data"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// PostRepository defines the contract for post persistence on the server side
type PostRepository interface {
	// Fetch retrieves a page of posts matching params as seen by viewerID (0 for anonymous).
	// cursor: opaque cursor, empty for the first page.
	// Returns: posts and the next cursor, empty when exhausted.
	Fetch(ctx context.Context, viewerID int64, params QueryParams, cursor string) ([]Post, string, error)

	// GetByID retrieves a single post without viewer state.
	// Returns ErrNotFound if the post doesn't exist.
	GetByID(ctx context.Context, id int64) (Post, error)

	// FetchViewerState returns the ids among postIDs the viewer liked and saved.
	FetchViewerState(ctx context.Context, viewerID int64, postIDs []int64) (liked, saved map[int64]bool, err error)

	// ApplyPatch applies a partial update and recomputes the like counter in one transaction.
	// Returns the post as committed, without viewer state, or ErrNotFound if it doesn't exist.
	ApplyPatch(ctx context.Context, viewerID int64, id int64, patch PostPatch) (Post, error)

	// Delete removes a post by its ID.
	// Returns ErrNotFound if not exists
	Delete(ctx context.Context, id int64) error
}

// PostUsecase is the server side business logic behind the /posts contract
type PostUsecase interface {
	Fetch(ctx context.Context, viewer *User, params QueryParams, cursor string) (Page, error)
	Patch(ctx context.Context, viewer User, id int64, patch PostPatch) (Post, error)
	Delete(ctx context.Context, viewer User, id int64) error
}

// PostCache keeps canonical posts without viewer state
type PostCache interface {
	// GetPost returns ErrCacheMiss when nothing is cached. expired reports a logically
	// expired copy the caller may still serve while it rebuilds.
	GetPost(ctx context.Context, id int64) (p Post, expired bool, err error)
	SetPost(ctx context.Context, p *Post, ttl time.Duration) error
	DeletePost(ctx context.Context, id int64) error
}
