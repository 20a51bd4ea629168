package mutation

import "github.com/Guyuepp/clip-board/domain"

// Kind names the field group a command owns
type Kind string

const (
	KindLike       Kind = "like"
	KindSave       Kind = "save"
	KindCategories Kind = "categories"
	KindModerated  Kind = "moderated"
)

// Command is one user action against a cached post.
type Command interface {
	Target() int64
	Kind() Kind

	// Validate runs before the cache or the network is touched.
	Validate() error

	// Apply computes the tentative post and the partial update to send.
	Apply(p domain.Post) (domain.Post, domain.PostPatch)

	// Merge copies the fields owned by the command from src into dst.
	Merge(dst, src domain.Post) domain.Post
}

// ToggleLike flips the viewer's like and moves the counter with it
type ToggleLike struct {
	PostID int64
}

func (c ToggleLike) Target() int64   { return c.PostID }
func (c ToggleLike) Kind() Kind      { return KindLike }
func (c ToggleLike) Validate() error { return nil }

func (c ToggleLike) Apply(p domain.Post) (domain.Post, domain.PostPatch) {
	p.Liked = !p.Liked
	if p.Liked {
		p.Likes++
	} else if p.Likes > 0 {
		p.Likes--
	}
	liked := p.Liked
	return p, domain.PostPatch{Liked: &liked}
}

func (c ToggleLike) Merge(dst, src domain.Post) domain.Post {
	dst.Liked = src.Liked
	dst.Likes = src.Likes
	return dst
}

// ToggleSave flips the viewer's bookmark
type ToggleSave struct {
	PostID int64
}

func (c ToggleSave) Target() int64   { return c.PostID }
func (c ToggleSave) Kind() Kind      { return KindSave }
func (c ToggleSave) Validate() error { return nil }

func (c ToggleSave) Apply(p domain.Post) (domain.Post, domain.PostPatch) {
	p.Saved = !p.Saved
	saved := p.Saved
	return p, domain.PostPatch{Saved: &saved}
}

func (c ToggleSave) Merge(dst, src domain.Post) domain.Post {
	dst.Saved = src.Saved
	return dst
}

// EditCategories replaces the category set of a post
type EditCategories struct {
	PostID     int64
	Categories []domain.Category
}

func (c EditCategories) Target() int64 { return c.PostID }
func (c EditCategories) Kind() Kind    { return KindCategories }

func (c EditCategories) Validate() error {
	_, err := domain.NormalizeCategories(c.Categories)
	return err
}

func (c EditCategories) Apply(p domain.Post) (domain.Post, domain.PostPatch) {
	// Validate ran first, the error cannot happen here
	cats, _ := domain.NormalizeCategories(c.Categories)
	p.Categories = cats
	sent := make([]domain.Category, len(cats))
	copy(sent, cats)
	return p, domain.PostPatch{Categories: sent}
}

func (c EditCategories) Merge(dst, src domain.Post) domain.Post {
	dst.Categories = make([]domain.Category, len(src.Categories))
	copy(dst.Categories, src.Categories)
	return dst
}

// ToggleModerated approves a post or takes the approval back
type ToggleModerated struct {
	PostID int64
}

func (c ToggleModerated) Target() int64   { return c.PostID }
func (c ToggleModerated) Kind() Kind      { return KindModerated }
func (c ToggleModerated) Validate() error { return nil }

func (c ToggleModerated) Apply(p domain.Post) (domain.Post, domain.PostPatch) {
	p.IsModerated = !p.IsModerated
	moderated := p.IsModerated
	return p, domain.PostPatch{IsModerated: &moderated}
}

func (c ToggleModerated) Merge(dst, src domain.Post) domain.Post {
	dst.IsModerated = src.IsModerated
	return dst
}
