package request

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Guyuepp/clip-board/domain"
)

var registerOnce sync.Once

// RegisterValidators adds the "category" tag to gin's validator engine
func RegisterValidators() (err error) {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		err = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return domain.Category(fl.Field().String()).Valid()
		})
	})
	return
}

// FetchPosts is the query string of GET /posts
type FetchPosts struct {
	TitleQuery string   `form:"titleQuery" binding:"max=100"`
	Limit      int64    `form:"limit"`
	AuthorID   int64    `form:"authorId" binding:"omitempty,min=1"`
	Liked      bool     `form:"liked"`
	Saved      bool     `form:"saved"`
	Categories []string `form:"categories" binding:"omitempty,dive,category"`
	Cursor     string   `form:"cursor"`
}

func (r *FetchPosts) ToDomain() domain.QueryParams {
	return domain.QueryParams{
		TitleQuery: r.TitleQuery,
		AuthorID:   r.AuthorID,
		Liked:      r.Liked,
		Saved:      r.Saved,
		Categories: toCategories(r.Categories),
		Limit:      r.Limit,
	}
}

// PostPatch is the body of PATCH /posts/:id
type PostPatch struct {
	Liked       *bool    `json:"liked"`
	Saved       *bool    `json:"saved"`
	Categories  []string `json:"categories" binding:"omitempty,max=6,dive,category"`
	IsModerated *bool    `json:"isModerated"`
}

// ToDomain: Request -> Domain. An empty categories list stays non-nil and clears them.
func (r *PostPatch) ToDomain() domain.PostPatch {
	return domain.PostPatch{
		Liked:       r.Liked,
		Saved:       r.Saved,
		Categories:  toCategories(r.Categories),
		IsModerated: r.IsModerated,
	}
}

func toCategories(raw []string) []domain.Category {
	if raw == nil {
		return nil
	}
	res := make([]domain.Category, len(raw))
	for i, c := range raw {
		res[i] = domain.Category(c)
	}
	return res
}
