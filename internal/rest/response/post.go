package response

import (
	"time"

	"github.com/Guyuepp/clip-board/domain"
)

type User struct {
	ID          int64  `json:"id"`
	TwitchID    string `json:"twitchId,omitempty"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

func NewUserFromDomain(u *domain.User) User {
	return User{
		ID:          u.ID,
		TwitchID:    u.TwitchID,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
	}
}

type Post struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Link        string    `json:"link"`
	User        User      `json:"user"`
	IsModerated bool      `json:"isModerated"`
	Categories  []string  `json:"categories"`
	Likes       int64     `json:"likes"`
	Liked       bool      `json:"liked"`
	Saved       bool      `json:"saved"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Page mirrors the {data, nextCursor} envelope of GET /posts
type Page struct {
	Data       []Post  `json:"data"`
	NextCursor *string `json:"nextCursor"`
}

// FromDomain: Domain -> Response
func NewPostFromDomain(p *domain.Post) Post {
	cats := make([]string, len(p.Categories))
	for i, c := range p.Categories {
		cats[i] = string(c)
	}
	return Post{
		ID:      p.ID,
		Title:   p.Title,
		Content: p.Content,
		Link:    p.Link,
		User:        NewUserFromDomain(&p.User),
		IsModerated: p.IsModerated,
		Categories:  cats,
		Likes:       p.Likes,
		Liked:       p.Liked,
		Saved:       p.Saved,
		CreatedAt:   p.CreatedAt,
	}
}

func NewPageFromDomain(pg *domain.Page) Page {
	res := Page{Data: make([]Post, len(pg.Posts))}
	for i := range pg.Posts {
		res.Data[i] = NewPostFromDomain(&pg.Posts[i])
	}
	if pg.NextCursor != "" {
		next := pg.NextCursor
		res.NextCursor = &next
	}
	return res
}
