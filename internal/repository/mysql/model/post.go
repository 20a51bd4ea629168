package model

import (
	"time"

	"github.com/Guyuepp/clip-board/domain"
)

type Post struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Title       string    `gorm:"type:varchar(255);not null"`
	Content     string    `gorm:"type:text"`
	Link        string    `gorm:"type:varchar(512);not null"`
	UserID      int64     `gorm:"column:user_id;not null;index"`
	IsModerated bool      `gorm:"column:is_moderated;default:false"`
	Categories  []string  `gorm:"type:json;serializer:json"`
	Likes       int64     `gorm:"default:0"`
	UpdatedAt   time.Time `gorm:"type:datetime"`
	CreatedAt   time.Time `gorm:"type:datetime"`
}

func (Post) TableName() string {
	return "post"
}

func (m *Post) ToDomain() domain.Post {
	cats := make([]domain.Category, len(m.Categories))
	for i, c := range m.Categories {
		cats[i] = domain.Category(c)
	}
	return domain.Post{
		ID:          m.ID,
		Title:       m.Title,
		Content:     m.Content,
		Link:        m.Link,
		IsModerated: m.IsModerated,
		Categories:  cats,
		Likes:       m.Likes,
		CreatedAt:   m.CreatedAt,
		User: domain.User{
			ID: m.UserID,
		},
	}
}

func NewPostFromDomain(p *domain.Post) *Post {
	return &Post{
		ID:          p.ID,
		Title:       p.Title,
		Content:     p.Content,
		Link:        p.Link,
		UserID:      p.User.ID,
		IsModerated: p.IsModerated,
		Categories:  CategoriesToStrings(p.Categories),
		Likes:       p.Likes,
		CreatedAt:   p.CreatedAt,
	}
}

// CategoriesToStrings never returns nil so the column holds [] rather than null.
func CategoriesToStrings(cats []domain.Category) []string {
	res := make([]string, len(cats))
	for i, c := range cats {
		res[i] = string(c)
	}
	return res
}
