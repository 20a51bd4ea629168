package model

import "time"

type LikedPost struct {
	PostID    int64     `gorm:"column:post_id;primaryKey"`
	UserID    int64     `gorm:"column:user_id;primaryKey"`
	CreatedAt time.Time `gorm:"type:datetime"`
}

func (LikedPost) TableName() string {
	return "liked_posts"
}

type SavedPost struct {
	PostID    int64     `gorm:"column:post_id;primaryKey"`
	UserID    int64     `gorm:"column:user_id;primaryKey"`
	CreatedAt time.Time `gorm:"type:datetime"`
}

func (SavedPost) TableName() string {
	return "saved_posts"
}
