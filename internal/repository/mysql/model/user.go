package model

import (
	"time"

	"github.com/Guyuepp/clip-board/domain"
)

type User struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	TwitchID    string    `gorm:"column:twitch_id;type:varchar(64);uniqueIndex;not null"`
	DisplayName string    `gorm:"column:display_name;type:varchar(64)"`
	Role        string    `gorm:"type:varchar(16);default:USER"`
	CreatedAt   time.Time `gorm:"type:datetime"`
}

func (User) TableName() string {
	return "user"
}

func (m *User) ToDomain() domain.User {
	return domain.User{
		ID:          m.ID,
		TwitchID:    m.TwitchID,
		DisplayName: m.DisplayName,
		Role:        domain.Role(m.Role),
		CreatedAt:   m.CreatedAt,
	}
}

func NewUserFromDomain(u *domain.User) *User {
	role := u.Role
	if role == "" {
		role = domain.RoleUser
	}
	return &User{
		ID:          u.ID,
		TwitchID:    u.TwitchID,
		DisplayName: u.DisplayName,
		Role:        string(role),
		CreatedAt:   u.CreatedAt,
	}
}
