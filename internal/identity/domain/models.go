package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is the local mirror of an identity-provider user.
type User struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	ExternalID string       `json:"external_id" gorm:"column:external_id;type:text;not null;uniqueIndex:ux_users_external_id"`
	Name       string       `json:"name" gorm:"type:text;not null;default:''"`
	Email      string       `json:"email" gorm:"type:text;not null;default:''"`
	ImageURL   string       `json:"image_url" gorm:"column:image_url;type:text;not null;default:''"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time    `json:"updated_at" gorm:"not null"`
}

func (User) TableName() string { return "users" }

// Summary is the embedded form of a user on issues and member lists.
type Summary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	ImageURL string `json:"image_url,omitempty"`
}

func (u User) Summary() Summary {
	return Summary{
		ID:       u.ID.String(),
		Name:     u.Name,
		Email:    u.Email,
		ImageURL: u.ImageURL,
	}
}
