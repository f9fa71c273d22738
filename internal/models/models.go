package models

import (
	"time"
)

// Role is the closed set of account roles. Stored as a plain string
// column; comparisons in code go through the typed constants.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// AdminUsername is the single superuser account. Manager moderation
// stops at posts owned by this account.
const AdminUsername = "admin"

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         Role   `gorm:"not null"                 json:"role"`
}

type Post struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title         string    `gorm:"not null"                 json:"title"`
	Body          string    `gorm:"not null"                 json:"body"`
	OwnerUsername string    `gorm:"index;not null"           json:"owner_username"`
	CreatedAt     time.Time `json:"created_at"`
	IsVisible     bool      `gorm:"default:true"             json:"is_visible"`
}

type MenuItem struct {
	ID    uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Title string `gorm:"not null"                 json:"title"`
	URL   string `gorm:"not null"                 json:"url"`
}
