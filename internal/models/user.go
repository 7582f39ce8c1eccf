package models

import (
	"time"
)

// User represents an account that can log in and submit inspections.
// Email is unique and compared case-sensitively.
type User struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id" bson:"-"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email" bson:"email"`
	PasswordHash string    `gorm:"column:password;not null" json:"-" bson:"password"`
	Name         *string   `json:"name" bson:"name"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// UserPublic is the projection returned to clients. It never carries the digest.
type UserPublic struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

// Public returns the client-facing projection of u.
func (u User) Public() UserPublic {
	return UserPublic{ID: u.ID, Email: u.Email, Name: u.Name}
}
