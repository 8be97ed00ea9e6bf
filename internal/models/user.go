package models

import (
	"time"

	"gorm.io/gorm"
)

// UserType represents the type of user
type UserType string

const (
	UserTypeAdmin  UserType = "Admin"
	UserTypeMember UserType = "Member"
)

// User is a therapist account; sessions and payments are owned by a user
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name        string   `gorm:"type:varchar(255)" json:"name"`
	Email       string   `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	FirebaseUID *string  `gorm:"type:varchar(128);uniqueIndex" json:"-"`
	UserType    UserType `gorm:"type:varchar(20);default:'Member'" json:"user_type"`
}

func (u User) IsAdmin() bool {
	return u.UserType == UserTypeAdmin
}
