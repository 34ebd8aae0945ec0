package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	FullName     string `gorm:"column:full_name;size:255;not null" json:"full_name"`
	Email        string `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	USN          string `gorm:"column:usn;size:20;not null;uniqueIndex" json:"usn"`
	PasswordHash string `gorm:"column:password_hash;size:255;not null" json:"-"`
	Role         string `gorm:"column:role;size:50;not null;default:Student" json:"role"`
	// Reputation moves with likes on the user's blogs and never goes negative.
	Reputation         int    `gorm:"column:reputation;not null;default:0" json:"reputation"`
	Bio                string `gorm:"column:bio;type:text" json:"bio,omitempty"`
	ProfilePicturePath string `gorm:"column:profile_picture_path;size:255" json:"profile_picture_path"`

	EmailVerified         bool      `gorm:"column:email_verified;default:false" json:"email_verified"`
	EmailVerificationCode string    `gorm:"size:6" json:"-"`
	VerificationExpiry    time.Time `json:"-"`

	Refresh               string    `gorm:"column:refresh_token;size:255" json:"-"`
	RefreshTokenExpiredAt time.Time `gorm:"column:refresh_token_expired_at" json:"-"`

	Blogs []Blog `gorm:"foreignKey:AuthorID" json:"blogs,omitempty"`
}

type PasswordResetToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null"`
	Token     string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
}
