package models

import (
	"time"

	"gorm.io/gorm"
)

// CalendarLink stores the OAuth grant from a member who connected their own
// Google calendar through the consent flow.
type CalendarLink struct {
	gorm.Model
	UserID       uint      `gorm:"column:user_id;not null;uniqueIndex" json:"user_id"`
	RefreshToken string    `gorm:"column:refresh_token;size:512;not null" json:"-"`
	Scope        string    `gorm:"column:scope;size:255" json:"scope"`
	LinkedAt     time.Time `gorm:"column:linked_at" json:"linked_at"`
}

// CalendarEvent is the shape the proxy returns to the UI, independent of the
// upstream vendor payload.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
}
