package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type Announcement struct {
	gorm.Model
	Message  string `gorm:"column:message;type:text;not null" json:"message"`
	Audience string `gorm:"column:audience;size:50;default:all" json:"audience"`
	PostedBy uint   `gorm:"column:posted_by;not null" json:"posted_by"`
	Poster   *User  `gorm:"foreignKey:PostedBy" json:"poster,omitempty"`
}

type Quiz struct {
	gorm.Model
	Code     string         `gorm:"column:code;size:20;not null;uniqueIndex" json:"code"`
	Title    string         `gorm:"column:title;size:255;not null" json:"title"`
	Link     string         `gorm:"column:link;size:500" json:"link"`
	Topics   pq.StringArray `gorm:"column:topics;type:text[]" json:"topics,omitempty"`
	Deadline time.Time      `gorm:"column:deadline" json:"deadline"`
	AddedBy  uint           `gorm:"column:added_by;not null" json:"added_by"`
}

type News struct {
	gorm.Model
	Title     string `gorm:"column:title;size:255;not null" json:"title"`
	Body      string `gorm:"column:body;type:text;not null" json:"body"`
	BannerURL string `gorm:"column:banner_url;size:500" json:"banner_url"`
	AddedBy   uint   `gorm:"column:added_by;not null" json:"added_by"`
}

type Movie struct {
	gorm.Model
	Title    string `gorm:"column:title;size:255;not null" json:"title"`
	URL      string `gorm:"column:url;size:500;not null" json:"url"`
	Category string `gorm:"column:category;size:50" json:"category"`
	AddedBy  uint   `gorm:"column:added_by;not null" json:"added_by"`
}

type Suggestion struct {
	gorm.Model
	UserID  uint   `gorm:"column:user_id;not null" json:"user_id"`
	Content string `gorm:"column:content;type:text;not null" json:"content"`
	Status  string `gorm:"column:status;size:20;not null;default:open" json:"status"`
	User    *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
