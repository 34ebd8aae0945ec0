package models

import "gorm.io/gorm"

type Blog struct {
	gorm.Model
	AuthorID    uint   `gorm:"column:author_id;not null;index" json:"author_id"`
	Title       string `gorm:"column:title;size:255;not null" json:"title"`
	Description string `gorm:"column:description;type:text;not null" json:"description"`
	Content     string `gorm:"column:content;type:text;not null" json:"content"`
	BannerURL   string `gorm:"column:banner_url;size:500" json:"banner_url"`
	Category    string `gorm:"column:category;size:50" json:"category"`
	LikesCount  int    `gorm:"column:likes_count;not null;default:0" json:"likes_count"`
	IsFeatured  bool   `gorm:"column:is_featured;default:false" json:"is_featured"`

	Author  *User    `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Likes   []Like   `gorm:"foreignKey:BlogID" json:"likes,omitempty"`
	Reports []Report `gorm:"foreignKey:BlogID" json:"reports,omitempty"`
}

// Like is one row per (user, blog) pair; the unique index is what makes the
// toggle idempotent under double submits.
type Like struct {
	gorm.Model
	UserID uint  `gorm:"column:user_id;not null;uniqueIndex:idx_blog_user_like" json:"user_id"`
	BlogID uint  `gorm:"column:blog_id;not null;uniqueIndex:idx_blog_user_like" json:"blog_id"`
	User   *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

type Report struct {
	gorm.Model
	UserID uint   `gorm:"column:user_id;not null;uniqueIndex:idx_blog_user_report" json:"user_id"`
	BlogID uint   `gorm:"column:blog_id;not null;uniqueIndex:idx_blog_user_report" json:"blog_id"`
	Reason string `gorm:"column:reason;size:500;not null" json:"reason"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// ReportThreshold is the number of distinct reporters that removes a blog.
const ReportThreshold = 5
