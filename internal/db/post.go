package db

import (
	"strings"
	"time"
)

// Post 定义了文章模型
type Post struct {
	ID               uint   `gorm:"primaryKey"`
	Title            string `gorm:"not null"`
	Slug             string `gorm:"uniqueIndex;not null"`
	ShortDescription string
	Description      string
	ThumbnailURL     string
	IsPublished      bool `gorm:"index"`
	UserID           uint `gorm:"index"`
	User             User
	Tags             []Tag     `gorm:"many2many:post_tags;"`
	Comments         []Comment `gorm:"constraint:OnDelete:RESTRICT;"`
	CreatedAt        time.Time `gorm:"index"`
	UpdatedAt        time.Time
}

// TagNames returns the names of the preloaded tags in their loaded order.
func (p Post) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, tag := range p.Tags {
		names = append(names, tag.Name)
	}
	return names
}

// TagInput joins the preloaded tag names the way the edit form expects them.
func (p Post) TagInput() string {
	return strings.Join(p.TagNames(), ", ")
}

// AuthorName returns the display name of the preloaded author.
func (p Post) AuthorName() string {
	if p.User.ID == 0 {
		return "Unknown"
	}
	return p.User.DisplayName()
}
