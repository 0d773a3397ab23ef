package db

import "time"

// Comment 定义了评论模型
type Comment struct {
	ID          uint   `gorm:"primaryKey"`
	Content     string `gorm:"not null"`
	AuthorName  string `gorm:"not null"`
	AuthorEmail string
	PostID      uint      `gorm:"index;not null"`
	CreatedAt   time.Time `gorm:"index"`
}
