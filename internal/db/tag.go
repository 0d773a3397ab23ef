package db

import "time"

// Tag 定义了标签模型，名称区分大小写且唯一
type Tag struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"-"`
}

// PostTag 是文章与标签的关联表，(post_id, tag_id) 为复合主键
type PostTag struct {
	PostID    uint `gorm:"primaryKey;autoIncrement:false"`
	TagID     uint `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time
}
