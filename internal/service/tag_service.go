package service

import (
	"context"

	"gorm.io/gorm"
)

// TagService exposes read-only tag queries; tags are written by the TagReconciler.
type TagService struct {
	db *gorm.DB
}

// TagUsage 描述标签被已发布文章使用的次数
type TagUsage struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// NewTagService creates a TagService instance.
func NewTagService(gdb *gorm.DB) *TagService {
	return &TagService{db: gdb}
}

// PublishedUsage returns tags linked to at least one published post, ordered by name.
func (s *TagService) PublishedUsage(ctx context.Context) ([]TagUsage, error) {
	var rows []TagUsage
	if err := s.db.WithContext(ctx).Table("tags").
		Select("tags.id, tags.name, COUNT(DISTINCT posts.id) AS count").
		Joins("JOIN post_tags ON post_tags.tag_id = tags.id").
		Joins("JOIN posts ON posts.id = post_tags.post_id").
		Where("posts.is_published = ?", true).
		Group("tags.id, tags.name").
		Order("tags.name asc").
		Order("tags.id asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []TagUsage{}
	}
	return rows, nil
}

// OrphanCount reports how many tags are no longer linked to any post.
func (s *TagService) OrphanCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Table("tags").
		Where("NOT EXISTS (SELECT 1 FROM post_tags WHERE post_tags.tag_id = tags.id)").
		Count(&count).Error
	return count, err
}
