package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fineblog/internal/db"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// CommentInput represents fields accepted when a visitor comments on a post.
type CommentInput struct {
	AuthorName  string `validate:"required,max=100"`
	AuthorEmail string `validate:"omitempty,email,max=254"`
	Content     string `validate:"required,max=2000"`
}

// CommentService handles comment creation and removal.
type CommentService struct {
	db     *gorm.DB
	now    func() time.Time
	logger zerolog.Logger
}

// NewCommentService creates a CommentService instance.
func NewCommentService(gdb *gorm.DB) *CommentService {
	return &CommentService{db: gdb, now: time.Now, logger: zerolog.Nop()}
}

// SetLogger replaces the no-op logger.
func (s *CommentService) SetLogger(logger zerolog.Logger) {
	s.logger = logger.With().Str("component", "comments").Logger()
}

// Create adds a comment to an existing post. Anyone may comment.
func (s *CommentService) Create(ctx context.Context, postID uint, input CommentInput) (*db.Comment, error) {
	input.AuthorName = strings.TrimSpace(input.AuthorName)
	input.AuthorEmail = strings.TrimSpace(input.AuthorEmail)
	input.Content = strings.TrimSpace(input.Content)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&db.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return nil, persistenceError("create comment", err)
	}
	if count == 0 {
		return nil, ErrPostNotFound
	}

	comment := db.Comment{
		Content:     input.Content,
		AuthorName:  input.AuthorName,
		AuthorEmail: input.AuthorEmail,
		PostID:      postID,
		CreatedAt:   s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, persistenceError("create comment", err)
	}

	s.logger.Info().Uint("comment_id", comment.ID).Uint("post_id", postID).Msg("comment created")
	return &comment, nil
}

// Delete removes a comment written by principal, or any comment for elevated users.
// The deleted comment is returned so callers know which post it belonged to.
func (s *CommentService) Delete(ctx context.Context, commentID uint, principal Principal) (*db.Comment, error) {
	var comment db.Comment
	if err := s.db.WithContext(ctx).First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}

	if !CanDeleteComment(principal, &comment) {
		return nil, ErrForbidden
	}

	if err := s.db.WithContext(ctx).Delete(&db.Comment{}, comment.ID).Error; err != nil {
		return nil, persistenceError("delete comment", err)
	}

	s.logger.Info().Uint("comment_id", comment.ID).Uint("post_id", comment.PostID).Msg("comment deleted")
	return &comment, nil
}
