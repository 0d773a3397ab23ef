package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/fineblog/internal/db"
	"github.com/fineblog/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const defaultPostsPerPage = 5

// AssetStore is the file side of a post: thumbnails and images embedded in bodies.
type AssetStore interface {
	StoreThumbnail(src io.Reader, originalName string) (string, error)
	DeleteThumbnail(name string)
	DeleteContentImagesReferencedIn(body string) int
}

// Upload is a submitted file.
type Upload struct {
	Name   string
	Reader io.Reader
}

// PostInput represents fields accepted when creating or updating a post.
type PostInput struct {
	Title            string `validate:"required,max=200"`
	ShortDescription string `validate:"max=500"`
	Description      string
	TagInput         string `validate:"max=1000"`
	IsPublished      bool
	Thumbnail        *Upload `validate:"-"`
}

// PostResult is the outcome of a successful create or edit. Warning is set when
// the post was saved but its thumbnail could not be stored.
type PostResult struct {
	Post    *db.Post
	Warning string
}

// PostListResult aggregates paginated list data.
type PostListResult struct {
	Posts      []db.Post
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// PostService wraps the post lifecycle: writes run in one transaction while
// files are stored before it and cleaned up after it.
type PostService struct {
	db      *gorm.DB
	tags    *TagReconciler
	assets  AssetStore
	perPage int
	logger  zerolog.Logger
}

// NewPostService creates a PostService instance.
func NewPostService(gdb *gorm.DB, tags *TagReconciler, assets AssetStore) *PostService {
	return &PostService{
		db:      gdb,
		tags:    tags,
		assets:  assets,
		perPage: defaultPostsPerPage,
		logger:  zerolog.Nop(),
	}
}

// SetLogger replaces the no-op logger.
func (s *PostService) SetLogger(logger zerolog.Logger) {
	s.logger = logger.With().Str("component", "posts").Logger()
}

// SetPerPage changes the listing page size.
func (s *PostService) SetPerPage(perPage int) {
	if perPage > 0 {
		s.perPage = perPage
	}
}

// Get fetches a post by id with tags and author preloaded.
func (s *PostService) Get(ctx context.Context, id uint) (*db.Post, error) {
	var post db.Post
	if err := s.db.WithContext(ctx).Preload("Tags").Preload("User").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// EditForm loads a post for editing by principal; post.TagInput() pre-fills the form.
func (s *PostService) EditForm(ctx context.Context, principal Principal, id uint) (*db.Post, error) {
	if !principal.Authenticated() {
		return nil, ErrUnauthenticated
	}
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanMutate(principal, post) {
		return nil, ErrForbidden
	}
	return post, nil
}

// GetBySlug returns a post with author, tags and comments for public display.
func (s *PostService) GetBySlug(ctx context.Context, slug string) (*db.Post, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrPostNotFound
	}

	var post db.Post
	if err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Tags").
		Preload("Comments", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at asc, id asc")
		}).
		Where("slug = ?", slug).
		First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// List returns the posts principal may manage: all of them for elevated users,
// otherwise only their own.
func (s *PostService) List(ctx context.Context, principal Principal, page int) (*PostListResult, error) {
	if !principal.Authenticated() {
		return nil, ErrUnauthenticated
	}

	return s.paginate(ctx, page, func(tx *gorm.DB) *gorm.DB {
		if principal.IsElevated() {
			return tx
		}
		return tx.Where("posts.user_id = ?", principal.UserID)
	})
}

// ListPublished returns published posts, newest first.
func (s *PostService) ListPublished(ctx context.Context, page int) (*PostListResult, error) {
	return s.paginate(ctx, page, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("posts.is_published = ?", true)
	})
}

// ListByTag returns published posts linked to the tag with exactly that name.
func (s *PostService) ListByTag(ctx context.Context, tag string) ([]db.Post, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return []db.Post{}, nil
	}

	subQuery := s.db.Model(&db.PostTag{}).
		Select("post_tags.post_id").
		Joins("JOIN tags ON tags.id = post_tags.tag_id").
		Where("tags.name = ?", tag)

	var posts []db.Post
	if err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Tags").
		Where("posts.is_published = ?", true).
		Where("posts.id IN (?)", subQuery).
		Order("posts.created_at desc, posts.id desc").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// Create stores the thumbnail, then inserts the post and its tag links in one transaction.
func (s *PostService) Create(ctx context.Context, principal Principal, input PostInput) (*PostResult, error) {
	if !principal.Authenticated() {
		return nil, ErrUnauthenticated
	}
	input = normalizePostInput(input)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	thumbnail, warning, err := s.storeThumbnail(input.Thumbnail)
	if err != nil {
		return nil, err
	}

	post := db.Post{
		Title:            input.Title,
		Slug:             Slugify(input.Title) + "-" + uuid.NewString(),
		ShortDescription: input.ShortDescription,
		Description:      input.Description,
		ThumbnailURL:     thumbnail,
		IsPublished:      input.IsPublished,
		UserID:           principal.UserID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		if input.TagInput != "" {
			if err := s.tags.Reconcile(tx, post.ID, input.TagInput); err != nil {
				return err
			}
		}
		return tx.Preload("Tags").Preload("User").First(&post, post.ID).Error
	})
	if err != nil {
		if thumbnail != "" {
			s.assets.DeleteThumbnail(thumbnail)
		}
		s.logger.Error().Err(err).Str("title", input.Title).Msg("create post failed")
		return nil, persistenceError("create post", err)
	}

	s.logger.Info().Uint("post_id", post.ID).Uint("user_id", principal.UserID).Msg("post created")
	return &PostResult{Post: &post, Warning: warning}, nil
}

// Edit updates a post the principal may mutate. A replaced thumbnail is deleted
// only after the update is committed.
func (s *PostService) Edit(ctx context.Context, principal Principal, id uint, input PostInput) (*PostResult, error) {
	if !principal.Authenticated() {
		return nil, ErrUnauthenticated
	}
	input = normalizePostInput(input)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanMutate(principal, existing) {
		return nil, ErrForbidden
	}

	thumbnail, warning, err := s.storeThumbnail(input.Thumbnail)
	if err != nil {
		return nil, err
	}

	var (
		post     db.Post
		previous string
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}
		previous = post.ThumbnailURL

		updates := map[string]any{
			"title":             input.Title,
			"short_description": input.ShortDescription,
			"description":       input.Description,
			"is_published":      input.IsPublished,
		}
		if thumbnail != "" {
			updates["thumbnail_url"] = thumbnail
		}
		if err := tx.Model(&db.Post{}).Where("id = ?", post.ID).Updates(updates).Error; err != nil {
			return err
		}

		if err := s.tags.Clear(tx, post.ID); err != nil {
			return err
		}
		if err := s.tags.ReconcileReplace(tx, post.ID, input.TagInput); err != nil {
			return err
		}
		return tx.Preload("Tags").Preload("User").First(&post, post.ID).Error
	})
	if err != nil {
		if thumbnail != "" {
			s.assets.DeleteThumbnail(thumbnail)
		}
		if errors.Is(err, ErrPostNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Uint("post_id", id).Msg("edit post failed")
		return nil, persistenceError("edit post", err)
	}

	if thumbnail != "" && previous != "" && previous != thumbnail {
		s.assets.DeleteThumbnail(previous)
	}

	s.logger.Info().Uint("post_id", post.ID).Uint("user_id", principal.UserID).Msg("post updated")
	return &PostResult{Post: &post, Warning: warning}, nil
}

// Delete removes a post with its tag links and comments, then best-effort
// deletes the files it owned.
func (s *PostService) Delete(ctx context.Context, principal Principal, id uint) error {
	if !principal.Authenticated() {
		return ErrUnauthenticated
	}

	var post db.Post
	if err := s.db.WithContext(ctx).Preload("Tags").Preload("Comments").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return err
	}
	if !CanMutate(principal, &post) {
		return ErrForbidden
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.tags.Clear(tx, post.ID); err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&db.Comment{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&db.Post{}, post.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPostNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return err
		}
		s.logger.Error().Err(err).Uint("post_id", id).Msg("delete post failed")
		return persistenceError("delete post", err)
	}

	images := s.assets.DeleteContentImagesReferencedIn(post.ShortDescription + "\n" + post.Description)
	s.assets.DeleteThumbnail(post.ThumbnailURL)

	s.logger.Info().
		Uint("post_id", post.ID).
		Int("tags", len(post.Tags)).
		Int("comments", len(post.Comments)).
		Int("content_images", images).
		Msg("post deleted")
	return nil
}

// storeThumbnail stores an optional upload. Rejected images fail validation;
// I/O failures only produce a warning so the post is saved without a thumbnail.
func (s *PostService) storeThumbnail(upload *Upload) (string, string, error) {
	if upload == nil || upload.Reader == nil {
		return "", "", nil
	}

	name, err := s.assets.StoreThumbnail(upload.Reader, upload.Name)
	switch {
	case err == nil:
		return name, "", nil
	case errors.Is(err, storage.ErrInvalidImage):
		return "", "", newValidationError("Thumbnail", err.Error())
	default:
		s.logger.Warn().Err(err).Str("file", upload.Name).Msg("thumbnail not stored")
		return "", "thumbnail could not be saved", nil
	}
}

func (s *PostService) paginate(ctx context.Context, page int, filter func(*gorm.DB) *gorm.DB) (*PostListResult, error) {
	result := &PostListResult{Page: normalizePage(page), PerPage: s.perPage}

	if err := s.db.WithContext(ctx).Model(&db.Post{}).Scopes(filter).Count(&result.Total).Error; err != nil {
		return nil, err
	}
	result.TotalPages = calculateTotalPages(result.Total, result.PerPage)

	var posts []db.Post
	if err := s.db.WithContext(ctx).Model(&db.Post{}).Scopes(filter).
		Preload("Tags").
		Preload("User").
		Order("posts.created_at desc, posts.id desc").
		Limit(result.PerPage).
		Offset((result.Page - 1) * result.PerPage).
		Find(&posts).Error; err != nil {
		return nil, err
	}

	result.Posts = posts
	return result, nil
}

func normalizePostInput(input PostInput) PostInput {
	input.Title = strings.TrimSpace(input.Title)
	input.ShortDescription = strings.TrimSpace(input.ShortDescription)
	input.TagInput = strings.TrimSpace(input.TagInput)
	return input
}

// Slugify lowercases title and joins its ASCII letters and digits with hyphens.
func Slugify(title string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingDash = false
			continue
		}
		pendingDash = true
	}
	if b.Len() == 0 {
		return "post"
	}
	return b.String()
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func calculateTotalPages(total int64, perPage int) int {
	if perPage <= 0 || total == 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
