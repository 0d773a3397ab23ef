package service

import (
	"errors"
	"strings"

	"github.com/fineblog/internal/db"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ParseTagInput splits a comma separated tag list into distinct, trimmed,
// non-empty names. Names are compared case-sensitively; the first occurrence wins
// the position.
func ParseTagInput(raw string) []string {
	segments := strings.Split(raw, ",")
	names := make([]string, 0, len(segments))
	seen := make(map[string]struct{}, len(segments))
	for _, segment := range segments {
		name := strings.TrimSpace(segment)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// TagReconciler makes a post's tag links match a free-text tag list.
type TagReconciler struct {
	logger zerolog.Logger
}

// NewTagReconciler creates a TagReconciler.
func NewTagReconciler() *TagReconciler {
	return &TagReconciler{logger: zerolog.Nop()}
}

// SetLogger replaces the no-op logger.
func (r *TagReconciler) SetLogger(logger zerolog.Logger) {
	r.logger = logger.With().Str("component", "tags").Logger()
}

// Reconcile creates missing tags and links exactly the tags named in raw to the
// post, unlinking any others. tx should be the caller's transaction.
func (r *TagReconciler) Reconcile(tx *gorm.DB, postID uint, raw string) error {
	return r.reconcile(tx, postID, raw, true)
}

// ReconcileReplace is Reconcile for callers that already cleared the post's links.
func (r *TagReconciler) ReconcileReplace(tx *gorm.DB, postID uint, raw string) error {
	return r.reconcile(tx, postID, raw, false)
}

// Clear removes every tag link of the post.
func (r *TagReconciler) Clear(tx *gorm.DB, postID uint) error {
	return tx.Where("post_id = ?", postID).Delete(&db.PostTag{}).Error
}

func (r *TagReconciler) reconcile(tx *gorm.DB, postID uint, raw string, prune bool) error {
	names := ParseTagInput(raw)
	if len(names) == 0 {
		return r.Clear(tx, postID)
	}

	tags, err := r.ensureTags(tx, names)
	if err != nil {
		return err
	}

	tagIDs := make([]uint, 0, len(tags))
	for _, tag := range tags {
		tagIDs = append(tagIDs, tag.ID)
	}

	if prune {
		if err := tx.Where("post_id = ? AND tag_id NOT IN ?", postID, tagIDs).
			Delete(&db.PostTag{}).Error; err != nil {
			return err
		}
	}

	links := make([]db.PostTag, 0, len(tagIDs))
	for _, id := range tagIDs {
		links = append(links, db.PostTag{PostID: postID, TagID: id})
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
		return err
	}

	r.logger.Debug().Uint("post_id", postID).Strs("tags", names).Msg("tags reconciled")
	return nil
}

// ensureTags returns one stored tag per name, creating the missing ones in a batch.
func (r *TagReconciler) ensureTags(tx *gorm.DB, names []string) ([]db.Tag, error) {
	var existing []db.Tag
	if err := tx.Where("name IN ?", names).Find(&existing).Error; err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(existing))
	for _, tag := range existing {
		known[tag.Name] = struct{}{}
	}

	missing := make([]db.Tag, 0, len(names)-len(existing))
	for _, name := range names {
		if _, ok := known[name]; !ok {
			missing = append(missing, db.Tag{Name: name})
		}
	}
	if len(missing) == 0 {
		return existing, nil
	}

	if err := tx.Create(&missing).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.Join(ErrTagConflict, err)
		}
		return nil, err
	}

	r.logger.Info().Int("count", len(missing)).Msg("tags created")
	return append(existing, missing...), nil
}
