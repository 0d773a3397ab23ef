package handler

import (
	"github.com/fineblog/internal/service"
	"github.com/fineblog/internal/storage"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db       *gorm.DB
	posts    *service.PostService
	tags     *service.TagService
	comments *service.CommentService
	assets   *storage.LocalStore
	logger   zerolog.Logger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, assets *storage.LocalStore, logger zerolog.Logger, perPage int) *API {
	reconciler := service.NewTagReconciler()
	reconciler.SetLogger(logger)

	posts := service.NewPostService(gdb, reconciler, assets)
	posts.SetLogger(logger)
	posts.SetPerPage(perPage)

	comments := service.NewCommentService(gdb)
	comments.SetLogger(logger)

	return &API{
		db:       gdb,
		posts:    posts,
		tags:     service.NewTagService(gdb),
		comments: comments,
		assets:   assets,
		logger:   logger.With().Str("component", "http").Logger(),
	}
}
