package main

import (
	"os"
	"strings"
	"time"

	"github.com/fineblog/internal/config"
	"github.com/fineblog/internal/db"
	"github.com/fineblog/internal/handler"
	"github.com/fineblog/internal/router"
	"github.com/fineblog/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)

	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	gdb, err := db.Init(cfg.DatabasePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to initialize database")
	}

	if err := db.EnsureUser(gdb, cfg.AdminUserName, cfg.AdminPassword, db.RoleAdmin); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure admin user")
	}

	assets := storage.NewLocalStore(storage.Options{
		ThumbnailDir:         cfg.ThumbnailDir,
		ContentImageDir:      cfg.ContentImageDir,
		MaxThumbnailBytes:    cfg.MaxThumbnailBytes,
		MaxContentImageBytes: cfg.MaxContentImageBytes,
	})
	assets.SetLogger(logger)

	api := handler.NewAPI(gdb, assets, logger, cfg.PostsPerPage)

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(api, cfg.SessionSecret, cfg.ThumbnailDir, cfg.ContentImageDir)
	logger.Info().Str("addr", cfg.ListenAddr).Msg("server listening")
	if err := r.Run(cfg.ListenAddr); err != nil {
		logger.Fatal().Err(err).Msg("failed to run server")
	}
}

func newLogger(cfg config.AppConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.GinMode == gin.DebugMode {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Str("service", "fineblog").Logger()
}
