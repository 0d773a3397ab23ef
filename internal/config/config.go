package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr           string
	Port                 string
	DatabasePath         string
	SessionSecret        string
	GinMode              string
	LogLevel             string
	ThumbnailDir         string
	ContentImageDir      string
	MaxThumbnailBytes    int64
	MaxContentImageBytes int64
	PostsPerPage         int
	AdminUserName        string
	AdminPassword        string
}

// Load 从环境变量（以及可选的 .env 文件）读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	// .env 不存在时忽略，真实环境变量优先
	_ = godotenv.Load()

	port := envString("PORT", "8080")

	return AppConfig{
		ListenAddr:           envString("LISTEN_ADDR", fmt.Sprintf(":%s", port)),
		Port:                 port,
		DatabasePath:         envString("DATABASE_PATH", "fineblog.db"),
		SessionSecret:        envString("SESSION_SECRET", "fineblog-dev-secret"),
		GinMode:              envString("GIN_MODE", "release"),
		LogLevel:             envString("LOG_LEVEL", "info"),
		ThumbnailDir:         envString("THUMBNAIL_DIR", "web/static/thumbnails"),
		ContentImageDir:      envString("CONTENT_IMAGE_DIR", "web/static/content-images"),
		MaxThumbnailBytes:    envInt64("MAX_THUMBNAIL_BYTES", 5<<20),
		MaxContentImageBytes: envInt64("MAX_CONTENT_IMAGE_BYTES", 10<<20),
		PostsPerPage:         int(envInt64("POSTS_PER_PAGE", 5)),
		AdminUserName:        envString("ADMIN_USER_NAME", ""),
		AdminPassword:        envString("ADMIN_PASSWORD", ""),
	}
}

func envString(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
