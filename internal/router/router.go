package router

import (
	"net/http"

	"github.com/fineblog/internal/handler"
	"github.com/fineblog/internal/storage"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, sessionSecret, thumbnailDir, contentImageDir string) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("fineblog_session", store))

	// 图片文件服务
	r.Static(storage.ThumbnailURLPrefix, thumbnailDir)
	r.Static(storage.ContentImageURLPrefix, contentImageDir)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// 前台路由
	blog := r.Group("/blog")
	{
		blog.GET("", api.ListPublishedPosts)
		blog.GET("/tags", api.ListTags)
		blog.GET("/tag/:tag", api.ListTaggedPosts)
		blog.GET("/post/:slug", api.ShowPost)
	}
	r.POST("/comments", api.CreateComment)

	// 后台管理路由
	admin := r.Group("/admin")
	{
		admin.POST("/login", api.Login)
		admin.GET("/logout", api.Logout)

		auth := admin.Group("")
		auth.Use(api.AuthRequired())
		{
			auth.GET("/dashboard", api.ShowDashboard)

			apiGroup := auth.Group("/api")
			{
				apiGroup.GET("/posts", api.ListPosts)
				apiGroup.GET("/posts/:id", api.GetPost)
				apiGroup.POST("/posts", api.CreatePost)
				apiGroup.PUT("/posts/:id", api.UpdatePost)
				apiGroup.DELETE("/posts/:id", api.DeletePost)

				apiGroup.POST("/uploads", api.UploadContentImage)
				apiGroup.DELETE("/comments/:id", api.DeleteComment)
			}
		}
	}

	return r
}
