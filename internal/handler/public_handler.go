package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListPublishedPosts 返回首页的已发布文章
func (a *API) ListPublishedPosts(c *gin.Context) {
	result, err := a.posts.ListPublished(c.Request.Context(), parsePage(c))
	if err != nil {
		a.respondServiceError(c, err, "failed to load posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":      newPostViews(result.Posts),
		"total":      result.Total,
		"page":       result.Page,
		"totalPages": result.TotalPages,
	})
}

// ShowPost 按 slug 展示文章、标签与评论
func (a *API) ShowPost(c *gin.Context) {
	post, err := a.posts.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		a.respondServiceError(c, err, "failed to load post")
		return
	}
	if !post.IsPublished {
		// drafts are only visible through the admin API
		respondError(c, http.StatusNotFound, "post not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": newPublicPostView(*post)})
}

// ListTaggedPosts 返回带有指定标签的已发布文章
func (a *API) ListTaggedPosts(c *gin.Context) {
	tag := c.Param("tag")
	posts, err := a.posts.ListByTag(c.Request.Context(), tag)
	if err != nil {
		a.respondServiceError(c, err, "failed to load posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"filterType":  "tag",
		"filterValue": tag,
		"posts":       newPostViews(posts),
	})
}

// ListTags 返回已发布文章使用的标签及次数
func (a *API) ListTags(c *gin.Context) {
	usage, err := a.tags.PublishedUsage(c.Request.Context())
	if err != nil {
		a.respondServiceError(c, err, "failed to load tags")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": usage})
}
