package handler

import (
	"net/http"

	"github.com/fineblog/internal/service"
	"github.com/gin-gonic/gin"
)

type postForm struct {
	Title            string `form:"title" json:"title"`
	ShortDescription string `form:"short_description" json:"short_description"`
	Description      string `form:"description" json:"description"`
	TagInput         string `form:"tag_input" json:"tag_input"`
	IsPublished      bool   `form:"is_published" json:"is_published"`
}

// bindPostInput reads the post form and the optional thumbnail file. The
// returned cleanup closes the opened file.
func bindPostInput(c *gin.Context) (service.PostInput, func(), bool) {
	var form postForm
	if err := c.ShouldBind(&form); err != nil {
		respondError(c, http.StatusBadRequest, "invalid form data")
		return service.PostInput{}, func() {}, false
	}

	input := service.PostInput{
		Title:            form.Title,
		ShortDescription: form.ShortDescription,
		Description:      form.Description,
		TagInput:         form.TagInput,
		IsPublished:      form.IsPublished,
	}

	file, err := c.FormFile("thumbnail")
	if err != nil {
		return input, func() {}, true
	}
	src, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "could not read thumbnail")
		return service.PostInput{}, func() {}, false
	}
	input.Thumbnail = &service.Upload{Name: file.Filename, Reader: src}
	return input, func() { src.Close() }, true
}

// ListPosts 返回当前用户可管理的文章（管理员可见全部）
func (a *API) ListPosts(c *gin.Context) {
	result, err := a.posts.List(c.Request.Context(), currentPrincipal(c), parsePage(c))
	if err != nil {
		a.respondServiceError(c, err, "failed to load posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":      newPostViews(result.Posts),
		"total":      result.Total,
		"page":       result.Page,
		"perPage":    result.PerPage,
		"totalPages": result.TotalPages,
	})
}

// GetPost 返回编辑表单所需的文章数据
func (a *API) GetPost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid post id")
		return
	}

	post, err := a.posts.EditForm(c.Request.Context(), currentPrincipal(c), id)
	if err != nil {
		a.respondServiceError(c, err, "failed to load post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": newPostView(*post, true)})
}

// CreatePost 创建新文章
func (a *API) CreatePost(c *gin.Context) {
	input, cleanup, ok := bindPostInput(c)
	if !ok {
		return
	}
	defer cleanup()

	result, err := a.posts.Create(c.Request.Context(), currentPrincipal(c), input)
	if err != nil {
		a.respondServiceError(c, err, "failed to create post")
		return
	}

	response := gin.H{"message": "post created", "post": newPostView(*result.Post, true)}
	if result.Warning != "" {
		response["warning"] = result.Warning
	}
	c.JSON(http.StatusCreated, response)
}

// UpdatePost 更新文章
func (a *API) UpdatePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid post id")
		return
	}

	input, cleanup, ok := bindPostInput(c)
	if !ok {
		return
	}
	defer cleanup()

	result, err := a.posts.Edit(c.Request.Context(), currentPrincipal(c), id, input)
	if err != nil {
		a.respondServiceError(c, err, "failed to update post")
		return
	}

	response := gin.H{"message": "post updated", "post": newPostView(*result.Post, true)}
	if result.Warning != "" {
		response["warning"] = result.Warning
	}
	c.JSON(http.StatusOK, response)
}

// DeletePost 删除文章及其标签关联、评论与图片
func (a *API) DeletePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid post id")
		return
	}

	if err := a.posts.Delete(c.Request.Context(), currentPrincipal(c), id); err != nil {
		a.respondServiceError(c, err, "failed to delete post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "post deleted"})
}
