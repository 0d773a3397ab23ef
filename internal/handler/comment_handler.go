package handler

import (
	"net/http"

	"github.com/fineblog/internal/service"
	"github.com/gin-gonic/gin"
)

type commentForm struct {
	PostID      uint   `form:"post_id" json:"post_id" binding:"required"`
	AuthorName  string `form:"author_name" json:"author_name"`
	AuthorEmail string `form:"author_email" json:"author_email"`
	Content     string `form:"content" json:"content"`
}

// CreateComment 访客对文章发表评论，无需登录
func (a *API) CreateComment(c *gin.Context) {
	var form commentForm
	if err := c.ShouldBind(&form); err != nil {
		respondError(c, http.StatusBadRequest, "invalid comment")
		return
	}

	comment, err := a.comments.Create(c.Request.Context(), form.PostID, service.CommentInput{
		AuthorName:  form.AuthorName,
		AuthorEmail: form.AuthorEmail,
		Content:     form.Content,
	})
	if err != nil {
		a.respondServiceError(c, err, "failed to save comment")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "comment saved", "comment": newCommentView(*comment)})
}

// DeleteComment 删除评论（评论作者或管理员）
func (a *API) DeleteComment(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid comment id")
		return
	}

	comment, err := a.comments.Delete(c.Request.Context(), id, currentPrincipal(c))
	if err != nil {
		a.respondServiceError(c, err, "failed to delete comment")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "comment deleted", "postId": comment.PostID})
}
