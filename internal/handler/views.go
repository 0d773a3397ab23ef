package handler

import (
	"html/template"
	"time"

	"github.com/fineblog/internal/db"
	"github.com/fineblog/internal/storage"
	"github.com/fineblog/internal/view"
)

const excerptLength = 160

type postView struct {
	ID               uint      `json:"id"`
	Title            string    `json:"title"`
	Slug             string    `json:"slug"`
	ShortDescription string    `json:"short_description"`
	Description      string    `json:"description,omitempty"`
	ThumbnailURL     string    `json:"thumbnail_url,omitempty"`
	IsPublished      bool      `json:"is_published"`
	Author           string    `json:"author"`
	UserID           uint      `json:"user_id"`
	Tags             []string  `json:"tags"`
	TagInput         string    `json:"tag_input"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type commentView struct {
	ID         uint      `json:"id"`
	PostID     uint      `json:"post_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

type publicPostView struct {
	postView
	DescriptionHTML template.HTML `json:"description_html"`
	Comments        []commentView `json:"comments"`
}

func newPostView(post db.Post, withBody bool) postView {
	pv := postView{
		ID:               post.ID,
		Title:            post.Title,
		Slug:             post.Slug,
		ShortDescription: post.ShortDescription,
		ThumbnailURL:     storage.ThumbnailURL(post.ThumbnailURL),
		IsPublished:      post.IsPublished,
		Author:           post.AuthorName(),
		UserID:           post.UserID,
		Tags:             post.TagNames(),
		TagInput:         post.TagInput(),
		CreatedAt:        post.CreatedAt,
		UpdatedAt:        post.UpdatedAt,
	}
	if withBody {
		pv.Description = post.Description
	}
	return pv
}

func newPostViews(posts []db.Post) []postView {
	views := make([]postView, 0, len(posts))
	for _, post := range posts {
		pv := newPostView(post, false)
		if pv.ShortDescription == "" {
			pv.ShortDescription = view.Excerpt(post.Description, excerptLength)
		}
		views = append(views, pv)
	}
	return views
}

func newCommentView(comment db.Comment) commentView {
	return commentView{
		ID:         comment.ID,
		PostID:     comment.PostID,
		AuthorName: comment.AuthorName,
		Content:    comment.Content,
		CreatedAt:  comment.CreatedAt,
	}
}

func newPublicPostView(post db.Post) publicPostView {
	comments := make([]commentView, 0, len(post.Comments))
	for _, comment := range post.Comments {
		comments = append(comments, newCommentView(comment))
	}
	return publicPostView{
		postView:        newPostView(post, true),
		DescriptionHTML: view.RenderBody(post.Description),
		Comments:        comments,
	}
}
