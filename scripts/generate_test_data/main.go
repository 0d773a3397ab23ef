package main

import (
	"context"
	"fmt"
	"log"

	"github.com/fineblog/internal/config"
	"github.com/fineblog/internal/db"
	"github.com/fineblog/internal/service"
	"github.com/fineblog/internal/storage"
	"gorm.io/gorm"
)

type samplePost struct {
	title     string
	summary   string
	content   string
	tags      string
	published bool
	comments  []service.CommentInput
}

var samplePosts = []samplePost{
	{
		title:     "Go 并发编程实践",
		summary:   "goroutine 与 channel 的常见用法",
		content:   "# Go 并发编程实践\n\n使用 `sync.WaitGroup` 等待一组 goroutine 结束。\n\n```go\nvar wg sync.WaitGroup\n```",
		tags:      "Go, 技术, 教程",
		published: true,
		comments: []service.CommentInput{
			{AuthorName: "读者甲", Content: "写得很清楚，谢谢分享！"},
			{AuthorName: "Gopher", AuthorEmail: "gopher@example.com", Content: "期待下一篇关于 context 的文章。"},
		},
	},
	{
		title:     "用 SQLite 搭建个人博客",
		summary:   "轻量的持久化方案",
		content:   "## 为什么选 SQLite\n\n- 零运维\n- 单文件备份\n- 对个人博客足够快",
		tags:      "数据库, Web开发, 技术",
		published: true,
	},
	{
		title:     "周末随笔",
		summary:   "关于长期主义的一些思考",
		content:   "慢慢来，比较快。",
		tags:      "生活, 思考",
		published: true,
		comments: []service.CommentInput{
			{AuthorName: "路人", Content: "同感。"},
		},
	},
	{
		title:   "草稿：标签系统重构",
		summary: "尚未发布",
		content: "TODO: 补充迁移步骤",
		tags:    "项目, 技术",
	},
}

// 测试数据生成器
func main() {
	cfg := config.Load()

	// 初始化数据库
	gdb, err := db.Init(cfg.DatabasePath)
	if err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	store := storage.NewLocalStore(storage.Options{
		ThumbnailDir:    cfg.ThumbnailDir,
		ContentImageDir: cfg.ContentImageDir,
	})
	posts, comments, err := seed(context.Background(), gdb, store)
	if err != nil {
		log.Fatal("生成测试数据失败:", err)
	}

	fmt.Println("测试数据生成完成！")
	fmt.Println("用户: admin (密码: admin123), writer (密码: writer123)")
	fmt.Printf("文章: %d 篇, 评论: %d 条\n", posts, comments)
}

// seed creates the demo users and, when no posts exist yet, the sample posts
// with their tags and comments. It returns how many posts and comments it wrote.
func seed(ctx context.Context, gdb *gorm.DB, assets service.AssetStore) (int, int, error) {
	if err := db.EnsureUser(gdb, "admin", "admin123", db.RoleAdmin); err != nil {
		return 0, 0, err
	}
	if err := db.EnsureUser(gdb, "writer", "writer123", db.RoleAuthor); err != nil {
		return 0, 0, err
	}

	var existing int64
	if err := gdb.WithContext(ctx).Model(&db.Post{}).Count(&existing).Error; err != nil {
		return 0, 0, err
	}
	if existing > 0 {
		fmt.Println("文章已存在，跳过创建")
		return 0, 0, nil
	}

	var writer db.User
	if err := gdb.WithContext(ctx).Where("username = ?", "writer").First(&writer).Error; err != nil {
		return 0, 0, err
	}
	author := service.PrincipalFromUser(writer)

	postService := service.NewPostService(gdb, service.NewTagReconciler(), assets)
	commentService := service.NewCommentService(gdb)

	var postCount, commentCount int
	for _, sample := range samplePosts {
		result, err := postService.Create(ctx, author, service.PostInput{
			Title:            sample.title,
			ShortDescription: sample.summary,
			Description:      sample.content,
			TagInput:         sample.tags,
			IsPublished:      sample.published,
		})
		if err != nil {
			return postCount, commentCount, fmt.Errorf("create %q: %w", sample.title, err)
		}
		postCount++

		for _, input := range sample.comments {
			if _, err := commentService.Create(ctx, result.Post.ID, input); err != nil {
				return postCount, commentCount, fmt.Errorf("comment on %q: %w", sample.title, err)
			}
			commentCount++
		}
	}

	fmt.Println("✅ 测试文章创建完成")
	return postCount, commentCount, nil
}
