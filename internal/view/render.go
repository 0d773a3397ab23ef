package view

import (
	"bytes"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	policy = bluemonday.UGCPolicy()
)

// RenderBody turns stored post content (Markdown or editor HTML) into sanitized HTML.
func RenderBody(content string) template.HTML {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(trimmed), &buf); err != nil {
		// 渲染失败时退回到转义后的原文
		return template.HTML(template.HTMLEscapeString(trimmed))
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes()))
}

// PlainText strips every tag, for summaries and previews.
func PlainText(content string) string {
	return strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(content))
}

// Excerpt renders content, strips the markup and cuts the text to at most limit runes.
func Excerpt(content string, limit int) string {
	text := strings.Join(strings.Fields(PlainText(string(RenderBody(content)))), " ")
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
