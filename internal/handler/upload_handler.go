package handler

import (
	"errors"
	"net/http"

	"github.com/fineblog/internal/storage"
	"github.com/gin-gonic/gin"
)

// UploadContentImage 处理正文图片上传请求，返回可嵌入正文的地址
func (a *API) UploadContentImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		// 兼容编辑器默认的字段名
		file, err = c.FormFile("image")
	}
	if err != nil {
		respondError(c, http.StatusBadRequest, "no file uploaded")
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "could not read upload")
		return
	}
	defer src.Close()

	url, err := a.assets.StoreContentImage(src, file.Filename)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidImage) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		a.logger.Error().Err(err).Str("file", file.Filename).Msg("content image upload failed")
		respondError(c, http.StatusInternalServerError, "failed to save image")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url, "location": url})
}
