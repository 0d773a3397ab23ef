package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fineblog/internal/db"
	"github.com/fineblog/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	principalContextKey = "__principal"
	sessionUserIDKey    = "user_id"
)

type loginPayload struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// Login 校验用户名密码并写入会话
func (a *API) Login(c *gin.Context) {
	var payload loginPayload
	if err := c.ShouldBind(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "username and password are required")
		return
	}

	var user db.User
	if err := a.db.WithContext(c.Request.Context()).
		Where("username = ?", strings.TrimSpace(payload.Username)).
		First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			a.logger.Error().Err(err).Msg("load user failed")
		}
		respondError(c, http.StatusUnauthorized, "invalid username or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(payload.Password)); err != nil {
		respondError(c, http.StatusUnauthorized, "invalid username or password")
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserIDKey, user.ID)
	if err := session.Save(); err != nil {
		a.logger.Error().Err(err).Msg("save session failed")
		respondError(c, http.StatusInternalServerError, "could not save session")
		return
	}

	principal := service.PrincipalFromUser(user)
	c.JSON(http.StatusOK, gin.H{
		"message": "logged in",
		"user":    gin.H{"id": user.ID, "name": principal.DisplayName, "roles": principal.Roles},
	})
}

// Logout 清除会话
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		a.logger.Warn().Err(err).Msg("clear session failed")
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// AuthRequired loads the session user and stores it as the request principal.
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get(sessionUserIDKey).(uint)
		if !ok || userID == 0 {
			respondError(c, http.StatusUnauthorized, "login required")
			c.Abort()
			return
		}

		var user db.User
		if err := a.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
			session.Clear()
			_ = session.Save()
			respondError(c, http.StatusUnauthorized, "login required")
			c.Abort()
			return
		}

		c.Set(principalContextKey, service.PrincipalFromUser(user))
		c.Next()
	}
}

// currentPrincipal returns the request principal, or the zero Principal for visitors.
func currentPrincipal(c *gin.Context) service.Principal {
	if value, exists := c.Get(principalContextKey); exists {
		if principal, ok := value.(service.Principal); ok {
			return principal
		}
	}
	return service.Principal{}
}

// ShowDashboard 返回后台概览数据
func (a *API) ShowDashboard(c *gin.Context) {
	principal := currentPrincipal(c)
	ctx := c.Request.Context()

	postQuery := a.db.WithContext(ctx).Model(&db.Post{})
	if !principal.IsElevated() {
		postQuery = postQuery.Where("user_id = ?", principal.UserID)
	}

	var postCount, tagCount int64
	if err := postQuery.Count(&postCount).Error; err != nil {
		a.respondServiceError(c, err, "failed to load dashboard")
		return
	}
	if err := a.db.WithContext(ctx).Model(&db.Tag{}).Count(&tagCount).Error; err != nil {
		a.respondServiceError(c, err, "failed to load dashboard")
		return
	}
	orphans, err := a.tags.OrphanCount(ctx)
	if err != nil {
		a.respondServiceError(c, err, "failed to load dashboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":       principal.DisplayName,
		"admin":      principal.IsElevated(),
		"postCount":  postCount,
		"tagCount":   tagCount,
		"orphanTags": orphans,
	})
}
