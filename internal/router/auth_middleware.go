package router

import (
	"strings"

	"github.com/dujiao-next/promoengine/internal/authz"
	"github.com/dujiao-next/promoengine/internal/http/response"
	"github.com/dujiao-next/promoengine/internal/i18n"
	"github.com/dujiao-next/promoengine/internal/logger"
	"github.com/dujiao-next/promoengine/internal/service"

	"github.com/gin-gonic/gin"
)

// JWTAuthMiddleware 管理员令牌校验，写入 admin_id 与 username
func JWTAuthMiddleware(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}
		if auth == nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}
		claims, err := auth.ParseJWT(token)
		if err != nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}
		c.Set("admin_id", claims.AdminID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// UserJWTAuthMiddleware 用户令牌必填
func UserJWTAuthMiddleware(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}
		setUserFromToken(c, auth, token)
	}
}

// OptionalUserJWTMiddleware 未携带令牌按游客处理，携带了则必须有效
func OptionalUserJWTMiddleware(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth == nil || strings.TrimSpace(c.GetHeader("Authorization")) == "" {
			c.Next()
			return
		}
		token, ok := bearerToken(c)
		if !ok {
			return
		}
		setUserFromToken(c, auth, token)
	}
}

func setUserFromToken(c *gin.Context, auth *service.AuthService, token string) {
	if auth == nil {
		abortUnauthorized(c, "error.token_invalid")
		return
	}
	claims, err := auth.ParseUserJWT(token)
	if err != nil {
		abortUnauthorized(c, "error.token_invalid")
		return
	}
	c.Set("user_id", claims.UserID)
	c.Next()
}

// AdminRBACMiddleware 以路由模板和 HTTP 方法做 Casbin 判定
func AdminRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID := c.GetUint("admin_id")
		if authzService == nil || adminID == 0 {
			if authzService == nil {
				logger.Errorw("admin_rbac_service_unavailable")
			}
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}
		allowed, err := authzService.EnforceAdmin(adminID, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("admin_rbac_enforce_failed", "admin_id", adminID, "method", c.Request.Method, "resource", resource, "error", err)
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		if !allowed {
			logger.Warnw("admin_rbac_denied", "admin_id", adminID, "method", c.Request.Method, "resource", authz.NormalizeObject(resource))
			response.Forbidden(c, i18n.T(i18n.ResolveLocale(c), "error.forbidden"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// bearerToken 解析 Authorization 头，失败时已写出 401
func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		abortUnauthorized(c, "error.auth_header_missing")
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != "Bearer" || strings.TrimSpace(token) == "" {
		abortUnauthorized(c, "error.auth_header_invalid")
		return "", false
	}
	return strings.TrimSpace(token), true
}

func abortUnauthorized(c *gin.Context, key string) {
	response.Unauthorized(c, i18n.T(i18n.ResolveLocale(c), key))
	c.Abort()
}
