package router

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dujiao-next/promoengine/internal/authz"
	"github.com/dujiao-next/promoengine/internal/cache"
	"github.com/dujiao-next/promoengine/internal/config"
	adminhandlers "github.com/dujiao-next/promoengine/internal/http/handlers/admin"
	publichandlers "github.com/dujiao-next/promoengine/internal/http/handlers/public"
	handlershared "github.com/dujiao-next/promoengine/internal/http/handlers/shared"
	"github.com/dujiao-next/promoengine/internal/http/response"
	"github.com/dujiao-next/promoengine/internal/logger"
	"github.com/dujiao-next/promoengine/internal/metrics"
	"github.com/dujiao-next/promoengine/internal/models"
	"github.com/dujiao-next/promoengine/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	handlershared.RegisterValidators()
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "promo"
	}
	applyRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:apply", redisPrefix),
		WindowSeconds: cfg.Security.ApplyRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.ApplyRateLimit.MaxAttempts,
		MessageKey:    "error.rate_limited",
	}
	cartApplyLimit := RateLimitMiddleware(cache.Client(), applyRule, KeyByIPAndParam("token"))
	orderApplyLimit := RateLimitMiddleware(cache.Client(), applyRule, KeyByIPAndParam("id"))
	requestTimeout := time.Duration(cfg.Promotion.RequestTimeoutMilli) * time.Millisecond

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	if cfg.Metrics.Enabled {
		r.Use(MetricsMiddleware())
		metricsPath := strings.TrimSpace(cfg.Metrics.Path)
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.GET(metricsPath, gin.WrapH(metrics.Handler()))
	}

	r.GET("/healthz", healthHandler)

	// API 路由组
	apiV1 := r.Group("/api/v1")
	apiV1.Use(TimeoutMiddleware(requestTimeout))
	{
		// 购物车（游客可用，携带用户令牌时绑定用户）
		carts := apiV1.Group("/carts")
		carts.Use(OptionalUserJWTMiddleware(c.AuthService))
		{
			carts.POST("", publicHandler.CreateCart)
			carts.GET("/:token", publicHandler.GetCart)
			carts.PUT("/:token/items", publicHandler.UpsertCartItem)
			carts.DELETE("/:token/items/:product_id", publicHandler.DeleteCartItem)
			carts.POST("/:token/promotions", cartApplyLimit, publicHandler.ApplyCartPromotions)
			carts.DELETE("/:token/promotions/:promotion_id", publicHandler.DetachCartPromotion)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(c.AuthService))
		{
			user.POST("/carts/:token/merge", publicHandler.MergeCart)
			user.POST("/carts/:token/checkout", publicHandler.Checkout)
			user.GET("/orders", publicHandler.ListOrders)
			user.GET("/orders/:id", publicHandler.GetOrder)
			user.POST("/orders/:id/promotions", orderApplyLimit, publicHandler.ApplyOrderPromotions)
			user.DELETE("/orders/:id/promotions/:promotion_id", publicHandler.DetachOrderPromotion)
			user.POST("/orders/:id/cancel", publicHandler.CancelOrder)
		}

		// 管理端接口（JWT + RBAC）
		admin := apiV1.Group("/admin")
		admin.Use(JWTAuthMiddleware(c.AuthService), AdminRBACMiddleware(c.AuthzService))
		{
			admin.GET("/promotions", adminHandler.GetPromotions)
			admin.POST("/promotions", adminHandler.CreatePromotion)
			admin.GET("/promotions/:id", adminHandler.GetPromotion)
			admin.PUT("/promotions/:id", adminHandler.UpdatePromotion)
			admin.POST("/promotions/:id/deactivate", adminHandler.DeactivatePromotion)
			admin.GET("/promotions/:id/usages", adminHandler.GetPromotionUsages)

			admin.GET("/orders", adminHandler.AdminListOrders)
			admin.GET("/orders/:id", adminHandler.AdminGetOrder)
			admin.POST("/orders/:id/paid", adminHandler.AdminMarkOrderPaid)
			admin.PATCH("/orders/:id/adjustments", adminHandler.AdminUpdateOrderAdjustments)

			admin.GET("/authz/me", adminHandler.GetAuthzMe)
			admin.GET("/authz/permissions", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminPermissionCatalog(r))
			})
			admin.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
			admin.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
		}
	}

	return r
}

// healthHandler 健康检查：数据库必须可用，Redis 仅上报状态
func healthHandler(c *gin.Context) {
	status := http.StatusOK
	result := gin.H{"database": "ok", "redis": "disabled"}
	if models.DB == nil {
		status = http.StatusServiceUnavailable
		result["database"] = "unavailable"
	} else if sqlDB, err := models.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status = http.StatusServiceUnavailable
		result["database"] = "unavailable"
	}
	if client := cache.Client(); client != nil {
		result["redis"] = "ok"
		if err := client.Ping(c.Request.Context()).Err(); err != nil {
			result["redis"] = "unavailable"
		}
	}
	c.JSON(status, result)
}

// adminPermissionCatalogItem 管理端权限目录项
type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
