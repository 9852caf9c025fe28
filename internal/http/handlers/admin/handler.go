package admin

import (
	"github.com/dujiao-next/promoengine/internal/authz"
	"github.com/dujiao-next/promoengine/internal/provider"
	"github.com/dujiao-next/promoengine/internal/service"
)

// Handler 管理端接口：优惠配置、订单调整、权限策略
type Handler struct {
	AuthzService          *authz.Service
	OrderService          *service.OrderService
	PromotionAdminService *service.PromotionAdminService
	PromotionApplier      *service.PromotionApplier
}

func New(c *provider.Container) *Handler {
	return &Handler{
		AuthzService:          c.AuthzService,
		OrderService:          c.OrderService,
		PromotionAdminService: c.PromotionAdminService,
		PromotionApplier:      c.PromotionApplier,
	}
}
