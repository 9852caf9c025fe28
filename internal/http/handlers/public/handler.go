package public

import (
	"github.com/dujiao-next/promoengine/internal/provider"
	"github.com/dujiao-next/promoengine/internal/service"
)

// Handler 购物车与订单的用户侧接口
type Handler struct {
	CartService      *service.CartService
	OrderService     *service.OrderService
	PromotionApplier *service.PromotionApplier

	maxCodes int
}

func New(c *provider.Container) *Handler {
	return &Handler{
		CartService:      c.CartService,
		OrderService:     c.OrderService,
		PromotionApplier: c.PromotionApplier,
		maxCodes:         c.Config.Promotion.MaxCodesPerRequest,
	}
}
