package public

import (
	"strconv"

	handlershared "github.com/dujiao-next/promoengine/internal/http/handlers/shared"
	"github.com/dujiao-next/promoengine/internal/http/response"
	"github.com/dujiao-next/promoengine/internal/models"
	"github.com/dujiao-next/promoengine/internal/service"

	"github.com/gin-gonic/gin"
)

// CartItemRequest 购物车项请求
type CartItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	VariantID uint `json:"variant_id"`
	Quantity  int  `json:"quantity"`
}

// PromotionCodesRequest 优惠码批量应用请求
type PromotionCodesRequest struct {
	PromotionCodes []string `json:"promotion_codes" binding:"required,min=1,dive,promo_code"`
}

// respondCart 返回购物车及其已挂载优惠
func (h *Handler) respondCart(c *gin.Context, cart *models.Cart) {
	promotions, err := h.PromotionApplier.AttachedPromotions(service.CartRef(cart.ID))
	if err != nil {
		respondError(c, response.CodeInternal, "error.cart_fetch_failed", err)
		return
	}
	response.Success(c, handlershared.BuildCartView(cart, promotions))
}

// CreateCart 创建购物车（登录用户复用已有打开的购物车）
func (h *Handler) CreateCart(c *gin.Context) {
	cart, err := h.CartService.CreateCart(c.Request.Context(), getOptionalUserID(c))
	if err != nil {
		respondError(c, response.CodeInternal, "error.cart_update_failed", err)
		return
	}
	h.respondCart(c, cart)
}

// GetCart 获取购物车
func (h *Handler) GetCart(c *gin.Context) {
	cart, err := h.CartService.GetCart(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondWithMappedError(c, err, cartCommonErrorRules, response.CodeInternal, "error.cart_fetch_failed")
		return
	}
	h.respondCart(c, cart)
}

// UpsertCartItem 添加/更新购物车项，数量为 0 时移除
func (h *Handler) UpsertCartItem(c *gin.Context) {
	var req CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	cart, err := h.CartService.UpsertItem(c.Request.Context(), c.Param("token"), req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		respondWithMappedError(c, err, cartItemErrorRules, response.CodeInternal, "error.cart_update_failed")
		return
	}
	h.respondCart(c, cart)
}

// DeleteCartItem 删除购物车项
func (h *Handler) DeleteCartItem(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
	if err != nil || productID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	variantID := uint64(0)
	if raw := c.Query("variant_id"); raw != "" {
		variantID, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
	}
	cart, err := h.CartService.RemoveItem(c.Request.Context(), c.Param("token"), uint(productID), uint(variantID))
	if err != nil {
		respondWithMappedError(c, err, cartItemErrorRules, response.CodeInternal, "error.cart_update_failed")
		return
	}
	h.respondCart(c, cart)
}

// ApplyCartPromotions 整批应用优惠码，任一失败返回 422 且不做任何变更
func (h *Handler) ApplyCartPromotions(c *gin.Context) {
	var req PromotionCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	cart, failures, err := h.CartService.ApplyPromotionCodes(c.Request.Context(), c.Param("token"), req.PromotionCodes)
	if err != nil {
		respondPromotionBatchError(c, err, failures, cartCommonErrorRules, h.maxCodes)
		return
	}
	h.respondCart(c, cart)
}

// DetachCartPromotion 移除购物车上的优惠
func (h *Handler) DetachCartPromotion(c *gin.Context) {
	promotionID, err := strconv.ParseUint(c.Param("promotion_id"), 10, 64)
	if err != nil || promotionID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	cart, err := h.CartService.DetachPromotion(c.Request.Context(), c.Param("token"), uint(promotionID))
	if err != nil {
		respondWithMappedError(c, err, concatMappedHandlerErrors(cartCommonErrorRules, detachErrorRules), response.CodeInternal, "error.promotion_detach_failed")
		return
	}
	h.respondCart(c, cart)
}

// MergeCart 将游客购物车合并到当前用户
func (h *Handler) MergeCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	cart, err := h.CartService.MergeCarts(c.Request.Context(), c.Param("token"), uid)
	if err != nil {
		respondWithMappedError(c, err, cartMergeErrorRules, response.CodeInternal, "error.cart_update_failed")
		return
	}
	h.respondCart(c, cart)
}

// Checkout 购物车结算生成待支付订单
func (h *Handler) Checkout(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	order, err := h.OrderService.Checkout(c.Request.Context(), c.Param("token"), uid)
	if err != nil {
		respondWithMappedError(c, err, checkoutErrorRules, response.CodeInternal, "error.checkout_failed")
		return
	}
	requestLog(c).Infow("cart_checkout_succeeded", "order_id", order.ID, "user_id", uid)
	h.respondOrder(c, order)
}
