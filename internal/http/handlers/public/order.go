package public

import (
	"strconv"

	handlershared "github.com/dujiao-next/promoengine/internal/http/handlers/shared"
	"github.com/dujiao-next/promoengine/internal/http/response"
	"github.com/dujiao-next/promoengine/internal/models"
	"github.com/dujiao-next/promoengine/internal/repository"
	"github.com/dujiao-next/promoengine/internal/service"

	"github.com/gin-gonic/gin"
)

// respondOrder 返回订单及其已挂载优惠
func (h *Handler) respondOrder(c *gin.Context, order *models.Order) {
	promotions, err := h.PromotionApplier.AttachedPromotions(service.OrderRef(order.ID))
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}
	response.Success(c, handlershared.BuildOrderView(order, promotions))
}

func parseOrderID(c *gin.Context) (uint, bool) {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return 0, false
	}
	return uint(orderID), true
}

// ListOrders 获取当前用户订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)

	orders, total, err := h.OrderService.ListOrders(repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
		Status:   c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// GetOrder 获取订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	order, err := h.OrderService.GetOrder(orderID, uid)
	if err != nil {
		respondWithMappedError(c, err, orderCommonErrorRules, response.CodeInternal, "error.order_fetch_failed")
		return
	}
	h.respondOrder(c, order)
}

// ApplyOrderPromotions 为待支付订单整批应用优惠码
func (h *Handler) ApplyOrderPromotions(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	var req PromotionCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	order, failures, err := h.OrderService.ApplyPromotionCodes(c.Request.Context(), orderID, uid, req.PromotionCodes)
	if err != nil {
		respondPromotionBatchError(c, err, failures, orderCommonErrorRules, h.maxCodes)
		return
	}
	h.respondOrder(c, order)
}

// DetachOrderPromotion 移除待支付订单上的优惠
func (h *Handler) DetachOrderPromotion(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	promotionID, err := strconv.ParseUint(c.Param("promotion_id"), 10, 64)
	if err != nil || promotionID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	order, err := h.OrderService.DetachPromotion(c.Request.Context(), orderID, uid, uint(promotionID))
	if err != nil {
		respondWithMappedError(c, err, concatMappedHandlerErrors(orderCommonErrorRules, detachErrorRules), response.CodeInternal, "error.promotion_detach_failed")
		return
	}
	h.respondOrder(c, order)
}

// CancelOrder 取消待支付订单
func (h *Handler) CancelOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	order, err := h.OrderService.Cancel(c.Request.Context(), orderID, uid)
	if err != nil {
		respondWithMappedError(c, err, orderCommonErrorRules, response.CodeInternal, "error.order_update_failed")
		return
	}
	h.respondOrder(c, order)
}
