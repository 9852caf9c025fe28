package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/dujiao-next/promoengine/internal/http/handlers/shared"
	"github.com/dujiao-next/promoengine/internal/http/response"
	"github.com/dujiao-next/promoengine/internal/models"
	"github.com/dujiao-next/promoengine/internal/repository"
	"github.com/dujiao-next/promoengine/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// OrderAdjustmentsRequest 调整运费与税率请求
type OrderAdjustmentsRequest struct {
	ShippingAmount models.Money    `json:"shipping_amount"`
	TaxRatePercent decimal.Decimal `json:"tax_rate_percent"`
}

var adminOrderErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrOrderNotPending, code: response.CodeConflict, key: "error.order_not_pending"},
	{target: service.ErrOrderAdjustmentInvalid, code: response.CodeBadRequest, key: "error.order_adjustment_invalid"},
	{target: service.ErrPromotionConcurrencyConflict, code: response.CodeConflict, key: "error.promotion_busy"},
}

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
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return 0, false
	}
	return uint(orderID), true
}

// AdminListOrders 管理端订单列表
func (h *Handler) AdminListOrders(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)

	createdFrom, err := handlershared.ParseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	createdTo, err := handlershared.ParseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	var userID uint
	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			userID = uint(parsed)
		}
	}

	orders, total, err := h.OrderService.ListOrdersForAdmin(repository.OrderListFilter{
		Page:        page,
		PageSize:    pageSize,
		UserID:      userID,
		Status:      strings.TrimSpace(c.Query("status")),
		OrderNo:     strings.TrimSpace(c.Query("order_no")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// AdminGetOrder 管理端订单详情
func (h *Handler) AdminGetOrder(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	order, err := h.OrderService.GetOrderForAdmin(orderID)
	if err != nil {
		respondWithMappedError(c, err, adminOrderErrorRules, response.CodeInternal, "error.order_fetch_failed")
		return
	}
	h.respondOrder(c, order)
}

// AdminMarkOrderPaid 标记订单已支付，之后不再接受优惠调整
func (h *Handler) AdminMarkOrderPaid(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	order, err := h.OrderService.MarkPaid(c.Request.Context(), orderID)
	if err != nil {
		respondWithMappedError(c, err, adminOrderErrorRules, response.CodeInternal, "error.order_update_failed")
		return
	}
	if adminID, exists := c.Get("admin_id"); exists {
		requestLog(c).Infow("admin_order_marked_paid", "order_id", order.ID, "admin_id", adminID)
	}
	h.respondOrder(c, order)
}

// AdminUpdateOrderAdjustments 调整待支付订单的运费与税率并重算
func (h *Handler) AdminUpdateOrderAdjustments(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	var req OrderAdjustmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	order, err := h.OrderService.UpdateAdjustments(c.Request.Context(), orderID, req.ShippingAmount, req.TaxRatePercent)
	if err != nil {
		respondWithMappedError(c, err, adminOrderErrorRules, response.CodeInternal, "error.order_update_failed")
		return
	}
	h.respondOrder(c, order)
}
