package admin

import (
	"strconv"

	handlershared "github.com/dujiao-next/promoengine/internal/http/handlers/shared"
	"github.com/dujiao-next/promoengine/internal/http/response"
	"github.com/dujiao-next/promoengine/internal/models"
	"github.com/dujiao-next/promoengine/internal/repository"
	"github.com/dujiao-next/promoengine/internal/service"

	"github.com/gin-gonic/gin"
)

// BundleRuleRequest 组合规则请求
type BundleRuleRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	VariantID uint `json:"variant_id"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

// PromotionRequest 创建/更新优惠请求
type PromotionRequest struct {
	Title             string              `json:"title" binding:"required"`
	Code              string              `json:"code" binding:"omitempty,promo_code"`
	DiscountType      string              `json:"discount_type" binding:"required"`
	DiscountValue     models.Money        `json:"discount_value"`
	MaxDiscountAmount models.Money        `json:"max_discount_amount"`
	StartsAt          string              `json:"starts_at"`
	EndsAt            string              `json:"ends_at"`
	IsActive          *bool               `json:"is_active"`
	Stackable         bool                `json:"stackable"`
	UsageLimit        *int                `json:"usage_limit"`
	BundleRules       []BundleRuleRequest `json:"bundle_rules" binding:"omitempty,dive"`
}

var promotionErrorRules = []mappedHandlerError{
	{target: service.ErrPromotionNotFound, code: response.CodeNotFound, key: "error.promotion_not_found"},
	{target: service.ErrPromotionInvalid, code: response.CodeBadRequest, key: "error.promotion_invalid"},
	{target: service.ErrInvalidBundleConfiguration, code: response.CodeBadRequest, key: "error.promotion_invalid"},
	{target: service.ErrPromotionCodeExists, code: response.CodeConflict, key: "error.promotion_code_exists"},
}

func respondPromotionError(c *gin.Context, err error, fallbackKey string) {
	respondWithMappedError(c, err, promotionErrorRules, response.CodeInternal, fallbackKey)
}

func parsePromotionID(c *gin.Context) (uint, bool) {
	promotionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || promotionID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return 0, false
	}
	return uint(promotionID), true
}

func bindPromotionInput(c *gin.Context) (service.PromotionInput, bool) {
	var req PromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return service.PromotionInput{}, false
	}
	startsAt, err := handlershared.ParseTimeNullable(req.StartsAt)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return service.PromotionInput{}, false
	}
	endsAt, err := handlershared.ParseTimeNullable(req.EndsAt)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return service.PromotionInput{}, false
	}
	rules := make([]service.BundleRuleInput, 0, len(req.BundleRules))
	for _, rule := range req.BundleRules {
		rules = append(rules, service.BundleRuleInput{
			ProductID: rule.ProductID,
			VariantID: rule.VariantID,
			Quantity:  rule.Quantity,
		})
	}
	return service.PromotionInput{
		Title:             req.Title,
		Code:              req.Code,
		DiscountType:      req.DiscountType,
		DiscountValue:     req.DiscountValue,
		MaxDiscountAmount: req.MaxDiscountAmount,
		StartsAt:          startsAt,
		EndsAt:            endsAt,
		IsActive:          req.IsActive,
		Stackable:         req.Stackable,
		UsageLimit:        req.UsageLimit,
		BundleRules:       rules,
	}, true
}

// CreatePromotion 创建优惠
func (h *Handler) CreatePromotion(c *gin.Context) {
	input, ok := bindPromotionInput(c)
	if !ok {
		return
	}
	promotion, err := h.PromotionAdminService.Create(c.Request.Context(), input)
	if err != nil {
		respondPromotionError(c, err, "error.promotion_update_failed")
		return
	}
	requestLog(c).Infow("admin_promotion_created", "promotion_id", promotion.ID, "code", promotion.Code)
	response.Success(c, promotion)
}

// UpdatePromotion 更新优惠（保留已用次数）
func (h *Handler) UpdatePromotion(c *gin.Context) {
	promotionID, ok := parsePromotionID(c)
	if !ok {
		return
	}
	input, ok := bindPromotionInput(c)
	if !ok {
		return
	}
	promotion, err := h.PromotionAdminService.Update(c.Request.Context(), promotionID, input)
	if err != nil {
		respondPromotionError(c, err, "error.promotion_update_failed")
		return
	}
	response.Success(c, promotion)
}

// DeactivatePromotion 停用优惠
func (h *Handler) DeactivatePromotion(c *gin.Context) {
	promotionID, ok := parsePromotionID(c)
	if !ok {
		return
	}
	promotion, err := h.PromotionAdminService.Deactivate(c.Request.Context(), promotionID)
	if err != nil {
		respondPromotionError(c, err, "error.promotion_update_failed")
		return
	}
	requestLog(c).Infow("admin_promotion_deactivated", "promotion_id", promotion.ID)
	response.Success(c, promotion)
}

// GetPromotion 获取优惠详情
func (h *Handler) GetPromotion(c *gin.Context) {
	promotionID, ok := parsePromotionID(c)
	if !ok {
		return
	}
	promotion, err := h.PromotionAdminService.Get(promotionID)
	if err != nil {
		respondPromotionError(c, err, "error.promotion_fetch_failed")
		return
	}
	response.Success(c, promotion)
}

// GetPromotions 优惠列表
func (h *Handler) GetPromotions(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)

	var isActive *bool
	if raw := c.Query("is_active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		isActive = &parsed
	}

	promotions, total, err := h.PromotionAdminService.List(repository.PromotionListFilter{
		Page:         page,
		PageSize:     pageSize,
		Code:         c.Query("code"),
		Keyword:      c.Query("keyword"),
		DiscountType: c.Query("discount_type"),
		IsActive:     isActive,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.promotion_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, promotions, response.BuildPagination(page, pageSize, total))
}

// GetPromotionUsages 优惠使用台账
func (h *Handler) GetPromotionUsages(c *gin.Context) {
	promotionID, ok := parsePromotionID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)

	usages, total, err := h.PromotionAdminService.ListUsages(repository.PromotionUsageListFilter{
		Page:        page,
		PageSize:    pageSize,
		PromotionID: promotionID,
		State:       c.Query("state"),
	})
	if err != nil {
		respondPromotionError(c, err, "error.promotion_usage_failed")
		return
	}
	response.SuccessWithPage(c, usages, response.BuildPagination(page, pageSize, total))
}
