package public

import (
	"errors"

	"github.com/dujiao-next/promoengine/internal/http/response"
	"github.com/dujiao-next/promoengine/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var cartCommonErrorRules = []mappedHandlerError{
	{target: service.ErrCartNotFound, code: response.CodeNotFound, key: "error.cart_not_found"},
	{target: service.ErrCartClosed, code: response.CodeConflict, key: "error.cart_closed"},
	{target: service.ErrPromotionConcurrencyConflict, code: response.CodeConflict, key: "error.promotion_busy"},
}

var cartItemErrorRules = concatMappedHandlerErrors(cartCommonErrorRules, []mappedHandlerError{
	{target: service.ErrInvalidQuantity, code: response.CodeBadRequest, key: "error.invalid_quantity"},
	{target: service.ErrProductNotFound, code: response.CodeNotFound, key: "error.product_not_found"},
	{target: service.ErrProductInactive, code: response.CodeBadRequest, key: "error.product_inactive"},
	{target: service.ErrCartItemNotFound, code: response.CodeNotFound, key: "error.cart_item_not_found"},
})

var cartMergeErrorRules = concatMappedHandlerErrors(cartCommonErrorRules, []mappedHandlerError{
	{target: service.ErrCartMergeInvalid, code: response.CodeBadRequest, key: "error.cart_merge_invalid"},
})

var checkoutErrorRules = concatMappedHandlerErrors(cartCommonErrorRules, []mappedHandlerError{
	{target: service.ErrCartEmpty, code: response.CodeBadRequest, key: "error.cart_empty"},
})

var promotionBatchErrorRules = []mappedHandlerError{
	{target: service.ErrPromotionCodesEmpty, code: response.CodeBadRequest, key: "error.promotion_codes_empty"},
}

var orderCommonErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrOrderNotPending, code: response.CodeConflict, key: "error.order_not_pending"},
	{target: service.ErrPromotionConcurrencyConflict, code: response.CodeConflict, key: "error.promotion_busy"},
}

// 解除优惠时未挂载的优惠返回 404
var detachErrorRules = []mappedHandlerError{
	{target: service.ErrPromotionNotFound, code: response.CodeNotFound, key: "error.promotion_not_attached"},
}

// respondPromotionBatchError 先处理 422 契约，再按规则映射其余错误
func respondPromotionBatchError(c *gin.Context, err error, failures []service.CodeFailure, rules []mappedHandlerError, maxCodes int) {
	if errors.Is(err, service.ErrPromotionCodesTooMany) {
		respondTooManyCodes(c, maxCodes)
		return
	}
	if handlerRespondPromotionFailure(c, err, failures) {
		return
	}
	respondWithMappedError(c, err, concatMappedHandlerErrors(rules, promotionBatchErrorRules), response.CodeInternal, "error.promotion_apply_failed")
}
