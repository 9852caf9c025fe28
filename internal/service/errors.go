package service

import (
	"errors"
	"fmt"

	"github.com/dujiao-next/promoengine/internal/constants"
)

// 优惠相关错误
var (
	ErrPromotionNotFound            = errors.New("promotion not found")
	ErrPromotionExpiredOrInactive   = errors.New("promotion expired or inactive")
	ErrPromotionExhausted           = errors.New("promotion usage limit reached")
	ErrPromotionAlreadyApplied      = errors.New("promotion already applied")
	ErrPromotionStackingConflict    = errors.New("promotion cannot be stacked")
	ErrInvalidBundleConfiguration   = errors.New("invalid bundle configuration")
	ErrBundleNotMatched             = errors.New("bundle rules not matched by line items")
	ErrPromotionConcurrencyConflict = errors.New("promotion concurrency conflict")
	ErrPromotionInvalid             = errors.New("promotion payload invalid")
	ErrPromotionCodeExists          = errors.New("promotion code already exists")
	ErrPromotionCodesEmpty          = errors.New("promotion codes empty")
	ErrPromotionCodesTooMany        = errors.New("too many promotion codes")
	ErrRedeemableLocked             = errors.New("redeemable does not accept promotions")
)

// 购物车相关错误
var (
	ErrCartNotFound     = errors.New("cart not found")
	ErrCartClosed       = errors.New("cart is not open")
	ErrCartEmpty        = errors.New("cart is empty")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrProductNotFound  = errors.New("product not found")
	ErrProductInactive  = errors.New("product inactive")
	ErrCartMergeInvalid = errors.New("cart merge invalid")
)

// 订单相关错误
var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrOrderNotPending        = errors.New("order is not pending payment")
	ErrOrderFetchFailed       = errors.New("order fetch failed")
	ErrOrderUpdateFailed      = errors.New("order update failed")
	ErrOrderAdjustmentInvalid = errors.New("order adjustment invalid")
)

var promotionErrorCodes = map[error]string{
	ErrPromotionNotFound:            constants.PromotionErrorNotFound,
	ErrPromotionExpiredOrInactive:   constants.PromotionErrorExpiredOrInactive,
	ErrPromotionExhausted:           constants.PromotionErrorExhausted,
	ErrPromotionAlreadyApplied:      constants.PromotionErrorAlreadyApplied,
	ErrPromotionStackingConflict:    constants.PromotionErrorStackingConflict,
	ErrInvalidBundleConfiguration:   constants.PromotionErrorInvalidBundleConfig,
	ErrBundleNotMatched:             constants.PromotionErrorInvalidBundleConfig,
	ErrPromotionConcurrencyConflict: constants.PromotionErrorConcurrencyConflict,
}

// PromotionError 带错误码的优惠错误
type PromotionError struct {
	Code          string
	PromotionCode string
	Err           error
}

func (e *PromotionError) Error() string {
	if e.PromotionCode == "" {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Code, e.PromotionCode, e.Err)
}

func (e *PromotionError) Unwrap() error {
	return e.Err
}

// newPromotionError 包装优惠错误
func newPromotionError(err error, promotionCode string) *PromotionError {
	code, ok := promotionErrorCodes[err]
	if !ok {
		code = constants.PromotionErrorConcurrencyConflict
	}
	return &PromotionError{Code: code, PromotionCode: promotionCode, Err: err}
}

// ErrorCodeOf 返回错误对应的对外错误码，非优惠错误返回空字符串
func ErrorCodeOf(err error) string {
	if err == nil {
		return ""
	}
	var promoErr *PromotionError
	if errors.As(err, &promoErr) {
		return promoErr.Code
	}
	for sentinel, code := range promotionErrorCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return ""
}

// CodeFailure 单个优惠码失败原因
type CodeFailure struct {
	Code      string `json:"code"`
	ErrorCode string `json:"error_code"`
}
