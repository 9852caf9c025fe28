package constants

// 优惠类型常量
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
	DiscountTypeBundle     = "bundle"
)

// 可核销对象类型常量
const (
	RedeemableTypeCart  = "cart"
	RedeemableTypeOrder = "order"
)

// 优惠使用记录状态常量
const (
	PromotionUsageStateReserved = "reserved"
	PromotionUsageStateRedeemed = "redeemed"
	PromotionUsageStateReleased = "released"
)

// 购物车状态常量
const (
	CartStatusOpen       = "open"
	CartStatusCheckedOut = "checked_out"
	CartStatusMerged     = "merged"
	CartStatusExpired    = "expired"
)

// 订单状态常量
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusCanceled       = "canceled"
)

// 优惠错误码常量（对外暴露）
const (
	PromotionErrorNotFound            = "not_found"
	PromotionErrorExpiredOrInactive   = "expired_or_inactive"
	PromotionErrorExhausted           = "exhausted"
	PromotionErrorAlreadyApplied      = "already_applied"
	PromotionErrorStackingConflict    = "stacking_conflict"
	PromotionErrorInvalidBundleConfig = "invalid_bundle_configuration"
	PromotionErrorConcurrencyConflict = "concurrency_conflict"
)

// 异步任务类型常量
const (
	TaskCartExpire         = "cart:expire"
	TaskOrderTimeoutCancel = "order:timeout_cancel"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 订单号前缀
const OrderNoPrefix = "PO"

