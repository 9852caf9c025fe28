package i18n

var messages = map[string]map[string]string{
	LocaleZhCN: {
		"error.bad_request":              "请求参数错误",
		"error.unauthorized":             "未登录或登录已失效",
		"error.forbidden":                "无权访问",
		"error.not_found":                "资源不存在",
		"error.too_many_requests":        "请求过于频繁，请稍后再试",
		"error.internal":                 "服务器内部错误",
		"error.cart_not_found":           "购物车不存在",
		"error.cart_closed":              "购物车已关闭",
		"error.cart_empty":               "购物车为空",
		"error.cart_item_not_found":      "购物车中没有该商品",
		"error.invalid_quantity":         "商品数量不合法",
		"error.product_not_found":        "商品不存在",
		"error.product_inactive":         "商品已下架",
		"error.cart_merge_invalid":       "无法合并购物车",
		"error.cart_fetch_failed":        "获取购物车失败",
		"error.cart_update_failed":       "更新购物车失败",
		"error.checkout_failed":          "下单失败",
		"error.order_not_found":          "订单不存在",
		"error.order_not_pending":        "订单不是待支付状态",
		"error.order_fetch_failed":       "获取订单失败",
		"error.order_update_failed":      "更新订单失败",
		"error.order_adjustment_invalid": "运费或税率不合法",
		"error.promotion_not_found":      "优惠活动不存在",
		"error.promotion_invalid":        "优惠活动参数不合法",
		"error.promotion_code_exists":    "优惠码已存在",
		"error.promotion_fetch_failed":   "获取优惠活动失败",
		"error.promotion_update_failed":  "保存优惠活动失败",
		"error.promotion_codes_empty":    "请填写优惠码",
		"error.promotion_codes_too_many": "一次最多提交 %d 个优惠码",
		"error.promotion_apply_failed":   "应用优惠码失败",
		"error.promotion_detach_failed":  "移除优惠失败",
		"error.promotion_usage_failed":   "获取优惠使用记录失败",
		"error.promotion_busy":           "正在处理其他请求，请稍后重试",
		"error.promotion_not_attached":   "该优惠未被使用",
		"error.token_invalid":            "登录凭证无效",
		"error.token_expired":            "登录凭证已过期",
		"error.user_id_invalid":          "用户身份无效",
		"error.user_id_type_invalid":     "用户身份类型错误",
		"error.admin_id_invalid":         "管理员身份无效",
		"error.admin_id_type_invalid":    "管理员身份类型错误",
		"error.auth_header_missing":      "缺少认证信息",
		"error.auth_header_invalid":      "认证信息格式错误",
		"error.authz_fetch_failed":       "权限查询失败",
		"error.authz_update_failed":      "权限更新失败",
		"error.rate_limited":             "请求过于频繁，请 %d 秒后重试",
	},
	LocaleEnUS: {
		"error.bad_request":              "Invalid request parameters",
		"error.unauthorized":             "Not signed in or session expired",
		"error.forbidden":                "Access denied",
		"error.not_found":                "Resource not found",
		"error.too_many_requests":        "Too many requests, please try again later",
		"error.internal":                 "Internal server error",
		"error.cart_not_found":           "Cart not found",
		"error.cart_closed":              "Cart is closed",
		"error.cart_empty":               "Cart is empty",
		"error.cart_item_not_found":      "Item is not in the cart",
		"error.invalid_quantity":         "Invalid quantity",
		"error.product_not_found":        "Product not found",
		"error.product_inactive":         "Product is unavailable",
		"error.cart_merge_invalid":       "Carts cannot be merged",
		"error.cart_fetch_failed":        "Failed to load cart",
		"error.cart_update_failed":       "Failed to update cart",
		"error.checkout_failed":          "Checkout failed",
		"error.order_not_found":          "Order not found",
		"error.order_not_pending":        "Order is not awaiting payment",
		"error.order_fetch_failed":       "Failed to load order",
		"error.order_update_failed":      "Failed to update order",
		"error.order_adjustment_invalid": "Invalid shipping fee or tax rate",
		"error.promotion_not_found":      "Promotion not found",
		"error.promotion_invalid":        "Invalid promotion parameters",
		"error.promotion_code_exists":    "Promotion code already exists",
		"error.promotion_fetch_failed":   "Failed to load promotion",
		"error.promotion_update_failed":  "Failed to save promotion",
		"error.promotion_codes_empty":    "Please enter a promotion code",
		"error.promotion_codes_too_many": "At most %d promotion codes per request",
		"error.promotion_apply_failed":   "Failed to apply promotion codes",
		"error.promotion_detach_failed":  "Failed to remove promotion",
		"error.promotion_usage_failed":   "Failed to load promotion usages",
		"error.promotion_busy":           "Another request is in progress, please retry",
		"error.promotion_not_attached":   "Promotion is not applied",
		"error.token_invalid":            "Invalid credentials",
		"error.token_expired":            "Credentials expired",
		"error.user_id_invalid":          "Invalid user identity",
		"error.user_id_type_invalid":     "Invalid user identity type",
		"error.admin_id_invalid":         "Invalid admin identity",
		"error.admin_id_type_invalid":    "Invalid admin identity type",
		"error.auth_header_missing":      "Missing authorization header",
		"error.auth_header_invalid":      "Malformed authorization header",
		"error.authz_fetch_failed":       "Failed to load permissions",
		"error.authz_update_failed":      "Failed to update permissions",
		"error.rate_limited":             "Too many requests, retry in %d seconds",
	},
}
