package repository

import "time"

// PromotionListFilter 查询优惠列表的过滤条件
type PromotionListFilter struct {
	Page         int
	PageSize     int
	Code         string
	Keyword      string // 标题或优惠码模糊搜索
	DiscountType string
	IsActive     *bool
}

// PromotionUsageListFilter 查询优惠使用台账的过滤条件
type PromotionUsageListFilter struct {
	Page        int
	PageSize    int
	PromotionID uint
	State       string
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Status      string
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
