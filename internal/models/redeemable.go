package models

import "time"

// LineItem 参与优惠计算的行项目
type LineItem struct {
	ProductID uint  `json:"product_id"`
	VariantID uint  `json:"variant_id,omitempty"`
	Quantity  int   `json:"quantity"`
	UnitPrice Money `json:"unit_price"`
}

// Subtotal 行小计
func (i LineItem) Subtotal() Money {
	return NewMoneyFromDecimal(i.UnitPrice.Decimal.Mul(NewMoneyFromInt(int64(i.Quantity)).Decimal))
}

// Totals 金额汇总
type Totals struct {
	Subtotal       Money `json:"subtotal"`
	BundleDiscount Money `json:"bundle_discount"`
	DiscountAmount Money `json:"discount_amount"`
	FinalTotal     Money `json:"final_total"`
}

// Redeemable 可挂载优惠的对象（购物车或订单）
type Redeemable interface {
	RedeemableType() string
	RedeemableID() uint
	OwnerUserID() *uint
	LineItems() []LineItem
	Totals() Totals
	ApplyTotals(totals Totals)
	AcceptsPromotions(now time.Time) bool
}
