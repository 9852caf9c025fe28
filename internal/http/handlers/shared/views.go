package shared

import (
	"time"

	"github.com/dujiao-next/promoengine/internal/models"
)

// PromotionSummary 已挂载优惠摘要
type PromotionSummary struct {
	ID            uint         `json:"id"`
	Code          string       `json:"code"`
	Title         string       `json:"title"`
	DiscountType  string       `json:"discount_type"`
	DiscountValue models.Money `json:"discount_value"`
	Stackable     bool         `json:"stackable"`
}

// CartView 购物车响应
type CartView struct {
	Token          string             `json:"token"`
	Status         string             `json:"status"`
	Currency       string             `json:"currency"`
	Items          []models.CartItem  `json:"items"`
	Subtotal       models.Money       `json:"subtotal"`
	BundleDiscount models.Money       `json:"bundle_discount"`
	DiscountAmount models.Money       `json:"discount_amount"`
	FinalTotal     models.Money       `json:"final_total"`
	Promotions     []PromotionSummary `json:"promotions"`
	ExpiresAt      time.Time          `json:"expires_at"`
	CheckedOutAt   *time.Time         `json:"checked_out_at,omitempty"`
}

// OrderView 订单响应
type OrderView struct {
	models.Order
	Promotions []PromotionSummary `json:"promotions"`
}

// BuildPromotionSummaries 构造优惠摘要
func BuildPromotionSummaries(promotions []models.Promotion) []PromotionSummary {
	result := make([]PromotionSummary, 0, len(promotions))
	for _, promotion := range promotions {
		result = append(result, PromotionSummary{
			ID:            promotion.ID,
			Code:          promotion.Code,
			Title:         promotion.Title,
			DiscountType:  promotion.DiscountType,
			DiscountValue: promotion.DiscountValue,
			Stackable:     promotion.Stackable,
		})
	}
	return result
}

// BuildCartView 构造购物车响应
func BuildCartView(cart *models.Cart, promotions []models.Promotion) CartView {
	items := cart.Items
	if items == nil {
		items = []models.CartItem{}
	}
	return CartView{
		Token:          cart.Token,
		Status:         cart.Status,
		Currency:       cart.Currency,
		Items:          items,
		Subtotal:       cart.SubtotalAmount,
		BundleDiscount: cart.BundleDiscountAmount,
		DiscountAmount: cart.DiscountAmount,
		FinalTotal:     cart.FinalAmount,
		Promotions:     BuildPromotionSummaries(promotions),
		ExpiresAt:      cart.ExpiresAt,
		CheckedOutAt:   cart.CheckedOutAt,
	}
}

// BuildOrderView 构造订单响应
func BuildOrderView(order *models.Order, promotions []models.Promotion) OrderView {
	return OrderView{Order: *order, Promotions: BuildPromotionSummaries(promotions)}
}
