package service

import (
	"github.com/dujiao-next/promoengine/internal/models"

	"github.com/shopspring/decimal"
)

// DiscountLine 单个优惠的折扣明细
type DiscountLine struct {
	PromotionID  uint         `json:"promotion_id"`
	Code         string       `json:"code"`
	Title        string       `json:"title"`
	DiscountType string       `json:"discount_type"`
	Amount       models.Money `json:"amount"`
}

// Breakdown 金额计算结果
type Breakdown struct {
	Subtotal       models.Money   `json:"subtotal"`
	BundleDiscount models.Money   `json:"bundle_discount"`
	DiscountAmount models.Money   `json:"discount_amount"`
	FinalTotal     models.Money   `json:"final_total"`
	Lines          []DiscountLine `json:"lines"`
}

// Totals 转换为可核销对象金额
func (b Breakdown) Totals() models.Totals {
	return models.Totals{
		Subtotal:       b.Subtotal,
		BundleDiscount: b.BundleDiscount,
		DiscountAmount: b.DiscountAmount,
		FinalTotal:     b.FinalTotal,
	}
}

// DiscountCalculator 折扣计算器（纯函数，无副作用）
type DiscountCalculator struct {
	precision int32
}

// NewDiscountCalculator 创建折扣计算器
func NewDiscountCalculator(precision int32) *DiscountCalculator {
	return &DiscountCalculator{precision: precision}
}

// Calculate 计算组合优惠与优惠码折扣
// 百分比与固定金额优惠均基于原始小计计算，组合优惠仅在匹配时按固定金额计入。
func (c *DiscountCalculator) Calculate(subtotal models.Money, promotions []models.Promotion, items []models.LineItem) Breakdown {
	bundleDiscount := decimal.Zero
	codeDiscount := decimal.Zero
	lines := make([]DiscountLine, 0, len(promotions))

	for i := range promotions {
		promotion := &promotions[i]
		var amount models.Money
		if promotion.IsBundle() {
			if !MatchesBundle(promotion, items) {
				continue
			}
			amount = models.NewMoneyFromDecimal(promotion.DiscountValue.Decimal)
			if amount.Decimal.LessThan(decimal.Zero) {
				amount = models.ZeroMoney()
			}
			bundleDiscount = bundleDiscount.Add(amount.Decimal)
		} else {
			amount = DiscountForAmount(promotion, subtotal, c.precision)
			codeDiscount = codeDiscount.Add(amount.Decimal)
		}
		lines = append(lines, DiscountLine{
			PromotionID:  promotion.ID,
			Code:         promotion.Code,
			Title:        promotion.Title,
			DiscountType: promotion.DiscountType,
			Amount:       amount,
		})
	}

	final := subtotal.Decimal.Sub(bundleDiscount).Sub(codeDiscount)
	if final.LessThan(decimal.Zero) {
		final = decimal.Zero
	}
	return Breakdown{
		Subtotal:       models.NewMoneyFromDecimal(subtotal.Decimal),
		BundleDiscount: models.NewMoneyFromDecimal(bundleDiscount),
		DiscountAmount: models.NewMoneyFromDecimal(codeDiscount),
		FinalTotal:     models.NewMoneyFromDecimal(final),
		Lines:          lines,
	}
}

// SubtotalOf 计算行项目小计
func SubtotalOf(items []models.LineItem) models.Money {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal().Decimal)
	}
	return models.NewMoneyFromDecimal(total)
}
