package service

import (
	"fmt"
	"time"

	"github.com/dujiao-next/promoengine/internal/models"
	"github.com/dujiao-next/promoengine/internal/repository"

	"gorm.io/gorm"
)

// RedeemableTotals 金额重算编排（显式调用，无模型回调）
type RedeemableTotals struct {
	linkRepo   repository.RedeemablePromotionRepository
	cartRepo   repository.CartRepository
	orderRepo  repository.OrderRepository
	calculator *DiscountCalculator
}

// NewRedeemableTotals 创建金额重算器
func NewRedeemableTotals(linkRepo repository.RedeemablePromotionRepository, cartRepo repository.CartRepository, orderRepo repository.OrderRepository, calculator *DiscountCalculator) *RedeemableTotals {
	return &RedeemableTotals{
		linkRepo:   linkRepo,
		cartRepo:   cartRepo,
		orderRepo:  orderRepo,
		calculator: calculator,
	}
}

// Preview 计算金额但不落库
func (t *RedeemableTotals) Preview(tx *gorm.DB, redeemable models.Redeemable, at time.Time) (Breakdown, error) {
	promotions, err := t.linkRepo.WithTx(tx).ListPromotions(redeemable.RedeemableType(), redeemable.RedeemableID())
	if err != nil {
		return Breakdown{}, err
	}
	eligible := make([]models.Promotion, 0, len(promotions))
	for i := range promotions {
		if IsEligible(&promotions[i], at) {
			eligible = append(eligible, promotions[i])
		}
	}
	items := redeemable.LineItems()
	return t.calculator.Calculate(SubtotalOf(items), eligible, items), nil
}

// Recompute 重算并写回金额
func (t *RedeemableTotals) Recompute(tx *gorm.DB, redeemable models.Redeemable, at time.Time) (Breakdown, error) {
	breakdown, err := t.Preview(tx, redeemable, at)
	if err != nil {
		return Breakdown{}, err
	}
	redeemable.ApplyTotals(breakdown.Totals())

	switch target := redeemable.(type) {
	case *models.Cart:
		err = t.cartRepo.WithTx(tx).UpdateTotals(target)
	case *models.Order:
		err = t.orderRepo.WithTx(tx).UpdateTotals(target)
	default:
		err = fmt.Errorf("unsupported redeemable type %s", redeemable.RedeemableType())
	}
	if err != nil {
		return Breakdown{}, err
	}
	return breakdown, nil
}
