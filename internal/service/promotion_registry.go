package service

import (
	"context"
	"time"

	"github.com/dujiao-next/promoengine/internal/cache"
	"github.com/dujiao-next/promoengine/internal/constants"
	"github.com/dujiao-next/promoengine/internal/logger"
	"github.com/dujiao-next/promoengine/internal/models"
	"github.com/dujiao-next/promoengine/internal/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const activeBundlesCacheKey = "promotion:bundles:active"

// IsEligible 优惠在指定时间是否可用
func IsEligible(promotion *models.Promotion, at time.Time) bool {
	if promotion == nil || !promotion.IsActive {
		return false
	}
	if promotion.StartsAt != nil && at.Before(*promotion.StartsAt) {
		return false
	}
	if promotion.EndsAt != nil && at.After(*promotion.EndsAt) {
		return false
	}
	return true
}

// IsExhausted 优惠使用次数是否已用尽（上限为 0 时视为不可使用）
func IsExhausted(promotion *models.Promotion) bool {
	if promotion == nil || promotion.UsageLimit == nil {
		return false
	}
	return promotion.UsageCount >= *promotion.UsageLimit
}

// DiscountForAmount 计算优惠在给定金额上的折扣
// 结果不为负，也不会超过 amount；百分比折扣按 precision 位小数四舍五入。
func DiscountForAmount(promotion *models.Promotion, amount models.Money, precision int32) models.Money {
	if promotion == nil || amount.Decimal.LessThanOrEqual(decimal.Zero) {
		return models.ZeroMoney()
	}
	value := promotion.DiscountValue.Decimal
	if value.LessThanOrEqual(decimal.Zero) {
		return models.ZeroMoney()
	}

	var discount decimal.Decimal
	switch promotion.DiscountType {
	case constants.DiscountTypePercentage:
		discount = amount.Decimal.Mul(value).Div(decimal.NewFromInt(100))
		if promotion.MaxDiscountAmount.Decimal.GreaterThan(decimal.Zero) && discount.GreaterThan(promotion.MaxDiscountAmount.Decimal) {
			discount = promotion.MaxDiscountAmount.Decimal
		}
		discount = discount.Round(precision)
	case constants.DiscountTypeFixed, constants.DiscountTypeBundle:
		discount = value
	default:
		return models.ZeroMoney()
	}

	if discount.GreaterThan(amount.Decimal) {
		discount = amount.Decimal
	}
	if discount.LessThan(decimal.Zero) {
		discount = decimal.Zero
	}
	return models.NewMoneyFromDecimal(discount)
}

// PromotionRegistry 优惠查找与组合优惠目录
type PromotionRegistry struct {
	promotionRepo  repository.PromotionRepository
	precision      int32
	bundleCacheTTL time.Duration
	group          singleflight.Group
}

// NewPromotionRegistry 创建优惠目录
func NewPromotionRegistry(promotionRepo repository.PromotionRepository, precision int, bundleCacheTTL time.Duration) *PromotionRegistry {
	if precision < 0 {
		precision = 0
	}
	return &PromotionRegistry{
		promotionRepo:  promotionRepo,
		precision:      int32(precision),
		bundleCacheTTL: bundleCacheTTL,
	}
}

// Precision 金额精度
func (r *PromotionRegistry) Precision() int32 {
	return r.precision
}

// FindByCode 根据优惠码查找（大小写不敏感）
func (r *PromotionRegistry) FindByCode(tx *gorm.DB, code string) (*models.Promotion, error) {
	promotion, err := r.repo(tx).GetByCode(code)
	if err != nil {
		return nil, err
	}
	if promotion == nil {
		return nil, ErrPromotionNotFound
	}
	return promotion, nil
}

// ActiveBundles 获取指定时间可用的组合优惠
// tx 非空时未命中缓存则在事务内读取，且不回写缓存；使用次数以事务内重新读取为准。
func (r *PromotionRegistry) ActiveBundles(ctx context.Context, tx *gorm.DB, at time.Time) ([]models.Promotion, error) {
	var all []models.Promotion
	hit, err := cache.GetJSON(ctx, activeBundlesCacheKey, &all)
	if err != nil {
		logger.Warnw("promotion_bundle_cache_read_failed", "error", err)
	}
	if !hit {
		if tx != nil {
			all, err = r.repo(tx).ListActiveBundles()
		} else {
			var value interface{}
			value, err, _ = r.group.Do(activeBundlesCacheKey, func() (interface{}, error) {
				return r.loadBundles(ctx)
			})
			if err == nil {
				all = value.([]models.Promotion)
			}
		}
		if err != nil {
			return nil, err
		}
	}

	result := make([]models.Promotion, 0, len(all))
	for i := range all {
		if IsEligible(&all[i], at) {
			result = append(result, all[i])
		}
	}
	return result, nil
}

// InvalidateBundles 清除组合优惠缓存
func (r *PromotionRegistry) InvalidateBundles(ctx context.Context) {
	if err := cache.Del(ctx, activeBundlesCacheKey); err != nil {
		logger.Warnw("promotion_bundle_cache_invalidate_failed", "error", err)
	}
}

func (r *PromotionRegistry) loadBundles(ctx context.Context) ([]models.Promotion, error) {
	promotions, err := r.promotionRepo.ListActiveBundles()
	if err != nil {
		return nil, err
	}
	if r.bundleCacheTTL > 0 {
		if err := cache.SetJSON(ctx, activeBundlesCacheKey, promotions, r.bundleCacheTTL); err != nil {
			logger.Warnw("promotion_bundle_cache_write_failed", "error", err)
		}
	}
	return promotions, nil
}

func (r *PromotionRegistry) repo(tx *gorm.DB) repository.PromotionRepository {
	if tx == nil {
		return r.promotionRepo
	}
	return r.promotionRepo.WithTx(tx)
}
