package service

import (
	"fmt"

	"github.com/dujiao-next/promoengine/internal/models"
)

// minBundleRules 组合优惠最少规则数
const minBundleRules = 2

// ValidateBundleRules 校验组合规则
func ValidateBundleRules(rules []models.PromotionBundleRule) error {
	if len(rules) < minBundleRules {
		return fmt.Errorf("%w: at least %d rules required", ErrInvalidBundleConfiguration, minBundleRules)
	}
	seen := make(map[string]struct{}, len(rules))
	for _, rule := range rules {
		if rule.ProductID == 0 || rule.Quantity <= 0 {
			return fmt.Errorf("%w: product and positive quantity required", ErrInvalidBundleConfiguration)
		}
		key := fmt.Sprintf("%d:%d", rule.ProductID, rule.VariantID)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: duplicate rule %s", ErrInvalidBundleConfiguration, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// MatchesBundle 判断行项目是否满足组合优惠
// 每条规则独立匹配，不共享数量池。
func MatchesBundle(promotion *models.Promotion, items []models.LineItem) bool {
	if !promotion.IsBundle() {
		return false
	}
	if ValidateBundleRules(promotion.BundleRules) != nil {
		return false
	}
	for _, rule := range promotion.BundleRules {
		if !ruleSatisfied(rule, items) {
			return false
		}
	}
	return true
}

func ruleSatisfied(rule models.PromotionBundleRule, items []models.LineItem) bool {
	for _, item := range items {
		if item.ProductID != rule.ProductID {
			continue
		}
		if rule.VariantID != 0 && item.VariantID != rule.VariantID {
			continue
		}
		if item.Quantity >= rule.Quantity {
			return true
		}
	}
	return false
}
