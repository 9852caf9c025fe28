package service

import (
	"errors"
	"testing"

	"github.com/dujiao-next/promoengine/internal/constants"
	"github.com/dujiao-next/promoengine/internal/models"
)

func fixedPromotion(id uint, code string, value int64) models.Promotion {
	return models.Promotion{
		ID:            id,
		Code:          code,
		DiscountType:  constants.DiscountTypeFixed,
		DiscountValue: models.NewMoneyFromInt(value),
		IsActive:      true,
		Stackable:     true,
	}
}

func bundlePromotion(id uint, value int64, rules ...models.PromotionBundleRule) models.Promotion {
	return models.Promotion{
		ID:            id,
		Code:          "BUNDLE",
		DiscountType:  constants.DiscountTypeBundle,
		DiscountValue: models.NewMoneyFromInt(value),
		IsActive:      true,
		Stackable:     true,
		BundleRules:   rules,
	}
}

func TestCalculateStackedFixedDiscounts(t *testing.T) {
	calculator := NewDiscountCalculator(0)
	items := []models.LineItem{{ProductID: 1, Quantity: 1, UnitPrice: models.NewMoneyFromInt(200000)}}
	promotions := []models.Promotion{
		fixedPromotion(1, "FIX50", 50000),
		fixedPromotion(2, "FIX30", 30000),
	}

	breakdown := calculator.Calculate(SubtotalOf(items), promotions, items)
	assertMoney(t, "subtotal", breakdown.Subtotal, 200000)
	assertMoney(t, "discount", breakdown.DiscountAmount, 80000)
	assertMoney(t, "bundle", breakdown.BundleDiscount, 0)
	assertMoney(t, "final", breakdown.FinalTotal, 120000)
	if len(breakdown.Lines) != 2 {
		t.Fatalf("expected 2 discount lines, got %d", len(breakdown.Lines))
	}
}

func TestCalculateIsIdempotent(t *testing.T) {
	calculator := NewDiscountCalculator(0)
	items := []models.LineItem{
		{ProductID: 1, Quantity: 2, UnitPrice: models.NewMoneyFromInt(45000)},
		{ProductID: 2, Quantity: 1, UnitPrice: models.NewMoneyFromInt(10000)},
	}
	percent := models.Promotion{
		ID:            3,
		Code:          "PCT10",
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: models.NewMoneyFromInt(10),
		Stackable:     true,
		IsActive:      true,
	}
	promotions := []models.Promotion{
		fixedPromotion(1, "FIX5", 5000),
		percent,
		bundlePromotion(9, 7000,
			models.PromotionBundleRule{ProductID: 1, Quantity: 2},
			models.PromotionBundleRule{ProductID: 2, Quantity: 1},
		),
	}

	first := calculator.Calculate(SubtotalOf(items), promotions, items)
	second := calculator.Calculate(SubtotalOf(items), promotions, items)
	if !sameBreakdown(first, second) {
		t.Fatalf("expected identical breakdowns, got %+v and %+v", first, second)
	}
	// 100000 - bundle 7000 - fixed 5000 - 10% of original subtotal 10000
	assertMoney(t, "bundle", first.BundleDiscount, 7000)
	assertMoney(t, "discount", first.DiscountAmount, 15000)
	assertMoney(t, "final", first.FinalTotal, 78000)
}

func TestCalculateFinalNeverNegative(t *testing.T) {
	calculator := NewDiscountCalculator(0)
	items := []models.LineItem{{ProductID: 1, Quantity: 1, UnitPrice: models.NewMoneyFromInt(40000)}}
	promotions := []models.Promotion{
		fixedPromotion(1, "FIX30A", 30000),
		fixedPromotion(2, "FIX30B", 30000),
	}
	breakdown := calculator.Calculate(SubtotalOf(items), promotions, items)
	assertMoney(t, "final", breakdown.FinalTotal, 0)
}

func TestCalculateSkipsUnmatchedBundle(t *testing.T) {
	calculator := NewDiscountCalculator(0)
	items := []models.LineItem{{ProductID: 1, Quantity: 1, UnitPrice: models.NewMoneyFromInt(40000)}}
	promotions := []models.Promotion{bundlePromotion(1, 5000,
		models.PromotionBundleRule{ProductID: 1, Quantity: 1},
		models.PromotionBundleRule{ProductID: 2, Quantity: 1},
	)}
	breakdown := calculator.Calculate(SubtotalOf(items), promotions, items)
	assertMoney(t, "bundle", breakdown.BundleDiscount, 0)
	assertMoney(t, "final", breakdown.FinalTotal, 40000)
	if len(breakdown.Lines) != 0 {
		t.Fatalf("expected no discount lines, got %d", len(breakdown.Lines))
	}
}

func TestValidateBundleRules(t *testing.T) {
	cases := []struct {
		name  string
		rules []models.PromotionBundleRule
		valid bool
	}{
		{name: "empty", rules: nil, valid: false},
		{name: "single rule", rules: []models.PromotionBundleRule{{ProductID: 1, Quantity: 1}}, valid: false},
		{name: "zero quantity", rules: []models.PromotionBundleRule{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 0}}, valid: false},
		{name: "missing product", rules: []models.PromotionBundleRule{{ProductID: 1, Quantity: 1}, {ProductID: 0, Quantity: 1}}, valid: false},
		{name: "duplicate", rules: []models.PromotionBundleRule{{ProductID: 1, Quantity: 1}, {ProductID: 1, Quantity: 2}}, valid: false},
		{name: "same product different variant", rules: []models.PromotionBundleRule{{ProductID: 1, VariantID: 1, Quantity: 1}, {ProductID: 1, VariantID: 2, Quantity: 1}}, valid: true},
		{name: "valid", rules: []models.PromotionBundleRule{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 3}}, valid: true},
	}
	for _, tc := range cases {
		err := ValidateBundleRules(tc.rules)
		if tc.valid && err != nil {
			t.Fatalf("%s: expected valid, got %v", tc.name, err)
		}
		if !tc.valid && !errors.Is(err, ErrInvalidBundleConfiguration) {
			t.Fatalf("%s: expected invalid bundle configuration, got %v", tc.name, err)
		}
	}
}

func TestMatchesBundle(t *testing.T) {
	bundle := bundlePromotion(1, 5000,
		models.PromotionBundleRule{ProductID: 1, Quantity: 2},
		models.PromotionBundleRule{ProductID: 2, VariantID: 7, Quantity: 1},
	)

	cases := []struct {
		name  string
		items []models.LineItem
		want  bool
	}{
		{name: "all rules met", items: []models.LineItem{{ProductID: 1, Quantity: 2}, {ProductID: 2, VariantID: 7, Quantity: 1}}, want: true},
		{name: "any variant for rule without variant", items: []models.LineItem{{ProductID: 1, VariantID: 3, Quantity: 5}, {ProductID: 2, VariantID: 7, Quantity: 1}}, want: true},
		{name: "quantity too low", items: []models.LineItem{{ProductID: 1, Quantity: 1}, {ProductID: 2, VariantID: 7, Quantity: 1}}, want: false},
		{name: "wrong variant", items: []models.LineItem{{ProductID: 1, Quantity: 2}, {ProductID: 2, VariantID: 8, Quantity: 1}}, want: false},
		{name: "missing product", items: []models.LineItem{{ProductID: 1, Quantity: 2}}, want: false},
	}
	for _, tc := range cases {
		if got := MatchesBundle(&bundle, tc.items); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	notBundle := fixedPromotion(2, "FIX", 10)
	if MatchesBundle(&notBundle, []models.LineItem{{ProductID: 1, Quantity: 2}}) {
		t.Fatalf("non-bundle promotion should never match")
	}
}

func sameBreakdown(a, b Breakdown) bool {
	if !a.Subtotal.Decimal.Equal(b.Subtotal.Decimal) ||
		!a.BundleDiscount.Decimal.Equal(b.BundleDiscount.Decimal) ||
		!a.DiscountAmount.Decimal.Equal(b.DiscountAmount.Decimal) ||
		!a.FinalTotal.Decimal.Equal(b.FinalTotal.Decimal) ||
		len(a.Lines) != len(b.Lines) {
		return false
	}
	for i := range a.Lines {
		if a.Lines[i].PromotionID != b.Lines[i].PromotionID || !a.Lines[i].Amount.Decimal.Equal(b.Lines[i].Amount.Decimal) {
			return false
		}
	}
	return true
}
