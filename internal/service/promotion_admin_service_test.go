package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dujiao-next/promoengine/internal/constants"
	"github.com/dujiao-next/promoengine/internal/models"
	"github.com/dujiao-next/promoengine/internal/repository"
)

func TestPromotionAdminCreateValidatesInput(t *testing.T) {
	env := setupPromotionServiceTest(t)
	ctx := context.Background()
	yesterday := time.Now().Add(-48 * time.Hour)

	cases := []struct {
		name  string
		input PromotionInput
		want  error
	}{
		{name: "missing title", input: PromotionInput{Code: "A", DiscountType: constants.DiscountTypeFixed, DiscountValue: models.NewMoneyFromInt(1)}, want: ErrPromotionInvalid},
		{name: "unknown type", input: PromotionInput{Title: "x", Code: "A", DiscountType: "gift", DiscountValue: models.NewMoneyFromInt(1)}, want: ErrPromotionInvalid},
		{name: "percentage over 100", input: PromotionInput{Title: "x", Code: "A", DiscountType: constants.DiscountTypePercentage, DiscountValue: models.NewMoneyFromInt(101)}, want: ErrPromotionInvalid},
		{name: "zero value", input: PromotionInput{Title: "x", Code: "A", DiscountType: constants.DiscountTypeFixed, DiscountValue: models.ZeroMoney()}, want: ErrPromotionInvalid},
		{name: "bundle single rule", input: PromotionInput{
			Title: "x", Code: "A", DiscountType: constants.DiscountTypeBundle, DiscountValue: models.NewMoneyFromInt(1),
			BundleRules: []BundleRuleInput{{ProductID: 1, Quantity: 1}},
		}, want: ErrInvalidBundleConfiguration},
		{name: "rules on fixed", input: PromotionInput{
			Title: "x", Code: "A", DiscountType: constants.DiscountTypeFixed, DiscountValue: models.NewMoneyFromInt(1),
			BundleRules: []BundleRuleInput{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 1}},
		}, want: ErrPromotionInvalid},
		{name: "already ended", input: PromotionInput{
			Title: "x", Code: "A", DiscountType: constants.DiscountTypeFixed, DiscountValue: models.NewMoneyFromInt(1),
			EndsAt: &yesterday,
		}, want: ErrPromotionInvalid},
	}
	for _, tc := range cases {
		if _, err := env.admin.Create(ctx, tc.input); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestPromotionAdminCreateBundleAndConflict(t *testing.T) {
	env := setupPromotionServiceTest(t)
	ctx := context.Background()
	limit := 10

	created, err := env.admin.Create(ctx, PromotionInput{
		Title:         "Summer set",
		Code:          " summer-set ",
		DiscountType:  constants.DiscountTypeBundle,
		DiscountValue: models.NewMoneyFromInt(5000),
		Stackable:     true,
		UsageLimit:    &limit,
		BundleRules: []BundleRuleInput{
			{ProductID: 1, Quantity: 1},
			{ProductID: 2, VariantID: 3, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("create bundle failed: %v", err)
	}
	if created.Code != "SUMMER-SET" || !created.IsActive || len(created.BundleRules) != 2 {
		t.Fatalf("unexpected created promotion: %+v", created)
	}

	_, err = env.admin.Create(ctx, PromotionInput{
		Title:         "dup",
		Code:          "Summer-Set",
		DiscountType:  constants.DiscountTypeFixed,
		DiscountValue: models.NewMoneyFromInt(1),
	})
	if !errors.Is(err, ErrPromotionCodeExists) {
		t.Fatalf("expected code exists, got %v", err)
	}
}

func TestPromotionAdminUpdateKeepsUsageCount(t *testing.T) {
	env := setupPromotionServiceTest(t)
	ctx := context.Background()
	product := createTestProduct(t, env, "p1", 100000)
	promotion := createTestPromotion(t, env, "EDIT", constants.DiscountTypeFixed, 1000)
	cart := createTestCart(t, env, product, 1)
	if _, err := env.applier.Apply(ctx, CartRef(cart.ID), "EDIT"); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	updated, err := env.admin.Update(ctx, promotion.ID, PromotionInput{
		Title:             "Edited",
		Code:              "EDIT",
		DiscountType:      constants.DiscountTypePercentage,
		DiscountValue:     models.NewMoneyFromInt(20),
		MaxDiscountAmount: models.NewMoneyFromInt(5000),
		Stackable:         false,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.UsageCount != 1 || updated.Title != "Edited" || updated.Stackable {
		t.Fatalf("unexpected updated promotion: %+v", updated)
	}

	deactivated, err := env.admin.Deactivate(ctx, promotion.ID)
	if err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if deactivated.IsActive {
		t.Fatalf("expected inactive promotion")
	}

	usages, total, err := env.admin.ListUsages(repository.PromotionUsageListFilter{PromotionID: promotion.ID, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list usages failed: %v", err)
	}
	if total != 1 || len(usages) != 1 || usages[0].RedeemableID != cart.ID {
		t.Fatalf("unexpected usages: total=%d %+v", total, usages)
	}
	if _, _, err := env.admin.ListUsages(repository.PromotionUsageListFilter{PromotionID: 9999}); !errors.Is(err, ErrPromotionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
