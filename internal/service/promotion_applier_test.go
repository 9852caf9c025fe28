package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dujiao-next/promoengine/internal/constants"
	"github.com/dujiao-next/promoengine/internal/models"
)

func requireErrorCode(t *testing.T, err error, want string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected error %s, got nil", want)
	}
	if got := ErrorCodeOf(err); got != want {
		t.Fatalf("expected error code %s, got %s (%v)", want, got, err)
	}
}

func TestApplyNonStackableRejectsExistingPromotion(t *testing.T) {
	env := setupPromotionServiceTest(t)
	product := createTestProduct(t, env, "p1", 100000)
	cart := createTestCart(t, env, product, 1)
	createTestPromotion(t, env, "STACK", constants.DiscountTypeFixed, 1000)
	createTestPromotion(t, env, "SOLO", constants.DiscountTypeFixed, 2000, withStackable(false))

	ctx := context.Background()
	if _, err := env.applier.Apply(ctx, CartRef(cart.ID), "STACK"); err != nil {
		t.Fatalf("apply stackable failed: %v", err)
	}
	_, err := env.applier.Apply(ctx, CartRef(cart.ID), "SOLO")
	requireErrorCode(t, err, constants.PromotionErrorStackingConflict)

	promotions, err := env.applier.AttachedPromotions(CartRef(cart.ID))
	if err != nil {
		t.Fatalf("list attached failed: %v", err)
	}
	if len(promotions) != 1 || promotions[0].Code != "STACK" {
		t.Fatalf("expected only STACK attached, got %+v", promotions)
	}
}

func TestApplyStackableRejectedWhenNonStackableAttached(t *testing.T) {
	env := setupPromotionServiceTest(t)
	product := createTestProduct(t, env, "p1", 100000)
	cart := createTestCart(t, env, product, 1)
	solo := createTestPromotion(t, env, "SOLO", constants.DiscountTypeFixed, 2000, withStackable(false))
	stack := createTestPromotion(t, env, "STACK", constants.DiscountTypeFixed, 1000)

	ctx := context.Background()
	redeemable, err := env.applier.Apply(ctx, CartRef(cart.ID), "solo")
	if err != nil {
		t.Fatalf("apply non-stackable failed: %v", err)
	}
	assertMoney(t, "discount", redeemable.Totals().DiscountAmount, 2000)

	_, err = env.applier.Apply(ctx, CartRef(cart.ID), "STACK")
	requireErrorCode(t, err, constants.PromotionErrorStackingConflict)
	if got := reloadPromotion(t, env, stack.ID).UsageCount; got != 0 {
		t.Fatalf("rejected promotion should not consume usage, got %d", got)
	}
	if got := reloadPromotion(t, env, solo.ID).UsageCount; got != 1 {
		t.Fatalf("expected solo usage 1, got %d", got)
	}
}

func TestApplyDuplicateKeepsUsageCount(t *testing.T) {
	env := setupPromotionServiceTest(t)
	product := createTestProduct(t, env, "p1", 100000)
	cart := createTestCart(t, env, product, 1)
	promotion := createTestPromotion(t, env, "ONCE", constants.DiscountTypeFixed, 1000, withUsageLimit(10))

	ctx := context.Background()
	if _, err := env.applier.Apply(ctx, CartRef(cart.ID), "ONCE"); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	_, err := env.applier.Apply(ctx, CartRef(cart.ID), "once")
	requireErrorCode(t, err, constants.PromotionErrorAlreadyApplied)

	if got := reloadPromotion(t, env, promotion.ID).UsageCount; got != 1 {
		t.Fatalf("expected usage count 1 after duplicate, got %d", got)
	}
	if usages := activeUsages(t, env, constants.RedeemableTypeCart, cart.ID); len(usages) != 1 {
		t.Fatalf("expected one active usage, got %d", len(usages))
	}
}

func TestApplyRejectsUnknownExpiredAndExhausted(t *testing.T) {
	env := setupPromotionServiceTest(t)
	product := createTestProduct(t, env, "p1", 100000)
	cart := createTestCart(t, env, product, 1)
	past := time.Now().Add(-time.Hour)
	createTestPromotion(t, env, "OLD", constants.DiscountTypeFixed, 1000, withWindow(nil, &past))
	createTestPromotion(t, env, "OFF", constants.DiscountTypeFixed, 1000, withInactive())
	createTestPromotion(t, env, "ZERO", constants.DiscountTypeFixed, 1000, withUsageLimit(0))

	ctx := context.Background()
	_, err := env.applier.Apply(ctx, CartRef(cart.ID), "NOPE")
	requireErrorCode(t, err, constants.PromotionErrorNotFound)
	_, err = env.applier.Apply(ctx, CartRef(cart.ID), "OLD")
	requireErrorCode(t, err, constants.PromotionErrorExpiredOrInactive)
	_, err = env.applier.Apply(ctx, CartRef(cart.ID), "OFF")
	requireErrorCode(t, err, constants.PromotionErrorExpiredOrInactive)
	_, err = env.applier.Apply(ctx, CartRef(cart.ID), "ZERO")
	requireErrorCode(t, err, constants.PromotionErrorExhausted)
}

func TestApplyRejectsBrokenBundleConfiguration(t *testing.T) {
	env := setupPromotionServiceTest(t)
	product := createTestProduct(t, env, "p1", 100000)
	cart := createTestCart(t, env, product, 1)
	createTestPromotion(t, env, "HALF", constants.DiscountTypeBundle, 1000,
		withBundleRules(models.PromotionBundleRule{ProductID: product.ID, Quantity: 1}),
	)

	_, err := env.applier.Apply(context.Background(), CartRef(cart.ID), "HALF")
	requireErrorCode(t, err, constants.PromotionErrorInvalidBundleConfig)
}

func TestApplyBundleCodeRequiresMatchingItems(t *testing.T) {
	env := setupPromotionServiceTest(t)
	ctx := context.Background()
	shirt := createTestProduct(t, env, "shirt", 100000)
	hat := createTestProduct(t, env, "hat", 50000)
	bundle := createTestPromotion(t, env, "SET20", constants.DiscountTypeBundle, 20000, withBundleRules(
		models.PromotionBundleRule{ProductID: shirt.ID, Quantity: 1},
		models.PromotionBundleRule{ProductID: hat.ID, Quantity: 1},
	))

	cart := createTestCart(t, env, shirt, 1)
	_, err := env.applier.Apply(ctx, CartRef(cart.ID), "SET20")
	requireErrorCode(t, err, constants.PromotionErrorInvalidBundleConfig)
	if !errors.Is(err, ErrBundleNotMatched) {
		t.Fatalf("expected ErrBundleNotMatched, got %v", err)
	}
	attached, err := env.applier.AttachedPromotions(CartRef(cart.ID))
	if err != nil {
		t.Fatalf("list attached failed: %v", err)
	}
	if len(attached) != 0 {
		t.Fatalf("expected nothing attached, got %d", len(attached))
	}
	if got := reloadPromotion(t, env, bundle.ID).UsageCount; got != 0 {
		t.Fatalf("expected usage count 0, got %d", got)
	}
	if usages := activeUsages(t, env, constants.RedeemableTypeCart, cart.ID); len(usages) != 0 {
		t.Fatalf("expected no usage entry, got %d", len(usages))
	}
}

func TestApplyBatchRollsBackUnmatchedBundle(t *testing.T) {
	env := setupPromotionServiceTest(t)
	shirt := createTestProduct(t, env, "shirt", 100000)
	hat := createTestProduct(t, env, "hat", 50000)
	fixed := createTestPromotion(t, env, "FIX5", constants.DiscountTypeFixed, 5000)
	bundle := createTestPromotion(t, env, "SET20", constants.DiscountTypeBundle, 20000, withBundleRules(
		models.PromotionBundleRule{ProductID: shirt.ID, Quantity: 1},
		models.PromotionBundleRule{ProductID: hat.ID, Quantity: 1},
	))

	cart := createTestCart(t, env, shirt, 1)
	_, failures, err := env.applier.ApplyBatch(context.Background(), CartRef(cart.ID), []string{"FIX5", "SET20"})
	requireErrorCode(t, err, constants.PromotionErrorInvalidBundleConfig)
	if len(failures) != 1 || failures[0].Code != "SET20" || failures[0].ErrorCode != constants.PromotionErrorInvalidBundleConfig {
		t.Fatalf("expected SET20 reported, got %+v", failures)
	}
	if got := reloadPromotion(t, env, bundle.ID).UsageCount; got != 0 {
		t.Fatalf("expected bundle usage 0, got %d", got)
	}
	if got := reloadPromotion(t, env, fixed.ID).UsageCount; got != 0 {
		t.Fatalf("expected fixed usage rolled back, got %d", got)
	}
	attached, err := env.applier.AttachedPromotions(CartRef(cart.ID))
	if err != nil {
		t.Fatalf("list attached failed: %v", err)
	}
	if len(attached) != 0 {
		t.Fatalf("expected nothing attached, got %d", len(attached))
	}
}

func TestApplyUsageLimitStopsExactly(t *testing.T) {
	env := setupPromotionServiceTest(t)
	product := createTestProduct(t, env, "p1", 100000)
	promotion := createTestPromotion(t, env, "LIMIT2", constants.DiscountTypeFixed, 1000, withUsageLimit(2))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		cart := createTestCart(t, env, product, 1)
		if _, err := env.applier.Apply(ctx, CartRef(cart.ID), "LIMIT2"); err != nil {
			t.Fatalf("apply %d failed: %v", i, err)
		}
	}
	cart := createTestCart(t, env, product, 1)
	_, err := env.applier.Apply(ctx, CartRef(cart.ID), "LIMIT2")
	requireErrorCode(t, err, constants.PromotionErrorExhausted)

	if got := reloadPromotion(t, env, promotion.ID).UsageCount; got != 2 {
		t.Fatalf("expected usage count 2, got %d", got)
	}
}

func TestApplyUsageLimitUnderConcurrency(t *testing.T) {
	env := setupPromotionServiceTest(t)
	product := createTestProduct(t, env, "p1", 100000)
	const limit = 5
	const attempts = 20
	promotion := createTestPromotion(t, env, "RUSH", constants.DiscountTypeFixed, 1000, withUsageLimit(limit))

	carts := make([]*models.Cart, 0, attempts)
	for i := 0; i < attempts; i++ {
		carts = append(carts, createTestCart(t, env, product, 1))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		exhausted int
		others    []error
	)
	start := make(chan struct{})
	for _, cart := range carts {
		wg.Add(1)
		go func(cartID uint) {
			defer wg.Done()
			<-start
			_, err := env.applier.Apply(context.Background(), CartRef(cartID), "RUSH")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case ErrorCodeOf(err) == constants.PromotionErrorExhausted:
				exhausted++
			default:
				others = append(others, err)
			}
		}(cart.ID)
	}
	close(start)
	wg.Wait()

	if len(others) > 0 {
		t.Fatalf("unexpected errors: %v", others)
	}
	if succeeded != limit || exhausted != attempts-limit {
		t.Fatalf("expected %d succeeded and %d exhausted, got %d and %d", limit, attempts-limit, succeeded, exhausted)
	}
	if got := reloadPromotion(t, env, promotion.ID).UsageCount; got != limit {
		t.Fatalf("expected usage count %d, got %d", limit, got)
	}
}

func TestApplyBatchScenario(t *testing.T) {
	env := setupPromotionServiceTest(t)
	product := createTestProduct(t, env, "p1", 200000)
	cart := createTestCart(t, env, product, 1)
	createTestPromotion(t, env, "FIX50", constants.DiscountTypeFixed, 50000)
	createTestPromotion(t, env, "FIX30", constants.DiscountTypeFixed, 30000)

	redeemable, failures, err := env.applier.ApplyBatch(context.Background(), CartRef(cart.ID), []string{"FIX50", "fix30"})
	if err != nil {
		t.Fatalf("apply batch failed: %v (%+v)", err, failures)
	}
	totals := redeemable.Totals()
	assertMoney(t, "subtotal", totals.Subtotal, 200000)
	assertMoney(t, "discount", totals.DiscountAmount, 80000)
	assertMoney(t, "final", totals.FinalTotal, 120000)

	stored, err := env.cartRepo.GetByID(cart.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload cart failed: %v", err)
	}
	assertMoney(t, "stored final", stored.FinalAmount, 120000)
}

func TestApplyBatchIsAllOrNothing(t *testing.T) {
	env := setupPromotionServiceTest(t)
	product := createTestProduct(t, env, "p1", 200000)
	cart := createTestCart(t, env, product, 1)
	valid := createTestPromotion(t, env, "VALID1", constants.DiscountTypeFixed, 50000, withUsageLimit(3))

	_, failures, err := env.applier.ApplyBatch(context.Background(), CartRef(cart.ID), []string{"VALID1", "INVALID"})
	requireErrorCode(t, err, constants.PromotionErrorNotFound)
	if len(failures) != 1 || failures[0].Code != "INVALID" || failures[0].ErrorCode != constants.PromotionErrorNotFound {
		t.Fatalf("expected INVALID reported as not_found, got %+v", failures)
	}

	attached, err := env.applier.AttachedPromotions(CartRef(cart.ID))
	if err != nil {
		t.Fatalf("list attached failed: %v", err)
	}
	if len(attached) != 0 {
		t.Fatalf("expected nothing attached, got %d", len(attached))
	}
	if got := reloadPromotion(t, env, valid.ID).UsageCount; got != 0 {
		t.Fatalf("expected rolled back usage count 0, got %d", got)
	}
	stored, _ := env.cartRepo.GetByID(cart.ID)
	assertMoney(t, "final", stored.FinalAmount, 200000)
}

func TestApplyBatchReplacesPreviousCodes(t *testing.T) {
	env := setupPromotionServiceTest(t)
	product := createTestProduct(t, env, "p1", 200000)
	cart := createTestCart(t, env, product, 1)
	first := createTestPromotion(t, env, "FIRST", constants.DiscountTypeFixed, 10000)
	createTestPromotion(t, env, "SECOND", constants.DiscountTypeFixed, 20000)

	ctx := context.Background()
	if _, _, err := env.applier.ApplyBatch(ctx, CartRef(cart.ID), []string{"FIRST"}); err != nil {
		t.Fatalf("first batch failed: %v", err)
	}
	redeemable, _, err := env.applier.ApplyBatch(ctx, CartRef(cart.ID), []string{"SECOND"})
	if err != nil {
		t.Fatalf("second batch failed: %v", err)
	}
	assertMoney(t, "discount", redeemable.Totals().DiscountAmount, 20000)

	// 重新挂载曾经占用过次数的优惠不重复计数
	if _, _, err := env.applier.ApplyBatch(ctx, CartRef(cart.ID), []string{"FIRST", "SECOND"}); err != nil {
		t.Fatalf("third batch failed: %v", err)
	}
	if got := reloadPromotion(t, env, first.ID).UsageCount; got != 1 {
		t.Fatalf("expected FIRST usage count 1, got %d", got)
	}
}

func TestApplyBatchRejectsDuplicateAndOversizedInput(t *testing.T) {
	env := setupPromotionServiceTest(t)
	product := createTestProduct(t, env, "p1", 200000)
	cart := createTestCart(t, env, product, 1)
	createTestPromotion(t, env, "DUP", constants.DiscountTypeFixed, 1000)

	ctx := context.Background()
	_, failures, err := env.applier.ApplyBatch(ctx, CartRef(cart.ID), []string{"DUP", "dup"})
	requireErrorCode(t, err, constants.PromotionErrorAlreadyApplied)
	if len(failures) != 1 || failures[0].Code != "DUP" {
		t.Fatalf("expected duplicate reported, got %+v", failures)
	}

	if _, _, err := env.applier.ApplyBatch(ctx, CartRef(cart.ID), []string{" ", ""}); !errors.Is(err, ErrPromotionCodesEmpty) {
		t.Fatalf("expected empty codes error, got %v", err)
	}
	tooMany := []string{"A", "B", "C", "D", "E", "F"}
	if _, _, err := env.applier.ApplyBatch(ctx, CartRef(cart.ID), tooMany); !errors.Is(err, ErrPromotionCodesTooMany) {
		t.Fatalf("expected too many codes error, got %v", err)
	}
}

func TestDetachKeepsUsageCount(t *testing.T) {
	env := setupPromotionServiceTest(t)
	product := createTestProduct(t, env, "p1", 100000)
	cart := createTestCart(t, env, product, 1)
	promotion := createTestPromotion(t, env, "KEEP", constants.DiscountTypeFixed, 1000, withUsageLimit(1))

	ctx := context.Background()
	if _, err := env.applier.Apply(ctx, CartRef(cart.ID), "KEEP"); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	redeemable, err := env.applier.Detach(ctx, CartRef(cart.ID), promotion.ID)
	if err != nil {
		t.Fatalf("detach failed: %v", err)
	}
	assertMoney(t, "discount after detach", redeemable.Totals().DiscountAmount, 0)
	if got := reloadPromotion(t, env, promotion.ID).UsageCount; got != 1 {
		t.Fatalf("detach should not release usage, got %d", got)
	}

	_, err = env.applier.Detach(ctx, CartRef(cart.ID), promotion.ID)
	requireErrorCode(t, err, constants.PromotionErrorNotFound)

	// 已占用次数的对象可重新挂载，即使优惠已达上限
	if _, err := env.applier.Apply(ctx, CartRef(cart.ID), "KEEP"); err != nil {
		t.Fatalf("re-apply after detach failed: %v", err)
	}
	if got := reloadPromotion(t, env, promotion.ID).UsageCount; got != 1 {
		t.Fatalf("re-apply should not consume again, got %d", got)
	}
}

func TestApplyRejectsClosedCart(t *testing.T) {
	env := setupPromotionServiceTest(t)
	product := createTestProduct(t, env, "p1", 100000)
	cart := createTestCart(t, env, product, 1)
	createTestPromotion(t, env, "LATE", constants.DiscountTypeFixed, 1000)

	env.applier.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err := env.applier.Apply(context.Background(), CartRef(cart.ID), "LATE")
	if !errors.Is(err, ErrRedeemableLocked) {
		t.Fatalf("expected redeemable locked, got %v", err)
	}
}

func TestCheckStacking(t *testing.T) {
	stackable := &models.Promotion{Stackable: true}
	exclusive := &models.Promotion{Stackable: false}

	if err := checkStacking(exclusive, nil); err != nil {
		t.Fatalf("exclusive promotion alone should pass, got %v", err)
	}
	if err := checkStacking(stackable, []models.Promotion{*stackable}); err != nil {
		t.Fatalf("stackable pair should pass, got %v", err)
	}
	if err := checkStacking(exclusive, []models.Promotion{*stackable}); !errors.Is(err, ErrPromotionStackingConflict) {
		t.Fatalf("expected stacking conflict, got %v", err)
	}
	if err := checkStacking(stackable, []models.Promotion{*exclusive}); !errors.Is(err, ErrPromotionStackingConflict) {
		t.Fatalf("expected stacking conflict, got %v", err)
	}
}
