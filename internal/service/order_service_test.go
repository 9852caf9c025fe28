package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dujiao-next/promoengine/internal/constants"
	"github.com/dujiao-next/promoengine/internal/models"

	"github.com/shopspring/decimal"
)

func checkoutTestOrder(t *testing.T, env *promotionTestEnv, userID uint, codes ...string) (*models.Order, *models.Cart) {
	t.Helper()

	ctx := context.Background()
	product := createTestProduct(t, env, "order-p1", 200000)
	cart := createTestCart(t, env, product, 1)
	if len(codes) > 0 {
		if _, failures, err := env.carts.ApplyPromotionCodes(ctx, cart.Token, codes); err != nil {
			t.Fatalf("apply codes failed: %v (%+v)", err, failures)
		}
	}
	order, err := env.orders.Checkout(ctx, cart.Token, userID)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	return order, cart
}

func TestCheckoutTransfersPromotionsWithoutConsumingAgain(t *testing.T) {
	env := setupPromotionServiceTest(t)
	promotion := createTestPromotion(t, env, "FIX50", constants.DiscountTypeFixed, 50000, withUsageLimit(1))

	order, cart := checkoutTestOrder(t, env, 1, "FIX50")
	if order.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("expected pending order, got %s", order.Status)
	}
	assertMoney(t, "order discount", order.DiscountAmount, 50000)
	assertMoney(t, "order final", order.FinalAmount, 150000)
	assertMoney(t, "order grand total", order.GrandTotal, 150000)
	if len(order.Items) != 1 || order.Items[0].Title != "Product order-p1" {
		t.Fatalf("unexpected order items: %+v", order.Items)
	}

	if got := reloadPromotion(t, env, promotion.ID).UsageCount; got != 1 {
		t.Fatalf("checkout should not consume again, got %d", got)
	}
	usages := activeUsages(t, env, constants.RedeemableTypeOrder, order.ID)
	if len(usages) != 1 || usages[0].State != constants.PromotionUsageStateRedeemed {
		t.Fatalf("expected redeemed usage on order, got %+v", usages)
	}
	if left := activeUsages(t, env, constants.RedeemableTypeCart, cart.ID); len(left) != 0 {
		t.Fatalf("expected no usage left on cart, got %d", len(left))
	}
	storedCart, _ := env.cartRepo.GetByID(cart.ID)
	if storedCart.Status != constants.CartStatusCheckedOut || storedCart.CheckedOutAt == nil {
		t.Fatalf("expected cart checked out, got %+v", storedCart)
	}

	_, err := env.orders.Checkout(context.Background(), cart.Token, 1)
	if !errors.Is(err, ErrCartClosed) {
		t.Fatalf("expected closed cart on second checkout, got %v", err)
	}
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	env := setupPromotionServiceTest(t)
	cart := createTestCart(t, env, nil, 0)
	if _, err := env.orders.Checkout(context.Background(), cart.Token, 1); !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("expected empty cart error, got %v", err)
	}
}

func TestCancelOrderRefundsUsage(t *testing.T) {
	env := setupPromotionServiceTest(t)
	promotion := createTestPromotion(t, env, "FIX50", constants.DiscountTypeFixed, 50000, withUsageLimit(1))
	order, _ := checkoutTestOrder(t, env, 3, "FIX50")

	if _, err := env.orders.Cancel(context.Background(), order.ID, 99); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected other user cancel rejected, got %v", err)
	}
	canceled, err := env.orders.Cancel(context.Background(), order.ID, 3)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if canceled.Status != constants.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", canceled.Status)
	}
	if got := reloadPromotion(t, env, promotion.ID).UsageCount; got != 0 {
		t.Fatalf("expected usage refunded, got %d", got)
	}
	if _, err := env.orders.Cancel(context.Background(), order.ID, 3); !errors.Is(err, ErrOrderNotPending) {
		t.Fatalf("expected not pending on second cancel, got %v", err)
	}
}

func TestCancelOrderKeepsUsageWhenRefundDisabled(t *testing.T) {
	env := setupPromotionServiceTest(t)
	env.orders.options.RefundUsageOnCancel = false
	promotion := createTestPromotion(t, env, "FIX50", constants.DiscountTypeFixed, 50000)
	order, _ := checkoutTestOrder(t, env, 3, "FIX50")

	if _, err := env.orders.Cancel(context.Background(), order.ID, 3); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if got := reloadPromotion(t, env, promotion.ID).UsageCount; got != 1 {
		t.Fatalf("expected usage kept, got %d", got)
	}
}

func TestTimeoutCancelOnlyAfterExpiry(t *testing.T) {
	env := setupPromotionServiceTest(t)
	ctx := context.Background()
	order, _ := checkoutTestOrder(t, env, 5)

	result, err := env.orders.TimeoutCancel(ctx, order.ID)
	if err != nil {
		t.Fatalf("timeout cancel before expiry failed: %v", err)
	}
	if result.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("expected order still pending, got %s", result.Status)
	}

	future := time.Now().Add(time.Hour)
	env.applier.now = func() time.Time { return future }
	canceled, err := env.orders.SweepExpiredOrders(ctx, future, 10)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if canceled != 1 {
		t.Fatalf("expected 1 order canceled, got %d", canceled)
	}
	stored, _ := env.orderRepo.GetByID(order.ID)
	if stored.Status != constants.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", stored.Status)
	}
	if _, err := env.orders.TimeoutCancel(ctx, 9999); err != nil {
		t.Fatalf("missing order should be ignored, got %v", err)
	}
}

func TestOrderPromotionsLockedAfterPayment(t *testing.T) {
	env := setupPromotionServiceTest(t)
	ctx := context.Background()
	createTestPromotion(t, env, "LATE", constants.DiscountTypeFixed, 1000)
	order, _ := checkoutTestOrder(t, env, 8)

	updated, failures, err := env.orders.ApplyPromotionCodes(ctx, order.ID, 8, []string{"LATE"})
	if err != nil {
		t.Fatalf("apply on pending order failed: %v (%+v)", err, failures)
	}
	assertMoney(t, "discount", updated.DiscountAmount, 1000)
	usages := activeUsages(t, env, constants.RedeemableTypeOrder, order.ID)
	if len(usages) != 1 || usages[0].State != constants.PromotionUsageStateRedeemed {
		t.Fatalf("expected redeemed usage, got %+v", usages)
	}

	if _, err := env.orders.MarkPaid(ctx, order.ID); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if _, _, err := env.orders.ApplyPromotionCodes(ctx, order.ID, 8, []string{"LATE"}); !errors.Is(err, ErrOrderNotPending) {
		t.Fatalf("expected not pending after payment, got %v", err)
	}
	if _, err := env.orders.DetachPromotion(ctx, order.ID, 8, usages[0].PromotionID); !errors.Is(err, ErrOrderNotPending) {
		t.Fatalf("expected detach rejected after payment, got %v", err)
	}
}

func TestUpdateAdjustmentsRecomputesGrandTotal(t *testing.T) {
	env := setupPromotionServiceTest(t)
	createTestPromotion(t, env, "FIX50", constants.DiscountTypeFixed, 50000)
	createTestPromotion(t, env, "FIX30", constants.DiscountTypeFixed, 30000)
	order, _ := checkoutTestOrder(t, env, 2, "FIX50", "FIX30")

	updated, err := env.orders.UpdateAdjustments(context.Background(), order.ID, models.NewMoneyFromInt(10000), decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("update adjustments failed: %v", err)
	}
	assertMoney(t, "final", updated.FinalAmount, 120000)
	assertMoney(t, "tax", updated.TaxAmount, 12000)
	assertMoney(t, "grand total", updated.GrandTotal, 142000)

	stored, _ := env.orderRepo.GetByID(order.ID)
	assertMoney(t, "stored grand total", stored.GrandTotal, 142000)

	if _, err := env.orders.UpdateAdjustments(context.Background(), order.ID, models.NewMoneyFromInt(-1), decimal.Zero); !errors.Is(err, ErrOrderAdjustmentInvalid) {
		t.Fatalf("expected invalid adjustment, got %v", err)
	}
}
