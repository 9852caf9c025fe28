package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/dujiao-next/promoengine/internal/constants"
	"github.com/dujiao-next/promoengine/internal/logger"
	"github.com/dujiao-next/promoengine/internal/models"
	"github.com/dujiao-next/promoengine/internal/queue"
	"github.com/dujiao-next/promoengine/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderOptions 订单计价配置
type OrderOptions struct {
	PaymentExpireMinutes int
	ShippingFee          decimal.Decimal
	TaxRatePercent       decimal.Decimal
	RefundUsageOnCancel  bool
}

// OrderService 订单服务
type OrderService struct {
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	carts       *CartService
	applier     *PromotionApplier
	queueClient *queue.Client
	options     OrderOptions
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, cartRepo repository.CartRepository, productRepo repository.ProductRepository, carts *CartService, applier *PromotionApplier, queueClient *queue.Client, options OrderOptions) *OrderService {
	if options.PaymentExpireMinutes <= 0 {
		options.PaymentExpireMinutes = 15
	}
	return &OrderService{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		carts:       carts,
		applier:     applier,
		queueClient: queueClient,
		options:     options,
	}
}

// Checkout 购物车结算为订单，挂载的优惠与台账随之转移，不重复占用次数
func (s *OrderService) Checkout(ctx context.Context, token string, userID uint) (*models.Order, error) {
	if userID == 0 {
		return nil, ErrCartNotFound
	}
	cartID, err := s.carts.ResolveCartID(ctx, token)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.applier.Locked(ctx, CartRef(cartID), func(tx *gorm.DB, redeemable models.Redeemable, now time.Time) error {
		cart := redeemable.(*models.Cart)
		if cart.UserID != nil && *cart.UserID != userID {
			return ErrCartNotFound
		}
		if !cart.AcceptsPromotions(now) {
			return ErrCartClosed
		}
		if len(cart.Items) == 0 {
			return ErrCartEmpty
		}
		if err := s.applier.Bundles().AutoAttachBundles(ctx, tx, cart); err != nil {
			return err
		}

		titles, err := s.productTitles(tx, cart.Items)
		if err != nil {
			return err
		}
		items := make([]models.OrderItem, 0, len(cart.Items))
		for _, item := range cart.Items {
			items = append(items, models.OrderItem{
				ProductID:  item.ProductID,
				VariantID:  item.VariantID,
				Title:      titles[item.ProductID],
				Quantity:   item.Quantity,
				UnitPrice:  item.UnitPrice,
				TotalPrice: models.NewMoneyFromDecimal(item.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity)))),
			})
		}

		expiresAt := now.Add(time.Duration(s.options.PaymentExpireMinutes) * time.Minute)
		cartRefID := cart.ID
		created := &models.Order{
			OrderNo:        generateOrderNo(now),
			UserID:         userID,
			CartID:         &cartRefID,
			Status:         constants.OrderStatusPendingPayment,
			Currency:       cart.Currency,
			ShippingAmount: models.NewMoneyFromDecimal(s.options.ShippingFee),
			TaxRatePercent: s.options.TaxRatePercent,
			ExpiresAt:      &expiresAt,
		}
		orderRepo := s.orderRepo.WithTx(tx)
		if err := orderRepo.Create(created, items); err != nil {
			return err
		}
		if err := s.applier.TransferAttachments(tx, CartRef(cart.ID), OrderRef(created.ID), constants.PromotionUsageStateRedeemed); err != nil {
			return err
		}
		if _, err := s.applier.Totals().Recompute(tx, created, now); err != nil {
			return err
		}
		if err := s.cartRepo.WithTx(tx).UpdateStatus(cart.ID, constants.CartStatusCheckedOut, map[string]interface{}{
			"checked_out_at": now,
		}); err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.carts.forgetToken(ctx, token)
	delay := time.Until(*order.ExpiresAt)
	if err := s.queueClient.EnqueueOrderTimeoutCancel(queue.OrderTimeoutCancelPayload{OrderID: order.ID}, delay); err != nil {
		logger.Warnw("order_enqueue_timeout_cancel_failed", "order_id", order.ID, "error", err)
	}
	logger.Infow("order_checked_out",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"cart_id", cartID,
		"grand_total", order.GrandTotal.String(),
	)
	return order, nil
}

// ApplyPromotionCodes 待支付订单整批挂载优惠码
func (s *OrderService) ApplyPromotionCodes(ctx context.Context, orderID, userID uint, codes []string) (*models.Order, []CodeFailure, error) {
	if _, err := s.GetOrder(orderID, userID); err != nil {
		return nil, nil, err
	}
	redeemable, failures, err := s.applier.ApplyBatch(ctx, OrderRef(orderID), codes)
	if err != nil {
		return nil, failures, mapOrderLocked(err)
	}
	return redeemable.(*models.Order), nil, nil
}

// DetachPromotion 解除订单上的优惠
func (s *OrderService) DetachPromotion(ctx context.Context, orderID, userID, promotionID uint) (*models.Order, error) {
	if _, err := s.GetOrder(orderID, userID); err != nil {
		return nil, err
	}
	redeemable, err := s.applier.Detach(ctx, OrderRef(orderID), promotionID)
	if err != nil {
		return nil, mapOrderLocked(err)
	}
	return redeemable.(*models.Order), nil
}

// Cancel 用户取消待支付订单
func (s *OrderService) Cancel(ctx context.Context, orderID, userID uint) (*models.Order, error) {
	return s.cancel(ctx, orderID, func(order *models.Order, now time.Time) error {
		if order.UserID != userID {
			return ErrOrderNotFound
		}
		if order.Status != constants.OrderStatusPendingPayment {
			return ErrOrderNotPending
		}
		return nil
	}, "order_canceled")
}

// TimeoutCancel 支付超时自动取消，非待支付或未到期时忽略
func (s *OrderService) TimeoutCancel(ctx context.Context, orderID uint) (*models.Order, error) {
	order, err := s.cancel(ctx, orderID, func(order *models.Order, now time.Time) error {
		if order.Status != constants.OrderStatusPendingPayment || order.ExpiresAt == nil || order.ExpiresAt.After(now) {
			return errSkipCancel
		}
		return nil
	}, "order_timeout")
	if errors.Is(err, errSkipCancel) || errors.Is(err, ErrOrderNotFound) {
		return order, nil
	}
	return order, err
}

// SweepExpiredOrders 批量取消超时订单（补偿遗漏的延时任务）
func (s *OrderService) SweepExpiredOrders(ctx context.Context, now time.Time, limit int) (int, error) {
	orders, err := s.orderRepo.ListExpiredPending(now, limit)
	if err != nil {
		return 0, err
	}
	canceled := 0
	for _, order := range orders {
		if _, err := s.TimeoutCancel(ctx, order.ID); err != nil {
			logger.Warnw("order_sweep_cancel_failed", "order_id", order.ID, "error", err)
			continue
		}
		canceled++
	}
	return canceled, nil
}

// MarkPaid 管理端标记订单已支付，之后不可再调整优惠
func (s *OrderService) MarkPaid(ctx context.Context, orderID uint) (*models.Order, error) {
	var result *models.Order
	err := s.applier.Locked(ctx, OrderRef(orderID), func(tx *gorm.DB, redeemable models.Redeemable, now time.Time) error {
		order := redeemable.(*models.Order)
		if order.Status != constants.OrderStatusPendingPayment {
			return ErrOrderNotPending
		}
		if err := s.orderRepo.WithTx(tx).UpdateStatus(order.ID, constants.OrderStatusPaid, map[string]interface{}{
			"paid_at": now,
		}); err != nil {
			return ErrOrderUpdateFailed
		}
		order.Status = constants.OrderStatusPaid
		order.PaidAt = &now
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateAdjustments 管理端调整运费与税率并重算
func (s *OrderService) UpdateAdjustments(ctx context.Context, orderID uint, shipping models.Money, taxRatePercent decimal.Decimal) (*models.Order, error) {
	if shipping.Decimal.LessThan(decimal.Zero) || taxRatePercent.LessThan(decimal.Zero) || taxRatePercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, ErrOrderAdjustmentInvalid
	}
	var result *models.Order
	err := s.applier.Locked(ctx, OrderRef(orderID), func(tx *gorm.DB, redeemable models.Redeemable, now time.Time) error {
		order := redeemable.(*models.Order)
		if order.Status != constants.OrderStatusPendingPayment {
			return ErrOrderNotPending
		}
		order.ShippingAmount = shipping
		order.TaxRatePercent = taxRatePercent
		if _, err := s.applier.Totals().Recompute(tx, order, now); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetOrder 获取用户订单
func (s *OrderService) GetOrder(orderID, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetOrderForAdmin 管理端获取订单
func (s *OrderService) GetOrderForAdmin(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders 获取用户订单列表
func (s *OrderService) ListOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListByUser(filter)
}

// ListOrdersForAdmin 管理端订单列表
func (s *OrderService) ListOrdersForAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListAdmin(filter)
}

var errSkipCancel = errors.New("order cancel skipped")

func (s *OrderService) cancel(ctx context.Context, orderID uint, guard func(order *models.Order, now time.Time) error, reason string) (*models.Order, error) {
	var result *models.Order
	err := s.applier.Locked(ctx, OrderRef(orderID), func(tx *gorm.DB, redeemable models.Redeemable, now time.Time) error {
		order := redeemable.(*models.Order)
		result = order
		if err := guard(order, now); err != nil {
			return err
		}
		if err := s.orderRepo.WithTx(tx).UpdateStatus(order.ID, constants.OrderStatusCanceled, map[string]interface{}{
			"canceled_at": now,
		}); err != nil {
			return ErrOrderUpdateFailed
		}
		if s.options.RefundUsageOnCancel {
			if _, err := s.applier.ReleaseUsages(tx, constants.RedeemableTypeOrder, order.ID, reason, constants.PromotionUsageStateRedeemed); err != nil {
				return err
			}
		}
		order.Status = constants.OrderStatusCanceled
		order.CanceledAt = &now
		return nil
	})
	if err != nil {
		return result, err
	}
	logger.Infow("order_canceled", "order_id", orderID, "reason", reason)
	return result, nil
}

func (s *OrderService) productTitles(tx *gorm.DB, items []models.CartItem) (map[uint]string, error) {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.productRepo.WithTx(tx).ListByIDs(ids)
	if err != nil {
		return nil, err
	}
	titles := make(map[uint]string, len(products))
	for _, product := range products {
		titles[product.ID] = product.Title
	}
	for _, id := range ids {
		if strings.TrimSpace(titles[id]) == "" {
			titles[id] = fmt.Sprintf("product #%d", id)
		}
	}
	return titles, nil
}

func mapOrderLocked(err error) error {
	if errors.Is(err, ErrRedeemableLocked) {
		return ErrOrderNotPending
	}
	return err
}

func generateOrderNo(now time.Time) string {
	return fmt.Sprintf("%s%s%s", constants.OrderNoPrefix, now.Format("20060102150405"), randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
