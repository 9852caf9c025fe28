package service

import (
	"context"
	"errors"
	"time"

	"github.com/dujiao-next/promoengine/internal/cache"
	"github.com/dujiao-next/promoengine/internal/constants"
	"github.com/dujiao-next/promoengine/internal/logger"
	"github.com/dujiao-next/promoengine/internal/models"
	"github.com/dujiao-next/promoengine/internal/queue"
	"github.com/dujiao-next/promoengine/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultCartTTL = 72 * time.Hour

// CartService 购物车服务
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	applier     *PromotionApplier
	queueClient *queue.Client
	ttl         time.Duration
	currency    string
}

// NewCartService 创建购物车服务
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, applier *PromotionApplier, queueClient *queue.Client, ttl time.Duration, currency string) *CartService {
	if ttl <= 0 {
		ttl = defaultCartTTL
	}
	if currency == "" {
		currency = "VND"
	}
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		applier:     applier,
		queueClient: queueClient,
		ttl:         ttl,
		currency:    currency,
	}
}

// CreateCart 创建购物车，登录用户已有打开的购物车时直接返回
func (s *CartService) CreateCart(ctx context.Context, userID *uint) (*models.Cart, error) {
	now := s.applier.now()
	if userID != nil && *userID != 0 {
		existing, err := s.cartRepo.GetOpenByUser(*userID)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.AcceptsPromotions(now) {
			return existing, nil
		}
	}

	cart := &models.Cart{
		Token:     uuid.NewString(),
		UserID:    userID,
		Status:    constants.CartStatusOpen,
		Currency:  s.currency,
		ExpiresAt: now.Add(s.ttl),
		Items:     []models.CartItem{},
	}
	if err := s.cartRepo.Create(cart); err != nil {
		return nil, err
	}
	if err := s.queueClient.EnqueueCartExpire(queue.CartExpirePayload{CartID: cart.ID}, s.ttl); err != nil {
		logger.Warnw("cart_enqueue_expire_failed", "cart_id", cart.ID, "error", err)
	}
	return cart, nil
}

// GetCart 根据令牌获取购物车
func (s *CartService) GetCart(ctx context.Context, token string) (*models.Cart, error) {
	cartID, err := s.ResolveCartID(ctx, token)
	if err != nil {
		return nil, err
	}
	cart, err := s.cartRepo.GetByID(cartID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	return cart, nil
}

// GetCartForUser 获取用户当前打开的购物车
func (s *CartService) GetCartForUser(userID uint) (*models.Cart, error) {
	cart, err := s.cartRepo.GetOpenByUser(userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	return cart, nil
}

// ResolveCartID 令牌解析为购物车ID（优先读缓存）
func (s *CartService) ResolveCartID(ctx context.Context, token string) (uint, error) {
	if _, err := uuid.Parse(token); err != nil {
		return 0, ErrCartNotFound
	}
	ref, hit, err := cache.GetCartRef(ctx, token)
	if err != nil {
		logger.Warnw("cart_ref_cache_read_failed", "error", err)
	}
	if hit && ref.CartID != 0 {
		return ref.CartID, nil
	}
	cart, err := s.cartRepo.GetByToken(token)
	if err != nil {
		return 0, err
	}
	if cart == nil {
		return 0, ErrCartNotFound
	}
	if err := cache.SetCartRef(ctx, token, cache.CartRef{CartID: cart.ID, Status: cart.Status}); err != nil {
		logger.Warnw("cart_ref_cache_write_failed", "error", err)
	}
	return cart.ID, nil
}

// UpsertItem 设置购物车项数量，数量为 0 时移除
func (s *CartService) UpsertItem(ctx context.Context, token string, productID, variantID uint, quantity int) (*models.Cart, error) {
	if productID == 0 || quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, token, productID, variantID)
	}
	cartID, err := s.ResolveCartID(ctx, token)
	if err != nil {
		return nil, err
	}
	unitPrice, err := s.resolveUnitPrice(productID, variantID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, cartID, func(tx *gorm.DB, cart *models.Cart) error {
		cartRepo := s.cartRepo.WithTx(tx)
		item, err := cartRepo.FindItem(cart.ID, productID, variantID)
		if err != nil {
			return err
		}
		if item == nil {
			item = &models.CartItem{
				CartID:    cart.ID,
				ProductID: productID,
				VariantID: variantID,
			}
		}
		item.Quantity = quantity
		item.UnitPrice = unitPrice
		return cartRepo.SaveItem(item)
	})
}

// RemoveItem 移除购物车项
func (s *CartService) RemoveItem(ctx context.Context, token string, productID, variantID uint) (*models.Cart, error) {
	cartID, err := s.ResolveCartID(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, cartID, func(tx *gorm.DB, cart *models.Cart) error {
		deleted, err := s.cartRepo.WithTx(tx).DeleteItem(cart.ID, productID, variantID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrCartItemNotFound
		}
		return nil
	})
}

// MergeCarts 将游客购物车合并到用户购物车
func (s *CartService) MergeCarts(ctx context.Context, guestToken string, userID uint) (*models.Cart, error) {
	if userID == 0 {
		return nil, ErrCartMergeInvalid
	}
	guestID, err := s.ResolveCartID(ctx, guestToken)
	if err != nil {
		return nil, err
	}
	target, err := s.cartRepo.GetOpenByUser(userID)
	if err != nil {
		return nil, err
	}
	if target == nil || target.ID == guestID {
		return s.mutate(ctx, guestID, func(tx *gorm.DB, cart *models.Cart) error {
			if cart.UserID != nil && *cart.UserID != userID {
				return ErrCartMergeInvalid
			}
			return s.cartRepo.WithTx(tx).BindUser(cart.ID, userID)
		})
	}

	releaseGuest, err := s.applier.locker.Acquire(ctx, constants.RedeemableTypeCart, guestID)
	if err != nil {
		return nil, newPromotionError(ErrPromotionConcurrencyConflict, "")
	}
	defer releaseGuest()

	merged, err := s.mutate(ctx, target.ID, func(tx *gorm.DB, cart *models.Cart) error {
		cartRepo := s.cartRepo.WithTx(tx)
		guest, err := cartRepo.GetByIDForUpdate(guestID)
		if err != nil {
			return err
		}
		if guest == nil {
			return ErrCartNotFound
		}
		if guest.Status != constants.CartStatusOpen || (guest.UserID != nil && *guest.UserID != userID) {
			return ErrCartMergeInvalid
		}
		for _, guestItem := range guest.Items {
			item, err := cartRepo.FindItem(cart.ID, guestItem.ProductID, guestItem.VariantID)
			if err != nil {
				return err
			}
			if item == nil {
				item = &models.CartItem{
					CartID:    cart.ID,
					ProductID: guestItem.ProductID,
					VariantID: guestItem.VariantID,
					UnitPrice: guestItem.UnitPrice,
				}
			}
			item.Quantity += guestItem.Quantity
			if err := cartRepo.SaveItem(item); err != nil {
				return err
			}
		}
		if _, err := s.applier.ReleaseUsages(tx, constants.RedeemableTypeCart, guest.ID, "cart_merged", constants.PromotionUsageStateReserved); err != nil {
			return err
		}
		if err := s.applier.ClearAttachments(tx, CartRef(guest.ID)); err != nil {
			return err
		}
		return cartRepo.UpdateStatus(guest.ID, constants.CartStatusMerged, nil)
	})
	if err != nil {
		return nil, err
	}
	s.forgetToken(ctx, guestToken)
	return merged, nil
}

// ApplyPromotionCodes 整批挂载优惠码
func (s *CartService) ApplyPromotionCodes(ctx context.Context, token string, codes []string) (*models.Cart, []CodeFailure, error) {
	cartID, err := s.ResolveCartID(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	redeemable, failures, err := s.applier.ApplyBatch(ctx, CartRef(cartID), codes)
	if err != nil {
		return nil, failures, s.mapLocked(err)
	}
	return redeemable.(*models.Cart), nil, nil
}

// DetachPromotion 解除购物车上的优惠
func (s *CartService) DetachPromotion(ctx context.Context, token string, promotionID uint) (*models.Cart, error) {
	cartID, err := s.ResolveCartID(ctx, token)
	if err != nil {
		return nil, err
	}
	redeemable, err := s.applier.Detach(ctx, CartRef(cartID), promotionID)
	if err != nil {
		return nil, s.mapLocked(err)
	}
	return redeemable.(*models.Cart), nil
}

// ExpireCart 过期购物车并释放预占的使用次数
func (s *CartService) ExpireCart(ctx context.Context, cartID uint) error {
	var token string
	err := s.applier.Locked(ctx, CartRef(cartID), func(tx *gorm.DB, redeemable models.Redeemable, now time.Time) error {
		cart := redeemable.(*models.Cart)
		if cart.Status != constants.CartStatusOpen || now.Before(cart.ExpiresAt) {
			return nil
		}
		token = cart.Token
		if err := s.cartRepo.WithTx(tx).UpdateStatus(cart.ID, constants.CartStatusExpired, nil); err != nil {
			return err
		}
		released, err := s.applier.ReleaseUsages(tx, constants.RedeemableTypeCart, cart.ID, "cart_expired", constants.PromotionUsageStateReserved)
		if err != nil {
			return err
		}
		logger.Infow("cart_expired", "cart_id", cart.ID, "released_usages", released)
		return nil
	})
	if errors.Is(err, ErrCartNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if token != "" {
		s.forgetToken(ctx, token)
	}
	return nil
}

// SweepExpiredCarts 批量过期超时购物车（补偿遗漏的延时任务）
func (s *CartService) SweepExpiredCarts(ctx context.Context, now time.Time, limit int) (int, error) {
	carts, err := s.cartRepo.ListExpiredOpen(now, limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, cart := range carts {
		if err := s.ExpireCart(ctx, cart.ID); err != nil {
			logger.Warnw("cart_sweep_expire_failed", "cart_id", cart.ID, "error", err)
			continue
		}
		expired++
	}
	return expired, nil
}

// mutate 在锁与事务内修改购物车，随后自动匹配组合优惠并重算金额
func (s *CartService) mutate(ctx context.Context, cartID uint, fn func(tx *gorm.DB, cart *models.Cart) error) (*models.Cart, error) {
	var result *models.Cart
	err := s.applier.Locked(ctx, CartRef(cartID), func(tx *gorm.DB, redeemable models.Redeemable, now time.Time) error {
		cart := redeemable.(*models.Cart)
		if !cart.AcceptsPromotions(now) {
			return ErrCartClosed
		}
		if err := fn(tx, cart); err != nil {
			return err
		}
		reloaded, err := s.cartRepo.WithTx(tx).GetByID(cart.ID)
		if err != nil {
			return err
		}
		if reloaded == nil {
			return ErrCartNotFound
		}
		if err := s.applier.Bundles().AutoAttachBundles(ctx, tx, reloaded); err != nil {
			return err
		}
		if _, err := s.applier.Totals().Recompute(tx, reloaded, now); err != nil {
			return err
		}
		result = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *CartService) resolveUnitPrice(productID, variantID uint) (models.Money, error) {
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return models.Money{}, err
	}
	if product == nil {
		return models.Money{}, ErrProductNotFound
	}
	if !product.IsActive {
		return models.Money{}, ErrProductInactive
	}
	if variantID == 0 {
		return product.PriceAmount, nil
	}
	variant, err := s.productRepo.GetVariant(productID, variantID)
	if err != nil {
		return models.Money{}, err
	}
	if variant == nil {
		return models.Money{}, ErrProductNotFound
	}
	if !variant.IsActive {
		return models.Money{}, ErrProductInactive
	}
	return variant.PriceAmount, nil
}

func (s *CartService) mapLocked(err error) error {
	if errors.Is(err, ErrRedeemableLocked) {
		return ErrCartClosed
	}
	return err
}

func (s *CartService) forgetToken(ctx context.Context, token string) {
	if err := cache.DelCartRef(ctx, token); err != nil {
		logger.Warnw("cart_ref_cache_delete_failed", "error", err)
	}
}
