package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dujiao-next/promoengine/internal/cache"
	"github.com/dujiao-next/promoengine/internal/models"
	"github.com/dujiao-next/promoengine/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type promotionTestEnv struct {
	db            *gorm.DB
	promotionRepo *repository.GormPromotionRepository
	usageRepo     *repository.GormPromotionUsageRepository
	cartRepo      *repository.GormCartRepository
	orderRepo     *repository.GormOrderRepository
	productRepo   *repository.GormProductRepository
	registry      *PromotionRegistry
	applier       *PromotionApplier
	carts         *CartService
	orders        *OrderService
	admin         *PromotionAdminService
}

func setupPromotionServiceTest(t *testing.T) *promotionTestEnv {
	t.Helper()

	_ = cache.Close()
	dsn := fmt.Sprintf("file:promotion_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	env := &promotionTestEnv{
		db:            db,
		promotionRepo: repository.NewPromotionRepository(db),
		usageRepo:     repository.NewPromotionUsageRepository(db),
		cartRepo:      repository.NewCartRepository(db),
		orderRepo:     repository.NewOrderRepository(db),
		productRepo:   repository.NewProductRepository(db),
	}
	linkRepo := repository.NewRedeemablePromotionRepository(db)
	env.registry = NewPromotionRegistry(env.promotionRepo, 0, 0)
	totals := NewRedeemableTotals(linkRepo, env.cartRepo, env.orderRepo, NewDiscountCalculator(0))
	locker := NewRedeemableLocker(time.Second, 5*time.Second)
	env.applier = NewPromotionApplier(env.registry, env.promotionRepo, env.usageRepo, linkRepo, env.cartRepo, env.orderRepo, totals, locker, 5)
	env.carts = NewCartService(env.cartRepo, env.productRepo, env.applier, nil, time.Hour, "VND")
	env.orders = NewOrderService(env.orderRepo, env.cartRepo, env.productRepo, env.carts, env.applier, nil, OrderOptions{
		PaymentExpireMinutes: 15,
		ShippingFee:          decimal.Zero,
		TaxRatePercent:       decimal.Zero,
		RefundUsageOnCancel:  true,
	})
	env.admin = NewPromotionAdminService(env.promotionRepo, env.usageRepo, env.registry)
	return env
}

func createTestProduct(t *testing.T, env *promotionTestEnv, slug string, price int64) *models.Product {
	t.Helper()

	product := &models.Product{
		Slug:        slug,
		Title:       "Product " + slug,
		PriceAmount: models.NewMoneyFromInt(price),
		IsActive:    true,
	}
	if err := env.productRepo.Create(product); err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

type promotionOption func(p *models.Promotion)

func withUsageLimit(limit int) promotionOption {
	return func(p *models.Promotion) { p.UsageLimit = &limit }
}

func withStackable(stackable bool) promotionOption {
	return func(p *models.Promotion) { p.Stackable = stackable }
}

func withMaxDiscount(amount int64) promotionOption {
	return func(p *models.Promotion) { p.MaxDiscountAmount = models.NewMoneyFromInt(amount) }
}

func withWindow(startsAt, endsAt *time.Time) promotionOption {
	return func(p *models.Promotion) {
		p.StartsAt = startsAt
		p.EndsAt = endsAt
	}
}

func withInactive() promotionOption {
	return func(p *models.Promotion) { p.IsActive = false }
}

func withBundleRules(rules ...models.PromotionBundleRule) promotionOption {
	return func(p *models.Promotion) { p.BundleRules = rules }
}

func createTestPromotion(t *testing.T, env *promotionTestEnv, code, discountType string, value int64, opts ...promotionOption) *models.Promotion {
	t.Helper()

	promotion := &models.Promotion{
		Title:         "Promotion " + code,
		Code:          models.NormalizePromotionCode(code),
		DiscountType:  discountType,
		DiscountValue: models.NewMoneyFromInt(value),
		IsActive:      true,
		Stackable:     true,
	}
	for _, opt := range opts {
		opt(promotion)
	}
	rules := promotion.BundleRules
	promotion.BundleRules = nil
	if err := env.promotionRepo.Create(promotion); err != nil {
		t.Fatalf("create promotion failed: %v", err)
	}
	if len(rules) > 0 {
		if err := env.promotionRepo.ReplaceBundleRules(promotion.ID, rules); err != nil {
			t.Fatalf("create bundle rules failed: %v", err)
		}
	}
	env.registry.InvalidateBundles(context.Background())
	loaded, err := env.promotionRepo.GetByID(promotion.ID)
	if err != nil || loaded == nil {
		t.Fatalf("reload promotion failed: %v", err)
	}
	return loaded
}

// createTestCart 创建带单个商品的购物车，返回访问令牌
func createTestCart(t *testing.T, env *promotionTestEnv, product *models.Product, quantity int) *models.Cart {
	t.Helper()

	cart, err := env.carts.CreateCart(t.Context(), nil)
	if err != nil {
		t.Fatalf("create cart failed: %v", err)
	}
	if product == nil {
		return cart
	}
	cart, err = env.carts.UpsertItem(t.Context(), cart.Token, product.ID, 0, quantity)
	if err != nil {
		t.Fatalf("add cart item failed: %v", err)
	}
	return cart
}

func reloadPromotion(t *testing.T, env *promotionTestEnv, id uint) *models.Promotion {
	t.Helper()

	promotion, err := env.promotionRepo.GetByID(id)
	if err != nil || promotion == nil {
		t.Fatalf("reload promotion failed: %v", err)
	}
	return promotion
}

func activeUsages(t *testing.T, env *promotionTestEnv, redeemableType string, redeemableID uint) []models.PromotionUsage {
	t.Helper()

	usages, err := env.usageRepo.ListByRedeemable(redeemableType, redeemableID)
	if err != nil {
		t.Fatalf("list usages failed: %v", err)
	}
	result := make([]models.PromotionUsage, 0, len(usages))
	for _, usage := range usages {
		if usage.IsActive {
			result = append(result, usage)
		}
	}
	return result
}

func assertMoney(t *testing.T, label string, got models.Money, want int64) {
	t.Helper()

	if !got.Decimal.Equal(decimal.NewFromInt(want)) {
		t.Fatalf("%s: expected %d, got %s", label, want, got.String())
	}
}
