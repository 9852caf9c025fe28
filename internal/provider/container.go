package provider

import (
	"time"

	"github.com/dujiao-next/promoengine/internal/authz"
	"github.com/dujiao-next/promoengine/internal/cache"
	"github.com/dujiao-next/promoengine/internal/config"
	"github.com/dujiao-next/promoengine/internal/logger"
	"github.com/dujiao-next/promoengine/internal/models"
	"github.com/dujiao-next/promoengine/internal/queue"
	"github.com/dujiao-next/promoengine/internal/repository"
	"github.com/dujiao-next/promoengine/internal/service"

	"github.com/shopspring/decimal"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	ProductRepo        repository.ProductRepository
	CartRepo           repository.CartRepository
	OrderRepo          repository.OrderRepository
	PromotionRepo      repository.PromotionRepository
	PromotionUsageRepo repository.PromotionUsageRepository
	RedeemableLinkRepo repository.RedeemablePromotionRepository

	// Services
	AuthzService          *authz.Service
	AuthService           *service.AuthService
	PromotionRegistry     *service.PromotionRegistry
	RedeemableTotals      *service.RedeemableTotals
	PromotionApplier      *service.PromotionApplier
	CartService           *service.CartService
	OrderService          *service.OrderService
	PromotionAdminService *service.PromotionAdminService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.ProductRepo = repository.NewProductRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.PromotionRepo = repository.NewPromotionRepository(db)
	c.PromotionUsageRepo = repository.NewPromotionUsageRepository(db)
	c.RedeemableLinkRepo = repository.NewRedeemablePromotionRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}
	c.AuthService = service.NewAuthService(c.Config)

	promo := c.Config.Promotion
	c.PromotionRegistry = service.NewPromotionRegistry(c.PromotionRepo, promo.CurrencyPrecision, time.Duration(promo.BundleCacheSeconds)*time.Second)
	calculator := service.NewDiscountCalculator(int32(promo.CurrencyPrecision))
	c.RedeemableTotals = service.NewRedeemableTotals(c.RedeemableLinkRepo, c.CartRepo, c.OrderRepo, calculator)
	locker := service.NewRedeemableLocker(
		time.Duration(promo.LockTTLMillis)*time.Millisecond,
		time.Duration(promo.RequestTimeoutMilli)*time.Millisecond,
	)
	c.PromotionApplier = service.NewPromotionApplier(
		c.PromotionRegistry,
		c.PromotionRepo,
		c.PromotionUsageRepo,
		c.RedeemableLinkRepo,
		c.CartRepo,
		c.OrderRepo,
		c.RedeemableTotals,
		locker,
		promo.MaxCodesPerRequest,
	)

	c.CartService = service.NewCartService(
		c.CartRepo,
		c.ProductRepo,
		c.PromotionApplier,
		c.QueueClient,
		time.Duration(c.Config.Cart.TTLHours)*time.Hour,
		c.Config.Cart.Currency,
	)
	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.CartRepo,
		c.ProductRepo,
		c.CartService,
		c.PromotionApplier,
		c.QueueClient,
		service.OrderOptions{
			PaymentExpireMinutes: c.Config.Order.PaymentExpireMinutes,
			ShippingFee:          parseDecimalSetting("order.shipping_fee", c.Config.Order.ShippingFee),
			TaxRatePercent:       parseDecimalSetting("order.tax_rate_percent", c.Config.Order.TaxRatePercent),
			RefundUsageOnCancel:  c.Config.Order.RefundUsageOnCancel,
		},
	)
	c.PromotionAdminService = service.NewPromotionAdminService(c.PromotionRepo, c.PromotionUsageRepo, c.PromotionRegistry)
}

func parseDecimalSetting(key, raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(raw)
	if err != nil || value.IsNegative() {
		logger.Warnw("provider_invalid_decimal_setting", "key", key, "value", raw, "error", err)
		return decimal.Zero
	}
	return value
}
