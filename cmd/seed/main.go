package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/dujiao-next/promoengine/internal/app"
	"github.com/dujiao-next/promoengine/internal/authz"
	"github.com/dujiao-next/promoengine/internal/cache"
	"github.com/dujiao-next/promoengine/internal/config"
	"github.com/dujiao-next/promoengine/internal/constants"
	"github.com/dujiao-next/promoengine/internal/logger"
	"github.com/dujiao-next/promoengine/internal/models"
	"github.com/dujiao-next/promoengine/internal/repository"
	"github.com/dujiao-next/promoengine/internal/service"
)

type seedVariant struct {
	SKU   string
	Title string
	Price int64
}

type seedProduct struct {
	Slug     string
	Title    string
	Price    int64
	Variants []seedVariant
}

func main() {
	var adminID, userID uint
	flag.UintVar(&adminID, "admin-id", 1, "授予 super_admin 的管理员ID")
	flag.UintVar(&userID, "user-id", 1, "签发测试令牌的用户ID")
	flag.Parse()

	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := app.OpenDatabase(cfg); err != nil {
		stdLog.Fatalf("database init failed: %v", err)
	}

	// 商品
	products := []seedProduct{
		{Slug: "espresso-machine", Title: "Espresso Machine", Price: 3500000},
		{Slug: "coffee-beans", Title: "Coffee Beans 1kg", Price: 450000, Variants: []seedVariant{
			{SKU: "ARABICA", Title: "Arabica", Price: 520000},
			{SKU: "ROBUSTA", Title: "Robusta", Price: 380000},
		}},
		{Slug: "milk-frother", Title: "Milk Frother", Price: 650000},
		{Slug: "ceramic-cup", Title: "Ceramic Cup", Price: 90000},
	}
	productIDs := map[string]uint{}
	for _, item := range products {
		var existing models.Product
		err := models.DB.Where("slug = ?", item.Slug).First(&existing).Error
		if err == nil {
			stdLog.Printf("Product already exists: %s", item.Slug)
			productIDs[item.Slug] = existing.ID
			continue
		}
		product := models.Product{
			Slug:        item.Slug,
			Title:       item.Title,
			PriceAmount: models.NewMoneyFromInt(item.Price),
			IsActive:    true,
		}
		for _, variant := range item.Variants {
			product.Variants = append(product.Variants, models.ProductVariant{
				SKUCode:     variant.SKU,
				Title:       variant.Title,
				PriceAmount: models.NewMoneyFromInt(variant.Price),
				IsActive:    true,
			})
		}
		if err := repository.NewProductRepository(models.DB).Create(&product); err != nil {
			stdLog.Printf("Failed to create product %s: %v", item.Slug, err)
			continue
		}
		stdLog.Printf("Created product: %s (id=%d)", item.Slug, product.ID)
		productIDs[item.Slug] = product.ID
	}

	// 优惠（缓存可用时同步失效组合优惠缓存）
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		stdLog.Printf("Redis unavailable, skip cache invalidation: %v", err)
	}
	defer func() { _ = cache.Close() }()
	registry := service.NewPromotionRegistry(
		repository.NewPromotionRepository(models.DB),
		cfg.Promotion.CurrencyPrecision,
		time.Duration(cfg.Promotion.BundleCacheSeconds)*time.Second,
	)
	promotionAdmin := service.NewPromotionAdminService(
		repository.NewPromotionRepository(models.DB),
		repository.NewPromotionUsageRepository(models.DB),
		registry,
	)
	active := true
	limit := 100
	promotions := []service.PromotionInput{
		{
			Title:             "Welcome 10%",
			Code:              "WELCOME10",
			DiscountType:      constants.DiscountTypePercentage,
			DiscountValue:     models.NewMoneyFromInt(10),
			MaxDiscountAmount: models.NewMoneyFromInt(200000),
			IsActive:          &active,
			Stackable:         true,
		},
		{
			Title:         "Flat 50K",
			Code:          "FLAT50K",
			DiscountType:  constants.DiscountTypeFixed,
			DiscountValue: models.NewMoneyFromInt(50000),
			IsActive:      &active,
			Stackable:     true,
			UsageLimit:    &limit,
		},
		{
			Title:         "VIP 20%",
			Code:          "VIP20",
			DiscountType:  constants.DiscountTypePercentage,
			DiscountValue: models.NewMoneyFromInt(20),
			IsActive:      &active,
		},
		{
			Title:         "Barista Set",
			Code:          "BARISTA-SET",
			DiscountType:  constants.DiscountTypeBundle,
			DiscountValue: models.NewMoneyFromInt(300000),
			IsActive:      &active,
			Stackable:     true,
			BundleRules: []service.BundleRuleInput{
				{ProductID: productIDs["espresso-machine"], Quantity: 1},
				{ProductID: productIDs["milk-frother"], Quantity: 1},
			},
		},
	}
	ctx := context.Background()
	for _, input := range promotions {
		promotion, err := promotionAdmin.Create(ctx, input)
		switch {
		case errors.Is(err, service.ErrPromotionCodeExists):
			stdLog.Printf("Promotion already exists: %s", input.Code)
		case err != nil:
			stdLog.Printf("Failed to create promotion %s: %v", input.Code, err)
		default:
			stdLog.Printf("Created promotion: %s (id=%d)", promotion.Code, promotion.ID)
		}
	}

	// 权限
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		stdLog.Fatalf("Failed to init authz: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		stdLog.Fatalf("Failed to bootstrap roles: %v", err)
	}
	if err := authzService.SetAdminRoles(adminID, []string{authz.RoleSuperAdmin}); err != nil {
		stdLog.Fatalf("Failed to grant super_admin: %v", err)
	}

	// 令牌
	authService := service.NewAuthService(cfg)
	adminToken, adminExpires, err := authService.GenerateJWT(adminID, "seed-admin")
	if err != nil {
		stdLog.Fatalf("Failed to sign admin token: %v", err)
	}
	userToken, userExpires, err := authService.GenerateUserJWT(userID)
	if err != nil {
		stdLog.Fatalf("Failed to sign user token: %v", err)
	}
	fmt.Printf("admin token (id=%d, expires %s):\n%s\n", adminID, adminExpires.Format(time.RFC3339), adminToken)
	fmt.Printf("user token (id=%d, expires %s):\n%s\n", userID, userExpires.Format(time.RFC3339), userToken)
}
