package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/promoengine/internal/constants"
	"github.com/dujiao-next/promoengine/internal/logger"
	"github.com/dujiao-next/promoengine/internal/models"
	"github.com/dujiao-next/promoengine/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrPromotionUpdateFailed 优惠更新失败
var ErrPromotionUpdateFailed = errors.New("promotion update failed")

// PromotionAdminService 优惠管理服务
type PromotionAdminService struct {
	repo      repository.PromotionRepository
	usageRepo repository.PromotionUsageRepository
	registry  *PromotionRegistry
	now       func() time.Time
}

// NewPromotionAdminService 创建优惠管理服务
func NewPromotionAdminService(repo repository.PromotionRepository, usageRepo repository.PromotionUsageRepository, registry *PromotionRegistry) *PromotionAdminService {
	return &PromotionAdminService{repo: repo, usageRepo: usageRepo, registry: registry, now: time.Now}
}

// BundleRuleInput 组合规则输入
type BundleRuleInput struct {
	ProductID uint
	VariantID uint
	Quantity  int
}

// PromotionInput 创建/更新优惠输入
type PromotionInput struct {
	Title             string
	Code              string
	DiscountType      string
	DiscountValue     models.Money
	MaxDiscountAmount models.Money
	StartsAt          *time.Time
	EndsAt            *time.Time
	IsActive          *bool
	Stackable         bool
	UsageLimit        *int
	BundleRules       []BundleRuleInput
}

// Create 创建优惠
func (s *PromotionAdminService) Create(ctx context.Context, input PromotionInput) (*models.Promotion, error) {
	// 新建时结束时间不能早于当前
	if input.EndsAt != nil && input.EndsAt.Before(s.now()) {
		return nil, ErrPromotionInvalid
	}
	promotion := &models.Promotion{IsActive: true}
	rules, err := s.fill(promotion, input)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCodeAvailable(promotion.Code, 0); err != nil {
		return nil, err
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(promotion); err != nil {
			return err
		}
		if len(rules) == 0 {
			return nil
		}
		return repo.ReplaceBundleRules(promotion.ID, rules)
	})
	if err != nil {
		return nil, err
	}
	s.afterChange(ctx, promotion)
	return s.Get(promotion.ID)
}

// Update 更新优惠，已使用次数保持不变
func (s *PromotionAdminService) Update(ctx context.Context, id uint, input PromotionInput) (*models.Promotion, error) {
	existing, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	wasBundle := existing.IsBundle()
	rules, err := s.fill(existing, input)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCodeAvailable(existing.Code, existing.ID); err != nil {
		return nil, err
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Update(existing); err != nil {
			return ErrPromotionUpdateFailed
		}
		if len(rules) == 0 && !wasBundle {
			return nil
		}
		return repo.ReplaceBundleRules(existing.ID, rules)
	})
	if err != nil {
		return nil, err
	}
	if wasBundle {
		s.registry.InvalidateBundles(ctx)
	}
	s.afterChange(ctx, existing)
	return s.Get(existing.ID)
}

// Deactivate 停用优惠，已挂载的优惠在下次重算时不再生效
func (s *PromotionAdminService) Deactivate(ctx context.Context, id uint) (*models.Promotion, error) {
	existing, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !existing.IsActive {
		return existing, nil
	}
	existing.IsActive = false
	if err := s.repo.Update(existing); err != nil {
		return nil, ErrPromotionUpdateFailed
	}
	s.afterChange(ctx, existing)
	return existing, nil
}

// Get 获取优惠详情
func (s *PromotionAdminService) Get(id uint) (*models.Promotion, error) {
	if id == 0 {
		return nil, ErrPromotionNotFound
	}
	promotion, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if promotion == nil {
		return nil, ErrPromotionNotFound
	}
	return promotion, nil
}

// List 优惠列表
func (s *PromotionAdminService) List(filter repository.PromotionListFilter) ([]models.Promotion, int64, error) {
	filter.Code = models.NormalizePromotionCode(filter.Code)
	filter.DiscountType = strings.ToLower(strings.TrimSpace(filter.DiscountType))
	return s.repo.List(filter)
}

// ListUsages 优惠使用台账
func (s *PromotionAdminService) ListUsages(filter repository.PromotionUsageListFilter) ([]models.PromotionUsage, int64, error) {
	if _, err := s.Get(filter.PromotionID); err != nil {
		return nil, 0, err
	}
	return s.usageRepo.ListByPromotion(filter)
}

// fill 校验输入并写入优惠字段，返回组合规则
func (s *PromotionAdminService) fill(promotion *models.Promotion, input PromotionInput) ([]models.PromotionBundleRule, error) {
	title := strings.TrimSpace(input.Title)
	code := models.NormalizePromotionCode(input.Code)
	if title == "" || code == "" {
		return nil, ErrPromotionInvalid
	}
	discountType := strings.ToLower(strings.TrimSpace(input.DiscountType))
	switch discountType {
	case constants.DiscountTypePercentage, constants.DiscountTypeFixed, constants.DiscountTypeBundle:
	default:
		return nil, ErrPromotionInvalid
	}
	if input.DiscountValue.Decimal.LessThanOrEqual(decimal.Zero) {
		return nil, ErrPromotionInvalid
	}
	if discountType == constants.DiscountTypePercentage && input.DiscountValue.Decimal.GreaterThan(decimal.NewFromInt(100)) {
		return nil, ErrPromotionInvalid
	}
	if input.MaxDiscountAmount.Decimal.LessThan(decimal.Zero) {
		return nil, ErrPromotionInvalid
	}
	if input.StartsAt != nil && input.EndsAt != nil && input.EndsAt.Before(*input.StartsAt) {
		return nil, ErrPromotionInvalid
	}
	if input.UsageLimit != nil && *input.UsageLimit < 0 {
		return nil, ErrPromotionInvalid
	}

	var rules []models.PromotionBundleRule
	if discountType == constants.DiscountTypeBundle {
		rules = make([]models.PromotionBundleRule, 0, len(input.BundleRules))
		for _, rule := range input.BundleRules {
			rules = append(rules, models.PromotionBundleRule{
				ProductID: rule.ProductID,
				VariantID: rule.VariantID,
				Quantity:  rule.Quantity,
			})
		}
		if err := ValidateBundleRules(rules); err != nil {
			return nil, err
		}
	} else if len(input.BundleRules) > 0 {
		return nil, ErrPromotionInvalid
	}

	promotion.Title = title
	promotion.Code = code
	promotion.DiscountType = discountType
	promotion.DiscountValue = input.DiscountValue
	promotion.MaxDiscountAmount = input.MaxDiscountAmount
	if discountType != constants.DiscountTypePercentage {
		promotion.MaxDiscountAmount = models.ZeroMoney()
	}
	promotion.StartsAt = input.StartsAt
	promotion.EndsAt = input.EndsAt
	promotion.Stackable = input.Stackable
	promotion.UsageLimit = input.UsageLimit
	if input.IsActive != nil {
		promotion.IsActive = *input.IsActive
	}
	return rules, nil
}

func (s *PromotionAdminService) ensureCodeAvailable(code string, selfID uint) error {
	existing, err := s.repo.GetByCode(code)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return ErrPromotionCodeExists
	}
	return nil
}

func (s *PromotionAdminService) afterChange(ctx context.Context, promotion *models.Promotion) {
	if promotion.IsBundle() {
		s.registry.InvalidateBundles(ctx)
	}
	logger.Infow("promotion_saved",
		"promotion_id", promotion.ID,
		"code", promotion.Code,
		"discount_type", promotion.DiscountType,
		"is_active", promotion.IsActive,
	)
}
