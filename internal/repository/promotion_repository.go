package repository

import (
	"github.com/dujiao-next/promoengine/internal/constants"
	"github.com/dujiao-next/promoengine/internal/models"

	"gorm.io/gorm"
)

// PromotionRepository 优惠数据访问接口
type PromotionRepository interface {
	GetByID(id uint) (*models.Promotion, error)
	GetByCode(code string) (*models.Promotion, error)
	ListActiveBundles() ([]models.Promotion, error)
	Create(promotion *models.Promotion) error
	Update(promotion *models.Promotion) error
	ReplaceBundleRules(promotionID uint, rules []models.PromotionBundleRule) error
	List(filter PromotionListFilter) ([]models.Promotion, int64, error)
	TryConsumeUsage(id uint) (bool, error)
	ReleaseUsage(id uint, delta int) error
	WithTx(tx *gorm.DB) *GormPromotionRepository
}

// GormPromotionRepository GORM 实现
type GormPromotionRepository struct {
	db *gorm.DB
}

// NewPromotionRepository 创建优惠仓库
func NewPromotionRepository(db *gorm.DB) *GormPromotionRepository {
	return &GormPromotionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPromotionRepository) WithTx(tx *gorm.DB) *GormPromotionRepository {
	if tx == nil {
		return r
	}
	return &GormPromotionRepository{db: tx}
}

func (r *GormPromotionRepository) withRules(query *gorm.DB) *gorm.DB {
	return query.Preload("BundleRules", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	})
}

// GetByID 根据ID获取优惠（含组合规则）
func (r *GormPromotionRepository) GetByID(id uint) (*models.Promotion, error) {
	return firstOrNil[models.Promotion](r.withRules(r.db), id)
}

// GetByCode 根据优惠码获取优惠（大小写不敏感）
func (r *GormPromotionRepository) GetByCode(code string) (*models.Promotion, error) {
	normalized := models.NormalizePromotionCode(code)
	if normalized == "" {
		return nil, nil
	}
	return firstOrNil[models.Promotion](r.withRules(r.db).Where("code = ?", normalized))
}

// ListActiveBundles 获取已启用的组合优惠（含规则），生效时间由调用方判断
func (r *GormPromotionRepository) ListActiveBundles() ([]models.Promotion, error) {
	var promotions []models.Promotion
	query := r.withRules(r.db).
		Where("discount_type = ?", constants.DiscountTypeBundle).
		Where("is_active = ?", true)
	if err := query.Order("id asc").Find(&promotions).Error; err != nil {
		return nil, err
	}
	return promotions, nil
}

// Create 创建优惠（同时写入组合规则）
func (r *GormPromotionRepository) Create(promotion *models.Promotion) error {
	return r.db.Create(promotion).Error
}

// Update 更新优惠基础信息，不覆盖使用次数与组合规则
func (r *GormPromotionRepository) Update(promotion *models.Promotion) error {
	return r.db.Omit("BundleRules", "UsageCount").Save(promotion).Error
}

// ReplaceBundleRules 覆盖组合规则
func (r *GormPromotionRepository) ReplaceBundleRules(promotionID uint, rules []models.PromotionBundleRule) error {
	if err := r.db.Where("promotion_id = ?", promotionID).Delete(&models.PromotionBundleRule{}).Error; err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}
	for i := range rules {
		rules[i].ID = 0
		rules[i].PromotionID = promotionID
	}
	return r.db.Create(&rules).Error
}

// List 获取优惠列表
func (r *GormPromotionRepository) List(filter PromotionListFilter) ([]models.Promotion, int64, error) {
	var promotions []models.Promotion
	query := r.db.Model(&models.Promotion{})

	if filter.Code != "" {
		query = query.Where("code = ?", models.NormalizePromotionCode(filter.Code))
	}
	if filter.DiscountType != "" {
		query = query.Where("discount_type = ?", filter.DiscountType)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	query = query.Scopes(keywordLike(filter.Keyword, "title", "code"))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	if err := r.withRules(query).Order("id desc").Find(&promotions).Error; err != nil {
		return nil, 0, err
	}
	return promotions, total, nil
}

// TryConsumeUsage 条件递增使用次数，返回是否占用成功
// 未达上限时才会更新，影响行数为 0 表示已用尽或并发竞争失败。
func (r *GormPromotionRepository) TryConsumeUsage(id uint) (bool, error) {
	result := r.db.Model(&models.Promotion{}).
		Where("id = ?", id).
		Where("(usage_limit IS NULL OR usage_count < usage_limit)").
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReleaseUsage 归还使用次数（不会减到负数）
func (r *GormPromotionRepository) ReleaseUsage(id uint, delta int) error {
	if delta == 0 {
		delta = 1
	}
	if delta < 0 {
		delta = -delta
	}
	return r.db.Model(&models.Promotion{}).
		Where("id = ?", id).
		Where("usage_count >= ?", delta).
		UpdateColumn("usage_count", gorm.Expr("usage_count - ?", delta)).Error
}
