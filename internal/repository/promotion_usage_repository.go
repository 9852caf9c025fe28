package repository

import (
	"time"

	"github.com/dujiao-next/promoengine/internal/constants"
	"github.com/dujiao-next/promoengine/internal/models"

	"gorm.io/gorm"
)

// PromotionUsageRepository 优惠使用台账数据访问接口
type PromotionUsageRepository interface {
	Create(usage *models.PromotionUsage) error
	GetByTarget(promotionID uint, redeemableType string, redeemableID uint) (*models.PromotionUsage, error)
	ListByRedeemable(redeemableType string, redeemableID uint) ([]models.PromotionUsage, error)
	ListByPromotion(filter PromotionUsageListFilter) ([]models.PromotionUsage, int64, error)
	SetActive(id uint, active bool) error
	Reactivate(id uint, state string) error
	DeactivateByRedeemable(redeemableType string, redeemableID uint) error
	Transfer(fromType string, fromID uint, toType string, toID uint, state string) error
	MarkReleased(ids []uint, at time.Time) error
	WithTx(tx *gorm.DB) *GormPromotionUsageRepository
}

// GormPromotionUsageRepository GORM 实现
type GormPromotionUsageRepository struct {
	db *gorm.DB
}

// NewPromotionUsageRepository 创建优惠使用台账仓库
func NewPromotionUsageRepository(db *gorm.DB) *GormPromotionUsageRepository {
	return &GormPromotionUsageRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPromotionUsageRepository) WithTx(tx *gorm.DB) *GormPromotionUsageRepository {
	if tx == nil {
		return r
	}
	return &GormPromotionUsageRepository{db: tx}
}

// Create 创建台账记录
func (r *GormPromotionUsageRepository) Create(usage *models.PromotionUsage) error {
	return r.db.Create(usage).Error
}

// GetByTarget 获取对象在某优惠上的台账记录
func (r *GormPromotionUsageRepository) GetByTarget(promotionID uint, redeemableType string, redeemableID uint) (*models.PromotionUsage, error) {
	return firstOrNil[models.PromotionUsage](r.db.Where("promotion_id = ? AND redeemable_type = ? AND redeemable_id = ?", promotionID, redeemableType, redeemableID))
}

// ListByRedeemable 获取对象全部台账记录
func (r *GormPromotionUsageRepository) ListByRedeemable(redeemableType string, redeemableID uint) ([]models.PromotionUsage, error) {
	var usages []models.PromotionUsage
	if err := r.db.Where("redeemable_type = ? AND redeemable_id = ?", redeemableType, redeemableID).
		Order("id asc").
		Find(&usages).Error; err != nil {
		return nil, err
	}
	return usages, nil
}

// ListByPromotion 分页获取优惠台账
func (r *GormPromotionUsageRepository) ListByPromotion(filter PromotionUsageListFilter) ([]models.PromotionUsage, int64, error) {
	query := r.db.Model(&models.PromotionUsage{}).Where("promotion_id = ?", filter.PromotionID)
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	var usages []models.PromotionUsage
	if err := query.Order("id desc").Find(&usages).Error; err != nil {
		return nil, 0, err
	}
	return usages, total, nil
}

// SetActive 更新挂载标记
func (r *GormPromotionUsageRepository) SetActive(id uint, active bool) error {
	return r.db.Model(&models.PromotionUsage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": time.Now(),
		}).Error
}

// Reactivate 重新占用已释放的台账记录
func (r *GormPromotionUsageRepository) Reactivate(id uint, state string) error {
	return r.db.Model(&models.PromotionUsage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":   true,
			"state":       state,
			"released_at": nil,
			"updated_at":  time.Now(),
		}).Error
}

// DeactivateByRedeemable 取消对象全部挂载标记（不释放次数）
func (r *GormPromotionUsageRepository) DeactivateByRedeemable(redeemableType string, redeemableID uint) error {
	return r.db.Model(&models.PromotionUsage{}).
		Where("redeemable_type = ? AND redeemable_id = ? AND is_active = ?", redeemableType, redeemableID, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		}).Error
}

// Transfer 将台账记录转移到另一个对象（购物车结算为订单）
func (r *GormPromotionUsageRepository) Transfer(fromType string, fromID uint, toType string, toID uint, state string) error {
	return r.db.Model(&models.PromotionUsage{}).
		Where("redeemable_type = ? AND redeemable_id = ?", fromType, fromID).
		Where("state <> ?", constants.PromotionUsageStateReleased).
		Updates(map[string]interface{}{
			"redeemable_type": toType,
			"redeemable_id":   toID,
			"state":           state,
			"updated_at":      time.Now(),
		}).Error
}

// MarkReleased 标记台账已释放
func (r *GormPromotionUsageRepository) MarkReleased(ids []uint, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.PromotionUsage{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"state":       constants.PromotionUsageStateReleased,
			"is_active":   false,
			"released_at": at,
			"updated_at":  at,
		}).Error
}
