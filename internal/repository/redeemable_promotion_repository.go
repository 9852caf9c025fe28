package repository

import (
	"github.com/dujiao-next/promoengine/internal/models"

	"gorm.io/gorm"
)

// RedeemablePromotionRepository 优惠挂载关系数据访问接口
type RedeemablePromotionRepository interface {
	Attach(redeemableType string, redeemableID, promotionID uint) error
	Detach(redeemableType string, redeemableID, promotionID uint) (bool, error)
	DetachAll(redeemableType string, redeemableID uint) error
	ListPromotions(redeemableType string, redeemableID uint) ([]models.Promotion, error)
	Transfer(fromType string, fromID uint, toType string, toID uint) error
	WithTx(tx *gorm.DB) *GormRedeemablePromotionRepository
}

// GormRedeemablePromotionRepository GORM 实现
type GormRedeemablePromotionRepository struct {
	db *gorm.DB
}

// NewRedeemablePromotionRepository 创建挂载关系仓库
func NewRedeemablePromotionRepository(db *gorm.DB) *GormRedeemablePromotionRepository {
	return &GormRedeemablePromotionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRedeemablePromotionRepository) WithTx(tx *gorm.DB) *GormRedeemablePromotionRepository {
	if tx == nil {
		return r
	}
	return &GormRedeemablePromotionRepository{db: tx}
}

// Attach 挂载优惠，顺序追加在末尾
func (r *GormRedeemablePromotionRepository) Attach(redeemableType string, redeemableID, promotionID uint) error {
	var maxPosition int
	if err := r.db.Model(&models.RedeemablePromotion{}).
		Where("redeemable_type = ? AND redeemable_id = ?", redeemableType, redeemableID).
		Select("COALESCE(MAX(position), -1)").
		Scan(&maxPosition).Error; err != nil {
		return err
	}
	return r.db.Create(&models.RedeemablePromotion{
		RedeemableType: redeemableType,
		RedeemableID:   redeemableID,
		PromotionID:    promotionID,
		Position:       maxPosition + 1,
	}).Error
}

// Detach 解除挂载，返回是否存在挂载关系
func (r *GormRedeemablePromotionRepository) Detach(redeemableType string, redeemableID, promotionID uint) (bool, error) {
	result := r.db.Where("redeemable_type = ? AND redeemable_id = ? AND promotion_id = ?", redeemableType, redeemableID, promotionID).
		Delete(&models.RedeemablePromotion{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DetachAll 解除对象全部挂载
func (r *GormRedeemablePromotionRepository) DetachAll(redeemableType string, redeemableID uint) error {
	return r.db.Where("redeemable_type = ? AND redeemable_id = ?", redeemableType, redeemableID).
		Delete(&models.RedeemablePromotion{}).Error
}

// ListPromotions 按挂载顺序获取对象的优惠（含组合规则）
func (r *GormRedeemablePromotionRepository) ListPromotions(redeemableType string, redeemableID uint) ([]models.Promotion, error) {
	var links []models.RedeemablePromotion
	err := r.db.Preload("Promotion").
		Preload("Promotion.BundleRules").
		Where("redeemable_type = ? AND redeemable_id = ?", redeemableType, redeemableID).
		Order("position asc, id asc").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	promotions := make([]models.Promotion, 0, len(links))
	for _, link := range links {
		if link.Promotion == nil {
			continue
		}
		promotions = append(promotions, *link.Promotion)
	}
	return promotions, nil
}

// Transfer 转移挂载关系（购物车结算为订单）
func (r *GormRedeemablePromotionRepository) Transfer(fromType string, fromID uint, toType string, toID uint) error {
	return r.db.Model(&models.RedeemablePromotion{}).
		Where("redeemable_type = ? AND redeemable_id = ?", fromType, fromID).
		Updates(map[string]interface{}{
			"redeemable_type": toType,
			"redeemable_id":   toID,
		}).Error
}
