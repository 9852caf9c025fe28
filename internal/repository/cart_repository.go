package repository

import (
	"time"

	"github.com/dujiao-next/promoengine/internal/constants"
	"github.com/dujiao-next/promoengine/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository 购物车数据访问接口
type CartRepository interface {
	Create(cart *models.Cart) error
	GetByID(id uint) (*models.Cart, error)
	GetByToken(token string) (*models.Cart, error)
	GetByIDForUpdate(id uint) (*models.Cart, error)
	GetOpenByUser(userID uint) (*models.Cart, error)
	UpdateTotals(cart *models.Cart) error
	UpdateStatus(id uint, status string, updates map[string]interface{}) error
	BindUser(id uint, userID uint) error
	FindItem(cartID, productID, variantID uint) (*models.CartItem, error)
	SaveItem(item *models.CartItem) error
	DeleteItem(cartID, productID, variantID uint) (bool, error)
	ListExpiredOpen(now time.Time, limit int) ([]models.Cart, error)
	WithTx(tx *gorm.DB) *GormCartRepository
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCartRepository) WithTx(tx *gorm.DB) *GormCartRepository {
	if tx == nil {
		return r
	}
	return &GormCartRepository{db: tx}
}

func (r *GormCartRepository) withItems(query *gorm.DB) *gorm.DB {
	return query.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	})
}

func (r *GormCartRepository) first(query *gorm.DB) (*models.Cart, error) {
	return firstOrNil[models.Cart](r.withItems(query))
}

// Create 创建购物车
func (r *GormCartRepository) Create(cart *models.Cart) error {
	return r.db.Omit("Items").Create(cart).Error
}

// GetByID 根据 ID 获取购物车（含购物车项）
func (r *GormCartRepository) GetByID(id uint) (*models.Cart, error) {
	return r.first(r.db.Where("id = ?", id))
}

// GetByToken 根据访问令牌获取购物车
func (r *GormCartRepository) GetByToken(token string) (*models.Cart, error) {
	return r.first(r.db.Where("token = ?", token))
}

// GetByIDForUpdate 加行锁获取购物车
func (r *GormCartRepository) GetByIDForUpdate(id uint) (*models.Cart, error) {
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

// GetOpenByUser 获取用户当前打开的购物车
func (r *GormCartRepository) GetOpenByUser(userID uint) (*models.Cart, error) {
	return r.first(r.db.Where("user_id = ? AND status = ?", userID, constants.CartStatusOpen).Order("id desc"))
}

// UpdateTotals 写回金额字段
func (r *GormCartRepository) UpdateTotals(cart *models.Cart) error {
	return r.db.Model(&models.Cart{}).
		Where("id = ?", cart.ID).
		Updates(map[string]interface{}{
			"subtotal_amount":        cart.SubtotalAmount,
			"bundle_discount_amount": cart.BundleDiscountAmount,
			"discount_amount":        cart.DiscountAmount,
			"final_amount":           cart.FinalAmount,
			"updated_at":             time.Now(),
		}).Error
}

// UpdateStatus 更新购物车状态
func (r *GormCartRepository) UpdateStatus(id uint, status string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = status
	updates["updated_at"] = time.Now()
	return r.db.Model(&models.Cart{}).Where("id = ?", id).Updates(updates).Error
}

// BindUser 将游客购物车归属到用户
func (r *GormCartRepository) BindUser(id uint, userID uint) error {
	return r.db.Model(&models.Cart{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"user_id":    userID,
			"updated_at": time.Now(),
		}).Error
}

// FindItem 获取购物车项
func (r *GormCartRepository) FindItem(cartID, productID, variantID uint) (*models.CartItem, error) {
	return firstOrNil[models.CartItem](r.db.Where("cart_id = ? AND product_id = ? AND variant_id = ?", cartID, productID, variantID))
}

// SaveItem 新增或更新购物车项
func (r *GormCartRepository) SaveItem(item *models.CartItem) error {
	if item.ID == 0 {
		return r.db.Create(item).Error
	}
	return r.db.Save(item).Error
}

// DeleteItem 删除购物车项
func (r *GormCartRepository) DeleteItem(cartID, productID, variantID uint) (bool, error) {
	result := r.db.Where("cart_id = ? AND product_id = ? AND variant_id = ?", cartID, productID, variantID).
		Delete(&models.CartItem{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListExpiredOpen 获取已过期但仍为打开状态的购物车
func (r *GormCartRepository) ListExpiredOpen(now time.Time, limit int) ([]models.Cart, error) {
	if limit <= 0 {
		limit = 100
	}
	var carts []models.Cart
	if err := r.db.Where("status = ? AND expires_at <= ?", constants.CartStatusOpen, now).
		Order("id asc").
		Limit(limit).
		Find(&carts).Error; err != nil {
		return nil, err
	}
	return carts, nil
}
