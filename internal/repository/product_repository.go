package repository

import (
	"github.com/dujiao-next/promoengine/internal/models"

	"gorm.io/gorm"
)

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	GetByID(id uint) (*models.Product, error)
	GetVariant(productID, variantID uint) (*models.ProductVariant, error)
	ListByIDs(ids []uint) ([]models.Product, error)
	Create(product *models.Product) error
	WithTx(tx *gorm.DB) *GormProductRepository
}

// GormProductRepository 商品目录只读为主，写入仅用于初始化数据
type GormProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx tx 为 nil 时沿用当前连接
func (r *GormProductRepository) WithTx(tx *gorm.DB) *GormProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// GetByID 含规格列表，规格按 ID 升序
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	return firstOrNil[models.Product](r.db.Preload("Variants", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	}), id)
}

// GetVariant 规格必须属于该商品
func (r *GormProductRepository) GetVariant(productID, variantID uint) (*models.ProductVariant, error) {
	return firstOrNil[models.ProductVariant](r.db.Where("product_id = ?", productID), variantID)
}

// ListByIDs 不预加载规格，用于订单行标题回填
func (r *GormProductRepository) ListByIDs(ids []uint) ([]models.Product, error) {
	products := make([]models.Product, 0, len(ids))
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.Where("id IN ?", ids).Find(&products).Error
	return products, err
}

func (r *GormProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}
