package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表（仅保留计价所需字段）
type Product struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                      // 主键
	Slug        string         `gorm:"uniqueIndex;not null" json:"slug"`                          // 唯一标识
	Title       string         `gorm:"type:varchar(200);not null" json:"title"`                   // 标题
	PriceAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price_amount"` // 价格金额
	IsActive    bool           `gorm:"not null;index" json:"is_active"`                           // 是否上架
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                                // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"` // 规格列表
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// ProductVariant 商品规格
type ProductVariant struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                                                          // 主键
	ProductID   uint           `gorm:"not null;index;uniqueIndex:idx_product_variant_sku" json:"product_id"`                          // 商品ID
	SKUCode     string         `gorm:"column:sku_code;type:varchar(64);not null;uniqueIndex:idx_product_variant_sku" json:"sku_code"` // SKU编码（同商品内唯一）
	Title       string         `gorm:"type:varchar(200)" json:"title"`                                                                // 规格名称
	PriceAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price_amount"`                                     // 规格价格
	IsActive    bool           `gorm:"not null;index" json:"is_active"`                                                               // 是否启用
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                                                       // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                                                                    // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                                                                // 软删除时间
}

// TableName 指定表名
func (ProductVariant) TableName() string {
	return "product_variants"
}
