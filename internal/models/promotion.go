package models

import (
	"strings"
	"time"

	"github.com/dujiao-next/promoengine/internal/constants"

	"gorm.io/gorm"
)

// Promotion 优惠活动（优惠码 / 组合优惠）
type Promotion struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                             // 主键
	Title             string         `gorm:"type:varchar(200);not null" json:"title"`                          // 名称
	Code              string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`                // 优惠码（统一大写存储）
	DiscountType      string         `gorm:"type:varchar(20);not null;index" json:"discount_type"`             // 类型（percentage/fixed/bundle）
	DiscountValue     Money          `gorm:"type:decimal(20,2);not null" json:"discount_value"`                // 数值（百分比/固定金额/组合立减金额）
	MaxDiscountAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"max_discount_amount"` // 百分比优惠封顶（0 表示不封顶）
	StartsAt          *time.Time     `gorm:"index" json:"starts_at"`                                           // 生效时间
	EndsAt            *time.Time     `gorm:"index" json:"ends_at"`                                             // 失效时间
	IsActive          bool           `gorm:"not null;index" json:"is_active"`                                  // 是否启用
	Stackable         bool           `gorm:"not null" json:"stackable"`                                        // 是否可叠加
	UsageLimit        *int           `json:"usage_limit"`                                                      // 总使用上限（NULL 表示不限制，0 表示不可使用）
	UsageCount        int            `gorm:"not null;default:0" json:"usage_count"`                            // 已使用次数
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                          // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                                          // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                                   // 软删除时间

	BundleRules []PromotionBundleRule `gorm:"foreignKey:PromotionID" json:"bundle_rules,omitempty"` // 组合规则
}

// TableName 指定表名
func (Promotion) TableName() string {
	return "promotions"
}

// IsBundle 是否组合优惠
func (p *Promotion) IsBundle() bool {
	return p != nil && p.DiscountType == constants.DiscountTypeBundle
}

// NormalizePromotionCode 统一优惠码格式（大小写不敏感）
func NormalizePromotionCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// PromotionBundleRule 组合优惠所需商品规则
type PromotionBundleRule struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                                                         // 主键
	PromotionID uint      `gorm:"not null;index;uniqueIndex:idx_bundle_rule_target,priority:1" json:"promotion_id"`             // 优惠ID
	ProductID   uint      `gorm:"not null;uniqueIndex:idx_bundle_rule_target,priority:2" json:"product_id"`                     // 商品ID
	VariantID   uint      `gorm:"not null;default:0;uniqueIndex:idx_bundle_rule_target,priority:3" json:"variant_id,omitempty"` // 规格ID（0 表示任意规格）
	Quantity    int       `gorm:"not null;default:1" json:"quantity"`                                                           // 最低数量
	CreatedAt   time.Time `json:"created_at"`                                                                                   // 创建时间
}

// TableName 指定表名
func (PromotionBundleRule) TableName() string {
	return "promotion_bundle_rules"
}
