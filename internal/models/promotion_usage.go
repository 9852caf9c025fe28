package models

import "time"

// PromotionUsage 优惠使用台账
// 每个可核销对象对同一优惠最多一条记录，创建时占用一次使用次数。
type PromotionUsage struct {
	ID             uint       `gorm:"primarykey" json:"id"`                                                                                                                          // 主键
	PromotionID    uint       `gorm:"not null;index;uniqueIndex:idx_promotion_usage_target,priority:1" json:"promotion_id"`                                                          // 优惠ID
	RedeemableType string     `gorm:"type:varchar(20);not null;uniqueIndex:idx_promotion_usage_target,priority:2;index:idx_promotion_usage_owner,priority:1" json:"redeemable_type"` // 对象类型（cart/order）
	RedeemableID   uint       `gorm:"not null;uniqueIndex:idx_promotion_usage_target,priority:3;index:idx_promotion_usage_owner,priority:2" json:"redeemable_id"`                    // 对象ID
	UserID         *uint      `gorm:"index" json:"user_id,omitempty"`                                                                                                                // 用户ID（可选）
	IsActive       bool       `gorm:"not null;index" json:"is_active"`                                                                                                               // 是否仍处于挂载状态
	State          string     `gorm:"type:varchar(20);not null;index" json:"state"`                                                                                                  // 状态（reserved/redeemed/released）
	ReleasedAt     *time.Time `json:"released_at,omitempty"`                                                                                                                         // 释放时间
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`                                                                                                                       // 创建时间
	UpdatedAt      time.Time  `json:"updated_at"`                                                                                                                                    // 更新时间
}

// TableName 指定表名
func (PromotionUsage) TableName() string {
	return "promotion_usages"
}

// RedeemablePromotion 可核销对象与优惠的挂载关系
type RedeemablePromotion struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                                                             // 主键
	RedeemableType string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_redeemable_promotion,priority:1" json:"redeemable_type"` // 对象类型
	RedeemableID   uint      `gorm:"not null;uniqueIndex:idx_redeemable_promotion,priority:2" json:"redeemable_id"`                    // 对象ID
	PromotionID    uint      `gorm:"not null;index;uniqueIndex:idx_redeemable_promotion,priority:3" json:"promotion_id"`               // 优惠ID
	Position       int       `gorm:"not null;default:0" json:"position"`                                                               // 挂载顺序
	CreatedAt      time.Time `json:"created_at"`                                                                                       // 创建时间

	Promotion *Promotion `gorm:"foreignKey:PromotionID" json:"promotion,omitempty"` // 关联优惠
}

// TableName 指定表名
func (RedeemablePromotion) TableName() string {
	return "redeemable_promotions"
}
