package models

import (
	"time"

	"github.com/dujiao-next/promoengine/internal/constants"

	"gorm.io/gorm"
)

// Cart 购物车
type Cart struct {
	ID                   uint           `gorm:"primarykey" json:"id"`                                                // 主键
	Token                string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"token"`                  // 访问令牌
	UserID               *uint          `gorm:"index" json:"user_id,omitempty"`                                      // 用户ID（游客为空）
	Status               string         `gorm:"type:varchar(20);not null;index" json:"status"`                       // 状态
	Currency             string         `gorm:"type:varchar(10);not null" json:"currency"`                           // 币种
	SubtotalAmount       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal_amount"`        // 商品小计
	BundleDiscountAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"bundle_discount_amount"` // 组合优惠金额
	DiscountAmount       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"`        // 优惠码优惠金额
	FinalAmount          Money          `gorm:"type:decimal(20,2);not null;default:0" json:"final_amount"`           // 优惠后金额
	ExpiresAt            time.Time      `gorm:"index" json:"expires_at"`                                             // 过期时间
	CheckedOutAt         *time.Time     `json:"checked_out_at,omitempty"`                                            // 结算时间
	CreatedAt            time.Time      `gorm:"index" json:"created_at"`                                             // 创建时间
	UpdatedAt            time.Time      `json:"updated_at"`                                                          // 更新时间
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`                                                      // 软删除时间

	Items []CartItem `gorm:"foreignKey:CartID" json:"items"` // 购物车项
}

// TableName 指定表名
func (Cart) TableName() string {
	return "carts"
}

// RedeemableType 对象类型
func (c *Cart) RedeemableType() string {
	return constants.RedeemableTypeCart
}

// RedeemableID 对象ID
func (c *Cart) RedeemableID() uint {
	return c.ID
}

// OwnerUserID 所属用户
func (c *Cart) OwnerUserID() *uint {
	return c.UserID
}

// LineItems 行项目
func (c *Cart) LineItems() []LineItem {
	items := make([]LineItem, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, LineItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return items
}

// Totals 当前金额
func (c *Cart) Totals() Totals {
	return Totals{
		Subtotal:       c.SubtotalAmount,
		BundleDiscount: c.BundleDiscountAmount,
		DiscountAmount: c.DiscountAmount,
		FinalTotal:     c.FinalAmount,
	}
}

// ApplyTotals 写入重算结果
func (c *Cart) ApplyTotals(totals Totals) {
	c.SubtotalAmount = totals.Subtotal
	c.BundleDiscountAmount = totals.BundleDiscount
	c.DiscountAmount = totals.DiscountAmount
	c.FinalAmount = totals.FinalTotal
}

// AcceptsPromotions 购物车仅在打开且未过期时可挂载优惠
func (c *Cart) AcceptsPromotions(now time.Time) bool {
	return c.Status == constants.CartStatusOpen && now.Before(c.ExpiresAt)
}

// CartItem 购物车项
type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                                             // 主键
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_item_target,priority:1" json:"cart_id"`              // 购物车ID
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_item_target,priority:2" json:"product_id"`           // 商品ID
	VariantID uint      `gorm:"not null;default:0;uniqueIndex:idx_cart_item_target,priority:3" json:"variant_id"` // 规格ID（0 表示无规格）
	Quantity  int       `gorm:"not null" json:"quantity"`                                                         // 数量
	UnitPrice Money     `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`                          // 单价
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                                          // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                                                       // 更新时间
}

// TableName 指定表名
func (CartItem) TableName() string {
	return "cart_items"
}
