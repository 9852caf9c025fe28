package models

import (
	"time"

	"github.com/dujiao-next/promoengine/internal/constants"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID                   uint            `gorm:"primarykey" json:"id"`                                                // 主键
	OrderNo              string          `gorm:"uniqueIndex;not null" json:"order_no"`                                // 订单编号
	UserID               uint            `gorm:"index;not null" json:"user_id"`                                       // 用户ID
	CartID               *uint           `gorm:"index" json:"cart_id,omitempty"`                                      // 来源购物车
	Status               string          `gorm:"index;not null" json:"status"`                                        // 订单状态
	Currency             string          `gorm:"type:varchar(10);not null" json:"currency"`                           // 币种
	SubtotalAmount       Money           `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal_amount"`        // 商品小计
	BundleDiscountAmount Money           `gorm:"type:decimal(20,2);not null;default:0" json:"bundle_discount_amount"` // 组合优惠金额
	DiscountAmount       Money           `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"`        // 优惠码优惠金额
	FinalAmount          Money           `gorm:"type:decimal(20,2);not null;default:0" json:"final_amount"`           // 优惠后商品金额
	ShippingAmount       Money           `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_amount"`        // 运费
	TaxRatePercent       decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0" json:"tax_rate_percent"`        // 税率（百分比）
	TaxAmount            Money           `gorm:"type:decimal(20,2);not null;default:0" json:"tax_amount"`             // 税费
	GrandTotal           Money           `gorm:"type:decimal(20,2);not null;default:0" json:"grand_total"`            // 应付总额
	ExpiresAt            *time.Time      `gorm:"index" json:"expires_at"`                                             // 支付过期时间
	PaidAt               *time.Time      `gorm:"index" json:"paid_at"`                                                // 支付时间
	CanceledAt           *time.Time      `gorm:"index" json:"canceled_at"`                                            // 取消时间
	CreatedAt            time.Time       `gorm:"index" json:"created_at"`                                             // 创建时间
	UpdatedAt            time.Time       `gorm:"index" json:"updated_at"`                                             // 更新时间
	DeletedAt            gorm.DeletedAt  `gorm:"index" json:"-"`                                                      // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// RedeemableType 对象类型
func (o *Order) RedeemableType() string {
	return constants.RedeemableTypeOrder
}

// RedeemableID 对象ID
func (o *Order) RedeemableID() uint {
	return o.ID
}

// OwnerUserID 所属用户
func (o *Order) OwnerUserID() *uint {
	if o.UserID == 0 {
		return nil
	}
	uid := o.UserID
	return &uid
}

// LineItems 行项目（订单项下单后不可变）
func (o *Order) LineItems() []LineItem {
	items := make([]LineItem, 0, len(o.Items))
	for _, item := range o.Items {
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
func (o *Order) Totals() Totals {
	return Totals{
		Subtotal:       o.SubtotalAmount,
		BundleDiscount: o.BundleDiscountAmount,
		DiscountAmount: o.DiscountAmount,
		FinalTotal:     o.FinalAmount,
	}
}

// ApplyTotals 写入重算结果，税费按优惠后金额计算，运费与税费叠加在优惠后金额之上
func (o *Order) ApplyTotals(totals Totals) {
	o.SubtotalAmount = totals.Subtotal
	o.BundleDiscountAmount = totals.BundleDiscount
	o.DiscountAmount = totals.DiscountAmount
	o.FinalAmount = totals.FinalTotal
	tax := decimal.Zero
	if o.TaxRatePercent.GreaterThan(decimal.Zero) {
		tax = totals.FinalTotal.Decimal.Mul(o.TaxRatePercent).Div(decimal.NewFromInt(100))
	}
	o.TaxAmount = NewMoneyFromDecimal(tax)
	o.GrandTotal = NewMoneyFromDecimal(totals.FinalTotal.Decimal.Add(o.ShippingAmount.Decimal).Add(o.TaxAmount.Decimal))
}

// AcceptsPromotions 仅待支付订单可调整优惠
func (o *Order) AcceptsPromotions(now time.Time) bool {
	if o.Status != constants.OrderStatusPendingPayment {
		return false
	}
	return o.ExpiresAt == nil || now.Before(*o.ExpiresAt)
}

// OrderItem 订单项
type OrderItem struct {
	ID         uint      `gorm:"primarykey" json:"id"`                                     // 主键
	OrderID    uint      `gorm:"index;not null" json:"order_id"`                           // 订单ID
	ProductID  uint      `gorm:"index;not null" json:"product_id"`                         // 商品ID
	VariantID  uint      `gorm:"not null;default:0" json:"variant_id"`                     // 规格ID
	Title      string    `gorm:"type:varchar(200);not null" json:"title"`                  // 商品标题快照
	Quantity   int       `gorm:"not null" json:"quantity"`                                 // 数量
	UnitPrice  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`  // 单价
	TotalPrice Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"` // 小计
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                                  // 创建时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
