package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale 金额落库与输出的小数位数，计算过程中的中间值不受此限制
const MoneyScale = 2

// Money 金额，数据库与 JSON 中均为两位小数
type Money struct {
	decimal.Decimal
}

func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(MoneyScale)}
}

func NewMoneyFromInt(amount int64) Money {
	return Money{Decimal: decimal.NewFromInt(amount)}
}

func ZeroMoney() Money {
	return Money{Decimal: decimal.Zero}
}

// String 固定两位小数，如 "12.50"
func (m Money) String() string {
	return m.Decimal.StringFixed(MoneyScale)
}

// MarshalJSON 输出字符串避免浮点精度丢失
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON 接受 "12.5"、12.5 与 null
func (m *Money) UnmarshalJSON(b []byte) error {
	raw := bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(raw) == 0 || string(raw) == "null" {
		m.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return fmt.Errorf("invalid money %s: %w", b, err)
	}
	m.Decimal = d.Round(MoneyScale)
	return nil
}

func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Round(MoneyScale).Value()
}

func (m *Money) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	m.Decimal = d.Round(MoneyScale)
	return nil
}
