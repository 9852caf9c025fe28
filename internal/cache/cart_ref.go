package cache

import (
	"context"
	"fmt"
	"time"
)

const cartRefCacheTTL = 10 * time.Minute

// CartRef 购物车令牌解析快照
type CartRef struct {
	CartID uint   `json:"cart_id"`
	Status string `json:"status"`
}

func cartRefKey(token string) string {
	return fmt.Sprintf("cart:token:%s", token)
}

// GetCartRef 读取购物车令牌映射
func GetCartRef(ctx context.Context, token string) (*CartRef, bool, error) {
	var ref CartRef
	hit, err := GetJSON(ctx, cartRefKey(token), &ref)
	if err != nil || !hit {
		return nil, false, err
	}
	return &ref, true, nil
}

// SetCartRef 写入购物车令牌映射
func SetCartRef(ctx context.Context, token string, ref CartRef) error {
	return SetJSON(ctx, cartRefKey(token), ref, cartRefCacheTTL)
}

// DelCartRef 删除购物车令牌映射
func DelCartRef(ctx context.Context, token string) error {
	return Del(ctx, cartRefKey(token))
}
