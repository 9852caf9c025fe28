package shared

import (
	"github.com/dujiao-next/promoengine/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetContextUintWithKeys 读取鉴权中间件写入的 ID；缺失返回 401，负数返回 400，类型不符返回 500
func GetContextUintWithKeys(c *gin.Context, key, invalidKey, typeInvalidKey string) (uint, bool) {
	raw, ok := c.Get(key)
	if !ok {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}
	id, valid, known := toUint(raw)
	switch {
	case !known:
		RespondError(c, response.CodeInternal, typeInvalidKey, nil)
		return 0, false
	case !valid:
		RespondError(c, response.CodeBadRequest, invalidKey, nil)
		return 0, false
	}
	return id, true
}

// toUint JWT claims 解码后的数字为 float64，中间件写入的为 uint
func toUint(raw interface{}) (id uint, valid bool, known bool) {
	switch v := raw.(type) {
	case uint:
		return v, true, true
	case uint64:
		return uint(v), true, true
	case int:
		return uint(v), v >= 0, true
	case int64:
		return uint(v), v >= 0, true
	case float64:
		return uint(v), v >= 0, true
	}
	return 0, false, false
}
