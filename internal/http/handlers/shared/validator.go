package shared

import (
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	promoCodePattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	registerValidator sync.Once
)

// RegisterValidators 向 gin 绑定引擎注册自定义校验标签
func RegisterValidators() {
	registerValidator.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("promo_code", validatePromoCode)
	})
}

// validatePromoCode 优惠码仅允许字母、数字、下划线与中划线（两端空白会被忽略）
func validatePromoCode(fl validator.FieldLevel) bool {
	return promoCodePattern.MatchString(strings.TrimSpace(fl.Field().String()))
}
