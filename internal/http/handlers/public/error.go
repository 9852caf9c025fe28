package public

import (
	handlershared "github.com/dujiao-next/promoengine/internal/http/handlers/shared"
	"github.com/dujiao-next/promoengine/internal/http/response"
	"github.com/dujiao-next/promoengine/internal/i18n"
	"github.com/dujiao-next/promoengine/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func handlerRespondPromotionFailure(c *gin.Context, err error, failures []service.CodeFailure) bool {
	return handlershared.RespondPromotionFailure(c, err, failures)
}

func respondTooManyCodes(c *gin.Context, maxCodes int) {
	msg := i18n.Sprintf(i18n.ResolveLocale(c), "error.promotion_codes_too_many", maxCodes)
	handlershared.RespondErrorWithMsg(c, response.CodeBadRequest, msg, nil)
}
