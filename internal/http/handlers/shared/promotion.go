package shared

import (
	"errors"

	"github.com/dujiao-next/promoengine/internal/http/response"
	"github.com/dujiao-next/promoengine/internal/service"

	"github.com/gin-gonic/gin"
)

// RespondPromotionFailure 处理整批优惠码应用失败，返回 true 表示已写入 422 响应
func RespondPromotionFailure(c *gin.Context, err error, failures []service.CodeFailure) bool {
	if len(failures) > 0 {
		errorCodes := make([]string, 0, len(failures))
		failedCodes := make([]string, 0, len(failures))
		for _, failure := range failures {
			errorCodes = append(errorCodes, failure.ErrorCode)
			failedCodes = append(failedCodes, failure.Code)
		}
		RequestLog(c).Infow("promotion_batch_rejected",
			"error_codes", errorCodes,
			"failed_codes", failedCodes,
		)
		response.PromotionFailure(c, errorCodes, failedCodes)
		return true
	}
	var promoErr *service.PromotionError
	if errors.As(err, &promoErr) {
		failed := []string{}
		if promoErr.PromotionCode != "" {
			failed = append(failed, promoErr.PromotionCode)
		}
		response.PromotionFailure(c, []string{promoErr.Code}, failed)
		return true
	}
	if code := service.ErrorCodeOf(err); code != "" {
		response.PromotionFailure(c, []string{code}, nil)
		return true
	}
	return false
}
