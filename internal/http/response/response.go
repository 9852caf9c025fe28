package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一信封：业务错误同样返回 HTTP 200，以 status_code 区分
type Response struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination 分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// BuildPagination 计算总页数，pageSize 为 0 时总页数为 0
func BuildPagination(page, pageSize int, total int64) Pagination {
	p := Pagination{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		p.TotalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return p
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{StatusCode: CodeOK, Msg: "success", Data: data})
}

func SuccessWithPage(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, Response{StatusCode: CodeOK, Msg: "success", Data: data, Pagination: &pagination})
}

// Error 业务错误，data 中携带 request_id 便于排查
func Error(c *gin.Context, code int, msg string) {
	var data interface{}
	if id := requestID(c); id != "" {
		data = gin.H{"request_id": id}
	}
	c.JSON(http.StatusOK, Response{StatusCode: code, Msg: msg, Data: data})
}

func Unauthorized(c *gin.Context, msg string) { Error(c, CodeUnauthorized, msg) }

func Forbidden(c *gin.Context, msg string) { Error(c, CodeForbidden, msg) }

// PromotionFailureBody 优惠码批量应用失败的响应体
type PromotionFailureBody struct {
	ErrorCodes  []string `json:"error_codes"`
	FailedCodes []string `json:"failed_codes"`
	RequestID   string   `json:"request_id,omitempty"`
}

// PromotionFailure 以 HTTP 422 返回，不走统一信封；两个列表按提交顺序一一对应
func PromotionFailure(c *gin.Context, errorCodes, failedCodes []string) {
	if errorCodes == nil {
		errorCodes = []string{}
	}
	if failedCodes == nil {
		failedCodes = []string{}
	}
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, PromotionFailureBody{
		ErrorCodes:  errorCodes,
		FailedCodes: failedCodes,
		RequestID:   requestID(c),
	})
}

func requestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString("request_id")
}
