package response

// 业务状态码，与 HTTP 语义保持一致
const (
	CodeOK              = 0
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeConflict        = 409 // 优惠码重复、状态冲突、并发处理中
	CodeUnprocessable   = 422 // 仅用于优惠码批量失败
	CodeTooManyRequests = 429
	CodeInternal        = 500
)
