package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mailplatform/backend/internal/domain"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`              // 业务状态码
	Msg     string      `json:"msg"`               // 中文提示信息
	Error   string      `json:"error,omitempty"`   // 机器可读的错误码
	Details string      `json:"details,omitempty"` // 错误的原始描述
	Data    interface{} `json:"data,omitempty"`    // 数据载荷
}

// 业务状态码定义
const (
	// 成功状态码 2xx
	CodeSuccess = 200 // 成功
	CodeCreated = 201 // 创建成功

	// 客户端错误 4xx
	CodeBadRequest   = 400 // 请求参数错误
	CodeUnauthorized = 401 // 未认证
	CodeForbidden    = 403 // 无权限
	CodeNotFound     = 404 // 资源不存在
	CodeConflict     = 409 // 资源冲突

	// 服务器错误 5xx
	CodeInternalError      = 500 // 服务器内部错误
	CodeServiceUnavailable = 503 // 依赖不可用
)

// Success 成功响应（200）
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: CodeSuccess,
		Msg:  "成功",
		Data: data,
	})
}

// SuccessWithMsg 成功响应（自定义消息）
func SuccessWithMsg(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: CodeSuccess,
		Msg:  msg,
		Data: data,
	})
}

// Created 创建成功响应（201）
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code: CodeCreated,
		Msg:  "创建成功",
		Data: data,
	})
}

// BadRequest 请求参数错误（400）
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:  CodeBadRequest,
		Msg:   msg,
		Error: domain.ErrInvalidAddress.Code,
	})
}

// Unauthorized 未认证错误（401）
func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, Response{
		Code: CodeUnauthorized,
		Msg:  msg,
	})
}

// statusForKind 错误类别对应的 HTTP 状态码
func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindChangeNotAllowed:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindQuotaUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondError 按错误类别渲染业务错误。存储错误不回显底层描述。
func RespondError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status := statusForKind(kind)

	resp := Response{
		Code:  status,
		Msg:   GetErrorMessage(err),
		Error: domain.CodeOf(err),
	}
	if kind != domain.KindStore {
		resp.Details = err.Error()
	}
	c.JSON(status, resp)
}
