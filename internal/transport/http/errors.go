package httptransport

import (
	"errors"

	"mailplatform/backend/internal/domain"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[*domain.Error]string{
	// 地址校验
	domain.ErrInvalidAddress:        "邮箱地址格式无效",
	domain.ErrAddressPlusNotAllowed: "邮箱地址不能包含 +",
	domain.ErrWildcardNotAllowed:    "邮箱地址不能包含 *",
	domain.ErrInvalidWildcard:       "通配地址格式无效",
	domain.ErrWildcardSuffixTooLong: "通配后缀过长",
	domain.ErrWildcardMain:          "主地址不能是通配地址",
	domain.ErrInvalidCursor:         "分页游标无效",

	// 转发
	domain.ErrUnknownTargetType: "无法识别的转发目标",
	domain.ErrNoTargets:         "至少需要一个转发目标",
	domain.ErrSelfForward:       "不能转发给自己",
	domain.ErrInvalidForwards:   "转发配额不能为负数",

	// 域名
	domain.ErrInvalidDomain: "域名格式无效",
	domain.ErrAliasIsDomain: "别名不能指向自身",
	domain.ErrSameDomain:    "新域名必须与旧域名不同",

	// 不存在与冲突
	domain.ErrAddressNotFound:     "地址不存在",
	domain.ErrUserNotFound:        "用户不存在",
	domain.ErrDomainAliasNotFound: "域名别名不存在",
	domain.ErrAddressExists:       "该邮箱地址已存在",
	domain.ErrDomainAliasExists:   "该域名别名已存在",

	// 修改限制
	domain.ErrWildcardRename:    "通配地址不能改名",
	domain.ErrMainUnset:         "不能取消主地址，请将其它地址设为主地址",
	domain.ErrMainAddressDelete: "不能删除主地址，请先设置新的主地址",

	domain.ErrQuotaUnavailable: "转发计数暂不可用",
	domain.ErrStore:            "数据库错误",
	domain.ErrForbidden:        MsgPermissionDenied,
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	for sentinel, msg := range errorMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	if domain.KindOf(err) == domain.KindStore {
		return errorMessages[domain.ErrStore]
	}
	return err.Error()
}

// 通用错误消息
const (
	// 请求相关
	MsgInvalidRequest = "请求参数格式错误"
	MsgInvalidJSON    = "JSON格式错误"
	MsgInvalidBool    = "布尔参数格式无效"

	// 认证相关
	MsgAuthRequired     = "需要登录认证"
	MsgTokenExpired     = "登录已过期，请重新登录"
	MsgTokenInvalid     = "无效的访问令牌"
	MsgPermissionDenied = "权限不足"
	MsgRefreshFailed    = "刷新令牌失败"
)
