package domain

import (
	"errors"
	"fmt"
)

// Kind 错误类别，供传输层选择响应形式
type Kind string

const (
	KindValidation       Kind = "ValidationError"
	KindNotFound         Kind = "NotFound"
	KindConflict         Kind = "Conflict"
	KindChangeNotAllowed Kind = "ChangeNotAllowed"
	KindQuotaUnavailable Kind = "QuotaUnavailable"
	KindStore            Kind = "StoreError"
	KindForbidden        Kind = "Forbidden"
)

// Error 携带稳定错误码的业务错误
type Error struct {
	Kind    Kind   // 错误类别
	Code    string // 机器可读的错误码
	Message string // 可读描述
	Err     error  // 底层错误（可选）

	base *Error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *Error) Unwrap() error {
	return e.Err
}

// Is 派生错误与其哨兵值相等
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.root() == t.root()
}

func (e *Error) root() *Error {
	if e.base != nil {
		return e.base
	}
	return e
}

// Wrap 以当前错误为模板附加底层错误
func (e *Error) Wrap(err error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: err, base: e.root()}
}

// WithMessage 以当前错误为模板替换可读描述
func (e *Error) WithMessage(format string, args ...interface{}) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...), Err: e.Err, base: e.root()}
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// 校验错误
var (
	ErrInvalidAddress        = newError(KindValidation, "InputValidationError", "invalid email address")
	ErrInvalidDomain         = newError(KindValidation, "InputValidationError", "invalid domain")
	ErrAddressPlusNotAllowed = newError(KindValidation, "AddressPlusNotAllowed", "address can not contain +")
	ErrWildcardNotAllowed    = newError(KindValidation, "WildcardNotAllowed", "address can not contain *")
	ErrInvalidWildcard       = newError(KindValidation, "InvalidWildcard", `invalid wildcard address, use "*@domain", "*suffix@domain" or "user@*"`)
	ErrWildcardSuffixTooLong = newError(KindValidation, "WildcardSuffixTooLong", "wildcard suffix is too long")
	ErrWildcardMain          = newError(KindValidation, "WildcardMainAddress", "main address can not contain *")
	ErrUnknownTargetType     = newError(KindValidation, "UnknownTargetType", "unknown target type")
	ErrNoTargets             = newError(KindValidation, "NoTargets", "at least one forwarding target is required")
	ErrSelfForward           = newError(KindValidation, "SelfForward", "can not forward to self")
	ErrInvalidCursor         = newError(KindValidation, "InvalidCursor", "invalid pagination cursor")
	ErrAliasIsDomain         = newError(KindValidation, "AliasIsDomain", "alias domain can not point to itself")
	ErrSameDomain            = newError(KindValidation, "SameDomain", "new domain must differ from the old domain")
	ErrInvalidForwards       = newError(KindValidation, "InputValidationError", "forward quota can not be negative")
)

// 不存在错误
var (
	ErrAddressNotFound     = newError(KindNotFound, "AddressNotFound", "address not found")
	ErrUserNotFound        = newError(KindNotFound, "UserNotFound", "user not found")
	ErrDomainAliasNotFound = newError(KindNotFound, "AliasNotFound", "domain alias not found")
)

// 唯一性冲突
var (
	ErrAddressExists     = newError(KindConflict, "AddressExistsError", "this email address already exists")
	ErrDomainAliasExists = newError(KindConflict, "AliasExists", "this domain alias already exists")
)

// 违反领域不变量的修改
var (
	ErrWildcardRename    = newError(KindChangeNotAllowed, "ChangeNotAllowed", "can not rename wildcard address")
	ErrMainUnset         = newError(KindChangeNotAllowed, "ChangeNotAllowed", "can not unset main status")
	ErrMainAddressDelete = newError(KindChangeNotAllowed, "ChangeNotAllowed", "trying to delete main address, set a new main address first")
)

// 其它
var (
	ErrQuotaUnavailable = newError(KindQuotaUnavailable, "QuotaUnavailable", "forward counter is unavailable")
	ErrStore            = newError(KindStore, "StoreError", "database error")
	ErrForbidden        = newError(KindForbidden, "MissingPrivileges", "caller is not allowed to perform this action")
)

// KindOf 返回错误类别；非业务错误一律视为存储错误
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

// CodeOf 返回错误码
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrStore.Code
}
