package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// 验证常量
const (
	// RFC 5321 地址长度限制
	MaxEmailLength     = 254 // 整个邮箱地址最大长度
	MaxLocalPartLength = 64  // 本地部分最大长度(@前面)
	MaxDomainLength    = 253 // 域名最大长度
	maxLabelLength     = 63
)

// 正则表达式
var (
	// 本地部分：dot-atom，允许 Unicode 字母与数字
	localPartRegex = regexp.MustCompile(`^[\p{L}\p{N}\p{M}!#$%&'+/=?^_{|}~-]+(\.[\p{L}\p{N}\p{M}!#$%&'+/=?^_{|}~-]+)*$`)

	// 域名验证（ASCII 形式，至少两级）
	domainRegex = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]*[a-z0-9])?\.)+[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
)

// EmailValidator 邮箱地址语法验证器
type EmailValidator struct{}

// NewEmailValidator 创建邮箱验证器
func NewEmailValidator() *EmailValidator {
	return &EmailValidator{}
}

// ValidateEmail 验证规范化后的邮箱地址
func (v *EmailValidator) ValidateEmail(email string) error {
	if email == "" || utf8.RuneCountInString(email) > MaxEmailLength {
		return ErrInvalidAddress
	}

	local, domain, ok := SplitAddress(email)
	if !ok {
		return ErrInvalidAddress
	}

	if err := v.ValidateLocalPart(local); err != nil {
		return err
	}
	if err := v.ValidateDomain(NormalizeDomain(domain)); err != nil {
		return ErrInvalidAddress.Wrap(err)
	}
	return nil
}

// ValidateLocalPart 验证邮箱本地部分
func (v *EmailValidator) ValidateLocalPart(localPart string) error {
	if localPart == "" || utf8.RuneCountInString(localPart) > MaxLocalPartLength {
		return ErrInvalidAddress
	}
	if !localPartRegex.MatchString(localPart) {
		return ErrInvalidAddress
	}
	return nil
}

// ValidateDomain 验证 ASCII 形式的域名
func (v *EmailValidator) ValidateDomain(domain string) error {
	if domain == "" || len(domain) > MaxDomainLength {
		return ErrInvalidDomain
	}
	if !domainRegex.MatchString(domain) {
		return ErrInvalidDomain
	}
	for _, label := range strings.Split(domain, ".") {
		if len(label) > maxLabelLength {
			return ErrInvalidDomain
		}
	}
	return nil
}

var defaultValidator = NewEmailValidator()

// ValidateAddressSyntax 使用默认验证器检查地址语法
func ValidateAddressSyntax(address string) error {
	return defaultValidator.ValidateEmail(address)
}

// ValidateDomainName 规范化后检查域名
func ValidateDomainName(domain string) error {
	return defaultValidator.ValidateDomain(NormalizeDomain(domain))
}
