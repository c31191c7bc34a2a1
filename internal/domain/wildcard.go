package domain

import (
	"strings"
	"unicode/utf8"
)

// WildcardKind 通配地址形态
type WildcardKind string

const (
	// NotWildcard 普通地址
	NotWildcard WildcardKind = ""
	// WildcardAnyUser "*@domain"，匹配该域下的任意用户
	WildcardAnyUser WildcardKind = "any-user"
	// WildcardSuffix "*suffix@domain"，匹配以 suffix 结尾的用户
	WildcardSuffix WildcardKind = "suffix"
	// WildcardAnyDomain "user@*"，匹配任意域下的该用户
	WildcardAnyDomain WildcardKind = "any-domain"
)

// DefaultMaxWildcardSuffix 后缀通配的默认最大长度
const DefaultMaxWildcardSuffix = 32

const placeholderDomain = "example.com"

// WildcardMatcher 通配地址校验与候选生成
type WildcardMatcher struct {
	maxSuffix int
}

// NewWildcardMatcher 创建通配匹配器，maxSuffix<=0 时使用默认值
func NewWildcardMatcher(maxSuffix int) *WildcardMatcher {
	if maxSuffix <= 0 {
		maxSuffix = DefaultMaxWildcardSuffix
	}
	return &WildcardMatcher{maxSuffix: maxSuffix}
}

// MaxSuffix 后缀长度上限
func (m *WildcardMatcher) MaxSuffix() int {
	return m.maxSuffix
}

// Validate 检查地址语法并判定通配形态。
// 含 + 的地址一律拒绝；通配符只允许出现一次且只能是三种形态之一。
func (m *WildcardMatcher) Validate(address string, allowWildcard bool) (WildcardKind, error) {
	if strings.Contains(address, "+") {
		return NotWildcard, ErrAddressPlusNotAllowed
	}

	stars := strings.Count(address, "*")
	if stars == 0 {
		return NotWildcard, ValidateAddressSyntax(address)
	}
	if !allowWildcard {
		return NotWildcard, ErrWildcardNotAllowed
	}
	if stars > 1 {
		return NotWildcard, ErrInvalidWildcard
	}

	local, domain, ok := SplitAddress(address)
	if !ok {
		return NotWildcard, ErrInvalidWildcard
	}

	var (
		kind  WildcardKind
		probe string
	)
	switch {
	case local == "*":
		kind, probe = WildcardAnyUser, "x@"+domain
	case strings.HasPrefix(local, "*"):
		suffix := local[1:]
		if utf8.RuneCountInString(suffix) > m.maxSuffix {
			return NotWildcard, ErrWildcardSuffixTooLong.WithMessage("wildcard suffix can not be longer than %d characters", m.maxSuffix)
		}
		kind, probe = WildcardSuffix, "x"+suffix+"@"+domain
	case domain == "*":
		kind, probe = WildcardAnyDomain, local+"@"+placeholderDomain
	default:
		return NotWildcard, ErrInvalidWildcard
	}

	if err := ValidateAddressSyntax(probe); err != nil {
		return NotWildcard, ErrInvalidWildcard.Wrap(err)
	}
	return kind, nil
}

// Candidates 按优先级生成某个 addrview 可能命中的通配 addrview：
// 最长的 "*suffix@domain" 优先，其次 "*@domain"，最后 "user@*"。
func (m *WildcardMatcher) Candidates(addrview string) []string {
	local, domain, ok := SplitAddress(addrview)
	if !ok {
		return nil
	}

	runes := []rune(local)
	longest := len(runes)
	if longest > m.maxSuffix {
		longest = m.maxSuffix
	}

	candidates := make([]string, 0, longest+2)
	for n := longest; n > 0; n-- {
		candidates = append(candidates, "*"+string(runes[len(runes)-n:])+"@"+domain)
	}
	candidates = append(candidates, "*@"+domain, local+"@*")
	return candidates
}
