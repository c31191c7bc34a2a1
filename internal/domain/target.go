package domain

import "strings"

// ClassifyTarget 根据写法识别转发目标类型。
// smtp(s):// 为中继，http(s):// 为 HTTP 上传，含 @ 的视为邮件地址。
func ClassifyTarget(raw string) (Target, error) {
	value := strings.TrimSpace(raw)
	lower := strings.ToLower(value)

	switch {
	case strings.HasPrefix(lower, "smtp://"), strings.HasPrefix(lower, "smtps://"):
		return Target{Type: TargetRelay, Value: value}, nil
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return Target{Type: TargetHTTP, Value: value}, nil
	case strings.Contains(value, "@"):
		address := NormalizeAddress(value)
		if err := ValidateAddressSyntax(address); err != nil {
			return Target{}, ErrInvalidAddress.WithMessage("invalid forwarding target %q", value)
		}
		return Target{Type: TargetMail, Value: address}, nil
	default:
		return Target{}, ErrUnknownTargetType.WithMessage("unknown target type %q", value)
	}
}
