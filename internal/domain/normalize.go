package domain

import (
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/text/unicode/norm"
)

// SplitAddress 按最后一个 @ 拆分地址
func SplitAddress(address string) (local, domain string, ok bool) {
	at := strings.LastIndex(address, "@")
	if at <= 0 || at == len(address)-1 {
		return "", "", false
	}
	return address[:at], address[at+1:], true
}

// NormalizeDomain 域名小写并转换为 ASCII(IDNA) 形式；无法转换时保留小写原值
func NormalizeDomain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	if d == "" || d == "*" {
		return d
	}
	ascii, err := idna.Lookup.ToASCII(d)
	if err != nil {
		return d
	}
	return ascii
}

// NormalizeAddress 将地址转换为规范存储形式。
// 本地部分做 NFC 归一并小写，域名按 NormalizeDomain 处理。结果幂等。
func NormalizeAddress(raw string) string {
	raw = strings.TrimSpace(raw)
	at := strings.LastIndex(raw, "@")
	if at < 0 {
		return strings.ToLower(norm.NFC.String(raw))
	}
	local := strings.ToLower(norm.NFC.String(strings.TrimSpace(raw[:at])))
	return local + "@" + NormalizeDomain(raw[at+1:])
}

// CanonicalView 计算唯一性与查找所用的 addrview：去掉本地部分的点并小写
func CanonicalView(address string) string {
	normalized := NormalizeAddress(address)
	at := strings.LastIndex(normalized, "@")
	if at < 0 {
		return strings.ReplaceAll(normalized, ".", "")
	}
	return strings.ReplaceAll(normalized[:at], ".", "") + normalized[at:]
}
