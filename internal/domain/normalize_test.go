package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"大小写", "John.Doe@Example.COM", "john.doe@example.com"},
		{"首尾空白", "  user@example.com ", "user@example.com"},
		{"国际化域名", "user@Bücher.de", "user@xn--bcher-kva.de"},
		{"组合字符归一", "E\u0301mile@example.com", "\u00e9mile@example.com"},
		{"通配域名保留", "User@*", "user@*"},
		{"通配用户保留", "*@Example.com", "*@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeAddress(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, got, NormalizeAddress(got), "规范化必须幂等")
		})
	}
}

func TestNormalizeDomain(t *testing.T) {
	assert.Equal(t, "example.com", NormalizeDomain("EXAMPLE.com"))
	assert.Equal(t, "xn--bcher-kva.de", NormalizeDomain("bücher.DE"))
	assert.Equal(t, "*", NormalizeDomain("*"))
	assert.Equal(t, "", NormalizeDomain("  "))
}

func TestCanonicalView(t *testing.T) {
	t.Run("忽略本地部分的点", func(t *testing.T) {
		assert.Equal(t, CanonicalView("firstlast@example.com"), CanonicalView("first.last@example.com"))
		assert.Equal(t, "firstlast@example.com", CanonicalView("First.Last@Example.com"))
	})

	t.Run("域名中的点保留", func(t *testing.T) {
		assert.Equal(t, "user@mail.example.com", CanonicalView("u.s.e.r@mail.example.com"))
	})

	t.Run("通配地址", func(t *testing.T) {
		assert.Equal(t, "*ab@example.com", CanonicalView("*a.b@example.com"))
		assert.Equal(t, "firstlast@*", CanonicalView("first.last@*"))
	})
}

func TestSplitAddress(t *testing.T) {
	local, domain, ok := SplitAddress("a@b@example.com")
	assert.True(t, ok)
	assert.Equal(t, "a@b", local)
	assert.Equal(t, "example.com", domain)

	_, _, ok = SplitAddress("@example.com")
	assert.False(t, ok)
	_, _, ok = SplitAddress("user@")
	assert.False(t, ok)
	_, _, ok = SplitAddress("user")
	assert.False(t, ok)
}
