package domain

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// CanonicalizeTags 去空白、去空串、忽略大小写去重（保留首次出现的写法），
// 再按小写形式做区域敏感排序。返回展示用标签与小写索引视图。
func CanonicalizeTags(tags []string) (display []string, view []string) {
	seen := make(map[string]struct{}, len(tags))
	display = make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		display = append(display, tag)
	}

	c := collate.New(language.Und)
	sort.SliceStable(display, func(i, j int) bool {
		return c.CompareString(strings.ToLower(display[i]), strings.ToLower(display[j])) < 0
	})

	view = make([]string, len(display))
	for i, tag := range display {
		view[i] = strings.ToLower(tag)
	}
	return display, view
}

// TagView 计算单个过滤标签的索引形式
func TagView(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
